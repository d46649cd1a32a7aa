// Package readstate derives unread counts and read receipts from a
// conversation's message sequence. The same functions back the authoritative
// REST projection and the optimistic client cache; only "who is self"
// differs between the two callers.
//
// The derivation leans on the contiguous-unread invariant: ordered by
// creation time, the peer's unread messages always form a suffix ending at
// the newest message. Marking read is a bulk transition of that whole
// suffix, so the invariant survives every mutation this package performs.
package readstate

import (
	"time"

	"github.com/google/uuid"

	"github.com/ramadhanidw/messenger-be/internal/models"
)

// Derived is the view a conversation exposes on top of its raw messages.
type Derived struct {
	// UnreadCount is the number of messages from the peer not yet read by
	// self.
	UnreadCount int
	// LastRead is the newest message sent by self that the peer has read,
	// nil when the peer has read nothing of ours.
	LastRead *models.Message
}

// Derive computes the derived view with a full backward scan. It makes no
// assumption about the contiguous-unread invariant, so it is the correct
// choice for persisted or remotely-sourced data: a read message sitting
// between unread ones still yields an exact count instead of a short-circuit
// undercount.
func Derive(msgs []models.Message, selfID uuid.UUID) Derived {
	var d Derived
	for i := len(msgs) - 1; i >= 0; i-- {
		m := &msgs[i]
		if m.SenderID == selfID {
			if d.LastRead == nil && m.Read() {
				d.LastRead = m
			}
			continue
		}
		if !m.Read() {
			d.UnreadCount++
		}
	}
	return d
}

// DeriveContiguous computes the same view but stops counting at the first
// read peer message, trusting the contiguous-unread invariant. Callers may
// use it only on sequences they themselves just normalized (a list fresh out
// of MarkAllRead); anything persisted goes through Derive.
//
// The receipt scan cannot short-circuit with the count: the peer's read
// pointer into our messages is independent of our unread suffix, so LastRead
// still needs the full walk.
func DeriveContiguous(msgs []models.Message, selfID uuid.UUID) Derived {
	var d Derived
	counting := true
	for i := len(msgs) - 1; i >= 0; i-- {
		m := &msgs[i]
		if m.SenderID == selfID {
			if d.LastRead == nil && m.Read() {
				d.LastRead = m
			}
			continue
		}
		if !counting {
			continue
		}
		if m.Read() {
			counting = false
			continue
		}
		d.UnreadCount++
	}
	return d
}

// MarkAllRead stamps now onto every unread peer message in msgs, in place,
// and returns how many it changed. Timestamps already set are left alone, so
// a second call is a no-op and ReadAt never moves once written. After a call
// the peer's unread suffix is empty and the contiguous-unread invariant
// holds trivially.
func MarkAllRead(msgs []models.Message, selfID uuid.UUID, now time.Time) int {
	changed := 0
	for i := range msgs {
		m := &msgs[i]
		if m.SenderID == selfID || m.Read() {
			continue
		}
		t := now
		m.ReadAt = &t
		changed++
	}
	return changed
}
