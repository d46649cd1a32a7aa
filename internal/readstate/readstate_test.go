package readstate

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramadhanidw/messenger-be/internal/models"
)

var (
	self = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	peer = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func msg(sender uuid.UUID, text string, at time.Time, readAt *time.Time) models.Message {
	return models.Message{
		ID:        uuid.New(),
		SenderID:  sender,
		Text:      text,
		CreatedAt: at,
		ReadAt:    readAt,
	}
}

func ts(sec int) time.Time {
	return time.Date(2024, 3, 1, 12, 0, sec, 0, time.UTC)
}

func tsp(sec int) *time.Time {
	t := ts(sec)
	return &t
}

func TestDeriveEmpty(t *testing.T) {
	d := Derive(nil, self)
	assert.Zero(t, d.UnreadCount)
	assert.Nil(t, d.LastRead)
}

func TestDeriveAllFromSelf(t *testing.T) {
	msgs := []models.Message{
		msg(self, "one", ts(1), nil),
		msg(self, "two", ts(2), nil),
	}
	d := Derive(msgs, self)
	assert.Zero(t, d.UnreadCount)
	assert.Nil(t, d.LastRead)
}

func TestDeriveCountsPeerUnread(t *testing.T) {
	msgs := []models.Message{
		msg(peer, "hey", ts(1), tsp(2)),
		msg(self, "hi", ts(3), nil),
		msg(peer, "how are you", ts(4), nil),
		msg(peer, "hello?", ts(5), nil),
	}
	d := Derive(msgs, self)
	assert.Equal(t, 2, d.UnreadCount)
	assert.Nil(t, d.LastRead)
}

func TestDeriveLastRead(t *testing.T) {
	msgs := []models.Message{
		msg(self, "hi", ts(1), tsp(2)),
		msg(self, "still there?", ts(3), tsp(4)),
		msg(peer, "yes", ts(5), nil),
		msg(self, "good", ts(6), nil),
	}
	d := Derive(msgs, self)
	assert.Equal(t, 1, d.UnreadCount)
	require.NotNil(t, d.LastRead)
	assert.Equal(t, "still there?", d.LastRead.Text)
}

func TestDeriveContiguousMatchesFullCount(t *testing.T) {
	// sequences satisfying the contiguous-unread invariant
	cases := map[string][]models.Message{
		"empty": nil,
		"all read": {
			msg(peer, "a", ts(1), tsp(2)),
			msg(peer, "b", ts(3), tsp(4)),
		},
		"unread suffix": {
			msg(peer, "a", ts(1), tsp(2)),
			msg(self, "b", ts(3), tsp(4)),
			msg(peer, "c", ts(5), nil),
			msg(peer, "d", ts(6), nil),
		},
		"interleaved self": {
			msg(peer, "a", ts(1), tsp(2)),
			msg(peer, "b", ts(3), tsp(4)),
			msg(self, "c", ts(5), nil),
			msg(peer, "d", ts(6), nil),
		},
	}
	for name, msgs := range cases {
		t.Run(name, func(t *testing.T) {
			full := Derive(msgs, self)
			fast := DeriveContiguous(msgs, self)
			assert.Equal(t, full.UnreadCount, fast.UnreadCount)
			assert.Equal(t, full.LastRead, fast.LastRead)
		})
	}
}

func TestDeriveSurvivesBrokenInvariant(t *testing.T) {
	// a read message newer than an unread one from the same sender: bad
	// persisted data, the full scan must still count exactly
	msgs := []models.Message{
		msg(peer, "a", ts(1), nil),
		msg(peer, "b", ts(2), tsp(3)),
		msg(peer, "c", ts(4), nil),
	}
	d := Derive(msgs, self)
	assert.Equal(t, 2, d.UnreadCount)

	// the short-circuit variant undercounts here, which is why it is
	// reserved for self-normalized sequences
	assert.Equal(t, 1, DeriveContiguous(msgs, self).UnreadCount)
}

func TestMarkAllRead(t *testing.T) {
	msgs := []models.Message{
		msg(peer, "a", ts(1), tsp(2)),
		msg(self, "b", ts(3), nil),
		msg(peer, "c", ts(4), nil),
		msg(peer, "d", ts(5), nil),
	}
	now := ts(10)
	changed := MarkAllRead(msgs, self, now)
	assert.Equal(t, 2, changed)
	assert.Zero(t, Derive(msgs, self).UnreadCount)

	// own messages stay untouched
	assert.Nil(t, msgs[1].ReadAt)
	// existing timestamps never move
	assert.Equal(t, ts(2), *msgs[0].ReadAt)
	assert.Equal(t, now, *msgs[2].ReadAt)
	assert.Equal(t, now, *msgs[3].ReadAt)
}

func TestMarkAllReadIdempotent(t *testing.T) {
	msgs := []models.Message{
		msg(peer, "a", ts(1), nil),
		msg(peer, "b", ts(2), nil),
	}
	require.Equal(t, 2, MarkAllRead(msgs, self, ts(5)))
	first := *msgs[0].ReadAt

	assert.Zero(t, MarkAllRead(msgs, self, ts(9)))
	assert.Equal(t, first, *msgs[0].ReadAt)
	assert.Zero(t, Derive(msgs, self).UnreadCount)
}
