package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the account row. Online status is never persisted; it lives in the
// presence registry and is attached to responses as a transient flag.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username string    `gorm:"uniqueIndex;not null" json:"username"`
	Email    string    `gorm:"uniqueIndex;not null" json:"email"`
	PhotoURL string    `json:"photoUrl"`

	Password string `gorm:"not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRef is the projection of a user embedded in conversation payloads and
// push events: just enough for the peer column, plus the live online flag.
type UserRef struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	PhotoURL string    `json:"photoUrl"`
	Online   bool      `json:"online"`
}

func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username, PhotoURL: u.PhotoURL}
}
