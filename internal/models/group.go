package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Group and GroupMember exist in the schema for group conversations but are
// not touched by the direct-message flow. Conversations may reference a
// group; two-party conversations leave GroupID nil.
type Group struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	ImageURL    string         `json:"imageUrl"`
	OwnerID     uuid.UUID      `gorm:"type:uuid;index" json:"ownerId"`
	Settings    datatypes.JSON `json:"settings"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner   *User         `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}

type GroupMember struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GroupID uuid.UUID `gorm:"type:uuid;index" json:"groupId"`
	UserID  uuid.UUID `gorm:"type:uuid;index" json:"userId"`

	CreatedAt time.Time `json:"created_at"`
}
