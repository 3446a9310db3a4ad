package model

import (
	"time"
)

const (
	ContactStatusOpen   = "open"
	ContactStatusClosed = "closed"
)

// Contact represents a contact in the PostgreSQL database. Identity is keyed
// by the normalized phone number within an organization; duplicates are
// prevented by the resolution order in the ingest service, not by a hard
// uniqueness constraint.
type Contact struct {
	ID            string     `json:"id" gorm:"primaryKey;type:text"`
	OrgID         string     `json:"org_id" gorm:"column:org_id;index;type:text" validate:"required"`
	Phone         string     `json:"phone" gorm:"index;type:text" validate:"required"`
	Name          string     `json:"name,omitempty" gorm:"type:text"`
	AvatarURL     string     `json:"avatar_url,omitempty" gorm:"column:avatar_url;type:text"`
	Tags          string     `json:"tags,omitempty" gorm:"type:text"`                // comma-separated free-form tags
	Status        string     `json:"status,omitempty" gorm:"type:text;default:open"` // open or closed
	AssignedTo    string     `json:"assigned_to,omitempty" gorm:"index;type:text"`   // owning user ID (optional)
	LastMessageAt *time.Time `json:"last_message_at,omitempty" gorm:"column:last_message_at"`
	CreatedAt     time.Time  `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Contact model.
func (Contact) TableName() string {
	return "contacts"
}

// ContactUpdateColumns returns the columns refreshed opportunistically on
// inbound events.
func ContactUpdateColumns() []string {
	return []string{"avatar_url", "last_message_at", "updated_at"}
}
