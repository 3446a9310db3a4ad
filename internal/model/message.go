package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SenderUser    = "user"
	SenderContact = "contact"
	SenderSystem  = "system"
)

const (
	MessageStatusSending  = "sending"
	MessageStatusSent     = "sent"
	MessageStatusReceived = "received"
	MessageStatusFailed   = "failed"
)

// Message represents a chat message belonging to one contact. ExternalID is
// the gateway's message identifier and doubles as the dedup key: at most one
// message exists per non-null external id, enforced by a partial unique
// index plus an ON CONFLICT DO NOTHING insert.
type Message struct {
	ID         string         `json:"id" gorm:"primaryKey;type:text"`
	OrgID      string         `json:"org_id" gorm:"column:org_id;index;type:text" validate:"required"`
	ContactID  string         `json:"contact_id" gorm:"column:contact_id;index;type:text" validate:"required"`
	InstanceID string         `json:"instance_id,omitempty" gorm:"column:instance_id;type:text"`
	Sender     string         `json:"sender" gorm:"type:text" validate:"required,oneof=user contact system"`
	Body       string         `json:"body,omitempty" gorm:"type:text"`
	MediaURL   *string        `json:"media_url,omitempty" gorm:"column:media_url;type:text"`
	MediaType  *string        `json:"media_type,omitempty" gorm:"column:media_type;type:text"`
	Status     string         `json:"status,omitempty" gorm:"type:text"` // sending, sent, received, failed
	ExternalID *string        `json:"external_id,omitempty" gorm:"column:external_id;type:text"`
	Payload    datatypes.JSON `json:"payload,omitempty" gorm:"type:jsonb;column:payload"` // raw inbound event for audit
	CreatedAt  time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Message model.
func (Message) TableName() string {
	return "messages"
}

// MessageUpdatableFields returns the columns mutable after insert. Messages
// are immutable apart from delivery status transitions.
func MessageUpdatableFields() []string {
	return []string{"status", "updated_at"}
}
