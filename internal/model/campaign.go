package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusSending   = "sending"
	CampaignStatusPaused    = "paused"
	CampaignStatusDone      = "done"
	CampaignStatusDeleting  = "deleting"
)

// Campaign template part kinds accepted by the gateway batch format.
const (
	CampaignPartText     = "text"
	CampaignPartButtons  = "buttons"
	CampaignPartListMenu = "list"
	CampaignPartDocument = "document"
	CampaignPartCarousel = "carousel"
)

// Campaign represents a mass-send operation tracked locally and mirrored by
// an opaque external job id at the gateway. TotalContacts is snapshotted at
// submission; sent/failed counts are merged in by reconciliation.
// Invariant: SentCount + FailedCount <= TotalContacts.
type Campaign struct {
	ID            string     `json:"id" gorm:"primaryKey;type:text"`
	OrgID         string     `json:"org_id" gorm:"column:org_id;index;type:text" validate:"required"`
	Name          string     `json:"name" gorm:"type:text" validate:"required"`
	Status        string     `json:"status,omitempty" gorm:"index;type:text;default:draft"`
	TotalContacts int        `json:"total_contacts" gorm:"column:total_contacts"`
	SentCount     int        `json:"sent_count" gorm:"column:sent_count"`
	FailedCount   int        `json:"failed_count" gorm:"column:failed_count"`
	ExternalJobID *string    `json:"external_job_id,omitempty" gorm:"column:external_job_id;type:text"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty" gorm:"column:scheduled_at"`
	CreatedAt     time.Time  `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Campaign model.
func (Campaign) TableName() string {
	return "campaigns"
}

// IsActive reports whether the campaign is in a state the reconciler polls.
func (c *Campaign) IsActive() bool {
	return c.Status == CampaignStatusSending || c.Status == CampaignStatusScheduled
}

// CampaignProgressColumns returns the columns mutated by reconciliation.
func CampaignProgressColumns() []string {
	return []string{"status", "sent_count", "failed_count", "updated_at"}
}

// CampaignMessage is an ordered template part recorded for audit. Dispatch
// batches are computed fresh from contacts at creation time, not from these
// rows.
type CampaignMessage struct {
	ID         string         `json:"id" gorm:"primaryKey;type:text"`
	CampaignID string         `json:"campaign_id" gorm:"column:campaign_id;index;type:text"`
	Position   int            `json:"position" gorm:"column:position"`
	Kind       string         `json:"kind" gorm:"type:text"` // text, buttons, list, document, carousel
	Body       string         `json:"body,omitempty" gorm:"type:text"`
	Payload    datatypes.JSON `json:"payload,omitempty" gorm:"type:jsonb;column:payload"` // kind-specific content
	CreatedAt  time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the CampaignMessage model.
func (CampaignMessage) TableName() string {
	return "campaign_messages"
}

// CampaignRecipient is a per-recipient target recorded for audit.
type CampaignRecipient struct {
	ID         string    `json:"id" gorm:"primaryKey;type:text"`
	CampaignID string    `json:"campaign_id" gorm:"column:campaign_id;index;type:text"`
	Phone      string    `json:"phone" gorm:"type:text"`
	Name       string    `json:"name,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the CampaignRecipient model.
func (CampaignRecipient) TableName() string {
	return "campaign_recipients"
}
