package storage

import (
	"context"
	"time"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
)

// InstanceRepo defines gateway instance storage operations
type InstanceRepo interface {
	FindByToken(ctx context.Context, token string) (*model.Instance, error)
	// FindSole returns the organization's only instance. It fails with
	// ErrNotFound when none exist and ErrConflict when more than one does,
	// so the token-absent fallback never guesses between instances.
	FindSole(ctx context.Context) (*model.Instance, error)
	UpdateConnection(ctx context.Context, id, status, phone string) error
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
	Close(ctx context.Context) error
}

// ContactRepo defines contact storage operations
type ContactRepo interface {
	Save(ctx context.Context, contact model.Contact) error
	FindByPhone(ctx context.Context, phone string) (*model.Contact, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
	Close(ctx context.Context) error
}

// MessageRepo defines message storage operations
type MessageRepo interface {
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	// Insert persists the message. When the message carries an external id
	// it inserts with ON CONFLICT DO NOTHING and reports inserted=false on
	// a dedup conflict, making redelivery an idempotent no-op.
	Insert(ctx context.Context, message model.Message) (bool, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Close(ctx context.Context) error
}

// CampaignRepo defines campaign storage operations
type CampaignRepo interface {
	Save(ctx context.Context, campaign model.Campaign) error
	SaveParts(ctx context.Context, messages []model.CampaignMessage, recipients []model.CampaignRecipient) error
	FindByID(ctx context.Context, id string) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, id, status string) error
	StoreJob(ctx context.Context, id, jobID, status string) error
	// ApplyProgress persists reconciled status and counters in one write.
	ApplyProgress(ctx context.Context, id, status string, sentCount, failedCount int) error
	Delete(ctx context.Context, id string) error
	// FindActive lists campaigns in the sending or scheduled state.
	FindActive(ctx context.Context) ([]model.Campaign, error)
	Close(ctx context.Context) error
}
