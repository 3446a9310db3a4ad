package storage

import (
	"context"
	"time"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
)

// InstanceRepoAdapter adapts the PostgresRepo to the InstanceRepo interface
type InstanceRepoAdapter struct {
	postgres *PostgresRepo
}

// NewInstanceRepoAdapter creates a new instance repository adapter
func NewInstanceRepoAdapter(postgres *PostgresRepo) InstanceRepo {
	return &InstanceRepoAdapter{postgres: postgres}
}

func (a *InstanceRepoAdapter) FindByToken(ctx context.Context, token string) (*model.Instance, error) {
	return a.postgres.FindInstanceByToken(ctx, token)
}

func (a *InstanceRepoAdapter) FindSole(ctx context.Context) (*model.Instance, error) {
	return a.postgres.FindSoleInstance(ctx)
}

func (a *InstanceRepoAdapter) UpdateConnection(ctx context.Context, id, status, phone string) error {
	return a.postgres.UpdateInstanceConnection(ctx, id, status, phone)
}

func (a *InstanceRepoAdapter) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	return a.postgres.TouchInstanceLastSeen(ctx, id, at)
}

func (a *InstanceRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// ContactRepoAdapter adapts the PostgresRepo to the ContactRepo interface
type ContactRepoAdapter struct {
	postgres *PostgresRepo
}

// NewContactRepoAdapter creates a new contact repository adapter
func NewContactRepoAdapter(postgres *PostgresRepo) ContactRepo {
	return &ContactRepoAdapter{postgres: postgres}
}

// Save saves a contact
func (a *ContactRepoAdapter) Save(ctx context.Context, contact model.Contact) error {
	return a.postgres.SaveContact(ctx, contact)
}

// FindByPhone finds a contact by normalized phone
func (a *ContactRepoAdapter) FindByPhone(ctx context.Context, phone string) (*model.Contact, error) {
	return a.postgres.FindContactByPhone(ctx, phone)
}

func (a *ContactRepoAdapter) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	return a.postgres.UpdateContactAvatar(ctx, id, avatarURL)
}

func (a *ContactRepoAdapter) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	return a.postgres.TouchContactLastMessage(ctx, id, at)
}

func (a *ContactRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// MessageRepoAdapter adapts the PostgresRepo to the MessageRepo interface
type MessageRepoAdapter struct {
	postgres *PostgresRepo
}

// NewMessageRepoAdapter creates a new message repository adapter
func NewMessageRepoAdapter(postgres *PostgresRepo) MessageRepo {
	return &MessageRepoAdapter{postgres: postgres}
}

func (a *MessageRepoAdapter) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	return a.postgres.MessageExistsByExternalID(ctx, externalID)
}

// Insert persists a message, reporting whether a row was actually written
func (a *MessageRepoAdapter) Insert(ctx context.Context, message model.Message) (bool, error) {
	return a.postgres.InsertMessage(ctx, message)
}

func (a *MessageRepoAdapter) UpdateStatus(ctx context.Context, id, status string) error {
	return a.postgres.UpdateMessageStatus(ctx, id, status)
}

func (a *MessageRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// CampaignRepoAdapter adapts the PostgresRepo to the CampaignRepo interface
type CampaignRepoAdapter struct {
	postgres *PostgresRepo
}

// NewCampaignRepoAdapter creates a new campaign repository adapter
func NewCampaignRepoAdapter(postgres *PostgresRepo) CampaignRepo {
	return &CampaignRepoAdapter{postgres: postgres}
}

func (a *CampaignRepoAdapter) Save(ctx context.Context, campaign model.Campaign) error {
	return a.postgres.SaveCampaign(ctx, campaign)
}

func (a *CampaignRepoAdapter) SaveParts(ctx context.Context, messages []model.CampaignMessage, recipients []model.CampaignRecipient) error {
	return a.postgres.SaveCampaignParts(ctx, messages, recipients)
}

func (a *CampaignRepoAdapter) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	return a.postgres.FindCampaignByID(ctx, id)
}

func (a *CampaignRepoAdapter) UpdateStatus(ctx context.Context, id, status string) error {
	return a.postgres.UpdateCampaignStatus(ctx, id, status)
}

func (a *CampaignRepoAdapter) StoreJob(ctx context.Context, id, jobID, status string) error {
	return a.postgres.StoreCampaignJob(ctx, id, jobID, status)
}

func (a *CampaignRepoAdapter) ApplyProgress(ctx context.Context, id, status string, sentCount, failedCount int) error {
	return a.postgres.ApplyCampaignProgress(ctx, id, status, sentCount, failedCount)
}

func (a *CampaignRepoAdapter) Delete(ctx context.Context, id string) error {
	return a.postgres.DeleteCampaign(ctx, id)
}

func (a *CampaignRepoAdapter) FindActive(ctx context.Context) ([]model.Campaign, error) {
	return a.postgres.FindActiveCampaigns(ctx)
}

func (a *CampaignRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}
