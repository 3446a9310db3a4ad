package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
)

// --- InstanceRepo Mock ---

// InstanceRepoMock mocks the InstanceRepo interface
type InstanceRepoMock struct {
	mock.Mock
}

// FindByToken mocks the FindByToken method
func (m *InstanceRepoMock) FindByToken(ctx context.Context, token string) (*model.Instance, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Instance), args.Error(1)
}

// FindSole mocks the FindSole method
func (m *InstanceRepoMock) FindSole(ctx context.Context) (*model.Instance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Instance), args.Error(1)
}

// UpdateConnection mocks the UpdateConnection method
func (m *InstanceRepoMock) UpdateConnection(ctx context.Context, id, status, phone string) error {
	args := m.Called(ctx, id, status, phone)
	return args.Error(0)
}

// TouchLastSeen mocks the TouchLastSeen method
func (m *InstanceRepoMock) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// Close mocks the Close method
func (m *InstanceRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ContactRepo Mock ---

// ContactRepoMock mocks the ContactRepo interface
type ContactRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *ContactRepoMock) Save(ctx context.Context, contact model.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

// FindByPhone mocks the FindByPhone method
func (m *ContactRepoMock) FindByPhone(ctx context.Context, phone string) (*model.Contact, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

// UpdateAvatar mocks the UpdateAvatar method
func (m *ContactRepoMock) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	args := m.Called(ctx, id, avatarURL)
	return args.Error(0)
}

// TouchLastMessage mocks the TouchLastMessage method
func (m *ContactRepoMock) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// Close mocks the Close method
func (m *ContactRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MessageRepo Mock ---

// MessageRepoMock mocks the MessageRepo interface
type MessageRepoMock struct {
	mock.Mock
}

// ExistsByExternalID mocks the ExistsByExternalID method
func (m *MessageRepoMock) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	args := m.Called(ctx, externalID)
	return args.Bool(0), args.Error(1)
}

// Insert mocks the Insert method
func (m *MessageRepoMock) Insert(ctx context.Context, message model.Message) (bool, error) {
	args := m.Called(ctx, message)
	return args.Bool(0), args.Error(1)
}

// UpdateStatus mocks the UpdateStatus method
func (m *MessageRepoMock) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// Close mocks the Close method
func (m *MessageRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- CampaignRepo Mock ---

// CampaignRepoMock mocks the CampaignRepo interface
type CampaignRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *CampaignRepoMock) Save(ctx context.Context, campaign model.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

// SaveParts mocks the SaveParts method
func (m *CampaignRepoMock) SaveParts(ctx context.Context, messages []model.CampaignMessage, recipients []model.CampaignRecipient) error {
	args := m.Called(ctx, messages, recipients)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *CampaignRepoMock) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

// UpdateStatus mocks the UpdateStatus method
func (m *CampaignRepoMock) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// StoreJob mocks the StoreJob method
func (m *CampaignRepoMock) StoreJob(ctx context.Context, id, jobID, status string) error {
	args := m.Called(ctx, id, jobID, status)
	return args.Error(0)
}

// ApplyProgress mocks the ApplyProgress method
func (m *CampaignRepoMock) ApplyProgress(ctx context.Context, id, status string, sentCount, failedCount int) error {
	args := m.Called(ctx, id, status, sentCount, failedCount)
	return args.Error(0)
}

// Delete mocks the Delete method
func (m *CampaignRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// FindActive mocks the FindActive method
func (m *CampaignRepoMock) FindActive(ctx context.Context) ([]model.Campaign, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Campaign), args.Error(1)
}

// Close mocks the Close method
func (m *CampaignRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
