package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway"
)

// ClientMock mocks the gateway.Client interface
type ClientMock struct {
	mock.Mock
}

// SendText mocks the SendText method
func (m *ClientMock) SendText(ctx context.Context, token, phone, body string) (string, error) {
	args := m.Called(ctx, token, phone, body)
	return args.String(0), args.Error(1)
}

// DownloadMedia mocks the DownloadMedia method
func (m *ClientMock) DownloadMedia(ctx context.Context, token, messageID string) (string, string, error) {
	args := m.Called(ctx, token, messageID)
	return args.String(0), args.String(1), args.Error(2)
}

// CreateCampaign mocks the CreateCampaign method
func (m *ClientMock) CreateCampaign(ctx context.Context, token string, req gateway.CreateCampaignRequest) (string, error) {
	args := m.Called(ctx, token, req)
	return args.String(0), args.Error(1)
}

// ControlCampaign mocks the ControlCampaign method
func (m *ClientMock) ControlCampaign(ctx context.Context, token, jobID, action string) error {
	args := m.Called(ctx, token, jobID, action)
	return args.Error(0)
}

// GetCampaignStatus mocks the GetCampaignStatus method
func (m *ClientMock) GetCampaignStatus(ctx context.Context, token, jobID string) (gateway.StatusSnapshot, error) {
	args := m.Called(ctx, token, jobID)
	return args.Get(0).(gateway.StatusSnapshot), args.Error(1)
}
