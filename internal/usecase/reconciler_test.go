package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway"
	gatewaymock "gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway/mock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	storagemock "gitlab.com/astradesk/api/wa-campaign-bridge/internal/storage/mock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
)

func TestMergeSnapshot(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	past := now.Add(-5 * time.Minute)
	future := now.Add(30 * time.Minute)

	testCases := []struct {
		name         string
		campaign     model.Campaign
		snapshot     gateway.StatusSnapshot
		gatewayEmpty bool
		expected     ReconcileResult
	}{
		{
			name:         "empty snapshot on past-due scheduled advances to sending",
			campaign:     model.Campaign{Status: model.CampaignStatusScheduled, TotalContacts: 5, ScheduledAt: &past},
			gatewayEmpty: true,
			expected:     ReconcileResult{Changed: true, Status: model.CampaignStatusSending},
		},
		{
			name:         "empty snapshot on future schedule stays put",
			campaign:     model.Campaign{Status: model.CampaignStatusScheduled, TotalContacts: 5, ScheduledAt: &future},
			gatewayEmpty: true,
			expected:     ReconcileResult{Changed: false, Status: model.CampaignStatusScheduled},
		},
		{
			name:     "gateway status maps one to one",
			campaign: model.Campaign{Status: model.CampaignStatusScheduled, TotalContacts: 5},
			snapshot: gateway.StatusSnapshot{Status: "sending", SentCount: 2},
			expected: ReconcileResult{Changed: true, Status: model.CampaignStatusSending, SentCount: 2},
		},
		{
			name:     "count override forces done over gateway label",
			campaign: model.Campaign{Status: model.CampaignStatusSending, TotalContacts: 3},
			snapshot: gateway.StatusSnapshot{Status: "sending", SentCount: 2, FailedCount: 1},
			expected: ReconcileResult{Changed: true, Status: model.CampaignStatusDone, SentCount: 2, FailedCount: 1},
		},
		{
			name:     "identical snapshot reports no change",
			campaign: model.Campaign{Status: model.CampaignStatusSending, TotalContacts: 5, SentCount: 2, FailedCount: 1},
			snapshot: gateway.StatusSnapshot{Status: "sending", SentCount: 2, FailedCount: 1},
			expected: ReconcileResult{Changed: false, Status: model.CampaignStatusSending, SentCount: 2, FailedCount: 1},
		},
		{
			name:     "unknown gateway vocabulary keeps local status",
			campaign: model.Campaign{Status: model.CampaignStatusSending, TotalContacts: 5},
			snapshot: gateway.StatusSnapshot{Status: "mystery", SentCount: 1},
			expected: ReconcileResult{Changed: true, Status: model.CampaignStatusSending, SentCount: 1},
		},
		{
			name:     "zero total contacts never force-completes",
			campaign: model.Campaign{Status: model.CampaignStatusSending, TotalContacts: 0},
			snapshot: gateway.StatusSnapshot{Status: "sending"},
			expected: ReconcileResult{Changed: false, Status: model.CampaignStatusSending},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			campaign := tc.campaign
			result := MergeSnapshot(&campaign, tc.snapshot, tc.gatewayEmpty, now)
			assert.Equal(t, tc.expected, result)
		})
	}
}

type reconcilerFixture struct {
	reconciler   *Reconciler
	campaignRepo *storagemock.CampaignRepoMock
	instanceRepo *storagemock.InstanceRepoMock
	gateway      *gatewaymock.ClientMock
}

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	logger.Log = zaptest.NewLogger(t).Named("test")
	f := &reconcilerFixture{
		campaignRepo: new(storagemock.CampaignRepoMock),
		instanceRepo: new(storagemock.InstanceRepoMock),
		gateway:      new(gatewaymock.ClientMock),
	}
	f.reconciler = NewReconciler(f.campaignRepo, f.instanceRepo, f.gateway)
	return f
}

// Scenario: total_contacts=3, gateway reports sent=2 failed=1, status done.
func TestReconcileCampaign_CompletionByCounts(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := ingestCtx()
	jobID := "job-1"

	campaign := model.NewCampaign(&model.Campaign{
		ID:            "campaign-1",
		OrgID:         testOrgID,
		Status:        model.CampaignStatusSending,
		TotalContacts: 3,
		ExternalJobID: &jobID,
	})

	f.instanceRepo.On("FindSole", testifymock.Anything).Return(testInstance(), nil)
	f.gateway.On("GetCampaignStatus", testifymock.Anything, "token-1", "job-1").
		Return(gateway.StatusSnapshot{Status: "sending", SentCount: 2, FailedCount: 1}, nil)
	f.campaignRepo.On("ApplyProgress", testifymock.Anything, "campaign-1", model.CampaignStatusDone, 2, 1).Return(nil)

	result := f.reconciler.ReconcileCampaign(ctx, *campaign)
	require.True(t, result.Changed)
	assert.Equal(t, model.CampaignStatusDone, result.Status)
	f.campaignRepo.AssertExpectations(t)
}

func TestReconcileCampaign_UnchangedSkipsWrite(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := ingestCtx()
	jobID := "job-1"

	campaign := model.Campaign{
		ID:            "campaign-1",
		Status:        model.CampaignStatusSending,
		TotalContacts: 10,
		SentCount:     4,
		ExternalJobID: &jobID,
	}

	f.instanceRepo.On("FindSole", testifymock.Anything).Return(testInstance(), nil)
	f.gateway.On("GetCampaignStatus", testifymock.Anything, "token-1", "job-1").
		Return(gateway.StatusSnapshot{Status: "sending", SentCount: 4}, nil)

	result := f.reconciler.ReconcileCampaign(ctx, campaign)
	assert.False(t, result.Changed)
	f.campaignRepo.AssertNotCalled(t, "ApplyProgress", testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything)
}

func TestReconcileCampaign_GatewayEmptyAdvancesPastDue(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := ingestCtx()
	jobID := "job-1"
	past := time.Now().UTC().Add(-time.Minute)

	campaign := model.Campaign{
		ID:            "campaign-1",
		Status:        model.CampaignStatusScheduled,
		TotalContacts: 10,
		ScheduledAt:   &past,
		ExternalJobID: &jobID,
	}

	f.instanceRepo.On("FindSole", testifymock.Anything).Return(testInstance(), nil)
	f.gateway.On("GetCampaignStatus", testifymock.Anything, "token-1", "job-1").
		Return(gateway.StatusSnapshot{}, apperrors.ErrNotFound)
	f.campaignRepo.On("ApplyProgress", testifymock.Anything, "campaign-1", model.CampaignStatusSending, 0, 0).Return(nil)

	result := f.reconciler.ReconcileCampaign(ctx, campaign)
	assert.True(t, result.Changed)
	assert.Equal(t, model.CampaignStatusSending, result.Status)
}

func TestReconcileCampaign_NoJobIsSkipped(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := ingestCtx()

	campaign := model.Campaign{ID: "campaign-1", Status: model.CampaignStatusScheduled}
	result := f.reconciler.ReconcileCampaign(ctx, campaign)
	assert.False(t, result.Changed)
	f.gateway.AssertNotCalled(t, "GetCampaignStatus", testifymock.Anything, testifymock.Anything, testifymock.Anything)
}
