package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/config"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway"
	gatewaymock "gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway/mock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	storagemock "gitlab.com/astradesk/api/wa-campaign-bridge/internal/storage/mock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/usecase"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
)

// fakeGuard tracks acquisitions in memory.
type fakeGuard struct {
	mu   sync.Mutex
	held map[string]bool
	deny bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{held: map[string]bool{}}
}

func (g *fakeGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deny || g.held[key] {
		return nil, false, nil
	}
	g.held[key] = true
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.held, key)
	}, true, nil
}

func TestPoller_TickReconcilesActiveCampaigns(t *testing.T) {
	logger.Log = zaptest.NewLogger(t).Named("test")

	campaignRepo := new(storagemock.CampaignRepoMock)
	instanceRepo := new(storagemock.InstanceRepoMock)
	gatewayClient := new(gatewaymock.ClientMock)
	reconciler := usecase.NewReconciler(campaignRepo, instanceRepo, gatewayClient)

	jobID := "job-1"
	active := []model.Campaign{{
		ID:            "campaign-1",
		Status:        model.CampaignStatusSending,
		TotalContacts: 3,
		ExternalJobID: &jobID,
	}}

	campaignRepo.On("FindActive", testifymock.Anything).Return(active, nil)
	instanceRepo.On("FindSole", testifymock.Anything).
		Return(&model.Instance{ID: "instance-1", OrgID: "org-1", Token: "token-1"}, nil)
	gatewayClient.On("GetCampaignStatus", testifymock.Anything, "token-1", "job-1").
		Return(gateway.StatusSnapshot{Status: "sending", SentCount: 2, FailedCount: 1}, nil)
	campaignRepo.On("ApplyProgress", testifymock.Anything, "campaign-1", model.CampaignStatusDone, 2, 1).Return(nil)

	p, err := New(reconciler, newFakeGuard(), "org-1", config.PollerConfig{
		Interval: 10 * time.Millisecond,
		PoolSize: 2,
		LockTTL:  time.Second,
	})
	require.NoError(t, err)

	p.tick(context.Background())

	campaignRepo.AssertExpectations(t)
	gatewayClient.AssertExpectations(t)
}

func TestPoller_LockDeniedSkipsCampaign(t *testing.T) {
	logger.Log = zaptest.NewLogger(t).Named("test")

	campaignRepo := new(storagemock.CampaignRepoMock)
	instanceRepo := new(storagemock.InstanceRepoMock)
	gatewayClient := new(gatewaymock.ClientMock)
	reconciler := usecase.NewReconciler(campaignRepo, instanceRepo, gatewayClient)

	jobID := "job-1"
	campaignRepo.On("FindActive", testifymock.Anything).Return([]model.Campaign{{
		ID:            "campaign-1",
		Status:        model.CampaignStatusSending,
		ExternalJobID: &jobID,
	}}, nil)

	guard := newFakeGuard()
	guard.deny = true

	p, err := New(reconciler, guard, "org-1", config.PollerConfig{
		Interval: 10 * time.Millisecond,
		PoolSize: 2,
		LockTTL:  time.Second,
	})
	require.NoError(t, err)

	p.tick(context.Background())

	gatewayClient.AssertNotCalled(t, "GetCampaignStatus", testifymock.Anything, testifymock.Anything, testifymock.Anything)
}

func TestPoller_StartStop(t *testing.T) {
	logger.Log = zaptest.NewLogger(t).Named("test")

	campaignRepo := new(storagemock.CampaignRepoMock)
	instanceRepo := new(storagemock.InstanceRepoMock)
	gatewayClient := new(gatewaymock.ClientMock)
	reconciler := usecase.NewReconciler(campaignRepo, instanceRepo, gatewayClient)

	campaignRepo.On("FindActive", testifymock.Anything).Return([]model.Campaign{}, nil).Maybe()

	p, err := New(reconciler, newFakeGuard(), "org-1", config.PollerConfig{
		Interval: 5 * time.Millisecond,
		PoolSize: 1,
		LockTTL:  time.Second,
	})
	require.NoError(t, err)

	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	// Stop again is a no-op.
	assert.NotPanics(t, p.Stop)
}
