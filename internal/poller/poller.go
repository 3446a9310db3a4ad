package poller

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/config"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/lock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/usecase"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
)

// Poller drives campaign reconciliation at a fixed cadence. Each tick lists
// active campaigns and reconciles them on a worker pool; a per-campaign lock
// keeps two pollers (or two replicas) from reconciling the same campaign at
// once.
type Poller struct {
	reconciler *usecase.Reconciler
	guard      lock.Guard
	orgID      string
	interval   time.Duration
	lockTTL    time.Duration

	pool     *ants.Pool
	stopChan chan struct{}
	doneChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// New creates a poller for one organization's campaigns.
func New(reconciler *usecase.Reconciler, guard lock.Guard, orgID string, cfg config.PollerConfig) (*Poller, error) {
	pool, err := ants.NewPool(cfg.PoolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	return &Poller{
		reconciler: reconciler,
		guard:      guard,
		orgID:      orgID,
		interval:   cfg.Interval,
		lockTTL:    cfg.LockTTL,
		pool:       pool,
	}, nil
}

// Start launches the polling loop. Safe to call once.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		logger.Log.Warn("Poller already running")
		return
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.doneChan = make(chan struct{})
	p.mu.Unlock()

	logger.Log.Info("Starting campaign reconciliation poller",
		zap.Duration("interval", p.interval),
		zap.Int("pool_size", p.pool.Cap()))

	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.doneChan)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick reconciles every active campaign once.
func (p *Poller) tick(ctx context.Context) {
	orgCtx := tenant.WithOrgID(ctx, p.orgID)

	campaigns, err := p.reconciler.ActiveCampaigns(orgCtx)
	if err != nil {
		logger.FromContext(orgCtx).Warn("Poller failed to list active campaigns", zap.Error(err))
		return
	}
	if len(campaigns) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, campaign := range campaigns {
		campaign := campaign
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			p.reconcileOne(orgCtx, campaign)
		})
		if submitErr != nil {
			wg.Done()
			logger.FromContext(orgCtx).Warn("Poller failed to submit reconcile task",
				zap.String("campaign_id", campaign.ID),
				zap.Error(submitErr))
		}
	}
	wg.Wait()
}

func (p *Poller) reconcileOne(ctx context.Context, campaign model.Campaign) {
	release, acquired, err := p.guard.Acquire(ctx, "campaign:"+campaign.ID, p.lockTTL)
	if err != nil {
		logger.FromContext(ctx).Warn("Reconcile lock unavailable",
			zap.String("campaign_id", campaign.ID),
			zap.Error(err))
		return
	}
	if !acquired {
		// Another worker is already on it.
		return
	}
	defer release()

	p.reconciler.ReconcileCampaign(ctx, campaign)
}

// Stop halts the loop and waits for in-flight reconciliations to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	<-p.doneChan
	p.pool.Release()
	logger.Log.Info("Campaign reconciliation poller stopped")
}
