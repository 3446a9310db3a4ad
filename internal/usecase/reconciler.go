package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/observer"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/storage"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/utils"
)

// ReconcileResult is the outcome of merging one gateway snapshot into a
// campaign.
type ReconcileResult struct {
	Changed     bool
	Status      string
	SentCount   int
	FailedCount int
}

// MergeSnapshot computes the reconciled state for one campaign. Pure: safe
// to call concurrently across campaigns. gatewayEmpty means the gateway has
// no record of the job yet.
//
// Rules, in order: an empty snapshot on a past-due scheduled campaign
// advances it to sending; otherwise the gateway status maps 1:1 onto the
// local enum; and whenever sent+failed reaches the recipient total the
// campaign is done regardless of what the gateway label says.
func MergeSnapshot(campaign *model.Campaign, snapshot gateway.StatusSnapshot, gatewayEmpty bool, now time.Time) ReconcileResult {
	result := ReconcileResult{
		Status:      campaign.Status,
		SentCount:   campaign.SentCount,
		FailedCount: campaign.FailedCount,
	}

	if gatewayEmpty {
		if campaign.Status == model.CampaignStatusScheduled &&
			campaign.ScheduledAt != nil && !campaign.ScheduledAt.After(now) {
			result.Status = model.CampaignStatusSending
		}
	} else {
		if mapped := mapGatewayStatus(snapshot.Status); mapped != "" {
			result.Status = mapped
		}
		result.SentCount = snapshot.SentCount
		result.FailedCount = snapshot.FailedCount
	}

	if campaign.TotalContacts > 0 && result.SentCount+result.FailedCount >= campaign.TotalContacts {
		result.Status = model.CampaignStatusDone
	}

	result.Changed = result.Status != campaign.Status ||
		result.SentCount != campaign.SentCount ||
		result.FailedCount != campaign.FailedCount
	return result
}

// mapGatewayStatus maps the gateway's status vocabulary onto the local enum.
func mapGatewayStatus(status string) string {
	switch status {
	case "scheduled":
		return model.CampaignStatusScheduled
	case "sending":
		return model.CampaignStatusSending
	case "paused":
		return model.CampaignStatusPaused
	case "done":
		return model.CampaignStatusDone
	default:
		return ""
	}
}

// Reconciler polls the gateway for campaign progress and merges it into
// local state. Concurrency across campaigns is safe; the poller holds a
// per-campaign lock before calling ReconcileCampaign so the same campaign
// never reconciles twice at once.
type Reconciler struct {
	campaignRepo storage.CampaignRepo
	instanceRepo storage.InstanceRepo
	gateway      gateway.Client
}

// NewReconciler creates a reconciler.
func NewReconciler(campaignRepo storage.CampaignRepo, instanceRepo storage.InstanceRepo, gatewayClient gateway.Client) *Reconciler {
	return &Reconciler{
		campaignRepo: campaignRepo,
		instanceRepo: instanceRepo,
		gateway:      gatewayClient,
	}
}

// ActiveCampaigns lists the campaigns worth polling.
func (r *Reconciler) ActiveCampaigns(ctx context.Context) ([]model.Campaign, error) {
	return r.campaignRepo.FindActive(ctx)
}

// ReconcileCampaign fetches the gateway snapshot for one campaign and
// persists the merged state when it changed. Errors are logged and counted
// but never propagated: one bad campaign must not stall the polling loop.
func (r *Reconciler) ReconcileCampaign(ctx context.Context, campaign model.Campaign) ReconcileResult {
	orgID, _ := tenant.FromContext(ctx)
	log := logger.FromContext(ctx).With(zap.String("campaign_id", campaign.ID))

	if campaign.ExternalJobID == nil {
		observer.IncReconcileRun(orgID, "skipped")
		return ReconcileResult{Status: campaign.Status}
	}

	instance, err := r.instanceRepo.FindSole(ctx)
	if err != nil {
		observer.IncReconcileRun(orgID, "error")
		log.Warn("Reconcile skipped, no usable instance", zap.Error(err))
		return ReconcileResult{Status: campaign.Status}
	}

	snapshot, err := r.gateway.GetCampaignStatus(ctx, instance.Token, *campaign.ExternalJobID)
	gatewayEmpty := false
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			observer.IncReconcileRun(orgID, "error")
			log.Warn("Reconcile skipped, gateway status unavailable", zap.Error(err))
			return ReconcileResult{Status: campaign.Status}
		}
		gatewayEmpty = true
	}

	result := MergeSnapshot(&campaign, snapshot, gatewayEmpty, utils.Now())
	if !result.Changed {
		observer.IncReconcileRun(orgID, "unchanged")
		return result
	}

	if err := r.campaignRepo.ApplyProgress(ctx, campaign.ID, result.Status, result.SentCount, result.FailedCount); err != nil {
		observer.IncReconcileRun(orgID, "error")
		log.Error("Failed to persist reconciled campaign state", zap.Error(err))
		return result
	}

	observer.IncReconcileRun(orgID, "updated")
	log.Info("Reconciled campaign",
		zap.String("status", result.Status),
		zap.Int("sent", result.SentCount),
		zap.Int("failed", result.FailedCount))
	return result
}
