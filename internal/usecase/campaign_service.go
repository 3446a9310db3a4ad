package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/storage"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/validator"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/utils"
)

// scheduleThreshold decides scheduled vs immediate dispatch: a send time
// must be strictly later than now+threshold to count as scheduled.
const scheduleThreshold = 2 * time.Minute

// CampaignService drives the campaign state machine against the gateway:
// draft -> {scheduled|sending} -> {paused <-> sending} -> done, with any
// non-done state allowed to move to deleting.
type CampaignService struct {
	campaignRepo storage.CampaignRepo
	instanceRepo storage.InstanceRepo
	gateway      gateway.Client
	delayMin     int
	delayMax     int
}

// NewCampaignService creates a campaign lifecycle service. delayMin/delayMax
// bound the per-recipient dispatch delay window passed to the gateway.
func NewCampaignService(campaignRepo storage.CampaignRepo, instanceRepo storage.InstanceRepo, gatewayClient gateway.Client, delayMin, delayMax int) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
		instanceRepo: instanceRepo,
		gateway:      gatewayClient,
		delayMin:     delayMin,
		delayMax:     delayMax,
	}
}

// CreateCampaignInput is a campaign submission.
type CreateCampaignInput struct {
	Name        string         `json:"name" validate:"required"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	Recipients  []Recipient    `json:"recipients" validate:"min=1"`
	Parts       []TemplatePart `json:"parts" validate:"min=1"`
}

// Create persists the campaign, submits the dispatch batch to the gateway
// and commits the decided status. A send time more than two minutes out
// yields scheduled, anything else sending. On gateway rejection the campaign
// stays in draft and the downstream error text surfaces verbatim.
func (s *CampaignService) Create(ctx context.Context, instance *model.Instance, input CreateCampaignInput) (*model.Campaign, error) {
	if err := validator.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	now := utils.Now()
	targetStatus := model.CampaignStatusSending
	leadMinutes := 1
	if input.ScheduledAt != nil {
		if input.ScheduledAt.After(now.Add(scheduleThreshold)) {
			targetStatus = model.CampaignStatusScheduled
		}
		leadMinutes = utils.MinutesUntil(now, *input.ScheduledAt, 1)
	}

	campaign := model.Campaign{
		ID:            uuid.New().String(),
		Name:          input.Name,
		Status:        model.CampaignStatusDraft,
		TotalContacts: len(input.Recipients),
		ScheduledAt:   input.ScheduledAt,
	}
	if err := s.campaignRepo.Save(ctx, campaign); err != nil {
		return nil, err
	}
	if err := s.campaignRepo.SaveParts(ctx, partRows(campaign.ID, input.Parts), recipientRows(campaign.ID, input.Recipients)); err != nil {
		return nil, err
	}

	jobID, err := s.gateway.CreateCampaign(ctx, instance.Token, gateway.CreateCampaignRequest{
		DelayMin:    s.delayMin,
		DelayMax:    s.delayMax,
		Label:       input.Name,
		LeadMinutes: leadMinutes,
		Messages:    BuildBatch(input.Recipients, input.Parts),
	})
	if err != nil {
		// Campaign stays in draft; the caller sees the gateway's own words.
		logger.FromContext(ctx).Warn("Gateway rejected campaign",
			zap.String("campaign_id", campaign.ID),
			zap.Error(err))
		return nil, err
	}

	if err := s.campaignRepo.StoreJob(ctx, campaign.ID, jobID, targetStatus); err != nil {
		return nil, err
	}
	campaign.ExternalJobID = &jobID
	campaign.Status = targetStatus
	return &campaign, nil
}

// Pause stops a sending campaign at the gateway.
func (s *CampaignService) Pause(ctx context.Context, id string) error {
	campaign, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignStatusSending {
		return fmt.Errorf("%w: cannot pause campaign in status %s", apperrors.ErrValidation, campaign.Status)
	}
	if campaign.ExternalJobID == nil {
		return fmt.Errorf("%w: campaign has no gateway job", apperrors.ErrValidation)
	}

	token, err := s.instanceToken(ctx)
	if err != nil {
		return err
	}
	if err := s.gateway.ControlCampaign(ctx, token, *campaign.ExternalJobID, gateway.ActionStop); err != nil {
		return err
	}
	return s.campaignRepo.UpdateStatus(ctx, id, model.CampaignStatusPaused)
}

// Resume continues a paused campaign.
func (s *CampaignService) Resume(ctx context.Context, id string) error {
	campaign, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignStatusPaused {
		return fmt.Errorf("%w: cannot resume campaign in status %s", apperrors.ErrValidation, campaign.Status)
	}
	if campaign.ExternalJobID == nil {
		return fmt.Errorf("%w: campaign has no gateway job", apperrors.ErrValidation)
	}

	token, err := s.instanceToken(ctx)
	if err != nil {
		return err
	}
	if err := s.gateway.ControlCampaign(ctx, token, *campaign.ExternalJobID, gateway.ActionContinue); err != nil {
		return err
	}
	return s.campaignRepo.UpdateStatus(ctx, id, model.CampaignStatusSending)
}

// Delete removes a campaign. The gateway job is cancelled best-effort when
// one exists and the campaign is not done; the local row goes away either
// way, a remote failure must not block local cleanup.
func (s *CampaignService) Delete(ctx context.Context, id string) error {
	campaign, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.campaignRepo.UpdateStatus(ctx, id, model.CampaignStatusDeleting); err != nil {
		return err
	}

	if campaign.ExternalJobID != nil && campaign.Status != model.CampaignStatusDone {
		token, tokenErr := s.instanceToken(ctx)
		if tokenErr != nil {
			logger.FromContext(ctx).Warn("Skipping gateway cancel on delete", zap.Error(tokenErr))
		} else if gwErr := s.gateway.ControlCampaign(ctx, token, *campaign.ExternalJobID, gateway.ActionDelete); gwErr != nil {
			logger.FromContext(ctx).Warn("Gateway campaign delete failed, removing local row anyway",
				zap.String("campaign_id", id),
				zap.Error(gwErr))
		}
	}

	return s.campaignRepo.Delete(ctx, id)
}

// instanceToken resolves the credential for gateway control calls from the
// tenant's instance.
func (s *CampaignService) instanceToken(ctx context.Context) (string, error) {
	instance, err := s.instanceRepo.FindSole(ctx)
	if err != nil {
		return "", err
	}
	return instance.Token, nil
}

// partRows converts template parts into audit rows for a campaign.
func partRows(campaignID string, parts []TemplatePart) []model.CampaignMessage {
	rows := make([]model.CampaignMessage, 0, len(parts))
	for i, part := range parts {
		row := model.CampaignMessage{
			CampaignID: campaignID,
			Position:   i,
			Kind:       part.Kind,
			Body:       part.Body,
		}
		if part.Payload != nil {
			row.Payload = datatypes.JSON(utils.MustMarshalJSON(part.Payload))
		}
		rows = append(rows, row)
	}
	return rows
}
