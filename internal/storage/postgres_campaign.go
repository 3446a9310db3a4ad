package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/observer"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/utils"
)

// --- Campaign Repository Methods ---

// SaveCampaign creates a campaign record.
func (r *PostgresRepo) SaveCampaign(ctx context.Context, campaign model.Campaign) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if campaign.OrgID != "" && campaign.OrgID != orgID {
		return fmt.Errorf("%w: campaign OrgID %s does not match tenant ID %s", apperrors.ErrBadRequest, campaign.OrgID, orgID)
	}
	campaign.OrgID = orgID
	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}
	if campaign.Status == "" {
		campaign.Status = model.CampaignStatusDraft
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = utils.Now()
	}
	campaign.UpdatedAt = utils.Now()

	operation := func() error {
		if createErr := r.db.WithContext(ctx).Create(&campaign).Error; createErr != nil {
			return checkConstraintViolation(createErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveCampaign", operation)
	observer.ObserveDbOperationDuration("save", "campaign", orgID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save campaign after retries",
			zap.String("campaign_name", campaign.Name),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// SaveCampaignParts stores the campaign's template parts and recipient list
// in one transaction. Rows are audit records; dispatch works from the
// gateway job, not from these tables.
func (r *PostgresRepo) SaveCampaignParts(ctx context.Context, messages []model.CampaignMessage, recipients []model.CampaignRecipient) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if len(messages) == 0 && len(recipients) == 0 {
		return nil
	}

	now := utils.Now()
	for i := range messages {
		if messages[i].ID == "" {
			messages[i].ID = uuid.New().String()
		}
		if messages[i].CreatedAt.IsZero() {
			messages[i].CreatedAt = now
		}
	}
	for i := range recipients {
		if recipients[i].ID == "" {
			recipients[i].ID = uuid.New().String()
		}
		if recipients[i].CreatedAt.IsZero() {
			recipients[i].CreatedAt = now
		}
	}

	operation := func() error {
		txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if len(messages) > 0 {
				if err := tx.CreateInBatches(messages, 100).Error; err != nil {
					return err
				}
			}
			if len(recipients) > 0 {
				if err := tx.CreateInBatches(recipients, 500).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if txErr != nil {
			return checkConstraintViolation(txErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveCampaignParts", operation)
	observer.ObserveDbOperationDuration("save_parts", "campaign", orgID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save campaign parts after retries",
			zap.Int("messages", len(messages)),
			zap.Int("recipients", len(recipients)),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindCampaignByID finds a campaign by its ID within the tenant.
func (r *PostgresRepo) FindCampaignByID(ctx context.Context, id string) (*model.Campaign, error) {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var campaign model.Campaign
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("id = ? AND org_id = ?", id, orgID).
			First(&campaign)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: campaign %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindCampaignByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "campaign", orgID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find campaign after retries",
			zap.String("campaign_id", id),
			zap.Error(findErr))
		return nil, findErr
	}
	return &campaign, nil
}

// UpdateCampaignStatus transitions the campaign status only. State machine
// validity is the caller's responsibility.
func (r *PostgresRepo) UpdateCampaignStatus(ctx context.Context, id, status string) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Campaign{}).
			Where("id = ? AND org_id = ?", id, orgID).
			Updates(map[string]interface{}{
				"status":     status,
				"updated_at": utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: campaign %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateCampaignStatus", operation)
	observer.ObserveDbOperationDuration("update_status", "campaign", orgID, time.Since(startTime), commitErr)
	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrNotFound) {
			return commitErr
		}
		logger.FromContext(ctx).Error("Failed to update campaign status after retries",
			zap.String("campaign_id", id),
			zap.String("status", status),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// StoreCampaignJob records the gateway job id alongside the status the
// submission produced. Both land in one write so a crash between them
// cannot leave a submitted campaign without its job handle.
func (r *PostgresRepo) StoreCampaignJob(ctx context.Context, id, jobID, status string) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Campaign{}).
			Where("id = ? AND org_id = ?", id, orgID).
			Updates(map[string]interface{}{
				"external_job_id": jobID,
				"status":          status,
				"updated_at":      utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: campaign %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "StoreCampaignJob", operation)
	observer.ObserveDbOperationDuration("store_job", "campaign", orgID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to store campaign job after retries",
			zap.String("campaign_id", id),
			zap.String("job_id", jobID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// ApplyCampaignProgress persists reconciled counters and status in one write.
func (r *PostgresRepo) ApplyCampaignProgress(ctx context.Context, id, status string, sentCount, failedCount int) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Campaign{}).
			Where("id = ? AND org_id = ?", id, orgID).
			Select(model.CampaignProgressColumns()).
			Updates(map[string]interface{}{
				"status":       status,
				"sent_count":   sentCount,
				"failed_count": failedCount,
				"updated_at":   utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: campaign %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "ApplyCampaignProgress", operation)
	observer.ObserveDbOperationDuration("apply_progress", "campaign", orgID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to apply campaign progress after retries",
			zap.String("campaign_id", id),
			zap.String("status", status),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// DeleteCampaign removes a campaign and its parts.
func (r *PostgresRepo) DeleteCampaign(ctx context.Context, id string) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("campaign_id = ?", id).Delete(&model.CampaignMessage{}).Error; err != nil {
				return err
			}
			if err := tx.Where("campaign_id = ?", id).Delete(&model.CampaignRecipient{}).Error; err != nil {
				return err
			}
			result := tx.Where("id = ? AND org_id = ?", id, orgID).Delete(&model.Campaign{})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: campaign %s", apperrors.ErrNotFound, id)
			}
			return nil
		})
		if txErr != nil {
			if errors.Is(txErr, apperrors.ErrNotFound) {
				return txErr
			}
			return checkConstraintViolation(txErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "DeleteCampaign", operation)
	observer.ObserveDbOperationDuration("delete", "campaign", orgID, time.Since(startTime), commitErr)
	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrNotFound) {
			return commitErr
		}
		logger.FromContext(ctx).Error("Failed to delete campaign after retries",
			zap.String("campaign_id", id),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindActiveCampaigns lists campaigns the reconciler should poll.
func (r *PostgresRepo) FindActiveCampaigns(ctx context.Context) ([]model.Campaign, error) {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var campaigns []model.Campaign
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("org_id = ? AND status IN ?", orgID, []string{model.CampaignStatusSending, model.CampaignStatusScheduled}).
			Order("created_at ASC").
			Find(&campaigns)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindActiveCampaigns", operation)
	observer.ObserveDbOperationDuration("find_active", "campaign", orgID, time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to list active campaigns after retries", zap.Error(findErr))
		return nil, findErr
	}
	return campaigns, nil
}
