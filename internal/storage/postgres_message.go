package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/observer"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/utils"
)

// --- Message Repository Methods ---

// MessageExistsByExternalID reports whether a message with the given dedup
// key is already stored. This is a fast path only; the authoritative dedup
// is the unique index consulted by InsertMessage.
func (r *PostgresRepo) MessageExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if externalID == "" {
		return false, fmt.Errorf("%w: externalID cannot be empty", apperrors.ErrBadRequest)
	}

	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Message{}).
			Where("external_id = ? AND org_id = ?", externalID, orgID).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "MessageExistsByExternalID", operation)
	observer.ObserveDbOperationDuration("exists_by_external_id", "message", orgID, time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to check message existence after retries",
			zap.String("external_id", externalID),
			zap.Error(findErr))
		return false, findErr
	}
	return count > 0, nil
}

// InsertMessage persists a message. Messages carrying an external id insert
// with ON CONFLICT DO NOTHING against the partial unique index on
// external_id; a conflicting redelivery reports inserted=false with no
// error, closing the check-then-insert race under concurrent delivery.
func (r *PostgresRepo) InsertMessage(ctx context.Context, message model.Message) (bool, error) {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if message.OrgID != "" && message.OrgID != orgID {
		return false, fmt.Errorf("%w: message OrgID %s does not match tenant ID %s", apperrors.ErrBadRequest, message.OrgID, orgID)
	}
	message.OrgID = orgID
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = utils.Now()
	}
	message.UpdatedAt = utils.Now()

	inserted := false
	operation := func() error {
		tx := r.db.WithContext(ctx)
		if message.ExternalID != nil {
			tx = tx.Clauses(clause.OnConflict{
				Columns:     []clause.Column{{Name: "external_id"}},
				TargetWhere: clause.Where{Exprs: []clause.Expression{gorm.Expr("external_id IS NOT NULL")}},
				DoNothing:   true,
			})
		}
		result := tx.Create(&message)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		inserted = result.RowsAffected > 0
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "InsertMessage", operation)
	observer.ObserveDbOperationDuration("insert", "message", orgID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to insert message after retries",
			zap.String("contact_id", message.ContactID),
			zap.Error(commitErr))
		return false, commitErr
	}
	return inserted, nil
}

// UpdateMessageStatus transitions a message's delivery status. Messages are
// otherwise immutable.
func (r *PostgresRepo) UpdateMessageStatus(ctx context.Context, id, status string) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Message{}).
			Where("id = ? AND org_id = ?", id, orgID).
			Updates(map[string]interface{}{
				"status":     status,
				"updated_at": utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: message %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateMessageStatus", operation)
	observer.ObserveDbOperationDuration("update_status", "message", orgID, time.Since(startTime), commitErr)
	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrNotFound) {
			return commitErr
		}
		logger.FromContext(ctx).Error("Failed to update message status after retries",
			zap.String("message_id", id),
			zap.String("status", status),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}
