package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/observer"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/utils"
)

// --- Instance Repository Methods ---

// FindInstanceByToken finds an instance by its credential token. The token is
// the lookup key, so this method does not require a tenant in context; the
// resolved instance is what establishes the tenant.
func (r *PostgresRepo) FindInstanceByToken(ctx context.Context, token string) (*model.Instance, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token cannot be empty", apperrors.ErrBadRequest)
	}

	var instance model.Instance
	operation := func() error {
		result := r.db.WithContext(ctx).Where("token = ?", token).First(&instance)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: instance token: %w", apperrors.ErrNotFound, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindInstanceByToken", operation)
	observer.ObserveDbOperationDuration("find_by_token", "instance", instance.OrgID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find instance by token after retries", zap.Error(findErr))
		return nil, findErr
	}
	return &instance, nil
}

// FindSoleInstance returns the tenant's single configured instance. The
// fallback never guesses: zero instances is ErrNotFound, more than one is
// ErrConflict.
func (r *PostgresRepo) FindSoleInstance(ctx context.Context) (*model.Instance, error) {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var instances []model.Instance
	operation := func() error {
		result := r.db.WithContext(ctx).Where("org_id = ?", orgID).Limit(2).Find(&instances)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindSoleInstance", operation)
	observer.ObserveDbOperationDuration("find_sole", "instance", orgID, time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find sole instance after retries", zap.Error(findErr))
		return nil, findErr
	}

	switch len(instances) {
	case 0:
		return nil, apperrors.ErrNotFound
	case 1:
		return &instances[0], nil
	default:
		return nil, fmt.Errorf("%w: organization has multiple instances, token required", apperrors.ErrConflict)
	}
}

// UpdateInstanceConnection applies a connection-status change to an instance.
func (r *PostgresRepo) UpdateInstanceConnection(ctx context.Context, id, status, phone string) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		updates := map[string]interface{}{
			"status":     status,
			"updated_at": utils.Now(),
		}
		if phone != "" {
			updates["phone"] = phone
		}
		result := r.db.WithContext(ctx).Model(&model.Instance{}).
			Where("id = ? AND org_id = ?", id, orgID).
			Updates(updates)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: instance %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateInstanceConnection", operation)
	observer.ObserveDbOperationDuration("update_connection", "instance", orgID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to update instance connection after retries",
			zap.String("instance_id", id),
			zap.String("status", status),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// TouchInstanceLastSeen bumps the instance usage timestamp. Callers treat
// this as fire-and-forget; it is not retried beyond the standard policy.
func (r *PostgresRepo) TouchInstanceLastSeen(ctx context.Context, id string, at time.Time) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	result := r.db.WithContext(ctx).Model(&model.Instance{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Update("last_seen_at", at)
	if result.Error != nil {
		observer.ObserveDbOperationDuration("touch_last_seen", "instance", orgID, 0, result.Error)
		return checkConstraintViolation(result.Error)
	}
	return nil
}
