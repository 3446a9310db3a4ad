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

// --- Contact Repository Methods ---

// SaveContact creates a contact record.
func (r *PostgresRepo) SaveContact(ctx context.Context, contact model.Contact) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if contact.OrgID != "" && contact.OrgID != orgID {
		return fmt.Errorf("%w: contact OrgID %s does not match tenant ID %s", apperrors.ErrBadRequest, contact.OrgID, orgID)
	}
	contact.OrgID = orgID
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	if contact.Status == "" {
		contact.Status = model.ContactStatusOpen
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = utils.Now()
	}
	contact.UpdatedAt = utils.Now()

	operation := func() error {
		if createErr := r.db.WithContext(ctx).Create(&contact).Error; createErr != nil {
			return checkConstraintViolation(createErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveContact", operation)
	observer.ObserveDbOperationDuration("save", "contact", orgID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save contact after retries",
			zap.String("phone", contact.Phone),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindContactByPhone finds a contact by its normalized phone number.
func (r *PostgresRepo) FindContactByPhone(ctx context.Context, phone string) (*model.Contact, error) {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var contact model.Contact
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("phone = ? AND org_id = ?", phone, orgID).
			Order("created_at ASC").
			First(&contact)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: phone %s: %w", apperrors.ErrNotFound, phone, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindContactByPhone", operation)
	observer.ObserveDbOperationDuration("find_by_phone", "contact", orgID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find contact by phone after retries",
			zap.String("phone", phone),
			zap.Error(findErr))
		return nil, findErr
	}
	return &contact, nil
}

// UpdateContactAvatar refreshes the contact's avatar URL.
func (r *PostgresRepo) UpdateContactAvatar(ctx context.Context, id, avatarURL string) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Contact{}).
			Where("id = ? AND org_id = ?", id, orgID).
			Updates(map[string]interface{}{
				"avatar_url": avatarURL,
				"updated_at": utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: contact %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateContactAvatar", operation)
	observer.ObserveDbOperationDuration("update_avatar", "contact", orgID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to update contact avatar after retries",
			zap.String("contact_id", id),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// TouchContactLastMessage bumps the contact's last message timestamp.
func (r *PostgresRepo) TouchContactLastMessage(ctx context.Context, id string, at time.Time) error {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	result := r.db.WithContext(ctx).Model(&model.Contact{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Update("last_message_at", at)
	if result.Error != nil {
		observer.ObserveDbOperationDuration("touch_last_message", "contact", orgID, 0, result.Error)
		return checkConstraintViolation(result.Error)
	}
	return nil
}
