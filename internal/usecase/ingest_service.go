package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/media"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/observer"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/utils"
)

// Processing outcomes reported to the webhook layer.
const (
	OutcomeStored     = "stored"
	OutcomeDuplicate  = "duplicate"
	OutcomeIgnored    = "ignored"
	OutcomeConnection = "connection"
)

// ResolveInstance resolves the gateway instance from candidate credential
// tokens tried in order. When no candidate matches, it falls back to the
// organization's sole instance; the fallback only fires when exactly one
// instance exists and its use is logged and counted, since it cannot
// distinguish tenants on its own.
func (s *IngestService) ResolveInstance(ctx context.Context, candidates []string, fallbackOrgID string) (context.Context, *model.Instance, error) {
	for _, token := range candidates {
		if token == "" {
			continue
		}
		instance, err := s.instanceRepo.FindByToken(ctx, token)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return ctx, nil, err
		}
		return tenant.WithOrgID(ctx, instance.OrgID), instance, nil
	}

	if fallbackOrgID == "" {
		return ctx, nil, fmt.Errorf("%w: no matching instance token", apperrors.ErrUnauthorized)
	}

	orgCtx := tenant.WithOrgID(ctx, fallbackOrgID)
	instance, err := s.instanceRepo.FindSole(orgCtx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrConflict) {
			return ctx, nil, fmt.Errorf("%w: no matching instance token: %w", apperrors.ErrUnauthorized, err)
		}
		return ctx, nil, err
	}

	observer.IncInstanceFallbackResolution(fallbackOrgID)
	logger.FromContext(orgCtx).Warn("Resolved instance via sole-instance fallback",
		zap.String("instance_id", instance.ID))
	return orgCtx, instance, nil
}

// ProcessWebhookEvent routes one inbound event. Connection events update the
// instance; message events run dedup, contact resolution, the media pipeline
// and message persistence. Events the service legitimately ignores return
// OutcomeIgnored with no error.
func (s *IngestService) ProcessWebhookEvent(ctx context.Context, instance *model.Instance, event *model.WebhookEvent) (string, error) {
	s.bumpLastSeen(ctx, instance.ID)

	if event.IsConnectionEvent() {
		if err := s.instanceRepo.UpdateConnection(ctx, instance.ID, event.ConnectionStatus(), utils.NormalizePhone(event.Phone)); err != nil {
			return OutcomeConnection, err
		}
		return OutcomeConnection, nil
	}

	chatID := event.ChatIdentifier()
	if chatID == "" {
		return OutcomeIgnored, nil
	}
	if event.FromMe {
		// Echo of our own outbound send; persisting it would loop.
		return OutcomeIgnored, nil
	}
	phone := utils.PhoneFromChatID(chatID)
	if phone == "" {
		return OutcomeIgnored, nil
	}

	log := logger.FromContext(ctx).With(zap.String("phone", phone))

	dedupKey := event.DedupKey()
	if dedupKey != "" {
		exists, err := s.messageRepo.ExistsByExternalID(ctx, dedupKey)
		if err != nil {
			// The unique index on insert still guards us; keep going.
			log.Warn("Dedup pre-check failed, relying on insert conflict", zap.Error(err))
		} else if exists {
			return OutcomeDuplicate, nil
		}
	}

	contact, err := s.resolveContact(ctx, event, phone)
	if err != nil {
		return "", fmt.Errorf("resolving contact for %s: %w", phone, err)
	}

	if avatarURL := event.AvatarURL(); avatarURL != "" && avatarURL != contact.AvatarURL {
		if avatarErr := s.contactRepo.UpdateAvatar(ctx, contact.ID, avatarURL); avatarErr != nil {
			log.Warn("Failed to refresh contact avatar", zap.Error(avatarErr))
		}
	}

	messageID := uuid.New().String()
	body := event.TextBody()
	var mediaURL, mediaType *string

	if mediaKind := event.MediaKind(); mediaKind != "" {
		result, mediaErr := s.media.Process(ctx, instance.Token, dedupKey, contact.ID, messageID, mediaKind)
		if mediaErr != nil {
			body = media.FallbackBody(mediaKind)
		} else {
			mediaURL = &result.URL
			mediaType = &result.MediaType
			if body == "" {
				body = media.FallbackBody(mediaKind)
			}
		}
	}

	message := model.Message{
		ID:         messageID,
		ContactID:  contact.ID,
		InstanceID: instance.ID,
		Sender:     model.SenderContact,
		Body:       body,
		MediaURL:   mediaURL,
		MediaType:  mediaType,
		Status:     model.MessageStatusReceived,
		Payload:    datatypes.JSON(utils.MustMarshalJSON(event)),
	}
	if dedupKey != "" {
		message.ExternalID = &dedupKey
	}

	inserted, err := s.messageRepo.Insert(ctx, message)
	if err != nil {
		return "", fmt.Errorf("persisting message: %w", err)
	}
	if !inserted {
		return OutcomeDuplicate, nil
	}

	if touchErr := s.contactRepo.TouchLastMessage(ctx, contact.ID, utils.Now()); touchErr != nil {
		log.Warn("Failed to bump contact last message", zap.Error(touchErr))
	}
	return OutcomeStored, nil
}

// resolveContact finds or creates the contact for an inbound event.
// Resolution order: exact phone, the event's formatted phone variant, then
// create. A create failure aborts the whole event; the contact row is a hard
// prerequisite for the message.
func (s *IngestService) resolveContact(ctx context.Context, event *model.WebhookEvent, phone string) (*model.Contact, error) {
	contact, err := s.contactRepo.FindByPhone(ctx, phone)
	if err == nil {
		return contact, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if variant := utils.NormalizePhone(event.FormattedNumber); variant != "" && variant != phone {
		contact, err = s.contactRepo.FindByPhone(ctx, variant)
		if err == nil {
			return contact, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	name := event.DisplayName()
	if name == "" {
		name = phone
	}
	fresh := model.Contact{
		ID:        uuid.New().String(),
		Phone:     phone,
		Name:      name,
		AvatarURL: event.AvatarURL(),
		Status:    model.ContactStatusOpen,
	}
	if err := s.contactRepo.Save(ctx, fresh); err != nil {
		return nil, err
	}
	return &fresh, nil
}

// SendMessage dispatches an outbound text to a contact phone through the
// gateway and records it. A gateway failure still persists the message, with
// status failed, so the conversation history shows the attempt.
func (s *IngestService) SendMessage(ctx context.Context, instance *model.Instance, phone, body string) (*model.Message, error) {
	normalized := utils.NormalizePhone(phone)
	if normalized == "" {
		return nil, fmt.Errorf("%w: phone has no digits", apperrors.ErrValidation)
	}

	contact, err := s.contactRepo.FindByPhone(ctx, normalized)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		fresh := model.Contact{
			ID:     uuid.New().String(),
			Phone:  normalized,
			Name:   normalized,
			Status: model.ContactStatusOpen,
		}
		if saveErr := s.contactRepo.Save(ctx, fresh); saveErr != nil {
			return nil, saveErr
		}
		contact = &fresh
	}

	message := model.Message{
		ID:         uuid.New().String(),
		ContactID:  contact.ID,
		InstanceID: instance.ID,
		Sender:     model.SenderUser,
		Body:       body,
		Status:     model.MessageStatusSent,
	}

	externalID, sendErr := s.gateway.SendText(ctx, instance.Token, normalized, body)
	if sendErr != nil {
		message.Status = model.MessageStatusFailed
		logger.FromContext(ctx).Warn("Gateway send failed",
			zap.String("contact_id", contact.ID),
			zap.Error(sendErr))
	} else if externalID != "" {
		message.ExternalID = &externalID
	}

	if _, err := s.messageRepo.Insert(ctx, message); err != nil {
		return nil, err
	}
	if sendErr != nil {
		return &message, sendErr
	}

	s.bumpLastSeen(ctx, instance.ID)
	if touchErr := s.contactRepo.TouchLastMessage(ctx, contact.ID, utils.Now()); touchErr != nil {
		logger.FromContext(ctx).Warn("Failed to bump contact last message", zap.Error(touchErr))
	}
	return &message, nil
}
