package webhook

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/observer"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/usecase"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
)

// Handler serves the inbound webhook and the campaign management routes.
type Handler struct {
	ingest        *usecase.IngestService
	campaigns     *usecase.CampaignService
	fallbackOrgID string
}

// NewHandler creates a webhook handler. fallbackOrgID scopes the
// sole-instance token fallback; empty disables it.
func NewHandler(ingest *usecase.IngestService, campaigns *usecase.CampaignService, fallbackOrgID string) *Handler {
	return &Handler{
		ingest:        ingest,
		campaigns:     campaigns,
		fallbackOrgID: fallbackOrgID,
	}
}

// HandleEvent receives one gateway event. Handled and legitimately ignored
// events both answer 200 so the gateway never redelivers them; only
// unresolvable credentials and persistence failures are reported as errors.
func (h *Handler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()
	startTime := time.Now()

	var event model.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		logger.FromContext(ctx).Warn("Webhook body is not valid JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	candidates := []string{
		event.Token,
		bearerToken(c.GetHeader("Authorization")),
		c.GetHeader("X-Api-Token"),
		c.Query("token"),
	}

	ctx, instance, err := h.ingest.ResolveInstance(ctx, candidates, h.fallbackOrgID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown instance token"})
			return
		}
		logger.FromContext(ctx).Error("Instance resolution failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "instance resolution failed"})
		return
	}

	eventKind := "message"
	if event.IsConnectionEvent() {
		eventKind = "connection"
	}
	observer.IncWebhookEventReceived(eventKind, instance.OrgID)

	outcome, err := h.ingest.ProcessWebhookEvent(ctx, instance, &event)
	observer.ObserveWebhookProcessingDuration(eventKind, instance.OrgID, time.Since(startTime))
	if err != nil {
		observer.IncWebhookOutcome(eventKind, instance.OrgID, "error", errorType(err))
		logger.FromContext(ctx).Error("Webhook event processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}

	observer.IncWebhookOutcome(eventKind, instance.OrgID, outcome, "")
	c.JSON(http.StatusOK, gin.H{"status": outcome})
}

// sendMessageRequest is the outbound send body.
type sendMessageRequest struct {
	Phone string `json:"phone" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

// HandleSendMessage dispatches an outbound text through the tenant's
// instance.
func (h *Handler) HandleSendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, instance, err := h.ingest.ResolveInstance(ctx, nil, h.fallbackOrgID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no usable instance"})
		return
	}

	message, err := h.ingest.SendMessage(ctx, instance, req.Phone, req.Body)
	if err != nil {
		if apperrors.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if message != nil {
			// Persisted as failed; report the gateway's refusal.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "message": message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	c.JSON(http.StatusCreated, message)
}

// HandleCreateCampaign submits a campaign.
func (h *Handler) HandleCreateCampaign(c *gin.Context) {
	ctx := c.Request.Context()

	var input usecase.CreateCampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, instance, err := h.ingest.ResolveInstance(ctx, nil, h.fallbackOrgID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no usable instance"})
		return
	}

	campaign, err := h.campaigns.Create(ctx, instance, input)
	if err != nil {
		switch {
		case apperrors.IsValidationError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case apperrors.IsGatewayError(err):
			// The campaign stays in draft; the gateway's wording goes back
			// to the caller untouched.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			logger.FromContext(ctx).Error("Campaign creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "campaign creation failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

// HandleCampaignAction pauses, resumes or deletes a campaign.
func (h *Handler) HandleCampaignAction(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")

		var err error
		switch action {
		case "pause":
			err = h.campaigns.Pause(ctx, id)
		case "resume":
			err = h.campaigns.Resume(ctx, id)
		case "delete":
			err = h.campaigns.Delete(ctx, id)
		}
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			case apperrors.IsValidationError(err):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case apperrors.IsGatewayError(err):
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			default:
				logger.FromContext(ctx).Error("Campaign action failed",
					zap.String("action", action),
					zap.String("campaign_id", id),
					zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "campaign " + action + " failed"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func bearerToken(header string) string {
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return after
	}
	return header
}

func errorType(err error) string {
	switch {
	case apperrors.IsDatabaseError(err):
		return "database"
	case apperrors.IsGatewayError(err):
		return "gateway"
	case apperrors.IsValidationError(err):
		return "validation"
	default:
		return "internal"
	}
}
