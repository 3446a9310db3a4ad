package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/config"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/observer"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
)

// errorBody is the gateway's error envelope. Some endpoints use "error",
// others "message".
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorBody) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

type sendTextResponse struct {
	MessageID string `json:"message_id"`
}

type downloadMediaResponse struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mime_type"`
}

type createCampaignResponse struct {
	JobID string `json:"job_id"`
}

// HTTPClient is the resty implementation of Client.
type HTTPClient struct {
	http *resty.Client
}

// NewHTTPClient builds a gateway client from config. Transport-level
// failures retry; HTTP error statuses do not, they surface to the caller.
func NewHTTPClient(cfg config.GatewayConfig) *HTTPClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPClient{http: client}
}

// SendText dispatches a text message through the gateway.
func (c *HTTPClient) SendText(ctx context.Context, token, phone, body string) (string, error) {
	var result sendTextResponse
	var errBody errorBody

	startTime := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-Token", token).
		SetBody(map[string]string{"phone": phone, "body": body}).
		SetResult(&result).
		SetError(&errBody).
		Post("/message/send-text")
	observer.ObserveGatewayRequestDuration("send_text", orgFromContext(ctx), time.Since(startTime), err)

	if err != nil {
		return "", fmt.Errorf("%w: send text request failed: %w", apperrors.ErrGateway, err)
	}
	if resp.IsError() {
		return "", gatewayError(resp, errBody)
	}
	return result.MessageID, nil
}

// DownloadMedia fetches media content for a gateway message id.
func (c *HTTPClient) DownloadMedia(ctx context.Context, token, messageID string) (string, string, error) {
	var result downloadMediaResponse
	var errBody errorBody

	startTime := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-Token", token).
		SetPathParam("messageID", messageID).
		SetResult(&result).
		SetError(&errBody).
		Get("/message/{messageID}/media")
	observer.ObserveGatewayRequestDuration("download_media", orgFromContext(ctx), time.Since(startTime), err)

	if err != nil {
		return "", "", fmt.Errorf("%w: media download request failed: %w", apperrors.ErrGateway, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", "", fmt.Errorf("%w: media for message %s", apperrors.ErrNotFound, messageID)
	}
	if resp.IsError() {
		return "", "", gatewayError(resp, errBody)
	}
	return result.Base64, result.MimeType, nil
}

// CreateCampaign submits a mass-send batch.
func (c *HTTPClient) CreateCampaign(ctx context.Context, token string, req CreateCampaignRequest) (string, error) {
	var result createCampaignResponse
	var errBody errorBody

	startTime := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-Token", token).
		SetBody(req).
		SetResult(&result).
		SetError(&errBody).
		Post("/campaign")
	observer.ObserveGatewayRequestDuration("create_campaign", orgFromContext(ctx), time.Since(startTime), err)

	if err != nil {
		return "", fmt.Errorf("%w: campaign submission failed: %w", apperrors.ErrGateway, err)
	}
	if resp.IsError() {
		return "", gatewayError(resp, errBody)
	}
	if result.JobID == "" {
		return "", fmt.Errorf("%w: gateway accepted campaign but returned no job id", apperrors.ErrGateway)
	}
	return result.JobID, nil
}

// ControlCampaign applies a stop, continue or delete action to a job.
func (c *HTTPClient) ControlCampaign(ctx context.Context, token, jobID, action string) error {
	switch action {
	case ActionStop, ActionContinue, ActionDelete:
	default:
		return fmt.Errorf("%w: unknown campaign action %q", apperrors.ErrBadRequest, action)
	}

	var errBody errorBody
	startTime := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-Token", token).
		SetPathParams(map[string]string{"jobID": jobID, "action": action}).
		SetError(&errBody).
		Post("/campaign/{jobID}/{action}")
	observer.ObserveGatewayRequestDuration("control_campaign", orgFromContext(ctx), time.Since(startTime), err)

	if err != nil {
		return fmt.Errorf("%w: campaign %s request failed: %w", apperrors.ErrGateway, action, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: campaign job %s", apperrors.ErrNotFound, jobID)
	}
	if resp.IsError() {
		return gatewayError(resp, errBody)
	}
	return nil
}

// GetCampaignStatus returns the gateway's progress snapshot for a job.
func (c *HTTPClient) GetCampaignStatus(ctx context.Context, token, jobID string) (StatusSnapshot, error) {
	var result StatusSnapshot
	var errBody errorBody

	startTime := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-Token", token).
		SetPathParam("jobID", jobID).
		SetResult(&result).
		SetError(&errBody).
		Get("/campaign/{jobID}/status")
	observer.ObserveGatewayRequestDuration("get_campaign_status", orgFromContext(ctx), time.Since(startTime), err)

	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("%w: campaign status request failed: %w", apperrors.ErrGateway, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return StatusSnapshot{}, fmt.Errorf("%w: campaign job %s", apperrors.ErrNotFound, jobID)
	}
	if resp.IsError() {
		return StatusSnapshot{}, gatewayError(resp, errBody)
	}
	return result, nil
}

// gatewayError wraps a non-2xx response in ErrGateway, carrying the
// downstream error text verbatim so callers can surface it unchanged.
func gatewayError(resp *resty.Response, body errorBody) error {
	text := body.text()
	if text == "" {
		text = resp.String()
	}
	return fmt.Errorf("%w: gateway returned %d: %s", apperrors.ErrGateway, resp.StatusCode(), text)
}

func orgFromContext(ctx context.Context) string {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		logger.FromContext(ctx).Debug("Gateway call without tenant in context", zap.Error(err))
		return "unknown"
	}
	return orgID
}
