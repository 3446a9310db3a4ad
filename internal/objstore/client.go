package objstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/config"
)

// Client is the object storage surface consumed by the media pipeline.
type Client interface {
	// Upload stores bytes under bucket/key, replacing any existing object.
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	// PublicURL returns the stable public URL for bucket/key.
	PublicURL(bucket, key string) string
}

// HTTPClient talks to an S3-style storage REST API.
type HTTPClient struct {
	http    *resty.Client
	baseURL string
}

// NewHTTPClient builds an object storage client from config.
func NewHTTPClient(cfg config.StorageConfig) *HTTPClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Authorization", "Bearer "+cfg.APIKey)

	return &HTTPClient{
		http:    client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Upload PUTs the object. Existing objects with the same key are replaced.
func (c *HTTPClient) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("%w: bucket and key are required", apperrors.ErrBadRequest)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		SetPathParams(map[string]string{"bucket": bucket, "key": key}).
		Put("/object/{bucket}/{key}")
	if err != nil {
		return fmt.Errorf("storage upload failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("storage upload returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// PublicURL returns the public address of an object. No request is made;
// the storage serves uploaded objects at a predictable path.
func (c *HTTPClient) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, bucket, key)
}
