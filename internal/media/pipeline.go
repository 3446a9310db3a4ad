package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/objstore"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/observer"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
)

// Payloads under this size are vendor error pages or truncated downloads,
// not real media.
const minMediaBytes = 100

// Pipeline stage names recorded in the failure metric.
const (
	StageFetch  = "fetch"
	StageDecode = "decode"
	StageUpload = "upload"
)

// Result is a successfully stored media object.
type Result struct {
	URL       string
	MediaType string
}

// Pipeline downloads inbound media from the gateway and republishes it to
// object storage under a stable per-contact key. Failures do not propagate
// as infrastructure errors; callers persist the message with a fallback
// body instead. There is no retry: a lost payload stays lost.
type Pipeline struct {
	gateway gateway.Client
	store   objstore.Client
	bucket  string
}

// NewPipeline creates a media pipeline.
func NewPipeline(gatewayClient gateway.Client, store objstore.Client, bucket string) *Pipeline {
	return &Pipeline{
		gateway: gatewayClient,
		store:   store,
		bucket:  bucket,
	}
}

// Process runs the full download-decode-upload sequence for one message.
// externalID is the gateway message id, messageID the local row id the
// object key is derived from.
func (p *Pipeline) Process(ctx context.Context, token, externalID, contactID, messageID, mediaKind string) (*Result, error) {
	log := logger.FromContext(ctx).With(
		zap.String("external_id", externalID),
		zap.String("media_kind", mediaKind),
	)

	encoded, mimeType, err := p.gateway.DownloadMedia(ctx, token, externalID)
	if err != nil {
		p.countFailure(ctx, StageFetch)
		log.Warn("Media fetch failed", zap.Error(err))
		return nil, apperrors.NewMediaFailure(StageFetch, err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		p.countFailure(ctx, StageDecode)
		log.Warn("Media payload is not valid base64", zap.Error(err))
		return nil, apperrors.NewMediaFailure(StageDecode, err)
	}
	if len(data) < minMediaBytes {
		p.countFailure(ctx, StageDecode)
		log.Warn("Media payload below minimum size", zap.Int("bytes", len(data)))
		return nil, apperrors.NewMediaFailure(StageDecode, fmt.Errorf("payload too small: %d bytes", len(data)))
	}

	key := fmt.Sprintf("contacts/%s/%s%s", contactID, messageID, extensionFor(mimeType))
	if err := p.store.Upload(ctx, p.bucket, key, data, mimeType); err != nil {
		p.countFailure(ctx, StageUpload)
		log.Warn("Media upload failed", zap.String("key", key), zap.Error(err))
		return nil, apperrors.NewMediaFailure(StageUpload, err)
	}

	return &Result{
		URL:       p.store.PublicURL(p.bucket, key),
		MediaType: mediaKind,
	}, nil
}

// FallbackBody is the body persisted when the media payload is lost.
func FallbackBody(mediaKind string) string {
	if mediaKind == model.MediaKindAudio {
		return "Áudio"
	}
	return "Imagem"
}

// extensionFor derives a file extension from a MIME type. All image
// variants collapse to .jpg so gallery consumers get one predictable
// extension.
func extensionFor(mimeType string) string {
	if strings.Contains(mimeType, "image") {
		return ".jpg"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	if idx := strings.Index(mimeType, "/"); idx >= 0 && idx+1 < len(mimeType) {
		sub := mimeType[idx+1:]
		if semi := strings.Index(sub, ";"); semi >= 0 {
			sub = sub[:semi]
		}
		return "." + sub
	}
	return ".bin"
}

func (p *Pipeline) countFailure(ctx context.Context, stage string) {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		orgID = "unknown"
	}
	observer.IncMediaPipelineFailure(orgID, stage)
}
