package media

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testifymock "github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	gatewaymock "gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway/mock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	objstoremock "gitlab.com/astradesk/api/wa-campaign-bridge/internal/objstore/mock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
)

const testBucket = "chat-media"

func newTestPipeline(t *testing.T) (*Pipeline, *gatewaymock.ClientMock, *objstoremock.ClientMock) {
	logger.Log = zaptest.NewLogger(t).Named("test")
	gw := new(gatewaymock.ClientMock)
	store := new(objstoremock.ClientMock)
	return NewPipeline(gw, store, testBucket), gw, store
}

func mediaCtx() context.Context {
	return tenant.WithOrgID(context.Background(), "org-media-test")
}

func validPayload() (string, []byte) {
	raw := []byte(strings.Repeat("jpeg-bytes", 20)) // comfortably above the floor
	return base64.StdEncoding.EncodeToString(raw), raw
}

func TestPipeline_Process_Image(t *testing.T) {
	pipeline, gw, store := newTestPipeline(t)
	ctx := mediaCtx()
	encoded, raw := validPayload()

	gw.On("DownloadMedia", testifymock.Anything, "token-1", "wamid.img-1").
		Return(encoded, "image/png", nil)
	store.On("Upload", testifymock.Anything, testBucket, "contacts/contact-1/message-1.jpg", raw, "image/png").
		Return(nil)
	store.On("PublicURL", testBucket, "contacts/contact-1/message-1.jpg").
		Return("https://cdn.example.com/chat-media/contacts/contact-1/message-1.jpg")

	result, err := pipeline.Process(ctx, "token-1", "wamid.img-1", "contact-1", "message-1", model.MediaKindImage)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/chat-media/contacts/contact-1/message-1.jpg", result.URL)
	assert.Equal(t, model.MediaKindImage, result.MediaType)
	gw.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestPipeline_Process_FetchFailure(t *testing.T) {
	pipeline, gw, _ := newTestPipeline(t)
	ctx := mediaCtx()

	gw.On("DownloadMedia", testifymock.Anything, "token-1", "wamid.img-2").
		Return("", "", errors.New("gateway timeout"))

	result, err := pipeline.Process(ctx, "token-1", "wamid.img-2", "contact-1", "message-2", model.MediaKindImage)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, apperrors.IsMediaFailure(err))

	var failure *apperrors.MediaFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, StageFetch, failure.Stage)
}

func TestPipeline_Process_InvalidBase64(t *testing.T) {
	pipeline, gw, _ := newTestPipeline(t)
	ctx := mediaCtx()

	gw.On("DownloadMedia", testifymock.Anything, "token-1", "wamid.img-3").
		Return("not!!valid!!base64", "image/jpeg", nil)

	_, err := pipeline.Process(ctx, "token-1", "wamid.img-3", "contact-1", "message-3", model.MediaKindImage)
	var failure *apperrors.MediaFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, StageDecode, failure.Stage)
}

func TestPipeline_Process_TooSmall(t *testing.T) {
	pipeline, gw, _ := newTestPipeline(t)
	ctx := mediaCtx()

	tiny := base64.StdEncoding.EncodeToString([]byte("short"))
	gw.On("DownloadMedia", testifymock.Anything, "token-1", "wamid.img-4").
		Return(tiny, "image/jpeg", nil)

	_, err := pipeline.Process(ctx, "token-1", "wamid.img-4", "contact-1", "message-4", model.MediaKindImage)
	var failure *apperrors.MediaFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, StageDecode, failure.Stage)
}

func TestPipeline_Process_UploadFailure(t *testing.T) {
	pipeline, gw, store := newTestPipeline(t)
	ctx := mediaCtx()
	encoded, raw := validPayload()

	gw.On("DownloadMedia", testifymock.Anything, "token-1", "wamid.aud-1").
		Return(encoded, "audio/ogg", nil)
	store.On("Upload", testifymock.Anything, testBucket, testifymock.Anything, raw, "audio/ogg").
		Return(errors.New("bucket unavailable"))

	_, err := pipeline.Process(ctx, "token-1", "wamid.aud-1", "contact-1", "message-5", model.MediaKindAudio)
	var failure *apperrors.MediaFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, StageUpload, failure.Stage)
}

func TestFallbackBody(t *testing.T) {
	assert.Equal(t, "Imagem", FallbackBody(model.MediaKindImage))
	assert.Equal(t, "Áudio", FallbackBody(model.MediaKindAudio))
	assert.Equal(t, "Imagem", FallbackBody("unknown"))
}

func TestExtensionFor(t *testing.T) {
	testCases := []struct {
		mimeType string
		expected string
	}{
		{"image/jpeg", ".jpg"},
		{"image/png", ".jpg"},
		{"image/webp", ".jpg"},
		{"application/pdf", ".pdf"},
		{"vendor-weird/opus-x", ".opus-x"},
		{"garbage", ".bin"},
	}
	for _, tc := range testCases {
		t.Run(tc.mimeType, func(t *testing.T) {
			assert.Equal(t, tc.expected, extensionFor(tc.mimeType))
		})
	}
}
