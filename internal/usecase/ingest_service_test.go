package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/apperrors"
	gatewaymock "gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway/mock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/media"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
	objstoremock "gitlab.com/astradesk/api/wa-campaign-bridge/internal/objstore/mock"
	storagemock "gitlab.com/astradesk/api/wa-campaign-bridge/internal/storage/mock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
)

const testOrgID = "org-ingest-test"

type ingestFixture struct {
	service      *IngestService
	instanceRepo *storagemock.InstanceRepoMock
	contactRepo  *storagemock.ContactRepoMock
	messageRepo  *storagemock.MessageRepoMock
	gateway      *gatewaymock.ClientMock
	store        *objstoremock.ClientMock
}

func newIngestFixture(t *testing.T) *ingestFixture {
	logger.Log = zaptest.NewLogger(t).Named("test")
	f := &ingestFixture{
		instanceRepo: new(storagemock.InstanceRepoMock),
		contactRepo:  new(storagemock.ContactRepoMock),
		messageRepo:  new(storagemock.MessageRepoMock),
		gateway:      new(gatewaymock.ClientMock),
		store:        new(objstoremock.ClientMock),
	}
	// The drain goroutine may or may not pick up queued bumps before the
	// test ends.
	f.instanceRepo.On("TouchLastSeen", testifymock.Anything, testifymock.Anything, testifymock.Anything).
		Return(nil).Maybe()

	pipeline := media.NewPipeline(f.gateway, f.store, "chat-media")
	f.service = NewIngestService(f.instanceRepo, f.contactRepo, f.messageRepo, f.gateway, pipeline)
	t.Cleanup(f.service.Stop)
	return f
}

func ingestCtx() context.Context {
	return tenant.WithOrgID(context.Background(), testOrgID)
}

func testInstance() *model.Instance {
	return model.NewInstance(&model.Instance{
		ID:     "instance-1",
		OrgID:  testOrgID,
		Token:  "token-1",
		Status: model.InstanceStatusConnected,
	})
}

// Scenario: first delivery of a message from an unknown phone creates one
// contact and one message.
func TestProcessWebhookEvent_NewContactAndMessage(t *testing.T) {
	f := newIngestFixture(t)
	ctx := ingestCtx()

	event := &model.WebhookEvent{
		Event:     "message",
		ChatID:    "5519989349254@domain",
		MessageID: "abc123",
		Text:      &model.TextContent{Message: "Hi"},
	}

	f.messageRepo.On("ExistsByExternalID", testifymock.Anything, "abc123").Return(false, nil)
	f.contactRepo.On("FindByPhone", testifymock.Anything, "+5519989349254").Return(nil, apperrors.ErrNotFound)
	f.contactRepo.On("Save", testifymock.Anything, testifymock.MatchedBy(func(c model.Contact) bool {
		return c.Phone == "+5519989349254" && c.Name == "+5519989349254"
	})).Return(nil)
	f.messageRepo.On("Insert", testifymock.Anything, testifymock.MatchedBy(func(m model.Message) bool {
		return m.Sender == model.SenderContact &&
			m.Status == model.MessageStatusReceived &&
			m.Body == "Hi" &&
			m.ExternalID != nil && *m.ExternalID == "abc123"
	})).Return(true, nil)
	f.contactRepo.On("TouchLastMessage", testifymock.Anything, testifymock.Anything, testifymock.Anything).Return(nil)

	outcome, err := f.service.ProcessWebhookEvent(ctx, testInstance(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, outcome)
	f.contactRepo.AssertExpectations(t)
	f.messageRepo.AssertExpectations(t)
}

// Scenario: redelivering the identical event produces no second message.
func TestProcessWebhookEvent_RedeliveryIsNoOp(t *testing.T) {
	f := newIngestFixture(t)
	ctx := ingestCtx()

	event := &model.WebhookEvent{
		Event:     "message",
		ChatID:    "5519989349254@domain",
		MessageID: "abc123",
		Text:      &model.TextContent{Message: "Hi"},
	}

	f.messageRepo.On("ExistsByExternalID", testifymock.Anything, "abc123").Return(true, nil)

	outcome, err := f.service.ProcessWebhookEvent(ctx, testInstance(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	f.messageRepo.AssertNotCalled(t, "Insert", testifymock.Anything, testifymock.Anything)
	f.contactRepo.AssertNotCalled(t, "Save", testifymock.Anything, testifymock.Anything)
}

// A racing concurrent delivery that slips past the existence check is
// absorbed by the insert conflict.
func TestProcessWebhookEvent_ConcurrentRedelivery(t *testing.T) {
	f := newIngestFixture(t)
	ctx := ingestCtx()

	event := &model.WebhookEvent{
		Event:     "message",
		ChatID:    "5519989349254@domain",
		MessageID: "abc123",
		Body:      "Hi",
	}

	f.messageRepo.On("ExistsByExternalID", testifymock.Anything, "abc123").Return(false, nil)
	f.contactRepo.On("FindByPhone", testifymock.Anything, "+5519989349254").
		Return(&model.Contact{ID: "contact-1", Phone: "+5519989349254"}, nil)
	f.messageRepo.On("Insert", testifymock.Anything, testifymock.Anything).Return(false, nil)

	outcome, err := f.service.ProcessWebhookEvent(ctx, testInstance(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	f.contactRepo.AssertNotCalled(t, "TouchLastMessage", testifymock.Anything, testifymock.Anything, testifymock.Anything)
}

func TestProcessWebhookEvent_ConnectionEvent(t *testing.T) {
	f := newIngestFixture(t)
	ctx := ingestCtx()

	event := &model.WebhookEvent{
		Event:  "connection",
		Status: "connected",
		Phone:  "55 (19) 98934-9254",
	}

	f.instanceRepo.On("UpdateConnection", testifymock.Anything, "instance-1", model.InstanceStatusConnected, "+5519989349254").
		Return(nil)

	outcome, err := f.service.ProcessWebhookEvent(ctx, testInstance(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConnection, outcome)
	f.instanceRepo.AssertExpectations(t)
}

func TestProcessWebhookEvent_IgnoredEvents(t *testing.T) {
	testCases := []struct {
		name  string
		event *model.WebhookEvent
	}{
		{name: "no chat identifier", event: &model.WebhookEvent{Event: "message", Body: "hi"}},
		{name: "authored by ourselves", event: &model.WebhookEvent{Event: "message", ChatID: "5519989349254@domain", FromMe: true}},
		{name: "chat id without digits", event: &model.WebhookEvent{Event: "message", ChatID: "broadcast@domain"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newIngestFixture(t)
			outcome, err := f.service.ProcessWebhookEvent(ingestCtx(), testInstance(), tc.event)
			require.NoError(t, err)
			assert.Equal(t, OutcomeIgnored, outcome)
		})
	}
}

func TestProcessWebhookEvent_FormattedVariantResolution(t *testing.T) {
	f := newIngestFixture(t)
	ctx := ingestCtx()

	event := &model.WebhookEvent{
		Event:           "message",
		ChatID:          "5519989349254@domain",
		FormattedNumber: "+55 19 8934-9254",
		Body:            "oi",
	}

	f.contactRepo.On("FindByPhone", testifymock.Anything, "+5519989349254").Return(nil, apperrors.ErrNotFound)
	f.contactRepo.On("FindByPhone", testifymock.Anything, "+551989349254").
		Return(&model.Contact{ID: "contact-legacy", Phone: "+551989349254"}, nil)
	f.messageRepo.On("Insert", testifymock.Anything, testifymock.MatchedBy(func(m model.Message) bool {
		return m.ContactID == "contact-legacy"
	})).Return(true, nil)
	f.contactRepo.On("TouchLastMessage", testifymock.Anything, "contact-legacy", testifymock.Anything).Return(nil)

	outcome, err := f.service.ProcessWebhookEvent(ctx, testInstance(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, outcome)
	f.contactRepo.AssertNotCalled(t, "Save", testifymock.Anything, testifymock.Anything)
}

func TestProcessWebhookEvent_NameFallbackChain(t *testing.T) {
	f := newIngestFixture(t)
	ctx := ingestCtx()

	event := &model.WebhookEvent{
		Event:      "message",
		ChatID:     "5511000000001@domain",
		ChatName:   "Ana Chat",
		NotifyName: "Ana Notify",
		Body:       "hello",
	}

	f.contactRepo.On("FindByPhone", testifymock.Anything, "+5511000000001").Return(nil, apperrors.ErrNotFound)
	f.contactRepo.On("Save", testifymock.Anything, testifymock.MatchedBy(func(c model.Contact) bool {
		return c.Name == "Ana Chat"
	})).Return(nil)
	f.messageRepo.On("Insert", testifymock.Anything, testifymock.Anything).Return(true, nil)
	f.contactRepo.On("TouchLastMessage", testifymock.Anything, testifymock.Anything, testifymock.Anything).Return(nil)

	_, err := f.service.ProcessWebhookEvent(ctx, testInstance(), event)
	require.NoError(t, err)
	f.contactRepo.AssertExpectations(t)
}

func TestProcessWebhookEvent_ContactCreateFailureAborts(t *testing.T) {
	f := newIngestFixture(t)
	ctx := ingestCtx()

	event := &model.WebhookEvent{
		Event:  "message",
		ChatID: "5511000000002@domain",
		Body:   "hello",
	}

	f.contactRepo.On("FindByPhone", testifymock.Anything, "+5511000000002").Return(nil, apperrors.ErrNotFound)
	f.contactRepo.On("Save", testifymock.Anything, testifymock.Anything).
		Return(errors.New("connection reset"))

	_, err := f.service.ProcessWebhookEvent(ctx, testInstance(), event)
	require.Error(t, err)
	f.messageRepo.AssertNotCalled(t, "Insert", testifymock.Anything, testifymock.Anything)
}

// Media fetch failure: the message still persists with the localized
// fallback body and null media fields.
func TestProcessWebhookEvent_MediaFallback(t *testing.T) {
	f := newIngestFixture(t)
	ctx := ingestCtx()

	event := &model.WebhookEvent{
		Event:       "message",
		ChatID:      "5519989349254@domain",
		MessageID:   "media-1",
		MessageType: "imageMessage",
	}

	f.messageRepo.On("ExistsByExternalID", testifymock.Anything, "media-1").Return(false, nil)
	f.contactRepo.On("FindByPhone", testifymock.Anything, "+5519989349254").
		Return(&model.Contact{ID: "contact-1", Phone: "+5519989349254"}, nil)
	f.gateway.On("DownloadMedia", testifymock.Anything, "token-1", "media-1").
		Return("", "", errors.New("media expired"))
	f.messageRepo.On("Insert", testifymock.Anything, testifymock.MatchedBy(func(m model.Message) bool {
		return m.Body == "Imagem" && m.MediaURL == nil && m.MediaType == nil
	})).Return(true, nil)
	f.contactRepo.On("TouchLastMessage", testifymock.Anything, testifymock.Anything, testifymock.Anything).Return(nil)

	outcome, err := f.service.ProcessWebhookEvent(ctx, testInstance(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, outcome)
	f.messageRepo.AssertExpectations(t)
}

func TestResolveInstance_TokenPrecedence(t *testing.T) {
	f := newIngestFixture(t)

	instance := testInstance()
	f.instanceRepo.On("FindByToken", testifymock.Anything, "bad-token").Return(nil, apperrors.ErrNotFound)
	f.instanceRepo.On("FindByToken", testifymock.Anything, "token-1").Return(instance, nil)

	ctx, resolved, err := f.service.ResolveInstance(context.Background(), []string{"", "bad-token", "token-1"}, "")
	require.NoError(t, err)
	assert.Equal(t, instance.ID, resolved.ID)

	orgID, err := tenant.FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, testOrgID, orgID)
}

func TestResolveInstance_SoleFallback(t *testing.T) {
	f := newIngestFixture(t)

	instance := testInstance()
	f.instanceRepo.On("FindSole", testifymock.Anything).Return(instance, nil)

	_, resolved, err := f.service.ResolveInstance(context.Background(), nil, testOrgID)
	require.NoError(t, err)
	assert.Equal(t, instance.ID, resolved.ID)
}

func TestResolveInstance_FallbackRefusesAmbiguity(t *testing.T) {
	f := newIngestFixture(t)

	f.instanceRepo.On("FindSole", testifymock.Anything).
		Return(nil, apperrors.ErrConflict)

	_, _, err := f.service.ResolveInstance(context.Background(), []string{}, testOrgID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestResolveInstance_NoFallbackOrg(t *testing.T) {
	f := newIngestFixture(t)

	_, _, err := f.service.ResolveInstance(context.Background(), []string{""}, "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestSendMessage_GatewayFailureStillPersists(t *testing.T) {
	f := newIngestFixture(t)
	ctx := ingestCtx()

	f.contactRepo.On("FindByPhone", testifymock.Anything, "+5511000000003").
		Return(&model.Contact{ID: "contact-1", Phone: "+5511000000003"}, nil)
	f.gateway.On("SendText", testifymock.Anything, "token-1", "+5511000000003", "hello").
		Return("", errors.New("instance disconnected"))
	f.messageRepo.On("Insert", testifymock.Anything, testifymock.MatchedBy(func(m model.Message) bool {
		return m.Sender == model.SenderUser && m.Status == model.MessageStatusFailed
	})).Return(true, nil)

	message, err := f.service.SendMessage(ctx, testInstance(), "+5511000000003", "hello")
	require.Error(t, err)
	require.NotNil(t, message)
	assert.Equal(t, model.MessageStatusFailed, message.Status)
	f.messageRepo.AssertExpectations(t)
}

func TestSendMessage_Success(t *testing.T) {
	f := newIngestFixture(t)
	ctx := ingestCtx()

	f.contactRepo.On("FindByPhone", testifymock.Anything, "+5511000000004").
		Return(&model.Contact{ID: "contact-2", Phone: "+5511000000004"}, nil)
	f.gateway.On("SendText", testifymock.Anything, "token-1", "+5511000000004", "oi").
		Return("wamid.out-1", nil)
	f.messageRepo.On("Insert", testifymock.Anything, testifymock.MatchedBy(func(m model.Message) bool {
		return m.Status == model.MessageStatusSent && m.ExternalID != nil && *m.ExternalID == "wamid.out-1"
	})).Return(true, nil)
	f.contactRepo.On("TouchLastMessage", testifymock.Anything, "contact-2", testifymock.Anything).Return(nil)

	message, err := f.service.SendMessage(ctx, testInstance(), "+5511000000004", "oi")
	require.NoError(t, err)
	assert.Equal(t, model.MessageStatusSent, message.Status)
}
