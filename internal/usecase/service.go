package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/media"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/observer"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/storage"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/utils"
)

const lastSeenQueueSize = 256

// lastSeenBump is a queued fire-and-forget instance usage update.
type lastSeenBump struct {
	orgID      string
	instanceID string
	at         time.Time
}

// IngestService processes inbound webhook events: instance resolution,
// message deduplication, contact resolution, media handling and the
// outbound send path.
type IngestService struct {
	instanceRepo storage.InstanceRepo
	contactRepo  storage.ContactRepo
	messageRepo  storage.MessageRepo
	gateway      gateway.Client
	media        *media.Pipeline

	lastSeenCh chan lastSeenBump
	done       chan struct{}
}

// NewIngestService creates an ingest service and starts its last-seen drain
// goroutine. Call Stop on shutdown.
func NewIngestService(
	instanceRepo storage.InstanceRepo,
	contactRepo storage.ContactRepo,
	messageRepo storage.MessageRepo,
	gatewayClient gateway.Client,
	mediaPipeline *media.Pipeline,
) *IngestService {
	s := &IngestService{
		instanceRepo: instanceRepo,
		contactRepo:  contactRepo,
		messageRepo:  messageRepo,
		gateway:      gatewayClient,
		media:        mediaPipeline,
		lastSeenCh:   make(chan lastSeenBump, lastSeenQueueSize),
		done:         make(chan struct{}),
	}
	go s.drainLastSeen()
	return s
}

// Stop shuts down the background last-seen drain.
func (s *IngestService) Stop() {
	close(s.done)
}

// bumpLastSeen queues an instance usage timestamp update. The write happens
// off the request path; a full queue drops the bump rather than blocking.
func (s *IngestService) bumpLastSeen(ctx context.Context, instanceID string) {
	orgID, err := tenant.FromContext(ctx)
	if err != nil {
		return
	}
	select {
	case s.lastSeenCh <- lastSeenBump{orgID: orgID, instanceID: instanceID, at: utils.Now()}:
	default:
		observer.IncFireAndForgetError("last_seen_queue_full")
	}
}

func (s *IngestService) drainLastSeen() {
	for {
		select {
		case <-s.done:
			return
		case bump := <-s.lastSeenCh:
			ctx := tenant.WithOrgID(context.Background(), bump.orgID)
			if err := s.instanceRepo.TouchLastSeen(ctx, bump.instanceID, bump.at); err != nil {
				observer.IncFireAndForgetError("last_seen_write")
				logger.Log.Warn("Failed to bump instance last seen",
					zap.String("instance_id", bump.instanceID),
					zap.Error(err))
			}
		}
	}
}
