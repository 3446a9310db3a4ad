package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for webhook event metrics
	webhookEventLabels = []string{"event_type", "org_id"}
	// Labels for webhook event outcomes
	webhookOutcomeLabels = []string{"event_type", "org_id", "outcome", "error_type"}

	// WebhookEventsReceivedTotal counts inbound webhook deliveries.
	WebhookEventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_bridge_webhook_events_received_total",
			Help: "Total number of webhook events received from the gateway.",
		},
		webhookEventLabels,
	)
	// WebhookEventOutcomesTotal counts the outcome of each delivery.
	WebhookEventOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_bridge_webhook_event_outcomes_total",
			Help: "Total count of webhook processing outcomes, labeled by error type.",
		},
		webhookOutcomeLabels,
	)
	// WebhookProcessingDurationSeconds observes full ingestion durations.
	WebhookProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wa_bridge_webhook_processing_duration_seconds",
			Help:    "Histogram of webhook event processing durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		webhookEventLabels,
	)

	// InstanceFallbackResolutionsTotal counts token-absent sole-instance
	// fallbacks. Non-zero values under multi-instance tenancy are a smell.
	InstanceFallbackResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_bridge_instance_fallback_resolutions_total",
			Help: "Total number of webhook deliveries resolved via the sole-instance fallback.",
		},
		[]string{"org_id"},
	)

	// MediaPipelineFailuresTotal counts media fetch/decode/upload failures
	// that degraded a message to its fallback body.
	MediaPipelineFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_bridge_media_pipeline_failures_total",
			Help: "Total number of media pipeline failures, labeled by stage.",
		},
		[]string{"org_id", "stage"},
	)

	// Labels for database operations
	dbOperationLabels = []string{"operation", "entity", "org_id", "status"}

	// DatabaseOperationDurationSeconds observes repository call durations.
	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wa_bridge_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.DefBuckets,
		},
		dbOperationLabels,
	)

	// Labels for gateway calls
	gatewayLabels = []string{"operation", "org_id", "status"}

	// GatewayRequestDurationSeconds observes gateway client call durations.
	GatewayRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wa_bridge_gateway_request_duration_seconds",
			Help:    "Histogram of WhatsApp gateway request durations.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		gatewayLabels,
	)

	// ReconcileRunsTotal counts reconciliation passes per campaign outcome.
	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_bridge_reconcile_runs_total",
			Help: "Total number of campaign reconciliation passes, labeled by result.",
		},
		[]string{"org_id", "result"}, // result: updated, unchanged, skipped, error
	)

	// FireAndForgetErrorsTotal counts errors swallowed by fire-and-forget
	// side effects (e.g. instance last-seen bumps).
	FireAndForgetErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_bridge_fire_and_forget_errors_total",
			Help: "Total number of errors from non-blocking side effects.",
		},
		[]string{"effect"},
	)
)

// InitMetrics initializes Prometheus metric collection if enabled.
// Call this function during application startup.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IncWebhookEventReceived increments the webhook events received counter.
func IncWebhookEventReceived(eventType, orgID string) {
	if !metricsEnabled {
		return
	}
	WebhookEventsReceivedTotal.WithLabelValues(eventType, sanitizeOrg(orgID)).Inc()
}

// IncWebhookOutcome increments the counter for a processing outcome.
func IncWebhookOutcome(eventType, orgID, outcome, errorType string) {
	if !metricsEnabled {
		return
	}
	if errorType == "" {
		errorType = "none"
	}
	WebhookEventOutcomesTotal.WithLabelValues(eventType, sanitizeOrg(orgID), outcome, errorType).Inc()
}

// ObserveWebhookProcessingDuration records a full ingestion duration.
func ObserveWebhookProcessingDuration(eventType, orgID string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	WebhookProcessingDurationSeconds.WithLabelValues(eventType, sanitizeOrg(orgID)).Observe(duration.Seconds())
}

// IncInstanceFallbackResolution records a sole-instance fallback hit.
func IncInstanceFallbackResolution(orgID string) {
	if !metricsEnabled {
		return
	}
	InstanceFallbackResolutionsTotal.WithLabelValues(sanitizeOrg(orgID)).Inc()
}

// IncMediaPipelineFailure records a media pipeline failure for a stage.
func IncMediaPipelineFailure(orgID, stage string) {
	if !metricsEnabled {
		return
	}
	MediaPipelineFailuresTotal.WithLabelValues(sanitizeOrg(orgID), stage).Inc()
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity, orgID string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, sanitizeOrg(orgID), status).Observe(duration.Seconds())
}

// ObserveGatewayRequestDuration records the duration of a gateway call.
func ObserveGatewayRequestDuration(operation, orgID string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	GatewayRequestDurationSeconds.WithLabelValues(operation, sanitizeOrg(orgID), status).Observe(duration.Seconds())
}

// IncReconcileRun records a reconciliation pass outcome.
func IncReconcileRun(orgID, result string) {
	if !metricsEnabled {
		return
	}
	ReconcileRunsTotal.WithLabelValues(sanitizeOrg(orgID), result).Inc()
}

// IncFireAndForgetError records a swallowed side-effect error.
func IncFireAndForgetError(effect string) {
	if !metricsEnabled {
		return
	}
	FireAndForgetErrorsTotal.WithLabelValues(effect).Inc()
}

// sanitizeOrg ensures the org label is valid or returns a default value.
func sanitizeOrg(orgID string) string {
	if orgID == "" {
		return "unknown"
	}
	return orgID
}
