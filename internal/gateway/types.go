package gateway

import "context"

// Campaign control actions understood by the gateway.
const (
	ActionStop     = "stop"
	ActionContinue = "continue"
	ActionDelete   = "delete"
)

// Client is the WhatsApp gateway surface this service consumes. Every call
// authenticates with the per-instance credential token.
type Client interface {
	// SendText dispatches a text message and returns the gateway message id.
	SendText(ctx context.Context, token, phone, body string) (string, error)
	// DownloadMedia fetches media content by gateway message id. The content
	// comes back base64-encoded together with its MIME type.
	DownloadMedia(ctx context.Context, token, messageID string) (string, string, error)
	// CreateCampaign submits a mass-send batch and returns the opaque job id.
	CreateCampaign(ctx context.Context, token string, req CreateCampaignRequest) (string, error)
	// ControlCampaign applies a stop/continue/delete action to a running job.
	ControlCampaign(ctx context.Context, token, jobID, action string) error
	// GetCampaignStatus returns the gateway's authoritative view of a job.
	// An empty snapshot with ErrNotFound means the gateway has no record yet.
	GetCampaignStatus(ctx context.Context, token, jobID string) (StatusSnapshot, error)
}

// BatchMessage is one per-recipient message in the gateway's batch shape.
type BatchMessage struct {
	Phone   string      `json:"phone"`
	Kind    string      `json:"kind"`
	Body    string      `json:"body,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// CreateCampaignRequest is the mass-campaign submission body.
type CreateCampaignRequest struct {
	DelayMin    int            `json:"delay_min"`
	DelayMax    int            `json:"delay_max"`
	Label       string         `json:"label"`
	LeadMinutes int            `json:"lead_minutes"`
	Messages    []BatchMessage `json:"messages"`
}

// StatusSnapshot is the gateway's progress report for a campaign job.
type StatusSnapshot struct {
	Status      string `json:"status"`
	SentCount   int    `json:"sent_count"`
	FailedCount int    `json:"failed_count"`
}

// Empty reports whether the gateway returned no record for the job.
func (s StatusSnapshot) Empty() bool {
	return s.Status == "" && s.SentCount == 0 && s.FailedCount == 0
}
