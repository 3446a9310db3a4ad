package usecase

import (
	"strings"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/model"
)

// namePlaceholder is substituted per recipient in template bodies.
const namePlaceholder = "{{nome}}"

// Recipient is one campaign target.
type Recipient struct {
	Phone string
	Name  string
}

// TemplatePart is one ordered piece of the campaign template.
type TemplatePart struct {
	Kind    string // text, buttons, list, document, carousel
	Body    string
	Payload interface{}
}

// BuildBatch expands recipients x ordered template parts into the flat
// per-recipient batch the gateway expects. The name placeholder resolves to
// the recipient name, falling back to the phone. Pure and deterministic.
func BuildBatch(recipients []Recipient, parts []TemplatePart) []gateway.BatchMessage {
	batch := make([]gateway.BatchMessage, 0, len(recipients)*len(parts))
	for _, recipient := range recipients {
		name := recipient.Name
		if name == "" {
			name = recipient.Phone
		}
		for _, part := range parts {
			batch = append(batch, gateway.BatchMessage{
				Phone:   recipient.Phone,
				Kind:    part.Kind,
				Body:    strings.ReplaceAll(part.Body, namePlaceholder, name),
				Payload: part.Payload,
			})
		}
	}
	return batch
}

// recipientRows converts recipients into audit rows for a campaign.
func recipientRows(campaignID string, recipients []Recipient) []model.CampaignRecipient {
	rows := make([]model.CampaignRecipient, 0, len(recipients))
	for _, recipient := range recipients {
		rows = append(rows, model.CampaignRecipient{
			CampaignID: campaignID,
			Phone:      recipient.Phone,
			Name:       recipient.Name,
		})
	}
	return rows
}
