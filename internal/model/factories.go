package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// NewInstance creates an Instance with default fake data for tests.
func NewInstance(overrideDefaults ...*Instance) *Instance {
	base := &Instance{
		ID:        uuid.New().String(),
		OrgID:     "org_" + gofakeit.LetterN(10),
		Token:     gofakeit.UUID(),
		Status:    InstanceStatusConnected,
		Phone:     "+55" + gofakeit.DigitN(11),
		CreatedAt: utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt: utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.OrgID != "" {
			base.OrgID = ovr.OrgID
		}
		if ovr.Token != "" {
			base.Token = ovr.Token
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.Phone != "" {
			base.Phone = ovr.Phone
		}
	}
	return base
}

// NewContact creates a Contact with default fake data for tests.
func NewContact(overrideDefaults ...*Contact) *Contact {
	base := &Contact{
		ID:        uuid.New().String(),
		OrgID:     "org_" + gofakeit.LetterN(10),
		Phone:     "+55" + gofakeit.DigitN(11),
		Name:      gofakeit.Name(),
		Status:    ContactStatusOpen,
		CreatedAt: utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt: utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.OrgID != "" {
			base.OrgID = ovr.OrgID
		}
		if ovr.Phone != "" {
			base.Phone = ovr.Phone
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.AvatarURL != "" {
			base.AvatarURL = ovr.AvatarURL
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
	}
	return base
}

// NewCampaign creates a Campaign with default fake data for tests.
func NewCampaign(overrideDefaults ...*Campaign) *Campaign {
	base := &Campaign{
		ID:            uuid.New().String(),
		OrgID:         "org_" + gofakeit.LetterN(10),
		Name:          gofakeit.ProductName(),
		Status:        CampaignStatusSending,
		TotalContacts: gofakeit.Number(1, 500),
		CreatedAt:     utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt:     utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.OrgID != "" {
			base.OrgID = ovr.OrgID
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.TotalContacts != 0 {
			base.TotalContacts = ovr.TotalContacts
		}
		base.SentCount = ovr.SentCount
		base.FailedCount = ovr.FailedCount
		if ovr.ExternalJobID != nil {
			base.ExternalJobID = ovr.ExternalJobID
		}
		if ovr.ScheduledAt != nil {
			base.ScheduledAt = ovr.ScheduledAt
		}
	}
	return base
}
