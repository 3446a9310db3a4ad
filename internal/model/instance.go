package model

import (
	"time"
)

const (
	InstanceStatusDisconnected = "disconnected"
	InstanceStatusConnecting   = "connecting"
	InstanceStatusConnected    = "connected"
)

// Instance represents a tenant's gateway session in the PostgreSQL database.
// One organization owns one or more instances; each instance maps to a
// single credential token at the gateway.
type Instance struct {
	ID         string     `json:"id" gorm:"primaryKey;type:text"`
	OrgID      string     `json:"org_id" gorm:"column:org_id;index;type:text" validate:"required"`
	Token      string     `json:"token" gorm:"uniqueIndex;type:text" validate:"required"`
	Status     string     `json:"status,omitempty" gorm:"type:text;default:disconnected"` // disconnected, connecting, connected
	Phone      string     `json:"phone,omitempty" gorm:"type:text"`                       // bound phone number, set on connect
	LastSeenAt *time.Time `json:"last_seen_at,omitempty" gorm:"column:last_seen_at"`
	CreatedAt  time.Time  `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Instance model.
func (Instance) TableName() string {
	return "instances"
}

// InstanceConnectionColumns returns the columns mutated by connection events.
func InstanceConnectionColumns() []string {
	return []string{"status", "phone", "updated_at"}
}
