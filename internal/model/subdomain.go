package model

import (
	"time"

	"gorm.io/datatypes"
)

// SubdomainStatus represents subdomain lifecycle status
type SubdomainStatus = string

const (
	SubdomainStatusActive  SubdomainStatus = "active"
	SubdomainStatusExpired SubdomainStatus = "expired"
)

// Subdomain represents a dynamically leased subdomain and its proxy target
type Subdomain struct {
	ID          int               `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string            `gorm:"type:varchar(63);uniqueIndex;not null" json:"name"`
	CustomerID  string            `gorm:"type:varchar(64);index:idx_subdomains_customer_id;not null" json:"customerId"`
	PrototypeID string            `gorm:"type:varchar(64)" json:"prototypeId,omitempty"`
	TargetURL   string            `gorm:"type:varchar(512);not null" json:"targetUrl"`
	Status      SubdomainStatus   `gorm:"type:varchar(20);index:idx_subdomains_status;not null;default:active" json:"status"`
	ExpiresAt   *time.Time        `json:"expiresAt,omitempty"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"autoCreateTime;index:idx_subdomains_created_at" json:"createdAt"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for Subdomain model
func (Subdomain) TableName() string {
	return "subdomains"
}

// Expired reports whether the record has an expiry strictly in the past.
// The stored status may still say active until the sweep catches up.
func (s *Subdomain) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}
