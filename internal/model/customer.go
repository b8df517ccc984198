package model

import (
	"time"

	"gorm.io/datatypes"
)

// CustomerStatus represents customer status
type CustomerStatus = string

const (
	CustomerStatusActive CustomerStatus = "active"
)

// Customer owns zero or more subdomains. The id is caller-supplied; a
// minimal row is created on first reference if none exists.
type Customer struct {
	ID        string            `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name      string            `gorm:"type:varchar(255);not null" json:"name"`
	Email     string            `gorm:"type:varchar(255)" json:"email,omitempty"`
	Status    CustomerStatus    `gorm:"type:varchar(20);index:idx_customers_status;not null;default:active" json:"status"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for Customer model
func (Customer) TableName() string {
	return "customers"
}
