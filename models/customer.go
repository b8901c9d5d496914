// Package models contains domain entities and business models for the link shortening service
package models

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_customers_uuid;index:idx_customers_uuid" json:"uuid"`

	Email        string  `gorm:"size:255;not null;uniqueIndex:idx_customers_email" json:"email"`
	PasswordHash string  `gorm:"size:255;not null" json:"-"` // Never serialize password hash
	DisplayName  *string `gorm:"size:255" json:"display_name,omitempty"`

	// Plans other than free are provisioned manually for now
	Plan string `gorm:"size:32;not null;default:'free'" json:"plan"`

	IsActive *bool `gorm:"default:true;index:idx_customers_is_active" json:"is_active"`

	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_customers_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_customers_last_login_at" json:"last_login_at,omitempty"`

	// Relations
	Sessions   []CustomerSession `gorm:"foreignKey:CustomerID" json:"-"`
	AuditLogs  []AuditLog        `gorm:"foreignKey:CustomerID" json:"-"`
	ShortLinks []ShortLink       `gorm:"foreignKey:CustomerID" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}

// CustomerFilter represents filter criteria for customer queries
type CustomerFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Email         *string
	Plan          *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// Plan name constants
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

func (c *Customer) IsFreePlan() bool {
	return c.Plan == "" || c.Plan == PlanFree
}
