package models

import "time"

// ShortLink represents a persistent shortened link owned by a customer
// Code is the short token that maps to the destination URL
// CustomerID is nullable so rows survive account removal
// IsCustom marks aliases chosen by the customer instead of generated codes
type ShortLink struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"size:50;not null;uniqueIndex:uk_short_links_code;index:idx_short_links_code" json:"code"`
	Destination string    `gorm:"type:text;not null" json:"destination"`
	CustomerID  *uint     `gorm:"index:idx_short_links_customer_id" json:"customer_id,omitempty"`
	Customer    *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	IsCustom    *bool     `gorm:"default:false" json:"is_custom"`
	Clicks      uint      `gorm:"not null;default:0" json:"clicks"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_short_links_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for ShortLink
func (ShortLink) TableName() string { return "short_links" }

// ShortLinkFilter provides filter fields for repository queries
type ShortLinkFilter struct {
	ID            *uint
	Code          *string
	CustomerID    *uint
	IsCustom      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
