package models

import "time"

// ShortLinkClick represents a single click event on a short link
// We keep a reference to short_links via ShortLinkID
// DeviceType, Browser and OS come from user agent classification
// Country and City come from best-effort IP geolocation
type ShortLinkClick struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ShortLinkID uint      `gorm:"index:idx_short_link_clicks_short_link_id;not null" json:"short_link_id"`
	Code        *string   `gorm:"size:50;index:idx_short_link_clicks_code" json:"code,omitempty"`
	UserAgent   *string   `gorm:"type:text" json:"user_agent,omitempty"`
	DeviceType  *string   `gorm:"size:32;index:idx_short_link_clicks_device_type" json:"device_type,omitempty"`
	Browser     *string   `gorm:"size:32" json:"browser,omitempty"`
	OS          *string   `gorm:"size:32" json:"os,omitempty"`
	Referrer    *string   `gorm:"type:text" json:"referrer,omitempty"`
	IP          *string   `gorm:"size:64" json:"ip,omitempty"`
	Country     *string   `gorm:"size:64;index:idx_short_link_clicks_country" json:"country,omitempty"`
	City        *string   `gorm:"size:128" json:"city,omitempty"`
	CreatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_short_link_clicks_created_at" json:"created_at"`
}

// TableName returns the table name for ShortLinkClick
func (ShortLinkClick) TableName() string { return "short_link_clicks" }

// ShortLinkClickFilter provides filter fields for repository queries
type ShortLinkClickFilter struct {
	ID            *uint
	ShortLinkID   *uint
	Code          *string
	DeviceType    *string
	Country       *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
