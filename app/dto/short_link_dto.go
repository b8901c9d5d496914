package dto

// ShortenRequest defines input for creating a short link
// CustomCode is optional; when present it becomes the link's code instead of a generated one
type ShortenRequest struct {
	Destination string  `json:"destination" validate:"required,max=2000,destination_url" example:"https://example.com/some/long/path"`
	CustomCode  *string `json:"custom_code,omitempty" validate:"omitempty,min=1,max=50,short_code" example:"my-link"`
}

// ShortenResponse returns the created short link
type ShortenResponse struct {
	Link ShortLinkDTO `json:"link"`
}

// BulkShortenRequest defines input for creating several short links at once
type BulkShortenRequest struct {
	Destinations []string `json:"destinations" validate:"required,min=1,max=20,dive,required,max=2000,destination_url"`
}

// BulkShortenItem is the per-destination outcome of a bulk shorten call
type BulkShortenItem struct {
	Destination string        `json:"destination"`
	Link        *ShortLinkDTO `json:"link,omitempty"`
	Error       *ErrorDetail  `json:"error,omitempty"`
}

// BulkShortenResponse returns per-item results in request order
type BulkShortenResponse struct {
	Items []BulkShortenItem `json:"items"`
}

// UpdateShortLinkRequest defines input for editing a link's destination or code
// At least one field must be present
type UpdateShortLinkRequest struct {
	Destination *string `json:"destination,omitempty" validate:"omitempty,max=2000,destination_url"`
	CustomCode  *string `json:"custom_code,omitempty" validate:"omitempty,min=1,max=50,short_code"`
}

// ListShortLinksRequest defines paging input for the dashboard link list
type ListShortLinksRequest struct {
	Page     int `query:"page" validate:"omitempty,min=1" example:"1"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=100" example:"20"`
}

// ListShortLinksResponse returns a page of the customer's links
type ListShortLinksResponse struct {
	Links      []ShortLinkDTO `json:"links"`
	Pagination Pagination     `json:"pagination"`
}

// ShortLinkDTO represents a short link for API responses
type ShortLinkDTO struct {
	ID          uint   `json:"id" example:"42"`
	Code        string `json:"code" example:"a1b2c3"`
	ShortURL    string `json:"short_url" example:"https://ksng.li/a1b2c3"`
	Destination string `json:"destination" example:"https://example.com/some/long/path"`
	IsCustom    bool   `json:"is_custom" example:"false"`
	Clicks      uint   `json:"clicks" example:"7"`
	CreatedAt   string `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt   string `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	ExpiresAt   string `json:"expires_at,omitempty" example:"2024-01-16T10:30:00Z"`
}
