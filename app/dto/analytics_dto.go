package dto

// AnalyticsSummaryResponse aggregates click analytics for one link
type AnalyticsSummaryResponse struct {
	Link         ShortLinkDTO      `json:"link"`
	TotalClicks  int64             `json:"total_clicks" example:"134"`
	ClicksToday  int64             `json:"clicks_today" example:"12"`
	ClicksWeek   int64             `json:"clicks_week" example:"58"`
	ClicksMonth  int64             `json:"clicks_month" example:"107"`
	TopCountries []ValueCountDTO   `json:"top_countries"`
	TopDevices   []ValueCountDTO   `json:"top_devices"`
	TopBrowsers  []ValueCountDTO   `json:"top_browsers"`
	Hourly       []HourlyBucketDTO `json:"hourly"`
}

// ValueCountDTO is one row of a grouped aggregation
type ValueCountDTO struct {
	Value string `json:"value" example:"Germany"`
	Count int64  `json:"count" example:"42"`
}

// HourlyBucketDTO is one bucket of the 24-hour click histogram (UTC hours)
type HourlyBucketDTO struct {
	Hour  int   `json:"hour" example:"14"`
	Count int64 `json:"count" example:"9"`
}

// ClickDTO represents a raw click row for exports and listings
type ClickDTO struct {
	ID         uint    `json:"id"`
	DeviceType *string `json:"device_type,omitempty"`
	Browser    *string `json:"browser,omitempty"`
	OS         *string `json:"os,omitempty"`
	Referrer   *string `json:"referrer,omitempty"`
	Country    *string `json:"country,omitempty"`
	City       *string `json:"city,omitempty"`
	CreatedAt  string  `json:"created_at"`
}
