// Package services provides external service integrations and technical concerns like geolocation and tokens
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/amirphl/Kusanagi/config"
)

// GeoInfo holds the subset of ip-api fields we record on clicks
type GeoInfo struct {
	Country string
	City    string
}

// GeolocationService resolves a client IP to a coarse location
// Lookups are best-effort: callers fall back to Unknown on any error
type GeolocationService interface {
	Lookup(ctx context.Context, ip string) (*GeoInfo, error)
}

type httpGeolocationClient struct {
	cfg    config.GeolocationConfig
	client *http.Client
}

// NewGeolocationService constructs an ip-api.com backed geolocation client
func NewGeolocationService(cfg config.GeolocationConfig) GeolocationService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &httpGeolocationClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *httpGeolocationClient) Lookup(ctx context.Context, ip string) (*GeoInfo, error) {
	baseURL := c.cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://ip-api.com/json"
	}

	u, err := url.Parse(baseURL + "/" + url.PathEscape(ip))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("fields", "status,message,country,city")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ip-api http status: %d", resp.StatusCode)
	}

	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Country string `json:"country"`
		City    string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("ip-api lookup failed: %s", out.Message)
	}

	return &GeoInfo{Country: out.Country, City: out.City}, nil
}
