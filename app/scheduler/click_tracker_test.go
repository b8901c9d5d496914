package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/app/services"
	"github.com/stretchr/testify/assert"
)

// recordingGeoService records the IPs it was asked to look up
type recordingGeoService struct {
	lookups []string
}

func (g *recordingGeoService) Lookup(_ context.Context, ip string) (*services.GeoInfo, error) {
	g.lookups = append(g.lookups, ip)
	return &services.GeoInfo{Country: "Germany", City: "Berlin"}, nil
}

func TestClassifyUserAgent(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		deviceType string
		browser    string
		os         string
	}{
		{
			name:       "ChromeOnWindows",
			userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			deviceType: "Desktop",
			browser:    "Chrome",
			os:         "Windows",
		},
		{
			name:       "SafariOnIPhone",
			userAgent:  "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			deviceType: "Mobile",
			browser:    "Safari",
			os:         "iOS",
		},
		{
			name:       "FirefoxOnLinux",
			userAgent:  "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			deviceType: "Desktop",
			browser:    "Firefox",
			os:         "Linux",
		},
		{
			name:       "EdgeOnWindows",
			userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			deviceType: "Desktop",
			browser:    "Edge",
			os:         "Windows",
		},
		{
			name:       "ChromeOnAndroid",
			userAgent:  "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			deviceType: "Mobile",
			browser:    "Chrome",
			os:         "Android",
		},
		{
			name:       "SafariOnIPad",
			userAgent:  "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/604.1",
			deviceType: "Tablet",
			browser:    "Safari",
			os:         "iOS",
		},
		{
			name:       "Googlebot",
			userAgent:  "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			deviceType: "Bot",
			browser:    "Unknown",
			os:         "Unknown",
		},
		{
			name:       "EmptyUserAgent",
			userAgent:  "",
			deviceType: "Desktop",
			browser:    "Unknown",
			os:         "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deviceType, browser, osName := classifyUserAgent(tt.userAgent)
			assert.Equal(t, tt.deviceType, deviceType)
			assert.Equal(t, tt.browser, browser)
			assert.Equal(t, tt.os, osName)
		})
	}
}

func TestClickTrackerEnrich(t *testing.T) {
	tracker := NewClickTracker(nil, nil, 0)

	event := ClickEvent{
		ShortLinkID: 7,
		Code:        "a1b2c3",
		UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Referrer:    "https://news.example.com/story",
		IP:          "203.0.113.7",
	}

	click := tracker.enrich(t.Context(), event)

	assert.Equal(t, uint(7), click.ShortLinkID)
	assert.Equal(t, "a1b2c3", *click.Code)
	assert.Equal(t, "Desktop", *click.DeviceType)
	assert.Equal(t, "Chrome", *click.Browser)
	assert.Equal(t, "Linux", *click.OS)
	assert.Equal(t, "https://news.example.com/story", *click.Referrer)
	assert.Equal(t, "203.0.113.7", *click.IP)
	// No geolocation service configured
	assert.Equal(t, "Unknown", *click.Country)
	assert.Equal(t, "Unknown", *click.City)
	assert.False(t, click.CreatedAt.IsZero())
}

func TestClickTrackerSanitizesInput(t *testing.T) {
	t.Run("OversizedFieldsTruncated", func(t *testing.T) {
		tracker := NewClickTracker(nil, nil, 0)

		event := ClickEvent{
			ShortLinkID: 1,
			Code:        "a1b2c3",
			UserAgent:   strings.Repeat("u", MaxUserAgentLength+100),
			Referrer:    strings.Repeat("r", MaxReferrerLength+100),
			IP:          "203.0.113.7",
		}

		click := tracker.enrich(t.Context(), event)

		assert.Len(t, *click.UserAgent, MaxUserAgentLength)
		assert.Len(t, *click.Referrer, MaxReferrerLength)
	})

	t.Run("MalformedIPNeverReachesGeolocation", func(t *testing.T) {
		geo := &recordingGeoService{}
		tracker := NewClickTracker(nil, geo, 0)

		click := tracker.enrich(t.Context(), ClickEvent{
			ShortLinkID: 1,
			Code:        "a1b2c3",
			IP:          "definitely-not-an-address",
		})

		assert.Empty(t, geo.lookups)
		assert.Nil(t, click.IP)
		assert.Equal(t, "Unknown", *click.Country)
	})

	t.Run("IPv6Cleared", func(t *testing.T) {
		geo := &recordingGeoService{}
		tracker := NewClickTracker(nil, geo, 0)

		click := tracker.enrich(t.Context(), ClickEvent{
			ShortLinkID: 1,
			Code:        "a1b2c3",
			IP:          "2001:db8::1",
		})

		assert.Empty(t, geo.lookups)
		assert.Nil(t, click.IP)
	})

	t.Run("ValidIPv4LookedUp", func(t *testing.T) {
		geo := &recordingGeoService{}
		tracker := NewClickTracker(nil, geo, 0)

		click := tracker.enrich(t.Context(), ClickEvent{
			ShortLinkID: 1,
			Code:        "a1b2c3",
			IP:          "203.0.113.7",
		})

		assert.Equal(t, []string{"203.0.113.7"}, geo.lookups)
		assert.Equal(t, "203.0.113.7", *click.IP)
		assert.Equal(t, "Germany", *click.Country)
		assert.Equal(t, "Berlin", *click.City)
	})
}

func TestClickTrackerStampsEventAtEnqueue(t *testing.T) {
	tracker := NewClickTracker(nil, nil, 2)

	before := time.Now().UTC()
	tracker.Track(ClickEvent{ShortLinkID: 1, Code: "a1b2c3"})
	after := time.Now().UTC()

	event := <-tracker.events
	assert.False(t, event.OccurredAt.Before(before))
	assert.False(t, event.OccurredAt.After(after))

	// The row keeps the enqueue timestamp even when enrichment runs later
	click := tracker.enrich(t.Context(), event)
	assert.Equal(t, event.OccurredAt, click.CreatedAt)
}

func TestClickTrackerTrackDoesNotBlock(t *testing.T) {
	tracker := NewClickTracker(nil, nil, 2)

	// Queue holds two events, a third must be dropped instead of blocking
	for i := 0; i < 5; i++ {
		tracker.Track(ClickEvent{ShortLinkID: uint(i), Code: "x"})
	}

	assert.Len(t, tracker.events, 2)
}
