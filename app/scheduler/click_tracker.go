// Package scheduler
package scheduler

import (
	"context"
	"log"
	"net"
	"strings"
	"time"

	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clicksRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortener_clicks_recorded_total",
		Help: "Click events written to storage",
	})
	clicksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortener_clicks_dropped_total",
		Help: "Click events dropped because the tracker queue was full",
	})
)

// Storage caps for client-supplied click fields
const (
	MaxUserAgentLength = 500
	MaxReferrerLength  = 200
	MaxIPLength        = 45
)

// ClickEvent carries the request context of one redirect
// OccurredAt is stamped at enqueue time so queue latency never skews timestamps
type ClickEvent struct {
	ShortLinkID uint
	Code        string
	UserAgent   string
	Referrer    string
	IP          string
	OccurredAt  time.Time
}

// ClickTracker consumes redirect events, enriches them with user agent
// classification and IP geolocation, and batch-inserts click rows.
// Tracking never blocks a redirect: a full queue drops the event.
type ClickTracker struct {
	clickRepo  repository.ShortLinkClickRepository
	geoSvc     services.GeolocationService
	events     chan ClickEvent
	batchSize  int
	flushEvery time.Duration
}

func NewClickTracker(
	clickRepo repository.ShortLinkClickRepository,
	geoSvc services.GeolocationService,
	queueSize int,
) *ClickTracker {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &ClickTracker{
		clickRepo:  clickRepo,
		geoSvc:     geoSvc,
		events:     make(chan ClickEvent, queueSize),
		batchSize:  50,
		flushEvery: 5 * time.Second,
	}
}

// Track enqueues a click event without blocking
func (t *ClickTracker) Track(event ClickEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = utils.UTCNow()
	}
	select {
	case t.events <- event:
	default:
		clicksDropped.Inc()
		log.Printf("click tracker: queue full, dropped event for code %s", event.Code)
	}
}

// Start launches the tracker loop in a background goroutine and returns a stop function
// The stop function drains buffered events before returning
func (t *ClickTracker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(t.flushEvery)
		defer ticker.Stop()

		batch := make([]*models.ShortLinkClick, 0, t.batchSize)

		flush := func() {
			if len(batch) == 0 {
				return
			}
			if err := t.clickRepo.SaveBatch(context.Background(), batch); err != nil {
				log.Printf("click tracker: failed to save %d clicks: %v", len(batch), err)
			} else {
				clicksRecorded.Add(float64(len(batch)))
			}
			batch = batch[:0]
		}

		for {
			select {
			case <-ctx.Done():
				// Drain whatever is still queued, then flush
				for {
					select {
					case event := <-t.events:
						batch = append(batch, t.enrich(context.Background(), event))
					default:
						flush()
						return
					}
				}
			case event := <-t.events:
				batch = append(batch, t.enrich(ctx, event))
				if len(batch) >= t.batchSize {
					flush()
				}
			case <-ticker.C:
				flush()
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// enrich builds a click row from the raw event
// Geolocation failures fall back to Unknown and never fail the row
func (t *ClickTracker) enrich(ctx context.Context, event ClickEvent) *models.ShortLinkClick {
	sanitizeEvent(&event)

	deviceType, browser, osName := classifyUserAgent(event.UserAgent)

	country, city := "Unknown", "Unknown"
	if t.geoSvc != nil && event.IP != "" {
		lookupCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if info, err := t.geoSvc.Lookup(lookupCtx, event.IP); err == nil && info != nil {
			if info.Country != "" {
				country = info.Country
			}
			if info.City != "" {
				city = info.City
			}
		}
		cancel()
	}

	createdAt := event.OccurredAt
	if createdAt.IsZero() {
		createdAt = utils.UTCNow()
	}

	click := &models.ShortLinkClick{
		ShortLinkID: event.ShortLinkID,
		Code:        &event.Code,
		DeviceType:  &deviceType,
		Browser:     &browser,
		OS:          &osName,
		Country:     &country,
		City:        &city,
		CreatedAt:   createdAt,
	}
	if event.UserAgent != "" {
		click.UserAgent = &event.UserAgent
	}
	if event.Referrer != "" {
		click.Referrer = &event.Referrer
	}
	if event.IP != "" {
		click.IP = &event.IP
	}
	return click
}

// sanitizeEvent caps the client-supplied fields and clears an IP that is not
// well-formed IPv4 so malformed input never reaches storage or geolocation
func sanitizeEvent(event *ClickEvent) {
	if len(event.UserAgent) > MaxUserAgentLength {
		event.UserAgent = event.UserAgent[:MaxUserAgentLength]
	}
	if len(event.Referrer) > MaxReferrerLength {
		event.Referrer = event.Referrer[:MaxReferrerLength]
	}
	if len(event.IP) > MaxIPLength {
		event.IP = event.IP[:MaxIPLength]
	}
	if event.IP != "" {
		parsed := net.ParseIP(event.IP)
		if parsed == nil || parsed.To4() == nil {
			event.IP = ""
		}
	}
}

// classifyUserAgent buckets a user agent into device type, browser and OS
// by case-insensitive substring matching
func classifyUserAgent(userAgent string) (deviceType, browser, osName string) {
	ua := strings.ToLower(userAgent)

	deviceType = "Desktop"
	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		deviceType = "Tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		deviceType = "Mobile"
	case strings.Contains(ua, "bot") || strings.Contains(ua, "crawler") || strings.Contains(ua, "spider"):
		deviceType = "Bot"
	}

	browser = "Unknown"
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge"):
		browser = "Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		browser = "Opera"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	}

	osName = "Unknown"
	switch {
	case strings.Contains(ua, "windows"):
		osName = "Windows"
	case strings.Contains(ua, "android"):
		osName = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		osName = "iOS"
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macintosh"):
		osName = "macOS"
	case strings.Contains(ua, "linux"):
		osName = "Linux"
	}

	return deviceType, browser, osName
}
