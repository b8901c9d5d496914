// Package services provides external service integrations and technical concerns like geolocation and tokens
package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/Kusanagi/config"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/redis/go-redis/v9"
)

// GuestLink is a short link created by an anonymous visitor
// Guest links live in Redis only and expire 24 hours after creation
type GuestLink struct {
	Code        string    `json:"code"`
	Destination string    `json:"destination"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired reports whether the entry passed its recorded expiry
func (g *GuestLink) IsExpired() bool {
	return utils.UTCNow().After(g.ExpiresAt)
}

// GuestLinkStore persists anonymous short links
// Entries carry their own expiry on top of the Redis TTL so reads can
// evict lazily even when the TTL lags behind
type GuestLinkStore interface {
	Save(ctx context.Context, link *GuestLink) error
	Get(ctx context.Context, code string) (*GuestLink, error)
	Exists(ctx context.Context, code string) (bool, error)
	Delete(ctx context.Context, code string) error
}

type redisGuestLinkStore struct {
	rc  *redis.Client
	cfg config.CacheConfig
	ttl time.Duration
}

// NewGuestLinkStore constructs a Redis backed guest link store
func NewGuestLinkStore(rc *redis.Client, cfg config.CacheConfig, ttl time.Duration) GuestLinkStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisGuestLinkStore{rc: rc, cfg: cfg, ttl: ttl}
}

func (s *redisGuestLinkStore) key(code string) string {
	prefix := strings.TrimSuffix(s.cfg.RedisPrefix, ":")
	if prefix == "" {
		prefix = "kusanagi"
	}
	return fmt.Sprintf("%s:guest_link:%s", prefix, code)
}

func (s *redisGuestLinkStore) Save(ctx context.Context, link *GuestLink) error {
	if s.rc == nil {
		return errors.New("redis client not configured")
	}

	payload, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal guest link: %w", err)
	}

	// Stored base64-encoded to keep payloads opaque to casual inspection
	encoded := base64.StdEncoding.EncodeToString(payload)

	ttl := time.Until(link.ExpiresAt)
	if ttl <= 0 {
		ttl = s.ttl
	}

	if err := s.rc.Set(ctx, s.key(link.Code), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store guest link: %w", err)
	}
	return nil
}

// Get returns the guest link for code, or nil when absent
// Entries past their recorded expiry are deleted and reported as a miss
func (s *redisGuestLinkStore) Get(ctx context.Context, code string) (*GuestLink, error) {
	if s.rc == nil {
		return nil, errors.New("redis client not configured")
	}

	raw, err := s.rc.Get(ctx, s.key(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guest link: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode guest link: %w", err)
	}

	var link GuestLink
	if err := json.Unmarshal(decoded, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guest link: %w", err)
	}

	if link.IsExpired() {
		_ = s.rc.Del(ctx, s.key(code)).Err()
		return nil, nil
	}

	return &link, nil
}

func (s *redisGuestLinkStore) Exists(ctx context.Context, code string) (bool, error) {
	link, err := s.Get(ctx, code)
	if err != nil {
		return false, err
	}
	return link != nil, nil
}

func (s *redisGuestLinkStore) Delete(ctx context.Context, code string) error {
	if s.rc == nil {
		return errors.New("redis client not configured")
	}
	return s.rc.Del(ctx, s.key(code)).Err()
}
