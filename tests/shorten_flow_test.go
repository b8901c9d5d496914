// Package tests contains integration tests for short link creation
package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/config"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryGuestStore is an in-memory GuestLinkStore for tests that need the
// anonymous path without a running Redis
type memoryGuestStore struct {
	mu    sync.Mutex
	links map[string]*services.GuestLink
}

func newMemoryGuestStore() *memoryGuestStore {
	return &memoryGuestStore{links: make(map[string]*services.GuestLink)}
}

func (m *memoryGuestStore) Save(ctx context.Context, link *services.GuestLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *link
	m.links[link.Code] = &copied
	return nil
}

func (m *memoryGuestStore) Get(ctx context.Context, code string) (*services.GuestLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[code]
	if !ok || link.IsExpired() {
		return nil, nil
	}
	copied := *link
	return &copied, nil
}

func (m *memoryGuestStore) Exists(ctx context.Context, code string) (bool, error) {
	link, err := m.Get(ctx, code)
	return link != nil, err
}

func (m *memoryGuestStore) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, code)
	return nil
}

func testShortenerConfig() config.ShortenerConfig {
	return config.ShortenerConfig{
		PublicBaseURL:       "https://kusanagi.test",
		FreeTierLinkLimit:   3,
		GuestLinkTTL:        24 * time.Hour,
		MaxBulkDestinations: 5,
	}
}

func TestShorten(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)

		linkRepo := repository.NewShortLinkRepository(testDB.DB)
		customerRepo := repository.NewCustomerRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		guestStore := newMemoryGuestStore()

		cfg := testShortenerConfig()
		flow := businessflow.NewShortenFlow(linkRepo, customerRepo, auditRepo, guestStore, cfg, testDB.DB)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test Agent")

		customer, err := fixtures.CreateTestCustomer(models.PlanPro)
		require.NoError(t, err)

		t.Run("GeneratedCodeForCustomer", func(t *testing.T) {
			resp, err := flow.Shorten(ctx, &dto.ShortenRequest{
				Destination: "https://example.com/some/long/path",
			}, &customer.ID, metadata)
			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Len(t, resp.Link.Code, businessflow.GeneratedCodeLength)
			assert.False(t, resp.Link.IsCustom)
			assert.Equal(t, "https://kusanagi.test/"+resp.Link.Code, resp.Link.ShortURL)

			row, err := linkRepo.ByCode(ctx, resp.Link.Code)
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, customer.ID, *row.CustomerID)
		})

		t.Run("CustomCodeForCustomer", func(t *testing.T) {
			custom := "My-Promo"
			resp, err := flow.Shorten(ctx, &dto.ShortenRequest{
				Destination: "https://example.com/promo",
				CustomCode:  &custom,
			}, &customer.ID, metadata)
			require.NoError(t, err)
			// Codes are normalized to lowercase
			assert.Equal(t, "my-promo", resp.Link.Code)
			assert.True(t, resp.Link.IsCustom)
		})

		t.Run("CustomCodeConflict", func(t *testing.T) {
			custom := "taken-code"
			_, err := flow.Shorten(ctx, &dto.ShortenRequest{
				Destination: "https://example.com/first",
				CustomCode:  &custom,
			}, &customer.ID, metadata)
			require.NoError(t, err)

			_, err = flow.Shorten(ctx, &dto.ShortenRequest{
				Destination: "https://example.com/second",
				CustomCode:  &custom,
			}, &customer.ID, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsCodeConflict(err))
		})

		t.Run("InvalidDestination", func(t *testing.T) {
			_, err := flow.Shorten(ctx, &dto.ShortenRequest{
				Destination: "ftp://example.com/file",
			}, &customer.ID, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidDestination(err))
		})

		t.Run("ReservedCustomCode", func(t *testing.T) {
			custom := "admin"
			_, err := flow.Shorten(ctx, &dto.ShortenRequest{
				Destination: "https://example.com/x",
				CustomCode:  &custom,
			}, &customer.ID, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCustomCode(err))
		})

		t.Run("FreeTierLimit", func(t *testing.T) {
			freeCustomer, err := fixtures.CreateTestCustomer(models.PlanFree)
			require.NoError(t, err)

			for i := 0; i < cfg.FreeTierLinkLimit; i++ {
				_, err := flow.Shorten(ctx, &dto.ShortenRequest{
					Destination: "https://example.com/free",
				}, &freeCustomer.ID, metadata)
				require.NoError(t, err)
			}

			_, err = flow.Shorten(ctx, &dto.ShortenRequest{
				Destination: "https://example.com/over",
			}, &freeCustomer.ID, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLinkLimitExceeded(err))
		})

		t.Run("AnonymousGuestLink", func(t *testing.T) {
			resp, err := flow.Shorten(ctx, &dto.ShortenRequest{
				Destination: "https://example.com/guest",
			}, nil, metadata)
			require.NoError(t, err)
			assert.Len(t, resp.Link.Code, businessflow.GeneratedCodeLength)
			assert.NotEmpty(t, resp.Link.ExpiresAt)

			stored, err := guestStore.Get(ctx, resp.Link.Code)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, "https://example.com/guest", stored.Destination)

			// Guest links never touch the persistent store
			row, err := linkRepo.ByCode(ctx, resp.Link.Code)
			require.NoError(t, err)
			assert.Nil(t, row)
		})

		t.Run("AnonymousCustomCodeConflict", func(t *testing.T) {
			custom := "guest-pick"
			_, err := flow.Shorten(ctx, &dto.ShortenRequest{
				Destination: "https://example.com/a",
				CustomCode:  &custom,
			}, nil, metadata)
			require.NoError(t, err)

			_, err = flow.Shorten(ctx, &dto.ShortenRequest{
				Destination: "https://example.com/b",
				CustomCode:  &custom,
			}, nil, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsCodeConflict(err))
		})

		return nil
	})

	require.NoError(t, err)
}

func TestBulkShorten(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)

		linkRepo := repository.NewShortLinkRepository(testDB.DB)
		customerRepo := repository.NewCustomerRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)

		cfg := testShortenerConfig()
		flow := businessflow.NewShortenFlow(linkRepo, customerRepo, auditRepo, newMemoryGuestStore(), cfg, testDB.DB)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test Agent")

		customer, err := fixtures.CreateTestCustomer(models.PlanPro)
		require.NoError(t, err)

		t.Run("PerItemOutcomes", func(t *testing.T) {
			resp, err := flow.BulkShorten(ctx, &dto.BulkShortenRequest{
				Destinations: []string{
					"https://example.com/one",
					"not-a-url",
					"https://example.com/two",
				},
			}, customer.ID, metadata)
			require.NoError(t, err)
			require.Len(t, resp.Items, 3)

			assert.NotNil(t, resp.Items[0].Link)
			assert.Nil(t, resp.Items[0].Error)

			assert.Nil(t, resp.Items[1].Link)
			require.NotNil(t, resp.Items[1].Error)
			assert.Equal(t, businessflow.ErrCodeInvalidDestination, resp.Items[1].Error.Code)

			assert.NotNil(t, resp.Items[2].Link)
		})

		t.Run("TooManyDestinations", func(t *testing.T) {
			destinations := make([]string, cfg.MaxBulkDestinations+1)
			for i := range destinations {
				destinations[i] = "https://example.com/bulk"
			}

			resp, err := flow.BulkShorten(ctx, &dto.BulkShortenRequest{Destinations: destinations}, customer.ID, metadata)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, businessflow.IsInvalidDestination(err))
		})

		return nil
	})

	require.NoError(t, err)
}
