// Package tests contains integration tests for short link resolution
package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/app/scheduler"
	"github.com/amirphl/Kusanagi/app/services"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingClickSink captures tracked click events for assertions
type recordingClickSink struct {
	mu     sync.Mutex
	events []scheduler.ClickEvent
}

func (s *recordingClickSink) Track(event scheduler.ClickEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingClickSink) all() []scheduler.ClickEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scheduler.ClickEvent(nil), s.events...)
}

func TestResolve(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)

		linkRepo := repository.NewShortLinkRepository(testDB.DB)
		guestStore := newMemoryGuestStore()
		sink := &recordingClickSink{}

		flow := businessflow.NewResolveFlow(linkRepo, guestStore, sink)

		metadata := businessflow.NewClientMetadata("203.0.113.7", "Test Agent")
		metadata.Referrer = "https://referrer.example.com"

		customer, err := fixtures.CreateTestCustomer(models.PlanPro)
		require.NoError(t, err)

		t.Run("PersistentLinkHit", func(t *testing.T) {
			link, err := fixtures.CreateTestShortLink(&customer.ID, "hit001", "https://example.com/landing")
			require.NoError(t, err)

			destination, err := flow.Resolve(ctx, "hit001", nil, metadata)
			require.NoError(t, err)
			assert.Equal(t, "https://example.com/landing", destination)

			// The redirect bumps the denormalized counter
			fresh, err := linkRepo.ByID(ctx, link.ID)
			require.NoError(t, err)
			assert.Equal(t, uint(1), fresh.Clicks)

			events := sink.all()
			require.Len(t, events, 1)
			assert.Equal(t, link.ID, events[0].ShortLinkID)
			assert.Equal(t, "hit001", events[0].Code)
			assert.Equal(t, "203.0.113.7", events[0].IP)
			assert.Equal(t, "https://referrer.example.com", events[0].Referrer)
		})

		t.Run("CodeNormalized", func(t *testing.T) {
			_, err := fixtures.CreateTestShortLink(&customer.ID, "mixed1", "https://example.com/case")
			require.NoError(t, err)

			destination, err := flow.Resolve(ctx, "  MiXeD1  ", nil, metadata)
			require.NoError(t, err)
			assert.Equal(t, "https://example.com/case", destination)
		})

		t.Run("GuestLinkWinsForAnonymous", func(t *testing.T) {
			// Same code in both stores; anonymous resolution prefers the guest entry
			_, err := fixtures.CreateTestShortLink(&customer.ID, "shared", "https://example.com/persistent")
			require.NoError(t, err)

			now := utils.UTCNow()
			require.NoError(t, guestStore.Save(ctx, &services.GuestLink{
				Code:        "shared",
				Destination: "https://example.com/guest",
				CreatedAt:   now,
				ExpiresAt:   now.Add(time.Hour),
			}))

			trackedBefore := len(sink.all())

			destination, err := flow.Resolve(ctx, "shared", nil, metadata)
			require.NoError(t, err)
			assert.Equal(t, "https://example.com/guest", destination)

			// Guest-store redirects record no clicks
			assert.Len(t, sink.all(), trackedBefore)

			// Authenticated visitors only see the persistent store
			destination, err = flow.Resolve(ctx, "shared", &customer.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, "https://example.com/persistent", destination)

			// The persistent-store hit is the one that tracks a click
			events := sink.all()
			require.Len(t, events, trackedBefore+1)
			assert.Equal(t, "shared", events[len(events)-1].Code)
		})

		t.Run("ExpiredGuestLinkFallsThrough", func(t *testing.T) {
			_, err := fixtures.CreateTestShortLink(&customer.ID, "stale1", "https://example.com/fallback")
			require.NoError(t, err)

			now := utils.UTCNow()
			require.NoError(t, guestStore.Save(ctx, &services.GuestLink{
				Code:        "stale1",
				Destination: "https://example.com/expired",
				CreatedAt:   now.Add(-25 * time.Hour),
				ExpiresAt:   now.Add(-time.Hour),
			}))

			destination, err := flow.Resolve(ctx, "stale1", nil, metadata)
			require.NoError(t, err)
			assert.Equal(t, "https://example.com/fallback", destination)
		})

		t.Run("NotFound", func(t *testing.T) {
			_, err := flow.Resolve(ctx, "zzz999", nil, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLinkNotFound(err))
		})

		t.Run("EmptyCode", func(t *testing.T) {
			_, err := flow.Resolve(ctx, "   ", nil, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLinkNotFound(err))
		})

		return nil
	})

	require.NoError(t, err)
}
