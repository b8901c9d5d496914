// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortLinkRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewShortLinkRepository(testDB.DB)

		customer, err := fixtures.CreateTestCustomer(models.PlanFree)
		require.NoError(t, err)

		t.Run("SaveAndByCode", func(t *testing.T) {
			link := &models.ShortLink{
				Code:        "abc123",
				Destination: "https://example.com/landing",
				CustomerID:  &customer.ID,
				IsCustom:    utils.ToPtr(false),
			}
			require.NoError(t, repo.Save(ctx, link))
			require.NotZero(t, link.ID)

			found, err := repo.ByCode(ctx, "abc123")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, link.ID, found.ID)
			assert.Equal(t, "https://example.com/landing", found.Destination)
		})

		t.Run("ByCodeMiss", func(t *testing.T) {
			found, err := repo.ByCode(ctx, "zzzzzz")
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ListAndCountByCustomer", func(t *testing.T) {
			owner, err := fixtures.CreateTestCustomer(models.PlanFree)
			require.NoError(t, err)

			for _, code := range []string{"own001", "own002", "own003"} {
				_, err := fixtures.CreateTestShortLink(&owner.ID, code, "")
				require.NoError(t, err)
			}

			count, err := repo.CountByCustomer(ctx, owner.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(3), count)

			rows, err := repo.ListByCustomer(ctx, owner.ID, 2, 0)
			require.NoError(t, err)
			assert.Len(t, rows, 2)

			rest, err := repo.ListByCustomer(ctx, owner.ID, 2, 2)
			require.NoError(t, err)
			assert.Len(t, rest, 1)
		})

		t.Run("UpdateDestinationAndCode", func(t *testing.T) {
			link, err := fixtures.CreateTestShortLink(&customer.ID, "upd001", "https://example.com/old")
			require.NoError(t, err)

			require.NoError(t, repo.UpdateDestination(ctx, link.ID, "https://example.com/new"))
			require.NoError(t, repo.UpdateCode(ctx, link.ID, "custom-alias"))

			fresh, err := repo.ByID(ctx, link.ID)
			require.NoError(t, err)
			require.NotNil(t, fresh)
			assert.Equal(t, "https://example.com/new", fresh.Destination)
			assert.Equal(t, "custom-alias", fresh.Code)
			assert.True(t, utils.IsTrue(fresh.IsCustom))
		})

		t.Run("IncrementClicks", func(t *testing.T) {
			link, err := fixtures.CreateTestShortLink(&customer.ID, "inc001", "")
			require.NoError(t, err)

			require.NoError(t, repo.IncrementClicks(ctx, link.ID))
			require.NoError(t, repo.IncrementClicks(ctx, link.ID))

			fresh, err := repo.ByID(ctx, link.ID)
			require.NoError(t, err)
			assert.Equal(t, uint(2), fresh.Clicks)
		})

		t.Run("DeleteWithClicks", func(t *testing.T) {
			link, err := fixtures.CreateTestShortLink(&customer.ID, "del001", "")
			require.NoError(t, err)
			_, err = fixtures.CreateTestClick(link.ID, "Germany", "Desktop")
			require.NoError(t, err)

			require.NoError(t, repo.DeleteWithClicks(ctx, link.ID))

			fresh, err := repo.ByID(ctx, link.ID)
			require.NoError(t, err)
			assert.Nil(t, fresh)

			var clickCount int64
			require.NoError(t, testDB.DB.Model(&models.ShortLinkClick{}).
				Where("short_link_id = ?", link.ID).Count(&clickCount).Error)
			assert.Zero(t, clickCount)
		})

		return nil
	})

	require.NoError(t, err)
}

func TestShortLinkClickRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewShortLinkClickRepository(testDB.DB)

		customer, err := fixtures.CreateTestCustomer(models.PlanFree)
		require.NoError(t, err)
		link, err := fixtures.CreateTestShortLink(&customer.ID, "stats1", "")
		require.NoError(t, err)

		t.Run("SaveBatch", func(t *testing.T) {
			batch := []*models.ShortLinkClick{
				{ShortLinkID: link.ID, Country: utils.ToPtr("Germany"), DeviceType: utils.ToPtr("Desktop")},
				{ShortLinkID: link.ID, Country: utils.ToPtr("Germany"), DeviceType: utils.ToPtr("Mobile")},
				{ShortLinkID: link.ID, Country: utils.ToPtr("France"), DeviceType: utils.ToPtr("Desktop")},
				{ShortLinkID: link.ID},
			}
			require.NoError(t, repo.SaveBatch(ctx, batch))

			rows, err := repo.ListByShortLink(ctx, link.ID, 10, 0)
			require.NoError(t, err)
			assert.Len(t, rows, 4)
		})

		t.Run("CountSince", func(t *testing.T) {
			count, err := repo.CountSince(ctx, link.ID, time.Now().Add(-time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(4), count)

			future, err := repo.CountSince(ctx, link.ID, time.Now().Add(time.Hour))
			require.NoError(t, err)
			assert.Zero(t, future)
		})

		t.Run("TopValues", func(t *testing.T) {
			countries, err := repo.TopValues(ctx, link.ID, "country", 10)
			require.NoError(t, err)
			require.NotEmpty(t, countries)
			assert.Equal(t, "Germany", countries[0].Value)
			assert.Equal(t, int64(2), countries[0].Count)

			// NULL country is folded into Unknown
			var hasUnknown bool
			for _, vc := range countries {
				if vc.Value == "Unknown" {
					hasUnknown = true
					assert.Equal(t, int64(1), vc.Count)
				}
			}
			assert.True(t, hasUnknown)
		})

		t.Run("HourlyHistogram", func(t *testing.T) {
			buckets, err := repo.HourlyHistogram(ctx, link.ID)
			require.NoError(t, err)
			require.NotEmpty(t, buckets)

			var total int64
			for _, b := range buckets {
				assert.GreaterOrEqual(t, b.Hour, 0)
				assert.Less(t, b.Hour, 24)
				total += b.Count
			}
			assert.Equal(t, int64(4), total)
		})

		return nil
	})

	require.NoError(t, err)
}

func TestCustomerRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewCustomerRepository(testDB.DB)

		customer, err := fixtures.CreateTestCustomer(models.PlanFree)
		require.NoError(t, err)

		t.Run("ByEmail", func(t *testing.T) {
			found, err := repo.ByEmail(ctx, customer.Email)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, customer.ID, found.ID)
		})

		t.Run("ByEmailMiss", func(t *testing.T) {
			found, err := repo.ByEmail(ctx, "missing@example.com")
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ByUUID", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, customer.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, customer.Email, found.Email)
		})

		t.Run("UpdateLastLogin", func(t *testing.T) {
			now := utils.UTCNow()
			require.NoError(t, repo.UpdateLastLogin(ctx, customer.ID, now))

			fresh, err := repo.ByID(ctx, customer.ID)
			require.NoError(t, err)
			require.NotNil(t, fresh.LastLoginAt)
		})

		return nil
	})

	require.NoError(t, err)
}

func TestCustomerSessionRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewCustomerSessionRepository(testDB.DB)

		customer, err := fixtures.CreateTestCustomer(models.PlanFree)
		require.NoError(t, err)

		session, err := fixtures.CreateTestSession(customer.ID)
		require.NoError(t, err)

		t.Run("BySessionToken", func(t *testing.T) {
			found, err := repo.BySessionToken(ctx, session.SessionToken)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, customer.ID, found.CustomerID)
		})

		t.Run("ListActiveSessions", func(t *testing.T) {
			active, err := repo.ListActiveSessionsByCustomer(ctx, customer.ID)
			require.NoError(t, err)
			assert.Len(t, active, 1)
		})

		t.Run("ExpireSession", func(t *testing.T) {
			require.NoError(t, repo.ExpireSession(ctx, session.ID))

			active, err := repo.ListActiveSessionsByCustomer(ctx, customer.ID)
			require.NoError(t, err)
			assert.Empty(t, active)
		})

		t.Run("ExpireAllSessions", func(t *testing.T) {
			_, err := fixtures.CreateTestSession(customer.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestSession(customer.ID)
			require.NoError(t, err)

			require.NoError(t, repo.ExpireAllCustomerSessions(ctx, customer.ID))

			active, err := repo.ListActiveSessionsByCustomer(ctx, customer.ID)
			require.NoError(t, err)
			assert.Empty(t, active)
		})

		return nil
	})

	require.NoError(t, err)
}

func TestAuditLogRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewAuditLogRepository(testDB.DB)

		customer, err := fixtures.CreateTestCustomer(models.PlanFree)
		require.NoError(t, err)

		_, err = fixtures.CreateTestAuditLog(&customer.ID, models.AuditActionLinkCreated, true)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(&customer.ID, models.AuditActionLinkDeleted, true)
		require.NoError(t, err)

		t.Run("ListByCustomer", func(t *testing.T) {
			rows, err := repo.ListByCustomer(ctx, customer.ID, 10, 0)
			require.NoError(t, err)
			assert.Len(t, rows, 2)
		})

		t.Run("ListByAction", func(t *testing.T) {
			rows, err := repo.ListByAction(ctx, models.AuditActionLinkCreated, 10, 0)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, models.AuditActionLinkCreated, rows[0].Action)
		})

		return nil
	})

	require.NoError(t, err)
}
