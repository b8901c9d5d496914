// Package tests contains integration tests for click analytics
package tests

import (
	"bytes"
	"context"
	"testing"

	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAnalyticsSummary(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)

		linkRepo := repository.NewShortLinkRepository(testDB.DB)
		clickRepo := repository.NewShortLinkClickRepository(testDB.DB)
		flow := businessflow.NewAnalyticsFlow(linkRepo, clickRepo, testShortenerConfig())

		customer, err := fixtures.CreateTestCustomer(models.PlanPro)
		require.NoError(t, err)
		link, err := fixtures.CreateTestShortLink(&customer.ID, "stat01", "")
		require.NoError(t, err)

		for _, c := range []struct{ country, device string }{
			{"Germany", "Desktop"},
			{"Germany", "Mobile"},
			{"France", "Desktop"},
		} {
			_, err := fixtures.CreateTestClick(link.ID, c.country, c.device)
			require.NoError(t, err)
		}

		t.Run("Totals", func(t *testing.T) {
			summary, err := flow.Summary(ctx, link.ID, customer.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(3), summary.TotalClicks)
			assert.Equal(t, int64(3), summary.ClicksToday)
			assert.Equal(t, int64(3), summary.ClicksWeek)
			assert.Equal(t, int64(3), summary.ClicksMonth)
			assert.Equal(t, "stat01", summary.Link.Code)
		})

		t.Run("TopGroupings", func(t *testing.T) {
			summary, err := flow.Summary(ctx, link.ID, customer.ID)
			require.NoError(t, err)

			require.NotEmpty(t, summary.TopCountries)
			assert.Equal(t, "Germany", summary.TopCountries[0].Value)
			assert.Equal(t, int64(2), summary.TopCountries[0].Count)

			require.NotEmpty(t, summary.TopDevices)
			assert.Equal(t, "Desktop", summary.TopDevices[0].Value)
		})

		t.Run("HourlyHasAllBuckets", func(t *testing.T) {
			summary, err := flow.Summary(ctx, link.ID, customer.ID)
			require.NoError(t, err)
			require.Len(t, summary.Hourly, 24)

			var total int64
			for i, bucket := range summary.Hourly {
				assert.Equal(t, i, bucket.Hour)
				total += bucket.Count
			}
			assert.Equal(t, int64(3), total)
		})

		t.Run("OtherCustomersLink", func(t *testing.T) {
			other, err := fixtures.CreateTestCustomer(models.PlanFree)
			require.NoError(t, err)

			_, err = flow.Summary(ctx, link.ID, other.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsLinkAccessDenied(err))
		})

		t.Run("UnknownLink", func(t *testing.T) {
			_, err := flow.Summary(ctx, 999999, customer.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsLinkNotFound(err))
		})

		return nil
	})

	require.NoError(t, err)
}

func TestExportClicks(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)

		linkRepo := repository.NewShortLinkRepository(testDB.DB)
		clickRepo := repository.NewShortLinkClickRepository(testDB.DB)
		flow := businessflow.NewAnalyticsFlow(linkRepo, clickRepo, testShortenerConfig())

		customer, err := fixtures.CreateTestCustomer(models.PlanPro)
		require.NoError(t, err)
		link, err := fixtures.CreateTestShortLink(&customer.ID, "expo01", "")
		require.NoError(t, err)

		_, err = fixtures.CreateTestClick(link.ID, "Germany", "Desktop")
		require.NoError(t, err)
		_, err = fixtures.CreateTestClick(link.ID, "France", "Mobile")
		require.NoError(t, err)

		t.Run("WorkbookContents", func(t *testing.T) {
			filename, payload, err := flow.ExportClicks(ctx, link.ID, customer.ID)
			require.NoError(t, err)
			assert.Equal(t, "clicks_expo01.xlsx", filename)
			require.NotEmpty(t, payload)

			xl, err := excelize.OpenReader(bytes.NewReader(payload))
			require.NoError(t, err)
			defer func() { _ = xl.Close() }()

			rows, err := xl.GetRows(xl.GetSheetName(0))
			require.NoError(t, err)
			// Header plus one row per click
			require.Len(t, rows, 3)
			assert.Equal(t, "id", rows[0][0])
			assert.Equal(t, "country", rows[0][5])
		})

		t.Run("AccessDenied", func(t *testing.T) {
			other, err := fixtures.CreateTestCustomer(models.PlanFree)
			require.NoError(t, err)

			_, _, err = flow.ExportClicks(ctx, link.ID, other.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsLinkAccessDenied(err))
		})

		return nil
	})

	require.NoError(t, err)
}
