// Package tests contains integration tests for dashboard link management
package tests

import (
	"context"
	"fmt"
	"testing"

	"github.com/amirphl/Kusanagi/app/dto"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListShortLinks(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)

		linkRepo := repository.NewShortLinkRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		flow := businessflow.NewLinkManagementFlow(linkRepo, auditRepo, testShortenerConfig(), testDB.DB)

		customer, err := fixtures.CreateTestCustomer(models.PlanPro)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			_, err := fixtures.CreateTestShortLink(&customer.ID, fmt.Sprintf("list%02d", i), "")
			require.NoError(t, err)
		}

		t.Run("FirstPage", func(t *testing.T) {
			resp, err := flow.List(ctx, &dto.ListShortLinksRequest{Page: 1, PageSize: 3}, customer.ID)
			require.NoError(t, err)
			assert.Len(t, resp.Links, 3)
			assert.Equal(t, int64(5), resp.Pagination.Total)
			assert.Equal(t, 1, resp.Pagination.Page)
		})

		t.Run("SecondPage", func(t *testing.T) {
			resp, err := flow.List(ctx, &dto.ListShortLinksRequest{Page: 2, PageSize: 3}, customer.ID)
			require.NoError(t, err)
			assert.Len(t, resp.Links, 2)
		})

		t.Run("DefaultsApplied", func(t *testing.T) {
			resp, err := flow.List(ctx, &dto.ListShortLinksRequest{}, customer.ID)
			require.NoError(t, err)
			assert.Len(t, resp.Links, 5)
			assert.Equal(t, 20, resp.Pagination.PageSize)
		})

		t.Run("EmptyForOtherCustomer", func(t *testing.T) {
			other, err := fixtures.CreateTestCustomer(models.PlanFree)
			require.NoError(t, err)

			resp, err := flow.List(ctx, &dto.ListShortLinksRequest{}, other.ID)
			require.NoError(t, err)
			assert.Empty(t, resp.Links)
			assert.Zero(t, resp.Pagination.Total)
		})

		return nil
	})

	require.NoError(t, err)
}

func TestUpdateShortLink(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)

		linkRepo := repository.NewShortLinkRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		flow := businessflow.NewLinkManagementFlow(linkRepo, auditRepo, testShortenerConfig(), testDB.DB)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test Agent")

		customer, err := fixtures.CreateTestCustomer(models.PlanPro)
		require.NoError(t, err)

		t.Run("UpdateDestination", func(t *testing.T) {
			link, err := fixtures.CreateTestShortLink(&customer.ID, "edit01", "https://example.com/old")
			require.NoError(t, err)

			dest := "https://example.com/new"
			resp, err := flow.Update(ctx, link.ID, &dto.UpdateShortLinkRequest{Destination: &dest}, customer.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, dest, resp.Link.Destination)
			assert.Equal(t, "edit01", resp.Link.Code)
		})

		t.Run("UpdateCode", func(t *testing.T) {
			link, err := fixtures.CreateTestShortLink(&customer.ID, "edit02", "")
			require.NoError(t, err)

			code := "branded-alias"
			resp, err := flow.Update(ctx, link.ID, &dto.UpdateShortLinkRequest{CustomCode: &code}, customer.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, "branded-alias", resp.Link.Code)
			assert.True(t, resp.Link.IsCustom)
		})

		t.Run("NoFieldsProvided", func(t *testing.T) {
			link, err := fixtures.CreateTestShortLink(&customer.ID, "edit03", "")
			require.NoError(t, err)

			_, err = flow.Update(ctx, link.ID, &dto.UpdateShortLinkRequest{}, customer.ID, metadata)
			require.Error(t, err)
		})

		t.Run("OtherCustomersLink", func(t *testing.T) {
			other, err := fixtures.CreateTestCustomer(models.PlanFree)
			require.NoError(t, err)
			link, err := fixtures.CreateTestShortLink(&other.ID, "edit04", "")
			require.NoError(t, err)

			dest := "https://example.com/hijack"
			_, err = flow.Update(ctx, link.ID, &dto.UpdateShortLinkRequest{Destination: &dest}, customer.ID, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLinkAccessDenied(err))
		})

		t.Run("UnknownLink", func(t *testing.T) {
			dest := "https://example.com/nowhere"
			_, err := flow.Update(ctx, 999999, &dto.UpdateShortLinkRequest{Destination: &dest}, customer.ID, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLinkNotFound(err))
		})

		t.Run("CodeConflict", func(t *testing.T) {
			_, err := fixtures.CreateTestShortLink(&customer.ID, "held01", "")
			require.NoError(t, err)
			link, err := fixtures.CreateTestShortLink(&customer.ID, "edit05", "")
			require.NoError(t, err)

			code := "held01"
			_, err = flow.Update(ctx, link.ID, &dto.UpdateShortLinkRequest{CustomCode: &code}, customer.ID, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsCodeConflict(err))
		})

		return nil
	})

	require.NoError(t, err)
}

func TestDeleteShortLink(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		fixtures := testingutil.NewTestFixtures(testDB)

		linkRepo := repository.NewShortLinkRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		flow := businessflow.NewLinkManagementFlow(linkRepo, auditRepo, testShortenerConfig(), testDB.DB)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test Agent")

		customer, err := fixtures.CreateTestCustomer(models.PlanPro)
		require.NoError(t, err)

		t.Run("DeleteWithClickHistory", func(t *testing.T) {
			link, err := fixtures.CreateTestShortLink(&customer.ID, "gone01", "")
			require.NoError(t, err)
			_, err = fixtures.CreateTestClick(link.ID, "France", "Mobile")
			require.NoError(t, err)

			require.NoError(t, flow.Delete(ctx, link.ID, customer.ID, metadata))

			fresh, err := linkRepo.ByID(ctx, link.ID)
			require.NoError(t, err)
			assert.Nil(t, fresh)

			var clickCount int64
			require.NoError(t, testDB.DB.Model(&models.ShortLinkClick{}).
				Where("short_link_id = ?", link.ID).Count(&clickCount).Error)
			assert.Zero(t, clickCount)
		})

		t.Run("OtherCustomersLink", func(t *testing.T) {
			other, err := fixtures.CreateTestCustomer(models.PlanFree)
			require.NoError(t, err)
			link, err := fixtures.CreateTestShortLink(&other.ID, "gone02", "")
			require.NoError(t, err)

			err = flow.Delete(ctx, link.ID, customer.ID, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsLinkAccessDenied(err))
		})

		return nil
	})

	require.NoError(t, err)
}
