// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/models"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "customers", models.Customer{}.TableName())
	assert.Equal(t, "customer_sessions", models.CustomerSession{}.TableName())
	assert.Equal(t, "audit_log", models.AuditLog{}.TableName())
	assert.Equal(t, "short_links", models.ShortLink{}.TableName())
	assert.Equal(t, "short_link_clicks", models.ShortLinkClick{}.TableName())
}

func TestCustomerPlan(t *testing.T) {
	t.Run("FreeByDefault", func(t *testing.T) {
		c := &models.Customer{}
		assert.True(t, c.IsFreePlan())
	})

	t.Run("ExplicitFree", func(t *testing.T) {
		c := &models.Customer{Plan: models.PlanFree}
		assert.True(t, c.IsFreePlan())
	})

	t.Run("ProPlan", func(t *testing.T) {
		c := &models.Customer{Plan: models.PlanPro}
		assert.False(t, c.IsFreePlan())
	})
}

func TestSessionValidity(t *testing.T) {
	t.Run("ActiveAndNotExpired", func(t *testing.T) {
		s := &models.CustomerSession{
			IsActive:  utils.ToPtr(true),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		assert.True(t, s.IsValid())
		assert.False(t, s.IsExpired())
	})

	t.Run("Expired", func(t *testing.T) {
		s := &models.CustomerSession{
			IsActive:  utils.ToPtr(true),
			ExpiresAt: time.Now().Add(-time.Hour),
		}
		assert.True(t, s.IsExpired())
		assert.False(t, s.IsValid())
	})

	t.Run("Inactive", func(t *testing.T) {
		s := &models.CustomerSession{
			IsActive:  utils.ToPtr(false),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		assert.False(t, s.IsValid())
	})
}

func TestAuditLogHelpers(t *testing.T) {
	t.Run("FailedEntry", func(t *testing.T) {
		a := &models.AuditLog{Success: utils.ToPtr(false)}
		assert.True(t, a.IsFailed())
	})

	t.Run("SuccessfulEntry", func(t *testing.T) {
		a := &models.AuditLog{Success: utils.ToPtr(true)}
		assert.False(t, a.IsFailed())
	})

	t.Run("SecurityEvents", func(t *testing.T) {
		assert.True(t, (&models.AuditLog{Action: models.AuditActionLoginFailed}).IsSecurityEvent())
		assert.True(t, (&models.AuditLog{Action: models.AuditActionLogout}).IsSecurityEvent())
		assert.False(t, (&models.AuditLog{Action: models.AuditActionLinkCreated}).IsSecurityEvent())
	})
}

func TestModelPersistence(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		customer, err := fixtures.CreateTestCustomer(models.PlanFree)
		require.NoError(t, err)
		require.NotZero(t, customer.ID)

		t.Run("ShortLinkBelongsToCustomer", func(t *testing.T) {
			link, err := fixtures.CreateTestShortLink(&customer.ID, "", "")
			require.NoError(t, err)
			require.NotZero(t, link.ID)

			var loaded models.ShortLink
			require.NoError(t, testDB.DB.Preload("Customer").First(&loaded, link.ID).Error)
			require.NotNil(t, loaded.Customer)
			assert.Equal(t, customer.Email, loaded.Customer.Email)
			assert.Equal(t, uint(0), loaded.Clicks)
		})

		t.Run("AnonymousShortLink", func(t *testing.T) {
			link, err := fixtures.CreateTestShortLink(nil, "anon01", "https://example.com/anon")
			require.NoError(t, err)

			var loaded models.ShortLink
			require.NoError(t, testDB.DB.First(&loaded, link.ID).Error)
			assert.Nil(t, loaded.CustomerID)
		})

		t.Run("UniqueCodeConstraint", func(t *testing.T) {
			_, err := fixtures.CreateTestShortLink(&customer.ID, "dupe01", "https://example.com/a")
			require.NoError(t, err)

			_, err = fixtures.CreateTestShortLink(&customer.ID, "dupe01", "https://example.com/b")
			assert.Error(t, err)
		})

		t.Run("ClickReferencesLink", func(t *testing.T) {
			link, err := fixtures.CreateTestShortLink(&customer.ID, "", "")
			require.NoError(t, err)

			click, err := fixtures.CreateTestClick(link.ID, "Germany", "Desktop")
			require.NoError(t, err)
			require.NotZero(t, click.ID)

			var loaded models.ShortLinkClick
			require.NoError(t, testDB.DB.First(&loaded, click.ID).Error)
			assert.Equal(t, link.ID, loaded.ShortLinkID)
			require.NotNil(t, loaded.Country)
			assert.Equal(t, "Germany", *loaded.Country)
		})

		return nil
	})

	require.NoError(t, err)
}
