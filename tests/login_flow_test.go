// Package tests contains integration tests for login flow
package tests

import (
	"context"
	"testing"

	"github.com/amirphl/Kusanagi/app/dto"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		customerRepo := repository.NewCustomerRepository(testDB.DB)
		sessionRepo := repository.NewCustomerSessionRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)

		tokenService := newTestTokenService(t)

		// Captcha disabled for these tests
		loginFlow := businessflow.NewLoginFlow(
			customerRepo,
			sessionRepo,
			auditRepo,
			tokenService,
			nil,
			false,
			testDB.DB,
		)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test Agent")

		customer, err := fixtures.CreateTestCustomer(models.PlanFree)
		require.NoError(t, err)

		t.Run("SuccessfulLogin", func(t *testing.T) {
			req := &dto.LoginRequest{
				Email:    customer.Email,
				Password: "TestPass123!",
			}

			result, err := loginFlow.Login(context.Background(), req, metadata)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, customer.Email, result.Customer.Email)
			assert.NotEmpty(t, result.Session.SessionToken)
			require.NotNil(t, result.Session.RefreshToken)

			claims, err := tokenService.ValidateToken(result.Session.SessionToken)
			require.NoError(t, err)
			assert.Equal(t, customer.ID, claims.CustomerID)

			// Last login timestamp is updated
			refreshed, err := customerRepo.ByID(context.Background(), customer.ID)
			require.NoError(t, err)
			assert.NotNil(t, refreshed.LastLoginAt)
		})

		t.Run("IncorrectPassword", func(t *testing.T) {
			req := &dto.LoginRequest{
				Email:    customer.Email,
				Password: "WrongPass123!",
			}

			result, err := loginFlow.Login(context.Background(), req, metadata)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsIncorrectPassword(err))
		})

		t.Run("UnknownEmail", func(t *testing.T) {
			req := &dto.LoginRequest{
				Email:    "nobody@example.com",
				Password: "TestPass123!",
			}

			result, err := loginFlow.Login(context.Background(), req, metadata)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsCustomerNotFound(err))
		})

		t.Run("InactiveAccount", func(t *testing.T) {
			inactive, err := fixtures.CreateTestCustomer(models.PlanFree)
			require.NoError(t, err)
			inactive.IsActive = utils.ToPtr(false)
			require.NoError(t, testDB.DB.Save(inactive).Error)

			req := &dto.LoginRequest{
				Email:    inactive.Email,
				Password: "TestPass123!",
			}

			result, err := loginFlow.Login(context.Background(), req, metadata)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAccountInactive(err))
		})

		return nil
	})

	require.NoError(t, err)
}

func TestRefreshToken(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		customerRepo := repository.NewCustomerRepository(testDB.DB)
		sessionRepo := repository.NewCustomerSessionRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)

		tokenService := newTestTokenService(t)

		loginFlow := businessflow.NewLoginFlow(
			customerRepo,
			sessionRepo,
			auditRepo,
			tokenService,
			nil,
			false,
			testDB.DB,
		)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test Agent")

		customer, err := fixtures.CreateTestCustomer(models.PlanFree)
		require.NoError(t, err)

		loginResult, err := loginFlow.Login(context.Background(), &dto.LoginRequest{
			Email:    customer.Email,
			Password: "TestPass123!",
		}, metadata)
		require.NoError(t, err)
		require.NotNil(t, loginResult.Session.RefreshToken)

		t.Run("SuccessfulRotation", func(t *testing.T) {
			result, err := loginFlow.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
				RefreshToken: *loginResult.Session.RefreshToken,
			}, metadata)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.NotEmpty(t, result.Session.SessionToken)
			assert.NotEqual(t, loginResult.Session.SessionToken, result.Session.SessionToken)

			// The old session is expired, the new one is active
			old, err := sessionRepo.BySessionToken(context.Background(), loginResult.Session.SessionToken)
			require.NoError(t, err)
			if old != nil {
				assert.False(t, utils.IsTrue(old.IsActive))
			}

			fresh, err := sessionRepo.BySessionToken(context.Background(), result.Session.SessionToken)
			require.NoError(t, err)
			require.NotNil(t, fresh)
			assert.True(t, utils.IsTrue(fresh.IsActive))
		})

		t.Run("UnknownRefreshToken", func(t *testing.T) {
			result, err := loginFlow.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
				RefreshToken: "not-a-real-token",
			}, metadata)
			require.Error(t, err)
			assert.Nil(t, result)
		})

		return nil
	})

	require.NoError(t, err)
}

func TestLogout(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		customerRepo := repository.NewCustomerRepository(testDB.DB)
		sessionRepo := repository.NewCustomerSessionRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)

		tokenService := newTestTokenService(t)

		loginFlow := businessflow.NewLoginFlow(
			customerRepo,
			sessionRepo,
			auditRepo,
			tokenService,
			nil,
			false,
			testDB.DB,
		)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test Agent")

		customer, err := fixtures.CreateTestCustomer(models.PlanFree)
		require.NoError(t, err)

		loginResult, err := loginFlow.Login(context.Background(), &dto.LoginRequest{
			Email:    customer.Email,
			Password: "TestPass123!",
		}, metadata)
		require.NoError(t, err)

		t.Run("SuccessfulLogout", func(t *testing.T) {
			err := loginFlow.Logout(context.Background(), loginResult.Session.SessionToken, metadata)
			require.NoError(t, err)

			session, err := sessionRepo.BySessionToken(context.Background(), loginResult.Session.SessionToken)
			require.NoError(t, err)
			if session != nil {
				assert.False(t, utils.IsTrue(session.IsActive))
			}
		})

		t.Run("UnknownTokenIsNoOp", func(t *testing.T) {
			err := loginFlow.Logout(context.Background(), "unknown-session-token", metadata)
			assert.NoError(t, err)
		})

		return nil
	})

	require.NoError(t, err)
}
