package tests

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-for-flow-tests-0123456789abcdef"

func newTestTokenService(t *testing.T) services.TokenService {
	t.Helper()
	tokenService, err := services.NewTokenService(
		1*time.Hour, 24*time.Hour,
		"test-issuer", "test-audience",
		false, "", "", testJWTSecret,
	)
	require.NoError(t, err)
	return tokenService
}

func TestSignup(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		customerRepo := repository.NewCustomerRepository(testDB.DB)
		sessionRepo := repository.NewCustomerSessionRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)

		tokenService := newTestTokenService(t)

		signupFlow := businessflow.NewSignupFlow(
			customerRepo,
			sessionRepo,
			auditRepo,
			tokenService,
			testDB.DB,
		)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test Agent")

		t.Run("SuccessfulSignup", func(t *testing.T) {
			displayName := "Jamie"
			req := &dto.SignupRequest{
				Email:           "jamie@example.com",
				Password:        "SecurePass123!",
				ConfirmPassword: "SecurePass123!",
				DisplayName:     &displayName,
			}

			result, err := signupFlow.Signup(context.Background(), req, metadata)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, "jamie@example.com", result.Customer.Email)
			assert.Equal(t, models.PlanFree, result.Customer.Plan)
			assert.NotEmpty(t, result.Customer.UUID)
			assert.NotEmpty(t, result.Session.SessionToken)
			require.NotNil(t, result.Session.RefreshToken)
			assert.Equal(t, "Bearer", result.Session.TokenType)

			// Verify the customer row
			customer, err := customerRepo.ByEmail(context.Background(), "jamie@example.com")
			require.NoError(t, err)
			require.NotNil(t, customer)
			assert.True(t, utils.IsTrue(customer.IsActive))
			assert.NotEqual(t, "SecurePass123!", customer.PasswordHash)

			// Verify the session row
			sessions, err := sessionRepo.ListActiveSessionsByCustomer(context.Background(), customer.ID)
			require.NoError(t, err)
			assert.Len(t, sessions, 1)

			// Issued token must validate
			claims, err := tokenService.ValidateToken(result.Session.SessionToken)
			require.NoError(t, err)
			assert.Equal(t, customer.ID, claims.CustomerID)
		})

		t.Run("EmailNormalized", func(t *testing.T) {
			req := &dto.SignupRequest{
				Email:           "  MiXeD@Example.COM  ",
				Password:        "SecurePass123!",
				ConfirmPassword: "SecurePass123!",
			}

			result, err := signupFlow.Signup(context.Background(), req, metadata)
			require.NoError(t, err)
			assert.Equal(t, "mixed@example.com", result.Customer.Email)
		})

		t.Run("DuplicateEmail", func(t *testing.T) {
			req := &dto.SignupRequest{
				Email:           "dup@example.com",
				Password:        "SecurePass123!",
				ConfirmPassword: "SecurePass123!",
			}

			_, err := signupFlow.Signup(context.Background(), req, metadata)
			require.NoError(t, err)

			_, err = signupFlow.Signup(context.Background(), req, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))
		})

		t.Run("AuditTrailWritten", func(t *testing.T) {
			req := &dto.SignupRequest{
				Email:           "audited@example.com",
				Password:        "SecurePass123!",
				ConfirmPassword: "SecurePass123!",
			}

			_, err := signupFlow.Signup(context.Background(), req, metadata)
			require.NoError(t, err)

			logs, err := auditRepo.ListByAction(context.Background(), models.AuditActionSignupCompleted, 10, 0)
			require.NoError(t, err)
			assert.NotEmpty(t, logs)
		})

		return nil
	})

	require.NoError(t, err)
}
