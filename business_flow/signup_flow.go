// Package businessflow contains the core business logic and use cases for link shortening workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SignupFlow handles new customer registration
type SignupFlow interface {
	Signup(ctx context.Context, request *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error)
}

// SignupFlowImpl implements the signup business flow
type SignupFlowImpl struct {
	customerRepo repository.CustomerRepository
	sessionRepo  repository.CustomerSessionRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	db           *gorm.DB
}

// NewSignupFlow creates a new signup flow instance
func NewSignupFlow(
	customerRepo repository.CustomerRepository,
	sessionRepo repository.CustomerSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	db *gorm.DB,
) SignupFlow {
	return &SignupFlowImpl{
		customerRepo: customerRepo,
		sessionRepo:  sessionRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		db:           db,
	}
}

// Signup registers a new customer and opens the first session
func (sf *SignupFlowImpl) Signup(ctx context.Context, request *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error) {
	email := strings.ToLower(strings.TrimSpace(request.Email))

	var customer *models.Customer

	resp, err := sf.withSignupTransaction(ctx, func(ctx context.Context) (*dto.SignupResponse, error) {
		existing, err := sf.customerRepo.ByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrEmailAlreadyExists
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}

		customer = &models.Customer{
			UUID:         uuid.New(),
			Email:        email,
			PasswordHash: string(hash),
			DisplayName:  request.DisplayName,
			Plan:         models.PlanFree,
			IsActive:     utils.ToPtr(true),
		}

		if err := sf.customerRepo.Save(ctx, customer); err != nil {
			return nil, err
		}

		session, err := sf.createSession(ctx, customer.ID, metadata)
		if err != nil {
			return nil, err
		}

		return &dto.SignupResponse{
			Customer: ToAuthCustomerDTO(*customer),
			Session:  ToCustomerSessionDTO(*session),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Signup failed: %s", err.Error())
		_ = sf.logSignupAttempt(ctx, customer, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	msg := fmt.Sprintf("Customer registered: %d", resp.Customer.ID)
	_ = sf.logSignupAttempt(ctx, customer, msg, true, nil, metadata)

	return resp, nil
}

func (sf *SignupFlowImpl) createSession(ctx context.Context, customerID uint, metadata *ClientMetadata) (*models.CustomerSession, error) {
	accessToken, refreshToken, err := sf.tokenService.GenerateTokens(customerID)
	if err != nil {
		return nil, err
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	session := &models.CustomerSession{
		CustomerID:    customerID,
		CorrelationID: uuid.New(),
		SessionToken:  accessToken,
		RefreshToken:  &refreshToken,
		ExpiresAt:     utils.UTCNowAdd(utils.SessionTimeout),
		IsActive:      utils.ToPtr(true),
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
	}

	if err := sf.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (sf *SignupFlowImpl) logSignupAttempt(ctx context.Context, customer *models.Customer, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	var customerID *uint
	if customer != nil && customer.ID != 0 {
		customerID = &customer.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CustomerID:   customerID,
		Action:       models.AuditActionSignupCompleted,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return sf.auditRepo.Save(ctx, audit)
}

func (sf *SignupFlowImpl) withSignupTransaction(ctx context.Context, fn func(context.Context) (*dto.SignupResponse, error)) (*dto.SignupResponse, error) {
	var result *dto.SignupResponse
	var fnErr error

	err := repository.WithTransaction(ctx, sf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}
