package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/config"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const maxGenerateAttempts = 5

// ShortenFlow creates short links for guests and customers
// Guest links land in the Redis guest store with a fixed TTL,
// customer links land in Postgres and count against the plan limit
type ShortenFlow interface {
	Shorten(ctx context.Context, request *dto.ShortenRequest, customerID *uint, metadata *ClientMetadata) (*dto.ShortenResponse, error)
	BulkShorten(ctx context.Context, request *dto.BulkShortenRequest, customerID uint, metadata *ClientMetadata) (*dto.BulkShortenResponse, error)
}

// ShortenFlowImpl implements the shorten business flow
type ShortenFlowImpl struct {
	linkRepo     repository.ShortLinkRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditLogRepository
	guestStore   services.GuestLinkStore
	cfg          config.ShortenerConfig
	db           *gorm.DB
}

// NewShortenFlow creates a new shorten flow instance
func NewShortenFlow(
	linkRepo repository.ShortLinkRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditLogRepository,
	guestStore services.GuestLinkStore,
	cfg config.ShortenerConfig,
	db *gorm.DB,
) ShortenFlow {
	return &ShortenFlowImpl{
		linkRepo:     linkRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		guestStore:   guestStore,
		cfg:          cfg,
		db:           db,
	}
}

// Shorten validates the destination and stores a new short link in the
// backend matching the caller's identity
func (sf *ShortenFlowImpl) Shorten(ctx context.Context, request *dto.ShortenRequest, customerID *uint, metadata *ClientMetadata) (*dto.ShortenResponse, error) {
	destination := strings.TrimSpace(request.Destination)
	if err := ValidateDestination(destination); err != nil {
		return nil, NewBusinessError(ErrCodeInvalidDestination, "Destination URL is invalid", err)
	}

	var customCode *string
	if request.CustomCode != nil {
		code := NormalizeCode(*request.CustomCode)
		if err := ValidateCustomCode(code); err != nil {
			return nil, NewBusinessError(ErrCodeInvalidCustomCode, "Custom code is invalid", err)
		}
		customCode = &code
	}

	if customerID == nil {
		return sf.shortenGuest(ctx, destination, customCode)
	}
	return sf.shortenCustomer(ctx, destination, customCode, *customerID, metadata)
}

// BulkShorten creates up to the configured number of links in one call,
// reporting per-item outcomes in request order
func (sf *ShortenFlowImpl) BulkShorten(ctx context.Context, request *dto.BulkShortenRequest, customerID uint, metadata *ClientMetadata) (*dto.BulkShortenResponse, error) {
	if sf.cfg.MaxBulkDestinations > 0 && len(request.Destinations) > sf.cfg.MaxBulkDestinations {
		return nil, NewBusinessErrorf(ErrCodeInvalidDestination, "At most %d destinations are allowed per bulk request", ErrInvalidDestination, sf.cfg.MaxBulkDestinations)
	}

	items := make([]dto.BulkShortenItem, 0, len(request.Destinations))

	for _, destination := range request.Destinations {
		item := dto.BulkShortenItem{Destination: destination}

		resp, err := sf.Shorten(ctx, &dto.ShortenRequest{Destination: destination}, &customerID, metadata)
		if err != nil {
			var be *BusinessError
			if errors.As(err, &be) {
				item.Error = &dto.ErrorDetail{Code: be.Code, Details: be.Message}
			} else {
				item.Error = &dto.ErrorDetail{Code: ErrCodeBackendError, Details: "Failed to create short link"}
			}
		} else {
			item.Link = &resp.Link
		}

		items = append(items, item)
	}

	return &dto.BulkShortenResponse{Items: items}, nil
}

func (sf *ShortenFlowImpl) shortenGuest(ctx context.Context, destination string, customCode *string) (*dto.ShortenResponse, error) {
	var code string
	if customCode != nil {
		taken, err := sf.guestStore.Exists(ctx, *customCode)
		if err != nil {
			return nil, NewBusinessError(ErrCodeBackendError, "Failed to check code availability", err)
		}
		if taken {
			return nil, NewBusinessError(ErrCodeCodeConflict, "Short code already taken", ErrCodeConflict)
		}
		code = *customCode
	} else {
		generated, err := sf.allocateGuestCode(ctx)
		if err != nil {
			return nil, err
		}
		code = generated
	}

	now := utils.UTCNow()
	link := &services.GuestLink{
		Code:        code,
		Destination: destination,
		CreatedAt:   now,
		ExpiresAt:   now.Add(sf.cfg.GuestLinkTTL),
	}
	if err := sf.guestStore.Save(ctx, link); err != nil {
		return nil, NewBusinessError(ErrCodeBackendError, "Failed to store guest link", err)
	}

	return &dto.ShortenResponse{
		Link: dto.ShortLinkDTO{
			Code:        link.Code,
			ShortURL:    sf.cfg.PublicBaseURL + "/" + link.Code,
			Destination: link.Destination,
			IsCustom:    customCode != nil,
			CreatedAt:   link.CreatedAt.Format(time.RFC3339),
			ExpiresAt:   link.ExpiresAt.Format(time.RFC3339),
		},
	}, nil
}

func (sf *ShortenFlowImpl) shortenCustomer(ctx context.Context, destination string, customCode *string, customerID uint, metadata *ClientMetadata) (*dto.ShortenResponse, error) {
	var created *models.ShortLink

	err := repository.WithTransaction(ctx, sf.db, func(ctx context.Context) error {
		customer, err := sf.customerRepo.ByID(ctx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}
		if !utils.IsTrue(customer.IsActive) {
			return ErrAccountInactive
		}

		if customer.IsFreePlan() && sf.cfg.FreeTierLinkLimit > 0 {
			count, err := sf.linkRepo.CountByCustomer(ctx, customerID)
			if err != nil {
				return err
			}
			if count >= int64(sf.cfg.FreeTierLinkLimit) {
				return ErrLinkLimitExceeded
			}
		}

		link := &models.ShortLink{
			Destination: destination,
			CustomerID:  &customerID,
			IsCustom:    utils.ToPtr(customCode != nil),
		}

		if customCode != nil {
			link.Code = *customCode
			if err := sf.linkRepo.Save(ctx, link); err != nil {
				if isUniqueViolation(err) {
					return ErrCodeConflict
				}
				return err
			}
		} else {
			saved, err := sf.saveWithGeneratedCode(ctx, link)
			if err != nil {
				return err
			}
			link = saved
		}

		created = link
		return nil
	})

	if err != nil {
		msg := fmt.Sprintf("Failed to create short link: %s", err.Error())
		_ = sf.logLinkAction(ctx, customerID, models.AuditActionLinkCreated, msg, false, &msg, metadata)
		return nil, mapShortenError(err)
	}

	desc := fmt.Sprintf("Short link created: %s -> %s", created.Code, created.Destination)
	_ = sf.logLinkAction(ctx, customerID, models.AuditActionLinkCreated, desc, true, nil, metadata)

	linkDTO := ToShortLinkDTO(*created, sf.cfg.PublicBaseURL)
	return &dto.ShortenResponse{Link: linkDTO}, nil
}

// allocateGuestCode retries random codes until one is free in the guest store
func (sf *ShortenFlowImpl) allocateGuestCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return "", NewBusinessError(ErrCodeBackendError, "Failed to generate code", err)
		}
		taken, err := sf.guestStore.Exists(ctx, code)
		if err != nil {
			return "", NewBusinessError(ErrCodeBackendError, "Failed to check code availability", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", NewBusinessError(ErrCodeBackendError, "Code space exhausted after retries", ErrBackend)
}

// saveWithGeneratedCode inserts the link under fresh random codes until the
// unique index stops complaining. The constraint, not a lookup, settles races.
func (sf *ShortenFlowImpl) saveWithGeneratedCode(ctx context.Context, link *models.ShortLink) (*models.ShortLink, error) {
	lockShortLinkGen()
	defer unlockShortLinkGen()

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}

		candidate := *link
		candidate.Code = code
		if err := sf.linkRepo.Save(ctx, &candidate); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return &candidate, nil
	}

	return nil, ErrBackend
}

func (sf *ShortenFlowImpl) logLinkAction(ctx context.Context, customerID uint, action, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CustomerID:   &customerID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		if requestIDStr, ok := requestID.(string); ok {
			audit.RequestID = &requestIDStr
		}
	}

	return sf.auditRepo.Save(ctx, audit)
}

// isUniqueViolation detects the Postgres unique constraint error (SQLSTATE 23505)
// both through GORM's translated error and the raw driver error
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "SQLSTATE 23505")
}

func mapShortenError(err error) error {
	switch {
	case IsCodeConflict(err):
		return NewBusinessError(ErrCodeCodeConflict, "Short code already taken", err)
	case IsLinkLimitExceeded(err):
		return NewBusinessError(ErrCodeLinkLimitExceeded, "Link limit reached for current plan", err)
	case IsCustomerNotFound(err) || IsAccountInactive(err):
		return NewBusinessError("SHORTEN_FAILED", "Shorten failed", err)
	case IsBackendError(err):
		return NewBusinessError(ErrCodeBackendError, "Backend failure", err)
	default:
		return NewBusinessError(ErrCodeBackendError, "Failed to create short link", err)
	}
}
