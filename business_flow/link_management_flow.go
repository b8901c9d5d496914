package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/config"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// LinkManagementFlow covers the dashboard operations on a customer's own links
type LinkManagementFlow interface {
	List(ctx context.Context, request *dto.ListShortLinksRequest, customerID uint) (*dto.ListShortLinksResponse, error)
	Update(ctx context.Context, linkID uint, request *dto.UpdateShortLinkRequest, customerID uint, metadata *ClientMetadata) (*dto.ShortenResponse, error)
	Delete(ctx context.Context, linkID uint, customerID uint, metadata *ClientMetadata) error
}

// LinkManagementFlowImpl implements the link management business flow
type LinkManagementFlowImpl struct {
	linkRepo  repository.ShortLinkRepository
	auditRepo repository.AuditLogRepository
	cfg       config.ShortenerConfig
	db        *gorm.DB
}

// NewLinkManagementFlow creates a new link management flow instance
func NewLinkManagementFlow(
	linkRepo repository.ShortLinkRepository,
	auditRepo repository.AuditLogRepository,
	cfg config.ShortenerConfig,
	db *gorm.DB,
) LinkManagementFlow {
	return &LinkManagementFlowImpl{
		linkRepo:  linkRepo,
		auditRepo: auditRepo,
		cfg:       cfg,
		db:        db,
	}
}

// List returns one page of the customer's links, newest first
func (lm *LinkManagementFlowImpl) List(ctx context.Context, request *dto.ListShortLinksRequest, customerID uint) (*dto.ListShortLinksResponse, error) {
	page := request.Page
	if page < 1 {
		page = 1
	}
	pageSize := request.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		return nil, NewBusinessError("LIST_VALIDATION_FAILED", "Page size out of range", ErrInvalidPageSize)
	}

	total, err := lm.linkRepo.CountByCustomer(ctx, customerID)
	if err != nil {
		return nil, NewBusinessError(ErrCodeBackendError, "Failed to count links", err)
	}

	rows, err := lm.linkRepo.ListByCustomer(ctx, customerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError(ErrCodeBackendError, "Failed to list links", err)
	}

	links := make([]dto.ShortLinkDTO, 0, len(rows))
	for _, row := range rows {
		links = append(links, ToShortLinkDTO(*row, lm.cfg.PublicBaseURL))
	}

	return &dto.ListShortLinksResponse{
		Links: links,
		Pagination: dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}, nil
}

// Update edits a link's destination, code, or both
func (lm *LinkManagementFlowImpl) Update(ctx context.Context, linkID uint, request *dto.UpdateShortLinkRequest, customerID uint, metadata *ClientMetadata) (*dto.ShortenResponse, error) {
	if request.Destination == nil && request.CustomCode == nil {
		return nil, NewBusinessError("UPDATE_VALIDATION_FAILED", "At least one field must be provided for update", nil)
	}

	var updated *models.ShortLink

	err := repository.WithTransaction(ctx, lm.db, func(ctx context.Context) error {
		link, err := lm.ownedLink(ctx, linkID, customerID)
		if err != nil {
			return err
		}

		if request.Destination != nil {
			destination := strings.TrimSpace(*request.Destination)
			if err := ValidateDestination(destination); err != nil {
				return err
			}
			if err := lm.linkRepo.UpdateDestination(ctx, link.ID, destination); err != nil {
				return err
			}
			link.Destination = destination
		}

		if request.CustomCode != nil {
			code := NormalizeCode(*request.CustomCode)
			if err := ValidateCustomCode(code); err != nil {
				return err
			}
			if code != link.Code {
				if err := lm.linkRepo.UpdateCode(ctx, link.ID, code); err != nil {
					if isUniqueViolation(err) {
						return ErrCodeConflict
					}
					return err
				}
				link.Code = code
				link.IsCustom = utils.ToPtr(true)
			}
		}

		link.UpdatedAt = utils.UTCNow()
		updated = link
		return nil
	})

	if err != nil {
		msg := fmt.Sprintf("Failed to update short link %d: %s", linkID, err.Error())
		_ = lm.logLinkAction(ctx, customerID, models.AuditActionLinkUpdated, msg, false, &msg, metadata)
		return nil, mapLinkManagementError(err)
	}

	desc := fmt.Sprintf("Short link updated: %s", updated.Code)
	_ = lm.logLinkAction(ctx, customerID, models.AuditActionLinkUpdated, desc, true, nil, metadata)

	linkDTO := ToShortLinkDTO(*updated, lm.cfg.PublicBaseURL)
	return &dto.ShortenResponse{Link: linkDTO}, nil
}

// Delete removes a link and its click history
func (lm *LinkManagementFlowImpl) Delete(ctx context.Context, linkID uint, customerID uint, metadata *ClientMetadata) error {
	var deletedCode string

	err := repository.WithTransaction(ctx, lm.db, func(ctx context.Context) error {
		link, err := lm.ownedLink(ctx, linkID, customerID)
		if err != nil {
			return err
		}
		deletedCode = link.Code
		return lm.linkRepo.DeleteWithClicks(ctx, link.ID)
	})

	if err != nil {
		msg := fmt.Sprintf("Failed to delete short link %d: %s", linkID, err.Error())
		_ = lm.logLinkAction(ctx, customerID, models.AuditActionLinkDeleted, msg, false, &msg, metadata)
		return mapLinkManagementError(err)
	}

	desc := fmt.Sprintf("Short link deleted: %s", deletedCode)
	_ = lm.logLinkAction(ctx, customerID, models.AuditActionLinkDeleted, desc, true, nil, metadata)
	return nil
}

// ownedLink loads a link and enforces ownership
func (lm *LinkManagementFlowImpl) ownedLink(ctx context.Context, linkID, customerID uint) (*models.ShortLink, error) {
	link, err := lm.linkRepo.ByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	if link.CustomerID == nil || *link.CustomerID != customerID {
		return nil, ErrLinkAccessDenied
	}
	return link, nil
}

func (lm *LinkManagementFlowImpl) logLinkAction(ctx context.Context, customerID uint, action, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
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

	return lm.auditRepo.Save(ctx, audit)
}

func mapLinkManagementError(err error) error {
	switch {
	case IsLinkNotFound(err):
		return NewBusinessError(ErrCodeNotFound, "Short link not found", err)
	case IsLinkAccessDenied(err):
		return NewBusinessError("LINK_ACCESS_DENIED", "Short link access denied", err)
	case IsInvalidDestination(err):
		return NewBusinessError(ErrCodeInvalidDestination, "Destination URL is invalid", err)
	case IsInvalidCustomCode(err):
		return NewBusinessError(ErrCodeInvalidCustomCode, "Custom code is invalid", err)
	case IsCodeConflict(err):
		return NewBusinessError(ErrCodeCodeConflict, "Short code already taken", err)
	default:
		return NewBusinessError(ErrCodeBackendError, "Link operation failed", err)
	}
}
