// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/middleware"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// LinkHandlerInterface defines the contract for short link management handlers
type LinkHandlerInterface interface {
	Shorten(c fiber.Ctx) error
	BulkShorten(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

// LinkHandler handles short link creation and dashboard management requests
type LinkHandler struct {
	shortenFlow businessflow.ShortenFlow
	linkFlow    businessflow.LinkManagementFlow
	validator   *validator.Validate
}

// NewLinkHandler creates a new short link handler
func NewLinkHandler(shortenFlow businessflow.ShortenFlow, linkFlow businessflow.LinkManagementFlow) *LinkHandler {
	handler := &LinkHandler{
		shortenFlow: shortenFlow,
		linkFlow:    linkFlow,
		validator:   validator.New(),
	}

	registerShortLinkValidations(handler.validator)

	return handler
}

func (h *LinkHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LinkHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Shorten creates a short link for an anonymous or authenticated caller
// @Summary Shorten URL
// @Description Create a short link. Anonymous links live 24 hours in the guest store, authenticated links are permanent
// @Tags ShortLinks
// @Accept json
// @Produce json
// @Param request body dto.ShortenRequest true "Destination and optional custom code"
// @Success 200 {object} dto.APIResponse{data=dto.ShortenResponse} "Short link created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Code already taken"
// @Failure 422 {object} dto.APIResponse "Link limit reached"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links [post]
func (h *LinkHandler) Shorten(c fiber.Ctx) error {
	var req dto.ShortenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Get client information
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Anonymous callers get a guest link, authenticated callers a permanent one
	customerID := middleware.OptionalCustomerID(c)

	result, err := h.shortenFlow.Shorten(h.createRequestContext(c, "/api/v1/links"), &req, customerID, metadata)
	if err != nil {
		return h.mapLinkError(c, err, "Shorten failed", "SHORTEN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Short link created", result)
}

// BulkShorten creates up to 20 short links in one call
// @Summary Bulk Shorten URLs
// @Description Create several short links at once. Requires authentication
// @Tags ShortLinks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkShortenRequest true "Destinations to shorten"
// @Success 200 {object} dto.APIResponse{data=dto.BulkShortenResponse} "Per-item results"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links/bulk [post]
func (h *LinkHandler) BulkShorten(c fiber.Ctx) error {
	customerID, ok := middleware.GetCustomerIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.BulkShortenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.shortenFlow.BulkShorten(h.createRequestContext(c, "/api/v1/links/bulk"), &req, customerID, metadata)
	if err != nil {
		return h.mapLinkError(c, err, "Bulk shorten failed", "BULK_SHORTEN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Bulk shorten completed", result)
}

// List returns a page of the customer's short links
// @Summary List Short Links
// @Description List the authenticated customer's short links with pagination
// @Tags ShortLinks
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.ListShortLinksResponse} "Page of links"
// @Failure 400 {object} dto.APIResponse "Invalid paging"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links [get]
func (h *LinkHandler) List(c fiber.Ctx) error {
	customerID, ok := middleware.GetCustomerIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.ListShortLinksRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	result, err := h.linkFlow.List(h.createRequestContext(c, "/api/v1/links"), &req, customerID)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid paging parameters", "INVALID_PAGING", nil)
		}
		log.Println("List short links failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list links", "LIST_LINKS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Links retrieved", result)
}

// Update edits a link's destination or code
// @Summary Update Short Link
// @Description Change the destination or custom code of an owned link
// @Tags ShortLinks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Short link ID"
// @Param request body dto.UpdateShortLinkRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.ShortenResponse} "Updated link"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Failure 409 {object} dto.APIResponse "Code already taken"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links/{id} [put]
func (h *LinkHandler) Update(c fiber.Ctx) error {
	customerID, ok := middleware.GetCustomerIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	linkID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || linkID == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link ID", "INVALID_LINK_ID", nil)
	}

	var req dto.UpdateShortLinkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.linkFlow.Update(h.createRequestContext(c, "/api/v1/links/:id"), uint(linkID), &req, customerID, metadata)
	if err != nil {
		return h.mapLinkError(c, err, "Update failed", "UPDATE_LINK_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Link updated", result)
}

// Delete removes an owned link and its click history
// @Summary Delete Short Link
// @Description Delete an owned link together with its recorded clicks
// @Tags ShortLinks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Short link ID"
// @Success 200 {object} dto.APIResponse "Link deleted"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links/{id} [delete]
func (h *LinkHandler) Delete(c fiber.Ctx) error {
	customerID, ok := middleware.GetCustomerIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	linkID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || linkID == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link ID", "INVALID_LINK_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.linkFlow.Delete(h.createRequestContext(c, "/api/v1/links/:id"), uint(linkID), customerID, metadata); err != nil {
		return h.mapLinkError(c, err, "Delete failed", "DELETE_LINK_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Link deleted", nil)
}

// mapLinkError translates link business errors to HTTP responses
func (h *LinkHandler) mapLinkError(c fiber.Ctx, err error, genericMessage, genericCode string) error {
	switch {
	case businessflow.IsInvalidDestination(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Destination URL is invalid", businessflow.ErrCodeInvalidDestination, nil)
	case businessflow.IsInvalidCustomCode(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Custom code is invalid", businessflow.ErrCodeInvalidCustomCode, nil)
	case businessflow.IsCodeConflict(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "Short code already taken", businessflow.ErrCodeCodeConflict, nil)
	case businessflow.IsLinkNotFound(err), businessflow.IsLinkAccessDenied(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Short link not found", businessflow.ErrCodeNotFound, nil)
	case businessflow.IsLinkLimitExceeded(err):
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Link limit reached for current plan", businessflow.ErrCodeLinkLimitExceeded, nil)
	case businessflow.IsCustomerNotFound(err), businessflow.IsAccountInactive(err):
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Account is not available", "ACCOUNT_INACTIVE", nil)
	default:
		log.Println(genericMessage, err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, genericMessage, genericCode, nil)
	}
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *LinkHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
