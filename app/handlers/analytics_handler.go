// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/middleware"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/gofiber/fiber/v3"
)

// AnalyticsHandlerInterface defines the contract for click analytics handlers
type AnalyticsHandlerInterface interface {
	Summary(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

// AnalyticsHandler serves click analytics for owned short links
type AnalyticsHandler struct {
	flow businessflow.AnalyticsFlow
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(flow businessflow.AnalyticsFlow) *AnalyticsHandler {
	return &AnalyticsHandler{flow: flow}
}

func (h *AnalyticsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AnalyticsHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Summary returns aggregated click analytics for an owned link
// @Summary Link Analytics Summary
// @Description Click totals, top countries, devices, browsers, and an hourly histogram for one link
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param id path int true "Short link ID"
// @Success 200 {object} dto.APIResponse{data=dto.AnalyticsSummaryResponse} "Analytics summary"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links/{id}/analytics [get]
func (h *AnalyticsHandler) Summary(c fiber.Ctx) error {
	customerID, ok := middleware.GetCustomerIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	linkID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || linkID == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link ID", "INVALID_LINK_ID", nil)
	}

	result, err := h.flow.Summary(h.createRequestContext(c, "/api/v1/links/:id/analytics"), uint(linkID), customerID)
	if err != nil {
		if businessflow.IsLinkNotFound(err) || businessflow.IsLinkAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Short link not found", businessflow.ErrCodeNotFound, nil)
		}
		log.Println("Analytics summary failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load analytics", "ANALYTICS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Analytics retrieved", result)
}

// Export downloads the raw click log of an owned link as an xlsx file
// @Summary Export Link Clicks
// @Description Download all recorded clicks of one link as an Excel file
// @Tags Analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path int true "Short link ID"
// @Success 200 {file} file "Excel export"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links/{id}/analytics/export [get]
func (h *AnalyticsHandler) Export(c fiber.Ctx) error {
	customerID, ok := middleware.GetCustomerIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	linkID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || linkID == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link ID", "INVALID_LINK_ID", nil)
	}

	filename, payload, err := h.flow.ExportClicks(h.createRequestContext(c, "/api/v1/links/:id/analytics/export"), uint(linkID), customerID)
	if err != nil {
		if businessflow.IsLinkNotFound(err) || businessflow.IsLinkAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Short link not found", businessflow.ErrCodeNotFound, nil)
		}
		log.Println("Analytics export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export clicks", "ANALYTICS_EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(payload)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *AnalyticsHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
