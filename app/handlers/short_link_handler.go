package handlers

import (
	"context"
	"log"
	"time"

	"github.com/amirphl/Kusanagi/app/middleware"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/gofiber/fiber/v3"
)

// ShortLinkHandlerInterface defines contract for public short link resolution
type ShortLinkHandlerInterface interface {
	Redirect(c fiber.Ctx) error
}

type ShortLinkHandler struct {
	flow businessflow.ResolveFlow
}

func NewShortLinkHandler(flow businessflow.ResolveFlow) ShortLinkHandlerInterface {
	return &ShortLinkHandler{flow: flow}
}

// Redirect resolves a short code and redirects to its destination
// @Summary Resolve Short Link
// @Tags ShortLinks
// @Produce json
// @Param code path string true "Short code"
// @Success 302 {string} string "Redirect"
// @Failure 404 {object} any
// @Failure 500 {object} any
// @Router /{code} [get]
func (h *ShortLinkHandler) Redirect(c fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).SendString("invalid short link")
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.Referrer = c.Get("Referer")

	// Identity picks the store precedence: anonymous callers check the guest
	// store first, authenticated callers go straight to the persistent store
	customerID := middleware.OptionalCustomerID(c)

	destination, err := h.flow.Resolve(h.createRequestContext(c, "/"+code), code, customerID, metadata)
	if err != nil {
		if businessflow.IsLinkNotFound(err) {
			return c.Status(fiber.StatusNotFound).SendString("not found")
		}
		log.Println("Resolve short link failed", err)
		return c.Status(fiber.StatusInternalServerError).SendString("internal error")
	}

	return c.Redirect().Status(fiber.StatusFound).To(destination)
}

func (h *ShortLinkHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 10*time.Second)
}

func (h *ShortLinkHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
