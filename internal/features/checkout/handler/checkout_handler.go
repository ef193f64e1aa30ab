package handler

import (
	"errors"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/logger"
	"kmerzone/internal/core/server"
	catalog "kmerzone/internal/features/catalog/domain"
	catalogports "kmerzone/internal/features/catalog/ports"
	catalogservice "kmerzone/internal/features/catalog/service"
	"kmerzone/internal/features/checkout/service"
	ordersservice "kmerzone/internal/features/orders/service"
	promo "kmerzone/internal/features/promo/domain"
	promohandler "kmerzone/internal/features/promo/handler"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	// HeaderIdempotencyKey makes retried checkouts return the first order.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderReplayed is set on responses served from an earlier request.
	HeaderReplayed = "Idempotent-Replayed"
)

// CheckoutHandler exposes cart pricing and order placement.
type CheckoutHandler struct {
	service *service.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(svc *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: svc}
}

// Register mounts the checkout routes. The identity middleware must run first.
func (h *CheckoutHandler) Register(r fiber.Router) {
	customers := identity.RequireRole(identity.RoleCustomer)
	r.Post("/checkout/quote", customers, h.Quote)
	r.Post("/checkout", customers, h.PlaceOrder)
}

func (h *CheckoutHandler) fail(c *fiber.Ctx, err error) error {
	if r, ok := promo.AsRejection(err); ok {
		return promohandler.RejectionResponse(c, r)
	}
	switch {
	case errors.Is(err, catalogports.ErrProductNotFound):
		return server.Fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRequestInProgress):
		return server.Fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, catalogservice.ErrProductNotPublished):
		return server.Fail(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidCheckout), errors.Is(err, ordersservice.ErrInvalidOrder), errors.Is(err, catalog.ErrInvalidProduct):
		return server.Fail(c, fiber.StatusBadRequest, err.Error())
	}
	logger.Get().Error("Checkout request failed", zap.String("ray_id", server.RayID(c)), zap.Error(err))
	return server.Fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// Quote handles POST /checkout/quote.
// @Summary Price a cart
// @Description Resolves prices, delivery fee, promo and loyalty discounts. Nothing is stored.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param cart body service.Request true "Cart"
// @Success 200 {object} service.Quote
// @Failure 400 {object} server.ErrorResponse
// @Failure 404 {object} server.ErrorResponse
// @Failure 422 {object} server.ErrorResponse
// @Router /checkout/quote [post]
func (h *CheckoutHandler) Quote(c *fiber.Ctx) error {
	var req service.Request
	if err := c.BodyParser(&req); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	q, err := h.service.Quote(c.UserContext(), actor, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(q)
}

// PlaceOrder handles POST /checkout.
// @Summary Place an order
// @Description Prices the cart and stores a confirmed order. Requests repeating an Idempotency-Key return the first order.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Retry key"
// @Param cart body service.Request true "Cart"
// @Success 201 {object} domain.Order
// @Success 200 {object} domain.Order "Replayed"
// @Failure 400 {object} server.ErrorResponse
// @Failure 409 {object} server.ErrorResponse
// @Failure 422 {object} server.ErrorResponse
// @Router /checkout [post]
func (h *CheckoutHandler) PlaceOrder(c *fiber.Ctx) error {
	var req service.Request
	if err := c.BodyParser(&req); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	res, err := h.service.PlaceOrder(c.UserContext(), actor, req, c.Get(HeaderIdempotencyKey))
	if err != nil {
		return h.fail(c, err)
	}
	if res.Replayed {
		c.Set(HeaderReplayed, "true")
		return c.JSON(res.Order)
	}
	return c.Status(fiber.StatusCreated).JSON(res.Order)
}
