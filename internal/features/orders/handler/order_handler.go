package handler

import (
	"errors"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/logger"
	"kmerzone/internal/core/server"
	"kmerzone/internal/features/orders/domain"
	"kmerzone/internal/features/orders/ports"
	"kmerzone/internal/features/orders/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	// lifecycle drives status changes.
	lifecycle *service.LifecycleService
	// disputes owns refunds and the dispute thread.
	disputes *service.DisputeService
}

// NewOrderHandler creates a new instance of OrderHandler.
func NewOrderHandler(lifecycle *service.LifecycleService, disputes *service.DisputeService) *OrderHandler {
	return &OrderHandler{lifecycle: lifecycle, disputes: disputes}
}

// Register mounts the order routes. The identity middleware must run first.
func (h *OrderHandler) Register(r fiber.Router) {
	r.Get("/orders", h.ListOrders)
	r.Get("/orders/:id", h.GetOrder)
	r.Post("/orders/:id/status", h.UpdateStatus)
	r.Post("/orders/:id/refund-request", h.RequestRefund)
	r.Post("/orders/:id/refund-resolution", identity.RequireRole(identity.RoleAdmin), h.ResolveRefund)
	r.Post("/orders/:id/dispute-messages", h.PostDisputeMessage)
}

func (h *OrderHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ports.ErrOrderNotFound):
		return server.Fail(c, fiber.StatusNotFound, "Order not found")
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrRoleNotAllowed), errors.Is(err, service.ErrDisputeOnly):
		return server.Fail(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrRefundNotRequested), errors.Is(err, ports.ErrConflict):
		return server.Fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnknownStatus), errors.Is(err, domain.ErrUnknownResolution),
		errors.Is(err, service.ErrEmptyReason), errors.Is(err, service.ErrEmptyMessage):
		return server.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	logger.Get().Error("Order request failed",
		zap.String("order_id", c.Params("id")),
		zap.String("ray_id", server.RayID(c)),
		zap.Error(err),
	)
	return server.Fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// GetOrder handles GET /orders/:id.
// @Summary Get Order by ID
// @Description Customers see their own orders, sellers see orders containing their items.
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 403 {object} server.ErrorResponse
// @Failure 404 {object} server.ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	actor, _ := identity.FromCtx(c)

	o, err := h.lifecycle.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(o)
}

// ListOrders handles GET /orders?customer_id=.
// @Summary List a customer's orders
// @Tags Orders
// @Produce json
// @Param customer_id query string false "Customer ID, defaults to the caller"
// @Success 200 {array} domain.Order
// @Failure 403 {object} server.ErrorResponse
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	actor, _ := identity.FromCtx(c)
	customerID := c.Query("customer_id", actor.ID)

	orders, err := h.lifecycle.ListByCustomer(c.UserContext(), actor, customerID)
	if err != nil {
		return h.fail(c, err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return c.JSON(orders)
}

// StatusRequest is the body of POST /orders/:id/status.
type StatusRequest struct {
	Status   domain.Status `json:"status"`
	Location string        `json:"location,omitempty"`
	Details  string        `json:"details,omitempty"`
}

// UpdateStatus handles POST /orders/:id/status.
// @Summary Move an order to a new status
// @Description Rejected with 409 when the transition is not allowed from the current status.
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param status body StatusRequest true "Target status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} server.ErrorResponse
// @Failure 403 {object} server.ErrorResponse
// @Failure 409 {object} server.ErrorResponse
// @Router /orders/{id}/status [post]
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	o, err := h.lifecycle.Transition(c.UserContext(), actor, c.Params("id"), req.Status,
		domain.Note{Location: req.Location, Details: req.Details})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(o)
}

// RefundRequest is the body of POST /orders/:id/refund-request.
type RefundRequest struct {
	Reason   string   `json:"reason"`
	Evidence []string `json:"evidence,omitempty"`
}

// RequestRefund handles POST /orders/:id/refund-request.
// @Summary Request a refund
// @Tags Disputes
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param refund body RefundRequest true "Reason and evidence references"
// @Success 200 {object} domain.Order
// @Failure 400 {object} server.ErrorResponse
// @Failure 409 {object} server.ErrorResponse
// @Router /orders/{id}/refund-request [post]
func (h *OrderHandler) RequestRefund(c *fiber.Ctx) error {
	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	o, err := h.disputes.RequestRefund(c.UserContext(), actor, c.Params("id"), req.Reason, req.Evidence)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(o)
}

// ResolutionRequest is the body of POST /orders/:id/refund-resolution.
type ResolutionRequest struct {
	Resolution domain.Resolution `json:"resolution"`
}

// ResolveRefund handles POST /orders/:id/refund-resolution.
// @Summary Approve or reject a refund
// @Description Rejection logs the decision and leaves the order in refund-requested.
// @Tags Disputes
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param resolution body ResolutionRequest true "approved or rejected"
// @Success 200 {object} domain.Order
// @Failure 409 {object} server.ErrorResponse
// @Router /orders/{id}/refund-resolution [post]
func (h *OrderHandler) ResolveRefund(c *fiber.Ctx) error {
	var req ResolutionRequest
	if err := c.BodyParser(&req); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	o, err := h.disputes.ResolveRefund(c.UserContext(), actor, c.Params("id"), req.Resolution)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(o)
}

// MessageRequest is the body of POST /orders/:id/dispute-messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// PostDisputeMessage handles POST /orders/:id/dispute-messages.
// @Summary Post to the dispute thread
// @Tags Disputes
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param message body MessageRequest true "Message"
// @Success 201 {object} domain.DisputeMessage
// @Failure 400 {object} server.ErrorResponse
// @Router /orders/{id}/dispute-messages [post]
func (h *OrderHandler) PostDisputeMessage(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	m, err := h.disputes.PostDisputeMessage(c.UserContext(), actor, c.Params("id"), req.Message)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}
