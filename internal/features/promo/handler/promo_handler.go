package handler

import (
	"errors"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/logger"
	"kmerzone/internal/core/server"
	"kmerzone/internal/features/promo/domain"
	"kmerzone/internal/features/promo/ports"
	"kmerzone/internal/features/promo/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PromoHandler handles HTTP requests for promo codes.
type PromoHandler struct {
	service *service.PromoService
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(svc *service.PromoService) *PromoHandler {
	return &PromoHandler{service: svc}
}

// Register mounts the promo routes.
func (h *PromoHandler) Register(r fiber.Router) {
	sellers := identity.RequireRole(identity.RoleSeller, identity.RoleAdmin)

	r.Post("/promo-codes/apply", h.ApplyCode)
	r.Post("/promo-codes", sellers, h.CreateCode)
	r.Get("/promo-codes", sellers, h.ListCodes)
	r.Put("/promo-codes/:code", sellers, h.UpdateCode)
}

// RejectionResponse reports a refused promo code.
func RejectionResponse(c *fiber.Ctx, r *domain.Rejection) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(server.ErrorResponse{
		Message: r.Error(),
		RayID:   server.RayID(c),
		Reason:  string(r.Reason),
	})
}

func (h *PromoHandler) fail(c *fiber.Ctx, err error) error {
	if r, ok := domain.AsRejection(err); ok {
		return RejectionResponse(c, r)
	}
	switch {
	case errors.Is(err, ports.ErrPromoCodeNotFound):
		return server.Fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, ports.ErrPromoCodeExists), errors.Is(err, domain.ErrPromoCodeLocked):
		return server.Fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		return server.Fail(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidPromoCode):
		return server.Fail(c, fiber.StatusBadRequest, err.Error())
	}
	logger.Get().Error("Promo request failed", zap.String("ray_id", server.RayID(c)), zap.Error(err))
	return server.Fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// CreateCode handles POST /promo-codes.
// @Summary Create a promo code
// @Description Codes are stored uppercase and owned by the calling seller.
// @Tags Promo codes
// @Accept json
// @Produce json
// @Param code body service.CodeInput true "Promo code"
// @Success 201 {object} domain.PromoCode
// @Failure 400 {object} server.ErrorResponse
// @Failure 409 {object} server.ErrorResponse
// @Router /promo-codes [post]
func (h *PromoHandler) CreateCode(c *fiber.Ctx) error {
	var in service.CodeInput
	if err := c.BodyParser(&in); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	p, err := h.service.CreateCode(c.UserContext(), actor, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// UpdateCode handles PUT /promo-codes/:code.
// @Summary Edit a promo code
// @Description Refused with 409 once the code has been redeemed.
// @Tags Promo codes
// @Accept json
// @Produce json
// @Param code path string true "Code"
// @Param body body service.CodeInput true "Promo code"
// @Success 200 {object} domain.PromoCode
// @Failure 409 {object} server.ErrorResponse
// @Router /promo-codes/{code} [put]
func (h *PromoHandler) UpdateCode(c *fiber.Ctx) error {
	var in service.CodeInput
	if err := c.BodyParser(&in); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	p, err := h.service.UpdateCode(c.UserContext(), actor, c.Params("code"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

// ListCodes handles GET /promo-codes.
// @Summary List the caller's promo codes
// @Tags Promo codes
// @Produce json
// @Success 200 {array} domain.PromoCode
// @Router /promo-codes [get]
func (h *PromoHandler) ListCodes(c *fiber.Ctx) error {
	actor, _ := identity.FromCtx(c)
	seller := actor.Vendor()
	if actor.Role == identity.RoleAdmin && c.Query("seller") != "" {
		seller = c.Query("seller")
	}

	codes, err := h.service.ListCodes(c.UserContext(), seller)
	if err != nil {
		return h.fail(c, err)
	}
	if codes == nil {
		codes = []domain.PromoCode{}
	}
	return c.JSON(codes)
}

// ApplyCodeRequest is the body of POST /promo-codes/apply.
type ApplyCodeRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ApplyCode handles POST /promo-codes/apply.
// @Summary Price a promo code against a subtotal
// @Description Evaluates without counting a use. Rejections return 422 with a reason code.
// @Tags Promo codes
// @Accept json
// @Produce json
// @Param body body ApplyCodeRequest true "Code and subtotal"
// @Success 200 {object} domain.Application
// @Failure 422 {object} server.ErrorResponse
// @Router /promo-codes/apply [post]
func (h *PromoHandler) ApplyCode(c *fiber.Ctx) error {
	var req ApplyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	app, err := h.service.Apply(c.UserContext(), req.Code, req.Subtotal)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(app)
}
