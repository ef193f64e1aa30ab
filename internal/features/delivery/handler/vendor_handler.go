package handler

import (
	"errors"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/logger"
	"kmerzone/internal/core/server"
	"kmerzone/internal/features/delivery/domain"
	"kmerzone/internal/features/delivery/ports"
	"kmerzone/internal/features/delivery/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// VendorHandler handles HTTP requests for the vendor directory.
type VendorHandler struct {
	service *service.VendorService
}

// NewVendorHandler creates a new VendorHandler.
func NewVendorHandler(svc *service.VendorService) *VendorHandler {
	return &VendorHandler{service: svc}
}

// Register mounts the vendor routes.
func (h *VendorHandler) Register(r fiber.Router) {
	r.Post("/vendors", identity.RequireRole(identity.RoleAdmin), h.RegisterVendor)
	r.Get("/vendors/:name", h.GetVendor)
}

// RegisterVendor handles POST /vendors.
// @Summary Register a vendor
// @Description Creates or replaces a vendor directory entry.
// @Tags Vendors
// @Accept json
// @Produce json
// @Param vendor body domain.Vendor true "Vendor"
// @Success 200 {object} domain.Vendor
// @Failure 400 {object} server.ErrorResponse
// @Failure 409 {object} server.ErrorResponse
// @Router /vendors [post]
func (h *VendorHandler) RegisterVendor(c *fiber.Ctx) error {
	var v domain.Vendor
	if err := c.BodyParser(&v); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	saved, err := h.service.RegisterVendor(c.UserContext(), v)
	switch {
	case err == nil:
		return c.JSON(saved)
	case errors.Is(err, domain.ErrInvalidVendor):
		return server.Fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ports.ErrReadOnlyDirectory):
		return server.Fail(c, fiber.StatusConflict, err.Error())
	}
	logger.Get().Error("Failed to register vendor", zap.String("ray_id", server.RayID(c)), zap.Error(err))
	return server.Fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// GetVendor handles GET /vendors/:name.
// @Summary Look up a vendor
// @Tags Vendors
// @Produce json
// @Param name path string true "Vendor name"
// @Success 200 {object} domain.Vendor
// @Failure 404 {object} server.ErrorResponse
// @Router /vendors/{name} [get]
func (h *VendorHandler) GetVendor(c *fiber.Ctx) error {
	v, err := h.service.GetVendor(c.UserContext(), c.Params("name"))
	switch {
	case err == nil:
		return c.JSON(v)
	case errors.Is(err, ports.ErrVendorNotFound):
		return server.Fail(c, fiber.StatusNotFound, err.Error())
	}
	logger.Get().Error("Failed to look up vendor", zap.String("ray_id", server.RayID(c)), zap.Error(err))
	return server.Fail(c, fiber.StatusBadGateway, "Vendor directory unavailable")
}
