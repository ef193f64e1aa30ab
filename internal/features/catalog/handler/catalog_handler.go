package handler

import (
	"errors"
	"time"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/logger"
	"kmerzone/internal/core/server"
	"kmerzone/internal/features/catalog/domain"
	"kmerzone/internal/features/catalog/ports"
	"kmerzone/internal/features/catalog/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogHandler handles HTTP requests for products and flash sales.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Register mounts the catalog routes. The identity middleware must run first.
func (h *CatalogHandler) Register(r fiber.Router) {
	sellers := identity.RequireRole(identity.RoleSeller, identity.RoleAdmin)
	admins := identity.RequireRole(identity.RoleAdmin)

	r.Post("/products", sellers, h.CreateProduct)
	r.Get("/products/:id", h.GetProduct)
	r.Put("/products/:id", sellers, h.UpdateProduct)
	r.Post("/products/:id/publish", sellers, h.PublishProduct)
	r.Post("/products/:id/archive", sellers, h.ArchiveProduct)

	r.Post("/flash-sales", admins, h.CreateFlashSale)
	r.Get("/flash-sales/active", h.ActiveFlashSales)
	r.Post("/flash-sales/:id/entries", sellers, h.ProposeEntry)
	r.Post("/flash-sales/:id/entries/review", admins, h.ReviewEntry)
}

func (h *CatalogHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ports.ErrProductNotFound), errors.Is(err, ports.ErrFlashSaleNotFound), errors.Is(err, domain.ErrEntryNotFound):
		return server.Fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		return server.Fail(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrProductInUse), errors.Is(err, ports.ErrProductExists):
		return server.Fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidProduct), errors.Is(err, domain.ErrInvalidFlashSale), errors.Is(err, service.ErrInvalidFlashPrice):
		return server.Fail(c, fiber.StatusBadRequest, err.Error())
	}
	logger.Get().Error("Catalog request failed", zap.String("ray_id", server.RayID(c)), zap.Error(err))
	return server.Fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// CreateProduct handles POST /products.
// @Summary Register a product
// @Description Creates a draft product owned by the calling seller.
// @Tags Catalog
// @Accept json
// @Produce json
// @Param product body service.ProductInput true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} server.ErrorResponse
// @Failure 403 {object} server.ErrorResponse
// @Router /products [post]
func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var in service.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	p, err := h.service.CreateProduct(c.UserContext(), actor, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// UpdateProduct handles PUT /products/:id.
// @Summary Update a product
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param product body service.ProductInput true "Product"
// @Success 200 {object} domain.Product
// @Failure 400 {object} server.ErrorResponse
// @Failure 404 {object} server.ErrorResponse
// @Router /products/{id} [put]
func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	var in service.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	p, err := h.service.UpdateProduct(c.UserContext(), actor, c.Params("id"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

// GetProduct handles GET /products/:id.
// @Summary Get a product
// @Tags Catalog
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} server.ErrorResponse
// @Router /products/{id} [get]
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	p, err := h.service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

// PublishProduct handles POST /products/:id/publish.
// @Summary Publish a product
// @Tags Catalog
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Router /products/{id}/publish [post]
func (h *CatalogHandler) PublishProduct(c *fiber.Ctx) error {
	actor, _ := identity.FromCtx(c)
	p, err := h.service.PublishProduct(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

// ArchiveProduct handles POST /products/:id/archive.
// @Summary Archive a product
// @Description Refused with 409 while an open order references the product.
// @Tags Catalog
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 409 {object} server.ErrorResponse
// @Router /products/{id}/archive [post]
func (h *CatalogHandler) ArchiveProduct(c *fiber.Ctx) error {
	actor, _ := identity.FromCtx(c)
	p, err := h.service.ArchiveProduct(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

// CreateFlashSaleRequest is the body of POST /flash-sales.
type CreateFlashSaleRequest struct {
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// CreateFlashSale handles POST /flash-sales.
// @Summary Create a flash sale
// @Tags Flash sales
// @Accept json
// @Produce json
// @Param sale body CreateFlashSaleRequest true "Sale window"
// @Success 201 {object} domain.FlashSale
// @Failure 400 {object} server.ErrorResponse
// @Router /flash-sales [post]
func (h *CatalogHandler) CreateFlashSale(c *fiber.Ctx) error {
	var req CreateFlashSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	sale, err := h.service.CreateFlashSale(c.UserContext(), actor, req.Name, req.StartsAt, req.EndsAt)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sale)
}

// ActiveFlashSales handles GET /flash-sales/active.
// @Summary List active flash sales
// @Tags Flash sales
// @Produce json
// @Param at query string false "RFC3339 instant, defaults to now"
// @Success 200 {array} domain.FlashSale
// @Router /flash-sales/active [get]
func (h *CatalogHandler) ActiveFlashSales(c *fiber.Ctx) error {
	at := h.service.Now()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return server.Fail(c, fiber.StatusBadRequest, "at must be an RFC3339 timestamp")
		}
		at = parsed
	}

	sales, err := h.service.ActiveFlashSales(c.UserContext(), at)
	if err != nil {
		return h.fail(c, err)
	}
	if sales == nil {
		sales = []domain.FlashSale{}
	}
	return c.JSON(sales)
}

// ProposeEntryRequest is the body of POST /flash-sales/:id/entries.
type ProposeEntryRequest struct {
	ProductID  string          `json:"product_id"`
	FlashPrice decimal.Decimal `json:"flash_price"`
}

// ProposeEntry handles POST /flash-sales/:id/entries.
// @Summary Propose a flash-sale entry
// @Tags Flash sales
// @Accept json
// @Produce json
// @Param id path string true "Flash sale ID"
// @Param entry body ProposeEntryRequest true "Entry"
// @Success 200 {object} domain.FlashSale
// @Router /flash-sales/{id}/entries [post]
func (h *CatalogHandler) ProposeEntry(c *fiber.Ctx) error {
	var req ProposeEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	sale, err := h.service.ProposeEntry(c.UserContext(), actor, c.Params("id"), req.ProductID, req.FlashPrice)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sale)
}

// ReviewEntryRequest is the body of POST /flash-sales/:id/entries/review.
type ReviewEntryRequest struct {
	ProductID string `json:"product_id"`
	Approve   bool   `json:"approve"`
}

// ReviewEntry handles POST /flash-sales/:id/entries/review.
// @Summary Approve or reject a flash-sale entry
// @Tags Flash sales
// @Accept json
// @Produce json
// @Param id path string true "Flash sale ID"
// @Param review body ReviewEntryRequest true "Decision"
// @Success 200 {object} domain.FlashSale
// @Router /flash-sales/{id}/entries/review [post]
func (h *CatalogHandler) ReviewEntry(c *fiber.Ctx) error {
	var req ReviewEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return server.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	actor, _ := identity.FromCtx(c)

	sale, err := h.service.ReviewEntry(c.UserContext(), actor, c.Params("id"), req.ProductID, req.Approve)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sale)
}
