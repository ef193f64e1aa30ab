package handler

import (
	"errors"

	"kmerzone/internal/core/logger"
	"kmerzone/internal/core/server"
	"kmerzone/internal/features/tracking/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TrackingHandler handles HTTP requests for tracking operations.
type TrackingHandler struct {
	trackingService *service.TrackingService
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(trackingService *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
	}
}

// Register mounts the public tracking route.
func (h *TrackingHandler) Register(r fiber.Router) {
	r.Get("/tracking/:number", h.GetTrackingHistory)
}

// GetTrackingHistory godoc
// @Summary Get tracking history for an order
// @Description Returns one event per distinct status reached and the derived global status. No identity headers are needed.
// @Tags tracking
// @Produce json
// @Param number path string true "Tracking Number"
// @Success 200 {object} domain.TrackingHistory
// @Failure 404 {object} server.ErrorResponse
// @Router /tracking/{number} [get]
func (h *TrackingHandler) GetTrackingHistory(c *fiber.Ctx) error {
	trackingNumber := c.Params("number")
	if trackingNumber == "" {
		return server.Fail(c, fiber.StatusBadRequest, "tracking number is required")
	}

	history, err := h.trackingService.GetTrackingHistory(c.UserContext(), trackingNumber)
	if err != nil {
		if errors.Is(err, service.ErrTrackingNotFound) {
			return server.Fail(c, fiber.StatusNotFound, "tracking number not found")
		}

		logger.Get().Error("Failed to load tracking history",
			zap.String("tracking_number", trackingNumber),
			zap.String("ray_id", server.RayID(c)),
			zap.Error(err),
		)
		return server.Fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	return c.JSON(history)
}
