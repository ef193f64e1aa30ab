package service

import (
	"context"
	"errors"
	"fmt"

	ordersports "kmerzone/internal/features/orders/ports"
	"kmerzone/internal/features/tracking/domain"
	"kmerzone/internal/features/tracking/ports"
)

// ErrTrackingNotFound is returned when the tracking number is not found.
var ErrTrackingNotFound = errors.New("tracking not found")

// TrackingService serves the customer-facing tracking page.
type TrackingService struct {
	lookup ports.OrderLookup
}

// NewTrackingService creates a new TrackingService reading from lookup.
func NewTrackingService(lookup ports.OrderLookup) *TrackingService {
	return &TrackingService{
		lookup: lookup,
	}
}

// GetTrackingHistory retrieves the tracking history for a given tracking number.
func (s *TrackingService) GetTrackingHistory(ctx context.Context, trackingNumber string) (*domain.TrackingHistory, error) {
	o, err := s.lookup.GetByTrackingNumber(ctx, trackingNumber)
	if errors.Is(err, ordersports.ErrOrderNotFound) {
		return nil, ErrTrackingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return domain.FromOrder(o), nil
}
