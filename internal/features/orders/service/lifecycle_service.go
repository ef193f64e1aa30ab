package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"kmerzone/internal/core/identity"
	delivery "kmerzone/internal/features/delivery/domain"
	"kmerzone/internal/features/orders/domain"
	"kmerzone/internal/features/orders/ports"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// statusRoles lists who may move an order into each status.
var statusRoles = map[domain.Status][]identity.Role{
	domain.StatusReadyForPickup: {identity.RoleSeller, identity.RoleAdmin},
	domain.StatusPickedUp:       {identity.RoleDeliveryAgent, identity.RoleDepotAgent, identity.RoleAdmin},
	domain.StatusAtDepot:        {identity.RoleDepotAgent, identity.RoleAdmin},
	domain.StatusDepotIssue:     {identity.RoleDepotAgent, identity.RoleAdmin},
	domain.StatusOutForDelivery: {identity.RoleDeliveryAgent, identity.RoleDepotAgent, identity.RoleAdmin},
	domain.StatusDelivered:      {identity.RoleDeliveryAgent, identity.RoleDepotAgent, identity.RoleAdmin},
	domain.StatusDeliveryFailed: {identity.RoleDeliveryAgent, identity.RoleDepotAgent, identity.RoleAdmin},
	domain.StatusCancelled:      {identity.RoleCustomer, identity.RoleSeller, identity.RoleAdmin},
	domain.StatusReturned:       {identity.RoleDepotAgent, identity.RoleDeliveryAgent, identity.RoleAdmin},
}

// NewOrder carries the totals assembled at checkout.
type NewOrder struct {
	CustomerID      string                  `json:"customer_id"`
	Items           []domain.OrderItem      `json:"items"`
	Subtotal        decimal.Decimal         `json:"subtotal"`
	PromoCode       string                  `json:"promo_code,omitempty"`
	PromoDiscount   decimal.Decimal         `json:"promo_discount"`
	DeliveryFee     decimal.Decimal         `json:"delivery_fee"`
	LoyaltyDiscount decimal.Decimal         `json:"loyalty_discount"`
	Total           decimal.Decimal         `json:"total"`
	DeliveryMethod  delivery.DeliveryMethod `json:"delivery_method"`
	ShippingAddress *domain.Address         `json:"shipping_address,omitempty"`
	PickupPointID   string                  `json:"pickup_point_id,omitempty"`
}

func (in NewOrder) validate() error {
	switch {
	case strings.TrimSpace(in.CustomerID) == "":
		return fmt.Errorf("%w: customer id is required", ErrInvalidOrder)
	case len(in.Items) == 0:
		return fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	case !in.DeliveryMethod.Valid():
		return fmt.Errorf("%w: unknown delivery method %q", ErrInvalidOrder, in.DeliveryMethod)
	case in.DeliveryMethod == delivery.MethodHomeDelivery && (in.ShippingAddress == nil || strings.TrimSpace(in.ShippingAddress.City) == ""):
		return fmt.Errorf("%w: home delivery needs a shipping address with a city", ErrInvalidOrder)
	case in.Total.IsNegative():
		return fmt.Errorf("%w: total must not be negative", ErrInvalidOrder)
	}
	return nil
}

// LifecycleService owns order creation and status transitions.
type LifecycleService struct {
	base
}

// NewLifecycleService creates a LifecycleService. With strict unset any status may follow any status.
func NewLifecycleService(repo ports.OrderRepository, events ports.EventPublisher, strict bool, opts ...Option) *LifecycleService {
	return &LifecycleService{base: newBase(repo, events, strict, "orders", opts)}
}

// Prepare builds a confirmed order from checkout totals without storing it.
func (s *LifecycleService) Prepare(in NewOrder, by identity.Actor) (domain.Order, error) {
	if err := in.validate(); err != nil {
		return domain.Order{}, err
	}

	now := s.now()
	o := domain.Order{
		ID:              s.newID(),
		CustomerID:      in.CustomerID,
		TrackingNumber:  s.newTracking(),
		Items:           in.Items,
		Subtotal:        in.Subtotal,
		PromoCode:       in.PromoCode,
		PromoDiscount:   in.PromoDiscount,
		DeliveryFee:     in.DeliveryFee,
		LoyaltyDiscount: in.LoyaltyDiscount,
		Total:           in.Total,
		DeliveryMethod:  in.DeliveryMethod,
		ShippingAddress: in.ShippingAddress,
		PickupPointID:   in.PickupPointID,
		CreatedAt:       now,
		Version:         1,
	}
	o.ApplyStatus(domain.StatusConfirmed, recordOf(by), now, domain.Note{})
	return o.Clone(), nil
}

// Create prepares, stores and announces an order.
func (s *LifecycleService) Create(ctx context.Context, in NewOrder, by identity.Actor) (domain.Order, error) {
	o, err := s.Prepare(in, by)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return domain.Order{}, fmt.Errorf("service: failed to create order: %w", err)
	}
	s.Announce(ctx, o, by)
	return o, nil
}

// Announce publishes order.created for an order stored by another unit of work.
func (s *LifecycleService) Announce(ctx context.Context, o domain.Order, by identity.Actor) {
	s.log.Info("Order created",
		zap.String("order_id", o.ID),
		zap.String("tracking_number", o.TrackingNumber),
		zap.String("total", o.Total.String()),
	)
	s.publish(ctx, domain.NewEvent(domain.EventOrderCreated, &o, "", recordOf(by), o.CreatedAt))
}

// authorizeTransition checks the role gate for target.
func authorizeTransition(actor identity.Actor, target domain.Status) error {
	if !target.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownStatus, target)
	}
	if target == domain.StatusRefundRequested || target == domain.StatusRefunded {
		return ErrDisputeOnly
	}
	if !slices.Contains(statusRoles[target], actor.Role) {
		return fmt.Errorf("%w: %s cannot set %s", ErrRoleNotAllowed, actor.Role, target)
	}
	return nil
}

// Transition moves order id to target on behalf of actor.
func (s *LifecycleService) Transition(ctx context.Context, actor identity.Actor, id string, target domain.Status, note domain.Note) (domain.Order, error) {
	if err := authorizeTransition(actor, target); err != nil {
		return domain.Order{}, err
	}

	var previous domain.Status
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		if !canView(actor, o) {
			return ErrForbidden
		}
		previous = o.Status
		return o.Transition(target, recordOf(actor), s.now(), note, s.policy)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(o.Status)),
		zap.String("actor", actor.Label()),
	)
	s.publish(ctx, domain.NewEvent(domain.EventStatusChanged, &o, previous, recordOf(actor), o.UpdatedAt))
	return o, nil
}

// Get returns order id if actor may see it.
func (s *LifecycleService) Get(ctx context.Context, actor identity.Actor, id string) (domain.Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !canView(actor, &o) {
		return domain.Order{}, ErrForbidden
	}
	return o, nil
}

// GetByTrackingNumber returns the order behind a public reference.
func (s *LifecycleService) GetByTrackingNumber(ctx context.Context, number string) (domain.Order, error) {
	return s.repo.GetByTrackingNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
}

// ListByCustomer returns a customer's orders. Customers may only list their own.
func (s *LifecycleService) ListByCustomer(ctx context.Context, actor identity.Actor, customerID string) ([]domain.Order, error) {
	switch actor.Role {
	case identity.RoleCustomer:
		if customerID != actor.ID {
			return nil, ErrForbidden
		}
	case identity.RoleSeller:
		return nil, ErrForbidden
	}
	return s.repo.ListByCustomer(ctx, customerID)
}
