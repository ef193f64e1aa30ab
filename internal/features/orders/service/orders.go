package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/logger"
	"kmerzone/internal/features/orders/domain"
	"kmerzone/internal/features/orders/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrForbidden is returned when the actor may not see or change the order.
	ErrForbidden = errors.New("actor may not access this order")
	// ErrRoleNotAllowed is returned when the actor's role may not set the target status.
	ErrRoleNotAllowed = errors.New("role may not set this status")
	// ErrDisputeOnly is returned for statuses owned by the dispute workflow.
	ErrDisputeOnly = errors.New("status is only reachable through a refund request or resolution")
	// ErrInvalidOrder is returned for an order that cannot be created.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrEmptyReason is returned for a refund request without a reason.
	ErrEmptyReason = errors.New("refund reason is required")
	// ErrEmptyMessage is returned for a blank dispute message.
	ErrEmptyMessage = errors.New("dispute message is required")
)

// Option customises the order services.
type Option func(*base)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithIDGenerator replaces the uuid generator used for order ids.
func WithIDGenerator(next func() string) Option {
	return func(b *base) { b.newID = next }
}

// WithTrackingNumbers replaces the tracking number generator.
func WithTrackingNumbers(next func() string) Option {
	return func(b *base) { b.newTracking = next }
}

// NewTrackingNumber returns a public order reference such as KZ3F9A0C12B7E4.
func NewTrackingNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "KZ" + strings.ToUpper(raw[:12])
}

// base holds what the lifecycle and dispute services share.
type base struct {
	repo        ports.OrderRepository
	events      ports.EventPublisher
	policy      domain.TransitionPolicy
	now         func() time.Time
	newID       func() string
	newTracking func() string
	log         *zap.Logger
}

func newBase(repo ports.OrderRepository, events ports.EventPublisher, strict bool, name string, opts []Option) base {
	b := base{
		repo:        repo,
		events:      events,
		policy:      domain.PolicyFor(strict),
		now:         time.Now,
		newID:       uuid.NewString,
		newTracking: NewTrackingNumber,
		log:         logger.Named(name),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// publish announces e. A failure is logged and never undoes the committed change.
func (b *base) publish(ctx context.Context, e domain.Event) {
	if b.events == nil {
		return
	}
	if err := b.events.Publish(ctx, e); err != nil {
		b.log.Error("Failed to publish order event",
			zap.String("event", string(e.Type)),
			zap.String("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}

// recordOf converts the request identity into the actor stored on the order.
func recordOf(a identity.Actor) domain.Actor {
	return domain.Actor{ID: a.ID, Role: string(a.Role), Name: a.Name}
}

// canView reports whether actor may read o. Customers see their own orders,
// sellers see orders containing their items.
func canView(actor identity.Actor, o *domain.Order) bool {
	switch actor.Role {
	case identity.RoleCustomer:
		return o.CustomerID == actor.ID
	case identity.RoleSeller:
		return slices.Contains(o.Vendors(), actor.Vendor())
	case identity.RoleAdmin, identity.RoleDepotAgent, identity.RoleDeliveryAgent, identity.RoleSystem:
		return true
	}
	return false
}
