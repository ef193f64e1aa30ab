package service

import (
	"context"
	"strings"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/features/orders/domain"
	"kmerzone/internal/features/orders/ports"

	"go.uber.org/zap"
)

// DisputeService owns refund requests, refund decisions and the dispute thread.
type DisputeService struct {
	base
}

// NewDisputeService creates a DisputeService sharing the lifecycle's transition rules.
func NewDisputeService(repo ports.OrderRepository, events ports.EventPublisher, strict bool, opts ...Option) *DisputeService {
	return &DisputeService{base: newBase(repo, events, strict, "disputes", opts)}
}

// RequestRefund records the reason and evidence and moves the order to refund-requested.
// Only the owning customer or an administrator may ask.
func (s *DisputeService) RequestRefund(ctx context.Context, actor identity.Actor, id, reason string, evidence []string) (domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Order{}, ErrEmptyReason
	}
	if actor.Role != identity.RoleCustomer && actor.Role != identity.RoleAdmin {
		return domain.Order{}, ErrRoleNotAllowed
	}

	var previous domain.Status
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		if !canView(actor, o) {
			return ErrForbidden
		}
		previous = o.Status
		return o.RequestRefund(reason, evidence, recordOf(actor), s.now(), s.policy)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("Refund requested", zap.String("order_id", o.ID), zap.String("actor", actor.Label()))
	s.publish(ctx, domain.NewEvent(domain.EventStatusChanged, &o, previous, recordOf(actor), o.UpdatedAt))
	return o, nil
}

// ResolveRefund applies an administrator's decision on a pending refund.
func (s *DisputeService) ResolveRefund(ctx context.Context, actor identity.Actor, id string, resolution domain.Resolution) (domain.Order, error) {
	if actor.Role != identity.RoleAdmin {
		return domain.Order{}, ErrRoleNotAllowed
	}

	o, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		return o.ResolveRefund(resolution, recordOf(actor), s.now(), s.policy)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("Refund resolved",
		zap.String("order_id", o.ID),
		zap.String("resolution", string(resolution)),
		zap.String("actor", actor.Label()),
	)
	s.publish(ctx, domain.NewEvent(domain.EventStatusChanged, &o, domain.StatusRefundRequested, recordOf(actor), o.UpdatedAt))
	return o, nil
}

// PostDisputeMessage appends to the order's dispute thread. Terminal orders accept messages too.
func (s *DisputeService) PostDisputeMessage(ctx context.Context, actor identity.Actor, id, message string) (domain.DisputeMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.DisputeMessage{}, ErrEmptyMessage
	}
	switch actor.Role {
	case identity.RoleCustomer, identity.RoleSeller, identity.RoleAdmin:
	default:
		return domain.DisputeMessage{}, ErrRoleNotAllowed
	}

	var posted domain.DisputeMessage
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		if !canView(actor, o) {
			return ErrForbidden
		}
		posted = o.PostDisputeMessage(recordOf(actor), message, s.now())
		return nil
	})
	if err != nil {
		return domain.DisputeMessage{}, err
	}

	e := domain.NewEvent(domain.EventDisputeMessagePosted, &o, "", recordOf(actor), posted.Date)
	e.Message = posted.Message
	s.publish(ctx, e)
	return posted, nil
}
