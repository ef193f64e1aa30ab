package domain

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusConfirmed       Status = "confirmed"
	StatusReadyForPickup  Status = "ready-for-pickup"
	StatusPickedUp        Status = "picked-up"
	StatusAtDepot         Status = "at-depot"
	StatusOutForDelivery  Status = "out-for-delivery"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
	StatusRefundRequested Status = "refund-requested"
	StatusRefunded        Status = "refunded"
	StatusReturned        Status = "returned"
	StatusDepotIssue      Status = "depot-issue"
	StatusDeliveryFailed  Status = "delivery-failed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusConfirmed, StatusReadyForPickup, StatusPickedUp, StatusAtDepot, StatusOutForDelivery,
	StatusDelivered, StatusCancelled, StatusRefundRequested, StatusRefunded, StatusReturned,
	StatusDepotIssue, StatusDeliveryFailed,
}

// ErrInvalidTransition matches every *TransitionError.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrUnknownStatus is returned for a status outside the closed set.
var ErrUnknownStatus = errors.New("unknown order status")

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := successors[s]
	return ok
}

// Terminal reports whether no further status-affecting transition exists from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRefunded, StatusReturned:
		return true
	}
	return false
}

// successors is the strict transition table.
var successors = map[Status][]Status{
	StatusConfirmed:       {StatusReadyForPickup, StatusCancelled, StatusRefundRequested},
	StatusReadyForPickup:  {StatusPickedUp, StatusCancelled, StatusRefundRequested},
	StatusPickedUp:        {StatusAtDepot, StatusDepotIssue, StatusRefundRequested},
	StatusAtDepot:         {StatusOutForDelivery, StatusDelivered, StatusDepotIssue, StatusRefundRequested},
	StatusDepotIssue:      {StatusAtDepot, StatusReturned, StatusCancelled, StatusRefundRequested},
	StatusOutForDelivery:  {StatusDelivered, StatusDeliveryFailed, StatusRefundRequested},
	StatusDeliveryFailed:  {StatusOutForDelivery, StatusAtDepot, StatusReturned, StatusRefundRequested},
	StatusRefundRequested: {StatusRefunded, StatusCancelled, StatusReturned, StatusReadyForPickup, StatusPickedUp, StatusAtDepot, StatusOutForDelivery},
	StatusDelivered:       nil,
	StatusCancelled:       nil,
	StatusRefunded:        nil,
	StatusReturned:        nil,
}

// Successors returns the statuses reachable from s in strict mode, excluding s itself.
func Successors(s Status) []Status {
	return append([]Status(nil), successors[s]...)
}

// TransitionPolicy decides whether a status change is allowed.
type TransitionPolicy interface {
	Check(from, to Status) error
}

// StrictPolicy enforces the transition table. Re-applying the current status
// of a non-terminal order is always allowed.
type StrictPolicy struct{}

// Check implements TransitionPolicy.
func (StrictPolicy) Check(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if from.Terminal() {
		return &TransitionError{From: from, To: to}
	}
	if from == to {
		return nil
	}
	for _, next := range successors[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// PermissivePolicy allows any known status to follow any status.
type PermissivePolicy struct{}

// Check implements TransitionPolicy.
func (PermissivePolicy) Check(_, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	return nil
}

// PolicyFor returns StrictPolicy when strict is set.
func PolicyFor(strict bool) TransitionPolicy {
	if strict {
		return StrictPolicy{}
	}
	return PermissivePolicy{}
}

// TransitionError reports an illegal status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

// Is makes errors.Is(err, ErrInvalidTransition) hold.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
