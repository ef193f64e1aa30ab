package domain

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrictPolicy_Table(t *testing.T) {
	strict := StrictPolicy{}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			err := strict.Check(from, to)
			allowed := !from.Terminal() && (from == to || slices.Contains(Successors(from), to))
			if allowed {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestStrictPolicy_Examples(t *testing.T) {
	strict := StrictPolicy{}
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusConfirmed, StatusReadyForPickup, true},
		{StatusConfirmed, StatusDelivered, false},
		{StatusAtDepot, StatusDelivered, true},
		{StatusOutForDelivery, StatusDeliveryFailed, true},
		{StatusDeliveryFailed, StatusOutForDelivery, true},
		{StatusRefundRequested, StatusRefunded, true},
		{StatusRefundRequested, StatusRefundRequested, true},
		{StatusDelivered, StatusDelivered, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusPickedUp, StatusConfirmed, false},
	}
	for _, tt := range tests {
		err := strict.Check(tt.from, tt.to)
		assert.Equal(t, tt.ok, err == nil, "%s -> %s: %v", tt.from, tt.to, err)
	}
}

func TestPolicies_UnknownStatus(t *testing.T) {
	assert.ErrorIs(t, StrictPolicy{}.Check(StatusConfirmed, "teleported"), ErrUnknownStatus)
	assert.ErrorIs(t, PermissivePolicy{}.Check(StatusConfirmed, "teleported"), ErrUnknownStatus)
}

func TestPermissivePolicy_AnyToAny(t *testing.T) {
	p := PolicyFor(false)
	assert.NoError(t, p.Check(StatusDelivered, StatusConfirmed))
	assert.NoError(t, p.Check(StatusConfirmed, StatusRefunded))
	assert.IsType(t, StrictPolicy{}, PolicyFor(true))
}

func TestStatus_Terminal(t *testing.T) {
	for _, s := range AllStatuses {
		want := s == StatusDelivered || s == StatusCancelled || s == StatusRefunded || s == StatusReturned
		assert.Equal(t, want, s.Terminal(), s)
		assert.True(t, s.Valid())
	}
}
