package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0       = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	agent    = Actor{ID: "d1", Role: "delivery-agent", Name: "Paul"}
	customer = Actor{ID: "c1", Role: "customer"}
	admin    = Actor{ID: "a1", Role: "admin"}
)

func newOrder() *Order {
	o := &Order{ID: "o1", CustomerID: "c1", TrackingNumber: "KZ1"}
	o.ApplyStatus(StatusConfirmed, Actor{ID: "system", Role: "system"}, t0, Note{})
	return o
}

func TestOrder_TrackingDedup(t *testing.T) {
	o := newOrder()

	steps := []Status{StatusOutForDelivery, StatusDeliveryFailed, StatusOutForDelivery}
	for i, s := range steps {
		o.ApplyStatus(s, agent, t0.Add(time.Duration(i+1)*time.Hour), Note{})
	}

	require.Len(t, o.StatusChangeLog, 4, "every transition is logged")
	require.Len(t, o.TrackingHistory, 3, "repeat status is not re-tracked")
	assert.Equal(t, []Status{StatusConfirmed, StatusOutForDelivery, StatusDeliveryFailed},
		[]Status{o.TrackingHistory[0].Status, o.TrackingHistory[1].Status, o.TrackingHistory[2].Status})
	assert.Equal(t, t0.Add(time.Hour), o.TrackingHistory[1].Date, "first occurrence keeps its date")
	assert.Equal(t, StatusOutForDelivery, o.Status)
	assert.Equal(t, agent, o.StatusChangeLog[3].ChangedBy)
}

func TestOrder_TrackingDedupPermissive(t *testing.T) {
	o := newOrder()
	policy := PermissivePolicy{}

	for _, s := range []Status{StatusOutForDelivery, StatusDeliveryFailed, StatusOutForDelivery} {
		require.NoError(t, o.Transition(s, agent, t0, Note{}, policy))
	}
	assert.Len(t, o.StatusChangeLog, 4)
	assert.Len(t, o.TrackingHistory, 3)
}

func TestOrder_TrackingEntryCarriesNote(t *testing.T) {
	o := newOrder()
	o.ApplyStatus(StatusAtDepot, agent, t0, Note{Location: "Depot Bonabéri", Details: "shelf B4"})

	last := o.TrackingHistory[len(o.TrackingHistory)-1]
	assert.Equal(t, "Depot Bonabéri", last.Location)
	assert.Equal(t, "shelf B4", last.Details)
}

func TestOrder_StrictTransition(t *testing.T) {
	o := newOrder()
	strict := StrictPolicy{}

	err := o.Transition(StatusDelivered, agent, t0, Note{}, strict)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StatusConfirmed, te.From)
	assert.Equal(t, StatusDelivered, te.To)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, o.StatusChangeLog, 1, "rejected transitions leave no trace")

	require.NoError(t, o.Transition(StatusReadyForPickup, agent, t0, Note{}, strict))
	assert.Equal(t, StatusReadyForPickup, o.Status)
}

func TestOrder_RequestAndResolveRefund(t *testing.T) {
	strict := StrictPolicy{}

	t.Run("Approved", func(t *testing.T) {
		o := newOrder()
		require.NoError(t, o.RequestRefund("wrong size", []string{"img://1"}, customer, t0, strict))
		assert.Equal(t, StatusRefundRequested, o.Status)
		assert.Equal(t, "wrong size", o.RefundReason)
		assert.Equal(t, []string{"img://1"}, o.RefundEvidence)
		assert.Empty(t, o.TrackingHistory[len(o.TrackingHistory)-1].Details, "the reason is not copied to tracking")

		require.NoError(t, o.ResolveRefund(ResolutionApproved, admin, t0.Add(time.Hour), strict))
		assert.Equal(t, StatusRefunded, o.Status)
		require.NotNil(t, o.RefundDecision)
		assert.Equal(t, ResolutionApproved, o.RefundDecision.Resolution)
	})

	t.Run("RejectedLogsWithoutChangingState", func(t *testing.T) {
		o := newOrder()
		require.NoError(t, o.RequestRefund("late", nil, customer, t0, strict))
		logLen, trackLen := len(o.StatusChangeLog), len(o.TrackingHistory)

		require.NoError(t, o.ResolveRefund(ResolutionRejected, admin, t0.Add(time.Hour), strict))
		assert.Equal(t, StatusRefundRequested, o.Status)
		assert.Len(t, o.StatusChangeLog, logLen+1)
		assert.Len(t, o.TrackingHistory, trackLen)
		assert.Equal(t, admin, o.StatusChangeLog[logLen].ChangedBy)
	})

	t.Run("NotRequested", func(t *testing.T) {
		o := newOrder()
		assert.ErrorIs(t, o.ResolveRefund(ResolutionApproved, admin, t0, strict), ErrRefundNotRequested)
		assert.Len(t, o.StatusChangeLog, 1)
	})

	t.Run("UnknownResolution", func(t *testing.T) {
		o := newOrder()
		require.NoError(t, o.RequestRefund("x", nil, customer, t0, strict))
		assert.ErrorIs(t, o.ResolveRefund("maybe", admin, t0, strict), ErrUnknownResolution)
	})

	t.Run("TerminalOrderCannotRequest", func(t *testing.T) {
		o := newOrder()
		o.ApplyStatus(StatusDelivered, agent, t0, Note{})
		assert.ErrorIs(t, o.RequestRefund("x", nil, customer, t0, strict), ErrInvalidTransition)
		assert.Empty(t, o.RefundReason)
	})
}

func TestOrder_DisputeLogIsUnconditional(t *testing.T) {
	o := newOrder()
	o.ApplyStatus(StatusCancelled, admin, t0, Note{})

	o.PostDisputeMessage(customer, "where is my money", t0.Add(time.Minute))
	o.PostDisputeMessage(admin, "looking into it", t0.Add(2*time.Minute))

	require.Len(t, o.DisputeLog, 2)
	assert.Equal(t, "customer", o.DisputeLog[0].AuthorRole)
	assert.Equal(t, "looking into it", o.DisputeLog[1].Message)
	assert.Equal(t, StatusCancelled, o.Status)
}

func TestOrder_CloneIsDeep(t *testing.T) {
	o := newOrder()
	o.Items = []OrderItem{{ProductID: "p1", SelectedVariant: map[string]string{"Size": "M"}, UnitPrice: decimal.NewFromInt(1)}}
	o.ShippingAddress = &Address{City: "Douala"}

	c := o.Clone()
	c.Items[0].SelectedVariant["Size"] = "XL"
	c.ShippingAddress.City = "Yaoundé"
	c.ApplyStatus(StatusReadyForPickup, agent, t0, Note{})

	assert.Equal(t, "M", o.Items[0].SelectedVariant["Size"])
	assert.Equal(t, "Douala", o.ShippingAddress.City)
	assert.Len(t, o.StatusChangeLog, 1)
}

func TestOrder_Accessors(t *testing.T) {
	o := Order{Items: []OrderItem{
		{ProductID: "p1", VendorName: "A"},
		{ProductID: "p2", VendorName: "B"},
		{ProductID: "p1", VendorName: "A"},
	}}
	assert.Equal(t, []string{"A", "B"}, o.Vendors())
	assert.Equal(t, []string{"p1", "p2"}, o.ProductIDs())
}

func TestOrder_MarshalJSON(t *testing.T) {
	o := newOrder()
	o.Total = decimal.NewFromInt(16500)

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "confirmed", m["status"])
	assert.Equal(t, "16500", m["total"])
	assert.Contains(t, m, "status_change_log")
	assert.Contains(t, m, "tracking_history")
}
