package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/logger"
	delivery "kmerzone/internal/features/delivery/domain"
	"kmerzone/internal/features/orders/adapters"
	"kmerzone/internal/features/orders/domain"
	"kmerzone/internal/features/orders/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, e domain.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	return m.Called().Error(0)
}

var (
	customer      = identity.Actor{ID: "c1", Role: identity.RoleCustomer}
	otherCustomer = identity.Actor{ID: "c2", Role: identity.RoleCustomer}
	seller        = identity.Actor{ID: "s1", Name: "Boutique Akwa", Role: identity.RoleSeller}
	otherSeller   = identity.Actor{ID: "s2", Name: "Marché Central", Role: identity.RoleSeller}
	depotAgent    = identity.Actor{ID: "d1", Role: identity.RoleDepotAgent}
	courier       = identity.Actor{ID: "r1", Role: identity.RoleDeliveryAgent}
	admin         = identity.Actor{ID: "a1", Role: identity.RoleAdmin}
	fixedNow      = time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC)
)

type fixture struct {
	repo      ports.OrderRepository
	events    *MockEventPublisher
	lifecycle *LifecycleService
	disputes  *DisputeService
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()
	repo := adapters.NewMemoryRepository()
	events := new(MockEventPublisher)
	events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	opts := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "o1" }),
		WithTrackingNumbers(func() string { return "KZ000000000001" }),
	}
	return &fixture{
		repo:      repo,
		events:    events,
		lifecycle: NewLifecycleService(repo, events, strict, opts...),
		disputes:  NewDisputeService(repo, events, strict, opts...),
	}
}

func sampleInput() NewOrder {
	return NewOrder{
		CustomerID: "c1",
		Items: []domain.OrderItem{
			{ProductID: "p1", VendorName: "Boutique Akwa", Quantity: 1, UnitPrice: decimal.NewFromInt(3000), LineTotal: decimal.NewFromInt(3000)},
			{ProductID: "p2", VendorName: "Yaoundé Style", Quantity: 2, UnitPrice: decimal.NewFromInt(5000), LineTotal: decimal.NewFromInt(10000)},
		},
		Subtotal:        decimal.NewFromInt(13000),
		DeliveryFee:     decimal.NewFromInt(3500),
		Total:           decimal.NewFromInt(16500),
		DeliveryMethod:  delivery.MethodHomeDelivery,
		ShippingAddress: &domain.Address{Line: "Rue Joss", City: "Douala"},
	}
}

func (f *fixture) create(t *testing.T) domain.Order {
	t.Helper()
	o, err := f.lifecycle.Create(context.Background(), sampleInput(), customer)
	require.NoError(t, err)
	return o
}

func (f *fixture) published(kind domain.EventType) []domain.Event {
	var out []domain.Event
	for _, c := range f.events.Calls {
		if e := c.Arguments.Get(1).(domain.Event); e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestLifecycleService_Create(t *testing.T) {
	f := newFixture(t, true)
	o := f.create(t)

	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, "KZ000000000001", o.TrackingNumber)
	assert.Equal(t, domain.StatusConfirmed, o.Status)
	assert.Equal(t, fixedNow, o.CreatedAt)
	require.Len(t, o.StatusChangeLog, 1)
	require.Len(t, o.TrackingHistory, 1)
	assert.Equal(t, "customer", o.StatusChangeLog[0].ChangedBy.Role)

	stored, err := f.repo.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.True(t, stored.Total.Equal(decimal.NewFromInt(16500)))

	created := f.published(domain.EventOrderCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "o1", created[0].OrderID)
}

func TestLifecycleService_CreateValidation(t *testing.T) {
	f := newFixture(t, true)
	tests := []struct {
		name   string
		mutate func(*NewOrder)
	}{
		{"NoCustomer", func(in *NewOrder) { in.CustomerID = " " }},
		{"NoItems", func(in *NewOrder) { in.Items = nil }},
		{"UnknownMethod", func(in *NewOrder) { in.DeliveryMethod = "drone" }},
		{"HomeDeliveryWithoutCity", func(in *NewOrder) { in.ShippingAddress = &domain.Address{Line: "x"} }},
		{"NegativeTotal", func(in *NewOrder) { in.Total = decimal.NewFromInt(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleInput()
			tt.mutate(&in)
			_, err := f.lifecycle.Create(context.Background(), in, customer)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}

	t.Run("PickupNeedsNoAddress", func(t *testing.T) {
		in := sampleInput()
		in.DeliveryMethod = delivery.MethodPickup
		in.ShippingAddress = nil
		_, err := f.lifecycle.Prepare(in, customer)
		assert.NoError(t, err)
	})
}

func TestLifecycleService_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.create(t)

	steps := []struct {
		actor  identity.Actor
		status domain.Status
	}{
		{seller, domain.StatusReadyForPickup},
		{courier, domain.StatusPickedUp},
		{depotAgent, domain.StatusAtDepot},
		{courier, domain.StatusOutForDelivery},
		{courier, domain.StatusDelivered},
	}
	for _, s := range steps {
		o, err := f.lifecycle.Transition(ctx, s.actor, "o1", s.status, domain.Note{Location: "Douala"})
		require.NoError(t, err, s.status)
		assert.Equal(t, s.status, o.Status)
	}

	o, err := f.lifecycle.Get(ctx, admin, "o1")
	require.NoError(t, err)
	assert.Len(t, o.StatusChangeLog, 6)
	assert.Len(t, o.TrackingHistory, 6)
	assert.Equal(t, int64(6), o.Version)

	changes := f.published(domain.EventStatusChanged)
	require.Len(t, changes, 5)
	assert.Equal(t, domain.StatusOutForDelivery, changes[4].PreviousStatus)
	assert.Equal(t, domain.StatusDelivered, changes[4].Status)
}

func TestLifecycleService_TransitionRules(t *testing.T) {
	ctx := context.Background()

	t.Run("StrictRejectsSkippedSteps", func(t *testing.T) {
		f := newFixture(t, true)
		f.create(t)
		_, err := f.lifecycle.Transition(ctx, courier, "o1", domain.StatusDelivered, domain.Note{})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Empty(t, f.published(domain.EventStatusChanged))
	})

	t.Run("PermissiveAllowsAnyOrder", func(t *testing.T) {
		f := newFixture(t, false)
		f.create(t)
		for _, s := range []domain.Status{domain.StatusOutForDelivery, domain.StatusDeliveryFailed, domain.StatusOutForDelivery} {
			_, err := f.lifecycle.Transition(ctx, courier, "o1", s, domain.Note{})
			require.NoError(t, err)
		}
		o, err := f.repo.Get(ctx, "o1")
		require.NoError(t, err)
		assert.Len(t, o.StatusChangeLog, 4)
		assert.Len(t, o.TrackingHistory, 3)
	})

	t.Run("RoleGates", func(t *testing.T) {
		f := newFixture(t, true)
		f.create(t)
		_, err := f.lifecycle.Transition(ctx, customer, "o1", domain.StatusReadyForPickup, domain.Note{})
		assert.ErrorIs(t, err, ErrRoleNotAllowed)
		_, err = f.lifecycle.Transition(ctx, seller, "o1", domain.StatusAtDepot, domain.Note{})
		assert.ErrorIs(t, err, ErrRoleNotAllowed)
		_, err = f.lifecycle.Transition(ctx, admin, "o1", domain.StatusRefunded, domain.Note{})
		assert.ErrorIs(t, err, ErrDisputeOnly)
		_, err = f.lifecycle.Transition(ctx, admin, "o1", "lost", domain.Note{})
		assert.ErrorIs(t, err, domain.ErrUnknownStatus)
	})

	t.Run("OwnershipGates", func(t *testing.T) {
		f := newFixture(t, true)
		f.create(t)
		_, err := f.lifecycle.Transition(ctx, otherSeller, "o1", domain.StatusReadyForPickup, domain.Note{})
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.lifecycle.Transition(ctx, otherCustomer, "o1", domain.StatusCancelled, domain.Note{})
		assert.ErrorIs(t, err, ErrForbidden)

		o, err := f.lifecycle.Transition(ctx, customer, "o1", domain.StatusCancelled, domain.Note{Details: "changed my mind"})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, o.Status)
	})

	t.Run("UnknownOrder", func(t *testing.T) {
		f := newFixture(t, true)
		_, err := f.lifecycle.Transition(ctx, admin, "nope", domain.StatusCancelled, domain.Note{})
		assert.ErrorIs(t, err, ports.ErrOrderNotFound)
	})
}

func TestLifecycleService_ConcurrentActorsNeverOverwrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.create(t)

	actors := []identity.Actor{seller, courier, depotAgent, admin}
	targets := []domain.Status{domain.StatusReadyForPickup, domain.StatusPickedUp, domain.StatusAtDepot, domain.StatusDepotIssue}

	const rounds = 10
	var wg sync.WaitGroup
	for r := 0; r < rounds; r++ {
		for i := range actors {
			wg.Add(1)
			go func(a identity.Actor, s domain.Status) {
				defer wg.Done()
				_, err := f.lifecycle.Transition(ctx, a, "o1", s, domain.Note{})
				assert.NoError(t, err)
			}(actors[i], targets[i])
		}
	}
	wg.Wait()

	o, err := f.repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, o.StatusChangeLog, 1+rounds*len(actors))
	assert.Len(t, o.TrackingHistory, 1+len(targets))
}

func TestLifecycleService_Views(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.create(t)

	_, err := f.lifecycle.Get(ctx, customer, "o1")
	assert.NoError(t, err)
	_, err = f.lifecycle.Get(ctx, seller, "o1")
	assert.NoError(t, err)
	_, err = f.lifecycle.Get(ctx, otherCustomer, "o1")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.lifecycle.Get(ctx, otherSeller, "o1")
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := f.lifecycle.ListByCustomer(ctx, customer, "c1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = f.lifecycle.ListByCustomer(ctx, otherCustomer, "c1")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.lifecycle.ListByCustomer(ctx, seller, "c1")
	assert.ErrorIs(t, err, ErrForbidden)

	byNumber, err := f.lifecycle.GetByTrackingNumber(ctx, " kz000000000001 ")
	require.NoError(t, err)
	assert.Equal(t, "o1", byNumber.ID)
}

func TestLifecycleService_PublishFailureKeepsChange(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(zap.NewNop()) })

	ctx := context.Background()
	repo := adapters.NewMemoryRepository()
	events := new(MockEventPublisher)
	events.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := NewLifecycleService(repo, events, true, WithClock(func() time.Time { return fixedNow }))

	o, err := svc.Create(ctx, sampleInput(), customer)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, seller, o.ID, domain.StatusReadyForPickup, domain.Note{})
	require.NoError(t, err)

	stored, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReadyForPickup, stored.Status)
	assert.Equal(t, 2, logs.FilterMessage("Failed to publish order event").Len())
	events.AssertNumberOfCalls(t, "Publish", 2)
}

func TestNewTrackingNumber(t *testing.T) {
	a, b := NewTrackingNumber(), NewTrackingNumber()
	assert.Len(t, a, 14)
	assert.True(t, strings.HasPrefix(a, "KZ"))
	assert.Equal(t, strings.ToUpper(a), a)
	assert.NotEqual(t, a, b)
}

func TestDisputeService_RefundFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("Approved", func(t *testing.T) {
		f := newFixture(t, true)
		f.create(t)

		o, err := f.disputes.RequestRefund(ctx, customer, "o1", " damaged ", []string{"https://img/1"})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefundRequested, o.Status)
		assert.Equal(t, "damaged", o.RefundReason)

		o, err = f.disputes.ResolveRefund(ctx, admin, "o1", domain.ResolutionApproved)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefunded, o.Status)
		require.NotNil(t, o.RefundDecision)

		changes := f.published(domain.EventStatusChanged)
		require.Len(t, changes, 2)
		assert.Equal(t, domain.StatusRefundRequested, changes[1].PreviousStatus)
	})

	t.Run("RejectedKeepsStatus", func(t *testing.T) {
		f := newFixture(t, true)
		f.create(t)
		_, err := f.disputes.RequestRefund(ctx, customer, "o1", "late", nil)
		require.NoError(t, err)

		o, err := f.disputes.ResolveRefund(ctx, admin, "o1", domain.ResolutionRejected)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefundRequested, o.Status)
		assert.Len(t, o.StatusChangeLog, 3)
		assert.Len(t, o.TrackingHistory, 2)
		assert.Equal(t, domain.ResolutionRejected, o.RefundDecision.Resolution)
	})

	t.Run("ResolveWithoutRequest", func(t *testing.T) {
		f := newFixture(t, true)
		f.create(t)
		_, err := f.disputes.ResolveRefund(ctx, admin, "o1", domain.ResolutionApproved)
		assert.ErrorIs(t, err, domain.ErrRefundNotRequested)
	})

	t.Run("Gates", func(t *testing.T) {
		f := newFixture(t, true)
		f.create(t)
		_, err := f.disputes.RequestRefund(ctx, customer, "o1", "  ", nil)
		assert.ErrorIs(t, err, ErrEmptyReason)
		_, err = f.disputes.RequestRefund(ctx, otherCustomer, "o1", "mine", nil)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.disputes.RequestRefund(ctx, seller, "o1", "x", nil)
		assert.ErrorIs(t, err, ErrRoleNotAllowed)
		_, err = f.disputes.ResolveRefund(ctx, customer, "o1", domain.ResolutionApproved)
		assert.ErrorIs(t, err, ErrRoleNotAllowed)
	})

	t.Run("TerminalOrder", func(t *testing.T) {
		f := newFixture(t, true)
		f.create(t)
		_, err := f.lifecycle.Transition(ctx, customer, "o1", domain.StatusCancelled, domain.Note{})
		require.NoError(t, err)
		_, err = f.disputes.RequestRefund(ctx, customer, "o1", "x", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestDisputeService_Messages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.create(t)
	_, err := f.lifecycle.Transition(ctx, customer, "o1", domain.StatusCancelled, domain.Note{})
	require.NoError(t, err)

	m, err := f.disputes.PostDisputeMessage(ctx, customer, "o1", "  where is my refund?  ")
	require.NoError(t, err)
	assert.Equal(t, "where is my refund?", m.Message)
	assert.Equal(t, "customer", m.AuthorRole)
	assert.Equal(t, fixedNow, m.Date)

	_, err = f.disputes.PostDisputeMessage(ctx, seller, "o1", "we shipped it")
	require.NoError(t, err)

	_, err = f.disputes.PostDisputeMessage(ctx, customer, "o1", " ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = f.disputes.PostDisputeMessage(ctx, otherSeller, "o1", "hello")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.disputes.PostDisputeMessage(ctx, courier, "o1", "hello")
	assert.ErrorIs(t, err, ErrRoleNotAllowed)

	o, err := f.repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, o.DisputeLog, 2)
	assert.Equal(t, domain.StatusCancelled, o.Status)

	posted := f.published(domain.EventDisputeMessagePosted)
	require.Len(t, posted, 2)
	assert.Equal(t, "we shipped it", posted[1].Message)
}
