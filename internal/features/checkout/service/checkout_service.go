package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"kmerzone/internal/core/cache"
	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/logger"
	catalog "kmerzone/internal/features/catalog/domain"
	catalogservice "kmerzone/internal/features/catalog/service"
	"kmerzone/internal/features/checkout/ports"
	delivery "kmerzone/internal/features/delivery/domain"
	deliveryports "kmerzone/internal/features/delivery/ports"
	deliveryservice "kmerzone/internal/features/delivery/service"
	orders "kmerzone/internal/features/orders/domain"
	ordersservice "kmerzone/internal/features/orders/service"
	promo "kmerzone/internal/features/promo/domain"
	promoports "kmerzone/internal/features/promo/ports"
	promoservice "kmerzone/internal/features/promo/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCheckout is returned for a cart or destination that cannot be checked out.
	ErrInvalidCheckout = errors.New("invalid checkout request")
	// ErrRequestInProgress is returned when a checkout with the same idempotency key is still running.
	ErrRequestInProgress = errors.New("a checkout with this idempotency key is in progress")
)

var hundred = decimal.NewFromInt(100)

const pendingMarker = "pending"

// Request is a cart submitted for pricing or ordering.
type Request struct {
	Items           []catalogservice.CartItem `json:"items"`
	DeliveryMethod  delivery.DeliveryMethod   `json:"delivery_method"`
	ShippingAddress *orders.Address           `json:"shipping_address,omitempty"`
	PickupPointID   string                    `json:"pickup_point_id,omitempty"`
	PromoCode       string                    `json:"promo_code,omitempty"`
}

func (r Request) destination() string {
	if r.ShippingAddress == nil {
		return ""
	}
	return r.ShippingAddress.City
}

func (r Request) validate() error {
	switch {
	case len(r.Items) == 0:
		return fmt.Errorf("%w: cart is empty", ErrInvalidCheckout)
	case !r.DeliveryMethod.Valid():
		return fmt.Errorf("%w: unknown delivery method %q", ErrInvalidCheckout, r.DeliveryMethod)
	case r.DeliveryMethod == delivery.MethodHomeDelivery && strings.TrimSpace(r.destination()) == "":
		return fmt.Errorf("%w: home delivery needs a destination city", ErrInvalidCheckout)
	}
	return nil
}

// Quote is the fully priced cart.
type Quote struct {
	Lines           []catalogservice.PricedLine `json:"lines"`
	Subtotal        decimal.Decimal             `json:"subtotal"`
	Promo           *promo.Application          `json:"promo,omitempty"`
	PromoDiscount   decimal.Decimal             `json:"promo_discount"`
	Delivery        delivery.FeeBreakdown       `json:"delivery"`
	DeliveryFee     decimal.Decimal             `json:"delivery_fee"`
	LoyaltyDiscount decimal.Decimal             `json:"loyalty_discount"`
	Total           decimal.Decimal             `json:"total"`
}

// Result is the outcome of PlaceOrder.
type Result struct {
	Order orders.Order `json:"order"`
	// Replayed is set when the order was created by an earlier request with the same key.
	Replayed bool `json:"replayed"`
}

// Dependencies are the collaborators of a CheckoutService.
type Dependencies struct {
	Catalog     *catalogservice.CatalogService
	Fees        *deliveryservice.FeeCalculator
	Vendors     deliveryports.VendorDirectory
	Promos      promoports.PromoCodeRegistry
	Orders      *ordersservice.LifecycleService
	UnitOfWork  ports.UnitOfWork
	Idempotency cache.Cache
}

// Settings tune pricing and retries.
type Settings struct {
	// PremiumDiscountPercent is taken off the delivery fee of premium customers.
	PremiumDiscountPercent decimal.Decimal
	// IdempotencyTTL is how long an idempotency key is remembered.
	IdempotencyTTL time.Duration
}

// CheckoutService turns carts into confirmed orders.
type CheckoutService struct {
	deps     Dependencies
	settings Settings
	log      *zap.Logger
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(deps Dependencies, settings Settings) *CheckoutService {
	return &CheckoutService{deps: deps, settings: settings, log: logger.Named("checkout")}
}

// Quote prices req for actor without storing anything or counting a promo use.
func (s *CheckoutService) Quote(ctx context.Context, actor identity.Actor, req Request) (Quote, error) {
	if err := req.validate(); err != nil {
		return Quote{}, err
	}

	lines, err := s.deps.Catalog.PriceCart(ctx, req.Items)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{
		Lines:           lines,
		Subtotal:        decimal.Zero,
		PromoDiscount:   decimal.Zero,
		LoyaltyDiscount: decimal.Zero,
	}
	perVendor := make(map[string]decimal.Decimal)
	cart := make([]catalog.CartLine, 0, len(lines))
	for _, l := range lines {
		q.Subtotal = q.Subtotal.Add(l.LineTotal)
		perVendor[l.Product.VendorName] = perVendor[l.Product.VendorName].Add(l.LineTotal)
		cart = append(cart, l.CartLine)
	}

	q.Delivery, err = s.deps.Fees.ComputeFee(ctx, cart, req.DeliveryMethod, req.destination(), s.deps.Vendors)
	if err != nil {
		return Quote{}, fmt.Errorf("service: delivery fee: %w", err)
	}
	q.DeliveryFee = q.Delivery.Total

	if code := strings.TrimSpace(req.PromoCode); code != "" {
		app, err := promoservice.ApplyToSellers(ctx, code, perVendor, s.deps.Promos, s.deps.Catalog.Now())
		if err != nil {
			return Quote{}, err
		}
		q.Promo = &app
		q.PromoDiscount = app.Discount
	}

	if actor.Premium && s.settings.PremiumDiscountPercent.IsPositive() {
		q.LoyaltyDiscount = q.DeliveryFee.Mul(s.settings.PremiumDiscountPercent).Div(hundred).Round(2)
	}

	q.Total = q.Subtotal.Sub(q.PromoDiscount).Add(q.DeliveryFee).Sub(q.LoyaltyDiscount)
	return q, nil
}

// PlaceOrder prices req and stores the resulting order, counting the promo use in the
// same unit of work. A non-empty idempotencyKey makes retries return the first order.
func (s *CheckoutService) PlaceOrder(ctx context.Context, actor identity.Actor, req Request, idempotencyKey string) (Result, error) {
	key := s.idempotencyKey(actor, idempotencyKey)
	if key != "" {
		replay, err := s.claim(ctx, actor, key)
		if err != nil {
			return Result{}, err
		}
		if replay != nil {
			return Result{Order: *replay, Replayed: true}, nil
		}
	}

	o, err := s.place(ctx, actor, req)
	if key != "" {
		s.settle(ctx, key, o, err)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Order: o}, nil
}

func (s *CheckoutService) place(ctx context.Context, actor identity.Actor, req Request) (orders.Order, error) {
	q, err := s.Quote(ctx, actor, req)
	if err != nil {
		return orders.Order{}, err
	}

	in := ordersservice.NewOrder{
		CustomerID:      actor.ID,
		Items:           itemsOf(q.Lines),
		Subtotal:        q.Subtotal,
		PromoDiscount:   q.PromoDiscount,
		DeliveryFee:     q.DeliveryFee,
		LoyaltyDiscount: q.LoyaltyDiscount,
		Total:           q.Total,
		DeliveryMethod:  req.DeliveryMethod,
		ShippingAddress: req.ShippingAddress,
		PickupPointID:   req.PickupPointID,
	}
	if q.Promo != nil {
		in.PromoCode = q.Promo.Code
	}

	o, err := s.deps.Orders.Prepare(in, actor)
	if err != nil {
		return orders.Order{}, err
	}

	if err := s.deps.UnitOfWork.PlaceOrder(ctx, o, in.PromoCode); err != nil {
		switch {
		case errors.Is(err, promoports.ErrUsageLimitReached):
			return orders.Order{}, promo.Reject(in.PromoCode, promo.ReasonUsageLimitReached)
		case errors.Is(err, promoports.ErrPromoCodeNotFound):
			return orders.Order{}, promo.Reject(in.PromoCode, promo.ReasonNotFound)
		}
		return orders.Order{}, fmt.Errorf("service: failed to place order: %w", err)
	}

	if degraded := q.Delivery.Degraded(); len(degraded) > 0 {
		s.log.Warn("Order priced with fallback delivery fee", zap.String("order_id", o.ID), zap.Strings("vendors", degraded))
	}
	s.deps.Orders.Announce(ctx, o, actor)
	return o, nil
}

func itemsOf(lines []catalogservice.PricedLine) []orders.OrderItem {
	items := make([]orders.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, orders.OrderItem{
			ProductID:       l.Product.ID,
			Name:            l.Product.Name,
			VendorName:      l.Product.VendorName,
			Quantity:        l.Quantity,
			SelectedVariant: l.SelectedVariant,
			UnitPrice:       l.Resolution.Price,
			PriceSource:     string(l.Resolution.Source),
			LineTotal:       l.LineTotal,
		})
	}
	return items
}

func (s *CheckoutService) idempotencyKey(actor identity.Actor, key string) string {
	key = strings.TrimSpace(key)
	if key == "" || s.deps.Idempotency == nil {
		return ""
	}
	return "checkout:" + actor.ID + ":" + key
}

// claimAttempts bounds how often claim retries a key released between reserve and lookup.
const claimAttempts = 3

// claim reserves key. It returns the earlier order when the key was already used.
func (s *CheckoutService) claim(ctx context.Context, actor identity.Actor, key string) (*orders.Order, error) {
	var raw []byte
	for attempt := 1; ; attempt++ {
		ok, err := s.deps.Idempotency.SetNX(ctx, key, []byte(pendingMarker), s.settings.IdempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("service: idempotency reserve: %w", err)
		}
		if ok {
			return nil, nil
		}

		raw, err = s.deps.Idempotency.Get(ctx, key)
		if err == nil {
			break
		}
		if !errors.Is(err, cache.ErrCacheMiss) || attempt == claimAttempts {
			return nil, fmt.Errorf("service: idempotency lookup: %w", err)
		}
		s.log.Debug("Idempotency key released during claim, retrying", zap.String("key", key), zap.Int("attempt", attempt))
	}
	if string(raw) == pendingMarker {
		return nil, ErrRequestInProgress
	}

	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("service: idempotency record: %w", err)
	}
	o, err := s.deps.Orders.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("Checkout replayed", zap.String("order_id", o.ID))
	return &o, nil
}

// settle records the order id under key, or releases key when placing failed.
func (s *CheckoutService) settle(ctx context.Context, key string, o orders.Order, placeErr error) {
	if placeErr != nil {
		if err := s.deps.Idempotency.Delete(ctx, key); err != nil {
			s.log.Error("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
		}
		return
	}
	raw, _ := json.Marshal(o.ID)
	if err := s.deps.Idempotency.Set(ctx, key, raw, s.settings.IdempotencyTTL); err != nil {
		s.log.Error("Failed to record idempotency key, releasing it",
			zap.String("key", key),
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
		// A pending marker left behind would reject every retry until the TTL runs out.
		if err := s.deps.Idempotency.Delete(ctx, key); err != nil {
			s.log.Error("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
		}
	}
}
