package domain

import (
	"errors"
	"maps"
	"slices"
	"time"

	delivery "kmerzone/internal/features/delivery/domain"

	"github.com/shopspring/decimal"
)

var (
	// ErrRefundNotRequested is returned when resolving a refund on an order not awaiting one.
	ErrRefundNotRequested = errors.New("order has no pending refund request")
	// ErrUnknownResolution is returned for a refund decision other than approved or rejected.
	ErrUnknownResolution = errors.New("unknown refund resolution")
)

// Actor is the identity recorded against every change.
type Actor struct {
	// ID is the identifier issued by the authentication collaborator.
	ID string `json:"id"`
	// Role is the display role at the time of the change (e.g. seller, depot-agent).
	Role string `json:"role"`
	// Name is the display name, when known.
	Name string `json:"name,omitempty"`
}

// Address is a home-delivery destination.
type Address struct {
	// Recipient is the person receiving the parcel.
	Recipient string `json:"recipient,omitempty"`
	// Phone is the contact number given to the delivery agent.
	Phone string `json:"phone,omitempty"`
	// Line is the street or landmark description.
	Line string `json:"line"`
	// City drives the intra-/inter-urban delivery fee.
	City string `json:"city"`
}

// OrderItem is a cart line frozen at checkout.
type OrderItem struct {
	// ProductID references the catalog product.
	ProductID string `json:"product_id"`
	// Name is the product name at checkout time.
	Name string `json:"name"`
	// VendorName is the selling vendor.
	VendorName string `json:"vendor"`
	// Quantity is the number of units purchased.
	Quantity int `json:"quantity"`
	// SelectedVariant is the chosen option per variant axis.
	SelectedVariant map[string]string `json:"selected_variant,omitempty"`
	// UnitPrice is the price actually charged per unit.
	UnitPrice decimal.Decimal `json:"unit_price"`
	// PriceSource names the pricing rule that produced UnitPrice.
	PriceSource string `json:"price_source"`
	// LineTotal is UnitPrice times Quantity.
	LineTotal decimal.Decimal `json:"line_total"`
}

// StatusChange is one entry of the audit trail.
type StatusChange struct {
	Status    Status    `json:"status"`
	Date      time.Time `json:"date"`
	ChangedBy Actor     `json:"changed_by"`
}

// TrackingEntry is the first time the order reached a status.
type TrackingEntry struct {
	Status   Status    `json:"status"`
	Date     time.Time `json:"date"`
	Location string    `json:"location,omitempty"`
	Details  string    `json:"details,omitempty"`
}

// DisputeMessage is one post in the dispute thread.
type DisputeMessage struct {
	AuthorRole string    `json:"author_role"`
	AuthorID   string    `json:"author_id"`
	Message    string    `json:"message"`
	Date       time.Time `json:"date"`
}

// Resolution is an administrator's refund decision.
type Resolution string

const (
	ResolutionApproved Resolution = "approved"
	ResolutionRejected Resolution = "rejected"
)

// RefundDecision records the latest refund resolution.
type RefundDecision struct {
	Resolution Resolution `json:"resolution"`
	DecidedBy  Actor      `json:"decided_by"`
	DecidedAt  time.Time  `json:"decided_at"`
}

// Note carries the optional location and details of a tracking entry.
type Note struct {
	Location string `json:"location,omitempty"`
	Details  string `json:"details,omitempty"`
}

// Order is the aggregate driven through the lifecycle.
type Order struct {
	// ID is the unique identifier for the order.
	ID string `json:"id"`
	// CustomerID is the owning customer.
	CustomerID string `json:"customer_id"`
	// TrackingNumber is the public reference shown to the customer.
	TrackingNumber string `json:"tracking_number"`
	// Items are the frozen cart lines.
	Items []OrderItem `json:"items"`
	// Subtotal is the sum of line totals.
	Subtotal decimal.Decimal `json:"subtotal"`
	// PromoCode is the applied code, if any.
	PromoCode string `json:"promo_code,omitempty"`
	// PromoDiscount is taken off the subtotal.
	PromoDiscount decimal.Decimal `json:"promo_discount"`
	// DeliveryFee is the computed multi-vendor fee.
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	// LoyaltyDiscount is the premium discount on the delivery fee.
	LoyaltyDiscount decimal.Decimal `json:"loyalty_discount"`
	// Total is what the customer pays.
	Total decimal.Decimal `json:"total"`
	// DeliveryMethod is home-delivery or pickup.
	DeliveryMethod delivery.DeliveryMethod `json:"delivery_method"`
	// ShippingAddress is set for home delivery.
	ShippingAddress *Address `json:"shipping_address,omitempty"`
	// PickupPointID is set for pickup.
	PickupPointID string `json:"pickup_point_id,omitempty"`
	// Status is the current lifecycle state.
	Status Status `json:"status"`
	// StatusChangeLog has one entry per transition, ever.
	StatusChangeLog []StatusChange `json:"status_change_log"`
	// TrackingHistory has one entry per distinct status reached.
	TrackingHistory []TrackingEntry `json:"tracking_history"`
	// DisputeLog is the append-only dispute thread.
	DisputeLog []DisputeMessage `json:"dispute_log,omitempty"`
	// RefundReason is set by a refund request.
	RefundReason string `json:"refund_reason,omitempty"`
	// RefundEvidence holds opaque evidence references.
	RefundEvidence []string `json:"refund_evidence,omitempty"`
	// RefundDecision is the latest resolution.
	RefundDecision *RefundDecision `json:"refund_decision,omitempty"`
	// CreatedAt is the order timestamp.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the time of the last change.
	UpdatedAt time.Time `json:"updated_at"`
	// Version increases with every persisted change.
	Version int64 `json:"version"`
}

// Vendors returns the distinct vendors of the order in item order.
func (o *Order) Vendors() []string {
	var out []string
	for _, it := range o.Items {
		if !slices.Contains(out, it.VendorName) {
			out = append(out, it.VendorName)
		}
	}
	return out
}

// ProductIDs returns the distinct products of the order.
func (o *Order) ProductIDs() []string {
	var out []string
	for _, it := range o.Items {
		if !slices.Contains(out, it.ProductID) {
			out = append(out, it.ProductID)
		}
	}
	return out
}

// reached is the set of statuses already present in the tracking history.
func (o *Order) reached() map[Status]struct{} {
	set := make(map[Status]struct{}, len(o.TrackingHistory))
	for _, e := range o.TrackingHistory {
		set[e.Status] = struct{}{}
	}
	return set
}

// ApplyStatus records a status change without validating it.
// The change is always appended to the status log; the tracking history only
// gains an entry the first time a status is reached.
func (o *Order) ApplyStatus(to Status, by Actor, at time.Time, note Note) {
	o.StatusChangeLog = append(o.StatusChangeLog, StatusChange{Status: to, Date: at, ChangedBy: by})
	if _, seen := o.reached()[to]; !seen {
		o.TrackingHistory = append(o.TrackingHistory, TrackingEntry{
			Status:   to,
			Date:     at,
			Location: note.Location,
			Details:  note.Details,
		})
	}
	o.Status = to
	o.UpdatedAt = at
}

// Transition validates the change with policy and applies it.
func (o *Order) Transition(to Status, by Actor, at time.Time, note Note, policy TransitionPolicy) error {
	if err := policy.Check(o.Status, to); err != nil {
		return err
	}
	o.ApplyStatus(to, by, at, note)
	return nil
}

// RequestRefund records the reason and evidence and moves the order to refund-requested.
// The reason stays on the order only; the tracking entry carries no details.
func (o *Order) RequestRefund(reason string, evidence []string, by Actor, at time.Time, policy TransitionPolicy) error {
	if err := policy.Check(o.Status, StatusRefundRequested); err != nil {
		return err
	}
	o.RefundReason = reason
	o.RefundEvidence = slices.Clone(evidence)
	o.ApplyStatus(StatusRefundRequested, by, at, Note{})
	return nil
}

// ResolveRefund applies an administrator decision. Approval moves the order to
// refunded; rejection re-applies the current status so the decision is logged
// without changing state.
func (o *Order) ResolveRefund(resolution Resolution, by Actor, at time.Time, policy TransitionPolicy) error {
	if o.Status != StatusRefundRequested {
		return ErrRefundNotRequested
	}

	var target Status
	switch resolution {
	case ResolutionApproved:
		target = StatusRefunded
	case ResolutionRejected:
		target = o.Status
	default:
		return ErrUnknownResolution
	}

	if err := o.Transition(target, by, at, Note{Details: "refund " + string(resolution)}, policy); err != nil {
		return err
	}
	o.RefundDecision = &RefundDecision{Resolution: resolution, DecidedBy: by, DecidedAt: at}
	return nil
}

// PostDisputeMessage appends to the dispute thread regardless of status.
func (o *Order) PostDisputeMessage(author Actor, message string, at time.Time) DisputeMessage {
	m := DisputeMessage{AuthorRole: author.Role, AuthorID: author.ID, Message: message, Date: at}
	o.DisputeLog = append(o.DisputeLog, m)
	o.UpdatedAt = at
	return m
}

// Clone returns a deep copy of o.
func (o Order) Clone() Order {
	o.Items = slices.Clone(o.Items)
	for i := range o.Items {
		o.Items[i].SelectedVariant = maps.Clone(o.Items[i].SelectedVariant)
	}
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		o.ShippingAddress = &addr
	}
	o.StatusChangeLog = slices.Clone(o.StatusChangeLog)
	o.TrackingHistory = slices.Clone(o.TrackingHistory)
	o.DisputeLog = slices.Clone(o.DisputeLog)
	o.RefundEvidence = slices.Clone(o.RefundEvidence)
	if o.RefundDecision != nil {
		d := *o.RefundDecision
		o.RefundDecision = &d
	}
	return o
}
