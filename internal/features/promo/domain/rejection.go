package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// RejectionReason says why a code was not applied.
type RejectionReason string

const (
	ReasonNotFound          RejectionReason = "not_found"
	ReasonExpired           RejectionReason = "expired"
	ReasonBelowMinimum      RejectionReason = "below_minimum"
	ReasonUsageLimitReached RejectionReason = "usage_limit_reached"
	// ReasonNotApplicable means the cart holds nothing sold by the code's seller.
	ReasonNotApplicable RejectionReason = "not_applicable"
)

// ErrRejected matches every *Rejection with errors.Is.
var ErrRejected = errors.New("promo code rejected")

// Rejection is returned instead of a discount. Nothing is mutated when a code is rejected.
type Rejection struct {
	Code   string          `json:"code"`
	Reason RejectionReason `json:"reason"`
}

func (r *Rejection) Error() string {
	return "promo code " + r.Code + " rejected: " + string(r.Reason)
}

// Is makes errors.Is(err, ErrRejected) hold.
func (r *Rejection) Is(target error) bool {
	return target == ErrRejected
}

// Reject builds a Rejection.
func Reject(code string, reason RejectionReason) *Rejection {
	return &Rejection{Code: code, Reason: reason}
}

// AsRejection extracts a Rejection from err.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	ok := errors.As(err, &r)
	return r, ok
}

// Application is an accepted code and the discount it grants.
type Application struct {
	Code     string          `json:"code"`
	Seller   string          `json:"seller"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
}
