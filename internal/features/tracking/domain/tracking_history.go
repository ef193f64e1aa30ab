package domain

import (
	"time"

	orders "kmerzone/internal/features/orders/domain"
)

// TrackingStatus represents the customer-facing global status of an order.
type TrackingStatus string

const (
	// TrackingStatusProcessing indicates the order is confirmed and awaiting the seller.
	TrackingStatusProcessing TrackingStatus = "PROCESSING"
	// TrackingStatusOrigin indicates the parcel is ready at the vendor.
	TrackingStatusOrigin TrackingStatus = "ORIGIN"
	// TrackingStatusInTransit indicates the parcel is moving between vendor, depot and customer.
	TrackingStatusInTransit TrackingStatus = "IN_TRANSIT"
	// TrackingStatusCompleted indicates the order has been delivered or refunded.
	TrackingStatusCompleted TrackingStatus = "COMPLETED"
	// TrackingStatusReturn indicates the parcel was returned to the vendor.
	TrackingStatusReturn TrackingStatus = "RETURN"
	// TrackingStatusIncidence indicates a problem that needs attention.
	TrackingStatusIncidence TrackingStatus = "INCIDENCE"
	// TrackingStatusCancelled indicates the order was cancelled.
	TrackingStatusCancelled TrackingStatus = "CANCELLED"
)

// GlobalStatusOf maps an order status onto the tracking page status.
func GlobalStatusOf(s orders.Status) TrackingStatus {
	switch s {
	case orders.StatusConfirmed:
		return TrackingStatusProcessing
	case orders.StatusReadyForPickup:
		return TrackingStatusOrigin
	case orders.StatusPickedUp, orders.StatusAtDepot, orders.StatusOutForDelivery:
		return TrackingStatusInTransit
	case orders.StatusDelivered, orders.StatusRefunded:
		return TrackingStatusCompleted
	case orders.StatusReturned:
		return TrackingStatusReturn
	case orders.StatusCancelled:
		return TrackingStatusCancelled
	}
	return TrackingStatusIncidence
}

var descriptions = map[orders.Status]string{
	orders.StatusConfirmed:       "Order confirmed",
	orders.StatusReadyForPickup:  "Parcel ready at the vendor",
	orders.StatusPickedUp:        "Parcel collected from the vendor",
	orders.StatusAtDepot:         "Parcel checked in at the depot",
	orders.StatusOutForDelivery:  "Out for delivery",
	orders.StatusDelivered:       "Delivered",
	orders.StatusCancelled:       "Order cancelled",
	orders.StatusRefundRequested: "Refund requested",
	orders.StatusRefunded:        "Refund issued",
	orders.StatusReturned:        "Returned to the vendor",
	orders.StatusDepotIssue:      "Problem reported at the depot",
	orders.StatusDeliveryFailed:  "Delivery attempt failed",
}

// TrackingHistory represents the complete tracking information for an order.
type TrackingHistory struct {
	// TrackingNumber is the public order reference.
	TrackingNumber string `json:"tracking_number"`
	// GlobalStatus is the overall status of the order.
	GlobalStatus TrackingStatus `json:"global_status"`
	// CurrentStatus is the lifecycle status the global status was derived from.
	CurrentStatus orders.Status `json:"current_status"`
	// History has one event per distinct status reached, in the order first reached.
	History []TrackingEvent `json:"history"`
}

// TrackingEvent represents a single event in the order's tracking history.
type TrackingEvent struct {
	// Date is the timestamp when the status was first reached.
	Date time.Time `json:"date"`
	// Text is the description of the tracking event.
	Text string `json:"text"`
	// City is the location where the event occurred.
	City string `json:"city,omitempty"`
	// Code is the lifecycle status for this event.
	Code string `json:"code"`
}

// FromOrder projects o onto its tracking page.
func FromOrder(o orders.Order) *TrackingHistory {
	h := &TrackingHistory{
		TrackingNumber: o.TrackingNumber,
		GlobalStatus:   GlobalStatusOf(o.Status),
		CurrentStatus:  o.Status,
		History:        make([]TrackingEvent, 0, len(o.TrackingHistory)),
	}
	for _, e := range o.TrackingHistory {
		text := descriptions[e.Status]
		if e.Details != "" {
			text += ": " + e.Details
		}
		h.History = append(h.History, TrackingEvent{
			Date: e.Date,
			Text: text,
			City: e.Location,
			Code: string(e.Status),
		})
	}
	return h
}
