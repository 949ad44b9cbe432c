package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType represents the service category of an order.
type OrderType string

const (
	OrderTypeRide             OrderType = "ride"
	OrderTypeFoodDelivery     OrderType = "food_delivery"
	OrderTypeParcelDelivery   OrderType = "parcel_delivery"
	OrderTypeMedicalProduct   OrderType = "medical_product"
	OrderTypePatientTransport OrderType = "patient_transport"
)

// ValidOrderType reports whether t is a known order type.
func ValidOrderType(t OrderType) bool {
	switch t {
	case OrderTypeRide, OrderTypeFoodDelivery, OrderTypeParcelDelivery,
		OrderTypeMedicalProduct, OrderTypePatientTransport:
		return true
	}
	return false
}

// OrderStatus represents the current lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusInTransit OrderStatus = "in_transit"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions is the allowed transition table for order statuses.
var orderTransitions = map[OrderStatus]map[OrderStatus]struct{}{
	OrderStatusPending:   {OrderStatusAccepted: {}, OrderStatusCancelled: {}},
	OrderStatusAccepted:  {OrderStatusInTransit: {}, OrderStatusCancelled: {}},
	OrderStatusInTransit: {OrderStatusPickedUp: {}, OrderStatusCancelled: {}},
	OrderStatusPickedUp:  {OrderStatusDelivered: {}, OrderStatusCancelled: {}},
	OrderStatusDelivered: {OrderStatusCompleted: {}},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	allowed, ok := orderTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Terminal reports whether the status is terminal.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}

// Order represents a delivery/ride request with a frozen price and a
// payment ledger aggregated across its payments and refunds.
type Order struct {
	ID             string
	ClientID       string
	DriverID       string // empty until a driver accepts
	Type           OrderType
	Status         OrderStatus
	PickupAddress  string
	DropoffAddress string
	DistanceKM     decimal.Decimal
	Price          decimal.Decimal // frozen at creation, mutable only by admin override
	PaymentStatus  PaymentStatus   // derived, see ledger aggregation
	TotalPaid      decimal.Decimal
	TotalRefunded  decimal.Decimal
	CreatedAt      time.Time
	AcceptedAt     time.Time
	CompletedAt    time.Time
}
