package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType distinguishes who the payment is collected from.
type PaymentType string

const (
	PaymentTypeClient PaymentType = "client_payment"
	PaymentTypeDriver PaymentType = "driver_payment"
)

// PaymentStatus represents the current status of a payment. The same
// vocabulary is used for an order's derived payment status and for refunds.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusPartial   PaymentStatus = "partial"
)

// Terminal reports whether a payment status can no longer be changed by
// gateway outcomes. Partial payments still accept refund-driven updates.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// PaymentMethod represents how the payer pays.
type PaymentMethod string

const (
	PaymentMethodCreditCard  PaymentMethod = "credit_card"
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodOther       PaymentMethod = "other"
)

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodMobileMoney, PaymentMethodCash, PaymentMethodOther:
		return true
	}
	return false
}

// GatewayName identifies a payment provider.
type GatewayName string

const (
	GatewayPayFast  GatewayName = "payfast"
	GatewayPaystack GatewayName = "paystack"
)

// Payment represents one attempted transfer of money toward an order.
// Its ID doubles as the idempotency key handed to the gateway, so a retried
// initiation reuses the same row instead of creating a duplicate.
type Payment struct {
	ID            string
	OrderID       string
	PayerID       string
	Type          PaymentType
	Amount        decimal.Decimal // immutable after creation
	Currency      string
	Method        PaymentMethod
	Gateway       GatewayName
	Status        PaymentStatus
	TransactionID string // provider reference, empty until confirmed
	FailureReason string
	Details       *TransactionDetails
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Refund represents a reversal of part or all of a completed payment.
type Refund struct {
	ID          string
	PaymentID   string
	OrderID     string
	Amount      decimal.Decimal // immutable after creation
	Reason      string
	Status      PaymentStatus // pending/completed/failed
	ProcessedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
