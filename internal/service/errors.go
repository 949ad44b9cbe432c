package service

import "errors"

var (
	// ErrInvalidAmount is returned when a monetary amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidOrderID is returned when an order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidPaymentID is returned when a payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidRefundID is returned when a refund ID is empty.
	ErrInvalidRefundID = errors.New("invalid refund id")

	// ErrInvalidPayerID is returned when a payer ID is empty.
	ErrInvalidPayerID = errors.New("invalid payer id")

	// ErrInvalidClientID is returned when a client ID is empty.
	ErrInvalidClientID = errors.New("invalid client id")

	// ErrInvalidDriverID is returned when a driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidOrderType is returned when an order type is not recognised.
	ErrInvalidOrderType = errors.New("invalid order type")

	// ErrInvalidPaymentMethod is returned when a payment method is not recognised.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidTransition is returned when an order status change is not in
	// the transition table. It is always wrapped with the current and
	// requested states.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrOrderTerminal is returned when an operation requires a non-terminal order.
	ErrOrderTerminal = errors.New("order is in a terminal state")

	// ErrOrderCancelled is returned when a payment is attempted against a
	// cancelled order.
	ErrOrderCancelled = errors.New("order is cancelled")

	// ErrOrderNotCancellable is returned when a client tries to cancel a
	// delivered or terminal order.
	ErrOrderNotCancellable = errors.New("order cannot be cancelled in current state")

	// ErrNotAuthorized is returned when the payer is neither the order's
	// client/driver nor an admin acting on their behalf.
	ErrNotAuthorized = errors.New("not authorized for this order")

	// ErrDriverBusy is returned when a driver with an active order tries to
	// accept another.
	ErrDriverBusy = errors.New("driver already has an active order")

	// ErrConflictingOutcome is returned when a gateway outcome contradicts a
	// payment's terminal status. Audit history is never silently overridden.
	ErrConflictingOutcome = errors.New("conflicting gateway outcome for terminal payment")

	// ErrRefundExceedsPayment is returned when a refund would push the
	// cumulative completed refunds on a payment past its amount.
	ErrRefundExceedsPayment = errors.New("refund exceeds refundable amount on payment")

	// ErrRefundNotAllowed is returned when the payment is not in a
	// refundable state.
	ErrRefundNotAllowed = errors.New("payment is not refundable in current state")

	// ErrRefundInProgress is returned when another refund for the same
	// payment is still being processed.
	ErrRefundInProgress = errors.New("another refund is in progress for this payment")

	// ErrGatewayUnavailable is returned on transient gateway failures.
	// Callers retry with backoff; the payment stays pending meanwhile.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrNoProviderReference is returned when a payment cannot be verified
	// because the provider has not assigned it a reference yet.
	ErrNoProviderReference = errors.New("payment has no provider reference yet")

	// ErrUnknownGateway is returned when no adapter is registered for the
	// requested gateway.
	ErrUnknownGateway = errors.New("unknown payment gateway")
)
