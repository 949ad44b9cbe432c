package service

import (
	"context"
	"errors"
	"log"

	"courier/internal/domain"
	"courier/internal/gateway"
	"courier/internal/repository"
)

// Reconciler is the single entry point through which gateway outcomes reach
// the ledger. Webhooks and manual verification both funnel into
// PaymentService.ApplyGatewayOutcome so there is one authoritative code path
// for payment state transitions.
type Reconciler struct {
	payments    *PaymentService
	refunds     *RefundService
	paymentRepo repository.PaymentRepository
	gateways    gateway.Registry
}

// NewReconciler creates a new Reconciler.
func NewReconciler(
	payments *PaymentService,
	refunds *RefundService,
	paymentRepo repository.PaymentRepository,
	gateways gateway.Registry,
) *Reconciler {
	return &Reconciler{
		payments:    payments,
		refunds:     refunds,
		paymentRepo: paymentRepo,
		gateways:    gateways,
	}
}

// HandleNotification authenticates and applies an inbound gateway
// notification. The returned accepted flag tells the transport layer whether
// to acknowledge the delivery: unmatched references are acknowledged (they
// may be foreign or test events) while invalid signatures and conflicting
// outcomes are not. Every discarded event is logged with its reference so it
// stays attributable.
func (r *Reconciler) HandleNotification(ctx context.Context, gatewayName domain.GatewayName, rawBody []byte, signatureHeader string) (bool, error) {
	gw, ok := r.gateways.Lookup(gatewayName)
	if !ok {
		return false, ErrUnknownGateway
	}

	event, err := gw.ParseNotification(rawBody, signatureHeader)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			log.Printf("rejected %s notification: invalid signature", gatewayName)
		}
		return false, err
	}

	if event.PaymentRef == "" {
		log.Printf("dropped %s event %s: no payment reference", gatewayName, event.Type)
		return true, nil
	}

	switch event.Type {
	case gateway.EventRefundCompleted:
		_, err = r.refunds.RecordGatewayRefund(ctx, event.PaymentRef, event.Amount, "gateway-confirmed refund")
		if errors.Is(err, ErrRefundNotAllowed) {
			// Refund delivered ahead of the payment's completion event.
			// Not acknowledged, so the provider redelivers it later.
			log.Printf("deferred %s refund event for payment %s: payment not refundable yet",
				gatewayName, event.PaymentRef)
			return false, err
		}
	case gateway.EventPaymentPending:
		// The provider has nothing authoritative yet.
		log.Printf("dropped %s event for payment %s: still pending at provider", gatewayName, event.PaymentRef)
		return true, nil
	default:
		_, err = r.payments.ApplyGatewayOutcome(ctx, event.PaymentRef, event.Status, event.ProviderRef, event.Amount)
	}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Could be a foreign or test event; acknowledge so the
			// provider stops retrying, but keep it attributable.
			log.Printf("dropped %s event %s: no payment matches reference %s",
				gatewayName, event.Type, event.PaymentRef)
			return true, nil
		}
		return false, err
	}

	return true, nil
}

// VerifyPayment polls the provider for a payment's authoritative status and
// applies it through the same path as webhook deliveries. Pending provider
// outcomes are not applied: the system never infers failure from silence.
func (r *Reconciler) VerifyPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	payment, err := r.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	gw, ok := r.gateways.Lookup(payment.Gateway)
	if !ok {
		return nil, ErrUnknownGateway
	}

	if payment.TransactionID == "" {
		return nil, ErrNoProviderReference
	}

	outcome, err := gw.Verify(ctx, payment.TransactionID)
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			return nil, ErrGatewayUnavailable
		}
		return nil, err
	}

	if outcome.Status == domain.PaymentStatusPending {
		return payment, nil
	}

	return r.payments.ApplyGatewayOutcome(ctx, payment.ID, outcome.Status, outcome.ProviderRef, outcome.Amount)
}
