package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/gateway"
	"courier/internal/repository"
)

// PaymentService handles payment attempts and gateway outcome application.
type PaymentService struct {
	tx          repository.TxManager
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	gateways    gateway.Registry
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	tx repository.TxManager,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	gateways gateway.Registry,
) *PaymentService {
	return &PaymentService{
		tx:          tx,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		gateways:    gateways,
	}
}

// CreatePaymentRequest contains the parameters for recording a payment attempt.
type CreatePaymentRequest struct {
	OrderID    string
	PayerID    string
	Type       domain.PaymentType
	Amount     decimal.Decimal
	Currency   string
	Method     domain.PaymentMethod
	Gateway    domain.GatewayName
	PayerEmail string
	// ActorIsAdmin permits creating payments on behalf of the order's
	// client or driver.
	ActorIsAdmin bool
}

// CreatePayment records a payment attempt. The payment is created pending
// with its own ID as the idempotency key handed to the gateway; no ledger
// totals change until a gateway outcome completes it. A transient gateway
// failure returns the pending payment together with ErrGatewayUnavailable so
// the caller can retry initiation against the same payment row.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error) {
	if req.OrderID == "" {
		return nil, ErrInvalidOrderID
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !domain.ValidPaymentMethod(req.Method) {
		return nil, ErrInvalidPaymentMethod
	}

	gw, ok := s.gateways.Lookup(req.Gateway)
	if !ok {
		return nil, ErrUnknownGateway
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if order.Status == domain.OrderStatusCancelled {
		return nil, ErrOrderCancelled
	}

	switch req.Type {
	case domain.PaymentTypeClient:
		if req.PayerID != order.ClientID && !req.ActorIsAdmin {
			return nil, ErrNotAuthorized
		}
	case domain.PaymentTypeDriver:
		if req.PayerID != order.DriverID && !req.ActorIsAdmin {
			return nil, ErrNotAuthorized
		}
	default:
		return nil, fmt.Errorf("invalid payment type %q", req.Type)
	}

	now := time.Now()
	payment := &domain.Payment{
		ID:        uuid.New().String(),
		OrderID:   req.OrderID,
		PayerID:   req.PayerID,
		Type:      req.Type,
		Amount:    req.Amount.Round(2),
		Currency:  req.Currency,
		Method:    req.Method,
		Gateway:   req.Gateway,
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	providerRef, details, err := gw.Initiate(ctx, gateway.InitiateRequest{
		PaymentID:  payment.ID,
		Amount:     payment.Amount,
		Currency:   payment.Currency,
		PayerEmail: req.PayerEmail,
		ItemName:   string(order.Type) + " order " + order.ID,
	})
	if err != nil {
		// The payment stays pending: a timeout is not a failure and the
		// authoritative outcome arrives by webhook or manual verification.
		log.Printf("gateway initiation failed for payment %s: %v", payment.ID, err)
		if errors.Is(err, gateway.ErrUnavailable) {
			return payment, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return payment, err
	}

	payment.TransactionID = providerRef
	payment.Details = details

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

// GetPayment retrieves a payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	return s.paymentRepo.GetByID(ctx, paymentID)
}

// ListPaymentsByOrder retrieves all payments for an order.
func (s *PaymentService) ListPaymentsByOrder(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return s.paymentRepo.ListByOrder(ctx, orderID)
}

// ListPaymentsByPayer retrieves all payments made by a payer, optionally
// narrowed to a payment type.
func (s *PaymentService) ListPaymentsByPayer(ctx context.Context, payerID string, paymentType domain.PaymentType) ([]*domain.Payment, error) {
	if payerID == "" {
		return nil, ErrInvalidPayerID
	}

	return s.paymentRepo.ListByPayer(ctx, payerID, paymentType)
}

// ApplyGatewayOutcome folds an authoritative gateway outcome into the ledger.
// It is the single code path for payment state transitions, shared by the
// webhook processor and manual verification, and is safe under retries:
// replaying an identical terminal outcome is a no-op, and an outcome that
// contradicts a terminal status returns ErrConflictingOutcome without
// mutating anything. The payment mutation and the order's recomputed totals
// commit in one transaction with the order row locked.
func (s *PaymentService) ApplyGatewayOutcome(
	ctx context.Context,
	paymentID string,
	outcome domain.PaymentStatus,
	providerRef string,
	amountConfirmed decimal.Decimal,
) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	var applied *domain.Payment

	err := s.tx.WithinTx(ctx, func(repos repository.Repos) error {
		payment, err := repos.Payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}

		// Lock the order row before deciding anything so concurrent
		// deliveries for this order serialize here, then re-read the
		// payment to see the latest committed state.
		order, err := repos.Orders.GetByIDForUpdate(ctx, payment.OrderID)
		if err != nil {
			return err
		}

		payment, err = repos.Payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}

		if !amountConfirmed.Equal(payment.Amount) {
			if payment.Status.Terminal() {
				if payment.Status == outcome {
					// Replay of the settled outcome with a garbled amount.
					log.Printf("anomaly: amount mismatch on terminal payment %s: confirmed=%s recorded=%s",
						payment.ID, amountConfirmed, payment.Amount)
					applied = payment
					return nil
				}
				log.Printf("anomaly: amount mismatch with conflicting outcome for payment %s: status=%s incoming=%s confirmed=%s recorded=%s",
					payment.ID, payment.Status, outcome, amountConfirmed, payment.Amount)
				return ErrConflictingOutcome
			}
			log.Printf("anomaly: amount mismatch for payment %s: confirmed=%s recorded=%s, failing payment",
				payment.ID, amountConfirmed, payment.Amount)
			payment.Status = domain.PaymentStatusFailed
			payment.FailureReason = fmt.Sprintf("amount mismatch: gateway confirmed %s, recorded %s",
				amountConfirmed.StringFixed(2), payment.Amount.StringFixed(2))
			if err := repos.Payments.Update(ctx, payment); err != nil {
				return err
			}
			applied = payment
			return RecomputeLedger(ctx, order, repos.Orders, repos.Payments, repos.Refunds)
		}

		if payment.Status.Terminal() {
			if payment.Status == outcome {
				// Idempotent replay of the same terminal outcome.
				applied = payment
				return nil
			}
			log.Printf("anomaly: conflicting outcome for payment %s: status=%s incoming=%s",
				payment.ID, payment.Status, outcome)
			return ErrConflictingOutcome
		}

		if providerRef != "" {
			if payment.TransactionID != "" && payment.TransactionID != providerRef {
				log.Printf("anomaly: provider reference clash for payment %s: have=%s incoming=%s",
					payment.ID, payment.TransactionID, providerRef)
				return ErrConflictingOutcome
			}
			payment.TransactionID = providerRef
		}

		payment.Status = outcome
		if err := repos.Payments.Update(ctx, payment); err != nil {
			return err
		}

		if outcome == domain.PaymentStatusCompleted && order.Status == domain.OrderStatusCancelled {
			// Recorded for audit; the order is not operationally credited.
			log.Printf("audit: orphaned credit: payment %s completed for cancelled order %s (amount=%s)",
				payment.ID, order.ID, payment.Amount)
		}

		applied = payment
		return RecomputeLedger(ctx, order, repos.Orders, repos.Payments, repos.Refunds)
	})
	if err != nil {
		return nil, err
	}

	return applied, nil
}
