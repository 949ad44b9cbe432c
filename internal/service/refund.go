package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/gateway"
	"courier/internal/redis"
	"courier/internal/repository"
)

// refundLockTTL bounds how long a stuck refund can hold its payment lock.
const refundLockTTL = 30 * time.Second

// RefundService handles refund creation and processing.
type RefundService struct {
	tx         repository.TxManager
	refundRepo repository.RefundRepository
	gateways   gateway.Registry
	locks      redis.LockStoreInterface
}

// NewRefundService creates a new RefundService.
func NewRefundService(
	tx repository.TxManager,
	refundRepo repository.RefundRepository,
	gateways gateway.Registry,
	locks redis.LockStoreInterface,
) *RefundService {
	return &RefundService{
		tx:         tx,
		refundRepo: refundRepo,
		gateways:   gateways,
		locks:      locks,
	}
}

// CreateRefundRequest contains the parameters for creating a refund.
type CreateRefundRequest struct {
	PaymentID string
	OrderID   string
	Amount    decimal.Decimal
	Reason    string
}

// CreateRefund creates a pending refund, attempts the gateway-side refund,
// and on provider success completes the refund, adjusts the payment status
// (full refund -> refunded, partial -> partial) and recomputes the order's
// ledger. On provider failure the refund is marked failed and no totals
// change.
func (s *RefundService) CreateRefund(ctx context.Context, req CreateRefundRequest) (*domain.Refund, error) {
	if req.PaymentID == "" {
		return nil, ErrInvalidPaymentID
	}
	if req.OrderID == "" {
		return nil, ErrInvalidOrderID
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	// Outer guard: concurrent refund requests for one payment would both
	// pass the refundable-amount check before either commits.
	if s.locks != nil {
		acquired, err := s.locks.AcquireRefundLock(ctx, req.PaymentID, refundLockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrRefundInProgress
		}
		defer func() {
			if err := s.locks.ReleaseRefundLock(ctx, req.PaymentID); err != nil {
				log.Printf("failed to release refund lock for payment %s: %v", req.PaymentID, err)
			}
		}()
	}

	var (
		refund      *domain.Refund
		payment     *domain.Payment
		providerRef string
	)

	err := s.tx.WithinTx(ctx, func(repos repository.Repos) error {
		var err error
		payment, err = repos.Payments.GetByID(ctx, req.PaymentID)
		if err != nil {
			return err
		}

		if payment.OrderID != req.OrderID {
			return ErrNotAuthorized
		}

		if payment.Status != domain.PaymentStatusCompleted && payment.Status != domain.PaymentStatusPartial {
			return ErrRefundNotAllowed
		}

		refunded, err := repos.Refunds.SumCompletedByPayment(ctx, payment.ID)
		if err != nil {
			return err
		}

		if req.Amount.GreaterThan(payment.Amount.Sub(refunded)) {
			return ErrRefundExceedsPayment
		}

		now := time.Now()
		refund = &domain.Refund{
			ID:        uuid.New().String(),
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Amount:    req.Amount.Round(2),
			Reason:    req.Reason,
			Status:    domain.PaymentStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		providerRef = payment.TransactionID

		return repos.Refunds.Create(ctx, refund)
	})
	if err != nil {
		return nil, err
	}

	gw, ok := s.gateways.Lookup(payment.Gateway)
	if !ok {
		return nil, ErrUnknownGateway
	}

	if err := gw.Refund(ctx, providerRef, refund.Amount); err != nil {
		log.Printf("gateway refund failed for refund %s (payment %s): %v", refund.ID, payment.ID, err)
		if failErr := s.refundRepo.UpdateStatus(ctx, refund.ID, domain.PaymentStatusFailed); failErr != nil {
			log.Printf("failed to mark refund %s failed: %v", refund.ID, failErr)
		}
		refund.Status = domain.PaymentStatusFailed
		return refund, err
	}

	if err := s.completeRefund(ctx, refund); err != nil {
		return nil, err
	}

	return refund, nil
}

// GetRefund retrieves a refund by ID.
func (s *RefundService) GetRefund(ctx context.Context, refundID string) (*domain.Refund, error) {
	if refundID == "" {
		return nil, ErrInvalidRefundID
	}

	return s.refundRepo.GetByID(ctx, refundID)
}

// ListRefundsByOrder retrieves all refunds for an order.
func (s *RefundService) ListRefundsByOrder(ctx context.Context, orderID string) ([]*domain.Refund, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return s.refundRepo.ListByOrder(ctx, orderID)
}

// RecordGatewayRefund records a refund confirmed by the provider itself
// (a refund event we did not initiate). The refund is created already
// completed, bounded by the payment's refundable amount, and drives the same
// ledger recomputation as locally initiated refunds. A refund event that
// outruns its payment's completion event returns ErrRefundNotAllowed so the
// delivery is retried after the completion lands, instead of crediting a
// refund against money never received.
func (s *RefundService) RecordGatewayRefund(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*domain.Refund, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var refund *domain.Refund

	err := s.tx.WithinTx(ctx, func(repos repository.Repos) error {
		payment, err := repos.Payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}

		if payment.Status != domain.PaymentStatusCompleted && payment.Status != domain.PaymentStatusPartial {
			return ErrRefundNotAllowed
		}

		order, err := repos.Orders.GetByIDForUpdate(ctx, payment.OrderID)
		if err != nil {
			return err
		}

		refunded, err := repos.Refunds.SumCompletedByPayment(ctx, payment.ID)
		if err != nil {
			return err
		}

		if amount.GreaterThan(payment.Amount.Sub(refunded)) {
			return ErrRefundExceedsPayment
		}

		now := time.Now()
		refund = &domain.Refund{
			ID:          uuid.New().String(),
			PaymentID:   payment.ID,
			OrderID:     payment.OrderID,
			Amount:      amount.Round(2),
			Reason:      reason,
			Status:      domain.PaymentStatusCompleted,
			ProcessedAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := repos.Refunds.Create(ctx, refund); err != nil {
			return err
		}

		if err := s.applyRefundToPayment(ctx, repos, payment); err != nil {
			return err
		}

		return RecomputeLedger(ctx, order, repos.Orders, repos.Payments, repos.Refunds)
	})
	if err != nil {
		return nil, err
	}

	return refund, nil
}

// completeRefund marks a pending refund completed and folds it into the
// payment and order in one transaction.
func (s *RefundService) completeRefund(ctx context.Context, refund *domain.Refund) error {
	return s.tx.WithinTx(ctx, func(repos repository.Repos) error {
		payment, err := repos.Payments.GetByID(ctx, refund.PaymentID)
		if err != nil {
			return err
		}

		order, err := repos.Orders.GetByIDForUpdate(ctx, payment.OrderID)
		if err != nil {
			return err
		}

		if err := repos.Refunds.UpdateStatus(ctx, refund.ID, domain.PaymentStatusCompleted); err != nil {
			return err
		}
		refund.Status = domain.PaymentStatusCompleted
		refund.ProcessedAt = time.Now()

		if err := s.applyRefundToPayment(ctx, repos, payment); err != nil {
			return err
		}

		return RecomputeLedger(ctx, order, repos.Orders, repos.Payments, repos.Refunds)
	})
}

// applyRefundToPayment recomputes a payment's status from its completed
// refunds: fully refunded payments become refunded, partially refunded ones
// become partial.
func (s *RefundService) applyRefundToPayment(ctx context.Context, repos repository.Repos, payment *domain.Payment) error {
	refunded, err := repos.Refunds.SumCompletedByPayment(ctx, payment.ID)
	if err != nil {
		return err
	}

	switch {
	case refunded.GreaterThanOrEqual(payment.Amount):
		payment.Status = domain.PaymentStatusRefunded
	case refunded.IsPositive():
		payment.Status = domain.PaymentStatusPartial
	default:
		return nil
	}

	return repos.Payments.Update(ctx, payment)
}
