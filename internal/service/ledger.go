package service

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/repository"
)

// DerivePaymentStatus computes an order's payment status from its totals.
// It is a pure function of (totalPaid, totalRefunded, price).
func DerivePaymentStatus(totalPaid, totalRefunded, price decimal.Decimal) domain.PaymentStatus {
	net := totalPaid.Sub(totalRefunded)

	switch {
	case totalRefunded.IsPositive() && !net.IsPositive():
		return domain.PaymentStatusRefunded
	case totalRefunded.IsPositive() && net.LessThan(price):
		return domain.PaymentStatusPartial
	case totalPaid.IsZero():
		return domain.PaymentStatusPending
	case totalPaid.LessThan(price):
		return domain.PaymentStatusPartial
	default:
		return domain.PaymentStatusCompleted
	}
}

// RecomputeLedger re-reads the order's payment and refund sums and writes the
// totals plus the derived payment status back onto the order. It must run
// inside the same transaction as the payment or refund mutation that
// triggered it, with the order row already locked, so a concurrent reader
// never observes the ledger and the order disagreeing.
func RecomputeLedger(
	ctx context.Context,
	order *domain.Order,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	refundRepo repository.RefundRepository,
) error {
	totalPaid, err := paymentRepo.SumCompletedClientPayments(ctx, order.ID)
	if err != nil {
		return err
	}

	totalRefunded, err := refundRepo.SumCompletedByOrder(ctx, order.ID)
	if err != nil {
		return err
	}

	status := DerivePaymentStatus(totalPaid, totalRefunded, order.Price)

	if totalPaid.Sub(totalRefunded).GreaterThan(order.Price) {
		log.Printf("ledger anomaly: order %s over-paid: paid=%s refunded=%s price=%s",
			order.ID, totalPaid, totalRefunded, order.Price)
	}

	if err := orderRepo.UpdateLedger(ctx, order.ID, status, totalPaid, totalRefunded); err != nil {
		return err
	}

	order.PaymentStatus = status
	order.TotalPaid = totalPaid
	order.TotalRefunded = totalRefunded

	return nil
}
