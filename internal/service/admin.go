package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/redis"
	"courier/internal/repository"
)

// AdminService handles privileged order mutations outside the normal flow.
// Every override is logged distinctly from driver-driven transitions.
type AdminService struct {
	tx          repository.TxManager
	statusCache redis.StatusCacheInterface
}

// NewAdminService creates a new AdminService.
func NewAdminService(tx repository.TxManager, statusCache redis.StatusCacheInterface) *AdminService {
	return &AdminService{
		tx:          tx,
		statusCache: statusCache,
	}
}

// SetPriceResult carries the re-priced order and a warning when the
// override produced a ledger anomaly the caller must be told about.
type SetPriceResult struct {
	Order   *domain.Order
	Warning string
}

// SetPrice overrides an order's frozen price. Completed payments are not
// retroactively changed; the payment status is recomputed against the new
// price in the same transaction, and a status regression (e.g. completed
// back to partial) or an over-payment is surfaced as a warning rather than
// masked.
func (s *AdminService) SetPrice(ctx context.Context, orderID string, newPrice decimal.Decimal, reason string) (*SetPriceResult, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if !newPrice.IsPositive() {
		return nil, ErrInvalidAmount
	}

	result := &SetPriceResult{}

	err := s.tx.WithinTx(ctx, func(repos repository.Repos) error {
		order, err := repos.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if order.Status.Terminal() {
			return ErrOrderTerminal
		}

		oldPrice := order.Price
		oldPaymentStatus := order.PaymentStatus

		order.Price = newPrice.Round(2)
		if err := repos.Orders.Update(ctx, order); err != nil {
			return err
		}

		if err := RecomputeLedger(ctx, order, repos.Orders, repos.Payments, repos.Refunds); err != nil {
			return err
		}

		log.Printf("admin override: order %s price %s -> %s (reason: %s)",
			order.ID, oldPrice, order.Price, reason)

		if oldPaymentStatus == domain.PaymentStatusCompleted && order.PaymentStatus != domain.PaymentStatusCompleted {
			result.Warning = fmt.Sprintf("payment status regressed from %s to %s against the new price",
				oldPaymentStatus, order.PaymentStatus)
		} else if order.TotalPaid.Sub(order.TotalRefunded).GreaterThan(order.Price) {
			result.Warning = fmt.Sprintf("order is over-paid: net paid %s exceeds new price %s",
				order.TotalPaid.Sub(order.TotalRefunded).StringFixed(2), order.Price.StringFixed(2))
		}

		result.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// SetStatus overrides an order's lifecycle status, bypassing the transition
// table. Terminal orders stay terminal even for admins.
func (s *AdminService) SetStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if !domain.ValidOrderStatus(newStatus) {
		return nil, transitionError("", newStatus)
	}

	var updated *domain.Order

	err := s.tx.WithinTx(ctx, func(repos repository.Repos) error {
		order, err := repos.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if order.Status.Terminal() {
			return ErrOrderTerminal
		}

		oldStatus := order.Status
		order.Status = newStatus
		if newStatus == domain.OrderStatusCompleted {
			order.CompletedAt = time.Now()
		}

		if err := repos.Orders.Update(ctx, order); err != nil {
			return err
		}

		log.Printf("admin override: order %s status %s -> %s", order.ID, oldStatus, newStatus)

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx, updated)

	return updated, nil
}

// CancelOrder is the privileged cancellation path. Unlike client
// cancellation it may cancel delivered orders, but never terminal ones.
func (s *AdminService) CancelOrder(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	var updated *domain.Order

	err := s.tx.WithinTx(ctx, func(repos repository.Repos) error {
		order, err := repos.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if order.Status.Terminal() {
			return ErrOrderTerminal
		}

		oldStatus := order.Status
		order.Status = domain.OrderStatusCancelled

		if err := repos.Orders.Update(ctx, order); err != nil {
			return err
		}

		log.Printf("admin override: order %s cancelled from %s (reason: %s)", order.ID, oldStatus, reason)

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx, updated)

	return updated, nil
}

func (s *AdminService) refreshCache(ctx context.Context, order *domain.Order) {
	if s.statusCache == nil || order == nil {
		return
	}
	if err := s.statusCache.SetOrderStatus(ctx, order.ID, order.Status); err != nil {
		log.Printf("failed to cache status for order %s: %v", order.ID, err)
	}
}
