package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/pricing"
	"courier/internal/redis"
	"courier/internal/repository"
)

// OrderService handles order lifecycle operations.
type OrderService struct {
	orderRepo   repository.OrderRepository
	statusCache redis.StatusCacheInterface
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repository.OrderRepository, statusCache redis.StatusCacheInterface) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		statusCache: statusCache,
	}
}

// CreateOrderRequest contains the parameters for creating an order.
type CreateOrderRequest struct {
	ClientID       string
	Type           domain.OrderType
	PickupAddress  string
	DropoffAddress string
	DistanceKM     decimal.Decimal
	Pricing        pricing.Config
	// CustomPrice overrides the calculated price when set (admin-created
	// orders). The price is frozen either way.
	CustomPrice *decimal.Decimal
}

// CreateOrder creates an order with its price computed and frozen at creation.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if req.ClientID == "" {
		return nil, ErrInvalidClientID
	}
	if !domain.ValidOrderType(req.Type) {
		return nil, ErrInvalidOrderType
	}
	if req.DistanceKM.IsNegative() {
		return nil, ErrInvalidAmount
	}

	price := req.Pricing.Calculate(req.DistanceKM)
	if req.CustomPrice != nil {
		if !req.CustomPrice.IsPositive() {
			return nil, ErrInvalidAmount
		}
		price = req.CustomPrice.Round(2)
	}

	order := &domain.Order{
		ID:             uuid.New().String(),
		ClientID:       req.ClientID,
		Type:           req.Type,
		Status:         domain.OrderStatusPending,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		DistanceKM:     req.DistanceKM,
		Price:          price,
		PaymentStatus:  domain.PaymentStatusPending,
		TotalPaid:      decimal.Zero,
		TotalRefunded:  decimal.Zero,
		CreatedAt:      time.Now(),
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, order)

	return order, nil
}

// GetOrder retrieves an order by ID, including its derived payment status
// and running totals.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return s.orderRepo.GetByID(ctx, orderID)
}

// GetOrderStatus returns an order's lifecycle status, served from the Redis
// cache when possible. Tracking polls hit this path, so a cache miss falls
// back to the ledger store and repopulates the cache.
func (s *OrderService) GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	if orderID == "" {
		return "", ErrInvalidOrderID
	}

	if s.statusCache != nil {
		status, err := s.statusCache.GetOrderStatus(ctx, orderID)
		if err != nil {
			log.Printf("status cache read failed for order %s: %v", orderID, err)
		} else if status != "" {
			return status, nil
		}
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}

	s.cacheStatus(ctx, order)

	return order.Status, nil
}

// ListOrders retrieves orders matching the filter.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, error) {
	return s.orderRepo.List(ctx, filter)
}

// AcceptOrder assigns a driver to a pending order.
func (s *OrderService) AcceptOrder(ctx context.Context, orderID, driverID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	active, err := s.orderRepo.List(ctx, repository.OrderFilter{DriverID: driverID})
	if err != nil {
		return nil, err
	}
	for _, o := range active {
		if !o.Status.Terminal() && o.Status != domain.OrderStatusDelivered {
			return nil, ErrDriverBusy
		}
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(order.Status, domain.OrderStatusAccepted) {
		return nil, transitionError(order.Status, domain.OrderStatusAccepted)
	}

	order.DriverID = driverID
	order.Status = domain.OrderStatusAccepted
	order.AcceptedAt = time.Now()

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, order)

	return order, nil
}

// UpdateStatus applies a driver-driven status transition, validated against
// the transition table.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if !domain.ValidOrderStatus(newStatus) {
		return nil, transitionError("", newStatus)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(order.Status, newStatus) {
		return nil, transitionError(order.Status, newStatus)
	}

	order.Status = newStatus
	if newStatus == domain.OrderStatusCompleted {
		order.CompletedAt = time.Now()
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, order)

	return order, nil
}

// CancelOrder cancels an order on behalf of its client. Delivered and
// terminal orders cannot be cancelled this way; administrative cancellation
// goes through AdminService.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, clientID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if clientID != "" && order.ClientID != clientID {
		return nil, ErrNotAuthorized
	}

	if order.Status.Terminal() || order.Status == domain.OrderStatusDelivered {
		return nil, ErrOrderNotCancellable
	}

	order.Status = domain.OrderStatusCancelled

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, order)

	return order, nil
}

// DeleteOrder removes an order together with its payments and refunds.
// Non-admin callers may only delete their own orders and never delivered or
// completed ones.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID, clientID string, isAdmin bool) error {
	if orderID == "" {
		return ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	if !isAdmin {
		if order.ClientID != clientID {
			return ErrNotAuthorized
		}
		if order.Status == domain.OrderStatusCompleted || order.Status == domain.OrderStatusDelivered {
			return ErrOrderTerminal
		}
	}

	log.Printf("deleting order %s (status=%s price=%s paid=%s) with cascading payments/refunds",
		order.ID, order.Status, order.Price, order.TotalPaid)

	if err := s.orderRepo.Delete(ctx, orderID); err != nil {
		return err
	}

	if s.statusCache != nil {
		if err := s.statusCache.DeleteOrderStatus(ctx, orderID); err != nil {
			log.Printf("failed to drop cached status for order %s: %v", orderID, err)
		}
	}

	return nil
}

// cacheStatus refreshes the Redis status cache. Cache failures are logged
// and do not fail the operation.
func (s *OrderService) cacheStatus(ctx context.Context, order *domain.Order) {
	if s.statusCache == nil {
		return
	}
	if err := s.statusCache.SetOrderStatus(ctx, order.ID, order.Status); err != nil {
		log.Printf("failed to cache status for order %s: %v", order.ID, err)
	}
}

// transitionError wraps ErrInvalidTransition with the current and requested states.
func transitionError(from, to domain.OrderStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
