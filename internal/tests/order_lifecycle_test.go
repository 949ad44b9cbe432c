package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/pricing"
	"courier/internal/service"
)

// ──────────────────────────────────────────────
// 5. ORDER LIFECYCLE
// ──────────────────────────────────────────────

func standardPricing() pricing.Config {
	return pricing.Config{
		RatePerKM:   decimal.NewFromInt(10),
		MinimumFare: decimal.NewFromInt(50),
	}
}

func TestOrder_PriceFrozenAtCreation(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	svc := service.NewOrderService(orders, NewMockStatusCache())

	order, err := svc.CreateOrder(context.Background(), service.CreateOrderRequest{
		ClientID:       "client-1",
		Type:           domain.OrderTypeParcelDelivery,
		PickupAddress:  "12 Main Rd",
		DropoffAddress: "80 Long St",
		DistanceKM:     decimal.NewFromInt(12),
		Pricing:        standardPricing(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 12 km * 10/km = 120, above the minimum fare.
	if !order.Price.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected price 120, got %s", order.Price)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected pending, got %s", order.Status)
	}
	if order.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status pending, got %s", order.PaymentStatus)
	}
}

func TestOrder_MinimumFareApplied(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	svc := service.NewOrderService(orders, NewMockStatusCache())

	order, err := svc.CreateOrder(context.Background(), service.CreateOrderRequest{
		ClientID:   "client-1",
		Type:       domain.OrderTypeRide,
		DistanceKM: decimal.NewFromInt(2),
		Pricing:    standardPricing(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2 km * 10/km = 20, floored at 50.
	if !order.Price.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected minimum fare 50, got %s", order.Price)
	}
}

func TestOrder_StatusTransitionsFollowTable(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	cache := NewMockStatusCache()
	svc := service.NewOrderService(orders, cache)
	ctx := context.Background()

	orders.AddOrder(&domain.Order{
		ID:       "order-1",
		ClientID: "client-1",
		Type:     domain.OrderTypeFoodDelivery,
		Status:   domain.OrderStatusAccepted,
		Price:    decimal.NewFromInt(80),
	})

	// Walk the happy path from accepted.
	steps := []domain.OrderStatus{
		domain.OrderStatusInTransit,
		domain.OrderStatusPickedUp,
		domain.OrderStatusDelivered,
		domain.OrderStatusCompleted,
	}
	for _, next := range steps {
		order, err := svc.UpdateStatus(ctx, "order-1", next)
		if err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
		if order.Status != next {
			t.Fatalf("expected %s, got %s", next, order.Status)
		}
	}

	if orders.GetOrder("order-1").CompletedAt.IsZero() {
		t.Error("expected completed_at to be set")
	}
	if cache.CachedStatus("order-1") != domain.OrderStatusCompleted {
		t.Error("expected cached status to follow the order")
	}
}

func TestOrder_StatusReadServedFromCache(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	cache := NewMockStatusCache()
	svc := service.NewOrderService(orders, cache)
	ctx := context.Background()

	// Only the cache knows this order; a warm cache answers without a
	// ledger read.
	if err := cache.SetOrderStatus(ctx, "order-1", domain.OrderStatusInTransit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := svc.GetOrderStatus(ctx, "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != domain.OrderStatusInTransit {
		t.Errorf("expected in_transit from cache, got %s", status)
	}
}

func TestOrder_StatusReadMissFallsBackAndRepopulates(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	cache := NewMockStatusCache()
	svc := service.NewOrderService(orders, cache)

	orders.AddOrder(&domain.Order{
		ID:       "order-1",
		ClientID: "client-1",
		Type:     domain.OrderTypeRide,
		Status:   domain.OrderStatusAccepted,
		Price:    decimal.NewFromInt(60),
	})

	status, err := svc.GetOrderStatus(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != domain.OrderStatusAccepted {
		t.Errorf("expected accepted, got %s", status)
	}
	if cache.CachedStatus("order-1") != domain.OrderStatusAccepted {
		t.Error("expected the miss to repopulate the cache")
	}
}

func TestOrder_StatusReadCacheFailureFallsBack(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	cache := NewMockStatusCache()
	cache.GetError = errors.New("redis: connection refused")
	svc := service.NewOrderService(orders, cache)

	orders.AddOrder(&domain.Order{
		ID:       "order-1",
		ClientID: "client-1",
		Type:     domain.OrderTypeRide,
		Status:   domain.OrderStatusPending,
		Price:    decimal.NewFromInt(60),
	})

	status, err := svc.GetOrderStatus(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("cache failure must not fail the read: %v", err)
	}
	if status != domain.OrderStatusPending {
		t.Errorf("expected pending, got %s", status)
	}
}

func TestOrder_SkippingStatesRejected(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	svc := service.NewOrderService(orders, NewMockStatusCache())

	orders.AddOrder(&domain.Order{
		ID:     "order-1",
		Status: domain.OrderStatusAccepted,
	})

	// accepted -> delivered skips in_transit and picked_up.
	_, err := svc.UpdateStatus(context.Background(), "order-1", domain.OrderStatusDelivered)
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if orders.GetOrder("order-1").Status != domain.OrderStatusAccepted {
		t.Error("rejected transition must not change the order")
	}
}

func TestOrder_CancelDeliveredOrderRejected(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	svc := service.NewOrderService(orders, NewMockStatusCache())

	orders.AddOrder(&domain.Order{
		ID:       "order-1",
		ClientID: "client-1",
		Status:   domain.OrderStatusDelivered,
	})

	_, err := svc.CancelOrder(context.Background(), "order-1", "client-1")
	if !errors.Is(err, service.ErrOrderNotCancellable) {
		t.Fatalf("expected ErrOrderNotCancellable, got %v", err)
	}
}

func TestOrder_CancelByOtherClientRejected(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	svc := service.NewOrderService(orders, NewMockStatusCache())

	orders.AddOrder(&domain.Order{
		ID:       "order-1",
		ClientID: "client-1",
		Status:   domain.OrderStatusPending,
	})

	_, err := svc.CancelOrder(context.Background(), "order-1", "client-2")
	if !errors.Is(err, service.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestOrder_AcceptAssignsDriver(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	svc := service.NewOrderService(orders, NewMockStatusCache())

	orders.AddOrder(&domain.Order{
		ID:       "order-1",
		ClientID: "client-1",
		Status:   domain.OrderStatusPending,
	})

	order, err := svc.AcceptOrder(context.Background(), "order-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.DriverID != "driver-1" {
		t.Errorf("expected driver-1 assigned, got %q", order.DriverID)
	}
	if order.Status != domain.OrderStatusAccepted {
		t.Errorf("expected accepted, got %s", order.Status)
	}
	if order.AcceptedAt.IsZero() {
		t.Error("expected accepted_at to be set")
	}
}

func TestOrder_BusyDriverCannotAcceptSecondOrder(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	svc := service.NewOrderService(orders, NewMockStatusCache())

	orders.AddOrder(&domain.Order{
		ID:       "order-1",
		DriverID: "driver-1",
		Status:   domain.OrderStatusInTransit,
	})
	orders.AddOrder(&domain.Order{
		ID:     "order-2",
		Status: domain.OrderStatusPending,
	})

	_, err := svc.AcceptOrder(context.Background(), "order-2", "driver-1")
	if !errors.Is(err, service.ErrDriverBusy) {
		t.Fatalf("expected ErrDriverBusy, got %v", err)
	}
}

func TestOrder_DeleteByNonOwnerRejected(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	svc := service.NewOrderService(orders, NewMockStatusCache())

	orders.AddOrder(&domain.Order{
		ID:       "order-1",
		ClientID: "client-1",
		Status:   domain.OrderStatusPending,
	})

	err := svc.DeleteOrder(context.Background(), "order-1", "client-2", false)
	if !errors.Is(err, service.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	if orders.GetOrder("order-1") == nil {
		t.Error("order must survive a rejected delete")
	}
}

// ──────────────────────────────────────────────
// 6. ADMIN OVERRIDES
// ──────────────────────────────────────────────

func newAdminFixture(t *testing.T) (*MockOrderRepository, *MockPaymentRepository, *MockRefundRepository, *service.AdminService) {
	t.Helper()

	orders := NewMockOrderRepository()
	payments := NewMockPaymentRepository()
	refunds := NewMockRefundRepository()
	tx := NewMockTxManager(orders, payments, refunds)

	return orders, payments, refunds, service.NewAdminService(tx, NewMockStatusCache())
}

func TestAdmin_SetPriceRecomputesPaymentStatus(t *testing.T) {
	t.Parallel()

	orders, payments, _, admin := newAdminFixture(t)

	orders.AddOrder(&domain.Order{
		ID:            "order-1",
		ClientID:      "client-1",
		Status:        domain.OrderStatusDelivered,
		Price:         decimal.NewFromInt(100),
		PaymentStatus: domain.PaymentStatusPartial,
		TotalPaid:     decimal.NewFromInt(60),
		CreatedAt:     time.Now(),
	})
	payments.AddPayment(&domain.Payment{
		ID:      "pay-1",
		OrderID: "order-1",
		Type:    domain.PaymentTypeClient,
		Amount:  decimal.NewFromInt(60),
		Status:  domain.PaymentStatusCompleted,
	})

	// Lowering the price to what was actually paid settles the order.
	result, err := admin.SetPrice(context.Background(), "order-1", decimal.NewFromInt(60), "goodwill discount")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Order.PaymentStatus != domain.PaymentStatusCompleted {
		t.Errorf("expected completed against the new price, got %s", result.Order.PaymentStatus)
	}
	if result.Warning != "" {
		t.Errorf("no warning expected, got %q", result.Warning)
	}
}

func TestAdmin_SetPriceBelowPaidWarnsOverPayment(t *testing.T) {
	t.Parallel()

	orders, payments, _, admin := newAdminFixture(t)

	orders.AddOrder(&domain.Order{
		ID:            "order-1",
		Status:        domain.OrderStatusDelivered,
		Price:         decimal.NewFromInt(100),
		PaymentStatus: domain.PaymentStatusCompleted,
		TotalPaid:     decimal.NewFromInt(100),
	})
	payments.AddPayment(&domain.Payment{
		ID:      "pay-1",
		OrderID: "order-1",
		Type:    domain.PaymentTypeClient,
		Amount:  decimal.NewFromInt(100),
		Status:  domain.PaymentStatusCompleted,
	})

	// Price drops below what was paid; no automatic refund is issued, the
	// anomaly is surfaced instead.
	result, err := admin.SetPrice(context.Background(), "order-1", decimal.NewFromInt(70), "complaint")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Warning == "" {
		t.Error("expected an over-payment warning")
	}
	if !result.Order.TotalPaid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("totals must not change on re-price, got %s", result.Order.TotalPaid)
	}
}

func TestAdmin_SetPriceOnTerminalOrderRejected(t *testing.T) {
	t.Parallel()

	orders, _, _, admin := newAdminFixture(t)

	orders.AddOrder(&domain.Order{
		ID:     "order-1",
		Status: domain.OrderStatusCompleted,
		Price:  decimal.NewFromInt(100),
	})

	_, err := admin.SetPrice(context.Background(), "order-1", decimal.NewFromInt(90), "late discount")
	if !errors.Is(err, service.ErrOrderTerminal) {
		t.Fatalf("expected ErrOrderTerminal, got %v", err)
	}
}

func TestAdmin_SetStatusBypassesTransitionTable(t *testing.T) {
	t.Parallel()

	orders, _, _, admin := newAdminFixture(t)

	orders.AddOrder(&domain.Order{
		ID:     "order-1",
		Status: domain.OrderStatusAccepted,
	})

	// accepted -> delivered is illegal for drivers but fine for admins.
	order, err := admin.SetStatus(context.Background(), "order-1", domain.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != domain.OrderStatusDelivered {
		t.Errorf("expected delivered, got %s", order.Status)
	}
}

func TestAdmin_TerminalOrdersImmovableEvenForAdmin(t *testing.T) {
	t.Parallel()

	orders, _, _, admin := newAdminFixture(t)

	orders.AddOrder(&domain.Order{
		ID:     "order-1",
		Status: domain.OrderStatusCancelled,
	})

	_, err := admin.SetStatus(context.Background(), "order-1", domain.OrderStatusAccepted)
	if !errors.Is(err, service.ErrOrderTerminal) {
		t.Fatalf("expected ErrOrderTerminal, got %v", err)
	}

	_, err = admin.CancelOrder(context.Background(), "order-1", "cleanup")
	if !errors.Is(err, service.ErrOrderTerminal) {
		t.Fatalf("expected ErrOrderTerminal on cancel, got %v", err)
	}
}

func TestAdmin_CancelDeliveredOrderAllowed(t *testing.T) {
	t.Parallel()

	orders, _, _, admin := newAdminFixture(t)

	orders.AddOrder(&domain.Order{
		ID:     "order-1",
		Status: domain.OrderStatusDelivered,
	})

	order, err := admin.CancelOrder(context.Background(), "order-1", "fraud")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", order.Status)
	}
}
