package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/gateway"
	"courier/internal/service"
)

// ──────────────────────────────────────────────
// 1. GATEWAY OUTCOME RECONCILIATION
// ──────────────────────────────────────────────

type paymentFixture struct {
	orders   *MockOrderRepository
	payments *MockPaymentRepository
	refunds  *MockRefundRepository
	tx       *MockTxManager
	service  *service.PaymentService
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	orders := NewMockOrderRepository()
	payments := NewMockPaymentRepository()
	refunds := NewMockRefundRepository()
	tx := NewMockTxManager(orders, payments, refunds)

	return &paymentFixture{
		orders:   orders,
		payments: payments,
		refunds:  refunds,
		tx:       tx,
		service:  service.NewPaymentService(tx, orders, payments, gateway.Registry{}),
	}
}

func (f *paymentFixture) addOrder(id string, price int64) *domain.Order {
	order := &domain.Order{
		ID:            id,
		ClientID:      "client-1",
		Type:          domain.OrderTypeParcelDelivery,
		Status:        domain.OrderStatusAccepted,
		Price:         decimal.NewFromInt(price),
		PaymentStatus: domain.PaymentStatusPending,
		TotalPaid:     decimal.Zero,
		TotalRefunded: decimal.Zero,
		CreatedAt:     time.Now(),
	}
	f.orders.AddOrder(order)
	return order
}

func (f *paymentFixture) addPayment(id, orderID string, amount int64, status domain.PaymentStatus) *domain.Payment {
	payment := &domain.Payment{
		ID:        id,
		OrderID:   orderID,
		PayerID:   "client-1",
		Type:      domain.PaymentTypeClient,
		Amount:    decimal.NewFromInt(amount),
		Currency:  "ZAR",
		Method:    domain.PaymentMethodCreditCard,
		Gateway:   domain.GatewayPaystack,
		Status:    status,
		CreatedAt: time.Now(),
	}
	f.payments.AddPayment(payment)
	return payment
}

func TestReconcile_TwoPartialPaymentsCompleteTheOrder(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture(t)
	f.addOrder("order-1", 100)
	f.addPayment("pay-1", "order-1", 60, domain.PaymentStatusPending)
	f.addPayment("pay-2", "order-1", 40, domain.PaymentStatusPending)

	ctx := context.Background()

	_, err := f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusCompleted, "ref-1", decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := f.orders.GetOrder("order-1")
	if order.PaymentStatus != domain.PaymentStatusPartial {
		t.Errorf("expected payment status %s after first payment, got %s", domain.PaymentStatusPartial, order.PaymentStatus)
	}
	if !order.TotalPaid.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected total_paid 60, got %s", order.TotalPaid)
	}

	_, err = f.service.ApplyGatewayOutcome(ctx, "pay-2", domain.PaymentStatusCompleted, "ref-2", decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order = f.orders.GetOrder("order-1")
	if order.PaymentStatus != domain.PaymentStatusCompleted {
		t.Errorf("expected payment status %s after both payments, got %s", domain.PaymentStatusCompleted, order.PaymentStatus)
	}
	if !order.TotalPaid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected total_paid 100, got %s", order.TotalPaid)
	}
}

func TestReconcile_ReplayedOutcomeIsNoOp(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture(t)
	f.addOrder("order-1", 100)
	f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)

	ctx := context.Background()
	amount := decimal.NewFromInt(100)

	// First delivery.
	_, err := f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusCompleted, "ref-1", amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updatesAfterFirst := f.payments.UpdateCallCount

	// Duplicate delivery of the same terminal outcome.
	_, err = f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusCompleted, "ref-1", amount)
	if err != nil {
		t.Fatalf("replay should be a no-op, got error: %v", err)
	}

	if f.payments.UpdateCallCount != updatesAfterFirst {
		t.Error("replay must not write the payment again")
	}

	order := f.orders.GetOrder("order-1")
	if !order.TotalPaid.Equal(amount) {
		t.Errorf("expected total_paid to stay 100 after replay, got %s", order.TotalPaid)
	}
}

func TestReconcile_ConflictingOutcomeRejected(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture(t)
	f.addOrder("order-1", 100)
	f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)

	ctx := context.Background()
	amount := decimal.NewFromInt(100)

	_, err := f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusCompleted, "ref-1", amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A contradictory terminal outcome for the same payment.
	_, err = f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusFailed, "ref-1", amount)
	if !errors.Is(err, service.ErrConflictingOutcome) {
		t.Fatalf("expected ErrConflictingOutcome, got %v", err)
	}

	payment := f.payments.GetPayment("pay-1")
	if payment.Status != domain.PaymentStatusCompleted {
		t.Errorf("payment must keep its first terminal status, got %s", payment.Status)
	}

	order := f.orders.GetOrder("order-1")
	if !order.TotalPaid.Equal(amount) {
		t.Errorf("expected total_paid unchanged at 100, got %s", order.TotalPaid)
	}
}

func TestReconcile_AmountMismatchFailsPayment(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture(t)
	f.addOrder("order-1", 100)
	f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)

	ctx := context.Background()

	// Gateway confirms 80 against a recorded 100.
	payment, err := f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusCompleted, "ref-1", decimal.NewFromInt(80))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payment.Status != domain.PaymentStatusFailed {
		t.Errorf("expected payment failed on amount mismatch, got %s", payment.Status)
	}
	if payment.FailureReason == "" {
		t.Error("expected a recorded failure reason")
	}

	order := f.orders.GetOrder("order-1")
	if !order.TotalPaid.IsZero() {
		t.Errorf("mismatched payment must not credit the order, total_paid=%s", order.TotalPaid)
	}
	if order.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected order payment status pending, got %s", order.PaymentStatus)
	}
}

func TestReconcile_MismatchedAmountOnSettledPaymentIsNoOp(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture(t)
	f.addOrder("order-1", 100)
	f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)

	ctx := context.Background()

	_, err := f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusCompleted, "ref-1", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updatesAfterFirst := f.payments.UpdateCallCount

	// A redelivery of the settled outcome with a garbled amount changes nothing.
	_, err = f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusCompleted, "ref-1", decimal.NewFromInt(80))
	if err != nil {
		t.Fatalf("expected no-op replay, got error: %v", err)
	}

	if f.payments.UpdateCallCount != updatesAfterFirst {
		t.Error("replay must not write the payment again")
	}
	if !f.orders.GetOrder("order-1").TotalPaid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected total_paid unchanged at 100, got %s", f.orders.GetOrder("order-1").TotalPaid)
	}
}

func TestReconcile_MismatchedAmountWithConflictingOutcomeRejected(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture(t)
	f.addOrder("order-1", 100)
	f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)

	ctx := context.Background()

	_, err := f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusCompleted, "ref-1", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A contradictory outcome with a wrong amount is still a contradiction.
	_, err = f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusFailed, "ref-1", decimal.NewFromInt(80))
	if !errors.Is(err, service.ErrConflictingOutcome) {
		t.Fatalf("expected ErrConflictingOutcome, got %v", err)
	}

	payment := f.payments.GetPayment("pay-1")
	if payment.Status != domain.PaymentStatusCompleted {
		t.Errorf("payment must keep its first terminal status, got %s", payment.Status)
	}
	if !f.orders.GetOrder("order-1").TotalPaid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected total_paid unchanged at 100, got %s", f.orders.GetOrder("order-1").TotalPaid)
	}
}

func TestPayments_ListByPayerFiltersByType(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture(t)
	f.addOrder("order-1", 100)
	f.addPayment("pay-1", "order-1", 60, domain.PaymentStatusCompleted)
	driverPayout := f.addPayment("pay-2", "order-1", 40, domain.PaymentStatusCompleted)
	driverPayout.Type = domain.PaymentTypeDriver
	other := f.addPayment("pay-3", "order-1", 20, domain.PaymentStatusPending)
	other.PayerID = "client-2"

	ctx := context.Background()

	all, err := f.service.ListPaymentsByPayer(ctx, "client-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 payments for client-1, got %d", len(all))
	}

	clientOnly, err := f.service.ListPaymentsByPayer(ctx, "client-1", domain.PaymentTypeClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clientOnly) != 1 || clientOnly[0].ID != "pay-1" {
		t.Fatalf("expected only pay-1 for the client type filter, got %d", len(clientOnly))
	}

	if _, err := f.service.ListPaymentsByPayer(ctx, "", ""); !errors.Is(err, service.ErrInvalidPayerID) {
		t.Fatalf("expected ErrInvalidPayerID, got %v", err)
	}
}

func TestReconcile_ProviderReferenceClashRejected(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture(t)
	f.addOrder("order-1", 100)
	payment := f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)
	payment.TransactionID = "ref-original"

	ctx := context.Background()

	_, err := f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusCompleted, "ref-different", decimal.NewFromInt(100))
	if !errors.Is(err, service.ErrConflictingOutcome) {
		t.Fatalf("expected ErrConflictingOutcome on reference clash, got %v", err)
	}

	stored := f.payments.GetPayment("pay-1")
	if stored.TransactionID != "ref-original" {
		t.Errorf("provider reference must not be silently overwritten, got %s", stored.TransactionID)
	}
}

func TestReconcile_LateSuccessForCancelledOrderIsRecorded(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture(t)
	order := f.addOrder("order-1", 100)
	order.Status = domain.OrderStatusCancelled
	f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)

	ctx := context.Background()

	payment, err := f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusCompleted, "ref-1", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The money is recorded even though the order was cancelled; the
	// anomaly is surfaced through the ledger, not dropped.
	if payment.Status != domain.PaymentStatusCompleted {
		t.Errorf("expected payment completed, got %s", payment.Status)
	}

	stored := f.orders.GetOrder("order-1")
	if !stored.TotalPaid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected total_paid 100 on cancelled order, got %s", stored.TotalPaid)
	}
	if stored.Status != domain.OrderStatusCancelled {
		t.Errorf("order must stay cancelled, got %s", stored.Status)
	}
}

// ──────────────────────────────────────────────
// 2. WEBHOOK PROCESSING
// ──────────────────────────────────────────────

func newReconcilerFixture(t *testing.T, gw *MockGateway) (*paymentFixture, *service.Reconciler, *MockLockStore) {
	t.Helper()

	f := newPaymentFixture(t)
	registry := gateway.Registry{gw.GatewayName: gw}
	locks := NewMockLockStore()

	payments := service.NewPaymentService(f.tx, f.orders, f.payments, registry)
	refunds := service.NewRefundService(f.tx, f.refunds, registry, locks)
	f.service = payments

	return f, service.NewReconciler(payments, refunds, f.payments, registry), locks
}

func TestWebhook_InvalidSignatureNotAcknowledged(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway(domain.GatewayPaystack)
	gw.ParseError = gateway.ErrInvalidSignature

	_, reconciler, _ := newReconcilerFixture(t, gw)

	accepted, err := reconciler.HandleNotification(context.Background(), domain.GatewayPaystack, []byte(`{}`), "bad-sig")
	if accepted {
		t.Error("notification with an invalid signature must not be acknowledged")
	}
	if !errors.Is(err, gateway.ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestWebhook_UnknownGatewayRejected(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway(domain.GatewayPaystack)
	_, reconciler, _ := newReconcilerFixture(t, gw)

	accepted, err := reconciler.HandleNotification(context.Background(), "nonexistent", []byte(`{}`), "")
	if accepted {
		t.Error("unknown gateway must not be acknowledged")
	}
	if !errors.Is(err, service.ErrUnknownGateway) {
		t.Errorf("expected ErrUnknownGateway, got %v", err)
	}
}

func TestWebhook_UnmatchedReferenceAcknowledged(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway(domain.GatewayPaystack)
	gw.ParsedEvent = &gateway.Event{
		Type:       gateway.EventPaymentCompleted,
		PaymentRef: "no-such-payment",
		Amount:     decimal.NewFromInt(50),
		Status:     domain.PaymentStatusCompleted,
	}

	_, reconciler, _ := newReconcilerFixture(t, gw)

	accepted, err := reconciler.HandleNotification(context.Background(), domain.GatewayPaystack, []byte(`{}`), "sig")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !accepted {
		t.Error("unmatched references are acknowledged so the provider stops retrying")
	}
}

func TestWebhook_PendingEventDropped(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway(domain.GatewayPaystack)
	gw.ParsedEvent = &gateway.Event{
		Type:       gateway.EventPaymentPending,
		PaymentRef: "pay-1",
		Status:     domain.PaymentStatusPending,
	}

	f, reconciler, _ := newReconcilerFixture(t, gw)
	f.addOrder("order-1", 100)
	f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)

	accepted, err := reconciler.HandleNotification(context.Background(), domain.GatewayPaystack, []byte(`{}`), "sig")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !accepted {
		t.Error("pending events are acknowledged without touching the ledger")
	}

	payment := f.payments.GetPayment("pay-1")
	if payment.Status != domain.PaymentStatusPending {
		t.Errorf("pending event must not change payment status, got %s", payment.Status)
	}
}

func TestWebhook_RefundEventRecordsGatewayRefund(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway(domain.GatewayPaystack)
	gw.ParsedEvent = &gateway.Event{
		Type:       gateway.EventRefundCompleted,
		PaymentRef: "pay-1",
		Amount:     decimal.NewFromInt(30),
		Status:     domain.PaymentStatusCompleted,
	}

	f, reconciler, _ := newReconcilerFixture(t, gw)
	order := f.addOrder("order-1", 100)
	order.TotalPaid = decimal.NewFromInt(100)
	order.PaymentStatus = domain.PaymentStatusCompleted
	f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusCompleted)

	accepted, err := reconciler.HandleNotification(context.Background(), domain.GatewayPaystack, []byte(`{}`), "sig")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !accepted {
		t.Error("expected refund event acknowledged")
	}

	if f.refunds.CountRefunds() != 1 {
		t.Fatalf("expected 1 recorded refund, got %d", f.refunds.CountRefunds())
	}

	stored := f.orders.GetOrder("order-1")
	if !stored.TotalRefunded.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected total_refunded 30, got %s", stored.TotalRefunded)
	}
	if stored.PaymentStatus != domain.PaymentStatusPartial {
		t.Errorf("expected partial after refund, got %s", stored.PaymentStatus)
	}
}

func TestWebhook_RefundOutrunningCompletionNotAcknowledged(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway(domain.GatewayPaystack)
	gw.ParsedEvent = &gateway.Event{
		Type:       gateway.EventRefundCompleted,
		PaymentRef: "pay-1",
		Amount:     decimal.NewFromInt(100),
		Status:     domain.PaymentStatusCompleted,
	}

	f, reconciler, _ := newReconcilerFixture(t, gw)
	f.addOrder("order-1", 100)
	f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)

	ctx := context.Background()

	// The provider delivers the refund event before the completion event.
	accepted, err := reconciler.HandleNotification(ctx, domain.GatewayPaystack, []byte(`{}`), "sig")
	if accepted {
		t.Error("refund for an uncompleted payment must not be acknowledged")
	}
	if !errors.Is(err, service.ErrRefundNotAllowed) {
		t.Fatalf("expected ErrRefundNotAllowed, got %v", err)
	}

	payment := f.payments.GetPayment("pay-1")
	if payment.Status != domain.PaymentStatusPending {
		t.Errorf("payment must stay pending, got %s", payment.Status)
	}
	if f.refunds.CountRefunds() != 0 {
		t.Fatalf("expected no refund row, got %d", f.refunds.CountRefunds())
	}

	// The completion event lands.
	_, err = f.service.ApplyGatewayOutcome(ctx, "pay-1", domain.PaymentStatusCompleted, "ref-1", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error applying completion: %v", err)
	}

	// The provider redelivers the refund event; now it reconciles cleanly.
	accepted, err = reconciler.HandleNotification(ctx, domain.GatewayPaystack, []byte(`{}`), "sig")
	if err != nil {
		t.Fatalf("unexpected error on redelivery: %v", err)
	}
	if !accepted {
		t.Error("expected redelivered refund event acknowledged")
	}

	order := f.orders.GetOrder("order-1")
	if !order.TotalRefunded.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected total_refunded 100, got %s", order.TotalRefunded)
	}
	if !order.TotalPaid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected total_paid 100, got %s", order.TotalPaid)
	}
	if order.PaymentStatus != domain.PaymentStatusRefunded {
		t.Errorf("expected order payment status refunded, got %s", order.PaymentStatus)
	}
}

// ──────────────────────────────────────────────
// 3. MANUAL VERIFICATION
// ──────────────────────────────────────────────

func TestVerify_AppliesAuthoritativeOutcome(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway(domain.GatewayPaystack)
	gw.VerifyOutcome = &gateway.Outcome{
		Status:      domain.PaymentStatusCompleted,
		ProviderRef: "ref-1",
		Amount:      decimal.NewFromInt(100),
	}

	f, reconciler, _ := newReconcilerFixture(t, gw)
	f.addOrder("order-1", 100)
	payment := f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)
	payment.TransactionID = "ref-1"

	verified, err := reconciler.VerifyPayment(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if verified.Status != domain.PaymentStatusCompleted {
		t.Errorf("expected completed, got %s", verified.Status)
	}

	order := f.orders.GetOrder("order-1")
	if order.PaymentStatus != domain.PaymentStatusCompleted {
		t.Errorf("expected order completed, got %s", order.PaymentStatus)
	}
}

func TestVerify_PendingOutcomeNotApplied(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway(domain.GatewayPaystack)
	gw.VerifyOutcome = &gateway.Outcome{
		Status: domain.PaymentStatusPending,
		Amount: decimal.NewFromInt(100),
	}

	f, reconciler, _ := newReconcilerFixture(t, gw)
	f.addOrder("order-1", 100)
	payment := f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)
	payment.TransactionID = "ref-1"

	verified, err := reconciler.VerifyPayment(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Silence from the provider never becomes a failure.
	if verified.Status != domain.PaymentStatusPending {
		t.Errorf("expected payment to stay pending, got %s", verified.Status)
	}
}

func TestVerify_WithoutProviderReferenceRejected(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway(domain.GatewayPayFast)
	f, reconciler, _ := newReconcilerFixture(t, gw)
	f.addOrder("order-1", 100)
	payment := f.addPayment("pay-1", "order-1", 100, domain.PaymentStatusPending)
	payment.Gateway = domain.GatewayPayFast

	_, err := reconciler.VerifyPayment(context.Background(), "pay-1")
	if !errors.Is(err, service.ErrNoProviderReference) {
		t.Fatalf("expected ErrNoProviderReference, got %v", err)
	}
}
