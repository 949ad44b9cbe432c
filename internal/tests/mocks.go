package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/gateway"
	"courier/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	// Counters for verification
	CreateCallCount       int32
	UpdateCallCount       int32
	UpdateLedgerCallCount int32
	ForUpdateCallCount    int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// AddOrder adds an order to the mock repository.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *order
	return &copy, nil
}

func (m *MockOrderRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	atomic.AddInt32(&m.ForUpdateCallCount, 1)
	return m.GetByID(ctx, id)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *order
	m.orders[order.ID] = &copy
	return nil
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	order.Status = status
	return nil
}

func (m *MockOrderRepository) UpdateLedger(ctx context.Context, id string, status domain.PaymentStatus, totalPaid, totalRefunded decimal.Decimal) error {
	atomic.AddInt32(&m.UpdateLedgerCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	order.PaymentStatus = status
	order.TotalPaid = totalPaid
	order.TotalRefunded = totalRefunded
	return nil
}

func (m *MockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if filter.ClientID != "" && o.ClientID != filter.ClientID {
			continue
		}
		if filter.DriverID != "" && o.DriverID != filter.DriverID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		copy := *o
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockOrderRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

// GetOrder returns the stored order for test assertions.
func (m *MockOrderRepository) GetOrder(id string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[id]
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

// AddPayment adds a payment to the mock repository.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *payment
	m.payments[payment.ID] = &copy
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[payment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = payment.Status
	stored.TransactionID = payment.TransactionID
	stored.FailureReason = payment.FailureReason
	stored.Details = payment.Details
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *MockPaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Payment, 0)
	for _, p := range m.payments {
		if p.OrderID == orderID {
			copy := *p
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockPaymentRepository) ListByPayer(ctx context.Context, payerID string, paymentType domain.PaymentType) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Payment, 0)
	for _, p := range m.payments {
		if p.PayerID != payerID {
			continue
		}
		if paymentType != "" && p.Type != paymentType {
			continue
		}
		copy := *p
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockPaymentRepository) SumCompletedClientPayments(ctx context.Context, orderID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.OrderID == orderID && p.Type == domain.PaymentTypeClient && p.Status == domain.PaymentStatusCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

// GetPayment returns the stored payment for test assertions.
func (m *MockPaymentRepository) GetPayment(id string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payments[id]
}

// ──────────────────────────────────────────────
// MOCK REFUND REPOSITORY
// ──────────────────────────────────────────────

// MockRefundRepository is a mock implementation of RefundRepository.
type MockRefundRepository struct {
	mu      sync.RWMutex
	refunds map[string]*domain.Refund

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockRefundRepository creates a new mock refund repository.
func NewMockRefundRepository() *MockRefundRepository {
	return &MockRefundRepository{
		refunds: make(map[string]*domain.Refund),
	}
}

// AddRefund adds a refund to the mock repository.
func (m *MockRefundRepository) AddRefund(refund *domain.Refund) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunds[refund.ID] = refund
}

func (m *MockRefundRepository) Create(ctx context.Context, refund *domain.Refund) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *refund
	m.refunds[refund.ID] = &copy
	return nil
}

func (m *MockRefundRepository) GetByID(ctx context.Context, id string) (*domain.Refund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	refund, ok := m.refunds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *refund
	return &copy, nil
}

func (m *MockRefundRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	refund, ok := m.refunds[id]
	if !ok {
		return repository.ErrNotFound
	}
	refund.Status = status
	if status == domain.PaymentStatusCompleted {
		refund.ProcessedAt = time.Now()
	}
	return nil
}

func (m *MockRefundRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Refund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Refund, 0)
	for _, r := range m.refunds {
		if r.OrderID == orderID {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockRefundRepository) SumCompletedByPayment(ctx context.Context, paymentID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, r := range m.refunds {
		if r.PaymentID == paymentID && r.Status == domain.PaymentStatusCompleted {
			sum = sum.Add(r.Amount)
		}
	}
	return sum, nil
}

func (m *MockRefundRepository) SumCompletedByOrder(ctx context.Context, orderID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, r := range m.refunds {
		if r.OrderID == orderID && r.Status == domain.PaymentStatusCompleted {
			sum = sum.Add(r.Amount)
		}
	}
	return sum, nil
}

// CountRefunds returns the number of stored refunds.
func (m *MockRefundRepository) CountRefunds() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.refunds)
}

// ──────────────────────────────────────────────
// MOCK TX MANAGER
// ──────────────────────────────────────────────

// MockTxManager runs the transactional function against the shared mocks.
// It cannot roll back, so tests that inject errors assert on observable
// state rather than on rollback mechanics.
type MockTxManager struct {
	Orders   *MockOrderRepository
	Payments *MockPaymentRepository
	Refunds  *MockRefundRepository

	// Counter for verification
	TxCallCount int32

	// Error injection: returned before fn runs.
	BeginError error
}

// NewMockTxManager creates a mock transaction manager over the given mocks.
func NewMockTxManager(orders *MockOrderRepository, payments *MockPaymentRepository, refunds *MockRefundRepository) *MockTxManager {
	return &MockTxManager{
		Orders:   orders,
		Payments: payments,
		Refunds:  refunds,
	}
}

func (m *MockTxManager) WithinTx(ctx context.Context, fn func(repos repository.Repos) error) error {
	atomic.AddInt32(&m.TxCallCount, 1)
	if m.BeginError != nil {
		return m.BeginError
	}
	return fn(repository.Repos{
		Orders:   m.Orders,
		Payments: m.Payments,
		Refunds:  m.Refunds,
	})
}

// ──────────────────────────────────────────────
// MOCK STATUS CACHE
// ──────────────────────────────────────────────

// MockStatusCache is an in-memory stand-in for the Redis status cache.
type MockStatusCache struct {
	mu       sync.RWMutex
	statuses map[string]domain.OrderStatus

	// Error injection
	SetError error
	GetError error
}

// NewMockStatusCache creates a new mock status cache.
func NewMockStatusCache() *MockStatusCache {
	return &MockStatusCache{
		statuses: make(map[string]domain.OrderStatus),
	}
}

func (m *MockStatusCache) SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[orderID] = status
	return nil
}

func (m *MockStatusCache) GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	if m.GetError != nil {
		return "", m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// A miss is not an error, matching the Redis-backed cache.
	return m.statuses[orderID], nil
}

func (m *MockStatusCache) DeleteOrderStatus(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, orderID)
	return nil
}

// CachedStatus returns the cached status for test assertions.
func (m *MockStatusCache) CachedStatus(orderID string) domain.OrderStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statuses[orderID]
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory stand-in for the Redis refund lock.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	// Counters for verification
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]bool),
	}
}

func (m *MockLockStore) AcquireRefundLock(ctx context.Context, paymentID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[paymentID] {
		return false, nil
	}
	m.locks[paymentID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseRefundLock(ctx context.Context, paymentID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, paymentID)
	return nil
}

// Hold pre-acquires a lock so tests can simulate a refund in flight.
func (m *MockLockStore) Hold(paymentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[paymentID] = true
}

// ──────────────────────────────────────────────
// MOCK GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a scriptable payment provider.
type MockGateway struct {
	GatewayName domain.GatewayName

	// Scripted responses
	InitiateRef     string
	InitiateDetails *domain.TransactionDetails
	InitiateError   error
	VerifyOutcome   *gateway.Outcome
	VerifyError     error
	RefundError     error
	ParsedEvent     *gateway.Event
	ParseError      error

	// Counters for verification
	InitiateCallCount int32
	VerifyCallCount   int32
	RefundCallCount   int32

	// Captured arguments
	mu            sync.Mutex
	RefundedRefs  []string
	RefundAmounts []decimal.Decimal
}

// NewMockGateway creates a mock gateway with the given name.
func NewMockGateway(name domain.GatewayName) *MockGateway {
	return &MockGateway{GatewayName: name}
}

func (m *MockGateway) Name() domain.GatewayName {
	return m.GatewayName
}

func (m *MockGateway) Initiate(ctx context.Context, req gateway.InitiateRequest) (string, *domain.TransactionDetails, error) {
	atomic.AddInt32(&m.InitiateCallCount, 1)
	if m.InitiateError != nil {
		return "", nil, m.InitiateError
	}
	return m.InitiateRef, m.InitiateDetails, nil
}

func (m *MockGateway) Verify(ctx context.Context, providerRef string) (*gateway.Outcome, error) {
	atomic.AddInt32(&m.VerifyCallCount, 1)
	if m.VerifyError != nil {
		return nil, m.VerifyError
	}
	return m.VerifyOutcome, nil
}

func (m *MockGateway) Refund(ctx context.Context, providerRef string, amount decimal.Decimal) error {
	atomic.AddInt32(&m.RefundCallCount, 1)
	m.mu.Lock()
	m.RefundedRefs = append(m.RefundedRefs, providerRef)
	m.RefundAmounts = append(m.RefundAmounts, amount)
	m.mu.Unlock()
	return m.RefundError
}

func (m *MockGateway) ParseNotification(rawBody []byte, signatureHeader string) (*gateway.Event, error) {
	if m.ParseError != nil {
		return nil, m.ParseError
	}
	return m.ParsedEvent, nil
}
