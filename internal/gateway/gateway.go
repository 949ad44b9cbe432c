package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
)

var (
	// ErrInvalidSignature is returned when a notification's signature does
	// not verify against the shared secret.
	ErrInvalidSignature = errors.New("invalid notification signature")

	// ErrUnavailable is returned on transient provider failures. Callers
	// retry with backoff; the payment stays pending.
	ErrUnavailable = errors.New("gateway unavailable")
)

// EventType classifies a canonical gateway event.
type EventType string

const (
	EventPaymentCompleted EventType = "payment.completed"
	EventPaymentFailed    EventType = "payment.failed"
	EventPaymentPending   EventType = "payment.pending"
	EventRefundCompleted  EventType = "refund.completed"
)

// Event is the canonical form of a provider notification. PaymentRef is the
// idempotency key we handed to the provider at initiation, i.e. our payment ID.
type Event struct {
	Type        EventType
	PaymentRef  string
	ProviderRef string
	Amount      decimal.Decimal
	Currency    string
	Status      domain.PaymentStatus
}

// Outcome is the result of polling a provider for a payment's true status.
type Outcome struct {
	Status      domain.PaymentStatus
	ProviderRef string
	Amount      decimal.Decimal
	Currency    string
}

// InitiateRequest carries the fields a provider needs to start a payment.
type InitiateRequest struct {
	PaymentID  string // doubles as the provider-side reference-to-be
	Amount     decimal.Decimal
	Currency   string
	PayerEmail string
	ItemName   string
}

// Gateway abstracts over payment providers. Initiate starts a payment and
// returns the provider reference; Verify polls the provider for the
// authoritative status; Refund requests a gateway-side refund;
// ParseNotification authenticates a raw inbound notification and maps it to
// a canonical event without touching the ledger.
type Gateway interface {
	Name() domain.GatewayName
	Initiate(ctx context.Context, req InitiateRequest) (providerRef string, details *domain.TransactionDetails, err error)
	Verify(ctx context.Context, providerRef string) (*Outcome, error)
	Refund(ctx context.Context, providerRef string, amount decimal.Decimal) error
	ParseNotification(rawBody []byte, signatureHeader string) (*Event, error)
}

// Registry maps gateway names to adapters.
type Registry map[domain.GatewayName]Gateway

// Lookup returns the adapter for a gateway name.
func (r Registry) Lookup(name domain.GatewayName) (Gateway, bool) {
	gw, ok := r[name]
	return gw, ok
}
