package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
)

// PaystackConfig holds Paystack API credentials.
type PaystackConfig struct {
	SecretKey   string
	BaseURL     string // e.g. https://api.paystack.co
	CallbackURL string
}

// Paystack implements Gateway for the Paystack provider.
type Paystack struct {
	cfg        PaystackConfig
	httpClient *http.Client
}

// NewPaystack creates a Paystack adapter.
func NewPaystack(cfg PaystackConfig, httpClient *http.Client) *Paystack {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Paystack{cfg: cfg, httpClient: httpClient}
}

// Name returns the gateway name.
func (p *Paystack) Name() domain.GatewayName { return domain.GatewayPaystack }

// Initiate creates a transaction via the Paystack initialize API. The payment
// ID is sent as the transaction reference so webhooks can be matched back.
// Amounts are sent in subunits (kobo/cents).
func (p *Paystack) Initiate(ctx context.Context, req InitiateRequest) (string, *domain.TransactionDetails, error) {
	payload := map[string]any{
		"reference":    req.PaymentID,
		"amount":       req.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"currency":     req.Currency,
		"email":        req.PayerEmail,
		"callback_url": p.cfg.CallbackURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", nil, fmt.Errorf("%w: paystack initialize returned %s", ErrUnavailable, resp.Status)
	}

	var apiResp struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", nil, err
	}
	if !apiResp.Status {
		return "", nil, fmt.Errorf("paystack initialize failed: %s", apiResp.Message)
	}

	details := &domain.TransactionDetails{
		Gateway: domain.GatewayPaystack,
		Paystack: &domain.PaystackDetails{
			Reference:        apiResp.Data.Reference,
			AuthorizationURL: apiResp.Data.AuthorizationURL,
		},
	}

	return apiResp.Data.Reference, details, nil
}

// paystackData is the transaction shape shared by verify responses and
// webhook payloads.
type paystackData struct {
	ID              json.Number `json:"id"`
	Reference       string      `json:"reference"`
	Status          string      `json:"status"`
	Amount          int64       `json:"amount"` // subunits
	Currency        string      `json:"currency"`
	Channel         string      `json:"channel"`
	GatewayResponse string      `json:"gateway_response"`
}

// Verify polls Paystack for a transaction's authoritative status.
func (p *Paystack) Verify(ctx context.Context, providerRef string) (*Outcome, error) {
	verifyURL := p.cfg.BaseURL + "/transaction/verify/" + url.PathEscape(providerRef)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, verifyURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: paystack verify returned %s", ErrUnavailable, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack verify failed: %s", resp.Status)
	}

	var apiResp struct {
		Status bool         `json:"status"`
		Data   paystackData `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, err
	}

	return &Outcome{
		Status:      paystackStatus(apiResp.Data.Status),
		ProviderRef: apiResp.Data.Reference,
		Amount:      subunitsToAmount(apiResp.Data.Amount),
		Currency:    apiResp.Data.Currency,
	}, nil
}

// Refund requests a gateway-side refund via the Paystack refund API.
func (p *Paystack) Refund(ctx context.Context, providerRef string, amount decimal.Decimal) error {
	payload := map[string]any{
		"transaction": providerRef,
		"amount":      amount.Mul(decimal.NewFromInt(100)).IntPart(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/refund", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: paystack refund returned %s", ErrUnavailable, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("paystack refund failed: %s", resp.Status)
	}

	return nil
}

// ParseNotification authenticates a Paystack webhook. The signature header
// carries an HMAC-SHA512 of the raw body keyed with the secret key.
func (p *Paystack) ParseNotification(rawBody []byte, signatureHeader string) (*Event, error) {
	if !verifyHMAC512(rawBody, signatureHeader, p.cfg.SecretKey) {
		return nil, ErrInvalidSignature
	}

	var payload struct {
		Event string       `json:"event"`
		Data  paystackData `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("paystack webhook: malformed body: %w", err)
	}

	// The reference is both the match key and the provider-side handle:
	// Paystack's verify and refund APIs address transactions by reference.
	event := &Event{
		PaymentRef:  payload.Data.Reference,
		ProviderRef: payload.Data.Reference,
		Amount:      subunitsToAmount(payload.Data.Amount),
		Currency:    payload.Data.Currency,
	}

	switch payload.Event {
	case "charge.success":
		event.Type = EventPaymentCompleted
		event.Status = domain.PaymentStatusCompleted
	case "charge.failed":
		event.Type = EventPaymentFailed
		event.Status = domain.PaymentStatusFailed
	case "refund.processed":
		event.Type = EventRefundCompleted
		event.Status = domain.PaymentStatusCompleted
	default:
		event.Type = EventPaymentPending
		event.Status = domain.PaymentStatusPending
	}

	return event, nil
}

// verifyHMAC512 validates a hex HMAC-SHA512 signature in constant time.
func verifyHMAC512(body []byte, signature, secret string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, sigBytes)
}

func subunitsToAmount(subunits int64) decimal.Decimal {
	return decimal.NewFromInt(subunits).Div(decimal.NewFromInt(100))
}

func paystackStatus(s string) domain.PaymentStatus {
	switch s {
	case "success":
		return domain.PaymentStatusCompleted
	case "failed", "abandoned", "reversed":
		return domain.PaymentStatusFailed
	default:
		return domain.PaymentStatusPending
	}
}
