package gateway

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
)

// PayFastConfig holds PayFast merchant credentials.
type PayFastConfig struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	BaseURL     string // e.g. https://sandbox.payfast.co.za
	NotifyURL   string
	ReturnURL   string
	CancelURL   string
}

// PayFast implements Gateway for the PayFast provider. Payment initiation is
// form-based: the client submits a signed form to PayFast and the outcome
// arrives later as an ITN (Instant Transaction Notification) POST.
type PayFast struct {
	cfg        PayFastConfig
	httpClient *http.Client
}

// NewPayFast creates a PayFast adapter.
func NewPayFast(cfg PayFastConfig, httpClient *http.Client) *PayFast {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &PayFast{cfg: cfg, httpClient: httpClient}
}

// Name returns the gateway name.
func (p *PayFast) Name() domain.GatewayName { return domain.GatewayPayFast }

// Initiate builds the signed payment form for PayFast. The payment ID is
// sent as m_payment_id, which PayFast echoes back in the ITN so the
// notification can be matched to exactly one payment. No network call is
// made; PayFast confirms asynchronously and the provider reference
// (pf_payment_id) only becomes known from the ITN, so the returned
// reference is empty.
func (p *PayFast) Initiate(ctx context.Context, req InitiateRequest) (string, *domain.TransactionDetails, error) {
	fields := url.Values{}
	fields.Set("merchant_id", p.cfg.MerchantID)
	fields.Set("merchant_key", p.cfg.MerchantKey)
	fields.Set("return_url", p.cfg.ReturnURL)
	fields.Set("cancel_url", p.cfg.CancelURL)
	fields.Set("notify_url", p.cfg.NotifyURL)
	fields.Set("email_address", req.PayerEmail)
	fields.Set("m_payment_id", req.PaymentID)
	fields.Set("amount", req.Amount.StringFixed(2))
	fields.Set("item_name", req.ItemName)

	signature := p.sign(fields)
	fields.Set("signature", signature)

	details := &domain.TransactionDetails{
		Gateway: domain.GatewayPayFast,
		PayFast: &domain.PayFastDetails{
			ItemName:  req.ItemName,
			Signature: signature,
		},
	}

	return "", details, nil
}

// payfastTransaction is the shape returned by the PayFast query API.
type payfastTransaction struct {
	PFPaymentID   json.Number `json:"pf_payment_id"`
	PaymentStatus string      `json:"payment_status"`
	AmountGross   string      `json:"amount_gross"`
}

// Verify queries PayFast for a transaction's authoritative status.
func (p *PayFast) Verify(ctx context.Context, providerRef string) (*Outcome, error) {
	queryURL := fmt.Sprintf("%s/api/v1/transactions/%s/query", p.cfg.BaseURL, url.PathEscape(providerRef))

	timestamp := time.Now().UTC().Format(time.RFC3339)
	params := url.Values{}
	params.Set("merchant_id", p.cfg.MerchantID)
	params.Set("version", "v1")
	params.Set("timestamp", timestamp)
	params.Set("signature", p.sign(params))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	auth := base64.StdEncoding.EncodeToString([]byte(p.cfg.MerchantID + ":" + p.cfg.MerchantKey))
	httpReq.Header.Set("Authorization", "Basic "+auth)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: payfast query returned %s", ErrUnavailable, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payfast query failed: %s", resp.Status)
	}

	var body struct {
		Data payfastTransaction `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(body.Data.AmountGross)
	if err != nil {
		return nil, fmt.Errorf("payfast query: bad amount_gross %q", body.Data.AmountGross)
	}

	return &Outcome{
		Status:      payfastStatus(body.Data.PaymentStatus),
		ProviderRef: body.Data.PFPaymentID.String(),
		Amount:      amount,
		Currency:    "ZAR",
	}, nil
}

// Refund requests a gateway-side refund through the PayFast refunds API.
func (p *PayFast) Refund(ctx context.Context, providerRef string, amount decimal.Decimal) error {
	refundURL := fmt.Sprintf("%s/api/v1/refunds/%s", p.cfg.BaseURL, url.PathEscape(providerRef))

	form := url.Values{}
	form.Set("merchant_id", p.cfg.MerchantID)
	form.Set("amount", amount.StringFixed(2))
	form.Set("signature", p.sign(form))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, refundURL, nil)
	if err != nil {
		return err
	}
	httpReq.URL.RawQuery = form.Encode()

	auth := base64.StdEncoding.EncodeToString([]byte(p.cfg.MerchantID + ":" + p.cfg.MerchantKey))
	httpReq.Header.Set("Authorization", "Basic "+auth)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: payfast refund returned %s", ErrUnavailable, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("payfast refund failed: %s", resp.Status)
	}

	return nil
}

// ParseNotification authenticates a PayFast ITN payload. The payload is
// form-encoded and carries its signature as a field rather than a header.
func (p *PayFast) ParseNotification(rawBody []byte, signatureHeader string) (*Event, error) {
	fields, err := url.ParseQuery(string(rawBody))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ITN body", ErrInvalidSignature)
	}

	signature := fields.Get("signature")
	if signature == "" {
		signature = signatureHeader
	}
	if signature == "" {
		return nil, ErrInvalidSignature
	}

	unsigned := url.Values{}
	for key, values := range fields {
		if key == "signature" {
			continue
		}
		for _, v := range values {
			unsigned.Add(key, v)
		}
	}

	expected := p.sign(unsigned)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return nil, ErrInvalidSignature
	}

	amount, err := decimal.NewFromString(fields.Get("amount_gross"))
	if err != nil {
		return nil, fmt.Errorf("payfast ITN: bad amount_gross %q", fields.Get("amount_gross"))
	}

	status := payfastStatus(fields.Get("payment_status"))

	event := &Event{
		PaymentRef:  fields.Get("m_payment_id"),
		ProviderRef: fields.Get("pf_payment_id"),
		Amount:      amount,
		Currency:    "ZAR",
		Status:      status,
	}

	switch status {
	case domain.PaymentStatusCompleted:
		event.Type = EventPaymentCompleted
	case domain.PaymentStatusFailed:
		event.Type = EventPaymentFailed
	default:
		event.Type = EventPaymentPending
	}

	return event, nil
}

// sign builds the MD5 parameter signature: non-empty fields sorted by key,
// URL-encoded, with the passphrase appended when configured.
func (p *PayFast) sign(fields url.Values) string {
	filtered := url.Values{}
	for key, values := range fields {
		for _, v := range values {
			if v != "" {
				filtered.Add(key, v)
			}
		}
	}

	paramString := filtered.Encode()
	if p.cfg.Passphrase != "" {
		paramString += "&passphrase=" + url.QueryEscape(p.cfg.Passphrase)
	}

	sum := md5.Sum([]byte(paramString))
	return hex.EncodeToString(sum[:])
}

func payfastStatus(s string) domain.PaymentStatus {
	switch s {
	case "COMPLETE":
		return domain.PaymentStatusCompleted
	case "FAILED", "CANCELLED":
		return domain.PaymentStatusFailed
	default:
		return domain.PaymentStatusPending
	}
}
