package domain

import (
	"encoding/json"
	"fmt"
)

// TransactionDetails is a tagged union of per-gateway transaction detail
// shapes. The gateway field selects which member is populated, so malformed
// provider payloads fail at the boundary instead of deep in business logic.
type TransactionDetails struct {
	Gateway  GatewayName      `json:"gateway"`
	PayFast  *PayFastDetails  `json:"payfast,omitempty"`
	Paystack *PaystackDetails `json:"paystack,omitempty"`
}

// PayFastDetails holds the PayFast-specific fields carried on a payment.
type PayFastDetails struct {
	PFPaymentID   string `json:"pf_payment_id"`
	PaymentStatus string `json:"payment_status"`
	ItemName      string `json:"item_name,omitempty"`
	Signature     string `json:"signature,omitempty"`
}

// PaystackDetails holds the Paystack-specific fields carried on a payment.
type PaystackDetails struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
	Channel          string `json:"channel,omitempty"`
	GatewayResponse  string `json:"gateway_response,omitempty"`
}

// Validate checks that exactly the member matching the gateway tag is set.
func (d *TransactionDetails) Validate() error {
	switch d.Gateway {
	case GatewayPayFast:
		if d.PayFast == nil || d.Paystack != nil {
			return fmt.Errorf("transaction details: gateway %q requires payfast member only", d.Gateway)
		}
	case GatewayPaystack:
		if d.Paystack == nil || d.PayFast != nil {
			return fmt.Errorf("transaction details: gateway %q requires paystack member only", d.Gateway)
		}
	default:
		return fmt.Errorf("transaction details: unknown gateway %q", d.Gateway)
	}
	return nil
}

// MarshalDetails encodes details for storage. Nil details encode as NULL.
func MarshalDetails(d *TransactionDetails) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(d)
}

// UnmarshalDetails decodes stored details, validating the union tag.
func UnmarshalDetails(data []byte) (*TransactionDetails, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var d TransactionDetails
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}
