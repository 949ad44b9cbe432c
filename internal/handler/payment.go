package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
	reconciler     *service.Reconciler
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService, reconciler *service.Reconciler) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		reconciler:     reconciler,
	}
}

// CreatePaymentRequest is the HTTP request body for recording a payment attempt.
type CreatePaymentRequest struct {
	OrderID      string `json:"order_id"`
	PayerID      string `json:"payer_id"`
	PaymentType  string `json:"payment_type"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Method       string `json:"method"`
	Gateway      string `json:"gateway"`
	PayerEmail   string `json:"payer_email"`
	ActorIsAdmin bool   `json:"actor_is_admin"`
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID            string                     `json:"id"`
	OrderID       string                     `json:"order_id"`
	PayerID       string                     `json:"payer_id"`
	PaymentType   string                     `json:"payment_type"`
	Amount        string                     `json:"amount"`
	Currency      string                     `json:"currency"`
	Method        string                     `json:"method"`
	Gateway       string                     `json:"gateway"`
	Status        string                     `json:"status"`
	TransactionID string                     `json:"transaction_id,omitempty"`
	FailureReason string                     `json:"failure_reason,omitempty"`
	Details       *domain.TransactionDetails `json:"details,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

func toPaymentResponse(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            payment.ID,
		OrderID:       payment.OrderID,
		PayerID:       payment.PayerID,
		PaymentType:   string(payment.Type),
		Amount:        payment.Amount.StringFixed(2),
		Currency:      payment.Currency,
		Method:        string(payment.Method),
		Gateway:       string(payment.Gateway),
		Status:        string(payment.Status),
		TransactionID: payment.TransactionID,
		FailureReason: payment.FailureReason,
		Details:       payment.Details,
		CreatedAt:     payment.CreatedAt,
		UpdatedAt:     payment.UpdatedAt,
	}
}

// CreatePayment handles POST /v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid amount"})
		return
	}

	paymentType := domain.PaymentType(req.PaymentType)
	if paymentType == "" {
		paymentType = domain.PaymentTypeClient
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), service.CreatePaymentRequest{
		OrderID:      req.OrderID,
		PayerID:      req.PayerID,
		Type:         paymentType,
		Amount:       amount,
		Currency:     req.Currency,
		Method:       domain.PaymentMethod(req.Method),
		Gateway:      domain.GatewayName(req.Gateway),
		PayerEmail:   req.PayerEmail,
		ActorIsAdmin: req.ActorIsAdmin,
	})
	if err != nil {
		// The pending payment row survives a gateway outage so the client
		// can retry verification later; include it when present.
		if payment != nil {
			c.JSON(mapErrorToHTTPStatus(err), gin.H{
				"error":   err.Error(),
				"payment": toPaymentResponse(payment),
			})
			return
		}
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPaymentResponse(payment))
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// ListPaymentsByOrder handles GET /v1/payments/order/:id
func (h *PaymentHandler) ListPaymentsByOrder(c *gin.Context) {
	payments, err := h.paymentService.ListPaymentsByOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		resp = append(resp, toPaymentResponse(payment))
	}

	respondJSON(c, http.StatusOK, resp)
}

// ListPaymentsByPayer handles GET /v1/payments/payer/:id
func (h *PaymentHandler) ListPaymentsByPayer(c *gin.Context) {
	payments, err := h.paymentService.ListPaymentsByPayer(c.Request.Context(), c.Param("id"), domain.PaymentType(c.Query("type")))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		resp = append(resp, toPaymentResponse(payment))
	}

	respondJSON(c, http.StatusOK, resp)
}

// VerifyPayment handles POST /v1/payments/:id/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	payment, err := h.reconciler.VerifyPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}
