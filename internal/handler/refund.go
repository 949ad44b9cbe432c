package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/service"
)

// RefundHandler handles HTTP requests for refunds.
type RefundHandler struct {
	refundService *service.RefundService
}

// NewRefundHandler creates a new RefundHandler.
func NewRefundHandler(refundService *service.RefundService) *RefundHandler {
	return &RefundHandler{refundService: refundService}
}

// CreateRefundRequest is the HTTP request body for creating a refund.
type CreateRefundRequest struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
}

// RefundResponse is the HTTP response for refund operations.
type RefundResponse struct {
	ID          string     `json:"id"`
	PaymentID   string     `json:"payment_id"`
	OrderID     string     `json:"order_id"`
	Amount      string     `json:"amount"`
	Reason      string     `json:"reason,omitempty"`
	Status      string     `json:"status"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toRefundResponse(refund *domain.Refund) RefundResponse {
	resp := RefundResponse{
		ID:        refund.ID,
		PaymentID: refund.PaymentID,
		OrderID:   refund.OrderID,
		Amount:    refund.Amount.StringFixed(2),
		Reason:    refund.Reason,
		Status:    string(refund.Status),
		CreatedAt: refund.CreatedAt,
	}
	if !refund.ProcessedAt.IsZero() {
		t := refund.ProcessedAt
		resp.ProcessedAt = &t
	}
	return resp
}

// CreateRefund handles POST /v1/refunds
func (h *RefundHandler) CreateRefund(c *gin.Context) {
	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid amount"})
		return
	}

	refund, err := h.refundService.CreateRefund(c.Request.Context(), service.CreateRefundRequest{
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		Amount:    amount,
		Reason:    req.Reason,
	})
	if err != nil {
		// A refund rejected by the provider is reported with the failed row
		// so the caller can see what was attempted.
		if refund != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":  err.Error(),
				"refund": toRefundResponse(refund),
			})
			return
		}
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRefundResponse(refund))
}

// GetRefund handles GET /v1/refunds/:id
func (h *RefundHandler) GetRefund(c *gin.Context) {
	refund, err := h.refundService.GetRefund(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRefundResponse(refund))
}

// ListRefundsByOrder handles GET /v1/refunds/order/:id
func (h *RefundHandler) ListRefundsByOrder(c *gin.Context) {
	refunds, err := h.refundService.ListRefundsByOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]RefundResponse, 0, len(refunds))
	for _, refund := range refunds {
		resp = append(resp, toRefundResponse(refund))
	}

	respondJSON(c, http.StatusOK, resp)
}
