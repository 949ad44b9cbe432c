package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/pricing"
	"courier/internal/repository"
	"courier/internal/service"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService *service.OrderService
	presets      map[string]pricing.Config
	defaultRates pricing.Config
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService, presets map[string]pricing.Config, defaultRates pricing.Config) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		presets:      presets,
		defaultRates: defaultRates,
	}
}

// CreateOrderRequest is the HTTP request body for creating an order.
type CreateOrderRequest struct {
	ClientID       string `json:"client_id"`
	OrderType      string `json:"order_type"`
	PickupAddress  string `json:"pickup_address"`
	DropoffAddress string `json:"dropoff_address"`
	DistanceKM     string `json:"distance_km"`
	PricingPreset  string `json:"pricing_preset"`
	CustomPrice    string `json:"custom_price"`
	IsAdmin        bool   `json:"is_admin"`
}

// OrderResponse is the HTTP response for order operations.
type OrderResponse struct {
	ID             string     `json:"id"`
	ClientID       string     `json:"client_id"`
	DriverID       string     `json:"driver_id,omitempty"`
	OrderType      string     `json:"order_type"`
	Status         string     `json:"status"`
	PickupAddress  string     `json:"pickup_address"`
	DropoffAddress string     `json:"dropoff_address"`
	DistanceKM     string     `json:"distance_km"`
	Price          string     `json:"price"`
	PaymentStatus  string     `json:"payment_status"`
	TotalPaid      string     `json:"total_paid"`
	TotalRefunded  string     `json:"total_refunded"`
	CreatedAt      time.Time  `json:"created_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:             order.ID,
		ClientID:       order.ClientID,
		DriverID:       order.DriverID,
		OrderType:      string(order.Type),
		Status:         string(order.Status),
		PickupAddress:  order.PickupAddress,
		DropoffAddress: order.DropoffAddress,
		DistanceKM:     order.DistanceKM.StringFixed(2),
		Price:          order.Price.StringFixed(2),
		PaymentStatus:  string(order.PaymentStatus),
		TotalPaid:      order.TotalPaid.StringFixed(2),
		TotalRefunded:  order.TotalRefunded.StringFixed(2),
		CreatedAt:      order.CreatedAt,
	}
	if !order.AcceptedAt.IsZero() {
		t := order.AcceptedAt
		resp.AcceptedAt = &t
	}
	if !order.CompletedAt.IsZero() {
		t := order.CompletedAt
		resp.CompletedAt = &t
	}
	return resp
}

// CreateOrder handles POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	distance, err := decimal.NewFromString(req.DistanceKM)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid distance_km"})
		return
	}

	rates := h.defaultRates
	if req.PricingPreset != "" {
		preset, ok := h.presets[req.PricingPreset]
		if !ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown pricing preset"})
			return
		}
		rates = preset
	}

	createReq := service.CreateOrderRequest{
		ClientID:       req.ClientID,
		Type:           domain.OrderType(req.OrderType),
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		DistanceKM:     distance,
		Pricing:        rates,
	}

	if req.CustomPrice != "" {
		if !req.IsAdmin {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "custom price requires admin"})
			return
		}
		price, err := decimal.NewFromString(req.CustomPrice)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid custom_price"})
			return
		}
		createReq.CustomPrice = &price
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), createReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toOrderResponse(order))
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// GetOrderStatus handles GET /v1/orders/:id/status
//
// The lightweight tracking read: answered from the Redis status cache when
// warm, without touching the order store.
func (h *OrderHandler) GetOrderStatus(c *gin.Context) {
	status, err := h.orderService.GetOrderStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"id": c.Param("id"), "status": string(status)})
}

// ListOrders handles GET /v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := repository.OrderFilter{
		ClientID: c.Query("client_id"),
		DriverID: c.Query("driver_id"),
		Status:   domain.OrderStatus(c.Query("status")),
	}

	orders, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResponse(order))
	}

	respondJSON(c, http.StatusOK, resp)
}

// AcceptOrder handles POST /v1/orders/:id/accept
func (h *OrderHandler) AcceptOrder(c *gin.Context) {
	var req struct {
		DriverID string `json:"driver_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.AcceptOrder(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// UpdateStatus handles POST /v1/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// CancelOrder handles POST /v1/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req struct {
		ClientID string `json:"client_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), c.Param("id"), req.ClientID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// DeleteOrder handles DELETE /v1/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	isAdmin := c.Query("admin") == "true"

	err := h.orderService.DeleteOrder(c.Request.Context(), c.Param("id"), c.Query("client_id"), isAdmin)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
