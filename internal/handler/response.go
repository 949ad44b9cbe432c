package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/gateway"
	"courier/internal/repository"
	"courier/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidRefundID),
		errors.Is(err, service.ErrInvalidPayerID),
		errors.Is(err, service.ErrInvalidClientID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidOrderType),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrUnknownGateway),
		errors.Is(err, service.ErrNoProviderReference):
		return http.StatusBadRequest

	// Authentication failures on inbound notifications
	case errors.Is(err, gateway.ErrInvalidSignature):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrOrderTerminal),
		errors.Is(err, service.ErrOrderCancelled),
		errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrDriverBusy),
		errors.Is(err, service.ErrConflictingOutcome),
		errors.Is(err, service.ErrRefundExceedsPayment),
		errors.Is(err, service.ErrRefundNotAllowed),
		errors.Is(err, service.ErrRefundInProgress):
		return http.StatusConflict

	// Transient upstream failures
	case errors.Is(err, service.ErrGatewayUnavailable),
		errors.Is(err, gateway.ErrUnavailable):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
