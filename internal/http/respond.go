package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopd/shopd/internal/domain"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondDomainError maps the domain error taxonomy onto HTTP statuses. The
// payment gateway case deliberately hides the underlying failure.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, domain.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart_not_found", "cart not found")
	case errors.Is(err, domain.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", "item not found in cart")
	case errors.Is(err, domain.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, domain.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user_not_found", "user not found with this email")
	case errors.Is(err, domain.ErrInsufficientStock):
		respondError(w, http.StatusBadRequest, "insufficient_stock", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, domain.ErrInvalidAddress):
		respondError(w, http.StatusBadRequest, "invalid_address", "please provide complete shipping address")
	case errors.Is(err, domain.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1")
	case errors.Is(err, domain.ErrInvalidPaymentStatus):
		respondError(w, http.StatusBadRequest, "invalid_payment_status", "invalid payment status")
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "invalid payment method")
	case errors.Is(err, domain.ErrOrderCancelled):
		respondError(w, http.StatusConflict, "order_cancelled", "order has been cancelled")
	case errors.Is(err, domain.ErrInvalidResetToken):
		respondError(w, http.StatusBadRequest, "invalid_reset_token", "invalid or expired reset token")
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "not authorized to access this order")
	case errors.Is(err, domain.ErrPaymentGateway):
		respondError(w, http.StatusInternalServerError, "payment_gateway_error", "payment gateway error")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
