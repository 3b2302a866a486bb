package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopd/shopd/internal/domain"
	"github.com/shopd/shopd/internal/order"
	"go.uber.org/zap"
)

type OrderHandler struct {
	svc    *order.Service
	logger *zap.Logger
}

func NewOrderHandler(svc *order.Service, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

type createOrderRequest struct {
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
}

type updatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
	TransactionID string `json:"transaction_id"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	o, err := h.svc.CreateOrder(r.Context(), userID, req.ShippingAddress, domain.PaymentMethod(req.PaymentMethod))
	if err != nil {
		h.logger.Warn("failed to create order", zap.String("user_id", userID), zap.Error(err))
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "invalid order id")
		return
	}

	o, err := h.svc.GetOrder(r.Context(), userID, id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	orders, err := h.svc.ListUserOrders(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list orders", zap.String("user_id", userID), zap.Error(err))
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListAllOrders(r.Context())
	if err != nil {
		h.logger.Error("failed to list all orders", zap.Error(err))
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "invalid order id")
		return
	}

	var req updatePaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	o, err := h.svc.UpdatePaymentStatus(r.Context(), id, domain.PaymentStatus(req.PaymentStatus), req.TransactionID)
	if err != nil {
		h.logger.Warn("failed to update payment status",
			zap.String("order_id", id.String()),
			zap.String("payment_status", req.PaymentStatus),
			zap.Error(err))
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "invalid order id")
		return
	}

	intent, err := h.svc.CreatePaymentIntent(r.Context(), userID, id)
	if err != nil {
		h.logger.Error("failed to create payment intent",
			zap.String("order_id", id.String()),
			zap.Error(err))
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, paymentIntentResponse{
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	})
}
