package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopd/shopd/internal/cart"
	"go.uber.org/zap"
)

type CartHandler struct {
	svc    *cart.Service
	logger *zap.Logger
}

func NewCartHandler(svc *cart.Service, logger *zap.Logger) *CartHandler {
	return &CartHandler{svc: svc, logger: logger}
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	c, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get cart", zap.String("user_id", userID), zap.Error(err))
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	c, err := h.svc.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		h.logger.Warn("failed to add item",
			zap.String("user_id", userID),
			zap.Int64("product_id", req.ProductID),
			zap.Error(err))
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "invalid product id")
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	c, err := h.svc.UpdateQuantity(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "invalid product id")
		return
	}

	c, err := h.svc.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	c, err := h.svc.Clear(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}
