package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopd/shopd/internal/password"
	"go.uber.org/zap"
)

type PasswordHandler struct {
	svc    *password.Service
	logger *zap.Logger
}

func NewPasswordHandler(svc *password.Service, logger *zap.Logger) *PasswordHandler {
	return &PasswordHandler{svc: svc, logger: logger}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *PasswordHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "invalid_email", "email is required")
		return
	}

	if err := h.svc.Forgot(r.Context(), req.Email); err != nil {
		h.logger.Warn("failed to start password reset", zap.Error(err))
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "password reset link sent to your email"})
}

func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "invalid_password", "password must be at least 8 characters")
		return
	}

	if err := h.svc.Reset(r.Context(), token, req.Password); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "password reset successful"})
}
