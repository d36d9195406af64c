package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/services"
	"github.com/Team-Zemo/omninet-core-sub000/internal/platform/logger"
)

type AuthHandler struct {
	userSvc  *services.UserService
	tokenSvc *services.TokenService
}

func NewAuthHandler(u *services.UserService, t *services.TokenService) *AuthHandler {
	return &AuthHandler{userSvc: u, tokenSvc: t}
}

// Requesting the OTP
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.ErrorContext(r.Context(), "auth handler - bad request")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.userSvc.RequestOTP(r.Context(), req.Email); err != nil {
		log.ErrorContext(r.Context(), "auth handler - request otp failed", "email", req.Email)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "OTP sent successfully"})
	log.InfoContext(r.Context(), "auth handler - request otp sent", "email", req.Email)
}

// Verifying and Creating the Identity
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.ErrorContext(r.Context(), "auth handler - bad request")
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - verify otp failed", "email", req.Email)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	log.InfoContext(r.Context(), "auth handler - verify otp success", "email", req.Email)
	token, err := h.tokenSvc.GenerateToken(user.ID)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - generate token failed", "email", req.Email)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token":      token,
		"user_id":    user.ID,
		"created_at": user.CreatedAt,
	})
}
