package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"
	"github.com/Team-Zemo/omninet-core-sub000/internal/core/services"
	"github.com/Team-Zemo/omninet-core-sub000/internal/platform/logger"
	"github.com/Team-Zemo/omninet-core-sub000/pkg/middleware"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// APIHandler serves the synchronous request/response surface: history,
// read receipts, contacts, the identity profile and the call ops endpoints.
type APIHandler struct {
	users    *services.UserService
	messages services.IMessageService
	contacts services.IContactService
	calls    services.ICallService
}

func NewAPIHandler(users *services.UserService, messages services.IMessageService, contacts services.IContactService, calls services.ICallService) *APIHandler {
	return &APIHandler{
		users:    users,
		messages: messages,
		contacts: contacts,
		calls:    calls,
	}
}

func requestUser(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	return userID, ok && userID != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /messages/history?with=<user>&page=<n>&size=<n>
func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := requestUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	other := r.URL.Query().Get("with")
	if other == "" {
		http.Error(w, "missing 'with' parameter", http.StatusBadRequest)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 0 {
		page = 0
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	msgs, hasMore, err := h.messages.History(r.Context(), userID, other, page, size)
	if err != nil {
		log.ErrorContext(r.Context(), "api handler - history failed", "user_id", userID, "with", other, "err", err)
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"has_more": hasMore,
	})
}

// POST /messages/read {"other": "<user>"}
func (h *APIHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := requestUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Other string `json:"other"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Other == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	count, err := h.messages.MarkRead(r.Context(), userID, req.Other)
	if err != nil {
		log.ErrorContext(r.Context(), "api handler - mark read failed", "user_id", userID, "other", req.Other, "err", err)
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"read": count})
}

// GET /contacts
func (h *APIHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := requestUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	previews, err := h.contacts.ListWithPreview(r.Context(), userID)
	if err != nil {
		log.ErrorContext(r.Context(), "api handler - list contacts failed", "user_id", userID, "err", err)
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	if previews == nil {
		previews = []domain.ContactPreview{}
	}
	writeJSON(w, http.StatusOK, previews)
}

// POST /contacts {"contact_id": "<user>"}
func (h *APIHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := requestUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		ContactID string `json:"contact_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ContactID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.contacts.AddContact(r.Context(), userID, req.ContactID); err != nil {
		log.ErrorContext(r.Context(), "api handler - add contact failed", "user_id", userID, "contact", req.ContactID, "err", err)
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// GET /calls/active
func (h *APIHandler) ActiveCalls(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	calls, err := h.calls.ActiveCalls(r.Context())
	if err != nil {
		log.ErrorContext(r.Context(), "api handler - active calls failed", "err", err)
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	if calls == nil {
		calls = []domain.CallSession{}
	}
	writeJSON(w, http.StatusOK, calls)
}

// POST /calls/cleanup forces one maintenance sweep outside the schedule.
func (h *APIHandler) CleanupCalls(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	if err := h.calls.SweepStaleCalls(r.Context()); err != nil {
		log.ErrorContext(r.Context(), "api handler - cleanup failed", "err", err)
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GET /users/me
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := requestUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := h.users.ResolveUser(r.Context(), userID)
	if err != nil {
		log.ErrorContext(r.Context(), "api handler - resolve user failed", "user_id", userID, "err", err)
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      user.ID,
		"display_name": user.DisplayName,
		"avatar_url":   user.AvatarURL,
		"created_at":   user.CreatedAt,
	})
}

// DELETE /users/me
func (h *APIHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := requestUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.users.DeleteAccount(r.Context(), userID); err != nil {
		log.ErrorContext(r.Context(), "api handler - delete account failed", "user_id", userID, "err", err)
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
