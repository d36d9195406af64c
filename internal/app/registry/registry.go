package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/contracts"
)

// Registry is the single-process presence authority: it maps a user id to
// its one live connection handle and doubles as the Relay that pushes events
// to user-scoped topics. Correctness of IsOnline assumes this process owns
// all connections; see DESIGN.md for the multi-node generalization.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]contracts.Client // user_id → live handle
	log     *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]contracts.Client),
		log:     log,
	}
}

// Connect records the mapping. Last connection wins: a displaced handle is
// closed so its read loop unwinds and its Disconnect becomes a no-op.
func (h *Registry) Connect(userID string, c contracts.Client) {
	h.mu.Lock()
	prev := h.clients[userID]
	h.clients[userID] = c
	h.mu.Unlock()
	if prev != nil && prev != c {
		prev.Close()
		h.log.Info("registry - connect - displaced previous connection", "user_id", userID)
	}
}

// Disconnect removes the entry whose handle matches the disconnecting one.
// Disconnect events carry only the handle; since the map stores one handle
// per user the reverse lookup is an identity check on that user's entry.
func (h *Registry) Disconnect(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.UserID()]; ok && cur == c {
		delete(h.clients, c.UserID())
	}
}

func (h *Registry) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Publish pushes the event to the user's topic. An offline user is a logged
// no-op: the canonical state mutation that triggered the push is the source
// of truth and is recovered via the offline-queue path, never by erroring
// here.
func (h *Registry) Publish(ctx context.Context, userID string, event any) error {
	h.mu.RLock()
	c := h.clients[userID]
	h.mu.RUnlock()
	if c == nil {
		h.log.Debug("registry - publish - no live connection", "user_id", userID)
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, data); err != nil {
		h.log.ErrorContext(ctx, "registry - publish - send failed", "user_id", userID, "err", err)
	}
	return nil
}
