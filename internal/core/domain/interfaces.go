package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository handles the persistent identity
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpsertUser(ctx context.Context, id string) (*User, error)
	DeleteUser(ctx context.Context, id string) error
}

// ContactRepository maintains the bidirectional messaging graph.
type ContactRepository interface {
	// EnsureBidirectional idempotently creates both directed edges.
	EnsureBidirectional(ctx context.Context, a, b string) error
	IsContact(ctx context.Context, owner, contact string) (bool, error)
	// TouchLastActivity updates last_message_at on both edges; silent no-op
	// when the edges do not exist.
	TouchLastActivity(ctx context.Context, a, b string, when time.Time) error
	// ListPreviews joins each edge of owner with the latest message and the
	// unread count, ordered by last activity descending.
	ListPreviews(ctx context.Context, owner string) ([]ContactPreview, error)
}

// MessageRepository handles message persistence and status transitions.
type MessageRepository interface {
	// Save inserts the message and returns the database-assigned Seq.
	Save(ctx context.Context, msg *Message) (int64, error)
	// MarkDelivered flips PENDING -> DELIVERED; no-op when the message has
	// already moved forward.
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	// MarkConversationRead flips every message from sender to receiver with
	// status != READ into READ, returning the number of rows touched.
	MarkConversationRead(ctx context.Context, sender, receiver string) (int64, error)
	// ListConversation returns one reverse-chronological page of the
	// conversation between a and b plus a hasMore flag.
	ListConversation(ctx context.Context, a, b string, page, size int) ([]Message, bool, error)
	// ListPendingForReceiver returns PENDING messages addressed to receiver
	// in send order.
	ListPendingForReceiver(ctx context.Context, receiver string) ([]Message, error)
}

// CallRepository persists call sessions; the in-memory active-call index is
// kept consistent with it by the signaling service.
type CallRepository interface {
	Create(ctx context.Context, call *CallSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*CallSession, error)
	// UpdateState transitions id from one of the expected states to next,
	// persisting the optional answer SDP and reason. Returns
	// ErrInvalidCallState when the current state is not in expected.
	UpdateState(ctx context.Context, id uuid.UUID, expected []CallState, next CallState, answerSDP, reason string) error
	// ListStaleUnanswered returns sessions still INITIATING or RINGING that
	// started before the cutoff.
	ListStaleUnanswered(ctx context.Context, cutoff time.Time) ([]CallSession, error)
	ListActive(ctx context.Context) ([]CallSession, error)
}
