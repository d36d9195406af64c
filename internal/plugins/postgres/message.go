package postgres

import (
	"context"
	"database/sql"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"

	"github.com/google/uuid"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

/*
	-- Messages; seq is the pagination tiebreaker for equal timestamps
	CREATE TABLE messages (
		id          UUID PRIMARY KEY,
		sender_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		receiver_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content     TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'PENDING',
		seq         BIGSERIAL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX messages_pair_idx ON messages (sender_id, receiver_id, created_at DESC, seq DESC);
	CREATE INDEX messages_pending_idx ON messages (receiver_id) WHERE status = 'PENDING';
*/

func (r *MessageRepo) Save(ctx context.Context, msg *domain.Message) (int64, error) {
	if msg.SenderID == "" || msg.ReceiverID == "" {
		return 0, domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	var seq int64
	err := exec.QueryRowContext(ctx, `
        INSERT INTO messages (id, sender_id, receiver_id, content, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING seq
    `,
		msg.ID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Content,
		msg.Status,
		msg.CreatedAt,
	).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// MarkDelivered only moves PENDING forward; DELIVERED and READ rows are left
// alone so the transition stays monotonic under concurrent delivery passes.
func (r *MessageRepo) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE messages SET status = 'DELIVERED'
		WHERE id = $1 AND status = 'PENDING'
	`, id)
	return err
}

func (r *MessageRepo) MarkConversationRead(ctx context.Context, sender, receiver string) (int64, error) {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE messages SET status = 'READ'
		WHERE sender_id = $1 AND receiver_id = $2 AND status <> 'READ'
	`, sender, receiver)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListConversation fetches size+1 rows to derive hasMore without a second
// count query.
func (r *MessageRepo) ListConversation(ctx context.Context, a, b string, page, size int) ([]domain.Message, bool, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, content, status, seq, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at DESC, seq DESC
		LIMIT $3 OFFSET $4
	`, a, b, size+1, page*size)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Status, &m.Seq, &m.CreatedAt); err != nil {
			return nil, false, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	hasMore := len(msgs) > size
	if hasMore {
		msgs = msgs[:size]
	}
	return msgs, hasMore, nil
}

func (r *MessageRepo) ListPendingForReceiver(ctx context.Context, receiver string) ([]domain.Message, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, content, status, seq, created_at
		FROM messages
		WHERE receiver_id = $1 AND status = 'PENDING'
		ORDER BY created_at ASC, seq ASC
	`, receiver)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Status, &m.Seq, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
