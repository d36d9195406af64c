package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"
)

type ContactRepo struct {
	db *sql.DB
}

func NewContactRepo(db *sql.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

/*
	-- Contacts (directed edges; always created in mirrored pairs)
	CREATE TABLE contacts (
		owner_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		contact_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		last_message_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (owner_id, contact_id)
	);
*/

// EnsureBidirectional inserts both directed edges; existing edges are left
// untouched so the call is idempotent.
func (r *ContactRepo) EnsureBidirectional(ctx context.Context, a, b string) error {
	if a == "" || b == "" {
		return domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO contacts (owner_id, contact_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT (owner_id, contact_id) DO NOTHING
	`, a, b)
	return err
}

func (r *ContactRepo) IsContact(ctx context.Context, owner, contact string) (bool, error) {
	exec := GetExecutor(ctx, r.db)
	var exists bool
	err := exec.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM contacts WHERE owner_id = $1 AND contact_id = $2
		)
	`, owner, contact).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// TouchLastActivity updates both mirrored edges; missing edges are a silent
// no-op, which does not normally occur after EnsureBidirectional has run.
func (r *ContactRepo) TouchLastActivity(ctx context.Context, a, b string, when time.Time) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE contacts
		SET last_message_at = $3
		WHERE (owner_id = $1 AND contact_id = $2)
		   OR (owner_id = $2 AND contact_id = $1)
	`, a, b, when)
	return err
}

// ListPreviews is the read-heavy inbox fan-out: each edge joined with the
// most recent message of the pair and the count of unread inbound messages.
func (r *ContactRepo) ListPreviews(ctx context.Context, owner string) ([]domain.ContactPreview, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT c.contact_id,
		       u.display_name,
		       u.avatar_url,
		       c.last_message_at,
		       COALESCE(lm.content, ''),
		       COALESCE(un.unread, 0)
		FROM contacts c
		JOIN users u ON u.id = c.contact_id
		LEFT JOIN LATERAL (
			SELECT m.content
			FROM messages m
			WHERE (m.sender_id = c.owner_id AND m.receiver_id = c.contact_id)
			   OR (m.sender_id = c.contact_id AND m.receiver_id = c.owner_id)
			ORDER BY m.created_at DESC, m.seq DESC
			LIMIT 1
		) lm ON true
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread
			FROM messages m
			WHERE m.sender_id = c.contact_id
			  AND m.receiver_id = c.owner_id
			  AND m.status <> 'READ'
		) un ON true
		WHERE c.owner_id = $1
		ORDER BY c.last_message_at DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var previews []domain.ContactPreview
	for rows.Next() {
		var p domain.ContactPreview
		if err := rows.Scan(
			&p.ContactID,
			&p.DisplayName,
			&p.AvatarURL,
			&p.LastMessageAt,
			&p.LastMessage,
			&p.UnreadCount,
		); err != nil {
			return nil, err
		}
		previews = append(previews, p)
	}
	return previews, rows.Err()
}
