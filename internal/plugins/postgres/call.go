package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"

	"github.com/google/uuid"
)

type CallRepo struct {
	db *sql.DB
}

func NewCallRepo(db *sql.DB) *CallRepo {
	return &CallRepo{db: db}
}

/*
	-- Call sessions
	CREATE TABLE call_sessions (
		id         UUID PRIMARY KEY,
		caller_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		callee_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		call_type  TEXT NOT NULL,
		state      TEXT NOT NULL,
		reason     TEXT NOT NULL DEFAULT '',
		offer_sdp  TEXT NOT NULL DEFAULT '',
		answer_sdp TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		ended_at   TIMESTAMPTZ
	);
	CREATE INDEX call_sessions_state_idx ON call_sessions (state, started_at);
*/

func (r *CallRepo) Create(ctx context.Context, call *domain.CallSession) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
        INSERT INTO call_sessions (id, caller_id, callee_id, call_type, state, offer_sdp, started_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `,
		call.ID,
		call.CallerID,
		call.CalleeID,
		call.Type,
		call.State,
		call.OfferSDP,
		call.StartedAt,
	)
	return err
}

func (r *CallRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CallSession, error) {
	exec := GetExecutor(ctx, r.db)
	var c domain.CallSession
	err := exec.QueryRowContext(ctx, `
		SELECT id, caller_id, callee_id, call_type, state, reason, offer_sdp, answer_sdp, started_at, ended_at
		FROM call_sessions WHERE id = $1
	`, id).Scan(
		&c.ID,
		&c.CallerID,
		&c.CalleeID,
		&c.Type,
		&c.State,
		&c.Reason,
		&c.OfferSDP,
		&c.AnswerSDP,
		&c.StartedAt,
		&c.EndedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCallNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpdateState is the state-machine gate: the UPDATE only matches when the
// current state is one of the expected ones, so a lost race surfaces as
// ErrInvalidCallState instead of a double transition.
func (r *CallRepo) UpdateState(
	ctx context.Context,
	id uuid.UUID,
	expected []domain.CallState,
	next domain.CallState,
	answerSDP, reason string,
) error {
	exec := GetExecutor(ctx, r.db)
	states := make([]string, len(expected))
	for i, s := range expected {
		states[i] = string(s)
	}
	terminal := next.IsTerminal()
	result, err := exec.ExecContext(ctx, `
		UPDATE call_sessions
		SET state = $2,
		    answer_sdp = CASE WHEN $3 <> '' THEN $3 ELSE answer_sdp END,
		    reason = CASE WHEN $4 <> '' THEN $4 ELSE reason END,
		    ended_at = CASE WHEN $5 THEN now() ELSE ended_at END
		WHERE id = $1 AND state = ANY($6)
	`, id, next, answerSDP, reason, terminal, states)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a missing session from a wrong-state one
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidCallState
	}
	return nil
}

// ListStaleUnanswered matches INITIATING as well as RINGING: a session left
// in INITIATING by a failed ring transition must still age out of the active
// set.
func (r *CallRepo) ListStaleUnanswered(ctx context.Context, cutoff time.Time) ([]domain.CallSession, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, caller_id, callee_id, call_type, state, reason, offer_sdp, answer_sdp, started_at, ended_at
		FROM call_sessions
		WHERE state IN ('INITIATING', 'RINGING') AND started_at < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCalls(rows)
}

func (r *CallRepo) ListActive(ctx context.Context) ([]domain.CallSession, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, caller_id, callee_id, call_type, state, reason, offer_sdp, answer_sdp, started_at, ended_at
		FROM call_sessions
		WHERE state NOT IN ('ENDED', 'FAILED')
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCalls(rows)
}

func scanCalls(rows *sql.Rows) ([]domain.CallSession, error) {
	var calls []domain.CallSession
	for rows.Next() {
		var c domain.CallSession
		if err := rows.Scan(
			&c.ID,
			&c.CallerID,
			&c.CalleeID,
			&c.Type,
			&c.State,
			&c.Reason,
			&c.OfferSDP,
			&c.AnswerSDP,
			&c.StartedAt,
			&c.EndedAt,
		); err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
