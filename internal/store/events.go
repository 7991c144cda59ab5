package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stockade/internal/ids"
	"stockade/internal/jail"
)

// Record appends a confinement event to the journal.
func (s *Store) Record(ctx context.Context, e jail.Event) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO confinement_events (id, kind, user_id, owner, facility, session_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.ID, string(e.Kind), e.UserID, e.Owner, e.Facility, e.SessionID, e.Detail, e.At)
	return err
}

// ListEvents returns a user's events, newest first.
func (s *Store) ListEvents(ctx context.Context, userID uuid.UUID, limit int) ([]jail.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, kind, user_id, owner, facility, session_id, detail, created_at
		FROM confinement_events
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []jail.Event{}
	for rows.Next() {
		var e jail.Event
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.UserID, &e.Owner, &e.Facility, &e.SessionID, &e.Detail, &e.At); err != nil {
			return nil, err
		}
		e.Kind = jail.EventKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}
