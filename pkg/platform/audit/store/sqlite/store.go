package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	audit "giftexchange/pkg/platform/audit"
	txcontext "giftexchange/pkg/platform/tx"
)

// Store implements audit.Store on the SQLite audit_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_events (category, occurred_at, action, subject, reason, request_id, member_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(event.Category),
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.Action,
		event.Subject,
		event.Reason,
		event.RequestID,
		event.Count,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT category, occurred_at, action, subject, reason, request_id, member_count
		FROM audit_events
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e                  audit.Event
			category, occurred string
		)
		if err := rows.Scan(&category, &occurred, &e.Action, &e.Subject, &e.Reason, &e.RequestID, &e.Count); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, occurred); err != nil {
			return nil, fmt.Errorf("stored occurred_at %q: %w", occurred, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
