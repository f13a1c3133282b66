package cycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"giftexchange/internal/pairing/models"
	id "giftexchange/pkg/domain"
	"giftexchange/pkg/platform/sentinel"
	txcontext "giftexchange/pkg/platform/tx"
)

// SQLiteStore persists history in the pairing_cycles table. Assignments are
// stored as a JSON array.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Append(ctx context.Context, c *models.Cycle) error {
	raw, err := encodeAssignments(c.Assignments)
	if err != nil {
		return err
	}
	_, err = txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO pairing_cycles (cycle_key, assignments, created_at) VALUES (?, ?, ?)`,
		int64(c.Key), string(raw), c.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("append cycle: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadRecent(ctx context.Context, n int) ([]models.Cycle, error) {
	if n <= 0 {
		return []models.Cycle{}, nil
	}
	return s.query(ctx, `
		SELECT cycle_key, assignments, created_at FROM pairing_cycles
		ORDER BY cycle_key DESC LIMIT ?`, n)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]models.Cycle, error) {
	return s.query(ctx, `
		SELECT cycle_key, assignments, created_at FROM pairing_cycles ORDER BY cycle_key`)
}

func (s *SQLiteStore) FindByKey(ctx context.Context, key id.CycleKey) (*models.Cycle, error) {
	row := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT cycle_key, assignments, created_at FROM pairing_cycles WHERE cycle_key = ?`,
		int64(key),
	)
	return s.one(row, "find cycle by key")
}

func (s *SQLiteStore) Latest(ctx context.Context) (*models.Cycle, error) {
	row := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT cycle_key, assignments, created_at FROM pairing_cycles
		ORDER BY cycle_key DESC LIMIT 1`)
	return s.one(row, "find latest cycle")
}

func (s *SQLiteStore) one(row *sql.Row, op string) (*models.Cycle, error) {
	c, err := scanSQLite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]models.Cycle, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	out := []models.Cycle{}
	for rows.Next() {
		c, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	return out, nil
}

func scanSQLite(row scanner) (*models.Cycle, error) {
	var (
		key       int64
		raw       string
		createdAt string
	)
	if err := row.Scan(&key, &raw, &createdAt); err != nil {
		return nil, err
	}
	assignments, err := decodeAssignments([]byte(raw))
	if err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &models.Cycle{Key: id.CycleKey(key), Assignments: assignments, CreatedAt: ts}, nil
}
