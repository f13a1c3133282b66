package cycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"giftexchange/internal/pairing/models"
	id "giftexchange/pkg/domain"
	"giftexchange/pkg/platform/sentinel"
	txcontext "giftexchange/pkg/platform/tx"
)

// PostgresStore persists history with assignments in a JSONB column. The
// cycle_key primary key enforces DuplicateKey across processes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, c *models.Cycle) error {
	raw, err := encodeAssignments(c.Assignments)
	if err != nil {
		return err
	}
	_, err = txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO pairing_cycles (cycle_key, assignments, created_at) VALUES ($1, $2, $3)`,
		int64(c.Key), string(raw), c.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("append cycle: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadRecent(ctx context.Context, n int) ([]models.Cycle, error) {
	if n <= 0 {
		return []models.Cycle{}, nil
	}
	return s.query(ctx, `
		SELECT cycle_key, assignments, created_at FROM pairing_cycles
		ORDER BY cycle_key DESC LIMIT $1`, n)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]models.Cycle, error) {
	return s.query(ctx, `
		SELECT cycle_key, assignments, created_at FROM pairing_cycles ORDER BY cycle_key`)
}

func (s *PostgresStore) FindByKey(ctx context.Context, key id.CycleKey) (*models.Cycle, error) {
	row := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT cycle_key, assignments, created_at FROM pairing_cycles WHERE cycle_key = $1`,
		int64(key),
	)
	return s.one(row, "find cycle by key")
}

func (s *PostgresStore) Latest(ctx context.Context) (*models.Cycle, error) {
	row := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT cycle_key, assignments, created_at FROM pairing_cycles
		ORDER BY cycle_key DESC LIMIT 1`)
	return s.one(row, "find latest cycle")
}

func (s *PostgresStore) one(row *sql.Row, op string) (*models.Cycle, error) {
	c, err := scanPostgres(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]models.Cycle, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	out := []models.Cycle{}
	for rows.Next() {
		c, err := scanPostgres(rows)
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

func scanPostgres(row scanner) (*models.Cycle, error) {
	var (
		key int64
		raw []byte
		c   models.Cycle
	)
	if err := row.Scan(&key, &raw, &c.CreatedAt); err != nil {
		return nil, err
	}
	assignments, err := decodeAssignments(raw)
	if err != nil {
		return nil, err
	}
	c.Key = id.CycleKey(key)
	c.Assignments = assignments
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
