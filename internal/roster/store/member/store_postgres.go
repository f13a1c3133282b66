package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"giftexchange/internal/roster/models"
	id "giftexchange/pkg/domain"
	"giftexchange/pkg/platform/sentinel"
	txcontext "giftexchange/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists the roster in PostgreSQL. Name uniqueness is enforced
// by the unique index on members.name_key, so concurrent inserts of the same
// name resolve to exactly one winner.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed member store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, m *models.Member) error {
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO members (id, name, name_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID.String(), m.Name, m.NameKey(), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	row := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM members WHERE id = $1`,
		memberID.String(),
	)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find member by id: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Member, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM members ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, m *models.Member) error {
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		UPDATE members SET name = $2, name_key = $3, updated_at = $4 WHERE id = $1`,
		m.ID.String(), m.Name, m.NameKey(), m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update member: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, memberID id.MemberID) error {
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `DELETE FROM members WHERE id = $1`, memberID.String())
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
