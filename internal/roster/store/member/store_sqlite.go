package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"giftexchange/internal/roster/models"
	id "giftexchange/pkg/domain"
	"giftexchange/pkg/platform/sentinel"
	txcontext "giftexchange/pkg/platform/tx"
)

// SQLiteStore persists the roster in a local SQLite file, the default for a
// single-household deployment. Members are listed in rowid (insertion) order.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Create(ctx context.Context, m *models.Member) error {
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO members (id, name, name_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID.String(), m.Name, m.NameKey(), formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	row := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM members WHERE id = ?`,
		memberID.String(),
	)
	m, err := scanMemberText(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find member by id: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]*models.Member, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM members ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*models.Member
	for rows.Next() {
		m, err := scanMemberText(rows)
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

func (s *SQLiteStore) Update(ctx context.Context, m *models.Member) error {
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		UPDATE members SET name = ?, name_key = ?, updated_at = ? WHERE id = ?`,
		m.Name, m.NameKey(), formatTime(m.UpdatedAt), m.ID.String(),
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update member: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) Delete(ctx context.Context, memberID id.MemberID) error {
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `DELETE FROM members WHERE id = ?`, memberID.String())
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

func isSQLiteConstraint(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
