package member

import (
	"database/sql"
	"fmt"
	"time"

	"giftexchange/internal/roster/models"
	id "giftexchange/pkg/domain"
	"giftexchange/pkg/platform/sentinel"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*models.Member, error) {
	var (
		rawID string
		m     models.Member
	)
	if err := row.Scan(&rawID, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	memberID, err := id.ParseMemberID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored member id %q: %w", rawID, err)
	}
	m.ID = memberID
	return &m, nil
}

// scanMemberText reads a row whose timestamps are stored as RFC 3339 text.
func scanMemberText(row scanner) (*models.Member, error) {
	var (
		rawID, created, updated string
		m                       models.Member
	)
	if err := row.Scan(&rawID, &m.Name, &created, &updated); err != nil {
		return nil, err
	}
	memberID, err := id.ParseMemberID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored member id %q: %w", rawID, err)
	}
	m.ID = memberID
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("stored created_at %q: %w", created, err)
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("stored updated_at %q: %w", updated, err)
	}
	return &m, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
