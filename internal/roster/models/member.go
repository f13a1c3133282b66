package models

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	id "giftexchange/pkg/domain"
	dErrors "giftexchange/pkg/domain-errors"
)

// MaxNameLength bounds display names, in runes.
const MaxNameLength = 128

// Member is one person on the roster.
//
// Invariants:
//   - Name is non-empty, trimmed, at most MaxNameLength runes, no control characters
//   - Name is unique across the roster, compared by NameKey
//   - ID and CreatedAt are immutable after construction
type Member struct {
	ID        id.MemberID `json:"id"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func NewMember(memberID id.MemberID, name string, now time.Time) (*Member, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	return &Member{
		ID:        memberID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NameKey is the uniqueness key for a display name: NFKC-normalized and case
// folded, so "Dan", "DAN" and "ｄａｎ" collide.
func (m *Member) NameKey() string {
	return NameKey(m.Name)
}

// Rename validates and applies a new display name, returning the old one.
func (m *Member) Rename(name string, now time.Time) (string, error) {
	name, err := normalizeName(name)
	if err != nil {
		return "", err
	}
	old := m.Name
	m.Name = name
	m.UpdatedAt = now
	return old, nil
}

// NameKey folds a display name for uniqueness comparison.
func NameKey(name string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(name)))
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "member name cannot be empty")
	}
	if len([]rune(name)) > MaxNameLength {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "member name must be 128 characters or less")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", dErrors.New(dErrors.CodeInvariantViolation, "member name cannot contain control characters")
		}
	}
	return name, nil
}
