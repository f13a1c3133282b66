package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "giftexchange/pkg/domain-errors"
)

// MemberID identifies a roster member. It is stable across cycles and stays
// meaningful in history after the member is deleted.
type MemberID uuid.UUID

// NewMemberID returns a fresh random MemberID.
func NewMemberID() MemberID {
	return MemberID(uuid.New())
}

// ParseMemberID constructs a MemberID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed, or the
// nil UUID.
func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return MemberID{}, err
	}
	return MemberID(u), nil
}

func (id MemberID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the nil UUID.
func (id MemberID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id MemberID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *MemberID) UnmarshalText(b []byte) error {
	parsed, err := ParseMemberID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid id format")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid id format")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be nil")
	}
	return u, nil
}

// CycleKey identifies one run of the exchange, normally a calendar year.
// Cycles are ordered by key; a larger key is more recent.
type CycleKey int64

// MaxCycleKey bounds keys accepted from external input.
const MaxCycleKey CycleKey = 1_000_000

// ParseCycleKey constructs a CycleKey from external input.
//
// Errors: returns CodeInvalidInput when the value is not a positive integer
// no larger than MaxCycleKey.
func ParseCycleKey(s string) (CycleKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "cycle key cannot be empty")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "cycle key must be an integer")
	}
	return NewCycleKey(n)
}

// NewCycleKey validates n as a CycleKey.
func NewCycleKey(n int64) (CycleKey, error) {
	if n <= 0 || CycleKey(n) > MaxCycleKey {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "cycle key out of range")
	}
	return CycleKey(n), nil
}

// CycleKeyForYear returns the key for the calendar year containing t.
func CycleKeyForYear(t time.Time) CycleKey {
	return CycleKey(t.Year())
}

// Next returns the key following k.
func (k CycleKey) Next() CycleKey {
	return k + 1
}

func (k CycleKey) String() string {
	return strconv.FormatInt(int64(k), 10)
}
