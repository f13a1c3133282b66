package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "giftexchange/pkg/domain-errors"
)

// TestParseMemberID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseMemberID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseMemberID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseMemberID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseMemberID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseMemberID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, MemberID(validUUID), id)
		assert.Equal(t, validUUID.String(), id.String())
	})
}

func TestParseMemberID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE members;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMemberID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMemberIDText(t *testing.T) {
	id := NewMemberID()
	text, err := id.MarshalText()
	require.NoError(t, err)

	var back MemberID
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, id, back)
	assert.False(t, id.IsZero())
	assert.True(t, MemberID{}.IsZero())
}

func TestParseCycleKey(t *testing.T) {
	t.Run("accepts a year", func(t *testing.T) {
		key, err := ParseCycleKey(" 2025 ")
		require.NoError(t, err)
		assert.Equal(t, CycleKey(2025), key)
		assert.Equal(t, "2025", key.String())
		assert.Equal(t, CycleKey(2026), key.Next())
	})

	for _, input := range []string{"", "abc", "0", "-4", "99999999"} {
		t.Run("rejects "+input, func(t *testing.T) {
			_, err := ParseCycleKey(input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}

	t.Run("derives key from calendar year", func(t *testing.T) {
		now := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, CycleKey(2026), CycleKeyForYear(now))
	})
}
