package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "giftexchange/pkg/domain"
	dErrors "giftexchange/pkg/domain-errors"
)

func TestNewMember(t *testing.T) {
	now := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

	t.Run("trims and keeps name", func(t *testing.T) {
		m, err := NewMember(id.NewMemberID(), "  Carol Ann ", now)
		require.NoError(t, err)
		assert.Equal(t, "Carol Ann", m.Name)
		assert.Equal(t, now, m.CreatedAt)
		assert.Equal(t, now, m.UpdatedAt)
	})

	for name, input := range map[string]string{
		"empty":         "",
		"whitespace":    "   ",
		"too long":      strings.Repeat("x", MaxNameLength+1),
		"control chars": "Pip\x00pin",
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := NewMember(id.NewMemberID(), input, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}
}

func TestRename(t *testing.T) {
	created := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)
	m, err := NewMember(id.NewMemberID(), "Robbie", created)
	require.NoError(t, err)

	old, err := m.Rename(" John ", later)
	require.NoError(t, err)
	assert.Equal(t, "Robbie", old)
	assert.Equal(t, "John", m.Name)
	assert.Equal(t, created, m.CreatedAt)
	assert.Equal(t, later, m.UpdatedAt)

	_, err = m.Rename("", later)
	require.Error(t, err)
	assert.Equal(t, "John", m.Name)
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, NameKey("Dan"), NameKey("DAN"))
	assert.Equal(t, NameKey("Dan"), NameKey(" dan "))
	assert.Equal(t, NameKey("Dan"), NameKey("ｄａｎ"))
	assert.NotEqual(t, NameKey("Dan"), NameKey("Dana"))
	assert.Equal(t, NameKey("D'Andre"), NameKey("d'andre"))
}
