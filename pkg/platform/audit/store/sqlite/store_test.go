package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftexchange/internal/platform/database"
	audit "giftexchange/pkg/platform/audit"
)

func TestStoreAppendAndList(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := New(db)
	at := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, audit.Event{
		Category:  audit.CategoryRoster,
		Timestamp: at,
		Action:    string(audit.EventMemberCreated),
		Subject:   "member-1",
	}))
	require.NoError(t, store.Append(ctx, audit.Event{
		Category:  audit.CategoryExchange,
		Timestamp: at.Add(time.Minute),
		Action:    string(audit.EventCycleGenerated),
		Subject:   "2025",
		Count:     5,
	}))

	events, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(audit.EventCycleGenerated), events[0].Action)
	assert.Equal(t, 5, events[0].Count)
	assert.True(t, at.Equal(events[1].Timestamp))
}
