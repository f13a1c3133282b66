package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exchangeService "giftexchange/internal/exchange/service"
	"giftexchange/internal/platform/config"
	dErrors "giftexchange/pkg/domain-errors"
)

func testConfig(store string) *config.Config {
	return &config.Config{
		Store:        store,
		MaxAttempts:  1000,
		HistoryDepth: 3,
		MinRoster:    5,
		AuditBuffer:  16,
	}
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func seed(t *testing.T, a *App, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := a.Roster.Create(context.Background(), name)
		require.NoError(t, err)
	}
}

func TestNewWithMemoryStore(t *testing.T) {
	a := newApp(t, testConfig(config.StoreMemory))
	seed(t, a, "Brenden", "Carol Ann", "D'Andre", "Pippin", "Bear")

	res, err := a.Exchange.Generate(context.Background(), exchangeService.GenerateRequest{})
	require.NoError(t, err)
	assert.Len(t, res.Cycle.Assignments, 5)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cycles", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewWithSQLiteStorePersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(config.StoreSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "giftexchange.db")

	first, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	seed(t, first, "Mack", "Dan", "Lara", "Sameera", "Piper")
	drawn, err := first.Exchange.Generate(context.Background(), exchangeService.GenerateRequest{})
	require.NoError(t, err)
	require.NoError(t, first.Close(context.Background()))

	second := newApp(t, cfg)
	cycles, err := second.Exchange.ListCycles(context.Background())
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, drawn.Cycle.Key, cycles[0].Key)

	events, err := second.Audit.List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	cfg := testConfig(config.StoreSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "giftexchange.db")
	a := newApp(t, cfg)
	ctx := context.Background()

	err := a.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := a.Roster.Create(ctx, "Kyle"); err != nil {
			return err
		}
		_, err := a.Roster.Create(ctx, "kyle")
		return err
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	n, err := a.Roster.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewRejectsUnknownStore(t *testing.T) {
	_, err := New(context.Background(), testConfig("etcd"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
