package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/verdict/internal/engine"
	verdicterrors "github.com/felixgeelhaar/verdict/internal/errors"
	"github.com/felixgeelhaar/verdict/internal/metrics"
)

// openStores returns a SQLite store and, when VERDICT_TEST_POSTGRES_DSN is set, a Postgres store.
func openStores(t *testing.T) map[string]*SQLStore {
	t.Helper()

	stores := map[string]*SQLStore{}

	sqlite, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	stores[DriverSQLite] = sqlite

	if dsn := os.Getenv("VERDICT_TEST_POSTGRES_DSN"); dsn != "" {
		pg, err := Open(context.Background(), DriverPostgres, dsn)
		require.NoError(t, err)
		_, err = pg.db.Exec(`DELETE FROM executions`)
		require.NoError(t, err)
		t.Cleanup(func() { pg.Close() })
		stores[DriverPostgres] = pg
	}

	return stores
}

var t0 = time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC)

func sampleDescriptor(id string) engine.Descriptor {
	return engine.Descriptor{ID: id, Title: "Case " + id, Steps: "1. a\n2. b"}
}

func TestStore_Lifecycle(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			rec := NewRecord(sampleDescriptor("TC-1"), "alice", "abc123", t0)
			require.NoError(t, store.Create(ctx, rec))

			got, err := store.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusRunning, got.Status)
			assert.Nil(t, got.CompletedAt)
			assert.Empty(t, got.Log)
			assert.True(t, got.StartedAt.Equal(t0))

			rec.Apply(engine.Result{
				Verdict:        engine.Failed,
				ElapsedSeconds: 1.25,
				ErrorMessage:   "Step 2 failed: Element not found or assertion failed",
				Log: []engine.LogEntry{
					{Timestamp: t0, Message: "Starting simulated execution...", Type: engine.CategoryInfo},
				},
				Mode: engine.ModeFallback,
			}, t0.Add(2*time.Second))
			require.NoError(t, store.Complete(ctx, rec))

			got, err = store.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusFailed, got.Status)
			assert.True(t, got.Status.Done())
			assert.Equal(t, 1.25, got.ExecutionTime)
			assert.Equal(t, rec.ErrorMessage, got.ErrorMessage)
			assert.Equal(t, engine.ModeFallback, got.Mode)
			assert.False(t, got.AIUsed)
			require.Len(t, got.Log, 1)
			assert.Equal(t, "Starting simulated execution...", got.Log[0].Message)
			require.NotNil(t, got.CompletedAt)
			assert.True(t, got.CompletedAt.Equal(t0.Add(2*time.Second)))
		})
	}
}

func TestStore_AIRecord(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			rec := NewRecord(sampleDescriptor("TC-AI"), "", "fp", t0)
			require.NoError(t, store.Create(ctx, rec))
			rec.Apply(engine.Result{Verdict: engine.Passed, AIUsed: true, Provider: "anthropic", Mode: engine.ModeAI}, t0)
			require.NoError(t, store.Complete(ctx, rec))

			got, err := store.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusPassed, got.Status)
			assert.True(t, got.AIUsed)
			assert.Equal(t, "anthropic", got.AIProvider)
		})
	}
}

func TestStore_List(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var ids []string
			for i, caseID := range []string{"A", "B", "A", "A"} {
				rec := NewRecord(sampleDescriptor(caseID), "", "fp", t0.Add(time.Duration(i)*time.Minute))
				require.NoError(t, store.Create(ctx, rec))
				ids = append(ids, rec.ID)
			}

			all, err := store.List(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, all, 4)
			assert.Equal(t, ids[3], all[0].ID, "newest first")
			assert.Equal(t, ids[0], all[3].ID)

			onlyA, err := store.List(ctx, Filter{CaseID: "A", Limit: 2})
			require.NoError(t, err)
			require.Len(t, onlyA, 2)
			assert.Equal(t, ids[3], onlyA[0].ID)
			assert.Equal(t, ids[2], onlyA[1].ID)

			none, err := store.List(ctx, Filter{CaseID: "missing"})
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "does-not-exist")
			require.Error(t, err)
			assert.Equal(t, verdicterrors.ErrCodeHistoryNotFound, verdicterrors.CodeOf(err))

			rec := NewRecord(sampleDescriptor("X"), "", "fp", t0)
			err = store.Complete(ctx, rec)
			require.Error(t, err)
			assert.Equal(t, verdicterrors.ErrCodeHistoryWrite, verdicterrors.CodeOf(err))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestOpen_Drivers(t *testing.T) {
	_, err := Open(context.Background(), DriverNone, "")
	assert.Equal(t, verdicterrors.ErrCodeHistoryDisabled, verdicterrors.CodeOf(err))

	_, err = Open(context.Background(), "mysql", "dsn")
	assert.Equal(t, verdicterrors.ErrCodeHistoryOpen, verdicterrors.CodeOf(err))

	mem, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer mem.Close()
	assert.Equal(t, DriverSQLite, mem.Driver())
}

func TestStore_Metrics(t *testing.T) {
	_, m := metrics.NewRegistry()

	store, err := Open(context.Background(), DriverSQLite, ":memory:", WithMetrics(m))
	require.NoError(t, err)
	defer store.Close()

	rec := NewRecord(sampleDescriptor("M"), "", "fp", t0)
	require.NoError(t, store.Create(context.Background(), rec))
	require.Error(t, store.Complete(context.Background(), NewRecord(sampleDescriptor("N"), "", "fp", t0)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryWrites.WithLabelValues("sqlite", "create", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryWrites.WithLabelValues("sqlite", "complete", "false")))
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &SQLStore{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestRecord_Apply(t *testing.T) {
	rec := NewRecord(sampleDescriptor("TC-9"), "bob", "fp", t0)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "TC-9", rec.CaseID)
	assert.Equal(t, StatusRunning, rec.Status)
	assert.False(t, rec.Status.Done())

	rec.Apply(engine.Result{Verdict: engine.Passed, ElapsedSeconds: 0.5}, t0)
	assert.Equal(t, StatusPassed, rec.Status)
	assert.Equal(t, 0.5, rec.ExecutionTime)
	require.NotNil(t, rec.CompletedAt)
}
