package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/revcollect/internal/collect"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_StartComplete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry, err := st.Start(ctx, "amazon", []string{"a.json.gz", "b.json.gz"})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, StatusRunning, entry.Status)

	stats := collect.Stats{Scanned: 10, Duplicates: 2, Admitted: 8, Entities: 3, SourceEntries: 5, TargetEntries: 4}
	require.NoError(t, st.Complete(ctx, entry.ID, stats))

	got, err := st.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "amazon", got.Domain)
	assert.Equal(t, []string{"a.json.gz", "b.json.gz"}, got.Inputs)
	assert.Equal(t, StatusComplete, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.Before(got.StartedAt))
	require.NotNil(t, got.Stats)
	assert.Equal(t, stats, *got.Stats)
	assert.Empty(t, got.Error)
}

func TestSQLite_Fail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry, err := st.Start(ctx, "yelp", []string{"reviews.jsonl"})
	require.NoError(t, err)
	require.NoError(t, st.Fail(ctx, entry.ID, "source: malformed input"))

	got, err := st.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "source: malformed input", got.Error)
	assert.Nil(t, got.Stats)
}

func TestSQLite_GetNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_CompleteUnknownRun(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.Complete(context.Background(), "missing", collect.Stats{})
	assert.ErrorIs(t, err, ErrNotFound)
	err = st.Fail(context.Background(), "missing", "boom")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.Start(ctx, "amazon", []string{"a.json.gz"})
	require.NoError(t, err)
	require.NoError(t, st.Complete(ctx, a.ID, collect.Stats{Admitted: 1}))

	b, err := st.Start(ctx, "yelp", []string{"b.jsonl"})
	require.NoError(t, err)
	require.NoError(t, st.Fail(ctx, b.ID, "bad"))

	_, err = st.Start(ctx, "amazon", nil)
	require.NoError(t, err)

	all, err := st.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	amazon, err := st.List(ctx, Filter{Domain: "amazon"})
	require.NoError(t, err)
	assert.Len(t, amazon, 2)

	failed, err := st.List(ctx, Filter{Status: StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, b.ID, failed[0].ID)

	one, err := st.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestSQLite_ListEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)

	entries, err := st.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTrack_Complete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	want := &collect.Collection{Stats: collect.Stats{Scanned: 4, Admitted: 3}}
	coll, id, err := Track(ctx, st, "amazon", []string{"x.json.gz"}, func(context.Context) (*collect.Collection, error) {
		return want, nil
	})
	require.NoError(t, err)
	assert.Same(t, want, coll)
	require.NotEmpty(t, id)

	got, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, 3, got.Stats.Admitted)
}

func TestTrack_Fail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	coll, id, err := Track(ctx, st, "yelp", []string{"x.jsonl"}, func(context.Context) (*collect.Collection, error) {
		return nil, eris.New("source: truncated archive")
	})
	require.Error(t, err)
	assert.Nil(t, coll)

	got, getErr := st.Get(ctx, id)
	require.NoError(t, getErr)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "truncated archive")
}

func TestTrack_NilStore(t *testing.T) {
	called := false
	coll, id, err := Track(context.Background(), nil, "amazon", nil, func(context.Context) (*collect.Collection, error) {
		called = true
		return &collect.Collection{}, nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.NotNil(t, coll)
	assert.Empty(t, id)
}

func TestEntry_Duration(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry, err := st.Start(ctx, "amazon", nil)
	require.NoError(t, err)
	assert.Zero(t, entry.Duration())

	require.NoError(t, st.Complete(ctx, entry.ID, collect.Stats{}))
	got, err := st.Get(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.GreaterOrEqual(t, got.Duration(), time.Duration(0))
}
