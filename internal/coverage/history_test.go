package coverage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testpilot/internal/types"
)

func snapWithLines(lines float64) *types.CoverageSnapshot {
	return &types.CoverageSnapshot{Lines: lines}
}

func TestHistoryRecordAndAccess(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(10, nil)

	assert.Equal(t, 0, h.Len())
	assert.Nil(t, h.Latest())
	assert.Nil(t, h.Previous())

	require.NoError(t, h.Record(ctx, snapWithLines(70)))
	require.NoError(t, h.Record(ctx, snapWithLines(75)))
	require.NoError(t, h.Record(ctx, snapWithLines(80)))

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 80.0, h.Latest().Snapshot.Lines)
	assert.Equal(t, 75.0, h.Previous().Snapshot.Lines)

	entries := h.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, 70.0, entries[0].Snapshot.Lines)
}

func TestHistoryRejectsNilSnapshot(t *testing.T) {
	h := NewHistory(10, nil)
	assert.Error(t, h.Record(context.Background(), nil))
	assert.Equal(t, 0, h.Len())
}

func TestHistoryEvictsOldestAtCapacity(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(50, nil)

	for i := 0; i < 55; i++ {
		require.NoError(t, h.Record(ctx, snapWithLines(float64(i))))
	}

	assert.Equal(t, 50, h.Len())
	entries := h.Entries()
	// The five oldest entries are gone; order is preserved.
	assert.Equal(t, 5.0, entries[0].Snapshot.Lines)
	assert.Equal(t, 54.0, entries[len(entries)-1].Snapshot.Lines)
}

func TestHistoryCurrentTrend(t *testing.T) {
	ctx := context.Background()

	t.Run("fewer than two entries is stable", func(t *testing.T) {
		h := NewHistory(10, nil)
		assert.Equal(t, TrendStable, h.CurrentTrend())
		require.NoError(t, h.Record(ctx, snapWithLines(80)))
		assert.Equal(t, TrendStable, h.CurrentTrend())
	})

	t.Run("uses the two most recent entries", func(t *testing.T) {
		h := NewHistory(10, nil)
		require.NoError(t, h.Record(ctx, snapWithLines(90)))
		require.NoError(t, h.Record(ctx, snapWithLines(70)))
		require.NoError(t, h.Record(ctx, snapWithLines(75)))
		assert.Equal(t, TrendImproving, h.CurrentTrend())
	})
}

// fakePersister records calls and serves canned entries.
type fakePersister struct {
	appended []Entry
	loaded   []Entry
	failLoad bool
}

func (f *fakePersister) AppendEntry(_ context.Context, entry Entry, _ int) error {
	f.appended = append(f.appended, entry)
	return nil
}

func (f *fakePersister) LoadEntries(_ context.Context, limit int) ([]Entry, error) {
	if f.failLoad {
		return nil, fmt.Errorf("database locked")
	}
	if len(f.loaded) > limit {
		return f.loaded[len(f.loaded)-limit:], nil
	}
	return f.loaded, nil
}

func TestHistoryLoadHydrates(t *testing.T) {
	store := &fakePersister{loaded: []Entry{
		{Snapshot: types.CoverageSnapshot{Lines: 60}},
		{Snapshot: types.CoverageSnapshot{Lines: 65}},
	}}
	h := NewHistory(10, store)

	require.NoError(t, h.Load(context.Background()))
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, 65.0, h.Latest().Snapshot.Lines)
}

func TestHistoryLoadError(t *testing.T) {
	h := NewHistory(10, &fakePersister{failLoad: true})
	err := h.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading coverage history")
}

func TestHistoryRecordPersists(t *testing.T) {
	store := &fakePersister{}
	h := NewHistory(10, store)

	require.NoError(t, h.Record(context.Background(), snapWithLines(80)))
	require.Len(t, store.appended, 1)
	assert.Equal(t, 80.0, store.appended[0].Snapshot.Lines)
}
