package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndQuery(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Append([]CycleRecord{
		{Seq: 1, Market: "BOOK-1", Return: 0.001, Volume: 5},
		{Seq: 1, Market: "BOOK-2", Return: -0.002, Volume: 3},
		{Seq: 2, Market: "BOOK-1", Return: 0.003, Volume: 7, Throttled: true},
	}))

	recs, err := s.RecentByMarket("BOOK-1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Newest first.
	assert.Equal(t, uint64(2), recs[0].Seq)
	assert.True(t, recs[0].Throttled)
	assert.Equal(t, uint64(1), recs[1].Seq)

	recs, err = s.RecentByMarket("BOOK-1", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, uint64(2), recs[0].Seq)
}

func TestAppendEmptyIsNoop(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Append(nil))
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.Append([]CycleRecord{
		{Seq: 1, Market: "BOOK-1", CreatedAt: old},
		{Seq: 2, Market: "BOOK-1", CreatedAt: time.Now()},
	}))

	require.NoError(t, s.Prune(time.Now().Add(-24*time.Hour)))
	recs, err := s.RecentByMarket("BOOK-1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, uint64(2), recs[0].Seq)
}
