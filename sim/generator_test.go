package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorProducesTwoSidedBooks(t *testing.T) {
	g := New(Config{Markets: 3, Depth: 4}, 1)
	now := time.Unix(1_700_000_000, 0)

	snap := g.Next(now)
	assert.Equal(t, uint64(1), snap.Seq)
	require.Len(t, snap.Markets, 3)

	for _, u := range snap.Markets {
		b := u.Book
		require.Len(t, b.Bids, 4)
		require.Len(t, b.Asks, 4)
		assert.Less(t, b.Bids[0].Price, b.Asks[0].Price)
		// Bids descending, asks ascending.
		for i := 1; i < 4; i++ {
			assert.Less(t, b.Bids[i].Price, b.Bids[i-1].Price)
			assert.Greater(t, b.Asks[i].Price, b.Asks[i-1].Price)
		}
		assert.Positive(t, b.TickSize)
		assert.NotEmpty(t, b.Trades)
	}
}

func TestGeneratorSequencesAndWalks(t *testing.T) {
	g := New(Config{Markets: 1}, 7)
	now := time.Unix(1_700_000_000, 0)

	first := g.Next(now)
	second := g.Next(now.Add(time.Second))
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)

	m1 := (first.Markets[0].Book.Bids[0].Price + first.Markets[0].Book.Asks[0].Price) / 2
	m2 := (second.Markets[0].Book.Bids[0].Price + second.Markets[0].Book.Asks[0].Price) / 2
	assert.NotEqual(t, m1, m2)
	// Moves stay small at the default sigma.
	assert.InDelta(t, m1, m2, m1*0.01)
}

func TestGeneratorDeterministicSeed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := New(Config{Markets: 2}, 42).Next(now)
	b := New(Config{Markets: 2}, 42).Next(now)
	assert.Equal(t, a, b)
}
