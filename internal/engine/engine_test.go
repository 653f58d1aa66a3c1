package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-engine-go/market"
	"quote-engine-go/metrics"
	"quote-engine-go/order"
	"quote-engine-go/risk"
	"quote-engine-go/strategy"
)

func testEngine(workers int) *Engine {
	return New(
		Config{
			Workers:      workers,
			VolWindow:    16,
			Flow:         market.FlowThresholds{Flow: 0.6, Divergence: 0.5},
			MaxInventory: 10,
		},
		Components{
			Calculator: strategy.NewCalculator(strategy.Params{
				BaseSpreadBps:       10,
				MaxSpreadMultiplier: 3,
				VolRef:              0.01,
				BaseOrderSize:       1,
				Levels:              1,
				LevelSizeDecay:      1,
				MaxInventory:        10,
				SoftInventoryBand:   0.8,
			}),
			Orders: order.NewManager(order.Config{
				PriceToleranceBps: 2,
				MaxOpenOrders:     4,
				BaseExpiry:        10 * time.Second,
				MinExpiry:         time.Second,
				MaxExpiry:         time.Minute,
				VolRef:            0.01,
				MaxInventory:      10,
			}, nil),
			Risk: risk.NewController(risk.Config{
				Window:         10,
				MinSamples:     3,
				RecoveryCycles: 2,
				MaxSpreadMult:  3,
				SizeFloor:      0.2,
			}, nil),
		},
	)
}

func testUpdate(id string, mid float64) MarketUpdate {
	return MarketUpdate{
		Book: market.Book{
			ID:          id,
			Bids:        []market.Level{{Price: mid - 0.05, Quantity: 2}},
			Asks:        []market.Level{{Price: mid + 0.05, Quantity: 2}},
			TickSize:    0.01,
			StepSize:    0.001,
			MinQty:      0.01,
			MinNotional: 1,
		},
		// Borrowed base keeps the net position flat while funding sells.
		Account: market.Account{
			Base:  market.Balance{Free: 5, Loan: 5},
			Quote: market.Balance{Free: 100000},
		},
	}
}

func testSnapshot(seq uint64, n int) Snapshot {
	snap := Snapshot{Seq: seq, ReceivedAt: time.Unix(1_700_000_000, 0)}
	for i := 0; i < n; i++ {
		snap.Markets = append(snap.Markets, testUpdate(fmt.Sprintf("BOOK-%d", i), 100))
	}
	return snap
}

func TestProcessEmitsQuotes(t *testing.T) {
	e := testEngine(4)
	resp := e.Process(context.Background(), testSnapshot(1, 5))

	assert.Equal(t, uint64(1), resp.Seq)
	assert.False(t, resp.Truncated)
	assert.Empty(t, resp.Degraded)
	// One bid and one ask per market.
	assert.Len(t, resp.Batch.Places, 10)
	assert.Empty(t, resp.Batch.Cancels)

	for _, p := range resp.Batch.Places {
		if p.Side == order.Buy {
			assert.Less(t, p.Price, 100.0)
		} else {
			assert.Greater(t, p.Price, 100.0)
		}
	}
}

func TestProcessIsolatesMalformedMarket(t *testing.T) {
	e := testEngine(2)
	snap := testSnapshot(1, 3)
	// Empty book: no levels at all.
	snap.Markets[1].Book.Bids = nil
	snap.Markets[1].Book.Asks = nil

	resp := e.Process(context.Background(), snap)
	require.Len(t, resp.Degraded, 1)
	assert.Equal(t, "BOOK-1", resp.Degraded[0])
	// The healthy markets still quote both sides.
	assert.Len(t, resp.Batch.Places, 4)
}

func TestProcessDeadlineTruncates(t *testing.T) {
	e := testEngine(1)
	snap := testSnapshot(1, 50)
	snap.Deadline = time.Now().Add(-time.Second) // already expired

	resp := e.Process(context.Background(), snap)
	assert.True(t, resp.Truncated)
	assert.Empty(t, resp.Batch.Places)
}

func TestProcessIdempotentAcrossReplay(t *testing.T) {
	e := testEngine(2)
	snap := testSnapshot(1, 1)

	first := e.Process(context.Background(), snap)
	require.NotEmpty(t, first.Batch.Places)

	// Feed the emitted orders back as resting state: nothing to do.
	for _, p := range first.Batch.Places {
		snap.Markets[0].Orders = append(snap.Markets[0].Orders, order.Open{
			ID: p.ClientID, Market: p.Market, Side: p.Side,
			Price: p.Price, Quantity: p.Quantity, CreatedAt: snap.ReceivedAt,
		})
	}
	second := e.Process(context.Background(), snap)
	assert.Empty(t, second.Batch.Places)
	assert.Empty(t, second.Batch.Cancels)
}

func TestRunSupersedesStaleCycle(t *testing.T) {
	e := testEngine(2)
	in := make(chan Snapshot, 3)
	out := make(chan Response, 3)

	// Two snapshots queued before the engine starts: the first is stale
	// on arrival and must be skipped.
	in <- testSnapshot(1, 2)
	in <- testSnapshot(2, 2)
	close(in)

	require.NoError(t, e.Run(context.Background(), in, out))
	close(out)

	var seqs []uint64
	for r := range out {
		seqs = append(seqs, r.Seq)
	}
	require.Len(t, seqs, 1)
	assert.Equal(t, uint64(2), seqs[0])
}

// Placement and cancel counters follow delivered responses: Process on
// its own leaves them untouched, Run adds exactly the delivered batch.
func TestOrderCountersTrackDeliveredResponses(t *testing.T) {
	e := testEngine(2)

	placedBefore := testutil.ToFloat64(metrics.OrdersPlaced)
	resp := e.Process(context.Background(), testSnapshot(1, 2))
	require.NotEmpty(t, resp.Batch.Places)
	assert.Equal(t, placedBefore, testutil.ToFloat64(metrics.OrdersPlaced))

	in := make(chan Snapshot, 1)
	out := make(chan Response, 1)
	in <- testSnapshot(2, 2)
	close(in)

	require.NoError(t, e.Run(context.Background(), in, out))
	delivered := <-out
	assert.Equal(t, placedBefore+float64(len(delivered.Batch.Places)),
		testutil.ToFloat64(metrics.OrdersPlaced))
}

func TestRunStopsOnCancel(t *testing.T) {
	e := testEngine(2)
	in := make(chan Snapshot)
	out := make(chan Response, 1)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx, in, out) }()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}
