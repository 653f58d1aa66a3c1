// Package sim generates synthetic snapshots for local runs and tests:
// random-walk mid prices expanded into plausible books, trades and
// account state, with no exchange involved.
package sim

import (
	"fmt"
	"math/rand"
	"time"

	"quote-engine-go/internal/engine"
	"quote-engine-go/market"
)

// Config shapes the synthetic markets.
type Config struct {
	Markets   int
	StartMid  float64
	StepSigma float64 // per-cycle relative mid move
	Depth     int     // levels per side
	LevelQty  float64
	Deadline  time.Duration // per-snapshot processing budget
}

// Generator produces a snapshot stream.
type Generator struct {
	cfg  Config
	rng  *rand.Rand
	mids []float64
	seq  uint64
}

// New creates a generator with a fixed seed for reproducible runs.
func New(cfg Config, seed int64) *Generator {
	if cfg.Markets <= 0 {
		cfg.Markets = 1
	}
	if cfg.StartMid <= 0 {
		cfg.StartMid = 100
	}
	if cfg.StepSigma <= 0 {
		cfg.StepSigma = 0.0005
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 5
	}
	if cfg.LevelQty <= 0 {
		cfg.LevelQty = 2
	}
	g := &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
	for i := 0; i < cfg.Markets; i++ {
		g.mids = append(g.mids, cfg.StartMid*(1+0.1*g.rng.Float64()))
	}
	return g
}

// Next advances every market one step and returns the snapshot.
func (g *Generator) Next(now time.Time) engine.Snapshot {
	g.seq++
	snap := engine.Snapshot{Seq: g.seq, ReceivedAt: now}
	if g.cfg.Deadline > 0 {
		snap.Deadline = now.Add(g.cfg.Deadline)
	}
	for i := range g.mids {
		g.mids[i] *= 1 + g.cfg.StepSigma*g.rng.NormFloat64()
		snap.Markets = append(snap.Markets, g.update(i, now))
	}
	return snap
}

func (g *Generator) update(i int, now time.Time) engine.MarketUpdate {
	mid := g.mids[i]
	tick := mid / 10000.0
	half := 2 * tick

	book := market.Book{
		ID:          fmt.Sprintf("SIM-%d", i),
		TickSize:    tick,
		StepSize:    0.001,
		MinQty:      0.01,
		MinNotional: mid * 0.01,
		UpdatedAt:   now,
	}
	for d := 0; d < g.cfg.Depth; d++ {
		qty := g.cfg.LevelQty * (0.5 + g.rng.Float64())
		book.Bids = append(book.Bids, market.Level{
			Price:    mid - half - float64(d)*tick,
			Quantity: qty,
		})
		qty = g.cfg.LevelQty * (0.5 + g.rng.Float64())
		book.Asks = append(book.Asks, market.Level{
			Price:    mid + half + float64(d)*tick,
			Quantity: qty,
		})
	}
	for t := 0; t < 3; t++ {
		side := market.TradeBuy
		if g.rng.Float64() < 0.5 {
			side = market.TradeSell
		}
		book.Trades = append(book.Trades, market.Trade{
			Price:    mid * (1 + 0.0001*g.rng.NormFloat64()),
			Quantity: 0.1 + g.rng.Float64(),
			Side:     side,
			Ts:       now,
		})
	}

	return engine.MarketUpdate{
		Book: book,
		// Borrowed base: flat position with inventory available to sell.
		Account: market.Account{
			Base:  market.Balance{Free: 5, Loan: 5},
			Quote: market.Balance{Free: mid * 100},
		},
	}
}
