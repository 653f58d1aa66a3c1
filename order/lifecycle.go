package order

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quote-engine-go/inventory"
	"quote-engine-go/market"
	"quote-engine-go/strategy"
)

// Config tunes the lifecycle manager.
type Config struct {
	// PriceToleranceBps within which a resting order is considered to
	// already represent a target quote and is left alone.
	PriceToleranceBps float64
	// MaxOrderAgeFraction of the current expiry after which a resting
	// order is refreshed even if its price still matches.
	MaxOrderAgeFraction float64
	// MaxOpenOrders per market, both sides counted together.
	MaxOpenOrders int
	// BaseExpiry is the GTT lifetime at reference volatility. The
	// effective expiry shrinks as volatility rises, clamped to
	// [MinExpiry, MaxExpiry].
	BaseExpiry time.Duration
	MinExpiry  time.Duration
	MaxExpiry  time.Duration
	// VolRef normalizes volatility for the expiry adjustment.
	VolRef float64
	// MaxInventory bounds the worst-case position if every resting and
	// new order on the accumulating side fills.
	MaxInventory float64
	// STP is attached to every placement.
	STP STPPolicy
}

// CycleInput is everything the manager needs for one market in one cycle.
type CycleInput struct {
	Market      string
	Plan        strategy.Plan
	Open        []Open
	Account     market.Account
	Position    inventory.Position
	Constraints Constraints
	Volatility  float64
	Now         time.Time
}

// Diagnostics counts per-cycle degradations for metrics.
type Diagnostics struct {
	Dropped int // targets dropped: below min lot or no capacity
	Shrunk  int // targets shrunk to fit the balance budget
}

// Manager diffs quote plans against resting orders and emits the minimal
// instruction batch. It holds no per-market state: the snapshot's open
// orders are the only source of truth, so a replayed cycle yields the
// same batch.
type Manager struct {
	cfg Config
	log *zap.Logger
}

// NewManager creates a lifecycle manager.
func NewManager(cfg Config, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PriceToleranceBps <= 0 {
		cfg.PriceToleranceBps = 1
	}
	if cfg.MaxOpenOrders <= 0 {
		cfg.MaxOpenOrders = 10
	}
	if cfg.STP == "" {
		cfg.STP = STPCancelBoth
	}
	return &Manager{cfg: cfg, log: log}
}

// Reconcile computes the instruction batch for one market. Cancels come
// first in the batch and are issued before places.
func (m *Manager) Reconcile(in CycleInput) (Batch, Diagnostics) {
	var batch Batch
	var diag Diagnostics

	expiry := m.expiry(in.Volatility)
	maxAge := time.Duration(float64(expiry) * m.cfg.MaxOrderAgeFraction)
	openBids, openAsks := splitBySide(in.Open)

	bidBudget := in.Account.Quote.Free
	askBudget := in.Account.Base.Free
	bidRoom, askRoom := m.inventoryRoom(in.Position.Net, openBids, openAsks)

	var keptAll []Open
	side := func(targets []strategy.Quote, open []Open, s Side, zeroed bool, budget, room float64) []Place {
		if zeroed {
			for _, o := range open {
				batch.Cancels = append(batch.Cancels, Cancel{Market: in.Market, OrderID: o.ID})
			}
			return nil
		}
		kept, cancels, unmatched := m.match(targets, open, in.Now, maxAge)
		for _, o := range cancels {
			batch.Cancels = append(batch.Cancels, Cancel{Market: in.Market, OrderID: o.ID})
		}
		keptAll = append(keptAll, kept...)
		return m.build(in, unmatched, s, expiry, budget, &room, &diag)
	}

	bids := side(in.Plan.Bids, openBids, Buy, in.Plan.BidZeroed, bidBudget, bidRoom)
	asks := side(in.Plan.Asks, openAsks, Sell, in.Plan.AskZeroed, askBudget, askRoom)

	places, extraCancels := m.enforceCapacity(in.Market, keptAll, bids, asks, &diag)
	batch.Cancels = append(batch.Cancels, extraCancels...)
	batch.Places = append(batch.Places, places...)

	return batch, diag
}

// expiry derives the GTT lifetime from volatility: quotes go stale faster
// in fast markets.
func (m *Manager) expiry(vol float64) time.Duration {
	e := m.cfg.BaseExpiry
	if e <= 0 {
		return 0
	}
	if m.cfg.VolRef > 0 {
		norm := vol / m.cfg.VolRef
		norm = market.Clamp(norm, 0.1, 5)
		if norm > 0 {
			e = time.Duration(float64(e) / norm)
		}
	}
	if m.cfg.MinExpiry > 0 && e < m.cfg.MinExpiry {
		e = m.cfg.MinExpiry
	}
	if m.cfg.MaxExpiry > 0 && e > m.cfg.MaxExpiry {
		e = m.cfg.MaxExpiry
	}
	return e
}

// inventoryRoom bounds how much quantity each side may add so that the
// position cannot exceed MaxInventory even if everything fills. Resting
// quantity on a side consumes that side's room.
func (m *Manager) inventoryRoom(net float64, openBids, openAsks []Open) (bid, ask float64) {
	if m.cfg.MaxInventory <= 0 {
		return math.Inf(1), math.Inf(1)
	}
	bid = m.cfg.MaxInventory - net
	ask = m.cfg.MaxInventory + net
	for _, o := range openBids {
		bid -= o.Quantity
	}
	for _, o := range openAsks {
		ask -= o.Quantity
	}
	return math.Max(0, bid), math.Max(0, ask)
}

// match pairs each target quote with the nearest resting order within the
// price tolerance. Matched fresh orders are kept; everything else on the
// side is canceled. Returns kept orders, cancels, and unmatched targets.
func (m *Manager) match(targets []strategy.Quote, open []Open, now time.Time, maxAge time.Duration) (kept, cancels []Open, unmatched []strategy.Quote) {
	used := make([]bool, len(open))
	for _, q := range targets {
		best := -1
		bestDiff := 0.0
		for i, o := range open {
			if used[i] {
				continue
			}
			diff := math.Abs(o.Price - q.Price)
			if best == -1 || diff < bestDiff {
				best, bestDiff = i, diff
			}
		}
		if best >= 0 && q.Price > 0 {
			tolerance := q.Price * m.cfg.PriceToleranceBps / 10000.0
			o := open[best]
			stale := maxAge > 0 && !o.CreatedAt.IsZero() && now.Sub(o.CreatedAt) > maxAge
			if bestDiff <= tolerance && !stale {
				used[best] = true
				kept = append(kept, o)
				continue
			}
		}
		unmatched = append(unmatched, q)
	}
	for i, o := range open {
		if !used[i] {
			cancels = append(cancels, o)
		}
	}
	return kept, cancels, unmatched
}

// build turns unmatched targets into placements, applying constraint
// rounding, the inventory room cap and the balance budget. Targets that
// cannot meet the market minimums after shrinking are dropped.
func (m *Manager) build(in CycleInput, targets []strategy.Quote, s Side, expiry time.Duration, budget float64, room *float64, diag *Diagnostics) []Place {
	var out []Place
	for _, q := range targets {
		price := in.Constraints.RoundPrice(q.Price, s)
		qty := in.Constraints.RoundQty(q.Size)
		if price <= 0 || qty <= 0 {
			diag.Dropped++
			continue
		}
		shrunk := false

		if qty > *room {
			qty = in.Constraints.RoundQty(*room)
			shrunk = true
		}

		// Balance budget: quote currency funds buys, base funds sells.
		need := qty
		if s == Buy {
			need = price * qty
		}
		if need > budget {
			avail := budget
			if s == Buy {
				avail = budget / price
			}
			qty = in.Constraints.RoundQty(avail)
			shrunk = true
		}

		if qty <= 0 || !in.Constraints.Meets(price, qty) {
			diag.Dropped++
			m.log.Debug("quote dropped below market minimums",
				zap.String("market", in.Market),
				zap.String("side", string(s)),
				zap.Float64("price", price))
			continue
		}
		if shrunk {
			diag.Shrunk++
		}

		if s == Buy {
			budget -= price * qty
		} else {
			budget -= qty
		}
		*room -= qty

		p := Place{
			Market:   in.Market,
			ClientID: uuid.NewString(),
			Side:     s,
			Price:    price,
			Quantity: qty,
			TIF:      GTC,
			PostOnly: !in.Plan.Crossing,
			STP:      m.cfg.STP,
		}
		if expiry > 0 {
			p.TIF = GTT
			p.ExpiresAt = in.Now.Add(expiry)
		}
		out = append(out, p)
	}
	return out
}

// enforceCapacity keeps the market's total resting count, both sides
// together, within MaxOpenOrders. Kept orders are evicted stalest first;
// after that the deepest placements of the heavier side are dropped.
func (m *Manager) enforceCapacity(marketID string, kept []Open, bids, asks []Place, diag *Diagnostics) ([]Place, []Cancel) {
	var cancels []Cancel
	over := len(kept) + len(bids) + len(asks) - m.cfg.MaxOpenOrders
	if over <= 0 {
		return append(bids, asks...), nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CreatedAt.Before(kept[j].CreatedAt)
	})
	for over > 0 && len(kept) > 0 {
		cancels = append(cancels, Cancel{Market: marketID, OrderID: kept[0].ID})
		kept = kept[1:]
		over--
	}
	for over > 0 && len(bids)+len(asks) > 0 {
		if len(bids) > len(asks) {
			bids = bids[:len(bids)-1]
		} else {
			asks = asks[:len(asks)-1]
		}
		diag.Dropped++
		over--
	}
	return append(bids, asks...), cancels
}
