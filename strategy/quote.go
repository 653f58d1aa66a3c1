// Package strategy fuses the per-cycle signals into target quotes. The
// calculator is pure: all cross-cycle state lives in the signal history
// and the risk controller, both supplied through Inputs.
package strategy

import (
	"math"

	"quote-engine-go/inventory"
	"quote-engine-go/market"
	"quote-engine-go/risk"
)

// Params are the quote-shaping parameters, validated at startup by the
// config package.
type Params struct {
	BaseSpreadBps          float64
	RiskAversion           float64
	MaxSpreadMultiplier    float64
	VolRef                 float64
	OBIFactor              float64
	ImbalanceThreshold     float64
	ImbalanceSizingFactor  float64
	MinSizeFraction        float64
	BaseOrderSize          float64
	Levels                 int
	LevelSpacingBps        float64
	LevelSizeDecay         float64
	SkewStrength           float64
	ToxicFlowPenalty       float64
	MinEdgeBps             float64
	SoftInventoryBand      float64
	RebalanceAggressionBps float64
	MaxInventory           float64
}

// Quote is one target price/size pair.
type Quote struct {
	Price float64
	Size  float64
}

// Plan is the quote target set for one market and one cycle, consumed by
// the order lifecycle manager.
type Plan struct {
	Bids []Quote // top quote first
	Asks []Quote

	Spread     float64
	Center     float64
	SkewOffset float64

	// Crossing permits the unwinding side to cross the spread (post-only
	// dropped) while rebalancing.
	Crossing bool
	// BidZeroed/AskZeroed mark a side suppressed by inventory control;
	// the lifecycle manager cancels that side's resting orders.
	BidZeroed bool
	AskZeroed bool
	Degraded  bool
}

// Inputs collects everything the calculator consumes for one market.
type Inputs struct {
	Signal   market.Signal
	Position inventory.Position
	Toxic    bool
	Throttle risk.Throttle
}

// Calculator derives quote plans from signals.
type Calculator struct {
	p Params
}

// NewCalculator creates a calculator with the given parameters.
func NewCalculator(p Params) *Calculator {
	return &Calculator{p: p}
}

// Spread widening applied when the account state was malformed and the
// position had to be assumed flat.
const sanitizedWidenMult = 1.5

// Quotes computes the target quote plan for one market.
func (c *Calculator) Quotes(in Inputs) Plan {
	mp := in.Signal.Microprice
	if in.Signal.Degraded || in.Position.Sanitized {
		return c.fallback(in, mp)
	}
	if mp <= 0 {
		return Plan{Degraded: true}
	}
	throttle := orNeutral(in.Throttle)

	spread := DynamicSpread(mp, c.p.BaseSpreadBps, c.p.RiskAversion,
		in.Signal.Volatility, c.p.VolRef, c.p.MaxSpreadMultiplier)
	if in.Toxic {
		spread *= c.p.ToxicFlowPenalty
	}
	spread *= throttle.SpreadMult

	imb := in.Signal.Imbalance
	center := mp + spread*c.p.OBIFactor*imb
	skew := inventory.SkewOffset(in.Position.Normalized, c.p.SkewStrength, spread)

	plan := Plan{Spread: spread, Center: center, SkewOffset: skew}
	bidTop := center - spread/2 - skew
	askTop := center + spread/2 - skew

	bidSize, askSize := c.sizes(imb)
	bidSize *= throttle.SizeMult
	askSize *= throttle.SizeMult

	// Inventory throttle on the side that would grow the position.
	norm := in.Position.Normalized
	if norm > 0 {
		bidSize *= inventory.Throttle(norm)
	} else if norm < 0 {
		askSize *= inventory.Throttle(norm)
	}

	// Soft band: stop growing the position well before the hard limit.
	if c.p.SoftInventoryBand > 0 {
		if norm >= c.p.SoftInventoryBand {
			bidSize = 0
			plan.BidZeroed = true
		} else if norm <= -c.p.SoftInventoryBand {
			askSize = 0
			plan.AskZeroed = true
		}
	}

	if in.Position.RebalanceRequired(c.p.MaxInventory) {
		plan.Crossing = true
		reach := mp * c.p.RebalanceAggressionBps / 10000.0
		if norm > 0 {
			bidSize = 0
			plan.BidZeroed = true
			// Unwind ask may cross, but no deeper than the aggression cap.
			askTop = math.Max(askTop, mp-reach)
		} else {
			askSize = 0
			plan.AskZeroed = true
			bidTop = math.Min(bidTop, mp+reach)
		}
	}

	plan.Bids = c.ladder(bidTop, bidSize, mp, true, plan.Crossing && norm < 0)
	plan.Asks = c.ladder(askTop, askSize, mp, false, plan.Crossing && norm > 0)
	return plan
}

// fallback quotes symmetrically around the last known microprice at the
// unmodified base spread, skipping all signal adjustments. The inventory
// size throttle still applies: a degraded cycle must not breach the
// position limit either.
func (c *Calculator) fallback(in Inputs, mp float64) Plan {
	if mp <= 0 {
		return Plan{Degraded: true}
	}
	throttle := orNeutral(in.Throttle)
	spread := mp * c.p.BaseSpreadBps / 10000.0
	if in.Position.Sanitized {
		spread *= sanitizedWidenMult
	}
	plan := Plan{Spread: spread, Center: mp, Degraded: true}

	size := c.p.BaseOrderSize * throttle.SizeMult
	bidSize, askSize := size, size
	norm := in.Position.Normalized
	if norm > 0 {
		bidSize *= inventory.Throttle(norm)
	} else if norm < 0 {
		askSize *= inventory.Throttle(norm)
	}

	plan.Bids = c.ladder(mp-spread/2, bidSize, mp, true, false)
	plan.Asks = c.ladder(mp+spread/2, askSize, mp, false, false)
	return plan
}

// sizes returns the base per-side sizes after imbalance-aligned scaling.
// The adjustment only kicks in past the imbalance threshold; the opposing
// side is floored at MinSizeFraction of the base size.
func (c *Calculator) sizes(imb float64) (bid, ask float64) {
	base := c.p.BaseOrderSize
	bid, ask = base, base
	if math.Abs(imb) < c.p.ImbalanceThreshold {
		return bid, ask
	}
	adj := c.p.ImbalanceSizingFactor * math.Abs(imb)
	floor := c.p.MinSizeFraction * base
	if imb > 0 {
		bid = base * (1 + adj)
		ask = math.Max(base*(1-adj), floor)
	} else {
		ask = base * (1 + adj)
		bid = math.Max(base*(1-adj), floor)
	}
	return bid, ask
}

// ladder expands a top quote into price tiers with geometrically decaying
// size. Tiers that fail the minimum-edge requirement against the
// microprice are skipped unless the side is allowed to cross.
func (c *Calculator) ladder(top, size, mp float64, isBid, crossing bool) []Quote {
	if size <= 0 || top <= 0 {
		return nil
	}
	levels := c.p.Levels
	if levels < 1 {
		levels = 1
	}
	step := mp * c.p.LevelSpacingBps / 10000.0
	decay := c.p.LevelSizeDecay
	if decay <= 0 || decay > 1 {
		decay = 1
	}

	out := make([]Quote, 0, levels)
	tierSize := size
	for i := 0; i < levels; i++ {
		price := top - float64(i)*step
		if !isBid {
			price = top + float64(i)*step
		}
		if price <= 0 {
			break
		}
		if crossing || c.hasEdge(price, mp, isBid) {
			out = append(out, Quote{Price: price, Size: tierSize})
		}
		tierSize *= decay
	}
	return out
}

// hasEdge checks the quote sits on the passive side of the microprice by
// at least MinEdgeBps.
func (c *Calculator) hasEdge(price, mp float64, isBid bool) bool {
	if mp <= 0 {
		return false
	}
	edgeBps := math.Abs(price-mp) / mp * 10000.0
	if isBid {
		return price < mp && edgeBps >= c.p.MinEdgeBps
	}
	return price > mp && edgeBps >= c.p.MinEdgeBps
}

func orNeutral(t risk.Throttle) risk.Throttle {
	if t.SpreadMult == 0 && t.SizeMult == 0 && !t.Outlier {
		return risk.Neutral
	}
	if t.SpreadMult <= 0 {
		t.SpreadMult = 1
	}
	if t.SizeMult < 0 {
		t.SizeMult = 0
	}
	return t
}
