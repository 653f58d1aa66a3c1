// Package inventory derives the per-market position and quote skew from
// account state. Position is never stored; it is recomputed from the
// snapshot every cycle.
package inventory

import (
	"math"

	"quote-engine-go/market"
)

// Position is the derived inventory view for one market and one cycle.
type Position struct {
	// Net is base free + locked - loan.
	Net float64
	// Normalized is Net / maxInventory clamped to [-1, 1].
	Normalized float64
	// Sanitized is set when the account carried malformed balances and the
	// position was forced to zero. Quoting should fall back to a
	// conservative symmetric spread for the cycle.
	Sanitized bool
}

// Compute derives the position from account state. Malformed balances
// (negative or NaN fields) are treated as zero position with the
// Sanitized flag raised; no error is returned because one bad account
// must not abort the cycle.
func Compute(acct market.Account, maxInventory float64) Position {
	if malformed(acct.Base) || malformed(acct.Quote) {
		return Position{Sanitized: true}
	}
	net := acct.Base.Total()
	pos := Position{Net: net}
	if maxInventory > 0 {
		pos.Normalized = market.Clamp(net/maxInventory, -1, 1)
	}
	return pos
}

func malformed(b market.Balance) bool {
	for _, v := range []float64{b.Free, b.Locked, b.Loan} {
		if v < 0 || math.IsNaN(v) {
			return true
		}
	}
	return false
}

// RebalanceRequired reports whether the position breached the hard limit
// and the accumulating side must stop quoting while the other side is
// allowed to cross the spread.
func (p Position) RebalanceRequired(maxInventory float64) bool {
	return maxInventory > 0 && math.Abs(p.Net) >= maxInventory
}

// SkewOffset is the parallel price shift applied identically to both
// quotes: positive when long (pushing both quotes down to bias fills
// toward selling), negative when short.
func SkewOffset(normalized, skewStrength, dynamicSpread float64) float64 {
	return normalized * skewStrength * dynamicSpread
}

// Throttle is the size multiplier for the side that would increase the
// absolute position: max(0, 1-|normalized|).
func Throttle(normalized float64) float64 {
	return math.Max(0, 1-math.Abs(normalized))
}
