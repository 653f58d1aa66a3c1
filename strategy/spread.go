package strategy

import "math"

// DynamicSpread computes the cycle's quoted spread in absolute price
// terms: base spread widened by normalized volatility and risk aversion,
// capped at maxMult times the base.
//
//	spread = mid*baseBps/1e4 * min(1 + riskAversion*vol/volRef, maxMult)
func DynamicSpread(mid, baseBps, riskAversion, vol, volRef, maxMult float64) float64 {
	base := mid * baseBps / 10000.0
	if base <= 0 {
		return 0
	}
	volNorm := 0.0
	if volRef > 0 {
		volNorm = vol / volRef
	}
	mult := 1 + riskAversion*volNorm
	if maxMult > 0 {
		mult = math.Min(mult, maxMult)
	}
	return base * mult
}
