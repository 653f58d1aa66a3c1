package market

// Imbalance calculates the imbalance between bid and ask volumes
// Imbalance = (BidVol - AskVol) / (BidVol + AskVol)
func Imbalance(bidVolume, askVolume float64) float64 {
	total := bidVolume + askVolume
	if total == 0 {
		return 0
	}
	return (bidVolume - askVolume) / total
}

// DepthImbalance calculates imbalance using the top depth levels of the book.
func DepthImbalance(b *Book, depth int) float64 {
	if b == nil || depth <= 0 {
		return 0
	}
	return Imbalance(b.BidVolume(depth), b.AskVolume(depth))
}

// WeightedImbalance averages per-depth imbalances with the given weights
// and clamps the result to [-1, 1]. Weights need not be normalized; extra
// depths without a weight default to 1. A book with no volume at any depth
// yields 0.
func WeightedImbalance(b *Book, depths []int, weights []float64) float64 {
	if b == nil || len(depths) == 0 {
		return 0
	}
	weighted := 0.0
	totalWeight := 0.0
	for i, d := range depths {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		if w <= 0 {
			continue
		}
		weighted += w * DepthImbalance(b, d)
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return Clamp(weighted/totalWeight, -1, 1)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
