package market

import "math"

// ReturnVolatility computes the sample standard deviation of simple
// returns over a price series (oldest first). It returns 0 with fewer
// than two usable returns. Non-positive prices are skipped rather than
// producing NaN returns.
func ReturnVolatility(prices []float64) float64 {
	returns := make([]float64, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			continue
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	sumSq := 0.0
	for _, r := range returns {
		diff := r - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(returns)-1))
}
