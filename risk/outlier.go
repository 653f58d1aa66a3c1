package risk

import (
	"math"
	"sort"
)

// MarketStats is the per-market rolling performance summary handed to the
// outlier predicate alongside the cross-market distribution.
type MarketStats struct {
	Market      string
	Mean        float64
	Std         float64
	Sharpe      float64
	VolumeRatio float64
	Samples     int
}

// OutlierFunc decides whether a market's performance is an outlier
// relative to the cross-market distribution. Markets below the minimum
// sample count are never passed in.
type OutlierFunc func(m MarketStats, all []MarketStats) bool

// MedianDistanceOutlier flags a market whose Sharpe falls more than
// distance cross-market standard deviations below the cross-market
// median. This is the default policy.
func MedianDistanceOutlier(distance float64) OutlierFunc {
	return func(m MarketStats, all []MarketStats) bool {
		if len(all) < 3 {
			return false
		}
		sharpes := collectSharpes(all)
		med := median(sharpes)
		std := stddev(sharpes)
		if std == 0 {
			return false
		}
		return m.Sharpe < med-distance*std
	}
}

// IQROutlier flags a market whose Sharpe falls below Q1 - k*IQR of the
// cross-market distribution.
func IQROutlier(k float64) OutlierFunc {
	return func(m MarketStats, all []MarketStats) bool {
		if len(all) < 4 {
			return false
		}
		sharpes := collectSharpes(all)
		sort.Float64s(sharpes)
		q1 := quantile(sharpes, 0.25)
		q3 := quantile(sharpes, 0.75)
		iqr := q3 - q1
		if iqr == 0 {
			return false
		}
		return m.Sharpe < q1-k*iqr
	}
}

func collectSharpes(all []MarketStats) []float64 {
	out := make([]float64, len(all))
	for i, s := range all {
		out[i] = s.Sharpe
	}
	return out
}

func median(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	n := len(s)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// quantile expects a sorted slice and interpolates linearly.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func stddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	sumSq := 0.0
	for _, v := range vals {
		sumSq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sumSq / float64(len(vals)-1))
}
