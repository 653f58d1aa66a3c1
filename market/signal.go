package market

// Signal is the per-cycle signal set derived from one market's book state.
// Recomputed from scratch every cycle; only the history buffer behind it
// persists.
type Signal struct {
	Imbalance  float64
	Microprice float64
	Volatility float64
	Degraded   bool
}

// SignalEngine derives imbalance, microprice and volatility for a single
// market. It owns that market's rolling history buffer and is not safe for
// concurrent use; the engine gives each market its own instance.
type SignalEngine struct {
	depths  []int
	weights []float64
	hist    *History
}

// NewSignalEngine creates a signal engine with the configured imbalance
// depths/weights and a history window of the given length.
func NewSignalEngine(depths []int, weights []float64, window int) *SignalEngine {
	return &SignalEngine{
		depths:  depths,
		weights: weights,
		hist:    NewHistory(window),
	}
}

// Evaluate computes the cycle's signals and appends the observation to the
// rolling history. An empty book (no bid or no ask) yields neutral signals
// with Degraded set; the history is left untouched so the stale
// observation does not pollute the volatility estimate.
func (e *SignalEngine) Evaluate(b *Book) Signal {
	mp, ok := Microprice(b)
	if !ok {
		sig := Signal{Degraded: true}
		if last, has := e.hist.Last(); has {
			sig.Microprice = last.Microprice
		}
		return sig
	}
	_, hasBid := b.BestBid()
	_, hasAsk := b.BestAsk()
	if !hasBid || !hasAsk {
		// One-sided book: microprice is usable for reference but there is
		// no spread to quote into.
		sig := Signal{Microprice: mp, Degraded: true}
		return sig
	}

	e.hist.Push(Observation{Microprice: mp, Ts: b.UpdatedAt})
	return Signal{
		Imbalance:  WeightedImbalance(b, e.depths, e.weights),
		Microprice: mp,
		Volatility: ReturnVolatility(e.hist.Microprices()),
	}
}

// LastMicroprice returns the most recent non-degraded microprice.
func (e *SignalEngine) LastMicroprice() (float64, bool) {
	last, ok := e.hist.Last()
	if !ok {
		return 0, false
	}
	return last.Microprice, true
}
