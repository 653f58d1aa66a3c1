package market

import "math"

// FlowThresholds configures the adverse-selection check.
type FlowThresholds struct {
	// Flow is the minimum |trade flow imbalance| to consider at all.
	Flow float64
	// Divergence is the minimum |flow - book imbalance| on top of that.
	Divergence float64
}

// TradeFlowImbalance returns (buyVol - sellVol) / (buyVol + sellVol) over
// the print window, in [-1, 1]. Prints without an aggressor side are
// skipped entirely so an unlabeled feed degrades the signal to 0 rather
// than biasing it.
func TradeFlowImbalance(trades []Trade) float64 {
	buy := 0.0
	sell := 0.0
	for _, t := range trades {
		switch t.Side {
		case TradeBuy:
			buy += t.Quantity
		case TradeSell:
			sell += t.Quantity
		}
	}
	total := buy + sell
	if total == 0 {
		return 0
	}
	return (buy - sell) / total
}

// ToxicFlow reports whether the trade flow looks informed: strong one-way
// flow that diverges from what the resting book suggests. The flag is
// valid for the current cycle only; callers must not persist it.
func ToxicFlow(flow, bookImbalance float64, th FlowThresholds) bool {
	if math.Abs(flow) <= th.Flow {
		return false
	}
	return math.Abs(flow-bookImbalance) > th.Divergence
}
