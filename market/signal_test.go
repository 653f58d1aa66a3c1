package market

import (
	"math"
	"testing"
	"time"
)

func twoSidedBook(mid float64) *Book {
	return &Book{
		ID:        "BOOK-1",
		Bids:      []Level{{mid - 0.05, 2}, {mid - 0.15, 2}},
		Asks:      []Level{{mid + 0.05, 2}, {mid + 0.15, 2}},
		UpdatedAt: time.Now(),
	}
}

func TestSignalEngineEvaluate(t *testing.T) {
	eng := NewSignalEngine([]int{1, 2}, []float64{1, 1}, 10)

	sig := eng.Evaluate(twoSidedBook(100.05))
	if sig.Degraded {
		t.Fatal("two-sided book flagged degraded")
	}
	if math.Abs(sig.Microprice-100.05) > 1e-9 {
		t.Errorf("Microprice = %f, want 100.05", sig.Microprice)
	}
	if sig.Imbalance != 0 {
		t.Errorf("symmetric book imbalance = %f, want 0", sig.Imbalance)
	}
	if sig.Volatility != 0 {
		t.Errorf("first-cycle volatility = %f, want 0", sig.Volatility)
	}

	// A few more cycles with moving mid produce a positive volatility.
	eng.Evaluate(twoSidedBook(100.15))
	eng.Evaluate(twoSidedBook(100.00))
	sig = eng.Evaluate(twoSidedBook(100.20))
	if sig.Volatility <= 0 {
		t.Errorf("volatility = %f, want > 0", sig.Volatility)
	}
}

func TestSignalEngineDegradedBook(t *testing.T) {
	eng := NewSignalEngine([]int{1}, []float64{1}, 10)

	// Prime one good observation so the degraded cycle can fall back.
	eng.Evaluate(twoSidedBook(100.05))

	sig := eng.Evaluate(&Book{ID: "BOOK-1"})
	if !sig.Degraded {
		t.Fatal("empty book not flagged degraded")
	}
	if sig.Imbalance != 0 || sig.Volatility != 0 {
		t.Errorf("degraded signals not neutral: %+v", sig)
	}
	if math.Abs(sig.Microprice-100.05) > 1e-9 {
		t.Errorf("degraded microprice = %f, want last known 100.05", sig.Microprice)
	}

	// One-sided book is degraded too but keeps a reference price.
	sig = eng.Evaluate(&Book{ID: "BOOK-1", Bids: []Level{{99.9, 1}}})
	if !sig.Degraded {
		t.Fatal("one-sided book not flagged degraded")
	}
	if sig.Microprice != 99.9 {
		t.Errorf("one-sided microprice = %f, want 99.9", sig.Microprice)
	}

	// Degraded cycles must not pollute the history buffer.
	if mp, _ := eng.LastMicroprice(); math.Abs(mp-100.05) > 1e-9 {
		t.Errorf("history polluted by degraded cycle: last = %f", mp)
	}
}
