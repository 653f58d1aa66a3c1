package market

import (
	"math"
	"testing"
)

func TestImbalance(t *testing.T) {
	tests := []struct {
		name      string
		bidVolume float64
		askVolume float64
		expected  float64
	}{
		{name: "equal volumes", bidVolume: 100, askVolume: 100, expected: 0},
		{name: "more bid volume", bidVolume: 150, askVolume: 100, expected: 0.2},
		{name: "more ask volume", bidVolume: 100, askVolume: 150, expected: -0.2},
		{name: "zero volumes", bidVolume: 0, askVolume: 0, expected: 0},
		{name: "one zero volume", bidVolume: 100, askVolume: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Imbalance(tt.bidVolume, tt.askVolume)
			if got != tt.expected {
				t.Errorf("Imbalance(%f, %f) = %f, want %f",
					tt.bidVolume, tt.askVolume, got, tt.expected)
			}
		})
	}
}

func testBook() *Book {
	return &Book{
		ID:   "BOOK-1",
		Bids: []Level{{100.0, 2}, {99.9, 3}, {99.8, 1}},
		Asks: []Level{{100.1, 1}, {100.2, 2}, {100.3, 3}},
	}
}

func TestDepthImbalance(t *testing.T) {
	book := testBook()

	if got, want := DepthImbalance(book, 1), Imbalance(2, 1); got != want {
		t.Errorf("DepthImbalance(1) = %f, want %f", got, want)
	}
	if got, want := DepthImbalance(book, 2), Imbalance(5, 3); got != want {
		t.Errorf("DepthImbalance(2) = %f, want %f", got, want)
	}
	// More levels than the ladder holds uses what is there.
	if got, want := DepthImbalance(book, 10), Imbalance(6, 6); got != want {
		t.Errorf("DepthImbalance(10) = %f, want %f", got, want)
	}
	if got := DepthImbalance(nil, 1); got != 0 {
		t.Errorf("DepthImbalance(nil) = %f, want 0", got)
	}
	if got := DepthImbalance(book, 0); got != 0 {
		t.Errorf("DepthImbalance(depth=0) = %f, want 0", got)
	}
}

func TestWeightedImbalance(t *testing.T) {
	book := testBook()

	// Single depth with weight 1 collapses to DepthImbalance.
	got := WeightedImbalance(book, []int{1}, []float64{1})
	if want := DepthImbalance(book, 1); got != want {
		t.Errorf("WeightedImbalance single depth = %f, want %f", got, want)
	}

	// Two depths, deeper level weighted heavier.
	got = WeightedImbalance(book, []int{1, 2}, []float64{1, 3})
	want := (1*DepthImbalance(book, 1) + 3*DepthImbalance(book, 2)) / 4
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("WeightedImbalance = %f, want %f", got, want)
	}

	// Missing weights default to 1.
	got = WeightedImbalance(book, []int{1, 2}, nil)
	want = (DepthImbalance(book, 1) + DepthImbalance(book, 2)) / 2
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("WeightedImbalance default weights = %f, want %f", got, want)
	}

	if got := WeightedImbalance(book, nil, nil); got != 0 {
		t.Errorf("WeightedImbalance no depths = %f, want 0", got)
	}
}
