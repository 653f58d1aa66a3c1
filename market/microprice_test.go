package market

import (
	"math"
	"testing"
)

func TestMicroprice(t *testing.T) {
	tests := []struct {
		name string
		book Book
		want float64
		ok   bool
	}{
		{
			name: "volume weighted",
			book: Book{Bids: []Level{{100.0, 3}}, Asks: []Level{{100.1, 1}}},
			// (100.0*1 + 100.1*3) / 4
			want: 100.075,
			ok:   true,
		},
		{
			name: "equal depth is midpoint",
			book: Book{Bids: []Level{{100.0, 2}}, Asks: []Level{{100.1, 2}}},
			want: 100.05,
			ok:   true,
		},
		{
			name: "zero top quantity falls back to midpoint",
			book: Book{Bids: []Level{{100.0, 0}}, Asks: []Level{{100.1, 0}}},
			want: 100.05,
			ok:   true,
		},
		{
			name: "bid only",
			book: Book{Bids: []Level{{100.0, 2}}},
			want: 100.0,
			ok:   true,
		},
		{
			name: "ask only",
			book: Book{Asks: []Level{{100.1, 2}}},
			want: 100.1,
			ok:   true,
		},
		{
			name: "empty book",
			book: Book{},
			want: 0,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Microprice(&tt.book)
			if ok != tt.ok {
				t.Fatalf("Microprice ok = %v, want %v", ok, tt.ok)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Microprice = %f, want %f", got, tt.want)
			}
		})
	}
}
