package order

import "time"

// Open is a resting order as reported in the cycle snapshot.
type Open struct {
	ID        string
	Market    string
	Side      Side
	Price     float64
	Quantity  float64
	CreatedAt time.Time
}

// splitBySide partitions open orders into bids and asks, preserving the
// snapshot order.
func splitBySide(open []Open) (bids, asks []Open) {
	for _, o := range open {
		if o.Side == Buy {
			bids = append(bids, o)
		} else {
			asks = append(asks, o)
		}
	}
	return bids, asks
}
