package market

// Microprice returns the volume-weighted top-of-book fair value:
//
//	(bestBid*askQty + bestAsk*bidQty) / (bidQty + askQty)
//
// With zero quantity at the top it degrades to the simple midpoint, and
// with one side empty it falls back to the sole available side. ok is
// false only when both sides are empty.
func Microprice(b *Book) (price float64, ok bool) {
	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	switch {
	case hasBid && hasAsk:
		total := bid.Quantity + ask.Quantity
		if total == 0 {
			return (bid.Price + ask.Price) / 2, true
		}
		return (bid.Price*ask.Quantity + ask.Price*bid.Quantity) / total, true
	case hasBid:
		return bid.Price, true
	case hasAsk:
		return ask.Price, true
	default:
		return 0, false
	}
}
