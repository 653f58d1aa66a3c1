package market

import "time"

// TradeSide marks the aggressor side of a trade print. Feeds that do not
// report the aggressor leave it empty; such prints carry no flow signal.
type TradeSide string

const (
	TradeBuy  TradeSide = "BUY"
	TradeSell TradeSide = "SELL"
)

// Level is a single price level of the ladder.
type Level struct {
	Price    float64
	Quantity float64
}

// Trade is a recent trade print attached to a snapshot.
type Trade struct {
	Price    float64
	Quantity float64
	Side     TradeSide
	Ts       time.Time
}

// Balance holds one asset's balance split the way the snapshot reports it.
type Balance struct {
	Free   float64
	Locked float64
	Loan   float64
}

// Total returns free+locked net of loan.
func (b Balance) Total() float64 {
	return b.Free + b.Locked - b.Loan
}

// Account is the per-market account state delivered each cycle.
type Account struct {
	Base  Balance
	Quote Balance
}

// Book is one market's order-book snapshot. Bids are sorted best (highest)
// first, asks best (lowest) first. The whole struct is replaced every cycle;
// nothing in it survives across cycles.
type Book struct {
	ID          string
	Bids        []Level
	Asks        []Level
	Trades      []Trade
	TickSize    float64
	StepSize    float64
	MinQty      float64
	MinNotional float64
	UpdatedAt   time.Time
}

// BestBid returns the top bid level.
func (b *Book) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the top ask level.
func (b *Book) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// BidVolume sums quantity over the top depth bid levels.
func (b *Book) BidVolume(depth int) float64 {
	return sumVolume(b.Bids, depth)
}

// AskVolume sums quantity over the top depth ask levels.
func (b *Book) AskVolume(depth int) float64 {
	return sumVolume(b.Asks, depth)
}

func sumVolume(levels []Level, depth int) float64 {
	if depth <= 0 {
		return 0
	}
	total := 0.0
	for i, l := range levels {
		if i >= depth {
			break
		}
		total += l.Quantity
	}
	return total
}
