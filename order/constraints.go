package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Constraints describe a market's price/size grid and minimum notional.
type Constraints struct {
	TickSize    float64
	StepSize    float64
	MinQty      float64
	MinNotional float64
}

// RoundPrice snaps a price onto the tick grid, always toward the passive
// side: bids round down, asks round up.
func (c Constraints) RoundPrice(price float64, side Side) float64 {
	if c.TickSize <= 0 || price <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	tick := decimal.NewFromFloat(c.TickSize)
	ticks := p.Div(tick)
	if side == Buy {
		ticks = ticks.Floor()
	} else {
		ticks = ticks.Ceil()
	}
	out, _ := ticks.Mul(tick).Float64()
	return out
}

// RoundQty floors a quantity onto the step grid. Rounding up could
// exceed the balance budget, so quantities only shrink.
func (c Constraints) RoundQty(qty float64) float64 {
	if c.StepSize <= 0 || qty <= 0 {
		return qty
	}
	q := decimal.NewFromFloat(qty)
	step := decimal.NewFromFloat(c.StepSize)
	out, _ := q.Div(step).Floor().Mul(step).Float64()
	return out
}

// Validate checks a rounded order against the market's minimums.
func (c Constraints) Validate(price, qty float64) error {
	if price <= 0 {
		return fmt.Errorf("price %.8f not positive", price)
	}
	if c.MinQty > 0 && qty < c.MinQty {
		return fmt.Errorf("qty %.8f < minQty %.8f", qty, c.MinQty)
	}
	if c.MinNotional > 0 && price*qty < c.MinNotional {
		return fmt.Errorf("notional %.8f < minNotional %.8f", price*qty, c.MinNotional)
	}
	return nil
}

// Meets reports whether a quantity clears both the minimum lot and the
// minimum notional at the given price.
func (c Constraints) Meets(price, qty float64) bool {
	return c.Validate(price, qty) == nil
}
