// Package order turns quote plans into exchange instructions: constraint
// rounding, diffing against resting orders, balance budgeting and expiry.
package order

import "time"

// TimeInForce of a placement.
type TimeInForce string

const (
	GTC TimeInForce = "GTC"
	GTT TimeInForce = "GTT"
	IOC TimeInForce = "IOC"
	FOK TimeInForce = "FOK"
)

// STPPolicy is the self-trade prevention policy attached to placements.
type STPPolicy string

const (
	STPCancelBoth    STPPolicy = "CANCEL_BOTH"
	STPCancelTaker   STPPolicy = "CANCEL_TAKER"
	STPCancelMaker   STPPolicy = "CANCEL_MAKER"
	STPDecrementBoth STPPolicy = "DECREMENT_BOTH"
)

// Side of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Place is one order placement instruction.
type Place struct {
	Market    string
	ClientID  string
	Side      Side
	Price     float64
	Quantity  float64
	TIF       TimeInForce
	ExpiresAt time.Time // set when TIF is GTT
	PostOnly  bool
	STP       STPPolicy
}

// Cancel is one cancel instruction.
type Cancel struct {
	Market  string
	OrderID string
}

// Batch is the instruction set emitted for one market in one cycle.
// Cancels are intended to be issued before places.
type Batch struct {
	Places  []Place
	Cancels []Cancel
}

// Empty reports whether the batch carries no instructions.
func (b Batch) Empty() bool {
	return len(b.Places) == 0 && len(b.Cancels) == 0
}
