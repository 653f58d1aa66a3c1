// Package gateway speaks the snapshot wire protocol: decoding cycle
// snapshots from the feed and encoding instruction batches back.
package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"quote-engine-go/internal/engine"
	"quote-engine-go/market"
	"quote-engine-go/order"
)

// Prices and quantities travel as strings so the feed never loses
// precision to float re-encoding on its side.
// Books stay raw so a malformed book fails on its own decode instead of
// taking the whole envelope down.
type wireSnapshot struct {
	Seq        uint64            `json:"seq"`
	DeadlineMs int64             `json:"deadline_ms"`
	Books      []json.RawMessage `json:"books"`
}

type wireBook struct {
	ID          string           `json:"id"`
	Bids        [][2]json.Number `json:"bids"`
	Asks        [][2]json.Number `json:"asks"`
	Trades      []wireTrade      `json:"trades"`
	TickSize    json.Number      `json:"tick_size"`
	StepSize    json.Number      `json:"step_size"`
	MinQty      json.Number      `json:"min_qty"`
	MinNotional json.Number      `json:"min_notional"`
	Account     wireAccount      `json:"account"`
	Orders      []wireOrder      `json:"orders"`
}

type wireTrade struct {
	Price json.Number `json:"price"`
	Qty   json.Number `json:"qty"`
	Side  string      `json:"side"`
	TsMs  int64       `json:"ts_ms"`
}

type wireAccount struct {
	Base  wireBalance `json:"base"`
	Quote wireBalance `json:"quote"`
}

type wireBalance struct {
	Free   json.Number `json:"free"`
	Locked json.Number `json:"locked"`
	Loan   json.Number `json:"loan"`
}

type wireOrder struct {
	ID        string      `json:"id"`
	Side      string      `json:"side"`
	Price     json.Number `json:"price"`
	Qty       json.Number `json:"qty"`
	CreatedMs int64       `json:"created_ms"`
}

// ParseSnapshot decodes a wire snapshot. A malformed envelope is an
// error; a malformed book is skipped and reported in skipped so one bad
// market cannot take down the cycle.
func ParseSnapshot(raw []byte, now time.Time) (snap engine.Snapshot, skipped []string, err error) {
	var ws wireSnapshot
	if err = json.Unmarshal(raw, &ws); err != nil {
		return snap, nil, fmt.Errorf("parse snapshot: %w", err)
	}
	snap.Seq = ws.Seq
	snap.ReceivedAt = now
	if ws.DeadlineMs > 0 {
		snap.Deadline = time.UnixMilli(ws.DeadlineMs)
	}

	for _, raw := range ws.Books {
		var wb wireBook
		if berr := json.Unmarshal(raw, &wb); berr != nil {
			skipped = append(skipped, probeBookID(raw))
			continue
		}
		u, berr := parseBook(wb, now)
		if berr != nil {
			skipped = append(skipped, wb.ID)
			continue
		}
		snap.Markets = append(snap.Markets, u)
	}
	return snap, skipped, nil
}

// probeBookID pulls just the id out of a book that failed to decode.
func probeBookID(raw json.RawMessage) string {
	var probe struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &probe)
	return probe.ID
}

func parseBook(wb wireBook, now time.Time) (engine.MarketUpdate, error) {
	var u engine.MarketUpdate
	if wb.ID == "" {
		return u, fmt.Errorf("book without id")
	}
	book := market.Book{ID: wb.ID, UpdatedAt: now}

	var err error
	if book.Bids, err = parseLevels(wb.Bids); err != nil {
		return u, fmt.Errorf("book %s bids: %w", wb.ID, err)
	}
	if book.Asks, err = parseLevels(wb.Asks); err != nil {
		return u, fmt.Errorf("book %s asks: %w", wb.ID, err)
	}
	if book.TickSize, err = parseOptional(wb.TickSize); err != nil {
		return u, err
	}
	if book.StepSize, err = parseOptional(wb.StepSize); err != nil {
		return u, err
	}
	if book.MinQty, err = parseOptional(wb.MinQty); err != nil {
		return u, err
	}
	if book.MinNotional, err = parseOptional(wb.MinNotional); err != nil {
		return u, err
	}

	for _, wt := range wb.Trades {
		price, perr := wt.Price.Float64()
		qty, qerr := wt.Qty.Float64()
		if perr != nil || qerr != nil {
			return u, fmt.Errorf("book %s trade: bad number", wb.ID)
		}
		book.Trades = append(book.Trades, market.Trade{
			Price:    price,
			Quantity: qty,
			Side:     market.TradeSide(wt.Side),
			Ts:       time.UnixMilli(wt.TsMs),
		})
	}

	acct, err := parseAccount(wb.Account)
	if err != nil {
		return u, fmt.Errorf("book %s account: %w", wb.ID, err)
	}

	var open []order.Open
	for _, wo := range wb.Orders {
		price, perr := wo.Price.Float64()
		qty, qerr := wo.Qty.Float64()
		if wo.ID == "" || perr != nil || qerr != nil {
			return u, fmt.Errorf("book %s open order: malformed", wb.ID)
		}
		side := order.Buy
		if wo.Side == string(order.Sell) {
			side = order.Sell
		}
		open = append(open, order.Open{
			ID:        wo.ID,
			Market:    wb.ID,
			Side:      side,
			Price:     price,
			Quantity:  qty,
			CreatedAt: time.UnixMilli(wo.CreatedMs),
		})
	}

	u.Book = book
	u.Account = acct
	u.Orders = open
	return u, nil
}

func parseLevels(raw [][2]json.Number) ([]market.Level, error) {
	out := make([]market.Level, 0, len(raw))
	for _, pair := range raw {
		price, err := pair[0].Float64()
		if err != nil {
			return nil, fmt.Errorf("bad price %q", pair[0])
		}
		qty, err := pair[1].Float64()
		if err != nil {
			return nil, fmt.Errorf("bad quantity %q", pair[1])
		}
		if price <= 0 || qty < 0 {
			return nil, fmt.Errorf("level %v out of range", pair)
		}
		out = append(out, market.Level{Price: price, Quantity: qty})
	}
	return out, nil
}

func parseAccount(wa wireAccount) (market.Account, error) {
	base, err := parseBalance(wa.Base)
	if err != nil {
		return market.Account{}, err
	}
	quote, err := parseBalance(wa.Quote)
	if err != nil {
		return market.Account{}, err
	}
	return market.Account{Base: base, Quote: quote}, nil
}

func parseBalance(wb wireBalance) (market.Balance, error) {
	var b market.Balance
	var err error
	if b.Free, err = parseOptional(wb.Free); err != nil {
		return b, err
	}
	if b.Locked, err = parseOptional(wb.Locked); err != nil {
		return b, err
	}
	if b.Loan, err = parseOptional(wb.Loan); err != nil {
		return b, err
	}
	return b, nil
}

// parseOptional treats a missing number as zero but rejects garbage.
func parseOptional(n json.Number) (float64, error) {
	if n == "" {
		return 0, nil
	}
	return n.Float64()
}
