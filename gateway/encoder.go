package gateway

import (
	"encoding/json"
	"strconv"

	"quote-engine-go/internal/engine"
	"quote-engine-go/order"
)

type wireResponse struct {
	Seq       uint64       `json:"seq"`
	Truncated bool         `json:"truncated,omitempty"`
	Degraded  []string     `json:"degraded,omitempty"`
	Cancels   []wireCancel `json:"cancels,omitempty"`
	Places    []wirePlace  `json:"places,omitempty"`
}

type wireCancel struct {
	Market  string `json:"market"`
	OrderID string `json:"order_id"`
}

type wirePlace struct {
	Market    string `json:"market"`
	ClientID  string `json:"client_id"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Qty       string `json:"qty"`
	TIF       string `json:"tif"`
	ExpiresMs int64  `json:"expires_ms,omitempty"`
	PostOnly  bool   `json:"post_only,omitempty"`
	STP       string `json:"stp,omitempty"`
}

// EncodeResponse serializes a cycle response for the wire. Prices and
// quantities go out as strings, mirroring the snapshot format.
func EncodeResponse(resp engine.Response) ([]byte, error) {
	wr := wireResponse{
		Seq:       resp.Seq,
		Truncated: resp.Truncated,
		Degraded:  resp.Degraded,
	}
	for _, c := range resp.Batch.Cancels {
		wr.Cancels = append(wr.Cancels, wireCancel{Market: c.Market, OrderID: c.OrderID})
	}
	for _, p := range resp.Batch.Places {
		wp := wirePlace{
			Market:   p.Market,
			ClientID: p.ClientID,
			Side:     string(p.Side),
			Price:    strconv.FormatFloat(p.Price, 'f', -1, 64),
			Qty:      strconv.FormatFloat(p.Quantity, 'f', -1, 64),
			TIF:      string(p.TIF),
			PostOnly: p.PostOnly,
			STP:      string(p.STP),
		}
		if p.TIF == order.GTT && !p.ExpiresAt.IsZero() {
			wp.ExpiresMs = p.ExpiresAt.UnixMilli()
		}
		wr.Places = append(wr.Places, wp)
	}
	return json.Marshal(wr)
}
