package engine

import (
	"time"

	"quote-engine-go/market"
	"quote-engine-go/order"
)

// MarketUpdate is one market's slice of a cycle snapshot.
type MarketUpdate struct {
	Book    market.Book
	Account market.Account
	Orders  []order.Open
}

// Snapshot is one ingested state update across all live markets. Seq is
// strictly increasing; a snapshot supersedes every lower sequence.
type Snapshot struct {
	Seq        uint64
	ReceivedAt time.Time
	Deadline   time.Time
	Markets    []MarketUpdate
}

// Response is the instruction set produced for one snapshot.
type Response struct {
	Seq   uint64
	Batch order.Batch
	// Degraded lists markets that fell back to defensive quoting.
	Degraded []string
	// Truncated is set when the deadline expired before every market was
	// evaluated; the batch covers the finished markets only.
	Truncated bool
	Elapsed   time.Duration
}
