// Package engine runs the per-snapshot quote cycle: signal evaluation
// and order reconciliation fan out across a bounded worker pool, then
// risk and persistence are updated sequentially at cycle end.
package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"quote-engine-go/infrastructure/alert"
	"quote-engine-go/inventory"
	"quote-engine-go/market"
	"quote-engine-go/metrics"
	"quote-engine-go/order"
	"quote-engine-go/risk"
	"quote-engine-go/store"
	"quote-engine-go/strategy"
)

// Config tunes the cycle loop.
type Config struct {
	// Workers bounds the per-market fan-out.
	Workers int
	// DeadlineMargin is subtracted from the snapshot deadline so the
	// sequential tail still fits.
	DeadlineMargin time.Duration
	// VolWindow is the per-market observation history length.
	VolWindow int
	// ImbalanceDepths and ImbalanceWeights configure the signal engine.
	ImbalanceDepths  []int
	ImbalanceWeights []float64
	// Flow thresholds for toxicity detection.
	Flow market.FlowThresholds
	// MaxInventory bounds the per-market position.
	MaxInventory float64
}

// Components are the engine's collaborators.
type Components struct {
	Calculator *strategy.Calculator
	Orders     *order.Manager
	Risk       *risk.Controller
	Store      *store.Store
	Alerts     *alert.Manager
	Logger     *zap.Logger
}

// marketState is the cross-cycle state for one market. Each entry is
// touched only by the worker evaluating that market, then read in the
// sequential tail.
type marketState struct {
	signals *market.SignalEngine
	lastMid float64
	lastNet float64
	seen    bool
}

// Engine processes snapshots into instruction batches.
type Engine struct {
	cfg  Config
	comp Components

	calcMu sync.RWMutex
	calc   *strategy.Calculator

	states map[string]*marketState
}

// New creates an engine.
func New(cfg Config, comp Components) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.VolWindow < 2 {
		cfg.VolWindow = 32
	}
	if len(cfg.ImbalanceDepths) == 0 {
		cfg.ImbalanceDepths = []int{1, 5, 10}
	}
	if comp.Logger == nil {
		comp.Logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, comp: comp, calc: comp.Calculator, states: make(map[string]*marketState)}
}

// SwapCalculator replaces the quote calculator, applied from the next
// evaluation on. Used by config hot reload.
func (e *Engine) SwapCalculator(c *strategy.Calculator) {
	if c == nil {
		return
	}
	e.calcMu.Lock()
	e.calc = c
	e.calcMu.Unlock()
}

func (e *Engine) calculator() *strategy.Calculator {
	e.calcMu.RLock()
	defer e.calcMu.RUnlock()
	return e.calc
}

type marketResult struct {
	id        string
	batch     order.Batch
	diag      order.Diagnostics
	degraded  bool
	skipped   bool
	ret       float64
	volume    float64
	spread    float64
	inventory float64
	vol       float64
	throttled bool
}

// Process evaluates one snapshot and returns its response. The context
// carries supersession: cancelation stops unstarted markets and the
// response covers what finished.
func (e *Engine) Process(ctx context.Context, snap Snapshot) Response {
	start := time.Now()
	if !snap.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, snap.Deadline.Add(-e.cfg.DeadlineMargin))
		defer cancel()
	}

	// States are created before the fan-out so workers never write the
	// map concurrently.
	for i := range snap.Markets {
		id := snap.Markets[i].Book.ID
		if _, ok := e.states[id]; !ok {
			e.states[id] = &marketState{
				signals: market.NewSignalEngine(e.cfg.ImbalanceDepths, e.cfg.ImbalanceWeights, e.cfg.VolWindow),
			}
		}
	}

	results := make([]marketResult, len(snap.Markets))
	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := e.cfg.Workers
	if workers > len(snap.Markets) {
		workers = len(snap.Markets)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					results[i] = marketResult{id: snap.Markets[i].Book.ID, skipped: true}
				default:
					results[i] = e.evaluate(snap.Markets[i], snap.ReceivedAt)
				}
			}
		}()
	}
	for i := range snap.Markets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	resp := e.assemble(snap, results)
	e.finish(snap, results)

	resp.Elapsed = time.Since(start)
	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(resp.Elapsed.Seconds())
	if resp.Truncated {
		metrics.CyclesTruncated.Inc()
		e.comp.Logger.Warn("cycle truncated at deadline",
			zap.Uint64("seq", snap.Seq),
			zap.Int("markets", len(snap.Markets)),
			zap.Duration("elapsed", resp.Elapsed))
	}
	return resp
}

// evaluate runs the full per-market pipeline for one update.
func (e *Engine) evaluate(u MarketUpdate, now time.Time) marketResult {
	id := u.Book.ID
	st := e.states[id]

	sig := st.signals.Evaluate(&u.Book)
	pos := inventory.Compute(u.Account, e.cfg.MaxInventory)
	flow := market.TradeFlowImbalance(u.Book.Trades)
	toxic := market.ToxicFlow(flow, sig.Imbalance, e.cfg.Flow)
	throttle := e.comp.Risk.Throttle(id)

	plan := e.calculator().Quotes(strategy.Inputs{
		Signal:   sig,
		Position: pos,
		Toxic:    toxic,
		Throttle: throttle,
	})

	batch, diag := e.comp.Orders.Reconcile(order.CycleInput{
		Market:   id,
		Plan:     plan,
		Open:     u.Orders,
		Account:  u.Account,
		Position: pos,
		Constraints: order.Constraints{
			TickSize:    u.Book.TickSize,
			StepSize:    u.Book.StepSize,
			MinQty:      u.Book.MinQty,
			MinNotional: u.Book.MinNotional,
		},
		Volatility: sig.Volatility,
		Now:        now,
	})

	res := marketResult{
		id:        id,
		batch:     batch,
		diag:      diag,
		degraded:  plan.Degraded,
		spread:    plan.Spread,
		inventory: pos.Normalized,
		vol:       sig.Volatility,
		throttled: throttle.Outlier,
	}

	// Realized per-cycle return of the held position, mark to mid.
	mid := sig.Microprice
	if st.seen && st.lastMid > 0 && mid > 0 && e.cfg.MaxInventory > 0 {
		res.ret = (st.lastNet / e.cfg.MaxInventory) * (mid - st.lastMid) / st.lastMid
		res.volume = math.Abs(pos.Net-st.lastNet) * mid
	}
	if mid > 0 {
		st.lastMid = mid
	}
	st.lastNet = pos.Net
	st.seen = true

	metrics.ObserveMarket(id, plan.Spread, pos.Normalized, sig.Volatility)
	metrics.ObserveReconcile(diag.Dropped, diag.Shrunk)
	return res
}

// assemble merges per-market batches in snapshot order.
func (e *Engine) assemble(snap Snapshot, results []marketResult) Response {
	resp := Response{Seq: snap.Seq}
	for _, r := range results {
		if r.skipped {
			resp.Truncated = true
			continue
		}
		if r.degraded {
			resp.Degraded = append(resp.Degraded, r.id)
			metrics.MarketsDegraded.Inc()
		}
		resp.Batch.Cancels = append(resp.Batch.Cancels, r.batch.Cancels...)
		resp.Batch.Places = append(resp.Batch.Places, r.batch.Places...)
	}
	return resp
}

// finish is the sequential tail: risk observation, throttle update and
// persistence. Runs after all workers have stopped.
func (e *Engine) finish(snap Snapshot, results []marketResult) {
	outliers := 0
	records := make([]store.CycleRecord, 0, len(results))
	for _, r := range results {
		if r.skipped {
			continue
		}
		e.comp.Risk.Observe(r.id, r.ret, r.volume)
		if r.throttled {
			outliers++
		}
		records = append(records, store.CycleRecord{
			Seq:       snap.Seq,
			Market:    r.id,
			Return:    r.ret,
			Volume:    r.volume,
			Spread:    r.spread,
			Inventory: r.inventory,
			Throttled: r.throttled,
		})
	}
	e.comp.Risk.EndCycle()
	metrics.OutlierMarkets.Set(float64(outliers))

	if e.comp.Store != nil {
		if err := e.comp.Store.Append(records); err != nil {
			e.comp.Logger.Error("cycle records not persisted", zap.Error(err))
		}
	}
	if e.comp.Alerts != nil && outliers > 0 {
		_ = e.comp.Alerts.Warning("markets throttled by cross-book controller",
			map[string]interface{}{"count": outliers, "seq": snap.Seq})
	}
}

// Run consumes snapshots until the context is canceled. When a newer
// snapshot arrives mid-cycle the running cycle is canceled and its
// response discarded: only the latest state is worth quoting.
func (e *Engine) Run(ctx context.Context, in <-chan Snapshot, out chan<- Response) error {
	var pending *Snapshot
	for {
		var snap Snapshot
		if pending != nil {
			snap, pending = *pending, nil
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case s, ok := <-in:
				if !ok {
					return nil
				}
				snap = s
			}
		}

		// Drain any backlog down to the newest snapshot.
		for drained := false; !drained; {
			select {
			case s, ok := <-in:
				if !ok {
					drained = true
					break
				}
				metrics.CyclesSuperseded.Inc()
				snap = s
			default:
				drained = true
			}
		}

		cctx, cancel := context.WithCancel(ctx)
		done := make(chan Response, 1)
		go func() { done <- e.Process(cctx, snap) }()

		superseded := false
	wait:
		for {
			select {
			case resp := <-done:
				if superseded {
					metrics.CyclesSuperseded.Inc()
				} else {
					select {
					case out <- resp:
						// Instruction counters track delivered responses
						// only, so superseded cycles never inflate them.
						metrics.ObserveDelivered(len(resp.Batch.Places), len(resp.Batch.Cancels))
					case <-ctx.Done():
						cancel()
						return ctx.Err()
					}
				}
				break wait
			case s, ok := <-in:
				if !ok {
					in = nil
					continue
				}
				pending = &s
				superseded = true
				cancel()
			case <-ctx.Done():
				cancel()
				<-done
				return ctx.Err()
			}
		}
		cancel()

		if in == nil && pending == nil {
			return nil
		}
	}
}
