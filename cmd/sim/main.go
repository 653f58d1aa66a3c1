// sim drives the engine from synthetic random-walk markets, printing the
// instruction batch per cycle. No exchange or feed involved.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"quote-engine-go/config"
	"quote-engine-go/internal/engine"
	"quote-engine-go/market"
	"quote-engine-go/order"
	"quote-engine-go/risk"
	"quote-engine-go/sim"
	"quote-engine-go/strategy"
)

func main() {
	markets := flag.Int("markets", 5, "number of synthetic markets")
	cycles := flag.Int("cycles", 20, "cycles to run")
	sigma := flag.Float64("sigma", 0.0005, "per-cycle mid move sigma")
	seed := flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	flag.Parse()

	cfg := config.Default()
	eng := engine.New(
		engine.Config{
			Workers:          cfg.Engine.Workers,
			VolWindow:        cfg.Params.VolWindow,
			ImbalanceDepths:  cfg.Params.ImbalanceDepths,
			ImbalanceWeights: cfg.Params.ImbalanceWeights,
			Flow: market.FlowThresholds{
				Flow:       cfg.Params.ToxicFlowThreshold,
				Divergence: cfg.Params.ToxicFlowDivergence,
			},
			MaxInventory: cfg.Params.MaxInventory,
		},
		engine.Components{
			Calculator: strategy.NewCalculator(cfg.Params.Strategy()),
			Orders:     order.NewManager(cfg.Order(), nil),
			Risk:       risk.NewController(cfg.RiskController(), nil),
		},
	)

	gen := sim.New(sim.Config{Markets: *markets, StepSigma: *sigma}, *seed)
	ctx := context.Background()

	for i := 0; i < *cycles; i++ {
		snap := gen.Next(time.Now())
		resp := eng.Process(ctx, snap)
		fmt.Printf("cycle %d: places=%d cancels=%d degraded=%d elapsed=%s\n",
			resp.Seq, len(resp.Batch.Places), len(resp.Batch.Cancels),
			len(resp.Degraded), resp.Elapsed)
	}
	_ = os.Stdout.Sync()
}
