// replay feeds recorded snapshots (one JSON object per line) through the
// engine and writes the responses to stdout, for offline inspection of
// quoting decisions.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"quote-engine-go/config"
	"quote-engine-go/gateway"
	"quote-engine-go/internal/engine"
	"quote-engine-go/market"
	"quote-engine-go/order"
	"quote-engine-go/risk"
	"quote-engine-go/strategy"
)

func main() {
	configPath := flag.String("config", "", "optional config.yaml; defaults used when empty")
	input := flag.String("input", "-", "snapshot JSONL file, - for stdin")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadWithEnvOverrides(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	in := os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

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

	ctx := context.Background()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		snap, skipped, err := gateway.ParseSnapshot(raw, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "line %d: %v\n", line, err)
			continue
		}
		for _, id := range skipped {
			fmt.Fprintf(os.Stderr, "line %d: book %q skipped\n", line, id)
		}
		resp := eng.Process(ctx, snap)
		out, err := gateway.EncodeResponse(resp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "line %d: encode: %v\n", line, err)
			continue
		}
		fmt.Println(string(out))
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}
}
