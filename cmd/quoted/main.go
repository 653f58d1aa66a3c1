// quoted is the quote engine daemon: it consumes cycle snapshots from
// the websocket feed and answers each with an instruction batch.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"quote-engine-go/config"
	"quote-engine-go/gateway"
	"quote-engine-go/infrastructure/alert"
	"quote-engine-go/infrastructure/logger"
	"quote-engine-go/internal/engine"
	"quote-engine-go/market"
	"quote-engine-go/metrics"
	"quote-engine-go/order"
	"quote-engine-go/risk"
	"quote-engine-go/store"
	"quote-engine-go/strategy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file, using process environment")
	}

	cfg, err := config.LoadWithEnvOverrides(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, *configPath, log); err != nil && err != context.Canceled {
		log.Fatal("daemon exited", zap.Error(err))
	}
}

func run(cfg config.AppConfig, configPath string, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartMetricsServer(cfg.Metrics.Addr, log.Named("metrics"))

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	alerts := alert.NewManager([]alert.Channel{
		alert.NewZapChannel("log", log),
	}, time.Minute)

	eng := engine.New(
		engine.Config{
			Workers:          cfg.Engine.Workers,
			DeadlineMargin:   time.Duration(cfg.Engine.DeadlineMarginMs) * time.Millisecond,
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
			Orders:     order.NewManager(cfg.Order(), log.Named("orders")),
			Risk:       risk.NewController(cfg.RiskController(), log.Named("risk")),
			Store:      st,
			Alerts:     alerts,
			Logger:     log.Named("engine"),
		},
	)

	// Hot reload swaps quote parameters without a restart.
	watcher := config.NewWatcher(configPath, 0, log.Named("config"))
	go func() {
		_ = watcher.Run(ctx, func(next config.AppConfig) {
			eng.SwapCalculator(strategy.NewCalculator(next.Params.Strategy()))
		})
	}()

	feed := gateway.NewFeed(gateway.FeedConfig{
		URL:          cfg.Feed.URL,
		ReconnectMin: time.Duration(cfg.Feed.ReconnectMinMs) * time.Millisecond,
		ReconnectMax: time.Duration(cfg.Feed.ReconnectMaxMs) * time.Millisecond,
	}, log.Named("feed"), alerts)

	snapshots := make(chan engine.Snapshot, 1)
	responses := make(chan engine.Response, 1)

	errCh := make(chan error, 2)
	go func() { errCh <- feed.Run(ctx, snapshots, responses) }()
	go func() { errCh <- eng.Run(ctx, snapshots, responses) }()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	go watchdog(ctx)

	log.Info("quote engine started",
		zap.String("feed", cfg.Feed.URL),
		zap.String("metrics", cfg.Metrics.Addr),
		zap.Int("workers", cfg.Engine.Workers))

	err = <-errCh
	stop()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	return err
}

// watchdog keeps systemd's watchdog fed while the daemon is healthy.
func watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
