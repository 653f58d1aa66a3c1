// Package metrics exposes the engine's Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_cycles_total",
		Help: "Snapshot cycles processed",
	})
	CyclesTruncated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_cycles_truncated_total",
		Help: "Cycles that hit the deadline with markets unprocessed",
	})
	CyclesSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_cycles_superseded_total",
		Help: "Cycles abandoned because a newer snapshot arrived",
	})
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quote_engine_cycle_duration_seconds",
		Help:    "Wall time per cycle",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	MarketsDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_markets_degraded_total",
		Help: "Per-market evaluations that fell back to degraded quoting",
	})
	ActionsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_actions_dropped_total",
		Help: "Quote targets dropped below market minimums or capacity",
	})
	ActionsShrunk = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_actions_shrunk_total",
		Help: "Quote targets shrunk to fit balance or inventory budgets",
	})
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_orders_placed_total",
		Help: "Placement instructions in delivered responses",
	})
	OrdersCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_orders_canceled_total",
		Help: "Cancel instructions in delivered responses",
	})
	OutlierMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quote_engine_outlier_markets",
		Help: "Markets currently throttled by the cross-book controller",
	})

	MarketSpread = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quote_engine_market_spread",
		Help: "Current quoted spread per market",
	}, []string{"market"})
	MarketInventory = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quote_engine_market_inventory",
		Help: "Normalized inventory per market",
	}, []string{"market"})
	MarketVolatility = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quote_engine_market_volatility",
		Help: "Realized volatility per market",
	}, []string{"market"})

	FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_feed_reconnects_total",
		Help: "Websocket feed reconnect attempts",
	})
)

// ObserveMarket records the per-market gauges for one cycle.
func ObserveMarket(market string, spread, inventory, volatility float64) {
	MarketSpread.WithLabelValues(market).Set(spread)
	MarketInventory.WithLabelValues(market).Set(inventory)
	MarketVolatility.WithLabelValues(market).Set(volatility)
}

// ObserveReconcile records one market's dropped and shrunk quote targets.
func ObserveReconcile(dropped, shrunk int) {
	ActionsDropped.Add(float64(dropped))
	ActionsShrunk.Add(float64(shrunk))
}

// ObserveDelivered records the instruction counters for a response that
// was actually handed to the feed. Superseded cycles never reach here.
func ObserveDelivered(places, cancels int) {
	OrdersPlaced.Add(float64(places))
	OrdersCanceled.Add(float64(cancels))
}

// StartMetricsServer serves /metrics on addr in the background. A bind
// failure leaves the engine running without the endpoint, so it is logged.
func StartMetricsServer(addr string, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics endpoint unavailable", zap.String("addr", addr), zap.Error(err))
		}
	}()
}
