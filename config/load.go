// Package config loads and validates the engine configuration. Decoding
// is strict: unknown keys are rejected so typos fail at startup instead
// of silently running defaults.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quote-engine-go/infrastructure/logger"
	"quote-engine-go/order"
	"quote-engine-go/risk"
	"quote-engine-go/strategy"
)

// AppConfig holds the full runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	Feed    FeedConfig    `yaml:"feed"`
	Metrics MetricsConfig `yaml:"metrics"`
	Store   StoreConfig   `yaml:"store"`
	Log     logger.Config `yaml:"log"`
	Engine  EngineConfig  `yaml:"engine"`
	Params  Parameters    `yaml:"params"`
	Orders  OrderConfig   `yaml:"orders"`
	Risk    RiskConfig    `yaml:"risk"`
}

type FeedConfig struct {
	URL            string `yaml:"url"`
	ReconnectMinMs int    `yaml:"reconnect_min_ms"`
	ReconnectMaxMs int    `yaml:"reconnect_max_ms"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type EngineConfig struct {
	Workers          int `yaml:"workers"`
	DeadlineMarginMs int `yaml:"deadline_margin_ms"`
}

// Parameters are the quote-shaping knobs, hot-reloadable at runtime.
type Parameters struct {
	BaseSpreadBps          float64   `yaml:"base_spread_bps"`
	RiskAversion           float64   `yaml:"risk_aversion"`
	MaxSpreadMultiplier    float64   `yaml:"max_spread_multiplier"`
	VolRef                 float64   `yaml:"vol_ref"`
	VolWindow              int       `yaml:"vol_window"`
	ImbalanceDepths        []int     `yaml:"imbalance_depths"`
	ImbalanceWeights       []float64 `yaml:"imbalance_weights"`
	ImbalanceThreshold     float64   `yaml:"imbalance_threshold"`
	ImbalanceSizingFactor  float64   `yaml:"imbalance_sizing_factor"`
	OBIFactor              float64   `yaml:"obi_factor"`
	InventorySkewStrength  float64   `yaml:"inventory_skew_strength"`
	MaxInventory           float64   `yaml:"max_inventory"`
	BaseOrderSize          float64   `yaml:"base_order_size"`
	MinSizeFraction        float64   `yaml:"min_size_fraction"`
	Levels                 int       `yaml:"levels"`
	LevelSpacingBps        float64   `yaml:"level_spacing_bps"`
	LevelSizeDecay         float64   `yaml:"level_size_decay"`
	ToxicFlowThreshold     float64   `yaml:"toxic_flow_threshold"`
	ToxicFlowDivergence    float64   `yaml:"toxic_flow_divergence"`
	ToxicFlowPenalty       float64   `yaml:"toxic_flow_penalty"`
	MinEdgeBps             float64   `yaml:"min_edge_bps"`
	SoftInventoryBand      float64   `yaml:"soft_inventory_band"`
	RebalanceAggressionBps float64   `yaml:"rebalance_aggression_bps"`
}

type OrderConfig struct {
	PriceToleranceBps   float64 `yaml:"price_tolerance_bps"`
	MaxOrderAgeFraction float64 `yaml:"max_order_age_fraction"`
	MaxOpenOrders       int     `yaml:"max_open_orders"`
	BaseExpiryMs        int     `yaml:"base_expiry_ms"`
	MinExpiryMs         int     `yaml:"min_expiry_ms"`
	MaxExpiryMs         int     `yaml:"max_expiry_ms"`
}

type RiskConfig struct {
	Window          int     `yaml:"window"`
	MinSamples      int     `yaml:"min_samples"`
	RecoveryCycles  int     `yaml:"recovery_cycles"`
	Step            float64 `yaml:"step"`
	MaxSpreadMult   float64 `yaml:"max_spread_mult"`
	SizeFloor       float64 `yaml:"size_floor"`
	TargetVolume    float64 `yaml:"target_volume"`
	OutlierMethod   string  `yaml:"outlier_method"` // median or iqr
	OutlierDistance float64 `yaml:"outlier_distance"`
}

// Default returns a runnable baseline configuration.
func Default() AppConfig {
	return AppConfig{
		Env:     "dev",
		Feed:    FeedConfig{ReconnectMinMs: 500, ReconnectMaxMs: 30000},
		Metrics: MetricsConfig{Addr: ":9102"},
		Store:   StoreConfig{Path: "quote-engine.db"},
		Log:     logger.DefaultConfig(),
		Engine:  EngineConfig{Workers: 8, DeadlineMarginMs: 10},
		Params: Parameters{
			BaseSpreadBps:          10,
			RiskAversion:           0.5,
			MaxSpreadMultiplier:    3,
			VolRef:                 0.01,
			VolWindow:              64,
			ImbalanceDepths:        []int{1, 5, 10},
			ImbalanceWeights:       []float64{0.5, 0.3, 0.2},
			ImbalanceThreshold:     0.3,
			ImbalanceSizingFactor:  0.5,
			OBIFactor:              0.3,
			InventorySkewStrength:  0.5,
			MaxInventory:           10,
			BaseOrderSize:          1,
			MinSizeFraction:        0.25,
			Levels:                 3,
			LevelSpacingBps:        5,
			LevelSizeDecay:         0.5,
			ToxicFlowThreshold:     0.6,
			ToxicFlowDivergence:    0.5,
			ToxicFlowPenalty:       2,
			MinEdgeBps:             1,
			SoftInventoryBand:      0.8,
			RebalanceAggressionBps: 50,
		},
		Orders: OrderConfig{
			PriceToleranceBps:   2,
			MaxOrderAgeFraction: 0.5,
			MaxOpenOrders:       6,
			BaseExpiryMs:        10000,
			MinExpiryMs:         2000,
			MaxExpiryMs:         60000,
		},
		Risk: RiskConfig{
			Window:          60,
			MinSamples:      10,
			RecoveryCycles:  5,
			Step:            0.25,
			MaxSpreadMult:   3,
			SizeFloor:       0.2,
			OutlierMethod:   "median",
			OutlierDistance: 1.5,
		},
	}
}

// Load reads YAML from path on top of the defaults. Unknown keys are an
// error.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then applies environment overrides
// for deployment-specific fields.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("QE_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("QE_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("QE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	return cfg, Validate(cfg)
}

// Strategy converts the flat parameters into the calculator's form.
func (p Parameters) Strategy() strategy.Params {
	return strategy.Params{
		BaseSpreadBps:          p.BaseSpreadBps,
		RiskAversion:           p.RiskAversion,
		MaxSpreadMultiplier:    p.MaxSpreadMultiplier,
		VolRef:                 p.VolRef,
		OBIFactor:              p.OBIFactor,
		ImbalanceThreshold:     p.ImbalanceThreshold,
		ImbalanceSizingFactor:  p.ImbalanceSizingFactor,
		MinSizeFraction:        p.MinSizeFraction,
		BaseOrderSize:          p.BaseOrderSize,
		Levels:                 p.Levels,
		LevelSpacingBps:        p.LevelSpacingBps,
		LevelSizeDecay:         p.LevelSizeDecay,
		SkewStrength:           p.InventorySkewStrength,
		ToxicFlowPenalty:       p.ToxicFlowPenalty,
		MinEdgeBps:             p.MinEdgeBps,
		SoftInventoryBand:      p.SoftInventoryBand,
		RebalanceAggressionBps: p.RebalanceAggressionBps,
		MaxInventory:           p.MaxInventory,
	}
}

// Order converts the order section into the lifecycle manager's form.
func (c AppConfig) Order() order.Config {
	return order.Config{
		PriceToleranceBps:   c.Orders.PriceToleranceBps,
		MaxOrderAgeFraction: c.Orders.MaxOrderAgeFraction,
		MaxOpenOrders:       c.Orders.MaxOpenOrders,
		BaseExpiry:          time.Duration(c.Orders.BaseExpiryMs) * time.Millisecond,
		MinExpiry:           time.Duration(c.Orders.MinExpiryMs) * time.Millisecond,
		MaxExpiry:           time.Duration(c.Orders.MaxExpiryMs) * time.Millisecond,
		VolRef:              c.Params.VolRef,
		MaxInventory:        c.Params.MaxInventory,
		STP:                 order.STPCancelBoth,
	}
}

// RiskController converts the risk section into the controller's form,
// resolving the outlier method name.
func (c AppConfig) RiskController() risk.Config {
	var fn risk.OutlierFunc
	switch c.Risk.OutlierMethod {
	case "iqr":
		fn = risk.IQROutlier(c.Risk.OutlierDistance)
	default:
		fn = risk.MedianDistanceOutlier(c.Risk.OutlierDistance)
	}
	return risk.Config{
		Window:         c.Risk.Window,
		MinSamples:     c.Risk.MinSamples,
		RecoveryCycles: c.Risk.RecoveryCycles,
		Step:           c.Risk.Step,
		MaxSpreadMult:  c.Risk.MaxSpreadMult,
		SizeFloor:      c.Risk.SizeFloor,
		TargetVolume:   c.Risk.TargetVolume,
		Outlier:        fn,
	}
}
