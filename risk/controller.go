// Package risk holds the cross-market throttling layer: rolling
// per-market performance windows, outlier detection and hysteresis-based
// recovery. It is the only component whose state survives across cycles
// outside the per-market history buffers.
package risk

import (
	"math"
	"sync"

	"go.uber.org/zap"
)

// Throttle is the quote adjustment handed to the quote calculator for one
// market. Neutral means no override.
type Throttle struct {
	SpreadMult float64
	SizeMult   float64
	Outlier    bool
}

// Neutral is the no-override throttle.
var Neutral = Throttle{SpreadMult: 1, SizeMult: 1}

// Config tunes the controller.
type Config struct {
	// Window is the rolling return window length per market.
	Window int
	// MinSamples below which a market is treated as neutral.
	MinSamples int
	// RecoveryCycles of consecutive non-outlier performance required
	// before a throttle is released.
	RecoveryCycles int
	// Step is the per-cycle ramp rate of the throttle while flagged.
	Step float64
	// MaxSpreadMult and SizeFloor bound the throttle.
	MaxSpreadMult float64
	SizeFloor     float64
	// TargetVolume is the per-window traded volume target used for the
	// volume ratio; 0 disables the volume component.
	TargetVolume float64
	// Outlier is the pluggable outlier policy; nil defaults to
	// MedianDistanceOutlier(1.5).
	Outlier OutlierFunc
}

type bookState struct {
	returns  []float64
	volumes  []float64
	throttle Throttle
	recovery int
}

// Controller owns all cross-market risk state. Reads (Throttle) are safe
// during the parallel part of a cycle; Observe/EndCycle run sequentially
// at cycle end.
type Controller struct {
	cfg Config
	log *zap.Logger

	mu    sync.RWMutex
	books map[string]*bookState
}

// NewController creates a controller with empty state.
func NewController(cfg Config, log *zap.Logger) *Controller {
	if cfg.Outlier == nil {
		cfg.Outlier = MedianDistanceOutlier(1.5)
	}
	if cfg.Step <= 0 {
		cfg.Step = 0.25
	}
	if cfg.MaxSpreadMult < 1 {
		cfg.MaxSpreadMult = 1
	}
	if cfg.SizeFloor < 0 || cfg.SizeFloor > 1 {
		cfg.SizeFloor = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{cfg: cfg, log: log, books: make(map[string]*bookState)}
}

// Throttle returns the previous cycle's throttle for the market. Unknown
// markets are neutral.
func (c *Controller) Throttle(marketID string) Throttle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if b, ok := c.books[marketID]; ok {
		return b.throttle
	}
	return Neutral
}

// Observe records one market's realized per-cycle return and traded
// volume. Called sequentially at cycle end, before EndCycle.
func (c *Controller) Observe(marketID string, realizedReturn, tradedVolume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.books[marketID]
	if !ok {
		b = &bookState{throttle: Neutral}
		c.books[marketID] = b
	}
	b.returns = append(b.returns, realizedReturn)
	if len(b.returns) > c.cfg.Window {
		b.returns = b.returns[1:]
	}
	b.volumes = append(b.volumes, tradedVolume)
	if len(b.volumes) > c.cfg.Window {
		b.volumes = b.volumes[1:]
	}
}

// EndCycle recomputes cross-market statistics and updates throttles.
// Single writer; runs after all per-market work has completed.
func (c *Controller) EndCycle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := make([]MarketStats, 0, len(c.books))
	eligible := make(map[string]MarketStats)
	for id, b := range c.books {
		s := c.stats(id, b)
		if s.Samples >= c.cfg.MinSamples {
			stats = append(stats, s)
			eligible[id] = s
		}
	}

	for id, b := range c.books {
		s, ok := eligible[id]
		if !ok {
			// Too few samples: neutral, no override.
			b.throttle = Neutral
			b.recovery = 0
			continue
		}
		if c.cfg.Outlier(s, stats) {
			if !b.throttle.Outlier {
				c.log.Warn("market flagged outlier",
					zap.String("market", id),
					zap.Float64("sharpe", s.Sharpe),
					zap.Float64("volume_ratio", s.VolumeRatio))
			}
			b.recovery = 0
			b.throttle = c.tighten(b.throttle)
			continue
		}
		if b.throttle.Outlier {
			// Hysteresis: hold the throttle until the market has been
			// clean for RecoveryCycles in a row.
			b.recovery++
			if b.recovery >= c.cfg.RecoveryCycles {
				c.log.Info("market throttle released", zap.String("market", id))
				b.throttle = Neutral
				b.recovery = 0
			}
			continue
		}
		// Volume discipline applies even to healthy markets: quoting is
		// shrunk once the rolling volume overshoots the target.
		b.throttle = volumeAdjust(Neutral, s.VolumeRatio, c.cfg.SizeFloor)
	}
}

func (c *Controller) tighten(t Throttle) Throttle {
	if !t.Outlier {
		t = Throttle{SpreadMult: 1, SizeMult: 1, Outlier: true}
	}
	t.SpreadMult = math.Min(c.cfg.MaxSpreadMult, t.SpreadMult*(1+c.cfg.Step))
	t.SizeMult = math.Max(c.cfg.SizeFloor, t.SizeMult*(1-c.cfg.Step))
	t.Outlier = true
	return t
}

func volumeAdjust(t Throttle, ratio, floor float64) Throttle {
	if ratio > 1 {
		t.SizeMult = math.Max(floor, math.Min(t.SizeMult, 1/ratio))
	}
	return t
}

func (c *Controller) stats(id string, b *bookState) MarketStats {
	s := MarketStats{Market: id, Samples: len(b.returns)}
	if s.Samples == 0 {
		return s
	}
	for _, r := range b.returns {
		s.Mean += r
	}
	s.Mean /= float64(s.Samples)
	s.Std = stddev(b.returns)
	if s.Std > 0 {
		s.Sharpe = s.Mean / s.Std
	} else {
		s.Sharpe = 0
	}
	if c.cfg.TargetVolume > 0 {
		total := 0.0
		for _, v := range b.volumes {
			total += v
		}
		s.VolumeRatio = total / c.cfg.TargetVolume
	}
	return s
}

// Stats returns the current summary for one market, for diagnostics.
func (c *Controller) Stats(marketID string) (MarketStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.books[marketID]
	if !ok {
		return MarketStats{}, false
	}
	return c.stats(marketID, b), true
}
