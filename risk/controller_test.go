package risk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Window:         10,
		MinSamples:     3,
		RecoveryCycles: 2,
		Step:           0.5,
		MaxSpreadMult:  3,
		SizeFloor:      0.2,
	}
}

// feed pushes n cycles of identical returns for a set of markets, with
// one laggard receiving lagRet instead, and runs EndCycle after each.
func feed(c *Controller, n int, goodRet, lagRet float64) {
	for i := 0; i < n; i++ {
		for m := 0; m < 5; m++ {
			id := fmt.Sprintf("BOOK-%d", m)
			ret := goodRet
			if m == 0 {
				ret = lagRet
			}
			// Alternate sign noise so stddev is nonzero.
			if i%2 == 0 {
				ret += 0.001
			} else {
				ret -= 0.001
			}
			c.Observe(id, ret, 1)
		}
		c.EndCycle()
	}
}

func TestNeutralBelowMinSamples(t *testing.T) {
	c := NewController(testConfig(), nil)
	c.Observe("BOOK-0", -0.5, 1)
	c.Observe("BOOK-1", 0.1, 1)
	c.EndCycle()

	assert.Equal(t, Neutral, c.Throttle("BOOK-0"))
	assert.Equal(t, Neutral, c.Throttle("UNKNOWN"))
}

func TestOutlierThrottleRampsAndClamps(t *testing.T) {
	c := NewController(testConfig(), nil)
	feed(c, 8, 0.002, -0.02)

	th := c.Throttle("BOOK-0")
	require.True(t, th.Outlier, "laggard market not flagged")
	assert.Greater(t, th.SpreadMult, 1.0)
	assert.Less(t, th.SizeMult, 1.0)
	assert.LessOrEqual(t, th.SpreadMult, 3.0)
	assert.GreaterOrEqual(t, th.SizeMult, 0.2)

	// Healthy markets stay neutral.
	assert.Equal(t, Neutral, c.Throttle("BOOK-1"))

	// Keep feeding: the throttle must clamp at the configured bounds.
	feed(c, 10, 0.002, -0.02)
	th = c.Throttle("BOOK-0")
	assert.InDelta(t, 3.0, th.SpreadMult, 1e-9)
	assert.InDelta(t, 0.2, th.SizeMult, 1e-9)
}

func TestHysteresisRelease(t *testing.T) {
	cfg := testConfig()
	cfg.Window = 4
	c := NewController(cfg, nil)
	feed(c, 8, 0.002, -0.02)
	require.True(t, c.Throttle("BOOK-0").Outlier)

	// One clean cycle can never release the throttle: the rolling window
	// still carries the bad returns and RecoveryCycles is 2.
	feed(c, 1, 0.002, 0.002)
	assert.True(t, c.Throttle("BOOK-0").Outlier, "throttle released too early")

	// The throttle is released only after the window flushes and the
	// market stays clean for RecoveryCycles consecutive cycles.
	released := -1
	for i := 0; i < 12; i++ {
		feed(c, 1, 0.002, 0.002)
		if !c.Throttle("BOOK-0").Outlier {
			released = i
			break
		}
	}
	require.NotEqual(t, -1, released, "throttle never released")
	assert.GreaterOrEqual(t, released+1, cfg.RecoveryCycles)
	assert.Equal(t, Neutral, c.Throttle("BOOK-0"))
}

func TestVolumeOvershootShrinksSize(t *testing.T) {
	cfg := testConfig()
	cfg.TargetVolume = 10
	c := NewController(cfg, nil)

	for i := 0; i < 5; i++ {
		for m := 0; m < 4; m++ {
			ret := 0.001
			if i%2 == 0 {
				ret = -0.001
			}
			c.Observe(fmt.Sprintf("BOOK-%d", m), ret, 5) // 25 over the window vs target 10
		}
		c.EndCycle()
	}

	th := c.Throttle("BOOK-1")
	assert.False(t, th.Outlier)
	assert.Less(t, th.SizeMult, 1.0)
	assert.GreaterOrEqual(t, th.SizeMult, cfg.SizeFloor)
	assert.Equal(t, 1.0, th.SpreadMult)
}

func TestOutlierPredicates(t *testing.T) {
	all := []MarketStats{
		{Sharpe: 1.0}, {Sharpe: 1.1}, {Sharpe: 0.9},
		{Sharpe: 1.05}, {Sharpe: -3.0},
	}

	median := MedianDistanceOutlier(1.0)
	assert.True(t, median(all[4], all))
	assert.False(t, median(all[0], all))

	iqr := IQROutlier(1.5)
	assert.True(t, iqr(all[4], all))
	assert.False(t, iqr(all[1], all))

	// Degenerate distributions never flag.
	flat := []MarketStats{{Sharpe: 1}, {Sharpe: 1}, {Sharpe: 1}, {Sharpe: 1}}
	assert.False(t, median(flat[0], flat))
	assert.False(t, iqr(flat[0], flat))
}
