package alert

import (
	"fmt"

	"go.uber.org/zap"
)

// ZapChannel writes alerts into the engine's structured log.
type ZapChannel struct {
	log  *zap.Logger
	name string
}

// NewZapChannel creates a channel backed by the given logger.
func NewZapChannel(name string, log *zap.Logger) *ZapChannel {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapChannel{log: log, name: name}
}

func (c *ZapChannel) Send(a Alert) error {
	fields := make([]zap.Field, 0, len(a.Fields)+1)
	fields = append(fields, zap.Time("alert_ts", a.Timestamp))
	for k, v := range a.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	switch a.Level {
	case "ERROR", "CRITICAL":
		c.log.Error(a.Message, fields...)
	case "WARNING":
		c.log.Warn(a.Message, fields...)
	default:
		c.log.Info(a.Message, fields...)
	}
	return nil
}

func (c *ZapChannel) Name() string { return c.name }

// MockChannel records alerts for tests.
type MockChannel struct {
	name      string
	alerts    []Alert
	shouldErr bool
}

// NewMockChannel creates a recording channel.
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (c *MockChannel) Send(a Alert) error {
	if c.shouldErr {
		return fmt.Errorf("mock error")
	}
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *MockChannel) Name() string { return c.name }

// Alerts returns everything received.
func (c *MockChannel) Alerts() []Alert { return c.alerts }

// Count returns the number of alerts received.
func (c *MockChannel) Count() int { return len(c.alerts) }

// SetShouldError makes Send fail.
func (c *MockChannel) SetShouldError(v bool) { c.shouldErr = v }
