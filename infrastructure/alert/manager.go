// Package alert fans operational alerts out to configured channels with
// per-message throttling.
package alert

import (
	"fmt"
	"sync"
	"time"
)

// Alert is one operational event.
type Alert struct {
	Level     string // INFO, WARNING, ERROR, CRITICAL
	Message   string
	Timestamp time.Time
	Fields    map[string]interface{}
}

// Channel delivers alerts to one destination.
type Channel interface {
	Send(alert Alert) error
	Name() string
}

// Throttler suppresses repeats of the same alert within an interval.
type Throttler struct {
	lastSent map[string]time.Time
	interval time.Duration
	mu       sync.Mutex
}

// NewThrottler creates a throttler.
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{lastSent: make(map[string]time.Time), interval: interval}
}

// Allow reports whether the keyed alert may be sent now, recording the
// send time when it may.
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSent[key] = now
	return true
}

// Clear drops all throttle records.
func (t *Throttler) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = make(map[string]time.Time)
}

// Manager routes alerts to all channels.
type Manager struct {
	channels []Channel
	throttle *Throttler
	mu       sync.RWMutex
}

// NewManager creates a manager over the given channels.
func NewManager(channels []Channel, throttleInterval time.Duration) *Manager {
	return &Manager{channels: channels, throttle: NewThrottler(throttleInterval)}
}

// Send delivers the alert to every channel, throttled by level+message.
// It returns an error only when every channel failed.
func (m *Manager) Send(a Alert) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	key := a.Level + ":" + a.Message
	if !m.throttle.Allow(key) {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	sent := 0
	for _, ch := range m.channels {
		if err := ch.Send(a); err != nil {
			lastErr = fmt.Errorf("channel %s: %w", ch.Name(), err)
		} else {
			sent++
		}
	}
	if sent == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// Warning sends a WARNING alert.
func (m *Manager) Warning(message string, fields map[string]interface{}) error {
	return m.Send(Alert{Level: "WARNING", Message: message, Fields: fields})
}

// Error sends an ERROR alert.
func (m *Manager) Error(message string, fields map[string]interface{}) error {
	return m.Send(Alert{Level: "ERROR", Message: message, Fields: fields})
}

// Critical sends a CRITICAL alert.
func (m *Manager) Critical(message string, fields map[string]interface{}) error {
	return m.Send(Alert{Level: "CRITICAL", Message: message, Fields: fields})
}

// AddChannel appends a channel at runtime.
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}
