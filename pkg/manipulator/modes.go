// Package manipulator implements a UDP proxy placed between devices and
// the device service which degrades the link on demand: data can be cut,
// delayed, or randomly dropped in both directions.
package manipulator

import (
	"math/rand"
	"sync"
	"time"
)

// Modes is the current link degradation. It's safe for concurrent use.
type Modes struct {
	// Rand returns a value in [0, 1), math/rand if nil.
	Rand func() float64

	lock    sync.RWMutex
	data    bool
	latency int
	loss    int
}

// NewModes creates Modes with data on, no latency and no loss.
func NewModes() *Modes {
	return &Modes{data: true}
}

// SetData turns data "on" or "off", any other action toggles.
// It returns the new state.
func (m *Modes) SetData(action string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	switch action {
	case "on":
		m.data = true
	case "off":
		m.data = false
	default:
		m.data = !m.data
	}
	return m.data
}

// SetLatency sets the delay in milliseconds, 0 forwards immediately.
func (m *Modes) SetLatency(ms int) int {
	if ms < 0 {
		ms = 0
	}
	m.lock.Lock()
	m.latency = ms
	m.lock.Unlock()
	return ms
}

// SetLoss sets the percentage of dropped packets, clamped to 0..100.
func (m *Modes) SetLoss(pct int) int {
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	m.lock.Lock()
	m.loss = pct
	m.lock.Unlock()
	return pct
}

// Data reports whether data is on.
func (m *Modes) Data() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.data
}

// Latency returns the configured delay.
func (m *Modes) Latency() time.Duration {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return time.Duration(m.latency) * time.Millisecond
}

// Loss returns the loss percentage.
func (m *Modes) Loss() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.loss
}

// Pass decides whether a packet goes through.
func (m *Modes) Pass() bool {
	m.lock.RLock()
	data, loss := m.data, m.loss
	m.lock.RUnlock()
	if !data {
		return false
	}
	if loss <= 0 {
		return true
	}
	random := rand.Float64
	if m.Rand != nil {
		random = m.Rand
	}
	return random()*100 >= float64(loss)
}
