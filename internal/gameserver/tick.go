package gameserver

import (
	"context"
	"sync"
	"time"
)

// TickFunc receives the elapsed wall-clock seconds since the previous tick.
type TickFunc func(dt float64)

// TickManager runs a periodic tick for each registered callback.
// Callbacks run sequentially in the manager's goroutine, in registration order.
//
// Invariant: all callbacks are invoked at most once per tick interval.
type TickManager struct {
	interval time.Duration
	now      func() time.Time
	mu       sync.Mutex
	order    []string
	ticks    map[string]TickFunc
}

// NewTickManager returns a manager that fires ticks every interval.
//
// Precondition: interval must be > 0.
func NewTickManager(interval time.Duration) *TickManager {
	if interval <= 0 {
		panic("gameserver.NewTickManager: interval must be > 0")
	}
	return &TickManager{
		interval: interval,
		now:      time.Now,
		ticks:    make(map[string]TickFunc),
	}
}

// RegisterTick registers fn under id. Replaces any existing callback
// without changing its position.
func (m *TickManager) RegisterTick(id string, fn TickFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ticks[id]; !ok {
		m.order = append(m.order, id)
	}
	m.ticks[id] = fn
}

// Unregister removes the tick callback for id.
func (m *TickManager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ticks[id]; !ok {
		return
	}
	delete(m.ticks, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Start runs the tick loop in a new goroutine until ctx is cancelled.
func (m *TickManager) Start(ctx context.Context) {
	go m.Run(ctx)
}

// Run blocks, firing ticks until ctx is cancelled.
//
// Postcondition: all registered tick callbacks are invoked once per interval
// with the measured elapsed time.
func (m *TickManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	last := m.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := m.now()
			m.Fire(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Fire invokes every registered callback once with dt.
func (m *TickManager) Fire(dt float64) {
	m.mu.Lock()
	callbacks := make([]TickFunc, 0, len(m.order))
	for _, id := range m.order {
		callbacks = append(callbacks, m.ticks[id])
	}
	m.mu.Unlock()
	for _, fn := range callbacks {
		fn(dt)
	}
}
