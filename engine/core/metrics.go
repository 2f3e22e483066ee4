package core

import (
	"sync"
	"time"

	"github.com/spaghettifunk/batchrender/engine/containers"
)

const AVG_COUNT int = 30

// Metrics keeps a moving average of the last AVG_COUNT render times plus running totals.
type Metrics struct {
	mu      sync.Mutex
	samples *containers.RingQueue[time.Duration]
	window  time.Duration
	avg     time.Duration
	count   int
	total   time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{samples: containers.NewRingQueue[time.Duration](AVG_COUNT)}
}

func (m *Metrics) Update(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dropped, ok := m.samples.Push(elapsed); ok {
		m.window -= dropped
	}
	m.window += elapsed
	m.avg = m.window / time.Duration(m.samples.Len())

	m.count++
	m.total += elapsed
}

func (m *Metrics) Average() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avg
}

func (m *Metrics) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *Metrics) Total() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}
