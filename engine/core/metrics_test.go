package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_AverageBeforeWindowFills(t *testing.T) {
	m := NewMetrics()
	m.Update(10 * time.Millisecond)
	m.Update(30 * time.Millisecond)

	assert.Equal(t, 20*time.Millisecond, m.Average())
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, 40*time.Millisecond, m.Total())
}

func TestMetrics_WindowDropsOldestSample(t *testing.T) {
	m := NewMetrics()
	m.Update(time.Second)
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(time.Millisecond)
	}

	assert.Equal(t, time.Millisecond, m.Average())
	assert.Equal(t, int(AVG_COUNT)+1, m.Count())
}
