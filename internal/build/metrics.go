package build

import (
	"sync"
	"time"
)

// BuildMetrics tracks build pipeline performance.
type BuildMetrics struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	CacheHits        int64
	CompiledBindings int64
	ClassicBindings  int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	mutex            sync.RWMutex
}

// record updates the metrics from one build result.
func (m *BuildMetrics) record(result BuildResult) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalBuilds++
	m.TotalDuration += result.Duration

	if result.CacheHit {
		m.CacheHits++
	}

	if result.Failed() {
		m.FailedBuilds++
	} else {
		m.SuccessfulBuilds++
	}

	m.CompiledBindings += int64(result.CompiledCount)
	m.ClassicBindings += int64(result.ClassicCount)

	if m.TotalBuilds > 0 {
		m.AverageDuration = m.TotalDuration / time.Duration(m.TotalBuilds)
	}
}

// Snapshot returns a copy of the current metrics.
func (m *BuildMetrics) Snapshot() BuildMetrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return BuildMetrics{
		TotalBuilds:      m.TotalBuilds,
		SuccessfulBuilds: m.SuccessfulBuilds,
		FailedBuilds:     m.FailedBuilds,
		CacheHits:        m.CacheHits,
		CompiledBindings: m.CompiledBindings,
		ClassicBindings:  m.ClassicBindings,
		AverageDuration:  m.AverageDuration,
		TotalDuration:    m.TotalDuration,
	}
}
