package quire

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics
// from the cache worker. Implement it to integrate with monitoring systems
// like Prometheus.
type MetricsCollector interface {
	// RecordRender is called after each render job. upgraded reports
	// whether the job replaced an already-displayed lower-res entry.
	RecordRender(pageNumber, height int, duration time.Duration, upgraded bool)

	// RecordRetrieve is called after each retrieve command.
	// err is nil when the page (or pair) was served.
	RecordRetrieve(pageNumber int, duration time.Duration, err error)

	// RecordEviction is called for every page dropped from the cache.
	RecordEviction(pageNumber int)

	// RecordQueueDepth is called once per worker iteration with the number
	// of commands still pending after the current one was taken.
	RecordQueueDepth(depth int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRender(int, int, time.Duration, bool) {}
func (NoopMetricsCollector) RecordRetrieve(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordEviction(int)                        {}
func (NoopMetricsCollector) RecordQueueDepth(int)                      {}

// AtomicMetricsCollector counts events with atomics. Useful as a cheap
// built-in collector and in tests.
type AtomicMetricsCollector struct {
	Renders        atomic.Int64
	Upgrades       atomic.Int64
	Retrieves      atomic.Int64
	RetrieveMisses atomic.Int64
	Evictions      atomic.Int64
	MaxQueueDepth  atomic.Int64
}

func (c *AtomicMetricsCollector) RecordRender(_, _ int, _ time.Duration, upgraded bool) {
	c.Renders.Add(1)
	if upgraded {
		c.Upgrades.Add(1)
	}
}

func (c *AtomicMetricsCollector) RecordRetrieve(_ int, _ time.Duration, err error) {
	c.Retrieves.Add(1)
	if err != nil {
		c.RetrieveMisses.Add(1)
	}
}

func (c *AtomicMetricsCollector) RecordEviction(int) {
	c.Evictions.Add(1)
}

func (c *AtomicMetricsCollector) RecordQueueDepth(depth int) {
	for {
		cur := c.MaxQueueDepth.Load()
		if int64(depth) <= cur || c.MaxQueueDepth.CompareAndSwap(cur, int64(depth)) {
			return
		}
	}
}
