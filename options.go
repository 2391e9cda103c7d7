package quire

import (
	"time"

	"github.com/quireader/quire/pagecache"
	"github.com/quireader/quire/render"
)

const (
	// DefaultMaxStoredPages bounds the page cache. Large enough for the
	// prefetch window plus the displayed pair on both flip directions.
	DefaultMaxStoredPages = 10

	// DefaultPollInterval is the per-iteration delay of the worker loop.
	// The delay yields scheduling priority to the display layer so bulk
	// pre-rendering cannot starve interactive redraw.
	DefaultPollInterval = time.Millisecond
)

type options struct {
	maxStoredPages    int
	placeholderHeight int
	pollInterval      time.Duration
	maxQueuedJobs     int
	renderer          render.Func
	logger            *Logger
	metrics           MetricsCollector
}

// Option configures Open.
type Option func(*options)

func defaultOptions() options {
	return options{
		maxStoredPages:    DefaultMaxStoredPages,
		placeholderHeight: pagecache.DefaultPlaceholderHeight,
		pollInterval:      DefaultPollInterval,
		renderer:          render.Compose,
		logger:            NoopLogger(),
		metrics:           NoopMetricsCollector{},
	}
}

// WithMaxStoredPages bounds the number of cached rendered pages. The bound
// is soft below 2: the two entries nearest the current page are never
// evicted. Values <= 0 keep the default.
func WithMaxStoredPages(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxStoredPages = n
		}
	}
}

// WithPlaceholderHeight sets the pixel height of first-pass placeholder
// renders. Pick something distinctly lower than any real display height so
// the follow-up full render always upgrades it.
func WithPlaceholderHeight(h int) Option {
	return func(o *options) {
		if h > 0 {
			o.placeholderHeight = h
		}
	}
}

// WithPollInterval sets the worker loop's per-iteration delay.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxQueuedJobs caps the pre-render job queue; the oldest full-height
// job is discarded when a submission would exceed the cap. 0 (the default)
// leaves the queue unbounded: a pathological navigation burst is drained
// or superseded rather than rejected.
func WithMaxQueuedJobs(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxQueuedJobs = n
		}
	}
}

// WithRenderer replaces the default compositor (render.Compose).
func WithRenderer(r render.Func) Option {
	return func(o *options) {
		if r != nil {
			o.renderer = r
		}
	}
}

// WithLogger sets the logger. If nil is passed, logging stays disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metrics = mc
		}
	}
}
