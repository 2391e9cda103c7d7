package quire

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/quireader/quire/document"
	"github.com/quireader/quire/mailbox"
	"github.com/quireader/quire/pagecache"
)

// Session ties one opened document to its page cache, command mailbox and
// worker loop. The document handle is owned by the worker goroutine; no
// other component may call into it while the session is open.
type Session struct {
	cache   *pagecache.Cache
	mbox    *mailbox.Mailbox
	sender  *mailbox.Sender
	sub     Subscriber
	logger  *Logger
	metrics MetricsCollector

	pollInterval time.Duration
	cancel       context.CancelFunc
	done         chan struct{}
}

// Open creates a session over the document and starts its worker loop.
// subscriber receives every CacheResponse; it runs on the worker goroutine
// and must not block.
//
// Close the session when the document is closed. The worker also terminates
// on its own once every sender (including the session's internal one) has
// been closed and the mailbox is drained.
func Open(doc document.Document, subscriber Subscriber, optFns ...Option) *Session {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	if subscriber == nil {
		subscriber = func(CacheResponse) {}
	}

	metrics := o.metrics
	cache := pagecache.New(doc, o.renderer, pagecache.Config{
		MaxStoredPages:    o.maxStoredPages,
		PlaceholderHeight: o.placeholderHeight,
		Logger:            o.logger.Logger,
		OnEvict:           metrics.RecordEviction,
	})
	mbox := mailbox.New(o.placeholderHeight, o.maxQueuedJobs)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cache:        cache,
		mbox:         mbox,
		sender:       mbox.NewSender(),
		sub:          subscriber,
		logger:       o.logger,
		metrics:      metrics,
		pollInterval: o.pollInterval,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// NewSender returns an additional producer handle into the session's
// mailbox, for shells that submit commands from outside a Navigator.
// Callers must Close it when done or the worker never terminates on its
// own.
func (s *Session) NewSender() *mailbox.Sender {
	return s.mbox.NewSender()
}

// Navigator returns a navigation policy bound to this session's mailbox
// and the given page count. The navigator owns its sender; Close it when
// the shell drops it.
func (s *Session) Navigator(pageCount int) *Navigator {
	return NewNavigator(s.mbox.NewSender(), pageCount)
}

// Retrieve submits a display request through the session's own sender.
func (s *Session) Retrieve(cmd mailbox.Command) error {
	return translateError(s.sender.Retrieve(cmd))
}

// CacheJobs submits pre-render jobs through the session's own sender.
func (s *Session) CacheJobs(pageNumbers []int, height int) error {
	s.logger.LogCacheJobs(pageNumbers, height)
	return translateError(s.sender.CacheJobs(pageNumbers, height))
}

// CacheStats returns the cache's lookup hit/miss counters. Only meaningful
// once the worker has terminated; while it runs the counters race with it.
func (s *Session) CacheStats() (hits, misses int64) {
	return s.cache.Stats()
}

// Close closes the session's sender, cancels the worker and waits for it
// to terminate. Pending pre-render work is dropped. Closing twice is a
// no-op.
func (s *Session) Close() error {
	_ = s.sender.Close()
	s.cancel()
	<-s.done
	return nil
}

// run is the cooperative worker loop: two states, Running and Terminated.
// Each Running iteration pays a fixed pacing delay before pulling one
// command, keeping bulk pre-rendering from starving the display layer. An
// empty mailbox still pays the delay and polls again rather than blocking;
// the loop terminates when the mailbox reports done or the session context
// is cancelled.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	limiter := rate.NewLimiter(rate.Every(s.pollInterval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			s.logger.LogTerminated("cancelled")
			return
		}

		cmd, ok := s.mbox.ReceiveNext()
		if !ok {
			if s.mbox.Done() {
				s.logger.LogTerminated("all senders closed")
				return
			}
			continue
		}
		s.metrics.RecordQueueDepth(s.mbox.Depth())
		s.dispatch(cmd)
	}
}

// dispatch routes one command into the cache and turns the outcome into a
// response event. Failures are logged and swallowed: the worst case is a
// briefly blank page area until the viewport re-requests.
func (s *Session) dispatch(cmd mailbox.Command) {
	start := time.Now()

	switch c := cmd.(type) {
	case mailbox.RenderJob:
		notice := s.cache.Render(c.PageNumber, c.Height)
		upgraded := notice != nil
		s.metrics.RecordRender(c.PageNumber, c.Height, time.Since(start), upgraded)
		s.logger.LogRender(c.PageNumber, c.Height, time.Since(start), upgraded)
		if upgraded {
			s.sub(ResolutionUpgraded{PageNumber: notice.PageNumber, Page: notice.Page})
		}

	case mailbox.RetrieveSingle:
		page, err := s.cache.GetOrRender(c.PageNumber, c.Height)
		s.metrics.RecordRetrieve(c.PageNumber, time.Since(start), err)
		s.logger.LogRetrieve(c.PageNumber, err)
		if err != nil {
			return
		}
		s.sub(SinglePage{Page: page})

	case mailbox.RetrievePair:
		left, err := s.cache.GetOrRender(c.Left, c.Height)
		s.metrics.RecordRetrieve(c.Left, time.Since(start), err)
		s.logger.LogRetrieve(c.Left, err)
		if err != nil {
			return
		}
		right, err := s.cache.GetOrRender(c.Left+1, c.Height)
		if err != nil {
			// Right page absent: the last page of an odd-count document
			// is shown alone.
			s.logger.LogRetrieve(c.Left+1, err)
			s.sub(SinglePage{Page: left})
			return
		}
		s.sub(PagePair{Left: left, Right: right})
	}
}
