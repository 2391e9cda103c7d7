// Package mailbox implements the dual-priority command queue between a
// viewer shell and the cache worker.
//
// Retrieve commands ("show this now") and render jobs ("have this ready
// later") live in separate collections with different discard semantics:
// only the newest retrieve is ever serviced, while jobs drain in a
// placeholder-first deque order. All handles share one mutex-guarded state,
// so producers may live on a different goroutine than the worker.
package mailbox

import (
	"errors"
	"sync"
)

// ErrSenderClosed is returned when submitting through a closed Sender.
var ErrSenderClosed = errors.New("mailbox: sender closed")

// Command is one unit of work for the cache worker.
type Command interface {
	isCommand()
}

// RetrieveSingle asks for one page for immediate display.
type RetrieveSingle struct {
	PageNumber int
	Height     int
}

// RetrievePair asks for the pages Left and Left+1 for side-by-side display.
type RetrievePair struct {
	Left   int
	Height int
}

// RenderJob asks for one page to be pre-rendered at Height.
type RenderJob struct {
	PageNumber int
	Height     int
}

func (RetrieveSingle) isCommand() {}
func (RetrievePair) isCommand()   {}
func (RenderJob) isCommand()      {}

// Mailbox is the shared queue state. Create one per session with New, then
// hand out producer handles with NewSender.
type Mailbox struct {
	mu                sync.Mutex
	retrieves         []Command   // stack; only the top is ever serviced
	jobs              []RenderJob // deque; placeholders at the front
	senders           int
	placeholderHeight int
	maxJobs           int
}

// New creates a Mailbox. placeholderHeight is the height of the cheap
// first-pass jobs queued ahead of full-height ones. maxJobs caps the job
// deque; 0 means unbounded (a rapid navigation burst then grows the queue
// until the worker drains it).
func New(placeholderHeight, maxJobs int) *Mailbox {
	return &Mailbox{
		placeholderHeight: placeholderHeight,
		maxJobs:           maxJobs,
	}
}

// NewSender returns a new producer handle. The worker keeps running while
// at least one sender is open or commands remain queued.
func (m *Mailbox) NewSender() *Sender {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.senders++
	return &Sender{m: m}
}

// ReceiveNext returns the highest-priority pending command.
//
// A pending retrieve always preempts render jobs, and taking it discards
// any older retrieves buried beneath it: the last view request wins, the
// rest were superseded the moment it arrived. With no retrieve pending the
// front render job is returned. ok is false when nothing is queued.
func (m *Mailbox) ReceiveNext() (cmd Command, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := len(m.retrieves); n > 0 {
		cmd = m.retrieves[n-1]
		m.retrieves = m.retrieves[:0]
		return cmd, true
	}
	if len(m.jobs) > 0 {
		job := m.jobs[0]
		m.jobs = m.jobs[1:]
		return job, true
	}
	return nil, false
}

// Depth returns the number of queued commands.
func (m *Mailbox) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.retrieves) + len(m.jobs)
}

// Active reports whether at least one sender is still open.
func (m *Mailbox) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.senders > 0
}

// Done reports whether the mailbox is drained and all senders are closed,
// i.e. the worker may terminate.
func (m *Mailbox) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.senders == 0 && len(m.retrieves) == 0 && len(m.jobs) == 0
}

// Sender is a producer handle into a Mailbox. A Sender is not safe for
// concurrent use; hand out one per producer via NewSender instead of
// sharing. Close releases the handle; the worker terminates once every
// sender is closed and the queue is drained.
type Sender struct {
	m      *Mailbox
	closed bool
}

// Retrieve submits a display request. No deduplication happens here: a
// newer request simply buries older unserviced ones, which are dropped
// when the worker next receives.
func (s *Sender) Retrieve(cmd Command) error {
	if s.closed {
		return ErrSenderClosed
	}
	switch cmd.(type) {
	case RetrieveSingle, RetrievePair:
	default:
		return errors.New("mailbox: not a retrieve command")
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.retrieves = append(s.m.retrieves, cmd)
	return nil
}

// CacheJobs submits render jobs for a batch of page numbers at the given
// display height. Per page, a placeholder-height job goes to the front of
// the deque and the full-height job to the back. Across a batch the
// placeholders therefore end up newest-first ahead of every outstanding
// full-height job, while the full-height jobs queue behind in submission
// order.
func (s *Sender) CacheJobs(pageNumbers []int, height int) error {
	if s.closed {
		return ErrSenderClosed
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, n := range pageNumbers {
		s.m.jobs = append([]RenderJob{{PageNumber: n, Height: s.m.placeholderHeight}}, s.m.jobs...)
		s.m.jobs = append(s.m.jobs, RenderJob{PageNumber: n, Height: height})
		s.m.trimJobs()
	}
	return nil
}

// trimJobs enforces maxJobs by dropping the oldest full-height job, which
// is the stalest work queued: its batch was submitted longest ago and its
// placeholder has long since run or been queued ahead of it. Placeholders
// are never dropped. Callers must hold mu.
func (m *Mailbox) trimJobs() {
	if m.maxJobs <= 0 {
		return
	}
	for len(m.jobs) > m.maxJobs {
		dropped := false
		for i, j := range m.jobs {
			if j.Height != m.placeholderHeight {
				m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			return
		}
	}
}

// Close marks the sender closed. Closing twice is a no-op.
func (s *Sender) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.senders--
	return nil
}
