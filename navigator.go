package quire

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/quireader/quire/mailbox"
)

const (
	// prefetchBehind and prefetchAhead define the prefetch window around
	// the current position.
	prefetchBehind = 2
	prefetchAhead  = 4
)

// Navigator is the viewport/navigation policy: it decides the current page
// number and the prefetch window and issues the matching commands. One-page
// documents are displayed alone; everything else as a left/right pair.
//
// A Navigator lives on the shell's goroutine and is not safe for
// concurrent use.
type Navigator struct {
	sender    *mailbox.Sender
	current   int
	pageCount int
	height    int

	// submitted tracks pages already sent as full-height jobs at the
	// current display height, so repeated draw callbacks don't flood the
	// job queue with work the cache would no-op anyway.
	submitted *roaring.Bitmap
}

// NewNavigator creates a Navigator over a mailbox sender. The navigator
// takes ownership of the sender and closes it in Close.
func NewNavigator(sender *mailbox.Sender, pageCount int) *Navigator {
	return &Navigator{
		sender:    sender,
		pageCount: pageCount,
		submitted: roaring.New(),
	}
}

// CurrentPage returns the current (left) page number.
func (n *Navigator) CurrentPage() int { return n.current }

// PageCount returns the document's page count.
func (n *Navigator) PageCount() int { return n.pageCount }

// PairMode reports whether pages are displayed two-up.
func (n *Navigator) PairMode() bool { return n.pageCount > 1 }

// SetDisplayHeight records the viewport height used for full renders.
// Changing it invalidates the submitted-jobs memo: everything needs a
// fresh render at the new height.
func (n *Navigator) SetDisplayHeight(h int) {
	if h == n.height {
		return
	}
	n.height = h
	n.submitted.Clear()
}

// NextPage advances by one page, holding position when the pair at the end
// of the document is already visible.
func (n *Navigator) NextPage() {
	if n.current >= n.pageCount-2 {
		return
	}
	n.current++
}

// PrevPage steps back one page, holding at the first page.
func (n *Navigator) PrevPage() {
	if n.current > 0 {
		n.current--
	}
}

// JumpTo moves directly to the given page, clamped into range.
func (n *Navigator) JumpTo(pageNumber int) {
	if pageNumber < 0 {
		pageNumber = 0
	}
	if last := n.pageCount - 2; n.pageCount > 1 && pageNumber > last {
		pageNumber = last
	}
	if n.pageCount == 1 {
		pageNumber = 0
	}
	n.current = pageNumber
}

// RequestDraw issues exactly one retrieve command describing the current
// viewport: a single page for one-page documents, otherwise the pair at
// the current position.
func (n *Navigator) RequestDraw() error {
	var cmd mailbox.Command
	if n.PairMode() {
		cmd = mailbox.RetrievePair{Left: n.current, Height: n.height}
	} else {
		cmd = mailbox.RetrieveSingle{PageNumber: n.current, Height: n.height}
	}
	return translateError(n.sender.Retrieve(cmd))
}

// CacheInitial queues the first visible pages right after opening, before
// any draw has happened.
func (n *Navigator) CacheInitial() error {
	return n.submitJobs([]int{n.current, n.current + 1})
}

// CacheSurrounding queues the prefetch window: the two pages behind and
// the four ahead of the current position. Shells call it after every
// completed draw.
func (n *Navigator) CacheSurrounding() error {
	window := make([]int, 0, prefetchBehind+prefetchAhead)
	for i := n.current - prefetchBehind; i < n.current+prefetchAhead; i++ {
		if i >= 0 {
			window = append(window, i)
		}
	}
	return n.submitJobs(window)
}

func (n *Navigator) submitJobs(pages []int) error {
	fresh := pages[:0]
	for _, p := range pages {
		if !n.submitted.ContainsInt(p) {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	if err := n.sender.CacheJobs(fresh, n.height); err != nil {
		return translateError(err)
	}
	for _, p := range fresh {
		n.submitted.AddInt(p)
	}
	return nil
}

// Close releases the navigator's sender handle.
func (n *Navigator) Close() error {
	return n.sender.Close()
}
