package quire

import "github.com/quireader/quire/pagecache"

// CacheResponse is a tagged outcome delivered to the subscriber callback.
//
// The callback runs synchronously on the worker goroutine and must not
// block. It may be invoked for pages that are no longer the current
// viewport; check relevance (page identity) before mutating display state.
type CacheResponse interface {
	isResponse()
}

// SinglePage carries one retrieved page for display.
type SinglePage struct {
	Page *pagecache.RenderedPage
}

// PagePair carries a left/right pair for side-by-side display.
type PagePair struct {
	Left  *pagecache.RenderedPage
	Right *pagecache.RenderedPage
}

// ResolutionUpgraded reports that a cached page was re-rendered at a higher
// height. Shells displaying the page hot-swap the old handle for Page.
type ResolutionUpgraded struct {
	PageNumber int
	Page       *pagecache.RenderedPage
}

func (SinglePage) isResponse()         {}
func (PagePair) isResponse()           {}
func (ResolutionUpgraded) isResponse() {}

// Subscriber receives cache responses from the worker loop.
type Subscriber func(CacheResponse)
