// Package pagecache implements a bounded store of pre-rendered page bitmaps
// keyed by page number.
//
// The cache is not safe for concurrent use. It is meant to be owned by a
// single worker goroutine together with the document handle it wraps.
package pagecache

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"

	"github.com/quireader/quire/document"
	"github.com/quireader/quire/render"
)

// DefaultPlaceholderHeight is the pixel height used for the cheap first-pass
// render of a page. It is deliberately far below any realistic display
// height so that a later full-height render always counts as an upgrade.
const DefaultPlaceholderHeight = 50

// ErrEmptyEvict reports an eviction attempt on a cache with fewer than two
// entries. Callers gate eviction on size, so this is an internal guard.
var ErrEmptyEvict = errors.New("pagecache: too few entries to evict")

// ErrPageUnavailable reports that a page could not be produced: the number
// is out of the document's range, or rendering it failed.
type ErrPageUnavailable struct {
	PageNumber int
	cause      error
}

func (e *ErrPageUnavailable) Error() string {
	return fmt.Sprintf("pagecache: page %d unavailable", e.PageNumber)
}

func (e *ErrPageUnavailable) Unwrap() error { return e.cause }

// ErrRenderFailure reports that the renderer adapter failed for a page that
// does exist in the document.
type ErrRenderFailure struct {
	PageNumber int
	Height     int
	cause      error
}

func (e *ErrRenderFailure) Error() string {
	return fmt.Sprintf("pagecache: render page %d at height %d: %v", e.PageNumber, e.Height, e.cause)
}

func (e *ErrRenderFailure) Unwrap() error { return e.cause }

// RenderedPage is an immutable bitmap handle for one page at one target
// height. Handles are shared: eviction only drops the cache's reference,
// it never invalidates a handle already delivered to a subscriber.
type RenderedPage struct {
	PageNumber int
	Height     int
	Image      image.Image
}

// UpgradeNotice reports that an already-cached page was re-rendered at a
// higher height, so a visible low-res placeholder can be hot-swapped.
type UpgradeNotice struct {
	PageNumber int
	Page       *RenderedPage
}

// Config carries the construction-time settings of a Cache.
type Config struct {
	// MaxStoredPages bounds the number of cached entries. The bound is
	// soft below 2: the two nearest entries are never evicted.
	MaxStoredPages int

	// PlaceholderHeight is the height of synchronous fallback renders.
	// Defaults to DefaultPlaceholderHeight.
	PlaceholderHeight int

	// Logger receives debug/warn records. Nil disables logging.
	Logger *slog.Logger

	// OnEvict, if set, is called with the page number of every entry
	// dropped by eviction.
	OnEvict func(pageNumber int)
}

// Cache is a bounded map from page number to rendered bitmap with a
// two-extremes distance eviction heuristic.
type Cache struct {
	doc    document.Document
	render render.Func

	maxStoredPages    int
	placeholderHeight int
	logger            *slog.Logger
	onEvict           func(int)

	pages map[int]*RenderedPage
	keys  []int // cached page numbers, ascending; drives eviction

	lastRequested int

	hits   int64
	misses int64
}

// New creates a Cache over the given document and renderer.
func New(doc document.Document, r render.Func, cfg Config) *Cache {
	if r == nil {
		r = render.Compose
	}
	if cfg.MaxStoredPages <= 0 {
		cfg.MaxStoredPages = 10
	}
	if cfg.PlaceholderHeight <= 0 {
		cfg.PlaceholderHeight = DefaultPlaceholderHeight
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		doc:               doc,
		render:            r,
		maxStoredPages:    cfg.MaxStoredPages,
		placeholderHeight: cfg.PlaceholderHeight,
		logger:            cfg.Logger,
		onEvict:           cfg.OnEvict,
		pages:             make(map[int]*RenderedPage),
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.pages) }

// Stats returns the lookup hit/miss counters.
func (c *Cache) Stats() (hits, misses int64) { return c.hits, c.misses }

// Get looks a page up without rendering. It records pageNumber as the
// anchor for eviction distance, so only display lookups should go through
// here; pre-render jobs call Render directly.
func (c *Cache) Get(pageNumber int) (*RenderedPage, bool) {
	c.lastRequested = pageNumber
	p, ok := c.pages[pageNumber]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return p, ok
}

// GetOrRender returns a cached page, synchronously rendering a placeholder
// on a miss. height is the height the caller will eventually display at;
// the fallback render itself uses the configured placeholder height so the
// page appears immediately and upgrades later.
func (c *Cache) GetOrRender(pageNumber, height int) (*RenderedPage, error) {
	if p, ok := c.Get(pageNumber); ok {
		return p, nil
	}
	c.logger.Debug("page miss, rendering placeholder",
		"page", pageNumber, "display_height", height)
	_, rerr := c.renderPage(pageNumber, c.placeholderHeight)
	if p, ok := c.Get(pageNumber); ok {
		return p, nil
	}
	return nil, &ErrPageUnavailable{PageNumber: pageNumber, cause: rerr}
}

// Render produces and caches the page at the given height. It is a no-op
// when the page is already cached at that height or better. When the render
// replaces an existing lower-height entry, Render returns an UpgradeNotice;
// otherwise it returns nil. Failures are logged, never returned: a page
// that cannot be rendered is simply absent.
func (c *Cache) Render(pageNumber, height int) *UpgradeNotice {
	notice, _ := c.renderPage(pageNumber, height)
	return notice
}

func (c *Cache) renderPage(pageNumber, height int) (*UpgradeNotice, error) {
	if prev, ok := c.pages[pageNumber]; ok && prev.Height >= height {
		return nil, nil
	}

	page, err := c.doc.Page(pageNumber)
	if err != nil {
		c.logger.Debug("page not in document", "page", pageNumber, "error", err)
		return nil, err
	}
	img, err := c.render([]document.Page{page}, height)
	if err != nil {
		c.logger.Warn("render failed", "page", pageNumber, "height", height, "error", err)
		return nil, &ErrRenderFailure{PageNumber: pageNumber, Height: height, cause: err}
	}

	_, upgraded := c.pages[pageNumber]
	rendered := &RenderedPage{PageNumber: pageNumber, Height: height, Image: img}
	c.insert(rendered)

	if len(c.pages) > c.maxStoredPages && len(c.pages) > 2 {
		if err := c.evictOne(); err != nil {
			c.logger.Warn("eviction failed", "error", err)
		}
	}

	if upgraded {
		return &UpgradeNotice{PageNumber: pageNumber, Page: rendered}, nil
	}
	return nil, nil
}

func (c *Cache) insert(p *RenderedPage) {
	if _, ok := c.pages[p.PageNumber]; !ok {
		i, _ := slices.BinarySearch(c.keys, p.PageNumber)
		c.keys = slices.Insert(c.keys, i, p.PageNumber)
	}
	c.pages[p.PageNumber] = p
}

// evictOne drops whichever of the two extreme cached page numbers is
// farther from the last requested page.
//
// This is a bounded approximation of "evict globally farthest": under a
// contiguous page-flipping pattern the farthest entry is always at one of
// the two ends of the ordered key set, but a closer page strictly between
// the extremes can outlive a moderately distant one. Intentional; the
// heuristic is part of the cache's contract.
func (c *Cache) evictOne() error {
	if len(c.keys) < 2 {
		return ErrEmptyEvict
	}

	lo := c.keys[0]
	hi := c.keys[len(c.keys)-1]

	dropped := lo
	if absDiff(c.lastRequested, lo) <= absDiff(c.lastRequested, hi) {
		dropped = hi
	}

	delete(c.pages, dropped)
	if dropped == lo {
		c.keys = c.keys[1:]
	} else {
		c.keys = c.keys[:len(c.keys)-1]
	}

	c.logger.Debug("evicted page",
		"page", dropped, "anchor", c.lastRequested, "cached", len(c.pages))
	if c.onEvict != nil {
		c.onEvict(dropped)
	}
	return nil
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
