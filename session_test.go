package quire

import (
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quireader/quire/document"
	"github.com/quireader/quire/mailbox"
	"github.com/quireader/quire/pagecache"
)

const testTimeout = 2 * time.Second

type fakeDoc struct {
	pages int
}

func (d *fakeDoc) PageCount() int { return d.pages }

func (d *fakeDoc) Page(number int) (document.Page, error) {
	if number < 0 || number >= d.pages {
		return nil, fmt.Errorf("%w: page %d", document.ErrPageNotFound, number)
	}
	return &fakePage{}, nil
}

type fakePage struct{}

func (p *fakePage) Size() (float64, float64) { return 100, 200 }

func (p *fakePage) RenderAt(scale float64) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, int(100*scale), int(200*scale))), nil
}

func openTestSession(t *testing.T, pages int, opts ...Option) (*Session, chan CacheResponse) {
	t.Helper()
	responses := make(chan CacheResponse, 64)
	opts = append(opts, WithPollInterval(100*time.Microsecond))
	s := Open(&fakeDoc{pages: pages}, func(r CacheResponse) { responses <- r }, opts...)
	t.Cleanup(func() { s.Close() })
	return s, responses
}

func nextResponse(t *testing.T, ch chan CacheResponse) CacheResponse {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for cache response")
		return nil
	}
}

func TestRetrievePair(t *testing.T) {
	s, responses := openTestSession(t, 10)

	require.NoError(t, s.Retrieve(mailbox.RetrievePair{Left: 2, Height: 400}))

	r := nextResponse(t, responses)
	pair, ok := r.(PagePair)
	require.True(t, ok, "expected PagePair, got %T", r)
	assert.Equal(t, 2, pair.Left.PageNumber)
	assert.Equal(t, 3, pair.Right.PageNumber)

	// Uncached pages come back as synchronous placeholder renders; the
	// queued full-height work upgrades them later.
	assert.Equal(t, pagecache.DefaultPlaceholderHeight, pair.Left.Height)
	assert.Equal(t, pagecache.DefaultPlaceholderHeight, pair.Right.Height)
}

func TestRetrievePairFallsBackToSingle(t *testing.T) {
	// Left page is the last page of the document: no right page exists,
	// so the viewer shows it alone.
	s, responses := openTestSession(t, 3)

	require.NoError(t, s.Retrieve(mailbox.RetrievePair{Left: 2, Height: 400}))

	r := nextResponse(t, responses)
	single, ok := r.(SinglePage)
	require.True(t, ok, "expected SinglePage, got %T", r)
	assert.Equal(t, 2, single.Page.PageNumber)
}

func TestRetrieveSingle(t *testing.T) {
	s, responses := openTestSession(t, 1)

	require.NoError(t, s.Retrieve(mailbox.RetrieveSingle{PageNumber: 0, Height: 400}))

	r := nextResponse(t, responses)
	single, ok := r.(SinglePage)
	require.True(t, ok, "expected SinglePage, got %T", r)
	assert.Equal(t, 0, single.Page.PageNumber)
}

func TestRetrieveMissIsSwallowed(t *testing.T) {
	s, responses := openTestSession(t, 3)

	// Out of range: no response, no failure, and the loop keeps serving.
	require.NoError(t, s.Retrieve(mailbox.RetrieveSingle{PageNumber: 9, Height: 400}))
	require.NoError(t, s.Retrieve(mailbox.RetrieveSingle{PageNumber: 1, Height: 400}))

	r := nextResponse(t, responses)
	single, ok := r.(SinglePage)
	require.True(t, ok, "expected SinglePage, got %T", r)
	assert.Equal(t, 1, single.Page.PageNumber)
	assert.Empty(t, responses)
}

func TestCacheJobUpgradeNotice(t *testing.T) {
	s, responses := openTestSession(t, 10)

	// The batch queues placeholder(4) ahead of full(4): the first render
	// is fresh (no event), the second upgrades it.
	require.NoError(t, s.CacheJobs([]int{4}, 400))

	r := nextResponse(t, responses)
	up, ok := r.(ResolutionUpgraded)
	require.True(t, ok, "expected ResolutionUpgraded, got %T", r)
	assert.Equal(t, 4, up.PageNumber)
	assert.Equal(t, 400, up.Page.Height)
}

func TestMetricsCollection(t *testing.T) {
	mc := &AtomicMetricsCollector{}
	s, responses := openTestSession(t, 10, WithMetricsCollector(mc))

	require.NoError(t, s.CacheJobs([]int{0}, 400))
	nextResponse(t, responses) // the upgrade event

	require.NoError(t, s.Retrieve(mailbox.RetrieveSingle{PageNumber: 0, Height: 400}))
	nextResponse(t, responses)

	assert.Equal(t, int64(2), mc.Renders.Load())
	assert.Equal(t, int64(1), mc.Upgrades.Load())
	assert.Equal(t, int64(1), mc.Retrieves.Load())
	assert.Zero(t, mc.RetrieveMisses.Load())
}

func TestWorkerTerminatesWhenSendersClose(t *testing.T) {
	responses := make(chan CacheResponse, 16)
	s := Open(&fakeDoc{pages: 5}, func(r CacheResponse) { responses <- r },
		WithPollInterval(100*time.Microsecond))

	extra := s.NewSender()
	require.NoError(t, extra.CacheJobs([]int{0}, 200))
	require.NoError(t, extra.Close())
	require.NoError(t, s.sender.Close())

	select {
	case <-s.done:
	case <-time.After(testTimeout):
		t.Fatal("worker loop did not terminate after all senders closed")
	}

	// Queued work submitted before the close was still drained.
	hits, misses := s.CacheStats()
	assert.Zero(t, hits+misses, "jobs do not touch the lookup counters")
	assert.ErrorIs(t, s.Retrieve(mailbox.RetrieveSingle{PageNumber: 0}), ErrClosed)
}

func TestCloseIsPrompt(t *testing.T) {
	s := Open(&fakeDoc{pages: 5}, nil, WithPollInterval(50*time.Millisecond))

	start := time.Now()
	require.NoError(t, s.Close())
	assert.Less(t, time.Since(start), testTimeout)

	assert.ErrorIs(t, s.CacheJobs([]int{1}, 200), ErrClosed)
}
