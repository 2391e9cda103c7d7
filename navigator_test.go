package quire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quireader/quire/mailbox"
)

const testPlaceholder = 50

func newTestNavigator(pageCount int) (*Navigator, *mailbox.Mailbox) {
	mbox := mailbox.New(testPlaceholder, 0)
	nav := NewNavigator(mbox.NewSender(), pageCount)
	nav.SetDisplayHeight(400)
	return nav, mbox
}

func drain(m *mailbox.Mailbox) []mailbox.Command {
	var cmds []mailbox.Command
	for {
		cmd, ok := m.ReceiveNext()
		if !ok {
			return cmds
		}
		cmds = append(cmds, cmd)
	}
}

func TestNavigatorRequestDraw(t *testing.T) {
	nav, mbox := newTestNavigator(10)
	require.NoError(t, nav.RequestDraw())

	cmds := drain(mbox)
	require.Len(t, cmds, 1)
	assert.Equal(t, mailbox.RetrievePair{Left: 0, Height: 400}, cmds[0])
}

func TestNavigatorRequestDrawSinglePageDocument(t *testing.T) {
	nav, mbox := newTestNavigator(1)
	require.NoError(t, nav.RequestDraw())

	cmds := drain(mbox)
	require.Len(t, cmds, 1)
	assert.Equal(t, mailbox.RetrieveSingle{PageNumber: 0, Height: 400}, cmds[0])
}

func TestNavigatorCacheInitial(t *testing.T) {
	nav, mbox := newTestNavigator(10)
	require.NoError(t, nav.CacheInitial())

	assert.Equal(t, []mailbox.Command{
		mailbox.RenderJob{PageNumber: 1, Height: testPlaceholder},
		mailbox.RenderJob{PageNumber: 0, Height: testPlaceholder},
		mailbox.RenderJob{PageNumber: 0, Height: 400},
		mailbox.RenderJob{PageNumber: 1, Height: 400},
	}, drain(mbox))
}

func TestNavigatorSurroundingWindow(t *testing.T) {
	nav, mbox := newTestNavigator(20)
	nav.JumpTo(5)
	require.NoError(t, nav.CacheSurrounding())

	// Window is two pages behind through three ahead of the pair.
	var pages []int
	for _, cmd := range drain(mbox) {
		job := cmd.(mailbox.RenderJob)
		if job.Height != testPlaceholder {
			pages = append(pages, job.PageNumber)
		}
	}
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8}, pages)
}

func TestNavigatorWindowClampsAtStart(t *testing.T) {
	nav, mbox := newTestNavigator(20)
	require.NoError(t, nav.CacheSurrounding())

	var pages []int
	for _, cmd := range drain(mbox) {
		job := cmd.(mailbox.RenderJob)
		if job.Height != testPlaceholder {
			pages = append(pages, job.PageNumber)
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3}, pages, "no negative page numbers")
}

func TestNavigatorDedupesSubmittedJobs(t *testing.T) {
	nav, mbox := newTestNavigator(20)
	require.NoError(t, nav.CacheSurrounding())
	drain(mbox)

	// Same window again: nothing new to submit.
	require.NoError(t, nav.CacheSurrounding())
	assert.Empty(t, drain(mbox))

	// One page forward: only the freshly exposed page is queued.
	nav.NextPage()
	require.NoError(t, nav.CacheSurrounding())
	var pages []int
	for _, cmd := range drain(mbox) {
		job := cmd.(mailbox.RenderJob)
		if job.Height != testPlaceholder {
			pages = append(pages, job.PageNumber)
		}
	}
	assert.Equal(t, []int{4}, pages)
}

func TestNavigatorHeightChangeResubmits(t *testing.T) {
	nav, mbox := newTestNavigator(20)
	require.NoError(t, nav.CacheSurrounding())
	drain(mbox)

	nav.SetDisplayHeight(800)
	require.NoError(t, nav.CacheSurrounding())
	cmds := drain(mbox)
	assert.NotEmpty(t, cmds, "new height invalidates the submitted memo")
	for _, cmd := range cmds {
		job := cmd.(mailbox.RenderJob)
		if job.Height != testPlaceholder {
			assert.Equal(t, 800, job.Height)
		}
	}
}

func TestNavigatorBounds(t *testing.T) {
	nav, _ := newTestNavigator(5)

	nav.PrevPage()
	assert.Equal(t, 0, nav.CurrentPage())

	for i := 0; i < 10; i++ {
		nav.NextPage()
	}
	assert.Equal(t, 3, nav.CurrentPage(), "pair view stops at the last pair")

	nav.JumpTo(100)
	assert.Equal(t, 3, nav.CurrentPage())
	nav.JumpTo(-4)
	assert.Equal(t, 0, nav.CurrentPage())
}

func TestNavigatorSinglePageDocumentStays(t *testing.T) {
	nav, _ := newTestNavigator(1)
	nav.NextPage()
	assert.Equal(t, 0, nav.CurrentPage())
	nav.JumpTo(3)
	assert.Equal(t, 0, nav.CurrentPage())
}

func TestNavigatorClose(t *testing.T) {
	nav, mbox := newTestNavigator(5)
	require.NoError(t, nav.Close())
	assert.ErrorIs(t, nav.RequestDraw(), ErrClosed)
	assert.True(t, mbox.Done())
}
