package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlaceholder = 50

func drain(m *Mailbox) []Command {
	var cmds []Command
	for {
		cmd, ok := m.ReceiveNext()
		if !ok {
			return cmds
		}
		cmds = append(cmds, cmd)
	}
}

func TestRetrieveLastWins(t *testing.T) {
	m := New(testPlaceholder, 0)
	s := m.NewSender()

	require.NoError(t, s.Retrieve(RetrieveSingle{PageNumber: 1, Height: 200}))
	require.NoError(t, s.Retrieve(RetrieveSingle{PageNumber: 2, Height: 200}))

	cmd, ok := m.ReceiveNext()
	require.True(t, ok)
	assert.Equal(t, RetrieveSingle{PageNumber: 2, Height: 200}, cmd)

	// The buried older request is gone, not merely deferred.
	_, ok = m.ReceiveNext()
	assert.False(t, ok)
}

func TestCacheJobOrdering(t *testing.T) {
	m := New(testPlaceholder, 0)
	s := m.NewSender()

	require.NoError(t, s.CacheJobs([]int{5, 6}, 200))

	assert.Equal(t, []Command{
		RenderJob{PageNumber: 6, Height: testPlaceholder},
		RenderJob{PageNumber: 5, Height: testPlaceholder},
		RenderJob{PageNumber: 5, Height: 200},
		RenderJob{PageNumber: 6, Height: 200},
	}, drain(m))
}

func TestPlaceholdersJumpOlderBatches(t *testing.T) {
	m := New(testPlaceholder, 0)
	s := m.NewSender()

	require.NoError(t, s.CacheJobs([]int{1}, 200))
	require.NoError(t, s.CacheJobs([]int{2}, 200))

	assert.Equal(t, []Command{
		RenderJob{PageNumber: 2, Height: testPlaceholder},
		RenderJob{PageNumber: 1, Height: testPlaceholder},
		RenderJob{PageNumber: 1, Height: 200},
		RenderJob{PageNumber: 2, Height: 200},
	}, drain(m))
}

func TestRetrievePreemptsJobs(t *testing.T) {
	m := New(testPlaceholder, 0)
	s := m.NewSender()

	require.NoError(t, s.CacheJobs([]int{3}, 200))
	require.NoError(t, s.Retrieve(RetrievePair{Left: 7, Height: 200}))

	cmd, ok := m.ReceiveNext()
	require.True(t, ok)
	assert.Equal(t, RetrievePair{Left: 7, Height: 200}, cmd)

	cmd, ok = m.ReceiveNext()
	require.True(t, ok)
	assert.IsType(t, RenderJob{}, cmd)
}

func TestMaxJobsDropsOldestFullHeight(t *testing.T) {
	m := New(testPlaceholder, 3)
	s := m.NewSender()

	require.NoError(t, s.CacheJobs([]int{1, 2}, 200))

	// Placeholders survive; the oldest full-height job (page 1) was shed.
	assert.Equal(t, []Command{
		RenderJob{PageNumber: 2, Height: testPlaceholder},
		RenderJob{PageNumber: 1, Height: testPlaceholder},
		RenderJob{PageNumber: 2, Height: 200},
	}, drain(m))
}

func TestRejectsNonRetrieveCommand(t *testing.T) {
	m := New(testPlaceholder, 0)
	s := m.NewSender()

	assert.Error(t, s.Retrieve(RenderJob{PageNumber: 1, Height: 200}))
}

func TestSenderClose(t *testing.T) {
	m := New(testPlaceholder, 0)
	s := m.NewSender()

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Retrieve(RetrieveSingle{PageNumber: 0}), ErrSenderClosed)
	assert.ErrorIs(t, s.CacheJobs([]int{0}, 200), ErrSenderClosed)
	assert.NoError(t, s.Close(), "double close is a no-op")
}

func TestLiveness(t *testing.T) {
	m := New(testPlaceholder, 0)
	s1 := m.NewSender()
	s2 := m.NewSender()

	require.NoError(t, s1.CacheJobs([]int{0}, 200))
	require.NoError(t, s1.Close())
	assert.True(t, m.Active(), "second sender still open")
	assert.False(t, m.Done())

	require.NoError(t, s2.Close())
	assert.False(t, m.Active())
	assert.False(t, m.Done(), "queued work still pending")

	drain(m)
	assert.True(t, m.Done())
}

func TestDepth(t *testing.T) {
	m := New(testPlaceholder, 0)
	s := m.NewSender()

	assert.Zero(t, m.Depth())
	require.NoError(t, s.CacheJobs([]int{1, 2}, 200))
	require.NoError(t, s.Retrieve(RetrieveSingle{PageNumber: 1, Height: 200}))
	assert.Equal(t, 5, m.Depth())
}
