package ops

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightforge/internal/errors"
)

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler(nil)
	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func() { runs.Add(1) }))
	require.NoError(t, s.Add("boom", "* * * * * *", func() { panic("bad job") }))
	assert.Equal(t, 2, s.Len())

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil)
	err := s.Add("broken", "every now and then", func() {})
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
	assert.Equal(t, 0, s.Len())
}
