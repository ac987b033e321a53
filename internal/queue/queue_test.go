package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestJobsRunAndReportErrors(t *testing.T) {
	rqm := NewRequestQueueManager(4, 2, nil)
	defer rqm.Shutdown()

	var ran atomic.Int32
	want := errors.New("boom")

	for i := 0; i < 8; i++ {
		errc := make(chan error, 1)
		fail := i%2 == 0
		require.NoError(t, rqm.EnqueueJob(context.Background(), Job{
			Fn: func() error {
				ran.Add(1)
				if fail {
					return want
				}
				return nil
			},
			Errc: errc,
		}))
		if fail {
			assert.ErrorIs(t, <-errc, want)
		} else {
			assert.NoError(t, <-errc)
		}
	}
	assert.Equal(t, int32(8), ran.Load())
}

func TestPanickingJobBecomesError(t *testing.T) {
	rqm := NewRequestQueueManager(1, 1, nil)
	defer rqm.Shutdown()

	errc := make(chan error, 1)
	require.NoError(t, rqm.EnqueueJob(context.Background(), Job{
		Fn:   func() error { panic("bad handler") },
		Errc: errc,
	}))
	assert.ErrorContains(t, <-errc, "bad handler")
}

func TestEnqueueHonoursContext(t *testing.T) {
	rqm := NewRequestQueueManager(0, 1, nil)
	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, rqm.EnqueueJob(context.Background(), Job{Fn: func() error {
		close(started)
		<-block
		return nil
	}}))
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rqm.EnqueueJob(ctx, Job{Fn: func() error { return nil }})
	assert.ErrorIs(t, err, context.Canceled)

	close(block)
	rqm.Shutdown()
}
