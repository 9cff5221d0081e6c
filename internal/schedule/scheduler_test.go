package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name    string
	runs    atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.started != nil {
		j.started <- struct{}{}
		<-j.release
	}
	return nil
}

func TestTriggerNow(t *testing.T) {
	s := NewCronScheduler()
	j := &countingJob{name: "prune"}
	require.NoError(t, s.AddJob(j, "0 3 * * *"))

	require.NoError(t, s.TriggerNow("prune"))
	require.EqualValues(t, 1, j.runs.Load())

	require.Error(t, s.TriggerNow("nope"))
}

func TestTriggerNowOverlapGuard(t *testing.T) {
	s := NewCronScheduler()
	j := &countingJob{
		name:    "prune",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	require.NoError(t, s.AddJob(j, "0 3 * * *"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.TriggerNow("prune")
	}()
	<-j.started

	// Second trigger while the first run is in flight is skipped.
	require.NoError(t, s.TriggerNow("prune"))
	require.EqualValues(t, 1, j.runs.Load())

	close(j.release)
	wg.Wait()
}

func TestAddJobBadSpec(t *testing.T) {
	s := NewCronScheduler()
	require.Error(t, s.AddJob(&countingJob{name: "bad"}, "not a cron spec"))
}
