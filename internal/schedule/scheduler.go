package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Job is one maintenance task. Run must tolerate being called again
// after an error; the scheduler never retries within a tick.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// CronScheduler runs maintenance jobs on standard 5-field cron specs.
// Each job is guarded against overlapping runs: a tick that fires while
// the previous run is still going is skipped, not queued.
type CronScheduler struct {
	cron *cron.Cron
	jobs map[string]func()
	ctx  context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		cron: cron.New(cron.WithParser(parser)),
		jobs: make(map[string]func()),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	run := c.guarded(job, spec)
	if _, err := c.cron.AddFunc(spec, run); err != nil {
		logutil.GetLogger(context.Background()).Error("schedule job failed",
			zap.String("job", name), zap.String("spec", spec), zap.Error(err))
		return err
	}
	c.jobs[name] = run
	logutil.GetLogger(context.Background()).Info("job scheduled",
		zap.String("job", name), zap.String("spec", spec))
	return nil
}

// TriggerNow runs a scheduled job immediately in the calling goroutine,
// subject to the same overlap guard as cron ticks. Used at startup so
// maintenance does not wait for the first tick.
func (c *CronScheduler) TriggerNow(name string) error {
	run, ok := c.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job: %s", name)
	}
	run()
	return nil
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
}

func (c *CronScheduler) guarded(job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		ctx := c.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		logger := logutil.GetLogger(ctx).With(
			zap.String("job", job.Name()),
			zap.String("spec", spec),
		)
		if !running.CompareAndSwap(false, true) {
			logger.Info("job skipped: still running")
			return
		}
		defer running.Store(false)

		start := time.Now()
		logger.Info("job started")
		if err := job.Run(ctx); err != nil {
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		logger.Info("job finished", zap.Duration("duration", time.Since(start)))
	}
}
