// Package worker runs the periodic jobs of the practice core on tickers.
package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

// Job is one unit of periodic work. It reports how many items it changed.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// Ticker runs a Job every interval until ctx is cancelled. A run never overlaps the next one;
// a slow run delays the following tick instead.
type Ticker struct {
	job      Job
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewTicker(job Job, interval time.Duration, m *metrics.Metrics, log *logger.Logger) *Ticker {
	return &Ticker{
		job:      job,
		interval: interval,
		metrics:  m,
		logger:   log.With("worker").WithFields(map[string]interface{}{"job": job.Name()}),
	}
}

// Start blocks. When runImmediately is set the job also runs once before the first tick.
func (t *Ticker) Start(ctx context.Context, runImmediately bool) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("worker started", "interval", t.interval.String())
	if runImmediately {
		t.RunOnce(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("worker stopped")
			return
		case <-ticker.C:
			t.RunOnce(ctx)
		}
	}
}

// RunOnce runs the job and logs the outcome. Errors are logged, never returned, so one bad
// run does not stop the loop.
func (t *Ticker) RunOnce(ctx context.Context) {
	start := time.Now()
	n, err := t.job.Run(ctx)
	if err != nil {
		t.metrics.JobRuns.WithLabelValues(t.job.Name(), "error").Inc()
		t.logger.Error(err, "job failed", "duration", time.Since(start).String())
		return
	}
	t.metrics.JobRuns.WithLabelValues(t.job.Name(), "success").Inc()
	t.logger.Info("job completed", "changed", n, "duration", time.Since(start).String())
}
