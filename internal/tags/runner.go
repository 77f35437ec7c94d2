package tags

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

var tagRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tsuzuri",
		Subsystem: "tags",
		Name:      "runs_total",
		Help:      "Background tag generation runs by result.",
	},
	[]string{"result"},
)

// Runner executes tag generation as fire-and-forget goroutines with
// per-attempt timeouts and exponential backoff. Every failure mode,
// including a panicking provider, ends in a log line and a counter, never
// in an error surfaced to the entry mutation that scheduled it.
type Runner struct {
	gen         Generator
	applier     Applier
	log         zerolog.Logger
	timeout     time.Duration
	maxAttempts int

	wg      sync.WaitGroup
	stopped atomic.Bool
	quit    chan struct{}
}

// NewRunner creates a Runner. The Applier is bound separately because the
// write path and the runner reference each other.
func NewRunner(gen Generator, log zerolog.Logger, timeout time.Duration, maxAttempts int) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Runner{
		gen:         gen,
		log:         log.With().Str("component", "tagrunner").Logger(),
		timeout:     timeout,
		maxAttempts: maxAttempts,
		quit:        make(chan struct{}),
	}
}

// Bind wires the applier that receives generated tags.
func (r *Runner) Bind(a Applier) { r.applier = a }

// Schedule starts tag generation for a fresh entry.
func (r *Runner) Schedule(e *model.Entry) { r.schedule(e, false) }

// SchedulePastPhoto starts tag generation for a backdated photo entry.
func (r *Runner) SchedulePastPhoto(e *model.Entry) { r.schedule(e, true) }

func (r *Runner) schedule(e *model.Entry, pastPhoto bool) {
	if e == nil || r.gen == nil || r.applier == nil || r.stopped.Load() {
		return
	}
	snapshot := e.Clone()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				tagRunsTotal.WithLabelValues("panic").Inc()
				r.log.Error().
					Str("entry_id", snapshot.ID).
					Interface("panic", rec).
					Msg("tag generation panicked")
			}
		}()
		r.run(snapshot, pastPhoto)
	}()
}

func (r *Runner) run(e *model.Entry, pastPhoto bool) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 500 * time.Millisecond
	exp.Multiplier = 2
	exp.MaxInterval = 10 * time.Second
	exp.Reset()

	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		generated, err := r.attempt(e, pastPhoto)
		if err == nil {
			tagRunsTotal.WithLabelValues("success").Inc()
			r.log.Debug().
				Str("entry_id", e.ID).
				Int("tags", len(generated)).
				Msg("tags applied")
			return
		}
		lastErr = err

		if attempt == r.maxAttempts-1 {
			break
		}
		select {
		case <-time.After(exp.NextBackOff()):
		case <-r.quit:
			tagRunsTotal.WithLabelValues("dropped").Inc()
			return
		}
	}

	tagRunsTotal.WithLabelValues("error").Inc()
	r.log.Warn().
		Str("entry_id", e.ID).
		Err(lastErr).
		Msg("tag generation gave up")
}

func (r *Runner) attempt(e *model.Entry, pastPhoto bool) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	generated, err := r.gen.Generate(ctx, e, pastPhoto)
	if err != nil {
		return nil, err
	}
	if err := r.applier.ApplyGeneratedTags(ctx, e.ID, generated); err != nil {
		return nil, err
	}
	return generated, nil
}

// Stop rejects new work and waits up to drain for in-flight runs.
func (r *Runner) Stop(drain time.Duration) {
	if r.stopped.Swap(true) {
		return
	}
	close(r.quit)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drain):
		r.log.Warn().Msg("tag runner stopped with runs still in flight")
	}
}
