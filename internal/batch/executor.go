package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/euriion/bqbatch/internal/database"
	"github.com/panjf2000/ants/v2"
)

// Runner executes one rendered query. *postgres.Driver and *app.Service
// satisfy it; tests use fakes.
type Runner interface {
	ExecuteQuery(ctx context.Context, query string) (*database.QueryResult, error)
}

// Retry controls re-execution of transient failures. Zero value means no
// retry. Delay before attempt n+1 is BackoffBase doubled per attempt, capped
// at BackoffCap when set.
type Retry struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// Options configures a batch run. Zero values mean unlimited concurrency,
// no per-query timeout, no retry.
type Options struct {
	MaxConcurrency int
	QueryTimeout   time.Duration
	Retry          Retry
}

func (o Options) validate() error {
	if o.MaxConcurrency < 0 {
		return &StructuralError{Reason: fmt.Sprintf("max concurrency must not be negative, got %d", o.MaxConcurrency)}
	}
	if o.QueryTimeout < 0 {
		return &StructuralError{Reason: "query timeout must not be negative"}
	}
	if o.Retry.MaxAttempts < 0 {
		return &StructuralError{Reason: "retry attempts must not be negative"}
	}
	if o.Retry.BackoffBase < 0 || o.Retry.BackoffCap < 0 {
		return &StructuralError{Reason: "backoff durations must not be negative"}
	}
	return nil
}

// StructuralError reports a batch-level failure before any request was
// dispatched: invalid options, duplicate identifiers, a missing runner.
// Per-request failures never surface this way; they live in the report.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "batch: " + e.Reason
}

// Executor runs batches of independent queries against a Runner with bounded
// concurrency and per-request isolation: one request's failure never aborts
// its siblings.
type Executor struct {
	runner Runner
	opts   Options
}

// NewExecutor creates an executor over the given runner.
func NewExecutor(runner Runner, opts Options) *Executor {
	return &Executor{runner: runner, opts: opts}
}

// Run executes every request and returns a report with one outcome per
// request, in submission order regardless of completion order. An empty
// batch yields an empty report. Cancelling ctx stops dispatch of unstarted
// requests and cancels in-flight ones; outcomes that reached a terminal
// state are kept and the report is marked Cancelled.
func (e *Executor) Run(ctx context.Context, requests []Request) (*Report, error) {
	if e.runner == nil {
		return nil, &StructuralError{Reason: "no runner configured"}
	}
	if err := e.opts.validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(requests))
	for _, r := range requests {
		if r.ID == "" {
			return nil, &StructuralError{Reason: "request has empty identifier"}
		}
		if _, dup := seen[r.ID]; dup {
			return nil, &StructuralError{Reason: fmt.Sprintf("duplicate request identifier %q", r.ID)}
		}
		seen[r.ID] = struct{}{}
	}

	var pool *ants.Pool
	if e.opts.MaxConcurrency > 0 {
		p, err := ants.NewPool(e.opts.MaxConcurrency)
		if err != nil {
			return nil, &StructuralError{Reason: "worker pool: " + err.Error()}
		}
		pool = p
		defer pool.Release()
	}

	submit := func(task func()) error {
		if pool != nil {
			return pool.Submit(task)
		}
		go task()
		return nil
	}
	return e.dispatch(ctx, requests, submit), nil
}

// dispatch fans the requests out through submit and assembles the report.
// A submit failure stops dispatch and marks the report Cancelled so the
// requests left behind do not silently vanish from it.
func (e *Executor) dispatch(ctx context.Context, requests []Request, submit func(func()) error) *Report {
	// One slot per request, written exactly once by its own worker; the
	// WaitGroup publishes the writes.
	slots := make([]*Outcome, len(requests))
	var wg sync.WaitGroup
	dispatchStopped := false

	for i := range requests {
		if ctx.Err() != nil {
			break
		}
		i, req := i, requests[i]
		wg.Add(1)
		err := submit(func() {
			defer wg.Done()
			slots[i] = e.runOne(ctx, req)
		})
		if err != nil {
			wg.Done()
			dispatchStopped = true
			break
		}
	}
	wg.Wait()

	report := &Report{Cancelled: ctx.Err() != nil || dispatchStopped}
	for _, o := range slots {
		if o != nil {
			report.Outcomes = append(report.Outcomes, *o)
		}
	}
	return report
}

// runOne drives a single request through its attempts. A nil return means
// the request was never started (batch cancelled first).
func (e *Executor) runOne(ctx context.Context, req Request) *Outcome {
	if ctx.Err() != nil {
		return nil
	}

	maxAttempts := e.opts.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		qctx := ctx
		cancel := context.CancelFunc(func() {})
		if e.opts.QueryTimeout > 0 {
			qctx, cancel = context.WithTimeout(ctx, e.opts.QueryTimeout)
		}
		result, err := e.runner.ExecuteQuery(qctx, req.SQL)
		timedOut := qctx.Err() == context.DeadlineExceeded && ctx.Err() == nil
		cancel()

		if err == nil {
			return &Outcome{ID: req.ID, Result: result, Attempts: attempt}
		}

		kind := database.Classify(err)
		if timedOut {
			kind = database.KindTimeout
		} else if ctx.Err() != nil {
			kind = database.KindCanceled
		}

		if !kind.Retryable() || attempt >= maxAttempts || ctx.Err() != nil {
			return &Outcome{ID: req.ID, Kind: kind, Err: err, Attempts: attempt}
		}

		select {
		case <-time.After(backoffDelay(e.opts.Retry, attempt)):
		case <-ctx.Done():
			return &Outcome{ID: req.ID, Kind: database.KindCanceled, Err: ctx.Err(), Attempts: attempt}
		}
	}
}

func backoffDelay(r Retry, attempt int) time.Duration {
	d := r.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if r.BackoffCap > 0 && d >= r.BackoffCap {
			return r.BackoffCap
		}
	}
	if r.BackoffCap > 0 && d > r.BackoffCap {
		d = r.BackoffCap
	}
	return d
}
