package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/euriion/bqbatch/internal/database"
)

// fakeRunner executes queries with scripted behavior per SQL string.
type fakeRunner struct {
	mu       sync.Mutex
	calls    map[string]int
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	// behave decides the response given the query and its attempt number.
	behave func(query string, attempt int) (*database.QueryResult, error)
}

func newFakeRunner(behave func(query string, attempt int) (*database.QueryResult, error)) *fakeRunner {
	return &fakeRunner{calls: make(map[string]int), behave: behave}
}

func (f *fakeRunner) ExecuteQuery(ctx context.Context, query string) (*database.QueryResult, error) {
	cur := f.inFlight.Add(1)
	for {
		prev := f.maxSeen.Load()
		if cur <= prev || f.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}
	defer f.inFlight.Add(-1)

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls[query]++
	attempt := f.calls[query]
	f.mu.Unlock()

	return f.behave(query, attempt)
}

func okResult(rows int) *database.QueryResult {
	r := &database.QueryResult{Columns: []string{"v"}}
	for i := 0; i < rows; i++ {
		r.Rows = append(r.Rows, []string{"x"})
	}
	r.RowCount = rows
	r.BytesProcessed = int64(rows)
	return r
}

func alwaysOK(query string, attempt int) (*database.QueryResult, error) {
	return okResult(1), nil
}

func TestRunEmptyBatch(t *testing.T) {
	ex := NewExecutor(newFakeRunner(alwaysOK), Options{})
	report, err := ex.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if len(report.Outcomes) != 0 || report.Cancelled {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestBatchCompleteness(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	var requests []Request
	for _, id := range ids {
		requests = append(requests, NewRequest(id, "SELECT "+id))
	}

	ex := NewExecutor(newFakeRunner(alwaysOK), Options{MaxConcurrency: 2})
	report, err := ex.Run(context.Background(), requests)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if len(report.Outcomes) != len(ids) {
		t.Fatalf("expected %d outcomes, got %d", len(ids), len(report.Outcomes))
	}
	for _, id := range ids {
		if _, ok := report.Get(id); !ok {
			t.Errorf("outcome for %q missing from report", id)
		}
	}
}

func TestOrderPreservation(t *testing.T) {
	// c finishes fastest, a slowest; the report must still read a, b, c.
	runner := newFakeRunner(func(query string, attempt int) (*database.QueryResult, error) {
		switch {
		case strings.Contains(query, "a"):
			time.Sleep(60 * time.Millisecond)
		case strings.Contains(query, "b"):
			time.Sleep(30 * time.Millisecond)
		}
		return okResult(1), nil
	})

	requests := []Request{
		NewRequest("a", "SELECT a"),
		NewRequest("b", "SELECT b"),
		NewRequest("c", "SELECT c"),
	}
	ex := NewExecutor(runner, Options{})
	report, err := ex.Run(context.Background(), requests)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	var got []string
	for _, o := range report.Outcomes {
		got = append(got, o.ID)
	}
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("outcome order %v, want [a b c]", got)
	}
}

func TestFailureIsolation(t *testing.T) {
	runner := newFakeRunner(func(query string, attempt int) (*database.QueryResult, error) {
		if strings.Contains(query, "bad") {
			return nil, &database.Error{Kind: database.KindSyntax, Cause: errors.New("syntax error")}
		}
		return okResult(1), nil
	})

	requests := []Request{
		NewRequest("q1", "SELECT good"),
		NewRequest("q2", "SELECT bad"),
		NewRequest("q3", "SELECT good again"),
	}
	ex := NewExecutor(runner, Options{})
	report, err := ex.Run(context.Background(), requests)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if report.Successes() != 2 || report.Failures() != 1 {
		t.Errorf("got %d successes / %d failures, want 2 / 1", report.Successes(), report.Failures())
	}
	bad, _ := report.Get("q2")
	if bad.OK() || bad.Kind != database.KindSyntax {
		t.Errorf("bad outcome: %+v", bad)
	}
}

func TestMaxConcurrencyOne(t *testing.T) {
	runner := newFakeRunner(alwaysOK)
	runner.delay = 20 * time.Millisecond

	requests := []Request{
		NewRequest("a", "SELECT 1"),
		NewRequest("b", "SELECT 2"),
		NewRequest("c", "SELECT 3"),
	}
	ex := NewExecutor(runner, Options{MaxConcurrency: 1})
	report, err := ex.Run(context.Background(), requests)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if len(report.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(report.Outcomes))
	}
	if max := runner.maxSeen.Load(); max != 1 {
		t.Errorf("observed %d concurrent executions, want 1", max)
	}
}

func TestConcurrencyBound(t *testing.T) {
	runner := newFakeRunner(alwaysOK)
	runner.delay = 20 * time.Millisecond

	var requests []Request
	for i := 0; i < 8; i++ {
		requests = append(requests, NewRequest("", "SELECT 1"))
	}
	ex := NewExecutor(runner, Options{MaxConcurrency: 3})
	if _, err := ex.Run(context.Background(), requests); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if max := runner.maxSeen.Load(); max > 3 {
		t.Errorf("observed %d concurrent executions, bound is 3", max)
	}
}

func TestTransientRetrySucceeds(t *testing.T) {
	runner := newFakeRunner(func(query string, attempt int) (*database.QueryResult, error) {
		if attempt < 3 {
			return nil, &database.Error{Kind: database.KindTransient, Cause: errors.New("unavailable")}
		}
		return okResult(1), nil
	})

	ex := NewExecutor(runner, Options{Retry: Retry{MaxAttempts: 3, BackoffBase: time.Millisecond}})
	report, err := ex.Run(context.Background(), []Request{NewRequest("r", "SELECT 1")})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	o, _ := report.Get("r")
	if !o.OK() {
		t.Fatalf("expected eventual success, got %v", o.Err)
	}
	if o.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", o.Attempts)
	}
}

func TestTransientRetryExhausted(t *testing.T) {
	runner := newFakeRunner(func(query string, attempt int) (*database.QueryResult, error) {
		return nil, &database.Error{Kind: database.KindTransient, Cause: errors.New("unavailable")}
	})

	ex := NewExecutor(runner, Options{Retry: Retry{MaxAttempts: 2, BackoffBase: time.Millisecond}})
	report, err := ex.Run(context.Background(), []Request{NewRequest("r", "SELECT 1")})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	o, _ := report.Get("r")
	if o.OK() || o.Attempts != 2 || o.Kind != database.KindTransient {
		t.Errorf("outcome: %+v", o)
	}
}

func TestNonTransientNotRetried(t *testing.T) {
	runner := newFakeRunner(func(query string, attempt int) (*database.QueryResult, error) {
		return nil, &database.Error{Kind: database.KindQuota, Cause: errors.New("quota exceeded")}
	})

	ex := NewExecutor(runner, Options{Retry: Retry{MaxAttempts: 5, BackoffBase: time.Millisecond}})
	report, err := ex.Run(context.Background(), []Request{NewRequest("r", "SELECT 1")})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	o, _ := report.Get("r")
	if o.Attempts != 1 {
		t.Errorf("quota failure was retried: %d attempts", o.Attempts)
	}
	if o.Kind != database.KindQuota {
		t.Errorf("kind = %v, want quota", o.Kind)
	}
}

func TestPerQueryTimeout(t *testing.T) {
	runner := newFakeRunner(alwaysOK)
	runner.delay = 100 * time.Millisecond

	ex := NewExecutor(runner, Options{QueryTimeout: 10 * time.Millisecond})
	report, err := ex.Run(context.Background(), []Request{NewRequest("slow", "SELECT pg_sleep(10)")})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	o, _ := report.Get("slow")
	if o.OK() || o.Kind != database.KindTimeout {
		t.Errorf("outcome: %+v, want timeout failure", o)
	}
}

func TestTimeoutDoesNotAffectSiblings(t *testing.T) {
	delayed := &delayByQueryRunner{slowQuery: "SELECT slow", slowDelay: 100 * time.Millisecond}
	ex := NewExecutor(delayed, Options{QueryTimeout: 20 * time.Millisecond})
	report, err := ex.Run(context.Background(), []Request{
		NewRequest("fast1", "SELECT 1"),
		NewRequest("slow", "SELECT slow"),
		NewRequest("fast2", "SELECT 2"),
	})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if report.Successes() != 2 || report.Failures() != 1 {
		t.Errorf("got %d/%d, want 2 successes and 1 failure", report.Successes(), report.Failures())
	}
}

// delayByQueryRunner delays only one query, long enough to trip the timeout.
type delayByQueryRunner struct {
	slowQuery string
	slowDelay time.Duration
}

func (d *delayByQueryRunner) ExecuteQuery(ctx context.Context, query string) (*database.QueryResult, error) {
	if query == d.slowQuery {
		select {
		case <-time.After(d.slowDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return okResult(1), nil
}

func TestBatchCancellation(t *testing.T) {
	runner := newFakeRunner(alwaysOK)
	runner.delay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	var requests []Request
	for i := 0; i < 6; i++ {
		requests = append(requests, NewRequest("", "SELECT 1"))
	}
	ex := NewExecutor(runner, Options{MaxConcurrency: 1})
	report, err := ex.Run(ctx, requests)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !report.Cancelled {
		t.Error("report not marked cancelled")
	}
	if len(report.Outcomes) >= len(requests) {
		t.Errorf("expected a partial report, got %d outcomes", len(report.Outcomes))
	}
}

func TestStructuralErrors(t *testing.T) {
	runner := newFakeRunner(alwaysOK)

	t.Run("duplicate ids", func(t *testing.T) {
		ex := NewExecutor(runner, Options{})
		_, err := ex.Run(context.Background(), []Request{
			NewRequest("x", "SELECT 1"),
			NewRequest("x", "SELECT 2"),
		})
		var se *StructuralError
		if !errors.As(err, &se) {
			t.Errorf("expected StructuralError, got %v", err)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		ex := NewExecutor(runner, Options{})
		_, err := ex.Run(context.Background(), []Request{{ID: "", SQL: "SELECT 1"}})
		var se *StructuralError
		if !errors.As(err, &se) {
			t.Errorf("expected StructuralError, got %v", err)
		}
	})

	t.Run("negative concurrency", func(t *testing.T) {
		ex := NewExecutor(runner, Options{MaxConcurrency: -1})
		_, err := ex.Run(context.Background(), nil)
		var se *StructuralError
		if !errors.As(err, &se) {
			t.Errorf("expected StructuralError, got %v", err)
		}
	})

	t.Run("nil runner", func(t *testing.T) {
		ex := NewExecutor(nil, Options{})
		_, err := ex.Run(context.Background(), nil)
		var se *StructuralError
		if !errors.As(err, &se) {
			t.Errorf("expected StructuralError, got %v", err)
		}
	})
}

func TestNewRequestGeneratesID(t *testing.T) {
	a := NewRequest("", "SELECT 1")
	b := NewRequest("", "SELECT 1")
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Errorf("generated ids not unique: %q, %q", a.ID, b.ID)
	}
}

func TestDispatchStopsOnSubmitFailure(t *testing.T) {
	runner := newFakeRunner(func(query string, attempt int) (*database.QueryResult, error) {
		return okResult(1), nil
	})
	ex := NewExecutor(runner, Options{})

	submitted := 0
	submit := func(task func()) error {
		submitted++
		if submitted > 1 {
			return errors.New("pool released")
		}
		task()
		return nil
	}

	requests := []Request{
		{ID: "a", SQL: "SELECT 1"},
		{ID: "b", SQL: "SELECT 2"},
		{ID: "c", SQL: "SELECT 3"},
	}
	report := ex.dispatch(context.Background(), requests, submit)

	if !report.Cancelled {
		t.Error("report not marked cancelled after submit failure")
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].ID != "a" {
		t.Errorf("outcomes = %+v, want only a", report.Outcomes)
	}
}

func TestBackoffDelay(t *testing.T) {
	r := Retry{BackoffBase: 100 * time.Millisecond, BackoffCap: 500 * time.Millisecond}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 500 * time.Millisecond},
		{5, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := backoffDelay(r, tc.attempt); got != tc.want {
			t.Errorf("attempt %d: got %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
