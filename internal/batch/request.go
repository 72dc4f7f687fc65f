package batch

import (
	"github.com/euriion/bqbatch/internal/database"
	"github.com/google/uuid"
)

// Request is one rendered query plus an identifier used to correlate its
// outcome in the report. Requests are immutable once created.
type Request struct {
	ID  string
	SQL string
}

// NewRequest creates a request, generating an identifier when none is given.
func NewRequest(id, sql string) Request {
	if id == "" {
		id = uuid.NewString()
	}
	return Request{ID: id, SQL: sql}
}

// Outcome is the terminal state of one request: either a result or a
// classified failure, never both.
type Outcome struct {
	ID       string
	Result   *database.QueryResult
	Kind     database.ErrorKind
	Err      error
	Attempts int
}

// OK reports whether the request succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report collects the outcomes of a batch in submission order. When the
// batch was cancelled, requests that never started have no entry and
// Cancelled is set.
type Report struct {
	Outcomes  []Outcome
	Cancelled bool
}

// Get returns the outcome for a request identifier.
func (r *Report) Get(id string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.ID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

// Successes counts completed requests.
func (r *Report) Successes() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failures counts failed requests.
func (r *Report) Failures() int {
	return len(r.Outcomes) - r.Successes()
}
