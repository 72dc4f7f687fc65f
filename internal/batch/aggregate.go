package batch

import (
	"fmt"
	"time"

	"github.com/euriion/bqbatch/internal/database"
)

// AggregationError reports a column-set mismatch between batched results.
// Mismatched schemas are refused rather than padded: silently unioning
// columns would hide a caller mistake.
type AggregationError struct {
	RequestID string
	Want      []string
	Got       []string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate: result %q has columns %v, want %v", e.RequestID, e.Got, e.Want)
}

// Merge concatenates the rows of every successful outcome into one result.
// All contributing results must share the same column name set; column order
// follows the first success. Failed outcomes are skipped. Merging an empty
// or all-failed report yields an empty result.
func Merge(report *Report) (*database.QueryResult, error) {
	merged := &database.QueryResult{}
	first := true

	for _, o := range report.Outcomes {
		if !o.OK() || o.Result == nil {
			continue
		}
		if first {
			first = false
			merged.Columns = append([]string(nil), o.Result.Columns...)
		} else if !sameColumns(merged.Columns, o.Result.Columns) {
			return nil, &AggregationError{
				RequestID: o.ID,
				Want:      merged.Columns,
				Got:       o.Result.Columns,
			}
		}
		for _, row := range o.Result.Rows {
			merged.Rows = append(merged.Rows, reorderRow(merged.Columns, o.Result.Columns, row))
		}
		merged.BytesProcessed += o.Result.BytesProcessed
		merged.Duration += o.Result.Duration
	}

	merged.RowCount = len(merged.Rows)
	return merged, nil
}

// Summary holds batch-level counters. Unlike Merge it never fails: it has no
// schema requirements.
type Summary struct {
	Requests   int
	Successes  int
	Failures   int
	Attempts   int
	TotalRows  int
	TotalBytes int64
	Elapsed    time.Duration
}

// Summarize computes aggregate counters over every outcome in the report.
func Summarize(report *Report) Summary {
	s := Summary{Requests: len(report.Outcomes)}
	for _, o := range report.Outcomes {
		s.Attempts += o.Attempts
		if o.OK() {
			s.Successes++
			if o.Result != nil {
				s.TotalRows += o.Result.RowCount
				s.TotalBytes += o.Result.BytesProcessed
				s.Elapsed += o.Result.Duration
			}
		} else {
			s.Failures++
		}
	}
	return s
}

func columnSet(cols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	return set
}

// sameColumns reports whether cols names the same columns as ref. Order is
// ignored only when labels are unique on both sides: duplicate labels
// (SELECT 1, 1 yields two columns named "?column?") make a set comparison
// meaningless, so those must match ref exactly, position by position.
func sameColumns(ref, cols []string) bool {
	if equalSlices(ref, cols) {
		return true
	}

	want := columnSet(ref)
	got := columnSet(cols)
	if len(want) != len(ref) || len(got) != len(cols) {
		return false
	}
	if len(got) != len(want) {
		return false
	}
	for c := range got {
		if _, ok := want[c]; !ok {
			return false
		}
	}
	return true
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// reorderRow maps a row from its source column order into the merged order.
func reorderRow(target, source []string, row []string) []string {
	if len(target) == len(source) {
		same := true
		for i := range target {
			if target[i] != source[i] {
				same = false
				break
			}
		}
		if same {
			return row
		}
	}

	idx := make(map[string]int, len(source))
	for i, c := range source {
		idx[c] = i
	}
	out := make([]string, len(target))
	for i, c := range target {
		if j, ok := idx[c]; ok && j < len(row) {
			out[i] = row[j]
		}
	}
	return out
}
