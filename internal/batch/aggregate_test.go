package batch

import (
	"errors"
	"testing"
	"time"

	"github.com/euriion/bqbatch/internal/database"
)

func result(cols []string, rows ...[]string) *database.QueryResult {
	var bytes int64
	for _, r := range rows {
		for _, c := range r {
			bytes += int64(len(c))
		}
	}
	return &database.QueryResult{
		Columns:        cols,
		Rows:           rows,
		RowCount:       len(rows),
		BytesProcessed: bytes,
		Duration:       10 * time.Millisecond,
	}
}

func TestMergeUniformSchemas(t *testing.T) {
	report := &Report{Outcomes: []Outcome{
		{ID: "a", Result: result([]string{"id", "name"}, []string{"1", "x"}), Attempts: 1},
		{ID: "b", Result: result([]string{"id", "name"}, []string{"2", "y"}, []string{"3", "z"}), Attempts: 1},
	}}

	merged, err := Merge(report)
	if err != nil {
		t.Fatalf("merge error: %v", err)
	}
	if merged.RowCount != 3 {
		t.Errorf("row count = %d, want 3", merged.RowCount)
	}
	if len(merged.Columns) != 2 || merged.Columns[0] != "id" {
		t.Errorf("columns: %v", merged.Columns)
	}
	if merged.Rows[2][1] != "z" {
		t.Errorf("rows out of order: %v", merged.Rows)
	}
}

func TestMergeReordersColumns(t *testing.T) {
	report := &Report{Outcomes: []Outcome{
		{ID: "a", Result: result([]string{"id", "name"}, []string{"1", "x"})},
		{ID: "b", Result: result([]string{"name", "id"}, []string{"y", "2"})},
	}}

	merged, err := Merge(report)
	if err != nil {
		t.Fatalf("merge error: %v", err)
	}
	if merged.Rows[1][0] != "2" || merged.Rows[1][1] != "y" {
		t.Errorf("second row not reordered into [id name]: %v", merged.Rows[1])
	}
}

func TestMergeSchemaMismatch(t *testing.T) {
	report := &Report{Outcomes: []Outcome{
		{ID: "a", Result: result([]string{"id"}, []string{"1"})},
		{ID: "b", Result: result([]string{"id", "extra"}, []string{"2", "e"})},
	}}

	_, err := Merge(report)
	var aggErr *AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregationError, got %v", err)
	}
	if aggErr.RequestID != "b" {
		t.Errorf("offending request = %q, want b", aggErr.RequestID)
	}
}

func TestMergeRejectsDuplicateLabels(t *testing.T) {
	// SELECT 1, 1 style results repeat a column label; the duplicate must
	// not pass for a set match against distinct reference columns.
	report := &Report{Outcomes: []Outcome{
		{ID: "a", Result: result([]string{"id", "extra"}, []string{"1", "e"})},
		{ID: "b", Result: result([]string{"id", "id"}, []string{"2", "3"})},
	}}

	_, err := Merge(report)
	var aggErr *AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregationError, got %v", err)
	}
	if aggErr.RequestID != "b" {
		t.Errorf("offending request = %q, want b", aggErr.RequestID)
	}
}

func TestMergeIdenticalDuplicateLabels(t *testing.T) {
	// Duplicated labels are still mergeable when every result reports the
	// exact same column list in the exact same order.
	report := &Report{Outcomes: []Outcome{
		{ID: "a", Result: result([]string{"n", "n"}, []string{"1", "1"})},
		{ID: "b", Result: result([]string{"n", "n"}, []string{"2", "2"})},
	}}

	merged, err := Merge(report)
	if err != nil {
		t.Fatalf("merge error: %v", err)
	}
	if merged.RowCount != 2 || merged.Rows[1][1] != "2" {
		t.Errorf("unexpected merged result: %+v", merged)
	}
}

func TestMergeRejectsReorderedDuplicateLabels(t *testing.T) {
	report := &Report{Outcomes: []Outcome{
		{ID: "a", Result: result([]string{"n", "n", "m"}, []string{"1", "1", "x"})},
		{ID: "b", Result: result([]string{"m", "n", "n"}, []string{"x", "2", "2"})},
	}}

	_, err := Merge(report)
	var aggErr *AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregationError, got %v", err)
	}
}

func TestMergeSkipsFailures(t *testing.T) {
	report := &Report{Outcomes: []Outcome{
		{ID: "ok", Result: result([]string{"id"}, []string{"1"})},
		{ID: "bad", Err: errors.New("rejected"), Kind: database.KindSyntax},
	}}

	merged, err := Merge(report)
	if err != nil {
		t.Fatalf("merge error: %v", err)
	}
	if merged.RowCount != 1 {
		t.Errorf("row count = %d, want 1", merged.RowCount)
	}
}

func TestMergeEmptyReport(t *testing.T) {
	merged, err := Merge(&Report{})
	if err != nil {
		t.Fatalf("merge error: %v", err)
	}
	if merged.RowCount != 0 || len(merged.Columns) != 0 {
		t.Errorf("unexpected merged result: %+v", merged)
	}
}

func TestSummarizeMixedOutcomes(t *testing.T) {
	report := &Report{Outcomes: []Outcome{
		{ID: "a", Result: result([]string{"id"}, []string{"1"}, []string{"2"}), Attempts: 1},
		{ID: "b", Result: result([]string{"other"}, []string{"x"}), Attempts: 2},
		{ID: "c", Err: errors.New("rejected"), Kind: database.KindPermission, Attempts: 1},
	}}

	s := Summarize(report)
	if s.Requests != 3 || s.Successes != 2 || s.Failures != 1 {
		t.Errorf("counts: %+v", s)
	}
	if s.TotalRows != 3 {
		t.Errorf("total rows = %d, want 3", s.TotalRows)
	}
	if s.Attempts != 4 {
		t.Errorf("attempts = %d, want 4", s.Attempts)
	}
	if s.TotalBytes == 0 {
		t.Error("total bytes not accumulated")
	}
}
