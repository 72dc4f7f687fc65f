package app

import (
	"context"
	"errors"
	"testing"

	"github.com/euriion/bqbatch/internal/batch"
	"github.com/euriion/bqbatch/internal/database"
)

// fakeDriver serves canned responses keyed by query string.
type fakeDriver struct {
	results  map[string]*database.QueryResult
	failWith error
}

func (f *fakeDriver) Connect(ctx context.Context, dsn string) error { return nil }
func (f *fakeDriver) Close() error                                  { return nil }
func (f *fakeDriver) Ping(ctx context.Context) error                { return nil }
func (f *fakeDriver) DatabaseName() string                          { return "testdb" }

func (f *fakeDriver) ListSchemas(ctx context.Context) ([]string, error) {
	return []string{"public", "reporting"}, nil
}

func (f *fakeDriver) ListTables(ctx context.Context, schema string) ([]string, error) {
	if schema == "public" {
		return []string{"orders", "users"}, nil
	}
	return []string{"daily_totals"}, nil
}

func (f *fakeDriver) GetColumns(ctx context.Context, schema, table string) ([]database.Column, error) {
	return []database.Column{{Name: "id", DataType: "bigint"}}, nil
}

func (f *fakeDriver) GetTableRowCount(ctx context.Context, schema, table string) (int64, error) {
	return 42, nil
}

func (f *fakeDriver) ExecuteQuery(ctx context.Context, query string) (*database.QueryResult, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return &database.QueryResult{Columns: []string{"ok"}, Rows: [][]string{{"1"}}, RowCount: 1}, nil
}

func TestLoadSchemaTreeAndTableNames(t *testing.T) {
	s := NewService(&fakeDriver{})
	tree, err := s.LoadSchemaTree(context.Background())
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if tree.Database != "testdb" || len(tree.Schemas) != 2 {
		t.Errorf("tree: %+v", tree)
	}
	names := s.AllTableNames(tree)
	if len(names) != 3 {
		t.Errorf("table names: %v", names)
	}
}

func TestGetTableRowCountPassthrough(t *testing.T) {
	s := NewService(&fakeDriver{})
	count, err := s.GetTableRowCount(context.Background(), "public", "orders")
	if err != nil {
		t.Fatalf("row count error: %v", err)
	}
	if count != 42 {
		t.Errorf("count = %d, want 42", count)
	}
}

func TestExecuteQueryWrapsError(t *testing.T) {
	cause := &database.Error{Kind: database.KindSyntax, Cause: errors.New("bad syntax")}
	s := NewService(&fakeDriver{failWith: cause})
	_, err := s.ExecuteQuery(context.Background(), "SELEC 1")
	var qerr *ErrQuery
	if !errors.As(err, &qerr) {
		t.Fatalf("expected ErrQuery, got %v", err)
	}
	if database.Classify(err) != database.KindSyntax {
		t.Error("classification lost through the wrap")
	}
}

func TestRunBatchReportsPerQuery(t *testing.T) {
	s := NewService(&fakeDriver{})
	report, err := s.RunBatch(context.Background(), []batch.Request{
		batch.NewRequest("a", "SELECT 1"),
		batch.NewRequest("b", "SELECT 2"),
	}, batch.Options{MaxConcurrency: 2})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if report.Successes() != 2 {
		t.Errorf("successes = %d, want 2", report.Successes())
	}
}

func TestRunBatchStructuralFailure(t *testing.T) {
	s := NewService(&fakeDriver{})
	_, err := s.RunBatch(context.Background(), []batch.Request{
		batch.NewRequest("dup", "SELECT 1"),
		batch.NewRequest("dup", "SELECT 2"),
	}, batch.Options{})
	var berr *ErrBatch
	if !errors.As(err, &berr) {
		t.Fatalf("expected ErrBatch, got %v", err)
	}
	var serr *batch.StructuralError
	if !errors.As(err, &serr) {
		t.Errorf("structural cause not preserved: %v", err)
	}
}
