package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/euriion/bqbatch/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Driver implements the database.Driver interface for PostgreSQL.
type Driver struct {
	pool   *pgxpool.Pool
	dbName string
}

// New creates a new PostgreSQL driver.
func New() *Driver {
	return &Driver{}
}

// Connect establishes a connection pool to PostgreSQL.
func (d *Driver) Connect(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}

	// Batch execution fans out over the pool; leave headroom above the
	// default executor concurrency.
	cfg.MaxConns = 10
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping: %w", err)
	}

	d.pool = pool
	d.dbName = cfg.ConnConfig.Database
	return nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}

// Ping checks if the connection is alive.
func (d *Driver) Ping(ctx context.Context) error {
	if d.pool == nil {
		return fmt.Errorf("not connected")
	}
	return d.pool.Ping(ctx)
}

// ListSchemas returns all user-created schemas.
func (d *Driver) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := d.pool.Query(ctx, querySchemas)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}

// ListTables returns all table names in a schema.
func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	rows, err := d.pool.Query(ctx, queryTables, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// GetColumns returns column metadata for a table.
func (d *Driver) GetColumns(ctx context.Context, schema, table string) ([]database.Column, error) {
	rows, err := d.pool.Query(ctx, queryColumns, schema, table)
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}
	defer rows.Close()

	var columns []database.Column
	for rows.Next() {
		var col database.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.Default, &col.OrdinalPos, &col.IsPrimary); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.IsNullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// GetTableRowCount returns the approximate row count using pg_class statistics.
func (d *Driver) GetTableRowCount(ctx context.Context, schema, table string) (int64, error) {
	var count int64
	err := d.pool.QueryRow(ctx, queryRowEstimate, table, schema).Scan(&count)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("row count: %w", err)
	}
	if count < 0 {
		count = 0
	}
	return count, nil
}

// ExecuteQuery runs a SQL query and returns the results. Failures come back
// as *database.Error with the server's rejection classified.
func (d *Driver) ExecuteQuery(ctx context.Context, query string) (*database.QueryResult, error) {
	if d.pool == nil {
		return nil, &database.Error{Kind: database.KindTransient, Query: query, Cause: fmt.Errorf("not connected")}
	}

	start := time.Now()

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, classify(query, err)
	}
	defer rows.Close()

	// Get column names
	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	// Collect rows. Bytes processed is the summed length of rendered cells;
	// PostgreSQL exposes no server-side counter for it.
	var resultRows [][]string
	var bytesProcessed int64
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, classify(query, err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			if v == nil {
				row[i] = "NULL"
			} else {
				row[i] = fmt.Sprintf("%v", v)
			}
			bytesProcessed += int64(len(row[i]))
		}
		resultRows = append(resultRows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(query, err)
	}

	return &database.QueryResult{
		Columns:        columns,
		Rows:           resultRows,
		RowCount:       len(resultRows),
		BytesProcessed: bytesProcessed,
		Duration:       time.Since(start),
	}, nil
}

// DatabaseName returns the name of the connected database.
func (d *Driver) DatabaseName() string {
	return d.dbName
}

// classify wraps an execution error with its kind derived from the SQLSTATE
// class when the server reported one.
func classify(query string, err error) *database.Error {
	kind := database.Classify(err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "42"):
			// syntax_error_or_access_rule_violation
			if pgErr.Code == "42501" {
				kind = database.KindPermission
			} else {
				kind = database.KindSyntax
			}
		case strings.HasPrefix(pgErr.Code, "28"):
			kind = database.KindPermission
		case strings.HasPrefix(pgErr.Code, "53"):
			// insufficient_resources
			kind = database.KindQuota
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P03":
			kind = database.KindTransient
		case pgErr.Code == "57014":
			// query_canceled: a deadline or explicit cancel reached the server
			kind = database.KindCanceled
		}
	}

	return &database.Error{Kind: kind, Query: query, Cause: err}
}
