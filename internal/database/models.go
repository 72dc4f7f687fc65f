package database

import "time"

// Column represents a table column with its metadata.
type Column struct {
	Name       string
	DataType   string
	IsNullable bool
	IsPrimary  bool
	Default    string
	OrdinalPos int
}

// QueryResult holds the result of one query execution. Rows are rendered to
// strings by the driver; column order is preserved from the server response.
type QueryResult struct {
	Columns        []string
	Rows           [][]string
	RowCount       int
	BytesProcessed int64
	Duration       time.Duration
}
