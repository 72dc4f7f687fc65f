// Package export writes query results to local files in common analytics
// formats: CSV, JSON, Parquet, and Avro OCF.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/euriion/bqbatch/internal/database"
	goavro "github.com/linkedin/goavro/v2"
	parquet "github.com/parquet-go/parquet-go"
)

// Format identifies an output encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
	FormatAvro    Format = "avro"
)

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".parquet":
		return FormatParquet, nil
	case ".avro":
		return FormatAvro, nil
	}
	return "", fmt.Errorf("unsupported export extension %q (supported: .csv, .json, .parquet, .avro)", filepath.Ext(path))
}

// WriteFile writes the result to path, picking the format from the extension.
func WriteFile(path string, result *database.QueryResult) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, format, result); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

// Write encodes the result in the given format.
func Write(w io.Writer, format Format, result *database.QueryResult) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, result)
	case FormatJSON:
		return WriteJSON(w, result)
	case FormatParquet:
		return WriteParquet(w, result)
	case FormatAvro:
		return WriteAvro(w, result)
	}
	return fmt.Errorf("unsupported format %q", format)
}

// WriteCSV writes a header row followed by every data row.
func WriteCSV(w io.Writer, result *database.QueryResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return err
	}
	for _, row := range result.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes an array of objects, preserving column order (map
// marshaling would not).
func WriteJSON(w io.Writer, result *database.QueryResult) error {
	var b strings.Builder
	b.WriteString("[\n")
	for i, row := range result.Rows {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(rowToJSON(result.Columns, row))
	}
	b.WriteString("\n]\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteParquet writes the result with every column as an optional string.
func WriteParquet(w io.Writer, result *database.QueryResult) error {
	group := parquet.Group{}
	names := fieldNames(result.Columns)
	for _, n := range names {
		group[n] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("result", group)

	pw := parquet.NewGenericWriter[map[string]any](w, schema)
	for _, row := range result.Rows {
		rec := make(map[string]any, len(names))
		for i, n := range names {
			if i < len(row) {
				rec[n] = row[i]
			}
		}
		if _, err := pw.Write([]map[string]any{rec}); err != nil {
			return err
		}
	}
	return pw.Close()
}

// WriteAvro writes an OCF container with nullable-string union fields.
func WriteAvro(w io.Writer, result *database.QueryResult) error {
	names := fieldNames(result.Columns)

	fields := make([]map[string]any, len(names))
	for i, n := range names {
		fields[i] = map[string]any{
			"name":    n,
			"type":    []string{"null", "string"},
			"default": nil,
		}
	}
	schemaJSON, err := json.Marshal(map[string]any{
		"type":   "record",
		"name":   "result",
		"fields": fields,
	})
	if err != nil {
		return err
	}

	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{W: w, Schema: string(schemaJSON)})
	if err != nil {
		return fmt.Errorf("avro schema: %w", err)
	}

	for _, row := range result.Rows {
		rec := make(map[string]any, len(names))
		for i, n := range names {
			if i < len(row) {
				rec[n] = goavro.Union("string", row[i])
			} else {
				rec[n] = nil
			}
		}
		if err := ocf.Append([]any{rec}); err != nil {
			return err
		}
	}
	return nil
}

// fieldNames sanitizes column labels into identifiers acceptable to avro and
// parquet schemas: expression columns like "sum(amount)" are not valid field
// names. Collisions after sanitizing get a positional suffix.
func fieldNames(columns []string) []string {
	names := make([]string, len(columns))
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		n := sanitizeName(col)
		if n == "" {
			n = fmt.Sprintf("col_%d", i+1)
		}
		if seen[n] {
			n = fmt.Sprintf("%s_%d", n, i+1)
		}
		seen[n] = true
		names[i] = n
	}
	return names
}

func sanitizeName(s string) string {
	var b strings.Builder
	for i, ch := range s {
		ok := ch == '_' ||
			(ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9' && i > 0)
		if ok {
			b.WriteRune(ch)
		} else if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// rowToJSON preserves column order unlike map marshaling
func rowToJSON(columns []string, row []string) string {
	var b strings.Builder
	b.WriteString("{")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		key, _ := json.Marshal(col)
		b.Write(key)
		b.WriteString(": ")
		if i < len(row) {
			if row[i] == "NULL" {
				b.WriteString("null")
			} else {
				val, _ := json.Marshal(row[i])
				b.Write(val)
			}
		} else {
			b.WriteString("null")
		}
	}
	b.WriteString("}")
	return b.String()
}
