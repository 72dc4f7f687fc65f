package query

import (
	"strconv"
	"strings"
)

// Builder accumulates query clauses and renders them into a SQL string.
// Accumulation and rendering are separate: Build is a pure projection of the
// accumulated state and may be called repeatedly. The builder performs no SQL
// validation beyond its own structural rules; semantic errors are left for
// the server to reject.
//
// A Builder is single-owner during mutation. The first invalid call poisons
// the builder: later calls are no-ops and Build returns the recorded error.
type Builder struct {
	table   string
	selects []string
	wheres  []string
	groups  []string
	orders  []OrderClause
	limit   int // 0 means unset
	err     error
}

// New creates a builder for the given base table.
func New(table string) *Builder {
	b := &Builder{table: strings.TrimSpace(table)}
	if b.table == "" {
		b.err = &ConfigurationError{Op: "from", Reason: "table name must not be empty"}
	}
	return b
}

// Select appends fields to the SELECT list. Fields may carry alias
// expressions such as "SUM(amount) AS total". Insertion order is preserved
// in the rendered column list. With no Select calls, Build renders SELECT *.
func (b *Builder) Select(fields ...string) *Builder {
	if b.err != nil {
		return b
	}
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			b.err = &ConfigurationError{Op: "select", Reason: "field must not be empty"}
			return b
		}
		b.selects = append(b.selects, f)
	}
	return b
}

// Where appends one predicate. Multiple predicates are joined with AND at
// render time.
func (b *Builder) Where(predicate string) *Builder {
	if b.err != nil {
		return b
	}
	if strings.TrimSpace(predicate) == "" {
		b.err = &ConfigurationError{Op: "where", Reason: "predicate must not be empty"}
		return b
	}
	b.wheres = append(b.wheres, predicate)
	return b
}

// GroupBy appends grouping fields, preserving insertion order.
func (b *Builder) GroupBy(fields ...string) *Builder {
	if b.err != nil {
		return b
	}
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			b.err = &ConfigurationError{Op: "group by", Reason: "field must not be empty"}
			return b
		}
		b.groups = append(b.groups, f)
	}
	return b
}

// OrderBy appends one ordering term. dir must be Asc or Desc.
func (b *Builder) OrderBy(field string, dir Direction) *Builder {
	if b.err != nil {
		return b
	}
	if strings.TrimSpace(field) == "" {
		b.err = &ConfigurationError{Op: "order by", Reason: "field must not be empty"}
		return b
	}
	d, err := ParseDirection(string(dir))
	if err != nil {
		b.err = err
		return b
	}
	b.orders = append(b.orders, OrderClause{Field: field, Direction: d})
	return b
}

// Limit sets the row limit. Calling it again overwrites the previous value:
// limit has set semantics, unlike the append semantics of the list clauses.
func (b *Builder) Limit(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n <= 0 {
		b.err = &ConfigurationError{Op: "limit", Reason: "limit must be a positive integer, got " + strconv.Itoa(n)}
		return b
	}
	b.limit = n
	return b
}

// Err returns the first configuration error recorded, if any.
func (b *Builder) Err() error {
	return b.err
}

// Build renders the accumulated state. Clauses appear in fixed order
// (SELECT, FROM, WHERE, GROUP BY, ORDER BY, LIMIT), one per line, with
// unpopulated clauses omitted. Build does not mutate the builder; the same
// state always renders the same string.
func (b *Builder) Build() (string, error) {
	if b.err != nil {
		return "", b.err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(b.selects) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(b.selects, ", "))
	}
	sb.WriteString("\nFROM ")
	sb.WriteString(b.table)

	if len(b.wheres) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(b.wheres, " AND "))
	}
	if len(b.groups) > 0 {
		sb.WriteString("\nGROUP BY ")
		sb.WriteString(strings.Join(b.groups, ", "))
	}
	if len(b.orders) > 0 {
		sb.WriteString("\nORDER BY ")
		terms := make([]string, len(b.orders))
		for i, o := range b.orders {
			terms[i] = o.Field + " " + string(o.Direction)
		}
		sb.WriteString(strings.Join(terms, ", "))
	}
	if b.limit > 0 {
		sb.WriteString("\nLIMIT ")
		sb.WriteString(strconv.Itoa(b.limit))
	}

	return sb.String(), nil
}
