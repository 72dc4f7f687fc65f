package query

import "fmt"

// Direction is a sort direction for an ORDER BY clause.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection normalizes a direction string, accepting any casing.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Asc, "asc":
		return Asc, nil
	case Desc, "desc":
		return Desc, nil
	}
	return "", &ConfigurationError{Op: "order by", Reason: fmt.Sprintf("direction must be ASC or DESC, got %q", s)}
}

// OrderClause is a single (field, direction) ordering term.
type OrderClause struct {
	Field     string
	Direction Direction
}

// ConfigurationError reports invalid builder input: an empty predicate, a bad
// sort direction, a non-positive limit. It is recorded at the call that
// introduced it and returned from Build.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("query %s: %s", e.Op, e.Reason)
}
