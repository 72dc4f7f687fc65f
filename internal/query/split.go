package query

import "strings"

// SplitStatements splits a script into individual statements on semicolons,
// ignoring semicolons inside single- or double-quoted literals and line
// comments. Empty statements are dropped.
func SplitStatements(script string) []string {
	var stmts []string
	var cur strings.Builder
	inString := false
	inComment := false
	quote := rune(0)
	prev := rune(0)

	for _, ch := range script {
		if inComment {
			cur.WriteRune(ch)
			if ch == '\n' {
				inComment = false
			}
			prev = ch
			continue
		}
		if inString {
			cur.WriteRune(ch)
			if ch == quote {
				inString = false
			}
			prev = ch
			continue
		}
		switch {
		case ch == '\'' || ch == '"':
			inString = true
			quote = ch
			cur.WriteRune(ch)
		case ch == '-' && prev == '-':
			inComment = true
			cur.WriteRune(ch)
		case ch == ';':
			if s := strings.TrimSpace(cur.String()); s != "" {
				stmts = append(stmts, s)
			}
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
		prev = ch
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}
