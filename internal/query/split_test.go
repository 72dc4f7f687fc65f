package query

import "testing"

func TestSplitStatements(t *testing.T) {
	script := "SELECT 1;\nSELECT ';' AS semi;\n\n-- comment; still comment\nSELECT 3"
	stmts := SplitStatements(script)
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "SELECT 1" {
		t.Errorf("first statement: %q", stmts[0])
	}
	if stmts[1] != "SELECT ';' AS semi" {
		t.Errorf("second statement: %q", stmts[1])
	}
}

func TestSplitStatementsEmpty(t *testing.T) {
	if got := SplitStatements("  ;;\n; "); got != nil {
		t.Errorf("expected no statements, got %q", got)
	}
}
