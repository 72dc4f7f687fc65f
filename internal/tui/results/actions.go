package results

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/euriion/bqbatch/internal/export"
)

// --- Copy ---

func (m *Model) doCopyRowText() {
	result := m.currentResult()
	if result == nil || m.cursorY < 0 || m.cursorY >= len(result.Rows) {
		m.statusMessage = "No row to copy"
		return
	}
	row := result.Rows[m.cursorY]
	if err := clipboard.WriteAll(strings.Join(row, "\t")); err != nil {
		m.statusMessage = "Copy failed: " + err.Error()
		return
	}
	m.statusMessage = "Copied row as text"
}

func (m *Model) doCopyRowJSON() {
	result := m.currentResult()
	if result == nil || m.cursorY < 0 || m.cursorY >= len(result.Rows) {
		m.statusMessage = "No row to copy"
		return
	}
	jsonStr := rowToJSON(result.Columns, result.Rows[m.cursorY])
	if err := clipboard.WriteAll(jsonStr); err != nil {
		m.statusMessage = "Copy failed: " + err.Error()
		return
	}
	m.statusMessage = "Copied row as JSON"
}

// --- Export ---

// exportCmd writes the selected outcome's rows to a timestamped file in the
// requested format.
func (m Model) exportCmd(format export.Format) tea.Cmd {
	outcome := m.current()
	result := m.currentResult()
	if outcome == nil || result == nil {
		return func() tea.Msg {
			return StatusNotifyMsg{Message: "Nothing to export"}
		}
	}
	id := sanitizeFilePart(outcome.ID)
	return func() tea.Msg {
		ts := time.Now().Format("20060102_150405")
		filename := fmt.Sprintf("bqbatch_%s_%s.%s", id, ts, format)

		if err := export.WriteFile(filename, result); err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", len(result.Rows), filename)}
	}
}

// --- Helpers ---

// rowToJSON preserves column order unlike map marshaling
func rowToJSON(columns []string, row []string) string {
	var b strings.Builder
	b.WriteString("{")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		key, _ := json.Marshal(col)
		b.WriteString(string(key))
		b.WriteString(": ")
		if i < len(row) {
			if row[i] == "NULL" {
				b.WriteString("null")
			} else {
				val, _ := json.Marshal(row[i])
				b.WriteString(string(val))
			}
		} else {
			b.WriteString("null")
		}
	}
	b.WriteString("}")
	return b.String()
}

// sanitizeFilePart keeps outcome ids safe to embed in a filename.
func sanitizeFilePart(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "result"
	}
	return b.String()
}
