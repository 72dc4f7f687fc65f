package results

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/euriion/bqbatch/internal/batch"
	"github.com/euriion/bqbatch/internal/database"
	"github.com/euriion/bqbatch/internal/export"
	"github.com/euriion/bqbatch/internal/tui/theme"
)

// Model is the batch results component. It shows the outcome strip for the
// whole report and the row table of the selected outcome.
type Model struct {
	report    *batch.Report
	selected  int // index into report.Outcomes
	err       error
	width     int
	height    int
	focused   bool
	cursorY   int
	scrollY   int
	loading   bool
	colWidths []int

	statusMessage string
}

// New creates a new results model.
func New() Model {
	return Model{}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// Focused returns whether the results pane has focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetReport sets the batch report to display.
func (m *Model) SetReport(r *batch.Report) {
	m.report = r
	m.err = nil
	m.selected = 0
	m.cursorY = 0
	m.scrollY = 0
	m.loading = false
	m.statusMessage = ""
	m.calculateColumnWidths()
}

// SetError sets a batch-level error to display.
func (m *Model) SetError(err error) {
	m.err = err
	m.report = nil
	m.cursorY = 0
	m.scrollY = 0
	m.loading = false
}

// current returns the selected outcome, if any.
func (m Model) current() *batch.Outcome {
	if m.report == nil || m.selected < 0 || m.selected >= len(m.report.Outcomes) {
		return nil
	}
	return &m.report.Outcomes[m.selected]
}

// currentResult returns the selected outcome's result, if it succeeded.
func (m Model) currentResult() *database.QueryResult {
	if o := m.current(); o != nil && o.OK() {
		return o.Result
	}
	return nil
}

func (m *Model) calculateColumnWidths() {
	result := m.currentResult()
	if result == nil || len(result.Columns) == 0 {
		m.colWidths = nil
		return
	}

	m.colWidths = make([]int, len(result.Columns))

	// Use display width (not byte length) for accurate measurement
	for i, col := range result.Columns {
		m.colWidths[i] = lipgloss.Width(col)
	}

	for _, row := range result.Rows {
		for i, cell := range row {
			w := lipgloss.Width(cell)
			if i < len(m.colWidths) && w > m.colWidths[i] {
				m.colWidths[i] = w
			}
		}
	}

	// Enforce minimum of 1 and cap at 40
	for i := range m.colWidths {
		if m.colWidths[i] < 1 {
			m.colWidths[i] = 1
		}
		if m.colWidths[i] > 40 {
			m.colWidths[i] = 40
		}
	}
}

// selectOutcome moves the outcome selection by delta.
func (m *Model) selectOutcome(delta int) {
	if m.report == nil || len(m.report.Outcomes) == 0 {
		return
	}
	m.selected += delta
	if m.selected < 0 {
		m.selected = 0
	}
	if m.selected >= len(m.report.Outcomes) {
		m.selected = len(m.report.Outcomes) - 1
	}
	m.cursorY = 0
	m.scrollY = 0
	m.calculateColumnWidths()
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the results pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursorY > 0 {
				m.cursorY--
			}
		case "down", "j":
			if r := m.currentResult(); r != nil && m.cursorY < r.RowCount-1 {
				m.cursorY++
			}
		case "pgup":
			m.cursorY -= m.visibleRows()
			if m.cursorY < 0 {
				m.cursorY = 0
			}
		case "pgdown":
			if r := m.currentResult(); r != nil {
				m.cursorY += m.visibleRows()
				if m.cursorY > r.RowCount-1 {
					m.cursorY = r.RowCount - 1
				}
				if m.cursorY < 0 {
					m.cursorY = 0
				}
			}
		case "left", "h":
			m.selectOutcome(-1)
		case "right", "l":
			m.selectOutcome(1)
		case "y":
			m.doCopyRowText()
		case "Y":
			m.doCopyRowJSON()
		case "e":
			return m, m.exportCmd(export.FormatCSV)
		case "E":
			return m, m.exportCmd(export.FormatJSON)
		case "p":
			return m, m.exportCmd(export.FormatParquet)
		case "a":
			return m, m.exportCmd(export.FormatAvro)
		}
	}

	m.clampScroll()
	return m, nil
}

func (m *Model) clampScroll() {
	visible := m.visibleRows()
	if m.cursorY < m.scrollY {
		m.scrollY = m.cursorY
	}
	if m.cursorY >= m.scrollY+visible {
		m.scrollY = m.cursorY - visible + 1
	}
	if m.scrollY < 0 {
		m.scrollY = 0
	}
}

func (m Model) visibleRows() int {
	// title + outcome strip + header + separator
	v := m.height - 5
	if v < 1 {
		v = 1
	}
	return v
}

// View renders the results pane.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	if m.loading {
		return titleStyle.Render("Results") + "\n" + theme.StyleMuted.Render("  Running batch...")
	}

	if m.err != nil {
		return titleStyle.Render("Results") + "\n" +
			theme.StyleError.Render("  Error: "+m.err.Error())
	}

	if m.report == nil {
		return titleStyle.Render("Results") + "\n" +
			theme.StyleMuted.Render("  Run a query (or several, separated by ;) to see results")
	}

	summary := batch.Summarize(m.report)
	stats := fmt.Sprintf("%d/%d ok | %d row(s) | %s",
		summary.Successes, summary.Requests,
		summary.TotalRows,
		summary.Elapsed.Round(time.Millisecond),
	)
	header := titleStyle.Render("Results") + "  " + theme.StyleMuted.Render(stats)
	if m.report.Cancelled {
		header += " " + theme.StyleWarning.Render("cancelled")
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.renderOutcomeStrip())
	b.WriteString("\n")

	outcome := m.current()
	if outcome == nil {
		b.WriteString(theme.StyleMuted.Render("  No outcomes in report"))
		return b.String()
	}

	if !outcome.OK() {
		b.WriteString(theme.StyleError.Render(fmt.Sprintf("  %s failed (%s): %v", outcome.ID, outcome.Kind, outcome.Err)))
		if outcome.Attempts > 1 {
			b.WriteString(theme.StyleMuted.Render(fmt.Sprintf(" after %d attempts", outcome.Attempts)))
		}
		if m.statusMessage != "" {
			b.WriteString("\n" + theme.StyleMuted.Render("  "+m.statusMessage))
		}
		return b.String()
	}

	result := outcome.Result
	if len(result.Columns) == 0 {
		b.WriteString(theme.StyleSuccess.Render("  Statement executed successfully"))
		return b.String()
	}

	// Render table header
	b.WriteString(m.renderRow(result.Columns, true, false))
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())
	b.WriteString("\n")

	visible := m.visibleRows()
	for i := m.scrollY; i < len(result.Rows) && i < m.scrollY+visible; i++ {
		b.WriteString(m.renderRow(result.Rows[i], false, i == m.cursorY))
		if i < m.scrollY+visible-1 && i < len(result.Rows)-1 {
			b.WriteString("\n")
		}
	}

	if m.statusMessage != "" {
		b.WriteString("\n" + theme.StyleMuted.Render("  "+m.statusMessage))
	}

	return b.String()
}

// renderOutcomeStrip shows one badge per outcome, selection highlighted.
func (m Model) renderOutcomeStrip() string {
	parts := make([]string, 0, len(m.report.Outcomes))
	for i, o := range m.report.Outcomes {
		var badge string
		if o.OK() {
			badge = theme.StyleSuccess.Render("✓") + " " + o.ID
		} else {
			badge = theme.StyleError.Render("✗") + " " + o.ID
		}
		if i == m.selected {
			badge = lipgloss.NewStyle().
				Foreground(theme.ColorHighlight).
				Bold(true).
				Render("[") + badge + lipgloss.NewStyle().
				Foreground(theme.ColorHighlight).
				Bold(true).
				Render("]")
		} else {
			badge = " " + badge + " "
		}
		parts = append(parts, badge)
	}
	strip := "  " + strings.Join(parts, " ")
	if m.width > 0 && lipgloss.Width(strip) > m.width {
		// keep the selected badge visible by trimming from the left
		strip = "  …" + parts[m.selected]
	}
	return strip
}

func (m Model) renderRow(cells []string, isHeader, selected bool) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		width := 10
		if i < len(m.colWidths) {
			width = m.colWidths[i]
		}
		if width < 1 {
			width = 1
		}

		display := cell
		displayWidth := lipgloss.Width(display)

		// Truncate if display is wider than column
		if displayWidth > width {
			runes := []rune(display)
			if width > 1 && len(runes) > 0 {
				// Trim runes until we fit (accounting for the ellipsis)
				trimmed := runes
				for lipgloss.Width(string(trimmed)) >= width && len(trimmed) > 0 {
					trimmed = trimmed[:len(trimmed)-1]
				}
				display = string(trimmed) + "…"
			} else {
				display = "…"
			}
			displayWidth = lipgloss.Width(display)
		}

		// Pad to column width; guard against negative (never panic)
		pad := width - displayWidth
		if pad > 0 {
			display += strings.Repeat(" ", pad)
		}

		switch {
		case isHeader:
			parts[i] = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorPrimary).
				Render(display)
		case selected:
			parts[i] = lipgloss.NewStyle().
				Foreground(theme.ColorHighlight).
				Render(display)
		default:
			parts[i] = display
		}
	}
	return "  " + strings.Join(parts, " │ ")
}

func (m Model) renderSeparator() string {
	parts := make([]string, len(m.colWidths))
	for i, w := range m.colWidths {
		if w < 1 {
			w = 1
		}
		parts[i] = strings.Repeat("─", w)
	}
	return "  " + lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Join(parts, "─┼─"))
}
