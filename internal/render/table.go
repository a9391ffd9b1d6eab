package render

import "strings"

// tableBuffer accumulates table_row blocks between a table block and the
// next non-row block, then renders them as a single GitHub-flavored table.
type tableBuffer struct {
	width           int
	hasColumnHeader bool
	hasRowHeader    bool
	rows            [][]string
}

func (t *tableBuffer) render() string {
	if len(t.rows) == 0 {
		return ""
	}

	width := t.width
	for _, row := range t.rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return ""
	}

	header := make([]string, width)
	bodyRows := t.rows
	if t.hasColumnHeader && len(t.rows) > 0 {
		header = padRow(t.rows[0], width)
		bodyRows = t.rows[1:]
	}

	var sb strings.Builder
	sb.WriteString(renderTableRow(header))
	sb.WriteString("\n")
	sb.WriteString(renderSeparator(width))
	sb.WriteString("\n")
	for i, row := range bodyRows {
		padded := padRow(row, width)
		if t.hasRowHeader && len(padded) > 0 {
			padded[0] = "**" + padded[0] + "**"
		}
		sb.WriteString(renderTableRow(padded))
		sb.WriteString("\n")
		_ = i
	}
	sb.WriteString("\n")
	return sb.String()
}

func padRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func renderTableRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func renderSeparator(width int) string {
	cols := make([]string, width)
	for i := range cols {
		cols[i] = "---"
	}
	return renderTableRow(cols)
}
