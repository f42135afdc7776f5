package content

import "strings"

// RenderTable serializes a table's cell texts to a markdown table: one row
// per line, cells joined with pipes, a header separator line after the first
// row sized to the column count. Cell line breaks are flattened to single
// spaces. An empty table renders to an empty string with no separator.
func RenderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	lines := make([]string, 0, len(rows)+1)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.TrimSpace(strings.ReplaceAll(cell, "\n", " "))
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
	}

	seps := make([]string, len(rows[0]))
	for i := range seps {
		seps[i] = "---"
	}
	sep := "| " + strings.Join(seps, " | ") + " |"

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[0], sep)
	out = append(out, lines[1:]...)
	return strings.Join(out, "\n")
}

// Markdown renders the whole record sequence as one markdown text, blocks
// separated by blank lines. Used for the extraction preview.
func Markdown(records []Record) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		if r.Content != "" {
			parts = append(parts, r.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
