package projection

import "strings"

// Table is a rectangular grid of cells.
type Table [][]string

// ParseCSV splits text on "\n" and each line on ",". A trailing newline does
// not produce an extra row. Short rows are padded so the grid is rectangular.
func ParseCSV(text string) Table {
	if text == "" {
		return Table{}
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	rows := make(Table, 0, len(lines))
	width := 0
	for _, line := range lines {
		cells := strings.Split(line, ",")
		width = max(width, len(cells))
		rows = append(rows, cells)
	}
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}
	return rows
}

// SerializeCSV joins rows with "\n" and cells with ",". Cells containing a
// comma, quote or newline are wrapped in quotes with inner quotes doubled.
func SerializeCSV(rows Table) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			if strings.ContainsAny(cell, ",\"\n") {
				b.WriteByte('"')
				b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
				b.WriteByte('"')
				continue
			}
			b.WriteString(cell)
		}
	}
	return b.String()
}

// Clone deep-copies the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for i, row := range t {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Set returns a copy with the cell at (row, col) replaced. Out-of-range
// coordinates return false.
func (t Table) Set(row, col int, value string) (Table, bool) {
	if row < 0 || row >= len(t) || col < 0 || col >= len(t[row]) {
		return t, false
	}
	out := t.Clone()
	out[row][col] = value
	return out, true
}
