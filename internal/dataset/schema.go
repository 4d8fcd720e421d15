package dataset

import (
	"fmt"
	"strings"
)

const sampleRowCount = 3

// Schema renders the textual schema description embedded into LLM prompts:
// one line per column with its inferred type, then up to three sample rows.
func (d *Dataset) Schema() string {
	var b strings.Builder

	for _, c := range d.Columns {
		fmt.Fprintf(&b, "- '%s' (type: %s)\n", c.Name, c.Type)
	}

	b.WriteString("\nHere are some sample rows:\n")
	b.WriteString(strings.Join(d.ColumnNames(), " | "))
	b.WriteString("\n")

	n := len(d.Rows)
	if n > sampleRowCount {
		n = sampleRowCount
	}
	for _, row := range d.Rows[:n] {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}

	return b.String()
}
