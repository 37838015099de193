package display

import (
	"fmt"
	"io"
)

// SummaryRow is one "label: value" pair of the end-of-run summary.
type SummaryRow struct {
	Label string
	Value string
}

// PrintSummary writes the end-of-run summary table to w.
func PrintSummary(w io.Writer, rows []SummaryRow) {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{r.Label, r.Value})
	}
	fmt.Fprintln(w, RenderTable([]string{"Item", "Value"}, cells, []Align{AlignLeft, AlignRight}))
}
