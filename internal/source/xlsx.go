package source

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXLines reads one sheet of a spreadsheet report; each non-empty row
// becomes a line of tab-joined cells.
func XLSXLines(data []byte, sheetIndex int) ([]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "source: open xlsx")
	}
	if sheetIndex < 0 || sheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("source: sheet index %d out of range (file has %d sheets)", sheetIndex, len(f.Sheets))
	}

	var lines []string
	for _, row := range f.Sheets[sheetIndex].Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if line := joinCells(cells); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
