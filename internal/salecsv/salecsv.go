// Package salecsv reads and writes the canonical sale-record CSV.
package salecsv

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-report-cli/internal/model"
)

// Writer writes sale records under the canonical header. The header is
// written on creation, so an empty report still yields a valid file.
type Writer struct {
	w     *csv.Writer
	count int
}

// NewWriter writes the header to w and returns a Writer for the rows.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	cw.UseCRLF = false
	if err := cw.Write(model.HeaderStrings()); err != nil {
		return nil, eris.Wrap(err, "salecsv: write header")
	}
	return &Writer{w: cw}, nil
}

// Write appends one record; absent fields become empty cells.
func (w *Writer) Write(rec model.SaleRecord) error {
	if err := w.w.Write(rec.Row()); err != nil {
		return eris.Wrap(err, "salecsv: write row")
	}
	w.count++
	return nil
}

// Count returns the number of rows written.
func (w *Writer) Count() int {
	return w.count
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return eris.Wrap(err, "salecsv: flush")
	}
	return nil
}

// WriteAll writes the header and every record, then flushes.
func WriteAll(w io.Writer, records []model.SaleRecord) error {
	cw, err := NewWriter(w)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return cw.Flush()
}

// ReadAll reads a sale CSV. Columns are matched by header name, so files
// with reordered or extra columns are accepted.
func ReadAll(r io.Reader) ([]model.SaleRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, eris.New("salecsv: missing header")
	}
	if err != nil {
		return nil, eris.Wrap(err, "salecsv: read header")
	}

	var out []model.SaleRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "salecsv: read row")
		}
		out = append(out, model.RecordFromRow(header, row))
	}
}
