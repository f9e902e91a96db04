package model

import (
	"maps"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/rotisserie/eris"
)

// SaleRecord is one cattle-sale line item. A field is present only when a
// non-empty value was derived for it.
type SaleRecord map[Field]string

// Set stores value under f after trimming. Empty values are not stored and
// clear any previous value.
func (r SaleRecord) Set(f Field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		delete(r, f)
		return
	}
	r[f] = value
}

// Get returns the value of f, if present.
func (r SaleRecord) Get(f Field) (string, bool) {
	v, ok := r[f]
	return v, ok
}

// Clone returns an independent copy of the record.
func (r SaleRecord) Clone() SaleRecord {
	if r == nil {
		return SaleRecord{}
	}
	return maps.Clone(r)
}

// Equal reports whether both records hold exactly the same present fields.
func (r SaleRecord) Equal(other SaleRecord) bool {
	return maps.Equal(r, other)
}

// Row renders the record in Header order; absent fields become empty cells.
func (r SaleRecord) Row() []string {
	row := make([]string, len(Header))
	for i, f := range Header {
		row[i] = r[f]
	}
	return row
}

// RecordFromRow builds a record from a row aligned with header, dropping
// empty cells and unknown columns.
func RecordFromRow(header, row []string) SaleRecord {
	rec := SaleRecord{}
	for i, name := range header {
		if i >= len(row) || !IsField(name) {
			continue
		}
		rec.Set(Field(name), row[i])
	}
	return rec
}

// ReportDefaults is the per-report baseline merged under every sale record.
// It is built once per report and only ever copied afterwards.
type ReportDefaults struct {
	fields SaleRecord
}

// NewReportDefaults builds report defaults from the market's baseline fields,
// the sale date, and the optional title and total head count.
func NewReportDefaults(base SaleRecord, saleDate time.Time, title, head string) ReportDefaults {
	fields := base.Clone()
	if !saleDate.IsZero() {
		fields.Set(SaleYear, strconv.Itoa(saleDate.Year()))
		fields.Set(SaleMonth, strconv.Itoa(int(saleDate.Month())))
		fields.Set(SaleDay, strconv.Itoa(saleDate.Day()))
	}
	fields.Set(SaleTitle, title)
	fields.Set(SaleHead, head)
	return ReportDefaults{fields: fields}
}

// Record returns a copy of the default fields.
func (d ReportDefaults) Record() SaleRecord {
	return d.fields.Clone()
}

// Overlay merges the defaults under sale: fields already present in sale win.
func (d ReportDefaults) Overlay(sale SaleRecord) (SaleRecord, error) {
	out := sale.Clone()
	if err := mergo.Merge(&out, d.fields); err != nil {
		return nil, eris.Wrap(err, "model: merge report defaults")
	}
	return out, nil
}

// IsDefault reports whether rec carries nothing beyond the report defaults.
func (d ReportDefaults) IsDefault(rec SaleRecord) bool {
	if d.fields == nil {
		return len(rec) == 0
	}
	return d.fields.Equal(rec)
}
