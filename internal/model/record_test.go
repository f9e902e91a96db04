package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaleRecord_SetOmitsEmpty(t *testing.T) {
	r := SaleRecord{}
	r.Set(CattleHead, "  ")
	assert.Empty(t, r)

	r.Set(CattleHead, " 12 ")
	assert.Equal(t, "12", r[CattleHead])

	r.Set(CattleHead, "")
	_, ok := r.Get(CattleHead)
	assert.False(t, ok)
}

func TestSaleRecord_RowOrder(t *testing.T) {
	r := SaleRecord{CattlePrice: "1250.00", SaleYear: "2016"}
	row := r.Row()
	require.Len(t, row, len(Header))
	assert.Equal(t, "2016", row[0])
	assert.Equal(t, "1250.00", row[len(row)-1])
	assert.Equal(t, "", row[1])
}

func TestRecordFromRow(t *testing.T) {
	header := []string{"sale_year", "bogus", "cattle_head"}
	rec := RecordFromRow(header, []string{"2016", "x", ""})
	assert.Equal(t, SaleRecord{SaleYear: "2016"}, rec)
}

func TestNewReportDefaults(t *testing.T) {
	base := SaleRecord{SaleName: "Hilltop Livestock", SaleState: "MT"}
	d := NewReportDefaults(base, time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC), "", "1,200")

	rec := d.Record()
	assert.Equal(t, "2016", rec[SaleYear])
	assert.Equal(t, "3", rec[SaleMonth])
	assert.Equal(t, "7", rec[SaleDay])
	assert.Equal(t, "1,200", rec[SaleHead])
	assert.NotContains(t, rec, SaleTitle)

	// base is not mutated
	assert.Len(t, base, 2)
}

func TestReportDefaults_Overlay(t *testing.T) {
	d := NewReportDefaults(SaleRecord{SaleState: "MT", SaleCity: "Billings"}, time.Time{}, "", "")

	sale := SaleRecord{SaleCity: "Miles City", CattleHead: "10"}
	out, err := d.Overlay(sale)
	require.NoError(t, err)

	assert.Equal(t, SaleRecord{SaleState: "MT", SaleCity: "Miles City", CattleHead: "10"}, out)
	assert.Len(t, sale, 2, "overlay must not mutate its input")
	assert.False(t, d.IsDefault(out))
	assert.True(t, d.IsDefault(d.Record()))
}

func TestReportDefaults_ZeroValue(t *testing.T) {
	var d ReportDefaults
	assert.True(t, d.IsDefault(SaleRecord{}))

	out, err := d.Overlay(SaleRecord{CattleHead: "3"})
	require.NoError(t, err)
	assert.Equal(t, SaleRecord{CattleHead: "3"}, out)
}

func TestMarket_Defaults(t *testing.T) {
	m := Market{Website: "example.com", Locations: []SaleRecord{{SaleCity: "Circle"}}}
	assert.Equal(t, "http://example.com/", m.URL())
	assert.Equal(t, SaleRecord{SaleCity: "Circle"}, m.Defaults())

	m.Locations = append(m.Locations, SaleRecord{SaleCity: "Glasgow"})
	assert.Empty(t, m.Defaults())
}

func TestHeaderStrings(t *testing.T) {
	h := HeaderStrings()
	assert.Len(t, h, 26)
	assert.Equal(t, "sale_year", h[0])
	assert.Equal(t, "cattle_price", h[25])
	assert.True(t, IsField("buyer_zip"))
	assert.False(t, IsField("buyer_phone"))
}
