package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-report-cli/internal/market"
	"github.com/sells-group/market-report-cli/internal/model"
)

const marketsYAML = `
- site_id: 63
  website: www.hilltoplivestock.com
  prefix: hilltop
  locations:
    - name: Hilltop Livestock
      po: Box 12
      city: Miles City
      state: MT
      zip: "59301"
- site_id: 5
  website: sidney.example.com
  prefix: sidney
`

func TestParseMarkets(t *testing.T) {
	markets, err := parseMarkets([]byte(marketsYAML))
	require.NoError(t, err)
	require.Len(t, markets, 2)

	assert.Equal(t, 63, markets[0].SiteID)
	assert.Equal(t, "hilltop", markets[0].Prefix)
	assert.Equal(t, model.SaleRecord{
		model.SaleName:  "Hilltop Livestock",
		model.SalePO:    "Box 12",
		model.SaleCity:  "Miles City",
		model.SaleState: "MT",
		model.SaleZip:   "59301",
	}, markets[0].Defaults())
	assert.Empty(t, markets[1].Locations)

	_, err = parseMarkets([]byte("site_id: ["))
	assert.ErrorContains(t, err, "market import: parse")
}

func TestFormatMarketAndReports(t *testing.T) {
	markets, err := parseMarkets([]byte(marketsYAML))
	require.NoError(t, err)

	var buf bytes.Buffer
	formatMarket(&buf, markets[0])
	assert.Contains(t, buf.String(), "http://www.hilltoplivestock.com/")
	assert.Contains(t, buf.String(), "Miles City")

	buf.Reset()
	formatReports(&buf, []market.Report{{
		Prefix:      "hilltop",
		SaleDate:    time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC),
		Path:        "hilltop_scrape/hilltop_16-03-07.csv",
		Records:     42,
		Unmatched:   3,
		ProcessedAt: time.Date(2016, 3, 8, 9, 0, 0, 0, time.UTC),
	}})
	assert.Contains(t, buf.String(), "2016-03-07")
	assert.Contains(t, buf.String(), "42")
}
