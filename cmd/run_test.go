package main

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-report-cli/internal/report"
	"github.com/sells-group/market-report-cli/internal/site"
)

func testSites(t *testing.T, ids ...int) []*site.Site {
	t.Helper()
	var out []*site.Site
	for _, id := range ids {
		s, err := (&site.Profile{SiteID: id}).Compile()
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestRunSites_AllSucceed(t *testing.T) {
	sites := testSites(t, 5, 63, 115)

	var calls atomic.Int32
	sums, err := runSites(context.Background(), sites, 2, func(_ context.Context, s *site.Site) (*report.Summary, error) {
		calls.Add(1)
		return &report.Summary{SiteID: s.SiteID, Processed: s.SiteID}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, sums, 3)
	// Summaries keep the order of the sites.
	assert.Equal(t, 5, sums[0].Processed)
	assert.Equal(t, 63, sums[1].Processed)
	assert.Equal(t, 115, sums[2].Processed)
}

func TestRunSites_FailureDoesNotStopOthers(t *testing.T) {
	sites := testSites(t, 1, 2, 3)

	sums, err := runSites(context.Background(), sites, 3, func(_ context.Context, s *site.Site) (*report.Summary, error) {
		if s.SiteID == 2 {
			return nil, eris.New("report: listing unreachable")
		}
		return &report.Summary{SiteID: s.SiteID, Processed: 1}, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 sites failed")
	require.Len(t, sums, 3)
	assert.Equal(t, 1, sums[0].Processed)
	assert.Equal(t, 2, sums[1].SiteID)
	assert.Zero(t, sums[1].Processed)
	assert.ErrorContains(t, sums[1].Err, "listing unreachable")
	assert.NoError(t, sums[0].Err)
	assert.Equal(t, 1, sums[2].Processed)
}

func TestRunSites_RespectsConcurrencyLimit(t *testing.T) {
	sites := testSites(t, 1, 2, 3, 4, 5, 6)

	var running, peak atomic.Int32
	_, err := runSites(context.Background(), sites, 2, func(_ context.Context, s *site.Site) (*report.Summary, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return &report.Summary{SiteID: s.SiteID}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunSites_Empty(t *testing.T) {
	sums, err := runSites(context.Background(), nil, 4, nil)
	require.NoError(t, err)
	assert.Nil(t, sums)
}

func TestFormatSummaries(t *testing.T) {
	var buf bytes.Buffer
	formatSummaries(&buf, []*report.Summary{
		{SiteID: 63, Prefix: "hilltop", Processed: 2, Skipped: 5, Failed: 1},
		{SiteID: 5, Prefix: "sidney", Processed: 1},
	})
	out := buf.String()
	assert.Contains(t, out, "hilltop")
	assert.Contains(t, out, "sidney")
	assert.Contains(t, out, "TOTAL")

	buf.Reset()
	formatSummaries(&buf, nil)
	assert.Empty(t, buf.String())
}
