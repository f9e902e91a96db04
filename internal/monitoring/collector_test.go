package monitoring

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/market-report-cli/internal/report"
)

func TestCollect(t *testing.T) {
	summaries := []*report.Summary{
		{
			SiteID: 63, Processed: 2, Skipped: 1,
			Reports: []report.Result{
				{Outcome: report.OutcomeProcessed, Records: 40, Unmatched: 2},
				{Outcome: report.OutcomeProcessed, Records: 10, Unmatched: 0},
				{Outcome: report.OutcomeSkipped},
			},
		},
		nil,
		{SiteID: 115, Err: eris.New("report: fetch listing")},
		{
			SiteID: 5, Failed: 1,
			Reports: []report.Result{{Outcome: report.OutcomeFailed}},
		},
	}

	snap := Collect(summaries)
	assert.Equal(t, 3, snap.Sites)
	assert.Equal(t, 1, snap.SitesFailed)
	assert.Equal(t, []int{115}, snap.FailedSites)
	assert.Equal(t, 2, snap.Processed)
	assert.Equal(t, 1, snap.Skipped)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 50, snap.Records)
	assert.Equal(t, 2, snap.Unmatched)
	assert.False(t, snap.CollectedAt.IsZero())
	assert.InDelta(t, 1.0/3.0, snap.ReportFailRate(), 0.0001)
	assert.InDelta(t, 2.0/52.0, snap.UnmatchedRate(), 0.0001)
}

func TestRunSnapshot_EmptyRates(t *testing.T) {
	snap := Collect(nil)
	assert.Zero(t, snap.Sites)
	assert.Zero(t, snap.ReportFailRate())
	assert.Zero(t, snap.UnmatchedRate())
}
