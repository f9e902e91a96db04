package monitoring

import (
	"time"

	"github.com/sells-group/market-report-cli/internal/report"
)

// RunSnapshot tallies the outcome of one batch run.
type RunSnapshot struct {
	Sites       int       `json:"sites"`
	SitesFailed int       `json:"sites_failed"`
	FailedSites []int     `json:"failed_sites,omitempty"`
	Processed   int       `json:"processed"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Records     int       `json:"records"`
	Unmatched   int       `json:"unmatched"`
	CollectedAt time.Time `json:"collected_at"`
}

// ReportFailRate is failed reports over reports that were attempted to completion.
func (s RunSnapshot) ReportFailRate() float64 {
	finished := s.Processed + s.Failed
	if finished == 0 {
		return 0
	}
	return float64(s.Failed) / float64(finished)
}

// UnmatchedRate is unmatched lines over all classified lines.
func (s RunSnapshot) UnmatchedRate() float64 {
	lines := s.Records + s.Unmatched
	if lines == 0 {
		return 0
	}
	return float64(s.Unmatched) / float64(lines)
}

// Collect aggregates site summaries into a snapshot. Nil summaries are ignored.
func Collect(summaries []*report.Summary) RunSnapshot {
	snap := RunSnapshot{CollectedAt: time.Now().UTC()}
	for _, s := range summaries {
		if s == nil {
			continue
		}
		snap.Sites++
		if s.Err != nil {
			snap.SitesFailed++
			snap.FailedSites = append(snap.FailedSites, s.SiteID)
		}
		snap.Processed += s.Processed
		snap.Skipped += s.Skipped
		snap.Failed += s.Failed
		records, unmatched := s.Records()
		snap.Records += records
		snap.Unmatched += unmatched
	}
	return snap
}
