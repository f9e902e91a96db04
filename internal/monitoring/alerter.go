package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-report-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertSiteFailure       AlertType = "site_failure"
	AlertReportFailureRate AlertType = "report_failure_rate"
	AlertUnmatchedRate     AlertType = "unmatched_rate"
)

// Minimum sample sizes before a rate alert fires.
const (
	minFinishedReports = 5
	minClassifiedLines = 20
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a RunSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.AlertsConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given alerts config.
func NewAlerter(cfg config.AlertsConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap RunSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if snap.SitesFailed > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertSiteFailure,
			Severity: "high",
			Message:  fmt.Sprintf("%d of %d site(s) failed: %v", snap.SitesFailed, snap.Sites, snap.FailedSites),
			Details: map[string]any{
				"failed_sites": snap.FailedSites,
				"sites":        snap.Sites,
			},
			Timestamp: now,
		})
	}

	finished := snap.Processed + snap.Failed
	if rate := snap.ReportFailRate(); finished >= minFinishedReports && rate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertReportFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Report failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished)",
				rate*100, a.cfg.FailureRateThreshold*100, snap.Failed, finished,
			),
			Details: map[string]any{
				"failure_rate": rate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	// A climbing unmatched rate usually means a market changed its report layout.
	lines := snap.Records + snap.Unmatched
	if rate := snap.UnmatchedRate(); lines >= minClassifiedLines && rate > a.cfg.UnmatchedRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertUnmatchedRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Unmatched line rate %.1f%% exceeds threshold %.1f%% (%d unmatched / %d lines)",
				rate*100, a.cfg.UnmatchedRateThreshold*100, snap.Unmatched, lines,
			),
			Details: map[string]any{
				"unmatched_rate": rate,
				"threshold":      a.cfg.UnmatchedRateThreshold,
				"unmatched":      snap.Unmatched,
				"records":        snap.Records,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
