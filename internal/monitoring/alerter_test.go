package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-report-cli/internal/config"
)

func thresholds() config.AlertsConfig {
	return config.AlertsConfig{
		FailureRateThreshold:   0.25,
		UnmatchedRateThreshold: 0.10,
	}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := RunSnapshot{
		Sites:     4,
		Processed: 19,
		Failed:    1,
		Records:   950,
		Unmatched: 50,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_SiteFailure(t *testing.T) {
	a := NewAlerter(thresholds())

	alerts := a.Evaluate(RunSnapshot{Sites: 3, SitesFailed: 1, FailedSites: []int{115}})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertSiteFailure, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "1 of 3 site(s) failed: [115]")
}

func TestAlerter_Evaluate_ReportFailureRate(t *testing.T) {
	a := NewAlerter(thresholds())

	alerts := a.Evaluate(RunSnapshot{Sites: 2, Processed: 6, Failed: 4})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertReportFailureRate, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Equal(t, 10, alerts[0].Details["finished"])
}

func TestAlerter_Evaluate_UnmatchedRate(t *testing.T) {
	a := NewAlerter(thresholds())

	alerts := a.Evaluate(RunSnapshot{Sites: 1, Processed: 1, Records: 30, Unmatched: 10})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertUnmatchedRate, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "25.0%")
}

func TestAlerter_Evaluate_MinimumSamplesRequired(t *testing.T) {
	a := NewAlerter(thresholds())

	// 3 finished reports and 10 lines are below the minimums.
	snap := RunSnapshot{Sites: 1, Processed: 1, Failed: 2, Records: 5, Unmatched: 5}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := RunSnapshot{
		Sites:       3,
		SitesFailed: 1,
		FailedSites: []int{5},
		Processed:   5,
		Failed:      5,
		Records:     60,
		Unmatched:   40,
	}

	alerts := a.Evaluate(snap)
	assert.Len(t, alerts, 3)

	types := make(map[AlertType]bool)
	for _, a := range alerts {
		types[a.Type] = true
	}
	assert.True(t, types[AlertSiteFailure])
	assert.True(t, types[AlertReportFailureRate])
	assert.True(t, types[AlertUnmatchedRate])
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.AlertsConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertSiteFailure, Severity: "high", Message: "test alert 1"},
		{Type: AlertUnmatchedRate, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.AlertsConfig{})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertSiteFailure, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.AlertsConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.AlertsConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertSiteFailure, Message: "test"}})
	assert.Equal(t, 0, sent)
}
