package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-report-cli/internal/config"
)

func withSitesDir(t *testing.T, files map[string]string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	prev := cfg
	cfg = &config.Config{Sites: config.SitesConfig{Dir: dir}}
	t.Cleanup(func() { cfg = prev })
}

func TestLoadSites(t *testing.T) {
	withSitesDir(t, map[string]string{
		"63.yaml": "site_id: 63\nprefix: hilltop\nformat: pdf\nindex_url: https://example.com/reports\n",
		"5.yaml":  "site_id: 5\nrules:\n  patterns:\n    - match: \"^(?P<head>\\\\d+) (?P<cattle>\\\\w+)$\"\n",
	})

	all, err := loadSites(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 5, all[0].SiteID)
	assert.Len(t, all[0].Rules.Patterns, 1)

	picked, err := loadSites([]string{"63"})
	require.NoError(t, err)
	require.Len(t, picked, 1)
	assert.Equal(t, "hilltop", picked[0].Prefix)

	_, err = loadSites([]string{"7"})
	assert.ErrorContains(t, err, "no profile for site 7")
	_, err = loadSites([]string{"abc"})
	assert.ErrorContains(t, err, `invalid site id "abc"`)

	var buf bytes.Buffer
	formatSites(&buf, all)
	assert.Contains(t, buf.String(), "hilltop")
	assert.Contains(t, buf.String(), "https://example.com/reports")
}

func TestLoadSites_BadPattern(t *testing.T) {
	withSitesDir(t, map[string]string{
		"9.yaml": "site_id: 9\nrules:\n  stop_markers: [\"(\"]\n",
	})

	_, err := loadSites(nil)
	assert.ErrorContains(t, err, "stop marker")
}
