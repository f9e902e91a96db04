package fetcher

import (
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrBlocked is returned when a host answers with an anti-bot page.
// Blocked requests are not retried.
var ErrBlocked = eris.New("fetcher: blocked by anti-bot protection")

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

const blockSniffBytes = 64 << 10

// DetectBlock checks a non-200 response for signs of anti-bot protection.
// Only 403 and 503 responses are inspected.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusServiceUnavailable {
		return false, BlockNone
	}

	if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-mitigated") != "" ||
		strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
		return true, BlockCloudflare
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockCloudflare
	}

	if strings.Contains(lower, "captcha") {
		return true, BlockCaptcha
	}

	// Tiny pages that only bounce through script or a meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}

// sniffBlock reads the head of resp's body and reports any block.
func sniffBlock(resp *http.Response) (bool, BlockType) {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusServiceUnavailable {
		return false, BlockNone
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, blockSniffBytes))
	return DetectBlock(resp, body)
}
