package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-report-cli/internal/resilience"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "mistral-ocr-latest"
)

// MistralOCR converts PDFs and report images with the Mistral OCR API.
// The returned page markdown is flattened to plain report lines.
type MistralOCR struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	retry    resilience.RetryConfig
}

// NewMistralOCR creates a MistralOCR converter. If model is empty, the default is used.
func NewMistralOCR(apiKey, model string) *MistralOCR {
	if model == "" {
		model = defaultMistralModel
	}
	return &MistralOCR{
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{},
		retry:    resilience.FromMaxRetries(2),
	}
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type mistralOCRResponse struct {
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// Convert sends the report to Mistral OCR and writes the flattened pages,
// separated by a blank line, to dstPath.
func (m *MistralOCR) Convert(ctx context.Context, srcPath, dstPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return eris.Wrapf(err, "ocr: read report %s", srcPath)
	}
	body, err := json.Marshal(mistralOCRRequest{Model: m.model, Document: documentFor(srcPath, data)})
	if err != nil {
		return eris.Wrap(err, "ocr: marshal mistral request")
	}

	retry := m.retry
	retry.OnRetry = resilience.RetryLogger("mistral", "ocr")
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*mistralOCRResponse, error) {
		return m.post(ctx, body)
	})
	if err != nil {
		return err
	}

	pages := make([]string, 0, len(resp.Pages))
	for _, p := range resp.Pages {
		pages = append(pages, flattenMarkdown(p.Markdown))
	}
	if err := os.WriteFile(dstPath, []byte(strings.Join(pages, "\n\n")), 0o644); err != nil {
		return eris.Wrapf(err, "ocr: write %s", dstPath)
	}
	return nil
}

func (m *MistralOCR) post(ctx context.Context, body []byte) (*mistralOCRResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "ocr: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: mistral API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: read mistral response")
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := eris.Errorf("ocr: mistral API returned %d: %s", resp.StatusCode, string(raw))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	var out mistralOCRResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "ocr: unmarshal mistral response")
	}
	return &out, nil
}

var (
	mdTableRule = regexp.MustCompile(`^\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?$`)
	mdHeading   = regexp.MustCompile(`^#{1,6}\s+`)
	mdEmphasis  = strings.NewReplacer("**", "", "__", "")
)

// flattenMarkdown turns OCR markdown into report lines. Table rows become
// cells joined by two spaces, the column separator site rules split on.
func flattenMarkdown(md string) string {
	lines := strings.Split(md, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if mdTableRule.MatchString(line) {
			continue
		}
		line = mdHeading.ReplaceAllString(line, "")
		line = mdEmphasis.Replace(line)
		if strings.HasPrefix(line, "|") {
			cells := strings.Split(strings.Trim(line, "|"), "|")
			kept := cells[:0]
			for _, c := range cells {
				if c = strings.TrimSpace(c); c != "" {
					kept = append(kept, c)
				}
			}
			line = strings.Join(kept, "  ")
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func documentFor(path string, data []byte) mistralOCRDocument {
	encoded := base64.StdEncoding.EncodeToString(data)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if isImage(ext) {
		if ext == "jpg" {
			ext = "jpeg"
		}
		return mistralOCRDocument{Type: "image_url", ImageURL: "data:image/" + ext + ";base64," + encoded}
	}
	return mistralOCRDocument{Type: "document_url", DocumentURL: "data:application/pdf;base64," + encoded}
}
