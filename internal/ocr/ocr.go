package ocr

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-report-cli/internal/config"
)

// Converter turns a staged binary report into a text file.
type Converter interface {
	Convert(ctx context.Context, srcPath, dstPath string) error
}

// NewConverter creates a Converter for a report artifact extension
// ("pdf", "jpg", "png", ...) based on config.
func NewConverter(cfg config.OCRConfig, ext string) (Converter, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	switch cfg.Provider {
	case "local", "":
		if ext == "pdf" {
			return NewPdfToText(cfg.PdfToTextPath), nil
		}
		if isImage(ext) {
			return NewTesseract(cfg.TesseractPath), nil
		}
		return nil, eris.Errorf("ocr: no local converter for %q", ext)
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		if ext != "pdf" && !isImage(ext) {
			return nil, eris.Errorf("ocr: mistral cannot convert %q", ext)
		}
		m := NewMistralOCR(cfg.MistralKey, cfg.MistralModel)
		if cfg.MistralURL != "" {
			m.endpoint = cfg.MistralURL
		}
		return m, nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

func isImage(ext string) bool {
	switch ext {
	case "jpg", "jpeg", "png", "gif", "tif", "tiff", "bmp":
		return true
	}
	return false
}
