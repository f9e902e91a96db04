package ocr

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Tesseract converts scanned report images with the tesseract CLI tool.
type Tesseract struct {
	binPath string
}

// NewTesseract creates a Tesseract converter. If binPath is empty, "tesseract" is used.
func NewTesseract(binPath string) *Tesseract {
	if binPath == "" {
		binPath = "tesseract"
	}
	return &Tesseract{binPath: binPath}
}

// Convert runs tesseract in single-block mode. Tesseract appends ".txt" to
// its output base, so dstPath is produced from dstPath minus that suffix.
func (t *Tesseract) Convert(ctx context.Context, srcPath, dstPath string) error {
	base := strings.TrimSuffix(dstPath, ".txt")
	if err := run(ctx, "tesseract", t.binPath, srcPath, base, "--psm", "6"); err != nil {
		return err
	}
	if base+".txt" != dstPath {
		if err := os.Rename(base+".txt", dstPath); err != nil {
			return eris.Wrapf(err, "ocr: move tesseract output to %s", dstPath)
		}
	}
	return nil
}
