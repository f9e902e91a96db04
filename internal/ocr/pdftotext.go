package ocr

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/rotisserie/eris"
)

// PdfToText converts PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText converter. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// Convert runs pdftotext in table mode, writing UTF-8 text to dstPath.
func (p *PdfToText) Convert(ctx context.Context, srcPath, dstPath string) error {
	return run(ctx, "pdftotext", p.binPath, "-enc", "UTF-8", "-q", "-table", srcPath, dstPath)
}

func run(ctx context.Context, tool, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "ocr: %s failed for %s: %s", tool, args[len(args)-1], stderr.String())
	}
	return nil
}
