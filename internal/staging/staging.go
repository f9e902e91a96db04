// Package staging holds a downloaded report binary while it is converted to
// text, then files the binary away by content hash and removes the rest.
package staging

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Converter turns the staged file into a text file.
type Converter interface {
	Convert(ctx context.Context, srcPath, dstPath string) error
}

// Raw is one staged report binary and the files derived from it.
//
//	{root}/{prefix}_scrape/temp-*/temp.{ext}           staged download
//	{root}/{prefix}_scrape/temp-*/temp.txt             converter output
//	{root}/{prefix}_scrape/{ext}/{prefix}_{md5}.{ext}  raw archive
//
// Each Raw gets its own temp-* directory, so sites sharing a prefix can
// stage concurrently.
type Raw struct {
	prefix  string
	ext     string
	work    string
	path    string
	rawDir  string
	derived []string
	file    *os.File

	archived string
	cleaned  bool
}

// New stages a report of type ext ("pdf", "jpg", ...) for prefix under root.
func New(root, prefix, ext string) (*Raw, error) {
	ext = strings.TrimPrefix(ext, ".")
	if prefix == "" || ext == "" {
		return nil, eris.New("staging: prefix and extension are required")
	}
	dir := filepath.Join(root, prefix+"_scrape")
	rawDir := filepath.Join(dir, ext)
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "staging: create %s", rawDir)
	}
	work, err := os.MkdirTemp(dir, "temp-")
	if err != nil {
		return nil, eris.Wrapf(err, "staging: create work dir in %s", dir)
	}
	return &Raw{
		prefix: prefix,
		ext:    ext,
		work:   work,
		path:   filepath.Join(work, "temp."+ext),
		rawDir: rawDir,
	}, nil
}

// Dir returns the private work directory of this staging.
func (r *Raw) Dir() string { return r.work }

// Path returns the staged file path.
func (r *Raw) Path() string { return r.path }

// Archived returns where Clean filed the raw binary, if it has run.
func (r *Raw) Archived() string { return r.archived }

// Create opens the staged file for writing, truncating any earlier attempt.
func (r *Raw) Create() (*os.File, error) {
	if err := r.closeFile(); err != nil {
		return nil, err
	}
	f, err := os.Create(r.path)
	if err != nil {
		return nil, eris.Wrapf(err, "staging: create %s", r.path)
	}
	r.file = f
	return f, nil
}

// Write replaces the staged file with data.
func (r *Raw) Write(data []byte) error {
	f, err := r.Create()
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return eris.Wrapf(err, "staging: write %s", r.path)
	}
	return r.closeFile()
}

// WithSuffix returns the staged path with its extension replaced by suffix
// and registers it for removal by Clean.
func (r *Raw) WithSuffix(suffix string) string {
	p := strings.TrimSuffix(r.path, filepath.Ext(r.path)) + suffix
	for _, d := range r.derived {
		if d == p {
			return p
		}
	}
	r.derived = append(r.derived, p)
	return p
}

// Convert runs conv over the staged file into its ".txt" sibling and returns
// the text lines.
func (r *Raw) Convert(ctx context.Context, conv Converter) ([]string, error) {
	if err := r.closeFile(); err != nil {
		return nil, err
	}
	dst := r.WithSuffix(".txt")
	if err := conv.Convert(ctx, r.path, dst); err != nil {
		return nil, eris.Wrapf(err, "staging: convert %s", filepath.Base(r.path))
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		return nil, eris.Wrapf(err, "staging: read converted %s", dst)
	}
	return SplitLines(data), nil
}

// Clean files the staged binary under its content hash and removes derived
// files unless keep is set. It is safe to call more than once and on every
// exit path, including after a failed download or conversion.
func (r *Raw) Clean(keep bool) error {
	if r.cleaned {
		return nil
	}
	r.cleaned = true

	var errs []error
	if err := r.closeFile(); err != nil {
		errs = append(errs, err)
	}
	if err := r.archive(); err != nil {
		errs = append(errs, err)
	}
	if !keep {
		for _, p := range r.derived {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				errs = append(errs, eris.Wrapf(err, "staging: remove %s", p))
			}
		}
		// Only succeeds once the directory is empty.
		_ = os.Remove(r.work)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (r *Raw) archive() error {
	f, err := os.Open(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "staging: open %s", r.path)
	}
	h := md5.New()
	_, err = io.Copy(h, f)
	_ = f.Close()
	if err != nil {
		return eris.Wrapf(err, "staging: hash %s", r.path)
	}

	dst := filepath.Join(r.rawDir, r.prefix+"_"+hex.EncodeToString(h.Sum(nil))+"."+r.ext)
	r.archived = dst

	if _, err := os.Stat(dst); err == nil {
		zap.L().Debug("raw report already archived",
			zap.String("component", "staging"),
			zap.String("path", dst),
		)
		if err := os.Remove(r.path); err != nil {
			return eris.Wrapf(err, "staging: remove duplicate %s", r.path)
		}
		return nil
	}
	if err := os.Rename(r.path, dst); err != nil {
		return eris.Wrapf(err, "staging: archive %s", r.path)
	}
	return nil
}

func (r *Raw) closeFile() error {
	if r.file == nil {
		return nil
	}
	f := r.file
	r.file = nil
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "staging: close %s", r.path)
	}
	return nil
}

// SplitLines splits converter output into lines, dropping carriage returns
// and the form feeds pdftotext puts between pages.
func SplitLines(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.ReplaceAll(sc.Text(), "\f", "")
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	return lines
}
