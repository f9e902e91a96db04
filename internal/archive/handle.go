package archive

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Handle is a reservation for one report's output file. Writes go to a
// temporary file that only becomes the canonical output on Commit, so an
// interrupted report is reprocessed on the next run.
type Handle struct {
	path string
	file *os.File
}

// Path returns the final output path.
func (h *Handle) Path() string { return h.path }

// Name returns the final output file name.
func (h *Handle) Name() string { return filepath.Base(h.path) }

// Create opens the temporary output file for writing.
func (h *Handle) Create() (*os.File, error) {
	if h.file != nil {
		return nil, eris.Errorf("archive: %s already created", h.Name())
	}
	f, err := os.CreateTemp(filepath.Dir(h.path), "."+h.Name()+".*.tmp")
	if err != nil {
		return nil, eris.Wrapf(err, "archive: create temp for %s", h.Name())
	}
	h.file = f
	return f, nil
}

// Commit closes the temporary file and renames it to the final path.
func (h *Handle) Commit() error {
	if h.file == nil {
		return eris.Errorf("archive: commit %s before create", h.Name())
	}
	tmp := h.file.Name()
	if err := h.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return eris.Wrapf(err, "archive: close %s", tmp)
	}
	h.file = nil
	if err := os.Rename(tmp, h.path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "archive: commit %s", h.Name())
	}
	return nil
}

// Abort discards the temporary file. It is safe to call after Commit or
// without Create.
func (h *Handle) Abort() error {
	if h.file == nil {
		return nil
	}
	tmp := h.file.Name()
	_ = h.file.Close()
	h.file = nil
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "archive: abort %s", tmp)
	}
	return nil
}
