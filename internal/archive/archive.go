// Package archive decides whether a report has already been processed and
// hands out the output path for reports that have not.
//
// Layout for a site with prefix "hilltop":
//
//	{root}/hilltop_scrape/                  committed outputs awaiting load
//	{root}/hilltop_scrape/dbased/           outputs already loaded
//
// A report is identified by its sale date and an optional title. The
// existence of its canonical file name in either directory is the only
// dedup signal.
package archive

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	archiveDir = "dbased"
	dateLayout = "06-01-02"
)

// Archive manages one site's output and archive directories.
type Archive struct {
	prefix string
	dir    string
	parent string
}

// New creates the archive directory for prefix under root if needed.
func New(root, prefix string) (*Archive, error) {
	if prefix == "" {
		return nil, eris.New("archive: empty prefix")
	}
	parent := filepath.Join(root, prefix+"_scrape")
	dir := filepath.Join(parent, archiveDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "archive: create %s", dir)
	}
	return &Archive{prefix: prefix, dir: dir, parent: parent}, nil
}

// Dir returns the archive directory.
func (a *Archive) Dir() string { return a.dir }

// OutputDir returns the directory committed outputs are written to.
func (a *Archive) OutputDir() string { return a.parent }

// Name returns the canonical file name for a report.
func (a *Archive) Name(saleDate time.Time, title string) string {
	name := a.prefix + "_" + saleDate.Format(dateLayout)
	if title != "" {
		sum := md5.Sum([]byte(title))
		name += "_" + hex.EncodeToString(sum[:])
	}
	return name + ".csv"
}

// Reserve returns a Handle for writing the report's output, or nil when the
// report was already processed.
func (a *Archive) Reserve(saleDate time.Time, title string) (*Handle, error) {
	if saleDate.IsZero() {
		return nil, eris.New("archive: reserve requires a sale date")
	}
	name := a.Name(saleDate, title)

	for _, dir := range []string{a.dir, a.parent} {
		exists, err := fileExists(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if exists {
			zap.L().Debug("report already processed",
				zap.String("component", "archive"),
				zap.String("name", name),
				zap.String("dir", dir),
			)
			return nil, nil
		}
	}

	return &Handle{path: filepath.Join(a.parent, name)}, nil
}

// Promote moves a committed output into the archive directory, marking it
// loaded.
func (a *Archive) Promote(name string) error {
	if name != filepath.Base(name) || !a.isOutput(name) {
		return eris.Errorf("archive: %q is not an output of %s", name, a.prefix)
	}
	src := filepath.Join(a.parent, name)
	dst := filepath.Join(a.dir, name)
	if exists, err := fileExists(dst); err != nil {
		return err
	} else if exists {
		return eris.Errorf("archive: %s already archived", name)
	}
	if err := os.Rename(src, dst); err != nil {
		return eris.Wrapf(err, "archive: promote %s", name)
	}
	return nil
}

// PromoteAll promotes every pending output and returns their names.
func (a *Archive) PromoteAll() ([]string, error) {
	st, err := a.Status()
	if err != nil {
		return nil, err
	}
	var done []string
	for _, e := range st.Pending {
		if err := a.Promote(e.Name); err != nil {
			return done, err
		}
		done = append(done, e.Name)
	}
	return done, nil
}

// Entry describes one output file.
type Entry struct {
	Name     string
	Path     string
	SaleDate time.Time
	Size     int64
	ModTime  time.Time
}

// Status lists a site's outputs.
type Status struct {
	Prefix   string
	Archived []Entry
	Pending  []Entry
}

// Status lists archived and pending outputs, oldest sale date first.
func (a *Archive) Status() (Status, error) {
	st := Status{Prefix: a.prefix}
	var err error
	if st.Archived, err = a.list(a.dir); err != nil {
		return st, err
	}
	if st.Pending, err = a.list(a.parent); err != nil {
		return st, err
	}
	return st, nil
}

func (a *Archive) list(dir string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "archive: list %s", dir)
	}
	var out []Entry
	for _, item := range items {
		if item.IsDir() || !a.isOutput(item.Name()) {
			continue
		}
		info, err := item.Info()
		if err != nil {
			return nil, eris.Wrapf(err, "archive: stat %s", item.Name())
		}
		out = append(out, Entry{
			Name:     item.Name(),
			Path:     filepath.Join(dir, item.Name()),
			SaleDate: a.saleDate(item.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SaleDate.Equal(out[j].SaleDate) {
			return out[i].SaleDate.Before(out[j].SaleDate)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (a *Archive) isOutput(name string) bool {
	return strings.HasPrefix(name, a.prefix+"_") && strings.HasSuffix(name, ".csv") && !a.saleDate(name).IsZero()
}

// saleDate recovers the sale date from a canonical name, or the zero time.
func (a *Archive) saleDate(name string) time.Time {
	rest := strings.TrimPrefix(name, a.prefix+"_")
	if len(rest) < len(dateLayout) {
		return time.Time{}
	}
	d, err := time.Parse(dateLayout, rest[:len(dateLayout)])
	if err != nil {
		return time.Time{}
	}
	return d
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, eris.Wrapf(err, "archive: stat %s", path)
}
