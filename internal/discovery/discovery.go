// Package discovery finds spec files and applies the name filter.
package discovery

import (
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/martin-walls/wasm-testsuite/internal/spec"
)

// Specs yields every spec file with extension ext directly inside dir,
// loaded through spec.Load, in lexical file-name order.
//
// The sequence is lazy and restartable: each range re-reads the directory.
// A failed load yields (nil, err); the caller decides whether to continue.
func Specs(dir, ext, programsDir string) iter.Seq2[*spec.TestSpec, error] {
	return func(yield func(*spec.TestSpec, error) bool) {
		files, err := specFiles(dir, ext)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, f := range files {
			s, err := spec.Load(f, programsDir)
			if !yield(s, err) {
				return
			}
		}
	}
}

// specFiles lists regular files in dir whose extension is ext.
// Subdirectories are not descended into.
func specFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ext {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if e.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(p)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		} else if !e.Type().IsRegular() {
			continue
		}
		files = append(files, p)
	}
	slices.Sort(files)
	return files, nil
}

// Filter reports whether a spec named name is selected by filter.
// An empty filter selects everything.
func Filter(filter, name string) bool {
	return filter == "" || strings.Contains(name, filter)
}

// Duplicate records two spec files that declare the same name.
type Duplicate struct {
	Name   string
	First  string
	Second string
}

// Result is an eagerly collected, filtered set of specs.
type Result struct {
	Specs      []*spec.TestSpec
	Duplicates []Duplicate
	// Loaded counts specs before filtering.
	Loaded int
}

// Collect drains Specs, stopping at the first load error, and keeps the
// specs selected by filter. Every file is loaded before filtering, so an
// invalid spec fails the collection even when the filter would exclude it.
func Collect(dir, ext, programsDir, filter string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	res := &Result{}
	seen := make(map[string]string)
	for s, err := range Specs(dir, ext, programsDir) {
		if err != nil {
			return nil, err
		}
		res.Loaded++
		logger.Debug("spec loaded", "name", s.Name, "path", s.Path)

		if prev, ok := seen[s.Name]; ok {
			res.Duplicates = append(res.Duplicates, Duplicate{Name: s.Name, First: prev, Second: s.Path})
		} else {
			seen[s.Name] = s.Path
		}

		if Filter(filter, s.Name) {
			res.Specs = append(res.Specs, s)
		}
	}
	return res, nil
}
