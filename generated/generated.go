/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package generated writes generated file sets to disk.
//
// Files are either always rewritten or rewritten only when their content
// changed; skipping identical writes keeps modification times stable so
// file watchers downstream do not rebuild for nothing.
package generated

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"

	ffs "bennypowers.dev/frontier/fs"
)

// Policy selects how a file is written.
type Policy int

const (
	// Always rewrites the file on every run.
	Always Policy = iota
	// IfChanged leaves the file untouched when its content is identical.
	IfChanged
)

// File is one generated output.
type File struct {
	Path   string
	Lines  []string
	Policy Policy
}

// Content returns the file bytes: lines joined by "\n" with a trailing
// newline.
func (f File) Content() []byte {
	return Content(f.Lines)
}

// Content joins lines into file bytes.
func Content(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

// FileSet is an insertion-ordered collection of generated files keyed by
// path.
type FileSet struct {
	files []File
	index map[string]int
}

// NewFileSet returns an empty set.
func NewFileSet() *FileSet {
	return &FileSet{index: map[string]int{}}
}

// Add stores lines for path, replacing an earlier entry.
func (s *FileSet) Add(path string, lines []string, policy Policy) {
	f := File{Path: path, Lines: lines, Policy: policy}
	if i, ok := s.index[path]; ok {
		s.files[i] = f
		return
	}
	s.index[path] = len(s.files)
	s.files = append(s.files, f)
}

// Get returns the lines for path.
func (s *FileSet) Get(path string) ([]string, bool) {
	i, ok := s.index[path]
	if !ok {
		return nil, false
	}
	return s.files[i].Lines, true
}

// Files returns the files in insertion order.
func (s *FileSet) Files() []File {
	return slices.Clone(s.files)
}

// Len returns the number of files.
func (s *FileSet) Len() int {
	return len(s.files)
}

// Writer writes file sets through a FileSystem.
type Writer struct {
	fs     ffs.FileSystem
	logger zerolog.Logger
}

// NewWriter returns a Writer. Diffs of rewritten files are logged at trace
// level.
func NewWriter(fsys ffs.FileSystem, logger zerolog.Logger) *Writer {
	return &Writer{fs: fsys, logger: logger}
}

// Result lists what a write pass did.
type Result struct {
	Written   []string
	Unchanged []string
	Removed   []string
}

// Write writes every file of set according to its policy.
func (w *Writer) Write(set *FileSet) (*Result, error) {
	res := &Result{}
	var errs []error
	for _, f := range set.files {
		var (
			written bool
			err     error
		)
		if f.Policy == Always {
			err = w.write(f.Path, f.Content())
			written = err == nil
		} else {
			written, err = w.WriteIfChanged(f.Path, f.Content())
		}
		switch {
		case err != nil:
			errs = append(errs, err)
		case written:
			res.Written = append(res.Written, f.Path)
		default:
			res.Unchanged = append(res.Unchanged, f.Path)
		}
	}
	return res, errors.Join(errs...)
}

// WriteIfChanged writes data to path unless the file already holds exactly
// data. It reports whether a write happened.
func (w *Writer) WriteIfChanged(path string, data []byte) (bool, error) {
	existing, err := w.fs.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		w.logger.Trace().Str("file", path).Msg("content unchanged, not writing")
		return false, nil
	}
	if err == nil && w.logger.GetLevel() <= zerolog.TraceLevel {
		w.logger.Trace().Str("file", path).Msg(unifiedDiff(path, existing, data))
	}
	if err := w.write(path, data); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Writer) write(path string, data []byte) error {
	if err := w.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := w.fs.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	w.logger.Debug().Str("file", path).Msg("wrote generated file")
	return nil
}

// RemoveStale deletes files in dir matching pattern that are not in keep.
// Missing dir is not an error.
func (w *Writer) RemoveStale(dir, pattern string, keep []string) ([]string, error) {
	if !w.fs.Exists(dir) {
		return nil, nil
	}
	matches, err := doublestar.Glob(ffs.Sub(w.fs, dir), pattern)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[filepath.Clean(k)] = true
	}
	var removed []string
	var errs []error
	for _, m := range matches {
		full := filepath.Join(dir, filepath.FromSlash(m))
		if keepSet[filepath.Clean(full)] {
			continue
		}
		if err := w.fs.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		w.logger.Debug().Str("file", full).Msg("removed stale generated file")
		removed = append(removed, full)
	}
	return removed, errors.Join(errs...)
}

func unifiedDiff(name string, before, after []byte) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: name + " (on disk)",
		ToFile:   name + " (generated)",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}
