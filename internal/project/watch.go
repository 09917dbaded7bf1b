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

package project

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"

	ffs "bennypowers.dev/frontier/fs"
)

// DefaultWatchDelay is the quiet period before regenerating.
const DefaultWatchDelay = 300 * time.Millisecond

// Relevant reports whether a change to path affects generation: anything
// in the frontend directory outside generated output, or the dependency
// file.
func (p *Project) Relevant(path string) bool {
	path = filepath.Clean(path)
	if path == p.DepsFile {
		return true
	}
	if within(p.GeneratedDir, path) || filepath.Base(path) == "node_modules" || strings.Contains(path, string(filepath.Separator)+"node_modules"+string(filepath.Separator)) {
		return false
	}
	return within(p.FrontendDir, path)
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && filepath.IsLocal(rel)
}

// Watch regenerates after every burst of relevant changes until ctx ends.
// onRun receives the outcome of each pass.
func (p *Project) Watch(ctx context.Context, delay time.Duration, onRun func(*GenerateReport, error)) error {
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := p.watchTree(w, p.FrontendDir); err != nil {
		return err
	}
	if dir := filepath.Dir(p.DepsFile); dir != p.FrontendDir {
		if err := w.Add(dir); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	var mu sync.Mutex
	debounced := debounce.New(delay)
	regenerate := func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		report, err := p.Generate(ctx)
		onRun(report, err)
	}

	p.Logger.Info().Str("dir", p.FrontendDir).Msg("Watching for changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !p.Relevant(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) && ffs.IsDir(p.FS, event.Name) {
				if err := p.watchTree(w, event.Name); err != nil {
					p.Logger.Warn().Err(err).Str("dir", event.Name).Msg("Cannot watch directory")
				}
			}
			p.Logger.Debug().Str("file", event.Name).Stringer("op", event.Op).Msg("Change detected")
			debounced(regenerate)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			p.Logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (p *Project) watchTree(w *fsnotify.Watcher, root string) error {
	return fs.WalkDir(ffs.Sub(p.FS, root), ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		dir := filepath.Join(root, filepath.FromSlash(rel))
		if rel != "." && !p.Relevant(dir) {
			return fs.SkipDir
		}
		return w.Add(dir)
	})
}
