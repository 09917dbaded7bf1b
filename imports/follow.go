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

package imports

import (
	"context"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const followCacheSize = 1024

// follower walks the textual imports of project files to find themed
// variants that are only reachable transitively.
type follower struct {
	r          *resolver
	translator *Translator
	visited    map[string]bool
	cache      *lru.Cache[string, []ModuleImport]
}

func newFollower(r *resolver, t *Translator) *follower {
	cache, _ := lru.New[string, []ModuleImport](followCacheSize)
	return &follower{r: r, translator: t, visited: map[string]bool{}, cache: cache}
}

// follow visits the imports of the project file behind appPath and calls
// add with the browser import of every themed file discovered on the way.
func (f *follower) follow(ctx context.Context, appPath string, add func(string)) {
	if f.translator == nil || f.visited[appPath] {
		return
	}
	file, base := f.projectFile(appPath)
	if file == "" {
		return
	}
	key := filepath.Clean(file)
	if f.visited[key] {
		return
	}
	f.visited[key] = true
	if ctx.Err() != nil {
		return
	}

	imports, ok := f.imports(file)
	if !ok {
		return
	}
	for _, imp := range imports {
		if imp.IsDynamic || IsExternal(imp.Specifier) {
			continue
		}
		spec := stripQuery(imp.Specifier)
		resolved := spec
		relative := strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
		if relative {
			p, inside := relativeTo(base, filepath.Join(filepath.Dir(file), filepath.FromSlash(spec)))
			if !inside {
				continue
			}
			resolved = p
		}
		if f.r.projectFile(resolved) == "" {
			if relative || f.r.nodeModuleFile(resolved) == "" {
				continue
			}
		}
		if translated, ok := f.translator.Translate(resolved); ok {
			if !f.visited[translated] && f.r.exists(translated) != "" {
				f.visited[translated] = true
				add(cleanImport(f.r.browserImport(translated)))
			}
		}
		f.follow(ctx, resolved, add)
	}
}

// projectFile finds appPath in the frontend directory or the packaged
// resources and returns the file with the directory it was found in.
func (f *follower) projectFile(appPath string) (file, base string) {
	if file = f.r.frontendFile(appPath); file != "" {
		return file, f.r.frontendDir
	}
	if file = f.r.jarFile(appPath); file != "" {
		return file, f.r.jarDir
	}
	return "", ""
}

func (f *follower) imports(file string) ([]ModuleImport, bool) {
	if cached, ok := f.cache.Get(file); ok {
		return cached, true
	}
	content, err := f.r.fs.ReadFile(file)
	if err != nil {
		f.r.logger.Debug().Err(err).Str("file", file).Msg("cannot read file, skipping its themed imports")
		return nil, false
	}
	imports, err := ExtractFileImports(file, content)
	if err != nil {
		f.r.logger.Debug().Err(err).Str("file", file).Msg("cannot parse file, skipping its themed imports")
		return nil, false
	}
	f.cache.Add(file, imports)
	return imports, true
}
