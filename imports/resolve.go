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
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	ffs "bennypowers.dev/frontier/fs"
	"bennypowers.dev/frontier/packagejson"
)

const (
	// FrontendAlias is the bundler alias of the project frontend directory.
	FrontendAlias = "Frontend/"
	// GeneratedPrefix marks paths relative to the generated directory.
	GeneratedPrefix = "GENERATED/"
	// JarResourcesDir holds resources copied out of dependency archives,
	// relative to the generated directory.
	JarResourcesDir = "jar-resources"

	legacyFrontendProtocol = "frontend://"
)

// IsExternal reports whether spec is left untouched by resolution:
// context:// and base:// references and absolute URLs.
func IsExternal(spec string) bool {
	for _, p := range []string{"context://", "base://", "http://", "https://", "//"} {
		if strings.HasPrefix(spec, p) {
			return true
		}
	}
	return false
}

func isCSS(p string) bool {
	return strings.HasSuffix(strings.ToLower(stripQuery(p)), ".css")
}

// resolver answers existence questions for import paths and converts found
// paths to bundler imports.
type resolver struct {
	fs             ffs.FileSystem
	frontendDir    string
	generatedDir   string
	jarDir         string
	nodeModulesDir string
	packages       packagejson.Cache
	logger         zerolog.Logger
}

// normalize maps legacy and aliased spellings of a frontend path to "./x".
func (r *resolver) normalize(spec string) string {
	switch {
	case strings.HasPrefix(spec, legacyFrontendProtocol):
		out := "./" + strings.TrimPrefix(spec, legacyFrontendProtocol)
		r.logger.Warn().Str("import", spec).Str("replacement", out).Msg("the frontend:// protocol is deprecated, use ./")
		return out
	case strings.HasPrefix(spec, FrontendAlias):
		return "./" + strings.TrimPrefix(spec, FrontendAlias)
	}
	return spec
}

func trimDot(p string) string {
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimLeft(p, "/")
}

func (r *resolver) join(base, p string) string {
	return filepath.Join(base, filepath.FromSlash(trimDot(stripQuery(p))))
}

func (r *resolver) isFile(p string) bool {
	return ffs.IsFile(r.fs, p)
}

func (r *resolver) frontendFile(p string) string {
	if strings.HasPrefix(p, GeneratedPrefix) {
		return ""
	}
	if f := r.join(r.frontendDir, p); r.isFile(f) {
		return f
	}
	return ""
}

func (r *resolver) jarFile(p string) string {
	if strings.HasPrefix(p, GeneratedPrefix) {
		return ""
	}
	if f := r.join(r.jarDir, p); r.isFile(f) {
		return f
	}
	return ""
}

// projectFile returns the on-disk file for a path that lives in the frontend
// directory, the packaged resources or the generated directory.
func (r *resolver) projectFile(p string) string {
	if rest, ok := strings.CutPrefix(p, GeneratedPrefix); ok {
		if f := r.join(r.generatedDir, rest); r.isFile(f) {
			return f
		}
		return ""
	}
	if f := r.frontendFile(p); f != "" {
		return f
	}
	return r.jarFile(p)
}

// nodeModuleFile resolves a package path in node_modules: the file itself,
// then for scripts the path with ".js", the package.json exports target, and
// finally a bare package directory.
func (r *resolver) nodeModuleFile(p string) string {
	if strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") || strings.HasPrefix(p, GeneratedPrefix) {
		return ""
	}
	full := r.join(r.nodeModulesDir, p)
	if r.isFile(full) {
		return full
	}
	if isCSS(p) {
		return ""
	}
	if r.isFile(full + ".js") {
		return full + ".js"
	}
	name, subpath := packagejson.SplitSpecifier(stripQuery(p))
	pkgDir := filepath.Join(r.nodeModulesDir, filepath.FromSlash(name))
	pkgJSON := filepath.Join(pkgDir, packagejson.FileName)
	if !r.isFile(pkgJSON) {
		return ""
	}
	pkg, err := r.packages.GetOrLoad(pkgJSON, func() (*packagejson.PackageJSON, error) {
		return packagejson.ParseFile(r.fs, pkgJSON)
	})
	if err != nil {
		r.logger.Debug().Err(err).Str("file", pkgJSON).Msg("cannot read package.json")
		return ""
	}
	if target, err := pkg.ResolveExport(subpath); err == nil {
		if f := filepath.Join(pkgDir, filepath.FromSlash(target)); r.isFile(f) {
			return f
		}
	}
	if subpath == "." {
		return pkgJSON
	}
	return ""
}

// exists reports where p can be found, or "".
func (r *resolver) exists(p string) string {
	if f := r.projectFile(p); f != "" {
		return f
	}
	return r.nodeModuleFile(p)
}

// browserImport converts a found path into the specifier the bundler sees.
func (r *resolver) browserImport(p string) string {
	if rest, ok := strings.CutPrefix(p, GeneratedPrefix); ok {
		return FrontendAlias + "generated/" + trimDot(rest)
	}
	if r.frontendFile(p) != "" {
		if !strings.HasPrefix(p, "./") {
			r.logger.Warn().Str("import", p).Msg("use the ./ prefix for files in the frontend folder")
		}
		return FrontendAlias + trimDot(p)
	}
	if r.jarFile(p) != "" {
		return FrontendAlias + "generated/" + JarResourcesDir + "/" + trimDot(p)
	}
	return p
}

// relativeTo maps a file found under base back to a "./" project path.
func relativeTo(base, file string) (string, bool) {
	rel, err := filepath.Rel(base, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return "./" + filepath.ToSlash(rel), true
}

// cleanImport normalizes a browser import path.
func cleanImport(p string) string {
	if strings.HasPrefix(p, "./") {
		return "./" + path.Clean(p[2:])
	}
	if strings.Contains(p, "/") {
		return path.Clean(p)
	}
	return p
}
