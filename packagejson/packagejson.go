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

// Package packagejson reads installed package metadata and maintains the
// project package.json: framework-managed dependencies, platform pinning,
// overrides and the dependency hash used for bundle validation.
package packagejson

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"

	"bennypowers.dev/frontier/fs"
)

// ErrNotExported is returned when a subpath is not exported by the package.
var ErrNotExported = errors.New("not exported by package.json")

// DefaultConditions is the export condition priority for browser bundles.
var DefaultConditions = []string{"browser", "import", "default"}

// PackageJSON is the read-only subset of an installed package's
// package.json that import resolution needs.
type PackageJSON struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Main    string `json:"main,omitempty"`
	Module  string `json:"module,omitempty"`
	Exports any    `json:"exports,omitempty"`
}

// Parse parses package.json data.
func Parse(data []byte) (*PackageJSON, error) {
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ParseFile parses a package.json file.
func ParseFile(fsys fs.FileSystem, path string) (*PackageJSON, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ResolveExport resolves a subpath ("." or "./sub") to the target file,
// without a leading "./". Wildcard patterns ("./*") are honored.
func (pkg *PackageJSON) ResolveExport(subpath string) (string, error) {
	if pkg.Exports == nil {
		if subpath != "." {
			return "", ErrNotExported
		}
		switch {
		case pkg.Module != "":
			return trimDotSlash(pkg.Module), nil
		case pkg.Main != "":
			return trimDotSlash(pkg.Main), nil
		}
		return "index.js", nil
	}

	if s, ok := pkg.Exports.(string); ok {
		if subpath == "." {
			return trimDotSlash(s), nil
		}
		return "", ErrNotExported
	}

	exports, ok := pkg.Exports.(map[string]any)
	if !ok {
		return "", ErrNotExported
	}

	hasSubpaths := false
	for key := range exports {
		if strings.HasPrefix(key, ".") {
			hasSubpaths = true
			break
		}
	}
	if !hasSubpaths {
		if subpath == "." {
			return resolveConditions(exports)
		}
		return "", ErrNotExported
	}

	if value, ok := exports[subpath]; ok {
		return resolveValue(value)
	}

	for pattern, value := range exports {
		star := strings.Index(pattern, "*")
		if star < 0 {
			continue
		}
		prefix, suffix := pattern[:star], pattern[star+1:]
		if !strings.HasPrefix(subpath, prefix) || !strings.HasSuffix(subpath, suffix) ||
			len(subpath) < len(prefix)+len(suffix) {
			continue
		}
		target, err := resolveValue(value)
		if err != nil {
			continue
		}
		match := subpath[len(prefix) : len(subpath)-len(suffix)]
		return strings.Replace(target, "*", match, 1), nil
	}
	return "", ErrNotExported
}

func resolveValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return trimDotSlash(v), nil
	case map[string]any:
		return resolveConditions(v)
	case []any:
		for _, item := range v {
			if s, err := resolveValue(item); err == nil {
				return s, nil
			}
		}
	}
	return "", ErrNotExported
}

func resolveConditions(conditions map[string]any) (string, error) {
	for _, cond := range DefaultConditions {
		value, ok := conditions[cond]
		if !ok {
			continue
		}
		if s, err := resolveValue(value); err == nil {
			return s, nil
		}
	}
	return "", ErrNotExported
}

// SplitSpecifier splits a bare specifier into its package name and export
// subpath: "@scope/pkg/a.js" gives ("@scope/pkg", "./a.js").
func SplitSpecifier(spec string) (name, subpath string) {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		name = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			return name, "./" + parts[2]
		}
		return name, "."
	}
	name, rest, found := strings.Cut(spec, "/")
	if !found {
		return name, "."
	}
	return name, "./" + rest
}

func trimDotSlash(path string) string {
	return strings.TrimPrefix(path, "./")
}
