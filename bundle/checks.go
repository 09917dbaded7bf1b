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

package bundle

import (
	"context"
	"errors"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/frontier/imports"
	"bennypowers.dev/frontier/packagejson"
	"bennypowers.dev/frontier/scanner"
	"bennypowers.dev/frontier/stats"
	"bennypowers.dev/frontier/version"
)

// Frontend files with a bundle-wide effect.
const (
	IndexHTML = "index.html"

	// FlowFrontendPackage was once an alias of the generated folder and is
	// never part of the bundle.
	FlowFrontendPackage = "@vaadin/flow-frontend"

	jarResourcesPath = "generated/jar-resources/"
)

var bootstrapFiles = []string{"index.ts", "index.js", "index.tsx"}

// Hashes of index.html files shipped as the default by older platform
// versions.
var legacyIndexHTML = []string{
	"49a6fa3fd70a6c36f32cd5389611b54611413fd6f8c430745bd3e0dd8c5a86c9",
	"9134a82f3ebcc72d303b78b843ba17b973fb5a7f5cfcd8868566a4d234cc7782",
	"c939e4dd2e34a02be02d8682215130119a8666ee3ed2f8f78de527464bffcfaf",
	"fa38cdf6d106b713195d7c56537443f8fa282607e4636a8e6c1da56f675135b1",
	"59ab33ffe4cdd1aa96ee4e03da8d99248ca89b9ea70d84cf2016787f29687472",
}

// FileHash is the content hash recorded in frontendHashes: hex SHA-256 of
// the content with CRLF line endings normalized. A trailing newline is part
// of the hashed content, matching how the bundler records it.
func FileHash(content []byte) string {
	return imports.HashString(strings.ReplaceAll(string(content), "\r\n", "\n"))
}

// checkPackages compares the expected package.json against the bundled
// dependency map.
func checkPackages(expected *packagejson.Manifest, res *scanner.Result, st *stats.Stats) *Reason {
	hash := expected.Vaadin.Hash
	if hash == "" {
		return &Reason{Check: CheckPackages, Message: "no hash computed for package.json"}
	}
	bundled := st.PackageJSONDependencies
	if bundled == nil {
		return &Reason{Check: CheckPackages, Message: "bundle has no package.json dependencies to validate"}
	}

	if hash == st.PackageJSONHash {
		var missing []string
		for _, pkg := range packagejson.SortedKeys(res.Packages) {
			v, ok := bundled[pkg]
			if !ok || !version.Accepted(v, res.Packages[pkg]) {
				missing = append(missing, pkg)
			}
		}
		if len(missing) > 0 {
			return &Reason{Check: CheckPackages, Message: "packages missing from the bundle", Files: missing}
		}
	}

	var missing, mismatched []string
	for _, pkg := range packagejson.SortedKeys(expected.Dependencies) {
		if pkg == FlowFrontendPackage {
			continue
		}
		v, ok := bundled[pkg]
		switch {
		case !ok:
			missing = append(missing, pkg)
		case !version.Accepted(expected.Dependencies[pkg], v):
			mismatched = append(mismatched, pkg+":"+expected.Dependencies[pkg]+" (bundled "+v+")")
		}
	}
	if len(missing) > 0 {
		return &Reason{Check: CheckDependencies, Message: "dependencies missing from the bundle", Files: missing}
	}
	if len(mismatched) > 0 {
		return &Reason{Check: CheckDependencies, Message: "dependencies with a different version in the bundle", Files: mismatched}
	}
	return nil
}

func (v *Validator) checkIndexHTML(st *stats.Stats) (*Reason, error) {
	content, err := v.fs.ReadFile(filepath.Join(v.opts.FrontendDir, IndexHTML))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	hash := FileHash(content)
	if recorded, ok := st.FrontendHashes[IndexHTML]; ok && recorded == hash {
		return nil, nil
	}
	if slices.Contains(legacyIndexHTML, hash) {
		v.opts.Logger.Warn().Msg("index.html matches an old default; remove it to get the current one")
	}
	return &Reason{Check: CheckIndexHTML, Message: "custom index.html changed", Files: []string{IndexHTML}}, nil
}

// checkImports verifies that every regenerated import is bundled and that
// the bundled project and jar resource files still have the recorded
// content.
func (v *Validator) checkImports(ctx context.Context, res *scanner.Result, st *stats.Stats) (*Reason, error) {
	lines, err := v.generator.ImportLines(ctx, res)
	if err != nil {
		return nil, err
	}
	specs, err := imports.StaticSpecifiers([]byte(strings.Join(lines, "\n")))
	if err != nil {
		return nil, err
	}
	specs = unique(specs)

	bundled := make(map[string]bool, len(st.BundleImports))
	for _, imp := range st.BundleImports {
		bundled[normalizeImport(imp)] = true
	}
	var missing []string
	for _, spec := range specs {
		if !bundled[normalizeImport(spec)] {
			missing = append(missing, spec)
		}
	}
	if len(missing) > 0 {
		return &Reason{Check: CheckImports, Message: "frontend imports missing from the bundle", Files: missing}, nil
	}

	var jarImports, projectImports []string
	for _, spec := range specs {
		if i := strings.Index(spec, jarResourcesPath); i >= 0 {
			jarImports = append(jarImports, spec[i+len(jarResourcesPath):])
		} else if rel, ok := strings.CutPrefix(spec, imports.FrontendAlias); ok {
			projectImports = append(projectImports, rel)
		}
	}

	var changed, absent []string
	compare := func(dir, rel string) error {
		content, err := v.fs.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if errors.Is(err, fs.ErrNotExist) {
			absent = append(absent, rel)
			return nil
		}
		if err != nil {
			return err
		}
		if recorded, ok := st.FrontendHashes[rel]; !ok || recorded != FileHash(content) {
			if !ok {
				v.opts.Logger.Debug().Str("file", rel).Msg("No hash info")
			}
			changed = append(changed, rel)
		}
		return nil
	}
	for _, rel := range jarImports {
		if err := compare(v.opts.JarResourcesDir, rel); err != nil {
			return nil, err
		}
	}
	for _, rel := range projectImports {
		if err := compare(v.opts.FrontendDir, rel); err != nil {
			return nil, err
		}
	}
	if len(absent) > 0 {
		return &Reason{Check: CheckImports, Message: "no file found for bundled imports", Files: absent}, nil
	}
	if len(changed) > 0 {
		return &Reason{Check: CheckHashes, Message: "changed content for frontend files", Files: changed}, nil
	}

	for _, name := range bootstrapFiles {
		exists := v.fs.Exists(filepath.Join(v.opts.FrontendDir, name))
		_, recorded := st.FrontendHashes[name]
		switch {
		case exists && !recorded:
			return &Reason{Check: CheckBootstrap, Message: "added bootstrap file", Files: []string{name}}, nil
		case !exists && recorded:
			return &Reason{Check: CheckBootstrap, Message: "deleted bootstrap file", Files: []string{name}}, nil
		}
	}

	return v.checkRemainingHashes(st, jarImports, projectImports)
}

// checkRemainingHashes re-validates recorded hashes the import list did not
// cover, such as files only reachable through nested imports. Files that no
// longer exist are ignored.
func (v *Validator) checkRemainingHashes(st *stats.Stats, covered ...[]string) (*Reason, error) {
	remaining := maps.Clone(st.FrontendHashes)
	for _, list := range covered {
		for _, rel := range list {
			delete(remaining, rel)
		}
	}
	var changed []string
	for _, rel := range slices.Sorted(maps.Keys(remaining)) {
		content, err := v.fs.ReadFile(filepath.Join(v.opts.FrontendDir, filepath.FromSlash(rel)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if FileHash(content) != remaining[rel] {
			changed = append(changed, rel)
		}
	}
	if len(changed) > 0 {
		return &Reason{Check: CheckHashes, Message: "changed frontend files", Files: changed}, nil
	}
	return nil, nil
}

// checkWebComponents only reacts to additions; a bundled component nobody
// exports any more is harmless.
func checkWebComponents(res *scanner.Result, st *stats.Stats) *Reason {
	var added []string
	for _, tag := range res.WebComponents {
		if !slices.Contains(st.WebComponents, tag) && !slices.Contains(added, tag) {
			added = append(added, tag)
		}
	}
	if len(added) == 0 {
		return nil
	}
	slices.Sort(added)
	return &Reason{Check: CheckWebComponents, Message: "exported web components not yet in the bundle", Files: added}
}

func normalizeImport(spec string) string {
	return strings.ReplaceAll(spec, imports.FrontendAlias, "./")
}

func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
