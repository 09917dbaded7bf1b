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
	"errors"
	"io/fs"
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-json"

	ffs "bennypowers.dev/frontier/fs"
	"bennypowers.dev/frontier/scanner"
	"bennypowers.dev/frontier/stats"
)

const (
	// ThemesDir holds project themes under the frontend directory.
	ThemesDir = "themes"
	// ThemeJSON is the theme configuration file name.
	ThemeJSON = "theme.json"
	// PackagedThemesPrefix is where dependency archives ship themes.
	PackagedThemesPrefix = "META-INF/resources/themes/"

	parentKey = "parent"
)

var packagedThemePath = regexp.MustCompile(`themes/(.+?)/theme\.json$`)

// themeDoc is a decoded theme.json object.
type themeDoc = map[string]any

func parseThemeJSON(data []byte) (themeDoc, error) {
	var doc themeDoc
	if err := json.Unmarshal([]byte(strings.ReplaceAll(string(data), "\r\n", "\n")), &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = themeDoc{}
	}
	return doc, nil
}

// projectTheme reads a theme.json from the frontend themes folder, falling
// back to themes copied out of dependency archives.
func (v *Validator) projectTheme(name string) (themeDoc, bool, error) {
	for _, dir := range []string{v.opts.FrontendDir, v.opts.JarResourcesDir} {
		data, err := v.fs.ReadFile(filepath.Join(dir, ThemesDir, name, ThemeJSON))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		doc, err := parseThemeJSON(data)
		if err != nil {
			return nil, false, err
		}
		return doc, true, nil
	}
	return nil, false, nil
}

// collectThemeChain stores doc under key and walks its parent chain,
// storing each parent under its own name. Each theme is visited once.
func (v *Validator) collectThemeChain(key string, doc themeDoc, into map[string]themeDoc) error {
	visited := map[string]bool{}
	for {
		into[key] = doc
		visited[key] = true
		parent, _ := doc[parentKey].(string)
		if parent == "" || visited[parent] {
			return nil
		}
		pdoc, ok, err := v.projectTheme(parent)
		if err != nil || !ok {
			return err
		}
		key, doc = parent, pdoc
	}
}

// packagedThemes collects theme.json documents shipped in dependency
// archives.
func (v *Validator) packagedThemes() (map[string]themeDoc, error) {
	out := map[string]themeDoc{}
	for _, jar := range v.opts.JarFiles {
		if !ffs.IsFile(v.fs, jar) {
			continue
		}
		r, err := openArchive(v.fs, jar)
		if err != nil {
			return nil, err
		}
		for _, f := range r.File {
			if !strings.HasPrefix(f.Name, PackagedThemesPrefix) || !strings.HasSuffix(f.Name, "/"+ThemeJSON) {
				continue
			}
			m := packagedThemePath.FindStringSubmatch(f.Name)
			if m == nil {
				continue
			}
			data, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			doc, err := parseThemeJSON(data)
			if err != nil {
				return nil, err
			}
			out[m[1]] = doc
		}
	}
	return out, nil
}

// checkThemeConfig compares packaged and project theme configurations with
// the ones recorded in the bundle.
func (v *Validator) checkThemeConfig(res *scanner.Result, st *stats.Stats) (*Reason, error) {
	docs, err := v.packagedThemes()
	if err != nil {
		return nil, err
	}

	name := res.ThemeName()
	var project themeDoc
	if name != "" {
		doc, ok, err := v.projectTheme(name)
		if err != nil {
			return nil, err
		}
		if ok {
			project = doc
		}
	}

	recorded := st.ThemeJSONContents
	if recorded == nil && (len(docs) > 0 || project != nil) {
		return &Reason{Check: CheckTheme, Message: "newly added theme configurations in theme.json"}, nil
	}

	if project != nil {
		key := name
		if _, ok := recorded[name]; !ok {
			fallback := DevBundleName
			if v.opts.Mode.IsProduction() {
				fallback = ProdBundleName
			}
			if _, ok := recorded[fallback]; !ok {
				return &Reason{Check: CheckTheme, Message: "newly added configuration for project theme", Files: []string{name}}, nil
			}
			key = fallback
		}
		if err := v.collectThemeChain(key, project, docs); err != nil {
			return nil, err
		}
	}

	for _, theme := range slices.Sorted(maps.Keys(docs)) {
		doc := docs[theme]
		raw, inBundle := recorded[theme]
		if !inBundle {
			if hasNewEntries(doc) {
				return &Reason{Check: CheckTheme, Message: "new configuration for theme", Files: []string{theme}}, nil
			}
			continue
		}
		var bundled any
		if err := json.Unmarshal([]byte(raw), &bundled); err != nil {
			return nil, err
		}
		var missed []string
		if !includesEntry(bundled, any(doc), &missed) {
			slices.Reverse(missed)
			return &Reason{
				Check:   CheckTheme,
				Message: "theme " + theme + " has entries not represented in the bundle",
				Files:   missed,
			}, nil
		}
	}
	return nil, nil
}

// hasNewEntries reports whether a theme unknown to the bundle warrants a
// rebuild. An empty theme.json or one naming only its parent does not.
func hasNewEntries(doc themeDoc) bool {
	_, hasParent := doc[parentKey]
	return len(doc) > 1 || (len(doc) == 1 && !hasParent)
}

// checkThemeComponents compares the shadow DOM stylesheets in the
// components folders of the active theme chain with the bundled hashes.
func (v *Validator) checkThemeComponents(res *scanner.Result, st *stats.Stats) (*Reason, error) {
	name := res.ThemeName()
	if name == "" {
		return nil, nil
	}
	chain := map[string]themeDoc{}
	doc, ok, err := v.projectTheme(name)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := v.collectThemeChain(name, doc, chain); err != nil {
			return nil, err
		}
	}

	var dirs []string
	for _, theme := range slices.Sorted(maps.Keys(chain)) {
		dir := filepath.Join(v.opts.FrontendDir, ThemesDir, theme, "components")
		if v.fs.Exists(dir) {
			dirs = append(dirs, dir)
		}
	}

	pending := map[string]string{}
	for rel, hash := range st.FrontendHashes {
		abs := filepath.Join(v.opts.FrontendDir, filepath.FromSlash(rel))
		for _, dir := range dirs {
			if within(dir, abs) {
				pending[rel] = hash
				break
			}
		}
	}

	var changed []string
	for _, dir := range dirs {
		matches, err := doublestar.Glob(ffs.Sub(v.fs, dir), "**/*.css", doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			abs := filepath.Join(dir, filepath.FromSlash(m))
			rel, err := filepath.Rel(v.opts.FrontendDir, abs)
			if err != nil {
				return nil, err
			}
			rel = filepath.ToSlash(rel)
			recorded, ok := pending[rel]
			if !ok {
				changed = append(changed, rel)
				continue
			}
			delete(pending, rel)
			content, err := v.fs.ReadFile(abs)
			if err != nil {
				return nil, err
			}
			if FileHash(content) != recorded {
				changed = append(changed, rel)
			}
		}
	}

	if len(changed) == 0 && len(pending) == 0 {
		return nil, nil
	}
	files := append(changed, slices.Sorted(maps.Keys(pending))...)
	return &Reason{Check: CheckThemeComponents, Message: "new, changed or removed theme components CSS files", Files: files}, nil
}

func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && filepath.IsLocal(rel)
}

// includesEntry reports whether the project value is structurally contained
// in the bundled one. Object entries match any bundled entry of the same
// kind, regardless of key. The string parent entry is ignored. Keys and
// values that found no match are appended to missed.
func includesEntry(bundled, project any, missed *[]string) bool {
	switch p := project.(type) {
	case nil:
		return bundled == nil
	case map[string]any:
		b, ok := bundled.(map[string]any)
		return ok && includesObject(b, p, missed)
	case []any:
		b, ok := bundled.([]any)
		return ok && includesArray(b, p, missed)
	default:
		return bundled == project
	}
}

func includesObject(bundled, project map[string]any, missed *[]string) bool {
	all := true
	bundledKeys := slices.Sorted(maps.Keys(bundled))
	for _, key := range slices.Sorted(maps.Keys(project)) {
		entry := project[key]
		if _, isString := entry.(string); isString && key == parentKey {
			continue
		}
		found := false
		for _, bk := range bundledKeys {
			if sameKind(bundled[bk], entry) && includesEntry(bundled[bk], entry, missed) {
				found = true
				break
			}
		}
		if !found {
			*missed = append(*missed, key)
			all = false
		}
	}
	return all
}

// includesArray requires both arrays to hold the same entries, in any
// order.
func includesArray(bundled, project []any, missed *[]string) bool {
	all := containsAll(bundled, project, missed)
	if len(bundled) != len(project) {
		all = all && containsAll(project, bundled, missed)
	}
	return all
}

func containsAll(haystack, needles []any, missed *[]string) bool {
	all := true
	for _, n := range needles {
		found := false
		for _, h := range haystack {
			if sameKind(h, n) && includesEntry(h, n, missed) {
				found = true
				break
			}
		}
		if !found {
			text, _ := json.Marshal(n)
			*missed = append(*missed, string(text))
			all = false
		}
	}
	return all
}

func sameKind(a, b any) bool {
	switch a.(type) {
	case nil:
		return b == nil
	case map[string]any:
		_, ok := b.(map[string]any)
		return ok
	case []any:
		_, ok := b.([]any)
		return ok
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	case float64:
		_, ok := b.(float64)
		return ok
	}
	return false
}
