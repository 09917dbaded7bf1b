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
	"fmt"
	"slices"
	"strings"

	"bennypowers.dev/frontier/scanner"
)

const (
	// ThemableMixinImport brings in the style registration helpers.
	ThemableMixinImport = "import { css, unsafeCSS, registerStyles } from '@vaadin/vaadin-themable-mixin';"
	// ThemeUtilModule provides the global CSS injection helpers.
	ThemeUtilModule = "Frontend/generated/jar-resources/theme-util.js"
	// InlineSuffix makes the bundler import a stylesheet as a string.
	InlineSuffix = "?inline"
)

var (
	injectGlobalCSSImport    = fmt.Sprintf("import { injectGlobalCss } from '%s';", ThemeUtilModule)
	injectWebcomponentImport = fmt.Sprintf("import { injectGlobalWebcomponentCss } from '%s';", ThemeUtilModule)
)

var addCSSBlockHelper = []string{
	"function addCssBlock(block) {",
	" const tpl = document.createElement('template');",
	" tpl.innerHTML = block;",
	" document.head.appendChild(tpl.content);",
	"}",
}

// CSSKind is the way a stylesheet reaches the page.
type CSSKind int

const (
	// InjectedCSS is added to the document as a global stylesheet.
	InjectedCSS CSSKind = iota
	// RegisteredCSS is registered for a component via registerStyles.
	RegisteredCSS
	// IncludedCSS is a <style include> block in a template.
	IncludedCSS
)

// ClassifyCSS decides how c is emitted.
func ClassifyCSS(c scanner.CSSImport) (CSSKind, error) {
	switch {
	case c.ID != "" && c.ThemeFor != "":
		return 0, fmt.Errorf("%w: %s (id %q, theme-for %q)", ErrConflictingCSSTarget, c.Value, c.ID, c.ThemeFor)
	case c.ID != "" || c.ThemeFor != "":
		return RegisteredCSS, nil
	case c.Include != "":
		return IncludedCSS, nil
	}
	return InjectedCSS, nil
}

// cssWriter numbers stylesheet imports within one output file.
type cssWriter struct {
	n           int
	helperAdded bool
}

// lines renders the statements importing and applying one stylesheet that
// resolved to specifier.
func (w *cssWriter) lines(c scanner.CSSImport, specifier string) ([]string, error) {
	kind, err := ClassifyCSS(c)
	if err != nil {
		return nil, err
	}
	i := w.n
	w.n++

	out := []string{fmt.Sprintf("import $cssFromFile_%d from '%s%s';", i, specifier, InlineSuffix)}
	switch kind {
	case RegisteredCSS:
		out = append(out, fmt.Sprintf(
			"const $css_%d = typeof $cssFromFile_%d === 'string' ? unsafeCSS($cssFromFile_%d) : $cssFromFile_%d;", i, i, i, i))
		target, moduleID := "", c.ID
		if c.ThemeFor != "" {
			target, moduleID = c.ThemeFor, fmt.Sprintf("flow_css_mod_%d", i)
		}
		opts := fmt.Sprintf("moduleId: '%s'", moduleID)
		if c.Include != "" {
			opts += fmt.Sprintf(", include: '%s'", c.Include)
		}
		out = append(out, fmt.Sprintf("registerStyles('%s', $css_%d, {%s});", target, i, opts))
	case IncludedCSS:
		if !w.helperAdded {
			w.helperAdded = true
			out = slices.Concat(addCSSBlockHelper, out)
		}
		out = append(out, fmt.Sprintf("addCssBlock(`<style include=\"%s\">${$cssFromFile_%d}</style>`);", c.Include, i))
	default:
		out = append(out, fmt.Sprintf("injectGlobalCss($cssFromFile_%d.toString(), 'CSSImport end', document);", i))
	}
	return out, nil
}

// cssSupportImports are prepended to any file applying stylesheets.
func cssSupportImports() []string {
	return []string{ThemableMixinImport, injectGlobalCSSImport}
}

// toWebComponentCSS rewrites a global injection into the shadow-root
// scoped variant used by exported web components.
func toWebComponentCSS(line string) string {
	if !strings.HasPrefix(line, "injectGlobalCss(") {
		return line
	}
	line = strings.Replace(line, "injectGlobalCss(", "injectGlobalWebcomponentCss(", 1)
	return strings.Replace(line, ", 'CSSImport end', document);", ");", 1)
}
