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
	"regexp"
	"strings"

	"bennypowers.dev/frontier/scanner"
)

// Translator rewrites generic component paths to their themed variants:
// the first occurrence of the theme's base URL is replaced by its theme URL.
// A nil Translator is the identity.
type Translator struct {
	base     *regexp.Regexp
	themeURL string
	local    *regexp.Regexp
}

// NewTranslator returns a Translator for theme, or nil when there is no
// theme or it does not declare both URLs.
func NewTranslator(theme *scanner.Theme) *Translator {
	if theme == nil || theme.BaseURL == "" || theme.ThemeURL == "" {
		return nil
	}
	return &Translator{
		base:     regexp.MustCompile(regexp.QuoteMeta(theme.BaseURL)),
		themeURL: theme.ThemeURL,
		local:    regexp.MustCompile("@.+" + regexp.QuoteMeta(theme.ThemeURL)),
	}
}

// Applies reports whether p contains the base URL.
func (t *Translator) Applies(p string) bool {
	return t != nil && t.base.MatchString(p)
}

// Translate returns p with the base URL replaced by the theme URL, and
// whether a replacement happened.
func (t *Translator) Translate(p string) (string, bool) {
	if t == nil {
		return p, false
	}
	return replaceFirst(t.base, p, t.themeURL)
}

// Local maps a translated package path onto the project tree:
// "@vaadin/grid/theme/lumo/vaadin-grid.js" becomes
// "theme/lumo/vaadin-grid.js", letting a project override a themed file.
func (t *Translator) Local(translated string) string {
	if t == nil {
		return translated
	}
	out, _ := replaceFirst(t.local, translated, t.themeURL)
	return out
}

func replaceFirst(re *regexp.Regexp, s, repl string) (string, bool) {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s, false
	}
	var b strings.Builder
	b.Grow(len(s) - (loc[1] - loc[0]) + len(repl))
	b.WriteString(s[:loc[0]])
	b.WriteString(repl)
	b.WriteString(s[loc[1]:])
	return b.String(), true
}
