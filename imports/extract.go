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
	"path"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	ts "github.com/tree-sitter/go-tree-sitter"
)

// ModuleImport is an import specifier found in a source file.
type ModuleImport struct {
	Specifier string
	IsDynamic bool
	Line      int
}

// ExtractImports parses JavaScript/TypeScript content and returns every
// static import, re-export and literal dynamic import in source order.
func ExtractImports(content []byte) ([]ModuleImport, error) {
	qm, err := GetQueryManager()
	if err != nil {
		return nil, err
	}

	parser := getTSParser()
	defer putTSParser(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse content")
	}
	defer tree.Close()

	query, err := qm.Query("imports")
	if err != nil {
		return nil, err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var imports []ModuleImport
	matches := cursor.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, capture := range match.Captures {
			imp := ModuleImport{
				Specifier: capture.Node.Utf8Text(content),
				Line:      int(capture.Node.StartPosition().Row) + 1,
			}
			switch captureNames[capture.Index] {
			case "import.spec", "reexport.spec":
			case "dynamicImport.spec":
				imp.IsDynamic = true
			default:
				continue
			}
			imports = append(imports, imp)
		}
	}

	return imports, nil
}

// StaticSpecifiers returns the specifiers of the static imports in content,
// with any query string removed.
func StaticSpecifiers(content []byte) ([]string, error) {
	imps, err := ExtractImports(content)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, imp := range imps {
		if imp.IsDynamic {
			continue
		}
		out = append(out, stripQuery(imp.Specifier))
	}
	return out, nil
}

// ExtractCSSImports returns the targets of the @import rules in a
// stylesheet.
func ExtractCSSImports(content []byte) []ModuleImport {
	parser := css.NewParser(parse.NewInputBytes(content), false)
	var imports []ModuleImport
	for {
		gt, _, data := parser.Next()
		if gt == css.ErrorGrammar {
			break
		}
		if gt != css.AtRuleGrammar || !strings.EqualFold(string(data), "@import") {
			continue
		}
		if spec := cssImportTarget(parser.Values()); spec != "" {
			imports = append(imports, ModuleImport{Specifier: spec})
		}
	}
	return imports
}

func cssImportTarget(values []css.Token) string {
	for i, tok := range values {
		switch tok.TokenType {
		case css.StringToken:
			return unquote(string(tok.Data))
		case css.URLToken:
			inner := strings.TrimSuffix(strings.TrimPrefix(string(tok.Data), "url("), ")")
			return unquote(strings.TrimSpace(inner))
		case css.FunctionToken:
			// url("x") lexes as a function token followed by a string.
			if strings.EqualFold(string(tok.Data), "url(") && i+1 < len(values) &&
				values[i+1].TokenType == css.StringToken {
				return unquote(string(values[i+1].Data))
			}
			return ""
		case css.WhitespaceToken:
		default:
			return ""
		}
	}
	return ""
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func stripQuery(spec string) string {
	if i := strings.IndexByte(spec, '?'); i >= 0 {
		return spec[:i]
	}
	return spec
}

// ExtractFileImports dispatches on the file extension: stylesheets are
// lexed for @import, everything else goes through the TypeScript grammar.
func ExtractFileImports(name string, content []byte) ([]ModuleImport, error) {
	if strings.EqualFold(path.Ext(name), ".css") {
		return ExtractCSSImports(content), nil
	}
	return ExtractImports(content)
}
