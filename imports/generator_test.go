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
package imports_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"bennypowers.dev/frontier/generated"
	"bennypowers.dev/frontier/imports"
	"bennypowers.dev/frontier/internal/mapfs"
	"bennypowers.dev/frontier/scanner"
	"bennypowers.dev/frontier/testutil"
)

const (
	frontendDir  = "/app/frontend"
	generatedDir = "/app/frontend/generated"
	nodeModules  = "/app/node_modules"
)

func projectFS(t *testing.T) *mapfs.MapFileSystem {
	return testutil.NewProjectFS(t, map[string]string{
		frontendDir + "/views/main.js":                              "import './helper.js';\nimport '@vaadin/grid/src/vaadin-grid.js';\n",
		frontendDir + "/views/helper.js":                            "export const x = 1;\n",
		frontendDir + "/views/home.js":                              "",
		frontendDir + "/dev-tools.js":                               "",
		frontendDir + "/styles/global.css":                          "html { color: red; }",
		frontendDir + "/styles/grid.css":                            "[part~='row'] { color: blue; }",
		frontendDir + "/styles/orders.css":                          ".orders {}",
		frontendDir + "/theme/lumo/vaadin-button.js":                "",
		generatedDir + "/jar-resources/connector.js":                "",
		generatedDir + "/flow/web-components/my-comp.js":            "",
		nodeModules + "/lit/package.json":                           `{"name":"lit","exports":{".":"./index.js"}}`,
		nodeModules + "/lit/index.js":                               "",
		nodeModules + "/@vaadin/button/package.json":                `{"name":"@vaadin/button"}`,
		nodeModules + "/@vaadin/button/src/vaadin-button.js":        "",
		nodeModules + "/@vaadin/button/theme/lumo/vaadin-button.js": "",
		nodeModules + "/@vaadin/grid/package.json":                  `{"name":"@vaadin/grid"}`,
		nodeModules + "/@vaadin/grid/src/vaadin-grid.js":            "",
		nodeModules + "/@vaadin/grid/theme/lumo/vaadin-grid.js":     "",
		nodeModules + "/@vaadin/vaadin-lumo-styles/color-global.js": "",
	})
}

func scanResult() *scanner.Result {
	lazyCSS := []scanner.CSSImport{
		{Value: "./styles/grid.css", ThemeFor: "vaadin-grid"},
		{Value: "./styles/orders.css"},
	}
	return &scanner.Result{
		Theme: &scanner.Theme{Name: "lumo", BaseURL: "src/", ThemeURL: "theme/lumo/"},
		Chunks: []scanner.Chunk{
			{
				ID:   scanner.GlobalChunk,
				Kind: scanner.KindGlobal,
				Modules: []string{
					"./views/main.js",
					"@vaadin/button/src/vaadin-button.js",
					"lit",
					"./connector.js",
					"@vaadin/vaadin-lumo-styles/color-global.js",
					"context://static/x.js",
				},
				DevModules: []string{"./dev-tools.js"},
				CSS: []scanner.CSSImport{
					{Value: "./styles/global.css"},
					{Value: "./styles/global.css"},
				},
			},
			{
				ID:       "orders",
				Kind:     scanner.KindRoute,
				Lazy:     true,
				Triggers: []string{"com.example.OrdersView"},
				Modules:  []string{"@vaadin/grid/src/vaadin-grid.js"},
				CSS:      lazyCSS,
			},
			{
				ID:       "customers",
				Kind:     scanner.KindRoute,
				Lazy:     true,
				Triggers: []string{"com.example.CustomersView"},
				Modules:  []string{"@vaadin/grid/src/vaadin-grid.js"},
				CSS:      lazyCSS,
			},
			{
				ID:      "home",
				Kind:    scanner.KindRoute,
				Modules: []string{"./views/home.js"},
			},
		},
	}
}

func newGenerator(mfs *mapfs.MapFileSystem, production bool) *imports.Generator {
	return imports.New(mfs, imports.Options{
		FrontendDir:    frontendDir,
		GeneratedDir:   generatedDir,
		NodeModulesDir: nodeModules,
		Production:     production,
		Logger:         zerolog.Nop(),
	})
}

func indexOf(lines []string, line string) int {
	return slices.Index(lines, line)
}

func TestGenerateMainFile(t *testing.T) {
	out, err := newGenerator(projectFS(t), false).Generate(context.Background(), scanResult())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, want := range []string{
		"import 'Frontend/views/main.js';",
		"import '@vaadin/grid/theme/lumo/vaadin-grid.js';",
		"import 'Frontend/theme/lumo/vaadin-button.js';",
		"import 'lit';",
		"import 'Frontend/generated/jar-resources/connector.js';",
		"import '@vaadin/vaadin-lumo-styles/color-global.js';",
		"import 'context://static/x.js';",
		"import 'Frontend/dev-tools.js';",
		"import 'Frontend/views/home.js';",
		"import 'Frontend/generated/flow/web-components/my-comp.js';",
		"import $cssFromFile_0 from 'Frontend/styles/global.css?inline';",
		"injectGlobalCss($cssFromFile_0.toString(), 'CSSImport end', document);",
		"import $cssFromFile_1 from 'Frontend/styles/grid.css?inline';",
		"registerStyles('vaadin-grid', $css_1, {moduleId: 'flow_css_mod_1'});",
		imports.ThemableMixinImport,
		"window.Vaadin.Flow.loadOnDemand = loadOnDemand;",
	} {
		if indexOf(out.Main, want) < 0 {
			t.Errorf("main file misses %q", want)
		}
	}

	if indexOf(out.Main, "import $cssFromFile_2 from 'Frontend/styles/global.css?inline';") >= 0 {
		t.Error("duplicate stylesheet emitted twice")
	}
	if indexOf(out.Main, "import '@vaadin/grid/src/vaadin-grid.js';") >= 0 {
		t.Error("lazy chunk module leaked into the main file")
	}
	if indexOf(out.Main, "import 'Frontend/styles/orders.css?inline';") >= 0 {
		t.Error("lazy stylesheet leaked into the main file")
	}
	if indexOf(out.Main, "import $cssFromFile_0 from 'Frontend/styles/global.css?inline';") >
		indexOf(out.Main, "import 'Frontend/views/main.js';") {
		t.Error("stylesheets must come before modules")
	}

	seenOther := false
	for _, l := range out.Main {
		isImport := strings.HasPrefix(l, "import ")
		if isImport && seenOther {
			t.Fatalf("import %q after a statement", l)
		}
		seenOther = seenOther || !isImport
	}
}

func TestGenerateLazyChunks(t *testing.T) {
	out, err := newGenerator(projectFS(t), false).Generate(context.Background(), scanResult())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(out.Chunks) != 1 {
		t.Fatalf("identical routes should share one chunk, got %d", len(out.Chunks))
	}
	chunk := out.Chunks[0]
	if chunk.Name != "chunk-"+imports.ContentHash(chunk.Lines)+".js" {
		t.Errorf("chunk is not named by its content hash: %s", chunk.Name)
	}
	if !slices.Equal(chunk.Triggers, []string{"com.example.OrdersView", "com.example.CustomersView"}) {
		t.Errorf("triggers = %v", chunk.Triggers)
	}
	for _, want := range []string{
		"import '@vaadin/grid/theme/lumo/vaadin-grid.js';",
		"import $cssFromFile_0 from 'Frontend/styles/orders.css?inline';",
	} {
		if indexOf(chunk.Lines, want) < 0 {
			t.Errorf("chunk misses %q", want)
		}
	}
	if indexOf(chunk.Lines, "import $cssFromFile_1 from 'Frontend/styles/grid.css?inline';") >= 0 ||
		indexOf(chunk.Lines, "import $cssFromFile_0 from 'Frontend/styles/grid.css?inline';") >= 0 {
		t.Error("theme-for stylesheet must be eager")
	}

	for _, trig := range chunk.Triggers {
		if indexOf(out.Main, "  if (key === '"+imports.HashString(trig)+"') {") < 0 {
			t.Errorf("loader misses trigger %s", trig)
		}
	}
	if indexOf(out.Main, "    pending.push(import('./chunks/"+chunk.Name+"'));") < 0 {
		t.Error("loader does not import the chunk")
	}
}

func TestGenerateIsRepeatable(t *testing.T) {
	g := newGenerator(projectFS(t), false)
	first, err := g.Generate(context.Background(), scanResult())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := g.Generate(context.Background(), scanResult())
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}

	if !slices.Equal(first.Main, second.Main) {
		t.Errorf("bootstrap differs between runs:\n%q\n%q", first.Main, second.Main)
	}
	if !slices.Equal(first.WebComponent, second.WebComponent) {
		t.Errorf("web component variant differs between runs")
	}
	if !slices.Equal(first.AppShell, second.AppShell) {
		t.Errorf("app shell differs between runs")
	}
	if len(first.Chunks) != len(second.Chunks) {
		t.Fatalf("chunk count differs: %d vs %d", len(first.Chunks), len(second.Chunks))
	}
	for i := range first.Chunks {
		a, b := first.Chunks[i], second.Chunks[i]
		if a.Name != b.Name || !slices.Equal(a.Lines, b.Lines) || !slices.Equal(a.Triggers, b.Triggers) {
			t.Errorf("chunk %d differs: %s vs %s", i, a.Name, b.Name)
		}
	}
	if !slices.Equal(imports.Hoist(first.Main), first.Main) {
		t.Error("hoisting an already hoisted bootstrap must not change it")
	}
}

func TestGeneratePermutedChunks(t *testing.T) {
	g := newGenerator(projectFS(t), false)
	base, err := g.Generate(context.Background(), scanResult())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// The eager route moves ahead of the global chunk and the two identical
	// lazy routes swap; stylesheet encounter order is unchanged.
	res := scanResult()
	global, orders, customers, home := res.Chunks[0], res.Chunks[1], res.Chunks[2], res.Chunks[3]
	res.Chunks = []scanner.Chunk{home, global, customers, orders}
	permuted, err := g.Generate(context.Background(), res)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(permuted.Chunks) != 1 {
		t.Fatalf("identical routes should still share one chunk, got %d", len(permuted.Chunks))
	}
	a, b := base.Chunks[0], permuted.Chunks[0]
	if a.Name != b.Name || !slices.Equal(a.Lines, b.Lines) {
		t.Errorf("chunk content depends on route order: %s vs %s", a.Name, b.Name)
	}
	if !slices.Equal(sorted(a.Triggers), sorted(b.Triggers)) {
		t.Errorf("triggers = %v, want %v", b.Triggers, a.Triggers)
	}

	if !slices.Equal(sorted(base.Main), sorted(permuted.Main)) {
		t.Errorf("bootstrap lines depend on chunk order:\n%q\n%q", base.Main, permuted.Main)
	}
	for _, lines := range [][]string{base.Main, permuted.Main} {
		seenOther := false
		for _, l := range lines {
			isImport := strings.HasPrefix(l, "import ")
			if isImport && seenOther {
				t.Errorf("import %q follows a statement", l)
			}
			seenOther = seenOther || !isImport
		}
	}
	if indexOf(permuted.Main, "import 'Frontend/views/home.js';") > indexOf(permuted.Main, "import 'Frontend/views/main.js';") {
		t.Error("eager modules must keep encounter order")
	}
}

func sorted(lines []string) []string {
	out := slices.Clone(lines)
	slices.Sort(out)
	return out
}

func TestGenerateWebComponentVariant(t *testing.T) {
	out, err := newGenerator(projectFS(t), false).Generate(context.Background(), scanResult())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if indexOf(out.WebComponent, "import '@vaadin/vaadin-lumo-styles/color-global.js';") >= 0 {
		t.Error("global Lumo styles must not reach web components")
	}
	if indexOf(out.WebComponent, "injectGlobalWebcomponentCss($cssFromFile_0.toString());") < 0 {
		t.Errorf("injection not rewritten: %q", out.WebComponent)
	}
	if indexOf(out.WebComponent, "import { injectGlobalWebcomponentCss } from 'Frontend/generated/jar-resources/theme-util.js';") < 0 {
		t.Error("web component helper import missing")
	}
}

func TestGenerateProductionSkipsDevModules(t *testing.T) {
	out, err := newGenerator(projectFS(t), true).Generate(context.Background(), scanResult())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if indexOf(out.Main, "import 'Frontend/dev-tools.js';") >= 0 {
		t.Error("development module emitted in production")
	}
}

func TestGenerateUnresolved(t *testing.T) {
	res := &scanner.Result{Chunks: []scanner.Chunk{{
		ID:      scanner.GlobalChunk,
		Modules: []string{"./missing.js", "not-installed"},
		CSS:     []scanner.CSSImport{{Value: "./missing.css"}},
	}}}

	_, err := newGenerator(projectFS(t), false).Generate(context.Background(), res)
	var uerr *imports.UnresolvedImportsError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnresolvedImportsError, got %v", err)
	}
	if !slices.Equal(uerr.Paths(), []string{"./missing.css", "./missing.js"}) {
		t.Errorf("unresolved = %v", uerr.Paths())
	}
	if !strings.Contains(err.Error(), "./missing.js") || !strings.Contains(err.Error(), frontendDir) {
		t.Errorf("message lacks details:\n%s", err)
	}

	lines, err := newGenerator(projectFS(t), false).ImportLines(context.Background(), res)
	if err != nil {
		t.Fatalf("ImportLines should be lenient: %v", err)
	}
	if indexOf(lines, "import 'not-installed';") < 0 {
		t.Error("missing bare import must still be emitted")
	}
}

func TestGenerateConflictingCSS(t *testing.T) {
	res := &scanner.Result{Chunks: []scanner.Chunk{{
		ID:  scanner.GlobalChunk,
		CSS: []scanner.CSSImport{{Value: "./styles/global.css", ID: "a", ThemeFor: "b"}},
	}}}
	_, err := newGenerator(projectFS(t), false).Generate(context.Background(), res)
	if !errors.Is(err, imports.ErrConflictingCSSTarget) {
		t.Fatalf("expected ErrConflictingCSSTarget, got %v", err)
	}
}

func TestGenerateIncludeAndAppShell(t *testing.T) {
	res := &scanner.Result{
		Chunks: []scanner.Chunk{{
			ID: scanner.GlobalChunk,
			CSS: []scanner.CSSImport{
				{Value: "./styles/global.css", Include: "lumo-badge"},
				{Value: "./styles/grid.css", Include: "lumo-badge"},
			},
		}},
		AppShellCSS: []scanner.CSSImport{{Value: "./styles/orders.css"}},
	}
	out, err := newGenerator(projectFS(t), false).Generate(context.Background(), res)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	helpers := 0
	for _, l := range out.Main {
		if l == "function addCssBlock(block) {" {
			helpers++
		}
	}
	if helpers != 1 {
		t.Errorf("addCssBlock helper emitted %d times", helpers)
	}
	if indexOf(out.Main, "addCssBlock(`<style include=\"lumo-badge\">${$cssFromFile_1}</style>`);") < 0 {
		t.Error("include block missing")
	}
	if indexOf(out.AppShell, "import $cssFromFile_0 from 'Frontend/styles/orders.css?inline';") < 0 {
		t.Errorf("app shell = %q", out.AppShell)
	}
	if _, ok := out.Files.Get(filepath.Join(generatedDir, imports.AppShellImportsFile)); !ok {
		t.Error("app shell file not in the file set")
	}
}

func TestWriteRemovesStaleChunks(t *testing.T) {
	mfs := projectFS(t)
	stale := filepath.Join(generatedDir, imports.ChunksDir, "chunk-0000.js")
	mfs.AddFile(stale, "old", 0644)

	g := newGenerator(mfs, false)
	out, written, err := g.Write(context.Background(), scanResult(), generated.NewWriter(mfs, zerolog.Nop()))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if mfs.Exists(stale) {
		t.Error("stale chunk not removed")
	}
	if !slices.Contains(written.Removed, stale) {
		t.Errorf("removed = %v", written.Removed)
	}
	for _, p := range append(out.ChunkPaths(generatedDir),
		filepath.Join(generatedDir, imports.ImportsFile),
		filepath.Join(generatedDir, imports.ImportsDTSFile),
		filepath.Join(generatedDir, imports.WebComponentImportsFile),
	) {
		if !mfs.Exists(p) {
			t.Errorf("%s not written", p)
		}
	}
	dts, _ := mfs.ReadFile(filepath.Join(generatedDir, imports.ImportsDTSFile))
	if string(dts) != "export {}\n" {
		t.Errorf("d.ts = %q", dts)
	}

	// The web component file keeps its timestamp when nothing changed.
	wc := filepath.Join(generatedDir, imports.WebComponentImportsFile)
	before := mfs.ModTime(wc)
	if _, _, err := g.Write(context.Background(), scanResult(), generated.NewWriter(mfs, zerolog.Nop())); err != nil {
		t.Fatal(err)
	}
	if !mfs.ModTime(wc).Equal(before) {
		t.Error("unchanged web component file rewritten")
	}
}
