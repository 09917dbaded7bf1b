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

// Package imports turns the scanner's per-chunk requirements into the
// bundler entry points: the eager bootstrap, content-addressed lazy chunks
// with their on-demand loader, the web component variant and the app shell
// stylesheet module.
package imports

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	ffs "bennypowers.dev/frontier/fs"
	"bennypowers.dev/frontier/generated"
	"bennypowers.dev/frontier/packagejson"
	"bennypowers.dev/frontier/scanner"
)

// Output files, relative to the generated directory.
const (
	ImportsFile             = "flow/generated-flow-imports.js"
	ImportsDTSFile          = "flow/generated-flow-imports.d.ts"
	WebComponentImportsFile = "flow/generated-flow-webcomponent-imports.js"
	ChunksDir               = "flow/chunks"
	AppShellImportsFile     = "app-shell-imports.js"
	AppShellDTSFile         = "app-shell-imports.d.ts"
	// WebComponentsDir holds generated web component modules, which are
	// imported eagerly.
	WebComponentsDir = "flow/web-components"
)

var dtsLines = []string{"export {}"}

// Options configures a Generator.
type Options struct {
	FrontendDir    string
	GeneratedDir   string
	NodeModulesDir string
	// JarResourcesDir defaults to GeneratedDir/jar-resources.
	JarResourcesDir string
	// Production drops development-only modules and scripts.
	Production bool
	// Lenient tolerates unresolved imports instead of failing.
	Lenient  bool
	Packages packagejson.Cache
	Logger   zerolog.Logger
}

// Generator computes entry point files. It never writes by itself; see
// Write.
type Generator struct {
	fs   ffs.FileSystem
	opts Options
}

// New returns a Generator.
func New(fsys ffs.FileSystem, opts Options) *Generator {
	if opts.JarResourcesDir == "" {
		opts.JarResourcesDir = filepath.Join(opts.GeneratedDir, JarResourcesDir)
	}
	if opts.Packages == nil {
		opts.Packages = packagejson.NewMemoryCache(0)
	}
	return &Generator{fs: fsys, opts: opts}
}

// Result is the outcome of a generation pass.
type Result struct {
	Files        *generated.FileSet
	Main         []string
	WebComponent []string
	AppShell     []string
	Chunks       []*ChunkFile
	// Missing are bare imports not found in node_modules; they are emitted
	// anyway for the bundler to resolve.
	Missing []string
	// Unresolved is only filled in lenient mode.
	Unresolved []string
}

// ChunkPaths returns the absolute paths of the chunk files.
func (r *Result) ChunkPaths(generatedDir string) []string {
	out := make([]string, 0, len(r.Chunks))
	for _, c := range r.Chunks {
		out = append(out, filepath.Join(generatedDir, ChunksDir, c.Name))
	}
	return out
}

// AllLines returns the bootstrap, chunk and app shell lines together.
func (r *Result) AllLines() []string {
	out := slices.Clone(r.Main)
	for _, c := range r.Chunks {
		out = append(out, c.Lines...)
	}
	return append(out, r.AppShell...)
}

type run struct {
	g          *Generator
	r          *resolver
	translator *Translator
	follower   *follower

	unresolvedModules *orderedSet[string]
	unresolvedCSS     *orderedSet[string]
	missing           *orderedSet[string]
}

func (g *Generator) newRun(res *scanner.Result) *run {
	r := &resolver{
		fs:             g.fs,
		frontendDir:    g.opts.FrontendDir,
		generatedDir:   g.opts.GeneratedDir,
		jarDir:         g.opts.JarResourcesDir,
		nodeModulesDir: g.opts.NodeModulesDir,
		packages:       g.opts.Packages,
		logger:         g.opts.Logger,
	}
	t := NewTranslator(res.Theme)
	return &run{
		g:                 g,
		r:                 r,
		translator:        t,
		follower:          newFollower(r, t),
		unresolvedModules: newOrderedSet[string](),
		unresolvedCSS:     newOrderedSet[string](),
		missing:           newOrderedSet[string](),
	}
}

// Generate computes every output file for res. Unresolved relative
// modules or stylesheets fail the pass with *UnresolvedImportsError unless
// the generator is lenient.
func (g *Generator) Generate(ctx context.Context, res *scanner.Result) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res == nil {
		res = &scanner.Result{}
	}
	ru := g.newRun(res)

	var eagerJS []string
	eagerCSS := newOrderedSet[scanner.CSSImport]()
	for _, c := range res.Chunks {
		if c.IsLazy() {
			for _, css := range c.CSS {
				// Theming applies globally, never on demand.
				if css.ThemeFor != "" {
					eagerCSS.add(css)
				}
			}
			continue
		}
		eagerJS = append(eagerJS, c.JSImports(g.opts.Production)...)
		eagerCSS.addAll(c.CSS...)
	}
	generatedModules, err := GeneratedModules(g.fs, g.opts.GeneratedDir)
	if err != nil {
		return nil, err
	}
	eagerJS = append(eagerJS, generatedModules...)

	table := newChunkTable()
	for _, c := range res.Chunks {
		if !c.IsLazy() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines, err := ru.lazyChunkLines(ctx, c)
		if err != nil {
			return nil, err
		}
		if len(lines) == 0 {
			continue
		}
		triggers := c.Triggers
		if len(triggers) == 0 {
			triggers = []string{c.ID}
		}
		table.add(lines, triggers)
	}

	var eager []string
	if len(eagerCSS.items) > 0 {
		cssLines, err := ru.cssLines(eagerCSS.items, &cssWriter{})
		if err != nil {
			return nil, err
		}
		eager = append(cssSupportImports(), cssLines...)
	}
	eager = append(eager, ru.moduleLines(ctx, eagerJS)...)

	out := &Result{Chunks: table.files}
	out.Main = Hoist(append(slices.Clone(eager), table.loaderLines()...))
	out.WebComponent = webComponentLines(eager)

	if len(res.AppShellCSS) > 0 {
		cssLines, err := ru.cssLines(res.AppShellCSS, &cssWriter{})
		if err != nil {
			return nil, err
		}
		out.AppShell = Hoist(append(cssSupportImports(), cssLines...))
	}

	out.Missing = ru.missing.items
	if len(out.Missing) > 0 {
		g.opts.Logger.Warn().Strs("imports", out.Missing).
			Msg("imports not found in node_modules; if the build fails, check that npm packages are installed")
	}
	if len(ru.unresolvedModules.items) > 0 || len(ru.unresolvedCSS.items) > 0 {
		uerr := &UnresolvedImportsError{
			Modules:     ru.unresolvedModules.items,
			Stylesheets: ru.unresolvedCSS.items,
			FrontendDir: g.opts.FrontendDir,
			JarDir:      g.opts.JarResourcesDir,
		}
		if !g.opts.Lenient {
			return nil, uerr
		}
		out.Unresolved = uerr.Paths()
		g.opts.Logger.Debug().Strs("imports", out.Unresolved).Msg("tolerating unresolved imports")
	}

	out.Files = g.fileSet(out)
	return out, nil
}

func (g *Generator) fileSet(out *Result) *generated.FileSet {
	gd := g.opts.GeneratedDir
	set := generated.NewFileSet()
	set.Add(filepath.Join(gd, ImportsFile), out.Main, generated.Always)
	set.Add(filepath.Join(gd, ImportsDTSFile), dtsLines, generated.Always)
	set.Add(filepath.Join(gd, WebComponentImportsFile), out.WebComponent, generated.IfChanged)
	for _, c := range out.Chunks {
		set.Add(filepath.Join(gd, ChunksDir, c.Name), c.Lines, generated.Always)
	}
	if len(out.AppShell) > 0 {
		set.Add(filepath.Join(gd, AppShellImportsFile), out.AppShell, generated.IfChanged)
		set.Add(filepath.Join(gd, AppShellDTSFile), dtsLines, generated.IfChanged)
	}
	return set
}

// ImportLines regenerates leniently and returns every generated line. It
// writes nothing.
func (g *Generator) ImportLines(ctx context.Context, res *scanner.Result) ([]string, error) {
	lenient := *g
	lenient.opts.Lenient = true
	out, err := lenient.Generate(ctx, res)
	if err != nil {
		return nil, err
	}
	return out.AllLines(), nil
}

// Write generates, writes the file set and removes chunk files left over
// from earlier runs. Nothing is written when generation fails.
func (g *Generator) Write(ctx context.Context, res *scanner.Result, w *generated.Writer) (*Result, *generated.Result, error) {
	out, err := g.Generate(ctx, res)
	if err != nil {
		return nil, nil, err
	}
	written, werr := w.Write(out.Files)
	if written == nil {
		written = &generated.Result{}
	}
	removed, rerr := w.RemoveStale(filepath.Join(g.opts.GeneratedDir, ChunksDir), "chunk-*.js", out.ChunkPaths(g.opts.GeneratedDir))
	written.Removed = removed
	return out, written, errors.Join(werr, rerr)
}

func (ru *run) lazyChunkLines(ctx context.Context, c scanner.Chunk) ([]string, error) {
	var css []scanner.CSSImport
	for _, s := range c.CSS {
		if s.ThemeFor == "" {
			css = append(css, s)
		}
	}
	var lines []string
	if len(css) > 0 {
		lines = cssSupportImports()
	}
	lines = append(lines, ru.moduleLines(ctx, c.JSImports(ru.g.opts.Production))...)
	cssLines, err := ru.cssLines(css, &cssWriter{})
	if err != nil {
		return nil, err
	}
	return Hoist(append(lines, cssLines...)), nil
}

func (ru *run) moduleLines(ctx context.Context, modules []string) []string {
	specs := newOrderedSet[string]()
	for _, m := range modules {
		if IsExternal(m) {
			specs.add(m)
			continue
		}
		spec := ru.r.normalize(m)
		if imp, ok := ru.resolveModule(spec); ok {
			specs.add(imp)
		}
		ru.follower.follow(ctx, spec, func(themed string) { specs.add(themed) })
	}
	lines := make([]string, 0, len(specs.items))
	for _, s := range specs.items {
		lines = append(lines, ImportStatement(s))
	}
	return lines
}

// resolveModule applies the existence order: the project override of the
// themed file, the themed file, the original path. Relative paths that are
// not found are unresolved; bare ones are kept for the bundler.
func (ru *run) resolveModule(spec string) (string, bool) {
	translated, applied := ru.translator.Translate(spec)
	if applied {
		local := "./" + trimDot(ru.translator.Local(translated))
		if ru.r.frontendFile(local) != "" {
			return cleanImport(ru.r.browserImport(local)), true
		}
		if ru.r.exists(translated) != "" {
			return cleanImport(ru.r.browserImport(translated)), true
		}
	}
	if ru.r.exists(spec) != "" {
		return cleanImport(ru.r.browserImport(spec)), true
	}
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") {
		ru.unresolvedModules.add(spec)
		return "", false
	}
	ru.missing.add(spec)
	return spec, true
}

func (ru *run) cssLines(css []scanner.CSSImport, w *cssWriter) ([]string, error) {
	var lines []string
	for _, c := range css {
		spec := ru.r.normalize(c.Value)
		imp := spec
		if !IsExternal(spec) {
			if ru.r.exists(spec) != "" {
				imp = cleanImport(ru.r.browserImport(spec))
			} else {
				ru.unresolvedCSS.add(c.Value)
			}
		}
		l, err := w.lines(c, imp)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l...)
	}
	return lines, nil
}

// webComponentLines derives the embedded web component entry point from
// the eager lines: global Lumo styles are dropped and global injections
// become shadow-root scoped.
func webComponentLines(eager []string) []string {
	lines := []string{injectWebcomponentImport}
	for _, l := range eager {
		if isLumoGlobal(l) {
			continue
		}
		lines = append(lines, toWebComponentCSS(l))
	}
	return Hoist(lines)
}

func isLumoGlobal(line string) bool {
	return isImportLine(line) && strings.Contains(line, "@vaadin/vaadin-lumo-styles/") && strings.Contains(line, "global")
}

// GeneratedModules lists the modules produced under the generated web
// components directory as GENERATED/ paths, sorted.
func GeneratedModules(fsys ffs.FileSystem, generatedDir string) ([]string, error) {
	dir := filepath.Join(generatedDir, WebComponentsDir)
	if generatedDir == "" || !fsys.Exists(dir) {
		return nil, nil
	}
	matches, err := doublestar.Glob(ffs.Sub(fsys, dir), "**/*.{js,ts}")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		if strings.HasSuffix(m, ".d.ts") {
			continue
		}
		out = append(out, GeneratedPrefix+WebComponentsDir+"/"+m)
	}
	slices.Sort(out)
	return out, nil
}
