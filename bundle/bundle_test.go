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
package bundle_test

import (
	"bytes"
	"context"
	"maps"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/frontier/bundle"
	"bennypowers.dev/frontier/imports"
	"bennypowers.dev/frontier/internal/mapfs"
	"bennypowers.dev/frontier/packagejson"
	"bennypowers.dev/frontier/scanner"
	"bennypowers.dev/frontier/stats"
	"bennypowers.dev/frontier/testutil"
)

const (
	projectDir   = "/app"
	frontendDir  = "/app/frontend"
	generatedDir = "/app/frontend/generated"
	jarResources = "/app/frontend/generated/jar-resources"
	devStats     = "/app/target/dev-bundle/config/stats.json"
)

const (
	myThemeJSON   = `{"parent":"base-theme","lumoImports":["typography","color"]}`
	baseThemeJSON = `{"documentCss":["@fontsource/roboto"]}`
)

type fixture struct {
	fs   *mapfs.MapFileSystem
	res  *scanner.Result
	opts bundle.Options
}

func newFixture(t *testing.T, mode bundle.Mode) *fixture {
	t.Helper()
	mfs := testutil.NewProjectFS(t, map[string]string{
		projectDir + "/package.json":                                      `{"name":"app","dependencies":{}}`,
		frontendDir + "/index.ts":                                         "import './views/main.js';\n",
		frontendDir + "/views/main.js":                                    "import './helper.js';\n",
		frontendDir + "/views/helper.js":                                  "export const x = 1;\n",
		frontendDir + "/styles/app.css":                                   "html { color: red; }\r\n",
		frontendDir + "/themes/my-theme/theme.json":                       myThemeJSON,
		frontendDir + "/themes/my-theme/components/vaadin-button.css":     ":host { margin: 0; }",
		frontendDir + "/themes/my-theme/components/vaadin-text-field.css": ":host { padding: 0; }",
		frontendDir + "/themes/base-theme/theme.json":                     baseThemeJSON,
		jarResources + "/theme-util.js":                                   "export const injectGlobalCss = () => {};\n",
	})
	return &fixture{
		fs: mfs,
		res: &scanner.Result{
			Theme: &scanner.Theme{Name: "my-theme", BaseURL: "src/", ThemeURL: "theme/lumo/"},
			Chunks: []scanner.Chunk{{
				ID:      scanner.GlobalChunk,
				Kind:    scanner.KindGlobal,
				Modules: []string{"./views/main.js"},
				CSS:     []scanner.CSSImport{{Value: "./styles/app.css"}},
			}},
			Packages:      map[string]string{"@vaadin/button": "24.4.0"},
			WebComponents: []string{"my-widget"},
		},
		opts: bundle.Options{
			ProjectDir:   projectDir,
			FrontendDir:  frontendDir,
			GeneratedDir: generatedDir,
			Mode:         mode,
			Logger:       zerolog.Nop(),
		},
	}
}

func (f *fixture) updater() *packagejson.Updater {
	return packagejson.NewUpdater(f.fs, packagejson.Options{ProjectDir: projectDir, Logger: zerolog.Nop()})
}

func (f *fixture) generator() *imports.Generator {
	return imports.New(f.fs, imports.Options{
		FrontendDir:    frontendDir,
		GeneratedDir:   generatedDir,
		NodeModulesDir: projectDir + "/node_modules",
		Production:     f.opts.Mode.IsProduction(),
		Logger:         zerolog.Nop(),
	})
}

func (f *fixture) validator() *bundle.Validator {
	return f.validatorWith(scanner.Static{Result: f.res})
}

func (f *fixture) validatorWith(sc scanner.Scanner) *bundle.Validator {
	return bundle.New(f.fs, sc, f.updater(), f.generator(), f.opts)
}

// countingScanner counts full scans. Eager routes come from the embedded
// Static without a scan.
type countingScanner struct {
	scanner.Static
	scans atomic.Int32
}

func (c *countingScanner) Scan(ctx context.Context) (*scanner.Result, error) {
	c.scans.Add(1)
	return c.Static.Scan(ctx)
}

// scanOnly hides every optional scanner capability.
type scanOnly struct {
	res   *scanner.Result
	scans int
}

func (s *scanOnly) Scan(context.Context) (*scanner.Result, error) {
	s.scans++
	return s.res, nil
}

type panickingScanner struct{}

func (panickingScanner) Scan(context.Context) (*scanner.Result, error) {
	panic("decoder blew up")
}

// freshStats records what a bundler run over the current project would.
func (f *fixture) freshStats(t *testing.T) *stats.Stats {
	t.Helper()
	m, err := f.updater().Expected(f.res)
	require.NoError(t, err)
	lines, err := f.generator().ImportLines(context.Background(), f.res)
	require.NoError(t, err)
	specs, err := imports.StaticSpecifiers([]byte(strings.Join(lines, "\n")))
	require.NoError(t, err)

	hashed := map[string]string{
		"theme-util.js":   jarResources + "/theme-util.js",
		"index.ts":        frontendDir + "/index.ts",
		"views/main.js":   frontendDir + "/views/main.js",
		"views/helper.js": frontendDir + "/views/helper.js",
		"styles/app.css":  frontendDir + "/styles/app.css",
	}
	for _, css := range []string{"vaadin-button.css", "vaadin-text-field.css"} {
		key := "themes/my-theme/components/" + css
		hashed[key] = frontendDir + "/" + key
	}
	if f.fs.Exists(frontendDir + "/index.html") {
		hashed["index.html"] = frontendDir + "/index.html"
	}
	hashes := map[string]string{}
	for key, p := range hashed {
		content, err := f.fs.ReadFile(p)
		require.NoError(t, err)
		hashes[key] = bundle.FileHash(content)
	}

	return &stats.Stats{
		PackageJSONHash:         m.Vaadin.Hash,
		PackageJSONDependencies: maps.Clone(m.Dependencies),
		NpmModules:              maps.Clone(m.Dependencies),
		BundleImports:           specs,
		FrontendHashes:          hashes,
		ThemeJSONContents: map[string]string{
			"my-theme":   myThemeJSON,
			"base-theme": baseThemeJSON,
		},
		WebComponents: []string{"my-widget"},
	}
}

func (f *fixture) writeStats(t *testing.T, path string, st *stats.Stats) {
	t.Helper()
	data, err := json.Marshal(st)
	require.NoError(t, err)
	f.fs.AddFile(path, string(data), 0644)
}

func zipArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.String()
}

func TestNeedsBuildUpToDate(t *testing.T) {
	f := newFixture(t, bundle.DevelopmentBundle)
	f.writeStats(t, devStats, f.freshStats(t))

	v := f.validator()
	assert.False(t, v.NeedsBuild(context.Background()), "reason: %s", v.Reason())
	assert.Nil(t, v.Reason())
}

func TestNeedsBuildWithoutBundle(t *testing.T) {
	for _, mode := range []bundle.Mode{bundle.DevelopmentBundle, bundle.Production} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode)
			sc := &countingScanner{Static: scanner.Static{Result: f.res}}
			v := f.validatorWith(sc)
			assert.True(t, v.NeedsBuild(context.Background()))
			require.NotNil(t, v.Reason())
			assert.Equal(t, bundle.CheckPresence, v.Reason().Check)
			assert.Zero(t, sc.scans.Load(), "a missing bundle must not trigger a dependency scan")
		})
	}

	t.Run("dev stats missing from unpacked bundle", func(t *testing.T) {
		f := newFixture(t, bundle.DevelopmentBundle)
		f.fs.AddFile("/app/target/dev-bundle/assets/index.js", "", 0644)
		sc := &countingScanner{Static: scanner.Static{Result: f.res}}
		v := f.validatorWith(sc)
		assert.True(t, v.NeedsBuild(context.Background()))
		assert.Equal(t, bundle.CheckPresence, v.Reason().Check)
		assert.Zero(t, sc.scans.Load())
	})
}

func TestNeedsBuildEagerRoutesWithoutScan(t *testing.T) {
	f := newFixture(t, bundle.Production)
	f.res.EagerRoutes = []string{"home"}
	sc := &countingScanner{Static: scanner.Static{Result: f.res}}
	v := f.validatorWith(sc)
	assert.True(t, v.NeedsBuild(context.Background()))
	assert.Equal(t, bundle.CheckEagerRoutes, v.Reason().Check)
	assert.Equal(t, []string{"home"}, v.Reason().Files)
	assert.Zero(t, sc.scans.Load(), "eager routes are listed without a full scan")

	plain := &scanOnly{res: f.res}
	v = f.validatorWith(plain)
	assert.True(t, v.NeedsBuild(context.Background()))
	assert.Equal(t, bundle.CheckEagerRoutes, v.Reason().Check)
	assert.Equal(t, 1, plain.scans, "scanners without a route listing fall back to one scan")
}

func TestNeedsBuildRecoversFromPanic(t *testing.T) {
	f := newFixture(t, bundle.DevelopmentBundle)
	f.writeStats(t, devStats, f.freshStats(t))

	v := f.validatorWith(panickingScanner{})
	assert.True(t, v.NeedsBuild(context.Background()))
	require.NotNil(t, v.Reason())
	assert.Equal(t, bundle.CheckError, v.Reason().Check)
	assert.Contains(t, v.Reason().Message, "decoder blew up")
}

func TestNeedsBuildDevelopmentLive(t *testing.T) {
	f := newFixture(t, bundle.DevelopmentLive)
	assert.False(t, f.validator().NeedsBuild(context.Background()))
}

func TestNeedsBuildUnknownMode(t *testing.T) {
	f := newFixture(t, bundle.Mode("staging"))
	v := f.validator()
	assert.True(t, v.NeedsBuild(context.Background()))
	assert.Equal(t, bundle.CheckError, v.Reason().Check)
}

func TestNeedsBuildUnpacksCompressedBundle(t *testing.T) {
	f := newFixture(t, bundle.DevelopmentBundle)
	data, err := json.Marshal(f.freshStats(t))
	require.NoError(t, err)
	f.fs.AddFile(projectDir+"/"+bundle.DevBundleArchive, zipArchive(t, map[string]string{
		"config/stats.json": string(data),
		"assets/index.js":   "",
	}), 0644)

	v := f.validator()
	assert.False(t, v.NeedsBuild(context.Background()), "reason: %s", v.Reason())
	assert.True(t, f.fs.Exists(devStats))
	assert.True(t, f.fs.Exists("/app/target/dev-bundle/assets/index.js"))
}

func TestNeedsBuildSkipDevBundle(t *testing.T) {
	f := newFixture(t, bundle.DevelopmentBundle)
	f.fs.AddFile(devStats, "not json", 0644)
	f.opts.SkipDevBundle = true
	assert.False(t, f.validator().NeedsBuild(context.Background()))

	f.opts.SkipDevBundle = false
	v := f.validator()
	assert.True(t, v.NeedsBuild(context.Background()))
	assert.Equal(t, bundle.CheckError, v.Reason().Check)
}

func TestNeedsBuildDrift(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, f *fixture, st *stats.Stats)
		want   bundle.Check
		files  []string
		fresh  bool
	}{
		{
			name: "scanned package missing from bundle",
			mutate: func(_ *testing.T, _ *fixture, st *stats.Stats) {
				delete(st.PackageJSONDependencies, "@vaadin/button")
			},
			want:  bundle.CheckPackages,
			files: []string{"@vaadin/button"},
		},
		{
			name: "new dependency",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.res.Packages["@vaadin/grid"] = "24.4.0"
			},
			want: bundle.CheckDependencies,
		},
		{
			name: "dependency version differs",
			mutate: func(_ *testing.T, _ *fixture, st *stats.Stats) {
				st.PackageJSONHash = "stale"
				st.PackageJSONDependencies["@vaadin/button"] = "23.3.0"
			},
			want: bundle.CheckDependencies,
		},
		{
			name: "newer compatible version bundled",
			mutate: func(_ *testing.T, _ *fixture, st *stats.Stats) {
				st.PackageJSONHash = "stale"
			},
			fresh: true,
		},
		{
			name: "import missing from bundle",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.fs.AddFile(frontendDir+"/views/extra.js", "", 0644)
				f.res.Chunks[0].Modules = append(f.res.Chunks[0].Modules, "./views/extra.js")
			},
			want:  bundle.CheckImports,
			files: []string{"Frontend/views/extra.js"},
		},
		{
			name: "bundled project file changed",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.fs.AddFile(frontendDir+"/views/main.js", "import './helper.js';\nconsole.log(1);\n", 0644)
			},
			want:  bundle.CheckHashes,
			files: []string{"views/main.js"},
		},
		{
			name: "line endings do not matter",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.fs.AddFile(frontendDir+"/styles/app.css", "html { color: red; }\n", 0644)
			},
			fresh: true,
		},
		{
			name: "jar resource changed",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.fs.AddFile(jarResources+"/theme-util.js", "export {};\n", 0644)
			},
			want:  bundle.CheckHashes,
			files: []string{"theme-util.js"},
		},
		{
			name: "bootstrap file added",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.fs.AddFile(frontendDir+"/index.js", "", 0644)
			},
			want:  bundle.CheckBootstrap,
			files: []string{"index.js"},
		},
		{
			name: "bootstrap file deleted",
			mutate: func(t *testing.T, f *fixture, _ *stats.Stats) {
				require.NoError(t, f.fs.Remove(frontendDir+"/index.ts"))
			},
			want:  bundle.CheckBootstrap,
			files: []string{"index.ts"},
		},
		{
			name: "nested import changed",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.fs.AddFile(frontendDir+"/views/helper.js", "export const x = 2;\n", 0644)
			},
			want:  bundle.CheckHashes,
			files: []string{"views/helper.js"},
		},
		{
			name: "recorded file deleted",
			mutate: func(t *testing.T, f *fixture, st *stats.Stats) {
				st.FrontendHashes["views/old.js"] = "abc"
			},
			fresh: true,
		},
		{
			name: "theme entry added",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.fs.AddFile(frontendDir+"/themes/my-theme/theme.json",
					`{"parent":"base-theme","lumoImports":["typography","color"],"documentCss":["extra.css"]}`, 0644)
			},
			want:  bundle.CheckTheme,
			files: []string{"documentCss", `"extra.css"`},
		},
		{
			name: "theme entries reordered",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.fs.AddFile(frontendDir+"/themes/my-theme/theme.json",
					`{"lumoImports":["color","typography"],"parent":"base-theme"}`, 0644)
			},
			fresh: true,
		},
		{
			name: "parent theme changed",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.fs.AddFile(frontendDir+"/themes/base-theme/theme.json", `{"documentCss":["@fontsource/lato"]}`, 0644)
			},
			want: bundle.CheckTheme,
		},
		{
			name: "no theme recorded",
			mutate: func(_ *testing.T, _ *fixture, st *stats.Stats) {
				st.ThemeJSONContents = nil
			},
			want: bundle.CheckTheme,
		},
		{
			name: "project theme under dev-bundle key",
			mutate: func(_ *testing.T, _ *fixture, st *stats.Stats) {
				st.ThemeJSONContents[bundle.DevBundleName] = st.ThemeJSONContents["my-theme"]
				delete(st.ThemeJSONContents, "my-theme")
			},
			fresh: true,
		},
		{
			name: "new parent-only theme",
			mutate: func(_ *testing.T, f *fixture, st *stats.Stats) {
				f.fs.AddFile(frontendDir+"/themes/base-theme/theme.json", `{"parent":"root-theme"}`, 0644)
				f.fs.AddFile(frontendDir+"/themes/root-theme/theme.json", `{}`, 0644)
				st.ThemeJSONContents["base-theme"] = `{}`
			},
			fresh: true,
		},
		{
			name: "component stylesheet added",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.fs.AddFile(frontendDir+"/themes/my-theme/components/vaadin-grid.css", "", 0644)
			},
			want:  bundle.CheckThemeComponents,
			files: []string{"themes/my-theme/components/vaadin-grid.css"},
		},
		{
			name: "component stylesheet removed",
			mutate: func(t *testing.T, f *fixture, _ *stats.Stats) {
				require.NoError(t, f.fs.Remove(frontendDir+"/themes/my-theme/components/vaadin-text-field.css"))
			},
			want:  bundle.CheckThemeComponents,
			files: []string{"themes/my-theme/components/vaadin-text-field.css"},
		},
		{
			name: "web component added",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.res.WebComponents = append(f.res.WebComponents, "other-widget")
			},
			want:  bundle.CheckWebComponents,
			files: []string{"other-widget"},
		},
		{
			name: "web component removed",
			mutate: func(_ *testing.T, f *fixture, _ *stats.Stats) {
				f.res.WebComponents = nil
			},
			fresh: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, bundle.DevelopmentBundle)
			st := f.freshStats(t)
			tt.mutate(t, f, st)
			f.writeStats(t, devStats, st)

			v := f.validator()
			needed := v.NeedsBuild(context.Background())
			if tt.fresh {
				assert.False(t, needed, "reason: %s", v.Reason())
				return
			}
			require.True(t, needed)
			require.NotNil(t, v.Reason())
			assert.Equal(t, tt.want, v.Reason().Check, "reason: %s", v.Reason())
			if tt.files != nil {
				assert.Equal(t, tt.files, v.Reason().Files)
			}
		})
	}
}

func TestNeedsBuildPackagedTheme(t *testing.T) {
	f := newFixture(t, bundle.DevelopmentBundle)
	jar := "/repo/addon.jar"
	f.fs.AddFile(jar, zipArchive(t, map[string]string{
		"META-INF/resources/themes/addon-theme/theme.json": `{"lumoImports":["badge"]}`,
	}), 0644)
	f.opts.JarFiles = []string{jar, "/repo/missing.jar"}

	st := f.freshStats(t)
	f.writeStats(t, devStats, st)
	v := f.validator()
	assert.True(t, v.NeedsBuild(context.Background()))
	assert.Equal(t, bundle.CheckTheme, v.Reason().Check)
	assert.Equal(t, []string{"addon-theme"}, v.Reason().Files)

	st.ThemeJSONContents["addon-theme"] = `{"lumoImports":["badge"]}`
	f.writeStats(t, devStats, st)
	v = f.validator()
	assert.False(t, v.NeedsBuild(context.Background()), "reason: %s", v.Reason())
}

func TestNeedsBuildProduction(t *testing.T) {
	prodArchive := projectDir + "/" + bundle.ProdBundleArchive
	verdict := "/app/target/" + bundle.NeedsBuildFile

	writeProdBundle := func(t *testing.T, f *fixture, st *stats.Stats) {
		data, err := json.Marshal(st)
		require.NoError(t, err)
		f.fs.AddFile(prodArchive, zipArchive(t, map[string]string{"config/stats.json": string(data)}), 0644)
	}

	t.Run("up to date", func(t *testing.T) {
		f := newFixture(t, bundle.Production)
		f.fs.AddFile(frontendDir+"/index.html", "<html></html>", 0644)
		writeProdBundle(t, f, f.freshStats(t))

		v := f.validator()
		assert.False(t, v.NeedsBuild(context.Background()), "reason: %s", v.Reason())
		data, err := f.fs.ReadFile(verdict)
		require.NoError(t, err)
		assert.Equal(t, "false", string(data))

		assert.False(t, bundle.ConsumeResult(f.fs, "/app/target", zerolog.Nop()))
		assert.False(t, f.fs.Exists(verdict), "verdict file should be consumed")
		assert.True(t, bundle.ConsumeResult(f.fs, "/app/target", zerolog.Nop()), "missing verdict means build")
	})

	t.Run("custom index.html changed", func(t *testing.T) {
		f := newFixture(t, bundle.Production)
		f.fs.AddFile(frontendDir+"/index.html", "<html></html>", 0644)
		st := f.freshStats(t)
		f.fs.AddFile(frontendDir+"/index.html", "<html><body></body></html>", 0644)
		writeProdBundle(t, f, st)

		v := f.validator()
		assert.True(t, v.NeedsBuild(context.Background()))
		assert.Equal(t, bundle.CheckIndexHTML, v.Reason().Check)
		data, err := f.fs.ReadFile(verdict)
		require.NoError(t, err)
		assert.Equal(t, "true", string(data))
	})

	t.Run("unpacked bundle", func(t *testing.T) {
		f := newFixture(t, bundle.Production)
		f.writeStats(t, "/app/target/prod-bundle/config/stats.json", f.freshStats(t))
		v := f.validator()
		assert.False(t, v.NeedsBuild(context.Background()), "reason: %s", v.Reason())
	})

	t.Run("eager routes", func(t *testing.T) {
		f := newFixture(t, bundle.Production)
		writeProdBundle(t, f, f.freshStats(t))
		f.res.EagerRoutes = []string{"home"}
		v := f.validator()
		assert.True(t, v.NeedsBuild(context.Background()))
		assert.Equal(t, bundle.CheckEagerRoutes, v.Reason().Check)
	})

	t.Run("forced", func(t *testing.T) {
		f := newFixture(t, bundle.Production)
		writeProdBundle(t, f, f.freshStats(t))
		f.opts.ForceProductionBuild = true
		v := f.validator()
		assert.True(t, v.NeedsBuild(context.Background()))
		assert.Equal(t, bundle.CheckForced, v.Reason().Check)
	})

	t.Run("archive without stats", func(t *testing.T) {
		f := newFixture(t, bundle.Production)
		f.fs.AddFile(prodArchive, zipArchive(t, map[string]string{"index.html": ""}), 0644)
		v := f.validator()
		assert.True(t, v.NeedsBuild(context.Background()))
		assert.Equal(t, bundle.CheckPresence, v.Reason().Check)
	})
}

func TestUnpackRejectsEscapingEntries(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/b.zip", zipArchive(t, map[string]string{"../evil.js": "x"}), 0644)
	err := bundle.Unpack(mfs, "/b.zip", "/out")
	assert.ErrorIs(t, err, bundle.ErrUnsafePath)
	assert.False(t, mfs.Exists(filepath.Join("/", "evil.js")))
}

func TestParseMode(t *testing.T) {
	m, err := bundle.ParseMode(" Production ")
	require.NoError(t, err)
	assert.Equal(t, bundle.Production, m)

	_, err = bundle.ParseMode("staging")
	assert.ErrorIs(t, err, bundle.ErrUnknownMode)
}

func TestFileHash(t *testing.T) {
	assert.Equal(t, bundle.FileHash([]byte("a\nb\n")), bundle.FileHash([]byte("a\r\nb\r\n")))
	assert.NotEqual(t, bundle.FileHash([]byte("a")), bundle.FileHash([]byte("b")))
}

func TestFileHashKeepsTrailingNewline(t *testing.T) {
	assert.NotEqual(t, bundle.FileHash([]byte("a")), bundle.FileHash([]byte("a\n")))
	assert.Equal(t, bundle.FileHash([]byte("a\n")), bundle.FileHash([]byte("a\r\n")))
	assert.Equal(t, imports.HashString("a\n"), bundle.FileHash([]byte("a\r\n")))
}

func TestReasonString(t *testing.T) {
	var none *bundle.Reason
	assert.Equal(t, "up to date", none.String())
	r := &bundle.Reason{Check: bundle.CheckHashes, Message: "changed", Files: []string{"a.js"}}
	assert.Equal(t, "hashes: changed:\n - a.js", r.String())
}
