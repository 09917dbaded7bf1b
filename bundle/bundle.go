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

// Package bundle decides whether the compiled frontend bundle still matches
// the application, so an expensive bundler run can be skipped.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	ffs "bennypowers.dev/frontier/fs"
	"bennypowers.dev/frontier/imports"
	"bennypowers.dev/frontier/packagejson"
	"bennypowers.dev/frontier/scanner"
	"bennypowers.dev/frontier/stats"
)

// Mode selects how the bundle is validated.
type Mode string

const (
	// Production validates the production bundle and records the verdict in
	// the needs-build file.
	Production Mode = "production"
	// DevelopmentBundle validates the development bundle.
	DevelopmentBundle Mode = "development-bundle"
	// DevelopmentLive serves sources through a live dev server and never
	// needs a bundle.
	DevelopmentLive Mode = "development-live"
)

// ParseMode returns the Mode named s.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Production, DevelopmentBundle, DevelopmentLive:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// IsProduction reports whether m is Production.
func (m Mode) IsProduction() bool { return m == Production }

// ErrUnknownMode is returned for a mode other than the three known ones.
var ErrUnknownMode = errors.New("unknown bundle mode")

// Bundle locations.
const (
	// DevBundleArchive is the committed, compressed development bundle,
	// relative to the project directory.
	DevBundleArchive = "src/main/bundles/dev.bundle"
	// ProdBundleArchive is the compressed production bundle, relative to
	// the project directory.
	ProdBundleArchive = "src/main/bundles/prod.bundle"
	// DevBundleName is the dev bundle folder in the build directory, and
	// the fallback theme key in its stats.
	DevBundleName = "dev-bundle"
	// ProdBundleName is the production counterpart of DevBundleName.
	ProdBundleName = "prod-bundle"
	// NeedsBuildFile records a production verdict for the packaging step.
	NeedsBuildFile = "needs-build"
)

// Options configures a Validator.
type Options struct {
	ProjectDir   string
	FrontendDir  string
	GeneratedDir string
	// BuildDir holds the unpacked bundles. Defaults to ProjectDir/target.
	BuildDir string
	// JarResourcesDir defaults to GeneratedDir/jar-resources.
	JarResourcesDir string
	// ResourceOutputDir receives the needs-build file. Defaults to BuildDir.
	ResourceOutputDir string
	// JarFiles are dependency archives searched for packaged themes.
	JarFiles []string

	Mode Mode
	// SkipDevBundle trusts any existing development bundle.
	SkipDevBundle bool
	// ForceProductionBuild always requests a production build.
	ForceProductionBuild bool

	Logger zerolog.Logger
}

// Validator evaluates whether a bundle rebuild is needed.
type Validator struct {
	fs        ffs.FileSystem
	opts      Options
	scanner   scanner.Scanner
	updater   *packagejson.Updater
	generator *imports.Generator
	reason    *Reason
}

// New returns a Validator. The updater computes the expected package.json
// and the generator regenerates the import lines, both without writing.
func New(fsys ffs.FileSystem, sc scanner.Scanner, updater *packagejson.Updater, gen *imports.Generator, opts Options) *Validator {
	if opts.BuildDir == "" {
		opts.BuildDir = filepath.Join(opts.ProjectDir, "target")
	}
	if opts.JarResourcesDir == "" {
		opts.JarResourcesDir = filepath.Join(opts.GeneratedDir, imports.JarResourcesDir)
	}
	if opts.ResourceOutputDir == "" {
		opts.ResourceOutputDir = opts.BuildDir
	}
	return &Validator{fs: fsys, opts: opts, scanner: sc, updater: updater, generator: gen}
}

// DevBundleDir is where the development bundle lives when unpacked.
func (v *Validator) DevBundleDir() string {
	return filepath.Join(v.opts.BuildDir, DevBundleName)
}

// ProdBundleDir is where an unpacked production bundle is looked up when
// no compressed one exists.
func (v *Validator) ProdBundleDir() string {
	return filepath.Join(v.opts.BuildDir, ProdBundleName)
}

// Reason returns why the last NeedsBuild call asked for a rebuild, or nil.
func (v *Validator) Reason() *Reason {
	return v.reason
}

// NeedsBuild reports whether a new bundle must be built. It never fails:
// any error during evaluation means a rebuild.
func (v *Validator) NeedsBuild(ctx context.Context) bool {
	log := v.opts.Logger.With().Str("mode", string(v.opts.Mode)).Logger()
	log.Info().Msg("Checking if a bundle build is needed")

	if v.opts.Mode == DevelopmentLive {
		v.reason = nil
		return false
	}

	reason, err := v.safeEvaluate(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error when checking if a bundle build is needed")
		reason = &Reason{Check: CheckError, Message: err.Error()}
	}
	v.reason = reason
	needed := reason != nil

	if v.opts.Mode.IsProduction() {
		if err := v.saveResult(needed); err != nil {
			log.Warn().Err(err).Msg("Could not record the bundle verdict")
		}
	}

	if needed {
		log.Info().Stringer("check", reason.Check).Strs("files", reason.Files).Msg(reason.Message)
		log.Info().Msg("A bundle build is needed")
	} else {
		log.Info().Msg("A bundle build is not needed")
	}
	return needed
}

// ErrValidationPanic wraps a panic raised while evaluating the checks.
var ErrValidationPanic = errors.New("bundle validation panicked")

func (v *Validator) safeEvaluate(ctx context.Context) (r *Reason, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("%w: %v", ErrValidationPanic, p)
		}
	}()
	return v.evaluate(ctx)
}

func (v *Validator) evaluate(ctx context.Context) (*Reason, error) {
	switch v.opts.Mode {
	case Production:
		return v.production(ctx)
	case DevelopmentBundle:
		return v.development(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, v.opts.Mode)
	}
}

func (v *Validator) development(ctx context.Context) (*Reason, error) {
	dir := v.DevBundleDir()
	archive := filepath.Join(v.opts.ProjectDir, DevBundleArchive)
	hasDir := v.fs.Exists(dir)
	hasArchive := ffs.IsFile(v.fs, archive)

	if !hasDir && !hasArchive {
		return &Reason{Check: CheckPresence, Message: "no dev-bundle found"}, nil
	}
	if !hasDir {
		v.opts.Logger.Debug().Str("archive", archive).Str("dir", dir).Msg("Unpacking compressed dev-bundle")
		if err := Unpack(v.fs, archive, dir); err != nil {
			return nil, err
		}
	}
	if v.opts.SkipDevBundle {
		v.opts.Logger.Info().Msg("Skip dev bundle requested, using existing bundle")
		return nil, nil
	}

	st, _, err := stats.Find(v.fs, dir)
	if errors.Is(err, stats.ErrNotFound) {
		return &Reason{Check: CheckPresence, Message: "no stats.json found for dev-bundle validation"}, nil
	}
	if err != nil {
		return nil, err
	}
	res, err := v.scan(ctx)
	if err != nil {
		return nil, err
	}
	return v.validate(ctx, res, st)
}

func (v *Validator) production(ctx context.Context) (*Reason, error) {
	if v.opts.ForceProductionBuild {
		return &Reason{Check: CheckForced, Message: "frontend build requested"}, nil
	}
	st, err := v.prodStats()
	missing := errors.Is(err, stats.ErrNotFound)
	if err != nil && !missing {
		return nil, err
	}
	eager, err := v.eagerRoutes(ctx)
	if err != nil {
		return nil, err
	}
	if len(eager) > 0 {
		return &Reason{
			Check:   CheckEagerRoutes,
			Message: "custom eager routes defined",
			Files:   eager,
		}, nil
	}
	if missing {
		return &Reason{Check: CheckPresence, Message: "no stats.json found for production bundle validation"}, nil
	}
	res, err := v.scan(ctx)
	if err != nil {
		return nil, err
	}
	return v.validate(ctx, res, st)
}

// eagerRoutes asks the scanner for eager routes alone when it supports
// that, and falls back to a full scan otherwise.
func (v *Validator) eagerRoutes(ctx context.Context) ([]string, error) {
	if l, ok := v.scanner.(scanner.EagerRouteLister); ok {
		routes, err := l.EagerRoutes(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing eager routes: %w", err)
		}
		return routes, nil
	}
	res, err := v.scan(ctx)
	if err != nil {
		return nil, err
	}
	return res.EagerRoutes, nil
}

func (v *Validator) prodStats() (*stats.Stats, error) {
	archive := filepath.Join(v.opts.ProjectDir, ProdBundleArchive)
	if ffs.IsFile(v.fs, archive) {
		data, err := ReadArchiveFile(v.fs, archive, "config/"+stats.FileName)
		if err != nil {
			if errors.Is(err, ErrNotInArchive) {
				return nil, stats.ErrNotFound
			}
			return nil, err
		}
		return stats.Parse(data)
	}
	st, _, err := stats.Find(v.fs, v.ProdBundleDir())
	return st, err
}

func (v *Validator) scan(ctx context.Context) (*scanner.Result, error) {
	res, err := v.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning frontend dependencies: %w", err)
	}
	if res == nil {
		res = &scanner.Result{}
	}
	return res, nil
}

// validate runs the content checks, cheapest first, against a private copy
// of the stats.
func (v *Validator) validate(ctx context.Context, res *scanner.Result, recorded *stats.Stats) (*Reason, error) {
	st := recorded.Clone()

	expected, err := v.updater.Expected(res)
	if err != nil {
		return nil, fmt.Errorf("computing package.json: %w", err)
	}
	if r := checkPackages(expected, res, st); r != nil {
		return r, nil
	}

	if v.opts.Mode.IsProduction() {
		r, err := v.checkIndexHTML(st)
		if r != nil || err != nil {
			return r, err
		}
	}
	// index.html is either checked above or served from the frontend
	// folder; later checks must not see it.
	delete(st.FrontendHashes, IndexHTML)

	checks := []func() (*Reason, error){
		func() (*Reason, error) { return v.checkImports(ctx, res, st) },
		func() (*Reason, error) { return v.checkThemeConfig(res, st) },
		func() (*Reason, error) { return v.checkThemeComponents(res, st) },
		func() (*Reason, error) { return checkWebComponents(res, st), nil },
	}
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := check()
		if r != nil || err != nil {
			return r, err
		}
	}
	return nil, nil
}

func (v *Validator) saveResult(needed bool) error {
	if err := v.fs.MkdirAll(v.opts.ResourceOutputDir, 0o755); err != nil {
		return err
	}
	return v.fs.WriteFile(filepath.Join(v.opts.ResourceOutputDir, NeedsBuildFile), []byte(strconv.FormatBool(needed)), 0o644)
}

// ConsumeResult reads and deletes the needs-build file in dir. A missing or
// unreadable file means a build is needed.
func ConsumeResult(fsys ffs.FileSystem, dir string, logger zerolog.Logger) bool {
	p := filepath.Join(dir, NeedsBuildFile)
	data, err := fsys.ReadFile(p)
	if err != nil {
		logger.Error().Err(err).Str("file", p).Msg("Require bundle build due to missing verdict file")
		return true
	}
	if err := fsys.Remove(p); err != nil {
		logger.Debug().Err(err).Str("file", p).Msg("Could not delete verdict file")
	}
	return strings.EqualFold(strings.TrimSpace(string(data)), "true")
}
