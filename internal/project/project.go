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

// Package project wires configuration into the frontier pipeline: it reads
// settings from viper and builds the scanner, package.json updater, entry
// point generator, bundle validator, toolchain resolver and build lock for
// one project directory.
package project

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"bennypowers.dev/frontier/bundle"
	ffs "bennypowers.dev/frontier/fs"
	"bennypowers.dev/frontier/generated"
	"bennypowers.dev/frontier/imports"
	"bennypowers.dev/frontier/internal/logging"
	"bennypowers.dev/frontier/lock"
	"bennypowers.dev/frontier/packagejson"
	"bennypowers.dev/frontier/scanner"
	"bennypowers.dev/frontier/toolchain"
)

// Configuration keys. Each is also read from FRONTIER_<KEY> with dashes
// replaced by underscores.
const (
	KeyProject              = "project"
	KeyFrontend             = "frontend"
	KeyGenerated            = "generated"
	KeyBuildDir             = "build-dir"
	KeyDepsFile             = "deps-file"
	KeyCatalog              = "catalog"
	KeyProduction           = "production"
	KeyMode                 = "mode"
	KeyLenient              = "lenient"
	KeyAllowCleanup         = "allow-cleanup"
	KeySkipDevBundle        = "skip-dev-bundle"
	KeyForceProductionBuild = "force-production-build"
	KeyJarFiles             = "jar-files"
	KeyAlternativeDir       = "alternative-dir"
	KeyRequireHomeNode      = "require-home-node"
	KeyIgnoreVersionChecks  = "ignore-version-checks"
	KeyNodeDownloadRoot     = "node-download-root"
	KeyNodeVersion          = "node-version"
	KeyPackageManager       = "package-manager"
	KeyCI                   = "ci"
	KeyLogLevel             = "log-level"
	KeyOutput               = "output"
)

// EnvPrefix prefixes every environment variable frontier reads.
const EnvPrefix = "FRONTIER"

// ConfigName is the base name of the optional project config file,
// .frontier.yaml.
const ConfigName = ".frontier"

// BindEnv makes v read FRONTIER_* environment variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// ReadConfigFile merges <dir>/.frontier.yaml into v when it exists.
func ReadConfigFile(v *viper.Viper, dir string) error {
	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading %s.yaml: %w", filepath.Join(dir, ConfigName), err)
	}
	return nil
}

// Config is the resolved project configuration.
type Config struct {
	ProjectDir   string
	FrontendDir  string
	GeneratedDir string
	BuildDir     string
	DepsFile     string
	CatalogFile  string

	Mode                 bundle.Mode
	Lenient              bool
	AllowCleanup         bool
	SkipDevBundle        bool
	ForceProductionBuild bool
	JarFiles             []string
	CI                   bool

	Toolchain toolchain.Options
}

// ConfigFromViper reads a Config. Relative directories are resolved against
// the project directory.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	projectDir := v.GetString(KeyProject)
	if projectDir == "" {
		projectDir = "."
	}
	projectDir, err := filepath.Abs(projectDir)
	if err != nil {
		return Config{}, fmt.Errorf("invalid project directory: %w", err)
	}
	abs := func(key, def string) string {
		p := v.GetString(key)
		if p == "" {
			return def
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(projectDir, p)
	}

	cfg := Config{ProjectDir: projectDir}
	cfg.FrontendDir = abs(KeyFrontend, filepath.Join(projectDir, "src", "main", "frontend"))
	cfg.GeneratedDir = abs(KeyGenerated, filepath.Join(cfg.FrontendDir, "generated"))
	cfg.BuildDir = abs(KeyBuildDir, filepath.Join(projectDir, "target"))
	cfg.DepsFile = abs(KeyDepsFile, filepath.Join(projectDir, scanner.DefaultFile))
	cfg.CatalogFile = abs(KeyCatalog, "")

	cfg.Mode = bundle.DevelopmentBundle
	if m := v.GetString(KeyMode); m != "" {
		if cfg.Mode, err = bundle.ParseMode(m); err != nil {
			return Config{}, err
		}
	}
	if v.GetBool(KeyProduction) {
		cfg.Mode = bundle.Production
	}

	cfg.Lenient = v.GetBool(KeyLenient)
	cfg.AllowCleanup = v.GetBool(KeyAllowCleanup)
	cfg.SkipDevBundle = v.GetBool(KeySkipDevBundle)
	cfg.ForceProductionBuild = v.GetBool(KeyForceProductionBuild)
	cfg.CI = v.GetBool(KeyCI)
	for _, jar := range v.GetStringSlice(KeyJarFiles) {
		if !filepath.IsAbs(jar) {
			jar = filepath.Join(projectDir, jar)
		}
		cfg.JarFiles = append(cfg.JarFiles, jar)
	}

	altDir := v.GetString(KeyAlternativeDir)
	if altDir == "" {
		altDir = toolchain.DefaultAlternativeDir()
	}
	cfg.Toolchain = toolchain.Options{
		AlternativeDir:      altDir,
		ForceAlternative:    v.GetBool(KeyRequireHomeNode),
		IgnoreVersionChecks: v.GetBool(KeyIgnoreVersionChecks),
		DownloadRoot:        v.GetString(KeyNodeDownloadRoot),
		NodeVersion:         v.GetString(KeyNodeVersion),
		PackageManager:      v.GetString(KeyPackageManager),
	}
	return cfg, nil
}

// Project holds the wired components for one project directory.
type Project struct {
	Config
	FS     ffs.FileSystem
	Logger zerolog.Logger

	Scanner   scanner.Scanner
	Updater   *packagejson.Updater
	Generator *imports.Generator
	Writer    *generated.Writer
	Resolver  *toolchain.Resolver
}

// Deps overrides collaborators, mostly for tests. Nil fields get defaults.
type Deps struct {
	Scanner   scanner.Scanner
	Runner    toolchain.Runner
	Installer *toolchain.Installer
	Cache     *toolchain.Cache
}

// New wires a Project.
func New(fsys ffs.FileSystem, cfg Config, logger zerolog.Logger, deps Deps) (*Project, error) {
	catalog, err := packagejson.LoadCatalog(fsys, cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	if deps.Scanner == nil {
		deps.Scanner = scanner.NewFileScanner(fsys, cfg.DepsFile)
	}
	if deps.Runner == nil {
		deps.Runner = toolchain.ExecRunner{}
	}
	cfg.Toolchain.Logger = logger

	return &Project{
		Config:  cfg,
		FS:      fsys,
		Logger:  logger,
		Scanner: deps.Scanner,
		Updater: packagejson.NewUpdater(fsys, packagejson.Options{
			ProjectDir:   cfg.ProjectDir,
			GeneratedDir: cfg.GeneratedDir,
			Catalog:      catalog,
			AllowCleanup: cfg.AllowCleanup,
			Logger:       logger,
		}),
		Generator: imports.New(fsys, imports.Options{
			FrontendDir:    cfg.FrontendDir,
			GeneratedDir:   cfg.GeneratedDir,
			NodeModulesDir: filepath.Join(cfg.ProjectDir, "node_modules"),
			Production:     cfg.Mode.IsProduction(),
			Lenient:        cfg.Lenient,
			Logger:         logger,
		}),
		Writer:   generated.NewWriter(fsys, logger),
		Resolver: toolchain.NewResolver(fsys, deps.Runner, deps.Installer, deps.Cache, cfg.Toolchain),
	}, nil
}

// Load reads the configuration from v and wires a project on the OS
// filesystem, logging to stderr.
func Load(v *viper.Viper, stderr io.Writer) (*Project, error) {
	logger, err := logging.New(stderr, v.GetString(KeyLogLevel))
	if err != nil {
		return nil, err
	}
	cfg, err := ConfigFromViper(v)
	if err != nil {
		return nil, err
	}
	return New(ffs.NewOSFileSystem(), cfg, logger, Deps{})
}

// Validator returns a bundle validator for the configured mode.
func (p *Project) Validator() *bundle.Validator {
	return bundle.New(p.FS, p.Scanner, p.Updater, p.Generator, bundle.Options{
		ProjectDir:           p.ProjectDir,
		FrontendDir:          p.FrontendDir,
		GeneratedDir:         p.GeneratedDir,
		BuildDir:             p.BuildDir,
		JarFiles:             p.JarFiles,
		Mode:                 p.Mode,
		SkipDevBundle:        p.SkipDevBundle,
		ForceProductionBuild: p.ForceProductionBuild,
		Logger:               p.Logger,
	})
}

// Lock returns the build lock of the project.
func (p *Project) Lock(opts lock.Options) *lock.FileLock {
	opts.Logger = p.Logger
	return lock.New(p.FS, filepath.Join(p.BuildDir, lock.DefaultName), opts)
}
