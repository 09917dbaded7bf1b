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

package toolchain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/adrg/xdg"
	"github.com/rs/zerolog"

	ffs "bennypowers.dev/frontier/fs"
)

// Package managers InstallCommand can drive.
const (
	PackageManagerNpm  = "npm"
	PackageManagerPnpm = "pnpm"
	PackageManagerBun  = "bun"
)

// Options configures a Resolver.
type Options struct {
	// AlternativeDir holds privately installed node versions. Empty
	// disables installation.
	AlternativeDir string
	// ForceAlternative skips the global node.
	ForceAlternative bool
	// IgnoreVersionChecks accepts any node, npm, pnpm or bun version.
	IgnoreVersionChecks bool
	// DownloadRoot defaults to DefaultDownloadRoot.
	DownloadRoot string
	// NodeVersion is installed when no compatible version exists. Defaults
	// to DefaultNodeVersion.
	NodeVersion string
	// PackageManager selects the install tool, npm by default.
	PackageManager string
	Logger         zerolog.Logger
}

// DefaultAlternativeDir is the per-user directory for installed node
// versions.
func DefaultAlternativeDir() string {
	return filepath.Join(xdg.DataHome, "frontier")
}

// Resolver finds or installs the node runtime.
type Resolver struct {
	fs        ffs.FileSystem
	runner    Runner
	installer *Installer
	cache     *Cache
	opts      Options
}

// NewResolver creates a resolver. A nil cache gets a private one.
func NewResolver(fsys ffs.FileSystem, runner Runner, installer *Installer, cache *Cache, opts Options) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	if opts.NodeVersion == "" {
		opts.NodeVersion = DefaultNodeVersion
	}
	if opts.PackageManager == "" {
		opts.PackageManager = PackageManagerNpm
	}
	if installer == nil && opts.AlternativeDir != "" {
		installer = NewInstaller(fsys, NewHTTPFetcher(), opts.DownloadRoot, opts.AlternativeDir, opts.Logger)
	}
	return &Resolver{fs: fsys, runner: runner, installer: installer, cache: cache, opts: opts}
}

// Resolve returns the node installation to use, resolving it on first call.
func (r *Resolver) Resolve(ctx context.Context) (*Installation, error) {
	return r.cache.Resolve(func() (*Installation, error) {
		return r.resolve(ctx)
	})
}

func (r *Resolver) resolve(ctx context.Context) (*Installation, error) {
	var globalErr error
	if !r.opts.ForceAlternative {
		inst, err := r.globalNode(ctx)
		if err == nil {
			r.opts.Logger.Debug().Str("node", inst.NodeExecutable).Str("version", inst.NodeVersion).Msg("Using global node")
			return inst, nil
		}
		var faulty *FaultyVersionError
		if errors.As(err, &faulty) {
			return nil, err
		}
		globalErr = err
		r.opts.Logger.Debug().Err(err).Msg("Global node is not usable")
	}

	if r.opts.AlternativeDir == "" {
		if globalErr != nil {
			return nil, fmt.Errorf("%w (%v)", ErrToolchainUnavailable, globalErr)
		}
		return nil, ErrToolchainUnavailable
	}
	return r.alternativeNode(ctx)
}

func (r *Resolver) globalNode(ctx context.Context) (*Installation, error) {
	node, err := Locate(ctx, r.runner, "node")
	if err != nil {
		return nil, err
	}
	raw, err := ToolVersion(ctx, r.runner, node)
	if err != nil {
		return nil, err
	}
	if !r.opts.IgnoreVersionChecks {
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", raw, err)
		}
		if !nodeSupported(v) {
			return nil, fmt.Errorf("node %s is outside the supported range %s", raw, NodeRange)
		}
	}

	script := r.findNpmScript(node)
	if script == "" {
		return nil, fmt.Errorf("%w: npm-cli.js next to %s", ErrToolNotFound, node)
	}
	inst := &Installation{
		NodeExecutable: node,
		NodeVersion:    raw,
		NpmCLIScript:   script,
		NpmVersion:     r.npmVersion(ctx, node, script),
	}
	if !r.opts.IgnoreVersionChecks {
		if err := CheckNpmVersion(inst.NpmVersion); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// findNpmScript looks for npm-cli.js relative to the node binary, following
// a symlinked binary to its real location.
func (r *Resolver) findNpmScript(node string) string {
	bins := []string{node}
	if real, err := filepath.EvalSymlinks(node); err == nil && real != node {
		bins = append(bins, real)
	}
	for _, bin := range bins {
		dir := filepath.Dir(bin)
		candidates := []string{
			filepath.Join(dir, "..", "lib", "node_modules", "npm", "bin", "npm-cli.js"),
			filepath.Join(dir, "node_modules", "npm", "bin", "npm-cli.js"),
		}
		for _, c := range candidates {
			if ffs.IsFile(r.fs, c) {
				return filepath.Clean(c)
			}
		}
	}
	return ""
}

func (r *Resolver) npmVersion(ctx context.Context, node, script string) string {
	v, err := ToolVersion(ctx, r.runner, node, script)
	if err != nil {
		r.opts.Logger.Debug().Err(err).Msg("Could not determine npm version")
		return UnknownVersion
	}
	return v
}

type installedNode struct {
	dir     string
	version *semver.Version
}

// InstalledVersions lists compatible node versions in the alternative
// directory, newest first.
func (r *Resolver) InstalledVersions() []string {
	var out []string
	for _, n := range r.installed() {
		out = append(out, "v"+n.version.String())
	}
	return out
}

func (r *Resolver) installed() []installedNode {
	entries, err := r.fs.ReadDir(r.opts.AlternativeDir)
	if err != nil {
		return nil
	}
	var nodes []installedNode
	for _, e := range entries {
		name, ok := strings.CutPrefix(e.Name(), "node-")
		if !e.IsDir() || !ok {
			continue
		}
		v, err := semver.NewVersion(name)
		if err != nil || !nodeSupported(v) {
			continue
		}
		dir := filepath.Join(r.opts.AlternativeDir, e.Name())
		if !ffs.IsFile(r.fs, NodeBinary(dir)) || !ffs.IsFile(r.fs, NpmCLI(dir)) {
			continue
		}
		nodes = append(nodes, installedNode{dir: dir, version: v})
	}
	slices.SortFunc(nodes, func(a, b installedNode) int {
		return cmp.Compare(0, a.version.Compare(b.version))
	})
	return nodes
}

func (r *Resolver) alternativeNode(ctx context.Context) (*Installation, error) {
	var dir, version string
	if nodes := r.installed(); len(nodes) > 0 {
		dir, version = nodes[0].dir, nodes[0].version.String()
		r.opts.Logger.Debug().Str("dir", dir).Msg("Reusing installed node")
	} else {
		if r.installer == nil {
			return nil, ErrToolchainUnavailable
		}
		var err error
		dir, err = r.installer.Install(ctx, r.opts.NodeVersion)
		if err != nil {
			return nil, fmt.Errorf("install node %s: %w", r.opts.NodeVersion, err)
		}
		version = strings.TrimPrefix(r.opts.NodeVersion, "v")
	}

	node, script := NodeBinary(dir), NpmCLI(dir)
	if !ffs.IsFile(r.fs, script) {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, script)
	}
	return &Installation{
		NodeExecutable: node,
		NodeVersion:    version,
		NpmCLIScript:   script,
		NpmVersion:     r.npmVersion(ctx, node, script),
		Alternative:    true,
	}, nil
}
