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

package packagejson

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	ffs "bennypowers.dev/frontier/fs"
	"bennypowers.dev/frontier/generated"
	"bennypowers.dev/frontier/scanner"
	"bennypowers.dev/frontier/version"
)

const (
	// FileName is the project manifest name.
	FileName = "package.json"
	// VersionsFileName is the version-lock file written to the generated dir.
	VersionsFileName = "versions.json"
	// VaadinJSONPath is the install-state file relative to node_modules.
	VaadinJSONPath = ".vaadin/vaadin.json"

	platformVersionKey = "platformVersion"
)

// lockFiles are removed together with node_modules on a platform major
// upgrade.
var lockFiles = []string{"package-lock.json", "pnpm-lock.yaml", "bun.lockb"}

// Options configures an Updater.
type Options struct {
	// ProjectDir holds package.json.
	ProjectDir string
	// NodeModulesDir defaults to ProjectDir/node_modules.
	NodeModulesDir string
	// GeneratedDir receives versions.json. Empty disables the file.
	GeneratedDir string
	// Catalog defaults to DefaultCatalog.
	Catalog *Catalog
	// AllowCleanup permits deleting node_modules and lock files when the
	// platform major version changes.
	AllowCleanup bool
	Logger       zerolog.Logger
}

// Updater reconciles the project package.json with scanned requirements.
type Updater struct {
	fs     ffs.FileSystem
	opts   Options
	writer *generated.Writer
}

// NewUpdater returns an Updater.
func NewUpdater(fsys ffs.FileSystem, opts Options) *Updater {
	if opts.NodeModulesDir == "" {
		opts.NodeModulesDir = filepath.Join(opts.ProjectDir, "node_modules")
	}
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	return &Updater{fs: fsys, opts: opts, writer: generated.NewWriter(fsys, opts.Logger)}
}

// Path returns the package.json path.
func (u *Updater) Path() string {
	return filepath.Join(u.opts.ProjectDir, FileName)
}

// Catalog returns the version catalog in use.
func (u *Updater) Catalog() *Catalog {
	return u.opts.Catalog
}

// Load reads package.json (or a default one) and seeds the managed section
// with the framework defaults when it has none.
func (u *Updater) Load() (*Manifest, error) {
	m, err := LoadManifest(u.fs, u.Path())
	if err != nil {
		return nil, err
	}
	if len(m.Vaadin.Dependencies) == 0 {
		maps.Copy(m.Vaadin.Dependencies, u.opts.Catalog.Dependencies)
	}
	if len(m.Vaadin.DevDependencies) == 0 {
		maps.Copy(m.Vaadin.DevDependencies, u.opts.Catalog.DevDependencies)
	}
	return m, nil
}

// Changes summarizes what Apply did to a manifest.
type Changes struct {
	Added            []string
	Removed          []string
	OverridesChanged bool
	Hash             string
}

// Apply brings m in line with the catalog defaults, the scanned packages
// and the platform pins, then stores the new hash. It does not touch disk.
func (u *Updater) Apply(m *Manifest, res *scanner.Result) Changes {
	var ch Changes
	cat := u.opts.Catalog

	wantDeps := maps.Clone(cat.Dependencies)
	wantDev := maps.Clone(cat.DevDependencies)
	if res != nil {
		maps.Copy(wantDeps, res.Packages)
		maps.Copy(wantDev, res.DevPackages)
	}

	ch.Removed = append(ch.Removed, u.removeStale(m, Dependencies, wantDeps)...)
	ch.Removed = append(ch.Removed, u.removeStale(m, DevDependencies, wantDev)...)

	for _, pkg := range SortedKeys(wantDeps) {
		if u.AddDependency(m, Dependencies, pkg, wantDeps[pkg]) {
			ch.Added = append(ch.Added, pkg)
		}
	}
	for _, pkg := range SortedKeys(wantDev) {
		if u.AddDependency(m, DevDependencies, pkg, wantDev[pkg]) {
			ch.Added = append(ch.Added, pkg)
		}
	}

	var scanned map[string]string
	if res != nil {
		scanned = res.Packages
	}
	ch.OverridesChanged = u.pinPlatform(m, scanned)

	m.Vaadin.Hash = Hash(m)
	ch.Hash = m.Vaadin.Hash
	return ch
}

// AddDependency adds or updates pkg in section s. A version the user set
// is only replaced by a newer one; entries the framework wrote earlier
// follow the framework. It reports whether the manifest changed.
func (u *Updater) AddDependency(m *Manifest, s Section, pkg, ver string) bool {
	deps, managed := m.Section(s)

	if old, ok := managed[pkg]; ok {
		if ver == "" {
			ver = old
		}
		return u.updateManaged(deps, managed, pkg, ver)
	}

	managed[pkg] = ver
	current, exists := deps[pkg]
	if !exists || u.isNewer(pkg, ver, current) {
		deps[pkg] = ver
		u.opts.Logger.Debug().Str("package", pkg).Str("version", ver).Msg("added dependency")
		return true
	}
	return false
}

func (u *Updater) updateManaged(deps, managed map[string]string, pkg, ver string) bool {
	added := false
	if managedVersion, err := version.Parse(managed[pkg]); err == nil {
		if current, ok := deps[pkg]; ok {
			pv, perr := version.Parse(current)
			nv, nerr := version.Parse(ver)
			if perr == nil && nerr == nil {
				switch {
				// Untouched by the user: follow the framework up or down.
				case managedVersion.IsEqualTo(pv) && !managedVersion.IsEqualTo(nv):
					deps[pkg] = ver
					added = true
				case nv.IsNewerThan(pv):
					deps[pkg] = ver
					added = true
				}
			}
		} else {
			deps[pkg] = ver
			added = true
		}
	}
	// Unparseable versions usually point at files or git; leave them be.

	updated := false
	if managed[pkg] != ver {
		managed[pkg] = ver
		updated = true
	}
	if added {
		u.opts.Logger.Debug().Str("package", pkg).Str("version", ver).Msg("updated dependency")
	}
	return added || updated
}

func (u *Updater) isNewer(pkg, candidate, current string) bool {
	nv, err := version.Parse(candidate)
	if err != nil {
		return false
	}
	cv, err := version.Parse(current)
	if err != nil {
		u.opts.Logger.Warn().Str("package", pkg).Str("version", current).Msg("package has unparseable version")
		return false
	}
	return nv.IsNewerThan(cv)
}

// removeStale drops framework-managed entries that are no longer wanted.
// A user edit (different version) keeps the dependency but forgets that
// the framework managed it.
func (u *Updater) removeStale(m *Manifest, s Section, want map[string]string) []string {
	deps, managed := m.Section(s)
	var removed []string
	for _, pkg := range SortedKeys(managed) {
		if _, ok := want[pkg]; ok {
			continue
		}
		if deps[pkg] == managed[pkg] {
			delete(deps, pkg)
			removed = append(removed, pkg)
		}
		delete(managed, pkg)
	}
	return removed
}

// pinPlatform writes overrides so transitive copies of platform packages
// resolve to the pinned version. Direct dependencies are referenced as
// "$pkg", others get the pinned version. Pins the framework wrote earlier
// that no longer apply are dropped.
func (u *Updater) pinPlatform(m *Manifest, scanned map[string]string) bool {
	before := maps.Clone(m.Overrides)
	pinned := u.opts.Catalog.PinnedFor(m)

	if m.Overrides == nil {
		m.Overrides = map[string]any{}
	}
	for pkg, v := range pinned {
		if _, ok := scanned[pkg]; ok {
			// Add-ons may downgrade through their own declaration.
			continue
		}
		if _, direct := m.Dependencies[pkg]; direct {
			m.Overrides[pkg] = "$" + pkg
		} else {
			m.Overrides[pkg] = v
		}
	}

	for pkg, value := range m.Overrides {
		s, ok := value.(string)
		if !ok {
			continue
		}
		_, direct := m.Dependencies[pkg]
		_, isPinned := pinned[pkg]
		if s == "$"+pkg && !direct {
			delete(m.Overrides, pkg)
			continue
		}
		if !direct && !isPinned && strings.HasPrefix(s, "$") {
			delete(m.Overrides, pkg)
		}
	}
	if len(m.Overrides) == 0 {
		m.Overrides = nil
	}
	return !maps.EqualFunc(before, m.Overrides, func(a, b any) bool { return fmt.Sprint(a) == fmt.Sprint(b) })
}

// CleanManagedDependencies removes from dependencies every entry whose
// version equals the one the framework recorded for it, so packages that
// left the platform are not mistaken for user additions.
func CleanManagedDependencies(m *Manifest) {
	for pkg, managedVersion := range m.Vaadin.Dependencies {
		if v, ok := m.Dependencies[pkg]; ok && v == managedVersion {
			delete(m.Dependencies, pkg)
		}
	}
}

// Expected computes, without writing anything, the package.json the next
// update would produce. Bundle validation hashes it.
func (u *Updater) Expected(res *scanner.Result) (*Manifest, error) {
	m, err := u.Load()
	if err != nil {
		return nil, err
	}
	CleanManagedDependencies(m)
	u.Apply(m, res)
	return m, nil
}

// Report describes an Update run.
type Report struct {
	Changes
	Written      bool
	MajorUpgrade bool
	CleanedUp    bool
	VersionsFile string
}

// Update reconciles package.json on disk with res and writes it when it
// changed, along with versions.json and the install-state file.
func (u *Updater) Update(res *scanner.Result) (*Report, error) {
	m, err := u.Load()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	report.MajorUpgrade = u.majorUpgrade()
	if report.MajorUpgrade {
		if u.opts.AllowCleanup {
			if err := u.cleanupForUpgrade(m); err != nil {
				return nil, err
			}
			report.CleanedUp = true
		} else {
			u.opts.Logger.Warn().Msg("platform major version changed; remove node_modules and lock files if the install misbehaves")
		}
	}

	report.Changes = u.Apply(m, res)

	data, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	report.Written, err = u.writer.WriteIfChanged(u.Path(), data)
	if err != nil {
		return nil, err
	}

	if u.opts.GeneratedDir != "" {
		report.VersionsFile, err = u.WriteVersionsJSON(m)
		if err != nil {
			return nil, err
		}
	}
	if u.opts.Catalog.Platform != "" {
		if err := UpdateVaadinJSON(u.fs, u.opts.NodeModulesDir, map[string]string{
			platformVersionKey: u.opts.Catalog.Platform,
		}); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// WriteVersionsJSON writes the version-lock file: the platform pins, or
// the manifest's own versions when there are none, topped up with every
// manifest entry the pins do not cover.
func (u *Updater) WriteVersionsJSON(m *Manifest) (string, error) {
	versions := u.opts.Catalog.PinnedFor(m)
	fromManifest := map[string]string{}
	maps.Copy(fromManifest, m.Dependencies)
	maps.Copy(fromManifest, m.DevDependencies)
	for pkg, v := range fromManifest {
		if _, ok := versions[pkg]; !ok {
			versions[pkg] = v
		}
	}
	data, err := json.MarshalIndent(versions, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(u.opts.GeneratedDir, VersionsFileName)
	if _, err := u.writer.WriteIfChanged(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

func (u *Updater) majorUpgrade() bool {
	state, err := ReadVaadinJSON(u.fs, u.opts.NodeModulesDir)
	if err != nil {
		return false
	}
	prev, err1 := version.Parse(state[platformVersionKey])
	next, err2 := version.Parse(u.opts.Catalog.Platform)
	return err1 == nil && err2 == nil && prev.Major != next.Major
}

func (u *Updater) cleanupForUpgrade(m *Manifest) error {
	u.opts.Logger.Info().Msg("platform major version changed, removing node_modules and lock files")
	if err := u.fs.RemoveAll(u.opts.NodeModulesDir); err != nil {
		return fmt.Errorf("removing %s: %w", u.opts.NodeModulesDir, err)
	}
	for _, name := range lockFiles {
		p := filepath.Join(u.opts.ProjectDir, name)
		if err := u.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	for _, s := range []Section{Dependencies, DevDependencies} {
		deps, managed := m.Section(s)
		for pkg, v := range managed {
			if deps[pkg] == v {
				delete(deps, pkg)
			}
			delete(managed, pkg)
		}
	}
	m.Overrides = nil
	return nil
}

// ReadVaadinJSON reads the install-state file under nodeModulesDir.
func ReadVaadinJSON(fsys ffs.FileSystem, nodeModulesDir string) (map[string]string, error) {
	data, err := fsys.ReadFile(filepath.Join(nodeModulesDir, VaadinJSONPath))
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}

// UpdateVaadinJSON merges values into the install-state file.
func UpdateVaadinJSON(fsys ffs.FileSystem, nodeModulesDir string, values map[string]string) error {
	path := filepath.Join(nodeModulesDir, VaadinJSONPath)
	current, err := ReadVaadinJSON(fsys, nodeModulesDir)
	if err != nil {
		current = map[string]string{}
	}
	maps.Copy(current, values)
	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return fsys.WriteFile(path, append(data, '\n'), 0644)
}

// Names returns the sorted package names of a change list, for logging.
func (c Changes) Names() []string {
	out := slices.Concat(c.Added, c.Removed)
	slices.Sort(out)
	return slices.Compact(out)
}
