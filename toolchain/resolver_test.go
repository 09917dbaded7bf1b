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
package toolchain_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/frontier/internal/mapfs"
	"bennypowers.dev/frontier/toolchain"
)

type response struct {
	stdout, stderr string
	err            error
}

type fakeRunner struct {
	mu        sync.Mutex
	responses map[string]response
	calls     []string
}

func newRunner(responses map[string]response) *fakeRunner {
	return &fakeRunner{responses: responses}
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ []string, name string, args ...string) ([]byte, []byte, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	f.mu.Lock()
	f.calls = append(f.calls, key)
	r, ok := f.responses[key]
	f.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("exec: %q not found", name)
	}
	return []byte(r.stdout), []byte(r.stderr), r.err
}

func (f *fakeRunner) called(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == key {
			return true
		}
	}
	return false
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeFetcher struct {
	mu    sync.Mutex
	urls  []string
	fails []error
	body  []byte
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if len(f.fails) > 0 {
		err := f.fails[0]
		f.fails = f.fails[1:]
		return nil, err
	}
	return f.body, nil
}

const (
	globalNode = "/opt/node/bin/node"
	globalNpm  = "/opt/node/lib/node_modules/npm/bin/npm-cli.js"
	altDir     = "/data/frontier"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fixtures use unix node layout")
	}
}

func globalFixture(nodeVersion, npmVersion string) (*mapfs.MapFileSystem, *fakeRunner) {
	mfs := mapfs.New()
	mfs.AddFiles(map[string]string{
		globalNode: "",
		globalNpm:  "",
	})
	runner := newRunner(map[string]response{
		"which node":                         {stdout: globalNode + "\n"},
		globalNode + " -v":                   {stdout: nodeVersion + "\n"},
		globalNode + " " + globalNpm + " -v": {stdout: npmVersion + "\n"},
	})
	return mfs, runner
}

func TestResolveGlobalNode(t *testing.T) {
	skipOnWindows(t)
	mfs, runner := globalFixture("v20.11.0", "10.2.4")
	r := toolchain.NewResolver(mfs, runner, nil, nil, toolchain.Options{Logger: zerolog.Nop()})

	inst, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &toolchain.Installation{
		NodeExecutable: globalNode,
		NodeVersion:    "20.11.0",
		NpmCLIScript:   globalNpm,
		NpmVersion:     "10.2.4",
	}, inst)

	calls := runner.count()
	again, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Same(t, inst, again)
	assert.Equal(t, calls, runner.count(), "cached resolution must not run tools again")
}

func TestResolveGlobalNodeRejected(t *testing.T) {
	skipOnWindows(t)
	tests := []struct {
		name   string
		node   string
		npm    string
		ignore bool
		check  func(t *testing.T, inst *toolchain.Installation, err error)
	}{
		{"too old", "v16.20.0", "8.19.4", false, func(t *testing.T, _ *toolchain.Installation, err error) {
			assert.ErrorIs(t, err, toolchain.ErrToolchainUnavailable)
		}},
		{"too new", "v24.0.0", "10.9.0", false, func(t *testing.T, _ *toolchain.Installation, err error) {
			assert.ErrorIs(t, err, toolchain.ErrToolchainUnavailable)
		}},
		{"ignored checks", "v16.20.0", "8.19.4", true, func(t *testing.T, inst *toolchain.Installation, err error) {
			require.NoError(t, err)
			assert.Equal(t, "16.20.0", inst.NodeVersion)
		}},
		{"faulty npm", "v18.19.0", "6.11.1", false, func(t *testing.T, _ *toolchain.Installation, err error) {
			var faulty *toolchain.FaultyVersionError
			require.ErrorAs(t, err, &faulty)
			assert.Equal(t, "6.11.1", faulty.Version)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfs, runner := globalFixture(tt.node, tt.npm)
			r := toolchain.NewResolver(mfs, runner, nil, nil, toolchain.Options{IgnoreVersionChecks: tt.ignore})
			inst, err := r.Resolve(context.Background())
			tt.check(t, inst, err)
		})
	}
}

func TestResolveUnknownNpmVersion(t *testing.T) {
	skipOnWindows(t)
	mfs, runner := globalFixture("v20.11.0", "")
	r := toolchain.NewResolver(mfs, runner, nil, nil, toolchain.Options{})

	inst, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, toolchain.UnknownVersion, inst.NpmVersion)
}

func TestResolveWithoutNode(t *testing.T) {
	r := toolchain.NewResolver(mapfs.New(), newRunner(nil), nil, nil, toolchain.Options{})
	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, toolchain.ErrToolchainUnavailable)
}

func addInstalled(mfs *mapfs.MapFileSystem, version string, withNpm bool) {
	dir := altDir + "/node-" + version
	mfs.AddFile(dir+"/bin/node", "", 0755)
	if withNpm {
		mfs.AddFile(dir+"/lib/node_modules/npm/bin/npm-cli.js", "", 0644)
	}
}

func TestResolveReusesNewestInstalled(t *testing.T) {
	skipOnWindows(t)
	mfs := mapfs.New()
	addInstalled(mfs, "v18.20.0", true)
	addInstalled(mfs, "v20.15.0", true)
	addInstalled(mfs, "v16.0.0", true)
	addInstalled(mfs, "v22.1.0", false)
	mfs.AddFile(altDir+"/node-garbage/bin/node", "", 0755)

	dir := altDir + "/node-v20.15.0"
	runner := newRunner(map[string]response{
		dir + "/bin/node " + dir + "/lib/node_modules/npm/bin/npm-cli.js -v": {stdout: "10.7.0"},
	})
	fetcher := &fakeFetcher{}
	installer := toolchain.NewInstaller(mfs, fetcher, "", altDir, zerolog.Nop())
	r := toolchain.NewResolver(mfs, runner, installer, nil, toolchain.Options{
		AlternativeDir:   altDir,
		ForceAlternative: true,
	})

	assert.Equal(t, []string{"v20.15.0", "v18.20.0"}, r.InstalledVersions())

	inst, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dir+"/bin/node", inst.NodeExecutable)
	assert.Equal(t, "20.15.0", inst.NodeVersion)
	assert.Equal(t, "10.7.0", inst.NpmVersion)
	assert.True(t, inst.Alternative)
	assert.False(t, runner.called("which node"), "forced alternative must not look for a global node")
	assert.Empty(t, fetcher.urls)
}

func nodeArchive(t *testing.T, version string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	top := "node-" + version + "-linux-x64/"
	entries := []struct {
		name string
		mode int64
		body string
	}{
		{top + "bin/node", 0755, "ELF"},
		{top + "lib/node_modules/npm/bin/npm-cli.js", 0644, "// npm"},
		{top + "lib/node_modules/npm/bin/npx-cli.js", 0644, "// npx"},
	}
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: top, Typeflag: tar.TypeDir, Mode: 0755}))
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Typeflag: tar.TypeReg,
			Mode:     e.mode,
			Size:     int64(len(e.body)),
		}))
		_, err := tw.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: top + "bin/npm", Typeflag: tar.TypeSymlink, Linkname: "../lib/node_modules/npm/bin/npm-cli.js"}))
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestResolveInstallsNode(t *testing.T) {
	skipOnWindows(t)
	mfs := mapfs.New()
	fetcher := &fakeFetcher{
		body:  nodeArchive(t, "v20.15.0"),
		fails: []error{&toolchain.FetchError{URL: "x", StatusCode: 503, Message: "unavailable"}},
	}
	installer := toolchain.NewInstaller(mfs, fetcher, "https://mirror.example/node", altDir, zerolog.Nop()).
		WithRetry(2, time.Millisecond)
	r := toolchain.NewResolver(mfs, newRunner(map[string]response{
		"which node": {err: errors.New("exit status 1")},
	}), installer, nil, toolchain.Options{AlternativeDir: altDir})

	inst, err := r.Resolve(context.Background())
	require.NoError(t, err)

	dir := altDir + "/node-v20.15.0"
	assert.Equal(t, dir+"/bin/node", inst.NodeExecutable)
	assert.Equal(t, toolchain.UnknownVersion, inst.NpmVersion)
	require.Len(t, fetcher.urls, 2, "a failed download is retried")
	assert.Equal(t, installer.ArchiveURL("20.15.0"), fetcher.urls[0])
	assert.True(t, strings.HasPrefix(fetcher.urls[0], "https://mirror.example/node/v20.15.0/node-v20.15.0-"))

	info, err := mfs.Stat(dir + "/bin/node")
	require.NoError(t, err)
	assert.Equal(t, "-rwxr-xr-x", info.Mode().Perm().String())
	assert.False(t, mfs.Exists(dir+"/bin/npm"), "symlinks are not extracted")

	npx, err := r.NpxScript(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dir+"/lib/node_modules/npm/bin/npx-cli.js", npx)
}

func TestInstallNotFoundIsNotRetried(t *testing.T) {
	mfs := mapfs.New()
	fetcher := &fakeFetcher{fails: []error{
		&toolchain.FetchError{URL: "x", StatusCode: 404, Message: "HTTP 404"},
		&toolchain.FetchError{URL: "x", StatusCode: 404, Message: "HTTP 404"},
	}}
	installer := toolchain.NewInstaller(mfs, fetcher, "", altDir, zerolog.Nop()).WithRetry(3, time.Millisecond)

	_, err := installer.Install(context.Background(), "v99.0.0")
	var fe *toolchain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.IsNotFound())
	assert.Len(t, fetcher.urls, 1)
	assert.False(t, mfs.Exists(altDir+"/node-v99.0.0"))
}

func TestFetchError(t *testing.T) {
	missing := &toolchain.FetchError{URL: "https://nodejs.org/dist/v99.0.0/x.tar.gz", StatusCode: 404, Message: "Not Found"}
	assert.True(t, missing.IsNotFound())
	assert.Equal(t, "download https://nodejs.org/dist/v99.0.0/x.tar.gz: HTTP 404: Not Found", missing.Error())

	refused := &toolchain.FetchError{URL: "https://nodejs.org/dist", Message: "connection refused"}
	assert.False(t, refused.IsNotFound())
	assert.Equal(t, "download https://nodejs.org/dist: connection refused", refused.Error())
}

func TestInstallCorruptArchive(t *testing.T) {
	skipOnWindows(t)
	mfs := mapfs.New()
	fetcher := &fakeFetcher{body: []byte("not a tarball")}
	installer := toolchain.NewInstaller(mfs, fetcher, "", altDir, zerolog.Nop())

	_, err := installer.Install(context.Background(), "20.15.0")
	require.Error(t, err)
	assert.False(t, mfs.Exists(altDir+"/node-v20.15.0"), "partial installation must be removed")
}

func TestNpxScriptMissing(t *testing.T) {
	skipOnWindows(t)
	mfs, runner := globalFixture("v20.11.0", "10.2.4")
	r := toolchain.NewResolver(mfs, runner, nil, nil, toolchain.Options{})
	_, err := r.NpxScript(context.Background())
	assert.ErrorIs(t, err, toolchain.ErrToolNotFound)
}
