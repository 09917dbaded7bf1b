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
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/frontier/toolchain"
)

func TestInstallCommand(t *testing.T) {
	skipOnWindows(t)
	for _, ci := range []bool{false, true} {
		mfs, runner := globalFixture("v20.11.0", "10.2.4")
		r := toolchain.NewResolver(mfs, runner, nil, nil, toolchain.Options{})
		cmd, err := r.InstallCommand(context.Background(), "/app", ci)
		require.NoError(t, err)

		verb := "install"
		if ci {
			verb = "ci"
		}
		assert.Equal(t, globalNode, cmd.Name)
		assert.Equal(t, []string{globalNpm, verb, "--no-update-notifier", "--no-audit", "--scripts-prepend-node-path=true"}, cmd.Args)
		assert.Equal(t, "/app", cmd.Dir)
	}
}

func TestInstallCommandPnpm(t *testing.T) {
	responses := func(version string) map[string]response {
		return map[string]response{
			"which pnpm":             {stdout: "/usr/local/bin/pnpm\n"},
			"/usr/local/bin/pnpm -v": {stdout: version},
		}
	}

	t.Run("supported", func(t *testing.T) {
		r := toolchain.NewResolver(nil, newRunner(responses("9.4.0")), nil, nil, toolchain.Options{PackageManager: toolchain.PackageManagerPnpm})
		cmd, err := r.InstallCommand(context.Background(), "/app", true)
		require.NoError(t, err)
		assert.Equal(t, "/usr/local/bin/pnpm install --shamefully-hoist=true --frozen-lockfile", cmd.String())
	})

	t.Run("too old", func(t *testing.T) {
		r := toolchain.NewResolver(nil, newRunner(responses("7.33.0")), nil, nil, toolchain.Options{PackageManager: toolchain.PackageManagerPnpm})
		_, err := r.InstallCommand(context.Background(), "/app", false)
		var old *toolchain.VersionTooOldError
		require.ErrorAs(t, err, &old)
		assert.Equal(t, "8.0.0", old.Minimum)
		assert.Contains(t, err.Error(), "npm install -g pnpm@latest")
	})

	t.Run("too old but ignored", func(t *testing.T) {
		r := toolchain.NewResolver(nil, newRunner(responses("7.33.0")), nil, nil, toolchain.Options{
			PackageManager:      toolchain.PackageManagerPnpm,
			IgnoreVersionChecks: true,
		})
		_, err := r.InstallCommand(context.Background(), "/app", false)
		assert.NoError(t, err)
	})
}

func TestInstallCommandUnknownManager(t *testing.T) {
	r := toolchain.NewResolver(nil, newRunner(nil), nil, nil, toolchain.Options{PackageManager: "yarn"})
	_, err := r.InstallCommand(context.Background(), "/app", false)
	assert.Error(t, err)
}

func TestViteBuildCommand(t *testing.T) {
	skipOnWindows(t)
	mfs, runner := globalFixture("v20.11.0", "10.2.4")
	r := toolchain.NewResolver(mfs, runner, nil, nil, toolchain.Options{})

	cmd, err := r.ViteBuildCommand(context.Background(), "/app", false)
	require.NoError(t, err)
	assert.Equal(t, globalNode+" node_modules/vite/bin/vite.js build", cmd.String())
	assert.Empty(t, cmd.Env)

	dev, err := r.ViteBuildCommand(context.Background(), "/app", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"devBundle=true"}, dev.Env)
}

func TestCommandRunFailure(t *testing.T) {
	skipOnWindows(t)
	mfs, runner := globalFixture("v20.11.0", "10.2.4")
	runner.responses[globalNode+" node_modules/vite/bin/vite.js build"] = response{
		stdout: "transforming...",
		stderr: "error during build",
		err:    errors.New("exit status 1"),
	}
	r := toolchain.NewResolver(mfs, runner, nil, nil, toolchain.Options{})
	cmd, err := r.ViteBuildCommand(context.Background(), "/app", false)
	require.NoError(t, err)

	out, err := cmd.Run(context.Background())
	assert.Equal(t, "transforming...", out)
	var perr *toolchain.ProcessError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "transforming...", perr.Stdout)
	assert.Contains(t, perr.Error(), "error during build")
}

func TestProcessErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		err    toolchain.ProcessError
		want   string
		absent string
	}{
		{
			name:   "stderr preferred",
			err:    toolchain.ProcessError{Command: []string{"npm", "install"}, ExitCode: 1, Stdout: "resolving", Stderr: "ERESOLVE"},
			want:   "command \"npm install\" failed with exit code 1:\nERESOLVE",
			absent: "resolving",
		},
		{
			name: "stdout when stderr is empty",
			err:  toolchain.ProcessError{Command: []string{"vite", "build"}, ExitCode: 2, Stdout: "  Could not resolve ./app.js\n", Stderr: " \n"},
			want: "command \"vite build\" failed with exit code 2:\nCould not resolve ./app.js",
		},
		{
			name: "no output",
			err:  toolchain.ProcessError{Command: []string{"pnpm", "i"}, ExitCode: 1},
			want: "command \"pnpm i\" failed with exit code 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			if tt.absent != "" {
				assert.NotContains(t, tt.err.Error(), tt.absent)
			}
		})
	}
}

func TestToolVersion(t *testing.T) {
	tests := []struct {
		name      string
		responses map[string]response
		want      string
		wantErr   bool
	}{
		{"short flag", map[string]response{"bun -v": {stdout: "1.1.8\n"}}, "1.1.8", false},
		{"long flag", map[string]response{"bun --version": {stdout: "v1.1.8"}}, "1.1.8", false},
		{"stderr output", map[string]response{"bun -v": {stdout: "1.1.8", stderr: "warning"}}, "", true},
		{"empty output", map[string]response{"bun -v": {}}, "", true},
		{"failing", map[string]response{"bun -v": {stdout: "1.1.8", err: errors.New("exit status 2")}}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toolchain.ToolVersion(context.Background(), newRunner(tt.responses), "bun")
			if tt.wantErr {
				assert.ErrorIs(t, err, toolchain.ErrToolNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocate(t *testing.T) {
	skipOnWindows(t)
	r := newRunner(map[string]response{"which bun": {stdout: "\n/home/u/.bun/bin/bun\n/usr/bin/bun\n"}})
	p, err := toolchain.Locate(context.Background(), r, "bun")
	require.NoError(t, err)
	assert.Equal(t, "/home/u/.bun/bin/bun", p)

	_, err = toolchain.Locate(context.Background(), r, "pnpm")
	assert.ErrorIs(t, err, toolchain.ErrToolNotFound)
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		tool    toolchain.Tool
		version string
		err     any
	}{
		{toolchain.Npm, "10.2.4", nil},
		{toolchain.Npm, "8.19.4", &toolchain.VersionTooOldError{}},
		{toolchain.Npm, "6.11.0", &toolchain.FaultyVersionError{}},
		{toolchain.Npm, "6.11.2", &toolchain.FaultyVersionError{}},
		{toolchain.Pnpm, "8.0.0", nil},
		{toolchain.Bun, "0.8.1", &toolchain.VersionTooOldError{}},
		{toolchain.Bun, "canary", nil},
	}
	for _, tt := range tests {
		err := toolchain.CheckVersion(tt.tool, tt.version)
		switch tt.err.(type) {
		case nil:
			assert.NoError(t, err, "%s %s", tt.tool.Name, tt.version)
		case *toolchain.VersionTooOldError:
			var target *toolchain.VersionTooOldError
			assert.ErrorAs(t, err, &target, "%s %s", tt.tool.Name, tt.version)
		case *toolchain.FaultyVersionError:
			var target *toolchain.FaultyVersionError
			assert.ErrorAs(t, err, &target, "%s %s", tt.tool.Name, tt.version)
		}
	}
}

func TestCacheResolvesOnce(t *testing.T) {
	c := toolchain.NewCache()
	var calls atomic.Int32
	boom := errors.New("boom")

	_, err := c.Resolve(func() (*toolchain.Installation, error) {
		calls.Add(1)
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, c.Get(), "failures are not cached")

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			inst, err := c.Resolve(func() (*toolchain.Installation, error) {
				calls.Add(1)
				return &toolchain.Installation{NodeExecutable: "node"}, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "node", inst.NodeExecutable)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(2), calls.Load())

	c.Reset()
	assert.Nil(t, c.Get())
}
