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
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Command is a prepared tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string

	runner Runner
}

func (c *Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Run executes the command and returns its standard output. A failed run is
// a *ProcessError carrying the captured output.
func (c *Command) Run(ctx context.Context) (string, error) {
	stdout, stderr, err := c.runner.Run(ctx, c.Dir, c.Env, c.Name, c.Args...)
	if err != nil {
		var perr *ProcessError
		if errors.As(err, &perr) {
			return string(stdout), perr
		}
		return string(stdout), &ProcessError{
			Command:  append([]string{c.Name}, c.Args...),
			ExitCode: -1,
			Stdout:   string(stdout),
			Stderr:   string(stderr),
			Err:      err,
		}
	}
	return string(stdout), nil
}

// NpxScript locates npx-cli.js next to the resolved npm-cli.js.
func (r *Resolver) NpxScript(ctx context.Context) (string, error) {
	inst, err := r.Resolve(ctx)
	if err != nil {
		return "", err
	}
	p := filepath.Join(filepath.Dir(inst.NpmCLIScript), "npx-cli.js")
	if !r.fs.Exists(p) {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, p)
	}
	return p, nil
}

var npmInstallFlags = []string{"--no-update-notifier", "--no-audit", "--scripts-prepend-node-path=true"}

// InstallCommand prepares the dependency install in dir. With ci set the
// lock file is honored strictly.
func (r *Resolver) InstallCommand(ctx context.Context, dir string, ci bool) (*Command, error) {
	switch r.opts.PackageManager {
	case PackageManagerPnpm, PackageManagerBun:
		return r.auxInstallCommand(ctx, dir, ci)
	case PackageManagerNpm:
	default:
		return nil, fmt.Errorf("unknown package manager %q", r.opts.PackageManager)
	}

	inst, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	verb := "install"
	if ci {
		verb = "ci"
	}
	args := append([]string{inst.NpmCLIScript, verb}, npmInstallFlags...)
	return &Command{Name: inst.NodeExecutable, Args: args, Dir: dir, runner: r.runner}, nil
}

func (r *Resolver) auxInstallCommand(ctx context.Context, dir string, ci bool) (*Command, error) {
	tool := Pnpm
	args := []string{"install", "--shamefully-hoist=true"}
	if r.opts.PackageManager == PackageManagerBun {
		tool = Bun
		args = []string{"install"}
	}
	if ci {
		args = append(args, "--frozen-lockfile")
	}
	path, version, err := FindTool(ctx, r.runner, tool, r.opts.IgnoreVersionChecks)
	if err != nil {
		return nil, err
	}
	r.opts.Logger.Debug().Str("tool", tool.Name).Str("version", version).Msg("Using package manager")
	return &Command{Name: path, Args: args, Dir: dir, runner: r.runner}, nil
}

// ViteBuildCommand prepares the bundler build in dir. A dev bundle build
// sets devBundle=true in the environment.
func (r *Resolver) ViteBuildCommand(ctx context.Context, dir string, devBundle bool) (*Command, error) {
	inst, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	cmd := &Command{
		Name:   inst.NodeExecutable,
		Args:   []string{filepath.Join("node_modules", "vite", "bin", "vite.js"), "build"},
		Dir:    dir,
		runner: r.runner,
	}
	if devBundle {
		cmd.Env = []string{"devBundle=true"}
	}
	return cmd, nil
}
