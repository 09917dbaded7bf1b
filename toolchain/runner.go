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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Runner runs external programs and captures their output.
type Runner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// Run implements Runner. A non-zero exit is reported as *ProcessError.
func (ExecRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		perr := &ProcessError{
			Command:  append([]string{name}, args...),
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			perr.ExitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), stderr.Bytes(), perr
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// Tool describes an auxiliary tool and the oldest release that works.
type Tool struct {
	Name    string
	Minimum string
	Upgrade string
}

// Auxiliary tools.
var (
	Npm  = Tool{Name: "npm", Minimum: "9.0.0", Upgrade: "npm install -g npm@latest"}
	Pnpm = Tool{Name: "pnpm", Minimum: "8.0.0", Upgrade: "npm install -g pnpm@latest"}
	Bun  = Tool{Name: "bun", Minimum: "1.0.0", Upgrade: "bun upgrade"}
)

// Locate finds name on the PATH with `which`, or `where` on Windows, and
// returns the first match.
func Locate(ctx context.Context, r Runner, name string) (string, error) {
	finder := "which"
	if isWindows() {
		finder = "where"
	}
	stdout, _, err := r.Run(ctx, "", nil, finder, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	for line := range strings.Lines(string(stdout)) {
		if p := strings.TrimSpace(line); p != "" {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
}

// ToolVersion asks a tool for its version, trying `-v` then `--version`. An
// answer only counts when the tool exits cleanly, prints something and writes
// nothing to stderr.
func ToolVersion(ctx context.Context, r Runner, command ...string) (string, error) {
	for _, flag := range []string{"-v", "--version"} {
		args := append(append([]string{}, command[1:]...), flag)
		stdout, stderr, err := r.Run(ctx, "", nil, command[0], args...)
		if err != nil || len(bytes.TrimSpace(stderr)) > 0 {
			continue
		}
		if v := strings.TrimSpace(string(stdout)); v != "" {
			return strings.TrimPrefix(v, "v"), nil
		}
	}
	return "", fmt.Errorf("%w: %s did not report a version", ErrToolNotFound, strings.Join(command, " "))
}

// CheckVersion rejects versions older than the tool's minimum. Unparsable
// versions pass.
func CheckVersion(t Tool, v string) error {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return nil
	}
	if t.Name == Npm.Name {
		if err := CheckNpmVersion(v); err != nil {
			return err
		}
	}
	if sv.LessThan(semver.MustParse(t.Minimum)) {
		return &VersionTooOldError{Tool: t.Name, Version: v, Minimum: t.Minimum, Upgrade: t.Upgrade}
	}
	return nil
}

// FindTool locates a globally installed auxiliary tool and reads its
// version. Version checks are skipped when ignoreVersions is set.
func FindTool(ctx context.Context, r Runner, t Tool, ignoreVersions bool) (path, version string, err error) {
	path, err = Locate(ctx, r, t.Name)
	if err != nil {
		return "", "", err
	}
	version, err = ToolVersion(ctx, r, path)
	if err != nil {
		return "", "", err
	}
	if !ignoreVersions {
		if err := CheckVersion(t, version); err != nil {
			return "", "", err
		}
	}
	return path, version, nil
}
