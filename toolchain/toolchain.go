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

// Package toolchain resolves the node runtime and npm script used to
// install frontend dependencies and run the bundler, installing a private
// copy when no suitable global one exists.
package toolchain

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version policy.
const (
	// DefaultNodeVersion is installed when nothing suitable is found.
	DefaultNodeVersion = "v20.15.0"
	// DefaultDownloadRoot hosts the official node archives.
	DefaultDownloadRoot = "https://nodejs.org/dist/"
	// UnknownVersion stands in for a version that could not be determined.
	UnknownVersion = "unknown"

	// NodeRange is the node versions accepted from a global install.
	NodeRange = ">= 18.0.0, < 24.0.0"
)

var (
	nodeConstraint = mustConstraint(NodeRange)

	// faultyNpm are npm releases known to corrupt installs.
	faultyNpm = []string{"6.11.0", "6.11.1", "6.11.2"}
)

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

// Installation is a resolved node runtime with its npm script.
type Installation struct {
	NodeExecutable string
	NodeVersion    string
	// NpmCLIScript is npm-cli.js, run through NodeExecutable.
	NpmCLIScript string
	NpmVersion   string
	// Alternative is set for a copy under the alternative directory.
	Alternative bool
}

var (
	// ErrToolchainUnavailable is returned when no suitable global node
	// exists and no alternative directory is configured.
	ErrToolchainUnavailable = errors.New("node.js is not available: install a supported version globally or configure an alternative directory")
	// ErrToolNotFound is returned when a tool or companion script is
	// missing.
	ErrToolNotFound = errors.New("tool not found")
)

// VersionTooOldError reports a located tool below its supported minimum.
type VersionTooOldError struct {
	Tool    string
	Version string
	Minimum string
	// Upgrade is the command that fixes it.
	Upgrade string
}

func (e *VersionTooOldError) Error() string {
	return fmt.Sprintf("%s %s is too old, %s or newer is required; upgrade with `%s` or set FRONTIER_IGNORE_VERSION_CHECKS=true",
		e.Tool, e.Version, e.Minimum, e.Upgrade)
}

// FaultyVersionError reports a tool release known to be broken.
type FaultyVersionError struct {
	Tool    string
	Version string
	Upgrade string
}

func (e *FaultyVersionError) Error() string {
	return fmt.Sprintf("%s %s is known to have problems; upgrade with `%s`", e.Tool, e.Version, e.Upgrade)
}

// ProcessError is a tool run that exited unsuccessfully.
type ProcessError struct {
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit code %d", strings.Join(e.Command, " "), e.ExitCode)
	out := strings.TrimSpace(e.Stderr)
	if out == "" {
		out = strings.TrimSpace(e.Stdout)
	}
	if out != "" {
		msg += ":\n" + out
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// CheckNpmVersion rejects npm releases known to be faulty.
func CheckNpmVersion(v string) error {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return nil
	}
	for _, bad := range faultyNpm {
		if sv.Equal(semver.MustParse(bad)) {
			return &FaultyVersionError{Tool: "npm", Version: v, Upgrade: "npm install -g npm@latest"}
		}
	}
	return nil
}

// nodeSupported reports whether v satisfies the supported node range.
func nodeSupported(v *semver.Version) bool {
	return nodeConstraint.Check(v)
}

func isWindows() bool {
	return runtime.GOOS == "windows"
}

func executable(name string) string {
	if isWindows() {
		return name + ".exe"
	}
	return name
}
