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

// Package toolchain provides the toolchain command for frontier.
package toolchain

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/frontier/internal/output"
	"bennypowers.dev/frontier/internal/project"
	tc "bennypowers.dev/frontier/toolchain"
)

// Cmd is the toolchain command.
var Cmd = &cobra.Command{
	Use:   "toolchain",
	Short: "Resolve node and npm, installing node when needed",
	Long: `Toolchain resolves the node runtime used for installs and builds: a
supported global node when there is one, otherwise the newest compatible
version in the alternative directory, installing one there when none exists.

With --tools, globally installed pnpm and bun are located and checked too.`,
	Example: `  frontier toolchain
  FRONTIER_REQUIRE_HOME_NODE=true frontier toolchain
  frontier toolchain --tools --format json`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", output.FormatText, "Output format (text, json)")
	Cmd.Flags().Bool("tools", false, "Also check pnpm and bun")
	Cmd.Flags().Bool("require-home-node", false, "Ignore global node and use the alternative directory")
	Cmd.Flags().Bool("ignore-version-checks", false, "Accept unsupported tool versions")
	Cmd.Flags().String("alternative-dir", "", "Directory for installed node versions")
	Cmd.Flags().String("node-version", tc.DefaultNodeVersion, "Node version to install")
	Cmd.Flags().String("node-download-root", tc.DefaultDownloadRoot, "Where node releases are downloaded from")
	for _, key := range []string{
		project.KeyRequireHomeNode,
		project.KeyIgnoreVersionChecks,
		project.KeyAlternativeDir,
		project.KeyNodeVersion,
		project.KeyNodeDownloadRoot,
	} {
		_ = viper.BindPFlag(key, Cmd.Flags().Lookup(key))
	}
}

type tool struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

type result struct {
	Node        string `json:"node"`
	NodeVersion string `json:"nodeVersion"`
	NpmScript   string `json:"npmScript"`
	NpmVersion  string `json:"npmVersion"`
	Alternative bool   `json:"alternative"`
	Tools       []tool `json:"tools,omitempty"`
}

func run(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := output.CheckFormat(format); err != nil {
		return err
	}
	p, err := project.Load(viper.GetViper(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	inst, err := p.Resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	res := result{
		Node:        inst.NodeExecutable,
		NodeVersion: inst.NodeVersion,
		NpmScript:   inst.NpmCLIScript,
		NpmVersion:  inst.NpmVersion,
		Alternative: inst.Alternative,
	}
	var b strings.Builder
	fmt.Fprintf(&b, "node %s  %s\nnpm  %s  %s", inst.NodeVersion, inst.NodeExecutable, inst.NpmVersion, inst.NpmCLIScript)

	if check, _ := cmd.Flags().GetBool("tools"); check {
		for _, t := range []tc.Tool{tc.Pnpm, tc.Bun} {
			path, version, err := tc.FindTool(ctx, tc.ExecRunner{}, t, p.Toolchain.IgnoreVersionChecks)
			entry := tool{Name: t.Name, Path: path, Version: version}
			if err != nil {
				entry.Error = err.Error()
				fmt.Fprintf(&b, "\n%-4s %s", t.Name, err)
			} else {
				fmt.Fprintf(&b, "\n%-4s %s  %s", t.Name, version, path)
			}
			res.Tools = append(res.Tools, entry)
		}
	}
	return output.Result(p.FS, cmd.OutOrStdout(), format, b.String(), res)
}
