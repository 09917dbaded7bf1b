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

// Package packages provides the packages command for frontier.
package packages

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/frontier/internal/output"
	"bennypowers.dev/frontier/internal/project"
)

// Cmd is the packages command.
var Cmd = &cobra.Command{
	Use:   "packages",
	Short: "Reconcile package.json with the frontend requirements",
	Long: `Packages adds the npm packages the application needs to package.json,
removes framework-managed entries that are no longer needed, pins platform
versions through overrides and records the dependency hash.

With --install the package manager runs afterwards when package.json changed
or node_modules is missing.`,
	Example: `  frontier packages
  frontier packages --install
  frontier packages --install --ci --package-manager pnpm`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", output.FormatText, "Output format (text, json)")
	Cmd.Flags().Bool("install", false, "Run the package manager after updating")
	Cmd.Flags().Bool("allow-cleanup", false, "Remove node_modules and lock files on a platform major upgrade")
	Cmd.Flags().Bool("ci", false, "Install strictly from the lock file")
	_ = viper.BindPFlag(project.KeyAllowCleanup, Cmd.Flags().Lookup("allow-cleanup"))
	_ = viper.BindPFlag(project.KeyCI, Cmd.Flags().Lookup("ci"))
}

type result struct {
	Added        []string `json:"added,omitempty"`
	Removed      []string `json:"removed,omitempty"`
	Overrides    bool     `json:"overridesChanged,omitempty"`
	Hash         string   `json:"hash"`
	Written      bool     `json:"written"`
	MajorUpgrade bool     `json:"majorUpgrade,omitempty"`
	CleanedUp    bool     `json:"cleanedUp,omitempty"`
	Installed    bool     `json:"installed,omitempty"`
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

	scan, err := p.Scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	report, err := p.Updater.Update(scan)
	if err != nil {
		return err
	}
	res := result{
		Added:        report.Added,
		Removed:      report.Removed,
		Overrides:    report.OverridesChanged,
		Hash:         report.Hash,
		Written:      report.Written,
		MajorUpgrade: report.MajorUpgrade,
		CleanedUp:    report.CleanedUp,
	}

	if install, _ := cmd.Flags().GetBool("install"); install && (report.Written || !p.FS.Exists(filepath.Join(p.ProjectDir, "node_modules"))) {
		c, err := p.Resolver.InstallCommand(ctx, p.ProjectDir, p.CI)
		if err != nil {
			return err
		}
		p.Logger.Info().Str("command", c.String()).Msg("Installing frontend dependencies")
		if _, err := c.Run(ctx); err != nil {
			return err
		}
		res.Installed = true
	}

	var b strings.Builder
	for _, n := range res.Added {
		fmt.Fprintf(&b, "+ %s\n", n)
	}
	for _, n := range res.Removed {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	if res.Written {
		b.WriteString("package.json updated")
	} else {
		b.WriteString("package.json is up to date")
	}
	return output.Result(p.FS, cmd.OutOrStdout(), format, b.String(), res)
}
