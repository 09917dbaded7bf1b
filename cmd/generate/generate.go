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

// Package generate provides the generate command for frontier.
package generate

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/frontier/internal/output"
	"bennypowers.dev/frontier/internal/project"
)

// Cmd is the generate cobra command that writes the bundler entry points.
var Cmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate bundler entry points from the frontend requirements",
	Long: `Generate reads the frontend requirements (frontend-deps.yaml by default),
reconciles package.json and writes the bootstrap import file, lazy route
chunks, the web component variant and the app shell stylesheet module.

Files whose content did not change are left untouched.`,
	Example: `  # Generate for the project in the current directory
  frontier generate

  # Another project, production mode
  frontier generate --project ../shop --production

  # Tolerate unresolved imports
  frontier generate --lenient`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", output.FormatText, "Output format (text, json)")
	Cmd.Flags().Bool("lenient", false, "Warn about unresolved imports instead of failing")
	_ = viper.BindPFlag(project.KeyLenient, Cmd.Flags().Lookup("lenient"))
}

type result struct {
	Written   []string `json:"written"`
	Unchanged []string `json:"unchanged"`
	Removed   []string `json:"removed"`
	Missing   []string `json:"missing,omitempty"`
	Packages  []string `json:"packagesChanged,omitempty"`
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
	report, err := p.Generate(cmd.Context())
	if err != nil {
		return err
	}

	res := result{
		Written:   report.Files.Written,
		Unchanged: report.Files.Unchanged,
		Removed:   report.Files.Removed,
		Missing:   report.Imports.Missing,
		Packages:  report.Packages.Names(),
	}
	var b strings.Builder
	for _, f := range res.Written {
		fmt.Fprintf(&b, "written   %s\n", f)
	}
	for _, f := range res.Removed {
		fmt.Fprintf(&b, "removed   %s\n", f)
	}
	fmt.Fprintf(&b, "%d written, %d unchanged, %d removed", len(res.Written), len(res.Unchanged), len(res.Removed))
	return output.Result(p.FS, cmd.OutOrStdout(), format, b.String(), res)
}
