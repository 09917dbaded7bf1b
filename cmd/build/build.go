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

// Package build provides the build command for frontier.
package build

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/frontier/internal/output"
	"bennypowers.dev/frontier/internal/project"
	"bennypowers.dev/frontier/lock"
)

// Cmd is the build command.
var Cmd = &cobra.Command{
	Use:   "build",
	Short: "Generate, validate and rebuild the frontend bundle when needed",
	Long: `Build runs the whole pipeline while holding the project build lock:
generate the entry points, validate the existing bundle and, when it cannot
be reused, install dependencies and run vite.

Concurrent builds of the same project wait for each other. A lock left by a
process that is gone is taken over.`,
	Example: `  frontier build
  frontier build --production --ci`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", output.FormatText, "Output format (text, json)")
	Cmd.Flags().Bool("ci", false, "Install strictly from the lock file")
	Cmd.Flags().Duration("lock-poll", lock.DefaultPollInterval, "How often to recheck a held build lock")
}

type result struct {
	NeedsBuild bool   `json:"needsBuild"`
	Reason     string `json:"reason,omitempty"`
	Installed  bool   `json:"installed"`
	Built      bool   `json:"built"`
	Written    int    `json:"filesWritten"`
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
	if cmd.Flags().Changed("ci") {
		p.CI, _ = cmd.Flags().GetBool("ci")
	}
	poll, _ := cmd.Flags().GetDuration("lock-poll")

	start := time.Now()
	report, err := p.Build(cmd.Context(), p.Lock(lock.Options{PollInterval: poll}))
	if err != nil {
		return err
	}
	p.Logger.Info().Dur("took", time.Since(start)).Msg("Build finished")

	res := result{
		NeedsBuild: report.Reason != nil,
		Installed:  report.Installed,
		Built:      report.Built,
		Written:    len(report.Files.Written),
	}
	text := "bundle is up to date"
	if report.Reason != nil {
		res.Reason = report.Reason.String()
		text = "rebuilt: " + res.Reason
	}
	return output.Result(p.FS, cmd.OutOrStdout(), format, text, res)
}
