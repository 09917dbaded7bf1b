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

// Package watch provides the watch command for frontier.
package watch

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/frontier/internal/project"
)

// Cmd is the watch command.
var Cmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate entry points whenever frontend sources change",
	Long: `Watch generates once, then watches the frontend directory and the
requirements file and regenerates after each burst of changes. Generated
output and node_modules are ignored.`,
	Example: `  frontier watch
  frontier watch --delay 1s`,
	RunE: run,
}

func init() {
	Cmd.Flags().Duration("delay", project.DefaultWatchDelay, "Quiet period before regenerating")
}

func run(cmd *cobra.Command, args []string) error {
	p, err := project.Load(viper.GetViper(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	delay, _ := cmd.Flags().GetDuration("delay")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report := func(r *project.GenerateReport, err error) {
		if err != nil {
			p.Logger.Error().Err(err).Msg("Generation failed")
			return
		}
		if len(r.Files.Written) > 0 || len(r.Files.Removed) > 0 {
			p.Logger.Info().Strs("written", r.Files.Written).Strs("removed", r.Files.Removed).Msg("Regenerated")
		}
	}
	report(p.Generate(ctx))
	return p.Watch(ctx, delay, report)
}
