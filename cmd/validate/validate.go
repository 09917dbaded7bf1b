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

// Package validate provides the validate command for frontier.
package validate

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/frontier/internal/output"
	"bennypowers.dev/frontier/internal/project"
)

// ErrRebuildNeeded is returned with --exit-code when the bundle is stale.
var ErrRebuildNeeded = errors.New("frontend bundle must be rebuilt")

// Cmd is the validate command.
var Cmd = &cobra.Command{
	Use:   "validate",
	Short: "Check whether the existing frontend bundle can be reused",
	Long: `Validate compares the current project against the stats.json of the
development or production bundle and reports the first difference that
requires a rebuild. Validation never fails: problems while checking count as
"rebuild needed".`,
	Example: `  frontier validate
  frontier validate --production --exit-code
  frontier validate --format json`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", output.FormatText, "Output format (text, json)")
	Cmd.Flags().Bool("exit-code", false, "Exit with status 1 when a rebuild is needed")
	Cmd.Flags().Bool("skip-dev-bundle", false, "Trust an existing development bundle")
	Cmd.Flags().Bool("force-production-build", false, "Always require a production build")
	_ = viper.BindPFlag(project.KeySkipDevBundle, Cmd.Flags().Lookup("skip-dev-bundle"))
	_ = viper.BindPFlag(project.KeyForceProductionBuild, Cmd.Flags().Lookup("force-production-build"))
}

type result struct {
	NeedsBuild bool     `json:"needsBuild"`
	Mode       string   `json:"mode"`
	Check      string   `json:"check,omitempty"`
	Message    string   `json:"message,omitempty"`
	Files      []string `json:"files,omitempty"`
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

	v := p.Validator()
	res := result{NeedsBuild: v.NeedsBuild(cmd.Context()), Mode: string(p.Mode)}
	reason := v.Reason()
	if reason != nil {
		res.Check = reason.Check.String()
		res.Message = reason.Message
		res.Files = reason.Files
	}
	text := reason.String()
	if res.NeedsBuild && reason == nil {
		text = "rebuild needed"
	}
	if err := output.Result(p.FS, cmd.OutOrStdout(), format, text, res); err != nil {
		return err
	}

	if exit, _ := cmd.Flags().GetBool("exit-code"); exit && res.NeedsBuild {
		cmd.SilenceUsage = true
		return ErrRebuildNeeded
	}
	return nil
}
