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

// Command frontier prepares the frontend of a server-rendered web
// application: it generates bundler entry points, keeps package.json in
// sync, decides whether the existing bundle can be reused and drives node,
// npm and vite when it cannot.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/frontier/cmd/build"
	"bennypowers.dev/frontier/cmd/generate"
	"bennypowers.dev/frontier/cmd/packages"
	"bennypowers.dev/frontier/cmd/toolchain"
	"bennypowers.dev/frontier/cmd/validate"
	"bennypowers.dev/frontier/cmd/version"
	"bennypowers.dev/frontier/cmd/watch"
	"bennypowers.dev/frontier/internal/project"
)

var (
	cpuprofile     string
	cpuprofileFile *os.File
	rootCmd        = &cobra.Command{
		Use:   "frontier",
		Short: "Generate, validate and build the frontend of a web application",
		Long: `frontier generates bundler entry points from the frontend requirements of
an application, reconciles package.json, validates whether the existing
bundle is reusable and runs node, npm and vite when it is not.

Settings come from flags, FRONTIER_* environment variables (a .env file is
loaded first) and .frontier.yaml in the project directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := project.ReadConfigFile(viper.GetViper(), viper.GetString(project.KeyProject)); err != nil {
				return err
			}
			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("could not create CPU profile: %w", err)
				}
				cpuprofileFile = f
				if err := pprof.StartCPUProfile(f); err != nil {
					closeErr := f.Close()
					return errors.Join(
						fmt.Errorf("could not start CPU profile: %w", err),
						closeErr,
					)
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cpuprofileFile != nil {
				pprof.StopCPUProfile()
				if err := cpuprofileFile.Close(); err != nil {
					return fmt.Errorf("closing CPU profile: %w", err)
				}
			}
			return nil
		},
	}
)

func init() {
	_ = godotenv.Load()
	project.BindEnv(viper.GetViper())

	// Root flags (persistent across all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringP(project.KeyProject, "p", ".", "Project directory")
	flags.String(project.KeyFrontend, "", "Frontend directory (default: <project>/src/main/frontend)")
	flags.String(project.KeyGenerated, "", "Generated files directory (default: <frontend>/generated)")
	flags.String(project.KeyDepsFile, "", "Frontend requirements file (default: <project>/frontend-deps.yaml)")
	flags.String(project.KeyCatalog, "", "Platform version catalog (default: built in)")
	flags.StringP(project.KeyOutput, "o", "", "Output file (default: stdout)")
	flags.String(project.KeyLogLevel, "info", "Log level (trace, debug, info, warn, error)")
	flags.Bool(project.KeyProduction, false, "Production mode")
	flags.String(project.KeyMode, "", "Bundle mode (production, development-bundle, development-live)")
	flags.String(project.KeyPackageManager, "", "Package manager (npm, pnpm, bun)")
	flags.StringVar(&cpuprofile, "cpuprofile", "", "Write CPU profile to file")

	for _, key := range []string{
		project.KeyProject,
		project.KeyFrontend,
		project.KeyGenerated,
		project.KeyDepsFile,
		project.KeyCatalog,
		project.KeyOutput,
		project.KeyLogLevel,
		project.KeyProduction,
		project.KeyMode,
		project.KeyPackageManager,
	} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}

	// Add commands
	rootCmd.AddCommand(generate.Cmd)
	rootCmd.AddCommand(validate.Cmd)
	rootCmd.AddCommand(packages.Cmd)
	rootCmd.AddCommand(toolchain.Cmd)
	rootCmd.AddCommand(build.Cmd)
	rootCmd.AddCommand(watch.Cmd)
	rootCmd.AddCommand(version.Cmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
