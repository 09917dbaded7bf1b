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

package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"bennypowers.dev/frontier/bundle"
	"bennypowers.dev/frontier/generated"
	"bennypowers.dev/frontier/imports"
	"bennypowers.dev/frontier/lock"
	"bennypowers.dev/frontier/packagejson"
	"bennypowers.dev/frontier/scanner"
)

// GenerateReport describes a generation pass.
type GenerateReport struct {
	Scan     *scanner.Result
	Packages *packagejson.Report
	Imports  *imports.Result
	Files    *generated.Result
}

// Generate scans, reconciles package.json and writes the entry points.
func (p *Project) Generate(ctx context.Context) (*GenerateReport, error) {
	res, err := p.Scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	pkgs, err := p.Updater.Update(res)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", p.Updater.Path(), err)
	}
	out, files, err := p.Generator.Write(ctx, res, p.Writer)
	if err != nil {
		return nil, err
	}
	p.Logger.Info().
		Int("written", len(files.Written)).
		Int("unchanged", len(files.Unchanged)).
		Int("removed", len(files.Removed)).
		Msg("Generated entry points")
	return &GenerateReport{Scan: res, Packages: pkgs, Imports: out, Files: files}, nil
}

// BuildReport describes a build run.
type BuildReport struct {
	*GenerateReport
	// Reason is nil when the existing bundle was reused.
	Reason    *bundle.Reason
	Installed bool
	Built     bool
}

// Build holds the project lock while it generates, validates the existing
// bundle and, when needed, installs dependencies and runs the bundler.
func (p *Project) Build(ctx context.Context, l *lock.FileLock) (report *BuildReport, err error) {
	if err := l.Acquire(ctx); err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, l.Release())
	}()

	gen, err := p.Generate(ctx)
	if err != nil {
		return nil, err
	}
	report = &BuildReport{GenerateReport: gen}

	v := p.Validator()
	if !v.NeedsBuild(ctx) {
		p.Logger.Info().Msg("Bundle is up to date")
		return report, nil
	}
	report.Reason = v.Reason()

	if gen.Packages.Written || !p.FS.Exists(filepath.Join(p.ProjectDir, "node_modules")) {
		install, err := p.Resolver.InstallCommand(ctx, p.ProjectDir, p.CI)
		if err != nil {
			return report, err
		}
		p.Logger.Info().Str("command", install.String()).Msg("Installing frontend dependencies")
		if _, err := install.Run(ctx); err != nil {
			return report, err
		}
		report.Installed = true
	}

	build, err := p.Resolver.ViteBuildCommand(ctx, p.ProjectDir, p.Mode == bundle.DevelopmentBundle)
	if err != nil {
		return report, err
	}
	p.Logger.Info().Str("command", build.String()).Msg("Building frontend bundle")
	if _, err := build.Run(ctx); err != nil {
		return report, err
	}
	report.Built = true
	return report, nil
}
