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

// Package output renders command results for the frontier CLI.
package output

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/viper"

	"bennypowers.dev/frontier/fs"
)

// Formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// CheckFormat rejects unknown formats.
func CheckFormat(format string) error {
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", format)
	}
	return nil
}

// Result prints text, or data as indented JSON, to w. When viper's "output"
// setting names a file the result goes there instead.
func Result(fsys fs.FileSystem, w io.Writer, format, text string, data any) error {
	out := text
	if format == FormatJSON {
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		out = string(b)
	}

	if outputPath := viper.GetString("output"); outputPath != "" {
		return fsys.WriteFile(outputPath, []byte(out+"\n"), 0644)
	}
	_, err := fmt.Fprintln(w, out)
	return err
}
