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

package bundle

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	ffs "bennypowers.dev/frontier/fs"
)

// ErrNotInArchive is returned when an archive lacks the requested entry.
var ErrNotInArchive = errors.New("entry not found in archive")

// ErrUnsafePath is returned for archive entries escaping the destination.
var ErrUnsafePath = errors.New("archive entry escapes destination")

func openArchive(fsys ffs.FileSystem, archive string) (*zip.Reader, error) {
	data, err := fsys.ReadFile(archive)
	if err != nil {
		return nil, err
	}
	return zip.NewReader(bytes.NewReader(data), int64(len(data)))
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Unpack extracts a compressed bundle into dest.
func Unpack(fsys ffs.FileSystem, archive, dest string) error {
	r, err := openArchive(fsys, archive)
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, f := range r.File {
		name := path.Clean(strings.TrimPrefix(f.Name, "/"))
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return &fs.PathError{Op: "unpack", Path: f.Name, Err: ErrUnsafePath}
		}
		target := filepath.Join(dest, filepath.FromSlash(name))
		if f.FileInfo().IsDir() {
			if err := fsys.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return err
		}
		if err := fsys.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := fsys.WriteFile(target, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// ReadArchiveFile returns one entry of a compressed bundle or jar.
func ReadArchiveFile(fsys ffs.FileSystem, archive, name string) ([]byte, error) {
	r, err := openArchive(fsys, archive)
	if err != nil {
		return nil, err
	}
	for _, f := range r.File {
		if f.Name == name {
			return readEntry(f)
		}
	}
	return nil, &fs.PathError{Op: "read", Path: archive + "!" + name, Err: ErrNotInArchive}
}
