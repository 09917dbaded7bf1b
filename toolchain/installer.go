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

package toolchain

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"gopkg.in/cenkalti/backoff.v1"

	ffs "bennypowers.dev/frontier/fs"
)

// DefaultDownloadRetries bounds retries of a failed node download.
const DefaultDownloadRetries = 3

// Installer downloads node releases into a directory, one subdirectory per
// version.
type Installer struct {
	fs      ffs.FileSystem
	fetcher Fetcher
	root    string
	dir     string
	retries uint64
	logger  zerolog.Logger

	// initialInterval is the first retry delay.
	initialInterval time.Duration
}

// NewInstaller creates an installer downloading from root into dir.
func NewInstaller(fsys ffs.FileSystem, fetcher Fetcher, root, dir string, logger zerolog.Logger) *Installer {
	if root == "" {
		root = DefaultDownloadRoot
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return &Installer{
		fs:              fsys,
		fetcher:         fetcher,
		root:            root,
		dir:             dir,
		retries:         DefaultDownloadRetries,
		logger:          logger,
		initialInterval: 500 * time.Millisecond,
	}
}

// WithRetry sets how often a failed download is retried and the first
// delay between attempts.
func (in *Installer) WithRetry(retries uint64, interval time.Duration) *Installer {
	in.retries = retries
	in.initialInterval = interval
	return in
}

// NodeDir returns the directory a version is installed in.
func NodeDir(dir, version string) string {
	return filepath.Join(dir, "node-"+normalizeVersion(version))
}

// NodeBinary returns the node executable inside an installed version.
func NodeBinary(nodeDir string) string {
	if isWindows() {
		return filepath.Join(nodeDir, "node.exe")
	}
	return filepath.Join(nodeDir, "bin", "node")
}

// NpmCLI returns npm-cli.js inside an installed version.
func NpmCLI(nodeDir string) string {
	if isWindows() {
		return filepath.Join(nodeDir, "node_modules", "npm", "bin", "npm-cli.js")
	}
	return filepath.Join(nodeDir, "lib", "node_modules", "npm", "bin", "npm-cli.js")
}

// ArchiveURL returns the download location of a release for this platform.
func (in *Installer) ArchiveURL(version string) string {
	version = normalizeVersion(version)
	name := fmt.Sprintf("node-%s-%s-%s", version, platformName(), archName())
	if isWindows() {
		name += ".zip"
	} else {
		name += ".tar.gz"
	}
	return in.root + version + "/" + name
}

// Install downloads and unpacks version, returning its directory. A partial
// installation is removed on failure.
func (in *Installer) Install(ctx context.Context, version string) (string, error) {
	url := in.ArchiveURL(version)
	dest := NodeDir(in.dir, version)
	in.logger.Info().Str("url", url).Str("dest", dest).Msg("Installing node")

	data, err := in.download(ctx, url)
	if err != nil {
		return "", err
	}

	if err := in.fs.MkdirAll(dest, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	if strings.HasSuffix(url, ".zip") {
		err = extractZip(in.fs, data, dest)
	} else {
		err = extractTarGz(in.fs, data, dest)
	}
	if err != nil {
		_ = in.fs.RemoveAll(dest)
		return "", fmt.Errorf("unpack %s: %w", url, err)
	}
	if !in.fs.Exists(NodeBinary(dest)) {
		_ = in.fs.RemoveAll(dest)
		return "", fmt.Errorf("%w: %s has no node executable", ErrToolNotFound, url)
	}
	return dest, nil
}

func (in *Installer) download(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	op := func() error {
		body, err := in.fetcher.Fetch(ctx, url)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) && fe.IsNotFound() {
				return backoff.Permanent(err)
			}
			return err
		}
		data = body
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = in.initialInterval
	policy := backoff.WithContext(backoff.WithMaxTries(b, in.retries), ctx)
	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		in.logger.Warn().Err(err).Dur("retry_in", wait).Msg("Node download failed")
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return data, nil
}

// stripFirst drops the top-level directory every release archive has.
func stripFirst(name string) (string, bool) {
	name = strings.TrimPrefix(path.Clean(filepath.ToSlash(name)), "/")
	_, rest, ok := strings.Cut(name, "/")
	if !ok || rest == "" || !filepath.IsLocal(rest) {
		return "", false
	}
	return rest, true
}

func extractTarGz(fsys ffs.FileSystem, data []byte, dest string) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		rel, ok := stripFirst(hdr.Name)
		if !ok {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fsys.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			content, err := io.ReadAll(tr)
			if err != nil {
				return err
			}
			if err := writeEntry(fsys, target, content, fs.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		}
		// npm and npx links in bin/ are not needed, the scripts are run
		// through node directly.
	}
}

func extractZip(fsys ffs.FileSystem, data []byte, dest string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	for _, f := range zr.File {
		rel, ok := stripFirst(f.Name)
		if !ok || f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if err := writeEntry(fsys, target, content, f.Mode().Perm()); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(fsys ffs.FileSystem, target string, content []byte, perm fs.FileMode) error {
	if perm == 0 {
		perm = 0644
	}
	if err := fsys.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	return fsys.WriteFile(target, content, perm)
}

func normalizeVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

func platformName() string {
	switch runtime.GOOS {
	case "windows":
		return "win"
	default:
		return runtime.GOOS
	}
}

func archName() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x64"
	case "386":
		return "x86"
	case "arm":
		return "armv7l"
	default:
		return runtime.GOARCH
	}
}
