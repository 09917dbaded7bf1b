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

// Package lock provides a cross-process file lock that keeps concurrent
// builds from running the frontend pipeline on the same project.
package lock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"

	ffs "bennypowers.dev/frontier/fs"
)

// DefaultPollInterval is how often a held lock is rechecked.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultName is the lock file name inside the build directory.
const DefaultName = "frontier.lock"

var (
	// ErrLockInterrupted is returned when the context ends while waiting.
	ErrLockInterrupted = errors.New("interrupted while waiting for the build lock")
	// ErrNotHeld is returned when releasing a lock that is not held.
	ErrNotHeld = errors.New("lock is not held")
)

// State is the lifecycle position of a FileLock.
type State int

const (
	Unlocked State = iota
	Acquiring
	Held
	Released
)

func (s State) String() string {
	switch s {
	case Unlocked:
		return "unlocked"
	case Acquiring:
		return "acquiring"
	case Held:
		return "held"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Owner is the content of a lock file.
type Owner struct {
	PID     int    `json:"pid"`
	Command string `json:"command"`
	Token   string `json:"token"`
}

// Liveness reports whether the recorded owner still runs.
type Liveness func(Owner) bool

// Options configures a FileLock.
type Options struct {
	PollInterval time.Duration
	// Alive defaults to ProcessAlive.
	Alive Liveness
	// Self identifies this process. PID and Command default to the current
	// process, Token to a fresh ULID.
	Self   Owner
	Logger zerolog.Logger
}

// FileLock is a lock backed by a file holding the owner's identity.
type FileLock struct {
	fs       ffs.FileSystem
	path     string
	interval time.Duration
	alive    Liveness
	self     Owner
	logger   zerolog.Logger

	mu    sync.Mutex
	state State
}

// New creates an unlocked FileLock at path.
func New(fsys ffs.FileSystem, path string, opts Options) *FileLock {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Alive == nil {
		opts.Alive = ProcessAlive
	}
	if opts.Self.PID == 0 {
		opts.Self.PID = os.Getpid()
	}
	if opts.Self.Command == "" {
		opts.Self.Command = NormalizeCommand(strings.Join(os.Args, " "))
	}
	if opts.Self.Token == "" {
		opts.Self.Token = ulid.Make().String()
	}
	return &FileLock{
		fs:       fsys,
		path:     path,
		interval: opts.PollInterval,
		alive:    opts.Alive,
		self:     opts.Self,
		logger:   opts.Logger,
	}
}

// Path returns the lock file location.
func (l *FileLock) Path() string {
	return l.path
}

// State returns the current lifecycle state.
func (l *FileLock) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *FileLock) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Acquire blocks until the lock is held or ctx ends. A lock whose owner is
// no longer alive is taken over.
func (l *FileLock) Acquire(ctx context.Context) error {
	if l.State() == Held {
		return nil
	}
	l.setState(Acquiring)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	waiting := false
	for {
		ok, err := l.tryAcquire()
		if err != nil {
			l.setState(Unlocked)
			return err
		}
		if ok {
			l.setState(Held)
			return nil
		}
		if !waiting {
			l.logger.Info().Str("lock", l.path).Msg("Another build is running in this project, waiting")
			waiting = true
		}
		select {
		case <-ctx.Done():
			l.setState(Unlocked)
			return fmt.Errorf("%w: %w", ErrLockInterrupted, ctx.Err())
		case <-ticker.C:
		}
	}
}

// tryAcquire creates the lock file exclusively. An existing file whose
// owner is gone is removed and creation is attempted once more.
func (l *FileLock) tryAcquire() (bool, error) {
	data, err := json.Marshal(l.self)
	if err != nil {
		return false, err
	}
	if err := l.fs.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}

	for range 2 {
		err := l.fs.CreateExclusive(l.path, data, 0644)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return false, fmt.Errorf("create lock %s: %w", l.path, err)
		}

		raw, err := l.fs.ReadFile(l.path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("read lock %s: %w", l.path, err)
		}
		owner, err := parseOwner(raw)
		switch {
		case err != nil:
			l.logger.Warn().Str("lock", l.path).Msg("Removing unreadable lock file")
		case owner.Token == l.self.Token:
			return true, nil
		case l.alive(owner):
			l.logger.Debug().Int("pid", owner.PID).Str("command", owner.Command).Msg("Lock owner is alive")
			return false, nil
		default:
			l.logger.Info().Int("pid", owner.PID).Msg("Removing stale lock")
		}
		if err := l.removeIfUnchanged(raw); err != nil {
			return false, err
		}
	}
	return false, nil
}

// removeIfUnchanged deletes the lock file only while it still holds stale,
// so a lock freshly created by another process survives.
func (l *FileLock) removeIfUnchanged(stale []byte) error {
	current, err := l.fs.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read lock %s: %w", l.path, err)
	}
	if !bytes.Equal(current, stale) {
		return nil
	}
	if err := l.fs.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale lock %s: %w", l.path, err)
	}
	return nil
}

var errCorrupt = errors.New("corrupt lock file")

func parseOwner(data []byte) (Owner, error) {
	var owner Owner
	if err := json.Unmarshal(data, &owner); err != nil || owner.Token == "" {
		return owner, errCorrupt
	}
	return owner, nil
}

func (l *FileLock) readOwner() (Owner, error) {
	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		return Owner{}, err
	}
	return parseOwner(data)
}

// Release removes the lock file if this lock still owns it.
func (l *FileLock) Release() error {
	if l.State() != Held {
		return ErrNotHeld
	}
	defer l.setState(Released)

	owner, err := l.readOwner()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil && !errors.Is(err, errCorrupt) {
		return fmt.Errorf("read lock %s: %w", l.path, err)
	}
	if owner.Token != l.self.Token {
		l.logger.Warn().Str("lock", l.path).Msg("Lock was taken over by another process")
		return nil
	}
	return l.fs.Remove(l.path)
}

// ProcessAlive reports whether the owner's pid exists and runs the same
// command line. A command line that cannot be read counts as a match.
func ProcessAlive(o Owner) bool {
	if o.PID <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(o.PID))
	if err != nil || !exists {
		return false
	}
	p, err := process.NewProcess(int32(o.PID))
	if err != nil {
		return false
	}
	cmdline, err := p.Cmdline()
	if err != nil {
		return true
	}
	return NormalizeCommand(cmdline) == o.Command
}

// NormalizeCommand collapses whitespace so command lines compare reliably.
func NormalizeCommand(cmd string) string {
	return strings.Join(strings.Fields(cmd), " ")
}
