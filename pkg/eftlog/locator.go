package eftlog

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/eftlog/eftlog-go/internal/logfinder"
	"github.com/eftlog/eftlog-go/internal/process"
)

// Process is a running game process.
type Process interface {
	// ExePath returns the absolute path of the executable.
	ExePath() string
	// Running reports whether the process is still alive.
	Running(ctx context.Context) bool
}

// ProcessFinder looks up the game process by executable name.
// It returns ErrProcessNotFound when no process matches.
type ProcessFinder interface {
	Find(ctx context.Context, name string) (Process, error)
}

// SystemProcessFinder finds processes through the operating system.
type SystemProcessFinder struct{}

// Find implements ProcessFinder.
func (SystemProcessFinder) Find(ctx context.Context, name string) (Process, error) {
	p, err := process.Find(ctx, name)
	if errors.Is(err, process.ErrNotFound) {
		return nil, ErrProcessNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// locatorEvent is the outcome of one locator check.
type locatorEvent int

const (
	// locNone: nothing changed.
	locNone locatorEvent = iota
	// locAcquired: the process was found.
	locAcquired
	// locSession: the process is still running and the active session
	// folder was resolved for the first time or changed.
	locSession
	// locLost: the process exited.
	locLost
)

func (e locatorEvent) String() string {
	switch e {
	case locNone:
		return "none"
	case locAcquired:
		return "acquired"
	case locSession:
		return "session"
	case locLost:
		return "lost"
	default:
		return "unknown"
	}
}

// locator tracks the game process and the log folders it writes to.
//
// check is called from the monitor loop only; the folder fields are also
// read and updated by the directory watcher and are guarded by mu.
type locator struct {
	finder  ProcessFinder
	name    string
	logDir  string // explicit log root, may be empty
	log     *slog.Logger
	proc    Process
	mu      sync.Mutex
	root    string
	session string
}

func newLocator(finder ProcessFinder, name, logDir string, log *slog.Logger) *locator {
	return &locator{finder: finder, name: name, logDir: logDir, log: log}
}

// check advances the Absent/Acquired state machine by one step.
func (l *locator) check(ctx context.Context) locatorEvent {
	if l.proc != nil {
		if !l.proc.Running(ctx) {
			l.log.Debug("game process exited", "exe", l.proc.ExePath())
			l.proc = nil
			l.setFolders("", "")
			return locLost
		}
		root, session := l.resolve(l.proc.ExePath())
		if session == "" || session == l.Session() {
			return locNone
		}
		l.log.Debug("active session changed", "session", session)
		l.setFolders(root, session)
		return locSession
	}

	p, err := l.finder.Find(ctx, l.name)
	if err != nil {
		if !errors.Is(err, ErrProcessNotFound) {
			l.log.Debug("process lookup failed", "error", err)
		} else {
			l.log.Debug("game process not running", "name", l.name)
		}
		return locNone
	}

	l.proc = p
	root, session := l.resolve(p.ExePath())
	l.setFolders(root, session)
	l.log.Debug("game process found", "exe", p.ExePath(), "root", root, "session", session)
	return locAcquired
}

// resolve returns the log root and its latest session folder. Either may be
// empty when the game has not created them yet.
func (l *locator) resolve(exePath string) (root, session string) {
	root, err := logfinder.FindLogDir(l.logDir, exePath)
	if err != nil {
		l.log.Debug("log root not available", "error", err)
		return "", ""
	}
	session, err = logfinder.LatestSessionDir(root)
	if err != nil {
		l.log.Debug("session folder not available", "root", root, "error", err)
		return root, ""
	}
	return root, session
}

// adopt makes dir the active session if it is the latest folder under the
// current root. It reports whether the session changed.
func (l *locator) adopt(dir string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.root == "" || filepath.Dir(dir) != l.root || dir == l.session {
		return false
	}
	latest, err := logfinder.LatestSessionDir(l.root)
	if err != nil || latest != dir {
		return false
	}
	l.session = dir
	return true
}

// Folders returns the current log root and session folder.
func (l *locator) Folders() (root, session string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.root, l.session
}

// Session returns the current session folder.
func (l *locator) Session() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

func (l *locator) setFolders(root, session string) {
	l.mu.Lock()
	l.root, l.session = root, session
	l.mu.Unlock()
}
