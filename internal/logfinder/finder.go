// Package logfinder locates game log directories, session folders and the
// log files inside them.
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

// EnvLogDir is the environment variable name for overriding the log root.
const EnvLogDir = "EFTLOG_LOGDIR"

// LogsDirName is the log folder created next to the game executable.
const LogsDirName = "Logs"

// Sentinel errors.
var (
	ErrLogDirNotFound = errors.New("log directory not found")
	ErrNoSessions     = errors.New("no session folders found")
)

// LogDirForExecutable returns the log root that sits beside exePath.
func LogDirForExecutable(exePath string) string {
	if exePath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(exePath), LogsDirName)
}

// FindLogDir returns the log root directory.
//
// Priority:
//  1. explicit (if non-empty)
//  2. EFTLOG_LOGDIR environment variable
//  3. the Logs folder beside exePath
//
// Returns ErrLogDirNotFound if the chosen candidate is not an existing
// directory. The returned path has symlinks resolved.
func FindLogDir(explicit, exePath string) (string, error) {
	if explicit != "" {
		if resolved := resolveDir(explicit); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: specified directory is invalid", ErrLogDirNotFound)
	}

	if envDir := os.Getenv(EnvLogDir); envDir != "" {
		if resolved := resolveDir(envDir); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s environment variable points to invalid directory", ErrLogDirNotFound, EnvLogDir)
	}

	if dir := LogDirForExecutable(exePath); dir != "" {
		if resolved := resolveDir(dir); resolved != "" {
			return resolved, nil
		}
	}

	return "", ErrLogDirNotFound
}

// LatestSessionDir returns the session folder inside logDir that sorts last.
// Session folders are named by their creation timestamp, so lexical order is
// creation order.
func LatestSessionDir(logDir string) (string, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return "", fmt.Errorf("reading log directory: %w", err)
	}

	var latest string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return "", ErrNoSessions
	}
	return filepath.Join(logDir, latest), nil
}

// KindOf reports which stream a log file belongs to, based on its base name.
func KindOf(path string) event.StreamKind {
	name := strings.ToLower(filepath.Base(path))
	if !strings.HasSuffix(name, ".log") {
		return event.StreamUnknown
	}
	switch {
	case strings.Contains(name, "notifications"):
		return event.StreamNotifications
	case strings.Contains(name, "application"):
		return event.StreamApplication
	default:
		return event.StreamUnknown
	}
}

// SessionLogs lists the recognized log files in a session folder, keyed by
// stream kind. When a folder holds several files of the same kind the one
// that sorts last wins. Non-regular files are skipped.
func SessionLogs(dir string) (map[event.StreamKind]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading session directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	logs := make(map[event.StreamKind]string, len(event.StreamKinds))
	for _, name := range names {
		if kind := KindOf(name); kind != event.StreamUnknown {
			logs[kind] = filepath.Join(dir, name)
		}
	}
	return logs, nil
}

// resolveDir resolves symlinks and checks that dir is a directory.
// Returns the resolved path if valid, empty string otherwise.
func resolveDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}

	// Works with Windows junctions in Go 1.20+
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return ""
	}
	return resolved
}
