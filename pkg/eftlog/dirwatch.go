package eftlog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/eftlog/eftlog-go/internal/logfinder"
)

// dirWatcher reports new log files in the active session folder and new
// session folders under the log root.
type dirWatcher struct {
	fw  *fsnotify.Watcher
	log *slog.Logger

	// onFile is called for a recognized log file created in the session
	// folder; onSession for a directory created under the root.
	onFile    func(kind StreamKind, path string)
	onSession func(dir string)

	mu      sync.Mutex
	root    string
	session string
	watched []string
}

func newDirWatcher(log *slog.Logger, onFile func(StreamKind, string), onSession func(string)) (*dirWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &dirWatcher{
		fw:        fw,
		log:       log,
		onFile:    onFile,
		onSession: onSession,
	}, nil
}

// Point replaces the watched folders with root and session. Empty or missing
// folders are skipped; pointing at ("", "") disarms the watcher.
func (d *dirWatcher) Point(root, session string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.watched {
		if err := d.fw.Remove(p); err != nil {
			d.log.Debug("unwatch failed", "path", p, "error", err)
		}
	}
	d.watched = d.watched[:0]
	d.root, d.session = root, session

	for _, p := range []string{root, session} {
		if p == "" {
			continue
		}
		if err := d.fw.Add(p); err != nil {
			d.log.Debug("watch skipped", "path", p, "error", err)
			continue
		}
		d.watched = append(d.watched, p)
	}
	d.log.Debug("directory watcher pointed", "root", root, "session", session)
}

func (d *dirWatcher) folders() (root, session string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root, d.session
}

// run handles filesystem events until ctx is cancelled or the watcher is
// closed.
func (d *dirWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.fw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				d.handleCreate(ev.Name)
			}
		case err, ok := <-d.fw.Errors:
			if !ok {
				return
			}
			d.log.Debug("directory watcher error", "error", err)
		}
	}
}

func (d *dirWatcher) handleCreate(path string) {
	root, session := d.folders()
	parent := filepath.Dir(path)

	switch {
	case session != "" && parent == session:
		kind := logfinder.KindOf(path)
		if kind == StreamUnknown {
			return
		}
		d.log.Debug("log file created", "path", path, "stream", kind)
		d.onFile(kind, path)
	case root != "" && parent == root:
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			return
		}
		d.log.Debug("session folder created", "path", path)
		d.onSession(path)
	}
}

// Close releases the underlying watcher. run returns once it is closed.
func (d *dirWatcher) Close() error {
	return d.fw.Close()
}
