package eftlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eftlog/eftlog-go/internal/logfinder"
	"github.com/eftlog/eftlog-go/internal/parser"
	"github.com/eftlog/eftlog-go/internal/tailer"
	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

// discardLogger returns a logger that discards all output.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Monitor finds the game process, follows its active log session and
// publishes classified events on its Bus.
type Monitor struct {
	cfg        monitorConfig // immutable after creation
	log        *slog.Logger
	bus        *Bus
	classifier *Classifier
	loc        *locator

	mu      sync.Mutex
	closed  bool
	started bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	dw      *dirWatcher

	// alive is true while the game process is known to be running.
	alive atomic.Bool

	tmu     sync.Mutex
	tailers map[StreamKind]*tailer.Tailer
	twg     sync.WaitGroup
}

// NewMonitor creates a monitor using functional options.
// Validates options and, when a log root is given explicitly, checks that it
// exists. Does NOT start goroutines (cheap to call).
//
// Example:
//
//	mon, err := eftlog.NewMonitor(
//	    eftlog.WithProcessInterval(10*time.Second),
//	    eftlog.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mon.Bus().OnQueueCompleted(func(ev eftlog.QueueCompleted) { ... })
//	err = mon.Start(ctx)
func NewMonitor(opts ...MonitorOption) (*Monitor, error) {
	cfg := applyMonitorOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	if cfg.logDir != "" {
		dir, err := logfinder.FindLogDir(cfg.logDir, "")
		if err != nil {
			return nil, fmt.Errorf("finding log directory: %w", err)
		}
		cfg.logDir = dir
	}

	log := cfg.logger
	if log == nil {
		log = discardLogger
	}

	return &Monitor{
		cfg:        *cfg,
		log:        log,
		bus:        NewBus(log),
		classifier: NewClassifier(cfg.marketBotID, cfg.rules, log),
		loc:        newLocator(cfg.finder, cfg.processName, cfg.logDir, log),
		tailers:    make(map[StreamKind]*tailer.Tailer),
	}, nil
}

// Bus returns the bus events are published on. Subscribe before Start to
// avoid missing events.
func (m *Monitor) Bus() *Bus { return m.bus }

// Session returns the current session context.
func (m *Monitor) Session() SessionContext { return m.classifier.Session() }

// Start launches the monitor. The first process check runs immediately.
// When ctx is cancelled the monitor stops; Close waits for that.
//
// Returns ErrMonitorClosed if the monitor has been closed.
// Returns ErrAlreadyStarted if Start has already been called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMonitorClosed
	}
	if m.started {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	dw, err := newDirWatcher(m.log,
		func(kind StreamKind, path string) { m.startTailer(ctx, kind, path) },
		func(dir string) { m.switchSession(ctx, dir) },
	)
	if err != nil {
		cancel()
		return &MonitorError{Op: OpWatch, Err: err}
	}

	m.started = true
	m.dw = dw
	m.cancel = cancel
	m.doneCh = make(chan struct{})

	go m.run(ctx, dw)
	return nil
}

// Close stops the monitor and releases resources.
// Safe to call multiple times.
// Blocks until every goroutine has exited.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	doneCh := m.doneCh
	m.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	return nil
}

func (m *Monitor) run(ctx context.Context, dw *dirWatcher) {
	defer close(m.doneCh)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dw.run(ctx)
	}()

	defer func() {
		m.alive.Store(false)
		m.stopAll()
		_ = dw.Close()
		wg.Wait()
		m.twg.Wait()
		m.log.Debug("monitor stopped")
	}()

	ticker := time.NewTicker(m.cfg.processInterval)
	defer ticker.Stop()

	m.log.Debug("monitor started", "process", m.cfg.processName, "interval", m.cfg.processInterval)
	for {
		m.handle(ctx, dw, m.loc.check(ctx))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// handle applies the outcome of a locator check.
func (m *Monitor) handle(ctx context.Context, dw *dirWatcher, ev locatorEvent) {
	switch ev {
	case locAcquired, locSession:
		m.alive.Store(true)
		m.stopAll()
		root, session := m.loc.Folders()
		dw.Point(root, session)
		if session != "" {
			m.scan(ctx, session)
		}
	case locLost:
		m.alive.Store(false)
		m.stopAll()
		dw.Point("", "")
	case locNone:
		// Picks up files whose create event was missed.
		if _, session := m.loc.Folders(); session != "" && m.alive.Load() {
			m.scan(ctx, session)
		}
	}
}

// switchSession is called by the directory watcher for a folder created
// under the log root.
func (m *Monitor) switchSession(ctx context.Context, dir string) {
	if ctx.Err() != nil || !m.loc.adopt(dir) {
		return
	}
	m.log.Debug("switching to new session folder", "session", dir)
	root, _ := m.loc.Folders()
	m.dw.Point(root, dir)
	m.scan(ctx, dir)
}

// scan starts a tailer for every recognized log file in a session folder.
func (m *Monitor) scan(ctx context.Context, dir string) {
	logs, err := logfinder.SessionLogs(dir)
	if err != nil {
		m.log.Debug("session scan failed", "error", &MonitorError{Op: OpScan, Path: dir, Err: err})
		return
	}
	for _, kind := range event.StreamKinds {
		if path, ok := logs[kind]; ok {
			m.startTailer(ctx, kind, path)
		}
	}
}

// startTailer makes path the followed file for kind, stopping the previous
// tailer of that kind. A live tailer already following path is kept.
func (m *Monitor) startTailer(ctx context.Context, kind StreamKind, path string) {
	if ctx.Err() != nil || !m.alive.Load() {
		return
	}

	m.tmu.Lock()
	defer m.tmu.Unlock()

	if old, ok := m.tailers[kind]; ok {
		if old.Path() == path && old.State() != tailer.StateStopped {
			return
		}
		old.Stop()
	}

	cfg := tailer.Config{
		PollInterval: m.cfg.tailInterval,
		ReadSize:     m.cfg.readSize,
		Alive:        m.alive.Load,
		EntryStart:   parser.IsEntryStart,
		Logger:       m.log.With("stream", kind.String()),
	}
	t := tailer.New(path, cfg, func(chunk string) {
		m.dispatch(ctx, kind, chunk)
	})
	m.tailers[kind] = t

	m.twg.Add(1)
	t.Start(ctx)
	go func() {
		defer m.twg.Done()
		<-t.Done()
	}()
	m.log.Debug("tailing log file", "stream", kind, "path", path)
}

// stopAll stops every tailer and clears the table.
func (m *Monitor) stopAll() {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	for kind, t := range m.tailers {
		t.Stop()
		delete(m.tailers, kind)
	}
}

// tailerFor returns the tailer currently registered for kind.
func (m *Monitor) tailerFor(kind StreamKind) *tailer.Tailer {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	return m.tailers[kind]
}

// dispatch classifies one delivered log entry and publishes its events.
func (m *Monitor) dispatch(ctx context.Context, kind StreamKind, chunk string) {
	for _, ev := range m.classifier.Classify(ctx, kind, chunk) {
		m.bus.Publish(ev)
	}
}
