// Package tailer follows a growing log file by polling its length and reading
// only the bytes appended since the previous poll.
//
// A Tailer never forwards the backlog: on its first poll it records the file
// length, reads up to that boundary and throws the bytes away. Everything
// appended afterwards is delivered as whole-line text chunks, or as whole log
// entries when Config.EntryStart is set.
package tailer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eftlog/eftlog-go/internal/safefile"
)

// State is the lifecycle state of a Tailer.
type State int32

const (
	StateStarting State = iota
	StateBacklogSuppressed
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateBacklogSuppressed:
		return "backlog_suppressed"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultPollInterval is how often the file length is checked.
const DefaultPollInterval = 5 * time.Second

// DefaultReadSize bounds a single read from the file.
const DefaultReadSize = 4096

// Config configures a Tailer.
type Config struct {
	// PollInterval is the delay between polls.
	PollInterval time.Duration
	// ReadSize is the buffer size used for each read call.
	ReadSize int
	// Alive is checked once per poll; the tailer stops when it returns false.
	// Nil means always alive.
	Alive func() bool
	// EntryStart, if set, makes the tailer deliver one log entry per chunk.
	// An entry is held until the next line for which EntryStart returns
	// true, or until it has been idle for two polls.
	EntryStart func(line string) bool
	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default tailer configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		ReadSize:     DefaultReadSize,
	}
}

// Handler receives each chunk of newly appended text.
type Handler func(chunk string)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Tailer follows one log file.
type Tailer struct {
	path    string
	cfg     Config
	onChunk Handler
	log     *slog.Logger

	offset atomic.Int64
	state  atomic.Int32

	// Only touched by the polling goroutine.
	boundary    int64
	backlogDone bool
	backlogTail lastByteWriter
	ext         Extractor
	buf         []byte

	// deliverMu is held while a chunk is handed to onChunk.
	deliverMu sync.Mutex
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
}

// New creates a Tailer for path. It does not touch the file until Start.
func New(path string, cfg Config, onChunk Handler) *Tailer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = DefaultReadSize
	}
	log := cfg.Logger
	if log == nil {
		log = discardLogger
	}
	t := &Tailer{
		path:     path,
		cfg:      cfg,
		onChunk:  onChunk,
		log:      log.With("path", path),
		boundary: -1,
		buf:      make([]byte, cfg.ReadSize),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	t.ext.EntryStart = cfg.EntryStart
	return t
}

// Path returns the followed file.
func (t *Tailer) Path() string { return t.path }

// Offset returns the number of bytes consumed so far.
func (t *Tailer) Offset() int64 { return t.offset.Load() }

// State returns the current lifecycle state.
func (t *Tailer) State() State { return State(t.state.Load()) }

// Done is closed once the polling goroutine has exited.
func (t *Tailer) Done() <-chan struct{} { return t.doneCh }

// Start launches the polling goroutine. The first poll runs immediately.
// Calling Start more than once has no effect.
func (t *Tailer) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		go t.run(ctx)
	})
}

// Stop tells the polling goroutine to exit. A chunk being delivered when
// Stop is called finishes first; no chunk is delivered after Stop returns.
// Stop does not wait for the goroutine itself; use Done for that. It must not
// be called from the Handler. Safe to call multiple times and after the loop
// has already exited.
func (t *Tailer) Stop() {
	t.stopOnce.Do(func() {
		t.state.Store(int32(StateStopped))
		close(t.stopCh)
	})
	t.deliverMu.Lock()
	t.deliverMu.Unlock()
}

func (t *Tailer) run(ctx context.Context) {
	defer close(t.doneCh)
	defer t.Stop()

	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	t.log.Debug("tailer started")
	for {
		if !t.shouldContinue(ctx) {
			t.log.Debug("tailer stopped", "offset", t.Offset())
			return
		}
		t.poll()

		select {
		case <-ctx.Done():
		case <-t.stopCh:
		case <-ticker.C:
		}
	}
}

func (t *Tailer) shouldContinue(ctx context.Context) bool {
	if ctx.Err() != nil || t.State() == StateStopped {
		return false
	}
	if t.cfg.Alive != nil && !t.cfg.Alive() {
		return false
	}
	return true
}

// setState moves to s unless the tailer has been stopped.
func (t *Tailer) setState(s State) {
	for {
		cur := t.state.Load()
		if State(cur) == StateStopped {
			return
		}
		if t.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// poll runs one cycle. I/O failures are logged and left for the next cycle;
// the offset only ever advances by bytes actually read.
func (t *Tailer) poll() {
	if t.State() == StateStopped {
		return
	}

	size, err := safefile.Size(t.path)
	if err != nil {
		t.log.Debug("stat failed, retrying next poll", "error", err)
		return
	}

	if !t.backlogDone {
		t.suppressBacklog(size)
		return
	}

	offset := t.Offset()
	switch {
	case size < offset:
		t.log.Debug("file truncated, reading from start", "size", size, "offset", offset)
		t.offset.Store(0)
		t.ext.Reset()
	case size == offset:
		t.forward(t.ext.Idle())
		return
	}

	if _, err := t.readTo(&t.ext, size); err != nil {
		t.log.Debug("read failed, retrying next poll", "error", err, "offset", t.Offset())
	}
	t.forward(t.ext.Entries()...)
}

// suppressBacklog consumes the bytes present before the first poll without
// forwarding them.
func (t *Tailer) suppressBacklog(size int64) {
	if t.boundary < 0 {
		t.boundary = size
		t.log.Debug("backlog boundary recorded", "bytes", size)
	}
	t.setState(StateBacklogSuppressed)

	if _, err := t.readTo(&t.backlogTail, t.boundary); err != nil {
		t.log.Debug("backlog read failed, retrying next poll", "error", err, "offset", t.Offset())
		return
	}
	if t.Offset() < t.boundary {
		// File shrank below the boundary; treat what remains as backlog.
		t.boundary = t.Offset()
	}

	if t.backlogTail.seen && t.backlogTail.last != '\n' {
		t.ext.SkipPartialLine()
	}
	t.backlogDone = true
	t.setState(StateStreaming)
}

// readTo copies bytes [offset, end) of the file into dst in ReadSize reads,
// advancing the offset by the number of bytes read even when an error cuts
// the copy short.
func (t *Tailer) readTo(dst io.Writer, end int64) (int64, error) {
	offset := t.Offset()
	if end <= offset {
		return 0, nil
	}

	f, _, err := safefile.OpenRegular(t.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}

	n, err := io.CopyBuffer(dst, io.LimitReader(f, end-offset), t.buf)
	t.offset.Add(n)
	return n, err
}

func (t *Tailer) forward(chunks ...string) {
	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()
	for _, text := range chunks {
		if t.State() == StateStopped {
			return
		}
		if text != "" {
			t.onChunk(text)
		}
	}
}

// lastByteWriter discards its input, remembering only the final byte.
type lastByteWriter struct {
	last byte
	seen bool
}

func (w *lastByteWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.last = p[len(p)-1]
		w.seen = true
	}
	return len(p), nil
}
