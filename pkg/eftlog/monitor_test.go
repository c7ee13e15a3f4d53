package eftlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eftlog/eftlog-go/internal/tailer"
)

const (
	waitFor = 5 * time.Second
	tick    = 5 * time.Millisecond
)

func appendLog(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// placeLog creates path with content in one step, so a watcher never sees
// the file empty.
func placeLog(t *testing.T, path, content string) {
	t.Helper()
	tmp := filepath.Join(t.TempDir(), "staging.log")
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0644))
	require.NoError(t, os.Rename(tmp, path))
}

// collector records events from a bus.
type collector struct {
	mu     sync.Mutex
	events []Event
	chunks []string
}

func collect(b *Bus) *collector {
	c := &collector{}
	b.OnAny(func(ev Event) {
		c.mu.Lock()
		c.events = append(c.events, ev)
		c.mu.Unlock()
	})
	b.OnLogChunk(func(ev LogChunk) {
		c.mu.Lock()
		c.chunks = append(c.chunks, ev.Text)
		c.mu.Unlock()
	})
	return c
}

func (c *collector) snapshot() ([]Event, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...), append([]string(nil), c.chunks...)
}

type monitorFixture struct {
	game    string
	session string
	appLog  string
	notiLog string
	proc    *fakeProcess
	finder  *fakeFinder
	mon     *Monitor
	got     *collector
}

func newMonitorFixture(t *testing.T, opts ...MonitorOption) *monitorFixture {
	t.Helper()
	t.Setenv("EFTLOG_LOGDIR", "")
	f := &monitorFixture{game: gameDir(t, true)}
	f.session = mkSession(t, f.game, "log_2024.05.01_18-00-00_0.14.1")
	f.appLog = filepath.Join(f.session, "2024.05.01_18-00-00_0.14.1 application.log")
	f.notiLog = filepath.Join(f.session, "2024.05.01_18-00-00_0.14.1 notifications.log")
	require.NoError(t, os.WriteFile(f.appLog, []byte("BACKLOG application line\n"), 0644))
	require.NoError(t, os.WriteFile(f.notiLog, []byte(matchOverChunk), 0644))

	f.proc = newFakeProcess(filepath.Join(f.game, "EscapeFromTarkov.exe"))
	f.finder = &fakeFinder{}
	f.finder.set(f.proc)

	base := []MonitorOption{
		WithProcessFinder(f.finder),
		WithProcessInterval(20 * time.Millisecond),
		WithTailInterval(10 * time.Millisecond),
	}
	mon, err := NewMonitor(append(base, opts...)...)
	require.NoError(t, err)
	f.mon = mon
	f.got = collect(mon.Bus())
	t.Cleanup(func() { _ = mon.Close() })
	return f
}

func (f *monitorFixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.mon.Start(context.Background()))
	f.waitStreaming(t, StreamApplication, f.appLog)
	f.waitStreaming(t, StreamNotifications, f.notiLog)
}

func (f *monitorFixture) waitStreaming(t *testing.T, kind StreamKind, path string) {
	t.Helper()
	require.Eventually(t, func() bool {
		tl := f.mon.tailerFor(kind)
		return tl != nil && tl.Path() == path && tl.State() == tailer.StateStreaming
	}, waitFor, tick, "tailer for %s never reached streaming", kind)
}

func TestMonitor_StreamsNewEventsOnly(t *testing.T) {
	f := newMonitorFixture(t)
	f.start(t)

	appendLog(t, f.notiLog, "2024-05-01 18:40:00.000|Info|notifications|quest finished\n{\n\"templateId\": \"q1\"\n}\n")

	require.Eventually(t, func() bool {
		events, _ := f.got.snapshot()
		return len(events) == 1
	}, waitFor, tick)

	events, chunks := f.got.snapshot()
	assert.Equal(t, QuestStatusChanged{QuestID: "q1", Status: QuestFinished}, events[0])
	for _, c := range chunks {
		assert.NotContains(t, c, "BACKLOG")
		assert.NotContains(t, c, "abc123", "match-over in backlog must not be replayed")
	}
}

func TestMonitor_QueueAcrossStreams(t *testing.T) {
	f := newMonitorFixture(t)
	f.start(t)

	appendLog(t, f.notiLog, confirmedOnlineChunk)
	require.Eventually(t, func() bool { return f.mon.Session().Online }, waitFor, tick)
	appendLog(t, f.appLog, gamePreparedChunk)

	require.Eventually(t, func() bool {
		events, _ := f.got.snapshot()
		return len(events) == 1
	}, waitFor, tick)
	events, _ := f.got.snapshot()
	assert.Equal(t, QueueCompleted{Map: "woods", QueueTimeSeconds: 12.5}, events[0])
}

func TestMonitor_EntryWrittenInTwoFlushes(t *testing.T) {
	sale := MarketplaceSaleCompleted{
		Buyer:         "Killa",
		SoldItemID:    "5c0e530286f7747fa1419862",
		SoldItemCount: 1,
		ReceivedItems: map[string]int{
			"5449016a4bdc2d6f028b456f": 45000,
			"5696686a4bdc2da3298b456a": 3,
		},
	}
	tests := []struct {
		name  string
		entry string
		cut   string
		done  func(f *monitorFixture) bool
	}{
		{
			name:  "sale",
			entry: saleChunk,
			cut:   `    "items"`,
			done: func(f *monitorFixture) bool {
				events, _ := f.got.snapshot()
				return len(events) == 1 && assert.ObjectsAreEqual(sale, events[0])
			},
		},
		{
			name:  "confirmation",
			entry: confirmedOnlineChunk,
			cut:   `  "raidMode"`,
			done: func(f *monitorFixture) bool {
				return f.mon.Session() == SessionContext{Location: "woods", Online: true, Set: true}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMonitorFixture(t, WithTailInterval(200*time.Millisecond))
			f.start(t)
			tl := f.mon.tailerFor(StreamNotifications)

			cut := strings.Index(tt.entry, tt.cut)
			require.Positive(t, cut)
			before := tl.Offset()
			appendLog(t, f.notiLog, tt.entry[:cut])
			require.Eventually(t, func() bool { return tl.Offset() > before }, waitFor, tick)
			time.Sleep(100 * time.Millisecond)
			appendLog(t, f.notiLog, tt.entry[cut:])

			require.Eventually(t, func() bool {
				_, chunks := f.got.snapshot()
				return len(chunks) > 0 && tt.done(f)
			}, waitFor, tick)
			_, chunks := f.got.snapshot()
			assert.Equal(t, []string{tt.entry}, chunks, "entry delivered once, intact")
		})
	}
}

func TestMonitor_EntriesInOnePollClassifiedSeparately(t *testing.T) {
	f := newMonitorFixture(t)
	f.start(t)

	appendLog(t, f.notiLog,
		"2024-05-01 18:40:00.000|Info|notifications|quest finished\n{\n\"templateId\": \"q1\"\n}\n"+
			"2024-05-01 18:40:01.000|Info|notifications|quest started\n{\n\"templateId\": \"q2\"\n}\n")

	require.Eventually(t, func() bool {
		events, _ := f.got.snapshot()
		return len(events) == 2
	}, waitFor, tick)
	events, _ := f.got.snapshot()
	assert.Equal(t, []Event{
		QuestStatusChanged{QuestID: "q1", Status: QuestFinished},
		QuestStatusChanged{QuestID: "q2", Status: QuestStarted},
	}, events)
}

func TestMonitor_NewFileReplacesTailer(t *testing.T) {
	f := newMonitorFixture(t)
	f.start(t)
	old := f.mon.tailerFor(StreamNotifications)

	newLog := filepath.Join(f.session, "2024.05.01_18-30-00_0.14.1 notifications.log")
	placeLog(t, newLog, "BACKLOG of the new file\n"+matchOverChunk)
	f.waitStreaming(t, StreamNotifications, newLog)

	select {
	case <-old.Done():
	case <-time.After(waitFor):
		t.Fatal("old tailer did not stop")
	}
	assert.Equal(t, tailer.StateStopped, old.State())

	appendLog(t, newLog, "2024-05-01 18:41:00.000|Info|notifications|quest started\n{\n\"templateId\": \"q2\"\n}\n")
	require.Eventually(t, func() bool {
		events, _ := f.got.snapshot()
		return len(events) == 1
	}, waitFor, tick)

	events, chunks := f.got.snapshot()
	assert.Equal(t, QuestStatusChanged{QuestID: "q2", Status: QuestStarted}, events[0])
	for _, c := range chunks {
		assert.NotContains(t, c, "BACKLOG")
	}
}

func TestMonitor_NewSessionFolder(t *testing.T) {
	f := newMonitorFixture(t)
	f.start(t)

	next := mkSession(t, f.game, "log_2024.05.01_20-00-00_0.14.1")
	require.Eventually(t, func() bool {
		_, watched := f.mon.dw.folders()
		return f.mon.loc.Session() == next && watched == next
	}, waitFor, tick)

	appLog := filepath.Join(next, "2024.05.01_20-00-00_0.14.1 application.log")
	placeLog(t, appLog, "BACKLOG\n")
	f.waitStreaming(t, StreamApplication, appLog)

	appendLog(t, appLog, "fresh application line\n")
	require.Eventually(t, func() bool {
		_, chunks := f.got.snapshot()
		return len(chunks) > 0 && strings.Contains(chunks[len(chunks)-1], "fresh application line")
	}, waitFor, tick)
}

func TestMonitor_ProcessLostStopsTailers(t *testing.T) {
	f := newMonitorFixture(t)
	f.start(t)
	app := f.mon.tailerFor(StreamApplication)

	f.proc.exit()
	require.Eventually(t, func() bool {
		return f.mon.tailerFor(StreamApplication) == nil && f.mon.tailerFor(StreamNotifications) == nil
	}, waitFor, tick)
	select {
	case <-app.Done():
	case <-time.After(waitFor):
		t.Fatal("tailer kept running after process exit")
	}

	// A restarted game is picked up again.
	f.proc = newFakeProcess(f.proc.exe)
	f.finder.set(f.proc)
	f.waitStreaming(t, StreamApplication, f.appLog)
}

func TestMonitor_Lifecycle(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()

	require.NoError(t, f.mon.Start(ctx))
	assert.ErrorIs(t, f.mon.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, f.mon.Close())
	require.NoError(t, f.mon.Close())
	assert.ErrorIs(t, f.mon.Start(ctx), ErrMonitorClosed)
	assert.Nil(t, f.mon.tailerFor(StreamApplication))
}

func TestMonitor_CloseWithoutStart(t *testing.T) {
	mon, err := NewMonitor()
	require.NoError(t, err)
	assert.NoError(t, mon.Close())
}

func TestMonitor_ContextCancelStops(t *testing.T) {
	f := newMonitorFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.mon.Start(ctx))
	f.waitStreaming(t, StreamApplication, f.appLog)
	app := f.mon.tailerFor(StreamApplication)

	cancel()
	select {
	case <-f.mon.doneCh:
	case <-time.After(waitFor):
		t.Fatal("monitor did not stop on cancel")
	}
	assert.Equal(t, tailer.StateStopped, app.State())
}

func TestNewMonitor_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  MonitorOption
	}{
		{"empty process name", WithProcessName("")},
		{"zero process interval", WithProcessInterval(0)},
		{"negative tail interval", WithTailInterval(-time.Second)},
		{"zero read size", WithReadSize(0)},
		{"empty bot id", WithMarketBotID("")},
		{"nil finder", WithProcessFinder(nil)},
		{"missing log dir", WithLogDir(filepath.Join(os.TempDir(), "definitely-missing-eftlog-dir"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMonitor(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestNewMonitor_Defaults(t *testing.T) {
	mon, err := NewMonitor(nil, WithRules(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultProcessName, mon.cfg.processName)
	assert.Equal(t, DefaultProcessInterval, mon.cfg.processInterval)
	assert.Equal(t, DefaultTailInterval, mon.cfg.tailInterval)
	assert.Equal(t, DefaultReadSize, mon.cfg.readSize)
	assert.Equal(t, DefaultMarketBotID, mon.cfg.marketBotID)
	assert.Empty(t, mon.cfg.rules)
	assert.IsType(t, SystemProcessFinder{}, mon.cfg.finder)
}
