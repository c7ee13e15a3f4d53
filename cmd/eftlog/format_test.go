package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eftlog/eftlog-go/pkg/eftlog"
)

var updateGolden = flag.Bool("update-golden", false, "update golden files")

// sampleEvents covers every event kind the pretty format knows.
var sampleEvents = []eftlog.Event{
	eftlog.RaidExited{Map: "bigmap", RaidID: "abc123"},
	eftlog.QuestStatusChanged{QuestID: "5936d90786f7742b1420ba5b", Status: eftlog.QuestFinished},
	eftlog.QueueCompleted{Map: "woods", QueueTimeSeconds: 12.5},
	eftlog.MarketplaceSaleCompleted{
		Buyer:         "Killa",
		SoldItemID:    "59faff1d86f7746c51718c9c",
		SoldItemCount: 2,
		ReceivedItems: map[string]int{"5449016a4bdc2d6f028b456f": 45000},
	},
	eftlog.LogChunk{Stream: eftlog.StreamApplication, Text: "2024-05-01 18:00:00.000|Info|application|hello\n"},
	eftlog.CustomEvent{Type: "boss_spawn", Data: map[string]string{"name": "Reshala Boss"}},
	eftlog.CustomEvent{Type: "heartbeat"},
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OutputJSON(eftlog.QueueCompleted{Map: "woods", QueueTimeSeconds: 12.5}, &buf))

	var decoded struct {
		Type string `json:"type"`
		Data struct {
			Map              string  `json:"map"`
			QueueTimeSeconds float64 `json:"queue_time_seconds"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "queue_completed", decoded.Type)
	assert.Equal(t, "woods", decoded.Data.Map)
	assert.Equal(t, 12.5, decoded.Data.QueueTimeSeconds)
	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])
}

func TestOutputJSON_QuestStatusAsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OutputJSON(eftlog.QuestStatusChanged{QuestID: "q1", Status: eftlog.QuestFailed}, &buf))
	assert.JSONEq(t, `{"type":"quest_status_changed","data":{"quest_id":"q1","status":"failed"}}`, buf.String())
}

func TestOutputPretty_Golden(t *testing.T) {
	var buf bytes.Buffer
	for _, ev := range sampleEvents {
		require.NoError(t, OutputPretty(ev, &buf))
	}

	golden := filepath.Join("testdata", "pretty.golden")
	if *updateGolden {
		require.NoError(t, os.WriteFile(golden, buf.Bytes(), 0644))
	}
	want, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, string(want), buf.String())
}

func TestOutputPretty_EmptyFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OutputPretty(eftlog.RaidExited{}, &buf))
	assert.Equal(t, "< left raid on - (-)\n", buf.String())
}

func TestOutputEvent_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := OutputEvent("xml", eftlog.RaidExited{}, &buf)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestValidFormats(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"jsonl", true},
		{"pretty", true},
		{"json", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.valid, validFormats[tt.format])
		})
	}
}

func TestFormatData(t *testing.T) {
	tests := []struct {
		name string
		data map[string]string
		want string
	}{
		{"empty", nil, ""},
		{"sorted", map[string]string{"b": "2", "a": "1"}, "a=1 b=2"},
		{"space quoted", map[string]string{"k": "a b"}, `k="a b"`},
		{"equals quoted", map[string]string{"k": "a=b"}, `k="a=b"`},
		{"empty value", map[string]string{"k": ""}, `k=""`},
		{"escapes", map[string]string{"k": "x\"y\\z\n"}, `k="x\"y\\z\n"`},
		{"control char", map[string]string{"k": "\x01"}, `k="\x01"`},
		{"unicode plain", map[string]string{"k": "Таможня"}, "k=Таможня"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatData(tt.data))
		})
	}
}

func TestFormatItems(t *testing.T) {
	got := formatItems(map[string]int{"b": 1, "a": 3})
	assert.Equal(t, "3x a, 1x b", got)
}

type failWriter struct{ calls int }

func (w *failWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("broken pipe")
}

func TestEventWriter_Filter(t *testing.T) {
	var buf bytes.Buffer
	w := newEventWriter("pretty", &buf, map[eftlog.EventType]bool{eftlog.EventRaidExited: true})
	w.Write(eftlog.QueueCompleted{Map: "woods"})
	w.Write(eftlog.RaidExited{Map: "bigmap", RaidID: "r1"})
	assert.Equal(t, "< left raid on bigmap (r1)\n", buf.String())
	assert.NoError(t, w.Err())
}

func TestEventWriter_StopsAfterError(t *testing.T) {
	fw := &failWriter{}
	var failed int
	w := newEventWriter("jsonl", fw, nil)
	w.onError = func() { failed++ }

	w.Write(eftlog.RaidExited{})
	w.Write(eftlog.RaidExited{})
	assert.Error(t, w.Err())
	assert.Equal(t, 1, fw.calls)
	assert.Equal(t, 1, failed)
}

func TestEventWriter_BusSubscription(t *testing.T) {
	tests := []struct {
		name  string
		raw   bool
		lines int
	}{
		{"events only", false, 1},
		{"with raw chunks", true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := newEventWriter("jsonl", &buf, nil)
			bus := eftlog.NewBus(nil)
			w.subscribe(bus, tt.raw)

			bus.Publish(eftlog.LogChunk{Stream: eftlog.StreamNotifications, Text: "x\n"})
			bus.Publish(eftlog.RaidExited{Map: "factory4_day"})
			assert.Equal(t, tt.lines, bytes.Count(buf.Bytes(), []byte("\n")))
		})
	}
}

func TestEventWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	w := newEventWriter("jsonl", &buf, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				w.Write(eftlog.QueueCompleted{Map: "woods", QueueTimeSeconds: 1})
			}
		}()
	}
	wg.Wait()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 400)
	for _, line := range lines {
		assert.True(t, json.Valid(line), "line %q", line)
	}
}

func TestPalette_NonTerminalIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := newPalette(&buf, "auto")
	require.NotNil(t, p)
	assert.Equal(t, "<", p.mark(eftlog.EventRaidExited, "<"))
	assert.Equal(t, "*", p.mark("boss_spawn", "*"))

	w := newEventWriter("pretty", &buf, nil)
	w.palette = p
	w.Write(eftlog.RaidExited{Map: "bigmap", RaidID: "r1"})
	assert.Equal(t, "< left raid on bigmap (r1)\n", buf.String())
}

func TestPalette_Never(t *testing.T) {
	p := newPalette(&bytes.Buffer{}, "never")
	assert.Nil(t, p)
	assert.Equal(t, "$", p.mark(eftlog.EventMarketplaceSale, "$"))
}
