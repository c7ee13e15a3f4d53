package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/eftlog/eftlog-go/pkg/eftlog"
	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

// validFormats lists all valid output formats.
var validFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
}

// OutputEvent writes an event in the specified format to the writer.
func OutputEvent(format string, ev eftlog.Event, out io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(ev, out)
	case "pretty":
		return OutputPretty(ev, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes an event as one {"type":...,"data":{...}} line.
func OutputJSON(ev eftlog.Event, out io.Writer) error {
	data, err := json.Marshal(event.Wrap(ev))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// OutputPretty writes an event in human-readable format.
func OutputPretty(ev eftlog.Event, out io.Writer) error {
	return outputPretty(ev, out, nil)
}

// outputPretty writes ev with its leading mark colored by p. A nil palette
// writes plain text.
func outputPretty(ev eftlog.Event, out io.Writer, p *palette) error {
	mark := func(s string) string { return p.mark(ev.EventType(), s) }

	var err error
	switch e := ev.(type) {
	case eftlog.RaidExited:
		_, err = fmt.Fprintf(out, "%s left raid on %s (%s)\n", mark("<"), orDash(e.Map), orDash(e.RaidID))
	case eftlog.QuestStatusChanged:
		_, err = fmt.Fprintf(out, "%s quest %s %s\n", mark("!"), orDash(e.QuestID), e.Status)
	case eftlog.QueueCompleted:
		_, err = fmt.Fprintf(out, "%s queued %.1fs for %s\n", mark(">"), e.QueueTimeSeconds, orDash(e.Map))
	case eftlog.MarketplaceSaleCompleted:
		_, err = fmt.Fprintf(out, "%s %s bought %dx %s", mark("$"), orDash(e.Buyer), e.SoldItemCount, orDash(e.SoldItemID))
		if err == nil && len(e.ReceivedItems) > 0 {
			_, err = fmt.Fprintf(out, " for %s", formatItems(e.ReceivedItems))
		}
		if err == nil {
			_, err = fmt.Fprintln(out)
		}
	case eftlog.LogChunk:
		_, err = fmt.Fprintf(out, "%s [%s] %s\n", mark("#"), e.Stream, strings.TrimRight(e.Text, "\r\n"))
	case eftlog.CustomEvent:
		if len(e.Data) > 0 {
			_, err = fmt.Fprintf(out, "%s %s: %s\n", mark("*"), e.Type, formatData(e.Data))
		} else {
			_, err = fmt.Fprintf(out, "%s %s\n", mark("*"), e.Type)
		}
	default:
		_, err = fmt.Fprintf(out, "%s %s\n", mark("?"), ev.EventType())
	}
	return err
}

// validColors lists the --color modes.
var validColors = map[string]bool{
	"auto":  true,
	"never": true,
}

// palette holds the mark style of each event type for one output.
type palette struct {
	styles map[eftlog.EventType]lipgloss.Style
	other  lipgloss.Style
}

// newPalette returns the palette for out. Colors are only emitted when out
// is a terminal that supports them; a nil palette means plain output.
func newPalette(out io.Writer, mode string) *palette {
	if mode == "never" {
		return nil
	}
	r := lipgloss.NewRenderer(out)
	style := func(color string) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}
	return &palette{
		styles: map[eftlog.EventType]lipgloss.Style{
			eftlog.EventRaidExited:         style("9"),
			eftlog.EventQuestStatusChanged: style("11"),
			eftlog.EventQueueCompleted:     style("12"),
			eftlog.EventMarketplaceSale:    style("10"),
			eftlog.EventLogChunk:           r.NewStyle().Faint(true),
		},
		other: style("13"),
	}
}

func (p *palette) mark(t eftlog.EventType, s string) string {
	if p == nil {
		return s
	}
	if st, ok := p.styles[t]; ok {
		return st.Render(s)
	}
	return p.other.Render(s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatItems formats received items as sorted id×count pairs.
func formatItems(items map[string]int) string {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%dx %s", items[id], id))
	}
	return strings.Join(parts, ", ")
}

// formatData renders custom event data as key=value pairs sorted by key.
func formatData(data map[string]string) string {
	if len(data) == 0 {
		return ""
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(data))
	for _, k := range keys {
		parts = append(parts, quoteIfNeeded(k)+"="+quoteIfNeeded(data[k]))
	}
	return strings.Join(parts, " ")
}

// quoteIfNeeded returns v as-is unless it contains a character that would
// make key=value output ambiguous, in which case it is Go-quoted.
func quoteIfNeeded(v string) string {
	if v != "" && !strings.ContainsFunc(v, needsQuote) {
		return v
	}
	return strconv.Quote(v)
}

func needsQuote(c rune) bool {
	return c == ' ' || c == '=' || c == '"' || c == '\\' || c < 0x20 || c == 0x7F
}

// eventWriter serializes filtered event output from concurrent publishers.
type eventWriter struct {
	mu      sync.Mutex
	format  string
	out     io.Writer
	filter  map[eftlog.EventType]bool
	palette *palette
	err     error

	// onError runs once, after the first failed write.
	onError func()
}

func newEventWriter(format string, out io.Writer, filter map[eftlog.EventType]bool) *eventWriter {
	return &eventWriter{format: format, out: out, filter: filter}
}

// Write outputs ev unless the filter excludes it. After the first output
// error every later call is a no-op; Err reports that error.
func (w *eventWriter) Write(ev eftlog.Event) {
	if len(w.filter) > 0 && !w.filter[ev.EventType()] {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	if w.format == "pretty" {
		w.err = outputPretty(ev, w.out, w.palette)
	} else {
		w.err = OutputEvent(w.format, ev, w.out)
	}
	if w.err != nil && w.onError != nil {
		w.onError()
	}
}

// Err returns the first output error.
func (w *eventWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// subscribe attaches w to bus. Log chunks are written only when raw is set.
func (w *eventWriter) subscribe(bus *eftlog.Bus, raw bool) {
	bus.OnAny(w.Write)
	if raw {
		bus.OnLogChunk(func(c eftlog.LogChunk) { w.Write(c) })
	}
}
