package tailer

import (
	"bytes"
	"strings"
)

// Extractor decodes appended log bytes into text made of whole lines.
//
// Bytes are accumulated with Write. Lines returns every complete line
// received so far and keeps a trailing partial line for the next call, so a
// log line split across two reads is delivered once, intact. Invalid UTF-8 is
// replaced with U+FFFD.
//
// When EntryStart is set, Entries groups the lines into log entries: an entry
// runs from one header line to the next. The last entry stays open until the
// next header arrives, since more of its body may still be written.
type Extractor struct {
	// EntryStart reports whether a line opens a new entry.
	EntryStart func(line string) bool

	pending []byte
	// open is the entry still waiting for the next header.
	open strings.Builder
	// stale is set when buffered text survived a poll without new bytes.
	stale bool
	// skipPartial drops bytes up to and including the next newline.
	skipPartial bool
}

// Write implements io.Writer. It never fails.
func (e *Extractor) Write(p []byte) (int, error) {
	n := len(p)
	if n == 0 {
		return 0, nil
	}
	e.stale = false

	if e.skipPartial {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			return n, nil
		}
		p = p[i+1:]
		e.skipPartial = false
	}
	e.pending = append(e.pending, p...)
	return n, nil
}

// SkipPartialLine discards the remainder of a line whose start was never
// seen. The tailer calls it when the backlog ends mid-line.
func (e *Extractor) SkipPartialLine() {
	e.skipPartial = true
}

// Lines returns all complete lines written so far, including their line
// terminators, or "" if there are none.
func (e *Extractor) Lines() string {
	i := bytes.LastIndexByte(e.pending, '\n')
	if i < 0 {
		return ""
	}
	text := decode(e.pending[:i+1])
	rest := copy(e.pending, e.pending[i+1:])
	e.pending = e.pending[:rest]
	return text
}

// Entries returns the log entries completed by the lines written so far.
// Without EntryStart every call returns at most one element holding all
// complete lines, as Lines does.
func (e *Extractor) Entries() []string {
	text := e.Lines()
	if text == "" {
		return nil
	}
	if e.EntryStart == nil {
		return []string{text}
	}

	var entries []string
	for text != "" {
		i := strings.IndexByte(text, '\n')
		line := text[:i+1]
		text = text[i+1:]
		if e.open.Len() > 0 && e.EntryStart(line) {
			entries = append(entries, e.open.String())
			e.open.Reset()
		}
		e.open.WriteString(line)
	}
	return entries
}

// Idle is called after a poll that produced no new bytes. Text that stays
// buffered across two consecutive idle polls is returned as-is, since the
// writer has evidently finished it: a partial line without its newline, or
// the open entry.
func (e *Extractor) Idle() string {
	if e.Pending() == 0 {
		return ""
	}
	if !e.stale {
		e.stale = true
		return ""
	}
	return e.Flush()
}

// Flush returns everything buffered, complete or not.
func (e *Extractor) Flush() string {
	if e.Pending() == 0 {
		return ""
	}
	text := e.open.String() + decode(e.pending)
	e.open.Reset()
	e.pending = e.pending[:0]
	e.stale = false
	return text
}

// Reset drops all buffered state.
func (e *Extractor) Reset() {
	e.pending = e.pending[:0]
	e.open.Reset()
	e.stale = false
	e.skipPartial = false
}

// Pending reports how many buffered bytes have not been returned yet.
func (e *Extractor) Pending() int {
	return len(e.pending) + e.open.Len()
}

func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
