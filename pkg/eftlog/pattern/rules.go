package pattern

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/eftlog/eftlog-go/pkg/eftlog"
	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

// Rules is an eftlog.Rule backed by the patterns of one file.
//
// Patterns are tried in file order and each one reports every
// non-overlapping match in the chunk, since a chunk can hold many lines.
// Rules is safe for concurrent use by multiple goroutines.
type Rules struct {
	name     string
	patterns []*compiledPattern
}

type compiledPattern struct {
	id        string
	eventType event.Type
	stream    event.StreamKind // StreamUnknown matches every stream
	regex     *regexp.Regexp
	named     bool
}

var _ eftlog.Rule = (*Rules)(nil)

// NewRules compiles the patterns of pf.
//
// Example:
//
//	pf, err := pattern.Load("patterns.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rules, err := pattern.NewRules(pf)
func NewRules(pf *File) (*Rules, error) {
	if pf == nil {
		return nil, fmt.Errorf("pattern file is nil")
	}

	patterns := make([]*compiledPattern, 0, len(pf.Patterns))
	for i, p := range pf.Patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, &PatternError{
				Index:   i,
				ID:      p.ID,
				Field:   "regex",
				Message: fmt.Sprintf("invalid regular expression: %v", err),
				Cause:   err,
			}
		}

		named := false
		for _, n := range re.SubexpNames()[1:] {
			if n != "" {
				named = true
				break
			}
		}

		patterns = append(patterns, &compiledPattern{
			id:        p.ID,
			eventType: event.Type(p.EventType),
			stream:    event.ParseStreamKind(p.Stream),
			regex:     re,
			named:     named,
		})
	}
	return &Rules{name: "patterns", patterns: patterns}, nil
}

// NewRulesFromFile loads a pattern file and compiles it in one step.
func NewRulesFromFile(path string) (*Rules, error) {
	pf, err := Load(path)
	if err != nil {
		return nil, err
	}
	r, err := NewRules(pf)
	if err != nil {
		return nil, err
	}
	r.name = filepath.Base(path)
	return r, nil
}

// Len returns the number of patterns.
func (r *Rules) Len() int { return len(r.patterns) }

// EventTypes returns the event types the patterns produce, in file order,
// without duplicates.
func (r *Rules) EventTypes() []event.Type {
	seen := make(map[event.Type]bool, len(r.patterns))
	var types []event.Type
	for _, cp := range r.patterns {
		if !seen[cp.eventType] {
			seen[cp.eventType] = true
			types = append(types, cp.eventType)
		}
	}
	return types
}

// Name implements eftlog.Rule.
func (r *Rules) Name() string { return r.name }

// Apply implements eftlog.Rule. It never fails; the error result only
// reports cancellation between patterns.
func (r *Rules) Apply(ctx context.Context, stream event.StreamKind, chunk string) ([]eftlog.Event, error) {
	var events []eftlog.Event
	for _, cp := range r.patterns {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		if cp.stream != event.StreamUnknown && cp.stream != stream {
			continue
		}
		for _, m := range cp.regex.FindAllStringSubmatch(chunk, -1) {
			events = append(events, cp.event(stream, m))
		}
	}
	return events, nil
}

func (cp *compiledPattern) event(stream event.StreamKind, match []string) event.Custom {
	ev := event.Custom{Type: cp.eventType, Stream: stream}
	if !cp.named {
		// Data stays nil, not an empty map.
		return ev
	}
	names := cp.regex.SubexpNames()
	ev.Data = make(map[string]string, len(names)-1)
	for i := 1; i < len(names) && i < len(match); i++ {
		if names[i] != "" {
			ev.Data[names[i]] = match[i]
		}
	}
	return ev
}
