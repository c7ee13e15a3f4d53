package eftlog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/eftlog/eftlog-go/internal/parser"
	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

// SessionContext is what the classifier remembers about the raid being
// prepared. It changes only when a session-confirmation line is seen.
type SessionContext struct {
	// Location is the map of the last confirmed session.
	Location string
	// Online is true when the confirmed raid mode was "Online".
	Online bool
	// Set is false until the first confirmation.
	Set bool
}

// Diagnostics for malformed payloads are limited to a short burst, then one
// per warnInterval, so a corrupted log cannot flood the logger.
const (
	warnInterval = 10 * time.Second
	warnBurst    = 5
)

// Classifier matches log chunks against the rule table and produces events.
//
// The built-in rules run first, in a fixed order, followed by custom rules.
// Classifier is safe for concurrent use.
type Classifier struct {
	botID string
	rules []Rule
	log   *slog.Logger
	warn  *rate.Limiter

	mu      sync.Mutex
	session SessionContext
}

// NewClassifier creates a classifier. botID is the sender id of flea market
// notifications; an empty botID uses DefaultMarketBotID. A nil logger
// disables logging.
func NewClassifier(botID string, rules []Rule, logger *slog.Logger) *Classifier {
	if botID == "" {
		botID = DefaultMarketBotID
	}
	if logger == nil {
		logger = discardLogger
	}
	return &Classifier{
		botID: botID,
		rules: rules,
		log:   logger,
		warn:  rate.NewLimiter(rate.Every(warnInterval), warnBurst),
	}
}

// Session returns a copy of the current session context.
func (c *Classifier) Session() SessionContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Classifier) setSession(s SessionContext) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.log.Debug("session confirmed", "location", s.Location, "online", s.Online)
}

// Classify returns the events for one chunk. The chunk is split into log
// entries at timestamped header lines and each entry is classified in order:
// a LogChunk carrying the entry text, followed by the events of every
// matching rule in table order. Malformed payloads are logged and skipped.
func (c *Classifier) Classify(ctx context.Context, stream StreamKind, chunk string) []Event {
	var events []Event
	for _, entry := range parser.SplitEntries(chunk) {
		if ctx.Err() != nil {
			break
		}
		events = c.classifyEntry(ctx, stream, entry, events)
	}
	return events
}

func (c *Classifier) classifyEntry(ctx context.Context, stream StreamKind, entry string, events []Event) []Event {
	events = append(events, event.LogChunk{Stream: stream, Text: entry})

	for _, r := range builtinRules {
		if !strings.Contains(entry, r.marker) {
			continue
		}
		evs, err := r.apply(c, entry)
		if err != nil {
			c.warnf(&ParseError{Rule: r.name, Err: err}, stream)
		}
		events = append(events, evs...)
	}

	for _, r := range c.rules {
		if ctx.Err() != nil {
			break
		}
		evs, err := r.Apply(ctx, stream, entry)
		if err != nil && ctx.Err() == nil {
			c.warnf(&ParseError{Rule: r.Name(), Err: err}, stream)
		}
		events = append(events, evs...)
	}
	return events
}

func (c *Classifier) warnf(err *ParseError, stream StreamKind) {
	if !c.warn.Allow() {
		c.log.Debug("payload skipped", "rule", err.Rule, "stream", stream, "error", err.Err)
		return
	}
	c.log.Warn("payload skipped", "rule", err.Rule, "stream", stream, "error", err.Err)
}
