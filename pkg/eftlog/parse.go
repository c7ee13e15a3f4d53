package eftlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/eftlog/eftlog-go/internal/logfinder"
	"github.com/eftlog/eftlog-go/internal/parser"
	"github.com/eftlog/eftlog-go/internal/safefile"
)

// ParseOption configures ParseFile and ParseReader.
type ParseOption func(*parseConfig)

type parseConfig struct {
	marketBotID   string
	rules         []Rule
	includeChunks bool
	logger        *slog.Logger
}

func applyParseOptions(opts []ParseOption) *parseConfig {
	cfg := &parseConfig{marketBotID: DefaultMarketBotID}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithParseRules appends custom rules for offline parsing.
func WithParseRules(rules ...Rule) ParseOption {
	return func(c *parseConfig) {
		for _, r := range rules {
			if r != nil {
				c.rules = append(c.rules, r)
			}
		}
	}
}

// WithParseMarketBotID sets the flea market sender id.
func WithParseMarketBotID(id string) ParseOption {
	return func(c *parseConfig) {
		c.marketBotID = id
	}
}

// WithParseIncludeChunks keeps LogChunk events in the result.
// Default: false.
func WithParseIncludeChunks(include bool) ParseOption {
	return func(c *parseConfig) {
		c.includeChunks = include
	}
}

// WithParseLogger sets a logger for skipped payloads.
func WithParseLogger(logger *slog.Logger) ParseOption {
	return func(c *parseConfig) {
		c.logger = logger
	}
}

// ParseFile classifies a whole existing log file, backlog included, and
// returns its events in file order. The stream kind is inferred from the
// file name.
//
// Entries are split at timestamped header lines, so a header and its JSON
// payload are classified together. Session context carries over between
// entries exactly as it does when tailing.
//
// Example:
//
//	events, err := eftlog.ParseFile(ctx, `Logs\log_2024.05.01_18-00-00_1.0.0\2024.05.01_18-00-00_1.0.0 notifications.log`)
func ParseFile(ctx context.Context, path string, opts ...ParseOption) ([]Event, error) {
	kind := logfinder.KindOf(path)
	if kind == StreamUnknown {
		return nil, &MonitorError{Op: OpParse, Path: path, Err: errors.New("not an application or notifications log")}
	}

	f, _, err := safefile.OpenRegular(path)
	if err != nil {
		return nil, &MonitorError{Op: OpParse, Path: path, Err: err}
	}
	defer f.Close()

	events, err := ParseReader(ctx, kind, f, opts...)
	if err != nil {
		return events, &MonitorError{Op: OpParse, Path: path, Err: err}
	}
	return events, nil
}

// ParseReader classifies log text read from r as the given stream.
// On a read error or cancellation the events found so far are returned
// together with the error.
func ParseReader(ctx context.Context, stream StreamKind, r io.Reader, opts ...ParseOption) ([]Event, error) {
	cfg := applyParseOptions(opts)
	c := NewClassifier(cfg.marketBotID, cfg.rules, cfg.logger)

	var events []Event
	emit := func(entry string) {
		for _, ev := range c.Classify(ctx, stream, entry) {
			if _, isChunk := ev.(LogChunk); isChunk && !cfg.includeChunks {
				continue
			}
			events = append(events, ev)
		}
	}

	br := bufio.NewReader(r)
	var entry strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return events, err
		}

		line, err := br.ReadString('\n')
		if line != "" {
			if parser.IsEntryStart(line) && entry.Len() > 0 {
				emit(entry.String())
				entry.Reset()
			}
			entry.WriteString(strings.ToValidUTF8(line, "�"))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return events, fmt.Errorf("reading log: %w", err)
		}
	}
	if entry.Len() > 0 {
		emit(entry.String())
	}
	return events, nil
}
