package pattern

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eftlog/eftlog-go/internal/safefile"
	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

// Limits applied to pattern files.
const (
	// MaxFileSize bounds the size of a pattern file.
	MaxFileSize = 1 * 1024 * 1024

	// MaxPatternLength bounds a single regex, limiting the cost of
	// pathological expressions.
	MaxPatternLength = 512

	// MaxPatternCount bounds the number of patterns in one file.
	MaxPatternCount = 1000

	// SupportedVersion is the only accepted file format version.
	SupportedVersion = 1
)

// stripPath drops the path from an *os.PathError so error messages do not
// leak file system layout.
func stripPath(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", pathErr.Op, pathErr.Err)
	}
	return err
}

// Load reads, parses and validates a pattern file. FIFOs, devices and other
// special files are rejected before any read.
func Load(path string) (*File, error) {
	f, info, err := safefile.OpenRegular(path)
	if errors.Is(err, safefile.ErrNotRegularFile) {
		return nil, ErrNotRegularFile
	}
	if err != nil {
		return nil, fmt.Errorf("opening pattern file: %w", stripPath(err))
	}
	defer f.Close()

	if info.Size() == 0 {
		return nil, ErrEmptyFile
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, info.Size(), MaxFileSize)
	}

	// One byte over the limit detects a file that grew after the stat.
	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading pattern file: %w", stripPath(err))
	}
	return LoadBytes(data)
}

// LoadBytes parses and validates a pattern file held in memory.
func LoadBytes(data []byte) (*File, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(data), MaxFileSize)
	}

	var pf File
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := pf.Validate(); err != nil {
		return nil, err
	}
	return &pf, nil
}

// Validate checks the file structure. Regular expressions are compiled later
// by NewRules.
func (pf *File) Validate() error {
	if pf.Version != SupportedVersion {
		return &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (only version %d is supported)", pf.Version, SupportedVersion),
		}
	}
	if len(pf.Patterns) == 0 {
		return &ValidationError{Field: "patterns", Message: "at least one pattern is required"}
	}
	if len(pf.Patterns) > MaxPatternCount {
		return &ValidationError{
			Field:   "patterns",
			Message: fmt.Sprintf("too many patterns (%d), maximum allowed is %d", len(pf.Patterns), MaxPatternCount),
		}
	}

	seen := make(map[string]int, len(pf.Patterns))
	for i, p := range pf.Patterns {
		if err := p.validate(i); err != nil {
			return err
		}
		if prev, dup := seen[p.ID]; dup {
			return &PatternError{
				Index:   i,
				ID:      p.ID,
				Field:   "id",
				Message: fmt.Sprintf("duplicate id (previously defined at pattern[%d])", prev),
			}
		}
		seen[p.ID] = i
	}
	return nil
}

func (p Pattern) validate(i int) error {
	fail := func(field, msg string) error {
		return &PatternError{Index: i, ID: p.ID, Field: field, Message: msg}
	}
	switch {
	case p.ID == "":
		return fail("id", "id is required")
	case p.EventType == "":
		return fail("event_type", "event_type is required")
	case p.Regex == "":
		return fail("regex", "regex is required")
	case len(p.Regex) > MaxPatternLength:
		return fail("regex", fmt.Sprintf("pattern too long: %d bytes (max %d)", len(p.Regex), MaxPatternLength))
	case p.Stream != "" && event.ParseStreamKind(p.Stream) == event.StreamUnknown:
		return fail("stream", fmt.Sprintf("unknown stream %q (want application or notifications)", p.Stream))
	}
	return nil
}
