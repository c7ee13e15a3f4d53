package eftlog

import (
	"errors"
	"fmt"

	"github.com/eftlog/eftlog-go/internal/logfinder"
)

// Sentinel errors.
var (
	// ErrMonitorClosed is returned by Start after Close.
	ErrMonitorClosed = errors.New("monitor closed")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("monitor already started")
	// ErrProcessNotFound means the game process is not running.
	ErrProcessNotFound = errors.New("game process not found")
	// ErrLogDirNotFound means no log root could be resolved.
	ErrLogDirNotFound = logfinder.ErrLogDirNotFound
	// ErrNoSessions means the log root holds no session folders yet.
	ErrNoSessions = logfinder.ErrNoSessions
)

// Operations reported in MonitorError.
const (
	OpLocate = "locate"
	OpWatch  = "watch"
	OpScan   = "scan"
	OpTail   = "tail"
	OpParse  = "parse"
)

// MonitorError wraps a failure of one monitor operation.
type MonitorError struct {
	Op   string
	Path string
	Err  error
}

func (e *MonitorError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *MonitorError) Unwrap() error {
	return e.Err
}

// ParseError reports a payload that a rule recognized but could not decode.
// No event is emitted for it.
type ParseError struct {
	Rule string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
