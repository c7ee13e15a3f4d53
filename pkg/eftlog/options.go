package eftlog

import (
	"fmt"
	"log/slog"
	"time"
)

// Defaults.
const (
	DefaultProcessName     = "EscapeFromTarkov"
	DefaultProcessInterval = 30 * time.Second
	DefaultTailInterval    = 5 * time.Second
	DefaultReadSize        = 4096
	// DefaultMarketBotID is the sender id of flea market sale notifications.
	DefaultMarketBotID = "5bdac0b686f7743e1665e09e"
)

// MonitorOption configures a Monitor using the functional options pattern.
type MonitorOption func(*monitorConfig)

// monitorConfig holds internal configuration for the monitor.
type monitorConfig struct {
	processName     string
	processInterval time.Duration
	tailInterval    time.Duration
	readSize        int
	marketBotID     string
	logDir          string
	rules           []Rule
	finder          ProcessFinder
	logger          *slog.Logger
}

func defaultMonitorConfig() *monitorConfig {
	return &monitorConfig{
		processName:     DefaultProcessName,
		processInterval: DefaultProcessInterval,
		tailInterval:    DefaultTailInterval,
		readSize:        DefaultReadSize,
		marketBotID:     DefaultMarketBotID,
		finder:          SystemProcessFinder{},
	}
}

func applyMonitorOptions(opts []MonitorOption) *monitorConfig {
	cfg := defaultMonitorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// validate checks for invalid option values.
func (c *monitorConfig) validate() error {
	if c.processName == "" {
		return fmt.Errorf("process name must not be empty")
	}
	if c.processInterval <= 0 {
		return fmt.Errorf("process interval must be positive, got %v", c.processInterval)
	}
	if c.tailInterval <= 0 {
		return fmt.Errorf("tail interval must be positive, got %v", c.tailInterval)
	}
	if c.readSize <= 0 {
		return fmt.Errorf("read size must be positive, got %d", c.readSize)
	}
	if c.marketBotID == "" {
		return fmt.Errorf("market bot id must not be empty")
	}
	if c.finder == nil {
		return fmt.Errorf("process finder must not be nil")
	}
	return nil
}

// WithProcessName sets the executable name to look for, with or without
// ".exe". Matching is case-insensitive. Default: EscapeFromTarkov.
func WithProcessName(name string) MonitorOption {
	return func(c *monitorConfig) {
		c.processName = name
	}
}

// WithProcessInterval sets how often the process is looked up.
// Default: 30 seconds.
func WithProcessInterval(d time.Duration) MonitorOption {
	return func(c *monitorConfig) {
		c.processInterval = d
	}
}

// WithTailInterval sets how often each log file is polled for new bytes.
// Default: 5 seconds.
func WithTailInterval(d time.Duration) MonitorOption {
	return func(c *monitorConfig) {
		c.tailInterval = d
	}
}

// WithReadSize sets the buffer size for each read from a log file.
// Default: 4096 bytes.
func WithReadSize(n int) MonitorOption {
	return func(c *monitorConfig) {
		c.readSize = n
	}
}

// WithMarketBotID sets the sender id whose chat messages are flea market
// sales.
func WithMarketBotID(id string) MonitorOption {
	return func(c *monitorConfig) {
		c.marketBotID = id
	}
}

// WithLogDir sets the log root (the folder holding session folders) instead
// of deriving it from the executable path.
// Can also be set via the EFTLOG_LOGDIR environment variable.
func WithLogDir(dir string) MonitorOption {
	return func(c *monitorConfig) {
		c.logDir = dir
	}
}

// WithRules appends custom rules. They run after the built-in rules, in the
// order given. Nil rules are ignored.
func WithRules(rules ...Rule) MonitorOption {
	return func(c *monitorConfig) {
		for _, r := range rules {
			if r != nil {
				c.rules = append(c.rules, r)
			}
		}
	}
}

// WithProcessFinder replaces the process lookup. Useful for tests and for
// callers that already know where the game lives.
func WithProcessFinder(f ProcessFinder) MonitorOption {
	return func(c *monitorConfig) {
		c.finder = f
	}
}

// WithLogger sets a custom logger for debug output.
// If logger is nil, logging is disabled (default behavior).
func WithLogger(logger *slog.Logger) MonitorOption {
	return func(c *monitorConfig) {
		c.logger = logger
	}
}
