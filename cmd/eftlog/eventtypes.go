package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eftlog/eftlog-go/pkg/eftlog"
)

// ValidEventTypes maps CLI names to built-in event types.
var ValidEventTypes = func() map[string]eftlog.EventType {
	m := make(map[string]eftlog.EventType)
	for _, t := range eftlog.BuiltinEventTypes() {
		m[string(t)] = t
	}
	return m
}()

// ValidEventTypeNames returns the built-in event type names, sorted.
func ValidEventTypeNames() []string {
	names := make([]string, 0, len(ValidEventTypes))
	for name := range ValidEventTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildTypeFilter turns --types values into a set. Custom types from loaded
// pattern files are accepted alongside the built-in ones. Values may be
// comma-separated and are matched case-insensitively. An empty result means
// no filtering.
func buildTypeFilter(values []string, custom []eftlog.EventType) (map[eftlog.EventType]bool, error) {
	known := make(map[string]eftlog.EventType, len(ValidEventTypes)+len(custom))
	for name, t := range ValidEventTypes {
		known[name] = t
	}
	for _, t := range custom {
		known[strings.ToLower(string(t))] = t
	}

	filter := make(map[eftlog.EventType]bool)
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			t, ok := known[name]
			if !ok {
				return nil, fmt.Errorf("unknown event type %q (valid: %s)",
					name, strings.Join(ValidEventTypeNames(), ", "))
			}
			filter[t] = true
		}
	}
	return filter, nil
}
