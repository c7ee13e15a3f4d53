package main

import (
	"fmt"

	"github.com/eftlog/eftlog-go/pkg/eftlog"
	"github.com/eftlog/eftlog-go/pkg/eftlog/pattern"
)

// loadRules compiles pattern files into custom rules that run after the
// built-in ones. It also returns the event types those files can emit so the
// --types filter accepts them. No paths means no custom rules.
func loadRules(paths []string) ([]eftlog.Rule, []eftlog.EventType, error) {
	if len(paths) == 0 {
		return nil, nil, nil
	}

	rules := make([]eftlog.Rule, 0, len(paths))
	var types []eftlog.EventType
	for i, path := range paths {
		r, err := pattern.NewRulesFromFile(path)
		if err != nil {
			// Error from pattern package is already sanitized (no path)
			return nil, nil, fmt.Errorf("pattern file %d: %w", i+1, err)
		}
		rules = append(rules, r)
		types = append(types, r.EventTypes()...)
	}
	return rules, types, nil
}
