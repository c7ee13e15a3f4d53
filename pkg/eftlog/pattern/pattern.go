// Package pattern loads user-defined log rules from YAML files.
//
// Each pattern pairs a regular expression with an event type. Every match in
// a chunk produces one eftlog.CustomEvent whose Data holds the named capture
// groups. The resulting Rules value plugs into eftlog.WithRules and
// eftlog.WithParseRules.
package pattern

// File represents the structure of a YAML pattern file.
//
// Example YAML file:
//
//	version: 1
//	patterns:
//	  - id: insurance_returned
//	    event_type: insurance_returned
//	    stream: notifications
//	    regex: 'Got notification \| InsuranceReturned'
//	  - id: raid_loaded
//	    event_type: raid_loaded
//	    regex: 'LocationLoaded:(?P<load>[0-9.]+) real:(?P<real>[0-9.]+)'
type File struct {
	// Version is the file format version. Only version 1 is supported.
	Version int `yaml:"version"`

	// Patterns is the list of pattern definitions, applied in order.
	Patterns []Pattern `yaml:"patterns"`
}

// Pattern is a single rule definition.
type Pattern struct {
	// ID is unique within a file and names the rule in diagnostics.
	ID string `yaml:"id"`

	// EventType is used as the CustomEvent type.
	EventType string `yaml:"event_type"`

	// Regex is matched against each chunk. Named capture groups
	// (?P<name>...) are copied into CustomEvent.Data.
	Regex string `yaml:"regex"`

	// Stream restricts the pattern to "application" or "notifications".
	// Empty matches both.
	Stream string `yaml:"stream,omitempty"`
}
