package parser

import "regexp"

// Marker substrings that select which extraction applies to a chunk.
const (
	MarkerMatchOver     = "Got notification | UserMatchOver"
	MarkerQuestFinished = "quest finished"
	MarkerQuestFailed   = "quest failed"
	MarkerQuestStarted  = "quest started"
	MarkerUserConfirmed = "Got notification | UserConfirmed"
	MarkerGamePrepared  = "GamePrepared"
	MarkerChatMessage   = "Got notification | ChatMessageReceived"
)

// Compiled patterns for field extraction.
var (
	// Matches: "location": "bigmap"
	// Captures: (1) map id
	locationPattern = regexp.MustCompile(`"location":\s*"([^"]+)"`)

	// Matches: "shortId": "ABC123"
	// Captures: (1) raid short id
	shortIDPattern = regexp.MustCompile(`"shortId":\s*"([^"]+)"`)

	// Matches: "templateId": "5936d90786f7742b1420ba5b successMessageText"
	// Captures: (1) template id
	templateIDPattern = regexp.MustCompile(`"templateId":\s*"([^"]+)"`)

	// Matches: "GamePrepared:3.45 real:12.5"
	// Captures: (1) real queue time in seconds
	queueTimePattern = regexp.MustCompile(`GamePrepared:[0-9.]+ real:([0-9.]+)`)

	// Matches from a line starting with "{" to the next line starting with "}".
	jsonBlockPattern = regexp.MustCompile(`(?ms)^\{.*?^\}`)
)

// Matches the timestamp that opens every log entry:
// "2024-05-01 18:22:10.123 +03:00|..."
var entryStartPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`)
