// Package event defines the event types emitted by eftlog.
//
// It is split from the main package so internal packages can construct events
// without importing the monitor.
package event

// Type identifies the kind of an event.
type Type string

// Event types emitted by the built-in classifier rules.
const (
	TypeRaidExited         Type = "raid_exited"
	TypeQuestStatusChanged Type = "quest_status_changed"
	TypeQueueCompleted     Type = "queue_completed"
	TypeMarketplaceSale    Type = "marketplace_sale"
	TypeLogChunk           Type = "log_chunk"
)

// Event is implemented by every value published on the bus.
type Event interface {
	EventType() Type
}

// StreamKind identifies which log file a chunk came from.
type StreamKind int

const (
	// StreamUnknown is the zero value and never matches a log file.
	StreamUnknown StreamKind = iota
	// StreamApplication is the "application" log.
	StreamApplication
	// StreamNotifications is the "notifications" log.
	StreamNotifications
)

// StreamKinds lists every recognized stream kind.
var StreamKinds = []StreamKind{StreamApplication, StreamNotifications}

func (k StreamKind) String() string {
	switch k {
	case StreamApplication:
		return "application"
	case StreamNotifications:
		return "notifications"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k StreamKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseStreamKind converts a stream name ("application", "notifications")
// into a StreamKind. Unrecognized names return StreamUnknown.
func ParseStreamKind(s string) StreamKind {
	switch s {
	case "application":
		return StreamApplication
	case "notifications":
		return StreamNotifications
	default:
		return StreamUnknown
	}
}

// QuestStatus is the new state reported for a quest.
type QuestStatus int

const (
	QuestStarted QuestStatus = iota
	QuestFailed
	QuestFinished
)

func (s QuestStatus) String() string {
	switch s {
	case QuestStarted:
		return "started"
	case QuestFailed:
		return "failed"
	case QuestFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s QuestStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RaidExited is emitted when the player leaves a raid.
type RaidExited struct {
	Map    string `json:"map"`
	RaidID string `json:"raid_id"`
}

// QuestStatusChanged is emitted when a quest is started, failed or finished.
type QuestStatusChanged struct {
	QuestID string      `json:"quest_id"`
	Status  QuestStatus `json:"status"`
}

// QueueCompleted is emitted when matchmaking finishes for an online raid.
type QueueCompleted struct {
	Map              string  `json:"map"`
	QueueTimeSeconds float64 `json:"queue_time_seconds"`
}

// MarketplaceSaleCompleted is emitted when a flea market offer is bought.
// ReceivedItems maps item template ids to stack counts.
type MarketplaceSaleCompleted struct {
	Buyer         string         `json:"buyer"`
	SoldItemID    string         `json:"sold_item_id"`
	SoldItemCount int            `json:"sold_item_count"`
	ReceivedItems map[string]int `json:"received_items"`
}

// LogChunk carries the raw text of a chunk forwarded by a tailer.
type LogChunk struct {
	Stream StreamKind `json:"stream"`
	Text   string     `json:"text"`
}

// Custom is produced by user-defined pattern rules.
// Data holds the named capture groups of the matching regex.
type Custom struct {
	Type   Type              `json:"type"`
	Stream StreamKind        `json:"stream"`
	Data   map[string]string `json:"data,omitempty"`
}

func (RaidExited) EventType() Type               { return TypeRaidExited }
func (QuestStatusChanged) EventType() Type       { return TypeQuestStatusChanged }
func (QueueCompleted) EventType() Type           { return TypeQueueCompleted }
func (MarketplaceSaleCompleted) EventType() Type { return TypeMarketplaceSale }
func (LogChunk) EventType() Type                 { return TypeLogChunk }
func (c Custom) EventType() Type                 { return c.Type }

// Envelope is the wire form of an event: {"type": ..., "data": {...}}.
type Envelope struct {
	Type Type  `json:"type"`
	Data Event `json:"data"`
}

// Wrap returns the envelope for ev.
func Wrap(ev Event) Envelope {
	return Envelope{Type: ev.EventType(), Data: ev}
}
