package eftlog

import "github.com/eftlog/eftlog-go/pkg/eftlog/event"

// Event is implemented by every value published on the bus.
type Event = event.Event

// EventType identifies the kind of an event.
type EventType = event.Type

// Event type aliases for convenience.
const (
	EventRaidExited         = event.TypeRaidExited
	EventQuestStatusChanged = event.TypeQuestStatusChanged
	EventQueueCompleted     = event.TypeQueueCompleted
	EventMarketplaceSale    = event.TypeMarketplaceSale
	EventLogChunk           = event.TypeLogChunk
)

// StreamKind identifies the log file a chunk came from.
type StreamKind = event.StreamKind

// Stream kinds.
const (
	StreamUnknown       = event.StreamUnknown
	StreamApplication   = event.StreamApplication
	StreamNotifications = event.StreamNotifications
)

// QuestStatus is the new state reported for a quest.
type QuestStatus = event.QuestStatus

// Quest statuses.
const (
	QuestStarted  = event.QuestStarted
	QuestFailed   = event.QuestFailed
	QuestFinished = event.QuestFinished
)

// Domain events.
type (
	RaidExited               = event.RaidExited
	QuestStatusChanged       = event.QuestStatusChanged
	QueueCompleted           = event.QueueCompleted
	MarketplaceSaleCompleted = event.MarketplaceSaleCompleted
	LogChunk                 = event.LogChunk
	CustomEvent              = event.Custom
)

// BuiltinEventTypes lists the event types produced without custom rules.
func BuiltinEventTypes() []EventType {
	return []EventType{
		EventRaidExited,
		EventQuestStatusChanged,
		EventQueueCompleted,
		EventMarketplaceSale,
		EventLogChunk,
	}
}
