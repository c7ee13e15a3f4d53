package eftlog

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

// Bus delivers events to subscribers, synchronously and in subscription
// order. A subscriber that panics is recovered and logged; the remaining
// subscribers still receive the event.
//
// Bus is safe for concurrent use. Subscribing or unsubscribing from inside a
// handler is allowed and takes effect from the next Publish.
type Bus struct {
	log *slog.Logger

	raid   topic[event.RaidExited]
	quest  topic[event.QuestStatusChanged]
	queue  topic[event.QueueCompleted]
	sale   topic[event.MarketplaceSaleCompleted]
	chunk  topic[event.LogChunk]
	custom topic[event.Custom]
	all    topic[event.Event]
}

// NewBus returns an empty bus. A nil logger disables logging.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = discardLogger
	}
	return &Bus{log: logger}
}

// OnRaidExited subscribes fn to RaidExited events.
func (b *Bus) OnRaidExited(fn func(RaidExited)) (unsubscribe func()) {
	return b.raid.subscribe(fn)
}

// OnQuestStatusChanged subscribes fn to QuestStatusChanged events.
func (b *Bus) OnQuestStatusChanged(fn func(QuestStatusChanged)) (unsubscribe func()) {
	return b.quest.subscribe(fn)
}

// OnQueueCompleted subscribes fn to QueueCompleted events.
func (b *Bus) OnQueueCompleted(fn func(QueueCompleted)) (unsubscribe func()) {
	return b.queue.subscribe(fn)
}

// OnMarketplaceSale subscribes fn to MarketplaceSaleCompleted events.
func (b *Bus) OnMarketplaceSale(fn func(MarketplaceSaleCompleted)) (unsubscribe func()) {
	return b.sale.subscribe(fn)
}

// OnLogChunk subscribes fn to the raw text of every forwarded chunk.
func (b *Bus) OnLogChunk(fn func(LogChunk)) (unsubscribe func()) {
	return b.chunk.subscribe(fn)
}

// OnCustom subscribes fn to events produced by custom rules.
func (b *Bus) OnCustom(fn func(CustomEvent)) (unsubscribe func()) {
	return b.custom.subscribe(fn)
}

// OnAny subscribes fn to every event except LogChunk.
func (b *Bus) OnAny(fn func(Event)) (unsubscribe func()) {
	return b.all.subscribe(fn)
}

// Publish delivers ev to the subscribers of its type, then to OnAny
// subscribers. Events of types the bus does not know go to OnAny only.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case event.RaidExited:
		b.raid.publish(b.log, e)
	case event.QuestStatusChanged:
		b.quest.publish(b.log, e)
	case event.QueueCompleted:
		b.queue.publish(b.log, e)
	case event.MarketplaceSaleCompleted:
		b.sale.publish(b.log, e)
	case event.Custom:
		b.custom.publish(b.log, e)
	case event.LogChunk:
		b.chunk.publish(b.log, e)
		return
	case nil:
		return
	}
	b.all.publish(b.log, ev)
}

// topic is the subscriber list for one event type.
type topic[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

func (t *topic[T]) subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.unsubscribe(id) })
	}
}

func (t *topic[T]) unsubscribe(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.id == id {
			// Copy so a publish iterating the old slice is unaffected.
			subs := make([]subscriber[T], 0, len(t.subs)-1)
			subs = append(subs, t.subs[:i]...)
			t.subs = append(subs, t.subs[i+1:]...)
			return
		}
	}
}

func (t *topic[T]) publish(log *slog.Logger, v T) {
	t.mu.RLock()
	subs := t.subs
	t.mu.RUnlock()

	for _, s := range subs {
		deliver(log, s.fn, v)
	}
}

func deliver[T any](log *slog.Logger, fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("event subscriber panicked",
				"event_type", fmt.Sprintf("%T", v),
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn(v)
}
