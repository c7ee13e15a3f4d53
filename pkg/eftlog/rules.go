package eftlog

import (
	"context"
	"strings"

	"github.com/eftlog/eftlog-go/internal/parser"
	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

// Rule turns a chunk of log text into zero or more events.
//
// Rules are evaluated independently: a chunk may match several rules, and a
// failure in one rule does not affect the others. Implementations must be
// safe for concurrent use since both streams are classified concurrently.
type Rule interface {
	// Name identifies the rule in diagnostics.
	Name() string
	// Apply returns the events for chunk. A non-nil error means the chunk
	// matched but could not be decoded; any events returned are still
	// published.
	Apply(ctx context.Context, stream StreamKind, chunk string) ([]Event, error)
}

// RuleFunc is an adapter to allow ordinary functions to be used as Rules.
type RuleFunc struct {
	RuleName string
	Fn       func(ctx context.Context, stream StreamKind, chunk string) ([]Event, error)
}

// Name implements Rule.
func (f RuleFunc) Name() string { return f.RuleName }

// Apply implements Rule.
func (f RuleFunc) Apply(ctx context.Context, stream StreamKind, chunk string) ([]Event, error) {
	return f.Fn(ctx, stream, chunk)
}

// builtinRule is one row of the built-in rule table.
type builtinRule struct {
	name   string
	marker string
	apply  func(c *Classifier, chunk string) ([]Event, error)
}

// builtinRules is evaluated in order for every chunk, before custom rules.
var builtinRules = []builtinRule{
	{name: "match_over", marker: parser.MarkerMatchOver, apply: applyMatchOver},
	{name: "quest_finished", marker: parser.MarkerQuestFinished, apply: questRule(event.QuestFinished)},
	{name: "quest_failed", marker: parser.MarkerQuestFailed, apply: questRule(event.QuestFailed)},
	{name: "quest_started", marker: parser.MarkerQuestStarted, apply: questRule(event.QuestStarted)},
	{name: "user_confirmed", marker: parser.MarkerUserConfirmed, apply: applyUserConfirmed},
	{name: "game_prepared", marker: parser.MarkerGamePrepared, apply: applyGamePrepared},
	{name: "marketplace_sale", marker: parser.MarkerChatMessage, apply: applyMarketplaceSale},
}

func applyMatchOver(_ *Classifier, chunk string) ([]Event, error) {
	return []Event{parser.RaidExit(chunk)}, nil
}

func questRule(status event.QuestStatus) func(*Classifier, string) ([]Event, error) {
	return func(_ *Classifier, chunk string) ([]Event, error) {
		return []Event{event.QuestStatusChanged{
			QuestID: parser.QuestID(chunk),
			Status:  status,
		}}, nil
	}
}

func applyUserConfirmed(c *Classifier, chunk string) ([]Event, error) {
	uc, err := parser.ParseUserConfirmed(chunk)
	if err != nil {
		return nil, err
	}
	c.setSession(SessionContext{
		Location: uc.Location,
		Online:   uc.RaidMode == "Online",
		Set:      true,
	})
	return nil, nil
}

func applyGamePrepared(c *Classifier, chunk string) ([]Event, error) {
	session := c.Session()
	if !session.Online {
		return nil, nil
	}
	return []Event{event.QueueCompleted{
		Map:              session.Location,
		QueueTimeSeconds: parser.QueueTime(chunk),
	}}, nil
}

func applyMarketplaceSale(c *Classifier, chunk string) ([]Event, error) {
	if !strings.Contains(chunk, c.botID) {
		return nil, nil
	}
	sale, ok, err := parser.MarketplaceSale(chunk, c.botID)
	if err != nil || !ok {
		return nil, err
	}
	return []Event{sale}, nil
}
