// Package parser extracts structured fields from game log chunks.
//
// Every function here works on a whole chunk (one or more log lines) and is
// tolerant of missing fields: an absent value comes back as its zero value.
// Only the embedded JSON payloads can fail to parse.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

// ErrNoPayload is returned when a chunk has no embedded JSON object.
var ErrNoPayload = errors.New("no embedded JSON object")

// capture returns the first capture group of re in chunk, or "".
func capture(re *regexp.Regexp, chunk string) string {
	m := re.FindStringSubmatch(chunk)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// JSONBlock returns the first top-level JSON object in chunk: the text from a
// line that starts with "{" through the next line that starts with "}".
func JSONBlock(chunk string) (string, bool) {
	block := jsonBlockPattern.FindString(chunk)
	return block, block != ""
}

// RaidExit extracts the map and raid id of a match-over notification.
func RaidExit(chunk string) event.RaidExited {
	return event.RaidExited{
		Map:    capture(locationPattern, chunk),
		RaidID: capture(shortIDPattern, chunk),
	}
}

// QuestID extracts the quest template id.
func QuestID(chunk string) string {
	return capture(templateIDPattern, chunk)
}

// QueueTime extracts the real queue time of a game-prepared line in seconds.
// Returns 0 when the value is missing or unreadable.
func QueueTime(chunk string) float64 {
	v, err := strconv.ParseFloat(capture(queueTimePattern, chunk), 64)
	if err != nil {
		return 0
	}
	return v
}

// UserConfirmed is the part of a user-confirmed notification that matters.
type UserConfirmed struct {
	Location string `json:"location"`
	RaidMode string `json:"raidMode"`
}

// ParseUserConfirmed decodes the payload of a user-confirmed notification.
func ParseUserConfirmed(chunk string) (UserConfirmed, error) {
	var uc UserConfirmed
	if err := decodeBlock(chunk, &uc); err != nil {
		return UserConfirmed{}, err
	}
	return uc, nil
}

type chatNotification struct {
	DialogID string `json:"dialogId"`
	Message  struct {
		UID        string `json:"uid"`
		HasRewards bool   `json:"hasRewards"`
		SystemData struct {
			BuyerNickname string `json:"buyerNickname"`
			SoldItem      string `json:"soldItem"`
			ItemCount     int    `json:"itemCount"`
		} `json:"systemData"`
		Items struct {
			Data []struct {
				Tpl string `json:"_tpl"`
				Upd *struct {
					StackObjectsCount *int `json:"StackObjectsCount"`
				} `json:"upd"`
			} `json:"data"`
		} `json:"items"`
	} `json:"message"`
}

// MarketplaceSale decodes a chat-message notification sent by botID.
//
// ok is false when the payload decodes but was sent by someone else. Reward
// items without a stack count count as one; repeated item ids are summed.
func MarketplaceSale(chunk, botID string) (sale event.MarketplaceSaleCompleted, ok bool, err error) {
	var n chatNotification
	if err := decodeBlock(chunk, &n); err != nil {
		return event.MarketplaceSaleCompleted{}, false, err
	}

	sender := n.Message.UID
	if sender == "" {
		sender = n.DialogID
	}
	if sender != botID {
		return event.MarketplaceSaleCompleted{}, false, nil
	}

	sale = event.MarketplaceSaleCompleted{
		Buyer:         n.Message.SystemData.BuyerNickname,
		SoldItemID:    n.Message.SystemData.SoldItem,
		SoldItemCount: n.Message.SystemData.ItemCount,
		ReceivedItems: make(map[string]int),
	}
	if n.Message.HasRewards {
		for _, item := range n.Message.Items.Data {
			count := 1
			if item.Upd != nil && item.Upd.StackObjectsCount != nil {
				count = *item.Upd.StackObjectsCount
			}
			sale.ReceivedItems[item.Tpl] += count
		}
	}
	return sale, true, nil
}

func decodeBlock(chunk string, v any) error {
	block, ok := JSONBlock(chunk)
	if !ok {
		return ErrNoPayload
	}
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}

// IsEntryStart reports whether line opens a new log entry. Continuation
// lines, such as the body of an embedded JSON payload, do not.
func IsEntryStart(line string) bool {
	return entryStartPattern.MatchString(line)
}

// SplitEntries cuts text into log entries at header lines. Text before the
// first header forms an entry of its own. Line terminators are kept, so the
// entries concatenate back to text.
func SplitEntries(text string) []string {
	var entries []string
	start := 0
	for i := 0; i < len(text); {
		j := strings.IndexByte(text[i:], '\n')
		end := len(text)
		if j >= 0 {
			end = i + j + 1
		}
		if i > start && IsEntryStart(text[i:end]) {
			entries = append(entries, text[start:i])
			start = i
		}
		i = end
	}
	if start < len(text) {
		entries = append(entries, text[start:])
	}
	return entries
}
