package pattern

import (
	"context"
	"testing"

	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

// FuzzRules_Apply checks that arbitrary chunks never panic and that every
// event carries the stream it was classified for.
func FuzzRules_Apply(f *testing.F) {
	rules, err := NewRules(&File{
		Version: 1,
		Patterns: []Pattern{
			{ID: "basic", EventType: "basic", Regex: `Test: (\w+)`},
			{ID: "named", EventType: "named", Regex: `real:(?P<real>[0-9.]+)`},
			{ID: "app_only", EventType: "app_only", Regex: `\|application\|`, Stream: "application"},
		},
	})
	if err != nil {
		f.Fatalf("NewRules() error = %v", err)
	}

	f.Add("2024-05-01 18:00:00.000|Info|application|GamePrepared:1.0 real:12.5\n", 1)
	f.Add("Test: ABC\nTest: DEF\n", 2)
	f.Add("", 1)
	f.Add(string([]byte{0xff, 0xfe, 0xfd}), 2)
	f.Add(string(make([]byte, 2048)), 1)

	ctx := context.Background()
	f.Fuzz(func(t *testing.T, chunk string, kind int) {
		stream := event.StreamKind(kind)
		events, err := rules.Apply(ctx, stream, chunk)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		for _, ev := range events {
			c, ok := ev.(event.Custom)
			if !ok {
				t.Fatalf("unexpected event %T", ev)
			}
			if c.Stream != stream {
				t.Fatalf("stream = %v, want %v", c.Stream, stream)
			}
		}
	})
}
