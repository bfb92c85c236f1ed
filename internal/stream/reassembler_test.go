package stream

import (
	"strings"
	"testing"
)

func TestReassemblerContentOnly(t *testing.T) {
	r := NewReassembler(nil)
	r.Consume(Event{Kind: KindContent, Text: "Hello, "})
	r.Consume(Event{Kind: KindContent, Text: "world"})
	r.Consume(Event{Kind: KindEndOfTurn})

	turn := r.Finalize()
	if turn.Content != "Hello, world" {
		t.Errorf("expected concatenated content, got %q", turn.Content)
	}
	if len(turn.Calls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(turn.Calls))
	}
}

func TestReassemblerInterleavedDeltas(t *testing.T) {
	r := NewReassembler(nil)
	r.Consume(Event{Kind: KindContent, Text: "Let me "})
	r.Consume(Event{Kind: KindToolCallDelta, Index: 0, ID: "call_1", Name: "read_file"})
	r.Consume(Event{Kind: KindContent, Text: "check"})
	r.Consume(Event{Kind: KindToolCallDelta, Index: 0, Args: `{"file_path":`})
	r.Consume(Event{Kind: KindContent, Text: " that"})
	r.Consume(Event{Kind: KindToolCallDelta, Index: 0, Args: `"a.txt"}`})
	r.Consume(Event{Kind: KindEndOfTurn})

	turn := r.Finalize()
	if turn.Content != "Let me check that" {
		t.Errorf("content order broken by interleaved tool deltas: %q", turn.Content)
	}
	if len(turn.Calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(turn.Calls))
	}
	call := turn.Calls[0]
	if call.ID != "call_1" || call.Name != "read_file" {
		t.Errorf("unexpected call identity: %+v", call)
	}
	if call.Arguments != `{"file_path":"a.txt"}` {
		t.Errorf("arguments not reassembled: %q", call.Arguments)
	}
}

func TestReassemblerChunkForwarding(t *testing.T) {
	var got []string
	r := NewReassembler(func(s string) { got = append(got, s) })
	r.Consume(Event{Kind: KindContent, Text: "a"})
	r.Consume(Event{Kind: KindToolCallDelta, Index: 0, ID: "c1", Name: "x", Args: "{}"})
	r.Consume(Event{Kind: KindContent, Text: "b"})

	if strings.Join(got, "") != "ab" {
		t.Errorf("chunks not forwarded in arrival order: %v", got)
	}
}

func TestReassemblerIDSetOnce(t *testing.T) {
	r := NewReassembler(nil)
	r.Consume(Event{Kind: KindToolCallDelta, Index: 0, ID: "first", Name: "tool"})
	r.Consume(Event{Kind: KindToolCallDelta, Index: 0, ID: "second", Args: "{}"})

	turn := r.Finalize()
	if len(turn.Calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(turn.Calls))
	}
	if turn.Calls[0].ID != "first" {
		t.Errorf("id must be set by the first non-empty fragment, got %q", turn.Calls[0].ID)
	}
}

func TestReassemblerDropsIncompleteCalls(t *testing.T) {
	cases := []struct {
		name   string
		events []Event
	}{
		{"missing id", []Event{
			{Kind: KindToolCallDelta, Index: 0, Name: "read_file", Args: "{}"},
		}},
		{"missing name", []Event{
			{Kind: KindToolCallDelta, Index: 0, ID: "c1", Args: "{}"},
		}},
		{"truncated args", []Event{
			{Kind: KindToolCallDelta, Index: 0, ID: "c1", Name: "read_file", Args: `{"file_path":`},
		}},
	}

	for _, tc := range cases {
		r := NewReassembler(nil)
		for _, ev := range tc.events {
			r.Consume(ev)
		}
		turn := r.Finalize()
		if len(turn.Calls) != 0 {
			t.Errorf("%s: incomplete call must be dropped, got %+v", tc.name, turn.Calls)
		}
	}
}

func TestReassemblerKeepsCompleteDropsPartial(t *testing.T) {
	r := NewReassembler(nil)
	r.Consume(Event{Kind: KindToolCallDelta, Index: 0, ID: "c0", Name: "read_file", Args: `{"file_path":"a.txt"}`})
	r.Consume(Event{Kind: KindToolCallDelta, Index: 1, ID: "c1", Name: "search_files", Args: `{"pattern":`})

	turn := r.Finalize()
	if len(turn.Calls) != 1 {
		t.Fatalf("expected only the complete call, got %d", len(turn.Calls))
	}
	if turn.Calls[0].ID != "c0" {
		t.Errorf("wrong call survived: %+v", turn.Calls[0])
	}
}

func TestReassemblerOrdersCallsByIndex(t *testing.T) {
	r := NewReassembler(nil)
	r.Consume(Event{Kind: KindToolCallDelta, Index: 2, ID: "c2", Name: "t2", Args: "{}"})
	r.Consume(Event{Kind: KindToolCallDelta, Index: 0, ID: "c0", Name: "t0", Args: "{}"})
	r.Consume(Event{Kind: KindToolCallDelta, Index: 1, ID: "c1", Name: "t1", Args: "{}"})

	turn := r.Finalize()
	if len(turn.Calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(turn.Calls))
	}
	for i, want := range []string{"c0", "c1", "c2"} {
		if turn.Calls[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, turn.Calls[i].ID)
		}
	}
}

func TestReassemblerEmptyTurn(t *testing.T) {
	r := NewReassembler(nil)
	r.Consume(Event{Kind: KindEndOfTurn})

	turn := r.Finalize()
	if turn.Content != "" || len(turn.Calls) != 0 {
		t.Errorf("empty turn must finalize empty, got %+v", turn)
	}
}
