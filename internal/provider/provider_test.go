package provider

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/loomworks/loom/internal/chat"
	"github.com/loomworks/loom/internal/stream"
)

// Test vendor config parsing
func TestParseVendorConfig(t *testing.T) {
	cases := map[string]Type{
		"vllm":      TypeVLLM,
		"VLLM":      TypeVLLM,
		"ollama":    TypeOllama,
		"llama.cpp": TypeLlamaCpp,
		"llamacpp":  TypeLlamaCpp,
		"llama":     TypeLlamaCpp,
		"openai":    TypeOpenAI,
		"":          TypeUnknown,
		"auto":      TypeUnknown,
		"mystery":   TypeUnknown,
	}

	for vendor, want := range cases {
		if got := ParseVendorConfig(vendor); got != want {
			t.Errorf("ParseVendorConfig(%q) = %v, want %v", vendor, got, want)
		}
	}
}

// Test URL pattern detection (fast paths only, no probing)
func TestDetectURLPatterns(t *testing.T) {
	ctx := context.Background()

	cases := map[string]Type{
		"https://api.openai.com":    TypeOpenAI,
		"http://ollama.local:11434": TypeOllama,
		"http://vllm-prod:8000/":    TypeVLLM,
		"http://llama-cpp-box:8080": TypeLlamaCpp,
	}

	for host, want := range cases {
		if got := Detect(ctx, host); got != want {
			t.Errorf("Detect(%q) = %v, want %v", host, got, want)
		}
	}
}

// Test explicit provider construction
func TestNewWithType(t *testing.T) {
	cases := []struct {
		providerType  Type
		supportsTools bool
	}{
		{TypeVLLM, true},
		{TypeOpenAI, true},
		{TypeOllama, true},
		{TypeLlamaCpp, false},
	}

	for _, tc := range cases {
		p, err := NewWithType(tc.providerType, "http://localhost:8000/", "")
		if err != nil {
			t.Fatalf("NewWithType(%v) error: %v", tc.providerType, err)
		}
		info := p.Info()
		if info.Type != tc.providerType {
			t.Errorf("type = %v, want %v", info.Type, tc.providerType)
		}
		if info.SupportsTools != tc.supportsTools {
			t.Errorf("%v SupportsTools = %v, want %v", tc.providerType, info.SupportsTools, tc.supportsTools)
		}
		if info.Host != "http://localhost:8000" {
			t.Errorf("host not normalized: %q", info.Host)
		}
	}

	if _, err := NewWithType(TypeVLLM, "", ""); err == nil {
		t.Error("expected error for empty host")
	}
}

// Test that a configured vendor skips detection entirely
func TestNewWithVendorConfig(t *testing.T) {
	p, err := New(context.Background(), "http://10.0.0.5:9999", "openai", "key")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if p.Info().Type != TypeOpenAI {
		t.Errorf("type = %v, want %v", p.Info().Type, TypeOpenAI)
	}
}

// Test conversation flattening to wire messages
func TestToWireMessages(t *testing.T) {
	req := chat.TurnRequest{
		System: "be helpful",
		Messages: []chat.Message{
			chat.UserMessage("list the files"),
			chat.AssistantMessage("", []chat.ToolCall{
				{ID: "call_1", Name: "list_files", Arguments: `{"directory_path":"."}`},
			}),
			chat.ToolMessage("call_1", "main.go"),
		},
	}

	msgs := toWireMessages(req)
	if len(msgs) != 4 {
		t.Fatalf("expected 4 wire messages, got %d", len(msgs))
	}

	if msgs[0].Role != openai.ChatMessageRoleSystem || msgs[0].Content != "be helpful" {
		t.Errorf("unexpected system message: %+v", msgs[0])
	}

	if msgs[1].Role != openai.ChatMessageRoleUser || msgs[1].Content != "list the files" {
		t.Errorf("unexpected user message: %+v", msgs[1])
	}

	asst := msgs[2]
	if asst.Role != openai.ChatMessageRoleAssistant {
		t.Errorf("expected assistant role, got %q", asst.Role)
	}
	if len(asst.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(asst.ToolCalls))
	}
	tc := asst.ToolCalls[0]
	if tc.ID != "call_1" || tc.Type != openai.ToolTypeFunction {
		t.Errorf("unexpected tool call header: %+v", tc)
	}
	if tc.Function.Name != "list_files" || tc.Function.Arguments != `{"directory_path":"."}` {
		t.Errorf("unexpected tool call function: %+v", tc.Function)
	}

	toolMsg := msgs[3]
	if toolMsg.Role != openai.ChatMessageRoleTool || toolMsg.ToolCallID != "call_1" || toolMsg.Content != "main.go" {
		t.Errorf("unexpected tool message: %+v", toolMsg)
	}
}

// Test that a call-only assistant message serializes without a content field
func TestWireMessageOmitsEmptyContent(t *testing.T) {
	msgs := toWireMessages(chat.TurnRequest{
		Messages: []chat.Message{
			chat.AssistantMessage("", []chat.ToolCall{
				{ID: "call_1", Name: "read_file", Arguments: "{}"},
			}),
		},
	})

	data, err := json.Marshal(msgs[0])
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if strings.Contains(string(data), `"content"`) {
		t.Errorf("call-only message should omit content field: %s", data)
	}
	if !strings.Contains(string(data), `"tool_calls"`) {
		t.Errorf("expected tool_calls in: %s", data)
	}

	// A text message keeps its content field
	data, err = json.Marshal(toWireMessages(chat.TurnRequest{
		Messages: []chat.Message{chat.UserMessage("hi")},
	})[0])
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if !strings.Contains(string(data), `"content":"hi"`) {
		t.Errorf("expected content field in: %s", data)
	}
}

// Test tool declaration conversion
func TestToWireTools(t *testing.T) {
	tools := toWireTools([]chat.ToolDeclaration{
		{
			Name:        "read_file",
			Description: "Read a file",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{"type": "string"},
				},
			},
		},
	})

	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].Type != openai.ToolTypeFunction {
		t.Errorf("unexpected tool type: %v", tools[0].Type)
	}
	fn := tools[0].Function
	if fn == nil || fn.Name != "read_file" || fn.Description != "Read a file" {
		t.Errorf("unexpected function definition: %+v", fn)
	}
}

// Test chunk translation into events
func TestChunkEvents(t *testing.T) {
	// Empty choices produce nothing
	if evs := chunkEvents(openai.ChatCompletionStreamResponse{}); len(evs) != 0 {
		t.Errorf("expected no events for empty chunk, got %d", len(evs))
	}

	// Content fragment
	evs := chunkEvents(openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{Content: "Hel"}},
		},
	})
	if len(evs) != 1 || evs[0].Kind != stream.KindContent || evs[0].Text != "Hel" {
		t.Errorf("unexpected content events: %+v", evs)
	}

	// Tool call fragment addressed by index
	idx := 1
	evs = chunkEvents(openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{
				Content: "thinking",
				ToolCalls: []openai.ToolCall{
					{
						Index:    &idx,
						ID:       "call_2",
						Function: openai.FunctionCall{Name: "write_file", Arguments: `{"fi`},
					},
				},
			}},
		},
	})
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Kind != stream.KindContent || evs[0].Text != "thinking" {
		t.Errorf("unexpected first event: %+v", evs[0])
	}
	delta := evs[1]
	if delta.Kind != stream.KindToolCallDelta || delta.Index != 1 || delta.ID != "call_2" {
		t.Errorf("unexpected delta event: %+v", delta)
	}
	if delta.Name != "write_file" || delta.Args != `{"fi` {
		t.Errorf("unexpected delta payload: %+v", delta)
	}

	// Missing index defaults to zero
	evs = chunkEvents(openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{
				ToolCalls: []openai.ToolCall{{Function: openai.FunctionCall{Arguments: `le_"`}}},
			}},
		},
	})
	if len(evs) != 1 || evs[0].Index != 0 || evs[0].Args != `le_"` {
		t.Errorf("unexpected indexless delta: %+v", evs)
	}
}
