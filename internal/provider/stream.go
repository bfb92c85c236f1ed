package provider

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/loomworks/loom/internal/chat"
	"github.com/loomworks/loom/internal/stream"
)

// StreamClient opens streaming completions against whatever
// OpenAI-compatible endpoint the provider points at.
type StreamClient struct {
	client *openai.Client
	info   *Info
}

// NewStreamClient builds a transport bound to the provider's client and model.
func NewStreamClient(p Provider) *StreamClient {
	return &StreamClient{
		client: p.CreateClient(),
		info:   p.Info(),
	}
}

// Model returns the model name requests are sent with.
func (c *StreamClient) Model() string {
	return c.info.Model
}

// StreamTurn opens one streaming completion for the request. Transient
// connection failures are retried; once the stream is open, receive errors
// are surfaced through the returned EventSource.
func (c *StreamClient) StreamTurn(ctx context.Context, req chat.TurnRequest) (stream.EventSource, error) {
	wireReq := openai.ChatCompletionRequest{
		Model:    c.info.Model,
		Messages: toWireMessages(req),
		Stream:   true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	}
	if len(req.Tools) > 0 && c.info.SupportsTools {
		wireReq.Tools = toWireTools(req.Tools)
	}

	s, err := withRetry(ctx, "create chat stream", func() (*openai.ChatCompletionStream, error) {
		return c.client.CreateChatCompletionStream(ctx, wireReq)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &eventSource{stream: s}, nil
}

// eventSource adapts a go-openai stream to the event contract. Each wire
// chunk is split into per-field events which are queued and drained one
// Recv at a time.
type eventSource struct {
	stream *openai.ChatCompletionStream
	queue  []stream.Event
	usage  *stream.Usage
	ended  bool
}

func (s *eventSource) Recv() (stream.Event, error) {
	for {
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			return ev, nil
		}
		if s.ended {
			return stream.Event{}, io.EOF
		}

		chunk, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.ended = true
			return stream.Event{Kind: stream.KindEndOfTurn}, nil
		}
		if err != nil {
			return stream.Event{}, fmt.Errorf("stream error: %w", err)
		}

		// Usage arrives on the final chunk when IncludeUsage is set.
		if chunk.Usage != nil {
			s.usage = &stream.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}

		s.queue = append(s.queue, chunkEvents(chunk)...)
	}
}

func (s *eventSource) Close() error {
	return s.stream.Close()
}

// TurnUsage reports the token accounting captured from the final chunk.
func (s *eventSource) TurnUsage() (stream.Usage, bool) {
	if s.usage == nil {
		return stream.Usage{}, false
	}
	return *s.usage, true
}

// chunkEvents translates one wire chunk into zero or more events.
func chunkEvents(chunk openai.ChatCompletionStreamResponse) []stream.Event {
	if len(chunk.Choices) == 0 {
		return nil
	}
	delta := chunk.Choices[0].Delta

	var events []stream.Event
	if delta.Content != "" {
		events = append(events, stream.Event{
			Kind: stream.KindContent,
			Text: delta.Content,
		})
	}
	for _, tc := range delta.ToolCalls {
		index := 0
		if tc.Index != nil {
			index = *tc.Index
		}
		events = append(events, stream.Event{
			Kind:  stream.KindToolCallDelta,
			Index: index,
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Args:  tc.Function.Arguments,
		})
	}
	return events
}

// toWireMessages flattens the system prompt plus history into wire messages.
// A nil content is sent as an absent field, which servers accept as null;
// an empty string would be rejected by some of them.
func toWireMessages(req chat.TurnRequest) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, m := range req.Messages {
		wire := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Text(),
			ToolCallID: m.ToolCallID,
		}
		for _, call := range m.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		msgs = append(msgs, wire)
	}

	return msgs
}

// toWireTools converts declarations to the function-tool wire format.
func toWireTools(decls []chat.ToolDeclaration) []openai.Tool {
	tools := make([]openai.Tool, 0, len(decls))
	for _, d := range decls {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return tools
}
