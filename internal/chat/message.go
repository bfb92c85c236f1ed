package chat

// Message roles as used on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in the conversation history. History is append-only:
// messages are never mutated after being appended.
//
// Content is a pointer so an assistant message that carries only tool calls
// can be sent with a null content field. Some servers reject an empty string
// there, so it must stay nil, never "".
type Message struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is one complete tool invocation requested by the model.
// Arguments is the full JSON object for the call, reassembled from
// stream fragments before the call is ever dispatched.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDeclaration describes a callable tool to the model.
// Parameters is a JSON-schema object.
type ToolDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// TurnRequest is what the engine hands to a transport for one model turn.
type TurnRequest struct {
	System   string
	Messages []Message
	Tools    []ToolDeclaration
}

// SystemMessage builds a system-role message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: &text}
}

// UserMessage builds a user-role message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: &text}
}

// AssistantMessage builds an assistant message from the finalized turn.
// A turn that produced only tool calls gets a nil content.
func AssistantMessage(content string, calls []ToolCall) Message {
	msg := Message{Role: RoleAssistant, ToolCalls: calls}
	if content != "" {
		msg.Content = &content
	}
	return msg
}

// ToolMessage builds the tool-role result message for one call.
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: &content, ToolCallID: callID}
}

// Text returns the message content, or "" when content is null.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}
