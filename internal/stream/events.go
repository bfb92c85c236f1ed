package stream

// EventKind discriminates the events a transport produces for one turn.
type EventKind int

const (
	// KindContent carries a fragment of the assistant's text.
	KindContent EventKind = iota
	// KindToolCallDelta carries a fragment of one tool call, addressed by
	// its index in the turn's tool-call list.
	KindToolCallDelta
	// KindEndOfTurn marks the end of the turn. No further events follow.
	KindEndOfTurn
)

// Event is one transport-level streaming event. Which fields are meaningful
// depends on Kind: Text for KindContent; Index plus any of ID, Name, Args
// for KindToolCallDelta. Fragments for the same Index arrive in order, but
// tool-call deltas and content deltas may interleave arbitrarily.
type Event struct {
	Kind  EventKind
	Text  string
	Index int
	ID    string
	Name  string
	Args  string
}

// EventSource yields the events of a single model turn. Recv returns io.EOF
// after the end-of-turn event has been delivered. Close releases the
// underlying connection and is safe to call at any point.
type EventSource interface {
	Recv() (Event, error)
	Close() error
}

// Usage is the token accounting for one completed turn.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// UsageReporter is implemented by event sources that learn token usage
// from the wire. Figures are valid only after the end-of-turn event.
type UsageReporter interface {
	TurnUsage() (Usage, bool)
}
