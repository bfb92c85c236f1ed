package assistant

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/loomworks/loom/internal/chat"
	"github.com/loomworks/loom/internal/stream"
	"github.com/loomworks/loom/internal/tools"
	"github.com/loomworks/loom/internal/ui"
)

var engineLog = logrus.WithField("component", "engine")

// maxToolIterations caps the tool round-trips one run may make. A model that
// keeps calling tools without converging is cut off with an error.
const maxToolIterations = 10

// Transport produces one streamed model turn per request.
type Transport interface {
	StreamTurn(ctx context.Context, req chat.TurnRequest) (stream.EventSource, error)
}

// EngineConfig assembles an Engine. Display may be nil for runs whose output
// should not reach the terminal.
type EngineConfig struct {
	Transport     Transport
	Router        *tools.Router
	Exec          *tools.ExecContext
	Display       Display
	System        string
	Tools         []chat.ToolDeclaration
	EnableSpinner bool
	OnUsage       func(stream.Usage)
	OnToolResult  func(chat.ToolCall, tools.Result)
}

// Engine drives the conversation loop: it streams one model turn, executes
// whatever tools the turn requested, feeds the results back, and repeats
// until a turn produces a plain answer or a tool signals a stop.
//
// History is owned by the engine and survives across Run calls, so one
// engine carries one conversation.
type Engine struct {
	transport     Transport
	router        *tools.Router
	exec          *tools.ExecContext
	display       Display
	system        string
	decls         []chat.ToolDeclaration
	messages      []chat.Message
	enableSpinner bool
	onUsage       func(stream.Usage)
	onToolResult  func(chat.ToolCall, tools.Result)
	exitRequested bool
}

// NewEngine creates an engine with empty history.
func NewEngine(cfg EngineConfig) *Engine {
	display := cfg.Display
	if display == nil {
		display = discardDisplay{}
	}
	return &Engine{
		transport:     cfg.Transport,
		router:        cfg.Router,
		exec:          cfg.Exec,
		display:       display,
		system:        cfg.System,
		decls:         cfg.Tools,
		enableSpinner: cfg.EnableSpinner,
		onUsage:       cfg.OnUsage,
		onToolResult:  cfg.OnToolResult,
	}
}

// Run appends prompt to the conversation and drives it to a final answer.
// Tool execution errors are folded into the conversation and never abort the
// run; transport errors do.
func (e *Engine) Run(ctx context.Context, prompt string) (string, error) {
	e.messages = append(e.messages, chat.UserMessage(prompt))

	for i := 0; i < maxToolIterations; i++ {
		turn, err := e.streamTurn(ctx)
		if err != nil {
			return "", err
		}

		if len(turn.Calls) == 0 {
			// Plain answer. History keeps the raw content; the caller
			// gets it with reasoning spans removed.
			e.messages = append(e.messages, chat.AssistantMessage(turn.Content, nil))
			e.display.Flush()
			return stripThink(turn.Content), nil
		}

		engineLog.WithFields(logrus.Fields{"iteration": i, "calls": len(turn.Calls)}).Debug("executing tool batch")

		e.messages = append(e.messages, chat.AssistantMessage(turn.Content, turn.Calls))
		results := e.router.Dispatch(ctx, e.exec, turn.Calls)

		stopped := false
		stopText := ""
		for idx, call := range turn.Calls {
			res := results[idx]
			if e.onToolResult != nil {
				e.onToolResult(call, res)
			}
			e.messages = append(e.messages, chat.ToolMessage(call.ID, res.Encode()))
			if res.StopLoop && !stopped {
				stopped = true
				stopText = res.Content
			}
			if res.Exit {
				e.exitRequested = true
			}
		}

		if stopped {
			// A control tool ended the run. The turn's narration is
			// dropped, not flushed.
			return stopText, nil
		}
		e.display.Flush()
	}

	return "", fmt.Errorf("conversation did not settle after %d tool rounds", maxToolIterations)
}

// streamTurn runs one model turn: connect, consume the event stream, and
// reassemble the reply. Content fragments reach the display as they arrive,
// with reasoning spans filtered out.
func (e *Engine) streamTurn(ctx context.Context) (stream.Turn, error) {
	var spin *ui.Spinner
	if e.enableSpinner {
		spin = ui.NewSpinner()
		spin.Start("Thinking...")
	}
	stopSpin := func() {
		if spin != nil {
			spin.Stop()
			spin = nil
		}
	}
	defer stopSpin()

	source, err := e.transport.StreamTurn(ctx, chat.TurnRequest{
		System:   e.system,
		Messages: e.messages,
		Tools:    e.decls,
	})
	if err != nil {
		return stream.Turn{}, err
	}
	defer source.Close()

	filter := NewStreamFilter()
	re := stream.NewReassembler(func(text string) {
		if out := filter.Process(text); out != "" {
			stopSpin()
			e.display.Chunk(out)
		}
	})

	for {
		ev, err := source.Recv()
		if err != nil {
			return stream.Turn{}, err
		}
		re.Consume(ev)
		if ev.Kind == stream.KindEndOfTurn {
			break
		}
	}
	stopSpin()

	if rem := filter.Flush(); rem != "" {
		e.display.Chunk(rem)
	}

	if e.onUsage != nil {
		if rep, ok := source.(stream.UsageReporter); ok {
			if usage, ok := rep.TurnUsage(); ok {
				e.onUsage(usage)
			}
		}
	}

	return re.Finalize(), nil
}

// ExitRequested reports whether a tool asked the host process to terminate.
func (e *Engine) ExitRequested() bool {
	return e.exitRequested
}

// SetSystem replaces the system prompt for subsequent turns.
func (e *Engine) SetSystem(system string) {
	e.system = system
}

// Reset drops the conversation history. The system prompt stays.
func (e *Engine) Reset() {
	e.messages = nil
}

// HistoryLen reports how many messages the conversation holds.
func (e *Engine) HistoryLen() int {
	return len(e.messages)
}
