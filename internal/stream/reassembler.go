package stream

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/loomworks/loom/internal/chat"
)

var reassemblerLog = logrus.WithField("component", "reassembler")

// Turn is the reconstructed result of one model turn: the full assistant
// text and every tool call that arrived complete.
type Turn struct {
	Content string
	Calls   []chat.ToolCall
}

// pendingCall accumulates the fragments of one tool call while the turn
// streams. ID is set once by the first non-empty fragment; Name and Args
// grow by concatenation.
type pendingCall struct {
	id   string
	name strings.Builder
	args strings.Builder
}

// Reassembler consumes the event stream of a single turn and rebuilds the
// assistant text plus any tool calls from their fragments. Content fragments
// are forwarded to the chunk callback as they arrive, before it is known
// whether the turn ends in tool calls, so explanatory text ahead of a call
// still renders live.
//
// A Reassembler is single-turn and single-goroutine; build a fresh one per
// turn.
type Reassembler struct {
	content strings.Builder
	calls   map[int]*pendingCall
	onChunk func(string)
}

// NewReassembler returns a Reassembler for one turn. onChunk may be nil when
// no live display is attached.
func NewReassembler(onChunk func(string)) *Reassembler {
	return &Reassembler{
		calls:   make(map[int]*pendingCall),
		onChunk: onChunk,
	}
}

// Consume folds one event into the turn state.
func (r *Reassembler) Consume(ev Event) {
	switch ev.Kind {
	case KindContent:
		if ev.Text == "" {
			return
		}
		r.content.WriteString(ev.Text)
		if r.onChunk != nil {
			r.onChunk(ev.Text)
		}
	case KindToolCallDelta:
		pc := r.calls[ev.Index]
		if pc == nil {
			pc = &pendingCall{}
			r.calls[ev.Index] = pc
		}
		if pc.id == "" && ev.ID != "" {
			pc.id = ev.ID
		}
		pc.name.WriteString(ev.Name)
		pc.args.WriteString(ev.Args)
	case KindEndOfTurn:
		// Finalize does the assembly; nothing to fold here.
	}
}

// Finalize returns the turn's text and the completed tool calls ordered by
// stream index. An entry missing its id or name, or whose arguments are not
// a complete JSON value, was truncated mid-stream; it is dropped rather than
// handed to execution, because a malformed call would poison the next
// request's history.
func (r *Reassembler) Finalize() Turn {
	turn := Turn{Content: r.content.String()}

	indexes := make([]int, 0, len(r.calls))
	for idx := range r.calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	for _, idx := range indexes {
		pc := r.calls[idx]
		name := pc.name.String()
		args := pc.args.String()
		if pc.id == "" || name == "" || !json.Valid([]byte(args)) {
			reassemblerLog.WithFields(logrus.Fields{
				"index": idx,
				"name":  name,
			}).Debug("dropping incomplete tool call")
			continue
		}
		turn.Calls = append(turn.Calls, chat.ToolCall{
			ID:        pc.id,
			Name:      name,
			Arguments: args,
		})
	}
	return turn
}
