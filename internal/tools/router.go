package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loomworks/loom/internal/batch"
	"github.com/loomworks/loom/internal/chat"
)

var routerLog = logrus.WithField("component", "router")

type dispatchItem struct {
	call chat.ToolCall
	exec *ExecContext
}

// Router executes a turn's tool calls against a registry. Results come back
// one per call, in call order, regardless of how long each handler takes.
// Calls entering within the batcher's debounce window run as one round with a
// goroutine per handler.
type Router struct {
	registry *Registry
	batcher  *batch.Batcher[dispatchItem, Result]
}

func NewRouter(registry *Registry, debounce time.Duration) *Router {
	r := &Router{registry: registry}
	r.batcher = batch.New(debounce, r.runRound)
	return r
}

// Dispatch runs calls and returns exactly one result per call, positionally.
func (r *Router) Dispatch(ctx context.Context, exec *ExecContext, calls []chat.ToolCall) []Result {
	if len(calls) == 0 {
		return nil
	}
	// A single call skips the batch entirely
	if len(calls) == 1 {
		return []Result{r.execute(ctx, exec, calls[0])}
	}

	// Sequence ids are taken in call order so the round function sees
	// payloads in the same order the model issued them.
	seqs := make([]int64, len(calls))
	for i := range calls {
		seqs[i] = r.batcher.NextSeq()
	}

	results := make([]Result, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call chat.ToolCall) {
			defer wg.Done()
			res, err := r.batcher.Do(ctx, seqs[i], dispatchItem{call: call, exec: exec})
			if err != nil {
				res = Result{Success: false, Error: err.Error()}
			}
			results[i] = res
		}(i, call)
	}
	wg.Wait()
	return results
}

func (r *Router) runRound(ctx context.Context, items []dispatchItem) []Result {
	routerLog.WithField("count", len(items)).Debug("dispatching tool batch")

	results := make([]Result, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item dispatchItem) {
			defer wg.Done()
			results[i] = r.execute(ctx, item.exec, item.call)
		}(i, item)
	}
	wg.Wait()
	return results
}

// execute resolves and runs one call. Handler panics and returned errors
// both come back as failed results so a bad tool never kills the loop.
func (r *Router) execute(ctx context.Context, exec *ExecContext, call chat.ToolCall) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			routerLog.WithFields(logrus.Fields{"tool": call.Name, "panic": p}).Error("tool handler panicked")
			res = Result{Success: false, Error: fmt.Sprintf("tool %s panicked: %v", call.Name, p)}
		}
	}()

	handler, ok := r.registry.Get(call.Name)
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("unknown tool: %s", call.Name)}
	}
	if !Allowed(handler.Declaration().Capability, exec.Scope) {
		return Result{Success: false, Error: fmt.Sprintf("tool %s is not available in this context", call.Name)}
	}

	params, err := parseArguments(call.Arguments)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	result, err := handler.Execute(ctx, params, exec)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return result
}

func parseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}
