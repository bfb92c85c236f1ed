package tools

import (
	"context"
	"fmt"
)

// Loop-control tools. These never touch the filesystem; they steer the
// conversation loop through Result signal flags.

func reportProgressHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "report_progress",
			Description: "Report progress on the current delegated task. Call this between steps of long work",
			Capability:  CapDelegated,
			Parameters: objectSchema(map[string]any{
				"status": stringProp("Short description of the current step"),
			}, "status"),
		},
		fn: func(_ context.Context, params map[string]any, exec *ExecContext) (Result, error) {
			status, ok := stringParam(params, "status")
			if !ok || status == "" {
				return Result{}, fmt.Errorf("status parameter is required")
			}
			if exec.Board != nil && exec.TaskID != "" {
				exec.Board.Update(exec.TaskID, status)
			}
			return Result{Success: true, Content: "progress recorded"}, nil
		},
	}
}

func finishTaskHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "finish_task",
			Description: "Declare the delegated task finished and hand its summary back. Always end a delegated task with this call",
			Capability:  CapDelegated,
			Parameters: objectSchema(map[string]any{
				"summary": stringProp("What was accomplished"),
			}, "summary"),
		},
		fn: func(_ context.Context, params map[string]any, exec *ExecContext) (Result, error) {
			summary, _ := stringParam(params, "summary")
			if exec.Board != nil && exec.TaskID != "" {
				exec.Board.Complete(exec.TaskID, "finished")
			}
			return Result{Success: true, Content: summary, StopLoop: true}, nil
		},
	}
}

func endSessionHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "end_session",
			Description: "End the interactive session when the user asks to quit",
			Capability:  CapMain,
			Parameters:  objectSchema(map[string]any{}),
		},
		fn: func(_ context.Context, _ map[string]any, _ *ExecContext) (Result, error) {
			return Result{Success: true, Content: "session ended", StopLoop: true, Exit: true}, nil
		},
	}
}
