package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/loomworks/loom/internal/tools"
)

// delegateHandler implements the delegate_task tool. It spawns a scoped
// sub-engine that shares the session's transport, router, and board, but
// sees only the delegated tool surface and writes nothing to the terminal.
type delegateHandler struct {
	assistant *Assistant
}

func (h *delegateHandler) Declaration() tools.Declaration {
	return tools.Declaration{
		Name:        "delegate_task",
		Description: "Delegate a self-contained subtask to a background agent. The agent works autonomously with the same tools and reports back a summary. Use for multi-step work like refactorings or test suites; keep one-step work in the main conversation",
		Capability:  tools.CapMain,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task": map[string]any{
					"type":        "string",
					"description": "Complete description of the subtask, including everything the agent needs to know to work unattended",
				},
			},
			"required": []string{"task"},
		},
	}
}

func (h *delegateHandler) Execute(ctx context.Context, params map[string]any, exec *tools.ExecContext) (tools.Result, error) {
	task, _ := params["task"].(string)
	if strings.TrimSpace(task) == "" {
		return tools.Result{}, fmt.Errorf("task parameter is required")
	}

	var taskID string
	if exec.Board != nil {
		taskID = exec.Board.Create(taskTitle(task), "starting")
	}

	a := h.assistant
	sub := NewEngine(EngineConfig{
		Transport: a.transport,
		Router:    a.router,
		Exec: &tools.ExecContext{
			WorkingDir: exec.WorkingDir,
			Scope:      tools.ScopeDelegated,
			Board:      exec.Board,
			TaskID:     taskID,
		},
		System:  buildDelegatePrompt(exec.WorkingDir),
		Tools:   a.registry.Declarations(tools.ScopeDelegated),
		OnUsage: a.recordUsage,
	})

	final, err := sub.Run(ctx, task)
	if err != nil {
		if exec.Board != nil && taskID != "" {
			exec.Board.Fail(taskID, err.Error())
		}
		return tools.Result{}, fmt.Errorf("delegated task failed: %w", err)
	}

	// finish_task normally completes the board task; this covers a sub-run
	// that ended with a plain answer instead. No-op when already terminal.
	if exec.Board != nil && taskID != "" {
		exec.Board.Complete(taskID, "done")
	}

	if strings.TrimSpace(final) == "" {
		final = "delegated task finished with no summary"
	}
	return tools.Result{Success: true, Content: final}, nil
}

// taskTitle condenses a task description into a board row name.
func taskTitle(task string) string {
	title := strings.Join(strings.Fields(task), " ")
	if len(title) > 48 {
		title = title[:45] + "..."
	}
	return title
}
