package tools

import (
	"context"
	"encoding/json"

	"github.com/loomworks/loom/internal/chat"
)

// Capability controls which execution scope may invoke a handler.
type Capability int

const (
	// CapShared handlers are available to the main agent and to delegated
	// sub-agents alike.
	CapShared Capability = iota
	// CapMain handlers are reserved for the top-level agent.
	CapMain
	// CapDelegated handlers only make sense inside a delegated sub-task.
	CapDelegated
)

// Scope identifies the execution context a dispatch runs under.
type Scope int

const (
	ScopeMain Scope = iota
	ScopeDelegated
)

// Allowed reports whether a handler with the given capability may run in the
// given scope.
func Allowed(c Capability, scope Scope) bool {
	switch c {
	case CapShared:
		return true
	case CapMain:
		return scope == ScopeMain
	case CapDelegated:
		return scope == ScopeDelegated
	default:
		return false
	}
}

// Declaration describes a tool to the model: its wire name, a description the
// model reads, a JSON-schema parameter object, and the capability gate.
type Declaration struct {
	Name        string
	Description string
	Parameters  map[string]any
	Capability  Capability
}

// Result is the outcome of one tool execution. It marshals into the
// tool-role message the model sees; StopLoop and Exit are engine signals and
// never serialize.
type Result struct {
	Success  bool   `json:"success"`
	Content  string `json:"content,omitempty"`
	Error    string `json:"error,omitempty"`
	StopLoop bool   `json:"-"`
	Exit     bool   `json:"-"`
}

// Encode renders the result as the body of its tool-role message.
func (r Result) Encode() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// ExecContext carries the per-run state handlers need: the working directory
// paths resolve against, the capability scope, the shared task board, and,
// for delegated runs, the board task that represents the delegation.
type ExecContext struct {
	WorkingDir string
	Scope      Scope
	Board      Board
	TaskID     string
}

// Board is the slice of the task board handlers touch.
type Board interface {
	Create(name, status string) string
	Update(id, status string)
	Complete(id string, message ...string)
	Fail(id, message string)
}

// Handler is one executable tool.
type Handler interface {
	Declaration() Declaration
	Execute(ctx context.Context, params map[string]any, exec *ExecContext) (Result, error)
}

// funcHandler adapts a plain function to the Handler interface. Most of the
// built-in catalog is declared this way.
type funcHandler struct {
	decl Declaration
	fn   func(ctx context.Context, params map[string]any, exec *ExecContext) (Result, error)
}

func (h *funcHandler) Declaration() Declaration { return h.decl }

func (h *funcHandler) Execute(ctx context.Context, params map[string]any, exec *ExecContext) (Result, error) {
	return h.fn(ctx, params, exec)
}

// textFunc adapts the common handler shape that produces a plain text result
// or an error. Errors become {success:false} at the router.
func textFunc(fn func(params map[string]any, exec *ExecContext) (string, error)) func(context.Context, map[string]any, *ExecContext) (Result, error) {
	return func(_ context.Context, params map[string]any, exec *ExecContext) (Result, error) {
		out, err := fn(params, exec)
		if err != nil {
			return Result{}, err
		}
		return Result{Success: true, Content: out}, nil
	}
}

// Registry is the name-keyed handler catalog. It is assembled once at startup
// and injected wherever tools resolve; it is not safe for concurrent
// mutation after that.
type Registry struct {
	handlers map[string]Handler
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// DefaultRegistry builds the standard catalog. The command runner is injected
// so shell execution shares the caller's batching and board wiring.
func DefaultRegistry(runner *BatchingRunner) *Registry {
	r := NewRegistry()

	// File operations
	r.Register(readFileHandler())
	r.Register(writeFileHandler())
	r.Register(appendFileHandler())
	r.Register(editFileHandler())
	r.Register(insertLinesHandler())
	r.Register(replaceLinesHandler())
	r.Register(deleteLinesHandler())
	r.Register(copyFileHandler())
	r.Register(moveFileHandler())
	r.Register(deleteFileHandler())
	r.Register(createDirectoryHandler())
	r.Register(listFilesHandler())
	r.Register(findFilesHandler())

	// Search and shell
	r.Register(searchFilesHandler())
	r.Register(runCommandHandler(runner))

	// Git operations
	r.Register(gitStatusHandler())
	r.Register(gitDiffHandler())
	r.Register(gitLogHandler())
	r.Register(gitAddHandler())
	r.Register(gitCommitHandler())
	r.Register(gitBranchHandler())

	// Loop control
	r.Register(reportProgressHandler())
	r.Register(finishTaskHandler())
	r.Register(endSessionHandler())

	return r
}

func (r *Registry) Register(h Handler) {
	name := h.Declaration().Name
	if _, exists := r.handlers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.handlers[name] = h
}

func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Declarations returns the wire declarations visible to the given scope, in
// registration order.
func (r *Registry) Declarations(scope Scope) []chat.ToolDeclaration {
	decls := make([]chat.ToolDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decl := r.handlers[name].Declaration()
		if !Allowed(decl.Capability, scope) {
			continue
		}
		decls = append(decls, chat.ToolDeclaration{
			Name:        decl.Name,
			Description: decl.Description,
			Parameters:  decl.Parameters,
		})
	}
	return decls
}

// JSON-schema helpers for parameter declarations.

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func boolProp(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func stringArrayProp(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": description,
	}
}
