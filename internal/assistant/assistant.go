package assistant

import (
	gocontext "context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loomworks/loom/internal/chat"
	"github.com/loomworks/loom/internal/context"
	"github.com/loomworks/loom/internal/provider"
	"github.com/loomworks/loom/internal/storage"
	"github.com/loomworks/loom/internal/stream"
	"github.com/loomworks/loom/internal/tools"
	"github.com/loomworks/loom/internal/ui"
)

var assistantLog = logrus.WithField("component", "assistant")

// Timeout constants
const (
	providerInitTimeout = 2 * time.Minute // Provider setup including detection retries
	apiResponseTimeout  = 5 * time.Minute
	modelQueryTimeout   = 30 * time.Second
)

// Config carries the options the CLI resolves before a session starts.
type Config struct {
	Host          string
	APIKey        string
	Model         string
	Vendor        string
	Streaming     bool
	EnableSpinner bool
	EnableBoard   bool
	BatchDebounce time.Duration
	StaleTimeout  time.Duration
}

// Assistant owns one interactive session: the provider connection, the tool
// catalog, the task board, and the conversation engine.
type Assistant struct {
	provider   provider.Provider
	transport  *provider.StreamClient
	model      string
	registry   *tools.Registry
	router     *tools.Router
	board      *ui.TaskBoard
	engine     *Engine
	renderer   *ui.Renderer
	workingDir string

	storage    *storage.Manager
	projectCtx *context.ProjectContext

	usageMu      sync.Mutex
	sessionUsage storage.TokenUsage
}

func New(cfg Config) (*Assistant, error) {
	renderer := ui.NewRenderer()

	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// Storage comes up first so preferences can steer model selection.
	// Failure is non-fatal; the session just runs without persistence.
	storageMgr, err := storage.NewManager(workingDir)
	if err != nil {
		fmt.Println(renderer.WarningMessage(fmt.Sprintf("Could not initialize storage: %v", err)))
		storageMgr = nil
	}

	configModel := cfg.Model
	if configModel == "" && storageMgr != nil {
		if prefs := storageMgr.GetPreferences(); prefs != nil {
			configModel = prefs.PreferredModel
		}
	}

	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), providerInitTimeout)
	defer cancel()

	// Create provider (auto-detects vendor if not specified)
	prov, err := provider.New(ctx, cfg.Host, cfg.Vendor, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	model, err := selectModel(ctx, prov, configModel, renderer)
	if err != nil {
		return nil, err
	}
	prov.SetModel(model)

	var projectCtx *context.ProjectContext
	if storageMgr != nil {
		projectCtx, _ = storageMgr.LoadProjectContext()
	}

	var board *ui.TaskBoard
	var execBoard tools.Board
	if cfg.EnableBoard {
		boardCfg := ui.DefaultBoardConfig()
		if cfg.StaleTimeout > 0 {
			boardCfg.StaleAfter = cfg.StaleTimeout
		}
		board = ui.NewTaskBoardWithConfig(boardCfg)
		execBoard = board
	}

	runner := tools.NewBatchingRunner(execBoard, cfg.BatchDebounce)
	registry := tools.DefaultRegistry(runner)
	router := tools.NewRouter(registry, cfg.BatchDebounce)

	a := &Assistant{
		provider:   prov,
		transport:  provider.NewStreamClient(prov),
		model:      model,
		registry:   registry,
		router:     router,
		board:      board,
		renderer:   renderer,
		workingDir: workingDir,
		storage:    storageMgr,
		projectCtx: projectCtx,
	}

	// The delegate tool closes over the assistant so sub-agents share its
	// transport, router, and board. Registered before declarations are
	// snapshotted below.
	registry.Register(&delegateHandler{assistant: a})

	var display Display
	if cfg.Streaming {
		display = NewStreamDisplay()
	} else {
		display = NewBufferedDisplay()
	}

	a.engine = NewEngine(EngineConfig{
		Transport: a.transport,
		Router:    router,
		Exec: &tools.ExecContext{
			WorkingDir: workingDir,
			Scope:      tools.ScopeMain,
			Board:      execBoard,
		},
		Display:       display,
		System:        buildSystemPrompt(workingDir, storageMgr),
		Tools:         registry.Declarations(tools.ScopeMain),
		EnableSpinner: cfg.EnableSpinner,
		OnUsage:       a.recordUsage,
		OnToolResult:  a.printToolStatus,
	})

	return a, nil
}

// selectModel picks the model for the session. A server-detected model wins
// unless the configured one is actually served; detection failure falls back
// to the configured model when there is one.
func selectModel(ctx gocontext.Context, prov provider.Provider, configModel string, renderer *ui.Renderer) (string, error) {
	models, err := prov.DetectModels(ctx)
	if err != nil {
		if configModel != "" {
			fmt.Println(renderer.WarningMessage(fmt.Sprintf("Could not auto-detect model (%v), using configured model: %s", err, configModel)))
			return configModel, nil
		}
		return "", fmt.Errorf("failed to detect model and no fallback configured: %w", err)
	}

	if len(models) > 0 {
		if configModel != "" {
			for _, m := range models {
				if m == configModel {
					return configModel, nil
				}
			}
		}
		model := models[0]
		if configModel != "" && configModel != model {
			fmt.Println(renderer.InfoMessage(fmt.Sprintf("Configured model '%s' ignored. Using server model: %s", configModel, model)))
		} else {
			fmt.Println(renderer.SuccessMessage(fmt.Sprintf("Auto-detected model: %s", model)))
		}
		return model, nil
	}

	if configModel != "" {
		return configModel, nil
	}
	return "", fmt.Errorf("no models available and no fallback configured")
}

// ProcessMessage runs one user prompt through the conversation loop. The
// final answer reaches the terminal through the display sink; the returned
// error is nil unless the transport failed or the loop ran away.
func (a *Assistant) ProcessMessage(userMessage string) error {
	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), apiResponseTimeout)
	defer cancel()

	_, err := a.engine.Run(ctx, userMessage)
	return err
}

// recordUsage folds one turn's token accounting into the session counters
// and the persisted aggregate. Delegated runs report through here too.
func (a *Assistant) recordUsage(u stream.Usage) {
	usage := storage.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}

	a.usageMu.Lock()
	a.sessionUsage.Add(usage)
	a.usageMu.Unlock()

	if a.storage != nil {
		if err := a.storage.RecordUsage(a.model, usage); err != nil {
			assistantLog.WithError(err).Debug("could not persist usage")
		}
	}
}

// printToolStatus renders one finished tool call as a concise status line.
// The board is settled first so its repaint loop is not mid-block when the
// line prints.
func (a *Assistant) printToolStatus(call chat.ToolCall, res tools.Result) {
	if a.board != nil && a.board.IsRunning() {
		a.board.Stop()
	}

	var params map[string]any
	_ = json.Unmarshal([]byte(call.Arguments), &params)

	body := res.Content
	if !res.Success {
		body = res.Error
	}
	fmt.Println(a.renderer.FormatToolStatus(call.Name, params, body, !res.Success))
}

// GetUsage returns a copy of this session's token counters.
func (a *Assistant) GetUsage() *storage.TokenUsage {
	a.usageMu.Lock()
	defer a.usageMu.Unlock()
	u := a.sessionUsage
	return &u
}

// GetAggregateUsage returns the persisted all-time usage log, or nil when
// storage is unavailable.
func (a *Assistant) GetAggregateUsage() *storage.UsageLog {
	if a.storage == nil {
		return nil
	}
	return a.storage.GetUsage()
}

// GetProviderInfo returns information about the current LLM provider.
func (a *Assistant) GetProviderInfo() *provider.Info {
	if a.provider == nil {
		return nil
	}
	return a.provider.Info()
}

// GetModel returns the active model.
func (a *Assistant) GetModel() string {
	return a.model
}

// DetectModels queries the server for its model list.
func (a *Assistant) DetectModels() ([]string, error) {
	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), modelQueryTimeout)
	defer cancel()
	return a.provider.DetectModels(ctx)
}

// SetModel switches the active model and records it as the preferred one.
func (a *Assistant) SetModel(model string) {
	a.model = model
	a.provider.SetModel(model)

	if a.storage != nil {
		prefs := a.storage.GetPreferences()
		if prefs == nil {
			prefs = storage.DefaultPreferences()
		}
		prefs.PreferredModel = model
		if err := a.storage.SavePreferences(prefs); err != nil {
			assistantLog.WithError(err).Debug("could not persist preferred model")
		}
	}
}

// ExitRequested reports whether a tool asked the host process to terminate.
func (a *Assistant) ExitRequested() bool {
	return a.engine.ExitRequested()
}

// HasProjectContext reports whether a cached project analysis was loaded.
func (a *Assistant) HasProjectContext() bool {
	return a.projectCtx != nil
}

// WorkingDir returns the directory the session operates in.
func (a *Assistant) WorkingDir() string {
	return a.workingDir
}

// ConversationLen reports how many messages the conversation holds.
func (a *Assistant) ConversationLen() int {
	return a.engine.HistoryLen()
}

// ClearConversation drops the in-memory conversation history.
func (a *Assistant) ClearConversation() {
	a.engine.Reset()
}

// ReloadContext re-reads the cached project analysis and rebuilds the
// system prompt. Called after /init so the running session picks the new
// context up without a restart.
func (a *Assistant) ReloadContext() {
	if a.storage != nil {
		a.projectCtx, _ = a.storage.LoadProjectContext()
	}
	a.engine.SetSystem(buildSystemPrompt(a.workingDir, a.storage))
}

// Close settles the task board. Safe to call more than once.
func (a *Assistant) Close() {
	if a.board != nil {
		a.board.Stop()
	}
}
