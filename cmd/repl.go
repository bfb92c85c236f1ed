package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/loomworks/loom/internal/assistant"
	"github.com/loomworks/loom/internal/ui"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/viper"
)

func startREPL() {
	// Get configuration from config or environment
	host := viper.GetString("host")
	if host == "" {
		fmt.Fprintln(os.Stderr, "Error: LLM server host not found.")
		fmt.Fprintln(os.Stderr, "Set it via:")
		fmt.Fprintln(os.Stderr, "  - Environment variable: export LOOM_HOST=http://localhost:11434")
		fmt.Fprintln(os.Stderr, "  - Config file: ~/.loom/config.yaml")
		fmt.Fprintln(os.Stderr, "  - Command flag: --host http://localhost:11434")
		os.Exit(1)
	}

	cfg := assistant.Config{
		Host:          host,
		APIKey:        viper.GetString("key"),
		Model:         viper.GetString("model"),
		Vendor:        viper.GetString("vendor"),
		Streaming:     !viper.GetBool("no_stream"),
		EnableSpinner: !viper.GetBool("no_spinner"),
		EnableBoard:   !viper.GetBool("no_board"),
		BatchDebounce: time.Duration(viper.GetInt("batch_debounce_ms")) * time.Millisecond,
		StaleTimeout:  time.Duration(viper.GetInt("task_stale_timeout_s")) * time.Second,
	}

	// Get working directory
	workingDir, _ := os.Getwd()

	// Create renderer for styled output
	renderer := ui.NewRenderer()

	// Print welcome message
	fmt.Print(renderer.WelcomeMessage())

	// Check for project context
	contextFile := filepath.Join(workingDir, "LOOM.md")
	projectLoaded := false
	if _, err := os.Stat(contextFile); err == nil {
		projectLoaded = true
	}
	fmt.Print(renderer.ProjectContextMessage(projectLoaded))

	// Initialize the assistant
	asst, err := assistant.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing assistant: %v\n", err)
		os.Exit(1)
	}
	defer asst.Close()

	// Show provider info
	if providerInfo := asst.GetProviderInfo(); providerInfo != nil {
		fmt.Print(renderer.ProviderMessage(providerInfo))
	}
	fmt.Println()

	// Setup readline for interactive input with @ file completion
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[34m❯\033[0m ",
		HistoryFile:     os.Getenv("HOME") + "/.loom/history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    NewFileCompleter(workingDir),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	// Main REPL loop
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or Ctrl+C
			fmt.Println("\nGoodbye!")
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Expand @ file references before processing
		if strings.Contains(line, "@") {
			if !isInitializedProject(workingDir) {
				fmt.Println("💡 Tip: Run /init to enable @ file references with Tab completion")
				// Continue without expanding - treat @ as literal text
			} else {
				expandedLine, err := expandFileReferences(line, workingDir)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					continue
				}
				line = expandedLine
			}
		}

		// Handle built-in commands
		if strings.HasPrefix(line, "/") {
			handleCommand(line, workingDir, asst)
			continue
		}

		if line == "exit" || line == "quit" {
			fmt.Println("Goodbye!")
			break
		}

		// Process the user's message
		if err := asst.ProcessMessage(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Println()

		// The model can end the session itself via the end_session tool
		if asst.ExitRequested() {
			fmt.Println("Goodbye!")
			break
		}
	}
}

func handleCommand(cmd string, workingDir string, asst *assistant.Assistant) {
	parts := strings.Fields(cmd)
	baseCmd := parts[0]

	switch baseCmd {
	case "/init":
		if err := assistant.InitProject(workingDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		// Pick up the fresh context without rebuilding the session
		asst.ReloadContext()
		fmt.Println("Assistant reloaded with project context.")
		fmt.Println()

	case "/help":
		fmt.Println("Available commands:")
		fmt.Println()
		fmt.Println("  Project:")
		fmt.Println("    /init      - Initialize project (creates LOOM.md and .loom/)")
		fmt.Println("    /reload    - Reload project context from LOOM.md")
		fmt.Println("    /status    - Show project and provider status")
		fmt.Println()
		fmt.Println("  Conversation:")
		fmt.Println("    /clear     - Clear the conversation history")
		fmt.Println("    /model     - Pick a model from the server's list")
		fmt.Println("    /usage     - Show token usage statistics")
		fmt.Println()
		fmt.Println("  Other:")
		fmt.Println("    /help      - Show this help message")
		fmt.Println("    exit       - Exit Loom")
		fmt.Println()
		fmt.Println("  File References (requires /init):")
		fmt.Println("    @<Tab>   - Show file completion list")
		fmt.Println("    @path    - Include specific file (e.g., @src/main.go)")
		fmt.Println()

	case "/usage":
		r := ui.NewRenderer()
		fmt.Println(r.FormatUsage(asst.GetUsage(), asst.GetAggregateUsage()))

	case "/reload":
		asst.ReloadContext()
		fmt.Println("Project context reloaded.")
		fmt.Println()

	case "/clear":
		asst.ClearConversation()
		fmt.Println("Conversation cleared.")
		fmt.Println()

	case "/model":
		handleModelSelect(asst)

	case "/status":
		handleStatus(asst, workingDir)

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		fmt.Println("Type '/help' for available commands.")
		fmt.Println()
	}
}

// handleModelSelect lists the server's models and switches the session to
// the chosen one.
func handleModelSelect(asst *assistant.Assistant) {
	models, err := asst.DetectModels()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error detecting models: %v\n", err)
		return
	}
	if len(models) == 0 {
		fmt.Println("No models reported by the server.")
		fmt.Println()
		return
	}

	searcher := func(input string, index int) bool {
		return len(fuzzy.Find(input, []string{models[index]})) > 0
	}

	prompt := promptui.Select{
		Label:             fmt.Sprintf("Select a model (current: %s)", asst.GetModel()),
		Items:             models,
		Size:              10,
		Searcher:          searcher,
		StartInSearchMode: true,
		HideSelected:      true,
	}

	_, selected, err := prompt.Run()
	if err != nil {
		fmt.Println("Model selection cancelled.")
		fmt.Println()
		return
	}

	asst.SetModel(selected)
	fmt.Printf("Model set to %s.\n", selected)
	fmt.Println()
}

// handleStatus displays project and provider status
func handleStatus(asst *assistant.Assistant, workingDir string) {
	fmt.Println("Status:")
	fmt.Println()

	// Provider info
	providerInfo := asst.GetProviderInfo()
	if providerInfo != nil {
		fmt.Printf("  Provider: %s (%s)\n", providerInfo.Name, providerInfo.Type)
		fmt.Printf("  Host: %s\n", providerInfo.Host)
		fmt.Printf("  Model: %s\n", providerInfo.Model)
	}

	// Project info
	contextFile := filepath.Join(workingDir, "LOOM.md")
	if _, err := os.Stat(contextFile); err == nil {
		fmt.Println("  Project: Initialized")

		// Try to read the cached context for more info
		projectFile := filepath.Join(workingDir, ".loom", "context", "project.json")
		if _, err := os.Stat(projectFile); err == nil {
			fmt.Println("  Context: Cached in .loom/context/")
		}
	} else {
		fmt.Println("  Project: Not initialized (run /init)")
	}

	fmt.Printf("  Conversation: %d messages\n", asst.ConversationLen())
	fmt.Println()
}
