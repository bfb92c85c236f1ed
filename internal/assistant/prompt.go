package assistant

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/loomworks/loom/internal/context"
	"github.com/loomworks/loom/internal/storage"
)

const baseSystemPrompt = `You are Loom, an AI-powered CLI assistant for software development running in the user's terminal.
You have FULL ACCESS to the user's filesystem and can execute commands through the tools provided to you.

CRITICAL: You are PROJECT-AWARE and AUTONOMOUS. When the user asks a question about the project, you MUST proactively explore the codebase using your tools to find the answer. NEVER give up after one failed attempt.

## AUTONOMOUS BEHAVIOR

- EXPLORE the project using tools before answering questions
- If search returns no results, try different terms or read files directly
- CHAIN MULTIPLE TOOLS to find complete answers
- NEVER say "I couldn't find" after only one attempt - try 2-3 approaches
- For code questions: search_files, then read the relevant files, then answer

## EDITING STRATEGY

1. ALWAYS read_file before editing to see current content
2. For small changes: use edit_file with exact text match
3. For adding content: use append_file or insert_lines
4. For replacing sections: use replace_lines with line numbers
5. For new files: use write_file
6. NEVER use edit_file with empty old_string

## MULTIPLE TOOL CALLS

When you need information from multiple sources, issue all the tool calls in one turn instead of one at a time. Independent calls run concurrently and their results come back together.

## DELEGATION

For a self-contained multi-step subtask (refactor a package, write a test suite, investigate a bug), use delegate_task to hand it to a background agent. Keep simple one-step work in the main conversation.

## RULES

- Prefer tools over guessing; never invent file contents
- After gathering information, provide a comprehensive answer
- When the user asks to quit or end the session, call end_session`

const delegateSystemPrompt = `You are a focused sub-agent working on one delegated task inside Loom, an AI-powered CLI assistant.
You have access to the user's filesystem and can execute commands through the tools provided to you.

## RULES

- Work autonomously; there is no user to ask questions
- Call report_progress between steps so the operator can follow along
- Stay within the scope of the delegated task
- When the task is done, ALWAYS call finish_task with a summary of what you did`

// buildSystemPrompt assembles the main agent's system prompt: the base
// prompt, project guidance from the context file when present, custom rules
// from the user's preferences, and the working directory.
func buildSystemPrompt(workingDir string, storageMgr *storage.Manager) string {
	prompt := baseSystemPrompt

	var prefs *storage.Preferences
	if storageMgr != nil {
		prefs = storageMgr.GetPreferences()
	}

	if prefs == nil || prefs.AutoLoadContext {
		contextFile := filepath.Join(workingDir, context.ContextFileName)
		if content, err := os.ReadFile(contextFile); err == nil {
			prompt += fmt.Sprintf("\n\n## PROJECT CONTEXT\nThe following is project-specific guidance from %s:\n\n%s", context.ContextFileName, string(content))
		}
	}

	if prefs != nil && len(prefs.CustomPromptRules) > 0 {
		prompt += "\n\n## CUSTOM RULES\n"
		for _, rule := range prefs.CustomPromptRules {
			prompt += fmt.Sprintf("- %s\n", rule)
		}
	}

	prompt += fmt.Sprintf("\n\nCurrent working directory: %s", workingDir)

	return prompt
}

// buildDelegatePrompt assembles the system prompt for a delegated run.
func buildDelegatePrompt(workingDir string) string {
	return delegateSystemPrompt + fmt.Sprintf("\n\nCurrent working directory: %s", workingDir)
}

// InitProject analyzes the project and writes the context file plus the
// cached analysis under the project state directory.
func InitProject(workingDir string) error {
	fmt.Println("Analyzing project structure...")

	storageMgr, err := storage.NewManager(workingDir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	opts := context.DefaultExplorerOptions()
	if prefs := storageMgr.GetPreferences(); prefs != nil && len(prefs.ExcludeDirs) > 0 {
		opts = opts.WithExtraExcludes(prefs.ExcludeDirs)
	}

	fmt.Println("  Exploring directories...")
	projectCtx, err := context.Build(workingDir, opts)
	if err != nil {
		return fmt.Errorf("failed to analyze project: %w", err)
	}

	if err := storageMgr.SaveProjectContext(projectCtx); err != nil {
		fmt.Printf("  Warning: Could not save project context: %v\n", err)
	}

	if err := context.WriteMarkdown(projectCtx); err != nil {
		return fmt.Errorf("failed to generate %s: %w", context.ContextFileName, err)
	}

	printInitSummary(projectCtx)

	return nil
}

func printInitSummary(ctx *context.ProjectContext) {
	fmt.Println()
	fmt.Println("✓ Project initialized successfully!")
	fmt.Println()

	if ctx.ProjectType != "" {
		fmt.Printf("  Type: %s", ctx.ProjectType)
		if ctx.ModuleName != "" {
			fmt.Printf(" (%s)", ctx.ModuleName)
		}
		fmt.Println()
	}

	fileCount := context.CountFiles(ctx.Structure)
	dirCount := context.CountDirs(ctx.Structure)
	fmt.Printf("  Structure: %d files, %d directories\n", fileCount, dirCount)
	fmt.Printf("  Key files analyzed: %d\n", len(ctx.ImportantFiles))

	if len(ctx.BuildCommands) > 0 {
		fmt.Printf("  Build commands: %d\n", len(ctx.BuildCommands))
	}

	if ctx.GitInfo != nil && ctx.GitInfo.Branch != "" {
		fmt.Printf("  Git branch: %s\n", ctx.GitInfo.Branch)
	}

	fmt.Println()
	fmt.Println("  Created:")
	fmt.Printf("    - %s (project context for the assistant)\n", context.ContextFileName)
	fmt.Println("    - .loom/ (preferences, usage, cached context)")
	fmt.Println()
	fmt.Printf("Edit %s to add custom instructions.\n", context.ContextFileName)
}
