package context

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ContextFileName is the project guidance file embedded into the system prompt
const ContextFileName = "LOOM.md"

// Build explores the project rooted at rootPath and assembles its full
// context: directory tree, analyzed key files, project type and
// dependencies, build commands, and git state.
func Build(rootPath string, opts ExplorerOptions) (*ProjectContext, error) {
	tree, err := ExploreProject(rootPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to explore project: %w", err)
	}

	now := time.Now()
	ctx := &ProjectContext{
		RootPath:       rootPath,
		CreatedAt:      now,
		UpdatedAt:      now,
		Structure:      tree,
		ImportantFiles: AnalyzeImportantFiles(rootPath, tree),
	}

	detectProjectType(rootPath, ctx)
	extractBuildCommands(rootPath, ctx)
	extractGitInfo(rootPath, ctx)

	return ctx, nil
}

// detectProjectType identifies the project type from manifest files
func detectProjectType(rootPath string, ctx *ProjectContext) {
	// Go project
	if content, err := os.ReadFile(filepath.Join(rootPath, "go.mod")); err == nil {
		ctx.ProjectType = "Go"
		lines := strings.Split(string(content), "\n")
		if len(lines) > 0 {
			ctx.ModuleName = strings.TrimPrefix(strings.TrimSpace(lines[0]), "module ")
		}
		for _, raw := range lines {
			line := strings.TrimSpace(raw)
			if strings.HasPrefix(line, "require ") || (strings.HasPrefix(raw, "\t") && strings.Contains(line, " v")) {
				parts := strings.Fields(line)
				if len(parts) >= 1 {
					dep := strings.TrimSpace(strings.TrimPrefix(parts[0], "require"))
					if dep != "" && dep != "(" && dep != ")" {
						ctx.Dependencies = append(ctx.Dependencies, dep)
					}
				}
			}
		}
		return
	}

	// Node.js project
	if content, err := os.ReadFile(filepath.Join(rootPath, "package.json")); err == nil {
		ctx.ProjectType = "Node.js"
		var pkg map[string]interface{}
		if json.Unmarshal(content, &pkg) == nil {
			if name, ok := pkg["name"].(string); ok {
				ctx.ModuleName = name
			}
			if deps, ok := pkg["dependencies"].(map[string]interface{}); ok {
				for dep := range deps {
					ctx.Dependencies = append(ctx.Dependencies, dep)
				}
			}
		}
		return
	}

	// Python project
	for _, manifest := range []string{"pyproject.toml", "requirements.txt", "setup.py"} {
		if _, err := os.Stat(filepath.Join(rootPath, manifest)); err == nil {
			ctx.ProjectType = "Python"
			return
		}
	}

	// Rust project
	if content, err := os.ReadFile(filepath.Join(rootPath, "Cargo.toml")); err == nil {
		ctx.ProjectType = "Rust"
		for _, line := range strings.Split(string(content), "\n") {
			if strings.HasPrefix(line, "name = ") {
				ctx.ModuleName = strings.Trim(strings.TrimPrefix(line, "name = "), `"'`)
				break
			}
		}
		return
	}
}

// extractBuildCommands extracts build commands from Makefile targets
func extractBuildCommands(rootPath string, ctx *ProjectContext) {
	content, err := os.ReadFile(filepath.Join(rootPath, "Makefile"))
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(content), "\n") {
		// Match targets that are not indented and end with :
		if strings.HasSuffix(line, ":") && !strings.HasPrefix(line, "\t") && !strings.HasPrefix(line, ".") && !strings.HasPrefix(line, " ") {
			target := strings.TrimSuffix(line, ":")
			// Skip targets with special characters or spaces
			if !strings.ContainsAny(target, " \t$%") {
				ctx.BuildCommands = append(ctx.BuildCommands, fmt.Sprintf("make %s", target))
			}
		}
	}
}

// extractGitInfo extracts git repository information
func extractGitInfo(rootPath string, ctx *ProjectContext) {
	if _, err := os.Stat(filepath.Join(rootPath, ".git")); os.IsNotExist(err) {
		return
	}

	ctx.GitInfo = &GitInfo{}

	if out, err := exec.Command("git", "-C", rootPath, "branch", "--show-current").Output(); err == nil {
		ctx.GitInfo.Branch = strings.TrimSpace(string(out))
	}
	if out, err := exec.Command("git", "-C", rootPath, "remote", "get-url", "origin").Output(); err == nil {
		ctx.GitInfo.RemoteURL = strings.TrimSpace(string(out))
	}
	if out, err := exec.Command("git", "-C", rootPath, "status", "--porcelain").Output(); err == nil {
		ctx.GitInfo.HasUncommitted = len(strings.TrimSpace(string(out))) > 0
	}
	if out, err := exec.Command("git", "-C", rootPath, "log", "-1", "--format=%h %s").Output(); err == nil {
		ctx.GitInfo.LastCommit = strings.TrimSpace(string(out))
	}
}

// WriteMarkdown renders the context as LOOM.md in the project root
func WriteMarkdown(ctx *ProjectContext) error {
	var sb strings.Builder

	sb.WriteString("# " + ContextFileName + "\n\n")
	sb.WriteString("This file provides context to Loom. Auto-generated by `/init`.\n\n")

	// Project overview
	sb.WriteString("## Project Overview\n\n")
	if ctx.ProjectType != "" {
		sb.WriteString(fmt.Sprintf("**Type:** %s project\n", ctx.ProjectType))
	}
	if ctx.ModuleName != "" {
		sb.WriteString(fmt.Sprintf("**Module:** %s\n", ctx.ModuleName))
	}
	sb.WriteString("\n")

	// Project structure (tree view)
	sb.WriteString("## Project Structure\n\n```\n")
	writeTreeStructure(&sb, ctx.Structure, "", true)
	sb.WriteString("```\n\n")

	// Important files with summaries
	if len(ctx.ImportantFiles) > 0 {
		sb.WriteString("## Key Files\n\n")
		for _, file := range ctx.ImportantFiles {
			sb.WriteString(fmt.Sprintf("- **`%s`** - %s\n", file.Path, file.Summary))
		}
		sb.WriteString("\n")
	}

	// Build commands
	if len(ctx.BuildCommands) > 0 {
		sb.WriteString("## Build Commands\n\n```bash\n")
		for _, cmd := range ctx.BuildCommands {
			sb.WriteString(cmd + "\n")
		}
		sb.WriteString("```\n\n")
	}

	// Git info
	if ctx.GitInfo != nil && ctx.GitInfo.Branch != "" {
		sb.WriteString("## Git Info\n\n")
		sb.WriteString(fmt.Sprintf("- **Branch:** %s\n", ctx.GitInfo.Branch))
		if ctx.GitInfo.RemoteURL != "" {
			sb.WriteString(fmt.Sprintf("- **Remote:** %s\n", ctx.GitInfo.RemoteURL))
		}
		if ctx.GitInfo.LastCommit != "" {
			sb.WriteString(fmt.Sprintf("- **Last commit:** %s\n", ctx.GitInfo.LastCommit))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n*Edit this file to add custom instructions for Loom.*\n")

	return os.WriteFile(filepath.Join(ctx.RootPath, ContextFileName), []byte(sb.String()), 0644)
}

// writeTreeStructure writes the directory tree in a visual format
func writeTreeStructure(sb *strings.Builder, node *DirectoryTree, prefix string, isLast bool) {
	if node == nil {
		return
	}

	// The root node renders only its children
	if node.Path == "" {
		for i, child := range node.Children {
			writeTreeStructure(sb, child, "", i == len(node.Children)-1)
		}
		return
	}

	connector := "├── "
	if isLast {
		connector = "└── "
	}

	displayName := node.Name
	if node.IsDir {
		displayName += "/"
	}

	sb.WriteString(prefix + connector + displayName + "\n")

	if node.IsDir && len(node.Children) > 0 {
		newPrefix := prefix
		if isLast {
			newPrefix += "    "
		} else {
			newPrefix += "│   "
		}

		for i, child := range node.Children {
			writeTreeStructure(sb, child, newPrefix, i == len(node.Children)-1)
		}
	}
}
