package tools

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// runGit executes one git subcommand in dir and returns its stdout.
func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w\n%s", args[0], err, stderr.String())
	}
	return stdout.String(), nil
}

func gitStatusHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "git_status",
			Description: "Show the working tree status",
			Capability:  CapShared,
			Parameters:  objectSchema(map[string]any{}),
		},
		fn: textFunc(gitStatus),
	}
}

func gitStatus(_ map[string]any, exec *ExecContext) (string, error) {
	output, err := runGit(exec.WorkingDir, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	if output == "" {
		return "Working tree clean - no changes to commit", nil
	}
	var result strings.Builder
	result.WriteString("Git Status:\n")
	result.WriteString(output)
	return result.String(), nil
}

func gitDiffHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "git_diff",
			Description: "Show unstaged changes, or staged ones with staged=true, optionally for one file",
			Capability:  CapShared,
			Parameters: objectSchema(map[string]any{
				"file_path": stringProp("Limit the diff to one file"),
				"staged":    boolProp("Diff the index instead of the working tree"),
			}),
		},
		fn: textFunc(gitDiff),
	}
}

func gitDiff(params map[string]any, exec *ExecContext) (string, error) {
	args := []string{"diff"}
	if boolParam(params, "staged") {
		args = append(args, "--staged")
	}
	if filePath, ok := stringParam(params, "file_path"); ok && filePath != "" {
		args = append(args, filePath)
	}

	output, err := runGit(exec.WorkingDir, args...)
	if err != nil {
		return "", err
	}
	if output == "" {
		return "No changes to show", nil
	}
	return output, nil
}

func gitLogHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "git_log",
			Description: "Show recent commit history",
			Capability:  CapShared,
			Parameters: objectSchema(map[string]any{
				"limit": numberProp("Number of commits to show, default 10"),
			}),
		},
		fn: textFunc(gitLog),
	}
}

func gitLog(params map[string]any, exec *ExecContext) (string, error) {
	limit := 10
	if l, ok := intParam(params, "limit"); ok {
		limit = l
	}
	return runGit(exec.WorkingDir, "log", fmt.Sprintf("-n%d", limit), "--pretty=format:%h - %s (%an, %ar)")
}

func gitAddHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "git_add",
			Description: "Stage files for commit",
			Capability:  CapMain,
			Parameters: objectSchema(map[string]any{
				"files": stringArrayProp("Paths to stage"),
			}, "files"),
		},
		fn: textFunc(gitAdd),
	}
}

func gitAdd(params map[string]any, exec *ExecContext) (string, error) {
	files := stringSliceParam(params, "files")
	if len(files) == 0 {
		return "", fmt.Errorf("files parameter is required and must be an array")
	}

	args := append([]string{"add"}, files...)
	if _, err := runGit(exec.WorkingDir, args...); err != nil {
		return "", err
	}
	return fmt.Sprintf("Staged %d files for commit", len(files)), nil
}

func gitCommitHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "git_commit",
			Description: "Create a commit from staged changes",
			Capability:  CapMain,
			Parameters: objectSchema(map[string]any{
				"message": stringProp("Commit message"),
			}, "message"),
		},
		fn: textFunc(gitCommit),
	}
}

func gitCommit(params map[string]any, exec *ExecContext) (string, error) {
	message, ok := stringParam(params, "message")
	if !ok || message == "" {
		return "", fmt.Errorf("message parameter is required")
	}

	output, err := runGit(exec.WorkingDir, "commit", "-m", message)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Commit created:\n%s", output), nil
}

func gitBranchHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "git_branch",
			Description: "List local and remote branches",
			Capability:  CapMain,
			Parameters:  objectSchema(map[string]any{}),
		},
		fn: textFunc(gitBranch),
	}
}

func gitBranch(_ map[string]any, exec *ExecContext) (string, error) {
	return runGit(exec.WorkingDir, "branch", "-a")
}
