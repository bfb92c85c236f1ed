package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loomworks/loom/internal/batch"
)

var cmdLog = logrus.WithField("component", "command")

const defaultCommandTimeout = 60 * time.Second

// CommandResult captures one shell invocation.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// CommandRunner executes one-shot shell commands. It holds no state: every
// call spawns a fresh `sh -c` with its own timeout.
type CommandRunner struct{}

// Run executes command under sh -c in dir. A non-zero exit status is not an
// error; it is reported in the result. The returned error covers failures to
// run the shell at all.
func (CommandRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) (CommandResult, error) {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		return result, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to run command: %w", err)
	}
	return result, nil
}

type batchedCommand struct {
	dir     string
	command string
	timeout time.Duration
}

type commandOutcome struct {
	result CommandResult
	err    error
}

// BatchingRunner funnels near-simultaneous command invocations through a
// shared batch so they execute together and show up on the task board as one
// entry with a live progress count.
type BatchingRunner struct {
	runner  CommandRunner
	batcher *batch.Batcher[batchedCommand, commandOutcome]
	board   Board
}

// NewBatchingRunner wires a runner to the given board. A nil board disables
// progress display but not batching.
func NewBatchingRunner(board Board, debounce time.Duration) *BatchingRunner {
	br := &BatchingRunner{board: board}
	br.batcher = batch.New(debounce, br.runBatch)
	return br
}

// Run submits a command and blocks until its batch executes.
func (br *BatchingRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) (CommandResult, error) {
	seq := br.batcher.NextSeq()
	outcome, err := br.batcher.Do(ctx, seq, batchedCommand{dir: dir, command: command, timeout: timeout})
	if err != nil {
		return CommandResult{}, err
	}
	return outcome.result, outcome.err
}

func (br *BatchingRunner) runBatch(ctx context.Context, cmds []batchedCommand) []commandOutcome {
	var taskID string
	if br.board != nil {
		name := "shell"
		if len(cmds) == 1 {
			name = firstLine(cmds[0].command)
		}
		taskID = br.board.Create(name, fmt.Sprintf("running %d command(s)", len(cmds)))
	}
	cmdLog.WithField("count", len(cmds)).Debug("executing command batch")

	outcomes := make([]commandOutcome, len(cmds))
	var finished atomic.Int32
	var wg sync.WaitGroup
	for i, c := range cmds {
		wg.Add(1)
		go func(i int, c batchedCommand) {
			defer wg.Done()
			result, err := br.runner.Run(ctx, c.dir, c.command, c.timeout)
			outcomes[i] = commandOutcome{result: result, err: err}
			if taskID != "" {
				n := finished.Add(1)
				br.board.Update(taskID, fmt.Sprintf("%d/%d finished", n, len(cmds)))
			}
		}(i, c)
	}
	wg.Wait()

	if taskID != "" {
		failed := 0
		for _, o := range outcomes {
			if o.err != nil || o.result.ExitCode != 0 || o.result.TimedOut {
				failed++
			}
		}
		if failed > 0 {
			br.board.Fail(taskID, fmt.Sprintf("%d of %d command(s) failed", failed, len(cmds)))
		} else {
			br.board.Complete(taskID, fmt.Sprintf("%d command(s) finished", len(cmds)))
		}
	}
	return outcomes
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	if len(s) > 60 {
		return s[:60]
	}
	return s
}

func runCommandHandler(runner *BatchingRunner) Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "run_command",
			Description: "Run a shell command in the working directory and return its output and exit code",
			Capability:  CapShared,
			Parameters: objectSchema(map[string]any{
				"command": stringProp("Shell command to run"),
				"timeout": numberProp("Timeout in seconds, default 60"),
			}, "command"),
		},
		fn: func(ctx context.Context, params map[string]any, exec *ExecContext) (Result, error) {
			command, ok := stringParam(params, "command")
			if !ok {
				return Result{}, fmt.Errorf("command parameter is required")
			}
			timeout := time.Duration(0)
			if secs, ok := intParam(params, "timeout"); ok && secs > 0 {
				timeout = time.Duration(secs) * time.Second
			}

			result, err := runner.Run(ctx, exec.WorkingDir, command, timeout)
			if err != nil {
				return Result{}, err
			}
			if result.TimedOut {
				return Result{}, fmt.Errorf("command timed out")
			}
			return Result{Success: true, Content: formatCommandResult(command, exec.WorkingDir, result)}, nil
		},
	}
}

func formatCommandResult(command, dir string, result CommandResult) string {
	var out bytes.Buffer
	out.WriteString(fmt.Sprintf("Command: %s\n", command))
	out.WriteString(fmt.Sprintf("Working Directory: %s\n\n", dir))
	if result.Stdout != "" {
		out.WriteString("STDOUT:\n")
		out.WriteString(result.Stdout)
		out.WriteString("\n")
	}
	if result.Stderr != "" {
		out.WriteString("STDERR:\n")
		out.WriteString(result.Stderr)
		out.WriteString("\n")
	}
	out.WriteString(fmt.Sprintf("Exit Code: %d\n", result.ExitCode))
	return out.String()
}

func searchFilesHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "search_files",
			Description: "Search file contents with grep",
			Capability:  CapShared,
			Parameters: objectSchema(map[string]any{
				"pattern":       stringProp("Text or regex pattern to search for"),
				"directory":     stringProp("Directory to search, defaults to the working directory"),
				"context_lines": numberProp("Lines of context around each match"),
				"regex":         boolProp("Interpret the pattern as an extended regex"),
				"file_types":    stringArrayProp("File extensions to include, e.g. .go"),
				"exclude_dirs":  stringArrayProp("Directory names to skip"),
			}, "pattern"),
		},
		fn: textFunc(searchFiles),
	}
}

func searchFiles(params map[string]any, execCtx *ExecContext) (string, error) {
	pattern, ok := stringParam(params, "pattern")
	if !ok {
		return "", fmt.Errorf("pattern parameter is required")
	}
	directory := execCtx.WorkingDir
	if dir, ok := stringParam(params, "directory"); ok && dir != "" {
		directory = resolvePath(dir, execCtx)
	}

	args := []string{"-r", "-n", "-H"}
	if ctxLines, ok := intParam(params, "context_lines"); ok && ctxLines > 0 {
		args = append(args, fmt.Sprintf("-C%d", ctxLines))
	}
	if boolParam(params, "regex") {
		args = append(args, "-E")
	}
	for _, ft := range stringSliceParam(params, "file_types") {
		args = append(args, "--include=*"+ft)
	}
	for _, ed := range stringSliceParam(params, "exclude_dirs") {
		args = append(args, "--exclude-dir="+ed)
	}
	args = append(args, pattern, directory)

	cmd := exec.Command("grep", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Exit code 1 means no matches, not a failure
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "No matches found", nil
		}
		return "", fmt.Errorf("grep failed: %w\n%s", err, stderr.String())
	}
	return stdout.String(), nil
}
