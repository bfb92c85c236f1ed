package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is one named unit of work shown on the board. Completed and Failed
// are terminal and sticky: once either is set the task ignores every later
// transition. TimedOut is advisory, set by the staleness sweep when no
// update arrives within the configured window.
type Task struct {
	ID        string
	Name      string
	Status    string
	Completed bool
	Failed    bool
	TimedOut  bool
	UpdatedAt time.Time
}

// BoardConfig carries the board's policy knobs.
type BoardConfig struct {
	Out        io.Writer
	Interval   time.Duration // repaint tick
	Linger     time.Duration // how long final glyphs stay before the loop stops
	StaleAfter time.Duration // no-update window before a task is marked timed out
}

// DefaultBoardConfig returns the standard board timings.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		Out:        os.Stdout,
		Interval:   80 * time.Millisecond,
		Linger:     500 * time.Millisecond,
		StaleAfter: 60 * time.Second,
	}
}

// TaskBoard renders concurrently-updating tasks as one stable block of
// terminal lines. A single repaint goroutine owns the cursor: it redraws the
// whole block in place on every tick, so public methods only mutate state
// and never touch the terminal themselves. The loop starts lazily on the
// first Create and stops on its own shortly after every task has reached a
// terminal state.
type TaskBoard struct {
	mu        sync.Mutex
	cfg       BoardConfig
	tasks     []*Task
	byID      map[string]*Task
	running   bool
	stop      chan struct{}
	done      chan struct{}
	frameIdx  int
	lastLines int
	idleSince time.Time
}

// NewTaskBoard creates a board with default timings writing to stdout.
func NewTaskBoard() *TaskBoard {
	return NewTaskBoardWithConfig(DefaultBoardConfig())
}

// NewTaskBoardWithConfig creates a board with custom timings or output.
func NewTaskBoardWithConfig(cfg BoardConfig) *TaskBoard {
	def := DefaultBoardConfig()
	if cfg.Out == nil {
		cfg.Out = def.Out
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Linger <= 0 {
		cfg.Linger = def.Linger
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	return &TaskBoard{
		cfg:  cfg,
		byID: make(map[string]*Task),
	}
}

// Create adds a task and returns its id, starting the repaint loop if it is
// not already running.
func (b *TaskBoard) Create(name, status string) string {
	task := &Task{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    status,
		UpdatedAt: time.Now(),
	}

	b.mu.Lock()
	b.tasks = append(b.tasks, task)
	b.byID[task.ID] = task
	b.idleSince = time.Time{}
	if !b.running {
		b.running = true
		b.stop = make(chan struct{})
		b.done = make(chan struct{})
		go b.loop(b.stop, b.done)
	}
	b.mu.Unlock()

	return task.ID
}

// Update changes a task's status line. Terminal and timed-out tasks ignore
// updates.
func (b *TaskBoard) Update(id, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	task, ok := b.byID[id]
	if !ok || task.Completed || task.Failed || task.TimedOut {
		return
	}
	task.Status = status
	task.UpdatedAt = time.Now()
}

// Complete marks a task successful. No-op if the task is already terminal.
func (b *TaskBoard) Complete(id string, message ...string) {
	b.finish(id, true, message...)
}

// Fail marks a task failed. No-op if the task is already terminal.
func (b *TaskBoard) Fail(id, message string) {
	b.finish(id, false, message)
}

func (b *TaskBoard) finish(id string, success bool, message ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	task, ok := b.byID[id]
	if !ok || task.Completed || task.Failed {
		return
	}
	if success {
		task.Completed = true
	} else {
		task.Failed = true
	}
	if len(message) > 0 && message[0] != "" {
		task.Status = message[0]
	}
	task.UpdatedAt = time.Now()
}

// HasActive reports whether any task is still running.
func (b *TaskBoard) HasActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activeLocked()
}

// Snapshot returns a copy of a task's current state, or nil if unknown.
func (b *TaskBoard) Snapshot(id string) *Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	task, ok := b.byID[id]
	if !ok {
		return nil
	}
	copied := *task
	return &copied
}

// Clear removes every task. The repaint loop, if running, stops on its next
// tick since nothing is active.
func (b *TaskBoard) Clear() {
	b.mu.Lock()
	b.tasks = nil
	b.byID = make(map[string]*Task)
	b.mu.Unlock()
}

// IsRunning reports whether the repaint loop is active.
func (b *TaskBoard) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Stop halts the repaint loop and waits for its final frame. Safe to call
// when the loop never started or already stopped on its own.
func (b *TaskBoard) Stop() {
	b.mu.Lock()
	if b.running {
		b.running = false
		close(b.stop)
	}
	done := b.done
	b.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (b *TaskBoard) activeLocked() bool {
	for _, task := range b.tasks {
		if !task.Completed && !task.Failed && !task.TimedOut {
			return true
		}
	}
	return false
}

// sweepLocked marks tasks that missed the staleness window. Advisory only:
// the underlying work keeps running, the board just stops expecting news.
func (b *TaskBoard) sweepLocked(now time.Time) {
	for _, task := range b.tasks {
		if task.Completed || task.Failed || task.TimedOut {
			continue
		}
		if now.Sub(task.UpdatedAt) > b.cfg.StaleAfter {
			task.TimedOut = true
		}
	}
}

func (b *TaskBoard) loop(stop, done chan struct{}) {
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			b.paint()
			close(done)
			return
		case <-ticker.C:
			now := time.Now()
			b.mu.Lock()
			b.sweepLocked(now)
			b.frameIdx++
			idle := !b.activeLocked()
			if idle {
				if b.idleSince.IsZero() {
					b.idleSince = now
				}
			} else {
				b.idleSince = time.Time{}
			}
			expired := idle && now.Sub(b.idleSince) >= b.cfg.Linger
			if expired {
				b.running = false
			}
			b.mu.Unlock()

			b.paint()
			if expired {
				close(done)
				return
			}
		}
	}
}

// paint redraws the task block in place: move the cursor back to the top of
// the previous frame, then rewrite every line. Only the loop goroutine calls
// this, so the cursor has exactly one owner.
func (b *TaskBoard) paint() {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := make([]string, len(b.tasks))
	for i, task := range b.tasks {
		lines[i] = b.renderTaskLocked(task)
	}
	up := b.lastLines
	b.lastLines = len(lines)

	if len(lines) == 0 && up == 0 {
		return
	}

	var frame strings.Builder
	if up > 0 {
		fmt.Fprintf(&frame, "\033[%dA", up)
	}
	for _, line := range lines {
		frame.WriteString("\r\033[K")
		frame.WriteString(line)
		frame.WriteString("\n")
	}
	// Erase lines left over from a taller previous frame.
	if extra := up - len(lines); extra > 0 {
		for i := 0; i < extra; i++ {
			frame.WriteString("\r\033[K\n")
		}
		fmt.Fprintf(&frame, "\033[%dA", extra)
	}
	fmt.Fprint(b.cfg.Out, frame.String())
}

func (b *TaskBoard) renderTaskLocked(task *Task) string {
	var glyph string
	switch {
	case task.Completed:
		glyph = SuccessStyle.Render(IconSuccess)
	case task.Failed:
		glyph = ToolError.Render(IconError)
	case task.TimedOut:
		glyph = WarningStyle.Render(IconWarning)
	default:
		frames := SpinnerFrames.Dots
		glyph = SpinnerStyle.Render(frames[b.frameIdx%len(frames)])
	}

	line := fmt.Sprintf("%s %s: %s", glyph, Bold.Render(task.Name), Subtle.Render(task.Status))
	if task.TimedOut && !task.Completed && !task.Failed {
		line += Subtle.Render(" (stale)")
	}
	return line
}
