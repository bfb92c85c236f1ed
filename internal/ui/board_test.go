package ui

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"
)

func newTestBoard(out io.Writer, stale time.Duration) *TaskBoard {
	return NewTaskBoardWithConfig(BoardConfig{
		Out:        out,
		Interval:   5 * time.Millisecond,
		Linger:     20 * time.Millisecond,
		StaleAfter: stale,
	})
}

func TestTaskBoardCreateAndUpdate(t *testing.T) {
	board := newTestBoard(io.Discard, time.Minute)
	defer board.Stop()

	id := board.Create("build", "starting")
	if id == "" {
		t.Fatal("Create returned empty id")
	}
	if !board.HasActive() {
		t.Error("Expected active task after Create")
	}

	board.Update(id, "compiling")
	task := board.Snapshot(id)
	if task == nil {
		t.Fatal("Snapshot returned nil for known id")
	}
	if task.Status != "compiling" {
		t.Errorf("Expected status %q, got %q", "compiling", task.Status)
	}

	// Unknown ids are ignored
	board.Update("nope", "whatever")
	board.Complete("nope")
	board.Fail("nope", "whatever")
}

func TestTaskBoardTerminalStatesSticky(t *testing.T) {
	board := newTestBoard(io.Discard, time.Minute)
	defer board.Stop()

	id := board.Create("deploy", "running")
	board.Complete(id, "done")

	// Later transitions must not land
	board.Fail(id, "should not apply")
	board.Update(id, "should not apply")

	task := board.Snapshot(id)
	if !task.Completed {
		t.Error("Expected task to stay completed")
	}
	if task.Failed {
		t.Error("Fail after Complete should be a no-op")
	}
	if task.Status != "done" {
		t.Errorf("Status changed after terminal state: %q", task.Status)
	}

	id2 := board.Create("deploy2", "running")
	board.Fail(id2, "broke")
	board.Complete(id2, "should not apply")

	task2 := board.Snapshot(id2)
	if !task2.Failed || task2.Completed {
		t.Error("Expected task2 to stay failed")
	}
	if task2.Status != "broke" {
		t.Errorf("Status changed after terminal state: %q", task2.Status)
	}
}

func TestTaskBoardHasActive(t *testing.T) {
	board := newTestBoard(io.Discard, time.Minute)
	defer board.Stop()

	a := board.Create("one", "running")
	b := board.Create("two", "running")

	if !board.HasActive() {
		t.Error("Expected active tasks")
	}

	board.Complete(a)
	if !board.HasActive() {
		t.Error("One task still running, expected active")
	}

	board.Fail(b, "err")
	if board.HasActive() {
		t.Error("All tasks terminal, expected no active")
	}
}

func TestTaskBoardStaleTaskTimesOut(t *testing.T) {
	board := newTestBoard(io.Discard, 30*time.Millisecond)
	defer board.Stop()

	id := board.Create("slow", "waiting")
	time.Sleep(100 * time.Millisecond)

	task := board.Snapshot(id)
	if !task.TimedOut {
		t.Fatal("Expected task to be marked timed out")
	}
	if board.HasActive() {
		t.Error("Timed-out task should not count as active")
	}

	// Updates are refused after timeout
	board.Update(id, "too late")
	if board.Snapshot(id).Status != "waiting" {
		t.Error("Update should be ignored after timeout")
	}

	// A completion that finally arrives still lands
	board.Complete(id, "finished late")
	task = board.Snapshot(id)
	if !task.Completed {
		t.Error("Complete should still apply after timeout")
	}
	if task.Status != "finished late" {
		t.Errorf("Expected late status, got %q", task.Status)
	}
}

func TestTaskBoardAutoStopsWhenIdle(t *testing.T) {
	board := newTestBoard(io.Discard, time.Minute)

	id := board.Create("quick", "running")
	if !board.IsRunning() {
		t.Fatal("Expected repaint loop to start on Create")
	}

	board.Complete(id)

	// Loop should stop on its own once the linger window passes
	deadline := time.Now().Add(2 * time.Second)
	for board.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if board.IsRunning() {
		t.Fatal("Repaint loop did not stop after all tasks finished")
	}

	// A new task restarts the loop
	board.Create("again", "running")
	if !board.IsRunning() {
		t.Error("Expected loop to restart on new task")
	}
	board.Stop()
}

func TestTaskBoardRepaintOutput(t *testing.T) {
	var buf bytes.Buffer
	board := newTestBoard(&buf, time.Minute)

	id := board.Create("indexing", "scanning files")
	time.Sleep(30 * time.Millisecond)
	board.Complete(id, "12 files")
	board.Stop()

	out := buf.String()
	if !strings.Contains(out, "indexing") {
		t.Errorf("Task name missing from output: %q", out)
	}
	if !strings.Contains(out, "scanning files") {
		t.Errorf("Status missing from output: %q", out)
	}
	if !strings.Contains(out, "\033[K") {
		t.Error("Expected clear-line sequences in repaint output")
	}
	if !strings.Contains(out, IconSuccess) {
		t.Errorf("Expected success glyph in final frame: %q", out)
	}
}

func TestTaskBoardClear(t *testing.T) {
	board := newTestBoard(io.Discard, time.Minute)
	defer board.Stop()

	id := board.Create("gone", "running")
	board.Clear()

	if board.HasActive() {
		t.Error("Expected no active tasks after Clear")
	}
	if board.Snapshot(id) != nil {
		t.Error("Expected Snapshot to return nil after Clear")
	}
}
