package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupTestDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "loom-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	return dir
}

func testExec(dir string) *ExecContext {
	return &ExecContext{WorkingDir: dir, Scope: ScopeMain}
}

func TestReadFile(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	// Create test file
	testFile := filepath.Join(dir, "test.txt")
	content := "line1\nline2\nline3\nline4\nline5"
	os.WriteFile(testFile, []byte(content), 0644)

	// Test full file read
	result, err := readFile(map[string]any{"file_path": testFile}, testExec(dir))
	if err != nil {
		t.Errorf("readFile failed: %v", err)
	}
	if !strings.Contains(result, "line1") {
		t.Errorf("Expected content not found in result: %s", result)
	}

	// Test line range read
	result, err = readFile(map[string]any{
		"file_path":  testFile,
		"start_line": float64(2),
		"end_line":   float64(4),
	}, testExec(dir))
	if err != nil {
		t.Errorf("readFile with range failed: %v", err)
	}
	if !strings.Contains(result, "line2") || !strings.Contains(result, "line4") {
		t.Errorf("Expected lines 2-4, got: %s", result)
	}

	// Test invalid range
	_, err = readFile(map[string]any{
		"file_path":  testFile,
		"start_line": float64(10),
	}, testExec(dir))
	if err == nil {
		t.Error("Expected error for out of range start_line")
	}
}

func TestWriteFile(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	testFile := filepath.Join(dir, "new.txt")
	content := "hello world"

	result, err := writeFile(map[string]any{
		"file_path": testFile,
		"content":   content,
	}, testExec(dir))
	if err != nil {
		t.Errorf("writeFile failed: %v", err)
	}
	if !strings.Contains(result, "Successfully") {
		t.Errorf("Unexpected result: %s", result)
	}

	// Verify content
	data, _ := os.ReadFile(testFile)
	if string(data) != content {
		t.Errorf("Content mismatch: expected %q, got %q", content, string(data))
	}

	// Test creating nested directories
	nestedFile := filepath.Join(dir, "nested", "deep", "file.txt")
	_, err = writeFile(map[string]any{
		"file_path": nestedFile,
		"content":   "nested content",
	}, testExec(dir))
	if err != nil {
		t.Errorf("writeFile with nested dirs failed: %v", err)
	}
}

func TestAppendFile(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	testFile := filepath.Join(dir, "append.txt")
	os.WriteFile(testFile, []byte("original"), 0644)

	result, err := appendFile(map[string]any{
		"file_path": testFile,
		"content":   "\nappended",
	}, testExec(dir))
	if err != nil {
		t.Errorf("appendFile failed: %v", err)
	}
	if !strings.Contains(result, "Successfully") {
		t.Errorf("Unexpected result: %s", result)
	}

	data, _ := os.ReadFile(testFile)
	if string(data) != "original\nappended" {
		t.Errorf("Content mismatch: got %q", string(data))
	}
}

func TestEditFile(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	testFile := filepath.Join(dir, "edit.txt")
	os.WriteFile(testFile, []byte("hello world"), 0644)

	// Test successful edit
	result, err := editFile(map[string]any{
		"file_path":  testFile,
		"old_string": "world",
		"new_string": "universe",
	}, testExec(dir))
	if err != nil {
		t.Errorf("editFile failed: %v", err)
	}
	if !strings.Contains(result, "Successfully") {
		t.Errorf("Unexpected result: %s", result)
	}

	data, _ := os.ReadFile(testFile)
	if string(data) != "hello universe" {
		t.Errorf("Content mismatch: got %q", string(data))
	}

	// Test empty old_string
	_, err = editFile(map[string]any{
		"file_path":  testFile,
		"old_string": "",
		"new_string": "test",
	}, testExec(dir))
	if err == nil {
		t.Error("Expected error for empty old_string")
	}

	// Test string not found
	_, err = editFile(map[string]any{
		"file_path":  testFile,
		"old_string": "nonexistent",
		"new_string": "test",
	}, testExec(dir))
	if err == nil {
		t.Error("Expected error for string not found")
	}

	// Test replace_all
	os.WriteFile(testFile, []byte("foo bar foo baz foo"), 0644)
	result, err = editFile(map[string]any{
		"file_path":   testFile,
		"old_string":  "foo",
		"new_string":  "qux",
		"replace_all": true,
	}, testExec(dir))
	if err != nil {
		t.Errorf("editFile replace_all failed: %v", err)
	}

	data, _ = os.ReadFile(testFile)
	if string(data) != "qux bar qux baz qux" {
		t.Errorf("Replace all failed: got %q", string(data))
	}
}

func TestInsertLines(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	testFile := filepath.Join(dir, "insert.txt")
	os.WriteFile(testFile, []byte("line1\nline2\nline3"), 0644)

	result, err := insertLines(map[string]any{
		"file_path":   testFile,
		"line_number": float64(2),
		"content":     "inserted",
	}, testExec(dir))
	if err != nil {
		t.Errorf("insertLines failed: %v", err)
	}
	if !strings.Contains(result, "Successfully") {
		t.Errorf("Unexpected result: %s", result)
	}

	data, _ := os.ReadFile(testFile)
	expected := "line1\ninserted\nline2\nline3"
	if string(data) != expected {
		t.Errorf("Content mismatch: expected %q, got %q", expected, string(data))
	}

	// Test invalid line number
	_, err = insertLines(map[string]any{
		"file_path":   testFile,
		"line_number": float64(100),
		"content":     "test",
	}, testExec(dir))
	if err == nil {
		t.Error("Expected error for invalid line number")
	}
}

func TestReplaceLines(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	testFile := filepath.Join(dir, "replace.txt")
	os.WriteFile(testFile, []byte("line1\nline2\nline3\nline4\nline5"), 0644)

	result, err := replaceLines(map[string]any{
		"file_path":  testFile,
		"start_line": float64(2),
		"end_line":   float64(4),
		"content":    "replaced",
	}, testExec(dir))
	if err != nil {
		t.Errorf("replaceLines failed: %v", err)
	}
	if !strings.Contains(result, "Successfully") {
		t.Errorf("Unexpected result: %s", result)
	}

	data, _ := os.ReadFile(testFile)
	expected := "line1\nreplaced\nline5"
	if string(data) != expected {
		t.Errorf("Content mismatch: expected %q, got %q", expected, string(data))
	}
}

func TestDeleteLines(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	testFile := filepath.Join(dir, "delete.txt")
	os.WriteFile(testFile, []byte("line1\nline2\nline3\nline4\nline5"), 0644)

	result, err := deleteLines(map[string]any{
		"file_path":  testFile,
		"start_line": float64(2),
		"end_line":   float64(4),
	}, testExec(dir))
	if err != nil {
		t.Errorf("deleteLines failed: %v", err)
	}
	if !strings.Contains(result, "Successfully") {
		t.Errorf("Unexpected result: %s", result)
	}

	data, _ := os.ReadFile(testFile)
	expected := "line1\nline5"
	if string(data) != expected {
		t.Errorf("Content mismatch: expected %q, got %q", expected, string(data))
	}
}

func TestListFiles(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	// Create test structure
	os.WriteFile(filepath.Join(dir, "file1.txt"), []byte(""), 0644)
	os.WriteFile(filepath.Join(dir, "file2.go"), []byte(""), 0644)
	os.MkdirAll(filepath.Join(dir, "subdir"), 0755)
	os.WriteFile(filepath.Join(dir, "subdir", "nested.txt"), []byte(""), 0644)

	// Test non-recursive
	result, err := listFiles(map[string]any{
		"directory": dir,
		"recursive": false,
	}, testExec(dir))
	if err != nil {
		t.Errorf("listFiles failed: %v", err)
	}
	if !strings.Contains(result, "file1.txt") || !strings.Contains(result, "subdir") {
		t.Errorf("Expected files not found: %s", result)
	}
	if strings.Contains(result, "nested.txt") {
		t.Error("Nested file should not appear in non-recursive listing")
	}

	// Test recursive
	result, err = listFiles(map[string]any{
		"directory": dir,
		"recursive": true,
	}, testExec(dir))
	if err != nil {
		t.Errorf("listFiles recursive failed: %v", err)
	}
	if !strings.Contains(result, "nested.txt") {
		t.Errorf("Nested file should appear in recursive listing: %s", result)
	}
}

func TestFindFiles(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	// Create test structure
	os.WriteFile(filepath.Join(dir, "file1.txt"), []byte(""), 0644)
	os.WriteFile(filepath.Join(dir, "file2.go"), []byte(""), 0644)
	os.MkdirAll(filepath.Join(dir, "subdir"), 0755)
	os.WriteFile(filepath.Join(dir, "subdir", "nested.go"), []byte(""), 0644)

	result, err := findFiles(map[string]any{
		"pattern":   "*.go",
		"directory": dir,
	}, testExec(dir))
	if err != nil {
		t.Errorf("findFiles failed: %v", err)
	}
	if !strings.Contains(result, "file2.go") || !strings.Contains(result, "nested.go") {
		t.Errorf("Expected .go files not found: %s", result)
	}
	if strings.Contains(result, "file1.txt") {
		t.Error("Non-matching file should not appear")
	}
}

func TestSearchFiles(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	os.WriteFile(filepath.Join(dir, "test.txt"), []byte("hello world\nfoo bar\nhello again"), 0644)

	result, err := searchFiles(map[string]any{
		"pattern":   "hello",
		"directory": dir,
	}, testExec(dir))
	if err != nil {
		t.Errorf("searchFiles failed: %v", err)
	}
	if !strings.Contains(result, "hello") {
		t.Errorf("Search pattern not found in result: %s", result)
	}
}

func TestCommandRunner(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	var runner CommandRunner

	result, err := runner.Run(context.Background(), dir, "echo hello", 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(result.Stdout, "hello") {
		t.Errorf("Expected output not found: %q", result.Stdout)
	}
	if result.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", result.ExitCode)
	}

	// Non-zero exit is reported, not an error
	result, err = runner.Run(context.Background(), dir, "exit 3", 0)
	if err != nil {
		t.Fatalf("Run with failing command errored: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", result.ExitCode)
	}

	// Timeout
	result, err = runner.Run(context.Background(), dir, "sleep 1", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Run with timeout errored: %v", err)
	}
	if !result.TimedOut {
		t.Error("Expected command to time out")
	}
}

func TestGitStatus(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	initGitRepo(t, dir)

	result, err := gitStatus(map[string]any{}, testExec(dir))
	if err != nil {
		t.Errorf("gitStatus failed: %v", err)
	}
	if !strings.Contains(result, "clean") {
		t.Errorf("Expected clean status for empty repo: %s", result)
	}

	// Create a file and check status again
	os.WriteFile(filepath.Join(dir, "new.txt"), []byte("test"), 0644)
	result, err = gitStatus(map[string]any{}, testExec(dir))
	if err != nil {
		t.Errorf("gitStatus with changes failed: %v", err)
	}
	if !strings.Contains(result, "new.txt") {
		t.Errorf("Untracked file missing from status: %s", result)
	}
}

func TestGitAdd(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	initGitRepo(t, dir)

	// Create files
	os.WriteFile(filepath.Join(dir, "file1.txt"), []byte("test1"), 0644)
	os.WriteFile(filepath.Join(dir, "file2.txt"), []byte("test2"), 0644)

	result, err := gitAdd(map[string]any{
		"files": []any{"file1.txt", "file2.txt"},
	}, testExec(dir))
	if err != nil {
		t.Errorf("gitAdd failed: %v", err)
	}
	if !strings.Contains(result, "Staged") {
		t.Errorf("Unexpected result: %s", result)
	}
}

func TestGitCommit(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	initGitRepo(t, dir)

	// Create and stage file
	os.WriteFile(filepath.Join(dir, "file.txt"), []byte("test"), 0644)
	gitAdd(map[string]any{"files": []any{"file.txt"}}, testExec(dir))

	result, err := gitCommit(map[string]any{
		"message": "test commit",
	}, testExec(dir))
	if err != nil {
		t.Errorf("gitCommit failed: %v", err)
	}
	if !strings.Contains(result, "Commit") {
		t.Errorf("Unexpected result: %s", result)
	}
}

func TestGitLog(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	initGitRepo(t, dir)
	os.WriteFile(filepath.Join(dir, "file.txt"), []byte("test"), 0644)
	gitAdd(map[string]any{"files": []any{"file.txt"}}, testExec(dir))
	gitCommit(map[string]any{"message": "initial commit"}, testExec(dir))

	result, err := gitLog(map[string]any{"limit": float64(5)}, testExec(dir))
	if err != nil {
		t.Errorf("gitLog failed: %v", err)
	}
	if !strings.Contains(result, "initial commit") {
		t.Errorf("Commit message not found: %s", result)
	}
}

func TestGitBranch(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	initGitRepo(t, dir)
	os.WriteFile(filepath.Join(dir, "file.txt"), []byte("test"), 0644)
	gitAdd(map[string]any{"files": []any{"file.txt"}}, testExec(dir))
	gitCommit(map[string]any{"message": "initial commit"}, testExec(dir))

	result, err := gitBranch(map[string]any{}, testExec(dir))
	if err != nil {
		t.Errorf("gitBranch failed: %v", err)
	}
	// Should show main or master branch
	if !strings.Contains(result, "main") && !strings.Contains(result, "master") {
		t.Errorf("Expected branch not found: %s", result)
	}
}

func TestGitDiff(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	initGitRepo(t, dir)
	os.WriteFile(filepath.Join(dir, "file.txt"), []byte("original"), 0644)
	gitAdd(map[string]any{"files": []any{"file.txt"}}, testExec(dir))
	gitCommit(map[string]any{"message": "initial commit"}, testExec(dir))

	// Modify file
	os.WriteFile(filepath.Join(dir, "file.txt"), []byte("modified"), 0644)

	result, err := gitDiff(map[string]any{}, testExec(dir))
	if err != nil {
		t.Errorf("gitDiff failed: %v", err)
	}
	if !strings.Contains(result, "modified") {
		t.Errorf("Expected diff content: %s", result)
	}
}

func initGitRepo(t *testing.T, dir string) {
	t.Helper()
	var runner CommandRunner
	for _, cmd := range []string{
		"git init",
		"git config user.email 'test@test.com'",
		"git config user.name 'Test'",
	} {
		if _, err := runner.Run(context.Background(), dir, cmd, 0); err != nil {
			t.Fatalf("git setup failed: %v", err)
		}
	}
}

func TestCopyFile(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	// Create source file
	sourceFile := filepath.Join(dir, "source.txt")
	content := "source content"
	os.WriteFile(sourceFile, []byte(content), 0644)

	// Test successful copy
	destFile := filepath.Join(dir, "dest.txt")
	result, err := copyFile(map[string]any{
		"source_path": sourceFile,
		"dest_path":   destFile,
	}, testExec(dir))
	if err != nil {
		t.Errorf("copyFile failed: %v", err)
	}
	if !strings.Contains(result, "Successfully copied") {
		t.Errorf("Unexpected result: %s", result)
	}

	// Verify destination exists and has same content
	data, _ := os.ReadFile(destFile)
	if string(data) != content {
		t.Errorf("Content mismatch: expected %q, got %q", content, string(data))
	}

	// Test copy with nested destination directories
	nestedDest := filepath.Join(dir, "nested", "deep", "copy.txt")
	_, err = copyFile(map[string]any{
		"source_path": sourceFile,
		"dest_path":   nestedDest,
	}, testExec(dir))
	if err != nil {
		t.Errorf("copyFile with nested dirs failed: %v", err)
	}

	// Verify nested copy
	data, _ = os.ReadFile(nestedDest)
	if string(data) != content {
		t.Errorf("Nested copy content mismatch: got %q", string(data))
	}

	// Test error when source doesn't exist
	_, err = copyFile(map[string]any{
		"source_path": filepath.Join(dir, "nonexistent.txt"),
		"dest_path":   filepath.Join(dir, "dest2.txt"),
	}, testExec(dir))
	if err == nil {
		t.Error("Expected error when source doesn't exist")
	}
}

func TestMoveFile(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	// Create source file
	sourceFile := filepath.Join(dir, "source.txt")
	content := "move me"
	os.WriteFile(sourceFile, []byte(content), 0644)

	// Test successful move
	destFile := filepath.Join(dir, "dest.txt")
	result, err := moveFile(map[string]any{
		"source_path": sourceFile,
		"dest_path":   destFile,
	}, testExec(dir))
	if err != nil {
		t.Errorf("moveFile failed: %v", err)
	}
	if !strings.Contains(result, "Successfully moved") {
		t.Errorf("Unexpected result: %s", result)
	}

	// Verify destination exists and source is gone
	data, _ := os.ReadFile(destFile)
	if string(data) != content {
		t.Errorf("Content mismatch: expected %q, got %q", content, string(data))
	}

	if _, err := os.Stat(sourceFile); err == nil {
		t.Error("Source file should not exist after move")
	}

	// Test error when source doesn't exist
	_, err = moveFile(map[string]any{
		"source_path": filepath.Join(dir, "nonexistent.txt"),
		"dest_path":   filepath.Join(dir, "dest2.txt"),
	}, testExec(dir))
	if err == nil {
		t.Error("Expected error when source doesn't exist")
	}
}

func TestDeleteFile(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	// Test delete single file
	testFile := filepath.Join(dir, "delete.txt")
	os.WriteFile(testFile, []byte("delete me"), 0644)

	result, err := deleteFile(map[string]any{
		"file_path": testFile,
	}, testExec(dir))
	if err != nil {
		t.Errorf("deleteFile failed: %v", err)
	}
	if !strings.Contains(result, "Successfully deleted") {
		t.Errorf("Unexpected result: %s", result)
	}

	// Verify file is gone
	if _, err := os.Stat(testFile); err == nil {
		t.Error("File should not exist after delete")
	}

	// Test delete directory with recursive=true
	testDir := filepath.Join(dir, "deleteDir")
	os.MkdirAll(testDir, 0755)
	os.WriteFile(filepath.Join(testDir, "file.txt"), []byte("content"), 0644)

	_, err = deleteFile(map[string]any{
		"file_path": testDir,
		"recursive": true,
	}, testExec(dir))
	if err != nil {
		t.Errorf("deleteFile recursive failed: %v", err)
	}

	if _, err := os.Stat(testDir); err == nil {
		t.Error("Directory should not exist after recursive delete")
	}

	// Test error when deleting directory without recursive=true
	testDir2 := filepath.Join(dir, "deleteDir2")
	os.MkdirAll(testDir2, 0755)

	_, err = deleteFile(map[string]any{
		"file_path": testDir2,
		"recursive": false,
	}, testExec(dir))
	if err == nil {
		t.Error("Expected error when deleting directory without recursive=true")
	}

	// Test succeed silently when file doesn't exist (idempotent)
	result, err = deleteFile(map[string]any{
		"file_path": filepath.Join(dir, "nonexistent.txt"),
	}, testExec(dir))
	if err != nil {
		t.Errorf("deleteFile should succeed silently for nonexistent file: %v", err)
	}
	if !strings.Contains(result, "Successfully deleted") {
		t.Errorf("Expected success message for idempotent delete: %s", result)
	}
}
