package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Parameter extraction helpers. JSON-decoded arguments carry numbers as
// float64, but handlers are also called directly from tests with ints.

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key].(string)
	return v, ok
}

func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func boolParam(params map[string]any, key string) bool {
	v, _ := params[key].(bool)
	return v
}

func stringSliceParam(params map[string]any, key string) []string {
	raw, ok := params[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// resolvePath anchors relative paths at the execution's working directory.
func resolvePath(path string, exec *ExecContext) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(exec.WorkingDir, path)
}

func readFileHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "read_file",
			Description: "Read a file's contents, optionally restricted to a line range",
			Capability:  CapShared,
			Parameters: objectSchema(map[string]any{
				"file_path":  stringProp("Path to the file, relative to the working directory"),
				"start_line": numberProp("First line to read (1-indexed)"),
				"end_line":   numberProp("Last line to read (inclusive)"),
			}, "file_path"),
		},
		fn: textFunc(readFile),
	}
}

func readFile(params map[string]any, exec *ExecContext) (string, error) {
	filePath, ok := stringParam(params, "file_path")
	if !ok {
		return "", fmt.Errorf("file_path parameter is required")
	}
	filePath = resolvePath(filePath, exec)

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	start, hasStart := intParam(params, "start_line")
	end, hasEnd := intParam(params, "end_line")
	if !hasStart && !hasEnd {
		return string(content), nil
	}

	lines := strings.Split(string(content), "\n")
	total := len(lines)

	if !hasStart {
		start = 1
	}
	if start < 1 || start > total {
		return "", fmt.Errorf("start_line %d is out of range (file has %d lines)", start, total)
	}
	if !hasEnd {
		end = total
	}
	if end < start || end > total {
		return "", fmt.Errorf("end_line %d is invalid (must be between %d and %d)", end, start, total)
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("=== %s (lines %d-%d of %d) ===\n", filepath.Base(filePath), start, end, total))
	for i, line := range lines[start-1 : end] {
		result.WriteString(fmt.Sprintf("%4d: %s\n", start+i, line))
	}
	return result.String(), nil
}

func writeFileHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "write_file",
			Description: "Write content to a file, creating it and any parent directories",
			Capability:  CapShared,
			Parameters: objectSchema(map[string]any{
				"file_path": stringProp("Path to the file to write"),
				"content":   stringProp("Full content to write"),
			}, "file_path", "content"),
		},
		fn: textFunc(writeFile),
	}
}

func writeFile(params map[string]any, exec *ExecContext) (string, error) {
	filePath, ok := stringParam(params, "file_path")
	if !ok {
		return "", fmt.Errorf("file_path parameter is required")
	}
	content, ok := stringParam(params, "content")
	if !ok {
		return "", fmt.Errorf("content parameter is required")
	}
	filePath = resolvePath(filePath, exec)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fmt.Sprintf("Successfully wrote to %s", filePath), nil
}

func appendFileHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "append_file",
			Description: "Append content to the end of an existing file",
			Capability:  CapShared,
			Parameters: objectSchema(map[string]any{
				"file_path": stringProp("Path to the file to append to"),
				"content":   stringProp("Content to append"),
			}, "file_path", "content"),
		},
		fn: textFunc(appendFile),
	}
}

func appendFile(params map[string]any, exec *ExecContext) (string, error) {
	filePath, ok := stringParam(params, "file_path")
	if !ok {
		return "", fmt.Errorf("file_path parameter is required")
	}
	content, ok := stringParam(params, "content")
	if !ok {
		return "", fmt.Errorf("content parameter is required")
	}
	filePath = resolvePath(filePath, exec)

	existing, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if err := os.WriteFile(filePath, append(existing, []byte(content)...), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fmt.Sprintf("Successfully appended to %s", filePath), nil
}

func editFileHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "edit_file",
			Description: "Replace an exact text match in a file. old_string must match exactly, including whitespace",
			Capability:  CapShared,
			Parameters: objectSchema(map[string]any{
				"file_path":   stringProp("Path to the file to edit"),
				"old_string":  stringProp("Exact text to replace"),
				"new_string":  stringProp("Replacement text"),
				"replace_all": boolProp("Replace every occurrence instead of requiring a unique match"),
			}, "file_path", "old_string", "new_string"),
		},
		fn: textFunc(editFile),
	}
}

func editFile(params map[string]any, exec *ExecContext) (string, error) {
	filePath, ok := stringParam(params, "file_path")
	if !ok {
		return "", fmt.Errorf("file_path parameter is required")
	}
	oldString, ok := stringParam(params, "old_string")
	if !ok {
		return "", fmt.Errorf("old_string parameter is required")
	}
	if oldString == "" {
		return "", fmt.Errorf("old_string cannot be empty. To completely rewrite a file, use write_file. To add content to the end, use append_file. To modify specific text, read the file first to find exact text to replace")
	}
	newString, ok := stringParam(params, "new_string")
	if !ok {
		return "", fmt.Errorf("new_string parameter is required")
	}
	filePath = resolvePath(filePath, exec)

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	fileContent := string(content)

	if !strings.Contains(fileContent, oldString) {
		return "", fmt.Errorf("old_string not found in file. Make sure to match the exact text including whitespace and indentation")
	}
	count := strings.Count(fileContent, oldString)
	replaceAll := boolParam(params, "replace_all")

	var newContent string
	if replaceAll {
		newContent = strings.ReplaceAll(fileContent, oldString, newString)
	} else {
		if count > 1 {
			return "", fmt.Errorf("old_string appears %d times in file. Use replace_all=true to replace all occurrences, or provide more context to make it unique", count)
		}
		newContent = strings.Replace(fileContent, oldString, newString, 1)
	}

	if err := os.WriteFile(filePath, []byte(newContent), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if replaceAll && count > 1 {
		return fmt.Sprintf("Successfully replaced %d occurrences in %s", count, filePath), nil
	}
	return fmt.Sprintf("Successfully edited %s", filePath), nil
}

func insertLinesHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "insert_lines",
			Description: "Insert content before the given line number (1-indexed)",
			Capability:  CapMain,
			Parameters: objectSchema(map[string]any{
				"file_path":   stringProp("Path to the file to modify"),
				"line_number": numberProp("Line to insert before (1-indexed)"),
				"content":     stringProp("Content to insert"),
			}, "file_path", "line_number", "content"),
		},
		fn: textFunc(insertLines),
	}
}

func insertLines(params map[string]any, exec *ExecContext) (string, error) {
	filePath, ok := stringParam(params, "file_path")
	if !ok {
		return "", fmt.Errorf("file_path parameter is required")
	}
	content, ok := stringParam(params, "content")
	if !ok {
		return "", fmt.Errorf("content parameter is required")
	}
	lineNum, ok := intParam(params, "line_number")
	if !ok {
		return "", fmt.Errorf("line_number parameter is required and must be a number")
	}
	filePath = resolvePath(filePath, exec)

	fileContent, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	lines := strings.Split(string(fileContent), "\n")

	if lineNum < 1 || lineNum > len(lines)+1 {
		return "", fmt.Errorf("line_number %d is out of range (file has %d lines)", lineNum, len(lines))
	}

	idx := lineNum - 1
	newLines := make([]string, 0, len(lines)+1)
	newLines = append(newLines, lines[:idx]...)
	newLines = append(newLines, content)
	newLines = append(newLines, lines[idx:]...)

	if err := os.WriteFile(filePath, []byte(strings.Join(newLines, "\n")), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fmt.Sprintf("Successfully inserted at line %d in %s", lineNum, filePath), nil
}

func replaceLinesHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "replace_lines",
			Description: "Replace an inclusive line range with new content",
			Capability:  CapMain,
			Parameters: objectSchema(map[string]any{
				"file_path":  stringProp("Path to the file to modify"),
				"start_line": numberProp("First line to replace (1-indexed)"),
				"end_line":   numberProp("Last line to replace (inclusive)"),
				"content":    stringProp("Replacement content"),
			}, "file_path", "start_line", "end_line", "content"),
		},
		fn: textFunc(replaceLines),
	}
}

func replaceLines(params map[string]any, exec *ExecContext) (string, error) {
	filePath, ok := stringParam(params, "file_path")
	if !ok {
		return "", fmt.Errorf("file_path parameter is required")
	}
	content, ok := stringParam(params, "content")
	if !ok {
		return "", fmt.Errorf("content parameter is required")
	}
	startLine, ok := intParam(params, "start_line")
	if !ok {
		return "", fmt.Errorf("start_line parameter is required and must be a number")
	}
	endLine, ok := intParam(params, "end_line")
	if !ok {
		return "", fmt.Errorf("end_line parameter is required and must be a number")
	}
	filePath = resolvePath(filePath, exec)

	fileContent, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	lines := strings.Split(string(fileContent), "\n")

	if startLine < 1 || startLine > len(lines) {
		return "", fmt.Errorf("start_line %d is out of range (file has %d lines)", startLine, len(lines))
	}
	if endLine < startLine || endLine > len(lines) {
		return "", fmt.Errorf("end_line %d is invalid (must be between %d and %d)", endLine, startLine, len(lines))
	}

	newLines := make([]string, 0, len(lines))
	newLines = append(newLines, lines[:startLine-1]...)
	newLines = append(newLines, content)
	newLines = append(newLines, lines[endLine:]...)

	if err := os.WriteFile(filePath, []byte(strings.Join(newLines, "\n")), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	replaced := endLine - startLine + 1
	return fmt.Sprintf("Successfully replaced lines %d-%d (%d lines) in %s", startLine, endLine, replaced, filePath), nil
}

func deleteLinesHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "delete_lines",
			Description: "Delete an inclusive line range from a file",
			Capability:  CapMain,
			Parameters: objectSchema(map[string]any{
				"file_path":  stringProp("Path to the file to modify"),
				"start_line": numberProp("First line to delete (1-indexed)"),
				"end_line":   numberProp("Last line to delete (inclusive)"),
			}, "file_path", "start_line", "end_line"),
		},
		fn: textFunc(deleteLines),
	}
}

func deleteLines(params map[string]any, exec *ExecContext) (string, error) {
	filePath, ok := stringParam(params, "file_path")
	if !ok {
		return "", fmt.Errorf("file_path parameter is required")
	}
	startLine, ok := intParam(params, "start_line")
	if !ok {
		return "", fmt.Errorf("start_line parameter is required and must be a number")
	}
	endLine, ok := intParam(params, "end_line")
	if !ok {
		return "", fmt.Errorf("end_line parameter is required and must be a number")
	}
	filePath = resolvePath(filePath, exec)

	fileContent, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	lines := strings.Split(string(fileContent), "\n")

	if startLine < 1 || startLine > len(lines) {
		return "", fmt.Errorf("start_line %d is out of range (file has %d lines)", startLine, len(lines))
	}
	if endLine < startLine || endLine > len(lines) {
		return "", fmt.Errorf("end_line %d is invalid (must be between %d and %d)", endLine, startLine, len(lines))
	}

	newLines := make([]string, 0, len(lines))
	newLines = append(newLines, lines[:startLine-1]...)
	newLines = append(newLines, lines[endLine:]...)

	if err := os.WriteFile(filePath, []byte(strings.Join(newLines, "\n")), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	deleted := endLine - startLine + 1
	return fmt.Sprintf("Successfully deleted lines %d-%d (%d lines) from %s", startLine, endLine, deleted, filePath), nil
}

func copyFileHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "copy_file",
			Description: "Copy a file, creating destination directories as needed",
			Capability:  CapMain,
			Parameters: objectSchema(map[string]any{
				"source_path": stringProp("File to copy"),
				"dest_path":   stringProp("Destination path"),
			}, "source_path", "dest_path"),
		},
		fn: textFunc(copyFile),
	}
}

func copyFile(params map[string]any, exec *ExecContext) (string, error) {
	sourcePath, ok := stringParam(params, "source_path")
	if !ok {
		return "", fmt.Errorf("source_path parameter is required")
	}
	destPath, ok := stringParam(params, "dest_path")
	if !ok {
		return "", fmt.Errorf("dest_path parameter is required")
	}
	sourcePath = resolvePath(sourcePath, exec)
	destPath = resolvePath(destPath, exec)

	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create destination directories: %w", err)
	}
	if err := os.WriteFile(destPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write destination file: %w", err)
	}
	return fmt.Sprintf("Successfully copied %s to %s", sourcePath, destPath), nil
}

func moveFileHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "move_file",
			Description: "Move or rename a file, creating destination directories as needed",
			Capability:  CapMain,
			Parameters: objectSchema(map[string]any{
				"source_path": stringProp("File to move"),
				"dest_path":   stringProp("Destination path"),
			}, "source_path", "dest_path"),
		},
		fn: textFunc(moveFile),
	}
}

func moveFile(params map[string]any, exec *ExecContext) (string, error) {
	sourcePath, ok := stringParam(params, "source_path")
	if !ok {
		return "", fmt.Errorf("source_path parameter is required")
	}
	destPath, ok := stringParam(params, "dest_path")
	if !ok {
		return "", fmt.Errorf("dest_path parameter is required")
	}
	sourcePath = resolvePath(sourcePath, exec)
	destPath = resolvePath(destPath, exec)

	if _, err := os.Stat(sourcePath); err != nil {
		return "", fmt.Errorf("source file does not exist: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create destination directories: %w", err)
	}

	if err := os.Rename(sourcePath, destPath); err != nil {
		// Cross-device moves fall back to copy+delete
		content, err := os.ReadFile(sourcePath)
		if err != nil {
			return "", fmt.Errorf("failed to read source file: %w", err)
		}
		if err := os.WriteFile(destPath, content, 0644); err != nil {
			return "", fmt.Errorf("failed to write destination file: %w", err)
		}
		if err := os.Remove(sourcePath); err != nil {
			return "", fmt.Errorf("failed to remove source file after copy: %w", err)
		}
	}
	return fmt.Sprintf("Successfully moved %s to %s", sourcePath, destPath), nil
}

func deleteFileHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "delete_file",
			Description: "Delete a file, or a directory when recursive is set. Deleting a missing path succeeds",
			Capability:  CapMain,
			Parameters: objectSchema(map[string]any{
				"file_path": stringProp("Path to delete"),
				"recursive": boolProp("Required to delete a directory and its contents"),
			}, "file_path"),
		},
		fn: textFunc(deleteFile),
	}
}

func deleteFile(params map[string]any, exec *ExecContext) (string, error) {
	filePath, ok := stringParam(params, "file_path")
	if !ok {
		return "", fmt.Errorf("file_path parameter is required")
	}
	filePath = resolvePath(filePath, exec)

	info, err := os.Stat(filePath)
	if err != nil {
		// Deleting something already gone is not an error
		return fmt.Sprintf("Successfully deleted %s", filePath), nil
	}

	if info.IsDir() {
		if !boolParam(params, "recursive") {
			return "", fmt.Errorf("cannot delete directory without recursive=true. Use recursive=true to delete the directory and its contents")
		}
		if err := os.RemoveAll(filePath); err != nil {
			return "", fmt.Errorf("failed to delete directory: %w", err)
		}
	} else {
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to delete file: %w", err)
		}
	}
	return fmt.Sprintf("Successfully deleted %s", filePath), nil
}

func createDirectoryHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "create_directory",
			Description: "Create a directory including any missing parents",
			Capability:  CapMain,
			Parameters: objectSchema(map[string]any{
				"path": stringProp("Directory path to create"),
			}, "path"),
		},
		fn: textFunc(createDirectory),
	}
}

func createDirectory(params map[string]any, exec *ExecContext) (string, error) {
	dirPath, ok := stringParam(params, "path")
	if !ok {
		return "", fmt.Errorf("path parameter is required")
	}
	dirPath = resolvePath(dirPath, exec)

	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return fmt.Sprintf("Directory already exists: %s", dirPath), nil
		}
		return "", fmt.Errorf("a file already exists at path: %s", dirPath)
	}
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	return fmt.Sprintf("Created directory: %s", dirPath), nil
}

func listFilesHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "list_files",
			Description: "List the contents of a directory, optionally recursing",
			Capability:  CapShared,
			Parameters: objectSchema(map[string]any{
				"directory": stringProp("Directory to list, defaults to the working directory"),
				"recursive": boolProp("Walk subdirectories too"),
			}),
		},
		fn: textFunc(listFiles),
	}
}

func listFiles(params map[string]any, exec *ExecContext) (string, error) {
	directory := exec.WorkingDir
	if dir, ok := stringParam(params, "directory"); ok && dir != "" {
		directory = resolvePath(dir, exec)
	}

	var result strings.Builder
	if boolParam(params, "recursive") {
		err := filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			relPath, _ := filepath.Rel(directory, path)
			if relPath == "." {
				return nil
			}
			if info.IsDir() {
				result.WriteString(fmt.Sprintf("[DIR]  %s\n", relPath))
			} else {
				result.WriteString(fmt.Sprintf("[FILE] %s (%d bytes)\n", relPath, info.Size()))
			}
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to walk directory: %w", err)
		}
	} else {
		entries, err := os.ReadDir(directory)
		if err != nil {
			return "", fmt.Errorf("failed to read directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				result.WriteString(fmt.Sprintf("[DIR]  %s\n", entry.Name()))
			} else {
				info, _ := entry.Info()
				result.WriteString(fmt.Sprintf("[FILE] %s (%d bytes)\n", entry.Name(), info.Size()))
			}
		}
	}
	return result.String(), nil
}

func findFilesHandler() Handler {
	return &funcHandler{
		decl: Declaration{
			Name:        "find_files",
			Description: "Find files whose names match a glob pattern",
			Capability:  CapShared,
			Parameters: objectSchema(map[string]any{
				"pattern":   stringProp("Glob pattern to match file names against, e.g. *.go"),
				"directory": stringProp("Directory to search, defaults to the working directory"),
				"exclude":   stringArrayProp("Patterns or path fragments to skip"),
			}, "pattern"),
		},
		fn: textFunc(findFiles),
	}
}

func findFiles(params map[string]any, exec *ExecContext) (string, error) {
	pattern, ok := stringParam(params, "pattern")
	if !ok {
		return "", fmt.Errorf("pattern parameter is required")
	}
	directory := exec.WorkingDir
	if dir, ok := stringParam(params, "directory"); ok && dir != "" {
		directory = resolvePath(dir, exec)
	}
	excludes := stringSliceParam(params, "exclude")

	var matches []string
	err := filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		relPath, _ := filepath.Rel(directory, path)
		if relPath == "." {
			return nil
		}

		for _, exclude := range excludes {
			matched, _ := filepath.Match(exclude, filepath.Base(path))
			if matched || strings.Contains(relPath, exclude) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if matched, _ := filepath.Match(pattern, base); matched {
			matches = append(matches, relPath)
		} else if strings.Contains(pattern, "**") {
			// Treat ** patterns as matching the base name anywhere in the tree
			simple := strings.ReplaceAll(pattern, "**/*", "*")
			simple = strings.ReplaceAll(simple, "**/", "")
			if matched, _ := filepath.Match(simple, base); matched {
				matches = append(matches, relPath)
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk directory: %w", err)
	}

	if len(matches) == 0 {
		return "No files found matching pattern", nil
	}
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Found %d files matching '%s':\n", len(matches), pattern))
	for _, match := range matches {
		result.WriteString(fmt.Sprintf("  %s\n", match))
	}
	return result.String(), nil
}
