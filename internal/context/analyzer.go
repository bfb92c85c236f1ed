package context

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ImportantFilePatterns defines files that should be analyzed with their type and importance
var ImportantFilePatterns = map[string]FileTypeInfo{
	// Entry points - highest importance
	"main.go":     {Type: "entry_point", Importance: 10},
	"main.py":     {Type: "entry_point", Importance: 10},
	"main.rs":     {Type: "entry_point", Importance: 10},
	"main.js":     {Type: "entry_point", Importance: 10},
	"main.ts":     {Type: "entry_point", Importance: 10},
	"index.js":    {Type: "entry_point", Importance: 9},
	"index.ts":    {Type: "entry_point", Importance: 9},
	"index.tsx":   {Type: "entry_point", Importance: 9},
	"app.py":      {Type: "entry_point", Importance: 9},
	"app.js":      {Type: "entry_point", Importance: 9},
	"app.ts":      {Type: "entry_point", Importance: 9},
	"lib.rs":      {Type: "entry_point", Importance: 9},
	"mod.rs":      {Type: "module", Importance: 7},
	"__init__.py": {Type: "module", Importance: 6},

	// Configuration files
	"go.mod":            {Type: "config", Importance: 9},
	"go.sum":            {Type: "config", Importance: 3},
	"package.json":      {Type: "config", Importance: 9},
	"Cargo.toml":        {Type: "config", Importance: 9},
	"pyproject.toml":    {Type: "config", Importance: 9},
	"setup.py":          {Type: "config", Importance: 8},
	"requirements.txt":  {Type: "config", Importance: 8},
	"tsconfig.json":     {Type: "config", Importance: 8},
	"webpack.config.js": {Type: "config", Importance: 7},
	"vite.config.ts":    {Type: "config", Importance: 7},
	"vite.config.js":    {Type: "config", Importance: 7},
	"rollup.config.js":  {Type: "config", Importance: 7},
	"babel.config.js":   {Type: "config", Importance: 6},
	".eslintrc.js":      {Type: "config", Importance: 5},
	".eslintrc.json":    {Type: "config", Importance: 5},
	".prettierrc":       {Type: "config", Importance: 4},
	"jest.config.js":    {Type: "config", Importance: 6},
	"vitest.config.ts":  {Type: "config", Importance: 6},

	// Build files
	"Makefile":            {Type: "build", Importance: 8},
	"CMakeLists.txt":      {Type: "build", Importance: 8},
	"Dockerfile":          {Type: "build", Importance: 7},
	"docker-compose.yml":  {Type: "build", Importance: 7},
	"docker-compose.yaml": {Type: "build", Importance: 7},
	".goreleaser.yml":     {Type: "build", Importance: 6},
	".goreleaser.yaml":    {Type: "build", Importance: 6},

	// Documentation
	"README.md":       {Type: "documentation", Importance: 9},
	"README":          {Type: "documentation", Importance: 8},
	"CONTRIBUTING.md": {Type: "documentation", Importance: 6},
	"CHANGELOG.md":    {Type: "documentation", Importance: 5},
	"LICENSE":         {Type: "documentation", Importance: 4},
	"LICENSE.md":      {Type: "documentation", Importance: 4},

	// CI/CD
	".github/workflows/ci.yml":    {Type: "ci", Importance: 6},
	".github/workflows/ci.yaml":   {Type: "ci", Importance: 6},
	".github/workflows/main.yml":  {Type: "ci", Importance: 6},
	".github/workflows/main.yaml": {Type: "ci", Importance: 6},
	".gitlab-ci.yml":              {Type: "ci", Importance: 6},
	"Jenkinsfile":                 {Type: "ci", Importance: 6},
}

// ImportantDirPatterns identify important directories with their importance score
var ImportantDirPatterns = map[string]int{
	"cmd":         9, // Go command packages
	"internal":    8, // Go internal packages
	"pkg":         8, // Go public packages
	"src":         8, // Source directories
	"lib":         8, // Library code
	"api":         8, // API definitions
	"routes":      7, // Web routes
	"handlers":    7, // Request handlers
	"controllers": 7, // Controllers
	"models":      7, // Data models
	"services":    7, // Business logic
	"utils":       5, // Utilities
	"helpers":     5, // Helpers
	"tests":       6, // Test files
	"test":        6, // Test directory
	"spec":        6, // Spec files
	"components":  7, // UI components
	"views":       6, // View templates
	"templates":   6, // Templates
	"static":      4, // Static assets
	"public":      4, // Public assets
	"assets":      4, // Assets
	"scripts":     5, // Scripts
	"bin":         5, // Binaries
	"config":      6, // Configuration
	"configs":     6, // Configurations
	"migrations":  5, // Database migrations
	"db":          5, // Database
}

// maxScanLines bounds per-file scanning for performance
const maxScanLines = 500

var (
	quotedPathRe = regexp.MustCompile(`"([^"]+)"`)
	goFuncRe     = regexp.MustCompile(`func\s+(?:\([^)]+\)\s+)?([A-Z][a-zA-Z0-9_]*)`)
	goTypeRe     = regexp.MustCompile(`type\s+([A-Z][a-zA-Z0-9_]*)`)
	goValueRe    = regexp.MustCompile(`(?:var|const)\s+([A-Z][a-zA-Z0-9_]*)`)

	jsModuleRe = regexp.MustCompile(`['"]([^'"]+)['"]`)
	jsExportRe = regexp.MustCompile(`export\s+(?:default\s+)?(?:async\s+)?(?:function|class|const|let|var|interface|type)\s+(\w+)`)

	pyImportRe = regexp.MustCompile(`import\s+(\S+)`)
	pyFromRe   = regexp.MustCompile(`from\s+(\S+)`)
	pyDefRe    = regexp.MustCompile(`def\s+(\w+)`)
	pyClassRe  = regexp.MustCompile(`class\s+(\w+)`)

	rustUseRe  = regexp.MustCompile(`use\s+(\w+)`)
	rustFnRe   = regexp.MustCompile(`pub\s+(?:async\s+)?fn\s+(\w+)`)
	rustItemRe = regexp.MustCompile(`pub\s+(?:struct|enum|trait)\s+(\w+)`)
)

// lineExtractor pulls imports and exports out of one source line
type lineExtractor func(line string, imports, exports *[]string)

var extractors = map[string]lineExtractor{
	"go":         extractGoInfo,
	"javascript": extractJSInfo,
	"typescript": extractJSInfo,
	"python":     extractPythonInfo,
	"rust":       extractRustInfo,
}

// AnalyzeImportantFiles finds and analyzes key project files from the directory tree
func AnalyzeImportantFiles(rootPath string, tree *DirectoryTree) []FileAnalysis {
	var analyses []FileAnalysis

	analyzeTreeRecursive(rootPath, tree, &analyses)

	// Sort by importance (highest first)
	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].Importance > analyses[j].Importance
	})

	return analyses
}

func analyzeTreeRecursive(rootPath string, node *DirectoryTree, analyses *[]FileAnalysis) {
	if node == nil {
		return
	}

	if !node.IsDir {
		info, found := ImportantFilePatterns[filepath.Base(node.Path)]
		if !found {
			// Files addressed by relative path, like CI workflow definitions
			info, found = ImportantFilePatterns[node.Path]
		}
		if found {
			if analysis := analyzeFile(rootPath, node.Path, info); analysis != nil {
				*analyses = append(*analyses, *analysis)
			}
		}
		return
	}

	for _, child := range node.Children {
		analyzeTreeRecursive(rootPath, child, analyses)
	}
}

func analyzeFile(rootPath, relPath string, info FileTypeInfo) *FileAnalysis {
	file, err := os.Open(filepath.Join(rootPath, relPath))
	if err != nil {
		return nil
	}
	defer file.Close()

	analysis := &FileAnalysis{
		Path:       relPath,
		Type:       info.Type,
		Language:   DetectFileType(relPath),
		Importance: info.Importance,
	}

	extract := extractors[analysis.Language]

	scanner := bufio.NewScanner(file)
	lineCount := 0
	var imports []string
	var exports []string

	for scanner.Scan() && lineCount < maxScanLines {
		lineCount++
		if extract != nil {
			extract(scanner.Text(), &imports, &exports)
		}
	}

	// Keep counting lines past the extraction cutoff
	for scanner.Scan() {
		lineCount++
	}

	analysis.LineCount = lineCount
	analysis.Imports = deduplicateStrings(imports, 20)
	analysis.Exports = deduplicateStrings(exports, 20)
	analysis.Summary = generateSummary(analysis)

	return analysis
}

func extractGoInfo(line string, imports, exports *[]string) {
	line = strings.TrimSpace(line)

	if strings.HasPrefix(line, "import ") || (strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`)) {
		if matches := quotedPathRe.FindStringSubmatch(line); len(matches) > 1 {
			*imports = append(*imports, matches[1])
		}
	}

	// Exported identifiers start with an uppercase letter
	switch {
	case strings.HasPrefix(line, "func "):
		if matches := goFuncRe.FindStringSubmatch(line); len(matches) > 1 {
			*exports = append(*exports, matches[1])
		}
	case strings.HasPrefix(line, "type "):
		if matches := goTypeRe.FindStringSubmatch(line); len(matches) > 1 {
			*exports = append(*exports, matches[1])
		}
	case strings.HasPrefix(line, "var "), strings.HasPrefix(line, "const "):
		if matches := goValueRe.FindStringSubmatch(line); len(matches) > 1 {
			*exports = append(*exports, matches[1])
		}
	}
}

func extractJSInfo(line string, imports, exports *[]string) {
	line = strings.TrimSpace(line)

	if strings.Contains(line, "import ") || strings.Contains(line, "require(") {
		if matches := jsModuleRe.FindStringSubmatch(line); len(matches) > 1 {
			// Skip relative imports for brevity
			if !strings.HasPrefix(matches[1], ".") {
				*imports = append(*imports, matches[1])
			}
		}
	}

	if strings.HasPrefix(line, "export ") {
		if matches := jsExportRe.FindStringSubmatch(line); len(matches) > 1 {
			*exports = append(*exports, matches[1])
		}
	}
	if strings.Contains(line, "module.exports") {
		*exports = append(*exports, "module.exports")
	}
}

func extractPythonInfo(line string, imports, exports *[]string) {
	line = strings.TrimSpace(line)

	if strings.HasPrefix(line, "import ") {
		if matches := pyImportRe.FindStringSubmatch(line); len(matches) > 1 {
			// Keep the top-level module only
			*imports = append(*imports, strings.Split(matches[1], ".")[0])
		}
	}
	if strings.HasPrefix(line, "from ") {
		if matches := pyFromRe.FindStringSubmatch(line); len(matches) > 1 {
			if !strings.HasPrefix(matches[1], ".") {
				*imports = append(*imports, strings.Split(matches[1], ".")[0])
			}
		}
	}

	// Public definitions do not start with an underscore
	if strings.HasPrefix(line, "def ") {
		if matches := pyDefRe.FindStringSubmatch(line); len(matches) > 1 && !strings.HasPrefix(matches[1], "_") {
			*exports = append(*exports, matches[1])
		}
	}
	if strings.HasPrefix(line, "class ") {
		if matches := pyClassRe.FindStringSubmatch(line); len(matches) > 1 && !strings.HasPrefix(matches[1], "_") {
			*exports = append(*exports, matches[1])
		}
	}
}

func extractRustInfo(line string, imports, exports *[]string) {
	line = strings.TrimSpace(line)

	if strings.HasPrefix(line, "use ") {
		if matches := rustUseRe.FindStringSubmatch(line); len(matches) > 1 {
			*imports = append(*imports, matches[1])
		}
	}

	if strings.HasPrefix(line, "pub ") {
		if matches := rustFnRe.FindStringSubmatch(line); len(matches) > 1 {
			*exports = append(*exports, matches[1])
		} else if matches := rustItemRe.FindStringSubmatch(line); len(matches) > 1 {
			*exports = append(*exports, matches[1])
		}
	}
}

func generateSummary(analysis *FileAnalysis) string {
	var parts []string

	parts = append(parts, analysis.Type)
	parts = append(parts, fmt.Sprintf("%d lines", analysis.LineCount))

	if len(analysis.Exports) > 0 {
		if len(analysis.Exports) <= 3 {
			parts = append(parts, fmt.Sprintf("exports: %s", strings.Join(analysis.Exports, ", ")))
		} else {
			parts = append(parts, fmt.Sprintf("%d exports", len(analysis.Exports)))
		}
	}

	return strings.Join(parts, " | ")
}

func deduplicateStrings(items []string, maxItems int) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
			if len(result) >= maxItems {
				break
			}
		}
	}

	return result
}

// GetDirImportance returns the importance score for a directory name
func GetDirImportance(dirName string) int {
	if importance, ok := ImportantDirPatterns[strings.ToLower(dirName)]; ok {
		return importance
	}
	return 0
}
