package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTemplateSaveAndCreateProject(t *testing.T) {
	tm := NewTemplateManager(testPaths(t))

	_, err := tm.Save("go-service", map[string]string{
		"README.md":      "# {{PROJECT_NAME}}\n\n{{PROJECT_NAME}} scaffold.\n",
		"cmd/main.go":    "package main // {{PROJECT_NAME}}\n",
		".claude-profile": "work\n",
	})
	if err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(t.TempDir(), "myapp")
	if err := tm.CreateProject("go-service", "myapp", target); err != nil {
		t.Fatal(err)
	}

	readme, err := os.ReadFile(filepath.Join(target, "README.md"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(readme), ProjectNameToken) {
		t.Fatal("placeholder not substituted")
	}
	if strings.Count(string(readme), "myapp") != 2 {
		t.Fatalf("every occurrence must be substituted: %q", readme)
	}
	if _, err := os.Stat(filepath.Join(target, "cmd", "main.go")); err != nil {
		t.Fatalf("nested file missing: %v", err)
	}

	// Creation into an existing directory must fail rather than merge.
	if err := tm.CreateProject("go-service", "myapp", target); err == nil {
		t.Fatal("expected failure on existing target")
	}
}

func TestTemplateRejectsEscapingPaths(t *testing.T) {
	tm := NewTemplateManager(testPaths(t))
	if _, err := tm.Save("evil", map[string]string{"../outside.txt": "x"}); err == nil {
		t.Fatal("path traversal must be rejected")
	}
	if _, err := tm.Save("evil2", map[string]string{"/abs.txt": "x"}); err == nil {
		t.Fatal("absolute path must be rejected")
	}
}
