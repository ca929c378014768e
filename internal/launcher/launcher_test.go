package launcher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"ccm/internal/config"
	"ccm/internal/orchestrator"
	"ccm/internal/profile"
)

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	return config.Settings{Paths: config.Paths{Root: t.TempDir()}, ClaudeBin: "true"}
}

func writeProfile(t *testing.T, paths config.Paths, name string) string {
	t.Helper()
	store := profile.NewStore(paths)
	doc := profile.Document{Name: name, Settings: map[string]json.RawMessage{}}
	filename, err := store.Save(doc)
	if err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestResolvePrecedence(t *testing.T) {
	settings := testSettings(t)
	l := New(settings)
	store := profile.NewStore(settings.Paths)

	workFile := writeProfile(t, settings.Paths, "work")
	_ = writeProfile(t, settings.Paths, "personal")

	// No ref, no pin, no last profile: nothing to launch with.
	if _, err := l.Resolve("", ""); err == nil {
		t.Fatal("expected resolution failure with nothing to go on")
	}

	// Explicit ref wins over everything. Entries are filename-sorted, so
	// index 1 is personal.json.
	e, err := l.Resolve("1", "")
	if err != nil {
		t.Fatal(err)
	}
	if e.Doc.Name != "personal" {
		t.Fatalf("index ref resolved to %q", e.Doc.Name)
	}

	// Project pin is used when no ref is given.
	projectDir := t.TempDir()
	pin := config.ProjectPinFile(projectDir)
	if err := os.WriteFile(pin, []byte("work\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err = l.Resolve("", projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if e.Doc.Name != "work" {
		t.Fatalf("pin resolved to %q", e.Doc.Name)
	}

	// Last applied profile is the final fallback.
	if _, err := store.Apply(workFile); err != nil {
		t.Fatal(err)
	}
	e, err = l.Resolve("", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if e.Filename != workFile {
		t.Fatalf("last-profile fallback resolved to %q", e.Filename)
	}

	// A stale pin falls through to the last profile instead of failing.
	if err := os.WriteFile(pin, []byte("deleted-profile\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err = l.Resolve("", projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if e.Filename != workFile {
		t.Fatalf("stale pin resolved to %q", e.Filename)
	}
}

func TestLaunchAppliesProfileAndTracksSession(t *testing.T) {
	settings := testSettings(t)

	// Stand-in for the external binary: exits 0 immediately.
	bin := filepath.Join(t.TempDir(), "claude")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	settings.ClaudeBin = bin

	l := New(settings)
	writeProfile(t, settings.Paths, "work")
	entry, err := l.Resolve("work", "")
	if err != nil {
		t.Fatal(err)
	}

	code, err := l.Launch(context.Background(), entry, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}

	store := profile.NewStore(settings.Paths)
	if last, ok := store.LastProfile(); !ok || last != entry.Filename {
		t.Fatalf("last profile not recorded: %q %v", last, ok)
	}

	sessions, _, err := orchestrator.NewSessionManager(settings.Paths).List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	s := sessions[0]
	if s.Status != orchestrator.SessionCompleted {
		t.Fatalf("session status %q", s.Status)
	}
	if s.PID == 0 {
		t.Fatal("session pid not recorded")
	}
	if s.EndTime == nil {
		t.Fatal("session end time not recorded")
	}
}

func TestLaunchReportsChildExitCode(t *testing.T) {
	settings := testSettings(t)
	bin := filepath.Join(t.TempDir(), "claude")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	settings.ClaudeBin = bin

	l := New(settings)
	writeProfile(t, settings.Paths, "work")
	entry, err := l.Resolve("work", "")
	if err != nil {
		t.Fatal(err)
	}
	code, err := l.Launch(context.Background(), entry, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if code != 3 {
		t.Fatalf("exit code %d, want 3", code)
	}
}
