package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestHookSetRunRemove(t *testing.T) {
	h := NewHookManager(testPaths(t))

	slug, err := h.Set("Pre Launch", `echo "profile=$CCM_HOOK_PROFILE"`)
	if err != nil {
		t.Fatal(err)
	}
	if slug != "pre-launch" {
		t.Fatalf("slug = %q", slug)
	}

	res, err := h.Run(context.Background(), "pre launch", map[string]string{"profile": "work"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Output, "profile=work") {
		t.Fatalf("context not spliced into env: %q", res.Output)
	}

	names, err := h.List()
	if err != nil || len(names) != 1 || names[0] != "pre-launch" {
		t.Fatalf("list = %v, %v", names, err)
	}

	if err := h.Remove("pre-launch"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Run(context.Background(), "pre-launch", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHookFailureIsAnErrorNotAPanic(t *testing.T) {
	h := NewHookManager(testPaths(t))
	if _, err := h.Set("broken", "exit 2"); err != nil {
		t.Fatal(err)
	}
	res, err := h.Run(context.Background(), "broken", nil)
	if err == nil {
		t.Fatal("failing hook must report an error")
	}
	if res.ExitCode != 2 {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
}
