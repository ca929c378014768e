package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func pageJSON(cursor string, entries ...string) string {
	body := `{"servers":[`
	for i, e := range entries {
		if i > 0 {
			body += ","
		}
		body += e
	}
	return body + `],"metadata":{"nextCursor":"` + cursor + `"}}`
}

func entry(name, desc, version string, latest bool) string {
	return fmt.Sprintf(`{
		"name": %q, "description": %q, "version": %q,
		"packages": [{"registryType": "npm", "identifier": "%s-pkg"}],
		"_meta": {"io.modelcontextprotocol.registry/official": {"isLatest": %v}}
	}`, name, desc, version, name, latest)
}

func TestSearchPagesAndDeduplicates(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("limit") == "" {
			t.Error("limit parameter missing")
		}
		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprint(w, pageJSON("p2",
				entry("alpha", "first server", "1.0.0", true),
				entry("beta", "second server", "0.9.0", false)))
		case "p2":
			fmt.Fprint(w, pageJSON("",
				entry("beta", "second server", "1.0.0", true),
				entry("alpha", "first server", "1.0.0", true)))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	all := c.Search(context.Background(), "")
	if len(all) != 2 {
		t.Fatalf("expected 2 de-duplicated servers, got %d: %+v", len(all), all)
	}
	if all[0].Name != "alpha" || all[1].Name != "beta" {
		t.Fatalf("unexpected order: %+v", all)
	}
	if all[1].Version != "1.0.0" {
		t.Fatal("non-latest beta entry should have been filtered")
	}
	if requests != 2 {
		t.Fatalf("expected 2 page requests, got %d", requests)
	}

	// Second search is served from the cache.
	_ = c.Search(context.Background(), "alpha")
	if requests != 2 {
		t.Fatalf("cache miss: %d requests", requests)
	}

	matched := c.Search(context.Background(), "SECOND")
	if len(matched) != 1 || matched[0].Name != "beta" {
		t.Fatalf("substring match failed: %+v", matched)
	}
}

func TestSearchDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if got := c.Search(context.Background(), "anything"); len(got) != 0 {
		t.Fatalf("expected empty result on server error, got %+v", got)
	}
}

func TestServerConfigConversion(t *testing.T) {
	remote := Server{Name: "docs", Remote: serverRemote{Type: "sse", URL: "https://example.com/mcp"}}
	cfg, ok := remote.Config()
	if !ok || cfg.Type != "sse" || cfg.URL != "https://example.com/mcp" {
		t.Fatalf("remote conversion: %+v %v", cfg, ok)
	}

	local := Server{Name: "git", Package: serverPackage{RegistryType: "pypi", Identifier: "mcp-server-git"}}
	cfg, ok = local.Config()
	if !ok || cfg.Command != "uvx" {
		t.Fatalf("package conversion: %+v %v", cfg, ok)
	}

	if _, ok := (Server{Name: "empty"}).Config(); ok {
		t.Fatal("entry without package or remote must not convert")
	}
}
