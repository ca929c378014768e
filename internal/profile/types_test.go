package profile

import (
	"encoding/json"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"My Profile!! 2.0": "my-profile-2-0",
		"work":             "work",
		"Work_Prod":        "work_prod",
		"--weird--":        "weird",
		"a  b":             "a-b",
		"":                 "",
	}
	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeNameIdempotent(t *testing.T) {
	inputs := []string{"My Profile!! 2.0", "already-clean", "Ünïcode Name", "a_b-c"}
	for _, in := range inputs {
		once := SanitizeName(in)
		twice := SanitizeName(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q != %q", in, once, twice)
		}
		for _, r := range once {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
				t.Errorf("SanitizeName(%q) produced illegal rune %q", in, r)
			}
		}
	}
}

func TestDocumentRoundTripPreservesUnknownFields(t *testing.T) {
	src := []byte(`{
		"name": "T",
		"group": "work",
		"env": {"ANTHROPIC_AUTH_TOKEN": "sk-ant-REDACTED"},
		"alwaysThinkingEnabled": true,
		"someFutureField": {"nested": [1, 2, 3]},
		"mcpServers": {"docs": {"type": "http", "url": "https://example.com/mcp"}}
	}`)
	var doc Document
	if err := json.Unmarshal(src, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Name != "T" || doc.Group != "work" {
		t.Fatalf("name/group mismatch: %+v", doc)
	}
	if !doc.HasMCP || len(doc.MCPServers) != 1 {
		t.Fatalf("mcpServers not captured: %+v", doc)
	}
	if _, ok := doc.Settings["someFutureField"]; !ok {
		t.Fatal("unknown field dropped")
	}
	if _, ok := doc.Settings["name"]; ok {
		t.Fatal("name leaked into settings")
	}

	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var again Document
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatal(err)
	}
	if string(again.Settings["someFutureField"]) != string(doc.Settings["someFutureField"]) {
		t.Fatal("unknown field changed across round trip")
	}
}

func TestDocumentMCPPresence(t *testing.T) {
	var absent Document
	if err := json.Unmarshal([]byte(`{"name":"a"}`), &absent); err != nil {
		t.Fatal(err)
	}
	if absent.HasMCP {
		t.Fatal("absent mcpServers must not be marked present")
	}

	var empty Document
	if err := json.Unmarshal([]byte(`{"name":"a","mcpServers":{}}`), &empty); err != nil {
		t.Fatal(err)
	}
	if !empty.HasMCP {
		t.Fatal("empty mcpServers block must still count as present")
	}

	out, err := json.Marshal(empty)
	if err != nil {
		t.Fatal(err)
	}
	var again map[string]json.RawMessage
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatal(err)
	}
	if _, ok := again["mcpServers"]; !ok {
		t.Fatal("present-but-empty mcpServers dropped on marshal")
	}
}

func TestStdioForPackage(t *testing.T) {
	npm, ok := StdioForPackage("npm", "@example/server")
	if !ok || npm.Command != "npx" || len(npm.Args) != 2 || npm.Args[0] != "-y" {
		t.Fatalf("unexpected npm config %+v", npm)
	}
	py, ok := StdioForPackage("pypi", "mcp-server-git")
	if !ok || py.Command != "uvx" || len(py.Args) != 1 {
		t.Fatalf("unexpected pypi config %+v", py)
	}
	if _, ok := StdioForPackage("cargo", "whatever"); ok {
		t.Fatal("unknown registry type must not produce a config")
	}
}
