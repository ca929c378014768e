package profile

import (
	"encoding/json"
	"strings"
	"testing"
)

func draft(t *testing.T, src string) Document {
	t.Helper()
	var doc Document
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestValidateEmptyDraft(t *testing.T) {
	res := Validate(Document{})
	if res.Valid {
		t.Fatal("empty draft must be invalid")
	}
	found := false
	for _, e := range res.Errors {
		if e == "Profile name is required" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing name error, got %v", res.Errors)
	}
}

func TestValidateGoodProfile(t *testing.T) {
	doc := draft(t, `{
		"name": "T",
		"env": {"ANTHROPIC_AUTH_TOKEN": "sk-ant-REDACTED"},
		"model": "claude-3-5-sonnet-20241022"
	}`)
	res := Validate(doc)
	if !res.Valid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
}

func TestValidateTokenPrefix(t *testing.T) {
	doc := draft(t, `{"name":"x","env":{"ANTHROPIC_AUTH_TOKEN":"sk-plain-abcdefghijklmnop"}}`)
	res := Validate(doc)
	if res.Valid {
		t.Fatal("wrong prefix must fail for the default provider")
	}

	// The same token is fine once the base URL points at an alternate provider.
	doc = draft(t, `{"name":"x","env":{
		"ANTHROPIC_AUTH_TOKEN":"sk-plain-abcdefghijklmnop",
		"ANTHROPIC_BASE_URL":"https://api.deepseek.com/v1"
	}}`)
	if res := Validate(doc); !res.Valid {
		t.Fatalf("alternate provider should accept sk- prefix: %v", res.Errors)
	}
}

func TestValidateShortToken(t *testing.T) {
	doc := draft(t, `{"name":"x","env":{"ANTHROPIC_AUTH_TOKEN":"sk-ant-abc"}}`)
	res := Validate(doc)
	if res.Valid {
		t.Fatal("short token must fail")
	}
	joined := strings.Join(res.Errors, "\n")
	if !strings.Contains(joined, "too short") {
		t.Fatalf("expected length error, got %v", res.Errors)
	}
}

func TestValidateModelFormat(t *testing.T) {
	good := []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-opus-20240229",
		"claude-3-5-haiku-latest",
		"claude-sonnet-4-20250514",
		"claude-opus-4-1",
	}
	for _, m := range good {
		doc := draft(t, `{"name":"x","model":"`+m+`"}`)
		if res := Validate(doc); !res.Valid {
			t.Errorf("model %q rejected: %v", m, res.Errors)
		}
	}

	doc := draft(t, `{"name":"x","model":"gpt-4o"}`)
	if res := Validate(doc); res.Valid {
		t.Fatal("foreign model id must fail for the default provider")
	}

	// Permissive once the host matches an alternate provider.
	doc = draft(t, `{"name":"x","model":"kimi-k2",
		"env":{"ANTHROPIC_BASE_URL":"https://api.moonshot.cn/anthropic"}}`)
	if res := Validate(doc); !res.Valid {
		t.Fatalf("alternate provider model should pass: %v", res.Errors)
	}
}

func TestValidateBaseURL(t *testing.T) {
	doc := draft(t, `{"name":"x","env":{"ANTHROPIC_BASE_URL":"not a url"}}`)
	if res := Validate(doc); res.Valid {
		t.Fatal("malformed base URL must fail")
	}
}

func TestValidateAccumulatesErrors(t *testing.T) {
	doc := draft(t, `{"env":{"ANTHROPIC_AUTH_TOKEN":"bad","ANTHROPIC_BASE_URL":"::"}}`)
	res := Validate(doc)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if len(res.Errors) < 3 {
		t.Fatalf("expected accumulated violations, got %v", res.Errors)
	}
}
