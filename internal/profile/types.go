package profile

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Document 是一个命名配置包；除 name/group/mcpServers 之外的字段原样透传
// Document is a named configuration bundle. Everything except name, group
// and mcpServers is opaque passthrough: it lands verbatim in the external
// tool's settings file on apply, so unknown fields survive round trips.
type Document struct {
	Name       string
	Group      string
	MCPServers map[string]ServerConfig
	// HasMCP records whether the mcpServers key was present in the source
	// document at all. An empty-but-present block overwrites the global MCP
	// config on apply; an absent one leaves it untouched.
	HasMCP   bool
	Settings map[string]json.RawMessage
}

// Env returns the env block of the document, if present and well-formed.
func (d Document) Env() map[string]string {
	raw, ok := d.Settings["env"]
	if !ok {
		return nil
	}
	var env map[string]string
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}
	return env
}

// SettingString returns a top-level string setting such as "model".
func (d Document) SettingString(key string) string {
	raw, ok := d.Settings[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	out := Document{Settings: map[string]json.RawMessage{}}
	for key, raw := range fields {
		switch key {
		case "name":
			if err := json.Unmarshal(raw, &out.Name); err != nil {
				return fmt.Errorf("profile name: %w", err)
			}
		case "group":
			// group may be null.
			if string(raw) != "null" {
				if err := json.Unmarshal(raw, &out.Group); err != nil {
					return fmt.Errorf("profile group: %w", err)
				}
			}
		case "mcpServers":
			out.HasMCP = true
			if string(raw) != "null" {
				if err := json.Unmarshal(raw, &out.MCPServers); err != nil {
					return fmt.Errorf("profile mcpServers: %w", err)
				}
			}
			if out.MCPServers == nil {
				out.MCPServers = map[string]ServerConfig{}
			}
		default:
			out.Settings[key] = raw
		}
	}
	*d = out
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	for key, raw := range d.Settings {
		fields[key] = raw
	}
	nameRaw, err := json.Marshal(d.Name)
	if err != nil {
		return nil, err
	}
	fields["name"] = nameRaw
	if strings.TrimSpace(d.Group) != "" {
		groupRaw, err := json.Marshal(d.Group)
		if err != nil {
			return nil, err
		}
		fields["group"] = groupRaw
	}
	if d.HasMCP {
		servers := d.MCPServers
		if servers == nil {
			servers = map[string]ServerConfig{}
		}
		mcpRaw, err := json.Marshal(servers)
		if err != nil {
			return nil, err
		}
		fields["mcpServers"] = mcpRaw
	}
	return json.Marshal(fields)
}

// SanitizeName derives the stable backing filename slug for a display name:
// lowercase, anything outside [a-z0-9-_] becomes '-', dash runs collapse and
// leading/trailing dashes are trimmed. Idempotent.
func SanitizeName(name string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
			}
			prevDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
