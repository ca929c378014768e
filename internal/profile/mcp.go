package profile

import (
	"fmt"
	"strings"
)

// Server kinds. Remote servers are reached over HTTP or SSE; stdio servers
// are local processes launched through a package runner.
const (
	ServerHTTP  = "http"
	ServerSSE   = "sse"
	ServerStdio = "stdio"
)

// ServerConfig 是 MCP server 配置的三种形态之一
// ServerConfig is the tagged variant over the three MCP server shapes.
type ServerConfig struct {
	Type    string            `json:"type"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
}

// Validate checks the variant-specific required fields.
func (c ServerConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case ServerHTTP, ServerSSE:
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("%s server requires a url", c.Type)
		}
	case ServerStdio:
		if strings.TrimSpace(c.Command) == "" {
			return fmt.Errorf("stdio server requires a command")
		}
	default:
		return fmt.Errorf("unknown server type %q", c.Type)
	}
	return nil
}

// StdioForPackage builds the local-launcher config for a registry package:
// npm packages run under npx, PyPI packages under uvx.
func StdioForPackage(registryType, pkg string) (ServerConfig, bool) {
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		return ServerConfig{}, false
	}
	switch strings.ToLower(strings.TrimSpace(registryType)) {
	case "npm":
		return ServerConfig{Type: ServerStdio, Command: "npx", Args: []string{"-y", pkg}}, true
	case "pypi":
		return ServerConfig{Type: ServerStdio, Command: "uvx", Args: []string{pkg}}, true
	default:
		return ServerConfig{}, false
	}
}
