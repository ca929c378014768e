package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Paths 描述一次调用可见的全部磁盘布局；显式注入而非进程级单例
// Paths holds the on-disk layout for one invocation. Stores receive it by
// value so tests can point everything at a temp directory.
type Paths struct {
	// Root is the per-user config root, ~/.claude unless CCM_HOME overrides it.
	Root string
}

// Settings carries the handful of runtime knobs the CLI consumes.
type Settings struct {
	Paths Paths
	// ClaudeBin is the external coding-assistant binary to launch.
	ClaudeBin string
	// RegistryURL is the MCP server registry endpoint.
	RegistryURL string
	// SkillRepoDirs are the GitHub contents endpoints browsed for skills.
	SkillRepoDirs []string
}

const (
	defaultRegistryURL = "https://registry.modelcontextprotocol.io/v0/servers"
	defaultClaudeBin   = "claude"
)

func defaultSkillRepoDirs() []string {
	const base = "https://api.github.com/repos/anthropics/skills/contents/"
	return []string{base + "skills", base + "document-skills", base + "artifacts"}
}

// Load resolves the config root, reads <root>/.env best-effort and applies
// environment overrides.
func Load() (Settings, error) {
	root := strings.TrimSpace(os.Getenv("CCM_HOME"))
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Settings{}, fmt.Errorf("resolve home dir: %w", err)
		}
		root = filepath.Join(home, ".claude")
	}
	root, err := expandPath(root)
	if err != nil {
		return Settings{}, err
	}

	// .env is optional; a missing or malformed file never blocks startup.
	_ = godotenv.Load(filepath.Join(root, ".env"))

	s := Settings{
		Paths:         Paths{Root: root},
		ClaudeBin:     defaultClaudeBin,
		RegistryURL:   defaultRegistryURL,
		SkillRepoDirs: defaultSkillRepoDirs(),
	}
	if v := strings.TrimSpace(os.Getenv("CCM_CLAUDE_BIN")); v != "" {
		s.ClaudeBin = v
	}
	if v := strings.TrimSpace(os.Getenv("CCM_REGISTRY_URL")); v != "" {
		s.RegistryURL = v
	}
	return s, nil
}

// ProfilesDir is where one JSON file per profile lives.
func (p Paths) ProfilesDir() string { return filepath.Join(p.Root, "profiles") }

// SettingsFile is the active merged settings document, overwritten on apply.
func (p Paths) SettingsFile() string { return filepath.Join(p.Root, "settings.json") }

// GlobalConfigFile is the external tool's top-level document holding the
// global mcpServers block among other fields we pass through untouched.
func (p Paths) GlobalConfigFile() string { return filepath.Join(p.Root, ".claude.json") }

// LastProfileFile stores the filename of the most recently applied profile.
func (p Paths) LastProfileFile() string { return filepath.Join(p.Root, ".last-profile") }

func (p Paths) OrchestratorDir() string { return filepath.Join(p.Root, "orchestrator") }
func (p Paths) SessionsDir() string     { return filepath.Join(p.OrchestratorDir(), "sessions") }
func (p Paths) WorkflowsDir() string    { return filepath.Join(p.OrchestratorDir(), "workflows") }
func (p Paths) TasksDir() string        { return filepath.Join(p.OrchestratorDir(), "tasks") }
func (p Paths) HooksDir() string        { return filepath.Join(p.OrchestratorDir(), "hooks") }
func (p Paths) TemplatesDir() string    { return filepath.Join(p.OrchestratorDir(), "templates") }
func (p Paths) AnalyticsFile() string   { return filepath.Join(p.OrchestratorDir(), "analytics.json") }
func (p Paths) HistoryDB() string       { return filepath.Join(p.OrchestratorDir(), "history.db") }

// ProjectPinFile is the per-project profile pin checked when no explicit
// profile is requested.
func ProjectPinFile(projectDir string) string {
	return filepath.Join(projectDir, ".claude-profile")
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}
