package profile

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ValidationResult collects every violation found in a profile draft; a
// single check never aborts the rest.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

const minTokenLength = 20

// Env keys the external tool recognizes.
const (
	EnvAuthToken = "ANTHROPIC_AUTH_TOKEN"
	EnvBaseURL   = "ANTHROPIC_BASE_URL"
	EnvModel     = "ANTHROPIC_MODEL"
	EnvTimeout   = "API_TIMEOUT_MS"
)

// provider describes the token and model conventions of one upstream API.
// The default (Anthropic) provider applies unless the profile's base URL
// host matches an alternate entry.
type provider struct {
	hosts            []string
	tokenPrefixes    []string
	permissiveModels bool
}

var defaultProvider = provider{
	tokenPrefixes: []string{"sk-ant-"},
}

var altProviders = []provider{
	{hosts: []string{"api.deepseek.com"}, tokenPrefixes: []string{"sk-"}, permissiveModels: true},
	{hosts: []string{"api.moonshot.cn", "api.moonshot.ai"}, tokenPrefixes: []string{"sk-"}, permissiveModels: true},
	{hosts: []string{"open.bigmodel.cn"}, tokenPrefixes: []string{"sk-", "ey"}, permissiveModels: true},
	{hosts: []string{"dashscope.aliyuncs.com"}, tokenPrefixes: []string{"sk-"}, permissiveModels: true},
}

// Model id families accepted for the default provider.
var modelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^claude-3(-[57])?-(opus|sonnet|haiku)-\d{8}$`),
	regexp.MustCompile(`^claude-3(-[57])?-(opus|sonnet|haiku)-latest$`),
	regexp.MustCompile(`^claude-(opus|sonnet|haiku)-4(-\d)?(-\d{8})?$`),
}

// Validate is a pure check over a profile draft: no I/O, violations
// accumulate and none are fatal to validation itself.
func Validate(doc Document) ValidationResult {
	var errs []string

	if strings.TrimSpace(doc.Name) == "" {
		errs = append(errs, "Profile name is required")
	}

	env := doc.Env()
	baseURL := strings.TrimSpace(env[EnvBaseURL])
	prov := providerForBaseURL(baseURL)

	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("Base URL %q is not a valid URL", baseURL))
		}
	}

	if token := strings.TrimSpace(env[EnvAuthToken]); token != "" {
		if !hasAnyPrefix(token, prov.tokenPrefixes) {
			errs = append(errs, fmt.Sprintf(
				"API token must start with one of %s", strings.Join(prov.tokenPrefixes, ", ")))
		}
		if len(token) < minTokenLength {
			errs = append(errs, fmt.Sprintf("API token looks too short (minimum %d characters)", minTokenLength))
		}
	}

	model := strings.TrimSpace(doc.SettingString("model"))
	if model == "" {
		model = strings.TrimSpace(env[EnvModel])
	}
	if model != "" && !prov.permissiveModels && !matchesAnyModel(model) {
		errs = append(errs, fmt.Sprintf("Model %q does not match any known model id format", model))
	}

	for name, server := range doc.MCPServers {
		if err := server.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("MCP server %q: %v", name, err))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func providerForBaseURL(baseURL string) provider {
	if baseURL == "" {
		return defaultProvider
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return defaultProvider
	}
	host := strings.ToLower(u.Hostname())
	for _, p := range altProviders {
		for _, h := range p.hosts {
			if host == h {
				return p
			}
		}
	}
	return defaultProvider
}

func hasAnyPrefix(token string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(token, p) {
			return true
		}
	}
	return false
}

func matchesAnyModel(model string) bool {
	for _, re := range modelPatterns {
		if re.MatchString(model) {
			return true
		}
	}
	return false
}
