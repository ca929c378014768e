// Package registry is a read-only client for the MCP server registry. It is
// a presentation path: network failures degrade to empty results instead of
// propagating, and responses are cached for a short TTL.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"ccm/internal/cache"
	"ccm/internal/debug"
	"ccm/internal/profile"
)

const (
	searchTTL      = 10 * time.Minute
	requestTimeout = 10 * time.Second
	pageLimit      = 100
	maxPages       = 10
)

// Server is one registry entry reduced to what the CLI needs.
type Server struct {
	Name        string
	Description string
	Version     string
	Package     serverPackage
	Remote      serverRemote
}

type serverPackage struct {
	RegistryType string `json:"registryType"`
	Identifier   string `json:"identifier"`
}

type serverRemote struct {
	Type    string            `json:"type"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Config converts the entry to a profile server config: a remote endpoint
// when the registry lists one, otherwise a stdio launcher derived from the
// package metadata.
func (s Server) Config() (profile.ServerConfig, bool) {
	if s.Remote.URL != "" {
		kind := strings.ToLower(strings.TrimSpace(s.Remote.Type))
		if kind != profile.ServerSSE {
			kind = profile.ServerHTTP
		}
		return profile.ServerConfig{Type: kind, URL: s.Remote.URL, Headers: s.Remote.Headers}, true
	}
	return profile.StdioForPackage(s.Package.RegistryType, s.Package.Identifier)
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   *cache.Cache[[]Server]
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: requestTimeout},
		cache:   cache.New[[]Server](),
	}
}

// Search lists registry servers matching query as a case-insensitive
// substring of name or description. Results are re-paged client-side,
// de-duplicated by server name (latest entry wins) and cached for 10
// minutes. Failures yield an empty list.
func (c *Client) Search(ctx context.Context, query string) []Server {
	all, err := c.cache.GetOrCompute("registry:servers", searchTTL, func() ([]Server, error) {
		return c.fetchAll(ctx)
	})
	if err != nil {
		debug.Logf("registry fetch: %v", err)
		return nil
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all
	}
	var out []Server
	for _, s := range all {
		if strings.Contains(strings.ToLower(s.Name), query) ||
			strings.Contains(strings.ToLower(s.Description), query) {
			out = append(out, s)
		}
	}
	return out
}

type registryEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Version     string          `json:"version"`
	Packages    []serverPackage `json:"packages"`
	Remotes     []serverRemote  `json:"remotes"`
	Meta        struct {
		Official struct {
			IsLatest bool `json:"isLatest"`
		} `json:"io.modelcontextprotocol.registry/official"`
	} `json:"_meta"`
}

type registryPage struct {
	Servers  []registryEntry `json:"servers"`
	Metadata struct {
		NextCursor string `json:"nextCursor"`
	} `json:"metadata"`
}

func (c *Client) fetchAll(ctx context.Context) ([]Server, error) {
	byName := map[string]Server{}
	cursor := ""
	for page := 0; page < maxPages; page++ {
		p, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for _, e := range p.Servers {
			// The registry returns every published version; only latest
			// entries are offered to the user.
			if !e.Meta.Official.IsLatest {
				continue
			}
			s := Server{Name: e.Name, Description: e.Description, Version: e.Version}
			if len(e.Packages) > 0 {
				s.Package = e.Packages[0]
			}
			if len(e.Remotes) > 0 {
				s.Remote = e.Remotes[0]
			}
			byName[s.Name] = s
		}
		cursor = p.Metadata.NextCursor
		if cursor == "" {
			break
		}
	}

	out := make([]Server, 0, len(byName))
	for _, s := range byName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, cursor string) (registryPage, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", pageLimit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return registryPage{}, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return registryPage{}, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return registryPage{}, fmt.Errorf("registry returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return registryPage{}, fmt.Errorf("read registry response: %w", err)
	}
	var page registryPage
	if err := json.Unmarshal(body, &page); err != nil {
		return registryPage{}, fmt.Errorf("parse registry response: %w", err)
	}
	return page, nil
}
