// Package skills browses the public skill repositories on GitHub. Like the
// registry client it is a presentation path: failures degrade to empty
// results and listings are cached for a short TTL.
package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ccm/internal/cache"
	"ccm/internal/debug"
)

const (
	listTTL        = 15 * time.Minute
	requestTimeout = 10 * time.Second
	maxBodySize    = 4 << 20
)

// Skill is one directory entry from a skill repository.
type Skill struct {
	Name string
	// Source is the contents-API URL of the skill's directory, used to
	// locate its SKILL.md on demand.
	Source string
}

type Client struct {
	repoDirs []string
	http     *http.Client
	cache    *cache.Cache[[]Skill]
}

func NewClient(repoDirs []string) *Client {
	return &Client{
		repoDirs: repoDirs,
		http:     &http.Client{Timeout: requestTimeout},
		cache:    cache.New[[]Skill](),
	}
}

// contentsEntry is the slice of the GitHub contents API response we use.
type contentsEntry struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
}

// List fetches every configured repo directory in parallel, merges the
// results and de-duplicates by skill name (first repo wins). A failing repo
// contributes nothing; the listing never errors out as a whole.
func (c *Client) List(ctx context.Context) []Skill {
	skills, err := c.cache.GetOrCompute("skills:list", listTTL, func() ([]Skill, error) {
		return c.fetchAll(ctx), nil
	})
	if err != nil {
		return nil
	}
	return skills
}

// Search filters the listing by case-insensitive substring match.
func (c *Client) Search(ctx context.Context, query string) []Skill {
	all := c.List(ctx)
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all
	}
	var out []Skill
	for _, s := range all {
		if strings.Contains(strings.ToLower(s.Name), query) {
			out = append(out, s)
		}
	}
	return out
}

// Get resolves one skill by exact name, case-insensitively.
func (c *Client) Get(ctx context.Context, name string) (Skill, bool) {
	for _, s := range c.List(ctx) {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Skill{}, false
}

// Readme fetches the skill's SKILL.md content for display.
func (c *Client) Readme(ctx context.Context, skill Skill) (string, error) {
	entries, err := c.fetchDir(ctx, skill.Source)
	if err != nil {
		return "", fmt.Errorf("list skill %s: %w", skill.Name, err)
	}
	for _, e := range entries {
		if !strings.EqualFold(e.Name, "SKILL.md") || e.DownloadURL == "" {
			continue
		}
		body, err := c.fetch(ctx, e.DownloadURL)
		if err != nil {
			return "", fmt.Errorf("fetch SKILL.md for %s: %w", skill.Name, err)
		}
		return string(body), nil
	}
	return "", fmt.Errorf("skill %s has no SKILL.md", skill.Name)
}

func (c *Client) fetchAll(ctx context.Context) []Skill {
	// Each goroutine owns one slot, so no lock is needed around results.
	results := make([][]Skill, len(c.repoDirs))
	var g errgroup.Group
	for i, dir := range c.repoDirs {
		g.Go(func() error {
			entries, err := c.fetchDir(ctx, dir)
			if err != nil {
				debug.Logf("skills fetch %s: %v", dir, err)
				return nil
			}
			var skills []Skill
			for _, e := range entries {
				if e.Type != "dir" {
					continue
				}
				skills = append(skills, Skill{Name: e.Name, Source: e.URL})
			}
			results[i] = skills
			return nil
		})
	}
	_ = g.Wait()

	seen := map[string]bool{}
	var out []Skill
	for _, skills := range results {
		for _, s := range skills {
			key := strings.ToLower(s.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Client) fetchDir(ctx context.Context, url string) ([]contentsEntry, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	var entries []contentsEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("parse contents listing: %w", err)
	}
	return entries, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}
