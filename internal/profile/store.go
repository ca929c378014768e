package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"ccm/internal/config"
	"ccm/internal/debug"
	"ccm/internal/fsutil"
)

// ErrNotFound reports that a profile reference did not resolve.
var ErrNotFound = errors.New("profile not found")

// Entry is one profile on disk; the backing filename is the stable identity,
// the document name is only a display label.
type Entry struct {
	Filename string
	Doc      Document
}

// Store 管理 profiles 目录；每次调用都直接读盘，不做写穿缓存
// Store manages the profiles directory. Every call re-reads from disk, so
// two invocations of the tool see each other's writes (last writer wins).
type Store struct {
	paths config.Paths
}

func NewStore(paths config.Paths) *Store {
	return &Store{paths: paths}
}

// LoadAll reads every *.json in the profiles directory in filename order.
// A file that fails to parse is skipped and reported as a warning; partial
// success is the policy for listing paths.
func (s *Store) LoadAll() ([]Entry, []string, error) {
	dir := s.paths.ProfilesDir()
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read profiles dir: %w", err)
	}

	var entries []Entry
	var warnings []string
	names := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		var doc Document
		if err := fsutil.ReadJSON(filepath.Join(dir, name), &doc); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", name, err))
			debug.Logf("load profile %s: %v", name, err)
			continue
		}
		entries = append(entries, Entry{Filename: name, Doc: doc})
	}
	return entries, warnings, nil
}

// Get loads a single profile by its backing filename.
func (s *Store) Get(filename string) (Document, error) {
	var doc Document
	path := filepath.Join(s.paths.ProfilesDir(), filename)
	if err := fsutil.ReadJSON(path, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return Document{}, err
	}
	return doc, nil
}

// Save writes the document under its sanitized name and returns the filename.
func (s *Store) Save(doc Document) (string, error) {
	slug := SanitizeName(doc.Name)
	if slug == "" {
		return "", errors.New("profile name produces an empty filename")
	}
	if err := os.MkdirAll(s.paths.ProfilesDir(), 0o755); err != nil {
		return "", fmt.Errorf("create profiles dir: %w", err)
	}
	filename := slug + ".json"
	if err := fsutil.WriteJSON(filepath.Join(s.paths.ProfilesDir(), filename), doc); err != nil {
		return "", err
	}
	return filename, nil
}

// Apply activates a profile: the settings block (everything except name,
// group and mcpServers) fully overwrites the global settings file; the
// mcpServers block overwrites the global MCP config only when the key is
// present in the document. Each file is written atomically, but there is no
// cross-file transaction — a crash between the two writes can leave settings
// and MCP config from different profiles. Accepted risk.
func (s *Store) Apply(filename string) (string, error) {
	doc, err := s.Get(filename)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.paths.Root, 0o755); err != nil {
		return "", fmt.Errorf("create config root: %w", err)
	}
	if err := fsutil.WriteJSON(s.paths.SettingsFile(), doc.Settings); err != nil {
		return "", fmt.Errorf("write settings: %w", err)
	}

	if doc.HasMCP {
		if err := s.overwriteGlobalMCP(doc.MCPServers); err != nil {
			return "", err
		}
	}

	if err := fsutil.WriteFileAtomic(s.paths.LastProfileFile(), []byte(filename+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("record last profile: %w", err)
	}
	return doc.Name, nil
}

// overwriteGlobalMCP replaces only the mcpServers block of the global config
// document, passing every other top-level field through untouched.
func (s *Store) overwriteGlobalMCP(servers map[string]ServerConfig) error {
	path := s.paths.GlobalConfigFile()
	global := map[string]json.RawMessage{}
	if err := fsutil.ReadJSON(path, &global); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read global config: %w", err)
	}
	if servers == nil {
		servers = map[string]ServerConfig{}
	}
	raw, err := json.Marshal(servers)
	if err != nil {
		return fmt.Errorf("marshal mcpServers: %w", err)
	}
	global["mcpServers"] = raw
	if err := fsutil.WriteJSON(path, global); err != nil {
		return fmt.Errorf("write global config: %w", err)
	}
	return nil
}

// LastProfile returns the filename recorded by the most recent apply.
func (s *Store) LastProfile() (string, bool) {
	data, err := os.ReadFile(s.paths.LastProfileFile())
	if err != nil {
		return "", false
	}
	name := strings.TrimSpace(string(data))
	return name, name != ""
}

// Copy duplicates the referenced profile under a new display name.
func (s *Store) Copy(entries []Entry, ref, newName string) (string, error) {
	src, err := FindByRef(entries, ref)
	if err != nil {
		return "", err
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return "", errors.New("new profile name is empty")
	}
	slug := SanitizeName(newName)
	target := filepath.Join(s.paths.ProfilesDir(), slug+".json")
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("profile file %s.json already exists", slug)
	}
	doc := src.Doc
	doc.Name = newName
	return s.Save(doc)
}

// Delete removes the referenced profile file.
func (s *Store) Delete(entries []Entry, ref string) (Entry, error) {
	e, err := FindByRef(entries, ref)
	if err != nil {
		return Entry{}, err
	}
	if err := os.Remove(filepath.Join(s.paths.ProfilesDir(), e.Filename)); err != nil {
		return Entry{}, fmt.Errorf("delete %s: %w", e.Filename, err)
	}
	return e, nil
}

// SetMCPServer adds or replaces one MCP server on a stored profile.
func (s *Store) SetMCPServer(filename, serverName string, cfg ServerConfig) error {
	doc, err := s.Get(filename)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if doc.MCPServers == nil {
		doc.MCPServers = map[string]ServerConfig{}
	}
	doc.HasMCP = true
	doc.MCPServers[serverName] = cfg
	_, err = s.Save(doc)
	return err
}

// RemoveMCPServer deletes one MCP server from a stored profile.
func (s *Store) RemoveMCPServer(filename, serverName string) error {
	doc, err := s.Get(filename)
	if err != nil {
		return err
	}
	if _, ok := doc.MCPServers[serverName]; !ok {
		return fmt.Errorf("%w: mcp server %s", ErrNotFound, serverName)
	}
	delete(doc.MCPServers, serverName)
	_, err = s.Save(doc)
	return err
}

// FindByRef resolves a profile reference against the given (already loaded,
// already filtered) list. A 1-based index takes precedence when it parses
// and is in range; otherwise the first case-insensitive exact name match
// wins. Duplicate display names are not an error.
func FindByRef(entries []Entry, ref string) (Entry, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Entry{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(entries) {
		return entries[n-1], nil
	}
	for _, e := range entries {
		if strings.EqualFold(e.Doc.Name, ref) {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}
