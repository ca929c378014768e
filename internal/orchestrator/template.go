package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ccm/internal/config"
	"ccm/internal/fsutil"
	"ccm/internal/profile"
)

// ProjectNameToken is the placeholder substituted with the project name in
// every template file at creation time.
const ProjectNameToken = "{{PROJECT_NAME}}"

// Template is a named bundle of relative-path → templated-content pairs.
type Template struct {
	Name    string            `json:"name"`
	Files   map[string]string `json:"files"`
	Created time.Time         `json:"created"`
}

type TemplateManager struct {
	paths config.Paths
}

func NewTemplateManager(paths config.Paths) *TemplateManager {
	return &TemplateManager{paths: paths}
}

func (t *TemplateManager) Save(name string, files map[string]string) (Template, error) {
	slug := profile.SanitizeName(name)
	if slug == "" {
		return Template{}, errors.New("template name is empty")
	}
	if len(files) == 0 {
		return Template{}, errors.New("template has no files")
	}
	for rel := range files {
		if err := checkRelPath(rel); err != nil {
			return Template{}, err
		}
	}
	tpl := Template{Name: name, Files: files, Created: time.Now().UTC()}
	if err := os.MkdirAll(t.paths.TemplatesDir(), 0o755); err != nil {
		return Template{}, fmt.Errorf("create templates dir: %w", err)
	}
	if err := fsutil.WriteJSON(t.path(slug), tpl); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

func (t *TemplateManager) Get(name string) (Template, error) {
	var tpl Template
	if err := fsutil.ReadJSON(t.path(profile.SanitizeName(name)), &tpl); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Template{}, fmt.Errorf("template %w: %s", ErrNotFound, name)
		}
		return Template{}, err
	}
	return tpl, nil
}

func (t *TemplateManager) List() ([]Template, error) {
	entries, err := os.ReadDir(t.paths.TemplatesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read templates dir: %w", err)
	}
	var out []Template
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var tpl Template
		if err := fsutil.ReadJSON(filepath.Join(t.paths.TemplatesDir(), e.Name()), &tpl); err != nil {
			continue
		}
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateProject scaffolds targetDir from the template, substituting every
// occurrence of the project-name token. It fails when targetDir already
// exists rather than merging into it.
func (t *TemplateManager) CreateProject(templateName, projectName, targetDir string) error {
	tpl, err := t.Get(templateName)
	if err != nil {
		return err
	}
	if strings.TrimSpace(projectName) == "" {
		return errors.New("project name is empty")
	}
	if _, err := os.Stat(targetDir); err == nil {
		return fmt.Errorf("target directory %s already exists", targetDir)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("inspect %s: %w", targetDir, err)
	}

	for rel, content := range tpl.Files {
		if err := checkRelPath(rel); err != nil {
			return err
		}
		dst := filepath.Join(targetDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
		}
		rendered := strings.ReplaceAll(content, ProjectNameToken, projectName)
		if err := os.WriteFile(dst, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dst, err)
		}
	}
	return nil
}

func (t *TemplateManager) path(slug string) string {
	return filepath.Join(t.paths.TemplatesDir(), slug+".json")
}

// checkRelPath rejects template paths that could escape the target dir.
func checkRelPath(rel string) error {
	if rel == "" {
		return errors.New("template file path is empty")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return fmt.Errorf("template path %q must be relative", rel)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("template path %q escapes the project directory", rel)
	}
	return nil
}
