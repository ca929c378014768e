package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"ccm/internal/orchestrator"
)

// maxTemplateFileSize keeps accidental binaries and build output from
// landing inside a template bundle.
const maxTemplateFileSize = 256 << 10

func newTemplateCommand(app *App) *cobra.Command {
	templateCmd := &cobra.Command{
		Use:   "template",
		Short: "Save directory snapshots and scaffold projects from them",
	}

	saveCmd := &cobra.Command{
		Use:   "save <name> <dir>",
		Short: "Save a directory's text files as a template",
		Long: `Save every text file under dir as a template. Occurrences of the project
name can be written as {{PROJECT_NAME}}; they are substituted when a project
is created from the template.`,
		Args: cobra.ExactArgs(2),
		RunE: app.runTemplateSave,
	}

	createCmd := &cobra.Command{
		Use:   "create <template> <project-name> [target-dir]",
		Short: "Scaffold a new project from a template",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  app.runTemplateCreate,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved templates",
		RunE:  app.runTemplateList,
	}

	templateCmd.AddCommand(saveCmd, createCmd, listCmd)
	return templateCmd
}

func (a *App) runTemplateSave(cmd *cobra.Command, args []string) error {
	name, dir := args[0], args[1]
	files, skipped, err := collectTemplateFiles(dir)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		printMuted("skipped %s", s)
	}

	manager := orchestrator.NewTemplateManager(a.Settings.Paths)
	tpl, err := manager.Save(name, files)
	if err != nil {
		return err
	}
	printSuccess("✓ saved template %s (%d files)", tpl.Name, len(tpl.Files))
	return nil
}

// collectTemplateFiles walks dir and returns its text files keyed by
// slash-separated relative path. Oversized and non-UTF-8 files are skipped
// and reported, not fatal.
func collectTemplateFiles(dir string) (map[string]string, []string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("inspect %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a directory", dir)
	}

	files := map[string]string{}
	var skipped []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden trees like .git are never part of a template.
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Size() > maxTemplateFileSize {
			skipped = append(skipped, rel+" (too large)")
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !utf8.Valid(data) {
			skipped = append(skipped, rel+" (binary)")
			return nil
		}
		files[rel] = string(data)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no text files found under %s", dir)
	}
	return files, skipped, nil
}

func (a *App) runTemplateCreate(cmd *cobra.Command, args []string) error {
	templateName, projectName := args[0], args[1]
	targetDir := projectName
	if len(args) == 3 {
		targetDir = args[2]
	}

	manager := orchestrator.NewTemplateManager(a.Settings.Paths)
	if err := manager.CreateProject(templateName, projectName, targetDir); err != nil {
		return err
	}
	printSuccess("✓ created %s from template %s", targetDir, templateName)
	return nil
}

func (a *App) runTemplateList(cmd *cobra.Command, args []string) error {
	manager := orchestrator.NewTemplateManager(a.Settings.Paths)
	templates, err := manager.List()
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		printMuted("no templates")
		return nil
	}
	for _, t := range templates {
		fmt.Printf("%s  %s\n", titleStyle.Render(t.Name), mutedStyle.Render(fmt.Sprintf("%d files", len(t.Files))))
	}
	return nil
}
