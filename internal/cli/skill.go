package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ccm/internal/skills"
)

func newSkillCommand(app *App) *cobra.Command {
	skillCmd := &cobra.Command{
		Use:   "skill",
		Short: "Browse the public skill repositories",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available skills",
		RunE:  app.runSkillList,
	}

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search skills by name",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runSkillSearch,
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Render a skill's SKILL.md",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runSkillShow,
	}

	skillCmd.AddCommand(listCmd, searchCmd, showCmd)
	return skillCmd
}

func (a *App) runSkillList(cmd *cobra.Command, args []string) error {
	return a.printSkills(skills.NewClient(a.Settings.SkillRepoDirs).List(cmd.Context()))
}

func (a *App) runSkillSearch(cmd *cobra.Command, args []string) error {
	return a.printSkills(skills.NewClient(a.Settings.SkillRepoDirs).Search(cmd.Context(), args[0]))
}

func (a *App) printSkills(items []skills.Skill) error {
	if len(items) == 0 {
		printMuted("no skills found (network problem or nothing matched)")
		return nil
	}
	for _, s := range items {
		fmt.Println("  " + s.Name)
	}
	return nil
}

func (a *App) runSkillShow(cmd *cobra.Command, args []string) error {
	client := skills.NewClient(a.Settings.SkillRepoDirs)
	skill, ok := client.Get(cmd.Context(), args[0])
	if !ok {
		return fmt.Errorf("skill %q not found", args[0])
	}
	body, err := client.Readme(cmd.Context(), skill)
	if err != nil {
		return err
	}
	fmt.Println(renderMarkdown(body))
	return nil
}

// renderMarkdown renders through glamour when stdout is a terminal and
// falls back to the raw text otherwise.
func renderMarkdown(content string) string {
	if !stdoutIsTTY() {
		return content
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}
