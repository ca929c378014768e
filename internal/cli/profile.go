package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"ccm/internal/profile"
)

func newProfileCommand(app *App) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profiles",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE:  app.runProfileList,
	}
	listCmd.Flags().String("group", "", "Only show profiles in this group")

	showCmd := &cobra.Command{
		Use:   "show <profile>",
		Short: "Show one profile's document",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runProfileShow,
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a profile through guided prompts",
		RunE:  app.runProfileNew,
	}

	copyCmd := &cobra.Command{
		Use:   "copy <profile> <new-name>",
		Short: "Duplicate a profile under a new name",
		Args:  cobra.ExactArgs(2),
		RunE:  app.runProfileCopy,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <profile>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runProfileDelete,
	}
	deleteCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")

	validateCmd := &cobra.Command{
		Use:   "validate <profile>",
		Short: "Check a profile for common mistakes",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runProfileValidate,
	}

	profileCmd.AddCommand(listCmd, showCmd, newCmd, copyCmd, deleteCmd, validateCmd)
	return profileCmd
}

// loadProfiles loads the store, prints skip warnings and applies the
// optional group filter. References resolve against the filtered list.
func (a *App) loadProfiles(group string) (*profile.Store, []profile.Entry, error) {
	store := profile.NewStore(a.Settings.Paths)
	entries, warnings, err := store.LoadAll()
	if err != nil {
		return nil, nil, err
	}
	printWarnings(warnings)
	if group != "" {
		var filtered []profile.Entry
		for _, e := range entries {
			if strings.EqualFold(e.Doc.Group, group) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	return store, entries, nil
}

func (a *App) runProfileList(cmd *cobra.Command, args []string) error {
	group, _ := cmd.Flags().GetString("group")
	store, entries, err := a.loadProfiles(group)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printMuted("no profiles")
		return nil
	}

	last, _ := store.LastProfile()
	fmt.Println(titleStyle.Render("Profiles"))
	for i, e := range entries {
		marker := " "
		if e.Filename == last {
			marker = successStyle.Render("*")
		}
		line := fmt.Sprintf("%s %2d. %s", marker, i+1, e.Doc.Name)
		var extras []string
		if e.Doc.Group != "" {
			extras = append(extras, e.Doc.Group)
		}
		if model := e.Doc.SettingString("model"); model != "" {
			extras = append(extras, model)
		}
		if len(extras) > 0 {
			line += "  " + mutedStyle.Render(strings.Join(extras, " · "))
		}
		fmt.Println(line)
	}
	return nil
}

func (a *App) runProfileShow(cmd *cobra.Command, args []string) error {
	_, entries, err := a.loadProfiles("")
	if err != nil {
		return err
	}
	entry, err := profile.FindByRef(entries, args[0])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry.Doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render(entry.Filename))
	fmt.Println(string(data))
	return nil
}

func (a *App) runProfileNew(cmd *cobra.Command, args []string) error {
	if !stdinIsTTY() {
		return fmt.Errorf("profile new needs an interactive terminal")
	}
	rl, err := readline.New("> ")
	if err != nil {
		return fmt.Errorf("open prompt: %w", err)
	}
	defer rl.Close()

	ask := func(prompt string) (string, error) {
		rl.SetPrompt(prompt)
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	name, err := ask("Profile name: ")
	if err != nil {
		return err
	}
	group, err := ask("Group (optional): ")
	if err != nil {
		return err
	}
	token, err := ask("API token (optional): ")
	if err != nil {
		return err
	}
	baseURL, err := ask("Base URL (optional): ")
	if err != nil {
		return err
	}
	model, err := ask("Model (optional): ")
	if err != nil {
		return err
	}

	doc := buildProfileDoc(name, group, token, baseURL, model)
	result := profile.Validate(doc)
	if !result.Valid {
		for _, msg := range result.Errors {
			printWarn("• %s", msg)
		}
		if !confirm("Save anyway?", false) {
			return fmt.Errorf("profile not saved")
		}
	}

	store := profile.NewStore(a.Settings.Paths)
	filename, err := store.Save(doc)
	if err != nil {
		return err
	}
	printSuccess("✓ saved %s", filename)
	return nil
}

// buildProfileDoc assembles the document for the guided flow. Empty answers
// leave the corresponding fields out entirely.
func buildProfileDoc(name, group, token, baseURL, model string) profile.Document {
	doc := profile.Document{
		Name:     name,
		Group:    group,
		Settings: map[string]json.RawMessage{},
	}
	env := map[string]string{}
	if token != "" {
		env[profile.EnvAuthToken] = token
	}
	if baseURL != "" {
		env[profile.EnvBaseURL] = baseURL
	}
	if len(env) > 0 {
		raw, err := json.Marshal(env)
		if err == nil {
			doc.Settings["env"] = raw
		}
	}
	if model != "" {
		raw, err := json.Marshal(model)
		if err == nil {
			doc.Settings["model"] = raw
		}
	}
	return doc
}

func (a *App) runProfileCopy(cmd *cobra.Command, args []string) error {
	store, entries, err := a.loadProfiles("")
	if err != nil {
		return err
	}
	filename, err := store.Copy(entries, args[0], args[1])
	if err != nil {
		return err
	}
	printSuccess("✓ copied to %s", filename)
	return nil
}

func (a *App) runProfileDelete(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	store, entries, err := a.loadProfiles("")
	if err != nil {
		return err
	}
	entry, err := profile.FindByRef(entries, args[0])
	if err != nil {
		return err
	}
	if !confirm(fmt.Sprintf("Delete profile %s (%s)?", entry.Doc.Name, entry.Filename), force) {
		printMuted("not deleted")
		return nil
	}
	if _, err := store.Delete(entries, args[0]); err != nil {
		return err
	}
	printSuccess("✓ deleted %s", entry.Filename)
	return nil
}

func (a *App) runProfileValidate(cmd *cobra.Command, args []string) error {
	_, entries, err := a.loadProfiles("")
	if err != nil {
		return err
	}
	entry, err := profile.FindByRef(entries, args[0])
	if err != nil {
		return err
	}
	result := profile.Validate(entry.Doc)
	if result.Valid {
		printSuccess("✓ %s looks good", entry.Doc.Name)
		return nil
	}
	for _, msg := range result.Errors {
		printWarn("• %s", msg)
	}
	return fmt.Errorf("%d validation problem(s)", len(result.Errors))
}
