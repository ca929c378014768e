package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ccm/internal/profile"
	"ccm/internal/registry"
)

func newMCPCommand(app *App) *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Browse the MCP registry and edit profile MCP servers",
	}

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the MCP server registry",
		Args:  cobra.MaximumNArgs(1),
		RunE:  app.runMCPSearch,
	}

	addCmd := &cobra.Command{
		Use:   "add <server-name>",
		Short: "Add a registry server to a profile",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runMCPAdd,
	}
	addCmd.Flags().StringP("profile", "p", "", "Profile to edit (index or name); defaults to the last applied one")

	removeCmd := &cobra.Command{
		Use:   "remove <server-name>",
		Short: "Remove an MCP server from a profile",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runMCPRemove,
	}
	removeCmd.Flags().StringP("profile", "p", "", "Profile to edit (index or name); defaults to the last applied one")

	mcpCmd.AddCommand(searchCmd, addCmd, removeCmd)
	return mcpCmd
}

func (a *App) runMCPSearch(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	client := registry.NewClient(a.Settings.RegistryURL)
	servers := client.Search(cmd.Context(), query)
	if len(servers) == 0 {
		printMuted("no servers found")
		return nil
	}
	for _, s := range servers {
		line := fmt.Sprintf("%s %s", titleStyle.Render(s.Name), mutedStyle.Render(s.Version))
		fmt.Println(line)
		if s.Description != "" {
			fmt.Println("  " + s.Description)
		}
	}
	return nil
}

// resolveEditProfile picks the profile an mcp add/remove edits: the flag
// value when given, otherwise the last applied profile.
func (a *App) resolveEditProfile(ref string) (*profile.Store, profile.Entry, error) {
	store, entries, err := a.loadProfiles("")
	if err != nil {
		return nil, profile.Entry{}, err
	}
	if strings.TrimSpace(ref) != "" {
		e, err := profile.FindByRef(entries, ref)
		return store, e, err
	}
	last, ok := store.LastProfile()
	if !ok {
		return nil, profile.Entry{}, fmt.Errorf("no profile given and none applied yet; use --profile")
	}
	for _, e := range entries {
		if e.Filename == last {
			return store, e, nil
		}
	}
	return nil, profile.Entry{}, fmt.Errorf("%w: last applied profile %s", profile.ErrNotFound, last)
}

func (a *App) runMCPAdd(cmd *cobra.Command, args []string) error {
	ref, _ := cmd.Flags().GetString("profile")
	store, entry, err := a.resolveEditProfile(ref)
	if err != nil {
		return err
	}

	serverName := args[0]
	client := registry.NewClient(a.Settings.RegistryURL)
	matches := client.Search(cmd.Context(), serverName)
	var found *registry.Server
	for i, s := range matches {
		if strings.EqualFold(s.Name, serverName) {
			found = &matches[i]
			break
		}
	}
	if found == nil && len(matches) == 1 {
		found = &matches[0]
	}
	if found == nil {
		return fmt.Errorf("registry server %q not found (try `ccm mcp search %s`)", serverName, serverName)
	}

	cfg, ok := found.Config()
	if !ok {
		return fmt.Errorf("server %s has neither a remote endpoint nor a runnable package", found.Name)
	}
	if err := store.SetMCPServer(entry.Filename, found.Name, cfg); err != nil {
		return err
	}
	printSuccess("✓ added %s (%s) to %s", found.Name, cfg.Type, entry.Doc.Name)
	printMuted("run `ccm use %s` to push it to the global MCP config", entry.Doc.Name)
	return nil
}

func (a *App) runMCPRemove(cmd *cobra.Command, args []string) error {
	ref, _ := cmd.Flags().GetString("profile")
	store, entry, err := a.resolveEditProfile(ref)
	if err != nil {
		return err
	}
	if err := store.RemoveMCPServer(entry.Filename, args[0]); err != nil {
		return err
	}
	printSuccess("✓ removed %s from %s", args[0], entry.Doc.Name)
	return nil
}
