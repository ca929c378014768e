package cli

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ccm/internal/profile"
)

// profileItem adapts a profile entry to the bubbles list model.
type profileItem struct {
	entry profile.Entry
}

func (i profileItem) Title() string { return i.entry.Doc.Name }

func (i profileItem) Description() string {
	desc := i.entry.Filename
	if i.entry.Doc.Group != "" {
		desc = i.entry.Doc.Group + " · " + desc
	}
	if model := i.entry.Doc.SettingString("model"); model != "" {
		desc += " · " + model
	}
	return desc
}

func (i profileItem) FilterValue() string {
	return i.entry.Doc.Name + " " + i.entry.Doc.Group
}

type pickerModel struct {
	list     list.Model
	selected *profile.Entry
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		// Let the list's filter input consume keys while active.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(profileItem); ok {
				e := item.entry
				m.selected = &e
			}
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return lipgloss.NewStyle().Margin(1, 2).Render(m.list.View())
}

// pickProfile runs the interactive picker and returns the chosen entry, or
// false when the user backed out.
func pickProfile(entries []profile.Entry) (profile.Entry, bool, error) {
	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, profileItem{entry: e})
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 0, 0)
	l.Title = "Select a profile"
	l.SetShowStatusBar(false)

	m := pickerModel{list: l}
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return profile.Entry{}, false, fmt.Errorf("run profile picker: %w", err)
	}
	result, ok := final.(pickerModel)
	if !ok || result.selected == nil {
		return profile.Entry{}, false, nil
	}
	return *result.selected, true, nil
}
