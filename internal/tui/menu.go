package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
)

type menuChoice int

const (
	menuGenerate menuChoice = iota
	menuBrowse
	menuAliases
	menuSync
	menuSettings
	menuQuit
)

var menuItems = []string{
	"Generate persona",
	"Browse personas",
	"SimpleLogin aliases",
	"Sync with SimpleLogin",
	"Settings",
	"Quit",
}

// menuModel is the main menu view.
type menuModel struct {
	cursor        int
	version       string
	personaCount  int
	keyConfigured bool
}

// navigateMsg tells the root model to switch views.
type navigateMsg struct {
	view viewID
}

// syncStartMsg asks the root to reconcile with SimpleLogin.
type syncStartMsg struct{}

func newMenuModel(version string) menuModel {
	return menuModel{version: version}
}

func (m menuModel) Update(msg tea.Msg) (menuModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(km, zstyle.KeyQuit):
		return m, tea.Quit
	case key.Matches(km, zstyle.KeyUp):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, zstyle.KeyDown):
		if m.cursor < len(menuItems)-1 {
			m.cursor++
		}
	case key.Matches(km, zstyle.KeyEnter):
		return m, m.selectItem()
	}

	return m, nil
}

func (m menuModel) selectItem() tea.Cmd {
	switch menuChoice(m.cursor) {
	case menuGenerate:
		return navigate(viewGenerate)
	case menuBrowse:
		return navigate(viewList)
	case menuAliases:
		return navigate(viewAliases)
	case menuSync:
		return func() tea.Msg { return syncStartMsg{} }
	case menuSettings:
		return navigate(viewSettings)
	case menuQuit:
		return tea.Quit
	}
	return nil
}

func navigate(v viewID) tea.Cmd {
	return func() tea.Msg { return navigateMsg{view: v} }
}

func (m menuModel) View() string {
	title := zstyle.Title.Render("zfill")
	ver := zstyle.MutedText.Render(m.version)

	s := fmt.Sprintf("\n  %s %s\n", title, ver)

	status := fmt.Sprintf("%d personas", m.personaCount)
	if m.personaCount == 1 {
		status = "1 persona"
	}
	if !m.keyConfigured {
		status += ", no SimpleLogin key"
	}
	s += "  " + zstyle.MutedText.Render(status) + "\n\n"

	for i, item := range menuItems {
		if m.cursor == i {
			s += zstyle.Highlight.Render("  > "+item) + "\n"
		} else {
			s += "    " + item + "\n"
		}
	}

	s += "\n  " + zstyle.MutedText.Render("j/k navigate  enter select  q quit") + "\n\n"
	return s
}
