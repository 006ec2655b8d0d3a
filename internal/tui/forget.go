package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zfill/internal/persona"
)

// forgetConfirmMsg asks the root to remove a persona.
type forgetConfirmMsg struct {
	id string
}

// forgetModel confirms removing a persona from the vault.
type forgetModel struct {
	persona  persona.Saved
	returnTo viewID
	err      error
}

func newForgetModel(p persona.Saved, returnTo viewID) forgetModel {
	return forgetModel{persona: p, returnTo: returnTo}
}

// plan lists what confirming will do.
func (m forgetModel) plan() []string {
	steps := []string{"remove " + m.persona.FullName + " from the vault"}
	if id, ok := m.persona.AliasID(); ok {
		steps = append(steps,
			fmt.Sprintf("stop alias %d from recreating it on sync", id),
			"leave the alias itself untouched in SimpleLogin",
		)
	}
	return steps
}

func (m forgetModel) Update(msg tea.Msg) (forgetModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.Matches(km, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if km.String() == "y" {
		id := m.persona.ID
		return m, func() tea.Msg { return forgetConfirmMsg{id: id} }
	}

	// any other key cancels
	return m, navigate(m.returnTo)
}

func (m forgetModel) View() string {
	s := "\n  " + zstyle.Subtitle.Render("forget "+m.persona.FullName+"?") + "\n\n"

	s += "  " + zstyle.MutedText.Render("this will:") + "\n"
	for _, step := range m.plan() {
		s += fmt.Sprintf("  %s %s\n", zstyle.StatusWarn.Render("-"), step)
	}

	s += "\n  " + zstyle.StatusWarn.Render("the persona data cannot be recovered.") + " (y/n)\n"

	if m.err != nil {
		s += "\n  " + zstyle.StatusErr.Render("forget: "+m.err.Error()) + "\n"
	}
	return s
}
