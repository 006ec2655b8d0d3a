package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zfill/internal/persona"
)

// detailSections are the field indices that start a new visual group.
var detailSections = map[int]bool{5: true, 10: true}

// detailModel displays all fields of a saved persona.
type detailModel struct {
	persona  persona.Saved
	fields   []field
	cursor   int
	returnTo viewID
	flash    string
	flashErr bool
}

func newDetailModel(p persona.Saved, returnTo viewID) detailModel {
	fields := personaFields(p.Persona)
	fields = append(fields,
		field{"Domain", p.Domain},
		field{"Created", p.CreatedAt.Local().Format("2006-01-02 15:04")},
	)
	return detailModel{persona: p, fields: fields, returnTo: returnTo}
}

func (m detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m, nil
}

func (m detailModel) handleKey(msg tea.KeyMsg) (detailModel, tea.Cmd) {
	switch {
	case key.Matches(msg, zstyle.KeyQuit):
		return m, tea.Quit
	case key.Matches(msg, zstyle.KeyBack):
		return m, navigate(m.returnTo)
	case key.Matches(msg, zstyle.KeyUp):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, zstyle.KeyDown):
		if m.cursor < len(m.fields)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, zstyle.KeyEnter):
		return m.copy(m.fields[m.cursor].value, "copied!")
	}

	switch msg.String() {
	case "c":
		return m.copy(formatFields(m.fields), "copied all!")
	case "d":
		p := m.persona
		return m, func() tea.Msg { return forgetStartMsg{persona: p} }
	}

	return m, nil
}

func (m detailModel) copy(text, ok string) (detailModel, tea.Cmd) {
	m.flash, m.flashErr = ok, false
	if err := copyToClipboard(text); err != nil {
		m.flash, m.flashErr = "copy: "+err.Error(), true
	}
	return m, clearFlashAfter()
}

func (m detailModel) View() string {
	accentStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)

	s := "\n  " + zstyle.Subtitle.Render(m.persona.FullName) + "\n\n"

	for i, f := range m.fields {
		if detailSections[i] {
			s += "\n"
		}
		label := zstyle.MutedText.Render(fmt.Sprintf("%-10s", f.label))
		if i == m.cursor {
			s += "  " + accentStyle.Render("▸") + " " + label + " " + f.value + "\n"
		} else {
			s += "    " + label + " " + f.value + "\n"
		}
	}

	s += "\n  " + aliasLine(m.persona.Alias) + "\n\n"
	return s + renderFlash(m.flash, m.flashErr)
}

func aliasLine(l *persona.Link) string {
	switch {
	case l == nil:
		return zstyle.MutedText.Render("no SimpleLogin alias")
	case l.DeletedRemotely:
		return zstyle.StatusWarn.Render(fmt.Sprintf("alias %d deleted in SimpleLogin", l.AliasID))
	case !l.Enabled:
		return zstyle.StatusWarn.Render(fmt.Sprintf("alias %s (disabled)", l.Email))
	default:
		return zstyle.StatusOK.Render("alias " + l.Email)
	}
}
