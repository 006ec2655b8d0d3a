package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zfill/internal/filter"
	"github.com/zarlcorp/zfill/internal/persona"
)

// fieldCycle is the order the f key steps through search fields.
var fieldCycle = []filter.Fields{
	filter.AllFields,
	filter.FieldName,
	filter.FieldEmail,
	filter.FieldUsername,
	filter.FieldDomain,
	filter.FieldPhone,
	filter.FieldAddress,
}

// listModel displays saved personas with search.
type listModel struct {
	personas  []persona.Saved // sorted, unfiltered
	visible   []persona.Saved
	search    textinput.Model
	searching bool
	fieldIdx  int
	cursor    int
	flash     string
}

// viewPersonaMsg requests the detail view for a persona.
type viewPersonaMsg struct {
	persona persona.Saved
}

// forgetStartMsg opens the forget confirmation for a persona.
type forgetStartMsg struct {
	persona persona.Saved
}

func newListModel(ps []persona.Saved, domain string) listModel {
	ti := textinput.New()
	ti.Placeholder = "search"
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = 30

	m := listModel{personas: filter.Sort(ps, domain), search: ti}
	m.refilter()
	return m
}

func (m listModel) fields() filter.Fields {
	return fieldCycle[m.fieldIdx]
}

func (m *listModel) refilter() {
	m.visible = filter.Personas(m.personas, m.search.Value(), m.fields())
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

func (m listModel) Update(msg tea.Msg) (listModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	if m.searching {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m listModel) handleSearchKey(msg tea.KeyMsg) (listModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc, tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.refilter()
	return m, cmd
}

func (m listModel) handleKey(msg tea.KeyMsg) (listModel, tea.Cmd) {
	switch {
	case key.Matches(msg, zstyle.KeyQuit):
		return m, tea.Quit
	case key.Matches(msg, zstyle.KeyBack):
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.refilter()
			return m, nil
		}
		return m, navigate(viewMenu)
	}

	switch msg.String() {
	case "/":
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd
	case "f":
		m.fieldIdx = (m.fieldIdx + 1) % len(fieldCycle)
		m.refilter()
		return m, nil
	}

	if len(m.visible) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, zstyle.KeyUp):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, zstyle.KeyDown):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case key.Matches(msg, zstyle.KeyEnter):
		p := m.visible[m.cursor]
		return m, func() tea.Msg { return viewPersonaMsg{persona: p} }
	case msg.String() == "d":
		p := m.visible[m.cursor]
		return m, func() tea.Msg { return forgetStartMsg{persona: p} }
	}

	return m, nil
}

func (m listModel) View() string {
	accentStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)

	s := "\n"
	if m.searching || m.search.Value() != "" {
		s += "  " + m.search.View() + "\n"
	}
	s += "  " + zstyle.MutedText.Render(fmt.Sprintf("fields: %s  %d of %d", m.fields(), len(m.visible), len(m.personas))) + "\n\n"

	if len(m.visible) == 0 {
		empty := "no saved personas"
		if len(m.personas) > 0 {
			empty = "no matches"
		}
		s += "  " + zstyle.MutedText.Render(empty) + "\n\n"
		return s + renderFlash(m.flash, false)
	}

	for i, p := range m.visible {
		name := truncate(p.FullName, 20)
		email := truncate(p.Email, 32)
		domain := truncate(p.Domain, 20)
		line := fmt.Sprintf("%-20s %-32s %-20s", name, email, domain)
		if p.Linked() {
			line += " " + zstyle.MutedText.Render("alias")
		}

		if i == m.cursor {
			s += "  " + accentStyle.Render("▸") + " " + line + "\n"
		} else {
			s += "    " + line + "\n"
		}
	}

	return s + "\n" + renderFlash(m.flash, false)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
