package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zfill/internal/filter"
)

// facetKeys maps the number keys to alias filters.
var facetKeys = []struct {
	key   string
	facet filter.Facets
	label string
}{
	{"1", filter.FacetActive, "active"},
	{"2", filter.FacetDisabled, "disabled"},
	{"3", filter.FacetLinked, "linked"},
	{"4", filter.FacetUnlinked, "unlinked"},
	{"5", filter.FacetWontSync, "won't sync"},
}

// aliasesLoadedMsg carries the annotated remote alias list.
type aliasesLoadedMsg struct {
	views []filter.AliasView
	err   error
}

// restoreAliasMsg asks the root to let a forgotten alias sync again.
type restoreAliasMsg struct {
	id int64
}

// aliasesModel browses SimpleLogin aliases alongside local personas.
type aliasesModel struct {
	loading   bool
	err       error
	views     []filter.AliasView
	visible   []filter.AliasView
	facets    filter.Facets
	search    textinput.Model
	searching bool
	cursor    int
	flash     string
}

func newAliasesModel() aliasesModel {
	ti := textinput.New()
	ti.Placeholder = "email, note or persona"
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = 30

	return aliasesModel{loading: true, search: ti}
}

func (m aliasesModel) Init() tea.Cmd {
	return nil
}

func (m *aliasesModel) refilter() {
	m.visible = filter.Aliases(m.views, m.search.Value(), m.facets)
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

func (m aliasesModel) Update(msg tea.Msg) (aliasesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case aliasesLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.views = msg.views
		}
		m.refilter()
		return m, nil

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

func (m aliasesModel) handleSearchKey(msg tea.KeyMsg) (aliasesModel, tea.Cmd) {
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

func (m aliasesModel) handleKey(msg tea.KeyMsg) (aliasesModel, tea.Cmd) {
	switch {
	case key.Matches(msg, zstyle.KeyQuit):
		return m, tea.Quit
	case key.Matches(msg, zstyle.KeyBack):
		return m, navigate(viewMenu)
	}

	for _, fk := range facetKeys {
		if msg.String() == fk.key {
			m.facets = m.facets.Toggle(fk.facet)
			m.refilter()
			return m, nil
		}
	}

	if msg.String() == "/" {
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd
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
		v := m.visible[m.cursor]
		if v.Persona == nil {
			m.flash = "no persona for this alias yet, run a sync"
			return m, clearFlashAfter()
		}
		p := *v.Persona
		return m, func() tea.Msg { return viewPersonaMsg{persona: p} }
	case msg.String() == "r":
		v := m.visible[m.cursor]
		if !v.Tombstoned {
			m.flash = "alias already syncs"
			return m, clearFlashAfter()
		}
		id := v.ID
		return m, func() tea.Msg { return restoreAliasMsg{id: id} }
	}

	return m, nil
}

func (m aliasesModel) View() string {
	if m.loading {
		return "\n  " + zstyle.MutedText.Render("loading aliases...") + "\n"
	}
	if m.err != nil {
		return "\n  " + zstyle.StatusErr.Render(m.err.Error()) + "\n\n" + renderFlash(m.flash, true)
	}

	accentStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)

	s := "\n  " + m.facetBar() + "\n"
	if m.searching || m.search.Value() != "" {
		s += "  " + m.search.View() + "\n"
	}
	s += "  " + zstyle.MutedText.Render(fmt.Sprintf("%d of %d aliases", len(m.visible), len(m.views))) + "\n\n"

	if len(m.visible) == 0 {
		s += "  " + zstyle.MutedText.Render("no matching aliases") + "\n\n"
		return s + renderFlash(m.flash, false)
	}

	for i, v := range m.visible {
		line := fmt.Sprintf("%-34s %-20s %s", truncate(v.Email, 34), truncate(aliasOwner(v), 20), aliasStatus(v))
		if i == m.cursor {
			s += "  " + accentStyle.Render("▸") + " " + line + "\n"
		} else {
			s += "    " + line + "\n"
		}
	}

	return s + "\n" + renderFlash(m.flash, false)
}

func (m aliasesModel) facetBar() string {
	var s string
	for _, fk := range facetKeys {
		label := fk.key + " " + fk.label
		if m.facets.Has(fk.facet) {
			s += zstyle.Highlight.Render("["+label+"]") + " "
		} else {
			s += zstyle.MutedText.Render(" "+label+" ") + " "
		}
	}
	return s
}

func aliasOwner(v filter.AliasView) string {
	if v.Persona != nil {
		return v.Persona.FullName
	}
	return "-"
}

func aliasStatus(v filter.AliasView) string {
	switch {
	case v.Tombstoned:
		return zstyle.StatusWarn.Render("won't sync")
	case !v.Enabled:
		return zstyle.MutedText.Render("disabled")
	default:
		return zstyle.StatusOK.Render("active")
	}
}
