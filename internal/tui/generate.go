package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zfill/internal/persona"
)

// generateModel shows a freshly generated persona before it is saved.
type generateModel struct {
	draft    persona.Draft
	fields   []field
	cursor   int
	saved    *persona.Saved
	editing  bool
	domain   textinput.Model
	flash    string
	flashErr bool
}

// generateMsg asks the root for a new draft for domain.
type generateMsg struct {
	domain string
}

// saveDraftMsg asks the root to persist the draft, optionally creating an alias.
type saveDraftMsg struct {
	draft     persona.Draft
	withAlias bool
}

// draftSavedMsg reports the outcome of a save.
type draftSavedMsg struct {
	saved persona.Saved
	err   error
}

// flashMsg clears the flash after a timeout.
type flashMsg struct{}

func newGenerateModel(d persona.Draft) generateModel {
	ti := textinput.New()
	ti.Placeholder = "example.com"
	ti.CharLimit = 253
	ti.Width = 40
	ti.SetValue(d.Domain)

	fields := personaFields(d.Persona)
	fields = append(fields, field{"Domain", d.Domain})

	return generateModel{draft: d, fields: fields, domain: ti}
}

func (m generateModel) Update(msg tea.Msg) (generateModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.handleDomainKey(msg)
		}
		return m.handleKey(msg)

	case draftSavedMsg:
		if msg.err != nil {
			return m.setErr("save: " + msg.err.Error()), nil
		}
		saved := msg.saved
		m.saved = &saved
		m.flashErr = false
		m.flash = "saved"
		if saved.Alias != nil {
			m.flash = "saved with alias " + saved.Alias.Email
			m.fields[2].value = saved.Alias.Email
		}
		return m, nil

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	if m.editing {
		var cmd tea.Cmd
		m.domain, cmd = m.domain.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m generateModel) handleDomainKey(msg tea.KeyMsg) (generateModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.editing = false
		m.domain.SetValue(m.draft.Domain)
		m.domain.Blur()
		return m, nil
	case tea.KeyEnter:
		domain := strings.TrimSpace(m.domain.Value())
		return m, func() tea.Msg { return generateMsg{domain: domain} }
	}

	var cmd tea.Cmd
	m.domain, cmd = m.domain.Update(msg)
	return m, cmd
}

func (m generateModel) handleKey(msg tea.KeyMsg) (generateModel, tea.Cmd) {
	switch {
	case key.Matches(msg, zstyle.KeyQuit):
		return m, tea.Quit
	case key.Matches(msg, zstyle.KeyBack):
		return m, navigate(viewMenu)
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
	case "s", "a":
		if m.saved != nil {
			return m.setErr("already saved"), clearFlashAfter()
		}
		d, withAlias := m.draft, msg.String() == "a"
		return m, func() tea.Msg { return saveDraftMsg{draft: d, withAlias: withAlias} }
	case "c":
		return m.copy(formatFields(m.fields), "copied all!")
	case "e":
		m.editing = true
		m.domain.CursorEnd()
		cmd := m.domain.Focus()
		return m, cmd
	case "n":
		domain := m.draft.Domain
		return m, func() tea.Msg { return generateMsg{domain: domain} }
	}

	return m, nil
}

func (m generateModel) copy(text, ok string) (generateModel, tea.Cmd) {
	if err := copyToClipboard(text); err != nil {
		return m.setErr("copy: " + err.Error()), clearFlashAfter()
	}
	m.flash = ok
	m.flashErr = false
	return m, clearFlashAfter()
}

func (m generateModel) setErr(msg string) generateModel {
	m.flash = msg
	m.flashErr = true
	return m
}

func clearFlashAfter() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return flashMsg{}
	})
}

func (m generateModel) View() string {
	s := "\n"

	if m.editing {
		s += "  " + zstyle.MutedText.Render("domain") + "\n"
		s += "  " + m.domain.View() + "\n\n"
	}

	for i, f := range m.fields {
		label := zstyle.MutedText.Render(fmt.Sprintf("%-10s", strings.ToLower(f.label)))
		if i == m.cursor && !m.editing {
			s += zstyle.ActiveBorder.Render(fmt.Sprintf("  > %s %s", label, f.value)) + "\n"
		} else {
			s += fmt.Sprintf("    %s %s\n", label, f.value)
		}
	}

	s += "\n" + renderFlash(m.flash, m.flashErr)
	return s
}

// renderFlash always reserves a line so the layout does not shift.
func renderFlash(msg string, isErr bool) string {
	switch {
	case msg == "":
		return "\n"
	case isErr:
		return "  " + zstyle.StatusErr.Render(msg) + "\n"
	default:
		return "  " + zstyle.StatusOK.Render(msg) + "\n"
	}
}
