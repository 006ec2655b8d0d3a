package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zfill/internal/engine"
	"github.com/zarlcorp/zfill/internal/store"
)

const (
	focusAPIKey = iota
	focusPush
	focusCount
)

// saveSettingsMsg asks the root to validate and store an API key.
type saveSettingsMsg struct {
	apiKey string
}

// settingsSavedMsg reports the outcome of saving settings.
type settingsSavedMsg struct {
	settings store.Settings
	err      error
}

// togglePushMsg asks the root to switch pushing personas to alias notes.
type togglePushMsg struct {
	on bool
}

// pushDoneMsg reports the outcome of a push toggle.
type pushDoneMsg struct {
	on     bool
	report *engine.PushReport
	err    error
}

// settingsModel edits the SimpleLogin key and the push toggle.
type settingsModel struct {
	current     store.Settings
	apiKey      textinput.Model
	pushOn      bool
	envOverride bool
	focus       int
	pending     bool
	flash       string
	flashErr    bool
}

func newSettingsModel(st store.Settings, pushOn, envOverride bool) settingsModel {
	ti := textinput.New()
	ti.Placeholder = "SimpleLogin API key"
	ti.CharLimit = 256
	ti.Width = 50
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.SetValue(st.APIKey)
	ti.Focus()

	return settingsModel{
		current:     st,
		apiKey:      ti,
		pushOn:      pushOn,
		envOverride: envOverride,
	}
}

func (m settingsModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m settingsModel) Update(msg tea.Msg) (settingsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	if m.focus == focusAPIKey {
		var cmd tea.Cmd
		m.apiKey, cmd = m.apiKey.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m settingsModel) handleKey(msg tea.KeyMsg) (settingsModel, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case msg.Type == tea.KeyEsc:
		return m, navigate(viewMenu)
	case key.Matches(msg, zstyle.KeyTab), msg.Type == tea.KeyDown, msg.Type == tea.KeyUp, msg.Type == tea.KeyShiftTab:
		return m.cycleFocus(), nil
	case msg.String() == "ctrl+s":
		return m.save()
	case key.Matches(msg, zstyle.KeyEnter):
		if m.focus == focusPush {
			return m.togglePush()
		}
		return m.save()
	}

	if m.focus == focusPush {
		if msg.String() == " " {
			return m.togglePush()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.apiKey, cmd = m.apiKey.Update(msg)
	return m, cmd
}

func (m settingsModel) cycleFocus() settingsModel {
	m.focus = (m.focus + 1) % focusCount
	if m.focus == focusAPIKey {
		m.apiKey.Focus()
	} else {
		m.apiKey.Blur()
	}
	return m
}

func (m settingsModel) save() (settingsModel, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	m.pending = true
	m.flash, m.flashErr = "checking key...", false
	apiKey := strings.TrimSpace(m.apiKey.Value())
	return m, func() tea.Msg { return saveSettingsMsg{apiKey: apiKey} }
}

func (m settingsModel) togglePush() (settingsModel, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	m.pending = true
	on := !m.pushOn
	m.flash, m.flashErr = "updating...", false
	if on {
		m.flash = "pushing personas..."
	}
	return m, func() tea.Msg { return togglePushMsg{on: on} }
}

func (m settingsModel) View() string {
	s := "\n"

	label := zstyle.MutedText.Render("api key")
	status := zstyle.StatusErr.Render("not configured")
	if m.current.Configured() {
		status = zstyle.StatusOK.Render("configured")
	}
	s += "  " + label + "  " + status + "\n"
	s += "  " + m.apiKey.View() + "\n"
	if m.envOverride {
		s += "  " + zstyle.StatusWarn.Render("SIMPLELOGIN_API_KEY is set and takes precedence") + "\n"
	}
	s += "\n"

	check := "[ ]"
	if m.pushOn {
		check = "[x]"
	}
	mi := zstyle.MenuItem{
		Label:  check + " push personas to alias notes",
		Active: m.focus == focusPush,
	}
	s += zstyle.RenderMenuItem(mi, accent) + "\n"
	s += "  " + zstyle.MutedText.Render("overwrites the note of every linked alias") + "\n\n"

	return s + renderFlash(m.flash, m.flashErr)
}
