// Package tui implements the root Bubble Tea model for zfill.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zfill/internal/config"
	"github.com/zarlcorp/zfill/internal/engine"
	"github.com/zarlcorp/zfill/internal/filter"
	"github.com/zarlcorp/zfill/internal/persona"
	"github.com/zarlcorp/zfill/internal/simplelogin"
	"github.com/zarlcorp/zfill/internal/store"
)

type viewID int

const (
	viewPassword viewID = iota
	viewMenu
	viewGenerate
	viewList
	viewDetail
	viewForget
	viewAliases
	viewSettings
	viewSync
)

// zstyle has no zfill accent yet; share zburn's.
var accent = zstyle.ZburnAccent

// Options configures the root model.
type Options struct {
	Version  string
	DataDir  string
	FirstRun bool
	Config   config.Config
	Client   *simplelogin.Client
	Gen      *persona.Generator
	Logger   *slog.Logger

	// Open unlocks the vault. It defaults to an OS filesystem in DataDir.
	Open func(password []byte) (*store.Store, error)
}

// Model is the root TUI model.
type Model struct {
	opts   Options
	store  *store.Store
	engine *engine.Engine

	// cached vault state
	settings store.Settings
	pushOn   bool

	domain  string // last domain generated for
	syncing bool

	active       viewID
	password     passwordModel
	menu         menuModel
	generate     generateModel
	list         listModel
	detail       detailModel
	forget       forgetModel
	aliases      aliasesModel
	settingsView settingsModel
	sync         syncModel

	// terminal dimensions
	width  int
	height int
}

// New creates the root TUI model.
func New(opts Options) Model {
	if opts.Gen == nil {
		opts.Gen = persona.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return Model{
		opts:     opts,
		active:   viewPassword,
		password: newPasswordModel(opts.FirstRun),
		menu:     newMenuModel(opts.Version),
	}
}

func (m Model) Init() tea.Cmd {
	return m.password.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case passwordSubmitMsg:
		return m.openStore(msg.password)

	case navigateMsg:
		return m.navigate(msg.view)

	case generateMsg:
		m.domain = msg.domain
		m.generate = newGenerateModel(m.opts.Gen.Generate(msg.domain))
		m.active = viewGenerate
		return m, nil

	case saveDraftMsg:
		return m.handleSaveDraft(msg)

	case draftSavedMsg:
		m.generate, _ = m.generate.Update(msg)
		return m, clearFlashAfter()

	case viewPersonaMsg:
		m.detail = newDetailModel(msg.persona, m.active)
		m.active = viewDetail
		return m, nil

	case forgetStartMsg:
		m.forget = newForgetModel(msg.persona, m.active)
		m.active = viewForget
		return m, nil

	case forgetConfirmMsg:
		return m.handleForget(msg.id)

	case syncStartMsg:
		return m.startSync()

	case syncDoneMsg:
		m.syncing = false
		m.sync, _ = m.sync.Update(msg)
		return m, nil

	case aliasesLoadedMsg:
		m.aliases, _ = m.aliases.Update(msg)
		return m, nil

	case restoreAliasMsg:
		return m.handleRestore(msg.id)

	case saveSettingsMsg:
		return m, m.saveSettingsCmd(msg.apiKey)

	case settingsSavedMsg:
		return m.handleSettingsSaved(msg)

	case togglePushMsg:
		return m, m.togglePushCmd(msg.on)

	case pushDoneMsg:
		return m.handlePushDone(msg)
	}

	return m.updateActive(msg)
}

func (m Model) View() string {
	// password and menu include the logo, render directly
	switch m.active {
	case viewPassword:
		return m.password.View()
	case viewMenu:
		return m.menu.View()
	}

	// all other views: header + separator + content + footer
	var content string
	switch m.active {
	case viewGenerate:
		content = m.generate.View()
	case viewList:
		content = m.list.View()
	case viewDetail:
		content = m.detail.View()
	case viewForget:
		content = m.forget.View()
	case viewAliases:
		content = m.aliases.View()
	case viewSettings:
		content = m.settingsView.View()
	case viewSync:
		content = m.sync.View()
	}

	header := zstyle.RenderHeader("zfill", viewTitle(m.active), accent)
	sep := zstyle.RenderSeparator(m.width)
	footer := zstyle.RenderFooter(m.helpFor(m.active))

	return "\n" + header + "\n" + sep + "\n" + content + "\n" + footer + "\n"
}

// viewTitle returns the display title for each view.
func viewTitle(id viewID) string {
	switch id {
	case viewGenerate:
		return "Generate Persona"
	case viewList:
		return "Saved Personas"
	case viewDetail:
		return "Persona Details"
	case viewForget:
		return "Forget"
	case viewAliases:
		return "SimpleLogin Aliases"
	case viewSettings:
		return "Settings"
	case viewSync:
		return "Sync"
	}
	return ""
}

// helpFor returns keybinding pairs for each view's footer.
func (m Model) helpFor(id viewID) []zstyle.HelpPair {
	switch id {
	case viewGenerate:
		if m.generate.editing {
			return []zstyle.HelpPair{
				{Key: "enter", Desc: "generate"},
				{Key: "esc", Desc: "cancel"},
			}
		}
		return []zstyle.HelpPair{
			{Key: "s", Desc: "save"},
			{Key: "a", Desc: "save with alias"},
			{Key: "e", Desc: "domain"},
			{Key: "enter", Desc: "copy field"},
			{Key: "n", Desc: "new"},
			{Key: "esc", Desc: "back"},
		}
	case viewList:
		if m.list.searching {
			return []zstyle.HelpPair{
				{Key: "enter", Desc: "done"},
				{Key: "esc", Desc: "done"},
			}
		}
		return []zstyle.HelpPair{
			{Key: "j/k", Desc: "navigate"},
			{Key: "/", Desc: "search"},
			{Key: "f", Desc: "fields"},
			{Key: "enter", Desc: "view"},
			{Key: "d", Desc: "forget"},
			{Key: "esc", Desc: "back"},
		}
	case viewDetail:
		return []zstyle.HelpPair{
			{Key: "enter", Desc: "copy field"},
			{Key: "c", Desc: "copy all"},
			{Key: "d", Desc: "forget"},
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewForget:
		return []zstyle.HelpPair{
			{Key: "y", Desc: "confirm"},
			{Key: "n", Desc: "cancel"},
		}
	case viewAliases:
		if m.aliases.searching {
			return []zstyle.HelpPair{
				{Key: "enter", Desc: "done"},
				{Key: "esc", Desc: "done"},
			}
		}
		return []zstyle.HelpPair{
			{Key: "1-5", Desc: "filters"},
			{Key: "/", Desc: "search"},
			{Key: "enter", Desc: "persona"},
			{Key: "r", Desc: "restore"},
			{Key: "esc", Desc: "back"},
		}
	case viewSettings:
		return []zstyle.HelpPair{
			{Key: "tab", Desc: "next"},
			{Key: "enter", Desc: "toggle"},
			{Key: "ctrl+s", Desc: "save key"},
			{Key: "esc", Desc: "back"},
		}
	case viewSync:
		return []zstyle.HelpPair{
			{Key: "any key", Desc: "continue"},
		}
	}
	return nil
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.active {
	case viewPassword:
		m.password, cmd = m.password.Update(msg)
	case viewMenu:
		m.menu, cmd = m.menu.Update(msg)
	case viewGenerate:
		m.generate, cmd = m.generate.Update(msg)
	case viewList:
		m.list, cmd = m.list.Update(msg)
	case viewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case viewForget:
		m.forget, cmd = m.forget.Update(msg)
	case viewAliases:
		m.aliases, cmd = m.aliases.Update(msg)
	case viewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	case viewSync:
		m.sync, cmd = m.sync.Update(msg)
	}

	return m, cmd
}

func (m Model) openStore(password string) (tea.Model, tea.Cmd) {
	open := m.opts.Open
	if open == nil {
		if err := os.MkdirAll(m.opts.DataDir, 0o700); err != nil {
			m.password, _ = m.password.Update(passwordErrMsg{
				err: fmt.Errorf("create data dir: %w", err),
			})
			return m, nil
		}
		dir := m.opts.DataDir
		open = func(pw []byte) (*store.Store, error) {
			return store.Open(zfilesystem.NewOSFileSystem(dir), pw)
		}
	}

	s, err := open([]byte(password))
	if err != nil {
		m.password, _ = m.password.Update(passwordErrMsg{err: err})
		return m, nil
	}

	m.attach(s)
	return m.navigate(viewMenu)
}

// attach wires an unlocked vault into the model.
func (m *Model) attach(s *store.Store) {
	m.store = s
	m.engine = engine.New(m.opts.Client, s,
		engine.WithGenerator(m.opts.Gen),
		engine.WithLogger(m.opts.Logger),
	)

	if st, err := s.Settings(); err == nil {
		m.settings = st
	}
	if snap, err := s.Snapshot(); err == nil {
		m.pushOn = snap.SyncToRemote
	}
}

func (m Model) apiKey() string {
	return m.opts.Config.ResolveAPIKey(m.settings.APIKey)
}

func (m Model) navigate(view viewID) (tea.Model, tea.Cmd) {
	switch view {
	case viewMenu:
		mm := newMenuModel(m.opts.Version)
		if m.store != nil {
			if ps, err := m.store.Personas(); err == nil {
				mm.personaCount = len(ps)
			}
		}
		mm.keyConfigured = m.apiKey() != ""
		m.menu = mm
		m.active = viewMenu
		return m, tea.ClearScreen

	case viewGenerate:
		m.generate = newGenerateModel(m.opts.Gen.Generate(m.domain))
		m.active = viewGenerate
		return m, tea.ClearScreen

	case viewList:
		m, cmd := m.loadList()
		return m, tea.Batch(cmd, tea.ClearScreen)

	case viewDetail:
		m.active = viewDetail
		return m, tea.ClearScreen

	case viewAliases:
		m.aliases = newAliasesModel()
		m.active = viewAliases
		return m, tea.Batch(tea.ClearScreen, m.loadAliasesCmd(), m.aliases.Init())

	case viewSettings:
		m.settingsView = newSettingsModel(m.settings, m.pushOn, m.opts.Config.APIKey != "")
		m.active = viewSettings
		return m, tea.Batch(tea.ClearScreen, m.settingsView.Init())
	}

	return m, nil
}

func (m Model) loadList() (Model, tea.Cmd) {
	ps, err := m.store.Personas()
	if err != nil {
		// show empty list with error flash
		m.list = newListModel(nil, m.domain)
		m.list.flash = "load: " + err.Error()
		m.active = viewList
		return m, clearFlashAfter()
	}

	m.list = newListModel(ps, m.domain)
	m.active = viewList
	return m, nil
}

func (m Model) handleSaveDraft(msg saveDraftMsg) (tea.Model, tea.Cmd) {
	if !msg.withAlias {
		saved, err := m.engine.Save(msg.draft)
		m.generate, _ = m.generate.Update(draftSavedMsg{saved: saved, err: err})
		return m, clearFlashAfter()
	}

	eng, key, d := m.engine, m.apiKey(), msg.draft
	m.generate.flash = "creating alias..."
	return m, func() tea.Msg {
		saved, err := eng.CreateLinked(context.Background(), key, d)
		return draftSavedMsg{saved: saved, err: err}
	}
}

func (m Model) handleForget(id string) (tea.Model, tea.Cmd) {
	p, err := m.engine.Forget(id)
	if err != nil {
		m.forget.err = err
		return m, nil
	}

	m, cmd := m.loadList()
	m.list.flash = "forgot " + p.FullName
	if aliasID, ok := p.AliasID(); ok {
		m.list.flash += fmt.Sprintf(", alias %d will not sync again", aliasID)
	}
	return m, tea.Batch(cmd, clearFlashAfter())
}

func (m Model) startSync() (tea.Model, tea.Cmd) {
	m.active = viewSync
	if m.syncing {
		return m, nil
	}

	m.syncing = true
	m.sync = newSyncModel()
	eng, key := m.engine, m.apiKey()
	return m, func() tea.Msg {
		return syncDoneMsg{report: eng.Sync(context.Background(), key)}
	}
}

func (m Model) loadAliasesCmd() tea.Cmd {
	client, s, key := m.opts.Client, m.store, m.apiKey()
	return func() tea.Msg {
		aliases, err := client.ListAliases(context.Background(), key)
		if err != nil {
			return aliasesLoadedMsg{err: err}
		}
		snap, err := s.Snapshot()
		if err != nil {
			return aliasesLoadedMsg{err: err}
		}
		return aliasesLoadedMsg{views: filter.Annotate(aliases, snap.Personas, snap.Tombstones)}
	}
}

func (m Model) handleRestore(id int64) (tea.Model, tea.Cmd) {
	ok, err := m.engine.Restore(id)
	switch {
	case err != nil:
		m.aliases.flash = "restore: " + err.Error()
	case !ok:
		m.aliases.flash = fmt.Sprintf("alias %d is not in the won't-sync list", id)
	default:
		m.aliases.flash = fmt.Sprintf("alias %d will sync again", id)
	}
	return m, tea.Batch(m.loadAliasesCmd(), clearFlashAfter())
}

func (m Model) saveSettingsCmd(apiKey string) tea.Cmd {
	client, s, current := m.opts.Client, m.store, m.settings
	return func() tea.Msg {
		if apiKey != "" {
			if err := client.ValidateKey(context.Background(), apiKey); err != nil {
				return settingsSavedMsg{err: err}
			}
		}
		current.APIKey = apiKey
		if err := s.SaveSettings(current); err != nil {
			return settingsSavedMsg{err: err}
		}
		return settingsSavedMsg{settings: current}
	}
}

func (m Model) handleSettingsSaved(msg settingsSavedMsg) (tea.Model, tea.Cmd) {
	m.settingsView.pending = false
	if msg.err != nil {
		m.settingsView.flash = "save: " + msg.err.Error()
		m.settingsView.flashErr = true
		return m, clearFlashAfter()
	}
	m.settings = msg.settings
	m.settingsView.current = msg.settings
	m.settingsView.flash = "saved"
	m.settingsView.flashErr = false
	return m, clearFlashAfter()
}

func (m Model) togglePushCmd(on bool) tea.Cmd {
	eng, key := m.engine, m.apiKey()
	return func() tea.Msg {
		r, err := eng.SetPushEnabled(context.Background(), key, on)
		return pushDoneMsg{on: on, report: r, err: err}
	}
}

func (m Model) handlePushDone(msg pushDoneMsg) (tea.Model, tea.Cmd) {
	m.settingsView.pending = false
	if msg.err != nil {
		m.settingsView.flash = "push: " + msg.err.Error()
		m.settingsView.flashErr = true
		return m, clearFlashAfter()
	}

	m.pushOn = msg.on
	m.settingsView.pushOn = msg.on
	m.settingsView.flashErr = false
	m.settingsView.flash = "push off"
	if msg.report != nil {
		m.settingsView.flash = msg.report.Summary()
		m.settingsView.flashErr = msg.report.HasErrors()
	}
	return m, clearFlashAfter()
}

// Close cleans up resources. Call after the program exits.
func (m Model) Close() {
	if m.store != nil {
		m.store.Close()
	}
}
