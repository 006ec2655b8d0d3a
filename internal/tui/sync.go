package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zfill/internal/engine"
)

// syncDoneMsg carries the report of a finished sync.
type syncDoneMsg struct {
	report engine.Report
}

// syncModel shows a running sync and then its report.
type syncModel struct {
	done   bool
	report engine.Report
}

func newSyncModel() syncModel {
	return syncModel{}
}

func (m syncModel) Update(msg tea.Msg) (syncModel, tea.Cmd) {
	switch msg := msg.(type) {
	case syncDoneMsg:
		m.done = true
		m.report = msg.report
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if !m.done {
			return m, nil
		}
		// any key returns to the menu
		return m, navigate(viewMenu)
	}

	return m, nil
}

func (m syncModel) View() string {
	if !m.done {
		return "\n  " + zstyle.MutedText.Render("syncing with SimpleLogin...") + "\n"
	}

	var b strings.Builder
	lines := strings.Split(m.report.Summary(), "\n")

	if m.report.OK() {
		b.WriteString("\n  " + zstyle.StatusOK.Render(lines[0]) + "\n")
	} else {
		b.WriteString("\n  " + zstyle.StatusWarn.Render(lines[0]) + "\n")
	}
	for _, line := range lines[1:] {
		b.WriteString("  " + line + "\n")
	}

	b.WriteString("\n  " + zstyle.MutedText.Render("press any key to continue") + "\n")
	return b.String()
}
