package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/leonardotrapani/mockroom/internal/session"
)

// Controller is the part of a session the call screen drives.
type Controller interface {
	End()
	Interact()
}

// SnapshotMsg carries a session update into the call screen.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// CallModel is the live interview screen.
type CallModel struct {
	title string
	ctrl  Controller
	snap  session.Snapshot
	ended bool
}

func NewCallModel(title string, ctrl Controller, initial session.Snapshot) CallModel {
	return CallModel{title: title, ctrl: ctrl, snap: initial, ended: !initial.Active}
}

func (m CallModel) Init() tea.Cmd {
	return nil
}

func (m CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		m.snap = msg.Snapshot
		if !msg.Snapshot.Active {
			m.ended = true
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "i", " ":
			if !m.ended {
				m.ctrl.Interact()
			}
		case "e":
			if !m.ended {
				m.ctrl.End()
			}
		case "q", "esc", "ctrl+c":
			if m.ended {
				return m, tea.Quit
			}
			m.ctrl.End()
		case "enter":
			if m.ended {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m CallModel) View() string {
	footer := "i enable audio • e end interview • q quit"
	if m.ended {
		footer = "interview over • q exit"
	}
	return RenderStatus(m.title, m.snap) + "\n" + StyleMuted.Render(footer) + "\n"
}

// Ended reports whether the screen has seen the session finish.
func (m CallModel) Ended() bool {
	return m.ended
}

// NewCallProgram wraps the model in a full-screen program. Feed it with
// Send(SnapshotMsg{...}).
func NewCallProgram(m CallModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}
