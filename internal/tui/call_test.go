package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leonardotrapani/mockroom/internal/session"
)

type fakeController struct {
	ends      int
	interacts int
}

func (f *fakeController) End()      { f.ends++ }
func (f *fakeController) Interact() { f.interacts++ }

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestCallModelKeys(t *testing.T) {
	ctrl := &fakeController{}
	var m tea.Model = NewCallModel("t", ctrl, session.Snapshot{Connection: session.Connecting, Active: true})

	m, _ = m.Update(runeKey("i"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeySpace})
	if ctrl.interacts != 2 {
		t.Errorf("interacts = %d, want 2", ctrl.interacts)
	}

	m, cmd := m.Update(runeKey("q"))
	if isQuit(cmd) {
		t.Error("q quit before the session ended")
	}
	if ctrl.ends != 1 {
		t.Errorf("ends = %d, want 1", ctrl.ends)
	}

	m, _ = m.Update(SnapshotMsg{Snapshot: session.Snapshot{Connection: session.Closed}})
	if !m.(CallModel).Ended() {
		t.Fatal("model did not notice the session ended")
	}

	m, _ = m.Update(runeKey("e"))
	m, _ = m.Update(runeKey("i"))
	if ctrl.ends != 1 || ctrl.interacts != 2 {
		t.Errorf("controls used after end: ends=%d interacts=%d", ctrl.ends, ctrl.interacts)
	}

	_, cmd = m.Update(runeKey("q"))
	if !isQuit(cmd) {
		t.Error("q after end did not quit")
	}
}

func TestCallModelCtrlC(t *testing.T) {
	ctrl := &fakeController{}
	var m tea.Model = NewCallModel("t", ctrl, session.Snapshot{Active: true})

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if isQuit(cmd) || ctrl.ends != 1 {
		t.Errorf("first ctrl+c should end the session, ends=%d", ctrl.ends)
	}
	m, _ = m.Update(SnapshotMsg{Snapshot: session.Snapshot{Connection: session.Error, LastError: "boom"}})
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !isQuit(cmd) {
		t.Error("ctrl+c after end did not quit")
	}
}

func TestCallModelView(t *testing.T) {
	m := NewCallModel("t", &fakeController{}, session.Snapshot{Connection: session.Connected, Active: true})
	if v := m.View(); v == "" {
		t.Error("empty view")
	}
}
