package tui

import (
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
)

// maxPanics is how many recovered panics the program survives before it
// quits instead of resetting again.
const maxPanics = 3

// resettable models can drop back to a known good screen after a panic.
type resettable interface {
	tea.Model
	reset(notice string) tea.Model
}

// safeModel recovers panics from the wrapped model, logs them with a stack
// and resets the model so one bad PV package does not take the terminal down.
type safeModel struct {
	inner  resettable
	log    *slog.Logger
	panics int
}

func wrapSafe(m resettable, log *slog.Logger) safeModel {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return safeModel{inner: m, log: log}
}

func (s safeModel) logPanic(where string, r any) {
	s.log.Error("panic.recovered",
		"where", where,
		"panic", fmt.Sprint(r),
		"count", s.panics,
		"stack", string(debug.Stack()),
	)
}

func (s safeModel) Init() (cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			s.logPanic("tui.init", r)
			cmd = nil
		}
	}()
	return s.inner.Init()
}

func (s safeModel) Update(msg tea.Msg) (next tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			s.panics++
			s.logPanic("tui.update", r)
			if s.panics >= maxPanics {
				next, cmd = s, tea.Quit
				return
			}
			if m, ok := s.inner.reset(fmt.Sprintf("Unexpected error: %v (see logs)", r)).(resettable); ok {
				s.inner = m
			}
			next, cmd = s, nil
		}
	}()

	inner, c := s.inner.Update(msg)
	if m, ok := inner.(resettable); ok {
		s.inner = m
	}
	return s, c
}

func (s safeModel) View() (out string) {
	defer func() {
		if r := recover(); r != nil {
			s.logPanic("tui.view", r)
			out = "Unexpected error while drawing (see logs). Press r to reload or q to quit."
		}
	}()
	return s.inner.View()
}

var _ tea.Model = safeModel{}

// reset returns to the package list with the notice shown as a toast.
func (m model) reset(notice string) tea.Model {
	m.scr = screenList
	m.active = nil
	m.toast = notice
	return m
}
