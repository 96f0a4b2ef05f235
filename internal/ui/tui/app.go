package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pcdshub/pytmc/internal/usecase"
	"github.com/pcdshub/pytmc/internal/usecase/pvpack"
)

type screen int

const (
	screenLoading screen = iota
	screenList
	screenDetail
)

type pvItem struct {
	pkg *pvpack.Package
}

func (i pvItem) Title() string {
	if i.pkg.IsConfigComplete() {
		return i.pkg.PVComplete
	}
	return i.pkg.PVComplete + " (incomplete)"
}

func (i pvItem) Description() string { return i.pkg.TcPath() }
func (i pvItem) FilterValue() string { return i.pkg.PVComplete + " " + i.pkg.TcPath() }

type model struct {
	theme Theme
	deps  Deps
	path  string

	scr    screen
	list   list.Model
	active *pvpack.Package
	set    usecase.RecordSet
	width  int

	workspaceFound bool
	workspaceRoot  string

	toast string
}

// Run opens the package browser for the .tmc file at path.
func Run(deps Deps, path string) error {
	m := newModel(deps, path)
	p := tea.NewProgram(wrapSafe(m, deps.Logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newModel(deps Deps, path string) model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "PV packages"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return model{
		theme: DefaultTheme(),
		deps:  deps,
		path:  path,
		scr:   screenLoading,
		list:  l,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(cmdRefreshWorkspace(m.deps), cmdLoadPackages(m.deps, m.path))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.list.SetSize(msg.Width-4, msg.Height-10)
		return m, nil

	case workspaceRefreshedMsg:
		m.workspaceFound = msg.found
		m.workspaceRoot = msg.root
		return m, nil

	case packagesLoadedMsg:
		if msg.err != nil {
			m.toast = userMessage(msg.err)
			m.scr = screenList
			return m, nil
		}
		m.toast = ""
		m.set = msg.set
		items := make([]list.Item, 0, len(msg.set.Packages))
		for _, p := range msg.set.Packages {
			items = append(items, pvItem{pkg: p})
		}
		m.scr = screenList
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if m.scr == screenList && m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.scr == screenDetail {
				m.scr = screenList
				m.active = nil
				return m, nil
			}
			return m, tea.Quit

		case "enter":
			if m.scr == screenList {
				it, ok := m.list.SelectedItem().(pvItem)
				if !ok {
					return m, nil
				}
				m.active = it.pkg
				m.scr = screenDetail
				return m, nil
			}

		case "r":
			if m.scr == screenList {
				m.scr = screenLoading
				return m, cmdLoadPackages(m.deps, m.path)
			}

		case "esc", "b":
			if m.scr == screenDetail {
				m.scr = screenList
				m.active = nil
				return m, nil
			}
		}
	}

	if m.scr == screenList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	wrap := lipgloss.NewStyle().Padding(1, 2)
	header := m.theme.Title.Render("pytmc debug") + "\n" +
		m.theme.Subtitle.Render(m.path) + "\n"

	var banner string
	if m.workspaceFound {
		banner = m.theme.Help.Render(fmt.Sprintf("Workspace: %s", m.workspaceRoot))
	} else {
		banner = m.theme.Help.Render("No workspace (defaults in use)")
	}
	if m.toast != "" {
		banner += "\n" + m.theme.Error.Render(m.toast)
	}

	switch m.scr {
	case screenLoading:
		return wrap.Render(header + "\n" + banner + "\n\nLoading…")

	case screenList:
		incomplete := m.theme.Help
		if len(m.set.Incomplete) > 0 {
			incomplete = m.theme.Missing
		}
		stats := m.theme.Help.Render(fmt.Sprintf("%d records • ", len(m.set.Records))) +
			incomplete.Render(fmt.Sprintf("%d incomplete", len(m.set.Incomplete)))
		help := m.theme.Help.Render("↑/↓ navigate • enter details • / filter • r reload • q quit")
		return wrap.Render(header + "\n" + banner + "\n" + stats + "\n\n" + m.theme.Card.Render(m.list.View()) + "\n" + help)

	case screenDetail:
		body := renderPackageDetails(m.active)
		if m.width > 0 {
			body = lipgloss.NewStyle().MaxWidth(m.width - 8).Render(body)
		}
		card := m.theme.Card.Render(body + "\n" + m.theme.Help.Render("esc/b back • q list"))
		return wrap.Render(header + "\n" + banner + "\n\n" + card)

	default:
		return wrap.Render(header + "\n" + "unknown state")
	}
}
