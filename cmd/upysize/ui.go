// # cmd/upysize/ui.go
package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"upysize/internal/engine"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	safeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	advisoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	lastUpdate time.Time

	fileCount  int
	errCount   int
	safeCount  int
	advisories int
	savedBytes int
}

type outcomesMsg struct {
	outcomes []engine.Outcome
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case outcomesMsg:
		m.lastUpdate = time.Now()
		m.fileCount = len(msg.outcomes)
		m.errCount, m.safeCount, m.advisories, m.savedBytes = 0, 0, 0, 0

		items := []list.Item{}
		for _, o := range msg.outcomes {
			if o.Err != nil {
				m.errCount++
				items = append(items, item{
					title: errorStyle.Render("Parse failure"),
					desc:  fmt.Sprintf("%s: %v", o.Path, o.Err),
				})
				continue
			}
			for _, s := range o.Report.Suggestions {
				m.savedBytes += s.SavedBytes
				label := advisoryStyle.Render(string(s.Kind))
				if s.Safe {
					m.safeCount++
					label = safeStyle.Render(string(s.Kind))
				} else {
					m.advisories++
				}
				items = append(items, item{
					title: fmt.Sprintf("%s  ~%d B", label, s.SavedBytes),
					desc:  fmt.Sprintf("%s:%d %s", s.File, s.Line, s.Description),
				})
			}
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d failed",
		m.lastUpdate.Format("15:04:05"), m.fileCount, m.errCount))

	var summary string
	if m.safeCount == 0 && m.advisories == 0 {
		summary = safeStyle.Render("✅ Nothing to shrink")
	} else {
		summary = fmt.Sprintf("%s | %s | ~%d bytes",
			safeStyle.Render(fmt.Sprintf("%d auto-fixable", m.safeCount)),
			advisoryStyle.Render(fmt.Sprintf("%d advisory", m.advisories)),
			m.savedBytes)
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Size Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Suggestions"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}

// RunUI blocks in the bubbletea event loop until the user quits. Watch
// mode pushes refreshed outcomes via outcomesMsg.
func (a *App) RunUI(outcomes []engine.Outcome) error {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	a.teaProgram = p

	go func() {
		p.Send(outcomesMsg{outcomes: outcomes})
	}()

	_, err := p.Run()
	a.teaProgram = nil
	return err
}
