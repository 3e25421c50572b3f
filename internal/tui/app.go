// Package tui provides the read-only terminal dashboard over the idea graph.
package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

// filters cycle with tab; the empty filter shows everything.
var filters = append([]models.IdeaStatus{""}, models.AllStatuses...)

// App is the main TUI application model.
type App struct {
	source    Source
	watchPath string
	watch     *watcher

	ideas     []models.Idea
	visible   []models.Idea
	table     table.Model
	filterIdx int
	detail    bool
	attempts  []models.AttemptRecord

	width   int
	height  int
	message string
	loading bool
}

// New creates the dashboard. watchPath, when not empty, is followed with
// fsnotify and the view reloads whenever it changes.
func New(source Source, watchPath string) *App {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(mutedColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(fgColor).
		Background(primaryColor).
		Bold(true)
	t.SetStyles(styles)

	return &App{source: source, watchPath: watchPath, table: t, loading: true}
}

// Run starts the TUI application.
func (a *App) Run() error {
	if a.watchPath != "" {
		w, err := newWatcher(a.watchPath)
		if err != nil {
			a.message = "Error: live reload disabled: " + err.Error()
		} else {
			a.watch = w
			defer w.Close()
		}
	}
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.load()}
	if a.watch != nil {
		cmds = append(cmds, a.watch.wait())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit

		case "tab":
			a.filterIdx = (a.filterIdx + 1) % len(filters)
			a.detail = false
			a.applyFilter()
			return a, nil

		case "r":
			a.message = ""
			return a, a.load()

		case "enter":
			if sel, ok := a.selected(); ok {
				a.detail = true
				a.attempts = nil
				return a, a.loadAttempts(sel.ID)
			}
			return a, nil

		case "esc":
			a.detail = false
			return a, nil
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.table.SetColumns(columns(msg.Width))
		h := msg.Height - 8
		if h < 5 {
			h = 5
		}
		a.table.SetHeight(h)
		return a, nil

	case ideasLoadedMsg:
		a.loading = false
		a.ideas = msg.ideas
		a.applyFilter()
		return a, nil

	case attemptsLoadedMsg:
		a.attempts = msg.attempts
		return a, nil

	case fileChangedMsg:
		var cmds []tea.Cmd
		cmds = append(cmds, a.load())
		if a.watch != nil {
			cmds = append(cmds, a.watch.wait())
		}
		return a, tea.Batch(cmds...)

	case errMsg:
		a.loading = false
		a.message = "Error: " + msg.err.Error()
		return a, nil
	}

	var cmd tea.Cmd
	a.table, cmd = a.table.Update(msg)
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("mycelium ideas"))
	b.WriteString("  " + helpStyle.Render(fmt.Sprintf("Filter: [%s]", filterLabel(filters[a.filterIdx]))))
	b.WriteString("\n")

	switch {
	case a.loading:
		b.WriteString("\n  Loading ideas...\n")
	case a.detail:
		if sel, ok := a.selected(); ok {
			b.WriteString(panelStyle.Render(renderDetail(sel, a.lineage(sel), a.attempts)))
			b.WriteString("\n")
		}
	case len(a.visible) == 0:
		b.WriteString("\n  No ideas match this filter.\n")
	default:
		b.WriteString(a.table.View())
		b.WriteString("\n")
	}

	if a.message != "" {
		style := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			style = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString(style.Render(a.message))
	}
	b.WriteString("\n")

	width := a.width
	if width <= 0 {
		width = 80
	}
	b.WriteString(statusBarStyle.Width(width).Render(a.statusLine()))
	return b.String()
}

func (a *App) statusLine() string {
	counts := make(map[models.IdeaStatus]int)
	for _, idea := range a.ideas {
		counts[idea.Status]++
	}
	parts := []string{fmt.Sprintf("Ideas: %d", len(a.ideas))}
	for _, s := range models.AllStatuses {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", s, counts[s]))
		}
	}
	help := "Tab:filter | Enter:detail | Esc:back | r:reload | q:quit"
	return strings.Join(parts, "  ") + " | " + help
}

func (a *App) applyFilter() {
	want := filters[a.filterIdx]
	a.visible = a.visible[:0]
	for _, idea := range a.ideas {
		if want == "" || idea.Status == want {
			a.visible = append(a.visible, idea)
		}
	}
	sort.SliceStable(a.visible, func(i, j int) bool {
		return a.visible[i].CreatedAt.Before(a.visible[j].CreatedAt)
	})

	rows := make([]table.Row, len(a.visible))
	for i, idea := range a.visible {
		rows[i] = table.Row{
			shortID(idea.ID),
			idea.Title,
			string(idea.Status),
			strconv.Itoa(idea.Attempts),
			shortID(idea.ParentID),
		}
	}
	a.table.SetRows(rows)
	if n := len(rows); n > 0 {
		a.table.SetCursor(min(max(a.table.Cursor(), 0), n-1))
	}
}

func (a *App) selected() (models.Idea, bool) {
	i := a.table.Cursor()
	if i < 0 || i >= len(a.visible) {
		return models.Idea{}, false
	}
	return a.visible[i], true
}

// lineage walks parent links from the root down to idea.
func (a *App) lineage(idea models.Idea) []models.Idea {
	byID := make(map[string]models.Idea, len(a.ideas))
	for _, i := range a.ideas {
		byID[i.ID] = i
	}
	chain := []models.Idea{idea}
	seen := map[string]bool{idea.ID: true}
	for cur := idea; cur.ParentID != ""; {
		parent, ok := byID[cur.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		chain = append([]models.Idea{parent}, chain...)
		cur = parent
	}
	return chain
}

func (a *App) load() tea.Cmd {
	src := a.source
	return func() tea.Msg {
		ideas, err := src.Ideas()
		if err != nil {
			return errMsg{err}
		}
		return ideasLoadedMsg{ideas}
	}
}

func (a *App) loadAttempts(id string) tea.Cmd {
	src := a.source
	return func() tea.Msg {
		attempts, err := src.Attempts(id)
		if err != nil {
			return errMsg{err}
		}
		return attemptsLoadedMsg{attempts}
	}
}

func columns(width int) []table.Column {
	title := width - 8 - 10 - 9 - 8 - 10
	if title < 20 {
		title = 20
	}
	return []table.Column{
		{Title: "ID", Width: 8},
		{Title: "Title", Width: title},
		{Title: "Status", Width: 10},
		{Title: "Attempts", Width: 9},
		{Title: "Parent", Width: 8},
	}
}

func filterLabel(s models.IdeaStatus) string {
	if s == "" {
		return "ALL"
	}
	return strings.ToUpper(string(s))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type ideasLoadedMsg struct {
	ideas []models.Idea
}

type attemptsLoadedMsg struct {
	attempts []models.AttemptRecord
}

type errMsg struct {
	err error
}
