package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nstehr/saltbot/saltbot-core/model"
	"github.com/nstehr/saltbot/saltbot-core/trace"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F2C14E")).
			Padding(0, 1)
	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B7C99")).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var stepColumns = []table.Column{
	{Title: "#", Width: 5},
	{Title: "Step", Width: 6},
	{Title: "Phase", Width: 6},
	{Title: "Build", Width: 14},
	{Title: "Macro", Width: 14},
	{Title: "Action", Width: 14},
	{Title: "Args", Width: 16},
	{Title: "Events", Width: 6},
}

// viewer is the bubbletea model for one episode trace.
type viewer struct {
	title      string
	steps      []trace.StepRecord
	visible    []int // indexes into steps
	eventsOnly bool
	names      map[int]string
	table      table.Model
}

func newViewer(title string, steps []trace.StepRecord, reg model.Registry) viewer {
	names := make(map[int]string, len(reg.Actions))
	for name, id := range reg.Actions {
		names[id] = name
	}
	t := table.New(
		table.WithColumns(stepColumns),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("#1B1B1B")).Background(lipgloss.Color("#F2C14E"))
	t.SetStyles(s)

	v := viewer{title: title, steps: steps, names: names, table: t}
	v.refresh()
	return v
}

func (v *viewer) refresh() {
	v.visible = v.visible[:0]
	rows := make([]table.Row, 0, len(v.steps))
	for i, rec := range v.steps {
		if v.eventsOnly && len(rec.Events) == 0 {
			continue
		}
		v.visible = append(v.visible, i)
		rows = append(rows, v.row(rec))
	}
	v.table.SetRows(rows)
	if v.table.Cursor() >= len(rows) {
		v.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (v viewer) row(rec trace.StepRecord) table.Row {
	return table.Row{
		fmt.Sprint(rec.Seq),
		fmt.Sprint(rec.Step),
		rec.Phase,
		rec.Build,
		rec.Macro,
		v.actionName(rec.Call.Function),
		formatArgs(rec.Call.Arguments),
		fmt.Sprint(len(rec.Events)),
	}
}

func (v viewer) actionName(id int) string {
	if name, ok := v.names[id]; ok {
		return name
	}
	return fmt.Sprintf("fn %d", id)
}

func formatArgs(args [][]int) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strings.Trim(strings.Join(strings.Fields(fmt.Sprint(a)), ","), "[]")
	}
	return strings.Join(parts, " ")
}

// selected returns the record under the cursor.
func (v viewer) selected() (trace.StepRecord, bool) {
	c := v.table.Cursor()
	if c < 0 || c >= len(v.visible) {
		return trace.StepRecord{}, false
	}
	return v.steps[v.visible[c]], true
}

func (v viewer) Init() tea.Cmd { return nil }

func (v viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.table.SetHeight(max(msg.Height-10, 5))
		return v, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		case "e":
			v.eventsOnly = !v.eventsOnly
			v.refresh()
			return v, nil
		}
	}
	var cmd tea.Cmd
	v.table, cmd = v.table.Update(msg)
	return v, cmd
}

func (v viewer) View() string {
	var b strings.Builder
	filter := "all steps"
	if v.eventsOnly {
		filter = "steps with events"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %d steps · %s", v.title, len(v.steps), filter)))
	b.WriteString("\n")
	b.WriteString(v.table.View())
	b.WriteString("\n")

	detail := "no step selected"
	if rec, ok := v.selected(); ok {
		detail = fmt.Sprintf("step %d  %s(%s)", rec.Step, v.actionName(rec.Call.Function), formatArgs(rec.Call.Arguments))
		for _, e := range rec.Events {
			detail += "\n• " + e
		}
	}
	b.WriteString(detailStyle.Render(detail))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ move · e toggle event steps · q quit"))
	return b.String()
}
