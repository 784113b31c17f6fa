package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/core/metrics"
	"github.com/colonyops/backlog/internal/core/notify"
	"github.com/colonyops/backlog/internal/planner"
)

const (
	minColumnWidth = 28
	backlogKey     = ""
)

type (
	boardLoadedMsg struct{ err error }

	// actionDoneMsg reports a finished board mutation. focus is the task the
	// cursor should follow.
	actionDoneMsg struct {
		focus string
		err   error
	}
)

// column is one list on the board: the backlog or a sprint.
type column struct {
	key     string // sprint id, or backlogKey
	title   string
	tasks   []board.Task
	sprint  *board.Sprint
	summary metrics.SprintSummary
	active  bool
}

// Model is the sprint board. The leftmost list is the backlog; every sprint
// follows in start-date order.
type Model struct {
	ctx    context.Context
	svc    *planner.Service
	buffer *NotificationBuffer
	toasts *ToastController
	keys   keyMap
	help   help.Model
	today  board.Date

	columns []column
	col     int
	cursor  map[string]int

	width  int
	height int
	busy   bool
}

// New creates the board model. Service notifications must be routed to
// buffer for them to appear as toasts.
func New(ctx context.Context, svc *planner.Service, buffer *NotificationBuffer) Model {
	return Model{
		ctx:    ctx,
		svc:    svc,
		buffer: buffer,
		toasts: NewToastController(),
		keys:   defaultKeyMap(),
		help:   help.New(),
		today:  board.Today(),
		cursor: make(map[string]int),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.buffer.WaitForSignal())
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		return boardLoadedMsg{err: m.svc.Load(m.ctx)}
	}
}

// run executes fn off the update loop and reports back with actionDoneMsg.
func (m Model) run(focus string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{focus: focus, err: fn(m.ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case boardLoadedMsg:
		m.busy = false
		m.rebuild()
		return m, nil

	case actionDoneMsg:
		m.busy = false
		m.rebuild()
		if msg.focus != "" {
			m.focusTask(msg.focus)
		}
		return m, nil

	case drainNotificationsMsg:
		for _, n := range m.buffer.Drain() {
			m.toasts.Push(n)
		}
		cmds := []tea.Cmd{m.buffer.WaitForSignal()}
		if m.toasts.HasToasts() && !m.toasts.Ticking() {
			m.toasts.SetTicking(true)
			cmds = append(cmds, scheduleToastTick())
		}
		return m, tea.Batch(cmds...)

	case toastTickMsg:
		m.toasts.Tick(toastTickInterval)
		if m.toasts.HasToasts() {
			return m, scheduleToastTick()
		}
		m.toasts.SetTicking(false)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Dismiss):
		m.toasts.Dismiss()
		return m, nil
	case key.Matches(msg, m.keys.Left):
		m.col = max(m.col-1, 0)
		return m, nil
	case key.Matches(msg, m.keys.Right):
		m.col = min(m.col+1, len(m.columns)-1)
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m, nil
	}

	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Reload):
		m.busy = true
		return m, m.load()
	case key.Matches(msg, m.keys.MoveUp):
		return m.reorder(-1)
	case key.Matches(msg, m.keys.MoveDown):
		return m.reorder(1)
	case key.Matches(msg, m.keys.MoveLeft):
		return m.transfer(-1)
	case key.Matches(msg, m.keys.MoveRight):
		return m.transfer(1)
	case key.Matches(msg, m.keys.CycleStatus):
		return m.cycleStatus()
	}

	return m, nil
}

// rebuild recomputes the columns from the service cache and clamps the
// selection.
func (m *Model) rebuild() {
	ov := m.svc.Overview(m.today)

	cols := make([]column, 0, len(ov.Sprints)+1)
	cols = append(cols, column{key: backlogKey, title: "Backlog", tasks: ov.Backlog})
	for _, v := range ov.Sprints {
		sp := v.Sprint
		cols = append(cols, column{
			key:     sp.ID,
			title:   sp.Name,
			tasks:   v.Tasks,
			sprint:  &sp,
			summary: v.Summary,
			active:  v.Active,
		})
	}
	m.columns = cols

	m.col = max(0, min(m.col, len(m.columns)-1))
	for _, c := range m.columns {
		m.cursor[c.key] = max(0, min(m.cursor[c.key], len(c.tasks)-1))
	}
}

func (m *Model) moveCursor(delta int) {
	c, ok := m.current()
	if !ok || len(c.tasks) == 0 {
		return
	}
	m.cursor[c.key] = max(0, min(m.cursor[c.key]+delta, len(c.tasks)-1))
}

func (m *Model) focusTask(id string) {
	for i, c := range m.columns {
		for j, t := range c.tasks {
			if t.ID == id {
				m.col = i
				m.cursor[c.key] = j
				return
			}
		}
	}
}

func (m Model) current() (column, bool) {
	if m.col < 0 || m.col >= len(m.columns) {
		return column{}, false
	}
	return m.columns[m.col], true
}

func (m Model) selected() (board.Task, bool) {
	c, ok := m.current()
	if !ok || len(c.tasks) == 0 {
		return board.Task{}, false
	}
	return c.tasks[m.cursor[c.key]], true
}

// reorder swaps the selected task with its neighbour in a sprint.
func (m Model) reorder(delta int) (tea.Model, tea.Cmd) {
	c, ok := m.current()
	task, selected := m.selected()
	if !ok || !selected {
		return m, nil
	}
	if c.sprint == nil {
		m.toasts.Push(notify.Warning("Backlog order is fixed", "tasks are listed in creation order"))
		return m, m.startToastTick()
	}

	target := m.cursor[c.key] + delta
	if target < 0 || target >= len(c.tasks) {
		return m, nil
	}

	m.busy = true
	sprintID, targetID := c.sprint.ID, c.tasks[target].ID
	return m, m.run(task.ID, func(ctx context.Context) error {
		_, err := m.svc.Reorder(ctx, sprintID, task.ID, targetID)
		return err
	})
}

// transfer moves the selected task to the neighbouring list. Moving into
// the backlog column removes it from its sprint.
func (m Model) transfer(delta int) (tea.Model, tea.Cmd) {
	task, ok := m.selected()
	dest := m.col + delta
	if !ok || dest < 0 || dest >= len(m.columns) {
		return m, nil
	}

	m.busy = true
	target := m.columns[dest]
	if target.sprint == nil {
		return m, m.run(task.ID, func(ctx context.Context) error {
			return m.svc.MoveToBacklog(ctx, task.ID)
		})
	}

	sprintID := target.sprint.ID
	return m, m.run(task.ID, func(ctx context.Context) error {
		_, err := m.svc.MoveToSprint(ctx, task.ID, sprintID)
		return err
	})
}

func (m Model) cycleStatus() (tea.Model, tea.Cmd) {
	task, ok := m.selected()
	if !ok {
		return m, nil
	}

	m.busy = true
	next := nextStatus(task.Status)
	return m, m.run(task.ID, func(ctx context.Context) error {
		_, err := m.svc.SetStatus(ctx, task.ID, next)
		return err
	})
}

func (m Model) startToastTick() tea.Cmd {
	if m.toasts.Ticking() {
		return nil
	}
	m.toasts.SetTicking(true)
	return scheduleToastTick()
}

func nextStatus(s board.Status) board.Status {
	statuses := board.Statuses()
	for i, st := range statuses {
		if st == s {
			return statuses[(i+1)%len(statuses)]
		}
	}
	return board.StatusTodo
}

func (m Model) View() string {
	if len(m.columns) == 0 {
		return mutedStyle.Render("Loading board...")
	}

	header := titleStyle.Render("backlog") + "  " + mutedStyle.Render(m.summaryLine())
	sections := []string{header, m.renderColumns(), m.help.View(m.keys)}
	if toasts := m.toasts.View(m.width); toasts != "" {
		sections = append(sections, toasts)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) summaryLine() string {
	tasks, active := 0, 0
	for _, c := range m.columns {
		tasks += len(c.tasks)
		if c.active {
			active++
		}
	}
	return fmt.Sprintf("%d tasks · %d sprints · %d active", tasks, len(m.columns)-1, active)
}

// visibleRange returns the window of columns that fits the terminal,
// keeping the focused column in view.
func (m Model) visibleRange() (int, int) {
	fit := len(m.columns)
	if m.width > 0 {
		fit = max(1, m.width/(minColumnWidth+2))
	}
	if fit >= len(m.columns) {
		return 0, len(m.columns)
	}
	start := max(0, min(m.col-fit/2, len(m.columns)-fit))
	return start, start + fit
}

func (m Model) renderColumns() string {
	start, end := m.visibleRange()
	width := minColumnWidth
	if m.width > 0 {
		width = max(minColumnWidth, m.width/(end-start)-2)
	}

	rendered := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rendered = append(rendered, m.renderColumn(m.columns[i], i == m.col, width))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(c column, focused bool, width int) string {
	inner := width - 4

	lines := []string{titleStyle.Render(truncate(c.title, inner))}
	if c.sprint != nil {
		dates := fmt.Sprintf("%s → %s", c.sprint.StartDate, c.sprint.EndDate)
		if c.active {
			dates += " ●"
		}
		lines = append(lines,
			mutedStyle.Render(dates),
			progressBar(c.summary.Progress, max(inner-5, 1)),
		)
	} else {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%d unplanned", len(c.tasks))), "")
	}
	lines = append(lines, "")

	if len(c.tasks) == 0 {
		lines = append(lines, mutedStyle.Render("empty"))
	}
	for i, t := range c.tasks {
		points := fmt.Sprintf(" %dpt", t.Points)
		title := truncate(t.Title, inner-2-len(points))
		line := statusStyle(t.Status).Render(title) + mutedStyle.Render(points)
		if focused && i == m.cursor[c.key] {
			line = selectedStyle.Render(iconCursor+" ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}

	style := columnStyle
	if focused {
		style = focusedColumnStyle
	}
	return style.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	if n <= 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
