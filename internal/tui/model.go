package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Jayphen/tasklens/internal/logging"
	"github.com/Jayphen/tasklens/internal/tasksource"
	"github.com/Jayphen/tasklens/internal/types"
)

const (
	statusTTL = 3 * time.Second
	opTimeout = 30 * time.Second
)

// Source is the part of tasksource.MultiSource the TUI needs.
type Source interface {
	ListTasks(ctx context.Context, project *tasksource.Project, filter *types.Filter) ([]tasksource.Task, error)
	CreateTask(ctx context.Context, projectID string, patch tasksource.TaskPatch) error
	UpdateTasks(ctx context.Context, patches []tasksource.TaskPatch) []tasksource.PatchError
	DeleteTask(ctx context.Context, task tasksource.Task) error
}

// filterMode is one step of the f key cycle. A nil states list means the
// configured filter.
type filterMode struct {
	name   string
	states []types.FilterState
}

var filterModes = []filterMode{
	{name: "default"},
	{name: "in progress", states: []types.FilterState{types.FilterInProgress}},
	{name: "completed", states: []types.FilterState{types.FilterCompleted}},
	{name: "all", states: types.FullFilter().States},
}

// Options configures a Model.
type Options struct {
	Version string
	// Filter is the configured filter; its due buckets apply in every mode.
	Filter types.Filter
	// Refresh is the auto reload interval; zero disables it.
	Refresh time.Duration
}

// Model is the Bubbletea model for the TUI.
type Model struct {
	// Data
	tasks         []tasksource.Task
	selectedIndex int

	// UI state
	loading       bool
	err           error
	statusMessage string
	statusExpiry  time.Time
	confirmDelete bool
	addMode       bool
	addInput      textinput.Model
	busy          bool
	filterIndex   int
	width, height int

	// Components
	spinner spinner.Model
	keys    keyMap
	md      *markdownCache

	// Dependencies
	source Source
	opts   Options
	now    func() time.Time
	log    *logging.Logger
}

// Messages
type (
	tasksMsg       []tasksource.Task
	errMsg         error
	tickMsg        time.Time
	statusClearMsg struct{}
	mutationMsg    struct {
		status string
		err    error
	}
	// reloadedMsg wraps the reload issued after a mutation; it ends the
	// busy state.
	reloadedMsg struct{ msg tea.Msg }
)

// NewModel creates a new TUI model over source.
func NewModel(source Source, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorCyan)

	ti := textinput.New()
	ti.Placeholder = "Buy milk"
	ti.CharLimit = 500
	ti.Width = 60

	return Model{
		loading:  true,
		addInput: ti,
		spinner:  s,
		keys:     defaultKeyMap(),
		md:       newMarkdownCache(),
		source:   source,
		opts:     opts,
		now:      time.Now,
		log:      logging.WithField("component", "tui"),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.fetchTasks,
		m.tick(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tasksMsg:
		m.setTasks(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case errMsg:
		m.err = msg
		m.loading = false
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchTasks, m.tick())

	case statusClearMsg:
		if m.now().After(m.statusExpiry) {
			m.statusMessage = ""
		}
		return m, nil

	case mutationMsg:
		// Edits stay blocked until the reload lands; the old snapshots
		// no longer match the file.
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("task update failed")
			return m, tea.Batch(m.setStatus(msg.err.Error()), m.reload)
		}
		return m, tea.Batch(m.setStatus(msg.status), m.reload)

	case reloadedMsg:
		m.busy = false
		return m.Update(msg.msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update text input if in add mode
	if m.addMode {
		var cmd tea.Cmd
		m.addInput, cmd = m.addInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle add mode input
	if m.addMode {
		switch msg.String() {
		case "esc":
			m.addMode = false
			m.addInput.SetValue("")
			m.addInput.Blur()
			return m, m.setStatus("Add cancelled")
		case "enter":
			value := strings.TrimSpace(m.addInput.Value())
			m.addMode = false
			m.addInput.SetValue("")
			m.addInput.Blur()
			if value == "" {
				return m, m.setStatus("Add cancelled")
			}
			m.busy = true
			return m, m.createTask(value)
		}
		var cmd tea.Cmd
		m.addInput, cmd = m.addInput.Update(msg)
		return m, cmd
	}

	// Handle confirmation dialog
	if m.confirmDelete {
		switch msg.String() {
		case "y", "Y":
			m.confirmDelete = false
			t := m.selectedTask()
			if t == nil {
				return m, nil
			}
			m.busy = true
			return m, m.deleteTask(*t)
		case "n", "N", "enter", "esc":
			m.confirmDelete = false
			return m, m.setStatus("Cancelled")
		}
		return m, nil
	}

	// Normal mode key handling
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.up):
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
		return m, nil

	case key.Matches(msg, m.keys.down):
		if m.selectedIndex < len(m.tasks)-1 {
			m.selectedIndex++
		}
		return m, nil

	case key.Matches(msg, m.keys.reload):
		m.loading = true
		return m, m.fetchTasks

	case key.Matches(msg, m.keys.filter):
		m.filterIndex = (m.filterIndex + 1) % len(filterModes)
		m.loading = true
		return m, tea.Batch(m.setStatus("Filter: "+filterModes[m.filterIndex].name), m.fetchTasks)

	case key.Matches(msg, m.keys.add):
		m.addMode = true
		m.addInput.Focus()
		return m, textinput.Blink
	}

	t := m.selectedTask()
	if t == nil {
		return m, nil
	}
	if m.busy {
		return m, m.setStatus("Update in progress")
	}

	var patch tasksource.TaskPatch
	var status string
	switch {
	case key.Matches(msg, m.keys.toggle):
		patch = tasksource.Toggle(t)
		status = "Toggled: " + t.Name()
	case key.Matches(msg, m.keys.start):
		if t.State == types.StateInProgress {
			patch = tasksource.Reopen(t)
			status = "Stopped: " + t.Name()
		} else {
			patch = tasksource.Start(t)
			status = "Started: " + t.Name()
		}
	case key.Matches(msg, m.keys.raise):
		patch = tasksource.SetPriority(t, t.Priority.Raise())
		status = "Priority: " + t.Priority.Raise().String()
	case key.Matches(msg, m.keys.lower):
		patch = tasksource.SetPriority(t, t.Priority.Lower())
		status = "Priority: " + t.Priority.Lower().String()
	case key.Matches(msg, m.keys.dueToday):
		patch, status = tasksource.SetDue(t, types.DueTodayItem()), "Due today"
	case key.Matches(msg, m.keys.dueTomorrow):
		patch, status = tasksource.SetDue(t, types.DueTomorrowItem()), "Due tomorrow"
	case key.Matches(msg, m.keys.dueWeekend):
		patch, status = tasksource.SetDue(t, types.DueWeekendItem()), "Due this weekend"
	case key.Matches(msg, m.keys.dueNextWeek):
		patch, status = tasksource.SetDue(t, types.DueNextWeekItem()), "Due next week"
	case key.Matches(msg, m.keys.dueNone):
		patch, status = tasksource.SetDue(t, types.DueNoDateItem()), "Due date cleared"
	case key.Matches(msg, m.keys.remove):
		m.confirmDelete = true
		return m, nil
	default:
		return m, nil
	}

	m.busy = true
	return m, m.updateTask(patch, status)
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Confirmation dialog
	if m.confirmDelete {
		b.WriteString(m.renderConfirmDialog())
		b.WriteString("\n")
	}

	// Add prompt
	if m.addMode {
		b.WriteString(m.renderAddPrompt())
		b.WriteString("\n")
	}

	// Error or content
	if m.err != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderMainContent())
	}

	// Status bar
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	return lipgloss.NewStyle().Padding(1).Render(b.String())
}

// Helper methods

// setStatus shows msg and returns the command that clears it later.
func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMessage = msg
	m.statusExpiry = m.now().Add(statusTTL)
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return statusClearMsg{}
	})
}

// setTasks replaces the list, keeping the selection on the same task when
// it is still there.
func (m *Model) setTasks(tasks []tasksource.Task) {
	var selectedID string
	if t := m.selectedTask(); t != nil {
		selectedID = t.ID
	}
	m.tasks = tasks
	for i, t := range tasks {
		if t.ID == selectedID {
			m.selectedIndex = i
			return
		}
	}
	if m.selectedIndex >= len(m.tasks) {
		m.selectedIndex = max(len(m.tasks)-1, 0)
	}
}

func (m Model) selectedTask() *tasksource.Task {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.tasks) {
		return &m.tasks[m.selectedIndex]
	}
	return nil
}

// filter combines the configured due buckets with the current state mode.
func (m Model) filter() types.Filter {
	f := m.opts.Filter
	if len(f.States) == 0 && len(f.Due) == 0 {
		f = types.DefaultFilter()
	}
	if mode := filterModes[m.filterIndex]; mode.states != nil {
		f.States = mode.states
	}
	return f
}

// Commands

func (m Model) tick() tea.Cmd {
	if m.opts.Refresh <= 0 {
		return nil
	}
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchTasks() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	filter := m.filter()
	tasks, err := m.source.ListTasks(ctx, nil, &filter)
	if err != nil {
		return errMsg(err)
	}
	tasksource.SortTasks(tasks)
	return tasksMsg(tasks)
}

func (m Model) reload() tea.Msg {
	return reloadedMsg{msg: m.fetchTasks()}
}

func (m Model) updateTask(patch tasksource.TaskPatch, status string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		if errs := m.source.UpdateTasks(ctx, []tasksource.TaskPatch{patch}); len(errs) > 0 {
			return mutationMsg{err: joinPatchErrors(errs)}
		}
		return mutationMsg{status: status}
	}
}

func (m Model) createTask(name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		patch := tasksource.TaskPatch{Name: types.SetValue(name)}
		if err := m.source.CreateTask(ctx, "", patch); err != nil {
			return mutationMsg{err: fmt.Errorf("add %q: %w", name, err)}
		}
		return mutationMsg{status: "Added: " + name}
	}
}

func (m Model) deleteTask(t tasksource.Task) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		if err := m.source.DeleteTask(ctx, t); err != nil {
			return mutationMsg{err: fmt.Errorf("delete %q: %w", t.Name(), err)}
		}
		return mutationMsg{status: "Deleted: " + t.Name()}
	}
}

func joinPatchErrors(errs []tasksource.PatchError) error {
	list := make([]error, len(errs))
	for i, e := range errs {
		list[i] = e
	}
	return errors.Join(list...)
}
