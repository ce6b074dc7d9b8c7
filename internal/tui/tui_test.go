package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/go-cmp/cmp"

	"github.com/Jayphen/tasklens/internal/tasksource"
	"github.com/Jayphen/tasklens/internal/types"
)

// testNow is a Thursday.
var testNow = time.Date(2025, 4, 10, 14, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu       sync.Mutex
	tasks    []tasksource.Task
	listErr  error
	patchErr error
	filters  []types.Filter
	patches  []tasksource.TaskPatch
	created  []tasksource.TaskPatch
	deleted  []tasksource.Task
}

func (f *fakeSource) ListTasks(_ context.Context, _ *tasksource.Project, filter *types.Filter) ([]tasksource.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if filter != nil {
		f.filters = append(f.filters, *filter)
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]tasksource.Task(nil), f.tasks...), nil
}

func (f *fakeSource) CreateTask(_ context.Context, _ string, patch tasksource.TaskPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, patch)
	return nil
}

func (f *fakeSource) UpdateTasks(_ context.Context, patches []tasksource.TaskPatch) []tasksource.PatchError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patches...)
	if f.patchErr == nil {
		return nil
	}
	var errs []tasksource.PatchError
	for _, p := range patches {
		errs = append(errs, tasksource.PatchError{Task: *p.Task, Err: f.patchErr})
	}
	return errs
}

func (f *fakeSource) DeleteTask(_ context.Context, task tasksource.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, task)
	return nil
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func sampleTasks() []tasksource.Task {
	return []tasksource.Task{
		{ID: "a1", Title: "write report", State: types.StateUncompleted, Due: date(2025, 4, 10), Source: "notes", SourceType: tasksource.SourceTypeObsidian},
		{ID: "b2", Title: "fix login", State: types.StateInProgress, Priority: types.PriorityHigh, Source: "gh", SourceType: tasksource.SourceTypeGitHub},
		{ID: "c3", Title: "pay rent", State: types.StateUncompleted, Due: date(2025, 4, 8), Source: "notes", SourceType: tasksource.SourceTypeObsidian},
	}
}

// newTestModel returns a loaded model over a fake source.
func newTestModel(tasks []tasksource.Task) (Model, *fakeSource) {
	src := &fakeSource{tasks: tasks}
	m := NewModel(src, Options{Version: "test", Filter: types.DefaultFilter()})
	m.now = func() time.Time { return testNow }
	m.tasks = tasks
	m.loading = false
	return m, src
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

// TestNewModel tests the initialization of a new TUI model.
func TestNewModel(t *testing.T) {
	m := NewModel(&fakeSource{}, Options{Version: "1.0.0"})

	if !m.loading {
		t.Error("expected loading to be true on new model")
	}
	if m.selectedIndex != 0 || m.filterIndex != 0 {
		t.Errorf("selectedIndex/filterIndex = %d/%d, want 0/0", m.selectedIndex, m.filterIndex)
	}
	if m.addMode || m.confirmDelete {
		t.Error("expected no dialog on new model")
	}
	if m.tick() != nil {
		t.Error("tick() should be nil without a refresh interval")
	}
	if m := NewModel(&fakeSource{}, Options{Refresh: time.Second}); m.tick() == nil {
		t.Error("tick() should be scheduled with a refresh interval")
	}
}

// TestKeyboardNavigation tests up/down and j/k navigation keys.
func TestKeyboardNavigation(t *testing.T) {
	tests := []struct {
		name     string
		initial  int
		key      tea.KeyMsg
		expected int
	}{
		{"down arrow moves down", 0, tea.KeyMsg{Type: tea.KeyDown}, 1},
		{"up arrow moves up", 2, tea.KeyMsg{Type: tea.KeyUp}, 1},
		{"j moves down", 0, runes("j"), 1},
		{"k moves up", 1, runes("k"), 0},
		{"down at bottom stays", 2, runes("j"), 2},
		{"up at top stays", 0, runes("k"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel(sampleTasks())
			m.selectedIndex = tt.initial

			m, _ = press(t, m, tt.key)
			if m.selectedIndex != tt.expected {
				t.Errorf("selectedIndex = %d, want %d", m.selectedIndex, tt.expected)
			}
		})
	}
}

// TestEditKeys tests that each edit key sends one patch for the selected task.
func TestEditKeys(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		key      tea.KeyMsg
		check    func(t *testing.T, p tasksource.TaskPatch)
	}{
		{
			name: "space completes", key: tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}},
			check: func(t *testing.T, p tasksource.TaskPatch) {
				if v, _ := p.State.Value(); v != types.StateCompleted {
					t.Errorf("state = %v, want completed", v)
				}
			},
		},
		{
			name: "i starts", key: runes("i"),
			check: func(t *testing.T, p tasksource.TaskPatch) {
				if v, _ := p.State.Value(); v != types.StateInProgress {
					t.Errorf("state = %v, want in progress", v)
				}
			},
		},
		{
			name: "i stops an in-progress task", selected: 1, key: runes("i"),
			check: func(t *testing.T, p tasksource.TaskPatch) {
				if v, _ := p.State.Value(); v != types.StateUncompleted {
					t.Errorf("state = %v, want uncompleted", v)
				}
			},
		},
		{
			name: "+ raises priority", selected: 1, key: runes("+"),
			check: func(t *testing.T, p tasksource.TaskPatch) {
				if v, _ := p.Priority.Value(); v != types.PriorityHighest {
					t.Errorf("priority = %v, want highest", v)
				}
			},
		},
		{
			name: "- lowers priority", key: runes("-"),
			check: func(t *testing.T, p tasksource.TaskPatch) {
				if v, _ := p.Priority.Value(); v != types.PriorityLow {
					t.Errorf("priority = %v, want low", v)
				}
			},
		},
		{
			name: "T sets tomorrow", key: runes("T"),
			check: func(t *testing.T, p tasksource.TaskPatch) {
				if v, _ := p.Due.Value(); v.Kind != types.DueKindTomorrow {
					t.Errorf("due = %v, want tomorrow", v)
				}
			},
		},
		{
			name: "w sets the weekend", key: runes("w"),
			check: func(t *testing.T, p tasksource.TaskPatch) {
				if v, _ := p.Due.Value(); v.Kind != types.DueKindThisWeekend {
					t.Errorf("due = %v, want weekend", v)
				}
			},
		},
		{
			name: "0 clears the due date", key: runes("0"),
			check: func(t *testing.T, p tasksource.TaskPatch) {
				if !p.Due.IsClear() {
					t.Errorf("due patch kind = %v, want clear", p.Due.Kind())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, src := newTestModel(sampleTasks())
			m.selectedIndex = tt.selected

			m, cmd := press(t, m, tt.key)
			if cmd == nil {
				t.Fatal("expected an update command")
			}
			if !m.busy {
				t.Error("expected busy while the update runs")
			}
			msg, ok := cmd().(mutationMsg)
			if !ok {
				t.Fatalf("command returned %T, want mutationMsg", msg)
			}
			if msg.err != nil {
				t.Fatalf("unexpected error: %v", msg.err)
			}
			if len(src.patches) != 1 {
				t.Fatalf("patches = %d, want 1", len(src.patches))
			}
			p := src.patches[0]
			if p.Task == nil || p.Task.ID != sampleTasks()[tt.selected].ID {
				t.Fatalf("patch targets %+v", p.Task)
			}
			tt.check(t, p)
		})
	}
}

// TestBusyBlocksEdits tests that a second edit waits for the first.
func TestBusyBlocksEdits(t *testing.T) {
	m, src := newTestModel(sampleTasks())
	m.busy = true

	m, _ = press(t, m, runes("x"))
	if len(src.patches) != 0 {
		t.Error("edit ran while busy")
	}
	if m.statusMessage != "Update in progress" {
		t.Errorf("statusMessage = %q", m.statusMessage)
	}
}

// TestMutationResult tests status and reload after an update.
func TestMutationResult(t *testing.T) {
	m, src := newTestModel(sampleTasks())
	src.patchErr = errors.New("task has been changed since last loading")

	m, cmd := press(t, m, runes("x"))
	msg := cmd().(mutationMsg)
	if msg.err == nil || !strings.Contains(msg.err.Error(), "error patching task with id a1") {
		t.Fatalf("err = %v, want the patch error", msg.err)
	}

	updated, _ := m.Update(msg)
	m = updated.(Model)
	if !m.busy {
		t.Error("busy cleared before the reload")
	}
	if !strings.Contains(m.statusMessage, "changed since last loading") {
		t.Errorf("statusMessage = %q, want the patch error", m.statusMessage)
	}

	// A periodic reload does not end the busy state.
	updated, _ = m.Update(m.fetchTasks())
	m = updated.(Model)
	if !m.busy {
		t.Error("busy cleared by an unrelated reload")
	}
	if m2, _ := press(t, m, runes("x")); len(src.patches) != 1 || !m2.busy {
		t.Errorf("edit ran before the reload, patches = %d", len(src.patches))
	}

	updated, _ = m.Update(m.reload())
	m = updated.(Model)
	if m.busy {
		t.Error("busy not cleared by the reload")
	}
	if len(m.tasks) != 3 {
		t.Errorf("tasks = %d after reload, want 3", len(m.tasks))
	}

	updated, _ = m.Update(mutationMsg{status: "Toggled: write report"})
	if got := updated.(Model).statusMessage; got != "Toggled: write report" {
		t.Errorf("statusMessage = %q", got)
	}
}

// TestAddTask tests the add prompt.
func TestAddTask(t *testing.T) {
	m, src := newTestModel(sampleTasks())

	m, _ = press(t, m, runes("a"))
	if !m.addMode {
		t.Fatal("a did not open the add prompt")
	}
	// Keys are text while the prompt is open.
	m, _ = press(t, m, runes("q"))
	if !m.addMode {
		t.Fatal("q closed the add prompt")
	}
	m, _ = press(t, m, runes("uit smoking"))

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.addMode {
		t.Error("enter did not close the prompt")
	}
	if cmd == nil {
		t.Fatal("expected a create command")
	}
	if msg := cmd().(mutationMsg); msg.err != nil || msg.status != "Added: quit smoking" {
		t.Errorf("mutation = %+v", msg)
	}
	if len(src.created) != 1 {
		t.Fatalf("created = %d, want 1", len(src.created))
	}
	if name, _ := src.created[0].Name.Value(); name != "quit smoking" {
		t.Errorf("created name = %q", name)
	}
}

// TestAddCancel tests that esc and an empty name create nothing.
func TestAddCancel(t *testing.T) {
	m, src := newTestModel(sampleTasks())

	m, _ = press(t, m, runes("a"))
	m, _ = press(t, m, runes("draft"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.addMode || m.addInput.Value() != "" {
		t.Error("esc did not reset the prompt")
	}

	m, _ = press(t, m, runes("a"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.statusMessage != "Add cancelled" {
		t.Errorf("statusMessage = %q", m.statusMessage)
	}
	if m.busy {
		t.Error("empty name started a create")
	}
	if len(src.created) != 0 {
		t.Errorf("created = %d, want 0", len(src.created))
	}
}

// TestConfirmDeleteDialog tests the y/n confirmation.
func TestConfirmDeleteDialog(t *testing.T) {
	m, src := newTestModel(sampleTasks())
	m.selectedIndex = 2

	m, _ = press(t, m, runes("d"))
	if !m.confirmDelete {
		t.Fatal("d did not ask for confirmation")
	}
	if !strings.Contains(ansi.Strip(m.View()), `Delete "pay rent"? (y/n)`) {
		t.Error("confirmation dialog not rendered")
	}

	m, _ = press(t, m, runes("n"))
	if m.confirmDelete || m.statusMessage != "Cancelled" {
		t.Errorf("n: confirmDelete=%v status=%q", m.confirmDelete, m.statusMessage)
	}

	m, _ = press(t, m, runes("d"))
	m, cmd := press(t, m, runes("y"))
	if cmd == nil {
		t.Fatal("expected a delete command")
	}
	if msg := cmd().(mutationMsg); msg.status != "Deleted: pay rent" {
		t.Errorf("mutation = %+v", msg)
	}
	if len(src.deleted) != 1 || src.deleted[0].ID != "c3" {
		t.Errorf("deleted = %+v", src.deleted)
	}
}

// TestFilterCycle tests that f walks the state modes and keeps the due buckets.
func TestFilterCycle(t *testing.T) {
	m, src := newTestModel(sampleTasks())
	m.opts.Filter = types.Filter{
		States: []types.FilterState{types.FilterUncompleted},
		Due:    []types.DueBucket{types.DueOverdue, types.DueToday},
	}

	want := [][]types.FilterState{
		{types.FilterInProgress},
		{types.FilterCompleted},
		types.FullFilter().States,
		{types.FilterUncompleted},
	}
	for i, states := range want {
		var cmd tea.Cmd
		m, cmd = press(t, m, runes("f"))
		if cmd == nil {
			t.Fatalf("step %d: expected a reload", i)
		}
		m.fetchTasks()

		got := src.filters[len(src.filters)-1]
		if diff := cmp.Diff(states, got.States); diff != "" {
			t.Errorf("step %d states mismatch (-want +got):\n%s", i, diff)
		}
		if diff := cmp.Diff(m.opts.Filter.Due, got.Due); diff != "" {
			t.Errorf("step %d due mismatch (-want +got):\n%s", i, diff)
		}
	}
}

// TestFetchTasks tests that loaded tasks are sorted and errors surface.
func TestFetchTasks(t *testing.T) {
	m, src := newTestModel(nil)
	src.tasks = sampleTasks()

	msg, ok := m.fetchTasks().(tasksMsg)
	if !ok {
		t.Fatalf("fetchTasks returned %T", msg)
	}
	var ids []string
	for _, task := range msg {
		ids = append(ids, task.ID)
	}
	// In progress first, then by due date.
	if diff := cmp.Diff([]string{"b2", "c3", "a1"}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	src.listErr = errors.New("all sources failed")
	updated, _ := m.Update(m.fetchTasks())
	m = updated.(Model)
	if m.err == nil {
		t.Fatal("expected the list error")
	}
	if !strings.Contains(m.View(), "all sources failed") {
		t.Error("error not rendered")
	}
}

// TestSelectionSurvivesReload tests that the cursor follows the task id.
func TestSelectionSurvivesReload(t *testing.T) {
	m, _ := newTestModel(sampleTasks())
	m.selectedIndex = 1 // b2

	reordered := sampleTasks()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	updated, _ := m.Update(tasksMsg(reordered))
	m = updated.(Model)
	if got := m.selectedTask().ID; got != "b2" {
		t.Errorf("selected = %s, want b2", got)
	}

	updated, _ = m.Update(tasksMsg(reordered[2:]))
	m = updated.(Model)
	if m.selectedIndex != 0 {
		t.Errorf("selectedIndex = %d, want clamped to 0", m.selectedIndex)
	}

	updated, _ = m.Update(tasksMsg(nil))
	m = updated.(Model)
	if m.selectedTask() != nil {
		t.Error("selected task on an empty list")
	}
}

// TestWindowSizeMessage tests window size updates.
func TestWindowSizeMessage(t *testing.T) {
	m, _ := newTestModel(nil)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(Model)
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d, want 120x40", m.width, m.height)
	}
}

// TestStatusMessage tests status message setting and expiry.
func TestStatusMessage(t *testing.T) {
	m, _ := newTestModel(nil)

	if cmd := m.setStatus("Saved"); cmd == nil {
		t.Error("setStatus should schedule a clear")
	}
	if m.statusMessage != "Saved" || !m.statusExpiry.After(testNow) {
		t.Errorf("status = %q expiring %v", m.statusMessage, m.statusExpiry)
	}

	updated, _ := m.Update(statusClearMsg{})
	if got := updated.(Model).statusMessage; got != "Saved" {
		t.Errorf("status cleared early: %q", got)
	}

	m.now = func() time.Time { return testNow.Add(statusTTL + time.Second) }
	updated, _ = m.Update(statusClearMsg{})
	if got := updated.(Model).statusMessage; got != "" {
		t.Errorf("status not cleared: %q", got)
	}
}

// TestFormatDue tests the relative due labels.
func TestFormatDue(t *testing.T) {
	tests := []struct {
		due  *time.Time
		want string
	}{
		{nil, ""},
		{date(2025, 4, 10), "today"},
		{date(2025, 4, 11), "tomorrow"},
		{date(2025, 4, 9), "yesterday"},
		{date(2025, 4, 5), "5d ago"},
		{date(2025, 4, 14), "Mon"},
		{date(2025, 6, 1), "Jun 1"},
		{date(2026, 1, 2), "2026-01-02"},
	}
	for _, tt := range tests {
		if got := formatDue(tt.due, testNow); got != tt.want {
			t.Errorf("formatDue(%v) = %q, want %q", tt.due, got, tt.want)
		}
	}
}

// TestTaskRowRendering tests that rows fit the width and show the columns.
func TestTaskRowRendering(t *testing.T) {
	tasks := sampleTasks()
	tasks[0].Title = strings.Repeat("very long task name ", 10)
	m, _ := newTestModel(tasks)

	row := m.renderTaskRow(0, 60)
	if w := ansi.StringWidth(row); w > 60 {
		t.Errorf("row width = %d, want <= 60", w)
	}
	plain := ansi.Strip(row)
	for _, want := range []string{IndicatorSelected, "today", "…", "notes"} {
		if !strings.Contains(plain, want) {
			t.Errorf("row %q missing %q", plain, want)
		}
	}

	plain = ansi.Strip(m.renderTaskRow(2, 60))
	if strings.Contains(plain, IndicatorSelected) {
		t.Error("unselected row has the selector")
	}
	if !strings.Contains(plain, "2d ago") {
		t.Errorf("row %q missing overdue label", plain)
	}
}

// TestViewRendering tests the full view in split and stacked layouts.
func TestViewRendering(t *testing.T) {
	tasks := sampleTasks()
	tasks[1].Description = "Check the session cookie"
	tasks[1].Labels = []string{"bug"}
	tasks[1].URL = "https://github.com/acme/api/issues/7"

	for _, width := range []int{140, 60} {
		m, _ := newTestModel(tasks)
		m.width, m.height = width, 40
		m.selectedIndex = 1

		view := ansi.Strip(m.View())
		for _, want := range []string{"tasklens", "vtest", "write report", "fix login", "pay rent",
			"Labels:", "bug", "session cookie", "1 overdue", "1 today", "1 in progress"} {
			if !strings.Contains(view, want) {
				t.Errorf("width %d: view missing %q", width, want)
			}
		}
	}
}

// TestEmptyAndLoadingViews tests the placeholders.
func TestEmptyAndLoadingViews(t *testing.T) {
	m := NewModel(&fakeSource{}, Options{})
	if !strings.Contains(m.View(), "Loading tasks...") {
		t.Error("loading placeholder missing")
	}

	m.loading = false
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "No tasks match the filter") {
		t.Error("empty placeholder missing")
	}
	if !strings.Contains(view, "nothing due") {
		t.Error("empty summary missing")
	}
}

// TestKeyQuitBehavior tests quitting outside and inside the add prompt.
func TestKeyQuitBehavior(t *testing.T) {
	m, _ := newTestModel(sampleTasks())

	_, cmd := press(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not return tea.Quit")
	}

	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not return tea.Quit")
	}
}
