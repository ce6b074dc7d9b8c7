package tasksource

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Jayphen/tasklens/internal/types"
)

// fakeSource records calls and serves a fixed task list.
type fakeSource struct {
	name     string
	caps     Capabilities
	tasks    []Task
	listErr  error
	closeErr error

	created  []string
	patched  [][]TaskPatch
	deleted  []string
	closed   bool
	projects []Project
}

func newFake(name string, taskIDs ...string) *fakeSource {
	f := &fakeSource{name: name, caps: Capabilities{Create: true, Update: true, Delete: true}}
	for _, id := range taskIDs {
		f.tasks = append(f.tasks, Task{ID: id, Title: id, State: types.StateUncompleted, Source: name})
	}
	f.projects = []Project{{ID: name + "-p", Name: name, Source: name}}
	return f
}

func (f *fakeSource) Info() SourceInfo { return SourceInfo{Type: "fake", Name: f.name} }
func (f *fakeSource) Capabilities() Capabilities { return f.caps }
func (f *fakeSource) ListProjects(context.Context) ([]Project, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.projects, nil
}

func (f *fakeSource) ListTasks(_ context.Context, _ *Project, filter *types.Filter) ([]Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	fl := acceptAll(filter)
	var out []Task
	for _, t := range f.tasks {
		if fl.Accept(t.State, t.Due, testNow) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeSource) CreateTask(_ context.Context, _ string, p TaskPatch) error {
	name, _ := p.Name.Value()
	f.created = append(f.created, name)
	return nil
}

func (f *fakeSource) UpdateTasks(_ context.Context, patches []TaskPatch) []PatchError {
	f.patched = append(f.patched, patches)
	return nil
}

func (f *fakeSource) DeleteTask(_ context.Context, t Task) error {
	f.deleted = append(f.deleted, t.ID)
	return nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return f.closeErr
}

func TestMultiSourceListTasks(t *testing.T) {
	a := newFake("a", "a1", "a2")
	b := newFake("b", "b1")
	broken := newFake("broken")
	broken.listErr = errors.New("offline")
	m := NewMultiSource(a, broken, b)
	ctx := context.Background()

	tasks, err := m.ListTasks(ctx, nil, nil)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if diff := cmp.Diff([]string{"a1", "a2", "b1"}, ids(tasks)); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}

	tasks, err = m.ListTasks(ctx, &Project{ID: "b-p", Source: "b"}, nil)
	if err != nil {
		t.Fatalf("ListTasks(project) failed: %v", err)
	}
	if diff := cmp.Diff([]string{"b1"}, ids(tasks)); diff != "" {
		t.Errorf("project tasks mismatch (-want +got):\n%s", diff)
	}

	if _, err := m.ListTasks(ctx, &Project{Source: "nope"}, nil); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("unknown project source error = %v, want ErrSourceNotFound", err)
	}

	only := NewMultiSource(broken)
	if _, err := only.ListTasks(ctx, nil, nil); err == nil {
		t.Error("ListTasks succeeded although every source failed")
	}
}

func TestMultiSourceListProjects(t *testing.T) {
	m := NewMultiSource(newFake("a"), newFake("b"))
	projects, err := m.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(projects) != 2 || projects[0].Source != "a" || projects[1].Source != "b" {
		t.Errorf("projects = %+v", projects)
	}
}

func TestMultiSourceUpdateTasksRoutesBySource(t *testing.T) {
	a := newFake("a", "a1", "a2")
	b := newFake("b", "b1")
	m := NewMultiSource(a, b)

	ghost := Task{ID: "g1", Source: "ghost"}
	patches := []TaskPatch{
		Complete(&b.tasks[0]),
		Complete(&a.tasks[0]),
		Complete(&ghost),
		Start(&a.tasks[1]),
	}
	errs := m.UpdateTasks(context.Background(), patches)

	if len(errs) != 1 || errs[0].Task.ID != "g1" || !errors.Is(errs[0], ErrSourceNotFound) {
		t.Errorf("errors = %v, want one ErrSourceNotFound for g1", errs)
	}
	if len(a.patched) != 1 || len(a.patched[0]) != 2 {
		t.Fatalf("source a got %v batches", a.patched)
	}
	if a.patched[0][0].Task.ID != "a1" || a.patched[0][1].Task.ID != "a2" {
		t.Error("batch order for source a not preserved")
	}
	if len(b.patched) != 1 || len(b.patched[0]) != 1 {
		t.Errorf("source b got %v batches", b.patched)
	}
}

func TestMultiSourceCreateAndDelete(t *testing.T) {
	ro := newFake("ro")
	ro.caps = Capabilities{}
	rw := newFake("rw", "rw1")
	m := NewMultiSource(ro, rw)
	ctx := context.Background()

	if err := m.CreateTask(ctx, "", TaskPatch{Name: types.SetValue("first writable")}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if diff := cmp.Diff([]string{"first writable"}, rw.created); diff != "" {
		t.Errorf("created mismatch (-want +got):\n%s", diff)
	}

	if err := m.CreateTaskIn(ctx, "ro", "", TaskPatch{Name: types.SetValue("x")}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("CreateTaskIn(ro) error = %v, want ErrReadOnly", err)
	}
	if err := m.CreateTaskIn(ctx, "missing", "", TaskPatch{}); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("CreateTaskIn(missing) error = %v, want ErrSourceNotFound", err)
	}

	if err := m.DeleteTask(ctx, rw.tasks[0]); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if diff := cmp.Diff([]string{"rw1"}, rw.deleted); diff != "" {
		t.Errorf("deleted mismatch (-want +got):\n%s", diff)
	}

	if err := NewMultiSource(ro).CreateTask(ctx, "", TaskPatch{}); !errors.Is(err, ErrNotSupported) {
		t.Errorf("CreateTask without writable source error = %v, want ErrNotSupported", err)
	}
}

func TestMultiSourceCloseAndCapabilities(t *testing.T) {
	a := newFake("a")
	a.caps = Capabilities{Create: true}
	b := newFake("b")
	b.caps = Capabilities{Due: true}
	b.closeErr = errors.New("boom")
	m := NewMultiSource(a)
	m.AddSource(b)

	if got := m.Capabilities(); !got.Create || !got.Due || got.Delete {
		t.Errorf("Capabilities() = %+v", got)
	}

	err := m.Close()
	if err == nil || !a.closed || !b.closed {
		t.Errorf("Close() = %v, closed a=%v b=%v", err, a.closed, b.closed)
	}
}
