package tasksource

import (
	"context"
	"fmt"
	"time"

	"github.com/Jayphen/tasklens/internal/logging"
	"github.com/Jayphen/tasklens/internal/types"
	"github.com/Jayphen/tasklens/internal/vault"
)

// ObsidianSource implements TaskSource for a markdown vault.
type ObsidianSource struct {
	store *vault.Store
	info  SourceInfo
	log   *logging.Logger
}

// ObsidianConfig holds configuration for an Obsidian vault source.
type ObsidianConfig struct {
	Name      string // source name, defaults to "obsidian"
	Path      string // vault root
	DailyNote string // note new tasks go to, defaults to vault.DefaultProject
}

// NewObsidianSource opens the vault at config.Path.
func NewObsidianSource(config ObsidianConfig, opts ...vault.Option) (*ObsidianSource, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("%w: obsidian requires 'path'", ErrInvalidConfig)
	}
	name := config.Name
	if name == "" {
		name = string(SourceTypeObsidian)
	}

	log := logging.WithProvider(name)
	store, err := vault.NewStore(config.Path, append([]vault.Option{vault.WithLogger(log), vault.WithDailyNote(config.DailyNote)}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &ObsidianSource{
		store: store,
		log:   log,
		info: SourceInfo{
			Type:        SourceTypeObsidian,
			Name:        name,
			Description: "Tasks from markdown notes in " + store.Root(),
			Config: Metadata{
				"path": store.Root(),
			},
		},
	}, nil
}

// Info returns metadata about this source.
func (o *ObsidianSource) Info() SourceInfo {
	return o.info
}

// Capabilities reports full support.
func (o *ObsidianSource) Capabilities() Capabilities {
	return Capabilities{
		Create:      true,
		Update:      true,
		Delete:      true,
		Description: true,
		Due:         true,
		Priority:    true,
		InProgress:  true,
	}
}

// Store exposes the underlying vault.
func (o *ObsidianSource) Store() *vault.Store {
	return o.store
}

// ListProjects returns the note new tasks go to.
func (o *ObsidianSource) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	for _, p := range o.store.Projects() {
		projects = append(projects, Project{ID: p.ID, Name: p.Name, Source: o.info.Name})
	}
	return projects, nil
}

// ListTasks scans the vault.
func (o *ObsidianSource) ListTasks(ctx context.Context, project *Project, filter *types.Filter) ([]Task, error) {
	f := acceptAll(filter)
	now := o.store.Now()

	found, err := o.store.Tasks(ctx, func(t *vault.Task) bool {
		if project != nil && t.Project().ID != project.ID {
			return false
		}
		return f.Accept(t.State, t.Due, now)
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(found))
	for _, t := range found {
		tasks = append(tasks, o.convert(t))
	}
	return tasks, nil
}

func (o *ObsidianSource) convert(t vault.Task) Task {
	return Task{
		ID:           t.ID(),
		Title:        t.Name,
		DisplayTitle: t.DisplayName(),
		Description:  t.DescriptionText(),
		State:        t.State,
		Priority:     t.Priority,
		Due:          t.Due,
		CompletedAt:  t.CompletedAt,
		Labels:       t.Tags,
		Project:      t.Project().Name,
		Place:        t.Place(),
		URL:          t.URL(),
		Source:       o.info.Name,
		SourceType:   SourceTypeObsidian,
		Native:       t,
	}
}

// CreateTask appends a new task line to projectID (the daily note by
// default, or through the REST plugin when Obsidian is running).
func (o *ObsidianSource) CreateTask(ctx context.Context, projectID string, patch TaskPatch) error {
	name, ok := patch.Name.Value()
	if !ok || name == "" {
		return fmt.Errorf("%w: a new task needs a name", ErrInvalidConfig)
	}

	t := vault.Task{Name: name, State: types.StateUncompleted}
	if v, ok := patch.State.Value(); ok {
		t.State = v
	}
	if v, ok := patch.Priority.Value(); ok {
		t.Priority = v
	}
	if v, ok := patch.Description.Value(); ok && v != "" {
		t.Description = vault.DescriptionFromText(v)
	}
	if v, ok := patch.Due.Value(); ok {
		t.Due = v.Date(o.store.Now())
	}
	if t.State == types.StateCompleted {
		d := types.DateOf(o.store.Now())
		t.CompletedAt = &d
	}

	return o.store.AppendTask(ctx, projectID, t)
}

// UpdateTasks translates the patches into vault patches. Patches carrying
// another provider's snapshot fail with ErrWrongProvider.
func (o *ObsidianSource) UpdateTasks(ctx context.Context, patches []TaskPatch) []PatchError {
	var errs []PatchError
	now := o.store.Now()

	byID := make(map[string]Task, len(patches))
	var vaultPatches []vault.Patch
	for _, p := range patches {
		native, ok := nativeVaultTask(p.Task)
		if !ok {
			errs = append(errs, patchErr(p.Task, ErrWrongProvider))
			continue
		}
		byID[native.ID()] = *p.Task
		vaultPatches = append(vaultPatches, vault.Patch{
			Task:        &native,
			Name:        p.Name,
			Description: p.Description,
			State:       p.State,
			Due:         resolveDue(p.Due, now),
			Priority:    p.Priority,
		})
	}

	for _, e := range o.store.PatchTasks(ctx, vaultPatches) {
		t, ok := byID[e.Task.ID()]
		if !ok {
			t = o.convert(e.Task)
		}
		errs = append(errs, PatchError{Task: t, Err: e.Err})
	}
	return errs
}

// DeleteTask removes the task's lines from its note.
func (o *ObsidianSource) DeleteTask(ctx context.Context, task Task) error {
	native, ok := nativeVaultTask(&task)
	if !ok {
		return ErrWrongProvider
	}
	return o.store.DeleteTask(ctx, &native)
}

// Close is a no-op; files are not kept open between calls.
func (o *ObsidianSource) Close() error {
	return nil
}

func nativeVaultTask(t *Task) (vault.Task, bool) {
	if t == nil {
		return vault.Task{}, false
	}
	native, ok := t.Native.(vault.Task)
	return native, ok
}

// resolveDue turns a relative due item into a concrete date.
func resolveDue(p types.ValuePatch[types.DueItem], now time.Time) types.ValuePatch[time.Time] {
	switch p.Kind() {
	case types.PatchSet:
		item, _ := p.Value()
		if d := item.Date(now); d != nil {
			return types.SetValue(*d)
		}
		return types.ClearValue[time.Time]()
	case types.PatchClear:
		return types.ClearValue[time.Time]()
	}
	return types.ValuePatch[time.Time]{}
}

func patchErr(t *Task, err error) PatchError {
	if t == nil {
		return PatchError{Err: err}
	}
	return PatchError{Task: *t, Err: err}
}
