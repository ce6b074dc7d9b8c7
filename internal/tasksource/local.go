package tasksource

import (
	"context"
	"fmt"
	"time"

	"github.com/Jayphen/tasklens/internal/redis"
	"github.com/Jayphen/tasklens/internal/types"
)

// LocalSource implements TaskSource for the Redis backed local list.
type LocalSource struct {
	client *redis.Client
	now    func() time.Time
	info   SourceInfo
}

// LocalConfig holds configuration for the local source.
type LocalConfig struct {
	Name     string // source name, defaults to "local"
	RedisURL string // "" reads TASKLENS_REDIS_URL / REDIS_URL
	List     string // key namespace, defaults to "default"
}

// NewLocalSource connects to Redis.
func NewLocalSource(config LocalConfig) (*LocalSource, error) {
	client, err := redis.NewClient(config.RedisURL, config.List)
	if err != nil {
		return nil, err
	}
	return newLocalSource(config.Name, client), nil
}

func newLocalSource(name string, client *redis.Client) *LocalSource {
	if name == "" {
		name = string(SourceTypeLocal)
	}
	return &LocalSource{
		client: client,
		now:    time.Now,
		info: SourceInfo{
			Type:        SourceTypeLocal,
			Name:        name,
			Description: "Local task list stored in Redis",
			Config: Metadata{
				"list": client.List(),
			},
		},
	}
}

// Info returns metadata about this source.
func (l *LocalSource) Info() SourceInfo {
	return l.info
}

// Capabilities reports full support.
func (l *LocalSource) Capabilities() Capabilities {
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

// ListProjects returns the stored projects.
func (l *LocalSource) ListProjects(ctx context.Context) ([]Project, error) {
	stored, err := l.client.Projects(ctx)
	if err != nil {
		return nil, err
	}
	projects := make([]Project, 0, len(stored))
	for _, p := range stored {
		projects = append(projects, Project{ID: p.ID, Name: p.Name, Source: l.info.Name})
	}
	return projects, nil
}

// ListTasks returns the tasks of the list.
func (l *LocalSource) ListTasks(ctx context.Context, project *Project, filter *types.Filter) ([]Task, error) {
	f := acceptAll(filter)

	stored, err := l.client.Tasks(ctx)
	if err != nil {
		return nil, err
	}

	now := l.now()
	var tasks []Task
	for _, t := range stored {
		if project != nil && t.ProjectID != project.ID {
			continue
		}
		if !f.Accept(t.State, t.Due, now) {
			continue
		}
		tasks = append(tasks, l.convert(t))
	}
	return tasks, nil
}

func (l *LocalSource) convert(t redis.LocalTask) Task {
	return Task{
		ID:           t.ID,
		Title:        t.Name,
		DisplayTitle: t.Name,
		Description:  t.Description,
		State:        t.State,
		Priority:     t.Priority,
		Due:          t.Due,
		CompletedAt:  t.CompletedAt,
		Project:      t.ProjectID,
		Place:        l.client.List() + "/" + t.ProjectID,
		Source:       l.info.Name,
		SourceType:   SourceTypeLocal,
		Native:       t,
	}
}

// CreateTask stores a new task in projectID (the inbox by default).
func (l *LocalSource) CreateTask(ctx context.Context, projectID string, patch TaskPatch) error {
	name, ok := patch.Name.Value()
	if !ok || name == "" {
		return fmt.Errorf("%w: a new task needs a name", ErrInvalidConfig)
	}
	t := &redis.LocalTask{ProjectID: projectID, Name: name}
	applyLocalPatch(t, patch, l.now())
	return l.client.CreateTask(ctx, t)
}

// UpdateTasks applies each patch with an optimistic Redis transaction.
func (l *LocalSource) UpdateTasks(ctx context.Context, patches []TaskPatch) []PatchError {
	var errs []PatchError
	now := l.now()
	for _, p := range patches {
		native, ok := nativeLocalTask(p.Task)
		if !ok {
			errs = append(errs, patchErr(p.Task, ErrWrongProvider))
			continue
		}
		_, err := l.client.UpdateTask(ctx, native, func(t *redis.LocalTask) {
			applyLocalPatch(t, p, now)
		})
		if err != nil {
			errs = append(errs, patchErr(p.Task, err))
		}
	}
	return errs
}

// DeleteTask removes the task unless it changed since it was listed.
func (l *LocalSource) DeleteTask(ctx context.Context, task Task) error {
	native, ok := nativeLocalTask(&task)
	if !ok {
		return ErrWrongProvider
	}
	return l.client.DeleteTask(ctx, native)
}

// Close closes the Redis connection.
func (l *LocalSource) Close() error {
	return l.client.Close()
}

func nativeLocalTask(t *Task) (redis.LocalTask, bool) {
	if t == nil {
		return redis.LocalTask{}, false
	}
	native, ok := t.Native.(redis.LocalTask)
	return native, ok
}

// applyLocalPatch follows the vault's completion rules: completing stamps
// today unless already completed, any other state clears the stamp.
func applyLocalPatch(t *redis.LocalTask, p TaskPatch, now time.Time) {
	if v, ok := p.Name.Value(); ok {
		t.Name = v
	}
	switch p.Description.Kind() {
	case types.PatchSet:
		t.Description, _ = p.Description.Value()
	case types.PatchClear:
		t.Description = ""
	}
	if v, ok := p.State.Value(); ok {
		switch {
		case v != types.StateCompleted:
			t.CompletedAt = nil
		case t.State != types.StateCompleted || t.CompletedAt == nil:
			d := types.Today(now)
			t.CompletedAt = &d
		}
		t.State = v
	}
	if v, ok := p.Priority.Value(); ok {
		t.Priority = v
	}
	switch p.Due.Kind() {
	case types.PatchSet:
		item, _ := p.Due.Value()
		t.Due = item.Date(now)
	case types.PatchClear:
		t.Due = nil
	}
}
