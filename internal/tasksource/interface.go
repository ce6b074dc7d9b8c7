package tasksource

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jayphen/tasklens/internal/logging"
	"github.com/Jayphen/tasklens/internal/types"
)

// TaskSource is the interface every provider implements so the CLI and the
// TUI can work with tasks from a vault, issue trackers or the local list in
// a uniform way.
type TaskSource interface {
	// Info returns metadata about this task source.
	Info() SourceInfo

	// Capabilities reports which operations and fields are supported.
	Capabilities() Capabilities

	// ListProjects returns the containers tasks can be created in.
	ListProjects(ctx context.Context) ([]Project, error)

	// ListTasks returns tasks accepted by filter, optionally limited to
	// project. A nil filter returns everything.
	ListTasks(ctx context.Context, project *Project, filter *types.Filter) ([]Task, error)

	// CreateTask adds a task built from patch to projectID ("" for the
	// source's default project).
	CreateTask(ctx context.Context, projectID string, patch TaskPatch) error

	// UpdateTasks applies patches and reports the ones that failed.
	UpdateTasks(ctx context.Context, patches []TaskPatch) []PatchError

	// DeleteTask removes the task.
	DeleteTask(ctx context.Context, task Task) error

	// Close cleans up any resources held by this source.
	Close() error
}

// MultiSource combines several task sources into one. Tasks are routed back
// to their source by Task.Source.
type MultiSource struct {
	sources []TaskSource
	log     *logging.Logger
}

// NewMultiSource creates a new multi-source aggregator.
func NewMultiSource(sources ...TaskSource) *MultiSource {
	return &MultiSource{
		sources: sources,
		log:     logging.WithField("component", "multisource"),
	}
}

// Info returns combined metadata about all sources.
func (m *MultiSource) Info() SourceInfo {
	return SourceInfo{
		Type:        "multi",
		Name:        "all",
		Description: fmt.Sprintf("Combines %d task sources", len(m.sources)),
	}
}

// Capabilities is the union of what the sources support.
func (m *MultiSource) Capabilities() Capabilities {
	var c Capabilities
	for _, s := range m.sources {
		sc := s.Capabilities()
		c.Create = c.Create || sc.Create
		c.Update = c.Update || sc.Update
		c.Delete = c.Delete || sc.Delete
		c.Description = c.Description || sc.Description
		c.Due = c.Due || sc.Due
		c.Priority = c.Priority || sc.Priority
		c.InProgress = c.InProgress || sc.InProgress
	}
	return c
}

// ListProjects returns the projects of every source. Sources that fail are
// logged and skipped.
func (m *MultiSource) ListProjects(ctx context.Context) ([]Project, error) {
	var all []Project
	var errs []error
	for _, s := range m.sources {
		projects, err := s.ListProjects(ctx)
		if err != nil {
			m.log.WithProvider(s.Info().Name).WithError(err).Warn("failed to list projects")
			errs = append(errs, fmt.Errorf("%s: %w", s.Info().Name, err))
			continue
		}
		all = append(all, projects...)
	}
	if len(errs) > 0 && len(errs) == len(m.sources) {
		return nil, errors.Join(errs...)
	}
	return all, nil
}

// ListTasks returns tasks from all sources, or only from the project's
// source when project is set. A failing source is logged and skipped; an
// error is returned only when every source failed.
func (m *MultiSource) ListTasks(ctx context.Context, project *Project, filter *types.Filter) ([]Task, error) {
	if project != nil {
		s, err := m.Source(project.Source)
		if err != nil {
			return nil, err
		}
		return s.ListTasks(ctx, project, filter)
	}

	var all []Task
	var errs []error
	for _, s := range m.sources {
		tasks, err := s.ListTasks(ctx, nil, filter)
		if err != nil {
			m.log.WithProvider(s.Info().Name).WithError(err).Warn("failed to list tasks")
			errs = append(errs, fmt.Errorf("%s: %w", s.Info().Name, err))
			continue
		}
		all = append(all, tasks...)
	}
	if len(errs) > 0 && len(errs) == len(m.sources) {
		return nil, errors.Join(errs...)
	}
	return all, nil
}

// CreateTask creates the task in the first source that supports creation.
// Use CreateTaskIn to pick the source.
func (m *MultiSource) CreateTask(ctx context.Context, projectID string, patch TaskPatch) error {
	for _, s := range m.sources {
		if s.Capabilities().Create {
			return s.CreateTask(ctx, projectID, patch)
		}
	}
	return fmt.Errorf("%w: no source accepts new tasks", ErrNotSupported)
}

// CreateTaskIn creates the task in the named source.
func (m *MultiSource) CreateTaskIn(ctx context.Context, source, projectID string, patch TaskPatch) error {
	s, err := m.Source(source)
	if err != nil {
		return err
	}
	if !s.Capabilities().Create {
		return fmt.Errorf("%s: %w", source, ErrReadOnly)
	}
	return s.CreateTask(ctx, projectID, patch)
}

// UpdateTasks splits the batch per source, keeping the order of first
// appearance, and merges the failures.
func (m *MultiSource) UpdateTasks(ctx context.Context, patches []TaskPatch) []PatchError {
	var errs []PatchError

	var order []string
	bySource := make(map[string][]TaskPatch)
	for _, p := range patches {
		if p.Task == nil {
			errs = append(errs, PatchError{Err: ErrTaskNotFound})
			continue
		}
		if _, ok := bySource[p.Task.Source]; !ok {
			order = append(order, p.Task.Source)
		}
		bySource[p.Task.Source] = append(bySource[p.Task.Source], p)
	}

	for _, name := range order {
		group := bySource[name]
		s, err := m.Source(name)
		if err != nil {
			for _, p := range group {
				errs = append(errs, PatchError{Task: *p.Task, Err: err})
			}
			continue
		}
		errs = append(errs, s.UpdateTasks(ctx, group)...)
	}
	return errs
}

// DeleteTask removes the task from its source.
func (m *MultiSource) DeleteTask(ctx context.Context, task Task) error {
	s, err := m.Source(task.Source)
	if err != nil {
		return err
	}
	return s.DeleteTask(ctx, task)
}

// Close closes all sources and returns every failure.
func (m *MultiSource) Close() error {
	var errs []error
	for _, s := range m.sources {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Info().Name, err))
		}
	}
	return errors.Join(errs...)
}

// AddSource adds a new task source to the multi-source.
func (m *MultiSource) AddSource(source TaskSource) {
	m.sources = append(m.sources, source)
}

// Sources returns all registered sources.
func (m *MultiSource) Sources() []TaskSource {
	return m.sources
}

// Source looks a source up by name.
func (m *MultiSource) Source(name string) (TaskSource, error) {
	for _, s := range m.sources {
		if s.Info().Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, name)
}
