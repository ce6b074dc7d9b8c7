package vault

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Jayphen/tasklens/internal/types"
)

// Patch is a field-level edit of a previously loaded task.
type Patch struct {
	Task        *Task
	Name        types.ValuePatch[string]
	Description types.ValuePatch[string]
	State       types.ValuePatch[types.State]
	Due         types.ValuePatch[time.Time]
	Priority    types.ValuePatch[types.Priority]
}

// IsEmpty reports whether p leaves every field unchanged.
func (p Patch) IsEmpty() bool {
	return p.Name.IsUnset() && p.Description.IsUnset() && p.State.IsUnset() &&
		p.Due.IsUnset() && p.Priority.IsUnset()
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// SingleLine turns line breaks in a task name into spaces. A name that
// spans lines would be written as prose after the task.
func SingleLine(name string) string {
	return strings.TrimSpace(lineBreaks.Replace(name))
}

// PatchError reports why one task of a batch was not updated.
type PatchError struct {
	Task Task
	Err  error
}

func (e PatchError) Error() string {
	return fmt.Sprintf("error patching task with id %s: %v", e.Task.ID(), e.Err)
}

func (e PatchError) Unwrap() error { return e.Err }

// PatchTasks applies patches grouped per file. Within a file patches run
// from the bottom up so earlier offsets stay valid, and the file is
// written once. Each failed patch is reported on its own.
func (s *Store) PatchTasks(ctx context.Context, patches []Patch) []PatchError {
	var errs []PatchError

	var order []string
	byFile := make(map[string][]Patch)
	for _, p := range patches {
		if p.Task == nil {
			errs = append(errs, PatchError{Err: ErrTaskVanished})
			continue
		}
		if _, ok := byFile[p.Task.FilePath]; !ok {
			order = append(order, p.Task.FilePath)
		}
		byFile[p.Task.FilePath] = append(byFile[p.Task.FilePath], p)
	}

	today := s.now()
	for _, path := range order {
		filePatches := byFile[path]
		if err := ctx.Err(); err != nil {
			errs = append(errs, failAll(filePatches, err)...)
			continue
		}

		f, err := s.open(path)
		if err != nil {
			errs = append(errs, failAll(filePatches, err)...)
			continue
		}

		sort.SliceStable(filePatches, func(i, j int) bool {
			return filePatches[i].Task.StartPos > filePatches[j].Task.StartPos
		})

		var applied []Patch
		for _, p := range filePatches {
			if err := f.Patch(s.grammar, p, today); err != nil {
				s.log.WithField("task_id", p.Task.ID()).WithError(err).Info("patch rejected")
				errs = append(errs, PatchError{Task: *p.Task, Err: err})
				continue
			}
			applied = append(applied, p)
		}

		if err := f.Flush(); err != nil {
			errs = append(errs, failAll(applied, err)...)
		}
	}

	return errs
}

func failAll(patches []Patch, err error) []PatchError {
	out := make([]PatchError, 0, len(patches))
	for _, p := range patches {
		out = append(out, PatchError{Task: *p.Task, Err: err})
	}
	return out
}

// DeleteTask removes t from its file.
func (s *Store) DeleteTask(ctx context.Context, t *Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := s.open(t.FilePath)
	if err != nil {
		return err
	}
	if err := f.Delete(s.grammar, t); err != nil {
		s.log.WithField("task_id", t.ID()).WithError(err).Info("delete rejected")
		return err
	}
	return f.Flush()
}
