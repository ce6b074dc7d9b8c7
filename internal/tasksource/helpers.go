package tasksource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Jayphen/tasklens/internal/types"
)

// Complete marks t done.
func Complete(t *Task) TaskPatch {
	return TaskPatch{Task: t, State: types.SetValue(types.StateCompleted)}
}

// Start marks t in progress.
func Start(t *Task) TaskPatch {
	return TaskPatch{Task: t, State: types.SetValue(types.StateInProgress)}
}

// Reopen marks t not done.
func Reopen(t *Task) TaskPatch {
	return TaskPatch{Task: t, State: types.SetValue(types.StateUncompleted)}
}

// Toggle completes an open task and reopens a completed one.
func Toggle(t *Task) TaskPatch {
	if t.State == types.StateCompleted {
		return Reopen(t)
	}
	return Complete(t)
}

// SetDue moves t to the given due item.
func SetDue(t *Task, due types.DueItem) TaskPatch {
	return TaskPatch{Task: t, Due: types.DuePatch(due)}
}

// SetPriority changes t's priority.
func SetPriority(t *Task, p types.Priority) TaskPatch {
	return TaskPatch{Task: t, Priority: types.SetValue(p)}
}

// stateRank orders in-progress work first and completed work last.
func stateRank(s types.State) int {
	switch s.Category() {
	case types.FilterInProgress:
		return 0
	case types.FilterUncompleted:
		return 1
	case types.FilterUnknown:
		return 2
	default:
		return 3
	}
}

// SortTasks orders tasks by state, then due date (undated last), then
// priority (highest first), then title.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if ra, rb := stateRank(a.State), stateRank(b.State); ra != rb {
			return ra < rb
		}
		switch {
		case a.Due != nil && b.Due == nil:
			return true
		case a.Due == nil && b.Due != nil:
			return false
		case a.Due != nil && b.Due != nil && !a.Due.Equal(*b.Due):
			return a.Due.Before(*b.Due)
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.Name() < b.Name()
	})
}

// FindByPrefix returns the task whose id starts with prefix.
func FindByPrefix(tasks []Task, prefix string) (Task, error) {
	var found []Task
	for _, t := range tasks {
		if t.ID == prefix {
			return t, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, prefix)
	case 1:
		return found[0], nil
	default:
		return Task{}, fmt.Errorf("%w: %q matches %d tasks", ErrAmbiguousID, prefix, len(found))
	}
}

// Due returns the tasks that are overdue or due today and not completed.
func Due(tasks []Task, now time.Time) []Task {
	var out []Task
	for _, t := range tasks {
		if t.State == types.StateCompleted {
			continue
		}
		switch types.BucketOf(t.Due, now) {
		case types.DueOverdue, types.DueToday:
			out = append(out, t)
		}
	}
	return out
}

// acceptAll is used when a caller passes no filter.
func acceptAll(filter *types.Filter) types.Filter {
	if filter == nil {
		return types.FullFilter()
	}
	return *filter
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
