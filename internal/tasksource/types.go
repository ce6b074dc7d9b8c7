// Package tasksource puts every task provider behind one contract and
// aggregates them for the CLI and the TUI.
package tasksource

import (
	"fmt"
	"time"

	"github.com/Jayphen/tasklens/internal/types"
)

// SourceType identifies which system the task originated from.
type SourceType string

const (
	SourceTypeObsidian SourceType = "obsidian" // markdown vault
	SourceTypeGitHub   SourceType = "github"   // GitHub issues
	SourceTypeLinear   SourceType = "linear"   // Linear issues
	SourceTypeBeads    SourceType = "beads"    // beads issue tracker
	SourceTypeLocal    SourceType = "local"    // Redis backed local list
)

// Task is the normalized record every provider produces.
type Task struct {
	ID string `json:"id"`
	// Title is the raw text; DisplayTitle is what gets shown (tags stripped,
	// links resolved). Providers without markup set both to the same value.
	Title        string `json:"title"`
	DisplayTitle string `json:"displayTitle"`
	Description  string `json:"description,omitempty"`

	State       types.State    `json:"state"`
	Priority    types.Priority `json:"priority"`
	Due         *time.Time     `json:"due,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Labels      []string       `json:"labels,omitempty"`

	Project string `json:"project,omitempty"`
	Place   string `json:"place,omitempty"`
	URL     string `json:"url,omitempty"`

	// Source is the name of the provider instance, SourceType its kind.
	Source     string     `json:"source"`
	SourceType SourceType `json:"sourceType"`

	// Native is the provider's own snapshot of the task. It travels back
	// with patches so the provider can detect concurrent changes.
	Native any `json:"-"`
}

// Name returns the display title, falling back to the raw one.
func (t Task) Name() string {
	if t.DisplayTitle != "" {
		return t.DisplayTitle
	}
	return t.Title
}

// Metadata stores source-specific data.
type Metadata map[string]interface{}

// SourceInfo provides metadata about a task source.
type SourceInfo struct {
	Type        SourceType `json:"type"`
	Name        string     `json:"name"`        // unique per configuration
	Description string     `json:"description"` // what this source provides
	Config      Metadata   `json:"config"`
}

// Capabilities tells callers which operations and fields a source accepts.
type Capabilities struct {
	Create      bool `json:"create"`
	Update      bool `json:"update"`
	Delete      bool `json:"delete"`
	Description bool `json:"description"`
	Due         bool `json:"due"`
	Priority    bool `json:"priority"`
	InProgress  bool `json:"inProgress"`
}

// Project is a container tasks can be listed from and created in.
type Project struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

// TaskPatch is a field level edit. Unset fields are left alone. Task is
// nil when the patch describes a task to create.
type TaskPatch struct {
	Task        *Task
	Name        types.ValuePatch[string]
	Description types.ValuePatch[string]
	State       types.ValuePatch[types.State]
	Due         types.ValuePatch[types.DueItem]
	Priority    types.ValuePatch[types.Priority]
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Name.IsUnset() && p.Description.IsUnset() && p.State.IsUnset() &&
		p.Due.IsUnset() && p.Priority.IsUnset()
}

// PatchError reports why one task of a batch was not updated.
type PatchError struct {
	Task Task
	Err  error
}

func (e PatchError) Error() string {
	return fmt.Sprintf("error patching task with id %s: %v", e.Task.ID, e.Err)
}

func (e PatchError) Unwrap() error { return e.Err }
