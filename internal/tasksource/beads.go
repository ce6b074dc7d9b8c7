package tasksource

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Jayphen/tasklens/internal/types"
)

// BeadsSource implements TaskSource for the beads issue tracker by driving
// its bd command.
type BeadsSource struct {
	cwd  string // Working directory where .beads/ exists
	bin  string
	info SourceInfo
}

// BeadsConfig holds configuration for a beads source.
type BeadsConfig struct {
	Name string // source name, defaults to "beads"
	Cwd  string // project directory, defaults to "."
	Bin  string // bd executable, defaults to "bd" on PATH
}

// BeadsIssue represents the structure returned by `bd list --json`.
type BeadsIssue struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Type        string     `json:"issue_type"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	Description string     `json:"description"`
	Labels      []string   `json:"labels"`
	ClosedAt    *time.Time `json:"closed_at"`
}

// NewBeadsSource creates a new beads source.
func NewBeadsSource(config BeadsConfig) (*BeadsSource, error) {
	bin := config.Bin
	if bin == "" {
		bin = "bd"
	}
	// Verify bd is available
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("bd command not found: %w", err)
	}

	cwd := config.Cwd
	if cwd == "" {
		cwd = "."
	}
	name := config.Name
	if name == "" {
		name = string(SourceTypeBeads)
	}

	return &BeadsSource{
		cwd: cwd,
		bin: bin,
		info: SourceInfo{
			Type:        SourceTypeBeads,
			Name:        name,
			Description: "Git-backed issue tracker in " + cwd,
			Config: Metadata{
				"cwd": cwd,
			},
		},
	}, nil
}

// Info returns metadata about this source.
func (b *BeadsSource) Info() SourceInfo {
	return b.info
}

// Capabilities: beads issues have no due dates.
func (b *BeadsSource) Capabilities() Capabilities {
	return Capabilities{
		Create:      true,
		Update:      true,
		Description: true,
		Priority:    true,
		InProgress:  true,
	}
}

func (b *BeadsSource) project() Project {
	abs, err := filepath.Abs(b.cwd)
	if err != nil {
		abs = b.cwd
	}
	return Project{ID: b.cwd, Name: filepath.Base(abs), Source: b.info.Name}
}

// ListProjects returns the project directory.
func (b *BeadsSource) ListProjects(ctx context.Context) ([]Project, error) {
	return []Project{b.project()}, nil
}

// ListTasks returns tasks from beads.
func (b *BeadsSource) ListTasks(ctx context.Context, project *Project, filter *types.Filter) ([]Task, error) {
	f := acceptAll(filter)

	output, err := b.run(ctx, "list", "--json")
	if err != nil {
		return nil, err
	}

	var issues []BeadsIssue
	if err := json.Unmarshal(output, &issues); err != nil {
		return nil, fmt.Errorf("failed to parse bd output: %w", err)
	}

	now := time.Now()
	var tasks []Task
	for _, issue := range issues {
		task := b.convertBeadsIssue(issue)
		if !f.Accept(task.State, task.Due, now) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// CreateTask runs bd create.
func (b *BeadsSource) CreateTask(ctx context.Context, projectID string, patch TaskPatch) error {
	title, ok := patch.Name.Value()
	if !ok || title == "" {
		return fmt.Errorf("%w: a new task needs a name", ErrInvalidConfig)
	}
	if patch.Due.IsSet() {
		return fmt.Errorf("due dates: %w", ErrNotSupported)
	}

	args := []string{"create", title}
	if p, ok := patch.Priority.Value(); ok {
		args = append(args, fmt.Sprintf("--priority=%d", beadsPriority(p)))
	}
	if d, ok := patch.Description.Value(); ok && d != "" {
		args = append(args, "--description="+d)
	}
	_, err := b.run(ctx, args...)
	return err
}

// UpdateTasks runs one bd command per patch.
func (b *BeadsSource) UpdateTasks(ctx context.Context, patches []TaskPatch) []PatchError {
	var errs []PatchError
	for _, p := range patches {
		if err := b.updateIssue(ctx, p); err != nil {
			errs = append(errs, patchErr(p.Task, err))
		}
	}
	return errs
}

func (b *BeadsSource) updateIssue(ctx context.Context, p TaskPatch) error {
	if p.Task == nil {
		return ErrTaskNotFound
	}
	issue, ok := p.Task.Native.(BeadsIssue)
	if !ok {
		return ErrWrongProvider
	}
	if !p.Due.IsUnset() {
		return fmt.Errorf("due dates: %w", ErrNotSupported)
	}

	// Closing goes through bd close so beads records the close reason.
	if s, ok := p.State.Value(); ok && s == types.StateCompleted {
		if _, err := b.run(ctx, "close", issue.ID); err != nil {
			return err
		}
		p.State = types.ValuePatch[types.State]{}
	}

	args := []string{"update", issue.ID}
	if v, ok := p.Name.Value(); ok {
		args = append(args, "--title="+v)
	}
	switch p.Description.Kind() {
	case types.PatchSet:
		v, _ := p.Description.Value()
		args = append(args, "--description="+v)
	case types.PatchClear:
		args = append(args, "--description=")
	}
	if v, ok := p.Priority.Value(); ok {
		args = append(args, fmt.Sprintf("--priority=%d", beadsPriority(v)))
	}
	if v, ok := p.State.Value(); ok {
		args = append(args, "--status="+beadsStatus(v))
	}

	if len(args) == 2 {
		return nil
	}
	_, err := b.run(ctx, args...)
	return err
}

// DeleteTask is not offered for beads; close the issue instead.
func (b *BeadsSource) DeleteTask(ctx context.Context, task Task) error {
	return fmt.Errorf("deleting beads issues: %w", ErrNotSupported)
}

// Close cleans up resources (no-op for beads).
func (b *BeadsSource) Close() error {
	return nil
}

func (b *BeadsSource) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, b.bin, args...)
	cmd.Dir = b.cwd

	output, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("bd %s failed: %s", args[0], strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("bd %s failed: %w", args[0], err)
	}
	return output, nil
}

// convertBeadsIssue converts a BeadsIssue to a normalized Task.
func (b *BeadsSource) convertBeadsIssue(issue BeadsIssue) Task {
	state := types.StateUncompleted
	labels := issue.Labels
	switch strings.ToLower(issue.Status) {
	case "in_progress":
		state = types.StateInProgress
	case "closed":
		state = types.StateCompleted
	case "blocked":
		labels = append(labels, "blocked")
	}

	var completed *time.Time
	if state == types.StateCompleted && issue.ClosedAt != nil {
		d := types.DateOf(issue.ClosedAt.Local())
		completed = &d
	}

	return Task{
		ID:           issue.ID,
		Title:        issue.Title,
		DisplayTitle: issue.Title,
		Description:  issue.Description,
		State:        state,
		Priority:     priorityFromBeads(issue.Priority),
		CompletedAt:  completed,
		Labels:       labels,
		Project:      b.project().Name,
		Place:        issue.ID,
		Source:       b.info.Name,
		SourceType:   SourceTypeBeads,
		Native:       issue,
	}
}

// Beads priorities run from 0 (critical) to 4 (backlog); 2 is the default.
func priorityFromBeads(p int) types.Priority {
	switch {
	case p <= 0:
		return types.PriorityHighest
	case p == 1:
		return types.PriorityHigh
	case p == 2:
		return types.PriorityNormal
	case p == 3:
		return types.PriorityLow
	default:
		return types.PriorityLowest
	}
}

func beadsPriority(p types.Priority) int {
	switch p {
	case types.PriorityHighest:
		return 0
	case types.PriorityHigh, types.PriorityMedium:
		return 1
	case types.PriorityLow:
		return 3
	case types.PriorityLowest:
		return 4
	default:
		return 2
	}
}

func beadsStatus(s types.State) string {
	switch s {
	case types.StateCompleted:
		return "closed"
	case types.StateInProgress:
		return "in_progress"
	default:
		return "open"
	}
}

// ParseBeadsPriority converts a beads priority (0-4 or P0-P4).
func ParseBeadsPriority(p string) types.Priority {
	p = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(p)), "P")
	if val, err := strconv.Atoi(p); err == nil && val >= 0 && val <= 4 {
		return priorityFromBeads(val)
	}
	return types.PriorityNormal
}
