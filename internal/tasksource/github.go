package tasksource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/Jayphen/tasklens/internal/types"
)

const githubAPIURL = "https://api.github.com"

// inProgressLabel marks open issues that are being worked on.
const inProgressLabel = "in progress"

// GitHubSource implements TaskSource for GitHub issues.
type GitHubSource struct {
	token   string
	owner   string
	repo    string
	baseURL string
	client  *http.Client
	info    SourceInfo
}

// GitHubConfig holds configuration for GitHub source.
type GitHubConfig struct {
	Name  string // source name, defaults to "github"
	Token string // GitHub token (or read from GITHUB_TOKEN env var)
	Owner string // Repository owner
	Repo  string // Repository name
}

// GitHubIssue represents a GitHub issue from the API.
type GitHubIssue struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	State    string     `json:"state"`
	ClosedAt *time.Time `json:"closed_at"`
	Labels   []struct {
		Name string `json:"name"`
	} `json:"labels"`
	HTMLURL string `json:"html_url"`
	// PullRequest is set when the "issue" is a pull request.
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request,omitempty"`
}

// LabelNames returns the issue's label names.
func (i GitHubIssue) LabelNames() []string {
	var names []string
	for _, l := range i.Labels {
		names = append(names, l.Name)
	}
	return names
}

// NewGitHubSource creates a new GitHub source.
func NewGitHubSource(config GitHubConfig) (*GitHubSource, error) {
	token := config.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	if token == "" {
		return nil, fmt.Errorf("%w: GITHUB_TOKEN not set", ErrInvalidConfig)
	}

	if config.Owner == "" || config.Repo == "" {
		return nil, fmt.Errorf("%w: owner and repo are required", ErrInvalidConfig)
	}

	name := config.Name
	if name == "" {
		name = string(SourceTypeGitHub)
	}

	return &GitHubSource{
		token:   token,
		owner:   config.Owner,
		repo:    config.Repo,
		baseURL: githubAPIURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		info: SourceInfo{
			Type:        SourceTypeGitHub,
			Name:        name,
			Description: fmt.Sprintf("GitHub issues for %s/%s", config.Owner, config.Repo),
			Config: Metadata{
				"owner": config.Owner,
				"repo":  config.Repo,
			},
		},
	}, nil
}

// Info returns metadata about this source.
func (g *GitHubSource) Info() SourceInfo {
	return g.info
}

// Capabilities: issues have no due date and cannot be deleted through the
// REST API.
func (g *GitHubSource) Capabilities() Capabilities {
	return Capabilities{
		Create:      true,
		Update:      true,
		Description: true,
		Priority:    true,
		InProgress:  true,
	}
}

func (g *GitHubSource) slug() string {
	return g.owner + "/" + g.repo
}

// ListProjects returns the repository.
func (g *GitHubSource) ListProjects(ctx context.Context) ([]Project, error) {
	return []Project{{ID: g.slug(), Name: g.slug(), Source: g.info.Name}}, nil
}

// ListTasks returns the repository's issues, skipping pull requests.
func (g *GitHubSource) ListTasks(ctx context.Context, project *Project, filter *types.Filter) ([]Task, error) {
	f := acceptAll(filter)

	// GitHub only knows "open" and "closed".
	state := "open"
	if slices.Contains(f.States, types.FilterCompleted) {
		state = "all"
	}
	params := url.Values{"per_page": {"100"}, "state": {state}}

	var issues []GitHubIssue
	path := fmt.Sprintf("/repos/%s/%s/issues?%s", g.owner, g.repo, params.Encode())
	if err := g.do(ctx, http.MethodGet, path, nil, &issues); err != nil {
		return nil, err
	}

	now := time.Now()
	var tasks []Task
	for _, issue := range issues {
		if issue.PullRequest != nil {
			continue
		}
		task := g.convertGitHubIssue(issue)
		if !f.Accept(task.State, task.Due, now) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// CreateTask opens a new issue.
func (g *GitHubSource) CreateTask(ctx context.Context, projectID string, patch TaskPatch) error {
	title, ok := patch.Name.Value()
	if !ok || title == "" {
		return fmt.Errorf("%w: a new task needs a name", ErrInvalidConfig)
	}
	if patch.Due.IsSet() {
		return fmt.Errorf("due dates: %w", ErrNotSupported)
	}

	payload := map[string]interface{}{"title": title}
	if body, ok := patch.Description.Value(); ok {
		payload["body"] = body
	}
	var labels []string
	if p, ok := patch.Priority.Value(); ok {
		labels = withPriorityLabel(labels, p)
	}
	if s, ok := patch.State.Value(); ok && s == types.StateInProgress {
		labels = append(labels, inProgressLabel)
	}
	if len(labels) > 0 {
		payload["labels"] = labels
	}

	return g.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/issues", g.owner, g.repo), payload, nil)
}

// UpdateTasks patches each issue on its own.
func (g *GitHubSource) UpdateTasks(ctx context.Context, patches []TaskPatch) []PatchError {
	var errs []PatchError
	for _, p := range patches {
		if err := g.updateIssue(ctx, p); err != nil {
			errs = append(errs, patchErr(p.Task, err))
		}
	}
	return errs
}

func (g *GitHubSource) updateIssue(ctx context.Context, p TaskPatch) error {
	if p.Task == nil {
		return ErrTaskNotFound
	}
	issue, ok := p.Task.Native.(GitHubIssue)
	if !ok {
		return ErrWrongProvider
	}
	if !p.Due.IsUnset() {
		return fmt.Errorf("due dates: %w", ErrNotSupported)
	}

	payload := map[string]interface{}{}
	if v, ok := p.Name.Value(); ok {
		payload["title"] = v
	}
	switch p.Description.Kind() {
	case types.PatchSet:
		v, _ := p.Description.Value()
		payload["body"] = v
	case types.PatchClear:
		payload["body"] = ""
	}

	labels := issue.LabelNames()
	labelsChanged := false
	if s, ok := p.State.Value(); ok {
		if s == types.StateCompleted {
			payload["state"] = "closed"
		} else {
			payload["state"] = "open"
		}
		labels = slices.DeleteFunc(labels, isInProgressLabel)
		if s == types.StateInProgress {
			labels = append(labels, inProgressLabel)
		}
		labelsChanged = true
	}
	if v, ok := p.Priority.Value(); ok {
		labels = withPriorityLabel(labels, v)
		labelsChanged = true
	}
	if labelsChanged {
		if labels == nil {
			labels = []string{}
		}
		payload["labels"] = labels
	}

	if len(payload) == 0 {
		return nil
	}
	return g.do(ctx, http.MethodPatch, fmt.Sprintf("/repos/%s/%s/issues/%d", g.owner, g.repo, issue.Number), payload, nil)
}

// DeleteTask is not available for issues.
func (g *GitHubSource) DeleteTask(ctx context.Context, task Task) error {
	return fmt.Errorf("deleting GitHub issues: %w", ErrNotSupported)
}

// Close cleans up resources.
func (g *GitHubSource) Close() error {
	return nil
}

// do sends an authenticated request and decodes the JSON answer into out.
func (g *GitHubSource) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "token "+g.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub API returned status %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse GitHub response: %w", err)
	}
	return nil
}

// convertGitHubIssue converts a GitHub issue to a normalized Task.
func (g *GitHubSource) convertGitHubIssue(issue GitHubIssue) Task {
	state := types.StateUncompleted
	switch strings.ToLower(issue.State) {
	case "open":
		for _, label := range issue.Labels {
			if isInProgressLabel(label.Name) {
				state = types.StateInProgress
			}
		}
	case "closed":
		state = types.StateCompleted
	}

	// GitHub has no native priority; labels carry it.
	priority := types.PriorityNormal
	for _, label := range issue.Labels {
		if p, ok := priorityFromLabel(label.Name); ok {
			priority = p
		}
	}

	var completed *time.Time
	if state == types.StateCompleted && issue.ClosedAt != nil {
		d := types.DateOf(issue.ClosedAt.Local())
		completed = &d
	}

	return Task{
		ID:           fmt.Sprintf("%s#%d", g.slug(), issue.Number),
		Title:        issue.Title,
		DisplayTitle: issue.Title,
		Description:  issue.Body,
		State:        state,
		Priority:     priority,
		CompletedAt:  completed,
		Labels:       issue.LabelNames(),
		Project:      g.slug(),
		Place:        fmt.Sprintf("%s#%d", g.slug(), issue.Number),
		URL:          issue.HTMLURL,
		Source:       g.info.Name,
		SourceType:   SourceTypeGitHub,
		Native:       issue,
	}
}

func isInProgressLabel(name string) bool {
	switch strings.ToLower(name) {
	case "in progress", "in-progress":
		return true
	}
	return false
}

var githubPriorityLabels = []struct {
	names    []string
	priority types.Priority
}{
	{[]string{"priority: critical", "p0"}, types.PriorityHighest},
	{[]string{"priority: high", "p1"}, types.PriorityHigh},
	{[]string{"priority: medium", "p2"}, types.PriorityMedium},
	{[]string{"priority: low", "p3"}, types.PriorityLow},
	{[]string{"priority: backlog", "p4"}, types.PriorityLowest},
}

func priorityFromLabel(name string) (types.Priority, bool) {
	name = strings.ToLower(name)
	for _, l := range githubPriorityLabels {
		if slices.Contains(l.names, name) {
			return l.priority, true
		}
	}
	return types.PriorityNormal, false
}

// withPriorityLabel drops existing priority labels and adds the one for p.
func withPriorityLabel(labels []string, p types.Priority) []string {
	labels = slices.DeleteFunc(labels, func(name string) bool {
		_, ok := priorityFromLabel(name)
		return ok
	})
	for _, l := range githubPriorityLabels {
		if l.priority == p {
			labels = append(labels, l.names[0])
		}
	}
	return labels
}
