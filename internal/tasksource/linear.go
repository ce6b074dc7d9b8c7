package tasksource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Jayphen/tasklens/internal/types"
)

const linearAPIURL = "https://api.linear.app/graphql"

// LinearSource implements TaskSource for Linear issues.
type LinearSource struct {
	apiKey   string
	teamID   string
	endpoint string
	client   *http.Client
	info     SourceInfo

	// workflow state ids per "teamID/stateType"
	statesMu sync.Mutex
	states   map[string]string
}

// LinearConfig holds configuration for Linear source.
type LinearConfig struct {
	Name   string // source name, defaults to "linear"
	APIKey string // Linear API key (or read from LINEAR_API_KEY env var)
	TeamID string // Linear team ID (optional, filters by team)
}

// LinearIssue is an issue as returned by the GraphQL API.
type LinearIssue struct {
	ID          string  `json:"id"`
	Identifier  string  `json:"identifier"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    int     `json:"priority"`
	DueDate     string  `json:"dueDate"`
	CompletedAt *string `json:"completedAt"`
	URL         string  `json:"url"`
	State       struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"state"`
	Team struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	Labels struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"labels"`
}

const linearIssueFields = `
	id
	identifier
	title
	description
	priority
	dueDate
	completedAt
	url
	state { name type }
	team { id name }
	labels { nodes { name } }
`

// NewLinearSource creates a new Linear source.
func NewLinearSource(config LinearConfig) (*LinearSource, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("LINEAR_API_KEY")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("%w: LINEAR_API_KEY not set", ErrInvalidConfig)
	}

	name := config.Name
	if name == "" {
		name = string(SourceTypeLinear)
	}

	return &LinearSource{
		apiKey:   apiKey,
		teamID:   config.TeamID,
		endpoint: linearAPIURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		states: make(map[string]string),
		info: SourceInfo{
			Type:        SourceTypeLinear,
			Name:        name,
			Description: "Linear issue tracking",
			Config: Metadata{
				"teamId": config.TeamID,
			},
		},
	}, nil
}

// Info returns metadata about this source.
func (l *LinearSource) Info() SourceInfo {
	return l.info
}

// Capabilities reports full support.
func (l *LinearSource) Capabilities() Capabilities {
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

// ListProjects returns the configured team, or every team of the workspace.
func (l *LinearSource) ListProjects(ctx context.Context) ([]Project, error) {
	var result struct {
		Teams struct {
			Nodes []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"nodes"`
		} `json:"teams"`
	}
	if err := l.query(ctx, `query { teams { nodes { id name } } }`, nil, &result); err != nil {
		return nil, err
	}

	var projects []Project
	for _, t := range result.Teams.Nodes {
		if l.teamID != "" && t.ID != l.teamID {
			continue
		}
		projects = append(projects, Project{ID: t.ID, Name: t.Name, Source: l.info.Name})
	}
	return projects, nil
}

// ListTasks returns issues of the team (or of project when given).
func (l *LinearSource) ListTasks(ctx context.Context, project *Project, filter *types.Filter) ([]Task, error) {
	f := acceptAll(filter)

	teamID := l.teamID
	if project != nil {
		teamID = project.ID
	}

	query := `query($first: Int) { issues(first: $first) { nodes {` + linearIssueFields + `} } }`
	variables := map[string]interface{}{"first": 100}
	if teamID != "" {
		query = `query($teamId: ID, $first: Int) {
			issues(filter: { team: { id: { eq: $teamId } } }, first: $first) { nodes {` + linearIssueFields + `} }
		}`
		variables["teamId"] = teamID
	}

	var result struct {
		Issues struct {
			Nodes []LinearIssue `json:"nodes"`
		} `json:"issues"`
	}
	if err := l.query(ctx, query, variables, &result); err != nil {
		return nil, err
	}

	now := time.Now()
	var tasks []Task
	for _, issue := range result.Issues.Nodes {
		task := l.convertLinearIssue(issue)
		if !f.Accept(task.State, task.Due, now) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// CreateTask creates an issue in projectID (a team id) or the configured team.
func (l *LinearSource) CreateTask(ctx context.Context, projectID string, patch TaskPatch) error {
	title, ok := patch.Name.Value()
	if !ok || title == "" {
		return fmt.Errorf("%w: a new task needs a name", ErrInvalidConfig)
	}
	teamID := projectID
	if teamID == "" {
		teamID = l.teamID
	}
	if teamID == "" {
		return fmt.Errorf("%w: linear needs a team to create issues in", ErrInvalidConfig)
	}

	input := map[string]interface{}{"teamId": teamID, "title": title}
	if err := l.fillInput(ctx, input, teamID, patch); err != nil {
		return err
	}

	var result struct {
		IssueCreate struct {
			Success bool `json:"success"`
		} `json:"issueCreate"`
	}
	mutation := `mutation($input: IssueCreateInput!) { issueCreate(input: $input) { success } }`
	if err := l.query(ctx, mutation, map[string]interface{}{"input": input}, &result); err != nil {
		return err
	}
	if !result.IssueCreate.Success {
		return fmt.Errorf("Linear refused to create %q", title)
	}
	return nil
}

// UpdateTasks runs one issueUpdate mutation per patch.
func (l *LinearSource) UpdateTasks(ctx context.Context, patches []TaskPatch) []PatchError {
	var errs []PatchError
	for _, p := range patches {
		if err := l.updateIssue(ctx, p); err != nil {
			errs = append(errs, patchErr(p.Task, err))
		}
	}
	return errs
}

func (l *LinearSource) updateIssue(ctx context.Context, p TaskPatch) error {
	if p.Task == nil {
		return ErrTaskNotFound
	}
	issue, ok := p.Task.Native.(LinearIssue)
	if !ok {
		return ErrWrongProvider
	}

	input := map[string]interface{}{}
	if v, ok := p.Name.Value(); ok {
		input["title"] = v
	}
	if err := l.fillInput(ctx, input, issue.Team.ID, p); err != nil {
		return err
	}
	if len(input) == 0 {
		return nil
	}

	var result struct {
		IssueUpdate struct {
			Success bool `json:"success"`
		} `json:"issueUpdate"`
	}
	mutation := `mutation($id: String!, $input: IssueUpdateInput!) { issueUpdate(id: $id, input: $input) { success } }`
	if err := l.query(ctx, mutation, map[string]interface{}{"id": issue.ID, "input": input}, &result); err != nil {
		return err
	}
	if !result.IssueUpdate.Success {
		return fmt.Errorf("Linear refused to update %s", issue.Identifier)
	}
	return nil
}

// fillInput adds the description, priority, due date and state of patch.
func (l *LinearSource) fillInput(ctx context.Context, input map[string]interface{}, teamID string, p TaskPatch) error {
	switch p.Description.Kind() {
	case types.PatchSet:
		v, _ := p.Description.Value()
		input["description"] = v
	case types.PatchClear:
		input["description"] = ""
	}
	if v, ok := p.Priority.Value(); ok {
		input["priority"] = linearPriority(v)
	}
	switch p.Due.Kind() {
	case types.PatchSet:
		item, _ := p.Due.Value()
		if d := item.Date(time.Now()); d != nil {
			input["dueDate"] = d.Format(types.DateLayout)
		} else {
			input["dueDate"] = nil
		}
	case types.PatchClear:
		input["dueDate"] = nil
	}
	if s, ok := p.State.Value(); ok {
		id, err := l.stateID(ctx, teamID, linearStateType(s))
		if err != nil {
			return err
		}
		input["stateId"] = id
	}
	return nil
}

// DeleteTask moves the issue to the trash.
func (l *LinearSource) DeleteTask(ctx context.Context, task Task) error {
	issue, ok := task.Native.(LinearIssue)
	if !ok {
		return ErrWrongProvider
	}
	var result struct {
		IssueDelete struct {
			Success bool `json:"success"`
		} `json:"issueDelete"`
	}
	mutation := `mutation($id: String!) { issueDelete(id: $id) { success } }`
	if err := l.query(ctx, mutation, map[string]interface{}{"id": issue.ID}, &result); err != nil {
		return err
	}
	if !result.IssueDelete.Success {
		return fmt.Errorf("Linear refused to delete %s", issue.Identifier)
	}
	return nil
}

// Close cleans up resources.
func (l *LinearSource) Close() error {
	return nil
}

// stateID finds the team's first workflow state of the given type.
func (l *LinearSource) stateID(ctx context.Context, teamID, stateType string) (string, error) {
	key := teamID + "/" + stateType
	l.statesMu.Lock()
	id, ok := l.states[key]
	l.statesMu.Unlock()
	if ok {
		return id, nil
	}

	var result struct {
		WorkflowStates struct {
			Nodes []struct {
				ID string `json:"id"`
			} `json:"nodes"`
		} `json:"workflowStates"`
	}
	query := `query($teamId: ID, $type: String) {
		workflowStates(filter: { team: { id: { eq: $teamId } }, type: { eq: $type } }) { nodes { id } }
	}`
	if err := l.query(ctx, query, map[string]interface{}{"teamId": teamID, "type": stateType}, &result); err != nil {
		return "", err
	}
	if len(result.WorkflowStates.Nodes) == 0 {
		return "", fmt.Errorf("team %s has no %q workflow state", teamID, stateType)
	}

	id = result.WorkflowStates.Nodes[0].ID
	l.statesMu.Lock()
	l.states[key] = id
	l.statesMu.Unlock()
	return id, nil
}

// query executes a GraphQL request and decodes its data into out.
func (l *LinearSource) query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	body, err := l.executeQuery(ctx, query, variables)
	if err != nil {
		return err
	}

	var resp struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse Linear response: %w", err)
	}
	if len(resp.Errors) > 0 {
		return fmt.Errorf("Linear API error: %s", resp.Errors[0].Message)
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse Linear response: %w", err)
	}
	return nil
}

// executeQuery executes a GraphQL query against Linear API.
func (l *LinearSource) executeQuery(ctx context.Context, query string, variables map[string]interface{}) ([]byte, error) {
	reqBody := map[string]interface{}{
		"query":     query,
		"variables": variables,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Linear API returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// convertLinearIssue converts a Linear issue to a normalized Task.
func (l *LinearSource) convertLinearIssue(issue LinearIssue) Task {
	state := types.StateUncompleted
	switch strings.ToLower(issue.State.Type) {
	case "started":
		state = types.StateInProgress
	case "completed":
		state = types.StateCompleted
	case "canceled":
		state = types.State('-')
	}

	var due *time.Time
	if issue.DueDate != "" {
		if d, err := time.Parse(types.DateLayout, issue.DueDate); err == nil {
			due = &d
		}
	}
	var completed *time.Time
	if issue.CompletedAt != nil {
		if t, err := time.Parse(time.RFC3339, *issue.CompletedAt); err == nil {
			d := types.DateOf(t.Local())
			completed = &d
		}
	}

	var labels []string
	for _, n := range issue.Labels.Nodes {
		labels = append(labels, n.Name)
	}

	return Task{
		ID:           issue.ID,
		Title:        issue.Title,
		DisplayTitle: issue.Title,
		Description:  issue.Description,
		State:        state,
		Priority:     priorityFromLinear(issue.Priority),
		Due:          due,
		CompletedAt:  completed,
		Labels:       labels,
		Project:      issue.Team.Name,
		Place:        issue.Identifier,
		URL:          issue.URL,
		Source:       l.info.Name,
		SourceType:   SourceTypeLinear,
		Native:       issue,
	}
}

// Linear priorities: 0 none, 1 urgent, 2 high, 3 medium, 4 low.
func priorityFromLinear(p int) types.Priority {
	switch p {
	case 1:
		return types.PriorityHighest
	case 2:
		return types.PriorityHigh
	case 3:
		return types.PriorityMedium
	case 4:
		return types.PriorityLow
	default:
		return types.PriorityNormal
	}
}

func linearPriority(p types.Priority) int {
	switch p {
	case types.PriorityHighest:
		return 1
	case types.PriorityHigh:
		return 2
	case types.PriorityMedium:
		return 3
	case types.PriorityLow, types.PriorityLowest:
		return 4
	default:
		return 0
	}
}

func linearStateType(s types.State) string {
	switch s {
	case types.StateCompleted:
		return "completed"
	case types.StateInProgress:
		return "started"
	case types.State('-'):
		return "canceled"
	default:
		return "unstarted"
	}
}
