// Package redis stores the local task list in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Jayphen/tasklens/internal/types"
)

const (
	// KeyPrefix is the Redis key prefix of every tasklens key.
	KeyPrefix = "tasklens:"
	// DefaultRedisURL is the default Redis connection URL.
	DefaultRedisURL = "redis://localhost:6379"
	// DefaultList is the list name used when none is configured.
	DefaultList = "default"
	// InboxProject is created on first use and receives tasks without a project.
	InboxProject = "inbox"
)

var (
	// ErrNotFound means the task key does not exist.
	ErrNotFound = errors.New("local task not found")
	// ErrConflict means the stored task changed after the snapshot was read.
	ErrConflict = errors.New("local task has been changed since last loading")
)

// LocalTask is the JSON value stored per task.
type LocalTask struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"projectId"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	State       types.State    `json:"state"`
	Priority    types.Priority `json:"priority"`
	Due         *time.Time     `json:"due,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	// Version increases with every write and drives conflict detection.
	Version int64 `json:"version"`
}

// LocalProject groups local tasks.
type LocalProject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client wraps a Redis client with tasklens-specific operations.
type Client struct {
	rdb  *redis.Client
	list string
	now  func() time.Time
}

// URLFromEnv returns TASKLENS_REDIS_URL, then REDIS_URL, then the default.
func URLFromEnv() string {
	if url := os.Getenv("TASKLENS_REDIS_URL"); url != "" {
		return url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return DefaultRedisURL
}

// NewClient connects to url ("" means URLFromEnv) and scopes keys to list.
func NewClient(url, list string) (*Client, error) {
	if url == "" {
		url = URLFromEnv()
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newClient(rdb, list), nil
}

func newClient(rdb *redis.Client, list string) *Client {
	if list == "" {
		list = DefaultList
	}
	return &Client{rdb: rdb, list: list, now: time.Now}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// List returns the list name keys are scoped to.
func (c *Client) List() string {
	return c.list
}

func (c *Client) taskKey(id string) string {
	return KeyPrefix + c.list + ":task:" + id
}

func (c *Client) projectKey(id string) string {
	return KeyPrefix + c.list + ":project:" + id
}

// Projects returns all projects, creating the inbox when the list is empty.
func (c *Client) Projects(ctx context.Context) ([]LocalProject, error) {
	var projects []LocalProject
	if err := loadAll(ctx, c, c.projectKey("*"), &projects); err != nil {
		return nil, err
	}

	if len(projects) == 0 {
		inbox := LocalProject{ID: InboxProject, Name: "Inbox"}
		if err := c.SaveProject(ctx, inbox); err != nil {
			return nil, err
		}
		projects = append(projects, inbox)
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

// SaveProject creates or renames a project.
func (c *Client) SaveProject(ctx context.Context, p LocalProject) error {
	if p.ID == "" {
		return fmt.Errorf("project id is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.projectKey(p.ID), data, 0).Err()
}

// Tasks returns every task of the list ordered by creation time.
func (c *Client) Tasks(ctx context.Context) ([]LocalTask, error) {
	var tasks []LocalTask
	if err := loadAll(ctx, c, c.taskKey("*"), &tasks); err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

// Task loads one task.
func (c *Client) Task(ctx context.Context, id string) (*LocalTask, error) {
	data, err := c.rdb.Get(ctx, c.taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t LocalTask
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &t, nil
}

// CreateTask stores a new task, assigning an id and timestamps.
func (c *Client) CreateTask(ctx context.Context, t *LocalTask) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.ProjectID == "" {
		t.ProjectID = InboxProject
	}
	if t.State == 0 {
		t.State = types.StateUncompleted
	}
	now := c.now().UTC()
	t.CreatedAt, t.UpdatedAt, t.Version = now, now, 1

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	ok, err := c.rdb.SetNX(ctx, c.taskKey(t.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %s already exists", t.ID)
	}
	return nil
}

// UpdateTask applies mutate to the stored task inside WATCH/MULTI. The write
// is refused with ErrConflict when the stored version differs from
// snapshot's or another client writes the key meanwhile.
func (c *Client) UpdateTask(ctx context.Context, snapshot LocalTask, mutate func(*LocalTask)) (*LocalTask, error) {
	key := c.taskKey(snapshot.ID)
	var updated LocalTask

	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := getTask(ctx, tx, key)
		if err != nil {
			return err
		}
		if current.Version != snapshot.Version {
			return ErrConflict
		}

		mutate(current)
		current.ID = snapshot.ID
		current.Version++
		current.UpdatedAt = c.now().UTC()

		data, err := json.Marshal(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		updated = *current
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTask removes the task if it still matches snapshot.
func (c *Client) DeleteTask(ctx context.Context, snapshot LocalTask) error {
	key := c.taskKey(snapshot.ID)

	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := getTask(ctx, tx, key)
		if err != nil {
			return err
		}
		if current.Version != snapshot.Version {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

func getTask(ctx context.Context, tx *redis.Tx, key string) (*LocalTask, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t LocalTask
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &t, nil
}

// loadAll scans pattern and decodes every value into out, a pointer to a
// slice. Values that do not decode are skipped.
func loadAll[T any](ctx context.Context, c *Client, pattern string, out *[]T) error {
	keys, err := c.scanKeys(ctx, pattern)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return err
	}

	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(str), &v); err != nil {
			continue
		}
		*out = append(*out, v)
	}
	return nil
}

// scanKeys scans for all keys matching a pattern.
func (c *Client) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		var batch []string
		var err error
		batch, cursor, err = c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return keys, err
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// IsAvailable checks if Redis is reachable at url.
func IsAvailable(url string) bool {
	client, err := NewClient(url, "")
	if err != nil {
		return false
	}
	defer client.Close()
	return true
}
