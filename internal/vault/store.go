package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Jayphen/tasklens/internal/logging"
	"github.com/Jayphen/tasklens/internal/types"
)

// MaxOpenFiles caps how many notes are open and being parsed at once
// while scanning.
const MaxOpenFiles = 10

// DefaultProject is the note new tasks are appended to unless
// WithDailyNote names another one.
const DefaultProject = "daily.md"

// Store is a vault rooted at a directory.
type Store struct {
	root    string
	grammar *Grammar
	rest    *RESTClient
	log     *logging.Logger
	daily   string

	now  func() time.Time
	open func(path string) (*File, error)
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, used for completion stamps and due buckets.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRESTClient overrides the client read from the vault's plugin config.
func WithRESTClient(c *RESTClient) Option {
	return func(s *Store) { s.rest = c }
}

// WithDailyNote sets the vault relative note new tasks go to.
func WithDailyNote(rel string) Option {
	return func(s *Store) {
		if rel != "" {
			s.daily = filepath.ToSlash(rel)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore opens the vault at root.
func NewStore(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault %s is not a directory", root)
	}

	s := &Store{
		root:    abs,
		grammar: NewGrammar(),
		now:     time.Now,
		open:    OpenFile,
		daily:   DefaultProject,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rest == nil {
		s.rest = NewRESTClient(abs)
	}
	if s.log == nil {
		s.log = logging.WithField("vault", abs)
	}
	return s, nil
}

// Root returns the absolute vault path.
func (s *Store) Root() string { return s.root }

// Now returns the store's current time.
func (s *Store) Now() time.Time { return s.now() }

// Grammar returns the patterns the store parses with.
func (s *Store) Grammar() *Grammar { return s.grammar }

// Tasks loads every task of the vault that accept keeps. A nil accept keeps
// everything. Files that cannot be read are logged and skipped.
func (s *Store) Tasks(ctx context.Context, accept func(*Task) bool) ([]Task, error) {
	files, err := SupportedFiles(s.root)
	if err != nil {
		return nil, fmt.Errorf("scan vault %s: %w", s.root, err)
	}
	resolver := NewResolver(s.grammar, s.root, files)

	results := make([][]Task, len(files))
	sem := semaphore.NewWeighted(MaxOpenFiles)
	g, gctx := errgroup.WithContext(ctx)

	for i, path := range files {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			f, err := s.open(path)
			if err != nil {
				s.log.WithField("file", path).WithError(err).Warn("skipping unreadable note")
				return nil
			}

			var kept []Task
			for _, t := range s.grammar.Parse(path, f.Content()) {
				t.VaultPath = s.root
				t.display = resolver.Display(t.Name)
				if accept == nil || accept(&t) {
					kept = append(kept, t)
				}
			}
			results[i] = kept
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tasks []Task
	for _, r := range results {
		tasks = append(tasks, r...)
	}
	return tasks, nil
}

// Projects lists the notes tasks can be added to. Only the daily note is
// offered.
func (s *Store) Projects() []Project {
	return []Project{projectFor(s.root, filepath.Join(s.root, filepath.FromSlash(s.daily)))}
}

// AppendTask adds t as a new line. With the REST plugin configured it goes
// to today's daily note through Obsidian; otherwise it is appended to the
// note projectID (relative to the vault, default the daily note).
func (s *Store) AppendTask(ctx context.Context, projectID string, t Task) error {
	if t.State == 0 {
		t.State = types.StateUncompleted
	}
	t.Name = SingleLine(t.Name)
	text := Render(&t, "")

	if s.rest.Available() {
		return s.rest.AppendToDailyNote(ctx, text)
	}

	if projectID == "" {
		projectID = s.daily
	}
	path := filepath.Join(s.root, filepath.FromSlash(projectID))
	if rel, err := filepath.Rel(s.root, path); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("project %q is outside the vault", projectID)
	}

	f, err := s.open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := atomic.WriteFile(path, strings.NewReader(text+"\n")); err != nil {
			return err
		}
		return os.Chmod(path, 0644)
	case err != nil:
		return err
	}

	content := f.Content()
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	f.content = content + text + "\n"
	f.dirty = true
	return f.Flush()
}
