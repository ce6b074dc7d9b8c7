package vault

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/Jayphen/tasklens/internal/types"
)

var (
	// ErrConflict means the task text no longer matches the snapshot.
	ErrConflict = errors.New("task has been changed since last loading")

	// ErrTaskVanished means no task header exists at the snapshot's offsets.
	ErrTaskVanished = errors.New("task disappeared from the file since last loading")
)

// File is an in-memory copy of one note. Edits accumulate in memory and
// are persisted by a single Flush.
type File struct {
	path    string
	content string
	mode    os.FileMode
	dirty   bool
}

// OpenFile reads path into memory.
func OpenFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, content: string(data), mode: info.Mode().Perm()}, nil
}

// Path returns the file's path.
func (f *File) Path() string { return f.path }

// Content returns the current in-memory text.
func (f *File) Content() string { return f.content }

// Flush atomically replaces the file on disk if anything changed.
func (f *File) Flush() error {
	if !f.dirty {
		return nil
	}
	if err := atomic.WriteFile(f.path, strings.NewReader(f.content)); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := os.Chmod(f.path, f.mode); err != nil {
		return fmt.Errorf("chmod %s: %w", f.path, err)
	}
	f.dirty = false
	return nil
}

// verify re-parses the snapshot's span from the current content.
func (f *File) verify(g *Grammar, t *Task) error {
	content := []rune(f.content)
	if t.StartPos < 0 || t.StartPos > t.EndPos || t.EndPos > len(content) {
		return ErrTaskVanished
	}

	current, ok := g.parseHeader(t.FilePath, string(content[t.StartPos:t.EndPos]), t.StartPos)
	if !ok {
		return ErrTaskVanished
	}
	if d := t.Description; d != nil {
		if d.Start < 0 || d.Start > d.End || d.End > len(content) {
			return ErrConflict
		}
		current.Description = descriptionFromContent(content, d.Start, d.End)
	}
	if !current.Equal(t) {
		return ErrConflict
	}
	return nil
}

// spanEnd is the offset just past the task's last character.
func spanEnd(t *Task) int {
	if t.Description != nil {
		return t.Description.End
	}
	return t.EndPos
}

// Patch applies p to the in-memory content. today stamps completions.
func (f *File) Patch(g *Grammar, p Patch, today time.Time) error {
	old := p.Task
	if err := f.verify(g, old); err != nil {
		return err
	}
	if p.IsEmpty() {
		return nil
	}

	updated := *old
	if v, ok := p.Name.Value(); ok {
		updated.Name = SingleLine(v)
		updated.Tags = g.Tags(" " + updated.Name)
	}
	switch p.Description.Kind() {
	case types.PatchSet:
		v, _ := p.Description.Value()
		if v == "" {
			updated.Description = nil
		} else {
			updated.Description = DescriptionFromText(v)
		}
	case types.PatchClear:
		updated.Description = nil
	}
	if v, ok := p.State.Value(); ok {
		switch {
		case v != types.StateCompleted:
			updated.CompletedAt = nil
		case old.State != types.StateCompleted || old.CompletedAt == nil:
			d := types.DateOf(today)
			updated.CompletedAt = &d
		}
		updated.State = v
	}
	if v, ok := p.Priority.Value(); ok {
		updated.Priority = v
	}
	switch p.Due.Kind() {
	case types.PatchSet:
		v, _ := p.Due.Value()
		d := types.DateOf(v)
		updated.Due = &d
	case types.PatchClear:
		updated.Due = nil
	}

	content := []rune(f.content)
	indent := leadingIndent(content, old.StartPos)
	f.content = string(content[:old.StartPos]) + indent + Render(&updated, indent) + string(content[spanEnd(old):])
	f.dirty = true
	return nil
}

// Delete removes the task, its description and the line break after it.
func (f *File) Delete(g *Grammar, t *Task) error {
	if err := f.verify(g, t); err != nil {
		return err
	}

	content := []rune(f.content)
	cut := min(spanEnd(t)+1, len(content))
	f.content = string(content[:t.StartPos]) + string(content[cut:])
	f.dirty = true
	return nil
}
