package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Jayphen/tasklens/internal/types"
)

// Description is the de-indented text of a task's continuation lines.
// Start and End are character offsets into the file.
type Description struct {
	Text  string
	Start int
	End   int
	lines int
}

// DescriptionFromText builds a description for a task that is about to be
// rendered; its offsets are relative to text itself.
func DescriptionFromText(text string) *Description {
	return &Description{
		Text:  text,
		End:   utf8.RuneCountInString(text),
		lines: strings.Count(text, "\n") + 1,
	}
}

// descriptionFromContent rebuilds the description stored at [start, end).
func descriptionFromContent(content []rune, start, end int) *Description {
	lines := strings.Split(string(content[start:end]), "\n")
	for i, l := range lines {
		lines[i] = trimIndent(l)
	}
	return &Description{Text: strings.Join(lines, "\n"), Start: start, End: end, lines: len(lines)}
}

func (d *Description) appendLine(line string) {
	count := utf8.RuneCountInString(line)
	if d.lines > 0 {
		d.Text += "\n"
		count++
	}
	d.Text += trimIndent(line)
	d.End += count
	d.lines++
}

func (d *Description) equal(o *Description) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Text == o.Text && d.Start == o.Start && d.End == o.End
}

// Task is one checkbox item parsed from a vault file. Values are snapshots:
// offsets are only valid until the file is modified.
type Task struct {
	FilePath  string
	VaultPath string

	// StartPos and EndPos are character offsets of the header line,
	// excluding its line break.
	StartPos int
	EndPos   int

	State types.State
	// Name is the raw text with tags kept in place.
	Name        string
	Description *Description
	Due         *time.Time
	CompletedAt *time.Time
	Priority    types.Priority
	Tags        []string

	display string
}

// Equal compares everything a conflict check cares about. CompletedAt is
// deliberately left out.
func (t *Task) Equal(o *Task) bool {
	return t.StartPos == o.StartPos &&
		t.EndPos == o.EndPos &&
		t.State == o.State &&
		t.Name == o.Name &&
		t.Description.equal(o.Description) &&
		dateEqual(t.Due, o.Due) &&
		t.Priority == o.Priority &&
		slices.Equal(t.Tags, o.Tags)
}

func dateEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// ID identifies the task within one read of the vault.
func (t *Task) ID() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d:%c:%s",
		t.FilePath, t.StartPos, t.EndPos, t.State.Char(), t.Name)))
	return hex.EncodeToString(sum[:])
}

// DisplayName is the name with tags removed and links resolved. It is set
// by the loader; tasks parsed directly fall back to the raw name.
func (t *Task) DisplayName() string {
	if t.display == "" {
		return t.Name
	}
	return t.display
}

// DescriptionText returns the description or "".
func (t *Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return t.Description.Text
}

// RelPath is the task file relative to the vault root.
func (t *Task) RelPath() string {
	return relPath(t.VaultPath, t.FilePath)
}

// Place is "<relative path>:<start offset>".
func (t *Task) Place() string {
	return t.RelPath() + ":" + strconv.Itoa(t.StartPos)
}

// URL opens the task's note in Obsidian.
func (t *Task) URL() string {
	return DeepLink(t.VaultPath, t.FilePath)
}

// Project returns the note that contains the task.
func (t *Task) Project() Project {
	return projectFor(t.VaultPath, t.FilePath)
}

// Project is one note of the vault. Its ID is the vault relative path.
type Project struct {
	ID   string
	Name string
}

func projectFor(vault, file string) Project {
	rel := relPath(vault, file)
	return Project{ID: rel, Name: strings.TrimSuffix(filepath.Base(rel), ".md")}
}
