package vault

import (
	"strings"
	"unicode/utf8"

	"github.com/Jayphen/tasklens/internal/types"
)

// Parse returns the tasks of one file in document order. Lines that are
// not task headers or indented continuations are left alone.
func (g *Grammar) Parse(filePath, content string) []Task {
	var (
		tasks []Task
		open  *Task
		pos   int
	)

	for _, line := range strings.Split(content, "\n") {
		if t, ok := g.parseHeader(filePath, line, pos); ok {
			if open != nil {
				tasks = append(tasks, *open)
			}
			open = &t
		} else if open != nil {
			if hasIndent(line) {
				if open.Description == nil {
					open.Description = &Description{Start: pos, End: pos}
				}
				open.Description.appendLine(line)
			} else {
				tasks = append(tasks, *open)
				open = nil
			}
		}

		pos += utf8.RuneCountInString(line) + 1
	}

	if open != nil {
		tasks = append(tasks, *open)
	}
	return tasks
}

// parseHeader parses a single task header line starting at offset pos.
func (g *Grammar) parseHeader(filePath, line string, pos int) (Task, bool) {
	m := g.header.FindStringSubmatch(line)
	if m == nil {
		return Task{}, false
	}

	state, _ := utf8.DecodeRuneInString(m[1])

	text, due := extractDate(m[2], DueEmoji)
	text, completed := extractDate(text, CompletedEmoji)
	text, priority := extractPriority(text)

	return Task{
		FilePath:    filePath,
		StartPos:    pos,
		EndPos:      pos + utf8.RuneCountInString(line),
		State:       types.State(state),
		Name:        strings.TrimSpace(text),
		Due:         due,
		CompletedAt: completed,
		Priority:    priority,
		Tags:        g.Tags(text),
	}, true
}
