package vault

import (
	"fmt"
	"strings"
	"time"

	"github.com/Jayphen/tasklens/internal/types"
)

const (
	DueEmoji       = '📅'
	CompletedEmoji = '✅'
)

var priorityGlyphs = []struct {
	glyph    rune
	priority types.Priority
}{
	{'⏬', types.PriorityLowest},
	{'🔽', types.PriorityLow},
	{'🔼', types.PriorityMedium},
	{'⏫', types.PriorityHigh},
	{'🔺', types.PriorityHighest},
}

// PriorityGlyph returns the marker for p, or "" for PriorityNormal.
func PriorityGlyph(p types.Priority) string {
	for _, g := range priorityGlyphs {
		if g.priority == p {
			return string(g.glyph)
		}
	}
	return ""
}

// extractDate removes the last " <emoji> YYYY-MM-DD" marker from text and
// returns its date. Text without a readable date is returned unchanged.
func extractDate(text string, emoji rune) (string, *time.Time) {
	marker := " " + string(emoji) + " "
	idx := strings.LastIndex(text, marker)
	if idx < 0 {
		return text, nil
	}

	from := idx + len(marker)
	to := from + len(types.DateLayout)
	if to > len(text) {
		return text, nil
	}

	d, err := time.Parse(types.DateLayout, text[from:to])
	if err != nil {
		return text, nil
	}
	d = types.DateOf(d)
	return text[:idx] + text[to:], &d
}

// extractPriority finds the priority markers that stand alone between
// spaces (or a space and the end of the text). The latest one wins and is
// removed together with the space before it.
func extractPriority(text string) (string, types.Priority) {
	runes := []rune(text)

	best, priority := -1, types.PriorityNormal
	for _, g := range priorityGlyphs {
		if idx := lastBoundedRune(runes, g.glyph); idx > best {
			best, priority = idx, g.priority
		}
	}

	if best < 0 {
		return text, types.PriorityNormal
	}
	return string(runes[:best-1]) + string(runes[best+1:]), priority
}

// lastBoundedRune returns the index of the last r preceded by a space and
// followed by a space or the end of runes, or -1.
func lastBoundedRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i > 0; i-- {
		if runes[i] != r || runes[i-1] != ' ' {
			continue
		}
		if i+1 < len(runes) && runes[i+1] != ' ' {
			continue
		}
		return i
	}
	return -1
}

// Render produces the canonical text of a task. Description lines are
// indented by indent plus four spaces.
func Render(t *Task, indent string) string {
	parts := []string{fmt.Sprintf("- [%c]", t.State.Char()), t.Name}
	if t.Due != nil {
		parts = append(parts, string(DueEmoji)+" "+t.Due.Format(types.DateLayout))
	}
	if glyph := PriorityGlyph(t.Priority); glyph != "" {
		parts = append(parts, glyph)
	}
	if t.CompletedAt != nil {
		parts = append(parts, string(CompletedEmoji)+" "+t.CompletedAt.Format(types.DateLayout))
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, " "))
	if t.Description != nil {
		for _, line := range strings.Split(t.Description.Text, "\n") {
			b.WriteString("\n")
			b.WriteString(indent)
			b.WriteString("    ")
			b.WriteString(line)
		}
	}
	return b.String()
}
