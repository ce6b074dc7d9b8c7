// Package vault treats a directory of markdown notes as a task database.
//
// A task is one checkbox list item ("- [ ] text") plus the indented lines
// that follow it. Due date, completion date and priority are stored inline
// as emoji markers; tags are "#word" tokens inside the text. The package
// parses tasks with exact character offsets and writes edits back by
// replacing only the characters that belong to the edited task.
package vault

import "regexp"

// Grammar holds the compiled patterns used to read and render task lines.
// It is immutable after NewGrammar and safe for concurrent use.
type Grammar struct {
	header      *regexp.Regexp
	tag         *regexp.Regexp
	regularLink *regexp.Regexp
}

// NewGrammar compiles the task, tag and link patterns.
func NewGrammar() *Grammar {
	return &Grammar{
		header:      regexp.MustCompile(`^\s*- \[(.)\] (.*)$`),
		tag:         regexp.MustCompile(`( #((?:[^\x00-\x7F]|\w)(?:[^\x00-\x7F]|\w|-|_|/)+))`),
		regularLink: regexp.MustCompile(`\[([^\]]+)\]\(([^)]+.md)\)`),
	}
}

// Tags returns the tag names found in text, in order of appearance.
func (g *Grammar) Tags(text string) []string {
	var tags []string
	for _, m := range g.tag.FindAllStringSubmatch(text, -1) {
		tags = append(tags, m[2])
	}
	return tags
}

// StripTags removes every " #tag" token from text.
func (g *Grammar) StripTags(text string) string {
	return g.tag.ReplaceAllString(text, "")
}
