package vault

import (
	"net/url"
	"strings"
)

// Link is a link span found in text. Start and End are byte offsets; for
// wiki links End is the index of the final ']', for regular links it is
// one past the closing ')'.
type Link struct {
	Start   int
	End     int
	Target  string
	Display string
}

// FindWikiLinks scans text for [[target]], [[target|label]] and
// [[target#heading|label]]. A new "[[" restarts the current link, so the
// innermost pair wins; a second '|' or '#' drops the link.
func FindWikiLinks(text string) []Link {
	type scan struct {
		start, heading, label int
	}

	var (
		links []Link
		cur   *scan
		prev  = '_'
	)

	for pos, c := range text {
		switch {
		case c == '[' && prev == '[':
			cur = &scan{start: pos - 1, heading: -1, label: -1}
		case c == ']' && prev == ']' && cur != nil:
			stop := pos - 1
			if cur.heading >= 0 {
				stop = cur.heading
			} else if cur.label >= 0 {
				stop = cur.label
			}
			l := Link{Start: cur.start, End: pos, Target: text[cur.start+2 : stop]}
			if cur.label >= 0 {
				l.Display = text[cur.label+1 : pos-1]
			}
			links = append(links, l)
			cur = nil
		case c == '|' && cur != nil:
			if cur.label >= 0 {
				cur = nil
			} else {
				cur.label = pos
			}
		case c == '#' && cur != nil:
			if cur.heading >= 0 {
				cur = nil
			} else {
				cur.heading = pos
			}
		}
		prev = c
	}

	return links
}

// FindRegularLinks returns [label](file.md) spans.
func (g *Grammar) FindRegularLinks(text string) []Link {
	var links []Link
	for _, m := range g.regularLink.FindAllStringSubmatchIndex(text, -1) {
		links = append(links, Link{
			Start:   m[0],
			End:     m[1],
			Display: text[m[2]:m[3]],
			Target:  text[m[4]:m[5]],
		})
	}
	return links
}

// Resolver rewrites note references into deep links for display.
type Resolver struct {
	grammar *Grammar
	root    string
	files   *fileIndex
}

// NewResolver indexes files (absolute paths under root) for link lookup.
func NewResolver(g *Grammar, root string, files []string) *Resolver {
	return &Resolver{grammar: g, root: root, files: newFileIndex(root, files)}
}

// Display strips tags and resolves both link flavors.
func (r *Resolver) Display(text string) string {
	text = r.grammar.StripTags(text)
	if !hasLinkSyntax(text) {
		return text
	}
	text = r.ResolveRegularLinks(text)
	return r.ResolveWikiLinks(text)
}

// ResolveWikiLinks replaces wiki links whose note exists with markdown
// links to the note. Unknown targets are left untouched.
func (r *Resolver) ResolveWikiLinks(text string) string {
	links := FindWikiLinks(text)
	for i := len(links) - 1; i >= 0; i-- {
		l := links[i]
		name, err := url.PathUnescape(l.Target + ".md")
		if err != nil {
			continue
		}
		file, ok := r.files.find(name)
		if !ok {
			continue
		}
		display := l.Display
		if display == "" {
			display = l.Target
		}
		text = text[:l.Start] + "[" + display + "](" + DeepLink(r.root, file) + ")" + text[l.End+1:]
	}
	return text
}

// ResolveRegularLinks points [label](note.md) links at the note's deep link.
func (r *Resolver) ResolveRegularLinks(text string) string {
	links := r.grammar.FindRegularLinks(text)
	for i := len(links) - 1; i >= 0; i-- {
		l := links[i]
		name, err := url.PathUnescape(l.Target)
		if err != nil {
			continue
		}
		file, ok := r.files.find(name)
		if !ok {
			continue
		}
		text = text[:l.Start] + "[" + l.Display + "](" + DeepLink(r.root, file) + ")" + text[l.End:]
	}
	return text
}

// hasLinkSyntax is a cheap pre-check before resolving.
func hasLinkSyntax(text string) bool {
	return strings.Contains(text, "[[") || strings.Contains(text, "](")
}
