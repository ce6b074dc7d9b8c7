package vault

import "strings"

const indentChars = " \t"

func isIndent(r rune) bool {
	return r == ' ' || r == '\t'
}

// hasIndent reports whether line continues the previous task.
func hasIndent(line string) bool {
	return line != "" && isIndent(rune(line[0]))
}

func trimIndent(line string) string {
	return strings.TrimLeft(line, indentChars)
}

// leadingIndent returns the run of indent characters starting at pos.
func leadingIndent(content []rune, pos int) string {
	end := pos
	for end < len(content) && isIndent(content[end]) {
		end++
	}
	return string(content[pos:end])
}
