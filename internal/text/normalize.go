package text

import (
	"regexp"
	"strings"
)

var (
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
	horizontalRe  = regexp.MustCompile(`[ \t]{2,}`)
	paragraphSpRe = regexp.MustCompile(`\n{2,}`)
)

// CleanText normalizes whitespace while keeping paragraph breaks intact.
// Line endings become \n, every line is trimmed, runs of blank lines collapse
// to one blank line and repeated horizontal whitespace collapses to a single
// space.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")

	s = blankRunRe.ReplaceAllString(s, "\n\n")
	s = horizontalRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SplitParagraphs splits cleaned text on blank-line boundaries, dropping
// empty paragraphs.
func SplitParagraphs(s string) []string {
	var out []string
	for _, p := range paragraphSpRe.Split(s, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
