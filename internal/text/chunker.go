package text

import (
	"strings"
	"unicode/utf8"
)

// Sentence-terminal runes, ASCII and full-width.
var sentenceEnders = map[rune]bool{
	'。': true,
	'.': true,
	'！': true,
	'!': true,
	'？': true,
	'?': true,
}

// ChunkText splits cleaned content into ordered chunks of at most maxChars
// runes. Paragraphs are packed greedily; paragraphs longer than maxChars are
// re-split on sentence boundaries and, failing that, hard-split. When a chunk
// closes, the next one is seeded with the trailing overlapChars runes of the
// closed chunk so boundary context is not lost.
//
// The function is pure: identical (content, maxChars, overlapChars) always
// yields the identical sequence. Resyncing relies on that.
func ChunkText(content string, maxChars, overlapChars int) []string {
	content = CleanText(content)
	if content == "" || maxChars <= 0 {
		return nil
	}

	var pieces []string
	for _, p := range SplitParagraphs(content) {
		pieces = append(pieces, splitLongParagraph(p, maxChars)...)
	}

	var chunks []string
	var buf string
	for _, p := range pieces {
		if buf == "" {
			buf = p
			continue
		}
		if utf8.RuneCountInString(buf)+2+utf8.RuneCountInString(p) <= maxChars {
			buf = buf + "\n\n" + p
			continue
		}
		chunks = append(chunks, buf)

		tail := ""
		if overlapChars > 0 && utf8.RuneCountInString(buf) > overlapChars {
			tail = lastRunes(buf, overlapChars)
		}
		// Seeding must not breach the length bound: a piece close to
		// maxChars starts its chunk without the carried context.
		if tail != "" && overlapChars+2+utf8.RuneCountInString(p) <= maxChars {
			buf = strings.TrimSpace(tail + "\n\n" + p)
		} else {
			buf = p
		}
	}
	if buf != "" {
		chunks = append(chunks, buf)
	}

	// Final cleanup; anything that normalizes to empty is dropped and the
	// survivors keep their original order.
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c = CleanText(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// splitLongParagraph re-splits a paragraph exceeding maxChars on sentence
// boundaries, greedily regrouping sentences up to maxChars. A single sentence
// with no terminal punctuation that still exceeds maxChars gets hard-split
// into fixed-size slices.
func splitLongParagraph(para string, maxChars int) []string {
	if utf8.RuneCountInString(para) <= maxChars {
		return []string{para}
	}

	var sentences []string
	var sb strings.Builder
	for _, r := range para {
		sb.WriteRune(r)
		if sentenceEnders[r] {
			if s := strings.TrimSpace(sb.String()); s != "" {
				sentences = append(sentences, s)
			}
			sb.Reset()
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		sentences = append(sentences, s)
	}

	var grouped []string
	var buf string
	for _, s := range sentences {
		if buf == "" {
			buf = s
			continue
		}
		if utf8.RuneCountInString(buf)+utf8.RuneCountInString(s)+1 <= maxChars {
			buf += s
		} else {
			grouped = append(grouped, buf)
			buf = s
		}
	}
	if buf != "" {
		grouped = append(grouped, buf)
	}

	var out []string
	for _, s := range grouped {
		if utf8.RuneCountInString(s) <= maxChars {
			out = append(out, s)
			continue
		}
		runes := []rune(s)
		for i := 0; i < len(runes); i += maxChars {
			end := i + maxChars
			if end > len(runes) {
				end = len(runes)
			}
			out = append(out, string(runes[i:end]))
		}
	}
	return out
}

func lastRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
