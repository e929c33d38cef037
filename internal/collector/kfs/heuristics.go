package kfs

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Words typical of a ruling body. A page containing any of them is kept even
// when it is short.
var defaultCaseKeywords = []string{
	"裁決年月日",
	"裁決要旨",
	"主文",
	"理由",
	"請求の趣旨",
	"請求人",
	"処分庁",
	"争点",
	"判断",
}

var excludeTitles = map[string]bool{"ホーム": true}

var excludeURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/service/index\.html$`),
	regexp.MustCompile(`/service/JP/index\.html$`),
}

func isExcludedURL(u string) bool {
	for _, p := range excludeURLPatterns {
		if p.MatchString(u) {
			return true
		}
	}
	return false
}

// looksLikeIndexPage flags home, table-of-contents and volume-index pages:
// excluded titles and URLs, or pages that are mostly a short list of links.
func looksLikeIndexPage(url, title, text string) bool {
	if excludeTitles[strings.TrimSpace(title)] {
		return true
	}
	if isExcludedURL(url) {
		return true
	}

	lines := 0
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) != "" {
			lines++
		}
	}
	return lines <= 8 && utf8.RuneCountInString(text) < 800
}

// passesCaseHeuristics decides whether a fetched page is an actual ruling.
// Keyword hits override the length requirement.
func passesCaseHeuristics(url, title, text string, minChars int, requireAny []string) bool {
	if text == "" {
		return false
	}
	if looksLikeIndexPage(url, title, text) {
		return false
	}
	for _, k := range requireAny {
		if strings.Contains(text, k) {
			return true
		}
	}
	return utf8.RuneCountInString(text) >= minChars
}
