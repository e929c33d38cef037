package webcrawl

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// chromeSelector matches the page furniture that never belongs in the corpus.
const chromeSelector = "script, style, noscript, header, footer, nav, aside, form"

var mainSelectors = []string{"main", "#main", "article", ".main", ".mainContents"}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// extract returns (title, text) for one parsed page. The title prefers the
// first h1 over <title>; the text comes from the first recognized main-content
// container, falling back to <body>.
func extract(doc *goquery.Document) (string, string) {
	doc.Find(chromeSelector).Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		title = h1
	}

	target := doc.Selection
	if body := doc.Find("body"); body.Length() > 0 {
		target = body
	}
	for _, sel := range mainSelectors {
		if main := doc.Find(sel); main.Length() > 0 {
			target = main.First()
			break
		}
	}

	var sb strings.Builder
	for _, n := range target.Nodes {
		collectText(n, &sb)
	}
	text := blankRuns.ReplaceAllString(strings.TrimSpace(sb.String()), "\n\n")
	return title, text
}

// collectText walks the node tree and joins trimmed text nodes with newlines,
// so block boundaries survive as line breaks.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			sb.WriteString(s)
			sb.WriteByte('\n')
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
