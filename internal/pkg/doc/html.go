package doc

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var multiSpace = regexp.MustCompile(`\s+`)

// ParseHTML parses raw markup into a tree the extractors query by xpath.
func ParseHTML(raw []byte) (*html.Node, error) {
	node, err := htmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return node, nil
}

// NodeText collects all text under a node, sanitized: non-breaking spaces
// normalized, runs of whitespace collapsed, ends trimmed.
func NodeText(node *html.Node) string {
	out := collectText(node)
	out = strings.ReplaceAll(out, " ", " ")
	out = multiSpace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

func collectText(node *html.Node) string {
	if node == nil {
		return ""
	}

	out := ""
	if node.Type == html.TextNode {
		out += " " + node.Data
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		out += " " + collectText(child)
	}
	return out
}

// PageTexts flattens an HTML tree into per-section text blocks, one per
// top-level content element, so text-oriented extractors can treat HTML and
// PDF sources alike.
func PageTexts(node *html.Node) []string {
	sections, err := htmlquery.QueryAll(node, "//body//section | //body//table | //body//article")
	if err != nil || len(sections) == 0 {
		return []string{NodeText(node)}
	}

	texts := make([]string, 0, len(sections))
	for _, s := range sections {
		if t := NodeText(s); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}
