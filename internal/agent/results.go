package agent

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	resultBlockSelector = `div[data-sokoban-container], div.g, div[jscontroller][data-hveid]`
)

var (
	titleSelectors   = []string{"h3", `[role="heading"]`}
	snippetSelectors = []string{"div.VwiC3b", "div[data-snf]", "div[data-sncf]", `div[style*="webkit-line-clamp"]`}
	linkSelectors    = []string{"a[jsname]", "a[ping]", "a"}
)

type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// ParseResults pulls organic results out of a search results page. Blocks
// without both a title and a snippet are skipped, duplicates are dropped and
// at most limit results are returned (limit <= 0 means no cap).
func ParseResults(html, baseURL string, limit int) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, _ := url.Parse(baseURL)
	seen := make(map[string]bool)
	var results []SearchResult

	doc.Find(resultBlockSelector).EachWithBreak(func(i int, block *goquery.Selection) bool {
		title := firstText(block, titleSelectors)
		snippet := firstText(block, snippetSelectors)
		if title == "" || snippet == "" {
			return true
		}

		link := resolve(base, firstAttr(block, linkSelectors, "href"))
		key := title + "\x00" + link
		if seen[key] {
			return true
		}
		seen[key] = true

		results = append(results, SearchResult{Title: title, Snippet: snippet, Link: link})
		return limit <= 0 || len(results) < limit
	})

	return results, nil
}

// FormatResults renders results as Title/Snippet/URL paragraphs.
func FormatResults(results []SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("Title: %s\nSnippet: %s\nURL: %s", r.Title, r.Snippet, r.Link))
	}
	return strings.Join(parts, "\n\n")
}

func firstText(block *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(block.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(block *goquery.Selection, selectors []string, attr string) string {
	for _, sel := range selectors {
		if v, ok := block.Find(sel).First().Attr(attr); ok && v != "" {
			return v
		}
	}
	return ""
}

func resolve(base *url.URL, href string) string {
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
