// Package discovery finds the scripts a page loads, without running it.
package discovery

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Page is what static discovery found in one HTML document.
type Page struct {
	// Scripts are absolute script URLs in document order, deduplicated.
	Scripts []string
	// Inline holds the bodies of inline JavaScript blocks. Bundlers often
	// inline the runtime chunk, so the loader may live here.
	Inline []string
}

// Parse extracts external and inline scripts from an HTML document.
// Relative URLs resolve against base, or against <base href> when present.
func Parse(base *url.URL, r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if href := findBaseHref(doc); href != "" && base != nil {
		if ref, err := url.Parse(href); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	page := &Page{}
	seen := make(map[string]bool)
	add := func(raw string) {
		resolved, ok := resolve(base, raw)
		if !ok || seen[resolved] {
			return
		}
		seen[resolved] = true
		page.Scripts = append(page.Scripts, resolved)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script":
				if isJavaScriptType(getAttr(n, "type")) {
					if src := getAttr(n, "src"); src != "" {
						add(src)
					} else if body := textContent(n); strings.TrimSpace(body) != "" {
						page.Inline = append(page.Inline, body)
					}
				}
			case "link":
				if isScriptPreload(n) {
					add(getAttr(n, "href"))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return page, nil
}

// FromHTML returns the absolute URLs of scripts referenced by <script src> and
// by <link rel="preload" as="script"> or <link rel="modulepreload">.
func FromHTML(base *url.URL, r io.Reader) ([]string, error) {
	page, err := Parse(base, r)
	if err != nil {
		return nil, err
	}
	return page.Scripts, nil
}

// Score counts how many keywords occur in the lowercased URL.
func Score(rawURL string, keywords []string) int {
	lower := strings.ToLower(rawURL)
	score := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			score++
		}
	}
	return score
}

// Prioritize returns urls ordered by keyword score, highest first. Ties keep
// their original order.
func Prioritize(urls []string, keywords []string) []string {
	out := append([]string(nil), urls...)
	scores := make(map[string]int, len(out))
	for _, u := range out {
		scores[u] = Score(u, keywords)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return scores[out[i]] > scores[out[j]]
	})
	return out
}

// Limit truncates urls to max entries; max <= 0 means no limit.
func Limit(urls []string, max int) []string {
	if max <= 0 || len(urls) <= max {
		return urls
	}
	return urls[:max]
}

func resolve(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	ref.Fragment = ""
	return ref.String(), true
}

func findBaseHref(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "base" {
		return getAttr(n, "href")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := findBaseHref(c); href != "" {
			return href
		}
	}
	return ""
}

// isJavaScriptType accepts the script types browsers execute as JavaScript.
func isJavaScriptType(t string) bool {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "module", "text/javascript", "application/javascript", "text/ecmascript", "application/ecmascript":
		return true
	}
	return false
}

func isScriptPreload(n *html.Node) bool {
	for _, rel := range strings.Fields(strings.ToLower(getAttr(n, "rel"))) {
		switch rel {
		case "modulepreload":
			return true
		case "preload", "prefetch":
			if strings.EqualFold(getAttr(n, "as"), "script") {
				return true
			}
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
