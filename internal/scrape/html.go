package scrape

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseDocument parses raw markup into a DOM. The HTML5 parser never rejects
// input, so a nil return only happens on a reader failure.
func parseDocument(raw string) *nethtml.Node {
	doc, err := nethtml.Parse(strings.NewReader(raw))
	if err != nil {
		return nil
	}
	return doc
}

// findFirst returns the first element below n (depth-first) with tag a.
func findFirst(n *nethtml.Node, a atom.Atom) *nethtml.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == nethtml.ElementNode && c.DataAtom == a {
			return c
		}
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every element below n with tag a, in document order.
func findAll(n *nethtml.Node, a atom.Atom) []*nethtml.Node {
	var out []*nethtml.Node
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == nethtml.ElementNode && c.DataAtom == a {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// textContent concatenates every text node below n, like the DOM property.
func textContent(n *nethtml.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// cellTexts returns the cleaned text of every <td> in row.
func cellTexts(row *nethtml.Node) []string {
	cells := findAll(row, atom.Td)
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = CleanText(textContent(c))
	}
	return out
}

var strictPolicy = bluemonday.StrictPolicy()

// VisibleText strips all markup (script and style bodies included) and
// returns the whitespace-collapsed text a browser would show.
func VisibleText(raw string) string {
	if raw == "" {
		return ""
	}
	return CleanText(html.UnescapeString(strictPolicy.Sanitize(raw)))
}
