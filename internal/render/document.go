package render

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Document is an immutable snapshot of a rendered page. Lookups never fail:
// a missing element or an invalid expression is simply not found.
type Document struct {
	url  string
	root *html.Node
}

// Element is a node of a Document
type Element struct {
	node *html.Node
}

// Parse builds a Document from serialised HTML
func Parse(pageURL, markup string) (*Document, error) {
	root, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("render: parse %s: %w", pageURL, err)
	}
	return &Document{
		url:  pageURL,
		root: root,
	}, nil
}

// URL returns the address the snapshot was taken from
func (d *Document) URL() string {
	return d.url
}

// Find returns the first element matching q
func (d *Document) Find(q Query) (Element, bool) {
	return find(d.root, q)
}

// FindAll returns every element matching q in document order
func (d *Document) FindAll(q Query) []Element {
	return findAll(d.root, q)
}

// Text returns the innerText of the element
func (e Element) Text() string {
	return innerText(e.node)
}

// Attr returns the value of the named attribute
func (e Element) Attr(name string) (string, bool) {
	if e.node == nil {
		return "", false
	}
	for _, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// Find returns the first descendant matching q
func (e Element) Find(q Query) (Element, bool) {
	return find(e.node, q)
}

// FindAll returns every descendant matching q
func (e Element) FindAll(q Query) []Element {
	return findAll(e.node, q)
}

func find(root *html.Node, q Query) (Element, bool) {
	if root == nil || strings.TrimSpace(q.Expr) == "" {
		return Element{}, false
	}

	if q.Kind == QueryXPath {
		n, err := htmlquery.Query(root, q.Expr)
		if err != nil || n == nil {
			return Element{}, false
		}
		return Element{node: n}, true
	}

	sel := goquery.NewDocumentFromNode(root).Find(q.Expr)
	if sel.Length() == 0 {
		return Element{}, false
	}
	return Element{node: sel.Get(0)}, true
}

func findAll(root *html.Node, q Query) []Element {
	if root == nil || strings.TrimSpace(q.Expr) == "" {
		return nil
	}

	var nodes []*html.Node
	if q.Kind == QueryXPath {
		found, err := htmlquery.QueryAll(root, q.Expr)
		if err != nil {
			return nil
		}
		nodes = found
	} else {
		nodes = goquery.NewDocumentFromNode(root).Find(q.Expr).Nodes
	}

	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Element{node: n})
	}
	return out
}

var skippedTags = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tbody": true, "tfoot": true, "thead": true, "tr": true, "ul": true,
}

// innerText approximates the browser's innerText: block boundaries and <br>
// break lines, cells are separated, whitespace is collapsed, blank lines dropped.
func innerText(n *html.Node) string {
	if n == nil {
		return ""
	}

	var b strings.Builder
	writeText(&b, n)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if skippedTags[tag] {
			return
		}
		if tag == "br" {
			b.WriteByte('\n')
			return
		}
		block := blockTags[tag]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeText(b, c)
		}
		switch {
		case block:
			b.WriteByte('\n')
		case tag == "td" || tag == "th":
			b.WriteByte('\t')
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}
