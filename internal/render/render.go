// Package render defines the rendering-engine contract the crawler drives
// (navigate, wait, scroll, query) and provides a go-rod headless Chrome
// implementation and a colly static-HTML implementation.
package render

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by WaitFor when the query never matched
var ErrNotFound = errors.New("render: element not found")

// QueryKind selects how a Query expression is evaluated
type QueryKind int

const (
	QueryCSS QueryKind = iota
	QueryXPath
)

// Query is a CSS selector or an XPath structural path
type Query struct {
	Kind QueryKind
	Expr string
}

// CSS builds a CSS selector query
func CSS(selector string) Query {
	return Query{Kind: QueryCSS, Expr: selector}
}

// XPath builds a structural path query
func XPath(path string) Query {
	return Query{Kind: QueryXPath, Expr: path}
}

func (q Query) String() string {
	if q.Kind == QueryXPath {
		return "xpath=" + q.Expr
	}
	return q.Expr
}

// Browser hands out isolated pages. One instance is shared by the whole run.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single rendering context. Every call is bounded by its timeout
// or the context; any error is a local, recoverable failure for the caller.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitLoad(ctx context.Context, timeout time.Duration) error
	ScrollToBottom(ctx context.Context) error
	WaitFor(ctx context.Context, q Query, timeout time.Duration) error
	Snapshot(ctx context.Context) (*Document, error)
	URL() string
	Close() error
}
