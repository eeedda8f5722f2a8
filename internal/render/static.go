package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog/log"
)

// StaticBrowser fetches pages over plain HTTP with colly. There is no
// script execution: scrolling and load waits are no-ops and WaitFor only
// inspects the fetched markup. Suited to server-rendered sites and tests.
type StaticBrowser struct {
	userAgent string
}

// NewStaticBrowser returns an HTTP-only browser
func NewStaticBrowser(userAgent string) *StaticBrowser {
	return &StaticBrowser{userAgent: userAgent}
}

// NewPage returns a fresh page; pages share nothing
func (s *StaticBrowser) NewPage(ctx context.Context) (Page, error) {
	return &staticPage{userAgent: s.userAgent}, nil
}

// Close is a no-op
func (s *StaticBrowser) Close() error {
	return nil
}

type staticPage struct {
	userAgent string
	url       string
	body      []byte
	doc       *Document
}

func (p *staticPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	options := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	}
	if p.userAgent != "" {
		options = append(options, colly.UserAgent(p.userAgent))
	}

	c := colly.NewCollector(options...)
	c.SetRequestTimeout(timeout)

	var body []byte
	finalURL := url
	var respErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")

		log.Debug().
			Str("url", r.URL.String()).
			Msg("Static browser sending request")
	})

	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL.String()
	})

	c.OnError(func(r *colly.Response, err error) {
		respErr = err
	})

	if err := c.Visit(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if respErr != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, respErr)
	}
	if body == nil {
		return fmt.Errorf("browser: navigate %s: empty response", url)
	}

	p.url = finalURL
	p.body = body
	p.doc = nil
	return nil
}

func (p *staticPage) WaitLoad(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (p *staticPage) ScrollToBottom(ctx context.Context) error {
	return nil
}

func (p *staticPage) WaitFor(ctx context.Context, q Query, timeout time.Duration) error {
	doc, err := p.Snapshot(ctx)
	if err != nil {
		return err
	}
	if _, ok := doc.Find(q); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, q)
	}
	return nil
}

func (p *staticPage) Snapshot(ctx context.Context) (*Document, error) {
	if p.body == nil {
		return nil, errors.New("browser: nothing loaded")
	}
	if p.doc == nil {
		doc, err := Parse(p.url, string(p.body))
		if err != nil {
			return nil, err
		}
		p.doc = doc
	}
	return p.doc, nil
}

func (p *staticPage) URL() string {
	return p.url
}

func (p *staticPage) Close() error {
	p.body = nil
	p.doc = nil
	return nil
}
