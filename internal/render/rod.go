package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"
)

// RodConfig configures the headless Chrome browser
type RodConfig struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local Chrome.
	RemoteURL string
	Headless  bool
	// Stealth opens pages through go-rod/stealth to mask automation.
	Stealth bool
	// ResourceBlocking lists resource types to drop (images, fonts, media, stylesheets).
	ResourceBlocking []string
	UserAgent        string
}

// RodBrowser drives a single Chrome instance through go-rod
type RodBrowser struct {
	cfg     RodConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewRodBrowser launches Chrome (or connects to a remote instance)
func NewRodBrowser(cfg RodConfig) (*RodBrowser, error) {
	var wsURL string
	var lnch *launcher.Launcher

	if cfg.RemoteURL != "" {
		wsURL = cfg.RemoteURL
		log.Info().Str("url", wsURL).Msg("Connecting to remote browser")
	} else {
		l := launcher.New().Headless(cfg.Headless)
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		lnch = l
		log.Info().Str("url", wsURL).Bool("headless", cfg.Headless).Msg("Launched local browser")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn().Err(err).Msg("Failed to ignore certificate errors")
	}

	return &RodBrowser{cfg: cfg, browser: b, lnch: lnch}, nil
}

// NewPage opens an isolated tab
func (r *RodBrowser) NewPage(ctx context.Context) (Page, error) {
	r.mu.Lock()
	b := r.browser
	r.mu.Unlock()
	if b == nil {
		return nil, fmt.Errorf("browser: closed")
	}

	var page *rod.Page
	var err error
	if r.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if r.cfg.UserAgent != "" && !r.cfg.Stealth {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.cfg.UserAgent}); err != nil {
			log.Warn().Err(err).Msg("Failed to set user agent")
		}
	}

	rp := &rodPage{page: page}
	if len(r.cfg.ResourceBlocking) > 0 {
		rp.router = applyResourceBlocking(page, r.cfg.ResourceBlocking)
	}

	return rp, nil
}

// Close shuts the browser down
func (r *RodBrowser) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
	return err
}

type rodPage struct {
	page   *rod.Page
	router *rod.HijackRouter
	url    string
}

func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	p.url = url
	if info, err := p.page.Context(navCtx).Info(); err == nil && info.URL != "" {
		p.url = info.URL
	}
	return nil
}

func (p *rodPage) WaitLoad(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.page.Context(waitCtx).WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", p.url, err)
	}
	return nil
}

func (p *rodPage) ScrollToBottom(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	if err != nil {
		return fmt.Errorf("browser: scroll %s: %w", p.url, err)
	}
	return nil
}

func (p *rodPage) WaitFor(ctx context.Context, q Query, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page := p.page.Context(waitCtx)
	var err error
	if q.Kind == QueryXPath {
		_, err = page.ElementX(q.Expr)
	} else {
		_, err = page.Element(q.Expr)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrNotFound, q)
		}
		return fmt.Errorf("browser: wait for %s: %w", q, err)
	}
	return nil
}

func (p *rodPage) Snapshot(ctx context.Context) (*Document, error) {
	markup, err := p.page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("browser: read DOM %s: %w", p.url, err)
	}
	return Parse(p.url, markup)
}

func (p *rodPage) URL() string {
	return p.url
}

func (p *rodPage) Close() error {
	if p.router != nil {
		if err := p.router.Stop(); err != nil {
			log.Debug().Err(err).Msg("Failed to stop request router")
		}
	}
	return p.page.Close()
}

// applyResourceBlocking intercepts requests and fails the blocked resource types
func applyResourceBlocking(page *rod.Page, types []string) *rod.HijackRouter {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(strings.TrimSpace(t))] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if shouldBlock(blockSet, string(h.Request.Type())) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	go router.Run()

	return router
}

func shouldBlock(blockSet map[string]bool, resType string) bool {
	switch lower := strings.ToLower(resType); lower {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	default:
		return blockSet[lower]
	}
}
