// Package scrape pulls readable text from a brand's own website. Every
// failure degrades to empty text; research continues on model knowledge.
package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Defaults for Options.
const (
	DefaultUserAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultTimeout       = 10 * time.Second
	DefaultMaxChars      = 8000
	DefaultAboutMaxChars = 4000
	DefaultAboutMinChars = 200
	DefaultMaxBodyBytes  = 2 << 20
)

// DefaultAboutPaths are probed in order relative to the site root.
var DefaultAboutPaths = []string{"/pages/about", "/about", "/pages/story", "/story", "/our-story", "/about-us"}

// Options configures an HTTPFetcher. Zero fields take defaults.
type Options struct {
	Timeout         time.Duration
	UserAgent       string
	MaxChars        int
	AboutMaxChars   int
	AboutMinChars   int
	AboutPaths      []string
	MaxBodyBytes    int64
	ProbesPerSecond float64
	DetectBlocks    bool
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.AboutMaxChars <= 0 {
		o.AboutMaxChars = DefaultAboutMaxChars
	}
	if o.AboutMinChars <= 0 {
		o.AboutMinChars = DefaultAboutMinChars
	}
	if len(o.AboutPaths) == 0 {
		o.AboutPaths = DefaultAboutPaths
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return o
}

// Pages is the text gathered for one brand.
type Pages struct {
	Home  string
	About string
}

// Fetcher retrieves site text. Implementations return "" on any failure.
type Fetcher interface {
	FetchSiteText(ctx context.Context, url string) string
	FindAboutPage(ctx context.Context, baseURL string) string
	Research(ctx context.Context, url string) Pages
}

// HTTPFetcher fetches pages over net/http.
type HTTPFetcher struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher. Redirects are followed.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	opts = opts.withDefaults()
	limit := rate.Inf
	if opts.ProbesPerSecond > 0 {
		limit = rate.Limit(opts.ProbesPerSecond)
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: opts.Timeout,
				}).DialContext,
				TLSHandshakeTimeout: opts.Timeout,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// FetchSiteText returns the visible text of url, capped at MaxChars.
func (f *HTTPFetcher) FetchSiteText(ctx context.Context, url string) string {
	return f.fetch(ctx, url, f.opts.MaxChars)
}

// FindAboutPage probes the about paths under baseURL and returns the first
// page with meaningful text.
func (f *HTTPFetcher) FindAboutPage(ctx context.Context, baseURL string) string {
	if baseURL == "" {
		return ""
	}
	base := strings.TrimRight(baseURL, "/")
	for _, path := range f.opts.AboutPaths {
		if err := f.limiter.Wait(ctx); err != nil {
			return ""
		}
		text := f.fetch(ctx, base+path, f.opts.AboutMaxChars)
		if len([]rune(text)) > f.opts.AboutMinChars {
			zap.L().Debug("scrape: about page found", zap.String("url", base+path))
			return text
		}
	}
	return ""
}

// Research fetches the homepage and about page concurrently.
func (f *HTTPFetcher) Research(ctx context.Context, url string) Pages {
	var pages Pages
	if url == "" {
		return pages
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pages.Home = f.FetchSiteText(gctx, url)
		return nil
	})
	g.Go(func() error {
		pages.About = f.FindAboutPage(gctx, url)
		return nil
	})
	_ = g.Wait()
	return pages
}

func (f *HTTPFetcher) fetch(ctx context.Context, url string, maxChars int) string {
	if url == "" {
		return ""
	}
	text, err := f.get(ctx, url)
	if err != nil {
		zap.L().Debug("scrape: fetch failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return truncate(text, maxChars)
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "scrape: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "scrape: read body")
	}

	if f.opts.DetectBlocks {
		if blocked, blockType := DetectBlock(resp, body); blocked {
			return "", eris.Errorf("scrape: blocked (%s)", blockType)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", eris.Errorf("scrape: status %d", resp.StatusCode)
	}

	text, err := ExtractText(decodeBody(body, resp.Header.Get("Content-Type")))
	if err != nil {
		return "", eris.Wrap(err, "scrape: parse html")
	}
	return text, nil
}

// Disabled is a Fetcher that performs no I/O.
type Disabled struct{}

func (Disabled) FetchSiteText(context.Context, string) string { return "" }
func (Disabled) FindAboutPage(context.Context, string) string { return "" }
func (Disabled) Research(context.Context, string) Pages       { return Pages{} }
