package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const homeHTML = `<html><head><title>Aurora Skin</title><style>.x{}</style></head>
<body>
<header>Logo Shop Cart</header>
<nav>Menu</nav>
<h1>  Glow, honestly.  </h1>
<p>Clean skincare for <b>real</b> routines.</p>
<script>var tracking = true;</script>
<noscript>Enable JS</noscript>
<iframe src="x">frame</iframe>
<!-- hidden comment -->
<footer>Copyright 2025</footer>
</body></html>`

func newTestFetcher(opts Options) *HTTPFetcher {
	return NewHTTPFetcher(opts)
}

func TestFetchSiteText_StripsNoise(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(homeHTML))
	}))
	defer srv.Close()

	text := newTestFetcher(Options{}).FetchSiteText(context.Background(), srv.URL)
	assert.Equal(t, "Aurora Skin\nGlow, honestly.\nClean skincare for\nreal\nroutines.", text)
}

func TestFetchSiteText_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/error":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("<p>oops</p>"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("<p>late</p>"))
		case "/blocked":
			_, _ = w.Write([]byte("<html><body>Please complete the captcha</body></html>"))
		}
	}))
	defer srv.Close()

	f := newTestFetcher(Options{Timeout: 50 * time.Millisecond, DetectBlocks: true})
	ctx := context.Background()
	assert.Equal(t, "", f.FetchSiteText(ctx, srv.URL+"/missing"))
	assert.Equal(t, "", f.FetchSiteText(ctx, srv.URL+"/error"))
	assert.Equal(t, "", f.FetchSiteText(ctx, srv.URL+"/slow"))
	assert.Equal(t, "", f.FetchSiteText(ctx, srv.URL+"/blocked"))
	assert.Equal(t, "", f.FetchSiteText(ctx, ""))
	assert.Equal(t, "", f.FetchSiteText(ctx, "http://127.0.0.1:1/unreachable"))
	assert.Equal(t, "", f.FetchSiteText(ctx, "::not a url"))
}

func TestFetchSiteText_BlockDetectionOff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>Please complete the captcha</body></html>"))
	}))
	defer srv.Close()

	text := newTestFetcher(Options{}).FetchSiteText(context.Background(), srv.URL)
	assert.Equal(t, "Please complete the captcha", text)
}

func TestFetchSiteText_Truncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>" + strings.Repeat("é", 50) + "</p>"))
	}))
	defer srv.Close()

	text := newTestFetcher(Options{MaxChars: 10}).FetchSiteText(context.Background(), srv.URL)
	assert.Equal(t, strings.Repeat("é", 10), text)
}

func TestFetchSiteText_CollapsesBlankLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<pre>top\n\n\n\n\nbottom</pre>"))
	}))
	defer srv.Close()

	text := newTestFetcher(Options{}).FetchSiteText(context.Background(), srv.URL)
	assert.Equal(t, "top\n\nbottom", text)
}

func TestFetchSiteText_DecodesDeclaredCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1252")
		_, _ = w.Write([]byte("<p>caf\xe9 cr\xe8me</p>"))
	}))
	defer srv.Close()

	text := newTestFetcher(Options{}).FetchSiteText(context.Background(), srv.URL)
	assert.Equal(t, "café crème", text)
}

func TestFetchSiteText_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>moved here</p>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	assert.Equal(t, "moved here", newTestFetcher(Options{}).FetchSiteText(context.Background(), srv.URL+"/old"))
}

func TestFindAboutPage(t *testing.T) {
	long := "<p>" + strings.Repeat("We started in a kitchen. ", 20) + "</p>"
	var (
		mu     sync.Mutex
		probes []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		probes = append(probes, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/about":
			_, _ = w.Write([]byte("<p>Too short.</p>"))
		case "/pages/story":
			_, _ = w.Write([]byte(long))
		case "/story":
			t.Error("probing must stop at the first accepted page")
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	text := newTestFetcher(Options{}).FindAboutPage(context.Background(), srv.URL+"/")
	assert.Contains(t, text, "We started in a kitchen.")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/pages/about", "/about", "/pages/story"}, probes)
}

func TestFindAboutPage_CapsLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>" + strings.Repeat("x", 9000) + "</p>"))
	}))
	defer srv.Close()

	text := newTestFetcher(Options{}).FindAboutPage(context.Background(), srv.URL)
	assert.Len(t, text, DefaultAboutMaxChars)
}

func TestFindAboutPage_NothingFound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	assert.Equal(t, "", newTestFetcher(Options{}).FindAboutPage(context.Background(), srv.URL))
	assert.Equal(t, int32(len(DefaultAboutPaths)), hits.Load())
	assert.Equal(t, "", newTestFetcher(Options{}).FindAboutPage(context.Background(), ""))
}

func TestFindAboutPage_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newTestFetcher(Options{ProbesPerSecond: 1})
	assert.Equal(t, "", f.FindAboutPage(ctx, srv.URL))
}

func TestResearch(t *testing.T) {
	about := "<p>" + strings.Repeat("Founded by two chemists. ", 12) + "</p>"
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(homeHTML))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(about))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	pages := newTestFetcher(Options{}).Research(context.Background(), srv.URL)
	assert.Contains(t, pages.Home, "Glow, honestly.")
	assert.Contains(t, pages.About, "Founded by two chemists.")

	require.Equal(t, Pages{}, newTestFetcher(Options{}).Research(context.Background(), ""))
}

func TestDisabled(t *testing.T) {
	var f Fetcher = Disabled{}
	ctx := context.Background()
	assert.Equal(t, "", f.FetchSiteText(ctx, "https://example.com"))
	assert.Equal(t, "", f.FindAboutPage(ctx, "https://example.com"))
	assert.Equal(t, Pages{}, f.Research(ctx, "https://example.com"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "日本", truncate("日本語", 2))
}
