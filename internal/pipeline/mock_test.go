package pipeline

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/narrative-cli/internal/llm"
	"github.com/sells-group/narrative-cli/internal/scrape"
)

// --- Invoker Mock ---

type mockInvoker struct {
	mock.Mock
}

func (m *mockInvoker) Invoke(ctx context.Context, settings llm.Settings, call llm.Call) llm.Result {
	args := m.Called(ctx, settings, call)
	return args.Get(0).(llm.Result)
}

func forStage(stage Stage) any {
	return mock.MatchedBy(func(c llm.Call) bool { return c.Stage == string(stage) })
}

func textResult(text string) llm.Result {
	return llm.Result{Outcome: llm.OutcomeText, Text: text, Model: llm.DefaultModel}
}

// --- Fetcher Stub ---

type stubFetcher struct {
	pages scrape.Pages
	mu    sync.Mutex
	urls  []string
}

func (f *stubFetcher) FetchSiteText(_ context.Context, url string) string {
	f.record(url)
	return f.pages.Home
}

func (f *stubFetcher) FindAboutPage(_ context.Context, baseURL string) string {
	f.record(baseURL)
	return f.pages.About
}

func (f *stubFetcher) Research(_ context.Context, url string) scrape.Pages {
	f.record(url)
	return f.pages
}

func (f *stubFetcher) record(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
}

// --- Transport Stub ---

// scriptedTransport answers each call with the next reply and records the
// requests it saw.
type scriptedTransport struct {
	replies  []string
	requests []llm.Request
}

func (t *scriptedTransport) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	t.requests = append(t.requests, req)
	if len(t.replies) == 0 {
		return &llm.Response{}, nil
	}
	text := t.replies[0]
	t.replies = t.replies[1:]
	return &llm.Response{Text: text, Model: req.Model, Usage: llm.Usage{InputTokens: 100, OutputTokens: 200}}, nil
}
