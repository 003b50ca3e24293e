package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/narrative-cli/internal/llm"
	"github.com/sells-group/narrative-cli/internal/model"
	"github.com/sells-group/narrative-cli/internal/pipeline"
	"github.com/sells-group/narrative-cli/internal/session"
	"github.com/sells-group/narrative-cli/internal/store"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

const conceptsReply = `[
  {"title": "The Label Reader", "human_truth": "h", "summary": "s", "emotional_arc": "a", "hook": "k", "rationale": "r"},
  {"title": "Shelf Life", "human_truth": "h", "summary": "s", "emotional_arc": "a", "hook": "k", "rationale": "r"},
  {"title": "Morning Audit", "human_truth": "h", "summary": "s", "emotional_arc": "a", "hook": "k", "rationale": "r"}
]`

const storyboardReply = `{"style_suffix": "soft 35mm film", "keyframes": [], "image_prompts": ["p1"], "animation_prompts": [], "anti_generic_audit": {}, "creative_director_notes": "quiet"}`

type mockInvoker struct {
	mock.Mock
}

func (m *mockInvoker) Invoke(ctx context.Context, settings llm.Settings, call llm.Call) llm.Result {
	args := m.Called(ctx, settings, call)
	return args.Get(0).(llm.Result)
}

func forStage(stage pipeline.Stage) any {
	return mock.MatchedBy(func(c llm.Call) bool { return c.Stage == string(stage) })
}

func textResult(text string) llm.Result {
	return llm.Result{Outcome: llm.OutcomeText, Text: text, Model: llm.DefaultModel}
}

type testEnv struct {
	store   *store.SQLiteStore
	invoker *mockInvoker
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	inv := &mockInvoker{}
	p := pipeline.New(inv, nil, pipeline.WithClock(func() time.Time { return fixedNow }))
	srv := New(st, p, Options{
		KeyFor: func(p llm.Provider) string {
			if p == llm.ProviderAnthropic {
				return "sk-ant-config"
			}
			return ""
		},
		Now:   func() time.Time { return fixedNow },
		NewID: func() string { return "sess-1" },
	})
	return &testEnv{store: st, invoker: inv, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// seed stores a session that has reached the given step.
func (e *testEnv) seed(t *testing.T, step session.Step) *session.Session {
	t.Helper()
	s := session.New("sess-1", fixedNow)
	s.SetIdentity(model.BrandIdentity{Name: "Aurora Skin", Category: "Personal Care", URL: "https://aurora.example"})
	s.Step = step
	require.NoError(t, e.store.SaveSession(context.Background(), s))
	return s
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// --- Health & Catalog ---

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]json.RawMessage](t, rec)
	for _, key := range []string{"providers", "categories", "platforms", "visual_styles", "personality_axes", "product_presence", "text_overlay"} {
		assert.Contains(t, body, key)
	}
	var cats []string
	require.NoError(t, json.Unmarshal(body["categories"], &cats))
	assert.Equal(t, model.Categories, cats)
}

// --- Sessions ---

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/sessions", `{"identity": {"name": "Aurora Skin", "category": "Personal Care"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "sess-1", body["id"])
	assert.Equal(t, "IDENTITY", body["step"])
	assert.Equal(t, "BRAND IDENTITY", body["step_title"])
	assert.Equal(t, true, body["key_configured"])
	assert.NotContains(t, rec.Body.String(), "sk-ant-config")

	stored, err := env.store.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Aurora Skin", stored.Identity.Name)
	assert.Empty(t, stored.LLM.APIKey)
}

func TestCreateSession_EmptyBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode[map[string]any](t, rec)
	llmSettings := body["llm"].(map[string]any)
	assert.Equal(t, "anthropic", llmSettings["provider"])
	assert.Equal(t, llm.DefaultModel, llmSettings["model"])
}

func TestCreateSession_WithProvider(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/sessions", `{"llm": {"provider": "openai"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "openai", body["llm"].(map[string]any)["provider"])
	assert.Equal(t, false, body["key_configured"])
}

func TestCreateSession_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown category", body: `{"identity": {"name": "A", "category": "Spaceships"}}`},
		{name: "unknown provider", body: `{"llm": {"provider": "mistral"}}`},
		{name: "model of other provider", body: `{"llm": {"model": "gpt-4.1"}}`},
		{name: "malformed", body: `{"identity": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/v1/sessions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestGetSession_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSession_HeaderKey(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t, session.StepIdentity)
	s.LLM, _ = s.LLM.WithProvider(llm.ProviderGoogle)
	require.NoError(t, env.store.SaveSession(context.Background(), s))

	rec := env.do(t, http.MethodGet, "/v1/sessions/sess-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["key_configured"])

	rec = env.do(t, http.MethodGet, "/v1/sessions/sess-1", "", KeyHeader, "AIza-header")
	assert.Equal(t, true, decode[map[string]any](t, rec)["key_configured"])
}

func TestListSessions(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, session.StepReview)

	rec := env.do(t, http.MethodGet, "/v1/sessions?step=REVIEW&brand=aurora", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string][]store.SessionSummary](t, rec)
	require.Len(t, body["sessions"], 1)
	assert.Equal(t, "Aurora Skin", body["sessions"][0].BrandName)

	rec = env.do(t, http.MethodGet, "/v1/sessions?step=CONCEPTS", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessions": []}`, rec.Body.String())
}

func TestListSessions_BadQuery(t *testing.T) {
	env := newTestEnv(t)
	for _, q := range []string{"step=LAUNCH", "limit=ten", "offset=-1"} {
		rec := env.do(t, http.MethodGet, "/v1/sessions?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, session.StepIdentity)

	rec := env.do(t, http.MethodDelete, "/v1/sessions/sess-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/sessions/sess-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Wizard Edits ---

func TestSetIdentity(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, session.StepIdentity)

	rec := env.do(t, http.MethodPut, "/v1/sessions/sess-1/identity", `{"name": "Aurora", "category": "Home"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := env.store.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Aurora", stored.Identity.Name)
	assert.Equal(t, fixedNow, stored.UpdatedAt.UTC())

	rec = env.do(t, http.MethodPut, "/v1/sessions/sess-1/identity", `{"name": "Aurora", "category": "Spaceships"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/sessions/sess-1/identity", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetAnswers(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, session.StepAudience)

	rec := env.do(t, http.MethodPut, "/v1/sessions/sess-1/answers", `{"audience": {"lifestyle": "label readers"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := env.store.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "label readers", stored.Answers.Audience.Lifestyle)
	// Untouched fields keep their defaults.
	assert.Equal(t, model.DefaultAnswers().Personality, stored.Answers.Personality)
}

func TestSetAnswers_StyleChangeDropsGeneratedWork(t *testing.T) {
	env := newTestEnv(t)
	s := session.New("sess-1", fixedNow)
	s.SetIdentity(model.BrandIdentity{Name: "Aurora Skin", Category: "Personal Care"})
	s.Answers.Visual.Styles = make([]string, 0, 8)
	s.Answers.Visual.Styles = append(s.Answers.Visual.Styles, "cinematic", "documentary")
	s.Concepts = []model.NarrativeConcept{{Title: "Morning Audit"}}
	first := 0
	s.Selected = &first
	s.Storyboard = model.RawStoryboard("old")
	s.Step = session.StepConcepts
	require.NoError(t, env.store.SaveSession(context.Background(), s))

	rec := env.do(t, http.MethodPut, "/v1/sessions/sess-1/answers", `{"visual": {"styles": ["neon", "luxe"]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := env.store.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"neon", "luxe"}, stored.Answers.Visual.Styles)
	assert.Empty(t, stored.Concepts)
	assert.Nil(t, stored.Selected)
	assert.Nil(t, stored.Storyboard)
}

func TestSetLLM(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, session.StepIdentity)

	rec := env.do(t, http.MethodPut, "/v1/sessions/sess-1/llm", `{"provider": "openai", "model": "gpt-4.1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "gpt-4.1", body["llm"].(map[string]any)["model"])

	rec = env.do(t, http.MethodPut, "/v1/sessions/sess-1/llm", `{"model": "claude-sonnet-4-20250514"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvents(t *testing.T) {
	env := newTestEnv(t)
	s := session.New("sess-1", fixedNow)
	require.NoError(t, env.store.SaveSession(context.Background(), s))

	// Identity is not ready.
	rec := env.do(t, http.MethodPost, "/v1/sessions/sess-1/events", `{"type": "next"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/sessions/sess-1/events", `{"type": "review"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/sessions/sess-1/identity", `{"name": "Aurora Skin", "category": "Personal Care"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/sessions/sess-1/events", `{"type": "next"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "AUDIENCE", decode[map[string]any](t, rec)["step"])
}

// --- Stages ---

func TestResearch_MissingCredentialIsRecorded(t *testing.T) {
	env := newTestEnv(t)
	s := env.seed(t, session.StepIdentity)
	s.LLM, _ = s.LLM.WithProvider(llm.ProviderOpenAI)
	require.NoError(t, env.store.SaveSession(context.Background(), s))

	env.invoker.On("Invoke", mock.Anything, mock.MatchedBy(func(st llm.Settings) bool { return st.APIKey == "" }), forStage(pipeline.StageResearch)).
		Return(llm.Result{Outcome: llm.OutcomeMissingCredential}).Once()

	rec := env.do(t, http.MethodPost, "/v1/sessions/sess-1/research", "")
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "research", body.Stage)
	assert.Equal(t, "missing-credential", body.Kind)

	stored, err := env.store.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, stored.ScrapeAttempted)
	assert.Nil(t, stored.Scraped)
	env.invoker.AssertExpectations(t)
}

func TestResearch_HeaderKeyReachesInvoker(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, session.StepIdentity)

	env.invoker.On("Invoke", mock.Anything, mock.MatchedBy(func(st llm.Settings) bool { return st.APIKey == "sk-ant-header" }), forStage(pipeline.StageResearch)).
		Return(textResult(`{"tagline": "Read the label", "confidence": "high"}`)).Once()

	rec := env.do(t, http.MethodPost, "/v1/sessions/sess-1/research", "", KeyHeader, "sk-ant-header")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Read the label")

	stored, err := env.store.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Scraped)
	assert.Empty(t, stored.LLM.APIKey)
	env.invoker.AssertExpectations(t)
}

func TestAutofill_WrongStep(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, session.StepVisual)

	rec := env.do(t, http.MethodPost, "/v1/sessions/sess-1/autofill", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	env.invoker.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, session.StepReview)

	rec := env.do(t, http.MethodGet, "/v1/sessions/sess-1/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]json.RawMessage](t, rec)

	var bp model.BrandProfile
	require.NoError(t, json.Unmarshal(body["profile"], &bp))
	assert.Equal(t, "Aurora Skin", bp.BrandName)
	assert.Equal(t, model.MaturityDiscovery, bp.MaturityMode)
	assert.Contains(t, string(body["framing"]), "DISCOVERY")
}

func TestGenerationFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, session.StepReview)

	env.invoker.On("Invoke", mock.Anything, mock.Anything, forStage(pipeline.StageConcepts)).Return(textResult(conceptsReply)).Once()
	env.invoker.On("Invoke", mock.Anything, mock.Anything, forStage(pipeline.StageStoryboard)).Return(textResult(storyboardReply)).Once()

	rec := env.do(t, http.MethodPost, "/v1/sessions/sess-1/concepts", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	concepts := decode[struct {
		Concepts []model.NarrativeConcept `json:"concepts"`
		Step     string                   `json:"step"`
	}](t, rec)
	require.Len(t, concepts.Concepts, 3)
	assert.Equal(t, "CONCEPTS", concepts.Step)

	// Export needs a selection first.
	rec = env.do(t, http.MethodGet, "/v1/sessions/sess-1/export", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/sessions/sess-1/select", `{"index": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPost, "/v1/sessions/sess-1/select", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/sessions/sess-1/select", `{"index": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Morning Audit")

	rec = env.do(t, http.MethodGet, "/v1/sessions/sess-1/export", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "storyboard not generated yet")

	rec = env.do(t, http.MethodPost, "/v1/sessions/sess-1/storyboard", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decode[map[string]any](t, rec)["degraded"])

	// Cached storyboard does not call the model again.
	rec = env.do(t, http.MethodPost, "/v1/sessions/sess-1/storyboard", `{"regenerate": false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/sessions/sess-1/export", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="aurora_skin_narrative_pipeline.json"`, rec.Header().Get("Content-Disposition"))
	exp := decode[model.PipelineExport](t, rec)
	assert.Equal(t, "Morning Audit", exp.SelectedConcept.Title)
	assert.Equal(t, model.PipelineVersion, exp.PipelineVersion)

	rec = env.do(t, http.MethodGet, "/v1/sessions/sess-1/export?format=yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "aurora_skin_narrative_pipeline.yaml")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "brand_profile:\n"))

	rec = env.do(t, http.MethodGet, "/v1/sessions/sess-1/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/sessions/sess-1/exports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	exports := decode[map[string][]store.ExportRecord](t, rec)
	assert.Len(t, exports["exports"], 2)

	env.invoker.AssertExpectations(t)
}

func TestConcepts_Failures(t *testing.T) {
	tests := []struct {
		name     string
		result   llm.Result
		wantCode int
		wantKind string
		wantRaw  string
	}{
		{
			name:     "parse failure keeps raw reply",
			result:   textResult("I cannot help with that."),
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "parse-failure",
			wantRaw:  "I cannot help with that.",
		},
		{
			name:     "call error",
			result:   llm.Result{Outcome: llm.OutcomeCallError, Err: eris.New("429 rate limited"), Transient: true},
			wantCode: http.StatusBadGateway,
			wantKind: "call-error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.seed(t, session.StepReview)
			env.invoker.On("Invoke", mock.Anything, mock.Anything, forStage(pipeline.StageConcepts)).Return(tt.result).Once()

			rec := env.do(t, http.MethodPost, "/v1/sessions/sess-1/concepts", `{"regenerate": true}`)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			body := decode[errorBody](t, rec)
			assert.Equal(t, "concepts", body.Stage)
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.Equal(t, tt.wantRaw, body.Raw)

			stored, err := env.store.GetSession(context.Background(), "sess-1")
			require.NoError(t, err)
			assert.Equal(t, session.StepReview, stored.Step)
			assert.Empty(t, stored.Concepts)
		})
	}
}

// --- Middleware ---

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", KeyHeader)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), strings.ToLower(KeyHeader))
}

func TestBodyTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, session.StepIdentity)

	big := `{"name": "` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPut, "/v1/sessions/sess-1/identity", bytes.NewBufferString(big))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Errors ---

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{eris.Wrap(store.ErrNotFound, "session x"), http.StatusNotFound},
		{session.ErrInvalidTransition, http.StatusConflict},
		{session.ErrNotReady, http.StatusConflict},
		{session.ErrNoSelection, http.StatusConflict},
		{pipeline.ErrNoStoryboard, http.StatusConflict},
		{badRequest("nope"), http.StatusBadRequest},
		{eris.Wrap(model.ErrInvalid, "category"), http.StatusBadRequest},
		{llm.ErrUnknownProvider, http.StatusBadRequest},
		{&pipeline.StageError{Stage: pipeline.StageResearch, Kind: pipeline.KindMissingCredential}, http.StatusPreconditionFailed},
		{&pipeline.StageError{Stage: pipeline.StageConcepts, Kind: pipeline.KindCallError}, http.StatusBadGateway},
		{&pipeline.StageError{Stage: pipeline.StageConcepts, Kind: pipeline.KindParseFailure}, http.StatusUnprocessableEntity},
		{eris.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, body := statusFor(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
		if got == http.StatusInternalServerError {
			assert.Equal(t, "internal error", body.Error)
		}
	}
}

// --- Locks ---

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("sess-1")
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, k.size())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
	assert.Equal(t, 0, k.size())
}
