// Package server exposes the brand wizard as a JSON HTTP API. Every request
// loads the session from the store, applies one action under a per-session
// lock and saves the result.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/narrative-cli/internal/llm"
	"github.com/sells-group/narrative-cli/internal/pipeline"
	"github.com/sells-group/narrative-cli/internal/session"
	"github.com/sells-group/narrative-cli/internal/store"
)

// KeyHeader carries a per-request provider credential.
const KeyHeader = "X-LLM-Key"

const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	// Defaults are the provider settings new sessions start with.
	Defaults llm.Settings
	// KeyFor returns the configured credential for a provider. The
	// X-LLM-Key header takes precedence.
	KeyFor         func(llm.Provider) string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Now            func() time.Time
	NewID          func() string
}

// Server holds the HTTP handlers.
type Server struct {
	store    store.Store
	pipeline *pipeline.Pipeline
	opts     Options
	locks    *keyedMutex
}

// New creates a Server.
func New(st store.Store, p *pipeline.Pipeline, opts Options) *Server {
	if opts.Defaults.Provider == "" {
		opts.Defaults = llm.DefaultSettings()
	}
	opts.Defaults.APIKey = ""
	if opts.KeyFor == nil {
		opts.KeyFor = func(llm.Provider) string { return "" }
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	return &Server{store: st, pipeline: p, opts: opts, locks: newKeyedMutex()}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", KeyHeader},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	if s.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Put("/identity", s.handleSetIdentity)
				r.Put("/answers", s.handleSetAnswers)
				r.Put("/llm", s.handleSetLLM)
				r.Post("/events", s.handleEvent)
				r.Post("/research", s.handleResearch)
				r.Post("/autofill", s.handleAutofill)
				r.Get("/profile", s.handleProfile)
				r.Post("/concepts", s.handleConcepts)
				r.Post("/select", s.handleSelect)
				r.Post("/storyboard", s.handleStoryboard)
				r.Get("/export", s.handleExport)
				r.Get("/exports", s.handleListExports)
			})
		})
	})
	return r
}

// action runs against a loaded session. It returns the response payload.
type action func(ctx context.Context, sess *session.Session) (any, error)

// mutate loads the session, runs fn and saves the session whatever fn
// returned, since failed stages still record state such as a research
// attempt.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, status int, fn action) {
	id := chi.URLParam(r, "id")
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, runErr := fn(r.Context(), sess)

	sess.Touch(s.opts.Now())
	if err := s.store.SaveSession(r.Context(), sess); err != nil {
		writeError(w, r, err)
		return
	}
	if runErr != nil {
		writeError(w, r, runErr)
		return
	}
	writeJSON(w, status, out)
}

// read loads the session and runs fn without saving it.
func (s *Server) read(w http.ResponseWriter, r *http.Request, fn action) {
	id := chi.URLParam(r, "id")
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := fn(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out != nil {
		writeJSON(w, http.StatusOK, out)
	}
}

// load fetches a session and attaches the request credential.
func (s *Server) load(r *http.Request, id string) (*session.Session, error) {
	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		return nil, err
	}
	sess.LLM.APIKey = s.credential(r, sess.LLM.Provider)
	return sess, nil
}

func (s *Server) credential(r *http.Request, provider llm.Provider) string {
	if key := r.Header.Get(KeyHeader); key != "" {
		return key
	}
	return s.opts.KeyFor(provider)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
