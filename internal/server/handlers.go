package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/narrative-cli/internal/llm"
	"github.com/sells-group/narrative-cli/internal/model"
	"github.com/sells-group/narrative-cli/internal/pipeline"
	"github.com/sells-group/narrative-cli/internal/profile"
	"github.com/sells-group/narrative-cli/internal/session"
	"github.com/sells-group/narrative-cli/internal/store"
)

// sessionView is a session plus the hints a client needs to render it.
type sessionView struct {
	*session.Session
	StepTitle     string `json:"step_title"`
	KeyConfigured bool   `json:"key_configured"`
}

func view(sess *session.Session) sessionView {
	return sessionView{
		Session:       sess,
		StepTitle:     sess.Step.Title(),
		KeyConfigured: sess.LLM.APIKey != "",
	}
}

type catalog struct {
	Providers       []llm.ProviderInfo      `json:"providers"`
	Categories      []string                `json:"categories"`
	Platforms       []string                `json:"platforms"`
	VisualStyles    []model.VisualStyle     `json:"visual_styles"`
	PersonalityAxes []model.PersonalityAxis `json:"personality_axes"`
	ProductPresence []string                `json:"product_presence"`
	TextOverlay     []string                `json:"text_overlay"`
}

type llmRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type createRequest struct {
	Identity *model.BrandIdentity `json:"identity"`
	LLM      *llmRequest          `json:"llm"`
}

type regenerateRequest struct {
	Regenerate bool `json:"regenerate"`
}

type selectRequest struct {
	Index *int `json:"index"`
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched
// when optional is set.
func decodeBody(r *http.Request, v any, optional bool) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if len(b) > maxBodyBytes {
		return badRequest("request body too large")
	}
	if len(bytes.TrimSpace(b)) == 0 {
		if optional {
			return nil
		}
		return badRequest("request body required")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog{
		Providers:       llm.Providers,
		Categories:      model.Categories,
		Platforms:       model.Platforms,
		VisualStyles:    model.VisualStyles,
		PersonalityAxes: model.PersonalityAxes,
		ProductPresence: model.ProductPresenceOptions,
		TextOverlay:     model.TextOverlayOptions,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}

	sess := session.New(s.opts.NewID(), s.opts.Now())
	sess.SetLLM(s.opts.Defaults)
	if req.LLM != nil {
		settings, err := applyLLM(sess.LLM, *req.LLM)
		if err != nil {
			writeError(w, r, err)
			return
		}
		sess.SetLLM(settings)
	}
	if req.Identity != nil {
		if err := validateIdentity(*req.Identity); err != nil {
			writeError(w, r, err)
			return
		}
		sess.SetIdentity(*req.Identity)
	}

	if err := s.store.SaveSession(r.Context(), sess); err != nil {
		writeError(w, r, err)
		return
	}
	sess.LLM.APIKey = s.credential(r, sess.LLM.Provider)
	writeJSON(w, http.StatusCreated, view(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter store.SessionFilter
	if v := q.Get("step"); v != "" {
		st, err := session.ParseStep(v)
		if err != nil {
			writeError(w, r, badRequest("%v", err))
			return
		}
		filter.Step = st
	}
	filter.Brand = q.Get("brand")
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, badRequest("%s must be a non-negative integer", name))
			return
		}
		*dst = n
	}

	list, err := s.store.ListSessions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []store.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(_ context.Context, sess *session.Session) (any, error) {
		return view(sess), nil
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.DeleteSession(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetIdentity(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(_ context.Context, sess *session.Session) (any, error) {
		var id model.BrandIdentity
		if err := decodeBody(r, &id, false); err != nil {
			return nil, err
		}
		if err := validateIdentity(id); err != nil {
			return nil, err
		}
		sess.SetIdentity(id)
		return view(sess), nil
	})
}

func (s *Server) handleSetAnswers(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(_ context.Context, sess *session.Session) (any, error) {
		answers := sess.Answers.Clone()
		if err := decodeBody(r, &answers, false); err != nil {
			return nil, err
		}
		if err := answers.Validate(); err != nil {
			return nil, err
		}
		sess.SetAnswers(answers)
		return view(sess), nil
	})
}

func (s *Server) handleSetLLM(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(_ context.Context, sess *session.Session) (any, error) {
		var req llmRequest
		if err := decodeBody(r, &req, false); err != nil {
			return nil, err
		}
		settings, err := applyLLM(sess.LLM, req)
		if err != nil {
			return nil, err
		}
		settings.APIKey = s.credential(r, settings.Provider)
		sess.SetLLM(settings)
		return view(sess), nil
	})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(_ context.Context, sess *session.Session) (any, error) {
		var ev session.Event
		if err := decodeBody(r, &ev, false); err != nil {
			return nil, err
		}
		if !ev.Type.Public() {
			return nil, badRequest("unknown event %q", ev.Type)
		}
		if err := sess.Apply(ev); err != nil {
			return nil, err
		}
		return view(sess), nil
	})
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(ctx context.Context, sess *session.Session) (any, error) {
		sd, err := s.pipeline.Research(ctx, sess)
		if err != nil {
			return nil, err
		}
		return map[string]any{"scraped": sd}, nil
	})
}

func (s *Server) handleAutofill(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(ctx context.Context, sess *session.Session) (any, error) {
		if err := s.pipeline.Autofill(ctx, sess); err != nil {
			return nil, err
		}
		return view(sess), nil
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(_ context.Context, sess *session.Session) (any, error) {
		if !sess.Identity.Ready() {
			return nil, session.ErrNotReady
		}
		bp := s.pipeline.Profile(sess)
		return map[string]any{
			"profile": bp,
			"framing": profile.Framing(bp.MaturityMode),
		}, nil
	})
}

func (s *Server) handleConcepts(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(ctx context.Context, sess *session.Session) (any, error) {
		var req regenerateRequest
		if err := decodeBody(r, &req, true); err != nil {
			return nil, err
		}
		gen := s.pipeline.GenerateConcepts
		if req.Regenerate {
			gen = s.pipeline.RegenerateConcepts
		}
		concepts, err := gen(ctx, sess)
		if err != nil {
			return nil, err
		}
		return map[string]any{"concepts": concepts, "step": sess.Step}, nil
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(_ context.Context, sess *session.Session) (any, error) {
		var req selectRequest
		if err := decodeBody(r, &req, false); err != nil {
			return nil, err
		}
		if req.Index == nil {
			return nil, badRequest("index is required")
		}
		concept, err := s.pipeline.SelectConcept(sess, *req.Index)
		if err != nil {
			return nil, err
		}
		return map[string]any{"selected": *req.Index, "concept": concept}, nil
	})
}

func (s *Server) handleStoryboard(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(ctx context.Context, sess *session.Session) (any, error) {
		var req regenerateRequest
		if err := decodeBody(r, &req, true); err != nil {
			return nil, err
		}
		gen := s.pipeline.GenerateStoryboard
		if req.Regenerate {
			gen = s.pipeline.RegenerateStoryboard
		}
		sb, err := gen(ctx, sess)
		if err != nil {
			return nil, err
		}
		return map[string]any{"storyboard": sb, "degraded": sb.Degraded()}, nil
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = pipeline.FormatJSON
	}
	contentType := "application/json"
	switch format {
	case pipeline.FormatJSON:
	case pipeline.FormatYAML, "yml":
		format, contentType = pipeline.FormatYAML, "application/yaml"
	default:
		writeError(w, r, badRequest("unknown export format %q", format))
		return
	}

	s.read(w, r, func(ctx context.Context, sess *session.Session) (any, error) {
		exp, err := s.pipeline.Export(sess)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := pipeline.EncodeExport(&buf, exp, format); err != nil {
			return nil, err
		}
		if _, err := s.store.SaveExport(ctx, sess.ID, exp); err != nil {
			return nil, err
		}

		filename := model.ExportFilename(exp.BrandProfile.BrandName)
		if format == pipeline.FormatYAML {
			filename = strings.TrimSuffix(filename, ".json") + ".yaml"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return nil, nil
	})
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func(ctx context.Context, sess *session.Session) (any, error) {
		list, err := s.store.ListExports(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []store.ExportRecord{}
		}
		return map[string]any{"exports": list}, nil
	})
}

func applyLLM(cur llm.Settings, req llmRequest) (llm.Settings, error) {
	next := cur
	if req.Provider != "" {
		p, ok := llm.LookupProvider(req.Provider)
		if !ok {
			return cur, badRequest("unknown provider %q", req.Provider)
		}
		var err error
		if next, err = cur.WithProvider(p.Name); err != nil {
			return cur, err
		}
	}
	if req.Model != "" {
		next.Model = req.Model
	}
	if err := next.Validate(); err != nil {
		return cur, err
	}
	return next, nil
}

func validateIdentity(id model.BrandIdentity) error {
	if id.Category == "" {
		return nil
	}
	return id.Validate()
}
