package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"github.com/seanblong/interviewrag/internal/auth"
	"github.com/seanblong/interviewrag/internal/engine"
	"github.com/seanblong/interviewrag/internal/extract"
	"github.com/seanblong/interviewrag/internal/metrics"
	"github.com/seanblong/interviewrag/internal/report"
	"github.com/seanblong/interviewrag/internal/store"
	"github.com/seanblong/interviewrag/pkg/models"
)

const (
	maxUploadBytes = 10 << 20
	maxBodyBytes   = 1 << 20
)

type questionsRequest struct {
	SessionID   string `json:"session_id" validate:"required"`
	Role        string `json:"role"`
	CountRole   *int   `json:"count_role" validate:"omitempty,min=0,max=20"`
	CountResume *int   `json:"count_resume" validate:"omitempty,min=0,max=20"`
}

type evaluateRequest struct {
	SessionID        string                `json:"session_id" validate:"required"`
	Role             string                `json:"role" validate:"required"`
	TechnicalAnswers []models.AnswerRecord `json:"technical_answers" validate:"dive"`
	HRAnswers        []models.AnswerRecord `json:"hr_answers" validate:"dive"`
}

type extractResponse struct {
	SessionID     string         `json:"session_id"`
	ChunksIndexed int            `json:"chunks_indexed"`
	Metadata      map[string]any `json:"metadata"`
	Token         string         `json:"token,omitempty"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
}

type questionsResponse struct {
	Questions []string `json:"questions"`
}

type server struct {
	engine         *engine.Service
	archive        store.EvaluationStore // nil when no database is configured
	metrics        *metrics.Metrics
	validate       *validator.Validate
	requestTimeout time.Duration
}

func newServer(svc *engine.Service, archive store.EvaluationStore, m *metrics.Metrics, requestTimeout time.Duration) *server {
	if requestTimeout <= 0 {
		requestTimeout = 3 * time.Minute
	}
	return &server{
		engine:         svc,
		archive:        archive,
		metrics:        m,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		requestTimeout: requestTimeout,
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Auth status endpoint (always available)
	mux.HandleFunc("GET /auth/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]bool{"enabled": auth.IsAuthEnabled()})
	})

	mux.HandleFunc("POST /extract", s.handleExtract)
	mux.HandleFunc("POST /questions/technical", auth.OptionalAuthMiddleware(s.handleTechnical))
	mux.HandleFunc("POST /questions/hr", auth.OptionalAuthMiddleware(s.handleHR))
	mux.HandleFunc("POST /evaluate", auth.OptionalAuthMiddleware(s.handleEvaluate))
	mux.HandleFunc("POST /report", auth.OptionalAuthMiddleware(s.handleReport))
	mux.HandleFunc("GET /sessions/{id}/evaluations", auth.OptionalAuthMiddleware(s.handleListEvaluations))
	mux.HandleFunc("DELETE /sessions/{id}", auth.OptionalAuthMiddleware(s.handleDeleteSession))
	return mux
}

// observe records the request against its route pattern once the mux
// has matched it.
func (s *server) observe(r *http.Request, status int) {
	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	s.metrics.ObserveRequest(route, status)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.archive != nil {
		if err := s.archive.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing form file 'file'", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if auth.IsAuthEnabled() {
		// an existing session can only be replaced by its token holder
		if _, live := s.engine.Registry().Get(sessionID); live {
			sess, err := auth.SessionFromRequest(r)
			if err != nil || sess == nil || sess.ID != sessionID {
				http.Error(w, auth.ErrSessionMismatch.Error(), http.StatusForbidden)
				return
			}
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	text, err := extract.Text(ctx, header.Filename, data)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, extract.ErrUnsupported) {
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, "text extraction failed: "+err.Error(), status)
		return
	}

	n, err := s.engine.Index(ctx, sessionID, text)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("session_id", sessionID).Msg("indexing failed")
		http.Error(w, fmt.Sprintf("Indexing unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}

	resp := extractResponse{
		SessionID:     sessionID,
		ChunksIndexed: n,
		Metadata: map[string]any{
			"filename":       header.Filename,
			"content_type":   header.Header.Get("Content-Type"),
			"size_bytes":     len(data),
			"characters":     len([]rune(text)),
			"chunks_indexed": n,
		},
	}
	if auth.IsAuthEnabled() {
		token, expires, err := auth.GenerateJWT(sessionID)
		if err != nil {
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}
		resp.Token, resp.ExpiresAt = token, &expires
		http.SetCookie(w, &http.Cookie{
			Name:     "session_token",
			Value:    token,
			Path:     "/",
			Expires:  expires,
			HttpOnly: true,
			Secure:   strings.HasPrefix(r.Header.Get("X-Forwarded-Proto"), "https"),
			SameSite: http.SameSiteLaxMode,
		})
	}

	hlog.FromRequest(r).Info().Str("session_id", sessionID).Str("filename", header.Filename).Int("chunks", n).Msg("resume indexed")
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *server) handleTechnical(w http.ResponseWriter, r *http.Request) {
	var req questionsRequest
	if !s.decode(w, r, &req) || !s.authorize(w, r, req.SessionID) {
		return
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = engine.DefaultRole
	}
	countRole, countResume := engine.DefaultRoleCount, engine.DefaultResumeCount
	if req.CountRole != nil {
		countRole = *req.CountRole
	}
	if req.CountResume != nil {
		countResume = *req.CountResume
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	qs, err := s.engine.TechnicalQuestions(ctx, req.SessionID, role, countRole, countResume)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("session_id", req.SessionID).Msg("technical questions failed")
		http.Error(w, fmt.Sprintf("Question generation unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r, http.StatusOK, questionsResponse{Questions: qs})
}

func (s *server) handleHR(w http.ResponseWriter, r *http.Request) {
	var req questionsRequest
	if !s.decode(w, r, &req) || !s.authorize(w, r, req.SessionID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	qs, err := s.engine.HRQuestions(ctx, req.SessionID, engine.DefaultHRCount)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("session_id", req.SessionID).Msg("hr questions failed")
		http.Error(w, fmt.Sprintf("Question generation unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r, http.StatusOK, questionsResponse{Questions: qs})
}

func (s *server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !s.decode(w, r, &req) || !s.authorize(w, r, req.SessionID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	res, err := s.engine.Evaluate(ctx, req.SessionID, req.Role, req.TechnicalAnswers, req.HRAnswers)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("session_id", req.SessionID).Msg("evaluation failed")
		http.Error(w, fmt.Sprintf("Evaluation unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}

	if s.archive != nil {
		rec, err := s.archive.SaveEvaluation(ctx, req.SessionID, req.Role, res)
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to archive evaluation")
		} else {
			w.Header().Set("X-Evaluation-ID", strconv.FormatInt(rec.ID, 10))
		}
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "pdf"
	}
	if format != "pdf" && format != "md" {
		http.Error(w, "format must be pdf or md", http.StatusBadRequest)
		return
	}

	var in report.Input
	if !s.decode(w, r, &in) || !s.authorize(w, r, in.SessionID) {
		return
	}
	rep := report.Build(in)
	filename := "interview_report_" + safeName(in.SessionID)

	switch format {
	case "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".md"))
		if _, err := io.WriteString(w, report.Markdown(rep)); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("failed to write report")
		}
	default:
		b, err := report.PDF(rep)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("pdf rendering failed")
			http.Error(w, "Failed to render report", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".pdf"))
		if _, err := w.Write(b); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("failed to write report")
		}
	}
}

func (s *server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if !s.authorize(w, r, sessionID) {
		return
	}
	if s.archive == nil {
		http.Error(w, "evaluation archive not configured", http.StatusNotImplemented)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	recs, err := s.archive.ListEvaluations(ctx, sessionID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, recs)
}

func (s *server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if !s.authorize(w, r, sessionID) {
		return
	}
	if !s.engine.Registry().Remove(sessionID) {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into v and validates it, writing a 400 on failure.
func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *server) authorize(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	if err := auth.Authorize(r, sessionID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("failed to encode response")
	}
}

// safeName keeps characters that are safe in a download filename.
func safeName(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "session"
	}
	return b.String()
}
