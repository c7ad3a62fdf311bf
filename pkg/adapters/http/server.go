package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jorge-rr00/newbackend/internal/logging"
	"github.com/jorge-rr00/newbackend/internal/validator"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// DefaultMaxUploadBytes bounds a multipart query request.
const DefaultMaxUploadBytes = 32 << 20

// Assistant is the facade the HTTP surface drives.
type Assistant interface {
	ProcessTurn(ctx context.Context, sessionID, query string, attachments []domain.Attachment) domain.TurnResult
	CreateSession(ctx context.Context) (*domain.Session, error)
	History(ctx context.Context, id string) ([]domain.Message, error)
	Sessions(ctx context.Context) ([]domain.SessionSummary, error)
	ClearSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
}

// Server holds the HTTP handlers.
type Server struct {
	Assistant Assistant
	Streams   *StreamManager

	logger    *slog.Logger
	origin    string
	maxUpload int64
	metrics   http.Handler
	metricsAt string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAllowedOrigin sets the CORS origin. "*" allows any origin.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) {
		s.origin = origin
	}
}

// WithMaxUploadBytes bounds the body of POST /api/query.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithStreams shares a StreamManager whose Hooks feed the assistant.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithMetrics mounts a metrics handler at path.
func WithMetrics(path string, h http.Handler) Option {
	return func(s *Server) {
		s.metricsAt = path
		s.metrics = h
	}
}

// NewHandler creates the HTTP handler for the assistant.
func NewHandler(assistant Assistant, opts ...Option) http.Handler {
	s := &Server{
		Assistant: assistant,
		logger:    logging.NewNop(),
		origin:    "*",
		maxUpload: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/health", s.GetHealth)
	if s.metrics != nil && s.metricsAt != "" {
		r.Method(http.MethodGet, s.metricsAt, s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", s.Query)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.CreateSession)
			r.Get("/", s.ListSessions)
			r.Delete("/", s.DeleteAllSessions)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", s.DeleteSession)
				r.Get("/messages", s.GetMessages)
				r.Delete("/messages", s.ClearSession)
				r.Post("/clear", s.ClearSession)
				r.Get("/events", s.SubscribeEvents)
			})
		})
	})
	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.origin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if origin != "*" {
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// QueryResponse is the body of a committed turn.
type QueryResponse struct {
	Reply     string        `json:"reply"`
	SessionID string        `json:"session_id"`
	TurnID    string        `json:"turn_id,omitempty"`
	Domain    domain.Domain `json:"domain,omitempty"`
	Route     domain.Route  `json:"route,omitempty"`
	Sources   []string      `json:"sources,omitempty"`
	Degraded  []string      `json:"degraded,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	SessionID string `json:"session_id,omitempty"`
	Rejected  bool   `json:"rejected,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id" validate:"omitempty,max=128,printascii,excludesall=/\\"`
}

// Query handles POST /api/query. It accepts multipart forms with
// query, session_id and files fields, or a JSON body without files.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	req, attachments, err := s.readQuery(r)
	if err != nil {
		if tooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: "La solicitud excede el tamaño permitido.",
				Code:  "PAYLOAD_TOO_LARGE",
			})
			return
		}
		s.logger.Warn("Query: invalid request", "err", err)
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "Solicitud inválida.", Code: "BAD_REQUEST"})
		return
	}
	if err := validator.Struct(req); err != nil {
		s.logger.Warn("Query: invalid fields", "err", err)
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "Identificador de sesión inválido.", Code: "BAD_REQUEST"})
		return
	}

	res := s.Assistant.ProcessTurn(r.Context(), req.SessionID, req.Query, attachments)
	if res.OK() {
		writeJSON(w, http.StatusOK, QueryResponse{
			Reply:     res.Text,
			SessionID: res.SessionID,
			TurnID:    res.TurnID,
			Domain:    res.Domain,
			Route:     res.Route,
			Sources:   res.Sources,
			Degraded:  res.Degraded,
		})
		return
	}

	body := ErrorResponse{SessionID: res.SessionID, Code: string(domain.KindInternal), Error: "Error interno."}
	if res.Error != nil {
		body.Error = res.Error.Message
		body.Code = string(res.Error.Kind)
	}
	if res.Status == domain.StatusRejected {
		body.Rejected = true
		body.Reason = body.Error
	}
	writeError(w, statusFor(res.Error), body)
}

func (s *Server) readQuery(r *http.Request) (queryRequest, []domain.Attachment, error) {
	var req queryRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, nil, err
		}
		return req, nil, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			return req, nil, err
		}
	default:
		if err := r.ParseForm(); err != nil {
			return req, nil, err
		}
	}

	req.Query = r.FormValue("query")
	req.SessionID = r.FormValue("session_id")
	if r.MultipartForm == nil {
		return req, nil, nil
	}

	var attachments []domain.Attachment
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return req, nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return req, nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		attachments = append(attachments, domain.Attachment{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return req, attachments, nil
}

// CreateSession handles POST /api/sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Assistant.CreateSession(r.Context())
	if err != nil {
		s.fail(w, "CreateSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"messages":   sess.Transcript(),
	})
}

// ListSessions handles GET /api/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.Assistant.Sessions(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", err)
		return
	}
	if list == nil {
		list = []domain.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

// DeleteAllSessions handles DELETE /api/sessions.
func (s *Server) DeleteAllSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.Assistant.Sessions(r.Context())
	if err != nil {
		s.fail(w, "DeleteAllSessions", err)
		return
	}
	for _, sum := range list {
		if err := s.Assistant.DeleteSession(r.Context(), sum.ID); err != nil {
			s.fail(w, "DeleteAllSessions", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": len(list)})
}

// GetMessages handles GET /api/sessions/{id}/messages.
func (s *Server) GetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msgs, err := s.Assistant.History(r.Context(), id)
	if err != nil {
		s.fail(w, "GetMessages", err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "messages": msgs})
}

// ClearSession handles DELETE /api/sessions/{id}/messages and POST /api/sessions/{id}/clear.
func (s *Server) ClearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Assistant.ClearSession(r.Context(), id); err != nil {
		s.fail(w, "ClearSession", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "cleared"})
}

// DeleteSession handles DELETE /api/sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Assistant.DeleteSession(r.Context(), id); err != nil {
		s.fail(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles GET /api/sessions/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE: subscribed", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "Sesión no encontrada.", Code: "SESSION_NOT_FOUND"})
	case errors.Is(err, domain.ErrEmptySessionID):
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "Falta el identificador de sesión.", Code: "BAD_REQUEST"})
	default:
		s.logger.Error(op+" failed", "err", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "Error interno.", Code: string(domain.KindInternal)})
	}
}

// tooLarge reports whether err came from the body limit. Some multipart
// paths flatten the error, so the message is checked as well.
func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

// statusFor maps a turn error kind to its HTTP status.
func statusFor(err *domain.TurnError) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.Kind {
	case domain.KindGuardrailRejected, domain.KindNoUsableInput:
		return http.StatusBadRequest
	case domain.KindClassificationUnavailable, domain.KindProviderUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindTurnTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	writeJSON(w, status, body)
}
