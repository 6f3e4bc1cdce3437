package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/futureblink-ai/internal/adapter/observability"
	"github.com/fairyhunter13/futureblink-ai/internal/config"
	"github.com/fairyhunter13/futureblink-ai/internal/domain"
	"github.com/fairyhunter13/futureblink-ai/internal/render"
)

// User-visible messages of the history and health endpoints.
const (
	MsgServerRunning     = "FutureBlink AI Server is running"
	MsgPromptSaved       = "Prompt saved successfully"
	MsgPromptDeleted     = "Prompt deleted successfully"
	MsgSaveRequired      = "Prompt and response are required"
	MsgSaveFailed        = "Failed to save prompt to database"
	MsgListFailed        = "Failed to fetch prompts"
	MsgDeleteFailed      = "Failed to delete prompt"
	MsgPromptNotFound    = "Prompt not found"
	MsgInvalidJSON       = "Request body must be valid JSON"
	MsgPromptTooLong     = "Prompt is too long (max 8000 characters)"
	MsgMarkdownTooLong   = "Markdown is too long (max 100000 characters)"
	maxRequestBodyBytes  = 1 << 20
	readinessCheckBudget = 2 * time.Second
	readinessUnavailable = "unavailable"
)

// Asker runs one model-fallback orchestration.
type Asker interface {
	Ask(ctx context.Context, prompt string) domain.CompletionResult
}

// History stores and lists saved prompt/response pairs.
type History interface {
	Save(ctx context.Context, prompt, response string) (domain.Prompt, error)
	List(ctx context.Context, page, limit int) (domain.PromptPage, error)
	Delete(ctx context.Context, id string) error
}

// Server aggregates handlers dependencies.
type Server struct {
	Cfg        config.Config
	AI         Asker
	History    History
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	now        func() time.Time
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, ai Asker, history History, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, AI: ai, History: history, DBCheck: dbCheck, RedisCheck: redisCheck, now: time.Now}
}

// decodeJSON reads a size-capped JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

// askStatus maps a failed orchestration onto an HTTP status.
func askStatus(kind domain.FailureKind) int {
	switch kind {
	case domain.FailureValidation:
		return http.StatusBadRequest
	case domain.FailureDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// AskHandler forwards a prompt through the model fallback chain.
func (s *Server) AskHandler() http.HandlerFunc {
	type request struct {
		Prompt string `json:"prompt" validate:"max=8000"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, MsgInvalidJSON)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), MsgPromptTooLong)
			return
		}
		res := s.AI.Ask(r.Context(), req.Prompt)
		if !res.Success {
			code := askStatus(res.Kind)
			LoggerFrom(r).Warn("ask failed",
				slog.Int("status", code),
				slog.String("failure", string(res.Kind)),
				slog.Int("attempts", res.Attempts),
			)
			writeJSON(w, code, errorEnvelope{Success: false, Error: res.Error})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":            true,
			"response":           res.Response,
			"model":              res.Model,
			"processing_time_ms": res.ProcessingTimeMs,
		})
	}
}

// SaveHandler persists a prompt/response pair.
func (s *Server) SaveHandler() http.HandlerFunc {
	type request struct {
		Prompt   string `json:"prompt"`
		Response string `json:"response"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, MsgInvalidJSON)
			return
		}
		p, err := s.History.Save(r.Context(), req.Prompt, req.Response)
		if err != nil {
			msg := MsgSaveFailed
			if errors.Is(err, domain.ErrInvalidArgument) {
				msg = MsgSaveRequired
			}
			writeError(w, r, err, msg)
			return
		}
		observability.PromptsSavedTotal.Inc()
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"message": MsgPromptSaved,
			"data":    p,
		})
	}
}

// ListPromptsHandler returns one newest-first page of saved prompts.
func (s *Server) ListPromptsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		pageRaw, limitRaw := strings.TrimSpace(q.Get("page")), strings.TrimSpace(q.Get("limit"))
		if vr := ValidatePagination(pageRaw, limitRaw); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: pagination", domain.ErrInvalidArgument), vr.Errors[0].Message)
			return
		}
		page, _ := strconv.Atoi(pageRaw)
		limit, _ := strconv.Atoi(limitRaw)
		res, err := s.History.List(r.Context(), page, limit)
		if err != nil {
			writeError(w, r, err, MsgListFailed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"data":       res.Data,
			"pagination": res.Pagination,
		})
	}
}

// DeletePromptHandler removes one saved prompt by id.
func (s *Server) DeletePromptHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := SanitizeID(chi.URLParam(r, "id"))
		if err := s.History.Delete(r.Context(), id); err != nil {
			msg := MsgDeleteFailed
			if errors.Is(err, domain.ErrNotFound) {
				msg = MsgPromptNotFound
			}
			writeError(w, r, err, msg)
			return
		}
		observability.PromptsDeletedTotal.Inc()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": MsgPromptDeleted})
	}
}

// RenderHandler converts assistant markdown to the HTML fragment the UI displays.
func (s *Server) RenderHandler() http.HandlerFunc {
	type request struct {
		Markdown string `json:"markdown" validate:"max=100000"`
		DarkMode bool   `json:"dark_mode"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, MsgInvalidJSON)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), MsgMarkdownTooLong)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"html":    render.Markdown(req.Markdown, req.DarkMode),
		})
	}
}

// HealthHandler reports liveness. It never touches dependencies.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"message":   MsgServerRunning,
			"timestamp": s.clock().UTC().Format(time.RFC3339Nano),
		})
	}
}

// ReadyzHandler returns a readiness handler that probes the database and Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessCheckBudget)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{{"db", s.DBCheck}, {"redis", s.RedisCheck}}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				ok = false
				LoggerFrom(r).Warn("readiness check failed", slog.String("check", p.name), slog.Any("error", err))
				checks = append(checks, check{Name: p.name, OK: false, Details: readinessUnavailable})
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// NotFoundHandler answers unknown routes with the JSON error envelope.
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorEnvelope{
			Success: false,
			Error:   fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.RequestURI()),
		})
	}
}

// MethodNotAllowedHandler answers a known path hit with the wrong method.
func (s *Server) MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorEnvelope{
			Success: false,
			Error:   fmt.Sprintf("Method not allowed: %s %s", r.Method, r.URL.Path),
		})
	}
}

func (s *Server) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
