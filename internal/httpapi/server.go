package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/act-mass/pendo/internal/approval"
	"github.com/act-mass/pendo/internal/catalog"
	"github.com/act-mass/pendo/internal/config"
	"github.com/act-mass/pendo/internal/engine"
	"github.com/act-mass/pendo/internal/observability"
)

type Server struct {
	cfg      config.Config
	engine   *engine.Engine
	catalog  *catalog.Catalog
	upgrader websocket.Upgrader
}

func New(cfg config.Config, eng *engine.Engine, cat *catalog.Catalog) *Server {
	return &Server{
		cfg:     cfg,
		engine:  eng,
		catalog: cat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only same-origin browser connections. Non-browser
				// clients omit Origin and are allowed.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/conversations/{id}/turns", s.handleSubmitTurn)
	r.Post("/v1/conversations/{id}/approval", s.handleApproval)
	r.Get("/v1/conversations/{id}", s.handleGetConversation)
	r.Get("/v1/conversations/ws", s.handleConversationWS)
	r.Get("/v1/catalog", s.handleListCatalog)
	r.Put("/v1/catalog", s.handleSwapCatalog)
	r.Get("/v1/turns/stats", s.handleTurnStats)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"catalog_entries": len(s.catalog.ListEntries()),
	})
}

type turnBody struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (s *Server) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var body turnBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.engine.SubmitTurn(r.Context(), engine.TurnRequest{
		ConversationID: id,
		UserID:         body.UserID,
		Message:        body.Message,
	})
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, engine.ErrTurnPending):
		respondError(w, http.StatusConflict, "turn_pending", err.Error())
	case err != nil:
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
	default:
		respondJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var d approval.Decision
	if err := decodeJSON(r, &d); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.engine.ResumeApproval(r.Context(), id, d)
	switch {
	case errors.Is(err, approval.ErrNoPendingApproval):
		respondError(w, http.StatusNotFound, "no_pending_approval", err.Error())
	case errors.Is(err, engine.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case err != nil:
		respondError(w, http.StatusBadRequest, "invalid_decision", err.Error())
	default:
		respondJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	conv, ok := s.engine.ConversationState(id)
	if !ok {
		respondError(w, http.StatusNotFound, "conversation_not_found", "no such conversation")
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

func (s *Server) handleListCatalog(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog.ListEntries())
}

// handleSwapCatalog hot-swaps the partner snapshot. In-flight turns keep the
// snapshot they started with.
func (s *Server) handleSwapCatalog(w http.ResponseWriter, r *http.Request) {
	var entries []catalog.Entry
	if err := decodeJSON(r, &entries); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(entries) == 0 {
		respondError(w, http.StatusBadRequest, "empty_catalog", "at least one entry is required")
		return
	}
	s.catalog.Swap(entries)
	respondJSON(w, http.StatusOK, map[string]any{"entries": len(s.catalog.ListEntries())})
}

func (s *Server) handleTurnStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.StageSnapshot())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
