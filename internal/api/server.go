// Package api exposes the sync core over a small JSON HTTP surface: session
// control, manual ingestion, search and draft generation. The handlers are
// thin plumbing over the core components.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rahulpatani/smartinbox/internal/draft"
	"github.com/rahulpatani/smartinbox/internal/mail"
	"github.com/rahulpatani/smartinbox/internal/pipeline"
	"github.com/rahulpatani/smartinbox/internal/store"
	"github.com/rahulpatani/smartinbox/internal/syncer"
)

// Server hosts the HTTP API.
type Server struct {
	store    *store.Store
	manager  *syncer.Manager
	pipeline *pipeline.Pipeline
	drafts   *draft.Service
	logger   *logrus.Logger
	mux      *http.ServeMux

	// baseCtx scopes session lifetimes; sessions started by a request
	// outlive the request itself.
	baseCtx context.Context
}

// NewServer creates the API server.
func NewServer(baseCtx context.Context, st *store.Store, manager *syncer.Manager, pl *pipeline.Pipeline, drafts *draft.Service, logger *logrus.Logger) *Server {
	s := &Server{
		store:    st,
		manager:  manager,
		pipeline: pl,
		drafts:   drafts,
		logger:   logger,
		mux:      http.NewServeMux(),
		baseCtx:  baseCtx,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("POST /api/sync", s.handleSyncAll)
	s.mux.HandleFunc("POST /api/sync/{email}", s.handleSyncAccount)
	s.mux.HandleFunc("GET /api/sessions", s.handleSessions)

	s.mux.HandleFunc("POST /api/ingest", s.handleIngest)

	s.mux.HandleFunc("GET /api/emails", s.handleSearch)
	s.mux.HandleFunc("GET /api/emails/{id}", s.handleGetEmail)

	s.mux.HandleFunc("GET /api/drafts", s.handleListDrafts)
	s.mux.HandleFunc("POST /api/drafts/generate", s.handleGenerateDraft)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.StartAll(s.baseCtx); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"sessions": s.manager.ActiveSessions(),
	})
}

func (s *Server) handleSyncAccount(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	account, err := s.store.FindAccount(email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.manager.StartSession(s.baseCtx, account); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"sessions": s.manager.ActiveSessions(),
	})
}

type ingestRequest struct {
	Account string `json:"account"`
	Raw     string `json:"raw"`
}

// handleIngest is the manual resync path: it accepts a raw RFC822 message
// and pushes it through the same pipeline the watcher uses.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Account == "" || req.Raw == "" {
		writeError(w, http.StatusBadRequest, "account and raw are required")
		return
	}

	parsed, err := mail.ParseMessage([]byte(req.Raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse message: "+err.Error())
		return
	}

	if err := s.pipeline.Ingest(r.Context(), parsed, req.Account); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message_id": parsed.MessageID,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.SearchOptions{
		Query:        q.Get("q"),
		AccountEmail: q.Get("account"),
		Folder:       q.Get("folder"),
		Label:        q.Get("label"),
		Limit:        intParam(q.Get("limit"), 50),
		Offset:       intParam(q.Get("offset"), 0),
	}

	results, err := s.store.Search(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"emails":  results,
		"count":   len(results),
	})
}

func (s *Server) handleGetEmail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	msg, err := s.store.GetMessage(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "email not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "email": msg})
}

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.store.ListDrafts(r.URL.Query().Get("status"), intParam(r.URL.Query().Get("limit"), 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"drafts":  drafts,
		"count":   len(drafts),
	})
}

type generateDraftRequest struct {
	MessageID string `json:"message_id"`
	Context   string `json:"context"`
}

func (s *Server) handleGenerateDraft(w http.ResponseWriter, r *http.Request) {
	var req generateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "message_id is required")
		return
	}

	msg, err := s.store.GetMessageByMessageID(req.MessageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "message not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	d, err := s.drafts.GenerateForMessage(r.Context(), msg, req.Context)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if d == nil {
		writeError(w, http.StatusServiceUnavailable, "draft generation is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "draft": d})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
