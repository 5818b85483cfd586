// Package server exposes the engine over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"finrag/internal/apperr"
	"finrag/internal/domain"
	"finrag/internal/logger"
	"finrag/internal/service"
)

// Server routes HTTP requests into the orchestrator.
type Server struct {
	svc *service.Service
	log zerolog.Logger
}

// New creates the server; Handler builds the routes and applies the
// middleware chain.
func New(svc *service.Service, log zerolog.Logger) *Server {
	return &Server{svc: svc, log: log}
}

// Handler builds the routed handler with middleware.
func (s *Server) Handler(allowOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /test-connection", s.handleTestConnection)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /prompt", s.handlePrompt)
	mux.HandleFunc("POST /query/stream", s.handleQueryStream)
	mux.HandleFunc("GET /history", s.handleHistoryList)
	mux.HandleFunc("DELETE /history", s.handleHistoryClear)

	var h http.Handler = mux
	h = Recovery(s.log)(h)
	h = RequestID(h)
	h = Logger(s.log)(h)
	h = CORS(allowOrigins)(h)
	return h
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		WriteError(w, apperr.InvalidRequest, "user_id query parameter is required")
		return
	}
	st := s.svc.StoreStatus(userID)
	body := map[string]any{"ingested": st.Ingested, "count": st.Count}
	if st.Ingested {
		body["updated_at"] = st.UpdatedAt.UTC()
	}
	WriteJSON(w, http.StatusOK, body)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	llmOK, embOK := s.svc.TestConnection(r.Context())
	WriteJSON(w, http.StatusOK, map[string]bool{
		"llm_reachable":    llmOK,
		"embedding_loaded": embOK,
	})
}

type ingestRequest struct {
	UserID      string               `json:"user_id"`
	ContextData []domain.Transaction `json:"context_data"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, apperr.InvalidRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		WriteError(w, apperr.InvalidRequest, "user_id is required")
		return
	}
	count, err := s.svc.Ingest(r.Context(), req.UserID, req.ContextData)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ingested": count, "user_id": req.UserID})
}

type queryBody struct {
	UserID      string               `json:"user_id"`
	Prompt      string               `json:"prompt"`
	ContextData []domain.Transaction `json:"context_data,omitempty"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
	ShowAll     *bool                `json:"show_all,omitempty"`
	UseFullData *bool                `json:"use_full_data,omitempty"`
	QueryID     string               `json:"query_id,omitempty"`
}

func (b queryBody) toRequest(allowInline bool) service.QueryRequest {
	req := service.QueryRequest{
		UserID:      b.UserID,
		Prompt:      b.Prompt,
		Page:        b.Page,
		PageSize:    b.PageSize,
		ShowAll:     b.ShowAll,
		UseFullData: b.UseFullData,
		QueryID:     b.QueryID,
	}
	if allowInline {
		req.ContextData = b.ContextData
	}
	return req
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.runQuery(w, r, true)
}

// handlePrompt queries pre-ingested data only; inline context is ignored.
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	s.runQuery(w, r, false)
}

func (s *Server) runQuery(w http.ResponseWriter, r *http.Request, allowInline bool) {
	var body queryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apperr.InvalidRequest, "invalid request body: "+err.Error())
		return
	}
	resp, err := s.svc.Query(r.Context(), body.toRequest(allowInline))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	var body queryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apperr.InvalidRequest, "invalid request body: "+err.Error())
		return
	}
	sink, ok := newSSESink(w)
	if !ok {
		WriteError(w, apperr.Internal, "streaming unsupported by this connection")
		return
	}
	s.svc.QueryStream(r.Context(), body.toRequest(true), sink)
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		WriteError(w, apperr.InvalidRequest, "user_id query parameter is required")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.svc.History(r.Context(), userID, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"history": entries, "count": len(entries)})
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		WriteError(w, apperr.InvalidRequest, "user_id query parameter is required")
		return
	}
	deleted, err := s.svc.ClearHistory(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"deleted": deleted, "user_id": userID})
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	log := logger.FromContext(r.Context())
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || kind == apperr.Internal {
		log.Error().Err(err).Msg("request failed")
	} else {
		log.Debug().Err(err).Msg("request rejected")
	}
	WriteError(w, kind, apperr.Message(err))
}
