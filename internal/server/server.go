// Package server exposes the vault and chat operations over HTTP. Request
// routing and auth are thin glue: the authenticated user id arrives in the
// X-User-ID header set by the fronting auth layer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"vault-rag/internal/apperr"
	"vault-rag/internal/db"
	"vault-rag/internal/rag"
	"vault-rag/internal/vault"
)

// ChatStore is the slice of the database layer the handlers persist through.
type ChatStore interface {
	AppendChatTurn(ctx context.Context, turn *db.ChatTurn) error
	ChatHistory(ctx context.Context, userID int64, skip, limit int) ([]db.ChatTurn, error)
	RecordKeywordSearch(ctx context.Context, search *db.KeywordSearch) error
}

type Server struct {
	vault    *vault.Service
	pipeline *rag.Pipeline
	store    ChatStore
}

func New(vaultSvc *vault.Service, pipeline *rag.Pipeline, store ChatStore) *Server {
	return &Server{vault: vaultSvc, pipeline: pipeline, store: store}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /vault/upload", s.handleUpload)
	mux.HandleFunc("GET /vault/files", s.handleListFiles)
	mux.HandleFunc("DELETE /vault/files/{id}", s.handleDeleteFile)
	mux.HandleFunc("POST /vault/rebuild", s.handleRebuild)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /search-keyword", s.handleSearchKeyword)
	mux.HandleFunc("POST /search-keywords", s.handleSearchKeywords)
	mux.HandleFunc("GET /chat-history", s.handleChatHistory)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "vault-rag"})
}

// userID reads the authenticated user from the request. Zero means the
// fronting auth layer did not do its job.
func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("missing or invalid X-User-ID header")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("writing response")
	}
}

// writeError maps the error taxonomy onto HTTP statuses: validation 400,
// not-found 404, upstream 503, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation *apperr.ValidationError
		notFound   *apperr.NotFoundError
		upstream   *apperr.UpstreamError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &upstream):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("malformed request body: %v", err)
	}
	return nil
}
