package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"vault-rag/internal/db"
	"vault-rag/internal/keyword"
	"vault-rag/internal/models"
)

type keywordRequest struct {
	Keyword    string   `json:"keyword,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	DocumentID int64    `json:"document_id,omitempty"`
}

// chatSearch handles a chat query the router classified as a keyword lookup.
// The response is a plain JSON answer rather than a token stream since the
// result is computed, not generated.
func (s *Server) chatSearch(ctx context.Context, w http.ResponseWriter, uid int64, req chatRequest, kw string) {
	result, doc, err := s.searchDocument(ctx, uid, req.DocumentID, kw)
	if err != nil {
		writeError(w, err)
		return
	}
	answer := keyword.FormatResponse(result)
	s.recordSearch(ctx, doc.ID, result)
	s.persistTurn(ctx, uid, req.Query, answer, models.ModeSearch, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":   answer,
		"mode":     models.ModeSearch,
		"keyword":  result.Keyword,
		"result":   result,
		"document": doc.Filename,
	})
}

func (s *Server) handleSearchKeyword(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req keywordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, doc, err := s.searchDocument(r.Context(), uid, req.DocumentID, req.Keyword)
	if err != nil {
		writeError(w, err)
		return
	}
	s.recordSearch(r.Context(), doc.ID, result)
	writeJSON(w, http.StatusOK, map[string]any{
		"result":   result,
		"response": keyword.FormatResponse(result),
		"document": doc.Filename,
	})
}

func (s *Server) handleSearchKeywords(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req keywordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	doc, err := s.vault.CurrentDocument(r.Context(), uid, req.DocumentID)
	if err != nil {
		writeError(w, err)
		return
	}
	fragments, err := s.vault.DocumentFragments(r.Context(), doc)
	if err != nil {
		writeError(w, err)
		return
	}
	results := keyword.SearchAll(fragments, req.Keywords)
	for _, result := range results {
		if result.Error != "" {
			continue
		}
		s.recordSearch(r.Context(), doc.ID, result)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":  results,
		"document": doc.Filename,
	})
}

func (s *Server) searchDocument(ctx context.Context, uid, docID int64, kw string) (*models.KeywordResult, *db.Document, error) {
	doc, err := s.vault.CurrentDocument(ctx, uid, docID)
	if err != nil {
		return nil, nil, err
	}
	fragments, err := s.vault.DocumentFragments(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	result, err := keyword.Search(fragments, kw)
	if err != nil {
		return nil, nil, err
	}
	return result, doc, nil
}

// recordSearch writes the audit row; a failure is logged, never surfaced.
func (s *Server) recordSearch(ctx context.Context, docID int64, result *models.KeywordResult) {
	locations, _ := json.Marshal(result.Locations)
	search := &db.KeywordSearch{
		DocumentID:  docID,
		Keyword:     result.Keyword,
		Occurrences: result.Occurrences,
		Locations:   string(locations),
	}
	if err := s.store.RecordKeywordSearch(ctx, search); err != nil {
		log.Error().Err(err).Str("keyword", result.Keyword).Msg("recording keyword search")
	}
}
