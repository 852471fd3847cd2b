package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"vault-rag/internal/apperr"
	"vault-rag/internal/citation"
	"vault-rag/internal/db"
	"vault-rag/internal/models"
	"vault-rag/internal/router"
	"vault-rag/internal/stream"
)

type chatRequest struct {
	Query      string `json:"query"`
	UseRAG     *bool  `json:"use_rag,omitempty"`
	Stream     *bool  `json:"stream,omitempty"`
	DocumentID int64  `json:"document_id,omitempty"`
}

// probeTopK is the retrieval depth of the cheap relevance probe the router
// decides on, deliberately smaller than the answering retrieval.
const probeTopK = 2

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, apperr.Validation("query must not be empty"))
		return
	}

	ctx := r.Context()
	decision := s.route(ctx, uid, req)

	switch decision.Mode {
	case models.ModeGreeting:
		s.chatGreeting(ctx, w, uid, req, wantsStream(req))
	case models.ModeSearch:
		s.chatSearch(ctx, w, uid, req, decision.Keyword)
	case models.ModeRAG:
		if wantsStream(req) {
			s.chatStreamRAG(ctx, w, uid, req)
		} else {
			s.chatAnswerRAG(ctx, w, uid, req)
		}
	default:
		if wantsStream(req) {
			s.chatStreamDirect(ctx, w, uid, req)
		} else {
			s.chatAnswerDirect(ctx, w, uid, req)
		}
	}
}

// route gathers the router's signals (including the relevance probe when the
// user has an index) and classifies the query.
func (s *Server) route(ctx context.Context, uid int64, req chatRequest) router.Decision {
	sig := router.Signals{
		HasIndex:    s.vault.HasIndex(uid),
		DefaultMode: models.ModeRAG,
	}
	if req.UseRAG != nil && !*req.UseRAG {
		sig.DefaultMode = models.ModeGeneration
	}
	if doc, err := s.vault.CurrentDocument(ctx, uid, req.DocumentID); err == nil && doc != nil {
		sig.HasCurrentDocument = true
	}
	if sig.HasIndex {
		if ix, release, err := s.vault.EnsureIndex(ctx, uid); err == nil {
			fragments, _ := ix.Query(ctx, req.Query, probeTopK)
			release()
			var b strings.Builder
			for _, frag := range fragments {
				b.WriteString(frag.Content)
				b.WriteString(" ")
			}
			sig.RetrievedText = b.String()
		}
	}
	return router.Classify(req.Query, sig)
}

func (s *Server) chatStreamRAG(ctx context.Context, w http.ResponseWriter, uid int64, req chatRequest) {
	ix, release, err := s.vault.EnsureIndex(ctx, uid)
	if err != nil {
		writeError(w, err)
		return
	}
	defer release()

	sink, err := stream.NewSSEWriter(w)
	if err != nil {
		writeError(w, err)
		return
	}
	streamer := stream.New(sink)

	if err := s.pipeline.StreamRAG(ctx, ix, req.Query, streamer.Emit); err != nil {
		streamer.Fail(err)
		return
	}

	// one more retrieval to attach citations; only after the token stream
	// has fully completed
	fragments := s.pipeline.Retrieve(ctx, ix, req.Query)
	refs := citation.References(citation.Extract(fragments))
	if err := streamer.Finish(refs, nil); err != nil {
		return
	}
	s.persistTurn(ctx, uid, req.Query, streamer.FullText(), models.ModeRAG, refs)
}

func (s *Server) chatStreamDirect(ctx context.Context, w http.ResponseWriter, uid int64, req chatRequest) {
	sink, err := stream.NewSSEWriter(w)
	if err != nil {
		writeError(w, err)
		return
	}
	streamer := stream.New(sink)

	if err := s.pipeline.StreamDirect(ctx, req.Query, streamer.Emit); err != nil {
		streamer.Fail(err)
		return
	}
	if err := streamer.Finish(nil, nil); err != nil {
		return
	}
	s.persistTurn(ctx, uid, req.Query, streamer.FullText(), models.ModeGeneration, nil)
}

func (s *Server) chatAnswerRAG(ctx context.Context, w http.ResponseWriter, uid int64, req chatRequest) {
	ix, release, err := s.vault.EnsureIndex(ctx, uid)
	if err != nil {
		writeError(w, err)
		return
	}
	defer release()

	answer, citations, err := s.pipeline.Answer(ctx, ix, req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	refs := citation.References(citations)
	s.persistTurn(ctx, uid, req.Query, answer, models.ModeRAG, refs)
	writeJSON(w, http.StatusOK, map[string]any{"answer": answer, "mode": models.ModeRAG, "citations": refs})
}

func (s *Server) chatAnswerDirect(ctx context.Context, w http.ResponseWriter, uid int64, req chatRequest) {
	answer, err := s.pipeline.Generate(ctx, req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	s.persistTurn(ctx, uid, req.Query, answer, models.ModeGeneration, nil)
	writeJSON(w, http.StatusOK, map[string]any{"answer": answer, "mode": models.ModeGeneration})
}

// chatGreeting answers instantly and appends the vault listing, streamed in
// two deltas so the greeting itself never waits on the database.
func (s *Server) chatGreeting(ctx context.Context, w http.ResponseWriter, uid int64, req chatRequest, streamed bool) {
	const greetingText = "Hi! How can I help you today?"

	docs, err := s.vault.List(ctx, uid)
	if err != nil {
		log.Error().Err(err).Int64("user_id", uid).Msg("listing vault for greeting")
	}
	vaultText := formatVaultListing(docs)
	full := greetingText + vaultText

	if !streamed {
		s.persistTurn(ctx, uid, req.Query, full, models.ModeGreeting, nil)
		writeJSON(w, http.StatusOK, map[string]any{"answer": full, "mode": models.ModeGreeting, "vault_files": docs})
		return
	}

	sink, err := stream.NewSSEWriter(w)
	if err != nil {
		writeError(w, err)
		return
	}
	streamer := stream.New(sink)
	if err := streamer.Emit(greetingText); err != nil {
		return
	}
	if err := streamer.Emit(vaultText); err != nil {
		return
	}
	if err := streamer.Finish(nil, docs); err != nil {
		return
	}
	s.persistTurn(ctx, uid, req.Query, full, models.ModeGreeting, nil)
}

const maxListedFiles = 10

func formatVaultListing(docs []db.Document) string {
	if len(docs) == 0 {
		return "\n\nYour vault is empty. Upload files to get started!"
	}
	var b strings.Builder
	b.WriteString("\n\n**Files in your vault:**\n")
	shown := docs
	if len(shown) > maxListedFiles {
		shown = shown[:maxListedFiles]
	}
	for i, doc := range shown {
		status := "[PENDING]"
		if doc.Processed {
			status = "[PROCESSED]"
		}
		sizeMB := float64(doc.FileSize) / (1 << 20)
		fmt.Fprintf(&b, "%d. %s %s (%.2f MB)\n", i+1, status, doc.Filename, sizeMB)
	}
	if len(docs) > maxListedFiles {
		fmt.Fprintf(&b, "\n... and %d more files", len(docs)-maxListedFiles)
	}
	return b.String()
}

// persistTurn appends the completed turn. It runs only after the terminal
// event (or full answer) exists, so partial responses are never stored.
func (s *Server) persistTurn(ctx context.Context, uid int64, query, response string, mode models.Mode, refs []models.CitationRef) {
	turn := &db.ChatTurn{
		UserID:   uid,
		Query:    query,
		Response: response,
		Mode:     string(mode),
	}
	if len(refs) > 0 {
		if data, err := json.Marshal(refs); err == nil {
			turn.Citations = string(data)
		}
	}
	if err := s.store.AppendChatTurn(ctx, turn); err != nil {
		log.Error().Err(err).Int64("user_id", uid).Msg("saving chat turn")
	}
}

func wantsStream(req chatRequest) bool {
	return req.Stream == nil || *req.Stream
}
