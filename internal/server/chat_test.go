package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-rag/internal/apperr"
	"vault-rag/internal/db"
	"vault-rag/internal/rag"
)

type memChatStore struct {
	turns    []db.ChatTurn
	searches []db.KeywordSearch
}

func (m *memChatStore) AppendChatTurn(_ context.Context, turn *db.ChatTurn) error {
	m.turns = append(m.turns, *turn)
	return nil
}

func (m *memChatStore) ChatHistory(_ context.Context, _ int64, _, _ int) ([]db.ChatTurn, error) {
	return m.turns, nil
}

func (m *memChatStore) RecordKeywordSearch(_ context.Context, search *db.KeywordSearch) error {
	m.searches = append(m.searches, *search)
	return nil
}

// scriptedGenerator emits its tokens and then ends the stream with err.
type scriptedGenerator struct {
	tokens []string
	err    error
}

func (g *scriptedGenerator) Generate(_ context.Context, _ string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return strings.Join(g.tokens, ""), nil
}

func (g *scriptedGenerator) GenerateStream(_ context.Context, _ string, emit func(string) error) error {
	for _, tok := range g.tokens {
		if err := emit(tok); err != nil {
			return err
		}
	}
	return g.err
}

func TestChatStreamFailureDoesNotPersist(t *testing.T) {
	store := &memChatStore{}
	gen := &scriptedGenerator{
		tokens: []string{"tok1", "tok2"},
		err:    apperr.Upstream("generation", errors.New("model unavailable")),
	}
	srv := New(nil, rag.NewPipeline(gen, 3), store)

	rec := httptest.NewRecorder()
	srv.chatStreamDirect(context.Background(), rec, 1, chatRequest{Query: "write a poem"})

	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, `"done":false`), "both deltas reach the client")
	assert.Contains(t, body, `"error"`)
	assert.NotContains(t, body, `"full_response"`)
	assert.Empty(t, store.turns, "a failed stream must not leave a chat turn behind")
}

func TestChatStreamSuccessPersistsOnce(t *testing.T) {
	store := &memChatStore{}
	gen := &scriptedGenerator{tokens: []string{"tok1", "tok2"}}
	srv := New(nil, rag.NewPipeline(gen, 3), store)

	rec := httptest.NewRecorder()
	srv.chatStreamDirect(context.Background(), rec, 1, chatRequest{Query: "write a poem"})

	assert.Contains(t, rec.Body.String(), `"full_response":"tok1tok2"`)
	require.Len(t, store.turns, 1)
	assert.Equal(t, "tok1tok2", store.turns[0].Response)
	assert.Equal(t, int64(1), store.turns[0].UserID)
	assert.Equal(t, "generation", store.turns[0].Mode)
}
