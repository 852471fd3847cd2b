package index

import (
	"context"
	"hash/fnv"
	"math"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-rag/internal/apperr"
	"vault-rag/internal/chunker"
	"vault-rag/internal/config"
	"vault-rag/internal/loader"
	"vault-rag/internal/models"
)

// fakeEmbedding derives a deterministic vector from the text so tests run
// without an embedding backend.
func fakeEmbedding(_ context.Context, text string) ([]float32, error) {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, 8)
	var norm float64
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000)/1000 + 0.001
		norm += float64(vec[i]) * float64(vec[i])
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func testManager(t *testing.T) *Manager {
	t.Helper()
	ldr := loader.New(chunker.New(100, 10))
	m, err := NewManager(config.VectorConfig{InMemory: true}, fakeEmbedding, ldr)
	require.NoError(t, err)
	return m
}

func someFragments() []models.Fragment {
	return []models.Fragment{
		{Content: "alpha fragment", Source: "a.txt", Page: 0, Position: 0},
		{Content: "beta fragment", Source: "a.txt", Page: 0, Position: 1},
		{Content: "gamma fragment", Source: "b.pdf", Page: 2, Position: 0},
	}
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "user_42_documents", CollectionName(42))
}

func TestCreateLoadDelete(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	require.Nil(t, m.Load(7), "no collection before create")

	ix, err := m.Create(ctx, someFragments(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ix.UserID)
	assert.Equal(t, 3, ix.Count())

	loaded := m.Load(7)
	require.NotNil(t, loaded)
	assert.Equal(t, 3, loaded.Count())

	deleted, err := m.Delete(7)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = m.Delete(7)
	require.NoError(t, err)
	assert.False(t, deleted, "second delete is a no-op")

	assert.Nil(t, m.Load(7))
}

func TestCreateReplacesExistingCollection(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, someFragments(), 1)
	require.NoError(t, err)

	ix, err := m.Create(ctx, someFragments()[:1], 1)
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Count(), "recreate leaves no residue from the old collection")
}

func TestQueryRoundTripsMetadata(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	ix, err := m.Create(ctx, someFragments(), 3)
	require.NoError(t, err)

	fragments, err := ix.Query(ctx, "gamma", 3)
	require.NoError(t, err)
	require.Len(t, fragments, 3)

	bySource := make(map[string]models.Fragment)
	for _, frag := range fragments {
		bySource[frag.Source] = frag
	}
	require.Contains(t, bySource, "b.pdf")
	assert.Equal(t, 2, bySource["b.pdf"].Page)
	assert.Equal(t, 0, bySource["b.pdf"].Position)
}

func TestQueryRejectsOversizedK(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	ix, err := m.Create(ctx, someFragments()[:1], 4)
	require.NoError(t, err)

	_, err = ix.Query(ctx, "alpha", 5)
	var uerr *apperr.UpstreamError
	require.ErrorAs(t, err, &uerr)
}

func TestRebuildSkipsBrokenDocuments(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	sources := []Source{
		{Filename: "good.txt", Content: []byte("usable text content for the index")},
		{Filename: "bad.xlsx", Content: []byte("spreadsheet bytes")},
	}

	ix, err := m.Rebuild(ctx, 9, sources)
	var partial *apperr.PartialFailure
	require.ErrorAs(t, err, &partial)
	require.NotNil(t, ix, "index is usable despite the partial failure")

	require.Len(t, partial.Failed, 1)
	assert.Equal(t, "bad.xlsx", partial.Failed[0].Filename)
	assert.Positive(t, ix.Count())
}

func TestRebuildAllGoodHasNoError(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	sources := []Source{{Filename: "good.txt", Content: []byte("usable text content")}}

	ix, err := m.Rebuild(ctx, 9, sources)
	require.NoError(t, err)
	assert.Positive(t, ix.Count())
}

func TestRebuildAllBrokenIsNotFound(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	sources := []Source{{Filename: "bad.xlsx", Content: []byte("nope")}}

	_, err := m.Rebuild(ctx, 9, sources)
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
}

var _ chromem.EmbeddingFunc = fakeEmbedding
