package index

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"vault-rag/internal/apperr"
	"vault-rag/internal/config"
	"vault-rag/internal/loader"
	"vault-rag/internal/models"
)

// Index is one user's searchable set of embedded fragments. Exactly one
// logical index exists per user at a time.
type Index struct {
	UserID     int64
	collection *chromem.Collection
}

// Count returns the number of embedded fragments in the index.
func (ix *Index) Count() int { return ix.collection.Count() }

// Source is one document's raw bytes plus the filename citations will show.
type Source struct {
	Filename string
	Content  []byte
}

// Manager owns the lifecycle of per-user vector collections. Collections are
// never patched incrementally: any change in document membership goes through
// a full delete + recreate so removed documents leave no residue.
type Manager struct {
	db     *chromem.DB
	embed  chromem.EmbeddingFunc
	loader *loader.Loader
}

func NewManager(cfg config.VectorConfig, embed chromem.EmbeddingFunc, ldr *loader.Loader) (*Manager, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening vector database: %w", err)
		}
	}
	return &Manager{db: db, embed: embed, loader: ldr}, nil
}

// CollectionName maps a user id to its collection. The mapping is stable so
// a user's index can always be found again after a restart.
func CollectionName(userID int64) string {
	return fmt.Sprintf("user_%d_documents", userID)
}

// Create embeds fragments into a fresh collection for the user, deleting any
// existing collection first so stale fragments never coexist with fresh ones.
func (m *Manager) Create(ctx context.Context, fragments []models.Fragment, userID int64) (*Index, error) {
	name := CollectionName(userID)
	if m.db.GetCollection(name, m.embed) != nil {
		if err := m.db.DeleteCollection(name); err != nil {
			return nil, apperr.Upstream("vector", err)
		}
	}

	collection, err := m.db.CreateCollection(name, nil, m.embed)
	if err != nil {
		return nil, apperr.Upstream("vector", err)
	}

	docs := make([]chromem.Document, len(fragments))
	for i, frag := range fragments {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("%s-%d", frag.Source, frag.Position),
			Content: frag.Content,
			Metadata: map[string]string{
				"source":   frag.Source,
				"page":     strconv.Itoa(frag.Page),
				"position": strconv.Itoa(frag.Position),
			},
		}
	}
	if len(docs) > 0 {
		if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, apperr.Upstream("embedding", err)
		}
	}

	log.Info().Int64("user_id", userID).Int("fragments", len(fragments)).
		Str("collection", name).Msg("created vector collection")
	return &Index{UserID: userID, collection: collection}, nil
}

// Load returns the user's existing index, or nil when no collection exists.
// Absence is not an error: it signals the caller to rebuild from source
// documents.
func (m *Manager) Load(userID int64) *Index {
	collection := m.db.GetCollection(CollectionName(userID), m.embed)
	if collection == nil {
		return nil
	}
	return &Index{UserID: userID, collection: collection}
}

// Delete removes the user's collection. Idempotent: deleting a collection
// that does not exist returns false without error.
func (m *Manager) Delete(userID int64) (bool, error) {
	name := CollectionName(userID)
	if m.db.GetCollection(name, m.embed) == nil {
		return false, nil
	}
	if err := m.db.DeleteCollection(name); err != nil {
		return false, apperr.Upstream("vector", err)
	}
	log.Info().Int64("user_id", userID).Str("collection", name).Msg("deleted vector collection")
	return true, nil
}

// Rebuild regenerates the user's index from scratch out of the given source
// documents. A single document's failure does not abort the rebuild: the
// index is built from the rest, and the skipped documents come back as a
// *apperr.PartialFailure next to the usable index. Zero loadable documents
// is a NotFoundError, never a silently empty index.
func (m *Manager) Rebuild(ctx context.Context, userID int64, sources []Source) (*Index, error) {
	if _, err := m.Delete(userID); err != nil {
		return nil, err
	}

	var fragments []models.Fragment
	var failures []apperr.DocumentFailure
	loaded := 0
	for _, src := range sources {
		frags, err := m.loader.Load(src.Content, src.Filename)
		if err != nil {
			log.Error().Err(err).Str("filename", src.Filename).
				Int64("user_id", userID).Msg("skipping document during rebuild")
			failures = append(failures, apperr.DocumentFailure{Filename: src.Filename, Reason: err.Error()})
			continue
		}
		loaded++
		fragments = append(fragments, frags...)
	}

	if loaded == 0 {
		return nil, apperr.NotFound("no documents could be loaded for user %d", userID)
	}

	ix, err := m.Create(ctx, fragments, userID)
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return ix, &apperr.PartialFailure{Failed: failures}
	}
	return ix, nil
}
