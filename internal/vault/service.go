// Package vault manages a user's document set and keeps the per-user vector
// index consistent with it. Any change in document membership triggers a full
// index rebuild; the index is never patched in place.
package vault

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"vault-rag/internal/apperr"
	"vault-rag/internal/db"
	"vault-rag/internal/index"
	"vault-rag/internal/loader"
	"vault-rag/internal/models"
	"vault-rag/internal/storage"
)

// Store is the slice of the database layer the vault depends on.
type Store interface {
	CreateDocument(ctx context.Context, doc *db.Document) error
	GetDocument(ctx context.Context, id, userID int64) (*db.Document, error)
	UserDocuments(ctx context.Context, userID int64) ([]db.Document, error)
	ProcessedDocuments(ctx context.Context, userID int64) ([]db.Document, error)
	SetProcessed(ctx context.Context, id int64, processed bool) error
	DeleteDocument(ctx context.Context, id, userID int64) error
}

type Service struct {
	store    Store
	files    storage.FileStore
	manager  *index.Manager
	registry *index.Registry
	loader   *loader.Loader
}

func NewService(store Store, files storage.FileStore, manager *index.Manager, registry *index.Registry, ldr *loader.Loader) *Service {
	return &Service{store: store, files: files, manager: manager, registry: registry, loader: ldr}
}

// RebuildReport summarizes an index rebuild for the caller.
type RebuildReport struct {
	DocumentsProcessed int                      `json:"documents_processed"`
	DocumentsFailed    int                      `json:"documents_failed"`
	TotalFragments     int                      `json:"total_fragments"`
	FailedFiles        []apperr.DocumentFailure `json:"failed_files,omitempty"`
}

// Upload stores a document and rebuilds the user's index so the new file is
// immediately retrievable. The document row stays unprocessed when its own
// content could not be loaded, without failing the upload of the bytes.
func (s *Service) Upload(ctx context.Context, userID int64, filename string, content []byte) (*db.Document, error) {
	if loader.FileType(filename) == "unknown" {
		return nil, apperr.Validation("unsupported file type: %s", filename)
	}
	if len(content) == 0 {
		return nil, apperr.Validation("uploaded file is empty")
	}

	path, err := s.files.Save(userID, filename, content)
	if err != nil {
		return nil, err
	}
	doc := &db.Document{
		UserID:   userID,
		Filename: filename,
		Filepath: path,
		FileType: loader.FileType(filename),
		FileSize: int64(len(content)),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	report, err := s.rebuild(ctx, userID, false)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("index rebuild after upload failed")
		return doc, nil
	}

	// rebuild already flipped the processed flags, including this row's
	doc.Processed = !failedFor(report.FailedFiles, filename)
	return doc, nil
}

// Delete removes a document and regenerates the index from the remaining
// ones, so the deleted document leaves no fragments behind. Deleting the
// last document tears the index down entirely.
func (s *Service) Delete(ctx context.Context, userID, docID int64) error {
	doc, err := s.store.GetDocument(ctx, docID, userID)
	if err != nil {
		return err
	}
	if err := s.files.Delete(doc.Filepath); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, docID, userID); err != nil {
		return err
	}

	remaining, err := s.store.UserDocuments(ctx, userID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return s.registry.Update(userID, func() (*index.Index, error) {
			_, err := s.manager.Delete(userID)
			return nil, err
		})
	}
	_, err = s.rebuild(ctx, userID, false)
	return err
}

func (s *Service) List(ctx context.Context, userID int64) ([]db.Document, error) {
	return s.store.UserDocuments(ctx, userID)
}

// RebuildIndex regenerates the user's index from its processed documents.
func (s *Service) RebuildIndex(ctx context.Context, userID int64) (*RebuildReport, error) {
	return s.rebuild(ctx, userID, true)
}

// rebuild regenerates the index under the user's exclusive lock. With
// processedOnly false every stored document participates, which is how a
// just-uploaded, not-yet-processed file enters the index. Every document's
// processed flag is reconciled with the rebuild outcome, so a document that
// loads on a later rebuild stays in the index across restarts.
func (s *Service) rebuild(ctx context.Context, userID int64, processedOnly bool) (*RebuildReport, error) {
	report := &RebuildReport{}
	err := s.registry.Update(userID, func() (*index.Index, error) {
		sources, docs, failures, err := s.sources(ctx, userID, processedOnly)
		if err != nil {
			return nil, err
		}
		report.FailedFiles = failures
		if len(sources) == 0 && len(failures) == 0 {
			_, err := s.manager.Delete(userID)
			return nil, err
		}

		ix, err := s.manager.Rebuild(ctx, userID, sources)
		var partial *apperr.PartialFailure
		if errors.As(err, &partial) {
			report.FailedFiles = append(report.FailedFiles, partial.Failed...)
			err = nil
		}
		if err != nil {
			return nil, err
		}
		report.DocumentsProcessed = len(docs) - len(report.FailedFiles)
		report.TotalFragments = ix.Count()
		s.reconcileProcessed(ctx, docs, report.FailedFiles)
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	report.DocumentsFailed = len(report.FailedFiles)
	return report, nil
}

// reconcileProcessed flips each document's processed flag to whether it made
// it into the index this rebuild.
func (s *Service) reconcileProcessed(ctx context.Context, docs []db.Document, failures []apperr.DocumentFailure) {
	for _, doc := range docs {
		ok := !failedFor(failures, doc.Filename)
		if doc.Processed == ok {
			continue
		}
		if err := s.store.SetProcessed(ctx, doc.ID, ok); err != nil {
			log.Error().Err(err).Str("filename", doc.Filename).Msg("updating processed flag")
		}
	}
}

// sources loads the raw bytes for the user's documents, recording byte-load
// failures per document instead of aborting.
func (s *Service) sources(ctx context.Context, userID int64, processedOnly bool) ([]index.Source, []db.Document, []apperr.DocumentFailure, error) {
	var docs []db.Document
	var err error
	if processedOnly {
		docs, err = s.store.ProcessedDocuments(ctx, userID)
	} else {
		docs, err = s.store.UserDocuments(ctx, userID)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	var sources []index.Source
	var failures []apperr.DocumentFailure
	for _, doc := range docs {
		content, err := s.files.LoadBytes(doc.Filepath)
		if err != nil {
			log.Error().Err(err).Str("filename", doc.Filename).Msg("cannot read stored document")
			failures = append(failures, apperr.DocumentFailure{Filename: doc.Filename, Reason: err.Error()})
			continue
		}
		sources = append(sources, index.Source{Filename: doc.Filename, Content: content})
	}
	return sources, docs, failures, nil
}

// EnsureIndex returns the user's index, loading it from the vector store or
// rebuilding it from source documents when it is not resident. The returned
// release func ends the read hold; rebuilds for the same user block until
// every read hold is released.
func (s *Service) EnsureIndex(ctx context.Context, userID int64) (*index.Index, func(), error) {
	ix, state, release := s.registry.Get(userID)
	if state == index.StateReady && ix != nil {
		return ix, release, nil
	}
	release()

	err := s.registry.Update(userID, func() (*index.Index, error) {
		if ix := s.manager.Load(userID); ix != nil {
			return ix, nil
		}
		sources, _, _, err := s.sources(ctx, userID, true)
		if err != nil {
			return nil, err
		}
		if len(sources) == 0 {
			return nil, apperr.NotFound("upload files to your vault first to use document-based chat")
		}
		ix, err := s.manager.Rebuild(ctx, userID, sources)
		var partial *apperr.PartialFailure
		if errors.As(err, &partial) {
			for _, f := range partial.Failed {
				log.Warn().Str("filename", f.Filename).Str("reason", f.Reason).Msg("document skipped during index load")
			}
			err = nil
		}
		return ix, err
	})
	if err != nil {
		return nil, nil, err
	}

	ix, state, release = s.registry.Get(userID)
	if state != index.StateReady || ix == nil {
		release()
		return nil, nil, apperr.NotFound("upload files to your vault first to use document-based chat")
	}
	return ix, release, nil
}

// HasIndex reports whether an index is resident or persisted for the user.
func (s *Service) HasIndex(userID int64) bool {
	ix, state, release := s.registry.Get(userID)
	defer release()
	if state == index.StateReady && ix != nil {
		return true
	}
	return s.manager.Load(userID) != nil
}

// CurrentDocument resolves the document keyword searches run against: the
// requested id, or the most recently uploaded processed document.
func (s *Service) CurrentDocument(ctx context.Context, userID, docID int64) (*db.Document, error) {
	if docID > 0 {
		return s.store.GetDocument(ctx, docID, userID)
	}
	docs, err := s.store.UserDocuments(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.Processed {
			return &doc, nil
		}
	}
	return nil, apperr.NotFound("no document uploaded, please upload a document first")
}

// DocumentFragments loads and fragments one document for keyword search,
// bypassing the vector index entirely.
func (s *Service) DocumentFragments(ctx context.Context, doc *db.Document) ([]models.Fragment, error) {
	content, err := s.files.LoadBytes(doc.Filepath)
	if err != nil {
		return nil, err
	}
	return s.loader.Load(content, doc.Filename)
}

// WarmLoad makes indexes resident for every user with processed documents.
// Called at startup; per-user failures are logged and skipped so one broken
// vault never blocks the process from starting.
func (s *Service) WarmLoad(ctx context.Context, userIDs []int64) {
	for _, userID := range userIDs {
		_, release, err := s.EnsureIndex(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("could not warm-load index")
			continue
		}
		release()
		log.Info().Int64("user_id", userID).Msg("index warm-loaded")
	}
}

func failedFor(failures []apperr.DocumentFailure, filename string) bool {
	for _, f := range failures {
		if f.Filename == filename {
			return true
		}
	}
	return false
}
