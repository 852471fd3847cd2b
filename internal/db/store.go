package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"vault-rag/internal/apperr"
)

// Store wraps the document, chat and keyword-search tables.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store { return &Store{db: db} }

func (s *Store) CreateDocument(ctx context.Context, doc *Document) error {
	_, err := s.db.NewInsert().Model(doc).Exec(ctx)
	return err
}

func (s *Store) GetDocument(ctx context.Context, id, userID int64) (*Document, error) {
	doc := new(Document)
	err := s.db.NewSelect().Model(doc).
		Where("d.id = ?", id).
		Where("d.user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("document %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UserDocuments lists every document a user owns, newest upload first.
func (s *Store) UserDocuments(ctx context.Context, userID int64) ([]Document, error) {
	var docs []Document
	err := s.db.NewSelect().Model(&docs).
		Where("d.user_id = ?", userID).
		OrderExpr("d.uploaded_at DESC").
		Scan(ctx)
	return docs, err
}

// ProcessedDocuments lists the documents that are part of the user's index.
func (s *Store) ProcessedDocuments(ctx context.Context, userID int64) ([]Document, error) {
	var docs []Document
	err := s.db.NewSelect().Model(&docs).
		Where("d.user_id = ?", userID).
		Where("d.processed = TRUE").
		OrderExpr("d.uploaded_at ASC").
		Scan(ctx)
	return docs, err
}

// UsersWithProcessedDocuments lists the user ids whose indexes should be
// warm-loaded at startup.
func (s *Store) UsersWithProcessedDocuments(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().Model((*Document)(nil)).
		ColumnExpr("DISTINCT d.user_id").
		Where("d.processed = TRUE").
		Scan(ctx, &ids)
	return ids, err
}

func (s *Store) SetProcessed(ctx context.Context, id int64, processed bool) error {
	_, err := s.db.NewUpdate().Model((*Document)(nil)).
		Set("processed = ?", processed).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (s *Store) DeleteDocument(ctx context.Context, id, userID int64) error {
	res, err := s.db.NewDelete().Model((*Document)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("document %d not found", id)
	}
	return nil
}

// AppendChatTurn records one completed turn. Turns are never updated.
func (s *Store) AppendChatTurn(ctx context.Context, turn *ChatTurn) error {
	_, err := s.db.NewInsert().Model(turn).Exec(ctx)
	return err
}

// ChatHistory returns a user's turns newest first, paginated by skip/limit.
func (s *Store) ChatHistory(ctx context.Context, userID int64, skip, limit int) ([]ChatTurn, error) {
	if limit <= 0 {
		limit = 50
	}
	var turns []ChatTurn
	err := s.db.NewSelect().Model(&turns).
		Where("ch.user_id = ?", userID).
		OrderExpr("ch.created_at DESC").
		Offset(skip).
		Limit(limit).
		Scan(ctx)
	return turns, err
}

func (s *Store) RecordKeywordSearch(ctx context.Context, search *KeywordSearch) error {
	_, err := s.db.NewInsert().Model(search).Exec(ctx)
	return err
}
