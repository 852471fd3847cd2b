package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"vault-rag/internal/config"
)

// Document is a vault file's metadata row. The raw bytes live in the file
// store; this row's id and filepath are the join keys used when rebuilding a
// user's index.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID     int64     `bun:"user_id,notnull" json:"user_id"`
	Filename   string    `bun:"filename,notnull" json:"filename"`
	Filepath   string    `bun:"filepath,notnull" json:"-"`
	FileType   string    `bun:"file_type,notnull" json:"file_type"`
	FileSize   int64     `bun:"file_size" json:"file_size"`
	UploadedAt time.Time `bun:"uploaded_at,nullzero,default:current_timestamp" json:"uploaded_at"`
	Processed  bool      `bun:"processed" json:"processed"`
}

// ChatTurn is one completed chat exchange, append-only. Citations are stored
// as a JSON blob, never as rows of their own.
type ChatTurn struct {
	bun.BaseModel `bun:"table:chat_history,alias:ch"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID    int64     `bun:"user_id,notnull" json:"user_id"`
	Query     string    `bun:"query,notnull" json:"query"`
	Response  string    `bun:"response,notnull" json:"response"`
	Mode      string    `bun:"mode,notnull,default:'rag'" json:"mode"`
	Citations string    `bun:"citations" json:"citations,omitempty"`
	PDFURL    string    `bun:"pdf_url" json:"pdf_url,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

// KeywordSearch is the audit row written per keyword search.
type KeywordSearch struct {
	bun.BaseModel `bun:"table:keyword_searches,alias:ks"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	DocumentID  int64     `bun:"document_id" json:"document_id"`
	Keyword     string    `bun:"keyword,notnull" json:"keyword"`
	Occurrences int       `bun:"occurrences" json:"occurrences"`
	Locations   string    `bun:"locations" json:"-"`
	SearchedAt  time.Time `bun:"searched_at,nullzero,default:current_timestamp" json:"searched_at"`
}

func Connect(cfg config.DatabaseConfig) *bun.DB {
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func Init(ctx context.Context, db *bun.DB) error {
	models := []any{(*Document)(nil), (*ChatTurn)(nil), (*KeywordSearch)(nil)}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
