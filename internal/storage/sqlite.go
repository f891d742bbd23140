package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/catalogger/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS corpora (
		identity TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		paper_count INTEGER NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS papers (
		corpus TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		id TEXT NOT NULL,
		title TEXT NOT NULL,
		abstract TEXT NOT NULL,
		authors TEXT NOT NULL,
		author_ids TEXT NOT NULL,
		keywords TEXT NOT NULL,
		pdf_url TEXT NOT NULL,
		PRIMARY KEY (corpus, row_index),
		FOREIGN KEY (corpus) REFERENCES corpora(identity) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveCorpus replaces the corpus stored under identity in one transaction.
func (s *SQLiteStorage) SaveCorpus(ctx context.Context, identity, source string, corpus *models.Corpus) error {
	if corpus == nil {
		return fmt.Errorf("save corpus %s: nil corpus", identity)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM papers WHERE corpus = ?`, identity); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO corpora (identity, name, source, paper_count, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE SET
		   name = excluded.name, source = excluded.source,
		   paper_count = excluded.paper_count, updated_at = excluded.updated_at`,
		identity, corpus.Name, source, corpus.Len(), time.Now().UTC(),
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (corpus, row_index, id, title, abstract, authors, author_ids, keywords, pdf_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range corpus.Papers {
		if _, err := stmt.ExecContext(ctx, identity, i,
			p.ID, p.Title, p.Abstract, p.Authors, p.AuthorIDs, p.Keywords, p.PDFURL); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LoadCorpus returns the corpus stored under identity with rows in their saved order.
func (s *SQLiteStorage) LoadCorpus(ctx context.Context, identity string) (*models.Corpus, error) {
	var corpus models.Corpus
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT name, paper_count FROM corpora WHERE identity = ?`, identity,
	).Scan(&corpus.Name, &count)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, identity)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, abstract, authors, author_ids, keywords, pdf_url
		 FROM papers WHERE corpus = ? ORDER BY row_index`, identity,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	corpus.Papers = make([]models.Paper, 0, count)
	for rows.Next() {
		var p models.Paper
		if err := rows.Scan(&p.ID, &p.Title, &p.Abstract, &p.Authors, &p.AuthorIDs, &p.Keywords, &p.PDFURL); err != nil {
			return nil, err
		}
		corpus.Papers = append(corpus.Papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(corpus.Papers) != count {
		return nil, fmt.Errorf("corpus %s: found %d rows, expected %d", identity, len(corpus.Papers), count)
	}
	return &corpus, nil
}

// DeleteCorpus removes a corpus and its papers. Deleting a missing corpus is not an error.
func (s *SQLiteStorage) DeleteCorpus(ctx context.Context, identity string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM corpora WHERE identity = ?`, identity)
	return err
}

// ListCorpora returns every cached corpus ordered by identity.
func (s *SQLiteStorage) ListCorpora(ctx context.Context) ([]CorpusInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identity, name, source, paper_count, updated_at FROM corpora ORDER BY identity`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CorpusInfo
	for rows.Next() {
		var info CorpusInfo
		if err := rows.Scan(&info.Identity, &info.Name, &info.Source, &info.Papers, &info.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// CountCorpora returns the number of cached corpora.
func (s *SQLiteStorage) CountCorpora(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpora`).Scan(&count)
	return count, err
}

// CountPapers returns the number of cached papers across all corpora.
func (s *SQLiteStorage) CountPapers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
