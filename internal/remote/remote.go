// Package remote wraps the remote document database (a hosted libSQL
// instance) behind the collection/document contract the synchronizer
// consumes: list, add, update, delete, singleton get/set, and subscribe.
//
// The adapter stores each document as a JSON blob keyed by (collection, id)
// and keeps a per-collection revision counter so subscribers can detect
// changes with cheap polling instead of re-reading every collection.
//
// Whether a remote store exists at all is decided once at startup from
// configuration; callers hold a nil *Store when it doesn't.
package remote

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ayonizm/folio/internal/model"
	_ "github.com/tursodatabase/go-libsql"
)

// Config identifies the remote database. A nil Config means no remote
// store is configured and the synchronizer runs cache-only.
type Config struct {
	// URL is the libsql database URL, e.g. libsql://folio-user.turso.io
	URL string
	// AuthToken authenticates against the hosted database.
	AuthToken string
	// PollInterval is how often Subscribe checks for remote changes
	// (default 3s).
	PollInterval time.Duration
}

// Store is a connected remote document store.
type Store struct {
	conn   *sql.DB
	logger *log.Logger
	poll   time.Duration
}

// Connect opens the remote database and ensures the schema exists.
//
// If logger is nil, a default logger writing to stderr is used.
func Connect(cfg *Config, logger *log.Logger) (*Store, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("remote store is not configured")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}

	dsn := cfg.URL
	if cfg.AuthToken != "" {
		dsn = fmt.Sprintf("%s?authToken=%s", cfg.URL, cfg.AuthToken)
	}

	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetConnMaxIdleTime(time.Minute)

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 3 * time.Second
	}

	s := &Store{conn: conn, logger: logger, poll: poll}
	if err := s.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the remote connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close remote database: %w", err)
	}
	s.conn = nil
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS docs (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE TABLE IF NOT EXISTS singletons (
		ns TEXT NOT NULL,
		key TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (ns, key)
	);

	-- Bumped on every write; lets subscribers poll cheaply
	CREATE TABLE IF NOT EXISTS revisions (
		collection TEXT PRIMARY KEY,
		rev INTEGER NOT NULL DEFAULT 0
	);
	`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize remote schema: %w", err)
	}
	return nil
}

func (s *Store) bumpRevision(ctx context.Context, collection string) {
	query := `
	INSERT INTO revisions (collection, rev) VALUES (?, 1)
	ON CONFLICT(collection) DO UPDATE SET rev = rev + 1
	`
	if _, err := s.conn.ExecContext(ctx, query, collection); err != nil {
		s.logger.Printf("Warning: failed to bump revision for %s: %v", collection, err)
	}
}

// Revision returns the current change counter for a collection.
func (s *Store) Revision(ctx context.Context, collection string) (int64, error) {
	var rev int64
	err := s.conn.QueryRowContext(ctx,
		"SELECT rev FROM revisions WHERE collection = ?", collection).Scan(&rev)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read revision for %s: %w", collection, err)
	}
	return rev, nil
}

// List returns every document in a collection.
func (s *Store) List(ctx context.Context, collection string) ([]model.Doc, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT id, data FROM docs WHERE collection = ? ORDER BY updated_at ASC", collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []model.Doc{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		var doc model.Doc
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to parse document %s/%s: %w", collection, id, err)
		}
		docs = append(docs, doc.WithID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", collection, err)
	}
	return docs, nil
}

// Add stores a new document and returns its generated id.
func (s *Store) Add(ctx context.Context, collection string, doc model.Doc) (string, error) {
	id := newDocID()
	data, err := json.Marshal(doc.WithID(id))
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		"INSERT INTO docs (collection, id, data, updated_at) VALUES (?, ?, ?, ?)",
		collection, id, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to add document to %s: %w", collection, err)
	}

	s.bumpRevision(ctx, collection)
	return id, nil
}

// Update applies a merge patch to an existing document. Updating an absent
// id returns an error so the caller can log the miss.
func (s *Store) Update(ctx context.Context, collection, id string, patch model.Doc) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM docs WHERE collection = ? AND id = ?", collection, id).Scan(&data)
	if err == sql.ErrNoRows {
		return fmt.Errorf("document %s/%s not found", collection, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read document %s/%s: %w", collection, id, err)
	}

	var doc model.Doc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return fmt.Errorf("failed to parse document %s/%s: %w", collection, id, err)
	}

	merged, err := json.Marshal(doc.Merge(patch))
	if err != nil {
		return fmt.Errorf("failed to marshal merged document: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE docs SET data = ?, updated_at = ? WHERE collection = ? AND id = ?",
		string(merged), time.Now().UTC().Format(time.RFC3339), collection, id)
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update: %w", err)
	}

	s.bumpRevision(ctx, collection)
	return nil
}

// Delete removes a document. Deleting an absent id is a no-op (idempotent).
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.conn.ExecContext(ctx,
		"DELETE FROM docs WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	s.bumpRevision(ctx, collection)
	return nil
}

// GetSingleton reads a singleton document. The second return is false when
// the document doesn't exist yet.
func (s *Store) GetSingleton(ctx context.Context, ns, key string) (model.Doc, bool, error) {
	var data string
	err := s.conn.QueryRowContext(ctx,
		"SELECT data FROM singletons WHERE ns = ? AND key = ?", ns, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read singleton %s/%s: %w", ns, key, err)
	}

	var doc model.Doc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, false, fmt.Errorf("failed to parse singleton %s/%s: %w", ns, key, err)
	}
	return doc, true, nil
}

// SetSingleton replaces a singleton document wholesale.
func (s *Store) SetSingleton(ctx context.Context, ns, key string, doc model.Doc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal singleton: %w", err)
	}

	query := `
	INSERT INTO singletons (ns, key, data, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(ns, key) DO UPDATE SET
		data = excluded.data,
		updated_at = excluded.updated_at
	`
	_, err = s.conn.ExecContext(ctx, query, ns, key, string(data),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set singleton %s/%s: %w", ns, key, err)
	}

	s.bumpRevision(ctx, ns+"/"+key)
	return nil
}

// Subscribe attaches a live query to a collection: callback receives the
// full current collection whenever the remote revision counter moves.
// Returns an unsubscribe function; calling it more than once is safe.
func (s *Store) Subscribe(collection string, callback func([]model.Doc)) func() {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()

		var lastRev int64 = -1
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), s.poll)
				rev, err := s.Revision(ctx, collection)
				if err != nil {
					cancel()
					s.logger.Printf("Subscribe poll failed for %s: %v", collection, err)
					continue
				}
				if rev == lastRev {
					cancel()
					continue
				}
				docs, err := s.List(ctx, collection)
				cancel()
				if err != nil {
					s.logger.Printf("Subscribe read failed for %s: %v", collection, err)
					continue
				}
				lastRev = rev
				callback(docs)
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// newDocID generates a random 20-character document id, the way hosted
// document stores do.
func newDocID() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 20)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}
