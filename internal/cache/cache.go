// Package cache provides the local persistent cache for portfolio content.
//
// The cache is an embedded SQLite database holding one string-keyed JSON
// blob per collection, plus the hero singleton and the auth flag. It is the
// fallback data source whenever the remote document store is unreachable or
// unconfigured, and it is refreshed on every successful remote operation.
//
// Architecture:
//   - Database file: <dataDir>/folio.db
//   - WAL mode: concurrent readers during writes
//   - Schema: kv (key/value blobs), oplog (mutation journal)
//
// A malformed blob is never fatal: reads that fail to deserialize reset the
// key to its built-in default instead of propagating the error.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ayonizm/folio/internal/model"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Cache wraps the embedded SQLite connection holding last-known snapshots.
type Cache struct {
	conn   *sql.DB
	path   string
	logger *log.Logger
}

// Open creates a cache database at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If it doesn't exist it is created along with the schema. The caller MUST
// call Close() when done.
//
// If logger is nil, a default logger writing to stderr is used.
func Open(path string, logger *log.Logger) (*Cache, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[cache] ", log.LstdFlags)
	}

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	c := &Cache{conn: conn, path: path, logger: logger}

	// WAL for concurrent reads
	if _, err := c.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := c.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := c.initSchema(context.Background()); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes the cache, checkpointing the WAL so all changes persist.
func (c *Cache) Close() error {
	if c.conn == nil {
		return nil
	}
	if _, err := c.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		c.logger.Printf("Warning: failed to checkpoint WAL: %v", err)
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}
	c.conn = nil
	return nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

func (c *Cache) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Journal of admin mutations, surfaced as the dashboard activity feed
	CREATE TABLE IF NOT EXISTS oplog (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		doc_id TEXT,
		action TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_oplog_created ON oplog(created_at);
	`
	if _, err := c.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return nil
}

// Get returns the raw value for a key. The second return is false when the
// key is absent.
func (c *Cache) Get(key string) (string, bool, error) {
	return c.GetContext(context.Background(), key)
}

// GetContext returns the raw value for a key with context support.
func (c *Cache) GetContext(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.conn.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores a raw value under a key, replacing any previous value.
func (c *Cache) Put(key, value string) error {
	return c.PutContext(context.Background(), key, value)
}

// PutContext stores a raw value with context support.
func (c *Cache) PutContext(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	_, err := c.conn.ExecContext(ctx, query, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is a no-op (idempotent).
func (c *Cache) Delete(key string) error {
	if _, err := c.conn.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

// Docs returns the cached document list for a key. A missing key is seeded
// with fallback; a malformed blob is reset to fallback rather than
// propagated, so a corrupted cache entry can never take a view down.
func (c *Cache) Docs(key string, fallback []model.Doc) []model.Doc {
	raw, ok, err := c.Get(key)
	if err != nil {
		c.logger.Printf("Error reading %s, serving defaults: %v", key, err)
		return fallback
	}
	if !ok {
		if err := c.PutDocs(key, fallback); err != nil {
			c.logger.Printf("Error seeding %s: %v", key, err)
		}
		return fallback
	}

	var docs []model.Doc
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		c.logger.Printf("Malformed cache entry %s, resetting to defaults: %v", key, err)
		if err := c.PutDocs(key, fallback); err != nil {
			c.logger.Printf("Error resetting %s: %v", key, err)
		}
		return fallback
	}
	if docs == nil {
		docs = []model.Doc{}
	}
	return docs
}

// PutDocs overwrites the cached document list for a key.
func (c *Cache) PutDocs(key string, docs []model.Doc) error {
	if docs == nil {
		docs = []model.Doc{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to marshal docs for %s: %w", key, err)
	}
	return c.Put(key, string(data))
}

// Doc returns a cached singleton document, seeding or resetting to
// fallback the same way Docs does.
func (c *Cache) Doc(key string, fallback model.Doc) model.Doc {
	raw, ok, err := c.Get(key)
	if err != nil {
		c.logger.Printf("Error reading %s, serving defaults: %v", key, err)
		return fallback.Clone()
	}
	if !ok {
		if err := c.PutDoc(key, fallback); err != nil {
			c.logger.Printf("Error seeding %s: %v", key, err)
		}
		return fallback.Clone()
	}

	var doc model.Doc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		c.logger.Printf("Malformed cache entry %s, resetting to defaults: %v", key, err)
		if err := c.PutDoc(key, fallback); err != nil {
			c.logger.Printf("Error resetting %s: %v", key, err)
		}
		return fallback.Clone()
	}
	return doc
}

// PutDoc overwrites a cached singleton document.
func (c *Cache) PutDoc(key string, doc model.Doc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal doc for %s: %w", key, err)
	}
	return c.Put(key, string(data))
}

// Seed initializes any missing collection keys and the hero singleton from
// the built-in defaults, then collapses duplicate ids. Safe to call
// repeatedly.
func (c *Cache) Seed() error {
	for _, collection := range model.Collections {
		key := model.CacheKey(collection)
		if _, ok, err := c.Get(key); err != nil {
			return err
		} else if !ok {
			if err := c.PutDocs(key, model.DefaultsFor(collection)); err != nil {
				return err
			}
		}
		if _, err := c.Clean(key); err != nil {
			return err
		}
	}
	if _, ok, err := c.Get(model.KeyHero); err != nil {
		return err
	} else if !ok {
		if err := c.PutDoc(model.KeyHero, model.DefaultHero); err != nil {
			return err
		}
	}
	return nil
}

// Reset overwrites every collection key and the hero singleton with the
// built-in defaults, discarding whatever is cached.
func (c *Cache) Reset() error {
	for _, collection := range model.Collections {
		if err := c.PutDocs(model.CacheKey(collection), model.DefaultsFor(collection)); err != nil {
			return err
		}
	}
	return c.PutDoc(model.KeyHero, model.DefaultHero)
}

// Clean collapses a cached collection down to one entry per unique id,
// last seen wins, and persists the result. Returns the number of entries
// removed. Running it twice removes nothing the second time.
func (c *Cache) Clean(key string) (int, error) {
	raw, ok, err := c.Get(key)
	if err != nil || !ok {
		return 0, err
	}

	var docs []model.Doc
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		// Corrupted blobs are handled by Docs(); nothing to dedup here.
		return 0, nil
	}

	seen := make(map[string]int) // id -> index in unique
	unique := make([]model.Doc, 0, len(docs))
	for _, d := range docs {
		id := d.ID()
		if idx, dup := seen[id]; dup && id != "" {
			unique[idx] = d // last wins
			continue
		}
		seen[id] = len(unique)
		unique = append(unique, d)
	}

	removed := len(docs) - len(unique)
	if removed == 0 {
		return 0, nil
	}
	if err := c.PutDocs(key, unique); err != nil {
		return 0, err
	}
	return removed, nil
}

// Op is a single entry in the mutation journal.
type Op struct {
	Seq        int64     `json:"seq"`
	Collection string    `json:"collection"`
	DocID      string    `json:"doc_id,omitempty"`
	Action     string    `json:"action"` // created, updated, deleted, cleaned
	CreatedAt  time.Time `json:"created_at"`
}

// AppendOp records a mutation in the journal.
func (c *Cache) AppendOp(collection, docID, action string) error {
	_, err := c.conn.Exec(
		"INSERT INTO oplog (collection, doc_id, action, created_at) VALUES (?, ?, ?, ?)",
		collection, docID, action, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append oplog entry: %w", err)
	}
	return nil
}

// RecentOps returns the newest journal entries, most recent first.
func (c *Cache) RecentOps(limit int) ([]Op, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.conn.Query(
		"SELECT seq, collection, doc_id, action, created_at FROM oplog ORDER BY seq DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query oplog: %w", err)
	}
	defer rows.Close()

	var ops []Op
	for rows.Next() {
		var op Op
		var docID sql.NullString
		var createdAt string
		if err := rows.Scan(&op.Seq, &op.Collection, &docID, &op.Action, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan oplog entry: %w", err)
		}
		op.DocID = docID.String
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			op.CreatedAt = t
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating oplog: %w", err)
	}
	return ops, nil
}
