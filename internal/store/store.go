// Package store provides the data synchronizer that mediates between the
// remote document store, the local cache, and live subscribers.
//
// Every mutation writes through to the remote store (best effort) and
// always writes to the local cache; every read prefers the remote store and
// falls back to the cache. Remote unavailability is never fatal: the
// write path degrades to cache-only persistence and the read path serves
// the last cached snapshot, seeded from built-in defaults on a cold start.
//
// Cross-view consistency comes from a subscription mechanism that delivers
// the full current collection to every registered observer after each
// change. With a remote store configured that is a remote live query; in
// cache-only mode it is an in-process bus plus a filesystem change signal
// that lets independent processes sharing a data directory converge.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ayonizm/folio/internal/cache"
	"github.com/ayonizm/folio/internal/model"
)

// ErrNotFound reports an update or delete against an id that is absent
// from the local cache.
var ErrNotFound = errors.New("document not found")

// Remote is the contract the synchronizer consumes from the remote
// document store. *remote.Store satisfies it; tests substitute fakes.
type Remote interface {
	List(ctx context.Context, collection string) ([]model.Doc, error)
	Add(ctx context.Context, collection string, doc model.Doc) (string, error)
	Update(ctx context.Context, collection, id string, patch model.Doc) error
	Delete(ctx context.Context, collection, id string) error
	GetSingleton(ctx context.Context, ns, key string) (model.Doc, bool, error)
	SetSingleton(ctx context.Context, ns, key string, doc model.Doc) error
	Subscribe(collection string, callback func([]model.Doc)) func()
}

// Options configures a Store.
type Options struct {
	// Cache is the local persistent cache (required).
	Cache *cache.Cache

	// Remote is the remote document store, nil when unconfigured.
	// Resolved once at startup, never probed at call time.
	Remote Remote

	// EventsDir enables cross-process change signalling when set: each
	// mutation touches a marker file there, and a watcher picks up
	// markers written by other processes. Ignored when Remote is set
	// (the remote live query already propagates changes).
	EventsDir string

	// AdminPassword is the single admin secret for Login.
	AdminPassword string

	// Logger for synchronizer activity. If nil, a default logger
	// writing to stderr is used.
	Logger *log.Logger
}

// Store synchronizes portfolio content between the remote store, the local
// cache, and subscribers. Construct with New; the zero value is not usable.
type Store struct {
	cache         *cache.Cache
	remote        Remote
	adminPassword string
	logger        *log.Logger

	bus *bus

	// cross-process change signal (cache-only mode)
	signals *signalWatcher

	// monotonic time-based id generation
	idMu   sync.Mutex
	lastID int64
}

// New creates a Store. When EventsDir is set and no remote store is
// configured, a filesystem watcher is started; Close releases it.
func New(opts Options) (*Store, error) {
	if opts.Cache == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}

	s := &Store{
		cache:         opts.Cache,
		remote:        opts.Remote,
		adminPassword: opts.AdminPassword,
		logger:        logger,
		bus:           newBus(),
	}

	if opts.Remote == nil && opts.EventsDir != "" {
		sw, err := newSignalWatcher(opts.EventsDir, s.onRemoteSignal, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to start change signal watcher: %w", err)
		}
		s.signals = sw
	}

	if err := opts.Cache.Seed(); err != nil {
		if s.signals != nil {
			_ = s.signals.Close()
		}
		return nil, fmt.Errorf("failed to seed cache: %w", err)
	}

	return s, nil
}

// Close stops the change signal watcher, if any.
func (s *Store) Close() error {
	if s.signals != nil {
		return s.signals.Close()
	}
	return nil
}

// List returns the current contents of a collection. On a successful
// remote read the local cache is overwritten with the result; on failure
// or when no remote store is configured, the cached snapshot is served.
// Remote failure is logged, never surfaced.
func (s *Store) List(ctx context.Context, collection string) []model.Doc {
	key := model.CacheKey(collection)
	if s.remote != nil {
		docs, err := s.remote.List(ctx, collection)
		if err == nil {
			if err := s.cache.PutDocs(key, docs); err != nil {
				s.logger.Printf("Error caching %s: %v", collection, err)
			}
			return docs
		}
		s.logger.Printf("Remote list failed for %s, falling back to cache: %v", collection, err)
	}
	return s.cache.Docs(key, model.DefaultsFor(collection))
}

// Create stores a new document. The remote write is best effort: when it
// succeeds the remote-generated id wins, otherwise a time-based id is
// assigned and the failure is logged. The document is unconditionally
// appended to the local cache before Create returns, and all subscribers
// are notified.
func (s *Store) Create(ctx context.Context, collection string, doc model.Doc) (model.Doc, error) {
	if err := model.ValidateDoc(collection, doc); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}

	id := s.nextID()
	if s.remote != nil {
		remoteID, err := s.remote.Add(ctx, collection, doc)
		if err != nil {
			s.logger.Printf("Remote add failed for %s: %v", collection, err)
		} else {
			id = remoteID
		}
	}

	stored := doc.WithID(id)
	key := model.CacheKey(collection)
	docs := append(s.cache.Docs(key, model.DefaultsFor(collection)), stored)
	if err := s.cache.PutDocs(key, docs); err != nil {
		return nil, fmt.Errorf("failed to persist %s: %w", collection, err)
	}

	s.journal(collection, id, "created")
	s.notify(collection, docs)
	return stored, nil
}

// Update merges a patch into the document matching id. The remote partial
// write is best effort; the cache merge is unconditional. An absent id is
// a no-op returning ErrNotFound with a logged miss.
func (s *Store) Update(ctx context.Context, collection, id string, patch model.Doc) (model.Doc, error) {
	if s.remote != nil {
		if err := s.remote.Update(ctx, collection, id, patch); err != nil {
			s.logger.Printf("Remote update failed for %s/%s: %v", collection, id, err)
		}
	}

	key := model.CacheKey(collection)
	docs := s.cache.Docs(key, model.DefaultsFor(collection))
	idx := -1
	for i, d := range docs {
		if d.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.logger.Printf("Update miss: %s/%s not in cache", collection, id)
		return nil, ErrNotFound
	}

	merged := docs[idx].Merge(patch)
	docs[idx] = merged
	if err := s.cache.PutDocs(key, docs); err != nil {
		return nil, fmt.Errorf("failed to persist %s: %w", collection, err)
	}

	s.journal(collection, id, "updated")
	s.notify(collection, docs)
	return merged, nil
}

// Delete removes the document matching id. The remote delete is best
// effort; the cache removal is unconditional and deleting an absent id is
// a no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if s.remote != nil {
		if err := s.remote.Delete(ctx, collection, id); err != nil {
			s.logger.Printf("Remote delete failed for %s/%s: %v", collection, id, err)
		}
	}

	key := model.CacheKey(collection)
	docs := s.cache.Docs(key, model.DefaultsFor(collection))
	kept := docs[:0]
	for _, d := range docs {
		if d.ID() != id {
			kept = append(kept, d)
		}
	}
	if err := s.cache.PutDocs(key, kept); err != nil {
		return fmt.Errorf("failed to persist %s: %w", collection, err)
	}

	s.journal(collection, id, "deleted")
	s.notify(collection, kept)
	return nil
}

// Hero returns the hero profile. Field resolution never yields nulls: the
// cached or remote document is merged over the built-in default.
func (s *Store) Hero(ctx context.Context) model.Doc {
	if s.remote != nil {
		doc, ok, err := s.remote.GetSingleton(ctx, model.SingletonNamespace, model.SingletonHero)
		if err != nil {
			s.logger.Printf("Remote hero read failed, falling back to cache: %v", err)
		} else if ok {
			if err := s.cache.PutDoc(model.KeyHero, doc); err != nil {
				s.logger.Printf("Error caching hero: %v", err)
			}
			return model.DefaultHero.Merge(doc)
		}
	}
	return model.DefaultHero.Merge(s.cache.Doc(model.KeyHero, model.DefaultHero))
}

// UpdateHero merges a patch into the hero profile. The merged document is
// written to the remote store (best effort) and unconditionally cached,
// then hero subscribers are notified.
func (s *Store) UpdateHero(ctx context.Context, patch model.Doc) (model.Doc, error) {
	current := s.cache.Doc(model.KeyHero, model.DefaultHero)
	merged := current.Merge(patch)

	if s.remote != nil {
		if err := s.remote.SetSingleton(ctx, model.SingletonNamespace, model.SingletonHero, merged); err != nil {
			s.logger.Printf("Remote hero write failed: %v", err)
		}
	}

	if err := s.cache.PutDoc(model.KeyHero, merged); err != nil {
		return nil, fmt.Errorf("failed to persist hero: %w", err)
	}

	s.journal(model.SingletonHero, "", "updated")
	s.bus.notifyHero(merged)
	if s.signals != nil {
		s.signals.Emit(model.SingletonHero)
	}
	return merged, nil
}

// Subscribe registers a callback that receives the full current collection
// after every change. With a remote store configured this attaches a
// remote live query that also refreshes the cache as a side effect;
// otherwise changes from this process and from other processes sharing the
// data directory are delivered through the bus and the filesystem signal.
// The returned unsubscribe function is idempotent.
func (s *Store) Subscribe(collection string, callback func([]model.Doc)) func() {
	if s.remote != nil {
		return s.remote.Subscribe(collection, func(docs []model.Doc) {
			if err := s.cache.PutDocs(model.CacheKey(collection), docs); err != nil {
				s.logger.Printf("Error caching %s from live query: %v", collection, err)
			}
			callback(docs)
		})
	}
	return s.bus.subscribe(collection, callback)
}

// SubscribeHero registers a callback for hero profile changes. Only local
// and cross-process updates are delivered; remote hero edits surface on
// the next Hero read.
func (s *Store) SubscribeHero(callback func(model.Doc)) func() {
	return s.bus.subscribeHero(callback)
}

// notify delivers the new collection snapshot to in-process subscribers
// and signals other processes. Called after every cache write.
func (s *Store) notify(collection string, docs []model.Doc) {
	s.bus.notify(collection, docs)
	if s.signals != nil {
		s.signals.Emit(collection)
	}
}

// onRemoteSignal handles a change marker written by another process:
// re-read the collection from the shared cache and fan out locally.
func (s *Store) onRemoteSignal(topic string) {
	if topic == model.SingletonHero {
		s.bus.notifyHero(s.cache.Doc(model.KeyHero, model.DefaultHero))
		return
	}
	docs := s.cache.Docs(model.CacheKey(topic), model.DefaultsFor(topic))
	s.bus.notify(topic, docs)
}

// journal records a mutation in the oplog; failures only log.
func (s *Store) journal(collection, id, action string) {
	if err := s.cache.AppendOp(collection, id, action); err != nil {
		s.logger.Printf("Error journaling %s %s: %v", action, collection, err)
	}
}

// ResetCache drops all cached content, reseeds the defaults, and
// notifies subscribers. The remote store is not touched.
func (s *Store) ResetCache() error {
	if err := s.cache.Reset(); err != nil {
		return fmt.Errorf("failed to reset cache: %w", err)
	}
	if err := s.cache.Seed(); err != nil {
		return fmt.Errorf("failed to reseed cache: %w", err)
	}
	for _, collection := range model.Collections {
		s.notify(collection, s.cache.Docs(model.CacheKey(collection), model.DefaultsFor(collection)))
	}
	s.bus.notifyHero(s.cache.Doc(model.KeyHero, model.DefaultHero))
	s.journal("all", "", "reset")
	return nil
}

// RecentActivity returns the newest mutation journal entries.
func (s *Store) RecentActivity(limit int) ([]cache.Op, error) {
	return s.cache.RecentOps(limit)
}

// nextID generates a unique millisecond-resolution id for cache-only
// creates. Monotonic even when two creates land in the same millisecond.
func (s *Store) nextID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}
