package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ayonizm/folio/internal/cache"
	"github.com/ayonizm/folio/internal/model"
)

// setupStore creates a cache-only store backed by a temporary database.
func setupStore(t *testing.T) *Store {
	t.Helper()

	c, err := cache.Open(filepath.Join(t.TempDir(), "folio.db"), testLogger())
	if err != nil {
		t.Fatalf("failed to open test cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	s, err := New(Options{Cache: c, AdminPassword: "hunter2", Logger: testLogger()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupStoreWithRemote(t *testing.T, r Remote) *Store {
	t.Helper()

	c, err := cache.Open(filepath.Join(t.TempDir(), "folio.db"), testLogger())
	if err != nil {
		t.Fatalf("failed to open test cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	s, err := New(Options{Cache: c, Remote: r, AdminPassword: "hunter2", Logger: testLogger()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[test] ", 0)
}

// fakeRemote is an in-memory Remote for exercising the write-through and
// fallback paths without a live database.
type fakeRemote struct {
	docs      map[string][]model.Doc
	singleton map[string]model.Doc
	nextID    int
	failAll   bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		docs:      make(map[string][]model.Doc),
		singleton: make(map[string]model.Doc),
	}
}

func (f *fakeRemote) List(ctx context.Context, collection string) ([]model.Doc, error) {
	if f.failAll {
		return nil, errors.New("remote unavailable")
	}
	out := make([]model.Doc, len(f.docs[collection]))
	copy(out, f.docs[collection])
	return out, nil
}

func (f *fakeRemote) Add(ctx context.Context, collection string, doc model.Doc) (string, error) {
	if f.failAll {
		return "", errors.New("remote unavailable")
	}
	f.nextID++
	id := fmt.Sprintf("remote_%d", f.nextID)
	f.docs[collection] = append(f.docs[collection], doc.WithID(id))
	return id, nil
}

func (f *fakeRemote) Update(ctx context.Context, collection, id string, patch model.Doc) error {
	if f.failAll {
		return errors.New("remote unavailable")
	}
	for i, d := range f.docs[collection] {
		if d.ID() == id {
			f.docs[collection][i] = d.Merge(patch)
			return nil
		}
	}
	return fmt.Errorf("document %s/%s not found", collection, id)
}

func (f *fakeRemote) Delete(ctx context.Context, collection, id string) error {
	if f.failAll {
		return errors.New("remote unavailable")
	}
	kept := f.docs[collection][:0]
	for _, d := range f.docs[collection] {
		if d.ID() != id {
			kept = append(kept, d)
		}
	}
	f.docs[collection] = kept
	return nil
}

func (f *fakeRemote) GetSingleton(ctx context.Context, ns, key string) (model.Doc, bool, error) {
	if f.failAll {
		return nil, false, errors.New("remote unavailable")
	}
	doc, ok := f.singleton[ns+"/"+key]
	return doc, ok, nil
}

func (f *fakeRemote) SetSingleton(ctx context.Context, ns, key string, doc model.Doc) error {
	if f.failAll {
		return errors.New("remote unavailable")
	}
	f.singleton[ns+"/"+key] = doc
	return nil
}

func (f *fakeRemote) Subscribe(collection string, callback func([]model.Doc)) func() {
	return func() {}
}

func TestCreateVisibleToImmediateList(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, model.CollectionProjects, model.Doc{"name": "Folio"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID() == "" {
		t.Fatal("created document has no id")
	}

	docs := s.List(ctx, model.CollectionProjects)
	found := false
	for _, d := range docs {
		if d.ID() == created.ID() {
			found = true
			if name, _ := d["name"].(string); name != "Folio" {
				t.Errorf("expected name Folio, got %q", name)
			}
		}
	}
	if !found {
		t.Errorf("created document %s not visible to immediate List", created.ID())
	}
}

func TestSubscriberFanOut(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	var got1, got2 [][]model.Doc
	unsub1 := s.Subscribe(model.CollectionProjects, func(docs []model.Doc) {
		got1 = append(got1, docs)
	})
	defer unsub1()
	unsub2 := s.Subscribe(model.CollectionProjects, func(docs []model.Doc) {
		got2 = append(got2, docs)
	})
	defer unsub2()

	created, err := s.Create(ctx, model.CollectionProjects, model.Doc{"name": "One"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Update(ctx, model.CollectionProjects, created.ID(), model.Doc{"name": "Two"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := s.Delete(ctx, model.CollectionProjects, created.ID()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(got1) != 3 || len(got2) != 3 {
		t.Fatalf("expected 3 notifications each, got %d and %d", len(got1), len(got2))
	}
	for i := range got1 {
		if !reflect.DeepEqual(got1[i], got2[i]) {
			t.Errorf("notification %d differs between subscribers", i)
		}
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	notified := 0
	unsub := s.Subscribe(model.CollectionProjects, func([]model.Doc) { notified++ })

	if _, err := s.Create(ctx, model.CollectionProjects, model.Doc{"name": "A"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	unsub()
	unsub() // second call must be safe

	if _, err := s.Create(ctx, model.CollectionProjects, model.Doc{"name": "B"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if notified != 1 {
		t.Errorf("expected 1 notification, got %d", notified)
	}
}

func TestListRefreshesCacheFromRemote(t *testing.T) {
	r := newFakeRemote()
	r.docs[model.CollectionProjects] = []model.Doc{
		{"id": "remote_1", "name": "Only"},
	}
	s := setupStoreWithRemote(t, r)
	ctx := context.Background()

	// Cache currently holds the seeded defaults; a successful remote list
	// must overwrite it exactly, dropping stale entries.
	docs := s.List(ctx, model.CollectionProjects)
	if len(docs) != 1 || docs[0].ID() != "remote_1" {
		t.Fatalf("expected exactly the remote result, got %v", docs)
	}

	// Remote goes away: the cached snapshot must equal the last remote
	// read, not the defaults.
	r.failAll = true
	cached := s.List(ctx, model.CollectionProjects)
	if len(cached) != 1 || cached[0].ID() != "remote_1" {
		t.Errorf("cache does not equal last remote read: %v", cached)
	}
}

func TestCreateRemoteIDWins(t *testing.T) {
	r := newFakeRemote()
	s := setupStoreWithRemote(t, r)
	ctx := context.Background()

	created, err := s.Create(ctx, model.CollectionAchievements, model.Doc{"title": "Award"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID() != "remote_1" {
		t.Errorf("expected remote-generated id, got %q", created.ID())
	}
}

func TestCreateFallsBackToLocalID(t *testing.T) {
	r := newFakeRemote()
	r.failAll = true
	s := setupStoreWithRemote(t, r)
	ctx := context.Background()

	created, err := s.Create(ctx, model.CollectionAchievements, model.Doc{"title": "Award"})
	if err != nil {
		t.Fatalf("Create must not fail on remote unavailability: %v", err)
	}
	if created.ID() == "" {
		t.Fatal("expected a time-based id")
	}

	// The document must still be in the cache.
	found := false
	for _, d := range s.List(ctx, model.CollectionAchievements) {
		if d.ID() == created.ID() {
			found = true
		}
	}
	if !found {
		t.Error("cache-only create not visible to List")
	}
}

func TestUpdateMiss(t *testing.T) {
	s := setupStore(t)

	_, err := s.Update(context.Background(), model.CollectionProjects, "nope", model.Doc{"name": "X"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// Inject duplicate ids directly, simulating the drift Clean repairs.
	dup := []model.Doc{
		{"id": "p1", "name": "First"},
		{"id": "p2", "name": "Second"},
		{"id": "p1", "name": "First (edited)"},
	}
	if err := s.cache.PutDocs(model.KeyProjects, dup); err != nil {
		t.Fatalf("failed to seed duplicates: %v", err)
	}

	first, err := s.Clean(ctx)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if first.Local[model.CollectionProjects] != 1 {
		t.Errorf("expected 1 duplicate removed, got %d", first.Local[model.CollectionProjects])
	}

	docs := s.List(ctx, model.CollectionProjects)
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents after clean, got %d", len(docs))
	}
	// Last seen wins.
	for _, d := range docs {
		if d.ID() == "p1" {
			if name, _ := d["name"].(string); name != "First (edited)" {
				t.Errorf("expected last-seen entry to win, got %q", name)
			}
		}
	}

	second, err := s.Clean(ctx)
	if err != nil {
		t.Fatalf("second Clean failed: %v", err)
	}
	if second.Local[model.CollectionProjects] != 0 {
		t.Errorf("second clean removed %d entries, want 0", second.Local[model.CollectionProjects])
	}
}

func TestHeroAlwaysResolves(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	hero := s.Hero(ctx)
	if name, _ := hero["name"].(string); name == "" {
		t.Error("hero name must resolve to a default, got empty")
	}

	updated, err := s.UpdateHero(ctx, model.Doc{"tagline": "Gopher"})
	if err != nil {
		t.Fatalf("UpdateHero failed: %v", err)
	}
	if tagline, _ := updated["tagline"].(string); tagline != "Gopher" {
		t.Errorf("expected merged tagline, got %q", tagline)
	}
	if name, _ := updated["name"].(string); name == "" {
		t.Error("merge must not drop unpatched fields")
	}
}

func TestAuthFlagSemantics(t *testing.T) {
	s := setupStore(t)

	if s.IsAuthenticated() {
		t.Fatal("fresh store must not be authenticated")
	}
	if s.Login("wrong") {
		t.Fatal("wrong password must not log in")
	}
	if s.IsAuthenticated() {
		t.Fatal("failed login must not set the flag")
	}
	if !s.Login("hunter2") {
		t.Fatal("correct password must log in")
	}
	if !s.IsAuthenticated() {
		t.Fatal("flag must be set after login")
	}
	s.Logout()
	if s.IsAuthenticated() {
		t.Fatal("flag must be cleared after logout")
	}
}

func TestSubscribeWithRemoteRefreshesCache(t *testing.T) {
	r := newFakeRemote()
	calls := make(chan []model.Doc, 1)

	// Wire a remote whose Subscribe delivers one snapshot immediately.
	pushRemote := &pushFakeRemote{fakeRemote: r}
	s := setupStoreWithRemote(t, pushRemote)

	unsub := s.Subscribe(model.CollectionProjects, func(docs []model.Doc) {
		calls <- docs
	})
	defer unsub()

	snapshot := []model.Doc{{"id": "r9", "name": "Pushed"}}
	pushRemote.push(snapshot)

	got := <-calls
	if len(got) != 1 || got[0].ID() != "r9" {
		t.Fatalf("unexpected snapshot: %v", got)
	}

	// The live query must have refreshed the cache as a side effect.
	r.failAll = true
	cached := s.List(context.Background(), model.CollectionProjects)
	if len(cached) != 1 || cached[0].ID() != "r9" {
		t.Errorf("cache not refreshed by live query: %v", cached)
	}
}

func TestCrossProcessSignal(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "folio.db")
	eventsDir := filepath.Join(dir, "events")

	openOne := func() *Store {
		c, err := cache.Open(dbPath, testLogger())
		if err != nil {
			t.Fatalf("failed to open cache: %v", err)
		}
		t.Cleanup(func() { _ = c.Close() })

		s, err := New(Options{Cache: c, EventsDir: eventsDir, AdminPassword: "x", Logger: testLogger()})
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	writer := openOne()
	reader := openOne()

	seen := make(chan []model.Doc, 4)
	unsub := reader.Subscribe(model.CollectionProjects, func(docs []model.Doc) {
		seen <- docs
	})
	defer unsub()

	created, err := writer.Create(context.Background(), model.CollectionProjects, model.Doc{"name": "Shared"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	select {
	case docs := <-seen:
		found := false
		for _, d := range docs {
			if d.ID() == created.ID() {
				found = true
			}
		}
		if !found {
			t.Errorf("signal delivered stale snapshot: %v", docs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no cross-process notification within 5s")
	}
}

// pushFakeRemote lets tests hand a snapshot to the subscriber directly.
type pushFakeRemote struct {
	*fakeRemote
	cb func([]model.Doc)
}

func (p *pushFakeRemote) Subscribe(collection string, callback func([]model.Doc)) func() {
	p.cb = callback
	return func() { p.cb = nil }
}

func (p *pushFakeRemote) push(docs []model.Doc) {
	if p.cb != nil {
		p.cb(docs)
	}
}
