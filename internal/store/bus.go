package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ayonizm/folio/internal/model"
	"github.com/fsnotify/fsnotify"
)

// bus is the in-process observer list: one subscriber set per collection
// plus one for the hero singleton. Every notification carries the full
// current snapshot, so a late subscriber misses nothing it cannot recover
// with a single List.
type bus struct {
	mu       sync.Mutex
	nextID   int
	subs     map[string]map[int]func([]model.Doc)
	heroSubs map[int]func(model.Doc)
}

func newBus() *bus {
	return &bus{
		subs:     make(map[string]map[int]func([]model.Doc)),
		heroSubs: make(map[int]func(model.Doc)),
	}
}

func (b *bus) subscribe(topic string, callback func([]model.Doc)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]func([]model.Doc))
	}
	b.subs[topic][id] = callback

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
		})
	}
}

func (b *bus) subscribeHero(callback func(model.Doc)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.heroSubs[id] = callback

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.heroSubs, id)
		})
	}
}

func (b *bus) notify(topic string, docs []model.Doc) {
	b.mu.Lock()
	callbacks := make([]func([]model.Doc), 0, len(b.subs[topic]))
	for _, cb := range b.subs[topic] {
		callbacks = append(callbacks, cb)
	}
	b.mu.Unlock()

	// Deliver outside the lock so a callback can unsubscribe itself.
	for _, cb := range callbacks {
		cb(docs)
	}
}

func (b *bus) notifyHero(doc model.Doc) {
	b.mu.Lock()
	callbacks := make([]func(model.Doc), 0, len(b.heroSubs))
	for _, cb := range b.heroSubs {
		callbacks = append(callbacks, cb)
	}
	b.mu.Unlock()

	for _, cb := range callbacks {
		cb(doc)
	}
}

// changeMarker is the payload of a cross-process change signal file.
type changeMarker struct {
	Nonce string    `json:"nonce"`
	Topic string    `json:"topic"`
	At    time.Time `json:"at"`
}

// signalWatcher propagates changes between independent processes sharing a
// data directory. Each mutation touches <eventsDir>/<topic>.json; an
// fsnotify watcher on the directory picks up markers written by other
// processes (own markers are recognized by nonce and skipped) and hands
// the topic to the store for local fan-out.
type signalWatcher struct {
	dir     string
	nonce   string
	watcher *fsnotify.Watcher
	onTopic func(topic string)
	logger  *log.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newSignalWatcher(dir string, onTopic func(string), logger *log.Logger) (*signalWatcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	sw := &signalWatcher{
		dir:     dir,
		nonce:   newNonce(),
		watcher: watcher,
		onTopic: onTopic,
		logger:  logger,
		done:    make(chan struct{}),
	}

	sw.wg.Add(1)
	go sw.loop()
	return sw, nil
}

// Emit writes a change marker for a topic. Failures only log: signalling
// is advisory, the cache already holds the authoritative snapshot.
func (sw *signalWatcher) Emit(topic string) {
	marker := changeMarker{Nonce: sw.nonce, Topic: topic, At: time.Now().UTC()}
	data, err := json.Marshal(marker)
	if err != nil {
		sw.logger.Printf("Error marshaling change marker: %v", err)
		return
	}
	path := filepath.Join(sw.dir, topic+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		sw.logger.Printf("Error writing change marker %s: %v", path, err)
	}
}

func (sw *signalWatcher) Close() error {
	sw.once.Do(func() {
		close(sw.done)
		_ = sw.watcher.Close()
	})
	sw.wg.Wait()
	return nil
}

func (sw *signalWatcher) loop() {
	defer sw.wg.Done()

	for {
		select {
		case <-sw.done:
			return

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			sw.handleMarker(event.Name)

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Printf("Change signal watcher error: %v", err)
		}
	}
}

func (sw *signalWatcher) handleMarker(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		// The file may be mid-write; the follow-up Write event retries.
		return
	}
	var marker changeMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return
	}
	if marker.Nonce == sw.nonce {
		return // our own write
	}
	topic := marker.Topic
	if topic == "" {
		topic = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	sw.onTopic(topic)
}

func newNonce() string {
	// Process identity plus start time is unique enough to tell our own
	// markers from another process's.
	return fmt.Sprintf("%d-%d", os.Getpid(), time.Now().UnixNano())
}
