package store

import (
	"context"

	"github.com/ayonizm/folio/internal/model"
)

// CleanResult reports what the duplicate-cleanup pass removed.
type CleanResult struct {
	// Local counts entries removed from the local cache, per collection.
	Local map[string]int `json:"local"`
	// Remote counts documents deleted from the remote store, per
	// collection. Empty when no remote store is configured.
	Remote map[string]int `json:"remote"`
}

// Clean repairs duplicate drift in every collection. Locally it collapses
// each cached collection to one entry per unique id, last seen wins.
// Remotely it deletes documents whose normalized display name matches an
// earlier document's, then refreshes the cache from the surviving set.
// Safe to run repeatedly: a second pass removes nothing.
func (s *Store) Clean(ctx context.Context) (CleanResult, error) {
	result := CleanResult{
		Local:  make(map[string]int),
		Remote: make(map[string]int),
	}

	for _, collection := range model.Collections {
		removed, err := s.cache.Clean(model.CacheKey(collection))
		if err != nil {
			return result, err
		}
		result.Local[collection] = removed
	}

	if s.remote != nil {
		for _, collection := range model.Collections {
			removed, err := s.cleanRemote(ctx, collection)
			if err != nil {
				s.logger.Printf("Remote cleanup failed for %s: %v", collection, err)
				continue
			}
			result.Remote[collection] = removed
		}
	}

	// Re-read (re-caching the surviving remote state) and fan out.
	for _, collection := range model.Collections {
		s.notify(collection, s.List(ctx, collection))
	}

	s.journal("all", "", "cleaned")
	return result, nil
}

// cleanRemote removes remote documents that duplicate an earlier one by
// normalized display name. Documents without a usable name are kept.
func (s *Store) cleanRemote(ctx context.Context, collection string) (int, error) {
	docs, err := s.remote.List(ctx, collection)
	if err != nil {
		return 0, err
	}

	nameOf := func(d model.Doc) string {
		if n, _ := d["name"].(string); n != "" {
			return n
		}
		n, _ := d["title"].(string)
		return n
	}

	removed := 0
	seen := make(map[string]bool)
	for _, d := range docs {
		key := model.NormalizeName(nameOf(d))
		if key == "" {
			continue
		}
		if seen[key] {
			if err := s.remote.Delete(ctx, collection, d.ID()); err != nil {
				s.logger.Printf("Error deleting remote duplicate %s/%s: %v", collection, d.ID(), err)
				continue
			}
			removed++
			continue
		}
		seen[key] = true
	}
	return removed, nil
}
