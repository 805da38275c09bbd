// Package model provides the data structures for portfolio content.
//
// All persisted entities are flat JSON documents with a string id and
// last-write-wins semantics: each field can be updated independently via a
// merge patch, and no relational integrity exists beyond id uniqueness
// within a collection.
package model

import (
	"fmt"
	"strings"
)

// Collection names as stored in the remote document database.
const (
	CollectionProjects     = "projects"
	CollectionAchievements = "achievements"
	CollectionAnalysis     = "analysis"
)

// SingletonNamespace and SingletonHero identify the hero profile document,
// which lives outside the id-keyed collections.
const (
	SingletonNamespace = "settings"
	SingletonHero      = "hero"
)

// Local cache keys, one string-keyed blob per collection plus the hero
// singleton and the auth flag.
const (
	KeyProjects     = "portfolio_projects"
	KeyAchievements = "portfolio_achievements"
	KeyAnalysis     = "portfolio_analysis"
	KeyHero         = "portfolio_hero"
	KeyAuth         = "portfolio_auth"
)

// Collections lists every id-keyed collection in a stable order.
var Collections = []string{CollectionProjects, CollectionAchievements, CollectionAnalysis}

// CacheKey returns the local cache key for a collection.
func CacheKey(collection string) string {
	switch collection {
	case CollectionProjects:
		return KeyProjects
	case CollectionAchievements:
		return KeyAchievements
	case CollectionAnalysis:
		return KeyAnalysis
	default:
		return "portfolio_" + collection
	}
}

// Doc is a schemaless portfolio document. The synchronizer moves Docs
// between the remote store and the local cache without caring which
// collection they belong to; the typed structs below exist for validation
// at the admin surface.
type Doc map[string]any

// ID returns the document id, or "" when unset.
func (d Doc) ID() string {
	id, _ := d["id"].(string)
	return id
}

// WithID returns a copy of the document with its id set.
func (d Doc) WithID(id string) Doc {
	out := d.Clone()
	out["id"] = id
	return out
}

// Clone returns a shallow copy of the document.
func (d Doc) Clone() Doc {
	out := make(Doc, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge applies patch to a copy of the document, last write wins per field.
// The id field is never overwritten by a patch.
func (d Doc) Merge(patch Doc) Doc {
	out := d.Clone()
	for k, v := range patch {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// Project is a portfolio gallery entry.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"` // URL or data URI
	Link        string `json:"link,omitempty"`
	Featured    bool   `json:"featured"`
}

// Validate checks required project fields.
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(p.Name) > 200 {
		return fmt.Errorf("name must be 200 characters or less (got %d)", len(p.Name))
	}
	return nil
}

// Achievement is a timeline entry.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`  // short text or emoji
	Image       string `json:"image,omitempty"` // optional, wins over icon when set
	Date        string `json:"date,omitempty"`  // free-text label, e.g. "2024" or "March 2023"
}

// Validate checks required achievement fields.
func (a *Achievement) Validate() error {
	if a.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// AnalysisCard is a single statistics card on the analysis section.
type AnalysisCard struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	JobTitle string `json:"jobTitle,omitempty"`
	Value    string `json:"value,omitempty"` // free text, e.g. a count or duration
	Image    string `json:"image,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// Validate checks required analysis card fields.
func (c *AnalysisCard) Validate() error {
	if c.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// Hero is the singleton profile record shown in the hero banner. Every
// field always resolves to a value: readers merge over DefaultHero so a
// missing or partial document never yields nulls.
type Hero struct {
	Name        string `json:"name"`
	Tagline     string `json:"tagline,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Validate ensures a non-empty usable collection name.
func ValidCollection(collection string) error {
	for _, c := range Collections {
		if c == collection {
			return nil
		}
	}
	return fmt.Errorf("unknown collection %q", collection)
}

// NormalizeName lowercases and trims a display name for duplicate
// detection. The remote cleanup pass treats two documents with the same
// normalized name as duplicates of each other.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateDoc runs the typed validation for the collection the document
// belongs to. Unknown fields are allowed; they round-trip untouched.
func ValidateDoc(collection string, d Doc) error {
	str := func(k string) string {
		s, _ := d[k].(string)
		return s
	}
	switch collection {
	case CollectionProjects:
		p := Project{ID: d.ID(), Name: str("name")}
		return p.Validate()
	case CollectionAchievements:
		a := Achievement{ID: d.ID(), Title: str("title")}
		return a.Validate()
	case CollectionAnalysis:
		c := AnalysisCard{ID: d.ID(), Title: str("title")}
		return c.Validate()
	default:
		return fmt.Errorf("unknown collection %q", collection)
	}
}
