package model

import (
	"testing"
	"time"
)

func TestDocMergeNeverOverwritesID(t *testing.T) {
	doc := Doc{"id": "a1", "name": "Original"}
	merged := doc.Merge(Doc{"id": "evil", "name": "Renamed", "extra": 42})

	if merged.ID() != "a1" {
		t.Errorf("merge overwrote id: %q", merged.ID())
	}
	if merged["name"] != "Renamed" {
		t.Errorf("patched field not applied: %v", merged["name"])
	}
	if merged["extra"] != 42 {
		t.Error("new field not applied")
	}
	if doc["name"] != "Original" {
		t.Error("merge mutated the receiver")
	}
}

func TestCacheKey(t *testing.T) {
	cases := map[string]string{
		CollectionProjects:     KeyProjects,
		CollectionAchievements: KeyAchievements,
		CollectionAnalysis:     KeyAnalysis,
	}
	for collection, want := range cases {
		if got := CacheKey(collection); got != want {
			t.Errorf("CacheKey(%s) = %q, want %q", collection, got, want)
		}
	}
}

func TestValidateDoc(t *testing.T) {
	if err := ValidateDoc(CollectionProjects, Doc{"name": "Folio"}); err != nil {
		t.Errorf("valid project rejected: %v", err)
	}
	if err := ValidateDoc(CollectionProjects, Doc{"description": "no name"}); err == nil {
		t.Error("project without name accepted")
	}
	if err := ValidateDoc(CollectionAchievements, Doc{"title": "ICPC"}); err != nil {
		t.Errorf("valid achievement rejected: %v", err)
	}
	if err := ValidateDoc(CollectionAchievements, Doc{}); err == nil {
		t.Error("achievement without title accepted")
	}
	if err := ValidateDoc("widgets", Doc{"name": "x"}); err == nil {
		t.Error("unknown collection accepted")
	}
}

func TestValidCollection(t *testing.T) {
	for _, c := range Collections {
		if err := ValidCollection(c); err != nil {
			t.Errorf("ValidCollection(%s) = %v", c, err)
		}
	}
	if err := ValidCollection("settings"); err == nil {
		t.Error("singleton namespace must not be a collection")
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  My Project  "); got != "my project" {
		t.Errorf("NormalizeName = %q", got)
	}
}

func TestParseDateLabelYear(t *testing.T) {
	at, ok := ParseDateLabel("2023")
	if !ok {
		t.Fatal("bare year must parse")
	}
	want := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("year anchored to %v, want %v", at, want)
	}

	if _, ok := ParseDateLabel(""); ok {
		t.Error("empty label must not parse")
	}
}

func TestSortAchievementsNewestFirst(t *testing.T) {
	docs := []Doc{
		{"id": "a", "title": "Old", "date": "2019"},
		{"id": "b", "title": "Undated One"},
		{"id": "c", "title": "New", "date": "2024"},
		{"id": "d", "title": "Undated Two"},
	}

	sorted := SortAchievements(docs)
	if sorted[0].ID() != "c" || sorted[1].ID() != "a" {
		t.Errorf("dated entries out of order: %v, %v", sorted[0].ID(), sorted[1].ID())
	}
	// Undated entries keep their relative order after the dated ones.
	if sorted[2].ID() != "b" || sorted[3].ID() != "d" {
		t.Errorf("undated entries reordered: %v, %v", sorted[2].ID(), sorted[3].ID())
	}
}

func TestDefaultsSeedData(t *testing.T) {
	if len(DefaultProjects) == 0 || len(DefaultAchievements) == 0 || len(DefaultAnalysis) == 0 {
		t.Fatal("all collections must ship seed data")
	}
	for _, collection := range Collections {
		for _, d := range DefaultsFor(collection) {
			if d.ID() == "" {
				t.Errorf("seed document in %s has no id", collection)
			}
			if err := ValidateDoc(collection, d); err != nil {
				t.Errorf("seed document %s invalid: %v", d.ID(), err)
			}
		}
	}
	if name, _ := DefaultHero["name"].(string); name == "" {
		t.Error("default hero must have a name")
	}

	// DefaultsFor hands out copies; mutating one must not poison the seed.
	docs := DefaultsFor(CollectionProjects)
	docs[0]["name"] = "mutated"
	if DefaultProjects[0]["name"] == "mutated" {
		t.Error("DefaultsFor leaked the underlying seed slice")
	}
}
