package model

import (
	"sort"
	"strconv"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// dateParser resolves free-text achievement date labels ("2024", "March
// 2023", "last summer") into something sortable for the timeline.
var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseDateLabel interprets an achievement's free-text date label. Bare
// years are anchored to January 1st; anything else goes through the
// natural-language parser. Returns ok=false when the label is empty or
// unparseable, in which case callers keep the original ordering.
func ParseDateLabel(label string) (time.Time, bool) {
	if label == "" {
		return time.Time{}, false
	}
	if year, err := strconv.Atoi(label); err == nil && year >= 1000 && year <= 9999 {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	r, err := dateParser.Parse(label, time.Now())
	if err != nil || r == nil {
		return time.Time{}, false
	}
	return r.Time, true
}

// SortAchievements orders achievement documents newest first by their
// parsed date label. Unparseable labels sort after dated ones, keeping
// their relative order.
func SortAchievements(docs []Doc) []Doc {
	type keyed struct {
		t     time.Time
		dated bool
	}
	keys := make([]keyed, len(docs))
	for i, d := range docs {
		label, _ := d["date"].(string)
		t, ok := ParseDateLabel(label)
		keys[i] = keyed{t: t, dated: ok}
	}

	out := make([]Doc, len(docs))
	idx := make([]int, len(docs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		switch {
		case ka.dated && kb.dated:
			return ka.t.After(kb.t) // newest first
		case ka.dated:
			return true
		default:
			return false
		}
	})
	for i, j := range idx {
		out[i] = docs[j]
	}
	return out
}
