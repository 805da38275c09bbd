// Package stats builds the solved-problems growth timeline shown on
// the analysis page. Submission logs from each service are deduped
// into per-day running counts, merged onto a shared date axis with
// carry-forward semantics, and downsampled for display.
package stats

import (
	"sort"

	"github.com/ayonizm/folio/internal/judge"
)

// Event is one step of a service's running solved count: the UTC day a
// new problem was first solved and the count after solving it.
type Event struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Series is one service's contribution to the merged timeline. A
// TotalOnly series has no submission log, only a final count, and is
// linearly interpolated across the merged date range. Estimated marks
// a series whose fetch failed and whose Final is a fallback constant.
type Series struct {
	Name      string
	Events    []Event
	Final     int
	TotalOnly bool
	Offset    int
	Estimated bool
}

// Point is one date of the merged timeline: per-service running totals
// with offsets applied, plus their sum.
type Point struct {
	Date   string         `json:"date"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// BuildEvents walks submissions oldest first, counting each problem
// key once on the day of its first accepted submission.
func BuildEvents(subs []judge.Submission) []Event {
	solved := make(map[string]struct{})
	var events []Event
	for _, s := range subs {
		if !s.Accepted {
			continue
		}
		if _, ok := solved[s.Key]; ok {
			continue
		}
		solved[s.Key] = struct{}{}
		events = append(events, Event{
			Date:  s.At.UTC().Format("2006-01-02"),
			Count: len(solved),
		})
	}
	return events
}

// Merge combines series onto the union of their event dates. Event
// series step: the running count carries forward until the next event.
// TotalOnly series grow linearly from zero to Final across the whole
// range, proportional to the point index, so they chart comparably
// despite having no real timeline.
func Merge(series []Series) []Point {
	dateSet := make(map[string]struct{})
	for _, s := range series {
		for _, e := range s.Events {
			dateSet[e.Date] = struct{}{}
		}
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	// Last event on a date wins; counts only grow within a day.
	byDate := make([]map[string]int, len(series))
	for i, s := range series {
		byDate[i] = make(map[string]int, len(s.Events))
		for _, e := range s.Events {
			byDate[i][e.Date] = e.Count
		}
	}

	current := make([]int, len(series))
	points := make([]Point, 0, len(dates))
	for i, date := range dates {
		counts := make(map[string]int, len(series))
		total := 0
		for j, s := range series {
			if s.TotalOnly {
				current[j] = interpolate(s.Final, i, len(dates))
			} else if c, ok := byDate[j][date]; ok {
				current[j] = c
			}
			counts[s.Name] = current[j] + s.Offset
			total += counts[s.Name]
		}
		points = append(points, Point{Date: date, Counts: counts, Total: total})
	}
	return points
}

// interpolate maps index i of n points onto the 0..final range.
func interpolate(final, i, n int) int {
	if n <= 1 {
		return final
	}
	return final * i / (n - 1)
}

// Downsample keeps every Nth point so the series fits under the
// display cap, always retaining the final point.
func Downsample(points []Point, cap int) []Point {
	if cap <= 0 || len(points) <= cap {
		return points
	}
	step := (len(points) + cap - 1) / cap
	out := make([]Point, 0, cap+1)
	for i, p := range points {
		if i%step == 0 || i == len(points)-1 {
			out = append(out, p)
		}
	}
	return out
}
