package stats

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/ayonizm/folio/internal/judge"
)

// Source produces one service's series. Fetch failures are absorbed by
// the aggregator; Fallback supplies the substitute total.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Series, error)
	Fallback() int
}

// RatingSource produces a service's contest rating history.
type RatingSource interface {
	Name() string
	Ratings(ctx context.Context) ([]judge.RatingPoint, error)
}

// ProfileSource produces a service's public profile snapshot.
type ProfileSource interface {
	Name() string
	Profile(ctx context.Context) (*Profile, error)
}

// Profile is a service's public profile, shown alongside the totals:
// current and peak contest rating with their rank titles.
type Profile struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"max_rating"`
	Rank      string `json:"rank,omitempty"`
	MaxRank   string `json:"max_rank,omitempty"`
}

// ServiceTotal is a service's final solved count, flagged when it is a
// fallback estimate rather than a live read.
type ServiceTotal struct {
	Count     int  `json:"count"`
	Estimated bool `json:"estimated,omitempty"`
}

// Report is the aggregated output: the merged growth timeline, the
// per-service and grand totals, and any rating histories.
type Report struct {
	Points   []Point                        `json:"points"`
	Totals   map[string]ServiceTotal        `json:"totals"`
	Total    int                            `json:"total"`
	Ratings  map[string][]judge.RatingPoint `json:"ratings,omitempty"`
	Profiles map[string]Profile             `json:"profiles,omitempty"`
}

// Config configures an Aggregator. DisplayCap bounds the number of
// points in the report; zero means the default of 100.
type Config struct {
	Sources    []Source
	Ratings    []RatingSource
	Profiles   []ProfileSource
	DisplayCap int
	Logger     *log.Logger
}

type Aggregator struct {
	sources  []Source
	ratings  []RatingSource
	profiles []ProfileSource
	cap      int
	logger   *log.Logger
}

const defaultDisplayCap = 100

func NewAggregator(cfg Config) *Aggregator {
	a := &Aggregator{
		sources:  cfg.Sources,
		ratings:  cfg.Ratings,
		profiles: cfg.Profiles,
		cap:      cfg.DisplayCap,
		logger:   cfg.Logger,
	}
	if a.cap <= 0 {
		a.cap = defaultDisplayCap
	}
	if a.logger == nil {
		a.logger = log.New(os.Stderr, "[stats] ", log.LstdFlags)
	}
	return a
}

// Aggregate issues every external fetch concurrently in one fan-out
// (series, rating histories, and profiles) and merges the results.
// Each fetch settles independently: a failed series contributes its
// fallback constant flagged Estimated, a failed rating or profile
// fetch is logged and omitted, and nothing fails the report.
func (a *Aggregator) Aggregate(ctx context.Context) *Report {
	series := make([]Series, len(a.sources))
	ratings := make([][]judge.RatingPoint, len(a.ratings))
	profiles := make([]*Profile, len(a.profiles))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			s, err := src.Fetch(ctx)
			if err != nil {
				a.logger.Printf("%s fetch failed, using fallback %d: %v",
					src.Name(), src.Fallback(), err)
				s = Series{
					Name:      src.Name(),
					Final:     src.Fallback(),
					TotalOnly: true,
					Estimated: true,
				}
			}
			series[i] = s
		}(i, src)
	}
	for i, rs := range a.ratings {
		wg.Add(1)
		go func(i int, rs RatingSource) {
			defer wg.Done()
			points, err := rs.Ratings(ctx)
			if err != nil {
				a.logger.Printf("%s rating fetch failed: %v", rs.Name(), err)
				return
			}
			ratings[i] = points
		}(i, rs)
	}
	for i, ps := range a.profiles {
		wg.Add(1)
		go func(i int, ps ProfileSource) {
			defer wg.Done()
			p, err := ps.Profile(ctx)
			if err != nil {
				a.logger.Printf("%s profile fetch failed: %v", ps.Name(), err)
				return
			}
			profiles[i] = p
		}(i, ps)
	}
	wg.Wait()

	report := &Report{
		Points: Downsample(Merge(series), a.cap),
		Totals: make(map[string]ServiceTotal, len(series)),
	}
	for _, s := range series {
		total := finalCount(s)
		report.Totals[s.Name] = ServiceTotal{Count: total, Estimated: s.Estimated}
		report.Total += total
	}

	for i, rs := range a.ratings {
		if len(ratings[i]) == 0 {
			continue
		}
		if report.Ratings == nil {
			report.Ratings = make(map[string][]judge.RatingPoint)
		}
		report.Ratings[rs.Name()] = ratings[i]
	}
	for i, ps := range a.profiles {
		if profiles[i] == nil {
			continue
		}
		if report.Profiles == nil {
			report.Profiles = make(map[string]Profile)
		}
		report.Profiles[ps.Name()] = *profiles[i]
	}
	return report
}

func finalCount(s Series) int {
	if s.TotalOnly || len(s.Events) == 0 {
		return s.Final + s.Offset
	}
	return s.Events[len(s.Events)-1].Count + s.Offset
}

// CodeforcesSource adapts the Codeforces client. It doubles as a
// profile source through the user.info endpoint.
type CodeforcesSource struct {
	Client *judge.Codeforces
	Offset int
}

func (s *CodeforcesSource) Name() string  { return "Codeforces" }
func (s *CodeforcesSource) Fallback() int { return FallbackCodeforces }

func (s *CodeforcesSource) Fetch(ctx context.Context) (Series, error) {
	subs, err := s.Client.Submissions(ctx)
	if err != nil {
		return Series{}, err
	}
	return Series{Name: s.Name(), Events: BuildEvents(subs), Offset: s.Offset}, nil
}

func (s *CodeforcesSource) Profile(ctx context.Context) (*Profile, error) {
	u, err := s.Client.UserInfo(ctx)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Handle:    u.Handle,
		Rating:    u.Rating,
		MaxRating: u.MaxRating,
		Rank:      u.Rank,
		MaxRank:   u.MaxRank,
	}, nil
}

// AtCoderSource adapts the AtCoder client. It doubles as a rating
// source through the contest history endpoint.
type AtCoderSource struct {
	Client *judge.AtCoder
	Offset int
}

func (s *AtCoderSource) Name() string  { return "AtCoder" }
func (s *AtCoderSource) Fallback() int { return FallbackAtCoder }

func (s *AtCoderSource) Fetch(ctx context.Context) (Series, error) {
	subs, err := s.Client.Submissions(ctx)
	if err != nil {
		return Series{}, err
	}
	return Series{Name: s.Name(), Events: BuildEvents(subs), Offset: s.Offset}, nil
}

func (s *AtCoderSource) Ratings(ctx context.Context) ([]judge.RatingPoint, error) {
	return s.Client.ContestHistory(ctx)
}

// VJudgeSource adapts the VJudge profile reader. Only a final total is
// available, so its series is always TotalOnly.
type VJudgeSource struct {
	Client *judge.VJudge
	Offset int
}

func (s *VJudgeSource) Name() string  { return "VJudge" }
func (s *VJudgeSource) Fallback() int { return FallbackVJudge }

func (s *VJudgeSource) Fetch(ctx context.Context) (Series, error) {
	count, err := s.Client.SolvedCount(ctx)
	if err != nil {
		return Series{}, err
	}
	return Series{Name: s.Name(), Final: count, TotalOnly: true, Offset: s.Offset}, nil
}
