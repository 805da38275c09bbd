package judge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const defaultAtCoderBase = "https://kenkoooo.com/atcoder/atcoder-api"

// AtCoderConfig configures a client for the kenkoooo AtCoder mirror.
type AtCoderConfig struct {
	User    string
	BaseURL string
	Client  *http.Client
}

type AtCoder struct {
	user    string
	baseURL string
	client  *http.Client
}

func NewAtCoder(cfg AtCoderConfig) *AtCoder {
	a := &AtCoder{user: cfg.User, baseURL: cfg.BaseURL, client: cfg.Client}
	if a.baseURL == "" {
		a.baseURL = defaultAtCoderBase
	}
	if a.client == nil {
		a.client = defaultClient()
	}
	return a
}

type acSubmission struct {
	EpochSecond int64  `json:"epoch_second"`
	ProblemID   string `json:"problem_id"`
	Result      string `json:"result"`
}

// Submissions returns the user's full submission log, oldest first.
func (a *AtCoder) Submissions(ctx context.Context) ([]Submission, error) {
	u := fmt.Sprintf("%s/v3/user/submissions?user=%s&from_second=0",
		a.baseURL, url.QueryEscape(a.user))

	var raw []acSubmission
	if err := getJSON(ctx, a.client, u, &raw); err != nil {
		return nil, fmt.Errorf("atcoder submissions failed: %w", err)
	}

	// Ordering is not guaranteed by the mirror.
	sort.Slice(raw, func(i, j int) bool { return raw[i].EpochSecond < raw[j].EpochSecond })

	subs := make([]Submission, 0, len(raw))
	for _, s := range raw {
		subs = append(subs, Submission{
			At:       time.Unix(s.EpochSecond, 0).UTC(),
			Key:      s.ProblemID,
			Accepted: s.Result == "AC",
		})
	}
	return subs, nil
}

type acContest struct {
	NewRating int    `json:"NewRating"`
	EndTime   string `json:"EndTime"`
}

// ContestHistory returns the user's rated contest results, oldest
// first, as rating points.
func (a *AtCoder) ContestHistory(ctx context.Context) ([]RatingPoint, error) {
	u := fmt.Sprintf("%s/v3/user/contest_history?user=%s",
		a.baseURL, url.QueryEscape(a.user))

	var raw []acContest
	if err := getJSON(ctx, a.client, u, &raw); err != nil {
		return nil, fmt.Errorf("atcoder contest history failed: %w", err)
	}

	points := make([]RatingPoint, 0, len(raw))
	for _, c := range raw {
		at, err := time.Parse(time.RFC3339, c.EndTime)
		if err != nil {
			continue
		}
		points = append(points, RatingPoint{At: at.UTC(), Rating: c.NewRating})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].At.Before(points[j].At) })
	return points, nil
}
