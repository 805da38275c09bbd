package judge

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultCodeforcesBase = "https://codeforces.com/api"

// CodeforcesConfig configures a Codeforces API client. Key and Secret
// are optional; without them calls go out unsigned, which the public
// endpoints accept.
type CodeforcesConfig struct {
	Handle  string
	Key     string
	Secret  string
	BaseURL string
	Client  *http.Client
}

// Codeforces queries the Codeforces REST API for a single handle.
type Codeforces struct {
	handle  string
	key     string
	secret  string
	baseURL string
	client  *http.Client
}

func NewCodeforces(cfg CodeforcesConfig) *Codeforces {
	c := &Codeforces{
		handle:  cfg.Handle,
		key:     cfg.Key,
		secret:  cfg.Secret,
		baseURL: cfg.BaseURL,
		client:  cfg.Client,
	}
	if c.baseURL == "" {
		c.baseURL = defaultCodeforcesBase
	}
	if c.client == nil {
		c.client = defaultClient()
	}
	return c
}

// Sign computes the apiSig value for a signed API call. The signed
// string is nonce "/" method "?" params "#" secret, where params are
// joined as key=value pairs sorted lexicographically by key, hashed
// with SHA-512. The returned value is the nonce followed by the hex
// digest, exactly as the API expects it.
func Sign(method string, params map[string]string, nonce, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(nonce)
	b.WriteString("/")
	b.WriteString(method)
	b.WriteString("?")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("&")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	b.WriteString("#")
	b.WriteString(secret)

	sum := sha512.Sum512([]byte(b.String()))
	return nonce + hex.EncodeToString(sum[:])
}

// canonicalQuery joins params sorted by key without URL-escaping, so
// the query string on the wire matches the bytes that were signed.
func canonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

func (c *Codeforces) call(ctx context.Context, method string, params map[string]string, out any) error {
	all := make(map[string]string, len(params)+2)
	for k, v := range params {
		all[k] = v
	}

	var query string
	if c.key != "" && c.secret != "" {
		all["apiKey"] = c.key
		all["time"] = strconv.FormatInt(time.Now().Unix(), 10)
		nonce := fmt.Sprintf("%06d", rand.Intn(1000000))
		query = canonicalQuery(all) + "&apiSig=" + Sign(method, all, nonce, c.secret)
	} else {
		query = canonicalQuery(all)
	}

	url := c.baseURL + "/" + method + "?" + query

	var envelope struct {
		Status  string          `json:"status"`
		Comment string          `json:"comment"`
		Result  json.RawMessage `json:"result"`
	}
	if err := getJSON(ctx, c.client, url, &envelope); err != nil {
		return fmt.Errorf("codeforces %s failed: %w", method, err)
	}
	if envelope.Status != "OK" {
		return fmt.Errorf("codeforces %s rejected: %s", method, envelope.Comment)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

type cfSubmission struct {
	CreationTimeSeconds int64  `json:"creationTimeSeconds"`
	Verdict             string `json:"verdict"`
	Problem             struct {
		ContestID int    `json:"contestId"`
		Index     string `json:"index"`
		Name      string `json:"name"`
	} `json:"problem"`
}

// Submissions returns the handle's full submission log, oldest first.
// Problems are keyed contestID-index; problems without a contest id
// (old gym rounds) fall back to the problem name.
func (c *Codeforces) Submissions(ctx context.Context) ([]Submission, error) {
	var raw []cfSubmission
	params := map[string]string{
		"handle": c.handle,
		"from":   "1",
		"count":  "50000",
	}
	if err := c.call(ctx, "user.status", params, &raw); err != nil {
		return nil, err
	}

	// The API returns newest first.
	subs := make([]Submission, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		s := raw[i]
		key := s.Problem.Name
		if s.Problem.ContestID != 0 {
			key = fmt.Sprintf("%d-%s", s.Problem.ContestID, s.Problem.Index)
		}
		subs = append(subs, Submission{
			At:       time.Unix(s.CreationTimeSeconds, 0).UTC(),
			Key:      key,
			Accepted: s.Verdict == "OK",
		})
	}
	return subs, nil
}

// CodeforcesUser is the subset of user.info surfaced in the
// statistics report.
type CodeforcesUser struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"maxRating"`
	Rank      string `json:"rank"`
	MaxRank   string `json:"maxRank"`
}

func (c *Codeforces) UserInfo(ctx context.Context) (*CodeforcesUser, error) {
	var users []CodeforcesUser
	if err := c.call(ctx, "user.info", map[string]string{"handles": c.handle}, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no user info for handle %s", c.handle)
	}
	return &users[0], nil
}
