package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultVJudgeProxy = "https://api.allorigins.win/raw?url="
	vjudgeProfileBase  = "https://vjudge.net/user/"
)

// VJudgeConfig configures a VJudge profile reader. VJudge has no public
// API; the profile page embeds the solved-record map as JSON, and the
// page is fetched through a CORS-relay proxy.
type VJudgeConfig struct {
	User   string
	Proxy  string
	Client *http.Client
}

type VJudge struct {
	user   string
	proxy  string
	client *http.Client
}

func NewVJudge(cfg VJudgeConfig) *VJudge {
	v := &VJudge{user: cfg.User, proxy: cfg.Proxy, client: cfg.Client}
	if v.proxy == "" {
		v.proxy = defaultVJudgeProxy
	}
	if v.client == nil {
		v.client = defaultClient()
	}
	return v
}

// SolvedCount fetches the profile page and returns the number of keys
// in the embedded acRecords object. Only this final total is available;
// VJudge exposes no per-submission timestamps.
func (v *VJudge) SolvedCount(ctx context.Context) (int, error) {
	u := v.proxy + url.QueryEscape(vjudgeProfileBase+v.user)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("vjudge fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("vjudge fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to read vjudge page: %w", err)
	}

	records, err := extractACRecords(string(body))
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// extractACRecords locates the acRecords object embedded in the page
// markup and decodes it. The object maps record keys to their entries;
// the solved count is the key cardinality.
func extractACRecords(page string) (map[string]json.RawMessage, error) {
	idx := strings.Index(page, `"acRecords"`)
	if idx < 0 {
		return nil, fmt.Errorf("acRecords not found in page")
	}

	rest := page[idx+len(`"acRecords"`):]
	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return nil, fmt.Errorf("acRecords value is not an object")
	}

	obj, err := matchBraces(rest[start:])
	if err != nil {
		return nil, fmt.Errorf("failed to extract acRecords: %w", err)
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &records); err != nil {
		return nil, fmt.Errorf("failed to decode acRecords: %w", err)
	}
	return records, nil
}

// matchBraces returns the prefix of s that forms a balanced JSON
// object, accounting for braces inside string literals.
func matchBraces(s string) (string, error) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced object")
}
