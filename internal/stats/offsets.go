package stats

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Fallback solved counts used when a service cannot be reached. They
// match the seeded analysis cards so a degraded timeline still agrees
// with the static page.
const (
	FallbackCodeforces = 696
	FallbackAtCoder    = 131
	FallbackVJudge     = 904
)

// Offsets are per-service constants added to the public solved count,
// covering problems solved in private or group contests that the
// submission APIs do not report.
type Offsets struct {
	Codeforces int `toml:"codeforces"`
	AtCoder    int `toml:"atcoder"`
	VJudge     int `toml:"vjudge"`
}

func DefaultOffsets() Offsets {
	return Offsets{Codeforces: 79}
}

// LoadOffsets reads the offsets file. A missing file is not an error;
// the defaults apply.
func LoadOffsets(path string) (Offsets, error) {
	offsets := DefaultOffsets()
	if path == "" {
		return offsets, nil
	}
	if _, err := toml.DecodeFile(path, &offsets); err != nil {
		if os.IsNotExist(err) {
			return DefaultOffsets(), nil
		}
		return Offsets{}, fmt.Errorf("failed to load offsets from %s: %w", path, err)
	}
	return offsets, nil
}
