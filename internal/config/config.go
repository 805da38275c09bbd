// Package config loads the folio configuration from folio.yaml and the
// FOLIO_ environment, with sane defaults for cache-only operation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir       string `mapstructure:"data_dir"`
	AdminPassword string `mapstructure:"admin_password"`

	Server ServerConfig `mapstructure:"server"`
	Remote RemoteConfig `mapstructure:"remote"`
	Judges JudgesConfig `mapstructure:"judges"`
	Stats  StatsConfig  `mapstructure:"stats"`
}

type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	LogFile string `mapstructure:"log_file"`
}

// RemoteConfig points at the libsql document store. An empty URL means
// cache-only operation.
type RemoteConfig struct {
	URL          string        `mapstructure:"url"`
	AuthToken    string        `mapstructure:"auth_token"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type JudgesConfig struct {
	Codeforces CodeforcesConfig `mapstructure:"codeforces"`
	AtCoder    AtCoderConfig    `mapstructure:"atcoder"`
	VJudge     VJudgeConfig     `mapstructure:"vjudge"`
}

type CodeforcesConfig struct {
	Handle string `mapstructure:"handle"`
	Key    string `mapstructure:"key"`
	Secret string `mapstructure:"secret"`
}

type AtCoderConfig struct {
	User string `mapstructure:"user"`
}

type VJudgeConfig struct {
	User  string `mapstructure:"user"`
	Proxy string `mapstructure:"proxy"`
}

type StatsConfig struct {
	OffsetsFile string `mapstructure:"offsets_file"`
}

// CachePath returns the sqlite cache location under the data dir.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "folio.db")
}

// EventsDir returns the change-marker directory used for cross-process
// subscriber signaling.
func (c *Config) EventsDir() string {
	return filepath.Join(c.DataDir, "events")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".folio"
	}
	return filepath.Join(home, ".folio")
}

// Load reads folio.yaml from path (or the working directory and
// ~/.config/folio when path is empty) and overlays FOLIO_ environment
// variables. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("server.port", 8422)
	v.SetDefault("remote.poll_interval", 5*time.Second)
	v.SetDefault("judges.codeforces.handle", "ayon6594")
	v.SetDefault("judges.atcoder.user", "ayonizm")
	v.SetDefault("judges.vjudge.user", "ayonizm")

	// Empty defaults register the keys so AutomaticEnv can fill them.
	v.SetDefault("admin_password", "")
	v.SetDefault("server.log_file", "")
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.auth_token", "")
	v.SetDefault("judges.codeforces.key", "")
	v.SetDefault("judges.codeforces.secret", "")
	v.SetDefault("judges.vjudge.proxy", "")
	v.SetDefault("stats.offsets_file", "")

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("folio")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "folio"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
