// Command folio manages a personal portfolio site's content and
// statistics: a synced document store with a local cache, an admin
// dashboard with live updates, and a competitive-programming
// statistics aggregator.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayonizm/folio/internal/cache"
	"github.com/ayonizm/folio/internal/config"
	"github.com/ayonizm/folio/internal/judge"
	"github.com/ayonizm/folio/internal/remote"
	"github.com/ayonizm/folio/internal/stats"
	"github.com/ayonizm/folio/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Portfolio content and statistics manager",
	Long: `folio manages the data layer of a personal portfolio site.

Content (projects, achievements, analysis cards, hero banner) lives in
a remote document store when one is configured, with a local SQLite
cache that keeps everything working offline. Competitive programming
statistics are aggregated from Codeforces, AtCoder, and VJudge.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to folio.yaml (default: ./folio.yaml, ~/.config/folio/folio.yaml)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "content", Title: "Content Commands:"},
		&cobra.Group{ID: "stats", Title: "Statistics Commands:"},
		&cobra.Group{ID: "server", Title: "Server Commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openStore opens the cache, connects the remote when configured, and
// assembles the store. The returned close func tears everything down.
func openStore(cfg *config.Config, logger *log.Logger) (*store.Store, func()) {
	c, err := cache.Open(cfg.CachePath(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		os.Exit(1)
	}

	var rem *remote.Store
	if cfg.Remote.URL != "" {
		rem, err = remote.Connect(&remote.Config{
			URL:          cfg.Remote.URL,
			AuthToken:    cfg.Remote.AuthToken,
			PollInterval: cfg.Remote.PollInterval,
		}, logger)
		if err != nil {
			// Cache-only operation is the designed degradation.
			fmt.Fprintf(os.Stderr, "Warning: remote unavailable, using cache only: %v\n", err)
			rem = nil
		}
	}

	opts := store.Options{
		Cache:         c,
		EventsDir:     cfg.EventsDir(),
		AdminPassword: cfg.AdminPassword,
		Logger:        logger,
	}
	if rem != nil {
		opts.Remote = rem
	}

	st, err := store.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating store: %v\n", err)
		os.Exit(1)
	}

	return st, func() {
		_ = st.Close()
		if rem != nil {
			_ = rem.Close()
		}
		_ = c.Close()
	}
}

func buildAggregator(cfg *config.Config, logger *log.Logger) *stats.Aggregator {
	offsets, err := stats.LoadOffsets(cfg.Stats.OffsetsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using default offsets\n", err)
		offsets = stats.DefaultOffsets()
	}

	cf := judge.NewCodeforces(judge.CodeforcesConfig{
		Handle: cfg.Judges.Codeforces.Handle,
		Key:    cfg.Judges.Codeforces.Key,
		Secret: cfg.Judges.Codeforces.Secret,
	})
	ac := judge.NewAtCoder(judge.AtCoderConfig{User: cfg.Judges.AtCoder.User})
	vj := judge.NewVJudge(judge.VJudgeConfig{
		User:  cfg.Judges.VJudge.User,
		Proxy: cfg.Judges.VJudge.Proxy,
	})

	cfSource := &stats.CodeforcesSource{Client: cf, Offset: offsets.Codeforces}
	acSource := &stats.AtCoderSource{Client: ac, Offset: offsets.AtCoder}

	return stats.NewAggregator(stats.Config{
		Sources: []stats.Source{
			cfSource,
			acSource,
			&stats.VJudgeSource{Client: vj, Offset: offsets.VJudge},
		},
		Ratings:  []stats.RatingSource{acSource},
		Profiles: []stats.ProfileSource{cfSource},
		Logger:   logger,
	})
}
