package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayonizm/folio/internal/model"
	"github.com/ayonizm/folio/internal/ui"
)

var pullCmd = &cobra.Command{
	Use:     "pull",
	GroupID: "content",
	Short:   "Full refresh of the local cache from the remote store",
	Long: `Pull every collection and the hero banner from the remote store
into the local cache.

This performs a full refresh:
  1. Reads projects, achievements, and analysis cards from the remote
  2. Reads the hero singleton
  3. Overwrites the corresponding cache entries

Without a configured remote this only reports the cached state.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := log.New(io.Discard, "", 0)

		st, closeStore := openStore(cfg, logger)
		defer closeStore()

		if cfg.Remote.URL == "" {
			fmt.Printf("%s No remote configured, showing cached state\n", ui.RenderWarn("⚠"))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fmt.Printf("%s Refreshing cache from %s...\n", ui.RenderAccent("🔄"), cfg.Remote.URL)
		start := time.Now()

		for _, collection := range model.Collections {
			docs := st.List(ctx, collection)
			fmt.Printf("   %s: %d documents\n", collection, len(docs))
		}
		hero := st.Hero(ctx)
		fmt.Printf("   hero: %v\n", hero["name"])

		fmt.Printf("%s Refresh complete in %v\n", ui.RenderPass("✓"),
			time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Cache: %s\n", cfg.CachePath())
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
}
