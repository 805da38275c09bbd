package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayonizm/folio/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "stats",
	Short:   "Aggregate competitive programming statistics",
	Long: `Fetch solved-problem counts from Codeforces, AtCoder, and VJudge
and merge them into a single growth timeline.

Each service is fetched independently; when one is unreachable its
documented fallback count is used and marked as estimated, so the
report always completes.

Example usage:
  folio stats              # Totals only
  folio stats --series     # Include the dated timeline`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		showSeries, _ := cmd.Flags().GetBool("series")

		verbose, _ := cmd.Flags().GetBool("verbose")
		logger := log.New(io.Discard, "", 0)
		if verbose {
			logger = log.New(os.Stderr, "[stats] ", log.LstdFlags)
		}

		agg := buildAggregator(cfg, logger)

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		fmt.Printf("%s Fetching submissions...\n", ui.RenderAccent("🔄"))
		report := agg.Aggregate(ctx)

		fmt.Printf("\n%s Solved problems\n\n", ui.RenderAccent("📊"))
		for _, name := range []string{"Codeforces", "AtCoder", "VJudge"} {
			total, ok := report.Totals[name]
			if !ok {
				continue
			}
			note := ""
			if total.Estimated {
				note = " " + ui.RenderWarn("(estimated)")
			}
			fmt.Printf("   %-12s %d%s\n", name, total.Count, note)
		}
		fmt.Printf("   %-12s %s\n", "Total", ui.RenderPass(fmt.Sprintf("%d", report.Total)))

		if p, ok := report.Profiles["Codeforces"]; ok {
			fmt.Printf("\n   Codeforces rating: %d (max %d, %s)\n",
				p.Rating, p.MaxRating, p.MaxRank)
		}
		if ratings, ok := report.Ratings["AtCoder"]; ok && len(ratings) > 0 {
			last := ratings[len(ratings)-1]
			fmt.Printf("\n   AtCoder rating: %d (as of %s)\n",
				last.Rating, last.At.Format("2006-01-02"))
		}

		if showSeries {
			fmt.Printf("\n%s Timeline (%d points)\n\n", ui.RenderAccent("▸"), len(report.Points))
			for _, p := range report.Points {
				fmt.Printf("   %s  total %d\n", p.Date, p.Total)
			}
		}
		fmt.Println()
	},
}

func init() {
	statsCmd.Flags().Bool("series", false, "Print the dated timeline")
	statsCmd.Flags().BoolP("verbose", "v", false, "Log fetch failures")

	rootCmd.AddCommand(statsCmd)
}
