package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ayonizm/folio/internal/model"
	"github.com/ayonizm/folio/internal/store"
	"github.com/ayonizm/folio/internal/ui"
)

var dataCmd = &cobra.Command{
	Use:     "data",
	GroupID: "content",
	Short:   "Inspect and maintain the portfolio content",
}

var dataListCmd = &cobra.Command{
	Use:   "list [collection]",
	Short: "List documents in a collection (or all collections)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := log.New(io.Discard, "", 0)

		st, closeStore := openStore(cfg, logger)
		defer closeStore()

		collections := model.Collections
		if len(args) == 1 {
			if err := model.ValidCollection(args[0]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			collections = []string{args[0]}
		}

		ctx := context.Background()
		for _, collection := range collections {
			docs := st.List(ctx, collection)
			if collection == model.CollectionAchievements {
				docs = model.SortAchievements(docs)
			}
			fmt.Printf("\n%s %s (%d)\n", ui.RenderAccent("▸"), collection, len(docs))
			for _, d := range docs {
				title, _ := d["name"].(string)
				if title == "" {
					title, _ = d["title"].(string)
				}
				fmt.Printf("   %s  %s\n", ui.RenderDim(d.ID()), title)
			}
		}
		fmt.Println()
	},
}

var dataResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the local cache to the built-in defaults",
	Long: `Drop all cached content and reseed the built-in defaults.

Only the local cache is touched; the remote store is left as is. The
next pull will refresh the cache from the remote again.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := log.New(io.Discard, "", 0)

		st, closeStore := openStore(cfg, logger)
		defer closeStore()

		if err := st.ResetCache(); err != nil {
			fmt.Fprintf(os.Stderr, "Error resetting cache: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Cache reset to defaults\n", ui.RenderPass("✓"))
	},
}

var dataCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove duplicate documents from every collection",
	Long: `Repair duplicate documents across all collections.

Locally, duplicates share an id and the last stored copy wins.
Remotely, duplicates share a normalized name and the earliest copy
wins. Running clean twice in a row removes nothing the second time.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := log.New(io.Discard, "", 0)

		st, closeStore := openStore(cfg, logger)
		defer closeStore()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := st.Clean(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during clean: %v\n", err)
			os.Exit(1)
		}

		total := 0
		for _, collection := range model.Collections {
			local := result.Local[collection]
			remote := result.Remote[collection]
			total += local + remote
			fmt.Printf("   %s: %d local, %d remote duplicates removed\n",
				collection, local, remote)
		}
		fmt.Printf("%s Clean complete (%d removed)\n", ui.RenderPass("✓"), total)
	},
}

// exportFile is the yaml document written by export and read by import.
type exportFile struct {
	Hero        model.Doc   `yaml:"hero"`
	Projects    []model.Doc `yaml:"projects"`
	Achievement []model.Doc `yaml:"achievements"`
	Analysis    []model.Doc `yaml:"analysis"`
}

var dataExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export all content to a YAML file (or stdout)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := log.New(io.Discard, "", 0)

		st, closeStore := openStore(cfg, logger)
		defer closeStore()

		ctx := context.Background()
		out := exportFile{
			Hero:        st.Hero(ctx),
			Projects:    st.List(ctx, model.CollectionProjects),
			Achievement: st.List(ctx, model.CollectionAchievements),
			Analysis:    st.List(ctx, model.CollectionAnalysis),
		}

		data, err := yaml.Marshal(out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding export: %v\n", err)
			os.Exit(1)
		}

		if len(args) == 0 {
			fmt.Print(string(data))
			return
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Printf("%s Exported to %s\n", ui.RenderPass("✓"), args[0])
	},
}

var dataImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import content from a YAML export",
	Long: `Import content from a file produced by 'folio data export'.

Documents with ids are updated in place; documents without ids are
created. The hero banner is merged over the current one.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := log.New(io.Discard, "", 0)

		st, closeStore := openStore(cfg, logger)
		defer closeStore()

		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", args[0], err)
			os.Exit(1)
		}
		var in exportFile
		if err := yaml.Unmarshal(data, &in); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", args[0], err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		imported := 0
		byCollection := map[string][]model.Doc{
			model.CollectionProjects:     in.Projects,
			model.CollectionAchievements: in.Achievement,
			model.CollectionAnalysis:     in.Analysis,
		}
		for _, collection := range model.Collections {
			for _, doc := range byCollection[collection] {
				if err := importDoc(ctx, st, collection, doc); err != nil {
					fmt.Fprintf(os.Stderr, "Error importing into %s: %v\n", collection, err)
					os.Exit(1)
				}
				imported++
			}
		}
		if in.Hero != nil {
			if _, err := st.UpdateHero(ctx, in.Hero); err != nil {
				fmt.Fprintf(os.Stderr, "Error importing hero: %v\n", err)
				os.Exit(1)
			}
		}

		fmt.Printf("%s Imported %d documents from %s\n", ui.RenderPass("✓"), imported, args[0])
	},
}

// importDoc updates when the document's id already exists, otherwise
// creates a fresh document.
func importDoc(ctx context.Context, st *store.Store, collection string, doc model.Doc) error {
	if id := doc.ID(); id != "" {
		_, err := st.Update(ctx, collection, id, doc)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	_, err := st.Create(ctx, collection, doc)
	return err
}

func init() {
	dataCmd.AddCommand(dataListCmd)
	dataCmd.AddCommand(dataResetCmd)
	dataCmd.AddCommand(dataCleanCmd)
	dataCmd.AddCommand(dataExportCmd)
	dataCmd.AddCommand(dataImportCmd)
	rootCmd.AddCommand(dataCmd)
}
