package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ayonizm/folio/internal/dashboard"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "server",
	Short:   "Start the admin dashboard with real-time updates",
	Long: `Start the portfolio dashboard server.

The server exposes the admin REST API and a WebSocket feed of live
changes. Reads are public; mutations require logging in with the
configured admin password.

WebSocket messages include:
- collection_update: a collection's documents changed
- hero_update: the hero banner changed
- clean_complete: a duplicate-repair pass finished
- stats: a fresh statistics report

Example usage:
  folio serve                  # Start on the configured port (default 8422)
  folio serve --port 9000      # Start on a custom port

Connect with a WebSocket client:
  ws://localhost:8422/ws`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Server.Port
		}

		var logOut io.Writer = os.Stderr
		if cfg.Server.LogFile != "" {
			logOut = &lumberjack.Logger{
				Filename:   cfg.Server.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			}
		}
		logger := log.New(logOut, "[folio] ", log.LstdFlags)

		st, closeStore := openStore(cfg, logger)
		defer closeStore()

		server := dashboard.NewServer(&dashboard.Config{
			Port:       port,
			Store:      st,
			Aggregator: buildAggregator(cfg, logger),
			Logger:     logger,
		})

		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start server: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Dashboard server started on http://localhost:%d\n", port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Printf("Health check: http://localhost:%d/health\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nShutting down server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Server stopped")
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
