package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ayonizm/folio/internal/ui"
)

var adminCmd = &cobra.Command{
	Use:     "admin",
	GroupID: "content",
	Short:   "Manage the admin authentication flag",
}

var adminLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in as admin",
	Long: `Log in with the configured admin password.

On success the authentication flag is stored in the local cache, which
is what the admin panel checks before allowing edits. A wrong password
just reports failure; there is no lockout.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := log.New(io.Discard, "", 0)

		st, closeStore := openStore(cfg, logger)
		defer closeStore()

		password, err := promptPassword()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
			os.Exit(1)
		}

		if !st.Login(password) {
			fmt.Printf("%s Incorrect password\n", ui.RenderErr("✗"))
			os.Exit(1)
		}
		fmt.Printf("%s Logged in\n", ui.RenderPass("✓"))
	},
}

var adminLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear the authentication flag",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := log.New(io.Discard, "", 0)

		st, closeStore := openStore(cfg, logger)
		defer closeStore()

		st.Logout()
		fmt.Printf("%s Logged out\n", ui.RenderPass("✓"))
	},
}

var adminStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an admin session is active",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := log.New(io.Discard, "", 0)

		st, closeStore := openStore(cfg, logger)
		defer closeStore()

		if st.IsAuthenticated() {
			fmt.Printf("%s Authenticated\n", ui.RenderPass("✓"))
		} else {
			fmt.Printf("%s Not authenticated\n", ui.RenderDim("○"))
		}
	},
}

// promptPassword asks interactively, falling back to a plain hidden
// read when the fancy form cannot run.
func promptPassword() (string, error) {
	var password string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Admin password").
			EchoMode(huh.EchoModePassword).
			Value(&password),
	))
	if err := form.Run(); err == nil {
		return password, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func init() {
	adminCmd.AddCommand(adminLoginCmd)
	adminCmd.AddCommand(adminLogoutCmd)
	adminCmd.AddCommand(adminStatusCmd)
	rootCmd.AddCommand(adminCmd)
}
