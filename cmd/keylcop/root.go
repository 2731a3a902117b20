package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keylcop/keylcop-tui/internal/config"
	"github.com/keylcop/keylcop-tui/internal/credential"
	"github.com/keylcop/keylcop-tui/internal/logging"
	"github.com/keylcop/keylcop-tui/internal/tui"
	"github.com/keylcop/keylcop-tui/pkg/client"
	"github.com/keylcop/keylcop-tui/pkg/domain"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "keylcop",
	Short: "Terminal client for the keylcop notification system",
	Long: `keylcop is a terminal client for the keylcop notification system.

Running it without a subcommand opens the interactive dashboard: log
in, send notifications to other users, and watch your own arrive live
in the notification bell.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger := logging.New(cfg.LogLevel)

		c := client.New(cfg.APIURL, readToken())
		user := resolveUser(c, logger)

		app := tui.NewApp(c, logger, user)
		p := tea.NewProgram(app, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/keylcop/config.yaml)")
	rootCmd.AddCommand(sendCmd, historyCmd, whoamiCmd, logoutCmd, versionCmd)
}

// readToken resolves the session token: env var > keyring > empty.
func readToken() string {
	if tok := os.Getenv("KEYLCOP_TOKEN"); tok != "" {
		return tok
	}
	return credential.Token()
}

// resolveUser validates the stored token against the backend. Only an
// actual auth failure (401) discards the session; transient errors keep
// it so the TUI can retry.
func resolveUser(c *client.Client, logger zerolog.Logger) *domain.User {
	if c.Token() == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	user, err := c.CurrentUser(ctx)
	if err != nil {
		if client.IsStatus(err, 401) {
			c.SetToken("")
			return nil
		}
		logger.Warn().Err(err).Msg("session check failed, continuing unauthenticated")
		return nil
	}
	return user
}

// newCLIClient builds an authenticated client for one-shot commands.
func newCLIClient() (*client.Client, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	token := readToken()
	if token == "" {
		return nil, fmt.Errorf("not logged in, run keylcop and sign in first")
	}
	return client.New(cfg.APIURL, token), nil
}

var sendCmd = &cobra.Command{
	Use:   "send <target-email> <message>",
	Short: "Send a notification without opening the dashboard",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ntype, _ := cmd.Flags().GetString("type") //nolint:errcheck // flag is registered below
		if !validNotificationType(ntype) {
			return fmt.Errorf("unknown notification type %q", ntype)
		}

		c, err := newCLIClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		message := strings.Join(args[1:], " ")
		if err := c.SendNotification(ctx, args[0], message, ntype); err != nil {
			return err
		}
		fmt.Printf("Sent to %s\n", args[0])
		return nil
	},
}

func validNotificationType(t string) bool {
	switch t {
	case domain.TypeInfo, domain.TypeSuccess, domain.TypeWarning, domain.TypeError, domain.TypeReleaseNotes:
		return true
	}
	return false
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List notifications stored for your account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all") //nolint:errcheck // flag is registered below

		c, err := newCLIClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fetch := c.UserNotifications
		if all {
			fetch = c.StoredNotifications
		}
		notifications, err := fetch(ctx)
		if err != nil {
			return err
		}
		if len(notifications) == 0 {
			fmt.Println("No notifications.")
			return nil
		}
		for _, n := range notifications {
			marker := " "
			if !n.Read {
				marker = "*"
			}
			ts := ""
			if !n.Timestamp.IsZero() {
				ts = n.Timestamp.Local().Format("2006-01-02 15:04")
			}
			title := n.Title
			if title == "" {
				title = n.Body()
			}
			fmt.Printf("%s %-16s [%s] %s\n", marker, ts, n.Type, title)
		}
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the currently authenticated user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCLIClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		user, err := c.CurrentUser(ctx)
		if err != nil {
			if client.IsStatus(err, 401) {
				return fmt.Errorf("session expired, run keylcop and sign in again")
			}
			return err
		}
		if user.Name != "" {
			fmt.Printf("%s <%s>\n", user.Name, user.Email)
		} else {
			fmt.Println(user.Email)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := readToken()
		if token == "" {
			fmt.Println("Already logged out.")
			return nil
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Best effort: the local token is cleared even when the server
		// call fails.
		if err := client.New(cfg.APIURL, token).Logout(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "server logout failed: %v\n", err)
		}
		if err := credential.ClearToken(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the keylcop version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("keylcop " + version)
	},
}

func init() {
	sendCmd.Flags().String("type", domain.TypeInfo, "notification type (info, success, warning, error, release_notes)")
	historyCmd.Flags().Bool("all", false, "list the backend's debug store across users")
}
