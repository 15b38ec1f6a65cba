package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/bootstrap"
	"github.com/nestfeed/client/internal/config"
	"github.com/nestfeed/client/internal/logging"
	sessionService "github.com/nestfeed/client/internal/service/session"
)

var (
	// Global flags
	verbose bool
	timeout time.Duration

	logger *zap.Logger
	core   *bootstrap.Core
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nestctl",
	Short: "Command line client for the nestfeed social network",
	Long: `nestctl talks to the nestfeed API with the same session the local
gateway uses. Log in once; the session stays valid for the retention window
(7 days by default) and is cleared as soon as it expires.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// stay quiet unless asked: stdout carries command output
		logger = zap.NewNop()
		if verbose || cfg.Debug {
			if logger, err = logging.New(true); err != nil {
				return err
			}
		}

		core, err = bootstrap.New(cfg, logger)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		releaseCore()
	},
}

// releaseCore runs after every command. PersistentPostRun is skipped when a
// command fails, so main calls it too.
func releaseCore() {
	if core != nil {
		if err := core.Close(); err != nil {
			logger.Warn("failed to release client core", zap.Error(err))
		}
		core = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-command timeout (chat is not limited)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(friendsCmd)
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(chatCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	releaseCore()
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

// commandContext bounds a one-shot command by --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// describe turns session errors into a hint instead of a bare message.
func describe(err error) string {
	switch {
	case errors.Is(err, sessionService.ErrNotLoggedIn):
		return "not logged in: run `nestctl login`"
	case errors.Is(err, sessionService.ErrSessionExpired):
		return "session expired: run `nestctl login` again"
	default:
		return "error: " + err.Error()
	}
}
