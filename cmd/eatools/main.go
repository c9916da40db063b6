package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Dami4lola/Ea-script/internal/config"
	"github.com/Dami4lola/Ea-script/internal/logging"
	"github.com/Dami4lola/Ea-script/internal/session"
	"github.com/Dami4lola/Ea-script/internal/surface"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "eatools",
	Short: "Squad-building and pack automation for the Ultimate Team web app",
	Long: `eatools drives the Ultimate Team web app through Chrome.

It saves SBC position templates, fills and submits challenges from your
cheapest unlocked club players, and opens every unopened pack in the store.

Start Chrome once with "eatools browser launch", log in, then run the other
commands from a second terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if workspace == "" {
			if workspace, err = config.FindWorkspaceRoot(); err != nil {
				return fmt.Errorf("failed to find workspace: %w", err)
			}
		}

		path := configPath
		if path == "" {
			path = config.DefaultPath(workspace)
		}
		if cfg, err = config.Load(path); err != nil {
			return err
		}
		if err := logging.Configure(workspace, cfg.Logging.Settings()); err != nil {
			logger.Warn("file logging disabled", zap.Error(err))
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default .eatools/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: nearest directory with .eatools)")

	browserCmd.AddCommand(browserLaunchCmd)

	templateCmd.AddCommand(templateSaveCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateDeleteCmd)

	lockCmd.AddCommand(lockToggleCmd)
	lockCmd.AddCommand(lockListCmd)
	lockCmd.AddCommand(lockClubCmd)

	packsCmd.AddCommand(packsOpenCmd)

	rootCmd.AddCommand(browserCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(packsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(dockCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %s", surface.GuidanceOf(err)))
		os.Exit(1)
	}
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openSession is swapped in tests. The second result reads the app's
// localStorage.
var openSession = func(ctx context.Context) (*session.Session, session.LegacySource, error) {
	s, bridge, err := session.Open(ctx, cfg, workspace)
	if err != nil {
		return nil, nil, err
	}
	return s, bridge, nil
}

// withSession opens a session against the host app and runs fn beside the
// readiness probe.
func withSession(fn func(ctx context.Context, s *session.Session, legacy session.LegacySource) error) error {
	ctx, cancel := signalContext()
	defer cancel()
	return withSessionContext(ctx, fn)
}

func withSessionContext(ctx context.Context, fn func(ctx context.Context, s *session.Session, legacy session.LegacySource) error) error {
	s, legacy, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("session close", zap.Error(err))
		}
	}()

	return s.Serve(ctx, func(ctx context.Context) error {
		return fn(ctx, s, legacy)
	})
}

func okMark() string {
	return color.GreenString("✔")
}

func mark(ready bool) string {
	if ready {
		return okMark()
	}
	return color.YellowString("…")
}
