package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Dami4lola/Ea-script/internal/session"
	"github.com/Dami4lola/Ea-script/internal/tui"
)

var dockCmd = &cobra.Command{
	Use:   "dock",
	Short: "Open the interactive dock",
	Long: `Opens a terminal dock with the service status line, the template selector,
the run counter, the pack opener and the lock list.`,
	Args: cobra.NoArgs,
	RunE: runDock,
}

func runDock(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session.Session, _ session.LegacySource) error {
		return tui.Run(ctx, s)
	})
}
