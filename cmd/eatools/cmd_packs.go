package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dami4lola/Ea-script/internal/session"
)

var packsCmd = &cobra.Command{
	Use:   "packs",
	Short: "Store pack automation",
}

var packsOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open every unopened pack in the store",
	Long: `Opens the store's unopened packs in order, sending each pack's contents to
the club or unassigned pile when the web app supports it.

Go to Store → My Packs in the web app first.`,
	Args: cobra.NoArgs,
	RunE: openPacks,
}

func openPacks(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session.Session, _ session.LegacySource) error {
		rep, err := s.OpenPacks(ctx)
		out := cmd.OutOrStdout()
		if rep.Total > 0 {
			fmt.Fprintf(out, "Opened %d/%d packs, distributed %d\n", rep.Opened, rep.Total, rep.Distributed)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s All packs opened!\n", okMark())
		return nil
	})
}
