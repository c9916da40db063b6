package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dami4lola/Ea-script/internal/session"
	"github.com/Dami4lola/Ea-script/internal/surface"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which web app services are loaded",
	Args:  cobra.NoArgs,
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session.Session, _ session.LegacySource) error {
		st := s.Status()
		out := cmd.OutOrStdout()

		fmt.Fprint(out, "Services —")
		for _, k := range surface.All {
			fmt.Fprintf(out, " %s:%s ", k.Label(), mark(st.Readiness.Ready(k)))
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Templates: %d  Locked: %d\n", st.Templates, st.Locked)
		if st.Selected != "" {
			fmt.Fprintf(out, "Selected template: %s\n", st.Selected)
		}
		if !st.Readiness.Challenge {
			fmt.Fprintln(out, "Tip: Open an SBC first so services load.")
		}
		return nil
	})
}
