package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dami4lola/Ea-script/internal/session"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import templates and locks saved by the in-page tools",
	Long: `Reads the sbc_templates and locked_players entries from the web app's
localStorage and merges them into the local database. Existing templates with
the same challenge id are overwritten; locks are only added.`,
	Args: cobra.NoArgs,
	RunE: importLegacy,
}

func importLegacy(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session.Session, legacy session.LegacySource) error {
		if legacy == nil {
			return errors.New("this session cannot read localStorage")
		}
		rep, err := s.ImportLegacy(ctx, legacy)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Imported %d templates and %d locks\n", okMark(), rep.Templates, rep.Locks)
		return nil
	})
}
