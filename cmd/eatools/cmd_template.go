package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Dami4lola/Ea-script/internal/session"
	"github.com/Dami4lola/Ea-script/internal/store"
	"github.com/Dami4lola/Ea-script/internal/templates"
)

// openBlobs opens the local database without touching the browser. Swapped in tests.
var openBlobs = func() (store.BlobStore, func() error, error) {
	s, err := store.NewSQLiteStore(cfg.ResolveDatabasePath(workspace))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return s, s.Close, nil
}

func withTemplates(fn func(r *templates.Registry) error) error {
	blobs, closeFn, err := openBlobs()
	if err != nil {
		return err
	}
	defer closeFn()
	r, err := templates.Open(blobs)
	if err != nil {
		return err
	}
	return fn(r)
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage SBC position templates",
}

var templateSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the open SBC's required positions as a template",
	Long: `Reads the squad grid of the SBC currently open in the web app and stores
its positions, keyed by challenge id. Saving again overwrites the template.`,
	Args: cobra.NoArgs,
	RunE: templateSave,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved templates",
	Args:  cobra.NoArgs,
	RunE:  templateList,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete [challenge-id]",
	Short: "Delete a saved template",
	Args:  cobra.ExactArgs(1),
	RunE:  templateDelete,
}

func templateSave(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session.Session, _ session.LegacySource) error {
		tpl, err := s.CaptureTemplate(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Template saved for SBC: %s (%s)\n",
			okMark(), tpl.ChallengeID, strings.Join(tpl.Positions, ", "))
		return nil
	})
}

func templateList(cmd *cobra.Command, args []string) error {
	return withTemplates(func(r *templates.Registry) error {
		out := cmd.OutOrStdout()
		summaries := r.List()
		if len(summaries) == 0 {
			fmt.Fprintln(out, color.YellowString("No templates saved."))
			return nil
		}
		for _, sum := range summaries {
			tpl, _ := r.Get(sum.ChallengeID)
			fmt.Fprintf(out, "%-12s %2d slots  %s\n", sum.ChallengeID, sum.SlotCount, strings.Join(tpl.Positions, " "))
		}
		return nil
	})
}

func templateDelete(cmd *cobra.Command, args []string) error {
	return withTemplates(func(r *templates.Registry) error {
		if _, ok := r.Get(args[0]); !ok {
			return fmt.Errorf("no template for SBC %s", args[0])
		}
		if err := r.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted template %s\n", okMark(), args[0])
		return nil
	})
}
