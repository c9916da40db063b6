package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Dami4lola/Ea-script/internal/autofill"
	"github.com/Dami4lola/Ea-script/internal/session"
	"github.com/Dami4lola/Ea-script/internal/surface"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fill and submit the open SBC until players run out",
	Long: `Repeatedly fills the open SBC from a saved template with the cheapest
unlocked club players that are not already in a squad, submits it, waits a
short cooldown and starts again. The run ends when a pass places nobody.

Press Ctrl+C once to stop after the current pass, twice to abort.`,
	Args: cobra.NoArgs,
	RunE: runAutofill,
}

func init() {
	runCmd.Flags().StringP("template", "t", "", "Challenge id of the template to use (default: first saved)")
	runCmd.Flags().Bool("dry-run", false, "Print the planned placements without touching the squad")
}

func runAutofill(cmd *cobra.Command, args []string) error {
	templateID, _ := cmd.Flags().GetString("template")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	return withSessionContext(ctx, func(ctx context.Context, s *session.Session, _ session.LegacySource) error {
		if templateID != "" {
			s.Select(templateID)
		}
		if s.Selected() == "" {
			return surface.NoTemplate("run")
		}
		if dryRun {
			return printPlan(ctx, cmd, s)
		}

		run, err := s.BeginSelected()
		if err != nil {
			return err
		}
		stopOnSignal(ctx, cmd, s, cancel)
		fmt.Fprintf(cmd.OutOrStdout(), "Auto running on template %s…\n", s.Selected())
		res, err := run(ctx)
		if err != nil {
			return err
		}
		printResult(cmd, res)
		return nil
	})
}

// stopOnSignal asks the loop to stop after the current pass on the first
// signal and cancels the run on the second.
func stopOnSignal(ctx context.Context, cmd *cobra.Command, s *session.Session, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
		}
		s.StopAutofill()
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("Stopping after the current pass… (Ctrl+C again to abort)"))
		select {
		case <-ctx.Done():
		case <-sigCh:
			cancel()
		}
	}()
}

func printPlan(ctx context.Context, cmd *cobra.Command, s *session.Session) error {
	plan, err := s.Loop.DryRun(ctx, s.Selected())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range plan {
		if !p.Matched {
			fmt.Fprintf(out, "%2d %-4s %s\n", p.Slot, p.Position, color.YellowString("no player"))
			continue
		}
		fmt.Fprintf(out, "%2d %-4s %-14s %s (%d)\n", p.Slot, p.Position, p.Item.ID, p.Item.Name, p.Item.Cost())
	}
	fmt.Fprintf(out, "%d/%d slots would be filled\n", autofill.Matched(plan), len(plan))
	return nil
}

func printResult(cmd *cobra.Command, res autofill.Result) {
	out := cmd.OutOrStdout()
	switch res.Outcome {
	case autofill.Exhausted:
		fmt.Fprintf(out, "%s No more players. Submitted %d SBCs (%d players placed).\n", okMark(), res.Passes, res.Placed)
	default:
		fmt.Fprintf(out, "%s Stopped. Submitted %d SBCs (%d players placed).\n", okMark(), res.Passes, res.Placed)
	}
}
