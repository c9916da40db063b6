package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Dami4lola/Ea-script/internal/locks"
	"github.com/Dami4lola/Ea-script/internal/session"
	"github.com/Dami4lola/Ea-script/internal/surface"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Protect club players from being used by autofill",
}

var lockToggleCmd = &cobra.Command{
	Use:   "toggle [item-id]",
	Short: "Lock or unlock a club player",
	Args:  cobra.ExactArgs(1),
	RunE:  lockToggle,
}

var lockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List locked players",
	Args:  cobra.NoArgs,
	RunE:  lockList,
}

var lockClubCmd = &cobra.Command{
	Use:   "club",
	Short: "List club players from the web app with their lock state",
	Args:  cobra.NoArgs,
	RunE:  lockClub,
}

func init() {
	lockToggleCmd.Flags().String("name", "", "Player name shown in lists")
	lockToggleCmd.Flags().String("rating", "", "Player rating shown in lists")
	lockToggleCmd.Flags().String("pos", "", "Preferred position shown in lists")
}

func withLocks(fn func(r *locks.Registry) error) error {
	blobs, closeFn, err := openBlobs()
	if err != nil {
		return err
	}
	defer closeFn()
	r, err := locks.Open(blobs)
	if err != nil {
		return err
	}
	return fn(r)
}

func lockToggle(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	rating, _ := cmd.Flags().GetString("rating")
	pos, _ := cmd.Flags().GetString("pos")

	return withLocks(func(r *locks.Registry) error {
		locked, err := r.Toggle(args[0], locks.Meta{Name: name, Rating: rating, Pos: pos})
		if err != nil {
			return err
		}
		if locked {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Locked %s\n", okMark(), args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Unlocked %s\n", okMark(), args[0])
		}
		return nil
	})
}

func lockList(cmd *cobra.Command, args []string) error {
	return withLocks(func(r *locks.Registry) error {
		out := cmd.OutOrStdout()
		entries := r.List()
		if len(entries) == 0 {
			fmt.Fprintln(out, color.YellowString("No locked players"))
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "🔒 %-14s %s\n", e.ID, e.Format())
		}
		return nil
	})
}

func lockClub(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session.Session, _ session.LegacySource) error {
		if err := s.Gate.Require("list club", surface.Inventory); err != nil {
			return err
		}
		club, ok := s.Services().Club()
		if !ok {
			return surface.Unavailable("list club", surface.Inventory)
		}
		items, err := club.RequestClubPlayers(ctx)
		if err != nil {
			return fmt.Errorf("request club players: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, it := range items {
			icon := "🔓"
			if s.Locks.IsLocked(it.ID) {
				icon = "🔒"
			}
			squad := ""
			if it.InSquad {
				squad = color.New(color.Faint).Sprint(" (in squad)")
			}
			fmt.Fprintf(out, "%s %-14s %s – %s %s%s\n", icon, it.ID, it.Name, it.Rating, it.PreferredPosition, squad)
		}
		fmt.Fprintf(out, "%d players, %d locked\n", len(items), s.Locks.Len())
		return nil
	})
}
