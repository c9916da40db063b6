package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dami4lola/Ea-script/internal/config"
	"github.com/Dami4lola/Ea-script/internal/store"
)

var backupCmd = &cobra.Command{
	Use:   "backup [dest]",
	Short: "Copy the template and lock database",
	Long: `Writes a consistent copy of the local database. Without a destination the
copy goes to .eatools/backups/ with a timestamped name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	dest := filepath.Join(workspace, config.DirName, "backups",
		fmt.Sprintf("eatools_%s.db", time.Now().Format("20060102_150405")))
	if len(args) == 1 {
		dest = args[0]
	}

	s, err := store.NewSQLiteStore(cfg.ResolveDatabasePath(workspace))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	keys, err := s.Keys()
	if err != nil {
		return err
	}
	if err := s.Backup(dest); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Backup written to %s (%s)\n", okMark(), dest, strings.Join(keys, ", "))
	return nil
}
