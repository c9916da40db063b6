package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Dami4lola/Ea-script/internal/store"
)

// historyKeys maps the command argument to the blob it reads.
var historyKeys = map[string]string{
	"templates": store.KeyTemplates,
	"locks":     store.KeyLocks,
}

var historyCmd = &cobra.Command{
	Use:   "history <templates|locks>",
	Short: "List or restore earlier versions of the templates or locks",
	Long: `Every change to the saved templates or locked players keeps the value it
replaced. history lists those revisions, newest first. With --restore the
chosen revision becomes the current value again; the value it replaces is
kept in history as well.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"templates", "locks"},
	RunE:      showHistory,
}

func init() {
	historyCmd.Flags().Int64("restore", 0, "Revision id to make current")
}

func showHistory(cmd *cobra.Command, args []string) error {
	key, ok := historyKeys[args[0]]
	if !ok {
		return fmt.Errorf("unknown history %q (want templates or locks)", args[0])
	}
	restore, _ := cmd.Flags().GetInt64("restore")

	s, err := store.NewSQLiteStore(cfg.ResolveDatabasePath(workspace))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	revs, err := s.History(key)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if restore != 0 {
		for _, r := range revs {
			if r.ID != restore {
				continue
			}
			if err := s.Put(key, r.Data); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s Restored %s revision %d (%s)\n", okMark(), args[0], r.ID, describeBlob(r.Data))
			return nil
		}
		return fmt.Errorf("no %s revision %d", args[0], restore)
	}

	if len(revs) == 0 {
		fmt.Fprintf(out, "No earlier %s.\n", args[0])
		return nil
	}
	for _, r := range revs {
		fmt.Fprintf(out, "%s  %s  %s\n",
			color.CyanString("%4s", strconv.FormatInt(r.ID, 10)),
			r.ReplacedAt.Local().Format("2006-01-02 15:04:05"),
			describeBlob(r.Data))
	}
	return nil
}

// describeBlob summarizes a stored registry value.
func describeBlob(data []byte) string {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return "unreadable"
	}
	switch t := v.(type) {
	case []interface{}:
		return fmt.Sprintf("%d entries", len(t))
	case map[string]interface{}:
		return fmt.Sprintf("%d entries", len(t))
	}
	return "empty"
}
