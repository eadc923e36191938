package cmd

import (
	"fmt"
	"strings"

	"github.com/foxhunt/disdrop/internal/log"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent upload sessions",
	Long: `List recent upload sessions from the operation log, newest first,
with how many uploads each one performed and how many failed.`,
	RunE: runHistoryCommand,
}

var historyLimit int

func runHistoryCommand(cmd *cobra.Command, args []string) error {
	sessions, err := log.ReadSessions(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read log sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No upload sessions logged yet.")
		return nil
	}

	for _, session := range sessions {
		meta := session.Metadata
		line := fmt.Sprintf("%s  %s  %d ops",
			meta.Timestamp.Format("2006-01-02 15:04"),
			strings.Join(meta.CommandArgs, " "),
			meta.TotalOps)
		if meta.FailedOps > 0 {
			line += fmt.Sprintf(" (%d failed)", meta.FailedOps)
		}
		fmt.Println(line)
	}
	return nil
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of sessions to show")
	rootCmd.AddCommand(historyCmd)
}
