package cmd

import (
	"fmt"
	"os"

	"github.com/foxhunt/disdrop/internal/upload"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <directory> <channel>",
	Short: "Upload a directory of media to a channel",
	Long: `Upload every video, gif, and image under a directory to a Discord channel.

The channel may be a full channel URL or a bare channel ID. Forum channels
get a post titled after the directory; pass --thread to force a titled
thread on a text channel. Files whose names already appear in the channel
history are skipped unless --no-dedupe is set.`,
	Args: cobra.ExactArgs(2),
	RunE: runSendCommand,
}

var threadTitle string

func runSendCommand(cmd *cobra.Command, args []string) error {
	dir, channel := args[0], args[1]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	job, err := newJob(cfg)
	if err != nil {
		return err
	}

	req := upload.Request{
		Dir:         dir,
		Channel:     channel,
		ThreadTitle: threadTitle,
		DryRun:      dryRun,
		NoDedupe:    noDedupe,
	}
	return uploadRequest(cmd.Context(), job, req, "send", !instant)
}

func init() {
	sendCmd.Flags().StringVar(&threadTitle, "thread", "", "Post into a thread with this title, creating it if needed")
	rootCmd.AddCommand(sendCmd)
}
