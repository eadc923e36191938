package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "disdrop",
	Short: "A tool for uploading media folders to Discord",
	Long: `disdrop uploads directories of videos, gifs, and images to Discord channels,
threads, and forum posts.

It pairs .mp4/.gif twins into single messages, keeps multi-part clips in
order between separator messages, and skips files the channel already has
by matching attachment names against the channel history.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var (
	tokenFlag     string
	tokenTypeFlag string
	instant       bool
	dryRun        bool
	noDedupe      bool

	mediaTypesFlag  string
	delayMS         int
	concurrency     int
	maxFileMB       int
	historyMessages int
)

func init() {
	// Global flags for all commands
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Discord token (falls back to the DISCORD_TOKEN environment variable)")
	rootCmd.PersistentFlags().StringVar(&tokenTypeFlag, "token-type", "", "Token type: bot or user (overrides the config)")
	rootCmd.PersistentFlags().BoolVarP(&instant, "instant", "i", false, "Upload immediately without interactive review or progress view")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Resolve and plan everything but send nothing")
	rootCmd.PersistentFlags().BoolVar(&noDedupe, "no-dedupe", false, "Skip the channel history check and upload everything")
	rootCmd.PersistentFlags().StringVar(&mediaTypesFlag, "media", "", "Media types to upload: all, videos, gifs, or images (overrides the config)")
	rootCmd.PersistentFlags().IntVar(&delayMS, "delay-ms", -1, "Pause between messages in milliseconds (overrides the config)")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "Concurrent uploads for non-segmented media (overrides the config)")
	rootCmd.PersistentFlags().IntVar(&maxFileMB, "max-file-mb", 0, "Per-file size limit in MB (overrides the config)")
	rootCmd.PersistentFlags().IntVar(&historyMessages, "history-limit", 0, "Channel messages to scan for duplicates (overrides the config)")
}
