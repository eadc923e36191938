package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/foxhunt/disdrop/internal/upload"
	"github.com/spf13/cobra"
)

var autoCmd = &cobra.Command{
	Use:   "auto <directory> <channel>",
	Short: "Upload each media subdirectory to its own thread",
	Long: `Walk the top-level subdirectories of a directory and upload each one to
its own thread on the target channel, titled after the subdirectory.

Directories named like "clips_segments" drop the suffix; directories whose
files are mostly numbered parts of one clip are titled after that clip.
Media sitting directly in the root directory goes to the channel itself.`,
	Args: cobra.ExactArgs(2),
	RunE: runAutoCommand,
}

func runAutoCommand(cmd *cobra.Command, args []string) error {
	root, channel := args[0], args[1]
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", root)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	job, err := newJob(cfg)
	if err != nil {
		return err
	}

	subdirs, err := job.Scanner.TopLevelMediaSubdirs(root)
	if err != nil {
		return err
	}
	hasRootMedia, err := job.Scanner.HasRootLevelMedia(root)
	if err != nil {
		return err
	}
	if len(subdirs) == 0 && !hasRootMedia {
		fmt.Printf("%s: no media found\n", root)
		return nil
	}

	ctx := cmd.Context()
	for _, sub := range subdirs {
		dir := filepath.Join(root, sub)
		req := upload.Request{
			Dir:         dir,
			Channel:     channel,
			ThreadTitle: job.Scanner.SuggestThreadTitle(dir),
			DryRun:      dryRun,
			NoDedupe:    noDedupe,
		}
		fmt.Printf("=== %s -> thread %q\n", sub, req.ThreadTitle)
		if err := uploadRequest(ctx, job, req, "auto", !instant); err != nil {
			return fmt.Errorf("%s: %w", sub, err)
		}
	}

	if hasRootMedia {
		req := upload.Request{
			Dir:          root,
			Channel:      channel,
			DryRun:       dryRun,
			NoDedupe:     noDedupe,
			TopLevelOnly: true,
		}
		fmt.Println("=== root media -> channel")
		if err := uploadRequest(ctx, job, req, "auto", !instant); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(autoCmd)
}
