package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foxhunt/disdrop/internal/dedupe"
	"github.com/foxhunt/disdrop/internal/media"
	"github.com/foxhunt/disdrop/internal/probe"
	"github.com/foxhunt/disdrop/internal/scanner"
	"github.com/foxhunt/disdrop/internal/upload"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <directory>",
	Short: "Show what a directory would upload, without connecting to Discord",
	Long: `Scan a directory the way an upload would and print the resulting plan:
which files pair up, which travel together as numbered segments, and what
thread title each subdirectory would get.`,
	Args: cobra.ExactArgs(1),
	RunE: runScanCommand,
}

var scanReview bool

func runScanCommand(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sc := scanner.New(cfg.Heuristics())

	result, err := sc.Scan(dir)
	if err != nil {
		return err
	}

	plan := &upload.Plan{
		Scanned:     result,
		Result:      result,
		Diagnostics: dedupe.Diagnose(result, dedupe.NewCatalog(nil)),
	}

	if scanReview {
		_, err := reviewPlan(plan)
		return err
	}

	printPlan(plan)

	if cfg.EnableFFprobe {
		printProbeInfo(cmd.Context(), plan)
	}

	subdirs, err := sc.TopLevelMediaSubdirs(dir)
	if err != nil {
		return err
	}
	for _, sub := range subdirs {
		fmt.Printf("  thread  %s -> %q\n", sub, sc.SuggestThreadTitle(filepath.Join(dir, sub)))
	}
	return nil
}

// printProbeInfo runs ffprobe over the planned videos and prints what it
// finds. Probe failures are reported per file and do not stop the scan.
func printProbeInfo(ctx context.Context, plan *upload.Plan) {
	prober := probe.New()
	inspect := func(path string) {
		if !media.IsVideo(path) {
			return
		}
		info, err := prober.Inspect(ctx, path)
		if err != nil {
			fmt.Printf("  probe   %s: %v\n", filepath.Base(path), err)
			return
		}
		fmt.Printf("  probe   %s: %s %dx%d %s\n",
			filepath.Base(path), info.VideoCodec, info.Width, info.Height,
			info.Duration.Round(time.Second))
	}
	for _, p := range plan.Result.Pairs {
		inspect(p.MP4Path)
	}
	for _, s := range plan.Result.Singles {
		inspect(s.Path)
	}
}

func init() {
	scanCmd.Flags().BoolVar(&scanReview, "review", false, "Browse the plan in the interactive tree view")
	rootCmd.AddCommand(scanCmd)
}
