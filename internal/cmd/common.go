package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/foxhunt/disdrop/internal/config"
	"github.com/foxhunt/disdrop/internal/dedupe"
	"github.com/foxhunt/disdrop/internal/discord"
	"github.com/foxhunt/disdrop/internal/log"
	"github.com/foxhunt/disdrop/internal/scanner"
	"github.com/foxhunt/disdrop/internal/tui/progress"
	"github.com/foxhunt/disdrop/internal/tui/review"
	"github.com/foxhunt/disdrop/internal/tui/theme"
	"github.com/foxhunt/disdrop/internal/upload"
)

// loadConfig loads the user config, applies flag overrides, and starts
// the logging layer.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if tokenTypeFlag != "" {
		if tokenTypeFlag != config.TokenTypeBot && tokenTypeFlag != config.TokenTypeUser {
			return nil, fmt.Errorf("invalid token type %q: want %q or %q", tokenTypeFlag, config.TokenTypeBot, config.TokenTypeUser)
		}
		cfg.TokenType = tokenTypeFlag
	}
	if mediaTypesFlag != "" {
		switch mediaTypesFlag {
		case config.MediaAll, config.MediaVideos, config.MediaGifs, config.MediaImages:
			cfg.MediaTypes = mediaTypesFlag
		default:
			return nil, fmt.Errorf("invalid media type %q", mediaTypesFlag)
		}
	}
	if delayMS >= 0 {
		cfg.UploadDelayMS = delayMS
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}
	if maxFileMB > 0 {
		cfg.MaxFileMB = float64(maxFileMB)
	}
	if historyMessages > 0 {
		cfg.HistoryMaxMessages = historyMessages
	}

	log.Initialize(cfg.EnableLogging, cfg.LogRetentionDays)
	return cfg, nil
}

// resolveToken returns the Discord token from the flag or environment.
// Tokens are never written to the config file.
func resolveToken() (string, error) {
	if tokenFlag != "" {
		return tokenFlag, nil
	}
	if tok := os.Getenv("DISCORD_TOKEN"); tok != "" {
		return tok, nil
	}
	return "", fmt.Errorf("no Discord token: set DISCORD_TOKEN or pass --token")
}

func storePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".disdrop", "dedupe.json"), nil
}

// newJob assembles the client, scanner, and dedupe store for one command
// invocation.
func newJob(cfg *config.Config) (*upload.Job, error) {
	token, err := resolveToken()
	if err != nil {
		return nil, err
	}

	job := &upload.Job{
		Client:  discord.NewClient(token, cfg.TokenType),
		Config:  cfg,
		Scanner: scanner.New(cfg.Heuristics()),
	}
	if cfg.PersistDedupe {
		path, err := storePath()
		if err != nil {
			return nil, err
		}
		job.Store = dedupe.LoadStore(path)
	}
	return job, nil
}

// uploadRequest runs the full pipeline for one destination: prepare,
// optional review, upload, store save.
func uploadRequest(ctx context.Context, job *upload.Job, req upload.Request, commandName string, interactive bool) error {
	plan, err := job.Prepare(ctx, req)
	if err != nil {
		return err
	}

	if isEmptyPlan(plan) {
		fmt.Printf("%s: nothing to upload (%d duplicates already on the channel)\n",
			req.Dir, skippedCount(plan))
		return nil
	}

	if interactive && !req.DryRun {
		confirmed, err := reviewPlan(plan)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Upload canceled.")
			return nil
		}
	}

	if err := log.StartSession(commandName, os.Args[1:]); err != nil {
		return fmt.Errorf("failed to start session log: %w", err)
	}
	defer func() {
		_ = log.EndSession()
	}()
	logSkippedDuplicates(plan)

	if interactive {
		err = runWithProgress(job, plan, req)
	} else {
		err = runPlain(ctx, job, plan, req)
	}
	if err != nil {
		return err
	}

	if job.Store != nil {
		if serr := job.Store.Save(); serr != nil {
			fmt.Printf("Warning: failed to save dedupe store: %v\n", serr)
		}
	}
	return nil
}

// runWithProgress drives the upload through the progress TUI.
func runWithProgress(job *upload.Job, plan *upload.Plan, req upload.Request) error {
	engine := job.Engine(plan, req)
	model := progress.NewUploadProgressModel(engine, plan.Result, theme.Default())

	finalModel, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	pm, ok := finalModel.(*progress.UploadProgressModel)
	if !ok {
		return fmt.Errorf("unexpected model type %T after upload", finalModel)
	}
	if perr := pm.Err(); perr != nil {
		return perr
	}
	fmt.Println(upload.SummaryLine(pm.Summary()))
	return nil
}

// runPlain drains engine events without a TUI, printing errors as they
// happen.
func runPlain(ctx context.Context, job *upload.Job, plan *upload.Plan, req upload.Request) error {
	if req.DryRun {
		printPlan(plan)
	}
	engine, events := job.Run(ctx, plan, req)
	for ev := range events {
		if ev.Err != nil {
			fmt.Printf("Error: %v\n", ev.Err)
		}
	}
	summary := engine.SummarySnapshot()
	fmt.Println(upload.SummaryLine(summary))
	if summary.Aborted {
		return fmt.Errorf("upload aborted")
	}
	return nil
}

// reviewPlan opens the plan review TUI and reports whether the user
// confirmed the upload.
func reviewPlan(plan *upload.Plan) (bool, error) {
	model := review.NewReviewModel(plan)
	finalModel, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	if err != nil {
		return false, err
	}
	rm, ok := finalModel.(*review.ReviewModel)
	if !ok {
		return false, fmt.Errorf("unexpected model type %T after review", finalModel)
	}
	return rm.Confirmed(), nil
}

// printPlan writes a plain-text listing of what a plan would upload.
func printPlan(plan *upload.Plan) {
	if plan.ThreadName != "" {
		verb := "using"
		if plan.ThreadCreated {
			verb = "creating"
		}
		fmt.Printf("Thread: %s (%s)\n", plan.ThreadName, verb)
	}
	for _, p := range plan.Result.Pairs {
		fmt.Printf("  pair    %s + %s\n", filepath.Base(p.MP4Path), filepath.Base(p.GIFPath))
	}
	for _, s := range plan.Result.Singles {
		fmt.Printf("  single  %s\n", filepath.Base(s.Path))
	}
	if n := skippedCount(plan); n > 0 {
		fmt.Printf("  skipping %d duplicates already on the channel\n", n)
	}
}

func isEmptyPlan(plan *upload.Plan) bool {
	return len(plan.Result.Pairs) == 0 && len(plan.Result.Singles) == 0
}

func skippedCount(plan *upload.Plan) int {
	d := plan.Diagnostics
	return d.DroppedPairs*2 + d.DemotedHalves + d.DroppedSingles
}

// logSkippedDuplicates records every file dedupe removed from the plan in
// the session log.
func logSkippedDuplicates(plan *upload.Plan) {
	for _, r := range plan.Diagnostics.Reports {
		if r.Matched {
			log.LogSkipDuplicate(plan.TargetChannelID, r.Path)
		}
	}
}
