package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/foxhunt/disdrop/internal/config"
	"github.com/foxhunt/disdrop/internal/dedupe"
	"github.com/foxhunt/disdrop/internal/discord"
	"github.com/foxhunt/disdrop/internal/log"
	"github.com/foxhunt/disdrop/internal/media"
	"github.com/foxhunt/disdrop/internal/scanner"
)

// Client is the full Discord surface a job needs. *discord.Client
// implements it.
type Client interface {
	Sender
	Channel(ctx context.Context, channelID string) (*discord.ChannelInfo, error)
	FindThreadByName(ctx context.Context, parent *discord.ChannelInfo, name string) (*discord.ChannelInfo, error)
	StartForumPost(ctx context.Context, forumID, title, content string) (*discord.ChannelInfo, error)
	CreateThread(ctx context.Context, channelID, name string) (*discord.ChannelInfo, error)
	FetchExistingFilenames(ctx context.Context, channelID string, maxMessages int) ([]string, error)
}

// Request describes one upload destination.
type Request struct {
	Dir     string
	Channel string // channel URL or bare ID

	// ThreadTitle forces a thread with this name. Empty means no thread on
	// text channels; forum channels always get one, titled from the
	// directory when unset.
	ThreadTitle string
	DryRun      bool
	NoDedupe    bool

	// TopLevelOnly skips subdirectories, uploading only files sitting
	// directly in Dir.
	TopLevelOnly bool
}

// Plan is the resolved, filtered upload plan for one destination.
type Plan struct {
	TargetChannelID string
	ThreadName      string
	ThreadCreated   bool

	Scanned     *scanner.Result // before dedupe
	Result      *scanner.Result // what will be uploaded
	Diagnostics dedupe.Diagnostics
}

// Job wires the scanner, dedupe, and Discord client together for one or
// more upload runs sharing a config.
type Job struct {
	Client  Client
	Config  *config.Config
	Scanner *scanner.Scanner
	Store   *dedupe.Store // optional persisted seen names
}

// Prepare resolves the destination channel, scans the directory, and
// filters out files the channel already has. It performs no uploads.
func (j *Job) Prepare(ctx context.Context, req Request) (*Plan, error) {
	_, channelID, threadID, err := discord.ParseChannelURL(req.Channel)
	if err != nil {
		return nil, err
	}
	// A thread URL targets the thread itself, not its parent channel.
	if threadID != "" {
		channelID = threadID
	}

	plan := &Plan{}
	if err := j.resolveTarget(ctx, plan, channelID, req); err != nil {
		return nil, err
	}

	scan := j.Scanner.Scan
	if req.TopLevelOnly {
		scan = j.Scanner.ScanTop
	}
	scanned, err := scan(req.Dir)
	if err != nil {
		return nil, err
	}
	scanned = applySelection(scanned, j.Config)
	plan.Scanned = scanned

	catalog, err := j.buildCatalog(ctx, plan.TargetChannelID, req)
	if err != nil {
		return nil, err
	}
	plan.Diagnostics = dedupe.Diagnose(scanned, catalog)
	plan.Result = dedupe.Filter(scanned, catalog)
	return plan, nil
}

// Run executes a prepared plan. The returned engine exposes progress
// snapshots and errors; the channel streams events until the run ends.
func (j *Job) Run(ctx context.Context, plan *Plan, req Request) (*Engine, <-chan Event) {
	engine := j.Engine(plan, req)
	return engine, engine.Start(ctx, plan.Result)
}

// Engine builds the engine for a prepared plan without starting it. The
// progress TUI starts the engine itself.
func (j *Job) Engine(plan *Plan, req Request) *Engine {
	opts := Options{
		ChannelID:         plan.TargetChannelID,
		DryRun:            req.DryRun,
		Delay:             time.Duration(j.Config.UploadDelayMS) * time.Millisecond,
		Concurrency:       j.Config.Concurrency,
		MaxFileBytes:      j.Config.MaxFileBytes(),
		SkipOversize:      j.Config.SkipOversize,
		SeparatorText:     j.Config.SeparatorText,
		SegmentSeparators: true,
	}
	if j.Store != nil && j.Config.PersistDedupe && !req.DryRun {
		channelID := plan.TargetChannelID
		opts.OnUploaded = func(names []string) {
			j.Store.Add(channelID, names...)
		}
	}

	return NewEngine(j.Client, opts)
}

// resolveTarget decides which channel actually receives the files,
// creating a thread or forum post when needed.
func (j *Job) resolveTarget(ctx context.Context, plan *Plan, channelID string, req Request) error {
	info, err := j.Client.Channel(ctx, channelID)
	if err != nil {
		return fmt.Errorf("resolve channel %s: %w", channelID, err)
	}

	switch {
	case info.IsThread():
		plan.TargetChannelID = info.ID
		plan.ThreadName = info.Name
		return nil

	case info.Type == discord.ChannelTypeForum:
		title := req.ThreadTitle
		if title == "" {
			title = j.Scanner.SuggestThreadTitle(req.Dir)
		}
		return j.findOrCreateThread(ctx, plan, info, title, true, req.DryRun)

	case req.ThreadTitle != "":
		return j.findOrCreateThread(ctx, plan, info, req.ThreadTitle, false, req.DryRun)

	default:
		plan.TargetChannelID = info.ID
		return nil
	}
}

func (j *Job) findOrCreateThread(ctx context.Context, plan *Plan, parent *discord.ChannelInfo, title string, forum, dryRun bool) error {
	existing, err := j.Client.FindThreadByName(ctx, parent, title)
	if err != nil {
		return fmt.Errorf("find thread %q: %w", title, err)
	}
	if existing != nil {
		plan.TargetChannelID = existing.ID
		plan.ThreadName = existing.Name
		return nil
	}

	if dryRun {
		// Pretend the thread exists so the plan can be shown; nothing is
		// created until a real run.
		plan.TargetChannelID = parent.ID
		plan.ThreadName = title
		plan.ThreadCreated = true
		return nil
	}

	var created *discord.ChannelInfo
	if forum {
		created, err = j.Client.StartForumPost(ctx, parent.ID, title, title)
	} else {
		created, err = j.Client.CreateThread(ctx, parent.ID, title)
	}
	log.LogThreadCreate(parent.ID, title, err == nil, err)
	if err != nil {
		return fmt.Errorf("create thread %q: %w", title, err)
	}
	plan.TargetChannelID = created.ID
	plan.ThreadName = title
	plan.ThreadCreated = true
	return nil
}

// buildCatalog collects the filenames the channel is known to have, from
// live history and the persisted store.
func (j *Job) buildCatalog(ctx context.Context, channelID string, req Request) (*dedupe.Catalog, error) {
	if req.NoDedupe {
		return dedupe.NewCatalog(nil), nil
	}

	names, err := j.Client.FetchExistingFilenames(ctx, channelID, j.Config.HistoryMaxMessages)
	if err != nil {
		return nil, fmt.Errorf("fetch channel history: %w", err)
	}
	if j.Store != nil && j.Config.PersistDedupe {
		names = append(names, j.Store.Names(channelID)...)
	}
	return dedupe.NewCatalog(names), nil
}

// applySelection narrows a scan result to the configured media types. A
// pair whose halves fall on both sides of the selection keeps the selected
// half as a single.
func applySelection(result *scanner.Result, cfg *config.Config) *scanner.Result {
	if cfg.MediaTypes == config.MediaAll {
		return result
	}

	out := &scanner.Result{}
	for _, p := range result.Pairs {
		keepMP4 := cfg.Includes(true, false, false)
		keepGIF := cfg.Includes(false, true, false)
		switch {
		case keepMP4 && keepGIF:
			out.Pairs = append(out.Pairs, p)
		case keepMP4:
			out.Singles = append(out.Singles, scanner.SingleItem{RootKey: p.RootKey, Path: p.MP4Path})
		case keepGIF:
			out.Singles = append(out.Singles, scanner.SingleItem{RootKey: p.RootKey, Path: p.GIFPath})
		}
	}
	for _, s := range result.Singles {
		if cfg.Includes(media.IsVideo(s.Path), media.IsGif(s.Path), media.IsImage(s.Path)) {
			out.Singles = append(out.Singles, s)
		}
	}
	return out
}

// SummaryLine renders a one-line outcome for CLI output.
func SummaryLine(s Summary) string {
	switch {
	case s.Aborted:
		return fmt.Sprintf("aborted after %d of %d messages (%d errors)", s.SentMessages, s.TotalMessages, s.ErrorCount)
	case s.Canceled:
		return fmt.Sprintf("canceled after %d of %d messages", s.SentMessages, s.TotalMessages)
	case s.DryRun:
		return fmt.Sprintf("dry run: %d messages with %d files would be sent (%d oversize skipped)", s.SentMessages, s.SentFiles, s.SkippedOversize)
	default:
		return fmt.Sprintf("sent %d messages with %d files (%d oversize skipped, %d errors)", s.SentMessages, s.SentFiles, s.SkippedOversize, s.ErrorCount)
	}
}
