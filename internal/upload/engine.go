// Package upload turns a filtered scan result into Discord messages. It
// plans the messages first, then executes them: segmented groups go out
// sequentially in order with separator messages around them, everything
// else goes through a worker pool.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/foxhunt/disdrop/internal/discord"
	"github.com/foxhunt/disdrop/internal/log"
	"github.com/foxhunt/disdrop/internal/scanner"
)

// Sender is the slice of the Discord client the engine needs. *discord.Client
// implements it; tests substitute a fake.
type Sender interface {
	SendFiles(ctx context.Context, channelID string, paths []string, content string) error
	SendText(ctx context.Context, channelID, content string) error
	LastMessageContent(ctx context.Context, channelID string) (string, error)
}

// Options configures one upload run.
type Options struct {
	ChannelID string
	DryRun    bool

	Delay       time.Duration // pause between sequential messages
	Concurrency int           // worker count for the concurrent phase

	MaxFileBytes int64 // 0 disables the size check
	SkipOversize bool

	SeparatorText     string
	SegmentSeparators bool // post separators around segmented groups

	// OnUploaded is called with the base filenames of each successfully
	// sent message, letting the caller feed its dedupe store.
	OnUploaded func(names []string)
}

// Summary captures the state of an upload run at a point in time.
type Summary struct {
	TotalMessages   int
	SentMessages    int
	SentFiles       int
	SkippedOversize int
	ActiveWorkers   int
	WorkerLimit     int
	ErrorCount      int
	LastItem        string
	DryRun          bool
	Done            bool
	Canceled        bool
	Aborted         bool // fatal failure, e.g. a bad token
}

// Event represents an update emitted by the engine.
type Event struct {
	Summary Summary
	Err     error
}

// message is one planned Discord message.
type message struct {
	rootKey string
	paths   []string
}

// group is an ordered run of messages that must stay together.
type group struct {
	rootKey   string
	segmented bool
	messages  []message
}

// Engine executes an upload plan while exposing progress snapshots for UI
// consumption.
type Engine struct {
	client Sender
	opts   Options

	summaryMu sync.RWMutex
	summary   Summary

	errorsMu sync.Mutex
	errors   []error

	aborted bool
}

// NewEngine constructs an engine with sane defaults applied.
func NewEngine(client Sender, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	return &Engine{
		client:  client,
		opts:    opts,
		summary: Summary{WorkerLimit: opts.Concurrency, DryRun: opts.DryRun},
	}
}

// Start begins uploading and returns a stream of progress events. The
// channel closes when the run finishes, is canceled, or aborts.
func (e *Engine) Start(ctx context.Context, result *scanner.Result) <-chan Event {
	events := make(chan Event, 128)
	go e.run(ctx, result, events)
	return events
}

// Errors returns a copy of the accumulated errors.
func (e *Engine) Errors() []error {
	e.errorsMu.Lock()
	defer e.errorsMu.Unlock()
	if len(e.errors) == 0 {
		return nil
	}
	cloned := make([]error, len(e.errors))
	copy(cloned, e.errors)
	return cloned
}

// SummarySnapshot returns the latest progress summary.
func (e *Engine) SummarySnapshot() Summary {
	e.summaryMu.RLock()
	defer e.summaryMu.RUnlock()
	return e.summary
}

func (e *Engine) run(ctx context.Context, result *scanner.Result, events chan<- Event) {
	defer close(events)

	groups := planGroups(result)
	total := 0
	for _, g := range groups {
		total += len(g.messages)
	}

	e.summaryMu.Lock()
	e.summary.TotalMessages = total
	e.summaryMu.Unlock()
	e.emit(ctx, events, nil)

	var sequential, concurrent []group
	for _, g := range groups {
		if g.segmented {
			sequential = append(sequential, g)
		} else {
			concurrent = append(concurrent, g)
		}
	}

	e.runSequential(ctx, events, sequential)
	if ctx.Err() != nil || e.isAborted() {
		e.finish(ctx, events)
		return
	}
	e.runConcurrent(ctx, events, concurrent)
	e.finish(ctx, events)
}

func (e *Engine) finish(ctx context.Context, events chan<- Event) {
	e.summaryMu.Lock()
	e.summary.ActiveWorkers = 0
	switch {
	case e.aborted:
		e.summary.Aborted = true
	case ctx.Err() != nil:
		e.summary.Canceled = true
	default:
		e.summary.Done = true
	}
	e.summaryMu.Unlock()
	e.emit(ctx, events, nil)
}

// runSequential sends segmented groups one message at a time so segment
// order is preserved on the channel.
func (e *Engine) runSequential(ctx context.Context, events chan<- Event, groups []group) {
	if len(groups) == 0 {
		return
	}

	lastWasSeparator := e.separatorOnChannel(ctx)
	for _, g := range groups {
		if ctx.Err() != nil || e.isAborted() {
			return
		}
		if e.opts.SegmentSeparators && !lastWasSeparator {
			e.sendSeparator(ctx, events)
		}
		for _, msg := range g.messages {
			if ctx.Err() != nil || e.isAborted() {
				return
			}
			e.sendMessage(ctx, events, msg)
			if err := e.pause(ctx); err != nil {
				return
			}
		}
		if e.opts.SegmentSeparators {
			e.sendSeparator(ctx, events)
			lastWasSeparator = true
		}
	}
}

// separatorOnChannel reports whether the channel already ends with the
// separator text, so the run does not stack two in a row.
func (e *Engine) separatorOnChannel(ctx context.Context) bool {
	if !e.opts.SegmentSeparators || e.opts.DryRun {
		return false
	}
	content, err := e.client.LastMessageContent(ctx, e.opts.ChannelID)
	if err != nil {
		return false
	}
	return content == e.opts.SeparatorText
}

func (e *Engine) runConcurrent(ctx context.Context, events chan<- Event, groups []group) {
	var msgs []message
	for _, g := range groups {
		msgs = append(msgs, g.messages...)
	}
	if len(msgs) == 0 {
		return
	}

	workerCount := min(e.opts.Concurrency, len(msgs))
	workCh := make(chan message)
	doneCh := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range workCh {
				if ctx.Err() != nil || e.isAborted() {
					return
				}
				e.sendMessage(ctx, events, msg)
				if e.pause(ctx) != nil {
					return
				}
			}
		}()
	}

	e.summaryMu.Lock()
	e.summary.ActiveWorkers = workerCount
	e.summaryMu.Unlock()
	e.emit(ctx, events, nil)

	go func() {
		defer close(workCh)
		for _, msg := range msgs {
			select {
			case workCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(doneCh)
	}()

	// Wait for the workers themselves, not just the context: they emit on
	// the events channel, which closes once run returns.
	<-doneCh
}

// sendMessage sends one planned message, applying the size check first.
func (e *Engine) sendMessage(ctx context.Context, events chan<- Event, msg message) {
	paths := msg.paths
	if e.opts.MaxFileBytes > 0 && e.opts.SkipOversize {
		paths = e.dropOversize(ctx, events, paths)
		if len(paths) == 0 {
			return
		}
	}

	label := baseNames(paths)
	if e.opts.DryRun {
		e.recordSent(len(paths), fmt.Sprintf("would send %v", label))
		e.emit(ctx, events, nil)
		return
	}

	err := e.client.SendFiles(ctx, e.opts.ChannelID, paths, "")
	for _, p := range paths {
		log.LogUpload(e.opts.ChannelID, p, err == nil, err)
	}
	if err != nil {
		e.recordError(fmt.Errorf("send %v: %w", label, err))
		e.emit(ctx, events, err)
		if discord.IsAuthError(err) {
			e.abort()
		}
		return
	}

	if e.opts.OnUploaded != nil {
		e.opts.OnUploaded(label)
	}
	e.recordSent(len(paths), fmt.Sprintf("sent %v", label))
	e.emit(ctx, events, nil)
}

// dropOversize filters out files above the size limit, counting each skip.
func (e *Engine) dropOversize(ctx context.Context, events chan<- Event, paths []string) []string {
	kept := paths[:0:0]
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			e.recordError(fmt.Errorf("stat %s: %w", p, err))
			e.emit(ctx, events, err)
			continue
		}
		if info.Size() > e.opts.MaxFileBytes {
			log.LogSkipOversize(e.opts.ChannelID, p, info.Size())
			e.summaryMu.Lock()
			e.summary.SkippedOversize++
			e.summary.LastItem = fmt.Sprintf("skipped oversize %s", filepath.Base(p))
			e.summaryMu.Unlock()
			e.emit(ctx, events, nil)
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func (e *Engine) sendSeparator(ctx context.Context, events chan<- Event) {
	if e.opts.DryRun {
		return
	}
	err := e.client.SendText(ctx, e.opts.ChannelID, e.opts.SeparatorText)
	log.LogSeparator(e.opts.ChannelID, err == nil, err)
	if err != nil {
		e.recordError(fmt.Errorf("send separator: %w", err))
		e.emit(ctx, events, err)
		if discord.IsAuthError(err) {
			e.abort()
		}
	}
}

func (e *Engine) pause(ctx context.Context) error {
	if e.opts.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.opts.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) recordSent(fileCount int, label string) {
	e.summaryMu.Lock()
	e.summary.SentMessages++
	e.summary.SentFiles += fileCount
	e.summary.LastItem = label
	e.summaryMu.Unlock()
}

func (e *Engine) recordError(err error) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	e.errorsMu.Lock()
	e.errors = append(e.errors, err)
	count := len(e.errors)
	e.errorsMu.Unlock()

	e.summaryMu.Lock()
	e.summary.ErrorCount = count
	e.summaryMu.Unlock()
}

func (e *Engine) abort() {
	e.errorsMu.Lock()
	e.aborted = true
	e.errorsMu.Unlock()
}

func (e *Engine) isAborted() bool {
	e.errorsMu.Lock()
	defer e.errorsMu.Unlock()
	return e.aborted
}

func (e *Engine) emit(ctx context.Context, events chan<- Event, err error) {
	summary := e.SummarySnapshot()
	select {
	case events <- Event{Summary: summary, Err: err}:
	case <-ctx.Done():
	}
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}

// planGroups converts a scan result into ordered message groups. Buckets
// that share a root key are segmented: their files must land on the channel
// in segment order. Consecutive single files inside a segmented group pack
// together up to the attachment limit; pairs always travel as one message.
func planGroups(result *scanner.Result) []group {
	type entry struct {
		pair   *scanner.PairItem
		single *scanner.SingleItem
	}

	byRoot := make(map[string][]entry)
	var order []string
	addEntry := func(rootKey string, en entry) {
		if _, ok := byRoot[rootKey]; !ok {
			order = append(order, rootKey)
		}
		byRoot[rootKey] = append(byRoot[rootKey], en)
	}
	for i := range result.Pairs {
		addEntry(result.Pairs[i].RootKey, entry{pair: &result.Pairs[i]})
	}
	for i := range result.Singles {
		addEntry(result.Singles[i].RootKey, entry{single: &result.Singles[i]})
	}

	var groups []group
	for _, rootKey := range order {
		entries := byRoot[rootKey]
		g := group{rootKey: rootKey, segmented: len(entries) > 1}

		var batch []string
		flush := func() {
			if len(batch) > 0 {
				g.messages = append(g.messages, message{rootKey: rootKey, paths: batch})
				batch = nil
			}
		}
		for _, en := range entries {
			if en.pair != nil {
				flush()
				g.messages = append(g.messages, message{
					rootKey: rootKey,
					paths:   []string{en.pair.MP4Path, en.pair.GIFPath},
				})
				continue
			}
			if !g.segmented {
				g.messages = append(g.messages, message{rootKey: rootKey, paths: []string{en.single.Path}})
				continue
			}
			batch = append(batch, en.single.Path)
			if len(batch) == discord.MaxAttachments {
				flush()
			}
		}
		flush()
		groups = append(groups, g)
	}
	return groups
}
