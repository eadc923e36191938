package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/foxhunt/disdrop/internal/discord"
	"github.com/foxhunt/disdrop/internal/scanner"
	"github.com/google/go-cmp/cmp"
)

type sentMessage struct {
	Paths   []string
	Content string
}

// fakeSender records messages instead of calling Discord.
type fakeSender struct {
	mu          sync.Mutex
	messages    []sentMessage
	lastContent string
	sendErr     error
}

func (f *fakeSender) SendFiles(ctx context.Context, channelID string, paths []string, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, sentMessage{Paths: append([]string(nil), paths...), Content: content})
	return nil
}

func (f *fakeSender) SendText(ctx context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, sentMessage{Content: content})
	return nil
}

func (f *fakeSender) LastMessageContent(ctx context.Context, channelID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastContent, nil
}

func (f *fakeSender) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.messages...)
}

func drain(events <-chan Event) {
	for range events {
	}
}

func TestPlanGroups(t *testing.T) {
	t.Parallel()
	result := &scanner.Result{
		Pairs: []scanner.PairItem{
			{RootKey: "./clip", MP4Path: "clip.mp4", GIFPath: "clip.gif"},
		},
		Singles: []scanner.SingleItem{
			{RootKey: "./long", Path: "long_1.mp4"},
			{RootKey: "./long", Path: "long_2.mp4"},
			{RootKey: "./long", Path: "long_3.mp4"},
			{RootKey: "./solo", Path: "solo.png"},
		},
	}

	groups := planGroups(result)
	if len(groups) != 3 {
		t.Fatalf("planGroups() = %d groups, want 3", len(groups))
	}

	pair := groups[0]
	if pair.segmented || len(pair.messages) != 1 || len(pair.messages[0].paths) != 2 {
		t.Errorf("pair group = segmented %t, %d messages, want one 2-file message", pair.segmented, len(pair.messages))
	}

	long := groups[1]
	if !long.segmented {
		t.Error("group with sibling segments should be segmented")
	}
	if len(long.messages) != 1 {
		t.Fatalf("segmented group has %d messages, want 1 (batched)", len(long.messages))
	}
	want := []string{"long_1.mp4", "long_2.mp4", "long_3.mp4"}
	if diff := cmp.Diff(want, long.messages[0].paths); diff != "" {
		t.Errorf("segmented batch mismatch (-want +got):\n%s", diff)
	}

	if groups[2].segmented {
		t.Error("lone single should not be segmented")
	}
}

func TestPlanGroupsBatchesAtAttachmentLimit(t *testing.T) {
	t.Parallel()
	result := &scanner.Result{}
	for i := 1; i <= 25; i++ {
		result.Singles = append(result.Singles, scanner.SingleItem{
			RootKey: "./big",
			Path:    fmt.Sprintf("big_%d.mp4", i),
		})
	}

	groups := planGroups(result)
	if len(groups) != 1 {
		t.Fatalf("planGroups() = %d groups, want 1", len(groups))
	}
	sizes := make([]int, 0, len(groups[0].messages))
	for _, m := range groups[0].messages {
		sizes = append(sizes, len(m.paths))
	}
	if diff := cmp.Diff([]int{10, 10, 5}, sizes); diff != "" {
		t.Errorf("batch sizes mismatch (-want +got):\n%s", diff)
	}
}

func writeMediaFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll(%q) = %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("WriteFile(%q) = %v", path, err)
	}
	return path
}

func TestEngineSendsSegmentedInOrderWithSeparators(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	result := &scanner.Result{Singles: []scanner.SingleItem{
		{RootKey: "./long", Path: writeMediaFile(t, dir, "long_1.mp4", 10)},
		{RootKey: "./long", Path: writeMediaFile(t, dir, "long_2.mp4", 10)},
	}}

	f := &fakeSender{}
	e := NewEngine(f, Options{
		ChannelID:         "222",
		SeparatorText:     "----",
		SegmentSeparators: true,
	})
	drain(e.Start(context.Background(), result))

	sent := f.sent()
	if len(sent) != 3 {
		t.Fatalf("sent %d messages, want 3 (separator, batch, separator)", len(sent))
	}
	if sent[0].Content != "----" || sent[2].Content != "----" {
		t.Errorf("separators = %q, %q, want ---- around the group", sent[0].Content, sent[2].Content)
	}
	wantPaths := []string{
		filepath.Join(dir, "long_1.mp4"),
		filepath.Join(dir, "long_2.mp4"),
	}
	if diff := cmp.Diff(wantPaths, sent[1].Paths); diff != "" {
		t.Errorf("segmented message mismatch (-want +got):\n%s", diff)
	}

	summary := e.SummarySnapshot()
	if !summary.Done || summary.SentMessages != 1 || summary.SentFiles != 2 {
		t.Errorf("summary = %+v, want done with 1 message, 2 files", summary)
	}
}

func TestEngineSkipsLeadingSeparatorWhenChannelEndsWithOne(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	result := &scanner.Result{Singles: []scanner.SingleItem{
		{RootKey: "./long", Path: writeMediaFile(t, dir, "long_1.mp4", 10)},
		{RootKey: "./long", Path: writeMediaFile(t, dir, "long_2.mp4", 10)},
	}}

	f := &fakeSender{lastContent: "----"}
	e := NewEngine(f, Options{
		ChannelID:         "222",
		SeparatorText:     "----",
		SegmentSeparators: true,
	})
	drain(e.Start(context.Background(), result))

	sent := f.sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2 (batch, trailing separator)", len(sent))
	}
	if len(sent[0].Paths) != 2 {
		t.Errorf("first message should be the file batch, got %+v", sent[0])
	}
	if sent[1].Content != "----" {
		t.Errorf("second message = %q, want trailing separator", sent[1].Content)
	}
}

func TestEngineDryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	result := &scanner.Result{
		Pairs: []scanner.PairItem{{
			RootKey: "./clip",
			MP4Path: writeMediaFile(t, dir, "clip.mp4", 10),
			GIFPath: writeMediaFile(t, dir, "clip.gif", 10),
		}},
		Singles: []scanner.SingleItem{
			{RootKey: "./solo", Path: writeMediaFile(t, dir, "solo.png", 10)},
		},
	}

	f := &fakeSender{}
	e := NewEngine(f, Options{ChannelID: "222", DryRun: true})
	drain(e.Start(context.Background(), result))

	if sent := f.sent(); len(sent) != 0 {
		t.Errorf("dry run sent %d messages, want 0", len(sent))
	}
	summary := e.SummarySnapshot()
	if !summary.Done || summary.SentMessages != 2 || summary.SentFiles != 3 {
		t.Errorf("summary = %+v, want done with 2 planned messages, 3 files", summary)
	}
}

func TestEngineSkipsOversize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	result := &scanner.Result{Singles: []scanner.SingleItem{
		{RootKey: "./small", Path: writeMediaFile(t, dir, "small.mp4", 10)},
		{RootKey: "./huge", Path: writeMediaFile(t, dir, "huge.mp4", 2000)},
	}}

	f := &fakeSender{}
	e := NewEngine(f, Options{
		ChannelID:    "222",
		MaxFileBytes: 100,
		SkipOversize: true,
	})
	drain(e.Start(context.Background(), result))

	sent := f.sent()
	if len(sent) != 1 || filepath.Base(sent[0].Paths[0]) != "small.mp4" {
		t.Fatalf("sent = %+v, want only small.mp4", sent)
	}
	summary := e.SummarySnapshot()
	if summary.SkippedOversize != 1 {
		t.Errorf("SkippedOversize = %d, want 1", summary.SkippedOversize)
	}
}

func TestEngineAbortsOnAuthError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var singles []scanner.SingleItem
	for i := 1; i <= 2; i++ {
		name := fmt.Sprintf("s%d.mp4", i)
		singles = append(singles, scanner.SingleItem{
			RootKey: "./" + name,
			Path:    writeMediaFile(t, dir, name, 10),
		})
	}

	f := &fakeSender{sendErr: &discord.APIError{Status: 401, Message: "Unauthorized"}}
	e := NewEngine(f, Options{ChannelID: "222", Concurrency: 1})
	drain(e.Start(context.Background(), &scanner.Result{Singles: singles}))

	summary := e.SummarySnapshot()
	if !summary.Aborted {
		t.Errorf("summary = %+v, want aborted on auth error", summary)
	}
	if len(e.Errors()) == 0 {
		t.Error("Errors() is empty, want the auth failure recorded")
	}
}

func TestEngineRecordsUploadedNames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	result := &scanner.Result{Pairs: []scanner.PairItem{{
		RootKey: "./clip",
		MP4Path: writeMediaFile(t, dir, "clip.mp4", 10),
		GIFPath: writeMediaFile(t, dir, "clip.gif", 10),
	}}}

	var mu sync.Mutex
	var uploaded []string
	f := &fakeSender{}
	e := NewEngine(f, Options{
		ChannelID: "222",
		OnUploaded: func(names []string) {
			mu.Lock()
			uploaded = append(uploaded, names...)
			mu.Unlock()
		},
	})
	drain(e.Start(context.Background(), result))

	if diff := cmp.Diff([]string{"clip.mp4", "clip.gif"}, uploaded); diff != "" {
		t.Errorf("uploaded names mismatch (-want +got):\n%s", diff)
	}
}
