package progress

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foxhunt/disdrop/internal/scanner"
	"github.com/foxhunt/disdrop/internal/tui/theme"
	"github.com/foxhunt/disdrop/internal/upload"

	"github.com/charmbracelet/x/exp/teatest"
)

// nullSender accepts every message without touching the network.
type nullSender struct{}

func (nullSender) SendFiles(ctx context.Context, channelID string, paths []string, content string) error {
	return nil
}

func (nullSender) SendText(ctx context.Context, channelID, content string) error {
	return nil
}

func (nullSender) LastMessageContent(ctx context.Context, channelID string) (string, error) {
	return "", nil
}

func finalProgressModel(t *testing.T, tm *teatest.TestModel) *UploadProgressModel {
	t.Helper()
	final := tm.FinalModel(t, teatest.WithFinalTimeout(2*time.Second))
	model, ok := final.(*UploadProgressModel)
	if !ok {
		t.Fatalf("Final model type = %T, want *UploadProgressModel", final)
	}
	return model
}

func finalOutput(t *testing.T, tm *teatest.TestModel) []byte {
	t.Helper()
	out, err := io.ReadAll(tm.FinalOutput(t, teatest.WithFinalTimeout(2*time.Second)))
	if err != nil {
		t.Fatalf("FinalOutput read error = %v", err)
	}
	return out
}

func uploadResult(t *testing.T) *scanner.Result {
	t.Helper()
	dir := t.TempDir()
	write := func(name string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%q) = %v", path, err)
		}
		return path
	}
	return &scanner.Result{
		Pairs: []scanner.PairItem{
			{RootKey: "./clip", MP4Path: write("clip.mp4"), GIFPath: write("clip.gif")},
		},
		Singles: []scanner.SingleItem{
			{RootKey: "./solo", Path: write("solo.png")},
		},
	}
}

func TestUploadProgressTUICompletes(t *testing.T) {
	result := uploadResult(t)
	engine := upload.NewEngine(nullSender{}, upload.Options{ChannelID: "222", Concurrency: 2})
	model := NewUploadProgressModel(engine, result, theme.Default())

	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	final := finalProgressModel(t, tm)
	if !final.Done() {
		t.Error("model should be done after the engine finishes")
	}
	summary := final.Summary()
	if !summary.Done || summary.SentMessages != 2 || summary.SentFiles != 3 {
		t.Errorf("summary = %+v, want done with 2 messages, 3 files", summary)
	}
	if err := final.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestUploadProgressTUIDryRunHeader(t *testing.T) {
	result := uploadResult(t)
	engine := upload.NewEngine(nullSender{}, upload.Options{ChannelID: "222", DryRun: true})
	model := NewUploadProgressModel(engine, result, theme.Default())

	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	final := finalProgressModel(t, tm)
	if got := final.Summary(); !got.Done || !got.DryRun {
		t.Errorf("summary = %+v, want a finished dry run", got)
	}

	out := finalOutput(t, tm)
	if !bytes.Contains(out, []byte("dry run")) {
		t.Error("final output should mention the dry run")
	}
}
