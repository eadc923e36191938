package review

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/foxhunt/disdrop/internal/dedupe"
	"github.com/foxhunt/disdrop/internal/scanner"
	"github.com/foxhunt/disdrop/internal/tui/theme"
	"github.com/foxhunt/disdrop/internal/upload"
)

func sendKey(tm *teatest.TestModel, key tea.KeyType) {
	tm.Send(tea.KeyMsg{Type: key})
}

func sendRune(tm *teatest.TestModel, r rune) {
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func samplePlan() *upload.Plan {
	return &upload.Plan{
		TargetChannelID: "123",
		ThreadName:      "best clips",
		Result: &scanner.Result{
			Pairs: []scanner.PairItem{
				{RootKey: "clips/intro", MP4Path: "clips/intro.mp4", GIFPath: "clips/intro.gif"},
			},
			Singles: []scanner.SingleItem{
				{RootKey: "clips/part", Path: "clips/part_1.mp4"},
				{RootKey: "clips/part", Path: "clips/part_2.mp4"},
				{RootKey: "clips/extra", Path: "clips/extra.webm"},
			},
		},
		Diagnostics: dedupe.Diagnostics{
			CatalogSize: 4,
			Reports: []dedupe.FileReport{
				{Path: "clips/seen.png", Matched: true},
				{Path: "clips/extra.webm", Matched: false},
			},
			DroppedSingles: 1,
		},
	}
}

func startReviewTestModel(t *testing.T, model *ReviewModel, opts ...teatest.TestOption) *teatest.TestModel {
	t.Helper()
	options := append([]teatest.TestOption{teatest.WithInitialTermSize(100, 30)}, opts...)
	tm := teatest.NewTestModel(t, model, options...)
	t.Cleanup(func() {
		_ = tm.Quit()
	})
	return tm
}

func finalReviewModel(t *testing.T, tm *teatest.TestModel) *ReviewModel {
	t.Helper()
	final := tm.FinalModel(t, teatest.WithFinalTimeout(2*time.Second))
	model, ok := final.(*ReviewModel)
	if !ok {
		t.Fatalf("Final model type = %T, want *ReviewModel", final)
	}
	return model
}

func waitForReviewOutput(t *testing.T, tm *teatest.TestModel, contains string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte(contains))
	}, teatest.WithDuration(2*time.Second))
}

func TestBuildPlanTreeGroupsSegments(t *testing.T) {
	tree := BuildPlanTree(samplePlan(), theme.Default())

	var group *PlanItem
	segmentChildren := 0
	topLevel := 0
	for _, n := range tree.Nodes() {
		topLevel++
		item := n.Data()
		if item.Kind == KindGroup {
			group = item
			segmentChildren = len(n.Children())
		}
	}

	// pair, segmented group, lone single, skipped section
	if topLevel != 4 {
		t.Errorf("BuildPlanTree top-level nodes = %d, want 4", topLevel)
	}
	if group == nil {
		t.Fatal("BuildPlanTree produced no segmented group node")
	}
	if group.RootKey != "clips/part" {
		t.Errorf("group RootKey = %q, want %q", group.RootKey, "clips/part")
	}
	if segmentChildren != 2 {
		t.Errorf("segmented group children = %d, want 2", segmentChildren)
	}
}

func TestBuildPlanTreeSkippedSection(t *testing.T) {
	tree := BuildPlanTree(samplePlan(), theme.Default())

	found := false
	for _, n := range tree.Nodes() {
		if n.Data().Kind != KindSection {
			continue
		}
		found = true
		if len(n.Children()) != 1 {
			t.Errorf("skipped section children = %d, want 1", len(n.Children()))
		}
		if got := n.Children()[0].Data().Kind; got != KindSkipped {
			t.Errorf("skipped child Kind = %v, want KindSkipped", got)
		}
	}
	if !found {
		t.Error("BuildPlanTree produced no skipped-duplicates section")
	}
}

func TestReviewConfirmFlow(t *testing.T) {
	model := NewReviewModel(samplePlan(), WithTheme(theme.Default()))
	tm := startReviewTestModel(t, model)

	waitForReviewOutput(t, tm, "best clips")

	sendKey(tm, tea.KeyEnter)
	waitForReviewOutput(t, tm, "duplicates skipped")
	sendKey(tm, tea.KeyEnter)

	final := finalReviewModel(t, tm)
	if !final.Confirmed() {
		t.Error("Confirmed() = false after double enter, want true")
	}
}

func TestReviewDeclineFromConfirmation(t *testing.T) {
	model := NewReviewModel(samplePlan(), WithTheme(theme.Default()))
	tm := startReviewTestModel(t, model)

	waitForReviewOutput(t, tm, "Upload Plan Review")

	sendKey(tm, tea.KeyEnter)
	waitForReviewOutput(t, tm, "duplicates skipped")
	sendRune(tm, 'n')
	sendKey(tm, tea.KeyEsc)

	final := finalReviewModel(t, tm)
	if final.Confirmed() {
		t.Error("Confirmed() = true after declining, want false")
	}
}

func TestReviewEscQuitsWithoutConfirm(t *testing.T) {
	model := NewReviewModel(samplePlan(), WithTheme(theme.Default()))
	tm := startReviewTestModel(t, model)

	waitForReviewOutput(t, tm, "Upload Plan Review")
	sendKey(tm, tea.KeyEsc)

	if finalReviewModel(t, tm).Confirmed() {
		t.Error("Confirmed() = true after esc, want false")
	}
}
