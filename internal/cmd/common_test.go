package cmd

import (
	"testing"

	"github.com/foxhunt/disdrop/internal/dedupe"
	"github.com/foxhunt/disdrop/internal/log"
	"github.com/foxhunt/disdrop/internal/scanner"
	"github.com/foxhunt/disdrop/internal/upload"
)

func TestResolveToken(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		env     string
		want    string
		wantErr bool
	}{
		{name: "flag_wins", flag: "flag-token", env: "env-token", want: "flag-token"},
		{name: "env_fallback", env: "env-token", want: "env-token"},
		{name: "missing", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prev := tokenFlag
			tokenFlag = tc.flag
			defer func() { tokenFlag = prev }()
			t.Setenv("DISCORD_TOKEN", tc.env)

			got, err := resolveToken()
			if tc.wantErr {
				if err == nil {
					t.Fatal("resolveToken() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveToken() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("resolveToken() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSkippedCount(t *testing.T) {
	plan := &upload.Plan{
		Result: &scanner.Result{},
		Diagnostics: dedupe.Diagnostics{
			DroppedPairs:   2,
			DemotedHalves:  1,
			DroppedSingles: 3,
		},
	}
	if got := skippedCount(plan); got != 8 {
		t.Errorf("skippedCount() = %d, want 8", got)
	}
	if !isEmptyPlan(plan) {
		t.Error("isEmptyPlan() = false for empty result, want true")
	}

	plan.Result.Singles = []scanner.SingleItem{{RootKey: "a", Path: "a.mp4"}}
	if isEmptyPlan(plan) {
		t.Error("isEmptyPlan() = true with a single present, want false")
	}
}

func TestLogSkippedDuplicates(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	log.Initialize(true, 30)

	plan := &upload.Plan{
		TargetChannelID: "222",
		Result:          &scanner.Result{},
		Diagnostics: dedupe.Diagnostics{
			Reports: []dedupe.FileReport{
				{Path: "/m/seen.png", Matched: true},
				{Path: "/m/fresh.mp4", Matched: false},
				{Path: "/m/old.gif", Matched: true},
			},
		},
	}

	if err := log.StartSession("send", []string{"/m", "222"}); err != nil {
		t.Fatalf("StartSession() = %v", err)
	}
	logSkippedDuplicates(plan)
	if err := log.EndSession(); err != nil {
		t.Fatalf("EndSession() = %v", err)
	}

	sessions, err := log.ReadSessions(1)
	if err != nil {
		t.Fatalf("ReadSessions() = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("ReadSessions() returned %d sessions, want 1", len(sessions))
	}

	var skipped []string
	for _, op := range sessions[0].Operations {
		if op.Type != log.OpSkipDuplicate {
			t.Errorf("unexpected operation type %q", op.Type)
			continue
		}
		if op.Channel != "222" {
			t.Errorf("operation channel = %q, want 222", op.Channel)
		}
		skipped = append(skipped, op.Path)
	}
	want := []string{"/m/seen.png", "/m/old.gif"}
	if len(skipped) != len(want) {
		t.Fatalf("logged %v, want %v", skipped, want)
	}
	for i, p := range want {
		if skipped[i] != p {
			t.Errorf("operation %d path = %q, want %q", i, skipped[i], p)
		}
	}
}
