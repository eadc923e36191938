package log

import (
	"os"
	"testing"
)

func TestLogSession(t *testing.T) {
	originalLoggingEnabled := loggingEnabled
	defer func() {
		loggingEnabled = originalLoggingEnabled
		currentSession = nil
	}()

	loggingEnabled = true

	err := StartSession("send", []string{"/media", "https://discord.com/channels/1/2"})
	if err != nil {
		t.Fatalf("StartSession() failed: %v", err)
	}

	if currentSession == nil {
		t.Fatal("StartSession() should have created a session")
	}

	meta := currentSession.Metadata
	if meta.CommandArgs[0] != "send" {
		t.Errorf("Expected command 'send', got %s", meta.CommandArgs[0])
	}
	if len(meta.CommandArgs) != 3 {
		t.Errorf("Expected 3 command args, got %v", meta.CommandArgs)
	}
	if meta.SessionID == "" {
		t.Error("Expected a non-empty session ID")
	}
}

func TestLogOperations(t *testing.T) {
	originalLoggingEnabled := loggingEnabled
	defer func() {
		loggingEnabled = originalLoggingEnabled
		currentSession = nil
	}()

	loggingEnabled = true

	err := StartSession("send", []string{})
	if err != nil {
		t.Fatalf("StartSession() failed: %v", err)
	}

	LogThreadCreate("200", "highlight reel", true, nil)
	LogUpload("200", "clip.mp4", true, nil)
	LogSeparator("200", true, nil)
	LogSkipDuplicate("200", "clip.gif")
	LogSkipOversize("200", "big.mp4", 99<<20)
	LogUpload("200", "broken.mp4", false, os.ErrPermission)

	if len(currentSession.Operations) != 6 {
		t.Fatalf("Expected 6 operations, got %d", len(currentSession.Operations))
	}

	expectedTypes := []OperationType{
		OpThreadCreate, OpUpload, OpSeparator, OpSkipDuplicate, OpSkipOversize, OpUpload,
	}
	for i, op := range currentSession.Operations {
		if op.Type != expectedTypes[i] {
			t.Errorf("Operation %d: expected type %s, got %s", i, expectedTypes[i], op.Type)
		}
	}

	last := currentSession.Operations[5]
	if last.Success {
		t.Error("Failed upload should be recorded as unsuccessful")
	}
	if last.Error == "" {
		t.Error("Failed upload should carry the error text")
	}

	updateStats()
	if currentSession.Metadata.TotalOps != 6 {
		t.Errorf("TotalOps = %d, want 6", currentSession.Metadata.TotalOps)
	}
	if currentSession.Metadata.SuccessfulOps != 5 {
		t.Errorf("SuccessfulOps = %d, want 5", currentSession.Metadata.SuccessfulOps)
	}
	if currentSession.Metadata.FailedOps != 1 {
		t.Errorf("FailedOps = %d, want 1", currentSession.Metadata.FailedOps)
	}
}

func TestLoggingDisabled(t *testing.T) {
	originalLoggingEnabled := loggingEnabled
	defer func() {
		loggingEnabled = originalLoggingEnabled
		currentSession = nil
	}()

	loggingEnabled = false

	if err := StartSession("send", []string{}); err != nil {
		t.Fatalf("StartSession() failed: %v", err)
	}
	if currentSession != nil {
		t.Error("StartSession() should be a no-op when logging is disabled")
	}

	LogUpload("200", "clip.mp4", true, nil)
	if err := EndSession(); err != nil {
		t.Errorf("EndSession() with logging disabled = %v", err)
	}
}
