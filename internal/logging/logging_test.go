package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tui.log")
	cleanup, err := Setup(path)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	log.Printf("hello from the browser")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from the browser") {
		t.Errorf("log file = %q, want message", data)
	}
}

func TestSetupDiscard(t *testing.T) {
	cleanup, err := Setup("")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer log.SetOutput(os.Stderr)
	cleanup()
}

func TestSetupBadPath(t *testing.T) {
	if _, err := Setup(filepath.Join(t.TempDir(), "missing", "dir", "tui.log")); err == nil {
		t.Error("Setup() = nil error for an unwritable path")
	}
}
