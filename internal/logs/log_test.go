package logs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	Init("test", Config{Level: "debug", File: path, MaxSizeMB: 1})
	Debug("round resolved")
	Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(strings.SplitN(string(raw), "\n", 2)[0])
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line %q is not JSON: %v", line, err)
	}
	if entry["msg"] != "round resolved" || entry["level"] != "DEBUG" || entry["logger"] != "test" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestInitFallsBackToInfoOnBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	l := Init("test", Config{Level: "loud", File: path})
	if l.Core().Enabled(-1) {
		t.Fatal("debug should be disabled when the level does not parse")
	}
}

func TestInitWithoutConsoleStillWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotseat.log")
	Init("hotseat", Config{Level: "info", File: path, NoConsole: true})
	Info("session started")
	Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), "session started") {
		t.Fatalf("log file = %q", raw)
	}
}
