package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("loud", "", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNew_Level(t *testing.T) {
	log, err := New("warn", "", false)
	if err != nil {
		t.Fatal(err)
	}
	if log.GetLevel() != zerolog.WarnLevel {
		t.Errorf("level: got %v, want warn", log.GetLevel())
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminal.log")
	log, err := New("info", path, false)
	if err != nil {
		t.Fatal(err)
	}
	log.Info().Str("component", "test").Msg("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"hello"`) {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestRotating(t *testing.T) {
	r := Rotating("x.log")
	if r.MaxSize != 64 || r.MaxBackups != 7 || r.MaxAge != 7 {
		t.Errorf("rotation settings: %+v", r)
	}
}
