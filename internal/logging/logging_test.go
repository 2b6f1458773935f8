package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("writes fields and caller", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Options{Level: "debug", Output: &buf, NoColors: true})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		logger.WithFields(Fields{"faces": 2}).Debug("frame decoded")

		out := buf.String()
		if !strings.Contains(out, "frame decoded") {
			t.Errorf("expected message in output, got %q", out)
		}
		if !strings.Contains(out, "faces:2") {
			t.Errorf("expected field in output, got %q", out)
		}
		if !strings.Contains(out, "logging_test.go") {
			t.Errorf("expected caller in output, got %q", out)
		}
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Options{Level: "warn", Output: &buf, NoColors: true})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		logger.Info("hidden")
		if buf.Len() != 0 {
			t.Errorf("expected info to be filtered, got %q", buf.String())
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		if _, err := New(Options{Level: "loud"}); err == nil {
			t.Error("expected error for invalid level")
		}
	})

	t.Run("file output", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "facedecode.log")
		logger, err := New(Options{File: file, Output: &bytes.Buffer{}, NoColors: true})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		logger.Info("to file")

		data, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(data), "to file") {
			t.Errorf("expected message in log file, got %q", data)
		}
	})
}
