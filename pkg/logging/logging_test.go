package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tcmartin/nodeharvest/pkg/config"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger := New(config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: path,
	}, false)

	logger.Info("hello", "key", "value")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"msg":"hello"`) {
		t.Errorf("Expected JSON log line with message, got %q", line)
	}
	if !strings.Contains(line, `"key":"value"`) {
		t.Errorf("Expected JSON log line with attribute, got %q", line)
	}
}

func TestNewLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger := New(config.LoggingConfig{
		Level:    "error",
		Format:   "text",
		Output:   "file",
		FilePath: path,
	}, false)

	logger.Info("dropped")
	logger.Error("kept")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if strings.Contains(string(data), "dropped") {
		t.Errorf("Expected info message to be filtered at error level")
	}
	if !strings.Contains(string(data), "kept") {
		t.Errorf("Expected error message to be written")
	}
}

func TestNewVerboseForcesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger := New(config.LoggingConfig{
		Level:    "error",
		Format:   "text",
		Output:   "file",
		FilePath: path,
	}, true)

	logger.Debug("visible")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "visible") {
		t.Errorf("Expected debug message when verbose is set")
	}
}
