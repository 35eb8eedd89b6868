package logger_test

import (
	"os"
	"strings"
	"testing"

	"github.com/remiges-tech/pdoflow/logger"
)

func TestConsoleLogger(t *testing.T) {
	cl := &logger.ConsoleLogger{}
	// ConsoleLogger always writes to stdout; this just exercises the Log path
	// without panicking.
	cl.Log("test message")
}

func TestFileLogger(t *testing.T) {
	tmpfile, err := os.CreateTemp(t.TempDir(), "log")
	if err != nil {
		t.Fatal(err)
	}

	fl := &logger.FileLogger{FilePath: tmpfile.Name()}
	fl.Log("Test message 1")
	fl.Log("Test message 2")

	content, err := os.ReadFile(tmpfile.Name())
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(content))
	}
	if !strings.Contains(lines[0], "Test message 1") {
		t.Errorf("expected 'Test message 1', got %q", lines[0])
	}
	if !strings.Contains(lines[1], "Test message 2") {
		t.Errorf("expected 'Test message 2', got %q", lines[1])
	}
}

func TestLoadLogger(t *testing.T) {
	l := logger.LoadLogger("pdoflow-test")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	l.Log("loaded logger works")
}
