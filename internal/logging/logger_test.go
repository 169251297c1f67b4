package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rainsave/rainsave/internal/types"
)

func TestNew(t *testing.T) {
	logger := New(types.LogLevelInfo, true)

	if logger.level != types.LogLevelInfo {
		t.Errorf("Expected level %v, got %v", types.LogLevelInfo, logger.level)
	}

	if !logger.useColor {
		t.Error("Expected useColor to be true")
	}

	if logger.output == nil {
		t.Error("Expected output to be set")
	}
}

func TestSetLevel(t *testing.T) {
	logger := New(types.LogLevelInfo, false)

	logger.SetLevel(types.LogLevelDebug)

	if logger.GetLevel() != types.LogLevelDebug {
		t.Errorf("Expected level %v, got %v", types.LogLevelDebug, logger.GetLevel())
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(types.LogLevelWarning, false)
	logger.SetOutput(&buf)

	// These should not appear (below warning level)
	logger.Debug("debug message")
	logger.Info("info message")

	// These should appear
	logger.Warning("warning message")
	logger.Error("error message")
	logger.Critical("critical message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("Debug message should not appear when level is WARNING")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should not appear when level is WARNING")
	}

	if !strings.Contains(output, "warning message") {
		t.Error("Warning message should appear")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should appear")
	}
	if !strings.Contains(output, "critical message") {
		t.Error("Critical message should appear")
	}
}

func TestLogFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := New(types.LogLevelInfo, false)
	logger.SetOutput(&buf)

	logger.Info("test message")

	output := buf.String()

	if !strings.Contains(output, "INFO") {
		t.Error("Output should contain log level INFO")
	}
	if !strings.Contains(output, "test message") {
		t.Error("Output should contain the message")
	}
	// Check for timestamp (format: YYYY-MM-DD HH:MM:SS)
	if !strings.Contains(output, "[") || !strings.Contains(output, "]") {
		t.Error("Output should contain timestamp in brackets")
	}
}

func TestLogWithFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := New(types.LogLevelInfo, false)
	logger.SetOutput(&buf)

	logger.Info("Number: %d, String: %s", 42, "test")

	output := buf.String()

	if !strings.Contains(output, "Number: 42") {
		t.Error("Output should contain formatted number")
	}
	if !strings.Contains(output, "String: test") {
		t.Error("Output should contain formatted string")
	}
}

func TestColorOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(types.LogLevelInfo, true) // with colors
	logger.SetOutput(&buf)

	logger.Info("test")

	if !strings.Contains(buf.String(), "\033[") {
		t.Error("Colored output should contain ANSI codes")
	}
}

func TestNoColorOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(types.LogLevelInfo, false) // without colors
	logger.SetOutput(&buf)

	logger.Info("test")

	if strings.Contains(buf.String(), "\033[") {
		t.Error("Non-colored output should not contain ANSI codes")
	}
}

func TestDifferentLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(types.LogLevelDebug, false)
	logger.SetOutput(&buf)

	tests := []struct {
		name     string
		logFunc  func(string, ...interface{})
		message  string
		levelStr string
	}{
		{"debug", logger.Debug, "debug test", "DEBUG"},
		{"info", logger.Info, "info test", "INFO"},
		{"warning", logger.Warning, "warning test", "WARNING"},
		{"error", logger.Error, "error test", "ERROR"},
		{"critical", logger.Critical, "critical test", "CRITICAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc(tt.message)
			output := buf.String()

			if !strings.Contains(output, tt.levelStr) {
				t.Errorf("Output should contain level %s", tt.levelStr)
			}
			if !strings.Contains(output, tt.message) {
				t.Errorf("Output should contain message %s", tt.message)
			}
		})
	}
}

func TestFatalUsesExitFunc(t *testing.T) {
	var buf bytes.Buffer
	logger := New(types.LogLevelDebug, false)
	logger.SetOutput(&buf)
	exitCalled := 0
	var exitCode int
	logger.SetExitFunc(func(code int) {
		exitCalled++
		exitCode = code
	})

	logger.Fatal(types.ExitGenericError, "fatal message")

	if exitCalled != 1 || exitCode != types.ExitGenericError.Int() {
		t.Fatalf("exitFunc not called as expected, called=%d code=%d", exitCalled, exitCode)
	}
	if !strings.Contains(buf.String(), "fatal message") {
		t.Fatalf("fatal log missing message: %s", buf.String())
	}
}

func TestSetOutputNilDefaultsToStdout(t *testing.T) {
	logger := New(types.LogLevelInfo, false)
	logger.SetOutput(nil)
	if logger.output != os.Stdout {
		t.Fatalf("expected output to default to stdout when nil provided")
	}
}

func TestOpenAndCloseLogFile(t *testing.T) {
	tmp := t.TempDir()
	logPath := filepath.Join(tmp, "app.log")

	logger := New(types.LogLevelDebug, false)
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	if err := logger.OpenLogFile(logPath); err != nil {
		t.Fatalf("OpenLogFile error: %v", err)
	}

	logger.Info("hello")
	logger.Warning("warn")
	if err := logger.CloseLogFile(); err != nil {
		t.Fatalf("CloseLogFile error: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello") || !strings.Contains(string(content), "warn") {
		t.Fatalf("log file missing expected entries: %s", string(content))
	}
	if strings.Contains(string(content), "\033[") {
		t.Fatalf("log file should not contain ANSI codes: %s", string(content))
	}

	// Second close should be a no-op
	if err := logger.CloseLogFile(); err != nil {
		t.Fatalf("second CloseLogFile should not error: %v", err)
	}
}

func TestWarningAndErrorCounters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(types.LogLevelDebug, false)
	logger.SetOutput(&buf)

	if logger.HasWarnings() || logger.HasErrors() {
		t.Fatalf("counters should be false initially")
	}
	logger.Warning("warn")
	if !logger.HasWarnings() || logger.HasErrors() {
		t.Fatalf("warning should set HasWarnings only")
	}
	logger.Error("err")
	logger.Critical("crit")
	if !logger.HasErrors() {
		t.Fatalf("error counter should be set after error/critical")
	}
	if logger.WarningCount() != 1 {
		t.Fatalf("WarningCount = %d, want 1", logger.WarningCount())
	}
	if logger.ErrorCount() != 2 {
		t.Fatalf("ErrorCount = %d, want 2", logger.ErrorCount())
	}
}

func TestStepSkipNilReceiver(t *testing.T) {
	var l *Logger
	l.Step("step")
	l.Skip("skip")
	// No panic expected
}

func TestStepSkipColorOverrides(t *testing.T) {
	var buf bytes.Buffer
	logger := New(types.LogLevelInfo, true)
	logger.SetOutput(&buf)

	logger.Step("step msg")
	logger.Skip("skip msg")

	out := buf.String()

	// STEP uses blue, SKIP uses magenta
	if !strings.Contains(out, "\033[34m") {
		t.Fatalf("expected blue ANSI color code for STEP, got %q", out)
	}
	if !strings.Contains(out, "\033[35m") {
		t.Fatalf("expected magenta ANSI color code for SKIP, got %q", out)
	}
	if !strings.Contains(out, "STEP") || !strings.Contains(out, "step msg") {
		t.Fatalf("expected STEP label and message, got %q", out)
	}
	if !strings.Contains(out, "SKIP") || !strings.Contains(out, "skip msg") {
		t.Fatalf("expected SKIP label and message, got %q", out)
	}
}

func TestSetExitFuncNilRestoresNonNilExitFunc(t *testing.T) {
	logger := New(types.LogLevelInfo, false)

	logger.SetExitFunc(func(int) {})
	logger.SetExitFunc(nil)

	if logger.exitFunc == nil {
		t.Fatalf("SetExitFunc(nil) should ensure exitFunc is non-nil")
	}
}

func TestBootstrapFlush(t *testing.T) {
	bootstrap := NewBootstrapLogger()
	bootstrap.Debug("early debug")
	bootstrap.Warning("early warning")

	var buf bytes.Buffer
	logger := New(types.LogLevelDebug, false)
	logger.SetOutput(&buf)

	bootstrap.SetLevel(types.LogLevelDebug)
	bootstrap.Flush(logger)

	out := buf.String()
	if !strings.Contains(out, "early debug") {
		t.Fatalf("flushed output missing debug entry: %q", out)
	}
	if !strings.Contains(out, "early warning") {
		t.Fatalf("flushed output missing warning entry: %q", out)
	}

	// Second flush must not replay the entries
	buf.Reset()
	bootstrap.Flush(logger)
	if buf.Len() != 0 {
		t.Fatalf("second flush should be a no-op, got %q", buf.String())
	}
}

func TestBootstrapFlushFiltersByLevel(t *testing.T) {
	bootstrap := NewBootstrapLogger()
	bootstrap.Debug("hidden debug")

	var buf bytes.Buffer
	logger := New(types.LogLevelDebug, false)
	logger.SetOutput(&buf)

	// Default bootstrap level is INFO, so the debug entry is dropped
	bootstrap.Flush(logger)
	if strings.Contains(buf.String(), "hidden debug") {
		t.Fatalf("debug entry should be filtered at INFO level: %q", buf.String())
	}
}
