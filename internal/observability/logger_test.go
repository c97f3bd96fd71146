package observability

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func newCaptureLogger(verbose bool) (*StdLogger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	return NewStdLogger(log.New(buf, "", 0), verbose), buf
}

func TestStdLoggerRendersFields(t *testing.T) {
	logger, buf := newCaptureLogger(false)

	logger.Info("fetch completed", F("records", 42), F("date", "2026-08-29"))

	line := buf.String()
	if !strings.Contains(line, "INFO fetch completed") {
		t.Fatalf("missing level and message: %q", line)
	}
	if !strings.Contains(line, "records=42") || !strings.Contains(line, "date=2026-08-29") {
		t.Fatalf("missing fields: %q", line)
	}
}

func TestStdLoggerDebugGatedByVerbose(t *testing.T) {
	logger, buf := newCaptureLogger(false)
	logger.Debug("noisy detail")
	if buf.Len() != 0 {
		t.Fatalf("debug output without verbose: %q", buf.String())
	}

	logger, buf = newCaptureLogger(true)
	logger.Debug("noisy detail")
	if !strings.Contains(buf.String(), "DEBUG noisy detail") {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}

func TestStdLoggerSkipsBlankFieldKeys(t *testing.T) {
	logger, buf := newCaptureLogger(false)
	logger.Error("boom", F("  ", "dropped"), F("cause", "timeout"))

	line := buf.String()
	if strings.Contains(line, "dropped") {
		t.Fatalf("blank key must be skipped: %q", line)
	}
	if !strings.Contains(line, "cause=timeout") {
		t.Fatalf("expected surviving field: %q", line)
	}
}

func TestSetLoggerNilRestoresNoop(t *testing.T) {
	logger, buf := newCaptureLogger(false)
	SetLogger(logger)
	Log().Info("visible")
	if buf.Len() == 0 {
		t.Fatal("expected output through global logger")
	}

	SetLogger(nil)
	defer SetLogger(nil)
	buf.Reset()
	Log().Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("noop logger must swallow output, got %q", buf.String())
	}
}
