package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelsAndPrefixes(t *testing.T) {
	var out, errOut bytes.Buffer
	l := newLogger(&out, &errOut)

	l.Info("ticker started")
	l.Warnf("buffer at %d%%", 90)
	l.Errorf("write failed: %v", "disk full")

	if !strings.Contains(out.String(), "[VITALS-INFO] ") || !strings.Contains(out.String(), "ticker started") {
		t.Errorf("Missing info line in %q", out.String())
	}
	if !strings.Contains(out.String(), "[VITALS-WARN] ") || !strings.Contains(out.String(), "buffer at 90%") {
		t.Errorf("Missing warn line in %q", out.String())
	}
	if strings.Contains(out.String(), "disk full") {
		t.Errorf("Errors must go to the error writer")
	}
	if !strings.Contains(errOut.String(), "[VITALS-ERROR] ") || !strings.Contains(errOut.String(), "write failed: disk full") {
		t.Errorf("Missing error line in %q", errOut.String())
	}
}

func TestEventFormat(t *testing.T) {
	var out bytes.Buffer
	l := newLogger(&out, &out)

	l.Event("LEVEL_UP", "VITALS", "P001 reached level 2")

	if !strings.Contains(out.String(), "[EVENT:LEVEL_UP] Actor:VITALS | P001 reached level 2") {
		t.Errorf("Unexpected event line %q", out.String())
	}
	// Caller is reported, not the logger itself.
	if !strings.Contains(out.String(), "logger_test.go") {
		t.Errorf("Expected the caller's file in %q", out.String())
	}
}
