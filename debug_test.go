package vmix

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { SetLogger(nil) })
	return &buf
}

func TestDebugFrameStats(t *testing.T) {
	buf := captureLogs(t)
	s := newTestSession()
	defer s.Close()
	addPattern(s, "a")
	far := addPattern(s, "far")
	placeMixing(far, 5, 0)

	s.Update(1.0 / 60)
	if strings.Contains(buf.String(), "session frame") {
		t.Fatal("stats are only logged in debug mode")
	}

	s.SetDebug(true)
	s.Update(1.0 / 60)
	out := buf.String()
	for _, want := range []string{"session frame", "sources=2", "active=1", "drawn=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestDebugManySources(t *testing.T) {
	buf := captureLogs(t)
	s := newTestSession()
	defer s.Close()
	for i := 0; i <= debugMaxSources; i++ {
		s.sources = append(s.sources, newPatternSource("p"))
	}
	s.SetDebug(true)
	s.debugLog(debugStats{})
	if !strings.Contains(buf.String(), "many sources") {
		t.Error("large sessions are reported")
	}
}

func TestCountActive(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := addPattern(s, "a")
	b := addPattern(s, "b")
	if countActive(s.Sources()) != 0 {
		t.Error("uninitialized sources do not count")
	}
	a.Update(0)
	b.Update(0)
	b.SetActive(false)
	if got := countActive(s.Sources()); got != 1 {
		t.Errorf("active = %d", got)
	}
}

func TestSetLoggerNilRestoresSilence(t *testing.T) {
	SetLogger(slog.Default())
	SetLogger(nil)
	if Logger().Enabled(t.Context(), slog.LevelError) {
		t.Error("default logger is silent")
	}
}
