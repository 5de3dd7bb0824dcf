package player

import (
	"path/filepath"
	"testing"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestResumePosition(t *testing.T) {
	h := openTestHistory(t)

	if err := h.RecordPosition("movie", 600, 5400); err != nil {
		t.Fatalf("RecordPosition: %v", err)
	}

	pos, ok, err := h.ResumePosition("movie")
	if err != nil {
		t.Fatalf("ResumePosition: %v", err)
	}
	if !ok || pos != 600 {
		t.Errorf("ResumePosition = (%v, %v), want (600, true)", pos, ok)
	}

	// Later positions overwrite earlier ones.
	if err := h.RecordPosition("movie", 900, 5400); err != nil {
		t.Fatalf("RecordPosition: %v", err)
	}
	pos, ok, _ = h.ResumePosition("movie")
	if !ok || pos != 900 {
		t.Errorf("ResumePosition after update = (%v, %v), want (900, true)", pos, ok)
	}
}

func TestResumePositionThresholds(t *testing.T) {
	h := openTestHistory(t)

	// Barely started, not worth resuming.
	if err := h.RecordPosition("fresh", 5, 3600); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := h.ResumePosition("fresh"); ok {
		t.Error("position under 30s should not resume")
	}

	// Practically finished.
	if err := h.RecordPosition("done", 3590, 3600); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := h.ResumePosition("done"); ok {
		t.Error("position within 30s of the end should not resume")
	}

	// Unknown duration still resumes mid-file positions.
	if err := h.RecordPosition("stream", 300, 0); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := h.ResumePosition("stream"); !ok {
		t.Error("mid-file position with unknown duration should resume")
	}
}

func TestResumePositionUnknownTitle(t *testing.T) {
	h := openTestHistory(t)

	pos, ok, err := h.ResumePosition("never seen")
	if err != nil {
		t.Fatalf("ResumePosition: %v", err)
	}
	if ok || pos != 0 {
		t.Errorf("ResumePosition = (%v, %v), want (0, false)", pos, ok)
	}
}

func TestForget(t *testing.T) {
	h := openTestHistory(t)

	if err := h.RecordPosition("movie", 600, 5400); err != nil {
		t.Fatal(err)
	}
	if err := h.Forget("movie"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, ok, _ := h.ResumePosition("movie"); ok {
		t.Error("forgotten title still resumes")
	}
}
