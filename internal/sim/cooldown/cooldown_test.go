package cooldown

import (
	"testing"
	"time"
)

func TestTracker_AbsentEntryIsReady(t *testing.T) {
	tr := NewTracker()
	now := time.Unix(1000, 0)
	if !tr.Ready("alex", "mam:ascension", time.Minute, now) {
		t.Fatalf("unused action should be ready")
	}
	if rem := tr.Remaining("alex", "mam:ascension", time.Minute, now); rem != 0 {
		t.Fatalf("expected 0 remaining, got %v", rem)
	}
}

func TestTracker_MarkGatesUntilElapsed(t *testing.T) {
	tr := NewTracker()
	t0 := time.Unix(1000, 0)
	tr.Mark("alex", "mam:ascension", t0)

	if rem := tr.Remaining("alex", "mam:ascension", 300*time.Second, t0.Add(100*time.Second)); rem != 200*time.Second {
		t.Fatalf("expected 200s remaining, got %v", rem)
	}
	if tr.Ready("alex", "mam:ascension", 300*time.Second, t0.Add(299*time.Second)) {
		t.Fatalf("should still be cooling down")
	}
	if !tr.Ready("alex", "mam:ascension", 300*time.Second, t0.Add(300*time.Second)) {
		t.Fatalf("should be ready exactly at cooldown")
	}
	if !tr.Ready("steve", "mam:ascension", 300*time.Second, t0) {
		t.Fatalf("cooldowns are per actor")
	}
	if !tr.Ready("alex", "mam:vortex", 300*time.Second, t0) {
		t.Fatalf("cooldowns are per action")
	}
}

func TestTracker_ResetAndForget(t *testing.T) {
	tr := NewTracker()
	now := time.Unix(1000, 0)
	tr.Mark("alex", "a", now)
	tr.Mark("alex", "b", now)
	tr.Mark("steve", "a", now)

	if !tr.Reset("alex", "a") || tr.Reset("alex", "a") {
		t.Fatalf("reset should succeed exactly once")
	}
	if n := tr.Forget("alex"); n != 1 {
		t.Fatalf("forget alex: removed %d, want 1", n)
	}
	if _, ok := tr.Last("steve", "a"); !ok {
		t.Fatalf("forget touched another actor")
	}
	if tr.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", tr.Len())
	}
}
