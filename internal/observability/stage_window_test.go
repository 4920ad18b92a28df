package observability

import "testing"

func TestStageWindowSnapshot(t *testing.T) {
	w := NewStageWindow(8)
	w.Observe("generate", 500)
	w.Observe("generate", 700)
	w.Observe("generate", 900)
	w.ObserveSignal("fallback_reply")
	w.ObserveSignal("fallback_reply")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "generate" {
		t.Fatalf("Stage = %q, want %q", s.Stage, "generate")
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
	if s.TargetP95MS != 2500 {
		t.Fatalf("TargetP95MS = %.2f, want 2500", s.TargetP95MS)
	}
	if len(snap.Signals) != 1 || snap.Signals[0].Name != "fallback_reply" || snap.Signals[0].Count != 2 {
		t.Fatalf("Signals = %+v", snap.Signals)
	}
}

func TestStageWindowWrapsAndResets(t *testing.T) {
	w := NewStageWindow(2)
	w.Observe("route", 1)
	w.Observe("route", 2)
	w.Observe("route", 3)

	snap := w.Snapshot()
	if snap.Stages[0].Samples != 2 {
		t.Fatalf("Samples = %d, want 2 after wrap", snap.Stages[0].Samples)
	}
	if snap.Stages[0].LastMS != 3 {
		t.Fatalf("LastMS = %.2f, want 3", snap.Stages[0].LastMS)
	}

	w.Reset()
	if snap := w.Snapshot(); len(snap.Stages) != 0 {
		t.Fatalf("Stages after Reset = %+v, want empty", snap.Stages)
	}
}
