package lruk

import "testing"

func TestReplacerEvictsHistoryBeforeBuffered(t *testing.T) {
	r := New(2)
	// Frame 0 reaches k=2 accesses (buffered), frame 1 stays at 1 (history).
	r.RecordAccess(0)
	r.RecordAccess(0)
	r.RecordAccess(1)
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	frame, ok := r.Evict()
	if !ok {
		t.Fatal("expected an evictable frame")
	}
	if frame != 1 {
		t.Fatalf("Evict() = %d, want 1 (history class beats buffered class)", frame)
	}
}

func TestReplacerBufferedOrdersByBackwardKDistance(t *testing.T) {
	r := New(2)
	for i := 0; i < 2; i++ {
		r.RecordAccess(0)
	}
	for i := 0; i < 2; i++ {
		r.RecordAccess(1)
	}
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)
	// Frame 0's accesses are older, so its k-distance is larger.
	frame, ok := r.Evict()
	if !ok || frame != 0 {
		t.Fatalf("Evict() = (%d, %v), want (0, true)", frame, ok)
	}
}

func TestReplacerHistoryOrdersByFirstAccess(t *testing.T) {
	r := New(3)
	r.RecordAccess(0)
	r.RecordAccess(1)
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)
	frame, ok := r.Evict()
	if !ok || frame != 0 {
		t.Fatalf("Evict() = (%d, %v), want (0, true) -- earliest first access should evict first", frame, ok)
	}
}

func TestReplacerSetEvictableFalseExcludesFrame(t *testing.T) {
	r := New(2)
	r.RecordAccess(0)
	r.RecordAccess(1)
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)
	r.SetEvictable(0, false)

	if got := r.Size(); got != 1 {
		t.Fatalf("Size() = %d, want 1 after marking frame 0 non-evictable", got)
	}
	frame, ok := r.Evict()
	if !ok || frame != 1 {
		t.Fatalf("Evict() = (%d, %v), want (1, true)", frame, ok)
	}
}

func TestReplacerEvictOnEmpty(t *testing.T) {
	r := New(2)
	if _, ok := r.Evict(); ok {
		t.Fatal("expected Evict to fail on an empty replacer")
	}
}

func TestReplacerRemove(t *testing.T) {
	r := New(2)
	r.RecordAccess(0)
	r.SetEvictable(0, true)
	r.Remove(0)
	if got := r.Size(); got != 0 {
		t.Fatalf("Size() = %d, want 0 after Remove", got)
	}
	if _, ok := r.Evict(); ok {
		t.Fatal("expected Evict to fail after removing the only evictable frame")
	}
}

func TestReplacerRemoveNonEvictableIsNoop(t *testing.T) {
	r := New(2)
	r.RecordAccess(0)
	// Frame 0 was never marked evictable.
	r.Remove(0)
	if got := r.Size(); got != 0 {
		t.Fatalf("Size() = %d, want 0", got)
	}
}

func TestReplacerPromotionFromHistoryToBuffered(t *testing.T) {
	r := New(2)
	r.RecordAccess(0)
	r.SetEvictable(0, true)
	// Frame 0 is currently in the history class (1 access < k).
	r.RecordAccess(1)
	r.SetEvictable(1, true)
	// Now give frame 0 a second access, promoting it to the buffered class.
	r.RecordAccess(0)

	// Frame 1 is the only remaining history-class frame, so it evicts first.
	frame, ok := r.Evict()
	if !ok || frame != 1 {
		t.Fatalf("Evict() = (%d, %v), want (1, true) after frame 0 was promoted to buffered", frame, ok)
	}
	frame, ok = r.Evict()
	if !ok || frame != 0 {
		t.Fatalf("Evict() = (%d, %v), want (0, true)", frame, ok)
	}
}
