package frame

import "testing"

func TestFrameNewIsUnoccupied(t *testing.T) {
	f := New(3, make([]byte, 8))
	if f.ID() != 3 {
		t.Errorf("ID() = %d, want 3", f.ID())
	}
	if f.PageID() != NoPage {
		t.Errorf("PageID() = %d, want NoPage", f.PageID())
	}
	if f.IsDirty() {
		t.Error("a fresh frame should not be dirty")
	}
}

func TestFramePinUnpin(t *testing.T) {
	f := New(0, make([]byte, 8))
	if got := f.Pin(); got != 1 {
		t.Fatalf("Pin() = %d, want 1", got)
	}
	if got := f.Pin(); got != 2 {
		t.Fatalf("Pin() = %d, want 2", got)
	}
	if got := f.Unpin(); got != 1 {
		t.Fatalf("Unpin() = %d, want 1", got)
	}
	if got := f.PinCount(); got != 1 {
		t.Fatalf("PinCount() = %d, want 1", got)
	}
}

func TestFrameUpdateMarksDirty(t *testing.T) {
	f := New(0, make([]byte, 8))
	f.Update([]byte{1, 2, 3}, 2, 3)
	if !f.IsDirty() {
		t.Error("Update should mark the frame dirty")
	}
	want := []byte{0, 0, 1, 2, 3, 0, 0, 0}
	for i, b := range want {
		if f.Data()[i] != b {
			t.Fatalf("Data()[%d] = %d, want %d", i, f.Data()[i], b)
		}
	}
}

func TestFrameReset(t *testing.T) {
	f := New(0, make([]byte, 8))
	f.Update([]byte{1, 2, 3}, 0, 3)
	f.Reset(42)
	if f.PageID() != 42 {
		t.Fatalf("PageID() = %d, want 42", f.PageID())
	}
	if f.IsDirty() {
		t.Error("Reset should clear the dirty bit")
	}
	if f.PinCount() != 1 {
		t.Fatalf("PinCount() = %d, want 1", f.PinCount())
	}
	for i, b := range f.Data() {
		if b != 0 {
			t.Fatalf("Data()[%d] = %d, want 0 after Reset", i, b)
		}
	}
}

func TestFrameLatchExclusion(t *testing.T) {
	f := New(0, make([]byte, 8))
	f.WLock()
	unlocked := make(chan struct{})
	go func() {
		f.RLock()
		f.RUnlock()
		close(unlocked)
	}()
	select {
	case <-unlocked:
		t.Fatal("RLock should not succeed while WLock is held")
	default:
	}
	f.WUnlock()
	<-unlocked
}
