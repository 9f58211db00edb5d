package list

import "testing"

func TestListPushTailAndPeekHead(t *testing.T) {
	l := NewList[int64]()
	if l.PeekHead() != nil {
		t.Fatal("expected an empty list's head to be nil")
	}
	l.PushTail(1)
	l.PushTail(2)
	l.PushTail(3)

	head := l.PeekHead()
	if head == nil {
		t.Fatal("expected a non-nil head after pushing")
	}
	if head.Value() != 1 {
		t.Fatalf("PeekHead().Value() = %d, want 1", head.Value())
	}
}

func TestListPopSelfHead(t *testing.T) {
	l := NewList[int64]()
	l.PushTail(1)
	l.PushTail(2)
	l.PushTail(3)

	head := l.PeekHead()
	head.PopSelf()

	newHead := l.PeekHead()
	if newHead == nil || newHead.Value() != 2 {
		t.Fatalf("PeekHead().Value() = %v, want 2", newHead)
	}
}

func TestListPopSelfMiddleAndTail(t *testing.T) {
	l := NewList[int64]()
	l.PushTail(1)
	mid := l.PushTail(2)
	l.PushTail(3)

	mid.PopSelf()

	first := l.PeekHead()
	if first.Value() != 1 {
		t.Fatalf("PeekHead().Value() = %d, want 1", first.Value())
	}
	last := l.PushTail(4)
	if last.Value() != 4 {
		t.Fatalf("PushTail().Value() = %d, want 4", last.Value())
	}

	// Walk the remaining links by popping from the head repeatedly.
	var values []int64
	for h := l.PeekHead(); h != nil; h = l.PeekHead() {
		values = append(values, h.Value())
		h.PopSelf()
	}
	want := []int64{1, 3, 4}
	if len(values) != len(want) {
		t.Fatalf("values = %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("values = %v, want %v", values, want)
		}
	}
}

func TestListPopSelfOnlyLink(t *testing.T) {
	l := NewList[int64]()
	link := l.PushTail(42)
	link.PopSelf()
	if l.PeekHead() != nil {
		t.Fatal("expected the list to be empty after popping its only link")
	}
}

func TestListPushTailAfterDrain(t *testing.T) {
	l := NewList[int64]()
	link := l.PushTail(1)
	link.PopSelf()

	l.PushTail(99)
	head := l.PeekHead()
	if head == nil || head.Value() != 99 {
		t.Fatalf("PeekHead() = %v, want a link with value 99", head)
	}
}
