package txn

import "testing"

func TestWaitsForGraphDetectCycle(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		g := NewWaitsForGraph()
		if g.DetectCycle() {
			t.Error("cycle detected in empty graph")
		}
	})

	t.Run("OneEdge", func(t *testing.T) {
		t1, t2 := &Transaction{}, &Transaction{}
		g := NewWaitsForGraph()
		g.AddEdge(t1, t2)
		if g.DetectCycle() {
			t.Error("cycle detected in single-edge graph")
		}
	})

	t.Run("SimpleCycle", func(t *testing.T) {
		t1, t2 := &Transaction{}, &Transaction{}
		g := NewWaitsForGraph()
		g.AddEdge(t1, t2)
		g.AddEdge(t2, t1)
		if !g.DetectCycle() {
			t.Error("failed to detect cycle")
		}
	})

	t.Run("RemoveEdgeBreaksCycle", func(t *testing.T) {
		t1, t2 := &Transaction{}, &Transaction{}
		g := NewWaitsForGraph()
		g.AddEdge(t1, t2)
		g.AddEdge(t2, t1)
		if err := g.RemoveEdge(t2, t1); err != nil {
			t.Fatal(err)
		}
		if g.DetectCycle() {
			t.Error("cycle detected after removing the edge that closed it")
		}
	})

	t.Run("RemoveMissingEdge", func(t *testing.T) {
		t1, t2 := &Transaction{}, &Transaction{}
		g := NewWaitsForGraph()
		if err := g.RemoveEdge(t1, t2); err == nil {
			t.Error("expected an error removing an edge that was never added")
		}
	})
}
