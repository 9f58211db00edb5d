package hashtable

import "testing"

func newTestTable(bucketSize int) *Table[int64, int64] {
	return New[int64, int64](Options[int64]{Hash: NewXxHash(), BucketSize: bucketSize})
}

func TestTableInsertAndFind(t *testing.T) {
	tbl := newTestTable(4)
	tbl.Insert(1, 100)
	tbl.Insert(2, 200)

	v, ok := tbl.Find(1)
	if !ok || v != 100 {
		t.Fatalf("Find(1) = (%d, %v), want (100, true)", v, ok)
	}
	if _, ok := tbl.Find(3); ok {
		t.Fatal("Find(3) should report not found")
	}
}

func TestTableInsertOverwrites(t *testing.T) {
	tbl := newTestTable(4)
	tbl.Insert(1, 100)
	tbl.Insert(1, 999)
	v, ok := tbl.Find(1)
	if !ok || v != 999 {
		t.Fatalf("Find(1) = (%d, %v), want (999, true)", v, ok)
	}
	if got := tbl.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}

func TestTableRemove(t *testing.T) {
	tbl := newTestTable(4)
	tbl.Insert(1, 100)
	if !tbl.Remove(1) {
		t.Fatal("Remove(1) should report true")
	}
	if tbl.Remove(1) {
		t.Fatal("Remove(1) again should report false")
	}
	if _, ok := tbl.Find(1); ok {
		t.Fatal("Find(1) should fail after removal")
	}
}

func TestTableSplitsOnOverflow(t *testing.T) {
	tbl := newTestTable(2)
	for i := int64(0); i < 50; i++ {
		tbl.Insert(i, i*10)
	}
	if got := tbl.Len(); got != 50 {
		t.Fatalf("Len() = %d, want 50", got)
	}
	if tbl.GlobalDepth() == 0 {
		t.Fatal("expected the directory to have grown past depth 0 after 50 inserts")
	}
	for i := int64(0); i < 50; i++ {
		v, ok := tbl.Find(i)
		if !ok || v != i*10 {
			t.Fatalf("Find(%d) = (%d, %v), want (%d, true)", i, v, ok, i*10)
		}
	}
}

func TestTableRange(t *testing.T) {
	tbl := newTestTable(4)
	want := map[int64]int64{1: 10, 2: 20, 3: 30}
	for k, v := range want {
		tbl.Insert(k, v)
	}
	got := make(map[int64]int64)
	tbl.Range(func(k, v int64) bool {
		got[k] = v
		return true
	})
	if len(got) != len(want) {
		t.Fatalf("Range visited %d entries, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("Range entry %d = %d, want %d", k, got[k], v)
		}
	}
}

func TestTableRangeStopsEarly(t *testing.T) {
	tbl := newTestTable(4)
	tbl.Insert(1, 10)
	tbl.Insert(2, 20)
	tbl.Insert(3, 30)
	count := 0
	tbl.Range(func(k, v int64) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Range visited %d entries after returning false, want 1", count)
	}
}
