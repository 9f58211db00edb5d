package buffer

import (
	"path/filepath"
	"testing"

	"dinokv/pkg/disk"
)

func newTestPool(t *testing.T, poolSize int) (*Pool, disk.Manager) {
	t.Helper()
	dm, err := disk.NewFileManager(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("disk.NewFileManager: %v", err)
	}
	t.Cleanup(func() { dm.Close() })
	return New(poolSize, 2, dm, nil), dm
}

func TestPoolNewPageAndFetchPage(t *testing.T) {
	pool, _ := newTestPool(t, 4)
	pageID, f, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	f.Update([]byte{1, 2, 3}, 0, 3)
	if err := pool.UnpinPage(pageID, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	f2, err := pool.FetchPage(pageID)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if f2.Data()[1] != 2 {
		t.Fatalf("FetchPage data[1] = %d, want 2", f2.Data()[1])
	}
	if err := pool.UnpinPage(pageID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
}

func TestPoolUnpinUnknownPage(t *testing.T) {
	pool, _ := newTestPool(t, 4)
	if err := pool.UnpinPage(999, false); err == nil {
		t.Fatal("expected an error unpinning a page that is not resident")
	}
}

func TestPoolEvictsWhenFull(t *testing.T) {
	pool, _ := newTestPool(t, 2)
	id0, _, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := pool.UnpinPage(id0, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	id1, _, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := pool.UnpinPage(id1, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	// Both frames are now unpinned and evictable; a third page should evict
	// one of them rather than failing.
	id2, _, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage after pool is full: %v", err)
	}
	if err := pool.UnpinPage(id2, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if err := pool.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestPoolPoolExhaustedWhenAllPinned(t *testing.T) {
	pool, _ := newTestPool(t, 2)
	if _, _, err := pool.NewPage(); err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if _, _, err := pool.NewPage(); err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	// Both frames remain pinned: there is no free frame and no evictable
	// victim, so a third allocation must fail.
	if _, _, err := pool.NewPage(); err == nil {
		t.Fatal("expected NewPage to fail when every frame is pinned")
	}
}

func TestPoolFlushPageClearsDirtyBit(t *testing.T) {
	pool, dm := newTestPool(t, 4)
	pageID, f, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	f.Update([]byte{9}, 0, 1)
	if err := pool.UnpinPage(pageID, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if err := pool.FlushPage(pageID); err != nil {
		t.Fatalf("FlushPage: %v", err)
	}
	if f.IsDirty() {
		t.Fatal("frame still dirty after FlushPage")
	}

	out := make([]byte, disk.PageSize)
	if err := dm.ReadPage(pageID, out); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if out[0] != 9 {
		t.Fatalf("ReadPage()[0] = %d, want 9", out[0])
	}
}

func TestPoolDeletePageFailsWhilePinned(t *testing.T) {
	pool, _ := newTestPool(t, 4)
	pageID, _, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := pool.DeletePage(pageID); err == nil {
		t.Fatal("expected DeletePage to fail while the page is pinned")
	}
	if err := pool.UnpinPage(pageID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if err := pool.DeletePage(pageID); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
}

func TestPoolDeletePageFlushesDirtyFrame(t *testing.T) {
	pool, dm := newTestPool(t, 4)
	pageID, f, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	f.Update([]byte{7}, 0, 1)
	if err := pool.UnpinPage(pageID, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if err := pool.DeletePage(pageID); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}

	out := make([]byte, disk.PageSize)
	if err := dm.ReadPage(pageID, out); err != nil {
		t.Fatalf("ReadPage after DeletePage: %v", err)
	}
	if out[0] != 7 {
		t.Fatalf("ReadPage()[0] after DeletePage = %d, want 7 (dirty page was not flushed before deallocation)", out[0])
	}
}

func TestPoolCheckInvariantsOnFreshPool(t *testing.T) {
	pool, _ := newTestPool(t, 4)
	if err := pool.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestPoolFetchPageReadErrorLeavesFrameFree(t *testing.T) {
	pool, _ := newTestPool(t, 4)
	// Page 999 was never allocated on disk, so ReadPage fails and FetchPage
	// must leave the grabbed frame free rather than resident with a stale id.
	if _, err := pool.FetchPage(999); err == nil {
		t.Fatal("expected FetchPage to fail reading an unallocated page")
	}
	if err := pool.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants after a failed FetchPage: %v", err)
	}

	pageID, f, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage after a failed FetchPage: %v", err)
	}
	if f.PageID() != pageID {
		t.Fatalf("PageID() = %d, want %d", f.PageID(), pageID)
	}
	if err := pool.UnpinPage(pageID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
}
