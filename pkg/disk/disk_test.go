package disk

import (
	"path/filepath"
	"testing"

	"github.com/ncw/directio"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	m, err := NewFileManager(path)
	if err != nil {
		t.Fatalf("NewFileManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestFileManagerAllocateAndReadWrite(t *testing.T) {
	m := newTestManager(t)
	id, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if id != 0 {
		t.Fatalf("AllocatePage() = %d, want 0", id)
	}
	if m.NumPages() != 1 {
		t.Fatalf("NumPages() = %d, want 1", m.NumPages())
	}

	buf := directio.AlignedBlock(int(PageSize))
	buf[0] = 42
	if err := m.WritePage(id, buf); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	out := directio.AlignedBlock(int(PageSize))
	if err := m.ReadPage(id, out); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if out[0] != 42 {
		t.Fatalf("ReadPage()[0] = %d, want 42", out[0])
	}
}

func TestFileManagerBadPageID(t *testing.T) {
	m := newTestManager(t)
	buf := make([]byte, PageSize)
	if err := m.ReadPage(-1, buf); err != ErrBadPageID {
		t.Fatalf("ReadPage(-1) = %v, want ErrBadPageID", err)
	}
	if err := m.ReadPage(5, buf); err != ErrBadPageID {
		t.Fatalf("ReadPage(5) = %v, want ErrBadPageID", err)
	}
	if err := m.WritePage(-1, buf); err != ErrBadPageID {
		t.Fatalf("WritePage(-1) = %v, want ErrBadPageID", err)
	}
	if err := m.DeallocatePage(-1); err != ErrBadPageID {
		t.Fatalf("DeallocatePage(-1) = %v, want ErrBadPageID", err)
	}
}

func TestFileManagerReusesDeallocatedPage(t *testing.T) {
	m := newTestManager(t)
	id1, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if err := m.DeallocatePage(id1); err != nil {
		t.Fatalf("DeallocatePage: %v", err)
	}
	id2, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if id2 != id1 {
		t.Fatalf("AllocatePage() = %d, want reused id %d", id2, id1)
	}
	if m.NumPages() != 1 {
		t.Fatalf("NumPages() = %d, want 1 (reuse should not grow the file)", m.NumPages())
	}
}

func TestFileManagerAllocateGrowsFile(t *testing.T) {
	m := newTestManager(t)
	for i := int64(0); i < 3; i++ {
		id, err := m.AllocatePage()
		if err != nil {
			t.Fatalf("AllocatePage: %v", err)
		}
		if id != i {
			t.Fatalf("AllocatePage() = %d, want %d", id, i)
		}
	}
	if m.NumPages() != 3 {
		t.Fatalf("NumPages() = %d, want 3", m.NumPages())
	}
}
