package header

import (
	"path/filepath"
	"testing"

	"dinokv/pkg/buffer"
	"dinokv/pkg/disk"
)

func newTestPool(t *testing.T) *buffer.Pool {
	t.Helper()
	dm, err := disk.NewFileManager(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("disk.NewFileManager: %v", err)
	}
	t.Cleanup(func() { dm.Close() })
	return buffer.New(0, 0, dm, nil)
}

func TestHeaderOpenFreshLandsAtPageZero(t *testing.T) {
	pool := newTestPool(t)
	p, err := Open(pool, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(p.Names()) != 0 {
		t.Fatalf("Names() = %v, want empty", p.Names())
	}
}

func TestHeaderInsertGetUpdateDelete(t *testing.T) {
	pool := newTestPool(t)
	p, err := Open(pool, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := p.InsertRecord("accounts", 3); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if err := p.InsertRecord("accounts", 4); err == nil {
		t.Fatal("expected InsertRecord to reject a duplicate name")
	}

	rootPN, err := p.GetRootID("accounts")
	if err != nil {
		t.Fatalf("GetRootID: %v", err)
	}
	if rootPN != 3 {
		t.Fatalf("GetRootID() = %d, want 3", rootPN)
	}

	if err := p.UpdateRecord("accounts", 9); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	rootPN, err = p.GetRootID("accounts")
	if err != nil {
		t.Fatalf("GetRootID: %v", err)
	}
	if rootPN != 9 {
		t.Fatalf("GetRootID() = %d, want 9 after update", rootPN)
	}

	if err := p.DeleteRecord("accounts"); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if _, err := p.GetRootID("accounts"); err == nil {
		t.Fatal("expected GetRootID to fail after delete")
	}
}

func TestHeaderGetRootIDNotFound(t *testing.T) {
	pool := newTestPool(t)
	p, err := Open(pool, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.GetRootID("ghost"); err == nil {
		t.Fatal("expected an error for an unregistered name")
	}
}

func TestHeaderPersistsAcrossReopen(t *testing.T) {
	pool := newTestPool(t)
	p, err := Open(pool, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := p.InsertRecord("widgets", 7); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}

	reopened, err := Open(pool, false)
	if err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	rootPN, err := reopened.GetRootID("widgets")
	if err != nil {
		t.Fatalf("GetRootID: %v", err)
	}
	if rootPN != 7 {
		t.Fatalf("GetRootID() = %d, want 7", rootPN)
	}
}
