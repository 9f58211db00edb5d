package txn

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"dinokv/pkg/catalog"
	"dinokv/pkg/disk"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dm, err := disk.NewFileManager(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("disk.NewFileManager: %v", err)
	}
	c, err := catalog.Open(dm, 0, 0, nil)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func runRepl(c *catalog.Catalog, tm *TransactionManager, script string) string {
	r := Repl(c, tm)
	var out bytes.Buffer
	r.Run(uuid.New(), "", strings.NewReader(script), &out)
	return out.String()
}

func TestTransactionReplInsertAndFind(t *testing.T) {
	c := newTestCatalog(t)
	tm := NewTransactionManager(NewResourceLockManager())

	script := strings.Join([]string{
		"create hash table accounts",
		"transaction begin",
		"insert 1 100 into accounts",
		"find 1 from accounts",
		"transaction commit",
		"",
	}, "\n")
	out := runRepl(c, tm, script)

	if !strings.Contains(out, "found entry: (1, 100)") {
		t.Fatalf("repl output = %q, want it to contain the found entry", out)
	}
}

func TestTransactionReplRequiresBeginBeforeLocking(t *testing.T) {
	c := newTestCatalog(t)
	tm := NewTransactionManager(NewResourceLockManager())

	out := runRepl(c, tm, "create hash table accounts\ninsert 1 100 into accounts\n")
	if !strings.Contains(out, "ERROR") {
		t.Fatalf("repl output = %q, want an error inserting without a transaction", out)
	}
}

func TestTransactionReplReadAfterOwnWriteLockIsFree(t *testing.T) {
	c := newTestCatalog(t)
	tm := NewTransactionManager(NewResourceLockManager())

	// A transaction that already holds a write lock on a key can read and
	// write it again without hitting the upgrade-rejection path -- that
	// only fires going the other direction, read then write.
	script := strings.Join([]string{
		"create hash table accounts",
		"transaction begin",
		"insert 1 100 into accounts",
		"find 1 from accounts",
		"update accounts 1 200",
		"",
	}, "\n")
	out := runRepl(c, tm, script)
	if strings.Count(out, "ERROR") != 0 {
		t.Fatalf("repl output = %q, want no errors", out)
	}
}
