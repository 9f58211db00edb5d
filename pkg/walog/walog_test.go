package walog

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "db.log")
	l, err := Open(path)
	if err != nil {
		t.Fatal("failed to open log:", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func TestLogAppendAndTail(t *testing.T) {
	l, _ := newTestLog(t)
	for i := 0; i < 10; i++ {
		if err := l.Append("record " + string(rune('a'+i))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	tail, err := l.Tail(3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"record h", "record i", "record j"}
	if len(tail) != len(want) {
		t.Fatalf("Tail(3) = %v, want %v", tail, want)
	}
	for i := range want {
		if tail[i] != want[i] {
			t.Errorf("Tail(3)[%d] = %q, want %q", i, tail[i], want[i])
		}
	}
}

func TestLogTailFewerThanN(t *testing.T) {
	l, _ := newTestLog(t)
	if err := l.Append("only one"); err != nil {
		t.Fatal(err)
	}
	tail, err := l.Tail(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 1 || tail[0] != "only one" {
		t.Fatalf("Tail(5) = %v, want [\"only one\"]", tail)
	}
}

func TestLogNotePageWrite(t *testing.T) {
	l, _ := newTestLog(t)
	l.NotePageWrite(42)
	l.NotePageWrite(7)
	tail, err := l.Tail(2)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"write 42", "write 7"}
	for i := range want {
		if tail[i] != want[i] {
			t.Errorf("tail[%d] = %q, want %q", i, tail[i], want[i])
		}
	}
}

func TestLogCheckpoint(t *testing.T) {
	l, _ := newTestLog(t)
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "page0"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	dstDir := filepath.Join(t.TempDir(), "snapshot")
	if err := l.Checkpoint(srcDir, dstDir); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(dstDir, "page0"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "data" {
		t.Fatalf("checkpointed file contents = %q, want %q", got, "data")
	}
	tail, err := l.Tail(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 1 || tail[0][:len("checkpoint")] != "checkpoint" {
		t.Fatalf("expected a checkpoint record, got %v", tail)
	}
}
