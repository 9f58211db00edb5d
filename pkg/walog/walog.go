// Package walog implements a minimal write-ahead-log handle: an append-only
// record of page writes plus a way to read back the most recent ones and
// snapshot the data directory. It is a log handle, not a recovery subsystem
// -- nothing in this package replays or rolls back an entry. Grounded in the
// teacher's pkg/recovery/recovery_manager.go, stripped to its log-file and
// checkpoint mechanics.
package walog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/icza/backscanner"
	"github.com/otiai10/copy"
)

// Log appends one line per noted page write to a file on disk. Safe for
// concurrent use.
type Log struct {
	file *os.File
	mtx  sync.Mutex
}

// Open opens (creating if necessary) the log file at path for appending.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0775); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, err
	}
	return &Log{file: f}, nil
}

// Append writes a record to the end of the log file and fsyncs it.
func (l *Log) Append(record string) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if _, err := l.file.WriteString(record + "\n"); err != nil {
		return err
	}
	return l.file.Sync()
}

// NotePageWrite records that a page was modified in the buffer pool (the pool
// calls it when a page is unpinned dirty, not when it reaches disk). It implements
// buffer.WALHandle so a *Log can be handed straight to buffer.New.
func (l *Log) NotePageWrite(pageID int64) {
	l.Append("write " + strconv.FormatInt(pageID, 10))
}

// Tail returns the last n records in the log file, oldest first. Reads the
// file backwards with backscanner so it never has to load the whole log
// into memory to find the tail.
func (l *Log) Tail(n int) ([]string, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	info, err := l.file.Stat()
	if err != nil {
		return nil, err
	}
	scanner := backscanner.New(l.file, int(info.Size()))
	lines := make([]string, 0, n)
	for len(lines) < n {
		line, _, err := scanner.LineBytes()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append([]string{string(line)}, lines...)
	}
	return lines, nil
}

// Checkpoint snapshots the data directory at srcDir into dstDir, overwriting
// whatever was there before. It performs no redo or rollback -- callers that
// want crash recovery must implement it themselves on top of Tail.
func (l *Log) Checkpoint(srcDir, dstDir string) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if err := os.RemoveAll(dstDir); err != nil {
		return err
	}
	if err := copy.Copy(srcDir, dstDir); err != nil {
		return fmt.Errorf("walog: checkpoint failed: %w", err)
	}
	if _, err := l.file.WriteString("checkpoint " + strings.TrimSuffix(dstDir, "/") + "\n"); err != nil {
		return err
	}
	return l.file.Sync()
}

// Close closes the underlying log file.
func (l *Log) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.file.Close()
}
