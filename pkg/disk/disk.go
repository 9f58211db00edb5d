// Package disk implements the block-oriented backing store the buffer pool
// delegates to: a blocking, thread-safe page I/O abstraction. It is the
// "disk manager" collaborator named (but left external) by the storage
// engine design — opaque fixed-size pages in, opaque fixed-size pages out.
package disk

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dinokv/pkg/config"
	"dinokv/pkg/list"

	"github.com/ncw/directio"
)

// PageSize is the size, in bytes, of every page this package reads or
// writes, re-exported from pkg/config so the disk layer and the rest of the
// core always agree on it.
const PageSize int64 = config.PageSize

// Manager is the contract the buffer pool relies on. Implementations must
// be safe for concurrent use; all methods may block on I/O.
type Manager interface {
	// ReadPage fills buf (which must be exactly PageSize bytes) with the
	// contents of the given page.
	ReadPage(pageID int64, buf []byte) error
	// WritePage writes buf (exactly PageSize bytes) to the given page.
	WritePage(pageID int64, buf []byte) error
	// AllocatePage returns a fresh page id. Ids are never reused until a
	// matching DeallocatePage call frees them.
	AllocatePage() (int64, error)
	// DeallocatePage releases a page id for future reuse.
	DeallocatePage(pageID int64) error
	// NumPages reports the high-water mark of allocated pages (including
	// any that have since been deallocated but not yet reused).
	NumPages() int64
	// Close flushes metadata and closes the backing file.
	Close() error
}

// ErrBadPageID is returned when a page id is negative or beyond the
// allocated range.
var ErrBadPageID = errors.New("disk: invalid page id")

// FileManager is a directio-backed Manager, using github.com/ncw/directio
// for aligned block I/O. The file is opened with O_DIRECT, so buffers passed
// to ReadPage and WritePage must be block-aligned (directio.AlignedBlock).
type FileManager struct {
	file     *os.File
	numPages int64
	freeList *list.List[int64] // Deallocated page ids available for reuse.
	mtx      sync.Mutex
}

// NewFileManager opens (creating if needed) a FileManager backed by the
// file at path.
func NewFileManager(path string) (*FileManager, error) {
	if idx := strings.LastIndex(path, "/"); idx != -1 {
		if err := os.MkdirAll(path[:idx], 0775); err != nil {
			return nil, err
		}
	}
	file, err := directio.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size()%PageSize != 0 {
		file.Close()
		return nil, errors.New("disk: backing file size is not page-aligned")
	}
	return &FileManager{
		file:     file,
		numPages: info.Size() / PageSize,
		freeList: list.NewList[int64](),
	}, nil
}

// Filename returns the path of the backing file.
func (m *FileManager) Filename() string {
	return m.file.Name()
}

// NumPages reports the number of pages ever allocated, including any now
// sitting on the free list.
func (m *FileManager) NumPages() int64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.numPages
}

// ReadPage reads the page at pageID into buf.
func (m *FileManager) ReadPage(pageID int64, buf []byte) error {
	if pageID < 0 {
		return ErrBadPageID
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if pageID >= m.numPages {
		return ErrBadPageID
	}
	if _, err := m.file.Seek(pageID*PageSize, io.SeekStart); err != nil {
		return err
	}
	if _, err := m.file.Read(buf); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// WritePage writes buf to the page at pageID.
func (m *FileManager) WritePage(pageID int64, buf []byte) error {
	if pageID < 0 {
		return ErrBadPageID
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if pageID >= m.numPages {
		return ErrBadPageID
	}
	if _, err := m.file.Seek(pageID*PageSize, io.SeekStart); err != nil {
		return err
	}
	_, err := m.file.Write(buf)
	return err
}

// AllocatePage returns a reused id from the free list if one exists,
// otherwise grows the file by one page and returns the new id.
func (m *FileManager) AllocatePage() (int64, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if link := m.freeList.PeekHead(); link != nil {
		id := link.Value()
		link.PopSelf()
		return id, nil
	}
	id := m.numPages
	zero := directio.AlignedBlock(int(PageSize))
	if _, err := m.file.Seek(id*PageSize, io.SeekStart); err != nil {
		return 0, err
	}
	if _, err := m.file.Write(zero); err != nil {
		return 0, err
	}
	m.numPages++
	return id, nil
}

// DeallocatePage returns pageID to the free list for future reuse.
func (m *FileManager) DeallocatePage(pageID int64) error {
	if pageID < 0 {
		return ErrBadPageID
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if pageID >= m.numPages {
		return ErrBadPageID
	}
	m.freeList.PushTail(pageID)
	return nil
}

// Close closes the backing file.
func (m *FileManager) Close() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.file.Close()
}

var _ Manager = (*FileManager)(nil)

// DefaultDataDir is a conventional data directory name. NewFileManager and
// the catalog package do not apply it; JoinDataPath builds paths under it.
const DefaultDataDir = "data"

// JoinDataPath joins the default data directory with a relative name.
func JoinDataPath(name string) string {
	return filepath.Join(DefaultDataDir, name)
}
