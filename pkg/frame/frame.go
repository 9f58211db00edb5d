// Package frame defines the buffer pool's resident slot: a fixed-size byte
// buffer plus the bookkeeping (page id, pin count, dirty bit, latch) needed
// to safely share it between the pool and its callers.
package frame

import (
	"sync"
	"sync/atomic"
)

// NoPage is the sentinel page id meaning "this frame holds no page".
const NoPage int64 = -1

// Frame caches one page's worth of bytes in memory and tracks the metadata
// the buffer pool needs to decide when the frame can be reused.
//
// Concurrency note: pageID, dirty, and the byte buffer are only safe to read
// or mutate while the frame's latch (RLock/WLock) is held by the caller, and
// only after the caller has pinned the frame. pinCount is atomic because the
// pool increments/decrements it while holding only the pool's coarse latch,
// not the frame's own latch.
type Frame struct {
	id       int          // This frame's index in the pool's frame array.
	pageID   int64        // Page currently occupying this frame, or NoPage.
	pinCount atomic.Int64 // Number of active pins on this frame.
	dirty    bool         // Whether data differs from what's on disk.
	latch    sync.RWMutex // Per-frame reader/writer latch, distinct from the pool's mutex.
	data     []byte       // The page's bytes.
}

// New constructs a Frame backed by the given (already-sized) byte slice.
func New(id int, data []byte) *Frame {
	f := &Frame{id: id, data: data}
	f.pageID = NoPage
	return f
}

// ID returns this frame's index within the pool's frame array.
func (f *Frame) ID() int {
	return f.id
}

// PageID returns the page id currently resident in this frame.
func (f *Frame) PageID() int64 {
	return f.pageID
}

// setPageID installs a new page id. Callers must hold the pool's latch.
func (f *Frame) setPageID(id int64) {
	f.pageID = id
}

// PinCount returns the current pin count.
func (f *Frame) PinCount() int64 {
	return f.pinCount.Load()
}

// Pin increments the pin count, keeping this frame ineligible for eviction.
func (f *Frame) Pin() int64 {
	return f.pinCount.Add(1)
}

// Unpin decrements the pin count, returning the new value.
func (f *Frame) Unpin() int64 {
	return f.pinCount.Add(-1)
}

// IsDirty reports whether this frame's bytes differ from what's on disk.
func (f *Frame) IsDirty() bool {
	return f.dirty
}

// SetDirty sets the dirty bit. Sticky: callers wanting to clear it should
// use the buffer pool's flush path, not call this directly with false.
func (f *Frame) SetDirty(dirty bool) {
	f.dirty = dirty
}

// Data returns the frame's byte buffer. Callers must hold at least a read
// latch (RLock) before reading it, and the write latch before mutating it.
func (f *Frame) Data() []byte {
	return f.data
}

// Update overwrites `size` bytes of the frame's data at the given offset and
// marks the frame dirty. Caller must hold the write latch.
func (f *Frame) Update(data []byte, offset int64, size int64) {
	copy(f.data[offset:offset+size], data)
	f.dirty = true
}

// Reset zeroes the frame's contents and installs a new page id and pin
// count of 1. Callers must hold the pool's latch and the frame's write
// latch is not required since no other reference can exist yet.
func (f *Frame) Reset(pageID int64) {
	for i := range f.data {
		f.data[i] = 0
	}
	f.setPageID(pageID)
	f.dirty = false
	f.pinCount.Store(1)
}

// RLock acquires a shared latch on the frame's data.
func (f *Frame) RLock() { f.latch.RLock() }

// RUnlock releases a shared latch.
func (f *Frame) RUnlock() { f.latch.RUnlock() }

// WLock acquires an exclusive latch on the frame's data.
func (f *Frame) WLock() { f.latch.Lock() }

// WUnlock releases an exclusive latch.
func (f *Frame) WUnlock() { f.latch.Unlock() }
