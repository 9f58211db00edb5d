// Package buffer implements the buffer pool manager: the cache of
// fixed-size frames that sits between the storage engine's indexes and the
// disk manager, backed by an extendible hash table page table and an
// LRU-K eviction policy.
package buffer

import (
	"errors"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"

	"dinokv/pkg/config"
	"dinokv/pkg/disk"
	"dinokv/pkg/frame"
	"dinokv/pkg/hashtable"
	"dinokv/pkg/lruk"
	"dinokv/pkg/storageerr"
)

// Pool is the buffer pool manager. A single mutex guards bookkeeping
// (the page table, the free list, and each frame's pin count and page id);
// the bytes of a resident page are instead protected by that frame's own
// RWMutex latch, so a caller holding a page's latch does not block other
// callers pinning or unpinning unrelated pages.
type Pool struct {
	mu sync.Mutex

	frames   []*frame.Frame
	pageTbl  *hashtable.Table[int64, int] // page id -> frame index
	replacer *lruk.Replacer
	freeList []int // frame indices with no resident page

	disk disk.Manager
	log  WALHandle
}

// WALHandle is the narrow slice of pkg/walog's Log that the buffer pool
// needs: the ability to note that a page was dirtied, without the pool
// knowing anything about log records, replay, or checkpointing.
type WALHandle interface {
	NotePageWrite(pageID int64)
}

// New constructs a Pool of the given size backed by dm. If log is nil, page
// writes simply go unrecorded (no WAL wired in).
func New(poolSize int, k int, dm disk.Manager, log WALHandle) *Pool {
	if poolSize <= 0 {
		poolSize = config.PoolSize
	}
	if k <= 0 {
		k = config.LRUKDistance
	}
	frames := make([]*frame.Frame, poolSize)
	free := make([]int, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = frame.New(i, make([]byte, config.PageSize))
		free[i] = poolSize - 1 - i // pop from tail, so frame 0 is handed out first
	}
	return &Pool{
		frames:   frames,
		pageTbl:  hashtable.New[int64, int](hashtable.Options[int64]{Hash: hashtable.NewMurmurHash(), BucketSize: 4}),
		replacer: lruk.New(k),
		freeList: free,
		disk:     dm,
		log:      log,
	}
}

// Size reports the number of frames in the pool.
func (p *Pool) Size() int {
	return len(p.frames)
}

// grabVictim returns an unpinned frame index ready for reuse: either from
// the free list, or by evicting a replacer victim and, if dirty, flushing it
// first. Caller holds p.mu.
func (p *Pool) grabVictim() (int, error) {
	if n := len(p.freeList); n > 0 {
		id := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return id, nil
	}
	fid, ok := p.replacer.Evict()
	if !ok {
		return 0, storageerr.ErrPoolExhausted
	}
	f := p.frames[fid]
	if f.IsDirty() {
		if err := p.flushFrameLocked(f); err != nil {
			return 0, err
		}
	}
	p.pageTbl.Remove(f.PageID())
	return fid, nil
}

// NewPage allocates a fresh page on disk and pins its frame, returning the
// new page's id and its data frame. The frame is returned pinned and
// non-evictable; callers must Unpin it when done.
func (p *Pool) NewPage() (int64, *frame.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, err := p.grabVictim()
	if err != nil {
		return 0, nil, err
	}
	pageID, err := p.disk.AllocatePage()
	if err != nil {
		return 0, nil, err
	}
	f := p.frames[fid]
	f.Reset(pageID)
	p.pageTbl.Insert(pageID, fid)
	p.replacer.RecordAccess(fid)
	p.replacer.SetEvictable(fid, false)
	return pageID, f, nil
}

// FetchPage pins and returns the frame holding pageID, reading it from disk
// if it is not already resident.
func (p *Pool) FetchPage(pageID int64) (*frame.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fid, ok := p.pageTbl.Find(pageID); ok {
		f := p.frames[fid]
		f.Pin()
		p.replacer.RecordAccess(fid)
		p.replacer.SetEvictable(fid, false)
		return f, nil
	}

	fid, err := p.grabVictim()
	if err != nil {
		return nil, err
	}
	f := p.frames[fid]
	f.Reset(pageID)
	if err := p.disk.ReadPage(pageID, f.Data()); err != nil {
		// Leave the frame free rather than resident with garbage; pageTbl was
		// never updated with pageID, so the frame must not keep it either.
		f.Reset(frame.NoPage)
		f.Unpin()
		p.freeList = append(p.freeList, fid)
		return nil, err
	}
	p.pageTbl.Insert(pageID, fid)
	p.replacer.RecordAccess(fid)
	p.replacer.SetEvictable(fid, false)
	return f, nil
}

// UnpinPage decrements pageID's pin count. If dirty is true the frame's
// dirty bit is set; the bit is sticky (never cleared here) so a page
// written in one transaction and merely read-unpinned in a later one still
// gets flushed.
func (p *Pool) UnpinPage(pageID int64, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.pageTbl.Find(pageID)
	if !ok {
		return storageerr.ErrNotResident
	}
	f := p.frames[fid]
	if f.PinCount() <= 0 {
		return storageerr.ErrNotPinned
	}
	if dirty {
		f.SetDirty(true)
		if p.log != nil {
			p.log.NotePageWrite(pageID)
		}
	}
	if f.Unpin() == 0 {
		p.replacer.SetEvictable(fid, true)
	}
	return nil
}

// flushFrameLocked writes a frame's current contents to disk and clears its
// dirty bit. Caller holds p.mu.
func (p *Pool) flushFrameLocked(f *frame.Frame) error {
	f.RLock()
	err := p.disk.WritePage(f.PageID(), f.Data())
	f.RUnlock()
	if err != nil {
		return err
	}
	f.SetDirty(false)
	return nil
}

// FlushPage writes pageID's frame to disk regardless of its dirty bit,
// clearing the bit on success.
func (p *Pool) FlushPage(pageID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fid, ok := p.pageTbl.Find(pageID)
	if !ok {
		return storageerr.ErrNotResident
	}
	return p.flushFrameLocked(p.frames[fid])
}

// FlushAllPages writes every dirty resident page to disk, fanning the
// writes out across the pool's frames concurrently.
func (p *Pool) FlushAllPages() error {
	p.mu.Lock()
	var dirty []*frame.Frame
	for _, f := range p.frames {
		if f.PageID() != frame.NoPage && f.IsDirty() {
			dirty = append(dirty, f)
		}
	}
	p.mu.Unlock()

	var g errgroup.Group
	for _, f := range dirty {
		f := f
		g.Go(func() error {
			return p.flushOne(f)
		})
	}
	return g.Wait()
}

// flushOne flushes a single frame without taking the pool mutex. It holds
// only the frame's read latch across the disk write, skips a frame that
// holds no page, and clears the dirty bit after a successful write.
func (p *Pool) flushOne(f *frame.Frame) error {
	f.RLock()
	pageID := f.PageID()
	if pageID == frame.NoPage {
		f.RUnlock()
		return nil
	}
	err := p.disk.WritePage(pageID, f.Data())
	f.RUnlock()
	if err != nil {
		return err
	}
	f.SetDirty(false)
	return nil
}

// DeletePage removes pageID from the pool and frees its id on disk. Fails
// if the page is currently pinned.
func (p *Pool) DeletePage(pageID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.pageTbl.Find(pageID)
	if !ok {
		return p.disk.DeallocatePage(pageID)
	}
	f := p.frames[fid]
	if f.PinCount() > 0 {
		return storageerr.ErrPinned
	}
	if f.IsDirty() {
		if err := p.flushFrameLocked(f); err != nil {
			return err
		}
	}
	p.pageTbl.Remove(pageID)
	p.replacer.Remove(fid)
	f.Reset(frame.NoPage)
	f.Unpin() // Reset leaves pin count at 1; this page has no holder.
	p.freeList = append(p.freeList, fid)
	return p.disk.DeallocatePage(pageID)
}

// RLockPage acquires a shared latch on pageID's resident data. The page
// must already be pinned (via FetchPage or NewPage).
func (p *Pool) RLockPage(f *frame.Frame) { f.RLock() }

// RUnlockPage releases a shared latch acquired by RLockPage.
func (p *Pool) RUnlockPage(f *frame.Frame) { f.RUnlock() }

// WLockPage acquires an exclusive latch on pageID's resident data.
func (p *Pool) WLockPage(f *frame.Frame) { f.WLock() }

// WUnlockPage releases an exclusive latch acquired by WLockPage.
func (p *Pool) WUnlockPage(f *frame.Frame) { f.WUnlock() }

// ErrInvariant is returned by CheckInvariants when the pool's bookkeeping
// is inconsistent; it wraps a description of what failed.
var ErrInvariant = errors.New("buffer pool: invariant violated")

// CheckInvariants is a debug/test hook verifying the free list and page
// table bookkeeping: no frame is on the free list twice, an empty frame is
// on the free list with pin count 0, a resident frame is not on the free
// list, and the page table maps each resident page to its frame. Pin counts
// are not checked against the replacer. It is not called on any hot path.
func (p *Pool) CheckInvariants() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	free := bitset.New(uint(len(p.frames)))
	for _, fid := range p.freeList {
		if free.Test(uint(fid)) {
			return errors.Join(ErrInvariant, errors.New("frame id appears twice on the free list"))
		}
		free.Set(uint(fid))
	}

	for _, f := range p.frames {
		if f.PageID() == frame.NoPage {
			if !free.Test(uint(f.ID())) && f.PinCount() != 0 {
				return errors.Join(ErrInvariant, errors.New("empty frame is neither free nor pinned-to-zero"))
			}
			continue
		}
		if free.Test(uint(f.ID())) {
			return errors.Join(ErrInvariant, errors.New("resident frame is also on the free list"))
		}
		idx, ok := p.pageTbl.Find(f.PageID())
		if !ok || idx != f.ID() {
			return errors.Join(ErrInvariant, errors.New("page table disagrees with frame contents"))
		}
	}
	return nil
}
