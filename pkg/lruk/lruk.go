// Package lruk implements the LRU-K replacement policy: among evictable
// frames, evict the one whose backward K-distance (the gap between now and
// its K-th most recent access) is largest, treating "fewer than K accesses"
// as infinite distance and breaking ties by earliest first access.
package lruk

import (
	"sync"

	"github.com/tidwall/btree"
)

// timestamp is a monotonically increasing logical clock value.
type timestamp int64

// node tracks one frame's access history.
type node struct {
	frameID int
	// history holds up to k most recent access timestamps, oldest first.
	// len(history) < k means infinite backward K-distance.
	history []timestamp
	// firstAccess is the timestamp of this frame's very first access, used
	// to break ties among infinite-distance ("history" class) frames.
	firstAccess timestamp
	evictable   bool
}

// kDistanceKey is the true backward K-distance, used to order the
// "buffered" (access count >= K) collection. Frames with fewer than K
// accesses never appear in this collection — they live in historyKey order
// instead.
func (n *node) kDistanceKey() timestamp {
	// history[0] is the k-th most recent access once len(history) == k.
	return n.history[0]
}

type historyItem struct {
	ts      timestamp
	frameID int
}

type buflist = btree.BTreeG[historyItem]

func lessItem(a, b historyItem) bool {
	if a.ts != b.ts {
		return a.ts < b.ts
	}
	return a.frameID < b.frameID
}

// Replacer selects victim frames using the LRU-K policy described above.
// All operations hold a single mutex; replacer operations are O(log n)
// bookkeeping only, so finer-grained locking is not worth the complexity.
type Replacer struct {
	mu sync.Mutex
	k  int

	nodes map[int]*node

	// history orders evictable frames with access count < k by their first
	// access timestamp (classical LRU tie-break).
	history *buflist
	// buffered orders evictable frames with access count >= k by their
	// backward K-distance (the k-th most recent access timestamp).
	buffered *buflist

	clock timestamp
	size  int // count of evictable frames
}

// New constructs an empty Replacer with the given K.
func New(k int) *Replacer {
	if k < 1 {
		k = 1
	}
	return &Replacer{
		k:        k,
		nodes:    make(map[int]*node),
		history:  btree.NewBTreeG(lessItem),
		buffered: btree.NewBTreeG(lessItem),
	}
}

// RecordAccess stamps an access on frameID, creating its entry if new and
// promoting it from the history collection to the buffered collection once
// its access count reaches K.
func (r *Replacer) RecordAccess(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock++
	now := r.clock

	n, ok := r.nodes[frameID]
	if !ok {
		n = &node{frameID: frameID, firstAccess: now, history: []timestamp{now}}
		r.nodes[frameID] = n
		return
	}

	wasBuffered := len(n.history) >= r.k
	if wasBuffered && n.evictable {
		r.buffered.Delete(historyItem{ts: n.kDistanceKey(), frameID: frameID})
	}

	n.history = append(n.history, now)
	if len(n.history) > r.k {
		n.history = n.history[len(n.history)-r.k:]
	}

	if n.evictable {
		nowBuffered := len(n.history) >= r.k
		if nowBuffered {
			r.buffered.Set(historyItem{ts: n.kDistanceKey(), frameID: frameID})
		}
		// history-collection frames keep their original firstAccess key
		// until they graduate to buffered, at which point their history
		// entry (keyed by firstAccess) must be removed.
		if !wasBuffered && nowBuffered {
			r.history.Delete(historyItem{ts: n.firstAccess, frameID: frameID})
		}
	}
}

// SetEvictable marks frameID as evictable or non-evictable, moving it
// between the internal collections and adjusting the evictable size count.
func (r *Replacer) SetEvictable(frameID int, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[frameID]
	if !ok {
		return
	}
	if n.evictable == evictable {
		return
	}
	n.evictable = evictable
	buffered := len(n.history) >= r.k
	if evictable {
		r.size++
		if buffered {
			r.buffered.Set(historyItem{ts: n.kDistanceKey(), frameID: frameID})
		} else {
			r.history.Set(historyItem{ts: n.firstAccess, frameID: frameID})
		}
	} else {
		r.size--
		if buffered {
			r.buffered.Delete(historyItem{ts: n.kDistanceKey(), frameID: frameID})
		} else {
			r.history.Delete(historyItem{ts: n.firstAccess, frameID: frameID})
		}
	}
}

// Evict returns the frame with the largest backward K-distance: the
// history-collection head (infinite distance, earliest-first tie-break) if
// one exists, else the buffered-collection head (smallest k-th-most-recent
// timestamp, i.e. largest distance from now).
func (r *Replacer) Evict() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.history.Min(); ok {
		r.history.Delete(item)
		r.removeNode(item.frameID)
		return item.frameID, true
	}
	if item, ok := r.buffered.Min(); ok {
		r.buffered.Delete(item)
		r.removeNode(item.frameID)
		return item.frameID, true
	}
	return 0, false
}

// Remove purges an evictable frame's entry entirely. The caller must have
// already ensured the frame is unpinned; removing a non-evictable or
// unknown frame is a no-op.
func (r *Replacer) Remove(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[frameID]
	if !ok || !n.evictable {
		return
	}
	if len(n.history) >= r.k {
		r.buffered.Delete(historyItem{ts: n.kDistanceKey(), frameID: frameID})
	} else {
		r.history.Delete(historyItem{ts: n.firstAccess, frameID: frameID})
	}
	r.size--
	delete(r.nodes, frameID)
}

// removeNode drops all bookkeeping for frameID after an eviction. Caller
// holds r.mu.
func (r *Replacer) removeNode(frameID int) {
	delete(r.nodes, frameID)
	r.size--
}

// Size returns the number of currently evictable frames.
func (r *Replacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
