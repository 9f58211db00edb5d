// Package hashtable implements a thread-safe, generic extendible hash
// table: a reusable associative container whose directory doubles and
// whose buckets split on overflow. Lives entirely in memory, so the same
// type can serve as the buffer pool's page table or as a standalone index.
package hashtable

import (
	"sync"

	"github.com/cespare/xxhash"
	"github.com/spaolacci/murmur3"
)

// Hasher maps a key to a 64-bit hash. Two distinct hash families are wired
// in (see NewXxHash/NewMurmurHash) so the buffer pool's page table and an
// index's own hash table can use uncorrelated hash families.
type Hasher[K comparable] func(key K) uint64

// entry is one key/value pair stored in a bucket.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// bucket holds up to bucketSize entries at a given local depth. Multiple
// directory slots may share a pointer to the same bucket; see split.
type bucket[K comparable, V any] struct {
	localDepth uint
	entries    []entry[K, V]
}

// Table is a concurrent extendible hash table mapping K to V.
type Table[K comparable, V any] struct {
	mu          sync.RWMutex
	globalDepth uint
	directory   []*bucket[K, V]
	hash        Hasher[K]
	bucketSize  int
}

// Options configures a new Table.
type Options[K comparable] struct {
	// Hash is the hash function used to place keys. It has no default: New
	// panics if it is nil.
	Hash Hasher[K]
	// BucketSize bounds the number of entries per bucket before a split is
	// triggered. Defaults to 4.
	BucketSize int
}

// New constructs an empty Table with global depth 0 (a single bucket).
func New[K comparable, V any](opts Options[K]) *Table[K, V] {
	bucketSize := opts.BucketSize
	if bucketSize <= 0 {
		bucketSize = 4
	}
	hash := opts.Hash
	if hash == nil {
		panic("hashtable: Options.Hash must be provided")
	}
	return &Table[K, V]{
		globalDepth: 0,
		directory:   []*bucket[K, V]{{localDepth: 0}},
		hash:        hash,
		bucketSize:  bucketSize,
	}
}

// NewXxHash builds a Hasher[int64] using the xxHash family, grounded in the
// teacher's pkg/hash/hashers.go XxHasher.
func NewXxHash() Hasher[int64] {
	return func(key int64) uint64 {
		buf := encodeInt64(key)
		return xxhash.Sum64(buf)
	}
}

// NewMurmurHash builds a Hasher[int64] using the MurmurHash3 family. Used
// to give the buffer pool's internal page table a hash family uncorrelated
// with an index's own hash table.
func NewMurmurHash() Hasher[int64] {
	return func(key int64) uint64 {
		buf := encodeInt64(key)
		return murmur3.Sum64(buf)
	}
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	u := uint64(v)
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
	}
	return buf
}

func (t *Table[K, V]) index(h uint64) uint64 {
	if t.globalDepth == 0 {
		return 0
	}
	return h & ((1 << t.globalDepth) - 1)
}

// Find looks up the value associated with k.
func (t *Table[K, V]) Find(k K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b := t.directory[t.index(t.hash(k))]
	for _, e := range b.entries {
		if e.key == k {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// Insert stores (k, v), overwriting any existing entry for k. Splits the
// target bucket (and doubles the directory if needed) on overflow.
func (t *Table[K, V]) Insert(k K, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(k, v)
}

func (t *Table[K, V]) insertLocked(k K, v V) {
	idx := t.index(t.hash(k))
	b := t.directory[idx]
	for i := range b.entries {
		if b.entries[i].key == k {
			b.entries[i].value = v
			return
		}
	}
	b.entries = append(b.entries, entry[K, V]{key: k, value: v})
	// split redistributes b's current entries (including the one just
	// appended) into two fresh buckets, so no re-insertion is needed here.
	if len(b.entries) > t.bucketSize {
		t.split(idx)
	}
}

// split grows the bucket currently referenced by directory slot idx: it
// increments the bucket's local depth, allocates two fresh buckets, and
// redistributes its entries between them, doubling the directory first if
// the bucket's local depth had caught up to the global depth. Recurses if a
// redistributed bucket still overflows.
func (t *Table[K, V]) split(idx uint64) {
	old := t.directory[idx]
	if old.localDepth == t.globalDepth {
		t.directory = append(t.directory, t.directory...)
		t.globalDepth++
	}
	newLocalDepth := old.localDepth + 1
	lowBit := uint64(1) << (newLocalDepth - 1)
	zeroBucket := &bucket[K, V]{localDepth: newLocalDepth}
	oneBucket := &bucket[K, V]{localDepth: newLocalDepth}

	// Every directory slot currently pointing at old gets reassigned based
	// on bit (newLocalDepth-1) of its own index.
	for i := range t.directory {
		if t.directory[i] == old {
			if uint64(i)&lowBit == 0 {
				t.directory[i] = zeroBucket
			} else {
				t.directory[i] = oneBucket
			}
		}
	}

	oldEntries := old.entries
	old.entries = nil
	for _, e := range oldEntries {
		h := t.hash(e.key)
		target := t.directory[t.index(h)]
		target.entries = append(target.entries, e)
	}

	if len(zeroBucket.entries) > t.bucketSize {
		t.split(t.findSlot(zeroBucket))
	}
	if len(oneBucket.entries) > t.bucketSize {
		t.split(t.findSlot(oneBucket))
	}
}

func (t *Table[K, V]) findSlot(b *bucket[K, V]) uint64 {
	for i := range t.directory {
		if t.directory[i] == b {
			return uint64(i)
		}
	}
	return 0
}

// Remove deletes the entry for k, if present, and reports whether anything
// was removed. Buckets never merge back together on delete.
func (t *Table[K, V]) Remove(k K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.directory[t.index(t.hash(k))]
	for i, e := range b.entries {
		if e.key == k {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the total number of entries across all (deduplicated)
// buckets in the directory.
func (t *Table[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[*bucket[K, V]]bool)
	n := 0
	for _, b := range t.directory {
		if seen[b] {
			continue
		}
		seen[b] = true
		n += len(b.entries)
	}
	return n
}

// GlobalDepth returns the current directory depth.
func (t *Table[K, V]) GlobalDepth() uint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.globalDepth
}

// Range calls f for every entry currently stored, in unspecified order.
// Stops early if f returns false.
func (t *Table[K, V]) Range(f func(k K, v V) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[*bucket[K, V]]bool)
	for _, b := range t.directory {
		if seen[b] {
			continue
		}
		seen[b] = true
		for _, e := range b.entries {
			if !f(e.key, e.value) {
				return
			}
		}
	}
}
