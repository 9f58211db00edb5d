// Package catalog implements the storage engine's thin table registry: a
// shared buffer pool plus the header page's name -> root-page-id records,
// replacing a one-pager-per-table design with many indexes
// multiplexed over one pool.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"sync"

	"dinokv/pkg/btree"
	"dinokv/pkg/buffer"
	"dinokv/pkg/cursor"
	"dinokv/pkg/disk"
	"dinokv/pkg/entry"
	"dinokv/pkg/hashtable"
	"dinokv/pkg/header"
	"dinokv/pkg/storageerr"
	"dinokv/pkg/walog"
)

// Kind selects an index's underlying data structure.
type Kind string

const (
	BTreeKind Kind = "btree"
	HashKind  Kind = "hash"
)

var tableNameRE = regexp.MustCompile(`\W`)

// Index is the interface every table kind in a Catalog implements.
type Index interface {
	Name() string
	Kind() Kind
	Get(key int64) (entry.Entry, error)
	Insert(key, value int64) error
	Update(key, value int64) error
	Delete(key int64) error
	Select() ([]entry.Entry, error)
	SelectRange(startKey, endKey int64) ([]entry.Entry, error)
	CursorAtStart() (cursor.Cursor, error)
	Print(w io.Writer)
}

// Catalog is a set of named indexes sharing one buffer pool and one header
// page. Only btree-kind indexes are durable across Close/Open: their root
// page id is recorded on the header page, so the pages backing them survive
// a reopen. Hash-kind indexes are an in-memory convenience kind built on
// pkg/hashtable's generic Table and do not persist -- the header page has
// no record format for them, only for a btree's root page id (spec.md §6).
type Catalog struct {
	mu     sync.RWMutex
	pool   *buffer.Pool
	header *header.Page
	tables map[string]Index
}

// Open opens a Catalog backed by dm. poolSize and k size the buffer pool (0
// picks pkg/config defaults); log, if non-nil, is notified each time a page
// is unpinned dirty.
func Open(dm disk.Manager, poolSize, k int, log *walog.Log) (*Catalog, error) {
	var wal buffer.WALHandle
	if log != nil {
		wal = log
	}
	pool := buffer.New(poolSize, k, dm, wal)
	fresh := dm.NumPages() == 0
	hp, err := header.Open(pool, fresh)
	if err != nil {
		return nil, err
	}
	c := &Catalog{pool: pool, header: hp, tables: make(map[string]Index)}
	if !fresh {
		for _, name := range hp.Names() {
			rootPN, err := hp.GetRootID(name)
			if err != nil {
				return nil, err
			}
			tree, _, err := btree.OpenTree(pool, rootPN)
			if err != nil {
				return nil, err
			}
			c.tables[name] = &btreeIndex{name: name, tree: tree}
		}
	}
	return c, nil
}

// Pool returns the catalog's shared buffer pool.
func (c *Catalog) Pool() *buffer.Pool { return c.pool }

// Close flushes every resident page back to disk.
func (c *Catalog) Close() error {
	return c.pool.FlushAllPages()
}

func validateName(name string) error {
	if name == "" || tableNameRE.MatchString(name) {
		return errors.New("catalog: table name must be alphanumeric")
	}
	return nil
}

// CreateIndex registers and returns a new, empty index of the given kind.
func (c *Catalog) CreateIndex(name string, kind Kind) (Index, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tables[name]; exists {
		return nil, fmt.Errorf("catalog: table %q already exists", name)
	}

	var idx Index
	switch kind {
	case BTreeKind:
		tree, rootPN, err := btree.OpenTree(c.pool, -1)
		if err != nil {
			return nil, err
		}
		if err := c.header.InsertRecord(name, rootPN); err != nil {
			return nil, err
		}
		idx = &btreeIndex{name: name, tree: tree}
	case HashKind:
		idx = newHashIndex(name)
	default:
		return nil, fmt.Errorf("catalog: invalid index kind %q", kind)
	}
	c.tables[name] = idx
	return idx, nil
}

// OpenIndex returns the named index, which must already have been created
// in this session or, for a btree-kind table, in a previous one.
func (c *Catalog) OpenIndex(name string) (Index, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.tables[name]
	if !ok {
		return nil, fmt.Errorf("catalog: no table named %q", name)
	}
	return idx, nil
}

// Tables returns every registered index name, sorted for stable REPL output.
func (c *Catalog) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// btreeIndex adapts a *btree.Tree to the Index interface.
type btreeIndex struct {
	name string
	tree *btree.Tree
}

func (b *btreeIndex) Name() string { return b.name }
func (b *btreeIndex) Kind() Kind   { return BTreeKind }

func (b *btreeIndex) Get(key int64) (entry.Entry, error)    { return b.tree.Get(key) }
func (b *btreeIndex) Insert(key, value int64) error         { return b.tree.Insert(key, value) }
func (b *btreeIndex) Update(key, value int64) error         { return b.tree.Update(key, value) }
func (b *btreeIndex) Delete(key int64) error                { return b.tree.Delete(key) }
func (b *btreeIndex) Select() ([]entry.Entry, error)        { return b.tree.Select() }
func (b *btreeIndex) SelectRange(s, e int64) ([]entry.Entry, error) {
	return b.tree.SelectRange(s, e)
}
func (b *btreeIndex) CursorAtStart() (cursor.Cursor, error) { return b.tree.CursorAtStart() }
func (b *btreeIndex) Print(w io.Writer)                     { b.tree.Print(w) }

// VerifyInvariants checks idx's structural invariants, if idx is a
// btree-kind index. Returns nil for a hash-kind index, which has none to
// check. Intended for use by tests and stress harnesses.
func VerifyInvariants(idx Index) error {
	b, ok := idx.(*btreeIndex)
	if !ok {
		return nil
	}
	return btree.VerifyInvariants(b.tree)
}

// hashIndex adapts a generic in-memory pkg/hashtable.Table to the Index
// interface. It has no notion of key order, so Select/SelectRange/cursoring
// fall back to the table's bucket-visitation order rather than sorted order.
type hashIndex struct {
	name  string
	table *hashtable.Table[int64, int64]
}

func newHashIndex(name string) *hashIndex {
	return &hashIndex{
		name: name,
		table: hashtable.New[int64, int64](hashtable.Options[int64]{
			Hash:       hashtable.NewXxHash(),
			BucketSize: 4,
		}),
	}
}

func (h *hashIndex) Name() string { return h.name }
func (h *hashIndex) Kind() Kind   { return HashKind }

func (h *hashIndex) Get(key int64) (entry.Entry, error) {
	v, ok := h.table.Find(key)
	if !ok {
		return entry.Entry{}, fmt.Errorf("catalog: no entry with key %d", key)
	}
	return entry.New(key, v), nil
}

func (h *hashIndex) Insert(key, value int64) error {
	if _, found := h.table.Find(key); found {
		return fmt.Errorf("catalog: key %d: %w", key, storageerr.ErrDuplicateKey)
	}
	h.table.Insert(key, value)
	return nil
}

func (h *hashIndex) Update(key, value int64) error {
	if _, found := h.table.Find(key); !found {
		return fmt.Errorf("catalog: no entry with key %d to update", key)
	}
	h.table.Insert(key, value)
	return nil
}

func (h *hashIndex) Delete(key int64) error {
	if !h.table.Remove(key) {
		return fmt.Errorf("catalog: no entry with key %d to delete", key)
	}
	return nil
}

func (h *hashIndex) snapshot() []entry.Entry {
	var entries []entry.Entry
	h.table.Range(func(k, v int64) bool {
		entries = append(entries, entry.New(k, v))
		return true
	})
	return entries
}

func (h *hashIndex) Select() ([]entry.Entry, error) {
	return h.snapshot(), nil
}

func (h *hashIndex) SelectRange(startKey, endKey int64) ([]entry.Entry, error) {
	if startKey >= endKey {
		return nil, errors.New("catalog: startKey must be less than endKey")
	}
	var inRange []entry.Entry
	for _, e := range h.snapshot() {
		if e.Key >= startKey && e.Key < endKey {
			inRange = append(inRange, e)
		}
	}
	return inRange, nil
}

func (h *hashIndex) CursorAtStart() (cursor.Cursor, error) {
	entries := h.snapshot()
	if len(entries) == 0 {
		return nil, errors.New("catalog: table is empty")
	}
	return &hashCursor{entries: entries}, nil
}

func (h *hashIndex) Print(w io.Writer) {
	for _, e := range h.snapshot() {
		fmt.Fprintf(w, "(%v, %v)\n", e.Key, e.Value)
	}
}

// hashCursor walks a point-in-time snapshot of a hashIndex's entries.
type hashCursor struct {
	entries []entry.Entry
	pos     int
}

func (c *hashCursor) Next() bool {
	if c.pos+1 >= len(c.entries) {
		return true
	}
	c.pos++
	return false
}

func (c *hashCursor) GetEntry() (entry.Entry, error) {
	if c.pos >= len(c.entries) {
		return entry.Entry{}, errors.New("catalog: cursor is not positioned at an entry")
	}
	return c.entries[c.pos], nil
}

func (c *hashCursor) Close() {}
