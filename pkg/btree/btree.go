package btree

import (
	"errors"
	"fmt"
	"io"

	"dinokv/pkg/buffer"
	"dinokv/pkg/config"
	"dinokv/pkg/entry"
	"dinokv/pkg/frame"
)

// superNode is a synthetic parent assigned to the root node for the
// duration of a root-touching operation. Its frame is never registered
// with a buffer pool; it exists purely so insert/delete's normal
// unlockParents walk has something to release early when the root turns
// out not to need restructuring, and so Tree can keep the root pinned and
// write-latched across a split or collapse without a node-level special
// case.
var superNode = &internalNode{nodeHeader: nodeHeader{f: newSentinelFrame()}}

// Tree is a disk-backed B+Tree index living inside a shared buffer pool.
// Unlike a single-file-per-index layout, many Trees can share one Pool; each
// Tree only owns the page that holds its root.
type Tree struct {
	pool   *buffer.Pool
	ly     layout
	rootPN int64
}

// OpenTree wraps an existing root page into a Tree. If rootPN is negative,
// a fresh empty leaf root is allocated from pool and its page id returned
// via the second result so the caller (ordinarily pkg/catalog) can persist
// it on the header page.
func OpenTree(pool *buffer.Pool, rootPN int64) (*Tree, int64, error) {
	ly := newLayout(config.PageSize)
	if rootPN >= 0 {
		return &Tree{pool: pool, ly: ly, rootPN: rootPN}, rootPN, nil
	}
	pn, f, err := pool.NewPage()
	if err != nil {
		return nil, -1, err
	}
	initPage(f, leafNodeType)
	root := frameToLeaf(f, ly)
	root.setRightSibling(-1)
	pool.UnpinPage(pn, true)
	return &Tree{pool: pool, ly: ly, rootPN: pn}, pn, nil
}

// rootPageID returns the page id currently holding this tree's root.
func (t *Tree) rootPageID() int64 { return t.rootPN }

func (t *Tree) createLeaf() (*leafNode, error) {
	_, f, err := t.pool.NewPage()
	if err != nil {
		return nil, err
	}
	initPage(f, leafNodeType)
	n := frameToLeaf(f, t.ly)
	n.setRightSibling(-1)
	return n, nil
}

func (t *Tree) createInternal() (*internalNode, error) {
	_, f, err := t.pool.NewPage()
	if err != nil {
		return nil, err
	}
	initPage(f, internalNodeType)
	return frameToInternal(f, t.ly), nil
}

// lockRoot acquires the tree-wide root gate and the physical latch on the
// root page, in that order, and returns the root page wrapped as a Node
// with its parent set to superNode.
func (t *Tree) lockRoot() (Node, error) {
	superNode.f.WLock()
	f, err := t.pool.FetchPage(t.rootPN)
	if err != nil {
		superNode.f.WUnlock()
		return nil, err
	}
	t.pool.WLockPage(f)
	root := frameToNode(f, t.ly)
	switch r := root.(type) {
	case *internalNode:
		r.parent = superNode
	case *leafNode:
		r.parent = superNode
	}
	return root, nil
}

// releaseRoot unlocks and unpins the root frame and releases the root gate.
// dirty should be false for read-only callers so a Get doesn't mark an
// untouched page dirty.
func (t *Tree) releaseRoot(root Node, dirty bool) {
	switch r := root.(type) {
	case *internalNode:
		r.parent = nil
	case *leafNode:
		r.parent = nil
	}
	t.pool.WUnlockPage(root.frm())
	t.pool.UnpinPage(root.frm().PageID(), dirty)
	superNode.f.WUnlock()
}

// unsafeUnlockRoot is a backstop: if the normal unlock/unlockParents chain
// somehow left the root pointing at superNode, force both latches open so
// a bug here can't wedge every future root operation.
func unsafeUnlockRoot(t *Tree, root Node) {
	var parent Node
	switch r := root.(type) {
	case *internalNode:
		parent = r.parent
	case *leafNode:
		parent = r.parent
	}
	if parent == nil {
		return
	}
	t.releaseRoot(root, true)
}

// lockRootRead acquires the root gate and the root page, both for reading.
// Unlike lockRoot, this uses superNode's frame latch in its RLock mode, so
// concurrent Gets and cursor traversals never block each other -- only a
// root-restructuring insert or delete excludes them.
func (t *Tree) lockRootRead() (Node, *frame.Frame, error) {
	superNode.f.RLock()
	f, err := t.pool.FetchPage(t.rootPN)
	if err != nil {
		superNode.f.RUnlock()
		return nil, nil, err
	}
	t.pool.RLockPage(f)
	return frameToNode(f, t.ly), f, nil
}

// releaseRootRead is the inverse of lockRootRead.
func (t *Tree) releaseRootRead(f *frame.Frame) {
	t.pool.RUnlockPage(f)
	t.pool.UnpinPage(f.PageID(), false)
	superNode.f.RUnlock()
}

// releaseReadFrame releases a non-root frame acquired during a read-only
// descent.
func (t *Tree) releaseReadFrame(f *frame.Frame) {
	t.pool.RUnlockPage(f)
	t.pool.UnpinPage(f.PageID(), false)
}

// Get returns the entry associated with key, or an error if absent. Reads
// never restructure the tree, so unlike insert/delete every ancestor latch
// (including the root gate) is released as soon as the next child is
// latched, rather than only once the path is proven safe.
func (t *Tree) Get(key int64) (entry.Entry, error) {
	root, rootFrame, err := t.lockRootRead()
	if err != nil {
		return entry.Entry{}, err
	}

	cur, curFrame := root, rootFrame
	for {
		in, ok := cur.(*internalNode)
		if !ok {
			break
		}
		idx := in.search(key)
		childFrame, err := t.pool.FetchPage(in.getPNAt(idx))
		if err != nil {
			if curFrame == rootFrame {
				t.releaseRootRead(rootFrame)
			} else {
				t.releaseReadFrame(curFrame)
			}
			return entry.Entry{}, err
		}
		t.pool.RLockPage(childFrame)
		if curFrame == rootFrame {
			t.releaseRootRead(rootFrame)
		} else {
			t.releaseReadFrame(curFrame)
		}
		cur, curFrame = frameToNode(childFrame, t.ly), childFrame
	}
	leaf := cur.(*leafNode)
	if curFrame == rootFrame {
		defer t.releaseRootRead(rootFrame)
	} else {
		defer t.releaseReadFrame(curFrame)
	}
	value, found := leaf.get(key)
	if !found {
		return entry.Entry{}, fmt.Errorf("btree: no entry with key %d", key)
	}
	return entry.New(key, value), nil
}

// Insert adds a key/value entry, splitting the root if necessary.
func (t *Tree) Insert(key, value int64) error {
	return t.rootInsert(key, value, false)
}

// Update replaces the value of an existing key.
func (t *Tree) Update(key, value int64) error {
	return t.rootInsert(key, value, true)
}

func (t *Tree) rootInsert(key, value int64, update bool) error {
	root, err := t.lockRoot()
	if err != nil {
		return err
	}
	defer unsafeUnlockRoot(t, root)

	result, err := root.insert(t, key, value, update)
	if err != nil || !result.isSplit {
		return err
	}
	defer superNode.unlock(t)

	if result.leftPN != t.rootPN {
		return errors.New("btree: root split returned an unexpected left page")
	}
	return t.splitRoot(root, result)
}

// splitRoot handles the case where the root itself just split: the root's
// old contents move to a brand new page (preserving the root's page id, so
// other trees' header-page records never need updating), and the root page
// is reinitialized in place as a fresh internal node with two children.
func (t *Tree) splitRoot(root Node, result Split) error {
	newLeftPN, err := t.copyOut(root)
	if err != nil {
		return err
	}

	rootFrame := root.frm()
	initPage(rootFrame, internalNodeType)
	newRoot := frameToInternal(rootFrame, t.ly)
	newRoot.updateKeyAt(0, result.key)
	newRoot.updatePNAt(0, newLeftPN)
	newRoot.updatePNAt(1, result.rightPN)
	newRoot.updateNumKeys(1)
	return nil
}

// copyOut allocates a fresh page and copies root's current contents onto
// it, returning the new page's id.
func (t *Tree) copyOut(root Node) (int64, error) {
	switch r := root.(type) {
	case *leafNode:
		dst, err := t.createLeaf()
		if err != nil {
			return -1, err
		}
		defer t.pool.UnpinPage(dst.f.PageID(), true)
		copyPageData(dst.f, r.f)
		dst.numKeys = r.numKeys
		dst.rightSibling = r.rightSibling
		return dst.f.PageID(), nil
	case *internalNode:
		dst, err := t.createInternal()
		if err != nil {
			return -1, err
		}
		defer t.pool.UnpinPage(dst.f.PageID(), true)
		copyPageData(dst.f, r.f)
		dst.numKeys = r.numKeys
		return dst.f.PageID(), nil
	default:
		return -1, errors.New("btree: unknown node type during root split")
	}
}

// Delete removes key from the tree, collapsing the root if it is left an
// internal node with a single child.
//
// delete's honest underflow result (unlike insert's isSplit) tells us
// exactly when the root-level unlockParents call was skipped: an
// internalNode only ever loses at most one key per rebalance, so reporting
// underflow means it was already at the minimum and its ancestors --
// superNode, for the root -- are still held for us to finish the collapse.
func (t *Tree) Delete(key int64) error {
	root, err := t.lockRoot()
	if err != nil {
		return err
	}

	res := root.delete(t, key)
	if !res.underflow {
		return nil
	}
	defer superNode.unlock(t)

	in, ok := root.(*internalNode)
	if !ok || in.numKeys != 0 {
		return nil
	}
	// The root internal node has been emptied down to a single child by
	// repeated merges; collapse that child's contents up into the root
	// page so the tree's height shrinks without changing the root's page
	// id.
	onlyChildPN := in.getPNAt(0)
	childFrame, err := t.pool.FetchPage(onlyChildPN)
	if err != nil {
		return err
	}
	t.pool.WLockPage(childFrame)
	copyPageData(in.f, childFrame)
	t.pool.WUnlockPage(childFrame)
	t.pool.UnpinPage(onlyChildPN, true)
	return t.pool.DeletePage(onlyChildPN)
}

// Select returns every entry in the tree ordered by key; an empty tree
// yields no entries and no error.
func (t *Tree) Select() ([]entry.Entry, error) {
	leaf, err := t.descendRead(func(in *internalNode) int64 { return in.getPNAt(0) })
	if err != nil {
		return nil, err
	}
	c := &treeCursor{t: t, leaf: leaf}
	defer c.Close()
	if leaf.numKeys == 0 && c.Next() {
		return nil, nil
	}

	var entries []entry.Entry
	for {
		e, err := c.GetEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		if c.Next() {
			break
		}
	}
	return entries, nil
}

// SelectRange returns the entries with keys in [startKey, endKey).
func (t *Tree) SelectRange(startKey, endKey int64) ([]entry.Entry, error) {
	if startKey >= endKey {
		return nil, errors.New("btree: startKey must be less than endKey")
	}
	c, err := t.CursorAt(startKey)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var entries []entry.Entry
	e, err := c.GetEntry()
	if err != nil {
		return entries, nil
	}
	for e.Key < endKey {
		entries = append(entries, e)
		if c.Next() {
			break
		}
		e, err = c.GetEntry()
		if err != nil {
			break
		}
	}
	return entries, nil
}

// Print pretty-prints the whole tree starting from the root.
func (t *Tree) Print(w io.Writer) {
	f, err := t.pool.FetchPage(t.rootPN)
	if err != nil {
		return
	}
	defer t.pool.UnpinPage(t.rootPN, false)
	frameToNode(f, t.ly).printNode(w, "", "")
}

// PrintPN pretty-prints a single page by id, ignoring its position in the
// tree.
func (t *Tree) PrintPN(pn int64, w io.Writer) {
	f, err := t.pool.FetchPage(pn)
	if err != nil {
		return
	}
	defer t.pool.UnpinPage(pn, false)
	frameToNode(f, t.ly).printNode(w, "", "")
}
