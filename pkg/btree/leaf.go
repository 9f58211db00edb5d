package btree

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"

	"dinokv/pkg/entry"
	"dinokv/pkg/frame"
	"dinokv/pkg/storageerr"
)

// leafNode stores the actual key/value entries at the bottom of the tree,
// chained to its right sibling so a cursor can scan forward without
// climbing back up through internal nodes.
type leafNode struct {
	nodeHeader
	rightSibling int64
	parent       Node
}

func (n *leafNode) entryPos(i int64) int64 {
	return leafHeaderSize + i*entrySize
}

func (n *leafNode) getEntry(i int64) entry.Entry {
	start := n.entryPos(i)
	return entry.UnmarshalEntry(n.f.Data()[start : start+entrySize])
}

func (n *leafNode) modifyEntry(i int64, e entry.Entry) {
	n.f.Update(e.Marshal(), n.entryPos(i), entrySize)
}

func (n *leafNode) getKeyAt(i int64) int64   { return n.getEntry(i).Key }
func (n *leafNode) getValueAt(i int64) int64 { return n.getEntry(i).Value }

func (n *leafNode) updateKeyAt(i, key int64) {
	n.modifyEntry(i, entry.New(key, n.getValueAt(i)))
}

func (n *leafNode) updateValueAt(i, val int64) {
	n.modifyEntry(i, entry.New(n.getKeyAt(i), val))
}

func (n *leafNode) setRightSibling(pn int64) int64 {
	old := n.rightSibling
	n.rightSibling = pn
	buf := make([]byte, rightSiblingSize)
	binary.PutVarint(buf, pn)
	n.f.Update(buf, rightSiblingOffset, rightSiblingSize)
	return old
}

// search returns the first index whose key is >= key, or numKeys.
func (n *leafNode) search(key int64) int64 {
	return int64(sort.Search(int(n.numKeys), func(i int) bool {
		return n.getKeyAt(int64(i)) >= key
	}))
}

func (n *leafNode) canSplit() bool {
	return n.numKeys == n.ly.entriesPerLeaf-1
}

func (n *leafNode) canDeleteSafely() bool {
	return n.numKeys > minLeafKeys(n.ly)
}

func minLeafKeys(ly layout) int64 {
	return ly.entriesPerLeaf / 2
}

func (n *leafNode) setParent(p Node) { n.parent = p }
func (n *leafNode) getParent() Node  { return n.parent }

func (n *leafNode) unlock(t *Tree) {
	pageID := n.f.PageID()
	n.parent = nil
	t.pool.WUnlockPage(n.f)
	t.pool.UnpinPage(pageID, true)
}

func (n *leafNode) unlockParents(t *Tree) {
	parent := n.parent
	n.parent = nil
	for parent != nil {
		in, ok := parent.(*internalNode)
		if !ok {
			panic("btree: leaf cannot be a parent")
		}
		next := in.parent
		in.unlock(t)
		parent = next
	}
}

func (n *leafNode) insert(t *Tree, key, value int64, update bool) (Split, error) {
	insertPos := n.search(key)
	defer n.unlock(t)
	if !n.canSplit() {
		n.unlockParents(t)
	}
	if insertPos < n.numKeys && n.getKeyAt(insertPos) == key {
		n.unlockParents(t)
		if update {
			n.updateValueAt(insertPos, value)
			return Split{}, nil
		}
		return Split{}, fmt.Errorf("key %d: %w", key, storageerr.ErrDuplicateKey)
	}
	if update {
		n.unlockParents(t)
		return Split{}, fmt.Errorf("btree: no entry with key %d to update", key)
	}
	for i := n.numKeys - 1; i >= insertPos; i-- {
		n.updateKeyAt(i+1, n.getKeyAt(i))
		n.updateValueAt(i+1, n.getValueAt(i))
	}
	n.updateNumKeys(n.numKeys + 1)
	n.modifyEntry(insertPos, entry.New(key, value))
	if n.numKeys >= n.ly.entriesPerLeaf {
		return n.split(t)
	}
	return Split{}, nil
}

func (n *leafNode) split(t *Tree) (Split, error) {
	newNode, err := t.createLeaf()
	if err != nil {
		return Split{}, err
	}
	defer t.pool.UnpinPage(newNode.f.PageID(), true)

	prevSibling := n.setRightSibling(newNode.f.PageID())
	newNode.setRightSibling(prevSibling)

	// Ceiling-sized half stays at n; the new leaf gets the remainder.
	midpoint := (n.numKeys + 1) / 2
	for i := midpoint; i < n.numKeys; i++ {
		newNode.updateKeyAt(newNode.numKeys, n.getKeyAt(i))
		newNode.updateValueAt(newNode.numKeys, n.getValueAt(i))
		newNode.updateNumKeys(newNode.numKeys + 1)
	}
	n.updateNumKeys(midpoint)
	return Split{
		isSplit: true,
		key:     newNode.getKeyAt(0),
		leftPN:  n.f.PageID(),
		rightPN: newNode.f.PageID(),
	}, nil
}

func (n *leafNode) get(key int64) (int64, bool) {
	idx := n.search(key)
	if idx >= n.numKeys || n.getKeyAt(idx) != key {
		return 0, false
	}
	return n.getValueAt(idx), true
}

// delete removes key from this leaf if present, shifting remaining entries
// left. Reports whether the leaf is now below its minimum occupancy so the
// parent can redistribute or merge. A root leaf reports underflow too;
// Tree.Delete ignores it there.
func (n *leafNode) delete(t *Tree, key int64) deleteResult {
	defer n.unlock(t)
	if n.canDeleteSafely() {
		n.unlockParents(t)
	}
	pos := n.search(key)
	if pos >= n.numKeys || n.getKeyAt(pos) != key {
		n.unlockParents(t)
		return deleteResult{}
	}
	for i := pos; i < n.numKeys-1; i++ {
		n.updateKeyAt(i, n.getKeyAt(i+1))
		n.updateValueAt(i, n.getValueAt(i+1))
	}
	n.updateNumKeys(n.numKeys - 1)
	return deleteResult{underflow: n.numKeys < minLeafKeys(n.ly)}
}

// borrowFromLeft shifts the sibling's last entry into this leaf's
// front, and returns the new separator key the parent should use.
func (n *leafNode) borrowFromLeft(left *leafNode) int64 {
	lastIdx := left.numKeys - 1
	k, v := left.getKeyAt(lastIdx), left.getValueAt(lastIdx)
	for i := n.numKeys - 1; i >= 0; i-- {
		n.updateKeyAt(i+1, n.getKeyAt(i))
		n.updateValueAt(i+1, n.getValueAt(i))
	}
	n.updateKeyAt(0, k)
	n.updateValueAt(0, v)
	n.updateNumKeys(n.numKeys + 1)
	left.updateNumKeys(left.numKeys - 1)
	return k
}

// borrowFromRight shifts the sibling's first entry onto this leaf's
// tail, and returns the sibling's new first key as the new separator.
func (n *leafNode) borrowFromRight(right *leafNode) int64 {
	k, v := right.getKeyAt(0), right.getValueAt(0)
	n.updateKeyAt(n.numKeys, k)
	n.updateValueAt(n.numKeys, v)
	n.updateNumKeys(n.numKeys + 1)
	for i := int64(0); i < right.numKeys-1; i++ {
		right.updateKeyAt(i, right.getKeyAt(i+1))
		right.updateValueAt(i, right.getValueAt(i+1))
	}
	right.updateNumKeys(right.numKeys - 1)
	return right.getKeyAt(0)
}

// mergeRight appends right's entries onto this leaf and splices right out
// of the sibling chain. Caller is responsible for freeing right's page.
func (n *leafNode) mergeRight(right *leafNode) {
	for i := int64(0); i < right.numKeys; i++ {
		n.updateKeyAt(n.numKeys, right.getKeyAt(i))
		n.updateValueAt(n.numKeys, right.getValueAt(i))
		n.updateNumKeys(n.numKeys + 1)
	}
	n.setRightSibling(right.rightSibling)
}

func (n *leafNode) printNode(w io.Writer, firstPrefix, prefix string) {
	numKeys := strconv.FormatInt(n.numKeys, 10)
	io.WriteString(w, fmt.Sprintf("%v[%v] Leaf size: %v\n", firstPrefix, n.f.PageID(), numKeys))
	for i := int64(0); i < n.numKeys; i++ {
		e := n.getEntry(i)
		io.WriteString(w, fmt.Sprintf("%v |--> (%v, %v)\n", prefix, e.Key, e.Value))
	}
}

func frameToLeaf(f *frame.Frame, ly layout) *leafNode {
	h := readHeader(f, ly)
	rightSibling, _ := binary.Varint(f.Data()[rightSiblingOffset : rightSiblingOffset+rightSiblingSize])
	return &leafNode{nodeHeader: h, rightSibling: rightSibling}
}
