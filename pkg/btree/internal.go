package btree

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"

	"dinokv/pkg/frame"
)

// internalNode routes searches down to the right child and hosts the
// separator keys produced by splits below it. A node with n keys (slots 0
// to n-1) has n+1 children; child i holds keys k with key i-1 <= k < key i
// (with key -1 and key n treated as -inf/+inf).
type internalNode struct {
	nodeHeader
	parent Node
}

func keyPos(ly layout, i int64) int64 { return keysOffset + i*keySize }
func pnPos(ly layout, i int64) int64  { return ly.pnsOffset + i*pnSize }

func (n *internalNode) getKeyAt(i int64) int64 {
	start := keyPos(n.ly, i)
	k, _ := binary.Varint(n.f.Data()[start : start+keySize])
	return k
}

func (n *internalNode) updateKeyAt(i, key int64) {
	buf := make([]byte, keySize)
	binary.PutVarint(buf, key)
	n.f.Update(buf, keyPos(n.ly, i), keySize)
}

func (n *internalNode) getPNAt(i int64) int64 {
	start := pnPos(n.ly, i)
	pn, _ := binary.Varint(n.f.Data()[start : start+pnSize])
	return pn
}

func (n *internalNode) updatePNAt(i, pn int64) {
	buf := make([]byte, pnSize)
	binary.PutVarint(buf, pn)
	n.f.Update(buf, pnPos(n.ly, i), pnSize)
}

// search returns the first index whose key is > key, i.e. the index of the
// child pointer to follow for key.
func (n *internalNode) search(key int64) int64 {
	return int64(sort.Search(int(n.numKeys), func(i int) bool {
		return n.getKeyAt(int64(i)) > key
	}))
}

func (n *internalNode) canSplit() bool {
	return n.numKeys == n.ly.keysPerInternal-1
}

func minInternalKeys(ly layout) int64 {
	return ly.keysPerInternal / 2
}

func (n *internalNode) canDeleteSafely() bool {
	return n.numKeys > minInternalKeys(n.ly)
}

func (n *internalNode) setParent(p Node) { n.parent = p }
func (n *internalNode) getParent() Node  { return n.parent }

func (n *internalNode) unlock(t *Tree) {
	pageID := n.f.PageID()
	n.parent = nil
	t.pool.WUnlockPage(n.f)
	t.pool.UnpinPage(pageID, true)
}

func (n *internalNode) unlockParents(t *Tree) {
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

func (n *internalNode) initChild(child Node) {
	switch c := child.(type) {
	case *internalNode:
		c.parent = n
	case *leafNode:
		c.parent = n
	}
}

// releaseSide unlocks and unpins a sibling fetched during rebalancing, a
// no-op if sib is nil (no such sibling existed).
func (t *Tree) releaseSide(sib Node) {
	if sib == nil {
		return
	}
	t.pool.WUnlockPage(sib.frm())
	t.pool.UnpinPage(sib.frm().PageID(), true)
}

func (t *Tree) fetchAndLockChildAt(n *internalNode, i int64) (Node, error) {
	pn := n.getPNAt(i)
	f, err := t.pool.FetchPage(pn)
	if err != nil {
		return nil, err
	}
	t.pool.WLockPage(f)
	return frameToNode(f, t.ly), nil
}

func (n *internalNode) insert(t *Tree, key, value int64, update bool) (Split, error) {
	if !n.canSplit() {
		n.unlockParents(t)
	}
	childIdx := n.search(key)
	child, err := t.fetchAndLockChildAt(n, childIdx)
	if err != nil {
		n.unlockParents(t)
		n.unlock(t)
		return Split{}, err
	}
	n.initChild(child)

	result, err := child.insert(t, key, value, update)
	if err != nil {
		n.unlockParents(t)
		n.unlock(t)
		return Split{}, err
	}
	if result.isSplit {
		split, serr := n.insertSplit(t, result)
		if !split.isSplit {
			n.unlockParents(t)
		}
		n.unlock(t)
		return split, serr
	}
	n.unlockParents(t)
	n.unlock(t)
	return Split{}, nil
}

func (n *internalNode) insertSplit(t *Tree, split Split) (Split, error) {
	insertPos := n.search(split.key)
	for i := n.numKeys - 1; i >= insertPos; i-- {
		n.updateKeyAt(i+1, n.getKeyAt(i))
	}
	for i := n.numKeys; i > insertPos; i-- {
		n.updatePNAt(i+1, n.getPNAt(i))
	}
	n.updateKeyAt(insertPos, split.key)
	n.updatePNAt(insertPos+1, split.rightPN)
	n.updateNumKeys(n.numKeys + 1)
	if n.numKeys >= n.ly.keysPerInternal {
		return n.split(t)
	}
	return Split{}, nil
}

func (n *internalNode) split(t *Tree) (Split, error) {
	newNode, err := t.createInternal()
	if err != nil {
		return Split{}, err
	}
	defer t.pool.UnpinPage(newNode.f.PageID(), true)

	midpoint := (n.numKeys - 1) / 2
	for i := midpoint + 1; i < n.numKeys; i++ {
		newNode.updatePNAt(newNode.numKeys, n.getPNAt(i))
		newNode.updateKeyAt(newNode.numKeys, n.getKeyAt(i))
		newNode.updateNumKeys(newNode.numKeys + 1)
	}
	newNode.updatePNAt(newNode.numKeys, n.getPNAt(n.numKeys))

	middleKey := n.getKeyAt(midpoint)
	n.updateNumKeys(midpoint)
	return Split{isSplit: true, key: middleKey, leftPN: n.f.PageID(), rightPN: newNode.f.PageID()}, nil
}

// delete routes the delete down to the right child and, if the child
// reports underflow, redistributes from a sibling or merges with one.
func (n *internalNode) delete(t *Tree, key int64) deleteResult {
	if n.canDeleteSafely() {
		n.unlockParents(t)
	}
	childIdx := n.search(key)
	child, err := t.fetchAndLockChildAt(n, childIdx)
	if err != nil {
		n.unlockParents(t)
		n.unlock(t)
		return deleteResult{}
	}
	n.initChild(child)

	res := child.delete(t, key)
	if !res.underflow {
		n.unlockParents(t)
		n.unlock(t)
		return deleteResult{}
	}

	n.rebalanceChild(t, childIdx)
	n.unlock(t)
	return deleteResult{underflow: n.numKeys < minInternalKeys(n.ly)}
}

// rebalanceChild repairs an underflowing child at slot idx by borrowing
// from a sibling if one can spare an entry, else merging with one and
// dropping the corresponding separator key/child pointer from n.
func (n *internalNode) rebalanceChild(t *Tree, idx int64) {
	var leftSib, rightSib Node
	var leftIdx, rightIdx int64 = -1, -1
	if idx > 0 {
		leftIdx = idx - 1
		s, err := t.fetchAndLockChildAt(n, leftIdx)
		if err == nil {
			leftSib = s
		}
	}
	if idx < n.numKeys {
		rightIdx = idx + 1
		s, err := t.fetchAndLockChildAt(n, rightIdx)
		if err == nil {
			rightSib = s
		}
	}

	child, _ := t.fetchAndLockChildAt(n, idx)

	switch c := child.(type) {
	case *leafNode:
		if leftSib != nil && leftSib.(*leafNode).numKeys > minLeafKeys(n.ly) {
			newSep := c.borrowFromLeft(leftSib.(*leafNode))
			n.updateKeyAt(leftIdx, newSep)
			t.releaseSide(leftSib)
			t.releaseSide(rightSib)
			t.pool.WUnlockPage(c.f)
			t.pool.UnpinPage(c.f.PageID(), true)
			return
		}
		if rightSib != nil && rightSib.(*leafNode).numKeys > minLeafKeys(n.ly) {
			newSep := c.borrowFromRight(rightSib.(*leafNode))
			n.updateKeyAt(idx, newSep)
			t.releaseSide(leftSib)
			t.releaseSide(rightSib)
			t.pool.WUnlockPage(c.f)
			t.pool.UnpinPage(c.f.PageID(), true)
			return
		}
		if rightSib != nil {
			rn := rightSib.(*leafNode)
			c.mergeRight(rn)
			n.removeChildAt(idx + 1)
			doomed := rn.f.PageID()
			t.releaseSide(leftSib)
			t.pool.WUnlockPage(rn.f)
			t.pool.UnpinPage(doomed, true)
			t.pool.DeletePage(doomed)
			t.pool.WUnlockPage(c.f)
			t.pool.UnpinPage(c.f.PageID(), true)
			return
		}
		// Merge into left sibling.
		ln := leftSib.(*leafNode)
		ln.mergeRight(c)
		n.removeChildAt(idx)
		doomed := c.f.PageID()
		t.releaseSide(rightSib)
		t.pool.WUnlockPage(ln.f)
		t.pool.UnpinPage(ln.f.PageID(), true)
		t.pool.WUnlockPage(c.f)
		t.pool.UnpinPage(doomed, true)
		t.pool.DeletePage(doomed)
		return

	case *internalNode:
		sep := n.getKeyAt(idx)
		if leftSib != nil && leftSib.(*internalNode).numKeys > minInternalKeys(n.ly) {
			newSep := c.borrowFromLeft(leftSib.(*internalNode), sep)
			n.updateKeyAt(leftIdx, newSep)
			t.releaseSide(leftSib)
			t.releaseSide(rightSib)
			t.pool.WUnlockPage(c.f)
			t.pool.UnpinPage(c.f.PageID(), true)
			return
		}
		if rightSib != nil && rightSib.(*internalNode).numKeys > minInternalKeys(n.ly) {
			newSep := c.borrowFromRight(rightSib.(*internalNode), n.getKeyAt(idx))
			n.updateKeyAt(idx, newSep)
			t.releaseSide(leftSib)
			t.releaseSide(rightSib)
			t.pool.WUnlockPage(c.f)
			t.pool.UnpinPage(c.f.PageID(), true)
			return
		}
		if rightSib != nil {
			rn := rightSib.(*internalNode)
			c.mergeRight(rn, n.getKeyAt(idx))
			n.removeChildAt(idx + 1)
			doomed := rn.f.PageID()
			t.releaseSide(leftSib)
			t.pool.WUnlockPage(rn.f)
			t.pool.UnpinPage(doomed, true)
			t.pool.DeletePage(doomed)
			t.pool.WUnlockPage(c.f)
			t.pool.UnpinPage(c.f.PageID(), true)
			return
		}
		ln := leftSib.(*internalNode)
		ln.mergeRight(c, n.getKeyAt(idx-1))
		n.removeChildAt(idx)
		doomed := c.f.PageID()
		t.releaseSide(rightSib)
		t.pool.WUnlockPage(ln.f)
		t.pool.UnpinPage(ln.f.PageID(), true)
		t.pool.WUnlockPage(c.f)
		t.pool.UnpinPage(doomed, true)
		t.pool.DeletePage(doomed)
		return
	}
}

// removeChildAt drops the key at index max(i-1,0) and the child pointer at
// index i, used after the child at i has been merged into its left
// neighbor (call with the dead child's own index) or its right neighbor
// has been merged into it (call with the dead right child's index).
func (n *internalNode) removeChildAt(i int64) {
	keyIdx := i - 1
	if keyIdx < 0 {
		keyIdx = 0
	}
	for k := keyIdx; k < n.numKeys-1; k++ {
		n.updateKeyAt(k, n.getKeyAt(k+1))
	}
	for p := i; p < n.numKeys; p++ {
		n.updatePNAt(p, n.getPNAt(p+1))
	}
	n.updateNumKeys(n.numKeys - 1)
}

func (n *internalNode) borrowFromLeft(left *internalNode, sepKey int64) int64 {
	lastKeyIdx := left.numKeys - 1
	lastPNIdx := left.numKeys
	borrowedKey := left.getKeyAt(lastKeyIdx)
	borrowedPN := left.getPNAt(lastPNIdx)
	for i := n.numKeys; i > 0; i-- {
		n.updatePNAt(i, n.getPNAt(i-1))
	}
	for i := n.numKeys - 1; i >= 0; i-- {
		n.updateKeyAt(i+1, n.getKeyAt(i))
	}
	n.updatePNAt(0, borrowedPN)
	n.updateKeyAt(0, sepKey)
	n.updateNumKeys(n.numKeys + 1)
	left.updateNumKeys(left.numKeys - 1)
	return borrowedKey
}

func (n *internalNode) borrowFromRight(right *internalNode, sepKey int64) int64 {
	borrowedPN := right.getPNAt(0)
	borrowedKey := right.getKeyAt(0)
	n.updatePNAt(n.numKeys+1, borrowedPN)
	n.updateKeyAt(n.numKeys, sepKey)
	n.updateNumKeys(n.numKeys + 1)
	for i := int64(0); i < right.numKeys-1; i++ {
		right.updateKeyAt(i, right.getKeyAt(i+1))
	}
	for p := int64(0); p < right.numKeys; p++ {
		right.updatePNAt(p, right.getPNAt(p+1))
	}
	right.updateNumKeys(right.numKeys - 1)
	return borrowedKey
}

// mergeRight pulls down sepKey as a new separator and appends right's keys
// and children onto this node.
func (n *internalNode) mergeRight(right *internalNode, sepKey int64) {
	n.updateKeyAt(n.numKeys, sepKey)
	n.updateNumKeys(n.numKeys + 1)
	for i := int64(0); i < right.numKeys; i++ {
		n.updateKeyAt(n.numKeys, right.getKeyAt(i))
		n.updateNumKeys(n.numKeys + 1)
	}
	base := n.numKeys - right.numKeys
	for i := int64(0); i <= right.numKeys; i++ {
		n.updatePNAt(base+i, right.getPNAt(i))
	}
}

func (n *internalNode) printNode(w io.Writer, firstPrefix, prefix string) {
	numKeys := strconv.FormatInt(n.numKeys+1, 10)
	io.WriteString(w, fmt.Sprintf("%v[%v] Internal size: %v\n", firstPrefix, n.f.PageID(), numKeys))
}

func frameToInternal(f *frame.Frame, ly layout) *internalNode {
	h := readHeader(f, ly)
	return &internalNode{nodeHeader: h}
}
