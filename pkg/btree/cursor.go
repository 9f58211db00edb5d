package btree

import (
	"errors"

	"dinokv/pkg/cursor"
	"dinokv/pkg/entry"
)

// treeCursor walks the leaf chain of a Tree in key order, holding a read
// latch on exactly one leaf frame at a time.
type treeCursor struct {
	t        *Tree
	leaf     *leafNode
	curIndex int64
}

// CursorAtStart returns a cursor positioned at the tree's smallest entry.
func (t *Tree) CursorAtStart() (cursor.Cursor, error) {
	leaf, err := t.descendRead(func(in *internalNode) int64 { return in.getPNAt(0) })
	if err != nil {
		return nil, err
	}
	c := &treeCursor{t: t, leaf: leaf, curIndex: 0}
	if leaf.numKeys == 0 {
		if c.Next() {
			return nil, errors.New("btree: tree is empty")
		}
	}
	return c, nil
}

// CursorAt returns a cursor positioned at the smallest entry with key >=
// key. If no such entry exists in the located leaf, the cursor advances to
// the next non-empty leaf, mirroring what happens when key once existed and
// has since been deleted.
func (t *Tree) CursorAt(key int64) (cursor.Cursor, error) {
	leaf, err := t.descendRead(func(in *internalNode) int64 { return in.getPNAt(in.search(key)) })
	if err != nil {
		return nil, err
	}
	c := &treeCursor{t: t, leaf: leaf, curIndex: leaf.search(key)}
	if c.curIndex >= leaf.numKeys {
		c.Next()
	}
	return c, nil
}

// descendRead walks from the root to a leaf, crabbing read latches: at each
// internal node, nextPN picks which child to follow, and the current frame
// is released as soon as the child is latched.
func (t *Tree) descendRead(nextPN func(*internalNode) int64) (*leafNode, error) {
	root, rootFrame, err := t.lockRootRead()
	if err != nil {
		return nil, err
	}
	cur, curFrame := root, rootFrame
	for {
		in, ok := cur.(*internalNode)
		if !ok {
			if curFrame == rootFrame {
				// The root is itself the leaf we're returning: release just
				// the root gate and let the frame's own read latch and pin
				// live on with the cursor, same as Get does at its terminal
				// leaf.
				superNode.f.RUnlock()
			}
			break
		}
		childFrame, err := t.pool.FetchPage(nextPN(in))
		if err != nil {
			if curFrame == rootFrame {
				t.releaseRootRead(rootFrame)
			} else {
				t.releaseReadFrame(curFrame)
			}
			return nil, err
		}
		t.pool.RLockPage(childFrame)
		if curFrame == rootFrame {
			t.releaseRootRead(rootFrame)
		} else {
			t.releaseReadFrame(curFrame)
		}
		cur, curFrame = frameToNode(childFrame, t.ly), childFrame
	}
	return cur.(*leafNode), nil
}

// Next advances the cursor to the next entry, following the leaf's right
// sibling chain and skipping over any empty leaves it encounters. Returns
// true once there is nowhere left to advance to.
func (c *treeCursor) Next() bool {
	if c.curIndex+1 < c.leaf.numKeys {
		c.curIndex++
		return false
	}
	nextPN := c.leaf.rightSibling
	if nextPN < 0 {
		return true
	}
	nextFrame, err := c.t.pool.FetchPage(nextPN)
	if err != nil {
		return true
	}
	c.t.pool.RLockPage(nextFrame)
	c.t.releaseReadFrame(c.leaf.f)
	c.leaf = frameToLeaf(nextFrame, c.t.ly)
	c.curIndex = 0
	if c.leaf.numKeys == 0 {
		return c.Next()
	}
	return false
}

// GetEntry returns the entry at the cursor's current position.
func (c *treeCursor) GetEntry() (entry.Entry, error) {
	if c.curIndex >= c.leaf.numKeys {
		return entry.Entry{}, errors.New("btree: cursor is not positioned at an entry")
	}
	return c.leaf.getEntry(c.curIndex), nil
}

// Close releases the latch this cursor is currently holding.
func (c *treeCursor) Close() {
	c.t.releaseReadFrame(c.leaf.f)
}
