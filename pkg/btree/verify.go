package btree

import "errors"

// VerifyInvariants walks the tree checking the two structural invariants a
// B+Tree must maintain: keys within any node are sorted, and each child's
// key range respects its parent's separators. Intended for use from tests.
func VerifyInvariants(t *Tree) error {
	f, err := t.pool.FetchPage(t.rootPN)
	if err != nil {
		return err
	}
	defer t.pool.UnpinPage(t.rootPN, false)
	_, _, ok, err := verifyNode(t, frameToNode(f, t.ly))
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("btree: structural invariant violated")
	}
	return nil
}

func verifyNode(t *Tree, n Node) (lo, hi int64, ok bool, err error) {
	switch n := n.(type) {
	case *internalNode:
		var lowest, highest int64
		for i := int64(0); i <= n.numKeys; i++ {
			childFrame, err := t.pool.FetchPage(n.getPNAt(i))
			if err != nil {
				return -1, -1, false, err
			}
			child := frameToNode(childFrame, t.ly)
			cl, cr, cok, err := verifyNode(t, child)
			t.pool.UnpinPage(childFrame.PageID(), false)
			if err != nil {
				return -1, -1, false, err
			}
			if !cok {
				return -1, -1, false, nil
			}
			if i == 0 {
				lowest = cl
			}
			if i == n.numKeys {
				highest = cr
			}
			if i-1 >= 0 && n.getKeyAt(i-1) > cl {
				return -1, -1, false, nil
			}
			if i < n.numKeys && n.getKeyAt(i) < cr {
				return -1, -1, false, nil
			}
		}
		return lowest, highest, true, nil
	case *leafNode:
		for i := int64(0); i < n.numKeys-1; i++ {
			if n.getKeyAt(i) > n.getKeyAt(i+1) {
				return -1, -1, false, nil
			}
		}
		if n.numKeys == 0 {
			return 0, 0, true, nil
		}
		return n.getKeyAt(0), n.getKeyAt(n.numKeys-1), true, nil
	default:
		return -1, -1, false, errors.New("btree: unknown node type")
	}
}
