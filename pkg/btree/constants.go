package btree

import "encoding/binary"

// entrySize is the on-page size of one (key, value) pair: two varint slots.
const entrySize int64 = binary.MaxVarintLen64 * 2

// Common node header layout, shared by leaf and internal pages.
const (
	nodeTypeOffset int64 = 0
	nodeTypeSize   int64 = 1
	numKeysOffset  int64 = nodeTypeOffset + nodeTypeSize
	numKeysSize    int64 = binary.MaxVarintLen64
	nodeHeaderSize int64 = nodeTypeSize + numKeysSize
)

// Leaf page layout.
const (
	rightSiblingOffset int64 = nodeHeaderSize
	rightSiblingSize   int64 = binary.MaxVarintLen64
	leafHeaderSize     int64 = nodeHeaderSize + rightSiblingSize
)

// Internal page layout. An internal node with n keys (slots 0 to n-1) has
// n+1 children; key i separates child i from child i+1.
const (
	keySize    int64 = binary.MaxVarintLen64
	pnSize     int64 = binary.MaxVarintLen64
	keysOffset int64 = nodeHeaderSize
)

// layout holds the page-size-dependent fanout numbers, computed once by
// newLayout so the B+Tree can run against any buffer pool page size.
type layout struct {
	pageSize        int64
	entriesPerLeaf  int64
	keysPerInternal int64
	keysSize        int64
	pnsOffset       int64
}

func newLayout(pageSize int64) layout {
	entriesPerLeaf := (pageSize-leafHeaderSize)/entrySize - 1
	ptrSpace := pageSize - nodeHeaderSize - keySize
	keysPerInternal := ptrSpace/(keySize+pnSize) - 1
	keysSize := keySize * (keysPerInternal + 1)
	return layout{
		pageSize:        pageSize,
		entriesPerLeaf:  entriesPerLeaf,
		keysPerInternal: keysPerInternal,
		keysSize:        keysSize,
		pnsOffset:       keysOffset + keysSize,
	}
}
