// Package storageerr collects the sentinel errors shared across the storage
// engine core, so callers can branch on failure kind with errors.Is instead
// of string matching.
package storageerr

import "errors"

var (
	// ErrPoolExhausted is returned by NewPage/FetchPage when every frame in
	// the buffer pool is pinned and no victim can be found.
	ErrPoolExhausted = errors.New("buffer pool: no frame available")

	// ErrNotResident is returned by UnpinPage/FlushPage when the requested
	// page is not currently resident in the pool.
	ErrNotResident = errors.New("buffer pool: page not resident")

	// ErrPinned is returned by DeletePage when the page is resident but
	// still pinned by a caller.
	ErrPinned = errors.New("buffer pool: page is pinned")

	// ErrNotPinned is returned by UnpinPage when the page's pin count is
	// already zero.
	ErrNotPinned = errors.New("buffer pool: page is not pinned")

	// ErrDuplicateKey is returned by an index's Insert when the key already
	// exists.
	ErrDuplicateKey = errors.New("index: duplicate key")

	// ErrKeyNotFound names a missing-key failure. The indexes in this module
	// report missing keys with their own errors and do not return it.
	ErrKeyNotFound = errors.New("index: key not found")

	// ErrInvalidArgument names an INVALID page id or otherwise malformed
	// argument. No package in this module returns it.
	ErrInvalidArgument = errors.New("storage: invalid argument")
)
