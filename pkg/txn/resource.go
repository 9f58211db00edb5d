package txn

// LockType indicates whether a lock is a reader or a writer lock.
type LockType int

const (
	RLockType LockType = iota
	WLockType
)

// Resource identifies a single entry in a catalog.Index, uniquely, by the
// index's name and the entry's key.
type Resource struct {
	TableName string
	Key       int64
}
