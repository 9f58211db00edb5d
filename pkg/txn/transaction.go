// Package txn implements the opaque transaction handle, the per-resource
// lock manager, and the waits-for deadlock detector built around it. Locks
// are taken on pkg/catalog.Index entries, identified by table name and key.
package txn

import (
	"sync"

	"github.com/google/uuid"
)

// Transaction tracks the resources one client currently holds locks on. Each
// client runs at most one Transaction at a time, identified by its uuid.
type Transaction struct {
	clientID        uuid.UUID
	lockedResources map[Resource]LockType
	mtx             sync.RWMutex
}

func (t *Transaction) WLock()   { t.mtx.Lock() }
func (t *Transaction) WUnlock() { t.mtx.Unlock() }
func (t *Transaction) RLock()   { t.mtx.RLock() }
func (t *Transaction) RUnlock() { t.mtx.RUnlock() }

// ClientID returns the transaction's owning client id.
func (t *Transaction) ClientID() uuid.UUID { return t.clientID }

// Resources returns the set of resources this transaction currently holds
// locks on, mapped to the kind of lock held.
func (t *Transaction) Resources() map[Resource]LockType { return t.lockedResources }
