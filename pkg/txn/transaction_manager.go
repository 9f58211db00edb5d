package txn

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"dinokv/pkg/catalog"
)

// TransactionManager tracks every client's running transaction and
// arbitrates locking across the catalog.Index entries they touch. Each
// client runs at most one transaction at a time, keyed by its uuid.
type TransactionManager struct {
	resourceLockManager *ResourceLockManager
	waitsForGraph       *WaitsForGraph
	transactions        map[uuid.UUID]*Transaction
	mtx                 sync.RWMutex
}

func NewTransactionManager(lm *ResourceLockManager) *TransactionManager {
	return &TransactionManager{
		resourceLockManager: lm,
		waitsForGraph:       NewWaitsForGraph(),
		transactions:        make(map[uuid.UUID]*Transaction),
	}
}

func (tm *TransactionManager) ResourceLockManager() *ResourceLockManager { return tm.resourceLockManager }

// GetTransaction returns the client's running transaction, if any.
func (tm *TransactionManager) GetTransaction(clientID uuid.UUID) (*Transaction, bool) {
	tm.mtx.RLock()
	defer tm.mtx.RUnlock()
	t, found := tm.transactions[clientID]
	return t, found
}

// Begin starts a new transaction for clientID. Errors if one is already
// running for that client.
func (tm *TransactionManager) Begin(clientID uuid.UUID) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	if _, found := tm.transactions[clientID]; found {
		return errors.New("txn: transaction already began")
	}
	tm.transactions[clientID] = &Transaction{clientID: clientID, lockedResources: make(map[Resource]LockType)}
	return nil
}

// Lock acquires a lock of the given kind on table's resourceKey entry on
// behalf of clientID's transaction. Returns an error if doing so would
// create a deadlock, or if it would upgrade an existing read lock to a
// write lock.
func (tm *TransactionManager) Lock(clientID uuid.UUID, table catalog.Index, resourceKey int64, lType LockType) error {
	transaction, found := tm.GetTransaction(clientID)
	if !found {
		return errors.New("txn: no such transaction")
	}
	resource := Resource{TableName: table.Name(), Key: resourceKey}
	possibleConflicts := tm.conflictingTransactions(resource, lType)

	transaction.RLock()
	curr, locked := transaction.Resources()[resource]
	if locked {
		transaction.RUnlock()
		if curr == RLockType && lType == WLockType {
			return errors.New("txn: cannot upgrade a read lock to a write lock")
		}
		return nil
	}

	for _, t := range possibleConflicts {
		tm.waitsForGraph.AddEdge(transaction, t)
		defer tm.waitsForGraph.RemoveEdge(transaction, t)
	}
	deadlocked := tm.waitsForGraph.DetectCycle()
	transaction.RUnlock()
	if deadlocked {
		return errors.New("txn: deadlock detected")
	}

	if err := tm.resourceLockManager.Lock(resource, lType); err != nil {
		return err
	}
	transaction.WLock()
	defer transaction.WUnlock()
	transaction.Resources()[resource] = lType
	return nil
}

// Unlock releases a lock clientID's transaction holds on table's
// resourceKey entry.
func (tm *TransactionManager) Unlock(clientID uuid.UUID, table catalog.Index, resourceKey int64, lType LockType) error {
	transaction, found := tm.GetTransaction(clientID)
	if !found {
		return errors.New("txn: no such transaction")
	}
	transaction.WLock()
	defer transaction.WUnlock()
	resource := Resource{TableName: table.Name(), Key: resourceKey}
	held, found := transaction.lockedResources[resource]
	if !found || held != lType {
		return errors.New("txn: invalid unlock request")
	}
	delete(transaction.lockedResources, resource)
	return tm.resourceLockManager.Unlock(resource, lType)
}

// Commit releases every resource clientID's transaction holds and forgets
// the transaction.
func (tm *TransactionManager) Commit(clientID uuid.UUID) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	t, found := tm.transactions[clientID]
	if !found {
		return errors.New("txn: no transaction running for this client")
	}
	t.RLock()
	defer t.RUnlock()
	for r, lType := range t.lockedResources {
		if err := tm.resourceLockManager.Unlock(r, lType); err != nil {
			return err
		}
	}
	delete(tm.transactions, clientID)
	return nil
}

// conflictingTransactions returns every running transaction that already
// holds a lock on r that conflicts with acquiring lType.
func (tm *TransactionManager) conflictingTransactions(r Resource, lType LockType) []*Transaction {
	tm.mtx.RLock()
	defer tm.mtx.RUnlock()
	var conflicts []*Transaction
	for _, t := range tm.transactions {
		t.RLock()
		for held, heldType := range t.lockedResources {
			if held == r && (heldType == WLockType || lType == WLockType) {
				conflicts = append(conflicts, t)
				break
			}
		}
		t.RUnlock()
	}
	return conflicts
}
