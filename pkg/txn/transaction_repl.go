package txn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"dinokv/pkg/catalog"
	"dinokv/pkg/repl"
)

// Repl builds a repl.REPL that wraps catalog's command handlers with
// per-client transaction locking: find takes a read lock, select takes no
// lock, insert/update/delete take a write lock, and a "transaction"/"lock"
// command pair exposes tm's Begin/Commit/Lock directly. Grounded in the
// teacher's concurrency.TransactionREPL, which wraps database's handlers
// the same way.
func Repl(c *catalog.Catalog, tm *TransactionManager) *repl.REPL {
	r := repl.NewRepl()

	r.AddCommand("create", func(payload string, _ *repl.REPLConfig) (string, error) {
		return catalog.HandleCreateTable(c, payload)
	}, "Create a table. usage: create <btree|hash> table <table>")

	r.AddCommand("find", func(payload string, cfg *repl.REPLConfig) (string, error) {
		return handleFind(c, tm, payload, cfg.ClientID())
	}, "Find an element. usage: find <key> from <table>")

	r.AddCommand("insert", func(payload string, cfg *repl.REPLConfig) (string, error) {
		return "", handleInsert(c, tm, payload, cfg.ClientID())
	}, "Insert an element. usage: insert <key> <value> into <table>")

	r.AddCommand("update", func(payload string, cfg *repl.REPLConfig) (string, error) {
		return "", handleUpdate(c, tm, payload, cfg.ClientID())
	}, "Update an element. usage: update <table> <key> <value>")

	r.AddCommand("delete", func(payload string, cfg *repl.REPLConfig) (string, error) {
		return "", handleDelete(c, tm, payload, cfg.ClientID())
	}, "Delete an element. usage: delete <key> from <table>")

	r.AddCommand("select", func(payload string, _ *repl.REPLConfig) (string, error) {
		// Select takes no lock: it may return an inconsistent snapshot under
		// concurrent writers.
		return catalog.HandleSelect(c, payload)
	}, "Select elements from a table. usage: select from <table>")

	r.AddCommand("transaction", func(payload string, cfg *repl.REPLConfig) (string, error) {
		return "", handleTransaction(tm, payload, cfg.ClientID())
	}, "Begin or commit a transaction. usage: transaction <begin|commit>")

	r.AddCommand("lock", func(payload string, cfg *repl.REPLConfig) (string, error) {
		return "", handleLock(c, tm, payload, cfg.ClientID())
	}, "Grab a write lock on a resource. usage: lock <table> <key>")

	r.AddCommand("pretty", func(payload string, _ *repl.REPLConfig) (string, error) {
		return catalog.HandlePretty(c, payload)
	}, "Print out a table's internal page layout. usage: pretty from <table>")

	return r
}

func handleTransaction(tm *TransactionManager, payload string, clientID uuid.UUID) error {
	fields := strings.Fields(payload)
	if len(fields) != 2 || (fields[1] != "begin" && fields[1] != "commit") {
		return errors.New("usage: transaction <begin|commit>")
	}
	if fields[1] == "begin" {
		return tm.Begin(clientID)
	}
	return tm.Commit(clientID)
}

func handleFind(c *catalog.Catalog, tm *TransactionManager, payload string, clientID uuid.UUID) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 4 || fields[2] != "from" {
		return "", fmt.Errorf("usage: find <key> from <table>")
	}
	key, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", fmt.Errorf("find error: %w", err)
	}
	table, err := c.OpenIndex(fields[3])
	if err != nil {
		return "", fmt.Errorf("find error: %w", err)
	}
	if err := tm.Lock(clientID, table, int64(key), RLockType); err != nil {
		return "", fmt.Errorf("find error: %w", err)
	}
	return catalog.HandleFind(c, payload)
}

func handleInsert(c *catalog.Catalog, tm *TransactionManager, payload string, clientID uuid.UUID) error {
	fields := strings.Fields(payload)
	if len(fields) != 5 || fields[3] != "into" {
		return fmt.Errorf("usage: insert <key> <value> into <table>")
	}
	key, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	table, err := c.OpenIndex(fields[4])
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	if err := tm.Lock(clientID, table, int64(key), WLockType); err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return catalog.HandleInsert(c, payload)
}

func handleUpdate(c *catalog.Catalog, tm *TransactionManager, payload string, clientID uuid.UUID) error {
	fields := strings.Fields(payload)
	if len(fields) != 4 {
		return fmt.Errorf("usage: update <table> <key> <value>")
	}
	key, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	table, err := c.OpenIndex(fields[1])
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	if err := tm.Lock(clientID, table, int64(key), WLockType); err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	return catalog.HandleUpdate(c, payload)
}

func handleDelete(c *catalog.Catalog, tm *TransactionManager, payload string, clientID uuid.UUID) error {
	fields := strings.Fields(payload)
	if len(fields) != 4 || fields[2] != "from" {
		return fmt.Errorf("usage: delete <key> from <table>")
	}
	key, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	table, err := c.OpenIndex(fields[3])
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	if err := tm.Lock(clientID, table, int64(key), WLockType); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return catalog.HandleDelete(c, payload)
}

func handleLock(c *catalog.Catalog, tm *TransactionManager, payload string, clientID uuid.UUID) error {
	fields := strings.Fields(payload)
	if len(fields) != 3 {
		return fmt.Errorf("usage: lock <table> <key>")
	}
	table, err := c.OpenIndex(fields[1])
	if err != nil {
		return fmt.Errorf("lock error: %w", err)
	}
	key, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("lock error: %w", err)
	}
	if err := tm.Lock(clientID, table, int64(key), WLockType); err != nil {
		return fmt.Errorf("lock error: %w", err)
	}
	return nil
}
