package catalog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"dinokv/pkg/entry"
	"dinokv/pkg/repl"
)

// Repl builds a repl.REPL exposing create/find/insert/update/delete/select/
// pretty commands over c.
func Repl(c *Catalog) *repl.REPL {
	r := repl.NewRepl()

	r.AddCommand("create", func(payload string, _ *repl.REPLConfig) (string, error) {
		return HandleCreateTable(c, payload)
	}, "Create a table. usage: create <btree|hash> table <table>")

	r.AddCommand("find", func(payload string, _ *repl.REPLConfig) (string, error) {
		return HandleFind(c, payload)
	}, "Find an element. usage: find <key> from <table>")

	r.AddCommand("insert", func(payload string, _ *repl.REPLConfig) (string, error) {
		return "", HandleInsert(c, payload)
	}, "Insert an element. usage: insert <key> <value> into <table>")

	r.AddCommand("update", func(payload string, _ *repl.REPLConfig) (string, error) {
		return "", HandleUpdate(c, payload)
	}, "Update an element. usage: update <table> <key> <value>")

	r.AddCommand("delete", func(payload string, _ *repl.REPLConfig) (string, error) {
		return "", HandleDelete(c, payload)
	}, "Delete an element. usage: delete <key> from <table>")

	r.AddCommand("select", func(payload string, _ *repl.REPLConfig) (string, error) {
		return HandleSelect(c, payload)
	}, "Select elements from a table. usage: select from <table>")

	r.AddCommand("pretty", func(payload string, _ *repl.REPLConfig) (string, error) {
		return HandlePretty(c, payload)
	}, "Print out a table's internal page layout. usage: pretty from <table>")

	r.AddCommand("tables", func(payload string, _ *repl.REPLConfig) (string, error) {
		return strings.Join(c.Tables(), "\n"), nil
	}, "List every registered table. usage: tables")

	return r
}

// HandleCreateTable implements the "create" REPL command: create <btree|hash> table <table>.
func HandleCreateTable(c *Catalog, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 4 || fields[2] != "table" || (fields[1] != "btree" && fields[1] != "hash") {
		return "", fmt.Errorf("usage: create <btree|hash> table <table>")
	}
	var kind Kind
	switch fields[1] {
	case "btree":
		kind = BTreeKind
	case "hash":
		kind = HashKind
	}
	tableName := fields[3]
	if _, err := c.CreateIndex(tableName, kind); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s table %s created.\n", fields[1], tableName), nil
}

// HandleFind implements the "find" REPL command: find <key> from <table>.
func HandleFind(c *Catalog, payload string) (string, error) {
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
	e, err := table.Get(int64(key))
	if err != nil {
		return "", fmt.Errorf("find error: %w", err)
	}
	return fmt.Sprintf("found entry: (%d, %d)\n", e.Key, e.Value), nil
}

// HandleInsert implements the "insert" REPL command: insert <key> <value> into <table>.
func HandleInsert(c *Catalog, payload string) error {
	fields := strings.Fields(payload)
	if len(fields) != 5 || fields[3] != "into" {
		return fmt.Errorf("usage: insert <key> <value> into <table>")
	}
	key, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	value, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	table, err := c.OpenIndex(fields[4])
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	if err := table.Insert(int64(key), int64(value)); err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return nil
}

// HandleUpdate implements the "update" REPL command: update <table> <key> <value>.
func HandleUpdate(c *Catalog, payload string) error {
	fields := strings.Fields(payload)
	if len(fields) != 4 {
		return fmt.Errorf("usage: update <table> <key> <value>")
	}
	key, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	value, err := strconv.Atoi(fields[3])
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	table, err := c.OpenIndex(fields[1])
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	if err := table.Update(int64(key), int64(value)); err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	return nil
}

// HandleDelete implements the "delete" REPL command: delete <key> from <table>.
func HandleDelete(c *Catalog, payload string) error {
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
	if err := table.Delete(int64(key)); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

// HandleSelect implements the "select" REPL command: select from <table>.
func HandleSelect(c *Catalog, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 3 || fields[1] != "from" {
		return "", fmt.Errorf("usage: select from <table>")
	}
	table, err := c.OpenIndex(fields[2])
	if err != nil {
		return "", fmt.Errorf("select error: %w", err)
	}
	results, err := table.Select()
	if err != nil {
		return "", err
	}
	w := new(strings.Builder)
	printResults(results, w)
	return w.String(), nil
}

// HandlePretty implements the "pretty" REPL command: pretty from <table>.
func HandlePretty(c *Catalog, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 3 || fields[1] != "from" {
		return "", fmt.Errorf("usage: pretty from <table>")
	}
	table, err := c.OpenIndex(fields[2])
	if err != nil {
		return "", fmt.Errorf("pretty error: %w", err)
	}
	w := new(strings.Builder)
	table.Print(w)
	return w.String(), nil
}

func printResults(entries []entry.Entry, w io.Writer) {
	for _, e := range entries {
		fmt.Fprintf(w, "(%v, %v)\n", e.Key, e.Value)
	}
}
