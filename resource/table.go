package resource

import (
	"fmt"
	"path"
	"sort"
	"sync"
)

// Row is one record, aligned with its table's schema columns.
type Row []any

// Catalog is a concurrency-safe set of named in-memory tables.
type Catalog struct {
	name   string
	mu     sync.RWMutex
	tables map[string]*tableData
}

type tableData struct {
	schema *Schema
	rows   []Row
}

// NewCatalog creates an empty catalog.
func NewCatalog(name string) *Catalog {
	return &Catalog{name: name, tables: make(map[string]*tableData)}
}

// Name returns the catalog name.
func (c *Catalog) Name() string { return c.name }

// Table returns a handle for the named table; the table need not exist yet.
func (c *Catalog) Table(name string) *Table {
	return &Table{catalog: c, name: name}
}

// Put creates or replaces a table and returns its handle.
func (c *Catalog) Put(name string, schema *Schema, rows []Row) *Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[name] = &tableData{schema: schema.Clone(), rows: cloneRows(rows)}
	return c.Table(name)
}

// Append adds rows to an existing table.
func (c *Catalog) Append(name string, rows []Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[name]
	if !ok {
		return fmt.Errorf("table %q does not exist", name)
	}
	t.rows = append(t.rows, cloneRows(rows)...)
	return nil
}

// Truncate removes every row of a table, keeping its schema.
func (c *Catalog) Truncate(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[name]
	if !ok {
		return fmt.Errorf("table %q does not exist", name)
	}
	t.rows = nil
	return nil
}

// Get returns copies of a table's schema and rows.
func (c *Catalog) Get(name string) (*Schema, []Row, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	if !ok {
		return nil, nil, false
	}
	return t.schema.Clone(), cloneRows(t.rows), true
}

// Exists reports whether the named table exists.
func (c *Catalog) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tables[name]
	return ok
}

// Delete drops a table and reports whether it existed.
func (c *Catalog) Delete(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tables[name]
	delete(c.tables, name)
	return ok
}

// Names returns table names matching pattern (path.Match syntax; empty
// matches all) in sorted order.
func (c *Catalog) Names(pattern string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		if pattern != "" {
			ok, err := path.Match(pattern, name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Catalog) schemaOf(name string) *Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.tables[name]; ok {
		return t.schema.Clone()
	}
	return nil
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = append(Row(nil), r...)
	}
	return out
}

// Table is a handle to a table in a Catalog.
type Table struct {
	catalog *Catalog
	name    string
}

// Key implements Resource.
func (t *Table) Key() string { return "table:" + t.catalog.name + "/" + t.name }

// Name implements Resource.
func (t *Table) Name() string { return t.name }

// Schema implements Resource. A table that does not exist has no schema.
func (t *Table) Schema() *Schema { return t.catalog.schemaOf(t.name) }

// Relocate implements Resource.
func (t *Table) Relocate(name string) Resource { return t.catalog.Table(name) }

// Catalog returns the catalog holding the table.
func (t *Table) Catalog() *Catalog { return t.catalog }

// Rows returns a copy of the table's rows.
func (t *Table) Rows() []Row {
	_, rows, _ := t.catalog.Get(t.name)
	return rows
}

// Records returns the rows as column-name maps.
func (t *Table) Records() []map[string]any {
	schema, rows, _ := t.catalog.Get(t.name)
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		m := make(map[string]any, schema.ColumnCount())
		for j, col := range schema.Names() {
			if j < len(r) {
				m[col] = r[j]
			}
		}
		out[i] = m
	}
	return out
}

func (t *Table) String() string { return t.Key() }
