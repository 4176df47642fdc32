// Package engine ties the pager, catalog, B+ tree and optional WAL
// into the operations a consuming layer (the REPL in cmd/lithdb, or an
// embedder) actually calls: open a database file, create tables,
// insert and look up and scan rows. It is the boundary spec §7
// describes: every recoverable failure below surfaces as
// *enginerr.Error, and every condition spec marks as process-fatal
// surfaces as *enginerr.Fatal instead of being handled here.
package engine

import (
	"lithdb/btree"
	"lithdb/catalog"
	"lithdb/column"
	"lithdb/config"
	"lithdb/enginelog"
	"lithdb/enginerr"
	"lithdb/pager"
	"lithdb/row"
	"lithdb/wal"
)

// ColumnSpec describes one column of a table to be created, in the
// order CreateTable should assign them.
type ColumnSpec struct {
	Name         string
	Type         column.Type
	Size         uint32
	IsPrimaryKey bool
}

// Engine is a single open database: one pager, one catalog, and an
// optional WAL, all addressing the same file (spec §3, §4.7).
type Engine struct {
	opts    config.Options
	pager   *pager.Pager
	catalog *catalog.Catalog
	wal     *wal.Log
}

// Open opens (or creates) the database file named by opts.Path,
// replaying its WAL first if one is configured (spec §4.7: "on
// startup, before normal operation, every WAL record is replayed").
func Open(opts config.Options) (*Engine, error) {
	p, err := pager.Open(opts.Path, uint32(opts.PageCacheLimit))
	if err != nil {
		return nil, err
	}

	e := &Engine{opts: opts, pager: p}

	if opts.WALEnabled {
		w, err := wal.Open(opts.WALPath)
		if err != nil {
			p.Close()
			return nil, err
		}
		if _, err := w.Replay(p); err != nil {
			w.Close()
			p.Close()
			return nil, err
		}
		e.wal = w
	}

	cat, err := catalog.Open(p)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.catalog = cat

	if err := e.checkpoint(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// Close flushes the catalog and pager and closes the WAL, in that
// order, releasing resources on every path.
func (e *Engine) Close() error {
	var first error
	if e.catalog != nil {
		if err := e.catalog.Flush(); err != nil && first == nil {
			first = err
		}
	}
	if e.pager != nil {
		if err := e.pager.Close(); err != nil && first == nil {
			first = err
		}
	}
	if e.wal != nil {
		if err := e.wal.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// checkpoint physically logs every currently dirty page to the WAL
// (if enabled) before it can be flushed to the main file — the
// write-ahead half of spec §4.7. It is called after every mutating
// operation; there is no automatic truncation of applied records
// (spec §9's known limitation: "no checksums, no checkpointing").
func (e *Engine) checkpoint() error {
	if e.wal == nil {
		return nil
	}
	for _, pageNum := range e.pager.DirtyPageNums() {
		page, err := e.pager.GetPage(pageNum)
		if err != nil {
			return err
		}
		if err := e.wal.LogWrite(pageNum, 0, page.Data[:]); err != nil {
			return err
		}
	}
	return nil
}

// CreateTable defines a new table with the given columns, in order
// (spec §3, §4.5). At most one column may set IsPrimaryKey. If a column
// or the resulting row size is rejected, the table is removed from the
// catalog again; the root page it was given stays allocated, as the
// pager has no free list.
func (e *Engine) CreateTable(name string, cols []ColumnSpec) error {
	schema, err := e.catalog.CreateTable(name, len(cols))
	if err != nil {
		return err
	}
	drop := func(err error) error {
		*schema = catalog.Schema{}
		e.catalog.NumTables--
		return err
	}
	for i, cs := range cols {
		if err := e.catalog.SetColumn(name, i, column.Column{
			Name:         cs.Name,
			Type:         cs.Type,
			Size:         cs.Size,
			IsPrimaryKey: cs.IsPrimaryKey,
		}); err != nil {
			return drop(err)
		}
	}
	if schema.RowSize > btree.MaxRowSize {
		return drop(enginerr.New(enginerr.KindSchemaConstraint, "table %q: row size %d exceeds maximum %d", name, schema.RowSize, btree.MaxRowSize))
	}
	if err := e.catalog.Flush(); err != nil {
		return err
	}
	return e.checkpoint()
}

// Insert serializes values per table's schema and inserts them into
// its B+ tree, keyed by the primary key column if one exists or by an
// auto-incrementing rowid otherwise (spec §4.6).
func (e *Engine) Insert(table string, values []row.Value) error {
	schema, err := e.catalog.GetTable(table)
	if err != nil {
		return err
	}
	buf, err := row.Serialize(schema, values)
	if err != nil {
		return err
	}
	key := row.PrimaryKeyOf(schema, values, schema.NextRowID)
	if err := btree.Insert(e.pager, schema.RootPageNum, key, buf); err != nil {
		return err
	}
	if !schema.HasPrimaryKey() {
		schema.NextRowID++
	} else if key >= schema.NextRowID {
		schema.NextRowID = key + 1
	}
	if err := e.catalog.Flush(); err != nil {
		return err
	}
	enginelog.WithField("table", table).Infof("inserted row with key %d", key)
	return e.checkpoint()
}

// Find looks up a single row by key, reporting found=false (not an
// error) when it does not exist.
func (e *Engine) Find(table string, key uint32) (values []row.Value, found bool, err error) {
	schema, err := e.catalog.GetTable(table)
	if err != nil {
		return nil, false, err
	}
	cur, err := btree.Search(e.pager, schema.RootPageNum, key)
	if err != nil {
		return nil, false, err
	}
	if !cur.Valid() || cur.Key() != key {
		return nil, false, nil
	}
	raw := cur.Value()[:schema.RowSize]
	return row.Deserialize(schema, raw), true, nil
}

// Scan visits every row of table in ascending key order (spec §4.4
// table_start + cursor_advance).
func (e *Engine) Scan(table string, visit func(key uint32, values []row.Value) error) error {
	schema, err := e.catalog.GetTable(table)
	if err != nil {
		return err
	}
	cur, err := btree.TableStart(e.pager, schema.RootPageNum)
	if err != nil {
		return err
	}
	for !cur.EndOfTable {
		if cur.Valid() {
			raw := cur.Value()[:schema.RowSize]
			if err := visit(cur.Key(), row.Deserialize(schema, raw)); err != nil {
				return err
			}
		}
		if err := cur.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// RangeScan visits every row whose key lies in [lo, hi], stopping
// early once keys exceed hi (spec §4.4, supplemented per §8 S5 and the
// REPL's `between` clause).
func (e *Engine) RangeScan(table string, lo, hi uint32, visit func(key uint32, values []row.Value) error) error {
	schema, err := e.catalog.GetTable(table)
	if err != nil {
		return err
	}
	_, err = btree.RangeScan(e.pager, schema.RootPageNum, lo, hi, func(key uint32, raw []byte) error {
		return visit(key, row.Deserialize(schema, raw[:schema.RowSize]))
	})
	return err
}

// TableNames lists every table currently defined.
func (e *Engine) TableNames() []string { return e.catalog.TableNames() }

// Schema exposes a table's schema for callers (e.g. the REPL) that
// need column names/types without re-deriving them.
func (e *Engine) Schema(table string) (*catalog.Schema, error) {
	return e.catalog.GetTable(table)
}

// DumpTree renders table's B+ tree structure (supplemented `.btree`
// command, spec §8/§12-equivalent feature grounded on
// original_source's print_tree).
func (e *Engine) DumpTree(table string) (string, error) {
	schema, err := e.catalog.GetTable(table)
	if err != nil {
		return "", err
	}
	return btree.DumpTree(e.pager, schema.RootPageNum, 0)
}
