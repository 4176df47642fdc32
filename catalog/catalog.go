// Package catalog implements spec §4.5 and §3's Catalog: page 0,
// reinterpreted as a fixed-size record naming every table, its
// schema, and the pager's next free page. It is the only package that
// understands the catalog's byte layout; everything else addresses
// tables by name through Catalog's methods.
package catalog

import (
	"encoding/binary"

	"lithdb/btree"
	"lithdb/column"
	"lithdb/enginerr"
	"lithdb/pager"
)

const (
	// MaxTables and MaxColumns are the static bounds that let the
	// whole catalog fit in one 4096-byte page (spec §3: "a
	// fixed-capacity record").
	MaxTables  = 8
	MaxColumns = 8

	// MaxNameLen bounds both table and column names.
	MaxNameLen = column.MaxNameLen

	catalogPageNum = uint32(0)

	// On-disk layout, all little-endian.
	columnRecordSize = MaxNameLen + 1 /*type*/ + 4 /*size*/ + 1 /*is_pk*/
	schemaRecordSize = 1 /*in_use*/ + MaxNameLen + 4 /*num_columns*/ +
		MaxColumns*columnRecordSize +
		4 /*row_size*/ + 4 /*root_page_num*/ + 4 /*pk_column*/ + 4 /*next_rowid*/
	catalogHeaderSize = 4 /*num_tables*/ + 4 /*next_free_page*/
)

func init() {
	if catalogHeaderSize+MaxTables*schemaRecordSize > pager.PageSize {
		panic("catalog: MaxTables/MaxColumns too large to fit in one page")
	}
}

// Schema is one table's catalog entry (spec §3 "Schema").
type Schema struct {
	InUse       bool
	Name        string
	NumColumns  int
	Columns     [MaxColumns]column.Column
	RowSize     uint32
	RootPageNum uint32
	// PKColumn is the index of the primary-key column, or -1 if the
	// table has none and uses an auto-increment rowid instead.
	PKColumn  int32
	NextRowID uint32
}

// ColumnList returns the table's in-use columns in declaration order.
func (s *Schema) ColumnList() []column.Column {
	return s.Columns[:s.NumColumns]
}

// HasPrimaryKey reports whether the table has a designated PK column.
func (s *Schema) HasPrimaryKey() bool { return s.PKColumn >= 0 }

// Catalog is the in-memory mirror of page 0.
type Catalog struct {
	pager        *pager.Pager
	NumTables    uint32
	NextFreePage uint32
	Tables       [MaxTables]Schema
}

// Open loads the catalog from page 0, creating an empty one if the
// pager has no pages yet (spec §4.5 / original_source database.c
// db_open).
func Open(p *pager.Pager) (*Catalog, error) {
	c := &Catalog{pager: p}
	// NumPages is read before page 0 is touched here: it counts the
	// file's on-disk pages plus any page a WAL replay has already
	// written into the cache, so a replayed catalog page is loaded even
	// when the main file is still empty on disk. A plain page.Dirty
	// check would misidentify a replayed catalog page as "brand new"
	// and overwrite it (spec §4.7).
	fresh := p.NumPages() == 0
	page, err := p.GetPage(catalogPageNum)
	if err != nil {
		return nil, err
	}
	if fresh {
		c.NextFreePage = 1
		c.save(page)
		return c, nil
	}
	c.load(page)
	return c, nil
}

func (c *Catalog) load(page *pager.Page) {
	buf := page.Data[:]
	c.NumTables = binary.LittleEndian.Uint32(buf[0:4])
	c.NextFreePage = binary.LittleEndian.Uint32(buf[4:8])
	off := catalogHeaderSize
	for i := 0; i < MaxTables; i++ {
		c.Tables[i] = decodeSchema(buf[off : off+schemaRecordSize])
		off += schemaRecordSize
	}
}

func (c *Catalog) save(page *pager.Page) {
	buf := page.Data[:]
	for i := range buf {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], c.NumTables)
	binary.LittleEndian.PutUint32(buf[4:8], c.NextFreePage)
	off := catalogHeaderSize
	for i := 0; i < MaxTables; i++ {
		encodeSchema(&c.Tables[i], buf[off:off+schemaRecordSize])
		off += schemaRecordSize
	}
	page.Dirty = true
}

// Flush persists the in-memory catalog back to page 0.
func (c *Catalog) Flush() error {
	page, err := c.pager.GetPage(catalogPageNum)
	if err != nil {
		return err
	}
	c.save(page)
	return nil
}

func encodeName(dst []byte, name string) {
	for i := range dst {
		dst[i] = 0
	}
	b := []byte(name)
	if len(b) > len(dst)-1 {
		b = b[:len(dst)-1]
	}
	copy(dst, b)
}

func decodeName(src []byte) string {
	n := 0
	for n < len(src) && src[n] != 0 {
		n++
	}
	return string(src[:n])
}

func encodeSchema(s *Schema, dst []byte) {
	if s.InUse {
		dst[0] = 1
	}
	encodeName(dst[1:1+MaxNameLen], s.Name)
	off := 1 + MaxNameLen
	binary.LittleEndian.PutUint32(dst[off:off+4], uint32(s.NumColumns))
	off += 4
	for i := 0; i < MaxColumns; i++ {
		encodeColumn(&s.Columns[i], dst[off:off+columnRecordSize])
		off += columnRecordSize
	}
	binary.LittleEndian.PutUint32(dst[off:off+4], s.RowSize)
	off += 4
	binary.LittleEndian.PutUint32(dst[off:off+4], s.RootPageNum)
	off += 4
	binary.LittleEndian.PutUint32(dst[off:off+4], uint32(s.PKColumn))
	off += 4
	binary.LittleEndian.PutUint32(dst[off:off+4], s.NextRowID)
}

func decodeSchema(src []byte) Schema {
	var s Schema
	s.InUse = src[0] == 1
	s.Name = decodeName(src[1 : 1+MaxNameLen])
	off := 1 + MaxNameLen
	s.NumColumns = int(binary.LittleEndian.Uint32(src[off : off+4]))
	off += 4
	for i := 0; i < MaxColumns; i++ {
		s.Columns[i] = decodeColumn(src[off : off+columnRecordSize])
		off += columnRecordSize
	}
	s.RowSize = binary.LittleEndian.Uint32(src[off : off+4])
	off += 4
	s.RootPageNum = binary.LittleEndian.Uint32(src[off : off+4])
	off += 4
	s.PKColumn = int32(binary.LittleEndian.Uint32(src[off : off+4]))
	off += 4
	s.NextRowID = binary.LittleEndian.Uint32(src[off : off+4])
	return s
}

func encodeColumn(c *column.Column, dst []byte) {
	encodeName(dst[0:MaxNameLen], c.Name)
	dst[MaxNameLen] = byte(c.Type)
	binary.LittleEndian.PutUint32(dst[MaxNameLen+1:MaxNameLen+5], c.Size)
	if c.IsPrimaryKey {
		dst[MaxNameLen+5] = 1
	}
}

func decodeColumn(src []byte) column.Column {
	return column.Column{
		Name:         decodeName(src[0:MaxNameLen]),
		Type:         column.Type(src[MaxNameLen]),
		Size:         binary.LittleEndian.Uint32(src[MaxNameLen+1 : MaxNameLen+5]),
		IsPrimaryKey: src[MaxNameLen+5] == 1,
	}
}

// findSlot returns the index of the table named name, or -1.
func (c *Catalog) findSlot(name string) int {
	for i := 0; i < MaxTables; i++ {
		if c.Tables[i].InUse && c.Tables[i].Name == name {
			return i
		}
	}
	return -1
}

func (c *Catalog) firstFreeSlot() int {
	for i := 0; i < MaxTables; i++ {
		if !c.Tables[i].InUse {
			return i
		}
	}
	return -1
}

// CreateTable reserves a catalog slot for name with numColumns empty
// column descriptors, allocates and initializes its root leaf page,
// and returns the slot for SetColumn to populate (spec §4.5, mirrors
// original_source's db_create_table + schema_add_column).
func (c *Catalog) CreateTable(name string, numColumns int) (*Schema, error) {
	if numColumns <= 0 || numColumns > MaxColumns {
		return nil, enginerr.New(enginerr.KindSchemaConstraint, "table %q: numColumns %d out of range [1,%d]", name, numColumns, MaxColumns)
	}
	if c.findSlot(name) >= 0 {
		return nil, enginerr.New(enginerr.KindTableExists, "table %q already exists", name)
	}
	slot := c.firstFreeSlot()
	if slot < 0 {
		return nil, enginerr.New(enginerr.KindTableCatalogFull, "catalog full (max %d tables)", MaxTables)
	}

	rootPage, err := c.pager.AllocatePage()
	if err != nil {
		return nil, err
	}
	if err := btree.InitLeafRoot(c.pager, rootPage); err != nil {
		return nil, err
	}

	s := &c.Tables[slot]
	*s = Schema{
		InUse:       true,
		Name:        name,
		NumColumns:  numColumns,
		RootPageNum: rootPage,
		PKColumn:    -1,
		NextRowID:   1,
	}
	c.NumTables++
	if rootPage+1 > c.NextFreePage {
		c.NextFreePage = rootPage + 1
	}
	return s, nil
}

// SetColumn fills in column index of table name, validating primary
// key uniqueness and type, then recomputes RowSize and each column's
// Offset (spec §4.5, §3).
func (c *Catalog) SetColumn(name string, index int, col column.Column) error {
	slot := c.findSlot(name)
	if slot < 0 {
		return enginerr.New(enginerr.KindTableNotFound, "table %q not found", name)
	}
	s := &c.Tables[slot]
	if index < 0 || index >= s.NumColumns {
		return enginerr.New(enginerr.KindColumnOutOfBounds, "table %q: column index %d out of bounds (%d columns)", name, index, s.NumColumns)
	}
	if col.IsPrimaryKey {
		if s.PKColumn >= 0 && int(s.PKColumn) != index {
			return enginerr.New(enginerr.KindSchemaConstraint, "table %q: column %q already has primary key %q", name, col.Name, s.Columns[s.PKColumn].Name)
		}
		if col.Type != column.TypeInt32 {
			return enginerr.New(enginerr.KindSchemaConstraint, "table %q: primary key column %q must be INT", name, col.Name)
		}
	}

	switch col.Type {
	case column.TypeInt32:
		col.Size = 4
	case column.TypeText:
		if col.Size == 0 {
			return enginerr.New(enginerr.KindSchemaConstraint, "table %q: TEXT column %q must have size > 0", name, col.Name)
		}
	default:
		return enginerr.New(enginerr.KindSchemaConstraint, "table %q: unsupported column type for %q", name, col.Name)
	}

	s.Columns[index] = col
	if col.IsPrimaryKey {
		s.PKColumn = int32(index)
	}

	var offset uint32
	for i := 0; i < s.NumColumns; i++ {
		s.Columns[i].Offset = offset
		offset += s.Columns[i].Size
	}
	s.RowSize = offset
	return nil
}

// GetTable returns the schema for name, or TableNotFound.
func (c *Catalog) GetTable(name string) (*Schema, error) {
	slot := c.findSlot(name)
	if slot < 0 {
		return nil, enginerr.New(enginerr.KindTableNotFound, "table %q not found", name)
	}
	return &c.Tables[slot], nil
}

// TableNames lists every in-use table (for the REPL's .tables).
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, c.NumTables)
	for i := 0; i < MaxTables; i++ {
		if c.Tables[i].InUse {
			names = append(names, c.Tables[i].Name)
		}
	}
	return names
}

// AllocatePage hands out a fresh page from the pager (spec §4.1). The
// B+ tree does not go through it: leaf and root splits allocate their
// pages from the pager directly.
func (c *Catalog) AllocatePage() (uint32, error) {
	return c.pager.AllocatePage()
}
