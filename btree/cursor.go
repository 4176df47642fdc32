package btree

import "lithdb/pager"

// Cursor is a positional iterator across leaves (spec §4.4): a
// (page, cell_num) pair plus an end-of-table flag. It is always
// re-resolved against the pager rather than caching node structs, so
// it stays valid across inserts that may reallocate pages.
type Cursor struct {
	p          *pager.Pager
	PageNum    uint32
	CellNum    int
	EndOfTable bool
}

// Valid reports whether the cursor currently names an existing cell.
func (c *Cursor) Valid() bool {
	if c.EndOfTable {
		return false
	}
	page, err := c.p.GetPage(c.PageNum)
	if err != nil {
		return false
	}
	return uint32(c.CellNum) < leafNumCells(page.Data[:])
}

// Key returns the key at the cursor. Only call when Valid().
func (c *Cursor) Key() uint32 {
	page, _ := c.p.GetPage(c.PageNum)
	return leafKeyAt(page.Data[:], c.CellNum)
}

// Value returns the raw MaxRowSize-byte slot at the cursor. Only call
// when Valid(). Callers slice it down to the table's actual RowSize.
func (c *Cursor) Value() []byte {
	page, _ := c.p.GetPage(c.PageNum)
	return leafValueAt(page.Data[:], c.CellNum)
}

// Advance increments CellNum; once it passes NumCells it follows
// next_leaf, and sets EndOfTable once next_leaf is 0 (spec §4.4).
func (c *Cursor) Advance() error {
	page, err := c.p.GetPage(c.PageNum)
	if err != nil {
		return err
	}
	buf := page.Data[:]
	c.CellNum++
	if uint32(c.CellNum) < leafNumCells(buf) {
		return nil
	}
	next := leafNextLeaf(buf)
	if next == 0 {
		c.EndOfTable = true
		return nil
	}
	c.PageNum = next
	c.CellNum = 0
	nextPage, err := c.p.GetPage(next)
	if err != nil {
		return err
	}
	if leafNumCells(nextPage.Data[:]) == 0 {
		c.EndOfTable = true
	}
	return nil
}

// TableStart descends leftmost children until a leaf, positioning at
// cell 0 (spec §4.4 table_start).
func TableStart(p *pager.Pager, rootPage uint32) (*Cursor, error) {
	pageNum := rootPage
	for {
		page, err := p.GetPage(pageNum)
		if err != nil {
			return nil, err
		}
		buf := page.Data[:]
		if getNodeType(buf) == NodeLeaf {
			c := &Cursor{p: p, PageNum: pageNum, CellNum: 0}
			c.EndOfTable = leafNumCells(buf) == 0
			return c, nil
		}
		if internalNumKeys(buf) == 0 {
			pageNum = internalRightChild(buf)
		} else {
			pageNum = internalChildAt(buf, 0)
		}
	}
}
