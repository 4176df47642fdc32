// Package btree implements spec §4.2–§4.4: the byte-exact node
// layout, the B+ tree (search, insert, leaf split, new-root), and the
// cursor used for point and range access. Node layout is authoritative
// on-disk format; all accessors are pure functions over a page buffer
// (spec §4.2, §9 "self-referential structure" — never hold a typed
// reference across a call that may allocate a page; re-resolve
// page_num -> buffer at each accessor call).
package btree

import (
	"encoding/binary"

	"lithdb/enginerr"
	"lithdb/pager"
)

// NodeType tags a page's interpretation (spec §3).
type NodeType uint8

const (
	NodeLeaf     NodeType = 1
	NodeInternal NodeType = 2
)

const (
	// KeySize is the width of a B+ tree key (spec: "unsigned 32-bit key").
	KeySize = 4

	// MaxRowSize bounds every table's RowSize so a leaf cell's value
	// slot (LEAF_CELL_SIZE) is a single compile-time constant shared
	// by every table in the database (spec §4.2: "LEAF_CELL_SIZE is
	// fixed per compilation"). engine.CreateTable rejects tables whose
	// schema needs more than this.
	MaxRowSize = 128

	// Common header: type(1) + is_root(1) + parent(4).
	commonHeaderSize = 1 + 1 + 4
	typeOffset       = 0
	isRootOffset     = 1
	parentOffset     = 2

	// Leaf header: common + num_cells(4) + next_leaf(4).
	leafNumCellsOffset = commonHeaderSize
	leafNextLeafOffset = commonHeaderSize + 4
	leafHeaderSize     = commonHeaderSize + 4 + 4

	// Internal header: common + num_keys(4) + right_child(4).
	internalNumKeysOffset   = commonHeaderSize
	internalRightChildOffset = commonHeaderSize + 4
	internalHeaderSize      = commonHeaderSize + 4 + 4

	leafCellSize     = KeySize + MaxRowSize
	internalCellSize = 4 /*child*/ + 4 /*key*/
)

// LeafMax and InternalMax are derived so header+cells fit in one page
// (spec §3 invariant); splits occur strictly before exceeding these.
var (
	LeafMax     = (pager.PageSize - leafHeaderSize) / leafCellSize
	InternalMax = (pager.PageSize - internalHeaderSize) / internalCellSize
)

// --- common header accessors ---

func getNodeType(buf []byte) NodeType { return NodeType(buf[typeOffset]) }
func setNodeType(buf []byte, t NodeType) { buf[typeOffset] = byte(t) }

func isRoot(buf []byte) bool { return buf[isRootOffset] == 1 }
func setIsRoot(buf []byte, v bool) {
	if v {
		buf[isRootOffset] = 1
	} else {
		buf[isRootOffset] = 0
	}
}

func parentPage(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[parentOffset : parentOffset+4])
}
func setParentPage(buf []byte, p uint32) {
	binary.LittleEndian.PutUint32(buf[parentOffset:parentOffset+4], p)
}

// --- leaf accessors ---

func leafNumCells(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[leafNumCellsOffset : leafNumCellsOffset+4])
}
func setLeafNumCells(buf []byte, n uint32) {
	binary.LittleEndian.PutUint32(buf[leafNumCellsOffset:leafNumCellsOffset+4], n)
}

func leafNextLeaf(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[leafNextLeafOffset : leafNextLeafOffset+4])
}
func setLeafNextLeaf(buf []byte, n uint32) {
	binary.LittleEndian.PutUint32(buf[leafNextLeafOffset:leafNextLeafOffset+4], n)
}

func leafCellOffset(i int) int { return leafHeaderSize + i*leafCellSize }

func leafKeyAt(buf []byte, i int) uint32 {
	off := leafCellOffset(i)
	return binary.LittleEndian.Uint32(buf[off : off+KeySize])
}
func setLeafKeyAt(buf []byte, i int, key uint32) {
	off := leafCellOffset(i)
	binary.LittleEndian.PutUint32(buf[off:off+KeySize], key)
}

// leafValueAt returns the full MaxRowSize value slot at index i. The
// caller (row package) knows the table's actual RowSize and only
// interprets the leading RowSize bytes.
func leafValueAt(buf []byte, i int) []byte {
	off := leafCellOffset(i) + KeySize
	return buf[off : off+MaxRowSize]
}

func initializeLeafNode(buf []byte, root bool) {
	for i := range buf {
		buf[i] = 0
	}
	setNodeType(buf, NodeLeaf)
	setIsRoot(buf, root)
	setLeafNumCells(buf, 0)
	setLeafNextLeaf(buf, 0)
}

// --- internal accessors ---

func internalNumKeys(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[internalNumKeysOffset : internalNumKeysOffset+4])
}
func setInternalNumKeys(buf []byte, n uint32) {
	binary.LittleEndian.PutUint32(buf[internalNumKeysOffset:internalNumKeysOffset+4], n)
}

func internalRightChild(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[internalRightChildOffset : internalRightChildOffset+4])
}
func setInternalRightChild(buf []byte, p uint32) {
	binary.LittleEndian.PutUint32(buf[internalRightChildOffset:internalRightChildOffset+4], p)
}

func internalCellOffset(i int) int { return internalHeaderSize + i*internalCellSize }

func internalChildAt(buf []byte, i int) uint32 {
	off := internalCellOffset(i)
	return binary.LittleEndian.Uint32(buf[off : off+4])
}
func setInternalChildAt(buf []byte, i int, child uint32) {
	off := internalCellOffset(i)
	binary.LittleEndian.PutUint32(buf[off:off+4], child)
}

func internalKeyAt(buf []byte, i int) uint32 {
	off := internalCellOffset(i) + 4
	return binary.LittleEndian.Uint32(buf[off : off+4])
}
func setInternalKeyAt(buf []byte, i int, key uint32) {
	off := internalCellOffset(i) + 4
	binary.LittleEndian.PutUint32(buf[off:off+4], key)
}

func initializeInternalNode(buf []byte, root bool) {
	for i := range buf {
		buf[i] = 0
	}
	setNodeType(buf, NodeInternal)
	setIsRoot(buf, root)
	setInternalNumKeys(buf, 0)
	setInternalRightChild(buf, 0)
}

// InitLeafRoot initializes an already-allocated page as an empty leaf
// marked root, used by catalog.CreateTable when it claims a fresh
// root page for a new table (spec §3 "A table is created via the
// catalog; its root page is allocated and initialized as an empty
// leaf marked as root").
func InitLeafRoot(p *pager.Pager, pageNum uint32) error {
	page, err := p.GetPage(pageNum)
	if err != nil {
		return err
	}
	initializeLeafNode(page.Data[:], true)
	page.Dirty = true
	return nil
}

// maxKey returns the largest key reachable under pageNum: the last
// cell's key for a leaf, recursively the right_child's maxKey for an
// internal node (spec §4.3 max_key).
func maxKey(p *pager.Pager, pageNum uint32) (uint32, error) {
	page, err := p.GetPage(pageNum)
	if err != nil {
		return 0, err
	}
	buf := page.Data[:]
	switch getNodeType(buf) {
	case NodeLeaf:
		n := leafNumCells(buf)
		if n == 0 {
			return 0, enginerr.NewFatal("maxKey of empty leaf", nil)
		}
		return leafKeyAt(buf, int(n-1)), nil
	case NodeInternal:
		return maxKey(p, internalRightChild(buf))
	default:
		return 0, enginerr.NewFatal("maxKey: unknown node type", nil)
	}
}
