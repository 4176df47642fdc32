package btree

import (
	"fmt"
	"sort"
	"strings"

	"lithdb/enginerr"
	"lithdb/pager"
)

// Search descends from rootPage, binary-searching each internal
// node's separators for the smallest index whose key is >= the
// target, and returns a cursor positioned at the first leaf cell
// whose key is >= target (possibly one past the last cell). It does
// not itself signal found/not-found — the caller checks the key at
// the cursor (spec §4.3).
func Search(p *pager.Pager, rootPage uint32, key uint32) (*Cursor, error) {
	pageNum := rootPage
	for {
		page, err := p.GetPage(pageNum)
		if err != nil {
			return nil, err
		}
		buf := page.Data[:]
		if getNodeType(buf) == NodeLeaf {
			n := int(leafNumCells(buf))
			idx := sort.Search(n, func(i int) bool { return leafKeyAt(buf, i) >= key })
			return &Cursor{p: p, PageNum: pageNum, CellNum: idx}, nil
		}
		n := int(internalNumKeys(buf))
		idx := sort.Search(n, func(i int) bool { return internalKeyAt(buf, i) >= key })
		if idx == n {
			pageNum = internalRightChild(buf)
		} else {
			pageNum = internalChildAt(buf, idx)
		}
	}
}

// Insert adds (key, row) into the tree rooted at rootPage, splitting
// the target leaf (and, if it was the root, creating a new root) when
// it has no room. row must be no longer than MaxRowSize; it is padded
// with zeros up to the fixed cell slot. Returns *enginerr.Error{Kind:
// DuplicateKey} if key already exists, unchanged.
func Insert(p *pager.Pager, rootPage uint32, key uint32, row []byte) error {
	if len(row) > MaxRowSize {
		return enginerr.NewFatal(fmt.Sprintf("row of %d bytes exceeds MaxRowSize %d", len(row), MaxRowSize), nil)
	}

	cur, err := Search(p, rootPage, key)
	if err != nil {
		return err
	}
	if cur.Valid() && cur.Key() == key {
		return enginerr.New(enginerr.KindDuplicateKey, "key %d already exists", key)
	}

	page, err := p.GetPage(cur.PageNum)
	if err != nil {
		return err
	}
	buf := page.Data[:]
	n := int(leafNumCells(buf))

	if n < LeafMax {
		insertLeafCell(buf, cur.CellNum, n, key, row)
		page.Dirty = true
		return nil
	}

	return splitLeafAndInsert(p, rootPage, cur.PageNum, cur.CellNum, key, row)
}

// insertLeafCell shifts cells [at, n) right by one and writes (key,
// row) at index at, then bumps NumCells.
func insertLeafCell(buf []byte, at, n int, key uint32, row []byte) {
	for i := n; i > at; i-- {
		copy(leafCellRaw(buf, i), leafCellRaw(buf, i-1))
	}
	setLeafKeyAt(buf, at, key)
	slot := leafValueAt(buf, at)
	for i := range slot {
		slot[i] = 0
	}
	copy(slot, row)
	setLeafNumCells(buf, uint32(n+1))
}

func leafCellRaw(buf []byte, i int) []byte {
	off := leafCellOffset(i)
	return buf[off : off+leafCellSize]
}

// splitLeafAndInsert implements spec §4.3 "Leaf split": allocate a
// sibling, splice the next_leaf chain, distribute the conceptual
// LEAF_MAX+1 cells between old and new, then promote upward.
func splitLeafAndInsert(p *pager.Pager, rootPage, oldPageNum uint32, cellNum int, key uint32, row []byte) error {
	oldPage, err := p.GetPage(oldPageNum)
	if err != nil {
		return err
	}
	oldBuf := oldPage.Data[:]

	newPageNum, err := p.AllocatePage()
	if err != nil {
		return err
	}
	newPage, err := p.GetPage(newPageNum)
	if err != nil {
		return err
	}
	initializeLeafNode(newPage.Data[:], false)
	newBuf := newPage.Data[:]
	setParentPage(newBuf, parentPage(oldBuf))

	setLeafNextLeaf(newBuf, leafNextLeaf(oldBuf))
	setLeafNextLeaf(oldBuf, newPageNum)

	// Materialize the conceptual LEAF_MAX+1 cells: existing LEAF_MAX
	// cells with (key, row) inserted at cellNum.
	type kv struct {
		key uint32
		val []byte
	}
	all := make([]kv, 0, LeafMax+1)
	for i := 0; i < cellNum; i++ {
		all = append(all, kv{leafKeyAt(oldBuf, i), cloneValue(leafValueAt(oldBuf, i))})
	}
	all = append(all, kv{key, row})
	for i := cellNum; i < LeafMax; i++ {
		all = append(all, kv{leafKeyAt(oldBuf, i), cloneValue(leafValueAt(oldBuf, i))})
	}

	splitIndex := (LeafMax + 1 + 1) / 2 // ceil((LEAF_MAX+1)/2)

	for i := 0; i < splitIndex; i++ {
		setLeafKeyAt(oldBuf, i, all[i].key)
		slot := leafValueAt(oldBuf, i)
		clearBytes(slot)
		copy(slot, all[i].val)
	}
	setLeafNumCells(oldBuf, uint32(splitIndex))

	for i := splitIndex; i < len(all); i++ {
		j := i - splitIndex
		setLeafKeyAt(newBuf, j, all[i].key)
		slot := leafValueAt(newBuf, j)
		clearBytes(slot)
		copy(slot, all[i].val)
	}
	setLeafNumCells(newBuf, uint32(len(all)-splitIndex))

	oldPage.Dirty = true
	newPage.Dirty = true

	if isRoot(oldBuf) {
		return createNewRoot(p, oldPageNum, newPageNum)
	}

	oldMax, err := maxKey(p, oldPageNum)
	if err != nil {
		return err
	}
	parentPageNum := parentPage(oldBuf)
	return internalInsertChild(p, parentPageNum, oldPageNum, oldMax, newPageNum)
}

func cloneValue(v []byte) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// createNewRoot implements spec §4.3 "New root": the root's page
// number never changes. We copy the (already-split, truncated) old
// root's bytes into a freshly allocated page, demote that copy, then
// reinitialize the root's own page as an internal node pointing at
// the copy and the newly split sibling.
func createNewRoot(p *pager.Pager, rootPage, splitRightPage uint32) error {
	rootPageObj, err := p.GetPage(rootPage)
	if err != nil {
		return err
	}

	leftCopyPageNum, err := p.AllocatePage()
	if err != nil {
		return err
	}
	leftCopyPage, err := p.GetPage(leftCopyPageNum)
	if err != nil {
		return err
	}
	copy(leftCopyPage.Data[:], rootPageObj.Data[:])
	setIsRoot(leftCopyPage.Data[:], false)
	setParentPage(leftCopyPage.Data[:], rootPage)
	leftCopyPage.Dirty = true

	leftMax, err := maxKey(p, leftCopyPageNum)
	if err != nil {
		return err
	}

	initializeInternalNode(rootPageObj.Data[:], true)
	setInternalNumKeys(rootPageObj.Data[:], 1)
	setInternalChildAt(rootPageObj.Data[:], 0, leftCopyPageNum)
	setInternalKeyAt(rootPageObj.Data[:], 0, leftMax)
	setInternalRightChild(rootPageObj.Data[:], splitRightPage)
	rootPageObj.Dirty = true

	rightPage, err := p.GetPage(splitRightPage)
	if err != nil {
		return err
	}
	setParentPage(rightPage.Data[:], rootPage)
	rightPage.Dirty = true

	return nil
}

// internalInsertChild inserts newChildPage into the internal node at
// parentPageNum, first updating oldChildPage's separator to oldMax
// (its post-split max), matching spec §4.3's two-step description.
// Depth never exceeds two levels (internal split is unimplemented —
// spec §9), so parentPageNum is always the root and this never
// cascades further.
func internalInsertChild(p *pager.Pager, parentPageNum, oldChildPage uint32, oldMax uint32, newChildPage uint32) error {
	parentPage_, err := p.GetPage(parentPageNum)
	if err != nil {
		return err
	}
	buf := parentPage_.Data[:]

	if internalRightChild(buf) != oldChildPage {
		n := int(internalNumKeys(buf))
		for i := 0; i < n; i++ {
			if internalChildAt(buf, i) == oldChildPage {
				setInternalKeyAt(buf, i, oldMax)
				break
			}
		}
	}

	if err := internalInsert(p, parentPageNum, newChildPage); err != nil {
		return err
	}
	parentPage_.Dirty = true
	return nil
}

// internalInsert implements spec §4.3 "Internal insert": compute
// child_max, binary-search the insertion index. If child_max exceeds
// the current right_child's max, the new child becomes rightmost and
// the previous right_child becomes a regular trailing cell; otherwise
// shift cells right and insert in place. Overflow beyond INTERNAL_MAX
// is unimplemented and Fatal (spec §9).
func internalInsert(p *pager.Pager, nodePageNum, childPage uint32) error {
	page, err := p.GetPage(nodePageNum)
	if err != nil {
		return err
	}
	buf := page.Data[:]

	childMax, err := maxKey(p, childPage)
	if err != nil {
		return err
	}

	n := int(internalNumKeys(buf))
	rightChild := internalRightChild(buf)

	var rightMax uint32
	if rightChild != 0 {
		rightMax, err = maxKey(p, rightChild)
		if err != nil {
			return err
		}
	}

	if rightChild == 0 || childMax > rightMax {
		if rightChild != 0 {
			if n >= InternalMax {
				return enginerr.NewFatal("internal node split required (unimplemented)", nil)
			}
			setInternalChildAt(buf, n, rightChild)
			setInternalKeyAt(buf, n, rightMax)
			n++
		}
		setInternalRightChild(buf, childPage)
		setInternalNumKeys(buf, uint32(n))
		setParentOf(p, childPage, nodePageNum)
		page.Dirty = true
		return nil
	}

	if n >= InternalMax {
		return enginerr.NewFatal("internal node split required (unimplemented)", nil)
	}

	idx := sort.Search(n, func(i int) bool { return internalKeyAt(buf, i) >= childMax })
	for i := n; i > idx; i-- {
		setInternalChildAt(buf, i, internalChildAt(buf, i-1))
		setInternalKeyAt(buf, i, internalKeyAt(buf, i-1))
	}
	setInternalChildAt(buf, idx, childPage)
	setInternalKeyAt(buf, idx, childMax)
	setInternalNumKeys(buf, uint32(n+1))
	setParentOf(p, childPage, nodePageNum)
	page.Dirty = true
	return nil
}

func setParentOf(p *pager.Pager, childPage, parentPageNum uint32) {
	page, err := p.GetPage(childPage)
	if err != nil {
		return
	}
	setParentPage(page.Data[:], parentPageNum)
	page.Dirty = true
}

// RangeScan walks leaves left-to-right from find(lo), invoking visit
// for every key in [lo, hi] and stopping the instant a key exceeds hi
// — it never performs a full scan (spec §4.4, §8 S5). It returns the
// number of leaves visited, useful for verifying the early-exit
// property in tests.
func RangeScan(p *pager.Pager, rootPage uint32, lo, hi uint32, visit func(key uint32, value []byte) error) (leavesVisited int, err error) {
	cur, err := Search(p, rootPage, lo)
	if err != nil {
		return 0, err
	}
	lastPage := uint32(0)
	first := true
	for !cur.EndOfTable {
		if !cur.Valid() {
			if err := cur.Advance(); err != nil {
				return leavesVisited, err
			}
			continue
		}
		if first || cur.PageNum != lastPage {
			leavesVisited++
			lastPage = cur.PageNum
			first = false
		}
		k := cur.Key()
		if k > hi {
			return leavesVisited, nil
		}
		if err := visit(k, cur.Value()); err != nil {
			return leavesVisited, err
		}
		if err := cur.Advance(); err != nil {
			return leavesVisited, err
		}
	}
	return leavesVisited, nil
}

// DumpTree renders the node/cell structure rooted at pageNum as an
// indented tree, in the spirit of original_source's print_tree — used
// by the REPL's .btree command and by tests asserting depth/order.
func DumpTree(p *pager.Pager, pageNum uint32, depth int) (string, error) {
	var sb strings.Builder
	if err := dumpTree(p, pageNum, depth, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func dumpTree(p *pager.Pager, pageNum uint32, depth int, sb *strings.Builder) error {
	page, err := p.GetPage(pageNum)
	if err != nil {
		return err
	}
	buf := page.Data[:]
	indent := strings.Repeat("  ", depth)
	switch getNodeType(buf) {
	case NodeLeaf:
		n := int(leafNumCells(buf))
		fmt.Fprintf(sb, "%sleaf(page=%d, cells=%d): ", indent, pageNum, n)
		for i := 0; i < n; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%d", leafKeyAt(buf, i))
		}
		sb.WriteString("\n")
	case NodeInternal:
		n := int(internalNumKeys(buf))
		fmt.Fprintf(sb, "%sinternal(page=%d, keys=%d)\n", indent, pageNum, n)
		for i := 0; i < n; i++ {
			if err := dumpTree(p, internalChildAt(buf, i), depth+1, sb); err != nil {
				return err
			}
			fmt.Fprintf(sb, "%s  -- key %d --\n", indent, internalKeyAt(buf, i))
		}
		if err := dumpTree(p, internalRightChild(buf), depth+1, sb); err != nil {
			return err
		}
	}
	return nil
}
