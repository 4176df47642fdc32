package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lithdb/pager"
)

func openPager(t *testing.T) *pager.Pager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	p, err := pager.Open(path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestInitLeafRootMarksRootAndEmpty(t *testing.T) {
	p := openPager(t)
	pageNum, err := p.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, InitLeafRoot(p, pageNum))

	page, err := p.GetPage(pageNum)
	require.NoError(t, err)
	require.Equal(t, NodeLeaf, getNodeType(page.Data[:]))
	require.True(t, isRoot(page.Data[:]))
	require.EqualValues(t, 0, leafNumCells(page.Data[:]))
}

func TestLeafCellRoundTrip(t *testing.T) {
	p := openPager(t)
	pageNum, err := p.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, InitLeafRoot(p, pageNum))

	page, err := p.GetPage(pageNum)
	require.NoError(t, err)
	buf := page.Data[:]

	setLeafNumCells(buf, 2)
	setLeafKeyAt(buf, 0, 10)
	copy(leafValueAt(buf, 0), []byte("first"))
	setLeafKeyAt(buf, 1, 20)
	copy(leafValueAt(buf, 1), []byte("second"))

	require.EqualValues(t, 10, leafKeyAt(buf, 0))
	require.EqualValues(t, 20, leafKeyAt(buf, 1))
	require.Equal(t, byte('f'), leafValueAt(buf, 0)[0])
	require.Equal(t, byte('s'), leafValueAt(buf, 1)[0])
}

func TestInternalCellRoundTrip(t *testing.T) {
	p := openPager(t)
	pageNum, err := p.AllocatePage()
	require.NoError(t, err)
	page, err := p.GetPage(pageNum)
	require.NoError(t, err)
	initializeInternalNode(page.Data[:], true)
	buf := page.Data[:]

	setInternalNumKeys(buf, 2)
	setInternalChildAt(buf, 0, 3)
	setInternalKeyAt(buf, 0, 100)
	setInternalChildAt(buf, 1, 4)
	setInternalKeyAt(buf, 1, 200)
	setInternalRightChild(buf, 5)

	require.EqualValues(t, 3, internalChildAt(buf, 0))
	require.EqualValues(t, 100, internalKeyAt(buf, 0))
	require.EqualValues(t, 4, internalChildAt(buf, 1))
	require.EqualValues(t, 200, internalKeyAt(buf, 1))
	require.EqualValues(t, 5, internalRightChild(buf))
}

func TestMaxKeyOfEmptyLeafIsFatal(t *testing.T) {
	p := openPager(t)
	pageNum, err := p.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, InitLeafRoot(p, pageNum))

	_, err = maxKey(p, pageNum)
	require.Error(t, err)
}

func TestMaxKeyFollowsRightChild(t *testing.T) {
	p := openPager(t)
	leftPage, err := p.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, InitLeafRoot(p, leftPage))
	leftBuf, err := p.GetPage(leftPage)
	require.NoError(t, err)
	setLeafNumCells(leftBuf.Data[:], 1)
	setLeafKeyAt(leftBuf.Data[:], 0, 1)

	rightPage, err := p.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, InitLeafRoot(p, rightPage))
	rightBuf, err := p.GetPage(rightPage)
	require.NoError(t, err)
	setIsRoot(rightBuf.Data[:], false)
	setLeafNumCells(rightBuf.Data[:], 2)
	setLeafKeyAt(rightBuf.Data[:], 0, 5)
	setLeafKeyAt(rightBuf.Data[:], 1, 9)

	rootPage, err := p.AllocatePage()
	require.NoError(t, err)
	root, err := p.GetPage(rootPage)
	require.NoError(t, err)
	initializeInternalNode(root.Data[:], true)
	setInternalNumKeys(root.Data[:], 1)
	setInternalChildAt(root.Data[:], 0, leftPage)
	setInternalKeyAt(root.Data[:], 0, 1)
	setInternalRightChild(root.Data[:], rightPage)

	max, err := maxKey(p, rootPage)
	require.NoError(t, err)
	require.EqualValues(t, 9, max)
}
