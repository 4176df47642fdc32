package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lithdb/enginerr"
	"lithdb/pager"
)

func newTestTree(t *testing.T) (*pager.Pager, uint32) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.db")
	p, err := pager.Open(path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	rootPage, err := p.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, InitLeafRoot(p, rootPage))
	return p, rootPage
}

func rowFor(key uint32) []byte {
	return []byte{byte(key), byte(key >> 8), byte(key >> 16), byte(key >> 24)}
}

// TestPointInsertAndFind covers spec §8 S1: insert a couple of keys,
// find each, and confirm a missing key is reported absent.
func TestPointInsertAndFind(t *testing.T) {
	p, root := newTestTree(t)
	require.NoError(t, Insert(p, root, 1, rowFor(1)))
	require.NoError(t, Insert(p, root, 2, rowFor(2)))

	cur, err := Search(p, root, 1)
	require.NoError(t, err)
	require.True(t, cur.Valid())
	require.Equal(t, uint32(1), cur.Key())

	cur, err = Search(p, root, 3)
	require.NoError(t, err)
	require.False(t, cur.Valid())
}

// TestDuplicateKeyRejected covers spec §8 S4: a duplicate insert
// leaves the tree unchanged and reports DuplicateKey.
func TestDuplicateKeyRejected(t *testing.T) {
	p, root := newTestTree(t)
	require.NoError(t, Insert(p, root, 7, rowFor(7)))

	err := Insert(p, root, 7, rowFor(99))
	require.Error(t, err)
	var kindErr *enginerr.Error
	require.ErrorAs(t, err, &kindErr)
	require.Equal(t, enginerr.KindDuplicateKey, kindErr.Kind)

	page, err := p.GetPage(root)
	require.NoError(t, err)
	require.EqualValues(t, 1, leafNumCells(page.Data[:]))
}

// TestBulkAscendingInsertAndScan covers spec §8 S3: 1..100 inserted in
// order yields a left-to-right walk of exactly 1..100, depth >= 2.
func TestBulkAscendingInsertAndScan(t *testing.T) {
	p, root := newTestTree(t)
	for k := uint32(1); k <= 100; k++ {
		require.NoError(t, Insert(p, root, k, rowFor(k)))
	}

	cur, err := TableStart(p, root)
	require.NoError(t, err)
	var got []uint32
	for !cur.EndOfTable {
		if cur.Valid() {
			got = append(got, cur.Key())
		}
		require.NoError(t, cur.Advance())
	}
	require.Len(t, got, 100)
	for i, k := range got {
		require.EqualValues(t, i+1, k)
	}

	rootPage, err := p.GetPage(root)
	require.NoError(t, err)
	require.Equal(t, NodeInternal, getNodeType(rootPage.Data[:]))
}

// TestLeafSplitProducesInternalRoot exercises the root-split path
// directly: enough sequential inserts to force LeafMax+1 cells into
// the original root leaf, after which the root must become an
// internal node whose own page number is unchanged (spec §4.3 "New
// root": "the root's page number never changes").
func TestLeafSplitProducesInternalRoot(t *testing.T) {
	p, root := newTestTree(t)
	for k := uint32(1); k <= uint32(LeafMax+1); k++ {
		require.NoError(t, Insert(p, root, k, rowFor(k)))
	}

	rootPage, err := p.GetPage(root)
	require.NoError(t, err)
	require.Equal(t, NodeInternal, getNodeType(rootPage.Data[:]))
	require.True(t, isRoot(rootPage.Data[:]))
	require.EqualValues(t, 1, internalNumKeys(rootPage.Data[:]))

	leftChild := internalChildAt(rootPage.Data[:], 0)
	rightChild := internalRightChild(rootPage.Data[:])

	leftPage, err := p.GetPage(leftChild)
	require.NoError(t, err)
	rightPage, err := p.GetPage(rightChild)
	require.NoError(t, err)
	require.False(t, isRoot(leftPage.Data[:]))
	require.False(t, isRoot(rightPage.Data[:]))
	require.Equal(t, root, parentPage(leftPage.Data[:]))
	require.Equal(t, root, parentPage(rightPage.Data[:]))

	require.EqualValues(t, rightChild, leafNextLeaf(leftPage.Data[:]))
	require.EqualValues(t, 0, leafNextLeaf(rightPage.Data[:]))
}

// TestNextLeafChainIsOrdered covers spec §8 invariant 4: following
// next_leaf from the leftmost leaf enumerates all keys ascending,
// terminating at next_leaf = 0.
func TestNextLeafChainIsOrdered(t *testing.T) {
	p, root := newTestTree(t)
	for k := uint32(1); k <= 50; k++ {
		require.NoError(t, Insert(p, root, k, rowFor(k)))
	}

	cur, err := TableStart(p, root)
	require.NoError(t, err)
	prev := uint32(0)
	first := true
	for {
		page, err := p.GetPage(cur.PageNum)
		require.NoError(t, err)
		n := int(leafNumCells(page.Data[:]))
		require.LessOrEqual(t, n, LeafMax)
		for i := 0; i < n; i++ {
			k := leafKeyAt(page.Data[:], i)
			if !first {
				require.Greater(t, k, prev)
			}
			prev = k
			first = false
		}
		next := leafNextLeaf(page.Data[:])
		if next == 0 {
			break
		}
		cur.PageNum = next
	}
	require.EqualValues(t, 50, prev)
}

// TestRangeScanStopsEarly covers spec §8 S5: after a bulk ascending
// insert, a range scan for [10, 15] returns exactly those keys and
// visits far fewer leaves than a full scan would.
func TestRangeScanStopsEarly(t *testing.T) {
	p, root := newTestTree(t)
	for k := uint32(1); k <= 100; k++ {
		require.NoError(t, Insert(p, root, k, rowFor(k)))
	}

	var got []uint32
	leaves, err := RangeScan(p, root, 10, 15, func(key uint32, _ []byte) error {
		got = append(got, key)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint32{10, 11, 12, 13, 14, 15}, got)

	total, err := RangeScan(p, root, 0, ^uint32(0), func(uint32, []byte) error { return nil })
	require.NoError(t, err)
	require.Less(t, leaves, total) // never walks every leaf in the tree
}

// TestInternalOverflowIsFatal covers spec §9's known limitation:
// internal-node splitting is unimplemented, so an insert pattern that
// would grow a single internal node past InternalMax must terminate
// with *enginerr.Fatal rather than silently corrupt the tree.
func TestInternalOverflowIsFatal(t *testing.T) {
	p, root := newTestTree(t)
	// Each leaf split adds exactly one separator to the root; driving
	// InternalMax+2 splits guarantees overflow regardless of split
	// distribution.
	n := uint32(LeafMax) * uint32(InternalMax+2)
	var fatal bool
	for k := uint32(1); k <= n; k++ {
		err := Insert(p, root, k, rowFor(k))
		if err != nil {
			var f *enginerr.Fatal
			require.ErrorAs(t, err, &f)
			fatal = true
			break
		}
	}
	require.True(t, fatal, "expected internal-node overflow to become fatal")
}

func TestDumpTreeRendersLeafAndInternal(t *testing.T) {
	p, root := newTestTree(t)
	for k := uint32(1); k <= uint32(LeafMax+1); k++ {
		require.NoError(t, Insert(p, root, k, rowFor(k)))
	}
	out, err := DumpTree(p, root, 0)
	require.NoError(t, err)
	require.Contains(t, out, "internal(page=")
	require.Contains(t, out, "leaf(page=")
}
