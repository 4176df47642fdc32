package btree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableStartOnEmptyLeafIsEndOfTable(t *testing.T) {
	p, root := newTestTree(t)
	cur, err := TableStart(p, root)
	require.NoError(t, err)
	require.True(t, cur.EndOfTable)
	require.False(t, cur.Valid())
}

func TestCursorAdvanceAcrossLeaves(t *testing.T) {
	p, root := newTestTree(t)
	for k := uint32(1); k <= uint32(LeafMax*3); k++ {
		require.NoError(t, Insert(p, root, k, rowFor(k)))
	}

	cur, err := TableStart(p, root)
	require.NoError(t, err)
	count := 0
	seenPages := map[uint32]bool{}
	for !cur.EndOfTable {
		require.True(t, cur.Valid())
		seenPages[cur.PageNum] = true
		count++
		require.NoError(t, cur.Advance())
	}
	require.EqualValues(t, LeafMax*3, count)
	require.Greater(t, len(seenPages), 1)
}
