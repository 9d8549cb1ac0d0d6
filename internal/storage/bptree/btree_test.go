package bptree

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"smfdb/internal/storage/bufferpool"
	"smfdb/internal/storage/recordfile"
)

func openTestTree(t *testing.T, keyLen int, unique bool) *BTree {
	t.Helper()
	dir := t.TempDir()
	bp, err := bufferpool.OpenFile(filepath.Join(dir, "idx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bp.Close() })
	tree, err := Open(bp, keyLen, unique)
	require.NoError(t, err)
	return tree
}

func intKey(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func TestInsertAndScanOrdered(t *testing.T) {
	tree := openTestTree(t, 4, false)
	for _, v := range []int32{5, 1, 4, 2, 3} {
		require.NoError(t, tree.Insert(intKey(v), recordfile.RID{PageNum: uint32(v), Slot: 0}, false))
	}

	sc, err := tree.CreateScanner(intKey(0), true, intKey(100), true)
	require.NoError(t, err)

	var got []int32
	for {
		k, _, ok, err := sc.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, int32(binary.LittleEndian.Uint32(k)))
	}
	require.Equal(t, []int32{1, 2, 3, 4, 5}, got)
}

func TestUniqueDuplicateRejected(t *testing.T) {
	tree := openTestTree(t, 4, true)
	require.NoError(t, tree.Insert(intKey(1), recordfile.RID{PageNum: 1, Slot: 0}, false))
	err := tree.Insert(intKey(1), recordfile.RID{PageNum: 2, Slot: 0}, false)
	require.Error(t, err)
}

func TestUniqueAllowsMultipleNulls(t *testing.T) {
	tree := openTestTree(t, 4, true)
	require.NoError(t, tree.Insert(intKey(0), recordfile.RID{PageNum: 1, Slot: 0}, true))
	require.NoError(t, tree.Insert(intKey(0), recordfile.RID{PageNum: 2, Slot: 0}, true))
}

func TestSplitAcrossManyInserts(t *testing.T) {
	tree := openTestTree(t, 4, false)
	const n = 2000
	for i := int32(0); i < n; i++ {
		require.NoError(t, tree.Insert(intKey(i), recordfile.RID{PageNum: uint32(i) + 1, Slot: 0}, false))
	}

	sc, err := tree.CreateScanner(intKey(0), true, intKey(n), false)
	require.NoError(t, err)
	count := 0
	var prev int32 = -1
	for {
		k, _, ok, err := sc.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		v := int32(binary.LittleEndian.Uint32(k))
		require.Greater(t, v, prev)
		prev = v
		count++
	}
	require.Equal(t, n, count)
}

func TestDeleteRemovesEntry(t *testing.T) {
	tree := openTestTree(t, 4, false)
	rid := recordfile.RID{PageNum: 7, Slot: 0}
	require.NoError(t, tree.Insert(intKey(9), rid, false))
	require.NoError(t, tree.Delete(intKey(9), rid, false))

	sc, err := tree.CreateScanner(intKey(0), true, intKey(100), true)
	require.NoError(t, err)
	_, _, ok, err := sc.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNonUniqueAllowsDuplicateKeys(t *testing.T) {
	tree := openTestTree(t, 4, false)
	require.NoError(t, tree.Insert(intKey(3), recordfile.RID{PageNum: 1, Slot: 0}, false))
	require.NoError(t, tree.Insert(intKey(3), recordfile.RID{PageNum: 2, Slot: 0}, false))

	sc, err := tree.CreateScanner(intKey(3), true, intKey(3), true)
	require.NoError(t, err)
	count := 0
	for {
		_, _, ok, err := sc.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 2, count)
}

func TestIsNullKey(t *testing.T) {
	allFF := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	require.True(t, IsNullKey(allFF, []int{4}))
	require.False(t, IsNullKey(intKey(5), []int{4}))
}
