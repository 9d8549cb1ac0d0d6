package table

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"smfdb/internal/catalog"
	"smfdb/internal/rc"
	"smfdb/internal/types"
)

// fixedMeta builds a two-column table (a INT, b INT) with no indexes
// yet, ready for Open.
func fixedMeta() *catalog.TableMeta {
	fields := []*catalog.FieldMeta{
		{Name: "a", Type: types.IntType, Length: 4, Visible: true},
		{Name: "b", Type: types.IntType, Length: 4, Visible: true},
	}
	return catalog.NewTableMeta(1, "t", fields, catalog.RowFormat)
}

func intRecord(a, b int32) []byte {
	rec := make([]byte, 8)
	putInt32(rec[0:4], a)
	putInt32(rec[4:8], b)
	return rec
}

func putInt32(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func openTestTable(t *testing.T, tm *catalog.TableMeta) *Table {
	t.Helper()
	dir := t.TempDir()
	metaPath := catalog.MetaPath(dir, tm.Name)
	require.NoError(t, catalog.Save(metaPath, tm))
	tbl, err := Open(dir, metaPath, tm)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })
	return tbl
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	tbl := openTestTable(t, fixedMeta())
	rid, err := tbl.InsertRecord(intRecord(1, 2), nil)
	require.NoError(t, err)

	data, _, err := tbl.GetRecord(rid)
	require.NoError(t, err)
	require.Equal(t, intRecord(1, 2), data)
}

func TestInsertMaintainsUniqueIndex(t *testing.T) {
	tm := fixedMeta()
	tbl := openTestTable(t, tm)
	require.NoError(t, tbl.CreateIndex("idx_a", []string{"a"}, true))

	_, err := tbl.InsertRecord(intRecord(1, 1), nil)
	require.NoError(t, err)
	_, err = tbl.InsertRecord(intRecord(1, 2), nil)
	require.Error(t, err)
	require.Equal(t, rc.RecordDuplicateKey, rc.CodeOf(err))
}

func TestInsertRollsBackOnIndexFailure(t *testing.T) {
	tm := fixedMeta()
	tbl := openTestTable(t, tm)
	require.NoError(t, tbl.CreateIndex("idx_a", []string{"a"}, true))
	require.NoError(t, tbl.CreateIndex("idx_b", []string{"b"}, false))

	_, err := tbl.InsertRecord(intRecord(1, 10), nil)
	require.NoError(t, err)

	// Duplicate "a" fails on idx_a, the first index, before idx_b is
	// touched; the heap record already written must be removed again.
	_, err = tbl.InsertRecord(intRecord(1, 20), nil)
	require.Error(t, err)

	// The heap scan below confirms only the first record exists.
	count := 0
	s := tbl.Scanner()
	for {
		_, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 1, count)
}

func TestDeleteRemovesRecordAndIndexEntries(t *testing.T) {
	tm := fixedMeta()
	tbl := openTestTable(t, tm)
	require.NoError(t, tbl.CreateIndex("idx_a", []string{"a"}, true))

	rid, err := tbl.InsertRecord(intRecord(5, 6), nil)
	require.NoError(t, err)
	require.NoError(t, tbl.DeleteRecord(rid))

	_, _, err = tbl.GetRecord(rid)
	require.Error(t, err)

	// Key freed by delete must be insertable again under the unique index.
	_, err = tbl.InsertRecord(intRecord(5, 7), nil)
	require.NoError(t, err)
}

func TestUpdateRecordMaintainsIndexes(t *testing.T) {
	tm := fixedMeta()
	tbl := openTestTable(t, tm)
	require.NoError(t, tbl.CreateIndex("idx_a", []string{"a"}, true))

	rid, err := tbl.InsertRecord(intRecord(1, 1), nil)
	require.NoError(t, err)

	require.NoError(t, tbl.UpdateRecord(rid, intRecord(2, 1), nil))
	data, _, err := tbl.GetRecord(rid)
	require.NoError(t, err)
	require.Equal(t, intRecord(2, 1), data)

	// Old key (1) must be free again.
	_, err = tbl.InsertRecord(intRecord(1, 99), nil)
	require.NoError(t, err)

	// New key (2) must now be taken.
	_, err = tbl.InsertRecord(intRecord(2, 99), nil)
	require.Error(t, err)
	require.Equal(t, rc.RecordDuplicateKey, rc.CodeOf(err))
}

func TestUniqueIndexAllowsMultipleNulls(t *testing.T) {
	fields := []*catalog.FieldMeta{
		{Name: "a", Type: types.IntType, Length: 4, Visible: true},
	}
	tm := catalog.NewTableMeta(1, "u", fields, catalog.RowFormat)
	tbl := openTestTable(t, tm)
	require.NoError(t, tbl.CreateIndex("idx_a", []string{"a"}, true))

	nullRec := make([]byte, 4)
	for i := range nullRec {
		nullRec[i] = 0xFF
	}
	_, err := tbl.InsertRecord(nullRec, nil)
	require.NoError(t, err)
	_, err = tbl.InsertRecord(nullRec, nil)
	require.NoError(t, err)
}

func TestCreateIndexBackfillsExistingRows(t *testing.T) {
	tm := fixedMeta()
	tbl := openTestTable(t, tm)

	for i := int32(0); i < 5; i++ {
		_, err := tbl.InsertRecord(intRecord(i, i*10), nil)
		require.NoError(t, err)
	}

	require.NoError(t, tbl.CreateIndex("idx_a", []string{"a"}, true))

	_, err := tbl.InsertRecord(intRecord(3, 999), nil)
	require.Error(t, err)
	require.Equal(t, rc.RecordDuplicateKey, rc.CodeOf(err))
	require.NotNil(t, tm.IndexByName("idx_a"))
}

func TestManyInsertsAcrossPages(t *testing.T) {
	tm := fixedMeta()
	tbl := openTestTable(t, tm)
	require.NoError(t, tbl.CreateIndex("idx_a", []string{"a"}, true))

	const n = 500
	for i := int32(0); i < n; i++ {
		_, err := tbl.InsertRecord(intRecord(i, i), nil)
		require.NoError(t, err, fmt.Sprintf("insert %d", i))
	}

	count := 0
	s := tbl.Scanner()
	for {
		_, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, n, count)
}
