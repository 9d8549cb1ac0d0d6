package recordfile

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"smfdb/internal/storage/bufferpool"
)

const fixedRecordSize = 32

func openTestHandler(t *testing.T, schema Schema) *RecordFileHandler {
	t.Helper()
	dir := t.TempDir()
	bp, err := bufferpool.OpenFile(filepath.Join(dir, "table.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bp.Close() })
	h, err := Open(bp, 1, schema)
	require.NoError(t, err)
	return h
}

func fixedRecord(tag byte) []byte {
	b := make([]byte, fixedRecordSize)
	for i := range b {
		b[i] = tag
	}
	return b
}

func TestInsertGetRoundTrip(t *testing.T) {
	h := openTestHandler(t, Schema{RecordSize: fixedRecordSize})
	rec := fixedRecord('a')
	rid, err := h.Insert(rec, nil)
	require.NoError(t, err)

	got, texts, err := h.Get(rid)
	require.NoError(t, err)
	require.Empty(t, texts)
	require.Equal(t, rec, got)
}

func TestDeleteThenGetFails(t *testing.T) {
	h := openTestHandler(t, Schema{RecordSize: fixedRecordSize})
	rid, err := h.Insert(fixedRecord('b'), nil)
	require.NoError(t, err)
	require.NoError(t, h.Delete(rid))

	_, _, err = h.Get(rid)
	require.Error(t, err)
}

func TestUpdateReplacesBytes(t *testing.T) {
	h := openTestHandler(t, Schema{RecordSize: fixedRecordSize})
	rid, err := h.Insert(fixedRecord('a'), nil)
	require.NoError(t, err)
	require.NoError(t, h.Update(rid, fixedRecord('z'), nil))

	got, _, err := h.Get(rid)
	require.NoError(t, err)
	require.Equal(t, fixedRecord('z'), got)
}

func TestInsertFillsMultiplePages(t *testing.T) {
	h := openTestHandler(t, Schema{RecordSize: fixedRecordSize})
	const n = 2000
	rids := make([]RID, 0, n)
	for i := 0; i < n; i++ {
		rid, err := h.Insert(fixedRecord(byte(i%251)), nil)
		require.NoError(t, err)
		rids = append(rids, rid)
	}

	pages := map[uint32]struct{}{}
	for _, rid := range rids {
		pages[rid.PageNum] = struct{}{}
	}
	require.Greater(t, len(pages), 1)

	for i, rid := range rids {
		got, _, err := h.Get(rid)
		require.NoError(t, err)
		require.Equal(t, fixedRecord(byte(i%251)), got)
	}
}

func TestScannerVisitsAllLiveRecords(t *testing.T) {
	h := openTestHandler(t, Schema{RecordSize: fixedRecordSize})
	const n = 500
	rids := make(map[RID]struct{}, n)
	for i := 0; i < n; i++ {
		rid, err := h.Insert(fixedRecord(byte(i%251)), nil)
		require.NoError(t, err)
		rids[rid] = struct{}{}
	}
	// delete every third record
	i := 0
	for rid := range rids {
		if i%3 == 0 {
			require.NoError(t, h.Delete(rid))
			delete(rids, rid)
		}
		i++
	}

	sc := h.NewScanner()
	seen := 0
	for {
		rid, ok, err := sc.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		_, expected := rids[rid]
		require.True(t, expected, "scanner yielded a deleted or unknown rid")
		seen++
	}
	require.Equal(t, len(rids), seen)
}

// textRecordSize reserves a 256-byte slot for a TEXT column starting at
// offset 0, followed by 16 bytes of other fixed fields.
const textRecordSize = 256 + 16

func textSchema() Schema {
	return Schema{
		RecordSize: textRecordSize,
		TextFields: []TextField{{Offset: 0, Length: 256}},
	}
}

// buildTextRecord builds the fixed-size row buffer passed to Insert/
// Update. The TEXT slot is left zeroed here; preprocessTextFields
// fills it in (inline bytes, or a pointer plus prefix) from the
// field's full logical content supplied separately via textOverride.
func buildTextRecord(tail string) []byte {
	b := make([]byte, textRecordSize)
	copy(b[256:], tail)
	return b
}

func textOverride(s string) map[int]string {
	return map[int]string{0: s}
}

func TestTextFieldInlineShortValue(t *testing.T) {
	h := openTestHandler(t, textSchema())
	rid, err := h.Insert(buildTextRecord("tail-fixed-bytes"), textOverride("short text value"))
	require.NoError(t, err)

	got, texts, err := h.Get(rid)
	require.NoError(t, err)
	require.Empty(t, texts, "short values stay inline and are absent from texts")
	require.Equal(t, "short text value", strings.TrimRight(string(got[0:256]), "\x00"))
}

func TestTextFieldOverflowsToChain(t *testing.T) {
	h := openTestHandler(t, textSchema())
	long := strings.Repeat("x", 5000)
	rid, err := h.Insert(buildTextRecord("tail-fixed-bytes"), textOverride(long))
	require.NoError(t, err)

	got, texts, err := h.Get(rid)
	require.NoError(t, err)
	require.Equal(t, long, texts[0])
	require.Equal(t, "tail-fixed-bytes", strings.TrimRight(string(got[256:]), "\x00"))
}

func TestTextFieldOverflowFreedOnDelete(t *testing.T) {
	h := openTestHandler(t, textSchema())
	long := strings.Repeat("y", 4000)
	rid, err := h.Insert(buildTextRecord(""), textOverride(long))
	require.NoError(t, err)
	require.NotEmpty(t, h.overflowPages)

	require.NoError(t, h.Delete(rid))
	require.Empty(t, h.overflowPages)
}

func TestTextFieldOverflowReplacedOnUpdate(t *testing.T) {
	h := openTestHandler(t, textSchema())
	rid, err := h.Insert(buildTextRecord(""), textOverride(strings.Repeat("a", 3000)))
	require.NoError(t, err)
	firstOverflowCount := len(h.overflowPages)
	require.Greater(t, firstOverflowCount, 0)

	require.NoError(t, h.Update(rid, buildTextRecord(""), textOverride(strings.Repeat("b", 6000))))
	_, texts, err := h.Get(rid)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("b", 6000), texts[0])
}

func TestVisitMutatesWhenRequested(t *testing.T) {
	h := openTestHandler(t, Schema{RecordSize: fixedRecordSize})
	rid, err := h.Insert(fixedRecord('a'), nil)
	require.NoError(t, err)

	require.NoError(t, h.Visit(rid, func(rec []byte, texts map[int]string) bool {
		rec[0] = 'Z'
		return true
	}))

	got, _, err := h.Get(rid)
	require.NoError(t, err)
	require.Equal(t, byte('Z'), got[0])
}

func TestVisitLeavesRecordWhenNotMutating(t *testing.T) {
	h := openTestHandler(t, Schema{RecordSize: fixedRecordSize})
	rec := fixedRecord('a')
	rid, err := h.Insert(rec, nil)
	require.NoError(t, err)

	require.NoError(t, h.Visit(rid, func(rec []byte, texts map[int]string) bool {
		rec[0] = 'Z'
		return false
	}))

	got, _, err := h.Get(rid)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestVisitPreservesOverflowedTextWhenUntouched(t *testing.T) {
	h := openTestHandler(t, textSchema())
	long := strings.Repeat("q", 4000)
	rid, err := h.Insert(buildTextRecord("fixed-tail"), textOverride(long))
	require.NoError(t, err)

	require.NoError(t, h.Visit(rid, func(rec []byte, texts map[int]string) bool {
		copy(rec[256:], "changed-tail")
		return true
	}))

	_, texts, err := h.Get(rid)
	require.NoError(t, err)
	require.Equal(t, long, texts[0])
}

func TestReopenRebuildsFreePages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.db")
	bp, err := bufferpool.OpenFile(path)
	require.NoError(t, err)
	h, err := Open(bp, 1, Schema{RecordSize: fixedRecordSize})
	require.NoError(t, err)

	var last RID
	for i := 0; i < 10; i++ {
		last, err = h.Insert(fixedRecord(byte(i)), nil)
		require.NoError(t, err)
	}
	require.NoError(t, bp.Close())

	bp2, err := bufferpool.OpenFile(path)
	require.NoError(t, err)
	defer bp2.Close()
	h2, err := Open(bp2, 1, Schema{RecordSize: fixedRecordSize})
	require.NoError(t, err)

	got, _, err := h2.Get(last)
	require.NoError(t, err)
	require.Equal(t, fixedRecord(9), got)
}

func TestInsertRejectsWrongLength(t *testing.T) {
	h := openTestHandler(t, Schema{RecordSize: fixedRecordSize})
	_, err := h.Insert(make([]byte, fixedRecordSize-1), nil)
	require.Error(t, err)
}

func TestManyTextRecordsIndependentOverflow(t *testing.T) {
	h := openTestHandler(t, textSchema())
	values := make([]string, 20)
	rids := make([]RID, 20)
	for i := range values {
		values[i] = fmt.Sprintf("record-%d-%s", i, strings.Repeat("v", 1000+i*37))
		rid, err := h.Insert(buildTextRecord(""), textOverride(values[i]))
		require.NoError(t, err)
		rids[i] = rid
	}
	for i, rid := range rids {
		_, texts, err := h.Get(rid)
		require.NoError(t, err)
		require.Equal(t, values[i], texts[0])
	}
}
