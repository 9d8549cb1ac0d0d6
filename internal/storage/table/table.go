// Package table ties the buffer pool, record file, and B+tree index
// layers together into a single table engine: insert/update/delete
// operations that keep every index consistent with the heap file. A
// failed InsertRecord is rolled back completely; a failed UpdateRecord
// leaves the heap record at its new value, and a failed DeleteRecord
// does not restore the index entries it already removed. It generalizes the
// heap.Table wiring pattern (Table struct owning a StorageManager,
// FileSet, bufferpool.Manager, and an OverflowManager, with
// encode/decode helpers bridging the row and storage layers) to a
// multi-index engine with its own key-codec and rollback semantics.
package table

import (
	"path/filepath"

	"smfdb/internal/catalog"
	"smfdb/internal/rc"
	"smfdb/internal/storage/bptree"
	"smfdb/internal/storage/bufferpool"
	"smfdb/internal/storage/recordfile"
	"smfdb/internal/types"
)

// Index bundles a live B+tree with the metadata describing which
// fields feed its composite key.
type Index struct {
	Meta *catalog.IndexMeta
	Tree *bptree.BTree
	bp   *bufferpool.BufferPool

	fieldLens []int
	fields    []*catalog.FieldMeta
}

// Table is the open, in-memory handle for one table: its schema, heap
// file, and every secondary index, all sharing the data directory laid
// out by Open.
type Table struct {
	Meta     *catalog.TableMeta
	metaPath string
	dataDir  string

	heapBP *bufferpool.BufferPool
	rf     *recordfile.RecordFileHandler

	Indexes []*Index
}

func heapPath(dataDir, name string) string {
	return filepath.Join(dataDir, name+".heap")
}

func indexPath(dataDir, tableName, indexName string) string {
	return filepath.Join(dataDir, tableName+"."+indexName+".idx")
}

// buildSchema translates a TableMeta into the byte-offset schema
// recordfile needs, locating every TEXT column's fixed slot.
func buildSchema(tm *catalog.TableMeta) recordfile.Schema {
	var textFields []recordfile.TextField
	for _, f := range tm.Fields {
		if f.Type == types.TextType {
			textFields = append(textFields, recordfile.TextField{Offset: f.Offset, Length: f.Length})
		}
	}
	return recordfile.Schema{
		RecordSize: tm.RecordSize,
		ColumnNum:  len(tm.Fields),
		PAX:        tm.StorageFormat == catalog.PAXFormat,
		TextFields: textFields,
	}
}

// Open opens (or creates, on first use) every file backing tm: the heap
// file and one B+tree file per index, all rooted at dataDir.
func Open(dataDir string, metaPath string, tm *catalog.TableMeta) (*Table, error) {
	heapBP, err := bufferpool.OpenFile(heapPath(dataDir, tm.Name))
	if err != nil {
		return nil, err
	}
	rf, err := recordfile.Open(heapBP, uint32(tm.TableID), buildSchema(tm))
	if err != nil {
		return nil, err
	}

	t := &Table{
		Meta:     tm,
		metaPath: metaPath,
		dataDir:  dataDir,
		heapBP:   heapBP,
		rf:       rf,
	}
	for _, im := range tm.Indexes {
		idx, err := t.openIndex(im)
		if err != nil {
			return nil, err
		}
		t.Indexes = append(t.Indexes, idx)
	}
	return t, nil
}

func (t *Table) openIndex(im *catalog.IndexMeta) (*Index, error) {
	fields := make([]*catalog.FieldMeta, len(im.FieldNames))
	lens := make([]int, len(im.FieldNames))
	keyLen := 0
	for i, fn := range im.FieldNames {
		f := t.Meta.FieldByName(fn)
		if f == nil {
			return nil, rc.Errorf(rc.SchemaFieldNotExist, "index %s references unknown field %s", im.Name, fn)
		}
		fields[i] = f
		lens[i] = f.Length
		keyLen += f.Length
	}
	bp, err := bufferpool.OpenFile(indexPath(t.dataDir, t.Meta.Name, im.Name))
	if err != nil {
		return nil, err
	}
	tree, err := bptree.Open(bp, keyLen, im.IsUnique)
	if err != nil {
		return nil, err
	}
	return &Index{Meta: im, Tree: tree, bp: bp, fieldLens: lens, fields: fields}, nil
}

// indexKey builds an index's composite key by concatenating each
// referenced field's raw bytes in declared order, and reports whether
// the key is NULL (any component entirely 0xFF fill).
func (ix *Index) indexKey(record []byte) ([]byte, bool) {
	key := make([]byte, 0, len(record))
	for _, f := range ix.fields {
		key = append(key, record[f.Offset:f.Offset+f.Length]...)
	}
	return key, bptree.IsNullKey(key, ix.fieldLens)
}

// GetRecord reads the live record at rid, returning its raw bytes plus
// any TEXT fields whose content overflowed inline storage.
func (t *Table) GetRecord(rid recordfile.RID) ([]byte, map[int]string, error) {
	return t.rf.Get(rid)
}

// Scanner exposes a heap scan over every live record.
func (t *Table) Scanner() *recordfile.Scanner { return t.rf.NewScanner() }

// InsertRecord stores data (plus any out-of-band TEXT content) and
// inserts its key into every index. If any index insert fails — most
// commonly a unique-key violation — indices already inserted for this
// record are rolled back and the record itself is removed, leaving the
// table exactly as it was before the call.
func (t *Table) InsertRecord(data []byte, texts map[int]string) (recordfile.RID, error) {
	rid, err := t.rf.Insert(data, texts)
	if err != nil {
		return recordfile.RID{}, err
	}

	inserted := make([]*Index, 0, len(t.Indexes))
	for _, ix := range t.Indexes {
		key, isNull := ix.indexKey(data)
		if err := ix.Tree.Insert(key, rid, isNull); err != nil {
			for _, done := range inserted {
				dkey, dnull := done.indexKey(data)
				_ = done.Tree.Delete(dkey, rid, dnull)
			}
			_ = t.rf.Delete(rid)
			return recordfile.RID{}, err
		}
		inserted = append(inserted, ix)
	}
	return rid, nil
}

// DeleteRecord removes every index entry for rid before removing the
// heap record itself, the reverse order of InsertRecord.
func (t *Table) DeleteRecord(rid recordfile.RID) error {
	data, _, err := t.rf.Get(rid)
	if err != nil {
		return err
	}
	for _, ix := range t.Indexes {
		key, isNull := ix.indexKey(data)
		if err := ix.Tree.Delete(key, rid, isNull); err != nil {
			return err
		}
	}
	return t.rf.Delete(rid)
}

// UpdateRecord replaces the record at rid with newData/newTexts: it
// removes old index entries computed from the authoritative current
// bytes, swaps in the new bytes (recordfile handles releasing the old
// TEXT overflow chain and writing a new one), then inserts new index
// entries. On index-insert failure it makes a best-effort attempt to
// restore the old index entries before returning the error; the heap
// record itself is left at its new value since the caller owns
// transactional rollback of the row proper.
func (t *Table) UpdateRecord(rid recordfile.RID, newData []byte, newTexts map[int]string) error {
	oldData, _, err := t.rf.Get(rid)
	if err != nil {
		return err
	}
	type oldEntry struct {
		ix     *Index
		key    []byte
		isNull bool
	}
	old := make([]oldEntry, len(t.Indexes))
	for i, ix := range t.Indexes {
		key, isNull := ix.indexKey(oldData)
		old[i] = oldEntry{ix: ix, key: key, isNull: isNull}
	}
	for _, oe := range old {
		if err := oe.ix.Tree.Delete(oe.key, rid, oe.isNull); err != nil {
			return err
		}
	}

	if err := t.rf.Update(rid, newData, newTexts); err != nil {
		for _, oe := range old {
			_ = oe.ix.Tree.Insert(oe.key, rid, oe.isNull)
		}
		return err
	}

	inserted := make([]*Index, 0, len(t.Indexes))
	for _, ix := range t.Indexes {
		key, isNull := ix.indexKey(newData)
		if err := ix.Tree.Insert(key, rid, isNull); err != nil {
			for _, done := range inserted {
				dkey, dnull := done.indexKey(newData)
				_ = done.Tree.Delete(dkey, rid, dnull)
			}
			for _, oe := range old {
				_ = oe.ix.Tree.Insert(oe.key, rid, oe.isNull)
			}
			return err
		}
		inserted = append(inserted, ix)
	}
	return nil
}

// CreateIndex builds a fresh B+tree for fieldNames over every live
// record currently in the table, then appends the new IndexMeta to the
// table's metadata and atomically persists it.
func (t *Table) CreateIndex(name string, fieldNames []string, unique bool) error {
	if t.Meta.IndexByName(name) != nil {
		return rc.Errorf(rc.InvalidArgument, "index %s already exists on table %s", name, t.Meta.Name)
	}
	im := &catalog.IndexMeta{Name: name, FieldNames: fieldNames, IsUnique: unique}
	ix, err := t.openIndex(im)
	if err != nil {
		return err
	}

	s := t.rf.NewScanner()
	for {
		rid, ok, err := s.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		data, _, err := t.rf.Get(rid)
		if err != nil {
			return err
		}
		key, isNull := ix.indexKey(data)
		if err := ix.Tree.Insert(key, rid, isNull); err != nil {
			return err
		}
	}

	if err := catalog.AddIndex(t.metaPath, t.Meta, im); err != nil {
		return err
	}
	t.Indexes = append(t.Indexes, ix)
	return nil
}

// Close flushes and closes every index and heap file backing this
// table.
func (t *Table) Close() error {
	for _, ix := range t.Indexes {
		if err := ix.bp.Close(); err != nil {
			return err
		}
	}
	return t.heapBP.Close()
}
