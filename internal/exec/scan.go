package exec

import (
	"smfdb/internal/binder"
	"smfdb/internal/catalog"
	"smfdb/internal/expr"
	"smfdb/internal/planner/physical"
	"smfdb/internal/rc"
	"smfdb/internal/storage/bptree"
	"smfdb/internal/storage/recordfile"
	"smfdb/internal/storage/table"
	"smfdb/internal/types"
)

// tableSchema returns the FieldRef schema a row read from table
// carries, qualified by its bound reference name (alias or table name)
// so later operators can resolve `alias.col` or bare `col` lookups.
func tableSchema(bt binder.BoundTable) []expr.FieldRef {
	fields := bt.Meta.VisibleFields()
	out := make([]expr.FieldRef, len(fields))
	for i, f := range fields {
		out[i] = expr.FieldRef{Table: bt.RefName(), Field: f.Name}
	}
	return out
}

// TableScanOp reads every live row of a table via a full heap scan.
type TableScanOp struct {
	Spec *physical.TableScanOp

	tbl     *table.Table
	scanner *recordfile.Scanner
	schema  []expr.FieldRef
	fields  []*catalog.FieldMeta
}

func NewTableScanOp(spec *physical.TableScanOp) *TableScanOp { return &TableScanOp{Spec: spec} }

func (o *TableScanOp) Open(ctx *Context) error {
	tbl, err := ctx.Catalog.Table(o.Spec.Table.Meta.Name)
	if err != nil {
		return err
	}
	o.tbl = tbl
	o.scanner = tbl.Scanner()
	o.schema = tableSchema(o.Spec.Table)
	o.fields = o.Spec.Table.Meta.VisibleFields()
	return nil
}

func (o *TableScanOp) Next() (*Row, error) {
	for {
		rid, ok, err := o.scanner.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		data, texts, err := o.tbl.GetRecord(rid)
		if err != nil {
			return nil, err
		}
		values, err := DecodeRow(o.fields, data, texts)
		if err != nil {
			return nil, err
		}
		tuple := expr.NewTuple(o.schema, values)
		pass, err := passesFilter(o.Spec.Filter, tuple)
		if err != nil {
			return nil, err
		}
		if !pass {
			continue
		}
		return &Row{Tuple: tuple, RID: rid, Src: o.tbl}, nil
	}
}

func (o *TableScanOp) Close() error { return nil }

// IndexScanOp reads a table through one of its B+tree indexes,
// bounding the scan to rows whose leading key columns match Bounds'
// equality values, then applying Residual (whatever of the original
// WHERE the index range didn't already satisfy) as a post-scan check.
type IndexScanOp struct {
	Spec *physical.IndexScanOp

	tbl     *table.Table
	idx     *table.Index
	scanner *bptree.Scanner
	schema  []expr.FieldRef
	fields  []*catalog.FieldMeta
}

func NewIndexScanOp(spec *physical.IndexScanOp) *IndexScanOp { return &IndexScanOp{Spec: spec} }

func (o *IndexScanOp) Open(ctx *Context) error {
	tbl, err := ctx.Catalog.Table(o.Spec.Table.Meta.Name)
	if err != nil {
		return err
	}
	o.tbl = tbl
	o.fields = o.Spec.Table.Meta.VisibleFields()
	o.schema = tableSchema(o.Spec.Table)

	var idx *table.Index
	for _, ix := range tbl.Indexes {
		if ix.Meta.Name == o.Spec.Index.Name {
			idx = ix
			break
		}
	}
	if idx == nil {
		return rc.Errorf(rc.Internal, "index %q not open on table %q", o.Spec.Index.Name, tbl.Meta.Name)
	}
	o.idx = idx

	key, err := indexBoundKey(o.Spec.Table.Meta, o.Spec.Index, o.Spec.Bounds)
	if err != nil {
		return err
	}
	// A bound on a leading prefix of a composite index is padded to the
	// full key length: 0x00 for the low end, 0xFF for the high end.
	keyLen := 0
	for _, fn := range o.Spec.Index.FieldNames {
		keyLen += o.Spec.Table.Meta.FieldByName(fn).Length
	}
	lo := append(append([]byte(nil), key...), make([]byte, keyLen-len(key))...)
	hi := append([]byte(nil), key...)
	for len(hi) < keyLen {
		hi = append(hi, 0xFF)
	}
	sc, err := idx.Tree.CreateScanner(lo, true, hi, true)
	if err != nil {
		return err
	}
	o.scanner = sc
	return nil
}

func (o *IndexScanOp) Next() (*Row, error) {
	for {
		_, rid, ok, err := o.scanner.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		data, texts, err := o.tbl.GetRecord(rid)
		if err != nil {
			return nil, err
		}
		values, err := DecodeRow(o.fields, data, texts)
		if err != nil {
			return nil, err
		}
		tuple := expr.NewTuple(o.schema, values)
		pass, err := passesFilter(o.Spec.Residual, tuple)
		if err != nil {
			return nil, err
		}
		if !pass {
			continue
		}
		return &Row{Tuple: tuple, RID: rid, Src: o.tbl}, nil
	}
}

func (o *IndexScanOp) Close() error { return nil }

// indexBoundKey concatenates the equality bounds' encoded bytes in
// index-field order, mirroring table.Table's own indexKey construction
// so the scanner's search key lines up with what's stored.
func indexBoundKey(tm *catalog.TableMeta, ix *catalog.IndexMeta, bounds []physical.IndexBound) ([]byte, error) {
	var out []byte
	for _, fn := range ix.FieldNames {
		fm := tm.FieldByName(fn)
		if fm == nil {
			return nil, rc.Errorf(rc.Internal, "index %q references unknown field %q", ix.Name, fn)
		}
		var bound *physical.IndexBound
		for i := range bounds {
			if bounds[i].Field == fn {
				bound = &bounds[i]
				break
			}
		}
		if bound == nil || bound.Eq == nil {
			break
		}
		v, err := bound.Eq.GetValue(nil)
		if err != nil {
			return nil, err
		}
		one := *fm
		one.Offset = 0
		buf, _, err := EncodeRow([]*catalog.FieldMeta{&one}, []types.Value{v})
		if err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	return out, nil
}
