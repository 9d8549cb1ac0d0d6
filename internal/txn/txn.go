// Package txn exposes spec.md §4.6's four record-level primitives
// (visit_record, insert_record, update_record, delete_record) as a
// thin façade over internal/storage/table.Table. smfdb fixes its
// isolation level at read-committed — every visit sees the latest
// committed heap/index state, matching bufferpool.BufferPool's own
// latch-per-page concurrency model — so Transaction carries no extra
// snapshot or lock-manager state of its own today; it exists as the
// seam a future MVCC/2PL layer would slot into without changing
// internal/exec's call sites.
package txn

import (
	"smfdb/internal/rc"
	"smfdb/internal/storage/recordfile"
	"smfdb/internal/storage/table"
)

// VisitResult is visit_record's outcome: a row is SUCCESS when it's
// live and visible to this transaction, or RecordInvisible when it has
// been concurrently deleted (the only failure mode read-committed
// isolation can surface to a caller that already holds the RID).
type VisitResult int

const (
	Success VisitResult = iota
	RecordInvisible
)

// Mode distinguishes a plain read from a read that intends to modify
// the row next (UPDATE/DELETE's scan side), mirroring spec.md's
// `mode` parameter; read-committed isolation treats both identically
// today, but keeping the parameter lets a future lock manager add
// read-vs-write latching without changing callers.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// Transaction wraps one table.Table with spec.md §4.6's four
// primitives. smfdb's statements are each their own implicit
// transaction (the module has no BEGIN/COMMIT statement), so a
// Transaction's lifetime is
// exactly one statement's execution.
type Transaction struct {
	tbl *table.Table
}

// New opens a transaction against tbl.
func New(tbl *table.Table) *Transaction { return &Transaction{tbl: tbl} }

// VisitRecord reads the row at rid. mode is accepted for interface
// completeness; both modes read identical, already-committed state.
func (t *Transaction) VisitRecord(rid recordfile.RID, mode Mode) (data []byte, texts map[int]string, result VisitResult, err error) {
	data, texts, err = t.tbl.GetRecord(rid)
	if err != nil {
		if rc.CodeOf(err) == rc.RecordNotExist || rc.CodeOf(err) == rc.RecordInvisible {
			return nil, nil, RecordInvisible, nil
		}
		return nil, nil, Success, err
	}
	return data, texts, Success, nil
}

// InsertRecord inserts one new row, keeping every index consistent.
func (t *Transaction) InsertRecord(data []byte, texts map[int]string) (recordfile.RID, error) {
	return t.tbl.InsertRecord(data, texts)
}

// UpdateRecord overwrites the row at rid with new contents.
func (t *Transaction) UpdateRecord(rid recordfile.RID, newData []byte, newTexts map[int]string) error {
	return t.tbl.UpdateRecord(rid, newData, newTexts)
}

// DeleteRecord removes the row at rid.
func (t *Transaction) DeleteRecord(rid recordfile.RID) error {
	return t.tbl.DeleteRecord(rid)
}
