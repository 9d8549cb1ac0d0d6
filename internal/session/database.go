// Package session ties the bound/planned/executed statement pipeline
// together: Database is the on-disk table registry every layer from
// internal/binder down to internal/exec shares, and Session holds the
// per-connection state (SET variables, the active database) a running
// client's statements are evaluated against.
package session

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"smfdb/internal/catalog"
	"smfdb/internal/rc"
	"smfdb/internal/storage/table"
)

// Database is the open-table registry for one data directory: it loads
// every table's metadata at startup, opens table.Table handles lazily
// on first use, and persists schema changes through internal/catalog's
// atomic-rename Save/AddIndex/DropIndex. It implements both
// internal/binder.Catalog (TableMeta) and internal/exec.Catalog
// (Table/CreateTable/DropTable/CreateIndex/DropIndex).
type Database struct {
	dataDir string

	mu          sync.Mutex
	metas       map[string]*catalog.TableMeta
	open        map[string]*table.Table
	nextTableID int32
}

// Open scans dataDir for existing table metadata files and returns a
// Database ready to serve TableMeta lookups; tables are opened lazily
// by Table/CreateTable, not eagerly here, mirroring
// storage/bufferpool's open-on-demand file handling.
func Open(dataDir string) (*Database, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, rc.Wrap(rc.IOErrOpen, err, "create data directory %s", dataDir)
	}
	db := &Database{
		dataDir:     dataDir,
		metas:       make(map[string]*catalog.TableMeta),
		open:        make(map[string]*table.Table),
		nextTableID: 1,
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, rc.Wrap(rc.IOErrRead, err, "read data directory %s", dataDir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".meta.json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".meta.json"))
	}
	sort.Strings(names)

	for _, name := range names {
		tm, err := catalog.Load(catalog.MetaPath(dataDir, name))
		if err != nil {
			return nil, err
		}
		db.metas[name] = tm
		if tm.TableID >= db.nextTableID {
			db.nextTableID = tm.TableID + 1
		}
	}
	return db, nil
}

// TableMeta implements internal/binder.Catalog.
func (db *Database) TableMeta(name string) (*catalog.TableMeta, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	tm, ok := db.metas[name]
	if !ok {
		return nil, rc.Errorf(rc.SchemaTableNotExist, "table %q does not exist", name)
	}
	return tm, nil
}

// TableNames lists every known table, sorted, for SHOW TABLES.
func (db *Database) TableNames() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	names := make([]string, 0, len(db.metas))
	for n := range db.metas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Table implements internal/exec.Catalog: it opens (and caches) the
// physical table.Table handle for name.
func (db *Database) Table(name string) (*table.Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.openLocked(name)
}

func (db *Database) openLocked(name string) (*table.Table, error) {
	if tbl, ok := db.open[name]; ok {
		return tbl, nil
	}
	tm, ok := db.metas[name]
	if !ok {
		return nil, rc.Errorf(rc.SchemaTableNotExist, "table %q does not exist", name)
	}
	tbl, err := table.Open(db.dataDir, catalog.MetaPath(db.dataDir, name), tm)
	if err != nil {
		return nil, err
	}
	db.open[name] = tbl
	return tbl, nil
}

// CreateTable implements internal/exec.Catalog: it allocates a new
// table ID, lays out field offsets, persists the metadata file, and
// opens the table.
func (db *Database) CreateTable(name string, fields []*catalog.FieldMeta, format catalog.StorageFormat) (*table.Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, exists := db.metas[name]; exists {
		return nil, rc.Errorf(rc.ConstraintViolation, "table %q already exists", name)
	}

	tableID := db.nextTableID
	db.nextTableID++
	tm := catalog.NewTableMeta(tableID, name, fields, format)
	path := catalog.MetaPath(db.dataDir, name)
	if err := catalog.Save(path, tm); err != nil {
		return nil, err
	}
	tbl, err := table.Open(db.dataDir, path, tm)
	if err != nil {
		return nil, err
	}
	db.metas[name] = tm
	db.open[name] = tbl
	return tbl, nil
}

// DropTable closes and removes a table's heap, index, and metadata
// files.
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	tm, ok := db.metas[name]
	if !ok {
		return rc.Errorf(rc.SchemaTableNotExist, "table %q does not exist", name)
	}
	if tbl, ok := db.open[name]; ok {
		_ = tbl.Close()
		delete(db.open, name)
	}
	delete(db.metas, name)

	_ = os.Remove(catalog.MetaPath(db.dataDir, name))
	_ = os.Remove(filepath.Join(db.dataDir, name+".heap"))
	for _, ix := range tm.Indexes {
		_ = os.Remove(filepath.Join(db.dataDir, name+"."+ix.Name+".idx"))
	}
	return nil
}

// CreateIndex opens the table, builds the new index over its existing
// rows, and persists the updated metadata.
func (db *Database) CreateIndex(tableName, indexName string, fieldNames []string, unique bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	tbl, err := db.openLocked(tableName)
	if err != nil {
		return err
	}
	if err := tbl.CreateIndex(indexName, fieldNames, unique); err != nil {
		return err
	}
	db.metas[tableName] = tbl.Meta
	return nil
}

// DropIndex removes one index from a table's metadata and its on-disk
// B+tree file.
func (db *Database) DropIndex(tableName, indexName string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	tm, ok := db.metas[tableName]
	if !ok {
		return rc.Errorf(rc.SchemaTableNotExist, "table %q does not exist", tableName)
	}
	if err := catalog.DropIndex(catalog.MetaPath(db.dataDir, tableName), tm, indexName); err != nil {
		return err
	}
	if tbl, ok := db.open[tableName]; ok {
		_ = tbl.Close()
		delete(db.open, tableName)
	}
	_ = os.Remove(filepath.Join(db.dataDir, tableName+"."+indexName+".idx"))
	return nil
}

// Close closes every open table handle.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	var firstErr error
	for name, tbl := range db.open {
		if err := tbl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(db.open, name)
	}
	return firstErr
}
