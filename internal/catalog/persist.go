package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"smfdb/internal/rc"
)

// metaDoc is the on-disk JSON shape for a table's metadata file.
type metaDoc struct {
	TableID       int32         `json:"table_id"`
	Name          string        `json:"name"`
	StorageFormat StorageFormat `json:"storage_format"`
	RecordSize    int           `json:"record_size"`
	Fields        []*FieldMeta  `json:"fields"`
	Indexes       []*IndexMeta  `json:"indexes"`
	PrimaryKeys   []string      `json:"primary_keys,omitempty"`
}

// MetaPath returns the canonical metadata file path for a table within
// dataDir.
func MetaPath(dataDir, tableName string) string {
	return filepath.Join(dataDir, tableName+".meta.json")
}

// Save serializes tm to path through a `.tmp` sibling file followed by
// an atomic rename. This protects readers from ever observing a
// partially written metadata file, a property plain os.WriteFile to
// the final path does not have: on a rename, the filesystem swaps the
// whole name atomically, so a concurrent DDL reader sees either the
// old or the new metadata, never a half-write.
func Save(path string, tm *TableMeta) error {
	doc := metaDoc{
		TableID:       tm.TableID,
		Name:          tm.Name,
		StorageFormat: tm.StorageFormat,
		RecordSize:    tm.RecordSize,
		Fields:        tm.Fields,
		Indexes:       tm.Indexes,
		PrimaryKeys:   tm.PrimaryKeys,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return rc.Wrap(rc.Internal, err, "marshal table metadata for %s", tm.Name)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return rc.Wrap(rc.IOErrWrite, err, "write temp metadata file %s", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return rc.Wrap(rc.IOErrWrite, err, "rename %s to %s", tmpPath, path)
	}
	return nil
}

// Load reads and parses a table metadata file written by Save.
func Load(path string) (*TableMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rc.Wrap(rc.SchemaTableNotExist, err, "metadata file %s", path)
		}
		return nil, rc.Wrap(rc.IOErrRead, err, "read metadata file %s", path)
	}
	var doc metaDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, rc.Wrap(rc.Internal, err, "parse metadata file %s", path)
	}
	return &TableMeta{
		TableID:       doc.TableID,
		Name:          doc.Name,
		StorageFormat: doc.StorageFormat,
		RecordSize:    doc.RecordSize,
		Fields:        doc.Fields,
		Indexes:       doc.Indexes,
		PrimaryKeys:   doc.PrimaryKeys,
	}, nil
}

// AddIndex appends idx to tm's index list and persists the result by
// atomically renaming a new metadata file into place.
func AddIndex(path string, tm *TableMeta, idx *IndexMeta) error {
	if tm.IndexByName(idx.Name) != nil {
		return rc.Errorf(rc.InvalidArgument, "index %s already exists on table %s", idx.Name, tm.Name)
	}
	tm.Indexes = append(tm.Indexes, idx)
	if err := Save(path, tm); err != nil {
		// Roll back the in-memory change so callers see a consistent
		// TableMeta if the persist step failed.
		tm.Indexes = tm.Indexes[:len(tm.Indexes)-1]
		return fmt.Errorf("add index %s: %w", idx.Name, err)
	}
	return nil
}

// DropIndex removes idx by name and persists the result.
func DropIndex(path string, tm *TableMeta, name string) error {
	for i, ix := range tm.Indexes {
		if ix.Name == name {
			removed := ix
			tm.Indexes = append(tm.Indexes[:i], tm.Indexes[i+1:]...)
			if err := Save(path, tm); err != nil {
				// restore the entry best-effort, at the end of the list
				tm.Indexes = append(tm.Indexes, removed)
				return fmt.Errorf("drop index %s: %w", name, err)
			}
			return nil
		}
	}
	return rc.Errorf(rc.SchemaFieldNotExist, "index %s not found on table %s", name, tm.Name)
}
