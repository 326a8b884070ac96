package core

import "fmt"

// TableKind classifies how a job step uses a table.
type TableKind string

// TableKind values.
const (
	KindSource TableKind = "source" // table is read
	KindTarget TableKind = "target" // table is written
)

// IsValid reports whether k is a known kind.
func (k TableKind) IsValid() bool {
	return k == KindSource || k == KindTarget
}

// ParseTableKind converts a persisted kind string back into a TableKind.
func ParseTableKind(s string) (TableKind, error) {
	k := TableKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown table kind %q", s)
	}
	return k, nil
}

// TableRef is one distinct table usage found in a configuration.
type TableRef struct {
	Kind     TableKind `json:"type"`
	Database string    `json:"database_name"`
	Table    string    `json:"table_name"`
}

// TableKey is the identity of a TableRef. Two refs with equal keys are the
// same entity regardless of where they were found.
type TableKey struct {
	Kind     TableKind
	Database string
	Table    string
}

// Key returns the identity triple of the reference.
func (r TableRef) Key() TableKey {
	return TableKey{Kind: r.Kind, Database: r.Database, Table: r.Table}
}

// QualifiedName returns "database.table".
func (r TableRef) QualifiedName() string {
	return r.Database + "." + r.Table
}

func (r TableRef) String() string {
	return fmt.Sprintf("%s %s", r.Kind, r.QualifiedName())
}

// CatalogRow is the persisted shape of one table reference, tagged with the
// file it was extracted from.
type CatalogRow struct {
	Filename     string    `json:"filename"`
	Type         TableKind `json:"type"`
	DatabaseName string    `json:"database_name"`
	TableName    string    `json:"table_name"`
}

// Ref returns the table reference carried by the row.
func (r CatalogRow) Ref() TableRef {
	return TableRef{Kind: r.Type, Database: r.DatabaseName, Table: r.TableName}
}

// NewCatalogRows tags refs with filename, keeping their order.
func NewCatalogRows(filename string, refs []TableRef) []CatalogRow {
	rows := make([]CatalogRow, 0, len(refs))
	for _, ref := range refs {
		rows = append(rows, CatalogRow{
			Filename:     filename,
			Type:         ref.Kind,
			DatabaseName: ref.Database,
			TableName:    ref.Table,
		})
	}
	return rows
}
