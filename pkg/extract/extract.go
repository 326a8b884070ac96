// Package extract finds the database tables a job step configuration reads
// from and writes to.
//
// The walk visits every mapping of the tree, at any depth, and checks it for
// a fixed set of field-name pairs:
//
//	source_database / source_table    -> source
//	target_database / target_table    -> target
//	landing_database / landing_table  -> target
//	database_name / table_name        -> target
//
// plus the refinery grouping, where one refinery_database fans out to the
// table_name of every descriptor wrapped inside the refinery_tables list:
//
//	refinery_database: curated
//	refinery_tables:
//	  - orders:
//	      table_name: orders_v2
//	    customers:
//	      table_name: customers_v1
//
// Fields that are missing, empty or not strings never match and never cause
// an error. Each (kind, database, table) triple is reported once, at the
// position it was first found.
package extract

import (
	"github.com/leapstack-labs/stepcat/pkg/confignode"
	"github.com/leapstack-labs/stepcat/pkg/core"
)

// Pattern is a pair of sibling fields naming a table.
type Pattern struct {
	DatabaseField string
	TableField    string
	Kind          core.TableKind
}

// patterns lists the direct table-reference patterns in the order they are
// checked on each mapping.
var patterns = []Pattern{
	{DatabaseField: "source_database", TableField: "source_table", Kind: core.KindSource},
	{DatabaseField: "target_database", TableField: "target_table", Kind: core.KindTarget},
	{DatabaseField: "landing_database", TableField: "landing_table", Kind: core.KindTarget},
	{DatabaseField: "database_name", TableField: "table_name", Kind: core.KindTarget},
}

// Patterns returns a copy of the direct table-reference patterns in the order
// they are checked.
func Patterns() []Pattern {
	out := make([]Pattern, len(patterns))
	copy(out, patterns)
	return out
}

// Refinery grouping fields.
const (
	RefineryDatabaseField = "refinery_database"
	RefineryTablesField   = "refinery_tables"
	refineryTableField    = "table_name"
)

// Tables walks root and returns every distinct table reference in
// first-discovery order. It never fails; the result is empty, not nil, when
// nothing matches.
func Tables(root confignode.Node) []core.TableRef {
	e := &tableExtractor{
		tables: make([]core.TableRef, 0),
		seen:   make(map[core.TableKey]struct{}),
	}
	e.walk(root)
	return e.tables
}

// tableExtractor holds the state of one walk. It is never shared between calls.
type tableExtractor struct {
	tables []core.TableRef
	seen   map[core.TableKey]struct{}
}

func (e *tableExtractor) walk(n confignode.Node) {
	switch node := n.(type) {
	case *confignode.Mapping:
		e.inspect(node)
		for _, entry := range node.Entries() {
			switch entry.Value.(type) {
			case *confignode.Mapping, *confignode.Sequence:
				e.walk(entry.Value)
			}
		}
	case *confignode.Sequence:
		for _, item := range node.Items {
			e.walk(item)
		}
	}
}

// inspect checks a single mapping for every pattern. Patterns are independent:
// one mapping can yield several references.
func (e *tableExtractor) inspect(m *confignode.Mapping) {
	for _, p := range patterns {
		db, dbOK := confignode.StringField(m, p.DatabaseField)
		table, tableOK := confignode.StringField(m, p.TableField)
		if dbOK && tableOK {
			e.add(core.TableRef{Kind: p.Kind, Database: db, Table: table})
		}
	}
	e.inspectRefinery(m)
}

// inspectRefinery handles the refinery grouping. Keys of each list element are
// ignored; only their mapping values are read as table descriptors.
func (e *tableExtractor) inspectRefinery(m *confignode.Mapping) {
	db, ok := confignode.StringField(m, RefineryDatabaseField)
	if !ok {
		return
	}
	groups, ok := confignode.SequenceField(m, RefineryTablesField)
	if !ok {
		return
	}
	for _, item := range groups.Items {
		group, ok := item.(*confignode.Mapping)
		if !ok {
			continue
		}
		for _, slot := range group.Entries() {
			descriptor, ok := slot.Value.(*confignode.Mapping)
			if !ok {
				continue
			}
			if table, ok := confignode.StringField(descriptor, refineryTableField); ok {
				e.add(core.TableRef{Kind: core.KindSource, Database: db, Table: table})
			}
		}
	}
}

func (e *tableExtractor) add(ref core.TableRef) {
	key := ref.Key()
	if _, dup := e.seen[key]; dup {
		return
	}
	e.seen[key] = struct{}{}
	e.tables = append(e.tables, ref)
}
