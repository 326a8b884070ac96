package commands

import (
	"github.com/leapstack-labs/stepcat/internal/cli/output"
	"github.com/leapstack-labs/stepcat/pkg/core"
)

var catalogHeader = []string{"filename", "type", "database_name", "table_name"}

// renderCatalog writes rows as {"tables": [...]} or as a table.
func renderCatalog(r *output.Renderer, rows []core.CatalogRow) error {
	if rows == nil {
		rows = []core.CatalogRow{}
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			Tables []core.CatalogRow `json:"tables"`
		}{rows})
	}

	data := make([][]any, 0, len(rows))
	for _, row := range rows {
		data = append(data, []any{row.Filename, string(row.Type), row.DatabaseName, row.TableName})
	}
	r.Table(catalogHeader, data)
	return nil
}

func renderRefs(r *output.Renderer, refs []core.TableRef) {
	data := make([][]any, 0, len(refs))
	for _, ref := range refs {
		data = append(data, []any{string(ref.Kind), ref.Database, ref.Table})
	}
	r.Table([]string{"type", "database_name", "table_name"}, data)
}
