package query

import (
	"github.com/atlekbai/filter_engine/internal/schema"
)

const qAlias = "_e"

// QI is shorthand for schema.QuoteIdent.
func QI(name string) string { return schema.QuoteIdent(name) }

// Alias returns the alias of the root model in all generated SQL.
func Alias() string { return qAlias }

// ColumnRef returns the qualified, quoted SQL for a column.
func ColumnRef(c Column) string {
	if c.Table == "" {
		return QI(c.Name)
	}
	return QI(c.Table) + "." + QI(c.Name)
}

// IDColumn returns the identifier column of a model under the given alias.
func IDColumn(alias string, m *schema.Model) Column {
	return Column{Table: alias, Name: m.IDColumn()}
}
