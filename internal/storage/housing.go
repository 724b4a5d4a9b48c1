package storage

import (
	"housingetl/internal/ddl"
	"housingetl/internal/transformer/builtin"
)

// HousingTable is the destination layout of the merged records. Every
// column is nullable: the outer merge keeps partial rows.
var HousingTable = ddl.TableDef{
	FQN: "housing",
	Columns: []ddl.ColumnDef{
		{Name: "guid", Type: ddl.Text, Nullable: true},
		{Name: "zip_code", Type: ddl.Text, Nullable: true},
		{Name: "city", Type: ddl.Text, Nullable: true},
		{Name: "state", Type: ddl.Text, Nullable: true},
		{Name: "county", Type: ddl.Text, Nullable: true},
		{Name: "housing_median_age", Type: ddl.Integer, Nullable: true},
		{Name: "total_rooms", Type: ddl.Integer, Nullable: true},
		{Name: "total_bedrooms", Type: ddl.Integer, Nullable: true},
		{Name: "population", Type: ddl.Integer, Nullable: true},
		{Name: "households", Type: ddl.Integer, Nullable: true},
		{Name: "median_income", Type: ddl.Integer, Nullable: true},
		{Name: "median_house_value", Type: ddl.Integer, Nullable: true},
	},
}

// HousingColumns returns the destination column names in insert order.
func HousingColumns() []string {
	out := make([]string, len(HousingTable.Columns))
	for i, c := range HousingTable.Columns {
		out[i] = c.Name
	}
	return out
}

// coercion returns the transformer that types the given columns according to
// HousingTable. Columns outside HousingTable are left as strings.
func coercion(columns []string) builtin.Coerce {
	types := map[string]ddl.ColumnType{}
	for _, c := range HousingTable.Columns {
		types[c.Name] = c.Type
	}
	c := builtin.Coerce{Types: map[string]string{}}
	for _, name := range columns {
		if types[name] == ddl.Integer {
			c.Types[name] = "int"
		}
	}
	return c
}
