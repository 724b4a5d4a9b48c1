package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table() TableDef {
	return TableDef{
		FQN: "public.housing",
		Columns: []ColumnDef{
			{Name: "guid", Type: Text, Nullable: true},
			{Name: "total_rooms", Type: Integer, Nullable: true},
			{Name: "id", Type: Integer, PrimaryKey: true, Nullable: true},
		},
	}
}

func TestBuildCreateTableSQL_Dialects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		d    Dialect
		want string
	}{
		{SQLite, "CREATE TABLE IF NOT EXISTS \"public\".\"housing\" (\n  \"guid\" TEXT,\n  \"total_rooms\" INTEGER,\n  \"id\" INTEGER NOT NULL,\n  PRIMARY KEY (\"id\")\n)"},
		{Postgres, "CREATE TABLE IF NOT EXISTS \"public\".\"housing\" (\n  \"guid\" TEXT,\n  \"total_rooms\" BIGINT,\n  \"id\" BIGINT NOT NULL,\n  PRIMARY KEY (\"id\")\n)"},
		{MySQL, "CREATE TABLE IF NOT EXISTS `public`.`housing` (\n  `guid` VARCHAR(255),\n  `total_rooms` BIGINT,\n  `id` BIGINT NOT NULL,\n  PRIMARY KEY (`id`)\n)"},
		{MSSQL, "IF OBJECT_ID(N'public.housing', N'U') IS NULL\nCREATE TABLE [public].[housing] (\n  [guid] NVARCHAR(255),\n  [total_rooms] BIGINT,\n  [id] BIGINT NOT NULL,\n  PRIMARY KEY ([id])\n)"},
	}
	for _, tc := range cases {
		t.Run(tc.d.Name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(table(), tc.d)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildCreateTableSQL_Errors(t *testing.T) {
	t.Parallel()

	_, err := BuildCreateTableSQL(TableDef{FQN: " ", Columns: table().Columns}, SQLite)
	assert.ErrorContains(t, err, "table FQN must not be empty")

	_, err = BuildCreateTableSQL(TableDef{FQN: "t"}, SQLite)
	assert.ErrorContains(t, err, "at least one column")

	_, err = BuildCreateTableSQL(TableDef{FQN: "t", Columns: []ColumnDef{{Name: ""}}}, SQLite)
	assert.ErrorContains(t, err, "empty name")

	_, err = BuildCreateTableSQL(TableDef{FQN: "t", Columns: []ColumnDef{{Name: "x", Type: ColumnType(9)}}}, SQLite)
	assert.ErrorContains(t, err, "unsupported type unknown")
}

func TestQuoteEscapes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"a""b"`, SQLite.Quote(`a"b`))
	assert.Equal(t, "`a``b`", MySQL.Quote("a`b"))
	assert.Equal(t, "[a]]b]", MSSQL.Quote("a]b"))
}

func TestTableDefSelect(t *testing.T) {
	t.Parallel()

	sel, err := table().Select([]string{"total_rooms", "guid"})
	require.NoError(t, err)
	assert.Equal(t, []ColumnDef{{Name: "total_rooms", Type: Integer, Nullable: true}, {Name: "guid", Type: Text, Nullable: true}}, sel.Columns)

	all, err := table().Select(nil)
	require.NoError(t, err)
	assert.Len(t, all.Columns, 3)

	_, err = table().Select([]string{"nope"})
	var ue *UnknownColumnError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "nope", ue.Column)
}
