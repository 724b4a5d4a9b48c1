// Package all wires every built-in storage backend into the storage factory.
//
// It exists purely for side effects: importing it runs the init functions of
// each backend, which register their factories and DDL dialects with the
// storage package. After
//
//	import _ "housingetl/internal/storage/all"
//
// the kinds "sqlite", "postgres", "mysql" and "mssql" are available through
// storage.New, storage.NewSink and storage.OpenQuerier. A binary that needs
// only some backends imports those packages directly instead.
package all

import (
	_ "housingetl/internal/storage/mssql"
	_ "housingetl/internal/storage/mysql"
	_ "housingetl/internal/storage/postgres"
	_ "housingetl/internal/storage/sqlite"
)
