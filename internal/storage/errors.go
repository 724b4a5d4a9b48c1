package storage

import "fmt"

// PersistenceError reports a failure at the storage boundary: connecting,
// creating the table, preparing rows, inserting or querying. It wraps the
// driver error.
type PersistenceError struct {
	Op    string // connect, ddl, prepare, insert, query
	Kind  string
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage: %s %s (%s): %v", e.Op, e.Table, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Class names the failure category for logs.
func (e *PersistenceError) Class() string { return "persistence" }

// Record identifies the table the failure concerns.
func (e *PersistenceError) Record() string { return e.Table }
