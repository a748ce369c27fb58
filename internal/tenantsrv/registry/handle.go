package registry

import (
	"database/sql"
	"sync"
)

// Handle is a live connection handle scoped to one tenant schema. Closing a
// handle is idempotent; all other methods are safe after Close but queries
// through the underlying pool will fail.
type Handle struct {
	schemaName string
	db         *sql.DB
	closeOnce  sync.Once
	closeErr   error
}

// NewHandle wraps a per-schema *sql.DB. The pool must already be scoped to
// the schema (its sessions pin search_path to it).
func NewHandle(schemaName string, db *sql.DB) *Handle {
	return &Handle{
		schemaName: schemaName,
		db:         db,
	}
}

// SchemaName returns the schema this handle is scoped to.
func (h *Handle) SchemaName() string {
	return h.schemaName
}

// DB returns the underlying pool. Do not close it directly; use Close.
func (h *Handle) DB() *sql.DB {
	return h.db
}

// Close closes the underlying pool. Safe to call more than once.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		if h.db != nil {
			h.closeErr = h.db.Close()
		}
	})
	return h.closeErr
}
