package postgresql

import (
	"context"
	"database/sql"

	"github.com/taskhive/taskhive/internal/tenantsrv/db/dbmanager"
)

// Directory Manager
type directoryManager struct {
	c dbmanager.ControlConn
}

func (dm *directoryManager) conn() *sql.Conn {
	return dm.c.Conn()
}

func newDirectoryManager(c dbmanager.ControlConn) *directoryManager {
	return &directoryManager{c: c}
}

// Schema Manager
type schemaManager struct {
	c dbmanager.ControlConn
}

func (sm *schemaManager) conn() *sql.Conn {
	return sm.c.Conn()
}

func newSchemaManager(c dbmanager.ControlConn) *schemaManager {
	return &schemaManager{c: c}
}

// Connection Manager
type connectionManager struct {
	c dbmanager.ControlConn
}

func newConnectionManager(c dbmanager.ControlConn) *connectionManager {
	return &connectionManager{c: c}
}

func (cm *connectionManager) Close(ctx context.Context) {
	cm.c.Close(ctx)
}

// NewTenantDirectoryDb returns the directory, schema, and connection managers
// bound to the given control-plane connection. The three are initialized
// separately so each interface can be wrapped independently.
func NewTenantDirectoryDb(c dbmanager.ControlConn) (*directoryManager, *schemaManager, *connectionManager) {
	return newDirectoryManager(c), newSchemaManager(c), newConnectionManager(c)
}
