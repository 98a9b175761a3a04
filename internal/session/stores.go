package session

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2/memstore"
)

const sessionsTableDDL = `CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expiry REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`

// NewSQLiteStore creates the sessions table if needed and returns a store
// over it. Expired rows are swept every cleanupInterval; zero disables the
// sweep.
func NewSQLiteStore(db *sql.DB, cleanupInterval time.Duration) (*sqlite3store.SQLite3Store, error) {
	if _, err := db.Exec(sessionsTableDDL); err != nil {
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return sqlite3store.NewWithCleanupInterval(db, cleanupInterval), nil
}

// NewMemoryStore returns a process-local store. Sessions do not survive a
// restart.
func NewMemoryStore() *memstore.MemStore {
	return memstore.New()
}
