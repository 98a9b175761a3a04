// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Auth Service Collaborators (internal/auth/service.go)
//
//   - UserStore: credential lookup and creation (database/users)
//   - SessionStore: token to user ID mapping (session.Manager)
//   - PasswordHasher: salted hashing and verification (bcrypt, argon2id)
//   - Auditor: one event per state transition (audit.Service)
//   - Metrics: operation outcomes and latencies (metrics.Metrics)
//
// ## Session Backends
//
// session.Manager wraps any scs.Store. Backends that also implement
// scs.IterableCtxStore support logout-everywhere:
//
//   - sqlite3store: sessions table in the main SQLite database
//   - memstore: process-local
//   - session.RedisStore: keys under "session:" with a TTL
//
// # Adding a New Credential Store
//
//  1. Implement auth.UserStore in internal/database/users/, returning
//     users.ErrNotFound on a miss and users.ErrExists on a unique violation.
//
//     type MySQLRepository struct { db *sql.DB }
//
//     func (r *MySQLRepository) FindByIdentifier(ctx context.Context, identifier string) (*entities.User, error)
//     func (r *MySQLRepository) GetByID(ctx context.Context, id string) (*entities.User, error)
//     func (r *MySQLRepository) Create(ctx context.Context, username, email, passwordHash string) (*entities.User, error)
//
//  2. Add a compile-time check to checks.go.
//
//  3. Select it in entrypoint/app.go from the database driver setting.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for examples.
package interfaces
