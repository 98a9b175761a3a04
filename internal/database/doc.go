// Package database provides the data access layer for the service.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # SQLite connection setup, migrations, PostgreSQL pool
//	├── users/           # Credential store (gorm/SQLite and pgx/PostgreSQL)
//	└── audit/           # Authentication audit events
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./authsvc.db", "warn")
//
//	usersRepo := users.NewRepository(db.DB)
//	auditRepo := audit.NewRepository(db.DB)
//
//	user, err := usersRepo.FindByIdentifier(ctx, "alice")
//
// With DATABASE_DRIVER=postgres the credential store moves to PostgreSQL:
//
//	pool, err := database.NewPostgresPool(ctx, dsn)
//	usersRepo := users.NewPostgresRepository(pool)
//
// The SQLite database still holds the audit trail, the task queue and,
// by default, the sessions table.
//
// # Interface Implementations
//
//   - users.Repository, users.PostgresRepository: implement auth.UserStore
//   - audit.Repository: used by audit.Service and tasks.CleanupAuditEventsTask
package database
