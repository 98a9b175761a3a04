package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrlokans/authsvc/internal/audit"
	"github.com/mrlokans/authsvc/internal/auth"
	"github.com/mrlokans/authsvc/internal/database"
	auditdb "github.com/mrlokans/authsvc/internal/database/audit"
	"github.com/mrlokans/authsvc/internal/database/users"
	"github.com/mrlokans/authsvc/internal/http"
	"github.com/mrlokans/authsvc/internal/metrics"
	"github.com/mrlokans/authsvc/internal/session"
	"github.com/mrlokans/authsvc/internal/tasks"
)

// =============================================================================
// Credential Store
// =============================================================================

var _ auth.UserStore = (*users.Repository)(nil)
var _ auth.UserStore = (*users.PostgresRepository)(nil)

// =============================================================================
// Session Store
// =============================================================================

var _ auth.SessionStore = (*session.Manager)(nil)

// Redis backend must satisfy the context-aware scs interfaces so the
// manager can iterate it for DestroyUser.
var _ scs.Store = (*session.RedisStore)(nil)
var _ scs.CtxStore = (*session.RedisStore)(nil)
var _ scs.IterableCtxStore = (*session.RedisStore)(nil)

// =============================================================================
// Password Hashing
// =============================================================================

var _ auth.PasswordHasher = (*auth.BcryptHasher)(nil)
var _ auth.PasswordHasher = (*auth.Argon2idHasher)(nil)

// =============================================================================
// Observability
// =============================================================================

var _ auth.Auditor = (*audit.Service)(nil)
var _ auth.Metrics = (*metrics.Metrics)(nil)
var _ http.RateLimitRecorder = (*metrics.Metrics)(nil)

// =============================================================================
// Maintenance
// =============================================================================

var _ tasks.AuditEventCleaner = (*auditdb.Repository)(nil)

// Health checks
var _ http.Pinger = (*database.Database)(nil)
var _ http.Pinger = (*pgxpool.Pool)(nil)
