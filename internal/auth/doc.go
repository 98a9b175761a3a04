// Package auth implements registration, login, logout and access checks on
// top of three injected collaborators: a credential store, a session store
// and a password hasher.
//
// A session moves Anonymous -> Authenticated -> Anonymous. The service holds
// no state between calls; every call resolves the token it is given.
//
// # Configuration
//
//	AUTH_PASSWORD_HASHER=bcrypt     # or argon2id
//	AUTH_BCRYPT_COST=12             # bcrypt cost factor
//	AUTH_SESSION_STORE=sqlite       # sqlite, memory or redis
//	AUTH_SESSION_LIFETIME=24h       # Session duration
//
// # Usage
//
// Initialize in entrypoint:
//
//	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
//	svc := auth.NewService(usersRepo, sessionManager, hasher,
//		auth.WithAuditor(auditService),
//		auth.WithMetrics(authMetrics),
//	)
//
// Login failures never say why: unknown identifiers and wrong passwords both
// return ErrInvalidCredentials.
package auth
