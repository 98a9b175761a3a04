package config

const (
	// DefaultDatabasePath is the default path for the SQLite database holding
	// users, sessions and audit events
	DefaultDatabasePath = "./authsvc.db"

	// DefaultSessionCookieName is the cookie carrying the session token
	DefaultSessionCookieName = "session"
)
